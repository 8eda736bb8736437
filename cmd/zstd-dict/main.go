// Command zstd-dict trains a dictionary from a set of sample files, the way
// the teacher's own cmd/ tools take a flag-specified set of inputs and
// produce one output artifact.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/zstdgo/zstd"
)

var (
	outputFlag string
	sizeKBFlag int
	dictIDFlag uint
)

func init() {
	flag.StringVar(&outputFlag, "o", "dictionary", "output dictionary filename")
	flag.IntVar(&sizeKBFlag, "k", 112, "target dictionary size in KiB")
	flag.UintVar(&dictIDFlag, "id", 1, "dictionary id to embed")
}

func main() {
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatal("failed to initialize logger: ", err)
	}
	defer logger.Sync()

	inputs := flag.Args()
	if len(inputs) == 0 {
		logger.Fatal("at least one sample file is required")
	}

	samples := make([][]byte, 0, len(inputs))
	for _, path := range inputs {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Fatal("failed to read sample", zap.String("path", path), zap.Error(err))
		}
		samples = append(samples, data)
	}

	blob, err := zstd.TrainDictionary(context.Background(), samples, uint32(dictIDFlag), sizeKBFlag*1024)
	if err != nil {
		logger.Fatal("failed to train dictionary", zap.Error(err))
	}

	if err := os.WriteFile(outputFlag, blob, 0644); err != nil {
		logger.Fatal("failed to write dictionary", zap.Error(err))
	}
	logger.Info("wrote dictionary", zap.String("path", outputFlag), zap.Int("bytes", len(blob)))
}
