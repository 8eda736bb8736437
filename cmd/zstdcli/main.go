// Command zstdcli compresses or decompresses a single file (or stdin/stdout
// when given "-"), mirroring the teacher's flag-driven single-purpose CLIs.
package main

import (
	"flag"
	"io"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/zstdgo/zstd"
)

var (
	decompress   bool
	compress     bool
	showProgress bool
	inputFlag    string
	outputFlag   string
	dictFlag     string
)

func init() {
	flag.BoolVar(&decompress, "d", false, "decompress input")
	flag.BoolVar(&compress, "c", false, "compress input (default)")
	flag.BoolVar(&showProgress, "p", false, "show a progress bar while processing")
	flag.StringVar(&inputFlag, "i", "-", "input filename, - for stdin")
	flag.StringVar(&outputFlag, "o", "-", "output filename, - for stdout")
	flag.StringVar(&dictFlag, "dict", "", "dictionary file")
}

func main() {
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatal("failed to initialize logger: ", err)
	}
	defer logger.Sync()

	if decompress && compress {
		logger.Fatal("-c and -d are mutually exclusive")
	}

	input := os.Stdin
	if inputFlag != "-" {
		input, err = os.Open(inputFlag)
		if err != nil {
			logger.Fatal("failed to open input", zap.Error(err))
		}
		defer input.Close()
	}

	output := os.Stdout
	if outputFlag != "-" {
		output, err = os.OpenFile(outputFlag, os.O_TRUNC|os.O_WRONLY|os.O_CREATE, 0644)
		if err != nil {
			logger.Fatal("failed to open output", zap.Error(err))
		}
		defer output.Close()
	}

	var dict *zstd.Dictionary
	if dictFlag != "" {
		raw, err := os.ReadFile(dictFlag)
		if err != nil {
			logger.Fatal("failed to read dictionary", zap.Error(err))
		}
		dict, err = zstd.LoadDictionary(raw)
		if err != nil {
			logger.Fatal("failed to parse dictionary", zap.Error(err))
		}
	}

	var size int64 = -1
	if fi, err := input.Stat(); err == nil {
		size = fi.Size()
	}

	var reader interface {
		Read([]byte) (int, error)
	} = input
	if showProgress {
		label := "processing"
		pr := zstd.NewProgressReader(input, label, size)
		defer pr.Close()
		reader = pr
	}

	if decompress {
		opts := []zstd.DOption{zstd.WithDecoderLogger(logger)}
		if dict != nil {
			opts = append(opts, zstd.WithDecoderDictionary(dict))
		}
		d, err := zstd.NewDecoder(opts...)
		if err != nil {
			logger.Fatal("failed to create decoder", zap.Error(err))
		}
		if err := d.Reset(reader); err != nil {
			logger.Fatal("failed to reset decoder", zap.Error(err))
		}
		if err := d.CollectToWriter(output); err != nil {
			logger.Fatal("failed to decompress", zap.Error(err))
		}
		return
	}

	opts := []zstd.EOption{zstd.WithEncoderLogger(logger)}
	if dict != nil {
		opts = append(opts, zstd.WithEncoderDictionary(dict))
	}
	e, err := zstd.NewEncoder(output, opts...)
	if err != nil {
		logger.Fatal("failed to create encoder", zap.Error(err))
	}
	buf := make([]byte, 64*1024)
	for {
		n, rerr := reader.Read(buf)
		if n > 0 {
			if _, werr := e.Write(buf[:n]); werr != nil {
				logger.Fatal("failed to write compressed data", zap.Error(werr))
			}
		}
		if rerr != nil {
			if rerr != io.EOF {
				logger.Fatal("failed to read input", zap.Error(rerr))
			}
			break
		}
	}
	if err := e.Close(); err != nil {
		logger.Fatal("failed to finalize compressed output", zap.Error(err))
	}
}
