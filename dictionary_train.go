package zstd

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/zstdgo/zstd/fse"
	"github.com/zstdgo/zstd/huff0"
	"github.com/zstdgo/zstd/internal/dicttrain"
)

// TrainDictionary builds a raw dictionary blob (in the format LoadDictionary
// parses) from a corpus of samples: dicttrain.Train picks the
// highest-scoring segments across the corpus as dictionary content, then a
// Huffman table is fit to that content's own byte distribution and the three
// predefined FSE sequence tables are serialized alongside it (a Repeat-mode
// block built against this dictionary inherits the same tables a
// Predefined-mode block would have used, so there is no loss in always
// shipping them rather than fitting custom ones to the corpus's sequences,
// which this package's encoder does not itself model).
func TrainDictionary(ctx context.Context, samples [][]byte, id uint32, targetContentSize int) ([]byte, error) {
	var corpus []byte
	for _, s := range samples {
		corpus = append(corpus, s...)
	}
	if len(corpus) == 0 {
		return nil, fmt.Errorf("zstd: no sample content to train from")
	}

	content, err := dicttrain.Train(ctx, corpus, targetContentSize, dicttrain.DefaultParams())
	if err != nil {
		return nil, fmt.Errorf("zstd: dictionary training: %w", err)
	}

	var counts [256]int32
	for _, b := range content {
		counts[b]++
	}
	huf, err := huff0.BuildEncoder(counts[:])
	if err != nil {
		return nil, fmt.Errorf("zstd: dictionary huffman table: %w", err)
	}
	huffDesc, err := huf.WeightHeader()
	if err != nil {
		return nil, fmt.Errorf("zstd: dictionary huffman header: %w", err)
	}

	ofBytes := fse.WriteProbabilities(fse.OffsetDefaultDistribution, fse.OffsetDefaultAccuracyLog)
	mlBytes := fse.WriteProbabilities(fse.MatchLengthDefaultDistribution, fse.MatchLengthDefaultAccuracyLog)
	llBytes := fse.WriteProbabilities(fse.LiteralLengthDefaultDistribution, fse.LiteralLengthDefaultAccuracyLog)

	out := make([]byte, 0, 8+len(huffDesc)+len(ofBytes)+len(mlBytes)+len(llBytes)+12+len(content))
	out = append(out, dictionaryMagic[:]...)
	var idBytes [4]byte
	binary.LittleEndian.PutUint32(idBytes[:], id)
	out = append(out, idBytes[:]...)
	out = append(out, huffDesc...)
	out = append(out, ofBytes...)
	out = append(out, mlBytes...)
	out = append(out, llBytes...)

	hist := NewOffsetHistory()
	for _, v := range hist {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], v)
		out = append(out, b[:]...)
	}

	out = append(out, content...)
	return out, nil
}
