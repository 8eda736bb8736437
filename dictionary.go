package zstd

import (
	"encoding/binary"
	"fmt"

	"github.com/zstdgo/zstd/bitio"
	"github.com/zstdgo/zstd/fse"
	"github.com/zstdgo/zstd/huff0"
)

var dictionaryMagic = [4]byte{0x37, 0xA4, 0x30, 0xEC}

// Dictionary is a loaded Zstandard dictionary: entropy tables seeded ahead
// of the frame's first block (usable as Repeat-mode tables) plus raw
// content served for matches whose offset reaches past the frame's own
// output. Table build order is fixed: Huffman, then FSE tables for Offset,
// Match_Length, Literal_Length in that order, matching the reference
// decoder exactly (a detail it is easy to get backwards by assuming the
// LL/ML/OF order used elsewhere in the format).
type Dictionary struct {
	ID             uint32
	Huffman        *huff0.Table
	OffsetTable    *fse.Table
	MatchLenTable  *fse.Table
	LitLenTable    *fse.Table
	OffsetHistory  [3]uint32
	Content        []byte
}

// LoadDictionary parses a raw dictionary per spec §4.9: magic, a 4-byte LE
// id, a Huffman tree description, three FSE tables in OF/ML/LL order, three
// LE u32 repeat offsets, then the remaining bytes as dictionary content.
func LoadDictionary(raw []byte) (*Dictionary, error) {
	if len(raw) < 4 || [4]byte{raw[0], raw[1], raw[2], raw[3]} != dictionaryMagic {
		return nil, ErrBadDictionaryMagic
	}
	if len(raw) < 8 {
		return nil, fmt.Errorf("zstd: %w: dictionary id", ErrTruncatedHeader)
	}
	id := binary.LittleEndian.Uint32(raw[4:8])
	pos := 8

	huf, n, err := huff0.BuildDecoder(raw[pos:])
	if err != nil {
		return nil, fmt.Errorf("zstd: dictionary huffman table: %w", err)
	}
	pos += n

	ofTable, n, err := readDictFSETable(raw[pos:], ofMaxLog)
	if err != nil {
		return nil, fmt.Errorf("zstd: dictionary offset table: %w", err)
	}
	pos += n

	mlTable, n, err := readDictFSETable(raw[pos:], mlMaxLog)
	if err != nil {
		return nil, fmt.Errorf("zstd: dictionary match length table: %w", err)
	}
	pos += n

	llTable, n, err := readDictFSETable(raw[pos:], llMaxLog)
	if err != nil {
		return nil, fmt.Errorf("zstd: dictionary literal length table: %w", err)
	}
	pos += n

	if len(raw) < pos+12 {
		return nil, fmt.Errorf("zstd: %w: dictionary repeat offsets", ErrTruncatedHeader)
	}
	var hist [3]uint32
	hist[0] = binary.LittleEndian.Uint32(raw[pos : pos+4])
	hist[1] = binary.LittleEndian.Uint32(raw[pos+4 : pos+8])
	hist[2] = binary.LittleEndian.Uint32(raw[pos+8 : pos+12])
	pos += 12

	return &Dictionary{
		ID:            id,
		Huffman:       huf,
		OffsetTable:   ofTable,
		MatchLenTable: mlTable,
		LitLenTable:   llTable,
		OffsetHistory: hist,
		Content:       raw[pos:],
	}, nil
}

func readDictFSETable(src []byte, maxLog uint8) (*fse.Table, int, error) {
	fwd := bitio.NewReader(src)
	probs, accLog, err := fse.ReadProbabilities(fwd, maxLog)
	if err != nil {
		return nil, 0, err
	}
	table, err := fse.BuildDecodingTable(probs, accLog)
	if err != nil {
		return nil, 0, err
	}
	consumed := int((fwd.BitsRead() + 7) / 8)
	return table, consumed, nil
}
