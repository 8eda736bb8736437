package zstd

import (
	"fmt"

	"github.com/zstdgo/zstd/huff0"
)

// LiteralsType identifies how a block's literals section is coded.
type LiteralsType byte

const (
	LiteralsRaw LiteralsType = iota
	LiteralsRLE
	LiteralsCompressed
	LiteralsTreeless
)

// LiteralsSection is the parsed literals-section header.
type LiteralsSection struct {
	Type            LiteralsType
	RegeneratedSize uint32
	CompressedSize  uint32 // valid only for Compressed/Treeless
	NumStreams      int    // 1 or 4, valid only for Compressed/Treeless
	HeaderSize      int
}

// ParseLiteralsHeader parses the 1-to-5-byte literals section header per the
// size-format table: Raw/RLE use a 1-bit-or-2-bit Size_Format selecting a
// 1/2/3-byte header with a 5/12/20-bit Regenerated_Size; Compressed/Treeless
// use a full 2-bit Size_Format selecting a 3/3/4/5-byte header, 1 or 4
// streams, and equal-width Regenerated_Size/Compressed_Size fields.
func ParseLiteralsHeader(src []byte) (*LiteralsSection, error) {
	if len(src) == 0 {
		return nil, fmt.Errorf("zstd: %w: literals header", ErrTruncatedHeader)
	}
	b0 := src[0]
	litType := LiteralsType(b0 & 0x3)
	sizeFormat := (b0 >> 2) & 0x3

	sec := &LiteralsSection{Type: litType}

	switch litType {
	case LiteralsRaw, LiteralsRLE:
		switch sizeFormat {
		case 0, 2:
			sec.HeaderSize = 1
			sec.RegeneratedSize = uint32(b0 >> 3)
		case 1:
			if len(src) < 2 {
				return nil, fmt.Errorf("zstd: %w: literals header", ErrTruncatedHeader)
			}
			sec.HeaderSize = 2
			sec.RegeneratedSize = uint32(b0>>4) | uint32(src[1])<<4
		case 3:
			if len(src) < 3 {
				return nil, fmt.Errorf("zstd: %w: literals header", ErrTruncatedHeader)
			}
			sec.HeaderSize = 3
			sec.RegeneratedSize = uint32(b0>>4) | uint32(src[1])<<4 | uint32(src[2])<<12
		}
		return sec, nil

	case LiteralsCompressed, LiteralsTreeless:
		if sizeFormat == 0 {
			sec.NumStreams = 1
		} else {
			sec.NumStreams = 4
		}
		switch sizeFormat {
		case 0, 1:
			if len(src) < 3 {
				return nil, fmt.Errorf("zstd: %w: literals header", ErrTruncatedHeader)
			}
			sec.HeaderSize = 3
			sec.RegeneratedSize = uint32(b0>>4) | uint32(src[1]&0x3F)<<4
			sec.CompressedSize = uint32(src[1]>>6) | uint32(src[2])<<2
		case 2:
			if len(src) < 4 {
				return nil, fmt.Errorf("zstd: %w: literals header", ErrTruncatedHeader)
			}
			sec.HeaderSize = 4
			sec.RegeneratedSize = uint32(b0>>4) | uint32(src[1])<<4 | uint32(src[2]&0x3)<<12
			sec.CompressedSize = uint32(src[2]>>2) | uint32(src[3])<<6
		case 3:
			if len(src) < 5 {
				return nil, fmt.Errorf("zstd: %w: literals header", ErrTruncatedHeader)
			}
			sec.HeaderSize = 5
			sec.RegeneratedSize = uint32(b0>>4) | uint32(src[1])<<4 | uint32(src[2]&0x3F)<<12
			sec.CompressedSize = uint32(src[2]>>6) | uint32(src[3])<<2 | uint32(src[4])<<10
		}
		return sec, nil
	}
	return nil, fmt.Errorf("zstd: unreachable literals type")
}

// jumpTableSize is the 6-byte table of 3 16-bit stream lengths preceding a
// 4-stream literals payload (the 4th stream's length is implied).
const jumpTableSize = 6

// DecodeLiterals decodes a literals section's payload (immediately following
// its header) given a table carried over from a prior Compressed block for
// Treeless reuse. Returns the decoded literals and, for Compressed sections,
// the new Huffman table so callers can thread it to the next Treeless block.
func DecodeLiterals(sec *LiteralsSection, payload []byte, priorTable *huff0.Table) ([]byte, *huff0.Table, error) {
	switch sec.Type {
	case LiteralsRaw:
		if uint32(len(payload)) < sec.RegeneratedSize {
			return nil, nil, fmt.Errorf("zstd: %w: raw literals", ErrTruncatedStream)
		}
		out := make([]byte, sec.RegeneratedSize)
		copy(out, payload[:sec.RegeneratedSize])
		return out, priorTable, nil

	case LiteralsRLE:
		if len(payload) < 1 {
			return nil, nil, fmt.Errorf("zstd: %w: rle literals", ErrTruncatedStream)
		}
		out := make([]byte, sec.RegeneratedSize)
		for i := range out {
			out[i] = payload[0]
		}
		return out, priorTable, nil

	case LiteralsCompressed, LiteralsTreeless:
		table := priorTable
		body := payload
		if sec.Type == LiteralsCompressed {
			t, n, err := huff0.BuildDecoder(payload)
			if err != nil {
				return nil, nil, fmt.Errorf("zstd: literals huffman table: %w", err)
			}
			table = t
			body = payload[n:]
		} else if table == nil {
			return nil, nil, ErrNoHuffmanTable
		}

		out := make([]byte, 0, sec.RegeneratedSize)
		if sec.NumStreams == 1 {
			var err error
			out, err = huff0.Decompress1X(table, body, out)
			if err != nil {
				return nil, nil, fmt.Errorf("zstd: literals stream: %w", err)
			}
			return out, table, nil
		}

		if len(body) < jumpTableSize {
			return nil, nil, fmt.Errorf("zstd: %w: jump table", ErrTruncatedJumpTable)
		}
		len1 := uint32(body[0]) | uint32(body[1])<<8
		len2 := uint32(body[2]) | uint32(body[3])<<8
		len3 := uint32(body[4]) | uint32(body[5])<<8
		rest := body[jumpTableSize:]
		total := uint32(len(rest))
		if len1+len2+len3 > total {
			return nil, nil, fmt.Errorf("zstd: %w: jump table exceeds payload", ErrTruncatedJumpTable)
		}
		len4 := total - len1 - len2 - len3
		var streams [4][]byte
		off := uint32(0)
		for i, l := range []uint32{len1, len2, len3, len4} {
			streams[i] = rest[off : off+l]
			off += l
		}
		var err error
		out, err = huff0.Decompress4X(table, streams, out)
		if err != nil {
			return nil, nil, fmt.Errorf("zstd: literals streams: %w", err)
		}
		return out, table, nil
	}
	return nil, nil, fmt.Errorf("zstd: unknown literals type %d", sec.Type)
}

// EncodeRawLiterals builds a Raw literals section (header + verbatim bytes).
func EncodeRawLiterals(data []byte) []byte {
	n := uint32(len(data))
	hdr := encodeLiteralsHeaderSmall(LiteralsRaw, n)
	return append(hdr, data...)
}

// EncodeRLELiterals builds an RLE literals section from a repeated byte.
func EncodeRLELiterals(b byte, count uint32) []byte {
	hdr := encodeLiteralsHeaderSmall(LiteralsRLE, count)
	return append(hdr, b)
}

// encodeLiteralsHeaderSmall picks the smallest Raw/RLE header width that fits
// size, matching ParseLiteralsHeader's decode.
func encodeLiteralsHeaderSmall(t LiteralsType, size uint32) []byte {
	switch {
	case size < (1 << 5):
		return []byte{byte(t) | byte(size)<<3}
	case size < (1 << 12):
		return []byte{byte(t) | (1 << 2) | byte(size<<4), byte(size >> 4)}
	default:
		return []byte{
			byte(t) | (3 << 2) | byte(size<<4),
			byte(size >> 4),
			byte(size >> 12),
		}
	}
}

// EncodeCompressedLiterals builds a Compressed (or Treeless, when treeless
// is set and no table description is emitted) literals section around
// already Huffman-coded stream(s).
func EncodeCompressedLiterals(treeless bool, tableDesc []byte, streams [][]byte, regeneratedSize uint32) ([]byte, error) {
	var body []byte
	if !treeless {
		body = append(body, tableDesc...)
	}
	if len(streams) == 4 {
		l1, l2, l3 := len(streams[0]), len(streams[1]), len(streams[2])
		if l1 > 0xFFFF || l2 > 0xFFFF || l3 > 0xFFFF {
			return nil, fmt.Errorf("zstd: literals stream too long for jump table")
		}
		jump := []byte{byte(l1), byte(l1 >> 8), byte(l2), byte(l2 >> 8), byte(l3), byte(l3 >> 8)}
		body = append(body, jump...)
		for _, s := range streams {
			body = append(body, s...)
		}
	} else {
		body = append(body, streams[0]...)
	}

	compressedSize := uint32(len(body))
	typ := LiteralsCompressed
	if treeless {
		typ = LiteralsTreeless
	}
	numStreams := 0
	if len(streams) == 4 {
		numStreams = 1
	}
	hdr, err := encodeCompressedLiteralsHeader(typ, regeneratedSize, compressedSize, numStreams)
	if err != nil {
		return nil, err
	}
	return append(hdr, body...), nil
}

// encodeCompressedLiteralsHeader picks the smallest header width (3/4/5
// bytes) that fits both sizes; sizeFormat bit0 additionally selects 1 vs 4
// streams when a 3-byte header is used.
func encodeCompressedLiteralsHeader(t LiteralsType, regSize, compSize uint32, sizeFormatLowBit int) (header []byte, err error) {
	fits := func(bits uint) bool {
		return regSize < (1<<bits) && compSize < (1<<bits)
	}
	switch {
	case fits(10):
		sf := byte(sizeFormatLowBit)
		b0 := byte(t) | sf<<2 | byte(regSize<<4)
		b1 := byte(regSize>>4) | byte(compSize<<6)
		b2 := byte(compSize >> 2)
		return []byte{b0, b1, b2}, nil
	case fits(14):
		b0 := byte(t) | 2<<2 | byte(regSize<<4)
		b1 := byte(regSize >> 4)
		b2 := byte(regSize>>12) | byte(compSize<<2)
		b3 := byte(compSize >> 6)
		return []byte{b0, b1, b2, b3}, nil
	case fits(18):
		b0 := byte(t) | 3<<2 | byte(regSize<<4)
		b1 := byte(regSize >> 4)
		b2 := byte(regSize>>12) | byte(compSize<<6)
		b3 := byte(compSize >> 2)
		b4 := byte(compSize >> 10)
		return []byte{b0, b1, b2, b3, b4}, nil
	}
	return nil, fmt.Errorf("zstd: literals section too large to header")
}
