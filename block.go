package zstd

import "fmt"

// BlockType identifies how a block's content is encoded.
type BlockType byte

const (
	BlockRaw BlockType = iota
	BlockRLE
	BlockCompressed
	blockReserved
)

func (t BlockType) String() string {
	switch t {
	case BlockRaw:
		return "Raw"
	case BlockRLE:
		return "RLE"
	case BlockCompressed:
		return "Compressed"
	default:
		return "Reserved"
	}
}

// maxBlockContentSize is the largest block_content_size the format allows
// (the 21-bit field itself could hold more) and the absolute maximum
// decompressed size of a single block.
const maxBlockContentSize = 128 * 1024

// BlockHeader is the parsed 3-byte header preceding every block.
type BlockHeader struct {
	Last            bool
	Type            BlockType
	ContentSize     uint32 // compressed payload size for Raw/Compressed, literal byte count for RLE
	DecompressedSize uint32
}

// ParseBlockHeader reads the fixed 3-byte block header from src.
func ParseBlockHeader(src []byte) (*BlockHeader, error) {
	if len(src) < 3 {
		return nil, fmt.Errorf("zstd: %w: block header", ErrTruncatedHeader)
	}
	b0, b1, b2 := src[0], src[1], src[2]
	last := b0&0x1 != 0
	blockType := BlockType((b0 >> 1) & 0x3)
	size := uint32(b0>>3) | uint32(b1)<<5 | uint32(b2)<<13

	h := &BlockHeader{Last: last, Type: blockType}
	switch blockType {
	case BlockRaw:
		h.ContentSize = size
		h.DecompressedSize = size
	case BlockRLE:
		h.ContentSize = 1
		h.DecompressedSize = size
	case BlockCompressed:
		h.ContentSize = size
		// DecompressedSize is unknown up front; filled in after decode.
	case blockReserved:
		return nil, ErrReservedBlockType
	}
	if size > maxBlockContentSize {
		return nil, ErrBlockTooLarge
	}
	return h, nil
}

// DecodeBlock decodes one block's content (the bytes immediately following
// its header, header.ContentSize long for Raw/Compressed, 1 byte for RLE)
// into buf, threading scratch's carried Huffman/FSE tables and offset
// history through Compressed blocks. Mirrors decompress_block /
// decode_block_content's dispatch. For Compressed blocks it checks that the
// literals payload fits the block and that the decoded literal count equals
// the literals header's regenerated size; the sequences section takes the
// rest of the block.
func DecodeBlock(h *BlockHeader, payload []byte, buf *WindowBuffer, scratch *DecodeScratch) error {
	switch h.Type {
	case BlockRaw:
		if uint32(len(payload)) < h.ContentSize {
			return fmt.Errorf("zstd: %w: raw block", ErrTruncatedStream)
		}
		buf.Push(payload[:h.ContentSize])
		return nil

	case BlockRLE:
		if len(payload) < 1 {
			return fmt.Errorf("zstd: %w: rle block", ErrTruncatedStream)
		}
		out := make([]byte, h.DecompressedSize)
		for i := range out {
			out[i] = payload[0]
		}
		buf.Push(out)
		return nil

	case BlockCompressed:
		return decodeCompressedBlock(payload, buf, scratch)

	default:
		return ErrReservedBlockType
	}
}

// decodeCompressedBlock parses the literals section, then (if any sequences
// are present) the sequences section, executes the sequences against the
// literals into buf; an empty sequences section means the literals section
// is itself the block's entire decompressed output.
func decodeCompressedBlock(src []byte, buf *WindowBuffer, scratch *DecodeScratch) error {
	litSec, err := ParseLiteralsHeader(src)
	if err != nil {
		return err
	}
	litPayloadEnd := litSec.HeaderSize
	switch litSec.Type {
	case LiteralsRaw:
		litPayloadEnd += int(litSec.RegeneratedSize)
	case LiteralsRLE:
		litPayloadEnd += 1
	default:
		litPayloadEnd += int(litSec.CompressedSize)
	}
	if litPayloadEnd > len(src) {
		return fmt.Errorf("zstd: %w: literals section", ErrTruncatedStream)
	}

	literals, newHuff, err := DecodeLiterals(litSec, src[litSec.HeaderSize:litPayloadEnd], scratch.Huffman)
	if err != nil {
		return err
	}
	if uint32(len(literals)) != litSec.RegeneratedSize {
		return fmt.Errorf("zstd: %w: decoded %d, header said %d", ErrLiteralCountMismatch, len(literals), litSec.RegeneratedSize)
	}
	scratch.Huffman = newHuff

	rest := src[litPayloadEnd:]
	seqHeader, seqHeaderLen, err := ParseSequencesHeader(rest)
	if err != nil {
		return err
	}

	if seqHeader.NumSequences == 0 {
		buf.Push(literals)
		return nil
	}

	seqs, err := DecodeSequences(seqHeader, &scratch.Seq, rest[seqHeaderLen:])
	if err != nil {
		return err
	}
	return ExecuteSequences(buf, literals, seqs, &scratch.Offsets)
}

// WriteBlockHeader serializes a 3-byte block header.
func WriteBlockHeader(last bool, t BlockType, size uint32) ([3]byte, error) {
	if size > maxBlockContentSize {
		return [3]byte{}, ErrBlockTooLarge
	}
	var b [3]byte
	v := size << 3
	if last {
		v |= 0x1
	}
	v |= uint32(t) << 1
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	return b, nil
}
