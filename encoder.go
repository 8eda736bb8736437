package zstd

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/zstdgo/zstd/huff0"
)

// maxBlockUncompressedBudget bounds how much decompressed content a single
// block produced by this Encoder carries, kept comfortably under
// maxBlockContentSize so a pathological post-compression expansion of the
// literals section still fits the 21-bit block_content_size field.
const maxBlockUncompressedBudget = 96 * 1024

// huffmanMinLiterals is the smallest literals run this Encoder bothers
// Huffman-coding; shorter runs are cheaper as Raw once the table description
// overhead is accounted for.
const huffmanMinLiterals = 64

// fourStreamThreshold is the literals run length at or above which Compress4X's
// parallelizable 4-stream layout is used instead of a single stream.
const fourStreamThreshold = 1024

// Encoder compresses a byte stream into Zstandard frames, buffering all
// written bytes into a single frame flushed on Close, the way the teacher's
// writer accumulates into one managed buffer before handing off to its
// underlying sink.
type Encoder struct {
	opts   encoderOptions
	w      io.Writer
	buf    bytes.Buffer
	closed atomic.Bool
}

// NewEncoder builds an Encoder writing compressed frames to w.
func NewEncoder(w io.Writer, opts ...EOption) (*Encoder, error) {
	o := defaultEncoderOptions()
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}
	return &Encoder{opts: o, w: w}, nil
}

// Write buffers p for inclusion in the frame emitted by Close.
func (e *Encoder) Write(p []byte) (int, error) {
	if e.closed.Load() {
		return 0, ErrEncoderClosed
	}
	return e.buf.Write(p)
}

// Close compresses everything written so far into one frame and flushes it
// to the underlying writer. A compression failure is returned before
// anything is written; otherwise the write's error is returned, passed
// through multierr the way the teacher reports Close-time failures.
func (e *Encoder) Close() error {
	if e.closed.Swap(true) {
		return nil
	}
	frame, err := e.compressFrame(e.buf.Bytes())
	if err != nil {
		return err
	}
	_, werr := e.w.Write(frame)
	return multierr.Combine(err, werr)
}

// EncodeAll compresses src into a single returned frame, a convenience
// wrapper around NewEncoder/Write/Close for callers holding the whole input
// in memory already.
func EncodeAll(src []byte, opts ...EOption) ([]byte, error) {
	var out bytes.Buffer
	e, err := NewEncoder(&out, opts...)
	if err != nil {
		return nil, err
	}
	if _, err := e.Write(src); err != nil {
		return nil, err
	}
	if err := e.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// Compress is an alias for EncodeAll kept for callers used to the teacher's
// one-shot naming.
func Compress(src []byte, opts ...EOption) ([]byte, error) {
	return EncodeAll(src, opts...)
}

func (e *Encoder) compressFrame(src []byte) ([]byte, error) {
	e.opts.logger.Debug("compressing frame", zap.Int("size", len(src)), zap.Uint64("window_size", e.opts.windowSize))

	windowLog := windowLogFor(e.opts.windowSize)
	var dictID uint32
	if e.opts.dictionary != nil {
		dictID = e.opts.dictionary.ID
	}
	out := WriteFrameHeader(uint64(len(src)), true, windowLog, dictID, e.opts.checksum)

	events, err := e.matchEvents(src)
	if err != nil {
		return nil, fmt.Errorf("zstd: match generation: %w", err)
	}

	blocks, err := groupIntoBlocks(events)
	if err != nil {
		return nil, err
	}
	if len(blocks) == 0 {
		blocks = [][]MatchEvent{nil}
	}

	for i, evs := range blocks {
		content, err := encodeBlockContent(evs)
		if err != nil {
			return nil, err
		}
		if len(content) > maxBlockContentSize {
			return nil, ErrBlockTooLarge
		}
		hdr, err := WriteBlockHeader(i == len(blocks)-1, BlockCompressed, uint32(len(content)))
		if err != nil {
			return nil, err
		}
		out = append(out, hdr[:]...)
		out = append(out, content...)
	}

	if e.opts.checksum {
		sum := xxhash.Sum64(src)
		var trailer [4]byte
		binary.LittleEndian.PutUint32(trailer[:], uint32(sum))
		out = append(out, trailer[:]...)
	}

	return out, nil
}

// matchEvents runs the LZ match generator over the whole frame content
// through fastcdc-go's content-defined chunking.
func (e *Encoder) matchEvents(src []byte) ([]MatchEvent, error) {
	m := NewMatchGenerator(int(e.opts.windowSize))
	return FeedChunked(m, src)
}

// groupIntoBlocks splits a frame's match events across one or more blocks,
// each bounded by maxBlockUncompressedBudget decompressed bytes. Only the
// very last event of the very last block can be a pure-literals run (the
// match generator only emits one, at Flush), so splitting never has to
// special-case a mid-stream literals-only event.
func groupIntoBlocks(events []MatchEvent) ([][]MatchEvent, error) {
	var blocks [][]MatchEvent
	var cur []MatchEvent
	budget := 0
	for _, ev := range events {
		size := len(ev.Literals) + ev.MatchLen
		if budget > 0 && budget+size > maxBlockUncompressedBudget {
			blocks = append(blocks, cur)
			cur = nil
			budget = 0
		}
		cur = append(cur, ev)
		budget += size
	}
	if len(cur) > 0 {
		blocks = append(blocks, cur)
	}
	return blocks, nil
}

// encodeBlockContent builds one Compressed block's body (literals section
// followed by a sequences section) from its events, mirroring
// decodeCompressedBlock's inverse: literals accumulate across every event in
// order, and every event with a nonzero match length contributes one
// Sequence whose literal length is that event's own literal run.
func encodeBlockContent(events []MatchEvent) ([]byte, error) {
	var literals []byte
	var seqs []Sequence
	for _, ev := range events {
		literals = append(literals, ev.Literals...)
		if ev.MatchLen > 0 {
			// Always encode a fresh offset (never a repeat-offset code);
			// the decoder's ResolveOffset still resolves this correctly
			// since litLen>0 and litLen==0 both fall through to the same
			// "new offset" branch for any ofValue outside {1,2,3}, at the
			// cost of forgoing the repeat-offset size optimization.
			seqs = append(seqs, Sequence{
				LL: uint32(len(ev.Literals)),
				ML: uint32(ev.MatchLen),
				OF: uint32(ev.Offset) + 3,
			})
		}
	}

	litSection, err := encodeLiteralsSection(literals)
	if err != nil {
		return nil, err
	}

	if len(seqs) == 0 {
		return append(litSection, encodeNumSequences(0)...), nil
	}
	seqSection, err := EncodeSequencesPredefined(seqs)
	if err != nil {
		return nil, err
	}
	return append(litSection, seqSection...), nil
}

// encodeLiteralsSection picks the encoding for a block's concatenated
// literal bytes: RLE when every byte is the same, Huffman-Compressed when
// there are at least huffmanMinLiterals bytes and tryHuffmanLiterals
// succeeds, and Raw otherwise, favoring simplicity over squeezing out the
// last byte the way the reference's "fastest" strategy does.
func encodeLiteralsSection(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return EncodeRawLiterals(nil), nil
	}
	if allSameByte(data) {
		return EncodeRLELiterals(data[0], uint32(len(data))), nil
	}
	if len(data) >= huffmanMinLiterals {
		if sec, ok, err := tryHuffmanLiterals(data); err != nil {
			return nil, err
		} else if ok {
			return sec, nil
		}
	}
	return EncodeRawLiterals(data), nil
}

func allSameByte(data []byte) bool {
	for _, b := range data[1:] {
		if b != data[0] {
			return false
		}
	}
	return true
}

// tryHuffmanLiterals attempts a Huffman-compressed literals section,
// returning ok=false (not an error) when the alphabet is too large for the
// direct weight header this package supports.
func tryHuffmanLiterals(data []byte) ([]byte, bool, error) {
	var counts [256]int32
	for _, b := range data {
		counts[b]++
	}
	table, err := huff0.BuildEncoder(counts[:])
	if err != nil {
		return nil, false, err
	}
	tableDesc, err := table.WeightHeader()
	if err != nil {
		return nil, false, nil
	}
	entries := table.BuildEncodeTable()

	if len(data) >= fourStreamThreshold {
		streams, err := huff0.Compress4X(entries, data)
		if err != nil {
			return nil, false, err
		}
		sec, err := EncodeCompressedLiterals(false, tableDesc, streams[:], uint32(len(data)))
		if err != nil {
			return nil, false, err
		}
		return sec, true, nil
	}

	stream, err := huff0.Compress1X(entries, data)
	if err != nil {
		return nil, false, err
	}
	sec, err := EncodeCompressedLiterals(false, tableDesc, [][]byte{stream}, uint32(len(data)))
	if err != nil {
		return nil, false, err
	}
	return sec, true, nil
}

// windowLogFor returns the smallest window log whose size is at least size.
func windowLogFor(size uint64) uint {
	log := uint(10)
	for windowLogToSize(log) < size {
		log++
	}
	return log
}
