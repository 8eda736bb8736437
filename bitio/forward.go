// Package bitio provides the bit-level readers and writer that every entropy
// coder in this module is built on: a forward reader (LSB-first, used for the
// FSE probability header), a reverse reader (reads the trailing byte
// backward, used for every entropy-coded bitstream), and a matching writer.
package bitio

import "fmt"

// Reader consumes bits from index 0 upward, least-significant-bit first
// within each byte. It mirrors the forward bit reader used by the FSE
// probability header decode.
type Reader struct {
	source   []byte
	bitPos   uint64 // absolute bit offset of the next unread bit
	bitsLen  uint64
}

// NewReader wraps source for forward bit-at-a-time reads.
func NewReader(source []byte) *Reader {
	return &Reader{source: source, bitsLen: uint64(len(source)) * 8}
}

// BitsRead reports how many bits have been consumed so far.
func (r *Reader) BitsRead() uint64 {
	return r.bitPos
}

// BitsRemaining reports how many unread bits remain.
func (r *Reader) BitsRemaining() uint64 {
	if r.bitPos >= r.bitsLen {
		return 0
	}
	return r.bitsLen - r.bitPos
}

// GetBits returns the next n bits (0 <= n <= 64) as an integer, LSB of the
// stream becoming the LSB of the result, and advances the cursor by n.
func (r *Reader) GetBits(n uint8) (uint64, error) {
	if n == 0 {
		return 0, nil
	}
	if n > 64 {
		panic(fmt.Sprintf("bitio: forward reader asked for %d bits, max is 64", n))
	}
	if uint64(n) > r.BitsRemaining() {
		return 0, fmt.Errorf("bitio: need %d bits, have %d: %w", n, r.BitsRemaining(), ErrUnexpectedEOF)
	}

	var result uint64
	for i := uint8(0); i < n; i++ {
		byteIdx := (r.bitPos) / 8
		bitIdx := (r.bitPos) % 8
		bit := (r.source[byteIdx] >> bitIdx) & 1
		result |= uint64(bit) << i
		r.bitPos++
	}
	return result, nil
}

// ReturnBits rewinds the cursor by n bits, as if the last GetBits(n) never
// happened. Used by callers that need to peek-and-maybe-not-consume.
func (r *Reader) ReturnBits(n uint8) {
	if uint64(n) > r.bitPos {
		panic("bitio: ReturnBits would rewind before the start of the stream")
	}
	r.bitPos -= uint64(n)
}

// ErrUnexpectedEOF is returned when fewer bits remain than requested.
var ErrUnexpectedEOF = fmt.Errorf("bitio: unexpected end of bit stream")

// ForwardWriter appends bits from index 0 upward, least-significant-bit
// first within each byte, the exact inverse layout of Reader, used to build
// the bitstreams Reader parses (FSE probability headers) rather than the
// byte-reversed streams Writer produces for ReverseReader.
type ForwardWriter struct {
	out    []byte
	bitPos uint64
}

// NewForwardWriter returns an empty forward bit writer.
func NewForwardWriter() *ForwardWriter {
	return &ForwardWriter{}
}

// WriteBits appends the low n bits of v (0 <= n <= 64), LSB first.
func (w *ForwardWriter) WriteBits(v uint64, n uint8) {
	for i := uint8(0); i < n; i++ {
		byteIdx := w.bitPos / 8
		bitIdx := w.bitPos % 8
		for uint64(len(w.out)) <= byteIdx {
			w.out = append(w.out, 0)
		}
		bit := byte(v>>i) & 1
		w.out[byteIdx] |= bit << bitIdx
		w.bitPos++
	}
}

// Bytes returns the bytes written so far, zero-padded to a byte boundary.
func (w *ForwardWriter) Bytes() []byte { return w.out }

// BitsWritten reports the total number of bits written.
func (w *ForwardWriter) BitsWritten() uint64 { return w.bitPos }
