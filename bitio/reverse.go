package bitio

// ReverseReader reads bits starting from the trailing byte of source and
// moving backward, most-significant-bit first within each byte, used for
// every Zstd entropy-coded bitstream (FSE sequence states, Huffman streams).
//
// Contract: BitsRemaining() == 8*len(source) - bitsConsumed, as a signed
// quantity that is allowed to go negative once the stream is logically
// exhausted; reads past the end yield zero bits, and callers use the sign of
// BitsRemaining (not an error) to detect exhaustion.
type ReverseReader struct {
	source    []byte
	bitsTotal uint64
	bitPos    uint64 // bits consumed so far, counted from the end of source
}

// NewReverseReader wraps source for reverse bit-at-a-time reads. Source must
// be the full entropy-coded stream; callers are expected to have already
// located its boundaries (e.g. via a Huffman jump table).
func NewReverseReader(source []byte) *ReverseReader {
	return &ReverseReader{
		source:    source,
		bitsTotal: uint64(len(source)) * 8,
	}
}

// BitsRemaining returns 8*len(source) - bitsConsumed, signed.
func (r *ReverseReader) BitsRemaining() int64 {
	return int64(r.bitsTotal) - int64(r.bitPos)
}

// bitAt returns the k-th bit in consumption order (0 once k is past the end
// of the stream): byte len-1 MSB-first, then byte len-2 MSB-first, etc.
func (r *ReverseReader) bitAt(k uint64) uint64 {
	if k >= r.bitsTotal {
		return 0
	}
	byteFromEnd := k / 8
	idx := len(r.source) - 1 - int(byteFromEnd)
	shift := 7 - uint(k%8)
	return uint64((r.source[idx] >> shift) & 1)
}

// PeekBits returns the next n bits without consuming them. The first bit in
// consumption order becomes the most significant bit of the result.
func (r *ReverseReader) PeekBits(n uint8) uint64 {
	var v uint64
	for i := uint8(0); i < n; i++ {
		v = (v << 1) | r.bitAt(r.bitPos+uint64(i))
	}
	return v
}

// GetBits peeks then consumes n bits (0 <= n <= 64).
func (r *ReverseReader) GetBits(n uint8) (uint64, error) {
	if n > 64 {
		panic("bitio: reverse reader asked for more than 64 bits at once")
	}
	v := r.PeekBits(n)
	r.bitPos += uint64(n)
	return v, nil
}

// SkipPaddingSentinel consumes trailing zero bits up to and including the
// first 1 bit found, as required before reading any entropy-coded stream.
// Returns the number of bits skipped (including the sentinel); callers
// should fail with ErrExtraPadding if this exceeds 8.
func (r *ReverseReader) SkipPaddingSentinel() (int, error) {
	skipped := 0
	for {
		v, err := r.GetBits(1)
		if err != nil {
			return skipped, err
		}
		skipped++
		if v == 1 || skipped > 8 {
			break
		}
	}
	return skipped, nil
}
