package huff0

import (
	"fmt"

	"github.com/zstdgo/zstd/bitio"
)

// Decoder decodes symbols against a built Table from a reverse bitstream.
type Decoder struct {
	table *Table
	state uint32
}

// NewDecoder binds a decoder to a table.
func NewDecoder(t *Table) *Decoder {
	return &Decoder{table: t}
}

// InitStream skips a stream's zero padding and its 1-bit sentinel, failing
// if more than 8 bits are skipped.
func InitStream(r *bitio.ReverseReader) error {
	skipped, err := r.SkipPaddingSentinel()
	if err != nil {
		return err
	}
	if skipped > 8 {
		return fmt.Errorf("huff0: %w: skipped %d bits", errExtraPadding, skipped)
	}
	return nil
}

var errExtraPadding = fmt.Errorf("more than 8 bits of padding")

// InitState seeds the decoder's state from the first MaxNumBits bits.
func (d *Decoder) InitState(r *bitio.ReverseReader) error {
	v, err := r.GetBits(d.table.MaxNumBits)
	if err != nil {
		return err
	}
	d.state = uint32(v)
	return nil
}

// DecodeSymbol returns the symbol for the current state.
func (d *Decoder) DecodeSymbol() uint8 {
	return d.table.Entries[d.state].Symbol
}

// NextState reads the current entry's num_bits and slides them into the
// state window: the state is shifted left by NumBits, the freshly read bits
// fill the low NumBits bits, and the top NumBits bits (the code just
// decoded) drop out of the MaxNumBits-wide window. This is not a flat
// replacement because NumBits is usually less than MaxNumBits, and the
// bits that move up still index the next table lookup.
func (d *Decoder) NextState(r *bitio.ReverseReader) error {
	e := d.table.Entries[d.state]
	v, err := r.GetBits(e.NumBits)
	if err != nil {
		return err
	}
	mask := uint32(1)<<d.table.MaxNumBits - 1
	d.state = ((d.state << e.NumBits) | uint32(v)) & mask
	return nil
}

// Decompress1X decodes a single Huffman stream into dst, stopping once
// bits_remaining <= -MaxNumBits (the stream's defined end condition).
func Decompress1X(t *Table, stream []byte, dst []byte) ([]byte, error) {
	if err := validateStreamNonEmpty(stream); err != nil {
		return dst, err
	}
	r := bitio.NewReverseReader(stream)
	if err := InitStream(r); err != nil {
		return dst, err
	}
	dec := NewDecoder(t)
	if err := dec.InitState(r); err != nil {
		return dst, err
	}
	limit := -int64(t.MaxNumBits)
	for r.BitsRemaining() > limit {
		dst = append(dst, dec.DecodeSymbol())
		if err := dec.NextState(r); err != nil {
			return dst, err
		}
	}
	if r.BitsRemaining() != limit {
		return dst, fmt.Errorf("huff0: bitstream read mismatch: at %d, expected %d", r.BitsRemaining(), limit)
	}
	return dst, nil
}

// Decompress4X decodes the four interleaved streams produced by a literals
// jump table, appending their output in order to dst.
func Decompress4X(t *Table, streams [4][]byte, dst []byte) ([]byte, error) {
	var err error
	for _, s := range streams {
		dst, err = Decompress1X(t, s, dst)
		if err != nil {
			return dst, err
		}
	}
	return dst, nil
}

func validateStreamNonEmpty(stream []byte) error {
	if len(stream) == 0 {
		return fmt.Errorf("huff0: empty stream")
	}
	return nil
}
