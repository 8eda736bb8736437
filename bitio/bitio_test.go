package bitio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestForwardReaderWriterRoundTrip(t *testing.T) {
	w := NewForwardWriter()
	w.WriteBits(0x3, 2)
	w.WriteBits(0x15, 5)
	w.WriteBits(0x1, 1)
	w.WriteBits(0xAB, 8)

	r := NewReader(w.Bytes())
	v, err := r.GetBits(2)
	require.NoError(t, err)
	require.Equal(t, uint64(0x3), v)

	v, err = r.GetBits(5)
	require.NoError(t, err)
	require.Equal(t, uint64(0x15), v)

	v, err = r.GetBits(1)
	require.NoError(t, err)
	require.Equal(t, uint64(0x1), v)

	v, err = r.GetBits(8)
	require.NoError(t, err)
	require.Equal(t, uint64(0xAB), v)
}

func TestForwardReaderReturnBits(t *testing.T) {
	r := NewReader([]byte{0xFF})
	_, err := r.GetBits(4)
	require.NoError(t, err)
	r.ReturnBits(4)
	require.Equal(t, uint64(0), r.BitsRead())
}

func TestForwardReaderUnexpectedEOF(t *testing.T) {
	r := NewReader([]byte{0x01})
	_, err := r.GetBits(9)
	require.ErrorIs(t, err, ErrUnexpectedEOF)
}

func TestWriterReverseReaderRoundTrip(t *testing.T) {
	w := NewWriter()
	w.WriteBits(0x3, 2)
	w.WriteBits(0x15, 5)
	w.WriteBits(0x1, 1)
	dumped, err := w.Dump()
	require.NoError(t, err)

	r := NewReverseReader(dumped)
	v, err := r.GetBits(2)
	require.NoError(t, err)
	require.Equal(t, uint64(0x3), v)
	v, err = r.GetBits(5)
	require.NoError(t, err)
	require.Equal(t, uint64(0x15), v)
	v, err = r.GetBits(1)
	require.NoError(t, err)
	require.Equal(t, uint64(0x1), v)
}

func TestWriterNotByteAlignedErrors(t *testing.T) {
	w := NewWriter()
	w.WriteBits(0x1, 3)
	_, err := w.Dump()
	require.ErrorIs(t, err, ErrNotByteAligned)
}

func TestPadToByteWithSentinel(t *testing.T) {
	// PadToByteWithSentinel prefixes a stream (called on a fresh writer,
	// before any payload bits): on a fresh writer it writes seven zero bits
	// and the sentinel, which SkipPaddingSentinel consumes as 8 bits.
	w := NewWriter()
	w.PadToByteWithSentinel()
	w.WriteBits(0xAB, 8)
	require.Equal(t, 0, w.BitLength()%8)
	dumped, err := w.Dump()
	require.NoError(t, err)

	r := NewReverseReader(dumped)
	skipped, err := r.SkipPaddingSentinel()
	require.NoError(t, err)
	require.Equal(t, 8, skipped)
	v, err := r.GetBits(8)
	require.NoError(t, err)
	require.Equal(t, uint64(0xAB), v)
}

func TestReverseReaderBitsRemainingGoesNegative(t *testing.T) {
	r := NewReverseReader([]byte{0xFF})
	_, _ = r.GetBits(8)
	require.Equal(t, int64(0), r.BitsRemaining())
	_, _ = r.GetBits(4)
	require.Negative(t, r.BitsRemaining())
}
