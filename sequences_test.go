package zstd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNumSequencesRoundTrip(t *testing.T) {
	for _, n := range []uint32{0, 1, 127, 128, 254, 255, 256, 0x7F00 + 1000} {
		raw := encodeNumSequences(n)
		h, consumed, err := ParseSequencesHeader(append(raw, 0xAB))
		require.NoError(t, err)
		require.Equal(t, n, h.NumSequences)
		want := len(raw)
		if n > 0 {
			want++ // the compression-modes byte follows a nonzero count
		}
		require.Equal(t, want, consumed)
	}
}

func TestResolveOffsetNewOffset(t *testing.T) {
	hist := [3]uint32{1, 4, 8}
	actual, err := ResolveOffset(7, 3, &hist) // ofValue=7, litLen>0 -> actual = 7-3 = 4
	require.NoError(t, err)
	require.Equal(t, uint32(4), actual)
	require.Equal(t, [3]uint32{4, 1, 4}, hist)
}

func TestResolveOffsetRepeat1(t *testing.T) {
	hist := [3]uint32{10, 20, 30}
	actual, err := ResolveOffset(1, 5, &hist)
	require.NoError(t, err)
	require.Equal(t, uint32(10), actual)
	require.Equal(t, [3]uint32{10, 20, 30}, hist) // repeat-1 with litLen>0 leaves history untouched
}

func TestResolveOffsetZeroLitLenSpecialCase(t *testing.T) {
	hist := [3]uint32{5, 20, 30}
	actual, err := ResolveOffset(3, 0, &hist)
	require.NoError(t, err)
	require.Equal(t, uint32(4), actual) // hist[0]-1
}

func TestEncodeDecodeSequencesPredefinedRoundTrip(t *testing.T) {
	seqs := []Sequence{
		{LL: 3, ML: 5, OF: 7},
		{LL: 0, ML: 20, OF: 12},
		{LL: 10, ML: 4, OF: 100},
	}
	encoded, err := EncodeSequencesPredefined(seqs)
	require.NoError(t, err)

	header, consumed, err := ParseSequencesHeader(encoded)
	require.NoError(t, err)
	require.Equal(t, uint32(len(seqs)), header.NumSequences)

	var st SequenceTables
	decoded, err := DecodeSequences(header, &st, encoded[consumed:])
	require.NoError(t, err)
	require.Equal(t, seqs, decoded)
}

func TestEncodeDecodeSequencesEmpty(t *testing.T) {
	encoded, err := EncodeSequencesPredefined(nil)
	require.NoError(t, err)
	header, _, err := ParseSequencesHeader(encoded)
	require.NoError(t, err)
	require.Equal(t, uint32(0), header.NumSequences)
}
