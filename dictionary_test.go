package zstd

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrainDictionaryLoadRoundTrip(t *testing.T) {
	samples := [][]byte{
		bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 40),
		bytes.Repeat([]byte("the quick brown fox sleeps under the warm sun. "), 40),
		bytes.Repeat([]byte("a lazy dog and a quick fox are friends. "), 40),
	}

	blob, err := TrainDictionary(context.Background(), samples, 7, 1024)
	require.NoError(t, err)
	require.NotEmpty(t, blob)
	require.Equal(t, dictionaryMagic[:], blob[:4])

	dict, err := LoadDictionary(blob)
	require.NoError(t, err)
	require.Equal(t, uint32(7), dict.ID)
	require.NotNil(t, dict.Huffman)
	require.NotNil(t, dict.OffsetTable)
	require.NotNil(t, dict.MatchLenTable)
	require.NotNil(t, dict.LitLenTable)
	require.Equal(t, [3]uint32{1, 4, 8}, dict.OffsetHistory)
	require.NotEmpty(t, dict.Content)
}

func TestLoadDictionaryBadMagic(t *testing.T) {
	_, err := LoadDictionary([]byte{0, 1, 2, 3, 4, 5, 6, 7})
	require.ErrorIs(t, err, ErrBadDictionaryMagic)
}

func TestTrainDictionaryNoSamples(t *testing.T) {
	_, err := TrainDictionary(context.Background(), nil, 1, 1024)
	require.Error(t, err)
}
