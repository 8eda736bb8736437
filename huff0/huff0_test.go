package huff0

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildAndRoundTrip(t *testing.T, data []byte) []byte {
	t.Helper()
	var counts [256]int32
	for _, b := range data {
		counts[b]++
	}
	table, err := BuildEncoder(counts[:])
	require.NoError(t, err)
	desc, err := table.WeightHeader()
	require.NoError(t, err)
	entries := table.BuildEncodeTable()

	stream, err := Compress1X(entries, data)
	require.NoError(t, err)

	decTable, n, err := BuildDecoder(desc)
	require.NoError(t, err)
	require.Equal(t, len(desc), n)

	out, err := Decompress1X(decTable, stream, nil)
	require.NoError(t, err)
	return out
}

func TestHuffmanRoundTripVariedAlphabet(t *testing.T) {
	data := []byte("mississippi river runs through the mississippi delta")
	got := buildAndRoundTrip(t, data)
	require.Equal(t, data, got)
}

func TestHuffmanRoundTripSingleSymbol(t *testing.T) {
	data := bytes.Repeat([]byte{'q'}, 50)
	got := buildAndRoundTrip(t, data)
	require.Equal(t, data, got)
}

func TestHuffmanRoundTripTwoSymbols(t *testing.T) {
	data := bytes.Repeat([]byte{'a', 'b'}, 30)
	got := buildAndRoundTrip(t, data)
	require.Equal(t, data, got)
}

func TestHuffmanCompress4XRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog "), 50)

	var counts [256]int32
	for _, b := range data {
		counts[b]++
	}
	table, err := BuildEncoder(counts[:])
	require.NoError(t, err)
	entries := table.BuildEncodeTable()

	streams, err := Compress4X(entries, data)
	require.NoError(t, err)

	desc, err := table.WeightHeader()
	require.NoError(t, err)
	decTable, _, err := BuildDecoder(desc)
	require.NoError(t, err)

	out, err := Decompress4X(decTable, streams, nil)
	require.NoError(t, err)
	require.Equal(t, data, out)
}
