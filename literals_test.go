package zstd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zstdgo/zstd/huff0"
)

func TestLiteralsRawRoundTrip(t *testing.T) {
	data := []byte("hello, world! this is a raw literals payload")
	sec := EncodeRawLiterals(data)

	hdr, err := ParseLiteralsHeader(sec)
	require.NoError(t, err)
	require.Equal(t, LiteralsRaw, hdr.Type)
	require.Equal(t, uint32(len(data)), hdr.RegeneratedSize)

	out, _, err := DecodeLiterals(hdr, sec[hdr.HeaderSize:], nil)
	require.NoError(t, err)
	require.Equal(t, data, out)
}

func TestLiteralsRawLargeSize(t *testing.T) {
	data := make([]byte, 5000)
	for i := range data {
		data[i] = byte(i)
	}
	sec := EncodeRawLiterals(data)
	hdr, err := ParseLiteralsHeader(sec)
	require.NoError(t, err)
	require.Equal(t, 3, hdr.HeaderSize)
	out, _, err := DecodeLiterals(hdr, sec[hdr.HeaderSize:], nil)
	require.NoError(t, err)
	require.Equal(t, data, out)
}

func TestLiteralsRLERoundTrip(t *testing.T) {
	sec := EncodeRLELiterals('x', 4096)
	hdr, err := ParseLiteralsHeader(sec)
	require.NoError(t, err)
	require.Equal(t, LiteralsRLE, hdr.Type)
	require.Equal(t, uint32(4096), hdr.RegeneratedSize)

	out, _, err := DecodeLiterals(hdr, sec[hdr.HeaderSize:], nil)
	require.NoError(t, err)
	require.Equal(t, bytes.Repeat([]byte{'x'}, 4096), out)
}

func TestLiteralsCompressed1XRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog "), 10)

	var counts [256]int32
	for _, b := range data {
		counts[b]++
	}
	table, err := huff0.BuildEncoder(counts[:])
	require.NoError(t, err)
	tableDesc, err := table.WeightHeader()
	require.NoError(t, err)
	entries := table.BuildEncodeTable()

	stream, err := huff0.Compress1X(entries, data)
	require.NoError(t, err)

	sec, err := EncodeCompressedLiterals(false, tableDesc, [][]byte{stream}, uint32(len(data)))
	require.NoError(t, err)

	hdr, err := ParseLiteralsHeader(sec)
	require.NoError(t, err)
	require.Equal(t, LiteralsCompressed, hdr.Type)
	require.Equal(t, uint32(len(data)), hdr.RegeneratedSize)

	out, _, err := DecodeLiterals(hdr, sec[hdr.HeaderSize:], nil)
	require.NoError(t, err)
	require.Equal(t, data, out)
}

func TestLiteralsHeaderTruncated(t *testing.T) {
	_, err := ParseLiteralsHeader(nil)
	require.ErrorIs(t, err, ErrTruncatedHeader)
}
