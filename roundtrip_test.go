package zstd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTripEmpty(t *testing.T) {
	out, err := EncodeAll(nil)
	require.NoError(t, err)

	got, err := DecodeAll(out)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestRoundTripSmall(t *testing.T) {
	src := []byte("hello, zstd!")
	out, err := EncodeAll(src)
	require.NoError(t, err)

	got, err := DecodeAll(out)
	require.NoError(t, err)
	require.Equal(t, src, got)
}

func TestRoundTripRepetitive(t *testing.T) {
	src := bytes.Repeat([]byte("abcdefgh"), 10000)
	out, err := EncodeAll(src)
	require.NoError(t, err)
	require.Less(t, len(out), len(src), "highly repetitive input should compress")

	got, err := DecodeAll(out)
	require.NoError(t, err)
	require.Equal(t, src, got)
}

func TestRoundTripLargeVaried(t *testing.T) {
	var buf bytes.Buffer
	words := []string{"alpha", "beta", "gamma", "delta", "epsilon", "zstd", "frame", "block", "sequence"}
	for i := 0; i < 20000; i++ {
		buf.WriteString(words[i%len(words)])
		buf.WriteByte(byte('a' + i%26))
	}
	src := buf.Bytes()

	out, err := EncodeAll(src, WithEncoderWindowSize(1<<20))
	require.NoError(t, err)

	got, err := DecodeAll(out)
	require.NoError(t, err)
	require.Equal(t, src, got)
}

func TestRoundTripNoChecksum(t *testing.T) {
	src := []byte("no checksum appended to this frame")
	out, err := EncodeAll(src, WithEncoderChecksum(false))
	require.NoError(t, err)

	got, err := DecodeAll(out)
	require.NoError(t, err)
	require.Equal(t, src, got)
}

func TestRoundTripStreamingWriterReader(t *testing.T) {
	src := bytes.Repeat([]byte("streaming round trip content "), 500)

	var compressed bytes.Buffer
	enc, err := NewEncoder(&compressed)
	require.NoError(t, err)
	_, err = enc.Write(src[:len(src)/2])
	require.NoError(t, err)
	_, err = enc.Write(src[len(src)/2:])
	require.NoError(t, err)
	require.NoError(t, enc.Close())
	require.NoError(t, enc.Close()) // Close is idempotent

	dec, err := NewDecoder()
	require.NoError(t, err)
	require.NoError(t, dec.Reset(bytes.NewReader(compressed.Bytes())))

	got, err := dec.Collect()
	require.NoError(t, err)
	require.Equal(t, src, got)
}

func TestEncoderWriteAfterCloseErrors(t *testing.T) {
	var out bytes.Buffer
	enc, err := NewEncoder(&out)
	require.NoError(t, err)
	require.NoError(t, enc.Close())

	_, err = enc.Write([]byte("too late"))
	require.ErrorIs(t, err, ErrEncoderClosed)
}
