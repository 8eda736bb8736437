package zstd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFrameHeaderBadMagic(t *testing.T) {
	_, _, err := ParseFrameHeader([]byte{0, 0, 0, 0, 0})
	require.ErrorIs(t, err, ErrBadMagic)
}

func TestParseFrameHeaderSkippable(t *testing.T) {
	src := []byte{0x50, 0x2A, 0x4D, 0x18, 0x03, 0x00, 0x00, 0x00, 0xAA, 0xBB, 0xCC}
	_, _, err := ParseFrameHeader(src)
	skip, ok := AsSkipFrame(err)
	require.True(t, ok)
	require.Equal(t, uint32(3), skip.Length)
}

func TestWriteParseFrameHeaderRoundTrip(t *testing.T) {
	cases := []struct {
		name       string
		size       uint64
		known      bool
		windowLog  uint
		dictID     uint32
		checksum   bool
	}{
		{"tiny-single-segment", 10, true, 10, 0, false},
		{"with-checksum", 5000, true, 16, 0, true},
		{"with-dict", 70000, true, 20, 42, true},
		{"unknown-size", 0, false, 20, 0, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			raw := WriteFrameHeader(c.size, c.known, c.windowLog, c.dictID, c.checksum)
			h, n, err := ParseFrameHeader(raw)
			require.NoError(t, err)
			require.Equal(t, len(raw), n)
			require.Equal(t, c.checksum, h.HasChecksum)
			require.Equal(t, c.dictID, h.DictionaryID)
			if c.known {
				require.True(t, h.HasContentSize)
				require.Equal(t, c.size, h.FrameContentSize)
			}
		})
	}
}

func TestFrameHeaderReservedBit(t *testing.T) {
	raw := WriteFrameHeader(10, true, 10, 0, false)
	raw[4] |= 0x08
	_, _, err := ParseFrameHeader(raw)
	require.ErrorIs(t, err, ErrReservedBit)
}
