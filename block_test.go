package zstd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlockHeaderRoundTrip(t *testing.T) {
	hdr, err := WriteBlockHeader(true, BlockRLE, 12345)
	require.NoError(t, err)
	parsed, err := ParseBlockHeader(hdr[:])
	require.NoError(t, err)
	require.True(t, parsed.Last)
	require.Equal(t, BlockRLE, parsed.Type)
	require.Equal(t, uint32(12345), parsed.DecompressedSize)
}

func TestBlockHeaderTooLarge(t *testing.T) {
	_, err := WriteBlockHeader(false, BlockRaw, maxBlockContentSize+1)
	require.ErrorIs(t, err, ErrBlockTooLarge)
}

func TestDecodeBlockRaw(t *testing.T) {
	buf := NewWindowBuffer(1024)
	hdr := &BlockHeader{Last: true, Type: BlockRaw, ContentSize: 5, DecompressedSize: 5}
	require.NoError(t, DecodeBlock(hdr, []byte("hello"), buf, NewDecodeScratch()))
	require.Equal(t, []byte("hello"), buf.DrainAll())
}

func TestDecodeBlockRLE(t *testing.T) {
	buf := NewWindowBuffer(1024)
	hdr := &BlockHeader{Last: true, Type: BlockRLE, ContentSize: 1, DecompressedSize: 4}
	require.NoError(t, DecodeBlock(hdr, []byte{'z'}, buf, NewDecodeScratch()))
	require.Equal(t, []byte("zzzz"), buf.DrainAll())
}

func TestDecodeBlockReservedType(t *testing.T) {
	_, err := ParseBlockHeader([]byte{0x1 | byte(blockReserved)<<1, 0, 0})
	require.ErrorIs(t, err, ErrReservedBlockType)
}
