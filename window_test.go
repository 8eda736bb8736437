package zstd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWindowBufferOverlappingRepeat(t *testing.T) {
	b := NewWindowBuffer(1024)
	b.Push([]byte("ab"))
	require.NoError(t, b.Repeat(2, 7)) // offset < matchLength: self-overlap "ababababa"
	require.Equal(t, []byte("abababababa")[:9], b.DrainAll())
}

func TestWindowBufferRepeatPastStartErrors(t *testing.T) {
	b := NewWindowBuffer(1024)
	b.Push([]byte("ab"))
	err := b.Repeat(10, 3)
	require.ErrorIs(t, err, ErrNoDictionary)
}

func TestWindowBufferRepeatFromDictionary(t *testing.T) {
	b := NewWindowBuffer(1024)
	b.SetDictionaryContent([]byte("0123456789"))
	b.Push([]byte("ab"))
	require.NoError(t, b.Repeat(5, 3)) // 3 bytes starting 5 back: dict tail "789" then "ab" -> want "789"
	require.Equal(t, []byte("ab789"), b.DrainAll())
}

func TestExecuteSequencesBasic(t *testing.T) {
	b := NewWindowBuffer(1024)
	hist := NewOffsetHistory()
	literals := []byte("helloworld")
	seqs := []Sequence{
		{LL: 5, ML: 3, OF: 5 + 3}, // "hello" then copy "hel" (offset 5 back -> new offset code path)
	}
	require.NoError(t, ExecuteSequences(b, literals, seqs, &hist))
	out := b.DrainAll()
	require.Equal(t, []byte("hello"), out[:5])
}

func TestChecksum32Stable(t *testing.T) {
	b := NewWindowBuffer(1024)
	b.Push([]byte("the quick brown fox"))
	sum1 := b.Checksum32()
	b2 := NewWindowBuffer(1024)
	b2.Push([]byte("the quick brown fox"))
	sum2 := b2.Checksum32()
	require.Equal(t, sum1, sum2)
}
