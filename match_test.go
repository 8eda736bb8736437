package zstd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// reconstruct replays match events the same way ExecuteSequences would,
// without going through the wire format, to check the generator's output is
// self-consistent against the original input.
func reconstruct(events []MatchEvent) []byte {
	var out []byte
	for _, ev := range events {
		out = append(out, ev.Literals...)
		if ev.MatchLen > 0 {
			start := len(out) - ev.Offset
			for i := 0; i < ev.MatchLen; i++ {
				out = append(out, out[start+i])
			}
		}
	}
	return out
}

func TestMatchGeneratorAllLiteralsWhenNoRepeats(t *testing.T) {
	m := NewMatchGenerator(1 << 16)
	input := []byte("abcdefghij")
	events := m.Feed(input)
	events = append(events, m.Flush()...)
	require.Equal(t, input, reconstruct(events))
}

func TestMatchGeneratorFindsRepeat(t *testing.T) {
	m := NewMatchGenerator(1 << 16)
	input := []byte("hello world, hello world, hello world")
	events := m.Feed(input)
	events = append(events, m.Flush()...)
	require.Equal(t, input, reconstruct(events))

	var sawMatch bool
	for _, ev := range events {
		if ev.MatchLen > 0 {
			sawMatch = true
		}
	}
	require.True(t, sawMatch, "expected at least one back-reference in a repetitive input")
}

func TestMatchGeneratorOnlyLastEventCanBeLiteralOnly(t *testing.T) {
	m := NewMatchGenerator(1 << 16)
	input := []byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	events := m.Feed(input)
	events = append(events, m.Flush()...)
	require.Equal(t, input, reconstruct(events))

	for i, ev := range events {
		if ev.MatchLen == 0 && i != len(events)-1 {
			t.Fatalf("event %d is literals-only but is not the last event", i)
		}
	}
}

func TestMatchGeneratorAcrossFeedCalls(t *testing.T) {
	m := NewMatchGenerator(1 << 16)
	var events []MatchEvent
	events = append(events, m.Feed([]byte("the quick brown fox "))...)
	events = append(events, m.Feed([]byte("jumps over the quick brown fox"))...)
	events = append(events, m.Flush()...)
	require.Equal(t, "the quick brown fox jumps over the quick brown fox", string(reconstruct(events)))
}

func TestMatchGeneratorEmptyInput(t *testing.T) {
	m := NewMatchGenerator(1 << 16)
	events := m.Feed(nil)
	events = append(events, m.Flush()...)
	require.Empty(t, events)
}
