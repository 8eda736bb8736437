package zstd

import (
	"bytes"
	"io"

	"github.com/SaveTheRbtz/fastcdc-go"
)

// minMatchLen is the shortest back-reference this generator will emit;
// anything shorter is cheaper to leave as literals.
const minMatchLen = 5

// MatchEvent is one LZ parse result: literals to emit verbatim, optionally
// followed by a back-reference (Offset/MatchLen zero when there is none,
// i.e. a trailing literals-only run).
type MatchEvent struct {
	Literals []byte
	Offset   int
	MatchLen int
}

// MatchGenerator finds back-references against a bounded trailing window of
// previously-seen input, using a 5-byte rolling key index the way the
// reference match generator's per-chunk suffix maps do, adapted here to a
// single growing window instead of a pool of leaked chunk buffers (an
// idiomatic simplification: Go's GC makes the leak/reuse dance the
// reference needs for an allocation-free `no_std` target unnecessary).
type MatchGenerator struct {
	window       []byte
	windowBase   int // absolute input offset that window[0] corresponds to
	maxWindow    int
	suffixes     map[[minMatchLen]byte]int // absolute position, lazily invalidated
	literalStart int                       // absolute offset of the next unflushed literal
}

// NewMatchGenerator returns a generator bounded to maxWindow bytes of match
// history.
func NewMatchGenerator(maxWindow int) *MatchGenerator {
	return &MatchGenerator{
		maxWindow: maxWindow,
		suffixes:  make(map[[minMatchLen]byte]int),
	}
}

// absPos returns the absolute input offset one past the window's end.
func (m *MatchGenerator) absPos() int { return m.windowBase + len(m.window) }

// feedBytes appends data to the window, evicting from the front once the
// window exceeds maxWindow. Stale suffix entries (positions below the new
// windowBase) are left in the map and simply ignored on lookup; the map
// itself is never shrunk, matching the reference's willingness to let
// per-chunk indices age out rather than actively garbage-collect them.
func (m *MatchGenerator) feedBytes(data []byte) {
	m.window = append(m.window, data...)
	if over := len(m.window) - m.maxWindow; over > 0 && m.maxWindow > 0 {
		m.window = m.window[over:]
		m.windowBase += over
	}
}

// at returns the byte at absolute offset p, which must be within the
// current window.
func (m *MatchGenerator) at(p int) byte { return m.window[p-m.windowBase] }

func (m *MatchGenerator) slice(from, to int) []byte {
	return m.window[from-m.windowBase : to-m.windowBase]
}

// Feed ingests data (one content-defined chunk at a time, per FeedChunked)
// and returns every match event that can now be determined; a final
// trailing literal run is only reported once the caller calls Flush, since
// more input could still extend or replace it with a match.
func (m *MatchGenerator) Feed(data []byte) []MatchEvent {
	m.feedBytes(data)
	return m.scan(false)
}

// Flush finalizes any pending literal run once no more input is coming.
func (m *MatchGenerator) Flush() []MatchEvent {
	return m.scan(true)
}

func (m *MatchGenerator) scan(final bool) []MatchEvent {
	var events []MatchEvent
	end := m.absPos()

	for {
		remaining := end - m.literalStart
		if remaining < minMatchLen {
			if final && remaining > 0 {
				events = append(events, MatchEvent{Literals: m.slice(m.literalStart, end)})
				m.literalStart = end
			}
			return events
		}

		pos := m.literalStart
		// Scan forward for the earliest position with a usable match,
		// so literals accumulate ahead of whichever match is found first.
		found := false
		for ; pos+minMatchLen <= end; pos++ {
			var key [minMatchLen]byte
			copy(key[:], m.slice(pos, pos+minMatchLen))

			if matchPos, ok := m.suffixes[key]; ok && matchPos >= m.windowBase && matchPos < pos {
				matchLen := m.extendMatch(matchPos, pos, end)
				if matchLen >= minMatchLen {
					if pos > m.literalStart {
						events = append(events, MatchEvent{Literals: m.slice(m.literalStart, pos)})
					} else {
						events = append(events, MatchEvent{})
					}
					events[len(events)-1].Offset = pos - matchPos
					events[len(events)-1].MatchLen = matchLen
					m.indexRange(m.literalStart, pos+matchLen)
					m.literalStart = pos + matchLen
					found = true
					break
				}
			}
			m.suffixes[key] = pos
		}

		if !found {
			// Nothing more to index until new data arrives (unless this is
			// the final flush, in which case emit everything as literals).
			if final {
				events = append(events, MatchEvent{Literals: m.slice(m.literalStart, end)})
				m.literalStart = end
			}
			return events
		}
	}
}

// extendMatch returns how many bytes starting at matchPos and pos agree,
// bounded by the window's current end (self-overlapping matches, where
// matchPos+len reaches into [pos, end), are allowed and common for RLE-like
// runs).
func (m *MatchGenerator) extendMatch(matchPos, pos, end int) int {
	n := 0
	for pos+n < end {
		if m.at(matchPos+n) != m.at(pos+n) {
			break
		}
		n++
	}
	return n
}

// indexRange records 5-byte keys for every position in [from, to), so a
// later match can reference bytes inside a just-emitted match the same way
// the reference's add_suffixes_till does.
func (m *MatchGenerator) indexRange(from, to int) {
	for p := from; p+minMatchLen <= to; p++ {
		var key [minMatchLen]byte
		copy(key[:], m.slice(p, p+minMatchLen))
		if _, ok := m.suffixes[key]; !ok {
			m.suffixes[key] = p
		}
	}
}

// FeedChunked splits src into content-defined chunks with fastcdc-go (so the
// window fills in pieces whose boundaries are stable across small edits,
// rather than at fixed byte counts) and feeds each through Feed, returning
// every match event produced plus the final Flush.
func FeedChunked(m *MatchGenerator, src []byte) ([]MatchEvent, error) {
	opts := fastcdc.Options{
		MinSize:     2 * 1024,
		AverageSize: 8 * 1024,
		MaxSize:     16 * 1024,
	}
	chunker, err := fastcdc.NewChunker(bytes.NewReader(src), opts)
	if err != nil {
		return nil, err
	}

	var events []MatchEvent
	for {
		chunk, err := chunker.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		events = append(events, m.Feed(chunk.Data)...)
	}
	events = append(events, m.Flush()...)
	return events, nil
}
