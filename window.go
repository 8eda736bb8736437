package zstd

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// WindowBuffer is the decode-side sliding output buffer: a simple growable
// byte slice holding every byte produced so far in the frame (plus, when a
// dictionary is loaded, the dictionary's raw content as a virtual prefix),
// together with a running XXH64 checksum fed as bytes are finalized. This is
// an idiomatic adaptation of the reference decode buffer, which is itself a
// plain growable Vec<u8> rather than the project's separate, largely-unused
// raw ring-buffer type.
type WindowBuffer struct {
	buf         []byte
	dictContent []byte
	windowSize  uint64
	total       uint64
	hasher      *xxhash.Digest
}

// NewWindowBuffer creates an empty buffer sized for the given window.
func NewWindowBuffer(windowSize uint64) *WindowBuffer {
	return &WindowBuffer{windowSize: windowSize, hasher: xxhash.New()}
}

// SetDictionaryContent installs the raw dictionary bytes served when a
// repeat offset reaches further back than the buffer itself holds.
func (b *WindowBuffer) SetDictionaryContent(content []byte) {
	b.dictContent = content
}

// Len returns the number of bytes currently held (not counting dictionary
// content).
func (b *WindowBuffer) Len() int { return len(b.buf) }

// Push appends literal bytes verbatim.
func (b *WindowBuffer) Push(data []byte) {
	b.buf = append(b.buf, data...)
	b.total += uint64(len(data))
}

// Repeat copies matchLength bytes starting offset bytes back from the
// current end of the buffer, falling back to dictionary content when the
// offset reaches further back than anything produced so far in this frame,
// and extending byte-by-byte when the match source and destination ranges
// overlap (offset < matchLength).
func (b *WindowBuffer) Repeat(offset, matchLength int) error {
	if offset <= 0 {
		return ErrOffsetZero
	}
	if offset > len(b.buf) {
		return b.repeatFromDictionary(offset, matchLength)
	}
	start := len(b.buf) - offset
	if offset < matchLength {
		for i := 0; i < matchLength; i++ {
			b.buf = append(b.buf, b.buf[start+i])
		}
	} else {
		b.buf = append(b.buf, b.buf[start:start+matchLength]...)
	}
	b.total += uint64(matchLength)
	return nil
}

// repeatFromDictionary serves a match that reaches past the bytes produced
// so far in this frame, using the tail of the loaded dictionary content. If
// the dictionary slice alone doesn't cover matchLength, it recurses: the
// part copied from the dictionary is appended first, then the remainder is
// resolved as an ordinary (now offset <= len(buf)) repeat.
func (b *WindowBuffer) repeatFromDictionary(offset, matchLength int) error {
	if b.total > b.windowSize {
		return ErrNoDictionary
	}
	dictOffset := offset - len(b.buf)
	if dictOffset > len(b.dictContent) {
		return fmt.Errorf("zstd: %w: offset %d reaches past dictionary content (%d bytes)", ErrNoDictionary, offset, len(b.dictContent))
	}
	start := len(b.dictContent) - dictOffset
	avail := len(b.dictContent) - start
	if avail >= matchLength {
		b.buf = append(b.buf, b.dictContent[start:start+matchLength]...)
		b.total += uint64(matchLength)
		return nil
	}
	b.buf = append(b.buf, b.dictContent[start:]...)
	b.total += uint64(avail)
	return b.Repeat(len(b.buf), matchLength-avail)
}

// CanDrain reports whether the buffer holds more bytes than the window
// requires it to retain, meaning bytes beyond windowSize from the end can
// be handed to the caller and dropped.
func (b *WindowBuffer) CanDrain() bool {
	return uint64(len(b.buf)) > b.windowSize
}

// DrainToWindowSize removes and returns every byte beyond the trailing
// windowSize bytes, feeding them to the running checksum.
func (b *WindowBuffer) DrainToWindowSize() []byte {
	if !b.CanDrain() {
		return nil
	}
	cut := uint64(len(b.buf)) - b.windowSize
	out := make([]byte, cut)
	copy(out, b.buf[:cut])
	b.buf = b.buf[cut:]
	b.hasher.Write(out)
	return out
}

// DrainAll removes and returns every remaining byte, feeding them to the
// checksum; called once a frame is fully decoded.
func (b *WindowBuffer) DrainAll() []byte {
	out := b.buf
	b.buf = nil
	b.hasher.Write(out)
	return out
}

// Checksum32 returns the low 32 bits of the running XXH64 checksum, the
// value a frame's content_checksum field is compared against.
func (b *WindowBuffer) Checksum32() uint32 {
	return uint32(b.hasher.Sum64())
}

// OffsetHistory is the 3-slot repeat-offset cache, defaulting to [1, 4, 8]
// at the start of every frame per spec §4.8.
type OffsetHistory [3]uint32

// NewOffsetHistory returns the frame-initial repeat-offset state.
func NewOffsetHistory() OffsetHistory {
	return OffsetHistory{1, 4, 8}
}

// ExecuteSequences walks decoded sequences against literals, resolving each
// offset against hist and writing the result into buf, mirroring the
// reference's execute_sequences: push literal_length literal bytes (if any),
// resolve and apply the repeat offset, then copy match_length bytes.
func ExecuteSequences(buf *WindowBuffer, literals []byte, seqs []Sequence, hist *OffsetHistory) error {
	litPos := 0
	for _, seq := range seqs {
		if seq.LL > 0 {
			end := litPos + int(seq.LL)
			if end > len(literals) {
				return fmt.Errorf("zstd: sequence wants literal byte %d, have %d", end, len(literals))
			}
			buf.Push(literals[litPos:end])
			litPos = end
		}

		actual, err := ResolveOffset(seq.OF, seq.LL, (*[3]uint32)(hist))
		if err != nil {
			return err
		}
		if seq.ML > 0 {
			if err := buf.Repeat(int(actual), int(seq.ML)); err != nil {
				return err
			}
		}
	}
	if litPos < len(literals) {
		buf.Push(literals[litPos:])
	}
	return nil
}
