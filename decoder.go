package zstd

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Decoder decodes a stream of one or more Zstandard frames (skippable
// frames are silently skipped) read from an io.Reader, exposing both a
// streaming io.Reader interface and whole-buffer convenience methods.
type Decoder struct {
	opts decoderOptions

	data    []byte
	pending []byte

	initialized atomic.Bool
	failed      atomic.Bool
}

// NewDecoder builds a Decoder from options, applied over sane defaults.
func NewDecoder(opts ...DOption) (*Decoder, error) {
	o := defaultDecoderOptions()
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}
	return &Decoder{opts: o}, nil
}

// Reset discards any in-progress state and prepares the Decoder to read a
// fresh stream from r.
func (d *Decoder) Reset(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("zstd: reading input: %w", err)
	}
	d.data = data
	d.pending = nil
	d.initialized.Store(true)
	d.failed.Store(false)
	return nil
}

// Read implements io.Reader, decoding frames on demand as pending output is
// drained.
func (d *Decoder) Read(p []byte) (int, error) {
	if !d.initialized.Load() {
		return 0, ErrNotInitialized
	}
	if d.failed.Load() {
		return 0, ErrDecoderFailed
	}
	for len(d.pending) == 0 {
		if len(d.data) == 0 {
			return 0, io.EOF
		}
		out, err := d.decodeOneFrame()
		if err != nil {
			d.failed.Store(true)
			return 0, err
		}
		d.pending = out
	}
	n := copy(p, d.pending)
	d.pending = d.pending[n:]
	return n, nil
}

// Collect decodes the entire remaining stream into memory.
func (d *Decoder) Collect() ([]byte, error) {
	return io.ReadAll(d)
}

// CollectToWriter decodes the entire remaining stream directly to w.
func (d *Decoder) CollectToWriter(w io.Writer) error {
	_, err := io.Copy(w, d)
	return err
}

// decodeOneFrame consumes exactly one logical unit of input from d.data:
// either a skippable frame (skipped entirely, returning no output) or a
// full Zstandard frame's decoded bytes, looping past skippable frames until
// real content is found or input is exhausted.
func (d *Decoder) decodeOneFrame() ([]byte, error) {
	for {
		header, consumed, err := ParseFrameHeader(d.data)
		if err != nil {
			if skip, ok := AsSkipFrame(err); ok {
				total := consumed + int(skip.Length)
				if total > len(d.data) {
					return nil, fmt.Errorf("zstd: %w: skippable frame body", ErrTruncatedStream)
				}
				d.opts.logger.Debug("skipping skippable frame", zap.Uint32("magic", skip.Magic), zap.Uint32("length", skip.Length))
				d.data = d.data[total:]
				if len(d.data) == 0 {
					return nil, io.EOF
				}
				continue
			}
			return nil, err
		}
		return d.decodeFrameBody(header, consumed)
	}
}

func (d *Decoder) decodeFrameBody(header *FrameHeader, headerLen int) ([]byte, error) {
	windowSize, err := header.WindowSize()
	if err != nil {
		return nil, err
	}
	if logWindowLog(windowSize) > d.opts.windowLogMax {
		return nil, ErrWindowTooLarge
	}

	var dict *Dictionary
	if header.HasDictionaryID && d.opts.dictionary != nil && d.opts.dictionary.ID == header.DictionaryID {
		dict = d.opts.dictionary
	} else if !header.HasDictionaryID {
		dict = d.opts.dictionary
	}

	scratch := NewDecodeScratch()
	scratch.Reset(dict)
	buf := NewWindowBuffer(windowSize)
	if dict != nil {
		buf.SetDictionaryContent(dict.Content)
	}

	pos := headerLen
	for {
		bh, err := ParseBlockHeader(d.data[pos:])
		if err != nil {
			return nil, err
		}
		blockStart := pos + 3
		blockEnd := blockStart + int(bh.ContentSize)
		if blockEnd > len(d.data) {
			return nil, fmt.Errorf("zstd: %w: block body", ErrTruncatedStream)
		}
		if err := DecodeBlock(bh, d.data[blockStart:blockEnd], buf, scratch); err != nil {
			return nil, err
		}
		pos = blockEnd
		if bh.Last {
			break
		}
	}

	out := buf.DrainAll()

	if header.HasChecksum {
		if len(d.data) < pos+4 {
			return nil, fmt.Errorf("zstd: %w: checksum", ErrTruncatedStream)
		}
		want := binary.LittleEndian.Uint32(d.data[pos : pos+4])
		pos += 4
		if got := buf.Checksum32(); got != want {
			return nil, fmt.Errorf("zstd: %w: got %#x want %#x", ErrChecksumMismatch, got, want)
		}
	}

	if header.HasContentSize && uint64(len(out)) != header.FrameContentSize {
		return nil, fmt.Errorf("zstd: frame content size mismatch: decoded %d, header said %d", len(out), header.FrameContentSize)
	}

	d.data = d.data[pos:]
	return out, nil
}

func logWindowLog(size uint64) uint {
	n := uint(0)
	for (uint64(1) << n) < size {
		n++
	}
	return n
}

// DecodeAll decodes buf (which may contain back-to-back frames) in one
// call, a convenience wrapper for callers that already have the whole
// input in memory.
func DecodeAll(buf []byte, opts ...DOption) ([]byte, error) {
	d, err := NewDecoder(opts...)
	if err != nil {
		return nil, err
	}
	if err := d.Reset(bytes.NewReader(buf)); err != nil {
		return nil, err
	}
	out, err := d.Collect()
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return out, nil
}
