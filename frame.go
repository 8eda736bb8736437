package zstd

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	frameMagic = 0xFD2FB528

	skippableMagicLow  = 0x184D2A50
	skippableMagicHigh = 0x184D2A5F

	minWindowSize = 1024
	// maxWindowSize mirrors the reference's hard ceiling: (1<<41)+7*(1<<38).
	maxWindowSize = (uint64(1) << 41) + 7*(uint64(1)<<38)

	dictIDFieldMax = 4
	fcsFieldMax    = 8
)

// FrameDescriptor is the single byte following the magic number, laying out
// frame_content_size_flag (bits 6-7), single_segment_flag (bit 5), a
// reserved bit (bit 3), content_checksum_flag (bit 2), and dictionary_id_flag
// (bits 0-1).
type FrameDescriptor byte

func (d FrameDescriptor) frameContentSizeFlag() byte { return byte(d) >> 6 }
func (d FrameDescriptor) singleSegment() bool        { return byte(d)&0x20 != 0 }
func (d FrameDescriptor) reserved() bool             { return byte(d)&0x08 != 0 }
func (d FrameDescriptor) checksumFlag() bool         { return byte(d)&0x04 != 0 }
func (d FrameDescriptor) dictionaryIDFlag() byte     { return byte(d) & 0x03 }

// dictionaryIDBytes maps the 2-bit dictionary_id_flag to the number of bytes
// that field occupies in the header.
func (d FrameDescriptor) dictionaryIDBytes() int {
	switch d.dictionaryIDFlag() {
	case 0:
		return 0
	case 1:
		return 1
	case 2:
		return 2
	default:
		return 4
	}
}

// frameContentSizeBytes maps frame_content_size_flag (and single_segment) to
// the number of bytes the frame_content_size field occupies. A flag of 0
// with single_segment set still contributes exactly 1 byte.
func (d FrameDescriptor) frameContentSizeBytes() int {
	switch d.frameContentSizeFlag() {
	case 0:
		if d.singleSegment() {
			return 1
		}
		return 0
	case 1:
		return 2
	case 2:
		return 4
	default:
		return 8
	}
}

// FrameHeader is the parsed frame header preceding a frame's blocks.
type FrameHeader struct {
	Descriptor        FrameDescriptor
	WindowDescriptor  byte
	DictionaryID      uint32
	HasDictionaryID   bool
	FrameContentSize  uint64
	HasContentSize    bool
	HasChecksum       bool
}

// WindowSize derives the decode window size from WindowDescriptor, following
// window_log = 10 + exponent, window_base = 1<<window_log, and
// window_add = (window_base/8) * mantissa.
func (h *FrameHeader) WindowSize() (uint64, error) {
	if h.Descriptor.singleSegment() {
		return h.FrameContentSize, nil
	}
	exp := uint(h.WindowDescriptor) >> 3
	mantissa := uint64(h.WindowDescriptor & 0x7)
	windowLog := 10 + exp
	windowBase := uint64(1) << windowLog
	windowAdd := (windowBase / 8) * mantissa
	size := windowBase + windowAdd
	if size < minWindowSize {
		return 0, ErrWindowTooSmall
	}
	if size > maxWindowSize {
		return 0, ErrWindowTooLarge
	}
	return size, nil
}

// SkipFrame is the typed value returned alongside ErrSkippableFrame: the
// frame's magic (still within the skippable range) and its declared length,
// so the caller can advance past it without interpreting the payload.
type SkipFrame struct {
	Magic  uint32
	Length uint32
}

// ParseFrameHeader reads the magic number, dispatches skippable frames, and
// otherwise parses the frame descriptor and its variable-length trailing
// fields. It returns the number of bytes consumed from src.
func ParseFrameHeader(src []byte) (*FrameHeader, int, error) {
	if len(src) < 4 {
		return nil, 0, fmt.Errorf("zstd: %w: frame magic", ErrTruncatedHeader)
	}
	magic := binary.LittleEndian.Uint32(src[0:4])
	if magic >= skippableMagicLow && magic <= skippableMagicHigh {
		if len(src) < 8 {
			return nil, 0, fmt.Errorf("zstd: %w: skippable frame length", ErrTruncatedHeader)
		}
		length := binary.LittleEndian.Uint32(src[4:8])
		return nil, 8, fmt.Errorf("%w: %w", ErrSkippableFrame, &skipFrameValue{SkipFrame{magic, length}})
	}
	if magic != frameMagic {
		return nil, 0, ErrBadMagic
	}
	if len(src) < 5 {
		return nil, 0, fmt.Errorf("zstd: %w: frame descriptor", ErrTruncatedHeader)
	}
	desc := FrameDescriptor(src[4])
	if desc.reserved() {
		return nil, 0, ErrReservedBit
	}
	pos := 5
	h := &FrameHeader{Descriptor: desc}

	if !desc.singleSegment() {
		if len(src) < pos+1 {
			return nil, 0, fmt.Errorf("zstd: %w: window descriptor", ErrTruncatedHeader)
		}
		h.WindowDescriptor = src[pos]
		pos++
	}

	if n := desc.dictionaryIDBytes(); n > 0 {
		if len(src) < pos+n {
			return nil, 0, fmt.Errorf("zstd: %w: dictionary id", ErrTruncatedHeader)
		}
		var id uint32
		for i := 0; i < n; i++ {
			id |= uint32(src[pos+i]) << (8 * i)
		}
		h.DictionaryID = id
		h.HasDictionaryID = true
		pos += n
	}

	if n := desc.frameContentSizeBytes(); n > 0 {
		if len(src) < pos+n {
			return nil, 0, fmt.Errorf("zstd: %w: frame content size", ErrTruncatedHeader)
		}
		var size uint64
		for i := 0; i < n; i++ {
			size |= uint64(src[pos+i]) << (8 * i)
		}
		// The 2-byte encoding stores (size - 256) to use the full range,
		// mirroring the reference's frame_content_size() decode.
		if n == 2 {
			size += 256
		}
		h.FrameContentSize = size
		h.HasContentSize = true
		pos += n
	}

	h.HasChecksum = desc.checksumFlag()

	if _, err := h.WindowSize(); err != nil {
		return nil, 0, err
	}

	return h, pos, nil
}

// skipFrameValue lets ParseFrameHeader carry structured skip-frame data
// through the standard error-wrapping idiom via errors.As.
type skipFrameValue struct {
	SkipFrame
}

func (s *skipFrameValue) Error() string { return "zstd: skippable frame" }

// AsSkipFrame extracts the SkipFrame payload from an error returned by
// ParseFrameHeader, if any.
func AsSkipFrame(err error) (SkipFrame, bool) {
	var v *skipFrameValue
	if asSkipFrameValue(err, &v) {
		return v.SkipFrame, true
	}
	return SkipFrame{}, false
}

func asSkipFrameValue(err error, target **skipFrameValue) bool {
	return errors.As(err, target)
}

// WriteFrameHeader serializes a frame header, choosing the smallest field widths that
// losslessly represent the given content size and dictionary id (mirroring
// the encoder's usual "pick the cheapest encoding" convention).
func WriteFrameHeader(contentSize uint64, knownSize bool, windowLog uint, dictionaryID uint32, checksum bool) []byte {
	out := make([]byte, 4, 16)
	binary.LittleEndian.PutUint32(out, frameMagic)

	var desc byte
	singleSegment := knownSize && contentSize <= 255 && windowLog <= 10
	if singleSegment {
		desc |= 0x20
	}
	if checksum {
		desc |= 0x04
	}

	var dictBytes int
	switch {
	case dictionaryID == 0:
		dictBytes = 0
	case dictionaryID <= 0xFF:
		dictBytes = 1
		desc |= 0x01
	case dictionaryID <= 0xFFFF:
		dictBytes = 2
		desc |= 0x02
	default:
		dictBytes = 4
		desc |= 0x03
	}

	var fcsFlag byte
	var fcsBytes int
	if knownSize {
		switch {
		case singleSegment:
			fcsFlag, fcsBytes = 0, 1
		case contentSize >= 256 && contentSize <= 0xFFFF+256:
			fcsFlag, fcsBytes = 1, 2
		case contentSize <= 0xFFFFFFFF:
			fcsFlag, fcsBytes = 2, 4
		default:
			fcsFlag, fcsBytes = 3, 8
		}
	}
	desc |= fcsFlag << 6

	out = append(out, desc)

	if !singleSegment {
		exp := uint(0)
		for (uint64(1)<<(10+exp)) < windowLogToSize(windowLog) && exp < 31 {
			exp++
		}
		windowBase := uint64(1) << (10 + exp)
		mantissa := byte(0)
		if windowBase < windowLogToSize(windowLog) {
			mantissa = byte(((windowLogToSize(windowLog) - windowBase) * 8) / windowBase)
		}
		out = append(out, (byte(exp)<<3)|mantissa)
	}

	for i := 0; i < dictBytes; i++ {
		out = append(out, byte(dictionaryID>>(8*i)))
	}

	if knownSize {
		size := contentSize
		if fcsBytes == 2 {
			size -= 256
		}
		for i := 0; i < fcsBytes; i++ {
			out = append(out, byte(size>>(8*i)))
		}
	}

	return out
}

func windowLogToSize(log uint) uint64 {
	if log == 0 {
		return minWindowSize
	}
	return uint64(1) << log
}
