package zstd

import (
	"fmt"

	"go.uber.org/zap"
)

// decoderOptions holds a Decoder's configurable state, built up by applying
// a DOption list over sane defaults, mirroring the teacher's functional-
// options pattern for its own reader/writer configuration.
type decoderOptions struct {
	logger         *zap.Logger
	dictionary     *Dictionary
	windowLogMax   uint
}

func defaultDecoderOptions() decoderOptions {
	return decoderOptions{
		logger:       zap.NewNop(),
		windowLogMax: 31,
	}
}

// DOption configures a Decoder at construction time.
type DOption func(*decoderOptions) error

// WithDecoderLogger attaches a zap logger the Decoder will use for
// diagnostic messages (frame/block boundaries, dictionary loads).
func WithDecoderLogger(l *zap.Logger) DOption {
	return func(o *decoderOptions) error {
		if l == nil {
			return fmt.Errorf("zstd: nil logger")
		}
		o.logger = l
		return nil
	}
}

// WithDecoderDictionary preloads a dictionary so frames tagged with its id
// resolve Repeat-mode tables and dictionary-content offsets against it.
func WithDecoderDictionary(d *Dictionary) DOption {
	return func(o *decoderOptions) error {
		o.dictionary = d
		return nil
	}
}

// WithDecoderMaxWindowLog caps the window size a frame header is allowed to
// request, guarding against maliciously large allocations.
func WithDecoderMaxWindowLog(log uint) DOption {
	return func(o *decoderOptions) error {
		if log == 0 || log > 41 {
			return fmt.Errorf("zstd: window log %d out of range", log)
		}
		o.windowLogMax = log
		return nil
	}
}

// encoderOptions holds an Encoder's configurable state.
type encoderOptions struct {
	logger       *zap.Logger
	dictionary   *Dictionary
	windowSize   uint64
	checksum     bool
}

func defaultEncoderOptions() encoderOptions {
	return encoderOptions{
		logger:     zap.NewNop(),
		windowSize: 8 * 1024 * 1024,
		checksum:   true,
	}
}

// EOption configures an Encoder at construction time.
type EOption func(*encoderOptions) error

// WithEncoderLogger attaches a zap logger for the Encoder.
func WithEncoderLogger(l *zap.Logger) EOption {
	return func(o *encoderOptions) error {
		if l == nil {
			return fmt.Errorf("zstd: nil logger")
		}
		o.logger = l
		return nil
	}
}

// WithEncoderDictionary attaches a dictionary whose id is written into every
// frame header and whose tables/offsets seed each frame's scratch state.
func WithEncoderDictionary(d *Dictionary) EOption {
	return func(o *encoderOptions) error {
		o.dictionary = d
		return nil
	}
}

// WithEncoderWindowSize sets the declared window size for frames this
// Encoder produces.
func WithEncoderWindowSize(size uint64) EOption {
	return func(o *encoderOptions) error {
		if size < minWindowSize {
			return ErrWindowTooSmall
		}
		o.windowSize = size
		return nil
	}
}

// WithEncoderChecksum toggles whether frames carry a trailing XXH64 content
// checksum.
func WithEncoderChecksum(enabled bool) EOption {
	return func(o *encoderOptions) error {
		o.checksum = enabled
		return nil
	}
}
