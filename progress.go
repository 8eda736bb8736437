package zstd

import (
	"io"

	"github.com/schollz/progressbar/v3"
)

// ProgressReader wraps an io.Reader, driving a terminal progress bar as
// bytes are read through it. Intended for the CLI front-ends wrapping
// Decoder/Encoder over large files, the same supporting role the teacher's
// tooling gives a progress indicator around a long-running stream copy.
type ProgressReader struct {
	r    io.Reader
	bar  *progressbar.ProgressBar
}

// NewProgressReader wraps r, describing the bar with label and sizing it to
// total bytes (pass -1 when the total size is unknown, e.g. streamed stdin).
func NewProgressReader(r io.Reader, label string, total int64) *ProgressReader {
	bar := progressbar.DefaultBytes(total, label)
	return &ProgressReader{r: r, bar: bar}
}

// Read implements io.Reader, advancing the bar by every byte actually read.
func (p *ProgressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		_ = p.bar.Add(n)
	}
	if err == io.EOF {
		_ = p.bar.Finish()
	}
	return n, err
}

// Close finalizes the bar, clearing it from the terminal. Safe to call even
// if the wrapped reader was never fully drained.
func (p *ProgressReader) Close() error {
	return p.bar.Close()
}
