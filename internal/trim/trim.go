// Package trim cuts a recording down to a time range. The work is done by an
// external transcoder; this package only defines the capability and drives
// ffmpeg.
package trim

import (
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// Range is the half-open interval [Start, End) to keep.
type Range struct {
	Start time.Duration
	End   time.Duration
}

func (r Range) Validate() error {
	if r.Start < 0 {
		return fmt.Errorf("start must not be negative")
	}
	if r.End <= r.Start {
		return fmt.Errorf("end must be after start")
	}
	return nil
}

func (r Range) Duration() time.Duration {
	return r.End - r.Start
}

// ParseRange reads start and end as decimal seconds.
func ParseRange(start, end string) (Range, error) {
	s, err := parseSeconds(start)
	if err != nil {
		return Range{}, fmt.Errorf("invalid start: %w", err)
	}
	e, err := parseSeconds(end)
	if err != nil {
		return Range{}, fmt.Errorf("invalid end: %w", err)
	}

	r := Range{Start: s, End: e}
	if err := r.Validate(); err != nil {
		return Range{}, err
	}
	return r, nil
}

func parseSeconds(s string) (time.Duration, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%q is not a finite number", s)
	}
	return time.Duration(f * float64(time.Second)), nil
}

// ProgressFunc receives completion percentages in 0..100.
type ProgressFunc func(percent int)

// Transcoder produces a trimmed copy of src. The caller must Close the
// returned reader.
type Transcoder interface {
	Trim(ctx context.Context, src io.Reader, r Range, progress ProgressFunc) (io.ReadCloser, error)
}
