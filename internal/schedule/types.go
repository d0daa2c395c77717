// Package schedule defines setpoint schedules and the loaders that read them
// from CSV or XLSX files. A schedule is an ordered list of (time, setpoint)
// rows; playback treats it as cyclic, so the row after the last is the first.
package schedule

import (
	"fmt"
	"time"
)

// Row is a single schedule entry: a timestamp in milliseconds and the
// setpoint to transmit at that time.
type Row struct {
	TimeMs   int64   `json:"time_ms"`
	SetPoint float64 `json:"set_point"`
}

// Sequence is an ordered, non-empty list of rows.
type Sequence []Row

// DeltaToNext returns the absolute time difference between row i and the row
// after it in cyclic order. For the last row this is the distance back to the
// first row, so for a sequence of length n, DeltaToNext(n-1) spans the wrap.
func (s Sequence) DeltaToNext(i int) time.Duration {
	next := (i + 1) % len(s)
	delta := s[next].TimeMs - s[i].TimeMs
	if delta < 0 {
		delta = -delta
	}
	return time.Duration(delta) * time.Millisecond
}

// Duration returns the total span of one pass through the sequence, from the
// first row's timestamp to the last row's.
func (s Sequence) Duration() time.Duration {
	if len(s) == 0 {
		return 0
	}
	return time.Duration(s[len(s)-1].TimeMs-s[0].TimeMs) * time.Millisecond
}

// Validate checks that the sequence is usable for playback.
func (s Sequence) Validate() error {
	if len(s) == 0 {
		return ErrEmptySequence
	}
	return nil
}

// ParseError reports the first invalid row encountered while loading a
// schedule file. Row is the zero-based index of the offending row within the
// file (header row included, if present) and Raw is its unparsed content.
type ParseError struct {
	Row int
	Raw string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid schedule row %d: %q", e.Row, e.Raw)
}
