package telemetry

import (
	"sync"
	"time"
)

// Chart window defaults: the most recent 10 seconds of samples on a fixed
// y-range of [-1, 2].
const (
	DefaultWindowSpan = 10 * time.Second
	DefaultYMin       = -1.0
	DefaultYMax       = 2.0
)

// Window keeps the samples that fall inside a rolling time span, oldest
// first. It is the data behind the scrolling chart; the y-range is fixed so
// the chart does not rescale as values move.
type Window struct {
	mu      sync.Mutex
	span    time.Duration
	samples []Sample

	YMin float64
	YMax float64
}

// NewWindow creates a Window with the given span. A non-positive span falls
// back to DefaultWindowSpan.
func NewWindow(span time.Duration) *Window {
	if span <= 0 {
		span = DefaultWindowSpan
	}
	return &Window{
		span: span,
		YMin: DefaultYMin,
		YMax: DefaultYMax,
	}
}

// Append adds a sample and drops samples that have fallen out of the span,
// measured from the newest sample.
func (w *Window) Append(s Sample) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.samples = append(w.samples, s)

	cutoff := s.At.Add(-w.span)
	drop := 0
	for drop < len(w.samples)-1 && w.samples[drop].At.Before(cutoff) {
		drop++
	}
	if drop > 0 {
		w.samples = append(w.samples[:0], w.samples[drop:]...)
	}
}

// Samples returns a copy of the windowed samples, oldest first.
func (w *Window) Samples() []Sample {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Sample(nil), w.samples...)
}

// Latest returns the most recent sample, if any.
func (w *Window) Latest() (Sample, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.samples) == 0 {
		return Sample{}, false
	}
	return w.samples[len(w.samples)-1], true
}

// Len returns the number of windowed samples.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.samples)
}
