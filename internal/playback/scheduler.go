package playback

import "time"

// CancelFunc cancels a pending scheduled call. It reports whether the call
// was cancelled before firing, with the same semantics as (*time.Timer).Stop.
type CancelFunc func() bool

// Scheduler schedules a single deferred call. The production implementation
// is a thin wrapper over time.AfterFunc; tests substitute a manual scheduler
// to drive ticks deterministically.
type Scheduler interface {
	Schedule(d time.Duration, fn func()) CancelFunc
}

// timerScheduler schedules via time.AfterFunc.
type timerScheduler struct{}

// NewTimerScheduler returns the real-time Scheduler used in production.
func NewTimerScheduler() Scheduler {
	return timerScheduler{}
}

func (timerScheduler) Schedule(d time.Duration, fn func()) CancelFunc {
	return time.AfterFunc(d, fn).Stop
}
