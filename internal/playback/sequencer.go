// Package playback drives a loaded schedule against the device: it owns the
// playback position, run state and repeat count, and emits one setpoint per
// tick with the inter-row time delta between ticks.
//
// Exactly one scheduled tick is pending at any time. Every state-mutating
// action cancels the pending tick before scheduling a new one (or refraining
// from scheduling), so stale or duplicate emissions cannot occur.
package playback

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lightbench/litctl/internal/device"
	"github.com/lightbench/litctl/internal/logging"
	"github.com/lightbench/litctl/internal/schedule"
)

// DefaultSendDeadline bounds each outbound emission. A send that exceeds it
// is treated as a benign self-cancellation, not an error.
const DefaultSendDeadline = time.Second

// Sentinel errors for disallowed transitions.
var (
	// ErrNoSequence is returned when no schedule is loaded.
	ErrNoSequence = errors.New("no schedule loaded")

	// ErrRunning is returned for actions that require the sequencer to be
	// paused (reset, jump) or that are redundant while running (play).
	ErrRunning = errors.New("sequencer is running")

	// ErrNotRunning is returned by Pause when nothing is running.
	ErrNotRunning = errors.New("sequencer is not running")

	// ErrFinished is returned by Play at the last row with no repeats left.
	ErrFinished = errors.New("playback finished")

	// ErrAtStart is returned by Reset when already at the first row.
	ErrAtStart = errors.New("already at first row")

	// ErrIndexOutOfRange is returned by Jump for an index outside the schedule.
	ErrIndexOutOfRange = errors.New("row index out of range")

	// ErrNegativeRepeats is returned by SetRepeats for a negative count.
	ErrNegativeRepeats = errors.New("repeat count must be non-negative")
)

// State is a snapshot of the sequencer for display.
type State struct {
	ActiveIndex      int     `json:"active_index"`
	Running          bool    `json:"running"`
	RemainingRepeats int     `json:"remaining_repeats"`
	TotalLoops       int     `json:"total_loops"`
	Length           int     `json:"length"`
	Progress         float64 `json:"progress"`
}

// Sequencer steps through a schedule, transmitting the setpoint at the
// active row on each tick. All methods are safe for concurrent use; state
// mutations are serialized under one mutex, so tick and user-action handlers
// never overlap.
type Sequencer struct {
	mu sync.Mutex

	seq              schedule.Sequence
	activeIndex      int
	running          bool
	finished         bool
	remainingRepeats int
	totalLoops       int

	// gen invalidates timer fires that raced a cancellation: every cancel
	// bumps it, and a fire whose captured generation no longer matches is a
	// stale tick and returns without touching state.
	gen     uint64
	cancel  CancelFunc
	pending bool

	transport    device.Transport
	channel      string
	sendDeadline time.Duration
	scheduler    Scheduler
	onSendError  func(error)
	log          *logging.Logger
}

// Options configures a Sequencer. Zero-valued fields fall back to production
// defaults; tests inject a Scheduler and error callback.
type Options struct {
	Transport    device.Transport
	Channel      string        // outbound channel; defaults to device.ChannelLitTime
	SendDeadline time.Duration // per-send deadline; defaults to DefaultSendDeadline
	Scheduler    Scheduler     // defaults to the time.AfterFunc scheduler
	OnSendError  func(error)   // invoked for non-timeout send failures
	Logger       *logging.Logger
}

// New creates a Sequencer with no schedule loaded.
func New(opts Options) *Sequencer {
	if opts.Channel == "" {
		opts.Channel = device.ChannelLitTime
	}
	if opts.SendDeadline <= 0 {
		opts.SendDeadline = DefaultSendDeadline
	}
	if opts.Scheduler == nil {
		opts.Scheduler = NewTimerScheduler()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}

	return &Sequencer{
		transport:    opts.Transport,
		channel:      opts.Channel,
		sendDeadline: opts.SendDeadline,
		scheduler:    opts.Scheduler,
		onSendError:  opts.OnSendError,
		log:          opts.Logger,
	}
}

// SetSequence replaces the loaded schedule and resets playback state. Any
// pending tick is cancelled first so nothing emits against stale rows; if
// playback was running this acts as an implicit pause.
func (s *Sequencer) SetSequence(seq schedule.Sequence) error {
	if err := seq.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelPendingLocked()
	s.seq = seq
	s.activeIndex = 0
	s.running = false
	s.finished = false
	s.remainingRepeats = 0
	s.totalLoops = 0
	return nil
}

// Clear drops the loaded schedule, cancelling any pending tick.
func (s *Sequencer) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelPendingLocked()
	s.seq = nil
	s.activeIndex = 0
	s.running = false
	s.finished = false
	s.remainingRepeats = 0
	s.totalLoops = 0
}

// Play starts playback from the active row. The first tick runs immediately.
// Play is refused at the last row with no repeats remaining; use Reset or
// SetRepeats to re-arm.
func (s *Sequencer) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.seq) == 0 {
		return ErrNoSequence
	}
	if s.running {
		return ErrRunning
	}
	if s.atEndLocked() {
		return ErrFinished
	}

	s.totalLoops = s.remainingRepeats + 1
	s.running = true
	s.finished = false
	s.log.Debug("playback started",
		"index", s.activeIndex, "loops", s.totalLoops)
	s.tickLocked()
	return nil
}

// Pause stops playback before the next scheduled tick fires.
func (s *Sequencer) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return ErrNotRunning
	}

	s.running = false
	s.cancelPendingLocked()
	s.log.Debug("playback paused", "index", s.activeIndex)
	return nil
}

// Reset moves the active row back to the start. Paused-only; a no-op error
// is returned when already at the first row.
func (s *Sequencer) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrRunning
	}
	if s.activeIndex == 0 {
		return ErrAtStart
	}

	s.activeIndex = 0
	s.finished = false
	return nil
}

// Jump moves the active row to index i. Ignored while running.
func (s *Sequencer) Jump(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrRunning
	}
	if i < 0 || i >= len(s.seq) {
		return ErrIndexOutOfRange
	}

	s.activeIndex = i
	s.finished = false
	return nil
}

// SetRepeats sets the remaining repeat count. Allowed at any time; the loop
// total used for progress is recomputed on the next Play.
func (s *Sequencer) SetRepeats(n int) error {
	if n < 0 {
		return ErrNegativeRepeats
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.remainingRepeats = n
	return nil
}

// CanPlay reports whether Play would start playback.
func (s *Sequencer) CanPlay() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seq) > 0 && !s.running && !s.atEndLocked()
}

// CanReset reports whether Reset would move the active row.
func (s *Sequencer) CanReset() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.running && s.activeIndex != 0
}

// Snapshot returns the current playback state.
func (s *Sequencer) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return State{
		ActiveIndex:      s.activeIndex,
		Running:          s.running,
		RemainingRepeats: s.remainingRepeats,
		TotalLoops:       s.totalLoops,
		Length:           len(s.seq),
		Progress:         s.progressLocked(),
	}
}

// Progress returns overall playback progress in [0, 1]. It is 0 while
// paused.
func (s *Sequencer) Progress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progressLocked()
}

func (s *Sequencer) progressLocked() float64 {
	if !s.running || len(s.seq) == 0 || s.totalLoops == 0 {
		return 0
	}
	overall := s.activeIndex + (s.totalLoops-s.remainingRepeats-1)*len(s.seq)
	return float64(overall) / float64(s.totalLoops*len(s.seq))
}

// atEndLocked reports the terminal condition with no repeats left: either a
// run exhausted its loops, or the active row was moved to the last row of a
// multi-row schedule. A single-row schedule is only terminal after it has
// run, since its first row is also its last.
func (s *Sequencer) atEndLocked() bool {
	if s.remainingRepeats != 0 {
		return false
	}
	if s.finished {
		return true
	}
	return len(s.seq) > 1 && s.activeIndex == len(s.seq)-1
}

// tickLocked performs one playback step: emit the setpoint at the active
// row, then either stop (terminal condition), or advance and schedule the
// next tick after the cyclic inter-row delta. Callers hold s.mu.
func (s *Sequencer) tickLocked() {
	s.emit(s.seq[s.activeIndex].SetPoint)

	delay := s.seq.DeltaToNext(s.activeIndex)

	if s.activeIndex == len(s.seq)-1 {
		if s.remainingRepeats == 0 {
			// Hold at the last row rather than wrapping.
			s.running = false
			s.finished = true
			s.pending = false
			s.cancel = nil
			s.log.Debug("playback finished", "index", s.activeIndex)
			return
		}
		s.remainingRepeats--
		s.activeIndex = 0
	} else {
		s.activeIndex++
	}

	s.scheduleLocked(delay)
}

// scheduleLocked arms the next tick. Callers hold s.mu and have ensured no
// other tick is pending.
func (s *Sequencer) scheduleLocked(d time.Duration) {
	gen := s.gen
	s.pending = true
	s.cancel = s.scheduler.Schedule(d, func() { s.fire(gen) })
}

// fire is the timer callback. A generation mismatch means the tick was
// cancelled after the timer fired but before we took the lock; such stale
// fires return without touching state.
func (s *Sequencer) fire(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen || !s.running {
		return
	}
	s.pending = false
	s.cancel = nil
	s.tickLocked()
}

// cancelPendingLocked invalidates and cancels any pending tick.
func (s *Sequencer) cancelPendingLocked() {
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.pending = false
}

// emit transmits value on the outbound channel without blocking the tick.
// The send carries its own deadline and is allowed to complete even if the
// sequencer is paused or torn down meanwhile. A deadline timeout is benign
// and swallowed; any other failure is reported through the error callback.
func (s *Sequencer) emit(value float64) {
	ctx, cancel := context.WithTimeout(context.Background(), s.sendDeadline)
	channel := s.channel

	go func() {
		defer cancel()

		_, err := s.transport.Send(ctx, channel, value)
		if err == nil {
			return
		}
		if errors.Is(err, context.DeadlineExceeded) {
			s.log.Debug("send timed out", "channel", channel, "value", value)
			return
		}

		s.log.Warn("send failed", "channel", channel, "value", value, "error", err)
		if s.onSendError != nil {
			s.onSendError(err)
		}
	}()
}
