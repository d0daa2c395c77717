package playback

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lightbench/litctl/internal/device"
	"github.com/lightbench/litctl/internal/logging"
	"github.com/lightbench/litctl/internal/schedule"
)

// Status combines playback state with the load/send banner for display.
type Status struct {
	State
	Path   string `json:"path,omitempty"`
	Banner string `json:"banner,omitempty"`
}

// Controller ties the schedule loader to the sequencer and owns the single
// user-visible banner message: load and send failures replace it, and a
// successful load clears it. Loading never leaves a stale sequence behind —
// a failed load clears the previous one.
type Controller struct {
	mu     sync.Mutex
	path   string
	banner string

	seq      *Sequencer
	loadFile func(string) (schedule.Sequence, error)
	log      *logging.Logger
}

// ControllerOptions configures a Controller and its sequencer.
type ControllerOptions struct {
	Transport    device.Transport
	SendDeadline time.Duration
	Scheduler    Scheduler
	Logger       *logging.Logger

	// LoadFile overrides the schedule loader; tests use this.
	LoadFile func(string) (schedule.Sequence, error)
}

// NewController creates a Controller with a freshly constructed sequencer
// whose send failures feed the banner.
func NewController(opts ControllerOptions) *Controller {
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.LoadFile == nil {
		opts.LoadFile = schedule.LoadFile
	}

	c := &Controller{
		loadFile: opts.LoadFile,
		log:      opts.Logger,
	}
	c.seq = New(Options{
		Transport:    opts.Transport,
		SendDeadline: opts.SendDeadline,
		Scheduler:    opts.Scheduler,
		OnSendError:  c.reportSendError,
		Logger:       opts.Logger,
	})
	return c
}

// Sequencer returns the owned sequencer.
func (c *Controller) Sequencer() *Sequencer {
	return c.seq
}

// Load reads a schedule file and installs it. On failure the previous
// sequence is cleared and the banner set; on success the banner is cleared
// and playback state starts fresh at row 0.
func (c *Controller) Load(path string) error {
	seq, err := c.loadFile(path)
	if err != nil {
		c.seq.Clear()
		c.setBanner(loadErrorMessage(path, err))
		c.log.Warn("schedule load failed", "path", path, "error", err)
		return err
	}

	if err := c.seq.SetSequence(seq); err != nil {
		c.setBanner(loadErrorMessage(path, err))
		return err
	}

	c.mu.Lock()
	c.path = path
	c.banner = ""
	c.mu.Unlock()

	c.log.Info("schedule loaded", "path", path, "rows", len(seq))
	return nil
}

// Reload re-reads the current schedule file. Used by the file watcher; the
// sequence swap inside Load implicitly pauses a running playback.
func (c *Controller) Reload() error {
	c.mu.Lock()
	path := c.path
	c.mu.Unlock()

	if path == "" {
		return ErrNoSequence
	}
	return c.Load(path)
}

// Play starts playback.
func (c *Controller) Play() error { return c.seq.Play() }

// Pause stops playback before the next tick.
func (c *Controller) Pause() error { return c.seq.Pause() }

// Reset moves back to the first row while paused.
func (c *Controller) Reset() error { return c.seq.Reset() }

// Jump selects a row while paused.
func (c *Controller) Jump(i int) error { return c.seq.Jump(i) }

// SetRepeats sets the remaining repeat count.
func (c *Controller) SetRepeats(n int) error { return c.seq.SetRepeats(n) }

// Status returns playback state plus banner and path.
func (c *Controller) Status() Status {
	c.mu.Lock()
	path, banner := c.path, c.banner
	c.mu.Unlock()

	return Status{
		State:  c.seq.Snapshot(),
		Path:   path,
		Banner: banner,
	}
}

// Banner returns the current banner message, empty when clear.
func (c *Controller) Banner() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.banner
}

func (c *Controller) setBanner(msg string) {
	c.mu.Lock()
	c.banner = msg
	c.mu.Unlock()
}

// reportSendError surfaces a non-timeout send failure. Playback continues;
// the failure only replaces the banner.
func (c *Controller) reportSendError(err error) {
	c.setBanner(fmt.Sprintf("Failed to send setpoint: %v", err))
}

// loadErrorMessage maps a load failure onto its user-facing banner text,
// one distinct message per error kind.
func loadErrorMessage(path string, err error) string {
	var perr *schedule.ParseError
	switch {
	case errors.Is(err, schedule.ErrNotFound):
		return fmt.Sprintf("Schedule file not found: %s", path)
	case errors.Is(err, schedule.ErrPermissionDenied):
		return fmt.Sprintf("Schedule file is not readable: %s", path)
	case errors.As(err, &perr):
		return fmt.Sprintf("Invalid schedule row %d: %s", perr.Row, perr.Raw)
	case errors.Is(err, schedule.ErrEmptySequence):
		return fmt.Sprintf("Schedule file has no rows: %s", path)
	default:
		return fmt.Sprintf("Failed to read schedule file: %v", err)
	}
}
