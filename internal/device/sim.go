package device

import (
	"context"
	"sync"
	"time"
)

// DefaultSimInterval is the initial interval setting for a fresh simulator.
const DefaultSimInterval = 500

// Sim is an in-process stand-in for the bench device. Sends are acknowledged
// immediately, the interval setting is held in memory, and the led_state
// gauge synthesizes a square wave whose on-duration follows the last
// transmitted lit_time value. It lets the CLI run end to end with no
// hardware attached.
type Sim struct {
	mu       sync.Mutex
	interval int
	litTime  float64
	start    time.Time
	now      func() time.Time
}

// NewSim creates a simulator with default settings.
func NewSim() *Sim {
	now := time.Now
	return &Sim{
		interval: DefaultSimInterval,
		litTime:  float64(DefaultSimInterval),
		start:    now(),
		now:      now,
	}
}

// Send acknowledges the value and, for lit_time, updates the simulated
// on-duration.
func (s *Sim) Send(ctx context.Context, channel string, value float64) (*Ack, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if channel != ChannelLitTime {
		return nil, ErrUnknownChannel
	}

	s.mu.Lock()
	s.litTime = value
	s.mu.Unlock()

	return &Ack{Channel: channel, At: s.now()}, nil
}

// Read returns the synthesized led_state: 1 while the LED is lit, 0 while it
// is dark. The LED is lit for litTime milliseconds out of every 2*litTime.
func (s *Sim) Read(ctx context.Context, channel string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if channel != ChannelLEDState {
		return 0, ErrUnknownChannel
	}

	s.mu.Lock()
	litTime := s.litTime
	start := s.start
	s.mu.Unlock()

	if litTime <= 0 {
		return 0, nil
	}

	elapsed := float64(s.now().Sub(start)) / float64(time.Millisecond)
	phase := elapsed - float64(int64(elapsed/(2*litTime)))*2*litTime
	if phase < litTime {
		return 1, nil
	}
	return 0, nil
}

// Interval returns the stored interval setting.
func (s *Sim) Interval() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// SetInterval stores the interval setting.
func (s *Sim) SetInterval(ms int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interval = ms
	return nil
}
