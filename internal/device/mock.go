package device

import (
	"context"
	"sync"
	"time"
)

// Mock implements Transport, Gauge and Settings for tests. It records every
// call and allows per-method overrides for error injection and latency.
// Exported so tests in other packages can use it.
type Mock struct {
	mu sync.Mutex

	// Overrides. When set, they take precedence over the defaults.
	sendFunc func(ctx context.Context, channel string, value float64) (*Ack, error)
	readFunc func(ctx context.Context, channel string) (float64, error)

	// Default gauge values per channel.
	gauges map[string]float64

	interval int

	sendCalls        []MockSendCall
	readCalls        []string
	setIntervalCalls []int
}

// MockSendCall records a Send invocation.
type MockSendCall struct {
	Channel string
	Value   float64
}

// NewMock creates a Mock with empty state.
func NewMock() *Mock {
	return &Mock{gauges: make(map[string]float64)}
}

// SetSendFunc installs an override for Send.
func (m *Mock) SetSendFunc(fn func(ctx context.Context, channel string, value float64) (*Ack, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendFunc = fn
}

// SetReadFunc installs an override for Read.
func (m *Mock) SetReadFunc(fn func(ctx context.Context, channel string) (float64, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readFunc = fn
}

// SetGauge sets the default value returned by Read for a channel.
func (m *Mock) SetGauge(channel string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges[channel] = value
}

// Send records the call and returns an Ack, or delegates to the override.
func (m *Mock) Send(ctx context.Context, channel string, value float64) (*Ack, error) {
	m.mu.Lock()
	m.sendCalls = append(m.sendCalls, MockSendCall{Channel: channel, Value: value})
	fn := m.sendFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, channel, value)
	}
	return &Ack{Channel: channel, At: time.Now()}, nil
}

// Read records the call and returns the configured gauge value, or delegates
// to the override.
func (m *Mock) Read(ctx context.Context, channel string) (float64, error) {
	m.mu.Lock()
	m.readCalls = append(m.readCalls, channel)
	fn := m.readFunc
	value := m.gauges[channel]
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, channel)
	}
	return value, nil
}

// Interval returns the stored interval setting.
func (m *Mock) Interval() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.interval
}

// SetInterval records and stores the interval setting.
func (m *Mock) SetInterval(ms int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setIntervalCalls = append(m.setIntervalCalls, ms)
	m.interval = ms
	return nil
}

// SendCalls returns a copy of the recorded Send calls.
func (m *Mock) SendCalls() []MockSendCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockSendCall(nil), m.sendCalls...)
}

// ReadCalls returns a copy of the recorded Read channels.
func (m *Mock) ReadCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.readCalls...)
}

// SetIntervalCalls returns a copy of the recorded SetInterval values.
func (m *Mock) SetIntervalCalls() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.setIntervalCalls...)
}
