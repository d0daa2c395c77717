// Package device defines the contracts for talking to the bench device:
// an acknowledged outbound value transport, an instantaneous gauge for
// telemetry reads, and a read/write interval setting. A simulator and a
// recording mock implement all three for local runs and tests.
package device

import (
	"context"
	"errors"
	"time"
)

// Channel names used by the bench device.
const (
	// ChannelLitTime carries the LED on-duration: outbound setpoints during
	// playback, and the device-side interval setting behind the slider.
	ChannelLitTime = "lit_time"

	// ChannelLEDState is the inbound telemetry value sampled for the chart.
	ChannelLEDState = "led_state"
)

// Sentinel errors returned by transports.
var (
	// ErrUnknownChannel is returned for a channel the device does not expose.
	ErrUnknownChannel = errors.New("unknown device channel")

	// ErrNotConnected is returned when the device link is down.
	ErrNotConnected = errors.New("device not connected")
)

// Ack confirms that the device accepted a transmitted value.
type Ack struct {
	Channel string
	At      time.Time
}

// Transport sends named values to the device and waits for acknowledgment.
// Implementations must honor ctx cancellation and deadlines; the caller
// bounds each send with its own deadline.
type Transport interface {
	Send(ctx context.Context, channel string, value float64) (*Ack, error)
}

// Gauge reads the current value of a named device channel.
type Gauge interface {
	Read(ctx context.Context, channel string) (float64, error)
}

// Settings exposes the device-side interval setting in milliseconds.
type Settings interface {
	Interval() int
	SetInterval(ms int) error
}
