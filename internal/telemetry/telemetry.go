// Package telemetry samples named device values on a recurring poll and
// maintains the rolling window rendered on the live chart.
package telemetry

import (
	"context"
	"time"

	"github.com/lightbench/litctl/internal/device"
	"github.com/lightbench/litctl/internal/logging"
)

// DefaultPollPeriod is the recurring poll interval for telemetry reads.
const DefaultPollPeriod = 100 * time.Millisecond

// Sample is one telemetry reading.
type Sample struct {
	At    time.Time `json:"at"`
	Value float64   `json:"value"`
}

// Source produces a stream of samples for a named channel. The stream is
// closed when ctx is cancelled.
type Source interface {
	Subscribe(ctx context.Context, channel string) (<-chan Sample, error)
}

// Poller adapts an instantaneous gauge into a Source by reading it on a
// fixed period. Read failures are logged and skipped; a slow consumer drops
// samples rather than stalling the poll loop.
type Poller struct {
	gauge  device.Gauge
	period time.Duration
	log    *logging.Logger
}

// NewPoller creates a Poller. A non-positive period falls back to
// DefaultPollPeriod.
func NewPoller(gauge device.Gauge, period time.Duration, log *logging.Logger) *Poller {
	if period <= 0 {
		period = DefaultPollPeriod
	}
	if log == nil {
		log = logging.Default()
	}
	return &Poller{gauge: gauge, period: period, log: log}
}

// Subscribe starts a poll loop for the channel and returns its sample
// stream.
func (p *Poller) Subscribe(ctx context.Context, channel string) (<-chan Sample, error) {
	out := make(chan Sample, 16)

	go func() {
		defer close(out)

		ticker := time.NewTicker(p.period)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case at := <-ticker.C:
				value, err := p.gauge.Read(ctx, channel)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					p.log.Debug("telemetry read failed", "channel", channel, "error", err)
					continue
				}

				select {
				case out <- Sample{At: at, Value: value}:
				default:
					// Consumer is behind; drop the sample.
				}
			}
		}
	}()

	return out, nil
}
