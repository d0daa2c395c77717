package device

import "fmt"

// Slider bounds for the interval control surface.
const (
	DefaultIntervalMin  = 0
	DefaultIntervalMax  = 1000
	DefaultIntervalStep = 5
)

// IntervalControl binds a bounded, stepped control surface to the device
// interval setting. Values are clamped to [Min, Max] and snapped to the
// nearest step before being written through.
type IntervalControl struct {
	Min  int
	Max  int
	Step int

	settings Settings
}

// NewIntervalControl creates a control with the default slider bounds.
func NewIntervalControl(settings Settings) *IntervalControl {
	return &IntervalControl{
		Min:      DefaultIntervalMin,
		Max:      DefaultIntervalMax,
		Step:     DefaultIntervalStep,
		settings: settings,
	}
}

// Value reads the current device-side setting.
func (c *IntervalControl) Value() int {
	return c.settings.Interval()
}

// Set quantizes ms to the control's bounds and writes it to the device.
// Returns the value actually written.
func (c *IntervalControl) Set(ms int) (int, error) {
	ms = c.Quantize(ms)
	if err := c.settings.SetInterval(ms); err != nil {
		return 0, fmt.Errorf("failed to set device interval: %w", err)
	}
	return ms, nil
}

// Quantize clamps ms to [Min, Max] and snaps it to the nearest step.
func (c *IntervalControl) Quantize(ms int) int {
	if ms < c.Min {
		return c.Min
	}
	if ms > c.Max {
		return c.Max
	}
	if c.Step <= 1 {
		return ms
	}
	snapped := ((ms + c.Step/2) / c.Step) * c.Step
	if snapped > c.Max {
		snapped = c.Max
	}
	return snapped
}
