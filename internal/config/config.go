// Package config loads litctl configuration from a YAML file, applying
// defaults for missing fields and validating the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lightbench/litctl/internal/logging"
)

// Default values for Config.
const (
	DefaultSendDeadlineMs = 1000
	DefaultPollPeriodMs   = 100
	DefaultWindowSeconds  = 10
	DefaultYMin           = -1.0
	DefaultYMax           = 2.0
	DefaultIntervalMin    = 0
	DefaultIntervalMax    = 1000
	DefaultIntervalStep   = 5
	DefaultServerPort     = 8417
	DefaultLogLevel       = "info"
)

// Device holds device communication settings.
type Device struct {
	// SendDeadlineMs bounds each outbound setpoint send.
	SendDeadlineMs int `yaml:"send_deadline_ms"`
	// PollPeriodMs is the telemetry poll interval.
	PollPeriodMs int `yaml:"poll_period_ms"`
}

// SendDeadline returns the send deadline as a duration.
func (d Device) SendDeadline() time.Duration {
	return time.Duration(d.SendDeadlineMs) * time.Millisecond
}

// PollPeriod returns the poll period as a duration.
func (d Device) PollPeriod() time.Duration {
	return time.Duration(d.PollPeriodMs) * time.Millisecond
}

// Telemetry holds chart window settings.
type Telemetry struct {
	WindowSeconds int     `yaml:"window_seconds"`
	YMin          float64 `yaml:"y_min"`
	YMax          float64 `yaml:"y_max"`
}

// WindowSpan returns the chart window as a duration.
func (t Telemetry) WindowSpan() time.Duration {
	return time.Duration(t.WindowSeconds) * time.Second
}

// Control holds the interval slider bounds.
type Control struct {
	IntervalMin  int `yaml:"interval_min"`
	IntervalMax  int `yaml:"interval_max"`
	IntervalStep int `yaml:"interval_step"`
}

// Server holds the optional web monitor settings.
type Server struct {
	Port         int    `yaml:"port"`
	PasswordHash string `yaml:"password_hash,omitempty"`
}

// Config is the root configuration.
type Config struct {
	Device    Device    `yaml:"device"`
	Telemetry Telemetry `yaml:"telemetry"`
	Control   Control   `yaml:"control"`
	Server    *Server   `yaml:"server,omitempty"`
	LogLevel  string    `yaml:"log_level"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Device: Device{
			SendDeadlineMs: DefaultSendDeadlineMs,
			PollPeriodMs:   DefaultPollPeriodMs,
		},
		Telemetry: Telemetry{
			WindowSeconds: DefaultWindowSeconds,
			YMin:          DefaultYMin,
			YMax:          DefaultYMax,
		},
		Control: Control{
			IntervalMin:  DefaultIntervalMin,
			IntervalMax:  DefaultIntervalMax,
			IntervalStep: DefaultIntervalStep,
		},
		LogLevel: DefaultLogLevel,
	}
}

// ValidationError reports an invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// Load reads the config file at path. A missing file yields the defaults;
// present fields override them.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := Default()
			return &cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that all config values are usable.
func Validate(cfg *Config) error {
	if cfg.Device.SendDeadlineMs <= 0 {
		return ValidationError{Field: "device.send_deadline_ms", Message: "must be positive"}
	}
	if cfg.Device.PollPeriodMs <= 0 {
		return ValidationError{Field: "device.poll_period_ms", Message: "must be positive"}
	}
	if cfg.Telemetry.WindowSeconds <= 0 {
		return ValidationError{Field: "telemetry.window_seconds", Message: "must be positive"}
	}
	if cfg.Telemetry.YMin >= cfg.Telemetry.YMax {
		return ValidationError{Field: "telemetry.y_min", Message: "must be below y_max"}
	}
	if cfg.Control.IntervalMin < 0 {
		return ValidationError{Field: "control.interval_min", Message: "must be non-negative"}
	}
	if cfg.Control.IntervalMax <= cfg.Control.IntervalMin {
		return ValidationError{Field: "control.interval_max", Message: "must be above interval_min"}
	}
	if cfg.Control.IntervalStep <= 0 {
		return ValidationError{Field: "control.interval_step", Message: "must be positive"}
	}
	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		return ValidationError{Field: "log_level", Message: err.Error()}
	}

	if cfg.Server != nil {
		if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
			return ValidationError{Field: "server.port", Message: "must be between 0 and 65535"}
		}
	}

	return nil
}
