package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config is the whole bot configuration. Durations are Go duration
// strings ("10s", "5m"); they are validated up front and read through
// the typed accessors.
type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Logging   LoggingConfig   `json:"logging"`
	Storage   StorageConfig   `json:"storage"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Notify    NotifyConfig    `json:"notify,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// PollTimeout is the long-poll timeout; default "10s".
	PollTimeout string `json:"poll_timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

type StorageConfig struct {
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

type SchedulerConfig struct {
	// Timezone is an IANA zone name; reminders fire on its wall clock.
	// Empty means the host's local zone.
	Timezone string `json:"timezone,omitempty"`
	// ReconcileInterval is how often records and live jobs are compared;
	// default "5m".
	ReconcileInterval string `json:"reconcile_interval,omitempty"`
}

type NotifyConfig struct {
	RatePerSec float64 `json:"rate_per_sec,omitempty"`
	Burst      int     `json:"burst,omitempty"`
}

// Validate checks everything that would otherwise fail deep inside
// startup: required fields, duration syntax, the timezone name.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return errors.New("telegram.token is required")
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		return errors.New("storage.path is required")
	}
	if _, err := parseDurationField("telegram.poll_timeout", c.Telegram.PollTimeout); err != nil {
		return err
	}
	if _, err := parseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
		return err
	}
	if _, err := parseDurationField("scheduler.reconcile_interval", c.Scheduler.ReconcileInterval); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Notify.RatePerSec < 0 {
		return errors.New("notify.rate_per_sec must be >= 0")
	}
	return nil
}

// Location resolves the scheduler timezone.
func (c *Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Scheduler.Timezone)
	if tz == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("scheduler.timezone: unknown zone %q", tz)
	}
	return loc, nil
}

func (c *Config) PollTimeout() time.Duration {
	return durationOr(c.Telegram.PollTimeout, 10*time.Second)
}

func (c *Config) BusyTimeout() time.Duration {
	return durationOr(c.Storage.BusyTimeout, 5*time.Second)
}

func (c *Config) ReconcileInterval() time.Duration {
	return durationOr(c.Scheduler.ReconcileInterval, 5*time.Minute)
}

func parseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

// durationOr assumes raw already passed Validate.
func durationOr(raw string, def time.Duration) time.Duration {
	d, err := parseDurationField("", raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
