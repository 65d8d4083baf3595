package poller

import "time"

// Config controls poll cadence and payment expiry.
type Config struct {
	Interval time.Duration
	Timeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		Interval: 5 * time.Second,
		Timeout:  30 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.Interval <= 0 {
		c.Interval = defaults.Interval
	}
	if c.Timeout <= 0 {
		c.Timeout = defaults.Timeout
	}
	return c
}
