// Package config loads the optional logport configuration file.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSleep is the receive-loop pause, in seconds, used when the
// configuration file is absent or carries no usable value.
const DefaultSleep = 1.0

// Config is the on-disk configuration. Only the socket tuning section is
// consumed by the server core.
type Config struct {
	Socket SocketConfig `yaml:"socket"`
}

// SocketConfig tunes the socket receive loop.
type SocketConfig struct {
	// Sleep is the pause between two consecutive receive attempts,
	// in seconds. Nil when the file carries no value.
	Sleep *float64 `yaml:"sleep"`
}

// Load reads the configuration at path. A missing file, unreadable file
// or broken document is not fatal: startup proceeds on defaults and the
// reason is returned alongside so the caller can log it.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return &cfg, err
	}
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return &Config{}, err
	}
	return &cfg, nil
}

// ReceiveInterval converts the configured sleep value to a duration,
// falling back to DefaultSleep when no valid value is present.
func (c *Config) ReceiveInterval() time.Duration {
	sleep := DefaultSleep
	if c.Socket.Sleep != nil && *c.Socket.Sleep > 0 {
		sleep = *c.Socket.Sleep
	}
	return time.Duration(sleep * float64(time.Second))
}

// HasSleep reports whether the file provided a usable sleep value.
func (c *Config) HasSleep() bool {
	return c.Socket.Sleep != nil && *c.Socket.Sleep > 0
}
