package session

import (
	"os"
	"time"
)

// Config defines runtime configuration for the session subsystem.
type Config struct {
	// IdleTimeout is the fixed idle window: a session expires when no
	// successful validation happens for this long. Every successful
	// validation pushes expires-at to now + IdleTimeout.
	IdleTimeout time.Duration
}

// DefaultConfig returns the default configuration (1-minute idle timeout).
func DefaultConfig() Config {
	return Config{
		IdleTimeout: 1 * time.Minute,
	}
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Optional (durations must be valid Go duration strings):
//   - TELLER_SESSION_IDLE_TIMEOUT
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("TELLER_SESSION_IDLE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.IdleTimeout = d
	}

	return cfg, nil
}
