package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load parses environment variables into the provided struct.
// The struct should use `env` tags to define mappings.
//
// Example:
//
//	type Config struct {
//	    Port     int    `env:"HTTP_PORT" envDefault:"8080"`
//	    LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
//	}
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// RequireSecret rejects a signing secret that was left at its placeholder or
// is shorter than minLen. Development environments skip the check.
func RequireSecret(environment, name, value, placeholder string, minLen int) error {
	if environment == "development" {
		return nil
	}
	if value == placeholder {
		return fmt.Errorf("%s must be explicitly set via environment variable in %q mode", name, environment)
	}
	if len(value) < minLen {
		return fmt.Errorf("%s must be at least %d characters long, got %d", name, minLen, len(value))
	}
	return nil
}
