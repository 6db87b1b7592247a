// Package config loads pxengine settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config is the process-wide configuration. CLI flags default to these
// values and override them when set.
type Config struct {
	DBPath   string `env:"PXENGINE_DB" envDefault:"pxengine.db"`
	LogLevel string `env:"PXENGINE_LOG_LEVEL" envDefault:"info"`
	Workers  int    `env:"PXENGINE_WORKERS" envDefault:"4"`
	Async    bool   `env:"PXENGINE_ASYNC" envDefault:"false"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports invalid values.
func (c Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("PXENGINE_DB must not be empty")
	}
	if c.Workers < 1 {
		return fmt.Errorf("PXENGINE_WORKERS must be at least 1, got %d", c.Workers)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps debug/info/warn/error (case-insensitive) to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("PXENGINE_LOG_LEVEL: unknown level %q", s)
	}
	return level, nil
}
