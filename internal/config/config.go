// Package config loads emulator configuration from the environment.
package config

import (
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	Port int `envconfig:"PORT" default:"7557"`

	// DataDir is the persistence root. If empty, persistence is disabled
	// and the emulator runs purely in-memory.
	DataDir string `envconfig:"DATA_DIR"`

	// SeedFile points at the YAML fixture describing preset users and
	// channels loaded at startup.
	SeedFile string `envconfig:"SEED_FILE" default:"./seed.yaml"`
}

// Load reads configuration from the process environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// PersistenceEnabled reports whether DATA_DIR was configured.
func (c *Config) PersistenceEnabled() bool {
	return c.DataDir != ""
}
