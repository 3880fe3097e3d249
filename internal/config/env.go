package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// envOverrides lists the environment variables that win over the YAML file.
type envOverrides struct {
	APIURL            string `env:"CAMPAIGNER_API_URL"`
	Timeout           string `env:"CAMPAIGNER_TIMEOUT"`
	DatabasePath      string `env:"CAMPAIGNER_DB"`
	LogLevel          string `env:"CAMPAIGNER_LOG_LEVEL"`
	RejectOverlapping *bool  `env:"CAMPAIGNER_REJECT_OVERLAPPING"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	var raw envOverrides
	if err := ParseEnv(&raw); err != nil {
		return err
	}

	if raw.APIURL != "" {
		c.API.BaseURL = raw.APIURL
	}
	if raw.Timeout != "" {
		c.API.Timeout = raw.Timeout
	}
	if raw.DatabasePath != "" {
		c.Store.Path = raw.DatabasePath
	}
	if raw.LogLevel != "" {
		c.Logging.Level = raw.LogLevel
		c.Logging.DebugMode = true
	}
	if raw.RejectOverlapping != nil {
		c.Generation.RejectOverlapping = *raw.RejectOverlapping
	}
	return nil
}
