// Package config loads campaigner settings from .campaigner/config.yaml with
// environment overrides.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultDir is the per-workspace state directory.
const DefaultDir = ".campaigner"

// Config holds all campaigner configuration.
type Config struct {
	Name string `yaml:"name"`

	// Collaborator API
	API APIConfig `yaml:"api"`

	// Generation Request Manager behaviour
	Generation GenerationConfig `yaml:"generation"`

	// Publish Coordinator behaviour
	Publish PublishConfig `yaml:"publish"`

	// Local state database
	Store StoreConfig `yaml:"store"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig configures the JSON-over-HTTP client.
type APIConfig struct {
	BaseURL   string `yaml:"base_url"`
	Timeout   string `yaml:"timeout"`
	UserAgent string `yaml:"user_agent"`
	// SlowCallThreshold logs a warning for calls that take longer.
	SlowCallThreshold string `yaml:"slow_call_threshold"`
}

// GenerationConfig configures overlapping generate handling.
type GenerationConfig struct {
	// RejectOverlapping fails a generate call while another is in flight
	// instead of letting the last-initiated call win.
	RejectOverlapping bool `yaml:"reject_overlapping"`
}

// PublishConfig configures publishing defaults.
type PublishConfig struct {
	DefaultPlatform string `yaml:"default_platform"`
	MaxParallel     int    `yaml:"max_parallel"`
	// ClaimTTL is how long a publish claim held by another run is honoured
	// before it is treated as abandoned.
	ClaimTTL string `yaml:"claim_ttl"`
}

// StoreConfig configures the local SQLite state.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level"`  // debug, info, warn, error
	Format     string          `yaml:"format"` // json, text
	DebugMode  bool            `yaml:"debug_mode"`
	Dir        string          `yaml:"dir"`
	Categories map[string]bool `yaml:"categories,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name: "campaigner",
		API: APIConfig{
			BaseURL:           "http://localhost:5000",
			Timeout:           "60s",
			UserAgent:         "campaigner/1.0",
			SlowCallThreshold: "20s",
		},
		Generation: GenerationConfig{
			RejectOverlapping: false,
		},
		Publish: PublishConfig{
			DefaultPlatform: "twitter",
			MaxParallel:     2,
			ClaimTTL:        "10m",
		},
		Store: StoreConfig{
			Path: filepath.Join(DefaultDir, "state.db"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Dir:    filepath.Join(DefaultDir, "logs"),
		},
	}
}

// DefaultPath returns the config path inside the current workspace.
func DefaultPath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return filepath.Join(DefaultDir, "config.yaml")
	}
	return filepath.Join(cwd, DefaultDir, "config.yaml")
}

// Load loads configuration from a YAML file.
// A missing file yields the defaults; environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid api.base_url %q: expected an absolute http(s) URL", c.API.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid api.base_url scheme %q", u.Scheme)
	}
	if c.Publish.MaxParallel < 0 {
		return fmt.Errorf("publish.max_parallel must not be negative")
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path must be set")
	}
	return nil
}

// GetAPITimeout returns the API timeout as a duration.
func (c *Config) GetAPITimeout() time.Duration {
	d, err := time.ParseDuration(c.API.Timeout)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// GetMaxParallel returns the publish fan-out bound, at least 1.
func (c *Config) GetMaxParallel() int {
	if c.Publish.MaxParallel < 1 {
		return 1
	}
	return c.Publish.MaxParallel
}

// GetSlowCallThreshold returns the slow-call warning threshold.
func (c *Config) GetSlowCallThreshold() time.Duration {
	d, err := time.ParseDuration(c.API.SlowCallThreshold)
	if err != nil || d <= 0 {
		return 20 * time.Second
	}
	return d
}

// GetClaimTTL returns the publish claim expiry. It never drops below the
// API timeout, so a live call cannot lose its claim.
func (c *Config) GetClaimTTL() time.Duration {
	d, err := time.ParseDuration(c.Publish.ClaimTTL)
	if err != nil || d <= 0 {
		d = 10 * time.Minute
	}
	if timeout := c.GetAPITimeout(); d < timeout {
		d = timeout
	}
	return d
}
