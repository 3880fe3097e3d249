package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CAMPAIGNER_API_URL", "CAMPAIGNER_TIMEOUT", "CAMPAIGNER_DB",
		"CAMPAIGNER_LOG_LEVEL", "CAMPAIGNER_REJECT_OVERLAPPING",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "campaigner", cfg.Name)
	assert.Equal(t, "http://localhost:5000", cfg.API.BaseURL)
	assert.Equal(t, "twitter", cfg.Publish.DefaultPlatform)
	assert.False(t, cfg.Generation.RejectOverlapping)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_SaveLoad(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.API.BaseURL = "https://marketing.example.com"
	cfg.Generation.RejectOverlapping = true
	cfg.Publish.MaxParallel = 4
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://marketing.example.com", loaded.API.BaseURL)
	assert.True(t, loaded.Generation.RejectOverlapping)
	assert.Equal(t, 4, loaded.GetMaxParallel())
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().API, cfg.API)
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api: [unterminated"), 0644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "failed to parse config")
}

func TestEnvOverrides(t *testing.T) {
	t.Run("values win over file", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CAMPAIGNER_API_URL", "http://api.internal:8080")
		t.Setenv("CAMPAIGNER_TIMEOUT", "5s")
		t.Setenv("CAMPAIGNER_DB", "/tmp/state.db")
		t.Setenv("CAMPAIGNER_REJECT_OVERLAPPING", "true")

		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.NoError(t, err)
		assert.Equal(t, "http://api.internal:8080", cfg.API.BaseURL)
		assert.Equal(t, 5*time.Second, cfg.GetAPITimeout())
		assert.Equal(t, "/tmp/state.db", cfg.Store.Path)
		assert.True(t, cfg.Generation.RejectOverlapping)
	})

	t.Run("log level enables debug mode", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CAMPAIGNER_LOG_LEVEL", "debug")

		cfg := DefaultConfig()
		require.NoError(t, cfg.applyEnvOverrides())
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.True(t, cfg.Logging.DebugMode)
	})

	t.Run("malformed bool is an error", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CAMPAIGNER_REJECT_OVERLAPPING", "maybe")

		cfg := DefaultConfig()
		err := cfg.applyEnvOverrides()
		assert.ErrorContains(t, err, "parse env:")
	})

	t.Run("unset leaves defaults", func(t *testing.T) {
		clearEnv(t)
		cfg := DefaultConfig()
		require.NoError(t, cfg.applyEnvOverrides())
		assert.Equal(t, DefaultConfig(), cfg)
	})
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.API.BaseURL = "localhost:5000"
	assert.Error(t, cfg.Validate())

	cfg.API.BaseURL = "ftp://example.com"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Publish.MaxParallel = -1
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Store.Path = ""
	assert.Error(t, cfg.Validate())
}

func TestConfig_Helpers(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 60*time.Second, cfg.GetAPITimeout())

	cfg.API.Timeout = "garbage"
	assert.Equal(t, 60*time.Second, cfg.GetAPITimeout())

	cfg.Publish.MaxParallel = 0
	assert.Equal(t, 1, cfg.GetMaxParallel())

	assert.Equal(t, 20*time.Second, cfg.GetSlowCallThreshold())
	cfg.API.SlowCallThreshold = "2s"
	assert.Equal(t, 2*time.Second, cfg.GetSlowCallThreshold())

	assert.Equal(t, 10*time.Minute, cfg.GetClaimTTL())
	cfg.Publish.ClaimTTL = "90s"
	assert.Equal(t, 90*time.Second, cfg.GetClaimTTL())

	// A claim never expires before the call holding it can time out.
	cfg.Publish.ClaimTTL = "5s"
	cfg.API.Timeout = "30s"
	assert.Equal(t, 30*time.Second, cfg.GetClaimTTL())
}
