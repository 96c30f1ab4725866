package engine

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/JesseRWeigel/stay-focused/pkg/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, identity.DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "X-Api-Key", cfg.Provider.APIKeyHeader)
	assert.InDelta(t, 0.20, cfg.Feedback.Threshold, 1e-9)
	assert.Equal(t, 10*time.Second, cfg.Feedback.Pulse)
	assert.Equal(t, time.Minute, cfg.Feedback.NotifyMinInterval)
	assert.Equal(t, "notify-send", cfg.Feedback.NotifyCommand)
	assert.Equal(t, DefaultDemoDeviceID, cfg.Demo.DeviceID)
	assert.Equal(t, time.Second, cfg.Demo.Interval)
	assert.Equal(t, 3, cfg.Stream.ReconnectAttempts)
	assert.Equal(t, 2*time.Second, cfg.Stream.ReconnectDelay)
	assert.Equal(t, "info", cfg.Log.Level)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("STAYFOCUSED_TEST_KEY", "sk-test")

	path := writeConfig(t, `
provider:
  base_url: https://api.example.com
  api_key: ${STAYFOCUSED_TEST_KEY}
  session_cache: true
storage:
  driver: file
feedback:
  threshold: 0.3
  pulse: 5s
  notifications: true
demo:
  device_id: sandbox
stream:
  reconnect_attempts: 5
status:
  addr: 127.0.0.1:9464
log:
  level: debug
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.Provider.BaseURL)
	assert.Equal(t, "sk-test", cfg.Provider.APIKey)
	assert.True(t, cfg.Provider.SessionCache)
	assert.Equal(t, identity.DriverFile, cfg.Storage.Driver)
	assert.InDelta(t, 0.3, cfg.Feedback.Threshold, 1e-9)
	assert.Equal(t, 5*time.Second, cfg.Feedback.Pulse)
	assert.True(t, cfg.Feedback.Notifications)
	assert.Equal(t, "sandbox", cfg.Demo.DeviceID)
	assert.Equal(t, 5, cfg.Stream.ReconnectAttempts)
	assert.Equal(t, "127.0.0.1:9464", cfg.Status.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)

	// Untouched fields keep defaults.
	assert.Equal(t, time.Second, cfg.Demo.Interval)
	assert.Equal(t, "X-Api-Key", cfg.Provider.APIKeyHeader)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine: load config")
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := writeConfig(t, "feedback: [not, a, map]\n")

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine: parse config")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"unknown driver", func(c *Config) { c.Storage.Driver = "redis" }, "unknown storage driver"},
		{"threshold above one", func(c *Config) { c.Feedback.Threshold = 1.5 }, "threshold"},
		{"negative threshold", func(c *Config) { c.Feedback.Threshold = -0.1 }, "threshold"},
		{"negative pulse", func(c *Config) { c.Feedback.Pulse = -time.Second }, "pulse"},
		{"blank demo id", func(c *Config) { c.Demo.DeviceID = "  " }, "demo device_id"},
		{"zero demo interval", func(c *Config) { c.Demo.Interval = 0 }, "demo interval"},
		{"negative attempts", func(c *Config) { c.Stream.ReconnectAttempts = -1 }, "reconnect_attempts"},
		{"zero reconnect delay", func(c *Config) { c.Stream.ReconnectDelay = 0 }, "reconnect_delay"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "unknown log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
	}

	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseLevel("verbose")
	require.Error(t, err)
}
