package engine

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/JesseRWeigel/stay-focused/pkg/feedback"
	"github.com/JesseRWeigel/stay-focused/pkg/identity"
	"gopkg.in/yaml.v3"
)

// DefaultDemoDeviceID is the sentinel identifier that selects demo mode.
const DefaultDemoDeviceID = "demo"

// Config is the top-level engine configuration.
type Config struct {
	Dir      string         `yaml:"-"` // Set by CLI, not from YAML.
	Provider ProviderConfig `yaml:"provider"`
	Storage  StorageConfig  `yaml:"storage"`
	Feedback FeedbackConfig `yaml:"feedback"`
	Demo     DemoConfig     `yaml:"demo"`
	Stream   StreamConfig   `yaml:"stream"`
	Status   StatusConfig   `yaml:"status"`
	Log      LogConfig      `yaml:"log"`
}

// ProviderConfig describes the device cloud API.
type ProviderConfig struct {
	BaseURL      string `yaml:"base_url"`
	APIKey       string `yaml:"api_key"` //nolint:gosec // configuration field, not a hardcoded secret
	APIKeyHeader string `yaml:"api_key_header"`
	SessionCache bool   `yaml:"session_cache"`
}

// StorageConfig selects the identity store driver.
type StorageConfig struct {
	Driver string `yaml:"driver"` // sqlite | file | memory
}

// FeedbackConfig tunes the feedback controller and its sinks.
type FeedbackConfig struct {
	Threshold         float64       `yaml:"threshold"`
	Pulse             time.Duration `yaml:"pulse"`
	NotifyMinInterval time.Duration `yaml:"notify_min_interval"`
	NotifyCommand     string        `yaml:"notify_command"`
	Notifications     bool          `yaml:"notifications"` // Permission granted in an earlier run.
	AlertColor        string        `yaml:"alert_color"`
}

// DemoConfig controls demo mode.
type DemoConfig struct {
	DeviceID string        `yaml:"device_id"`
	Interval time.Duration `yaml:"interval"`
}

// StreamConfig controls focus stream recovery.
type StreamConfig struct {
	ReconnectAttempts int           `yaml:"reconnect_attempts"`
	ReconnectDelay    time.Duration `yaml:"reconnect_delay"`
}

// StatusConfig controls the optional HTTP status server.
type StatusConfig struct {
	Addr string `yaml:"addr"` // Empty disables the server.
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `yaml:"level"` // debug | info | warn | error
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() Config {
	var c Config
	c.applyDefaults()

	return c
}

// LoadConfig reads a YAML file and returns a Config with defaults applied.
// Environment variables referenced as ${VAR} or $VAR in the YAML are expanded
// before parsing, so the API key can live in a .env file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided configuration, not user input
	if err != nil {
		return Config{}, fmt.Errorf("engine: load config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("engine: parse config: %w", err)
	}

	cfg.applyDefaults()

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Storage.Driver == "" {
		c.Storage.Driver = identity.DriverSQLite
	}
	if c.Provider.APIKeyHeader == "" {
		c.Provider.APIKeyHeader = "X-Api-Key"
	}
	if c.Feedback.Threshold == 0 {
		c.Feedback.Threshold = feedback.DefaultThreshold
	}
	if c.Feedback.Pulse == 0 {
		c.Feedback.Pulse = feedback.DefaultPulse
	}
	if c.Feedback.NotifyMinInterval == 0 {
		c.Feedback.NotifyMinInterval = time.Minute
	}
	if c.Feedback.NotifyCommand == "" {
		c.Feedback.NotifyCommand = "notify-send"
	}
	if c.Feedback.AlertColor == "" {
		c.Feedback.AlertColor = "#8b0000"
	}
	if c.Demo.DeviceID == "" {
		c.Demo.DeviceID = DefaultDemoDeviceID
	}
	if c.Demo.Interval == 0 {
		c.Demo.Interval = time.Second
	}
	if c.Stream.ReconnectAttempts == 0 {
		c.Stream.ReconnectAttempts = 3
	}
	if c.Stream.ReconnectDelay == 0 {
		c.Stream.ReconnectDelay = 2 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks that the configuration is internally consistent.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case identity.DriverSQLite, identity.DriverFile, identity.DriverMemory:
	default:
		return fmt.Errorf("engine: config: unknown storage driver %q", c.Storage.Driver)
	}

	if c.Feedback.Threshold <= 0 || c.Feedback.Threshold > 1 {
		return fmt.Errorf("engine: config: feedback threshold %v out of range (0, 1]", c.Feedback.Threshold)
	}

	if c.Feedback.Pulse < 0 {
		return fmt.Errorf("engine: config: feedback pulse must not be negative")
	}

	if strings.TrimSpace(c.Demo.DeviceID) == "" {
		return fmt.Errorf("engine: config: demo device_id is required")
	}

	if c.Demo.Interval <= 0 {
		return fmt.Errorf("engine: config: demo interval must be positive")
	}

	if c.Stream.ReconnectAttempts < 0 {
		return fmt.Errorf("engine: config: stream reconnect_attempts must not be negative")
	}

	if c.Stream.ReconnectDelay <= 0 {
		return fmt.Errorf("engine: config: stream reconnect_delay must be positive")
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("engine: config: %w", err)
	}

	return nil
}

// ParseLevel maps a config level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}

	return l, nil
}
