// Package config loads the client configuration: defaults, then an optional
// YAML file, then environment overrides. Command-line flags are applied last
// by the CLI.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Переменные окружения
const (
	EnvServerURL = "JUSTICE_SERVER_URL"
	EnvToken     = "JUSTICE_TOKEN"
)

// ErrInvalidConfig indicates a configuration value that failed validation
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the client configuration
type Config struct {
	ServerURL string `yaml:"server_url"`
	Token     string `yaml:"token"`
	DBPath    string `yaml:"db_path"`
	LogLevel  string `yaml:"log_level"`
	Sync      Sync   `yaml:"sync"`
	Offline   bool   `yaml:"offline"`
}

// Sync holds queue and replay tunables
type Sync struct {
	CallTimeout   time.Duration `yaml:"call_timeout"`
	BackoffBase   time.Duration `yaml:"backoff_base"`
	BackoffMax    time.Duration `yaml:"backoff_max"`
	Debounce      time.Duration `yaml:"debounce"`
	ProbeInterval time.Duration `yaml:"probe_interval"`
	ProbeTimeout  time.Duration `yaml:"probe_timeout"`
	MappingTTL    time.Duration `yaml:"mapping_ttl"`
	MaxAttempts   int           `yaml:"max_attempts"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		ServerURL: "http://localhost:8080",
		DBPath:    "justice-client.db",
		LogLevel:  "warn",
		Sync: Sync{
			CallTimeout:   30 * time.Second,
			BackoffBase:   time.Second,
			BackoffMax:    5 * time.Minute,
			Debounce:      2 * time.Second,
			ProbeInterval: 15 * time.Second,
			ProbeTimeout:  5 * time.Second,
			MappingTTL:    30 * 24 * time.Hour,
			MaxAttempts:   10,
		},
	}
}

// Load reads path over the defaults. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}

// ApplyEnv overrides values from the environment through lookup (os.LookupEnv in production)
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvServerURL); ok && v != "" {
		c.ServerURL = v
	}
	if v, ok := lookup(EnvToken); ok {
		c.Token = v
	}
}

// Validate checks the configuration
func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: server_url %q must be an http(s) URL", ErrInvalidConfig, c.ServerURL)
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("%w: db_path is required", ErrInvalidConfig)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Sync.MaxAttempts < 0 {
		return fmt.Errorf("%w: max_attempts cannot be negative", ErrInvalidConfig)
	}
	if c.Sync.BackoffMax > 0 && c.Sync.BackoffBase > c.Sync.BackoffMax {
		return fmt.Errorf("%w: backoff_base exceeds backoff_max", ErrInvalidConfig)
	}
	return nil
}

// ParseLevel converts a level name into a slog.Level
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, level)
	}
}
