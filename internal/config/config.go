package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Auth       AuthConfig       `yaml:"auth"`
	Session    SessionConfig    `yaml:"session"`
	Connection ConnectionConfig `yaml:"connection"`
	History    HistoryConfig    `yaml:"history"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	// Origin is the backend origin, e.g. "https://oqto.local:8443".
	Origin string `yaml:"origin"`
}

type AuthConfig struct {
	// Token is a static bearer token. TokenFile takes precedence; the file
	// is re-read when it changes so rotated tokens pick up without a
	// restart.
	Token     string `yaml:"token"`
	TokenFile string `yaml:"token_file"`
}

type SessionConfig struct {
	Harness  string `yaml:"harness"`
	Cwd      string `yaml:"cwd"`
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

type ConnectionConfig struct {
	DialTimeout    string `yaml:"dial_timeout,omitempty"`    // e.g. "15s"
	RequestTimeout string `yaml:"request_timeout,omitempty"` // e.g. "30s"
	BackoffBase    string `yaml:"backoff_base,omitempty"`
	BackoffMax     string `yaml:"backoff_max,omitempty"`
	MaxReconnects  int    `yaml:"max_reconnects,omitempty"`
}

// Duration parses a duration field, returning fallback when unset.
func Duration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

type HistoryConfig struct {
	// Path is the local SQLite journal of agent events. Empty disables
	// journaling.
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Load reads configuration from a file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault loads the config file if it exists, otherwise returns a
// config built from environment variables alone.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		cfg := &Config{}
		cfg.applyEnv()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		return cfg, nil
	}
	return Load(path)
}

// applyEnv overrides file values with environment variables if present
func (c *Config) applyEnv() {
	if origin := os.Getenv("OQTO_ORIGIN"); origin != "" {
		c.Server.Origin = origin
	}
	if token := os.Getenv("OQTO_TOKEN"); token != "" {
		c.Auth.Token = token
	}
	if tokenFile := os.Getenv("OQTO_TOKEN_FILE"); tokenFile != "" {
		c.Auth.TokenFile = tokenFile
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Origin == "" {
		return fmt.Errorf("server.origin is required")
	}
	u, err := url.Parse(c.Server.Origin)
	if err != nil {
		return fmt.Errorf("server.origin is not a valid URL: %w", err)
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return fmt.Errorf("server.origin scheme must be http(s) or ws(s), got %q", u.Scheme)
	}
	if c.Auth.Token == "" && c.Auth.TokenFile == "" {
		return fmt.Errorf("auth.token or auth.token_file is required")
	}
	if c.Connection.MaxReconnects < 0 {
		return fmt.Errorf("connection.max_reconnects must not be negative")
	}
	durations := map[string]string{
		"dial_timeout":    c.Connection.DialTimeout,
		"request_timeout": c.Connection.RequestTimeout,
		"backoff_base":    c.Connection.BackoffBase,
		"backoff_max":     c.Connection.BackoffMax,
	}
	for name, v := range durations {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("connection.%s: %w", name, err)
		}
	}
	return nil
}
