package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"collatz-checker/internal/store"
	"collatz-checker/internal/sweep"
)

// Store drivers
const (
	DriverNone   = "none"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Config holds all checker configuration.
type Config struct {
	Range   RangeConfig  `yaml:"range"`
	Policy  string       `yaml:"policy"` // halt, continue
	Workers int          `yaml:"workers"`
	Store   StoreConfig  `yaml:"store"`
	Log     LogConfig    `yaml:"log"`
	Server  ServerConfig `yaml:"server"`
}

// RangeConfig is the inclusive candidate range.
type RangeConfig struct {
	Lower uint64 `yaml:"lower"`
	Upper uint64 `yaml:"upper"`
}

// StoreConfig selects memo persistence.
type StoreConfig struct {
	Driver string `yaml:"driver"` // none, file, sqlite
	Path   string `yaml:"path"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Range: RangeConfig{
			Lower: sweep.DefaultLower,
			Upper: sweep.DefaultUpper,
		},
		Policy:  "halt",
		Workers: 1,
		Store: StoreConfig{
			Driver: DriverFile,
			Path:   "./memo.txt",
		},
		Log: LogConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// Load loads configuration from a YAML file.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

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

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("COLLATZ_DB_PATH"); path != "" {
		c.Store.Driver = DriverSQLite
		c.Store.Path = path
	}
	if path := os.Getenv("COLLATZ_MEMO_FILE"); path != "" {
		c.Store.Driver = DriverFile
		c.Store.Path = path
	}
	if level := os.Getenv("COLLATZ_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := c.SweepOptions().Validate(); err != nil {
		return fmt.Errorf("invalid range: %w", err)
	}
	if _, err := sweep.ParsePolicy(c.Policy); err != nil {
		return err
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}

	switch strings.ToLower(c.Store.Driver) {
	case "", DriverNone:
	case DriverFile, DriverSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for driver %q", c.Store.Driver)
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	return nil
}

// SweepOptions converts the range, policy and worker settings.
// An unknown policy falls back to halt; Validate reports it.
func (c *Config) SweepOptions() sweep.Options {
	policy, _ := sweep.ParsePolicy(c.Policy)
	return sweep.Options{
		Lower:   c.Range.Lower,
		Upper:   c.Range.Upper,
		Policy:  policy,
		Workers: c.Workers,
	}
}

// OpenStore builds the configured store. It returns a nil Store for driver
// "none". The close function is always safe to call.
func (c *Config) OpenStore(ctx context.Context) (store.Store, func() error, error) {
	noop := func() error { return nil }

	switch strings.ToLower(c.Store.Driver) {
	case "", DriverNone:
		return nil, noop, nil
	case DriverFile:
		return store.NewFileStore(c.Store.Path), noop, nil
	case DriverSQLite:
		s, err := store.OpenSQLite(ctx, c.Store.Path)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
}
