// Package config loads the optional bgrep configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/kalbasit/bgrep"
	"github.com/kalbasit/bgrep/internal/logger"
)

// Color modes
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Offset formats
const (
	OffsetHex = "hex"
	OffsetDec = "dec"
)

// DefaultContextBytes is how many bytes after a match are shown by default.
const DefaultContextBytes = 20

// Config represents bgrep configuration options
type Config struct {
	// ChunkSize is the number of bytes read per chunk
	ChunkSize int `yaml:"-"`

	// Workers is the number of files searched concurrently
	Workers int `yaml:"workers"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// Color selects colored output: auto, always or never
	Color string `yaml:"color"`

	// OffsetFormat selects how offsets are printed: hex or dec
	OffsetFormat string `yaml:"offset_format"`

	// ContextBytes is the number of bytes shown after each match
	ContextBytes int `yaml:"context_bytes"`
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ChunkSize:    bgrep.DefaultChunkSize,
		Workers:      0, // NumCPU
		LogLevel:     "info",
		Color:        ColorAuto,
		OffsetFormat: OffsetHex,
		ContextBytes: DefaultContextBytes,
	}
}

// DefaultPath returns the default configuration file location,
// $XDG_CONFIG_HOME/bgrep/config.yaml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}

	return filepath.Join(dir, "bgrep", "config.yaml")
}

// LoadConfig loads configuration from the specified file path.
// If the file doesn't exist, returns default configuration without error.
// If the file exists but is malformed, returns an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// chunk_size is a human size string such as "4MiB"
	type yamlConfig struct {
		Config    `yaml:",inline"`
		ChunkSize string `yaml:"chunk_size"`
	}

	yamlCfg := yamlConfig{Config: *cfg}
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	*cfg = yamlCfg.Config

	if yamlCfg.ChunkSize != "" {
		size, err := ParseSize(yamlCfg.ChunkSize)
		if err != nil {
			return nil, fmt.Errorf("invalid chunk_size: %w", err)
		}

		cfg.ChunkSize = size
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return cfg, nil
}

// ParseSize parses a byte size such as "65536", "64KiB" or "4 MB".
func ParseSize(s string) (int, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}

	if n == 0 || n > 1<<31 {
		return 0, fmt.Errorf("size %s out of range", s)
	}

	return int(n), nil //nolint:gosec // G115: bounded above
}

// Validate checks that the configuration values are valid
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize)
	}

	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}

	if c.ContextBytes < 0 {
		return fmt.Errorf("context bytes must not be negative, got %d", c.ContextBytes)
	}

	if !logger.ValidLevel(c.LogLevel) {
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}

	switch strings.ToLower(c.Color) {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("invalid color mode %q (want auto, always or never)", c.Color)
	}

	switch strings.ToLower(c.OffsetFormat) {
	case OffsetHex, OffsetDec:
	default:
		return fmt.Errorf("invalid offset format %q (want hex or dec)", c.OffsetFormat)
	}

	return nil
}

// Options returns the library options matching the configuration.
func (c *Config) Options() []bgrep.Option {
	opts := []bgrep.Option{bgrep.WithChunkSize(c.ChunkSize)}
	if c.Workers > 0 {
		opts = append(opts, bgrep.WithWorkers(c.Workers))
	}

	return opts
}
