package bgrep

import (
	"fmt"
	"runtime"
)

const (
	// DefaultChunkSize is the default number of fresh bytes read per chunk (4 MiB).
	// The carried tail of the previous chunk is stored in addition to this.
	DefaultChunkSize = 4 * 1024 * 1024

	// DefaultMaxMatches disables the per-stream match limit.
	DefaultMaxMatches = 0
)

// Option is a function that configures a Scanner, ChunkReader or Search.
type Option func(*config) error

// config holds the configuration for scanning.
type config struct {
	chunkSize  int
	workers    int
	maxMatches int
}

func defaultConfig() *config {
	return &config{
		chunkSize:  DefaultChunkSize,
		workers:    runtime.NumCPU(),
		maxMatches: DefaultMaxMatches,
	}
}

// newConfig applies opts on top of the defaults and validates the result.
func newConfig(opts ...Option) (*config, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks that the configuration is valid.
func (c *config) validate() error {
	if c.chunkSize <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidChunkSize, c.chunkSize)
	}

	if c.workers <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidWorkers, c.workers)
	}

	if c.maxMatches < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidMaxMatches, c.maxMatches)
	}

	return nil
}

// WithChunkSize sets the number of bytes read from the stream per chunk.
// It only trades memory for read syscalls; results never depend on it.
func WithChunkSize(size int) Option {
	return func(c *config) error {
		if size <= 0 {
			return fmt.Errorf("%w: got %d", ErrInvalidChunkSize, size)
		}

		c.chunkSize = size

		return nil
	}
}

// WithWorkers sets how many streams Search scans concurrently.
func WithWorkers(n int) Option {
	return func(c *config) error {
		if n <= 0 {
			return fmt.Errorf("%w: got %d", ErrInvalidWorkers, n)
		}

		c.workers = n

		return nil
	}
}

// WithMaxMatches stops scanning a stream after n matches.
// Zero means no limit.
func WithMaxMatches(n int) Option {
	return func(c *config) error {
		if n < 0 {
			return fmt.Errorf("%w: got %d", ErrInvalidMaxMatches, n)
		}

		c.maxMatches = n

		return nil
	}
}
