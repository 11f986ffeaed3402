package bgrep

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPatternFormat is returned when a hex pattern has an odd number
	// of digits or contains a character that is not a hex digit.
	ErrInvalidPatternFormat = errors.New("invalid pattern format")

	// ErrEmptyPattern is returned when a pattern resolves to zero bytes.
	ErrEmptyPattern = errors.New("empty pattern")

	// ErrNoPatterns is returned when a PatternSet is built from no patterns.
	ErrNoPatterns = errors.New("no patterns")

	// ErrInvalidChunkSize is returned when the chunk size is not positive.
	ErrInvalidChunkSize = errors.New("chunkSize must be greater than 0")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("workers must be greater than 0")

	// ErrInvalidMaxMatches is returned when the match limit is negative.
	ErrInvalidMaxMatches = errors.New("maxMatches must not be negative")

	// ErrInvalidOverlap is returned when a ChunkReader is created with a negative
	// overlap, or when a Matcher is given a chunk that carries too few bytes.
	ErrInvalidOverlap = errors.New("overlap must not be negative")

	// ErrStop may be returned by a Sink to end the scan of the current stream.
	// The scan then finishes without error.
	ErrStop = errors.New("stop scanning")
)

// PatternError reports a pattern specification that failed to compile.
type PatternError struct {
	Spec   string // Specification as given by the user
	Syntax Syntax // Syntax it was compiled with
	Err    error  // ErrInvalidPatternFormat or ErrEmptyPattern, possibly wrapped
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("%s pattern %q: %v", e.Syntax, e.Spec, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// StreamReadError reports an I/O failure while reading one stream.
// It is scoped to that stream; other streams of a Search are unaffected.
type StreamReadError struct {
	Name   string // Stream name, e.g. a file path
	Offset uint64 // Absolute offset at which the failed read started
	Err    error
}

func (e *StreamReadError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("read at offset %d: %v", e.Offset, e.Err)
	}

	return fmt.Sprintf("read %s at offset %d: %v", e.Name, e.Offset, e.Err)
}

func (e *StreamReadError) Unwrap() error {
	return e.Err
}
