package bgrep

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// State is the lifecycle state of a Scanner for the stream being scanned.
type State uint8

const (
	StateIdle     State = iota // No stream yet
	StateReading               // Waiting for the next chunk
	StateScanning              // Searching a non-final chunk
	StateDraining              // Searching the final chunk
	StateDone                  // Stream fully scanned or stopped by the sink
	StateFailed                // Read, sink or context error
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReading:
		return "reading"
	case StateScanning:
		return "scanning"
	case StateDraining:
		return "draining"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Sink receives the matches of a scan in offset order.
// Returning ErrStop ends the scan without error; any other error aborts it.
type Sink interface {
	Match(m Match) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(m Match) error

// Match calls f(m).
func (f SinkFunc) Match(m Match) error {
	return f(m)
}

// Stats summarizes one scan.
type Stats struct {
	Bytes   uint64 // Bytes read from the stream
	Chunks  int    // Chunks scanned
	Matches int    // Matches delivered to the sink
	Stopped bool   // The sink or the match limit ended the scan early
}

// Scanner searches streams for the patterns of a PatternSet, one stream at a
// time. It reuses its buffers across calls to Scan.
//
// A Scanner is not safe for concurrent use. Create one per goroutine, or use
// a ScannerPool; the PatternSet itself may be shared.
type Scanner struct {
	set     *PatternSet
	cfg     config
	reader  *ChunkReader
	matcher *Matcher
	state   State
}

// NewScanner creates a Scanner for set.
func NewScanner(set *PatternSet, opts ...Option) (*Scanner, error) {
	if set == nil {
		return nil, ErrNoPatterns
	}

	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}

	return &Scanner{
		set:     set,
		cfg:     *cfg,
		reader:  newChunkReader(nil, set.Overlap(), cfg.chunkSize),
		matcher: NewMatcher(set),
	}, nil
}

// State returns the state of the most recent scan.
func (s *Scanner) State() State {
	return s.state
}

// Scan reads r to the end and delivers every match to sink.
// name identifies the stream in errors.
//
// The scan ends early, without error, when sink returns ErrStop or the
// WithMaxMatches limit is reached; no further reads are made. ctx is checked
// before every read.
func (s *Scanner) Scan(ctx context.Context, name string, r io.Reader, sink Sink) (Stats, error) {
	var stats Stats

	s.reader.Reset(r)
	s.matcher.Reset()
	s.state = StateIdle

	emit := func(m Match) error {
		err := sink.Match(m)
		if err != nil && !errors.Is(err, ErrStop) {
			return err
		}

		stats.Matches++

		if err != nil {
			return err
		}

		if s.cfg.maxMatches > 0 && stats.Matches >= s.cfg.maxMatches {
			return ErrStop
		}

		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			s.state = StateFailed

			return stats, err
		}

		s.state = StateReading

		chunk, err := s.reader.Next()
		if err != nil {
			s.state = StateFailed

			var rerr *StreamReadError
			if errors.As(err, &rerr) {
				rerr.Name = name
			}

			return stats, err
		}

		stats.Chunks++
		stats.Bytes = chunk.End()

		if chunk.Final {
			s.state = StateDraining
		} else {
			s.state = StateScanning
		}

		err = s.matcher.Scan(chunk, emit)
		if errors.Is(err, ErrStop) {
			stats.Stopped = true
			s.state = StateDone

			return stats, nil
		}

		if err != nil {
			s.state = StateFailed

			return stats, err
		}

		if chunk.Final {
			s.state = StateDone

			return stats, nil
		}
	}
}

// FindAll scans r and returns all matches in offset order.
func (s *Scanner) FindAll(ctx context.Context, name string, r io.Reader) ([]Match, Stats, error) {
	var matches []Match

	stats, err := s.Scan(ctx, name, r, SinkFunc(func(m Match) error {
		matches = append(matches, m)

		return nil
	}))

	return matches, stats, err
}

// Reset releases the reference to the last stream.
func (s *Scanner) Reset() {
	s.reader.Reset(nil)
	s.matcher.Reset()
	s.state = StateIdle
}
