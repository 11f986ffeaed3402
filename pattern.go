package bgrep

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Syntax selects how a pattern specification is turned into bytes.
type Syntax uint8

const (
	// SyntaxText uses the bytes of the specification as they are.
	SyntaxText Syntax = iota

	// SyntaxHex decodes pairs of hex digits into bytes, e.g. "de ad be ef".
	SyntaxHex
)

func (s Syntax) String() string {
	switch s {
	case SyntaxText:
		return "text"
	case SyntaxHex:
		return "hex"
	default:
		return fmt.Sprintf("Syntax(%d)", uint8(s))
	}
}

// Pattern is an immutable compiled byte sequence.
type Pattern struct {
	bytes []byte
	label string
}

// Compile builds a Pattern from spec using the given syntax.
// The returned error is always a *PatternError.
func Compile(spec string, syntax Syntax) (*Pattern, error) {
	var (
		b   []byte
		err error
	)

	switch syntax {
	case SyntaxText:
		b = []byte(spec)
	case SyntaxHex:
		b, err = decodeHex(spec)
	default:
		err = fmt.Errorf("%w: unknown syntax", ErrInvalidPatternFormat)
	}

	if err == nil && len(b) == 0 {
		err = ErrEmptyPattern
	}

	if err != nil {
		return nil, &PatternError{Spec: spec, Syntax: syntax, Err: err}
	}

	return &Pattern{bytes: b, label: spec}, nil
}

// CompileText builds a Pattern matching the bytes of s.
func CompileText(s string) (*Pattern, error) {
	return Compile(s, SyntaxText)
}

// CompileHex builds a Pattern from hex digits. Whitespace between digits and
// a leading "0x" are ignored.
func CompileHex(s string) (*Pattern, error) {
	return Compile(s, SyntaxHex)
}

// MustCompile is like Compile but panics if the specification is invalid.
func MustCompile(spec string, syntax Syntax) *Pattern {
	p, err := Compile(spec, syntax)
	if err != nil {
		panic(err)
	}

	return p
}

func decodeHex(spec string) ([]byte, error) {
	digits := strings.Join(strings.Fields(spec), "")
	if len(digits) >= 2 && digits[0] == '0' && (digits[1] == 'x' || digits[1] == 'X') {
		digits = digits[2:]
	}

	b, err := hex.DecodeString(digits)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPatternFormat, err)
	}

	return b, nil
}

// Bytes returns a copy of the pattern bytes.
func (p *Pattern) Bytes() []byte {
	return append([]byte(nil), p.bytes...)
}

// Len returns the number of bytes in the pattern.
func (p *Pattern) Len() int {
	return len(p.bytes)
}

// Label returns the specification the pattern was compiled from.
func (p *Pattern) Label() string {
	return p.label
}

func (p *Pattern) String() string {
	return p.label
}

// PatternSet is a non-empty, read-only group of patterns searched together.
// It is safe for concurrent use by any number of scanners.
type PatternSet struct {
	patterns []*Pattern
	maxLen   int
	ac       *automaton // nil for single-pattern sets
}

// NewPatternSet builds the combined search structure for patterns.
func NewPatternSet(patterns ...*Pattern) (*PatternSet, error) {
	if len(patterns) == 0 {
		return nil, ErrNoPatterns
	}

	set := &PatternSet{patterns: make([]*Pattern, len(patterns))}
	for i, p := range patterns {
		if p == nil || len(p.bytes) == 0 {
			return nil, fmt.Errorf("%w: pattern %d", ErrEmptyPattern, i)
		}

		set.patterns[i] = p
		set.maxLen = max(set.maxLen, len(p.bytes))
	}

	if len(patterns) > 1 {
		set.ac = buildAutomaton(set.patterns)
	}

	return set, nil
}

// Len returns the number of patterns in the set.
func (s *PatternSet) Len() int {
	return len(s.patterns)
}

// At returns the i-th pattern.
func (s *PatternSet) At(i int) *Pattern {
	return s.patterns[i]
}

// MaxLen returns the length of the longest pattern.
func (s *PatternSet) MaxLen() int {
	return s.maxLen
}

// Overlap returns how many trailing bytes of a window must be carried into
// the next one so that no match is split invisibly.
func (s *PatternSet) Overlap() int {
	return s.maxLen - 1
}
