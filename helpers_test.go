package bgrep_test

import (
	"bytes"
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/kalbasit/bgrep"
)

// hit is a match reduced to comparable values.
type hit struct {
	Offset uint64
	Index  int
}

// findAll scans data with the given chunk size and returns all matches.
func findAll(tb testing.TB, data string, chunkSize int, patterns ...*bgrep.Pattern) []bgrep.Match {
	tb.Helper()

	set, err := bgrep.NewPatternSet(patterns...)
	if err != nil {
		tb.Fatal(err)
	}

	scanner, err := bgrep.NewScanner(set, bgrep.WithChunkSize(chunkSize))
	if err != nil {
		tb.Fatal(err)
	}

	matches, _, err := scanner.FindAll(context.Background(), "test", strings.NewReader(data))
	if err != nil {
		tb.Fatal(err)
	}

	return matches
}

func offsets(tb testing.TB, matches []bgrep.Match) []uint64 {
	tb.Helper()

	out := make([]uint64, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Offset)
	}

	return out
}

func equalOffsets(a, b []uint64) bool {
	return slices.Equal(a, b)
}

func hits(matches []bgrep.Match) []hit {
	out := make([]hit, 0, len(matches))
	for _, m := range matches {
		out = append(out, hit{Offset: m.Offset, Index: m.Index})
	}

	return out
}

// naiveHits is the reference result: every position and every pattern,
// compared byte by byte.
func naiveHits(data []byte, patterns [][]byte) []hit {
	var out []hit

	for i := range data {
		for j, p := range patterns {
			if bytes.HasPrefix(data[i:], p) {
				out = append(out, hit{Offset: uint64(i), Index: j}) //nolint:gosec // G115
			}
		}
	}

	return out
}

func texts(specs ...string) []*bgrep.Pattern {
	out := make([]*bgrep.Pattern, 0, len(specs))
	for _, s := range specs {
		out = append(out, bgrep.MustCompile(s, bgrep.SyntaxText))
	}

	return out
}

func rawBytes(patterns []*bgrep.Pattern) [][]byte {
	out := make([][]byte, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, p.Bytes())
	}

	return out
}
