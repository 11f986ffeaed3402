package bgrep

import (
	"bytes"
	"cmp"
	"fmt"
	"slices"
)

// Match is a single occurrence of a pattern in a stream.
type Match struct {
	Pattern *Pattern // Pattern that matched
	Index   int      // Position of Pattern in its PatternSet
	Offset  uint64   // Absolute offset of the first matched byte
}

// End returns the absolute offset one past the last matched byte.
func (m Match) End() uint64 {
	return m.Offset + uint64(m.Pattern.Len()) //nolint:gosec // G115
}

// Bytes returns the matched bytes.
func (m Match) Bytes() []byte {
	return m.Pattern.Bytes()
}

func compareMatch(a, b Match) int {
	if c := cmp.Compare(a.Offset, b.Offset); c != 0 {
		return c
	}

	return cmp.Compare(a.Index, b.Index)
}

// Matcher finds the matches of a PatternSet in the consecutive chunks of one
// stream and emits them in offset order.
//
// A match is found in the first chunk in which it is complete: occurrences
// that lie entirely within the carried prefix of a chunk were already found
// in the previous chunk and are skipped. Matches that a later chunk could
// still precede (a longer pattern starting earlier but ending in the next
// chunk) are held back until the next call to Scan.
//
// A Matcher is not safe for concurrent use; use one per stream.
type Matcher struct {
	set     *PatternSet
	pending []Match
}

// NewMatcher creates a Matcher for set.
// The chunks passed to Scan must carry at least set.Overlap() bytes from the
// previous chunk, as a ChunkReader created with that overlap does.
func NewMatcher(set *PatternSet) *Matcher {
	return &Matcher{set: set}
}

// Reset discards held-back matches so the Matcher can be used on a new stream.
func (m *Matcher) Reset() {
	m.pending = m.pending[:0]
}

// Pending returns the number of matches held back for ordering.
func (m *Matcher) Pending() int {
	return len(m.pending)
}

// Scan searches chunk and calls emit for every match that is ready, in
// non-decreasing offset order; matches at the same offset are ordered by
// pattern index. If chunk is final, all remaining matches are emitted.
//
// If emit returns an error, Scan stops and returns it. Matches not yet
// emitted stay pending.
//
// A chunk that follows earlier data but carries fewer than set.Overlap()
// bytes of it is rejected with ErrInvalidOverlap, since matches spanning the
// boundary could not be seen.
func (m *Matcher) Scan(chunk Chunk, emit func(Match) error) error {
	if overlap := m.set.Overlap(); chunk.Offset > 0 && chunk.Carried < overlap {
		return fmt.Errorf("%w: chunk at offset %d carries %d bytes, patterns need %d",
			ErrInvalidOverlap, chunk.Offset, chunk.Carried, overlap)
	}

	m.find(chunk)

	horizon := chunk.End()
	if !chunk.Final {
		// Every later match ends after this chunk, so it starts at or after
		// horizon and cannot precede a match starting before it.
		horizon -= min(uint64(m.set.Overlap()), horizon) //nolint:gosec // G115
	}

	slices.SortFunc(m.pending, compareMatch)

	i := 0
	for ; i < len(m.pending); i++ {
		if !chunk.Final && m.pending[i].Offset >= horizon {
			break
		}

		if err := emit(m.pending[i]); err != nil {
			m.pending = append(m.pending[:0], m.pending[i+1:]...)

			return err
		}
	}

	m.pending = append(m.pending[:0], m.pending[i:]...)

	return nil
}

// find appends to m.pending every match in chunk that ends beyond the
// carried prefix.
func (m *Matcher) find(chunk Chunk) {
	data := chunk.Data

	if m.set.ac != nil {
		m.set.ac.scan(data, chunk.Carried, func(index int32, start int) {
			m.pending = append(m.pending, Match{
				Pattern: m.set.patterns[index],
				Index:   int(index),
				Offset:  chunk.Offset + uint64(start), //nolint:gosec // G115
			})
		})

		return
	}

	p := m.set.patterns[0]
	n := len(p.bytes)

	for i := max(0, chunk.Carried-n+1); i+n <= len(data); {
		j := bytes.Index(data[i:], p.bytes)
		if j < 0 {
			break
		}

		m.pending = append(m.pending, Match{
			Pattern: p,
			Offset:  chunk.Offset + uint64(i+j), //nolint:gosec // G115
		})

		// Overlapping occurrences are reported too
		i += j + 1
	}
}
