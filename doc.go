// Package bgrep finds byte patterns in streams of any size.
//
// # Overview
//
// bgrep is the binary counterpart of a text search: input has no lines and
// no encoding, so patterns are matched on raw bytes and every occurrence is
// reported with its absolute byte offset. Streams are read in bounded chunks,
// so memory use does not depend on the stream length, and matches that
// straddle a chunk boundary are never missed or reported twice.
//
// This implementation offers:
//   - Text and hex pattern syntax
//   - Any number of patterns searched in a single pass (Aho-Corasick)
//   - Overlapping matches, all reported
//   - Results independent of the chunk size
//   - Bounded concurrent search of many streams with ordered results
//
// # Quick Start
//
// Searching one stream:
//
//	hello, _ := bgrep.CompileText("hello")
//	magic, _ := bgrep.CompileHex("7f 45 4c 46")
//	set, _ := bgrep.NewPatternSet(hello, magic)
//
//	scanner, _ := bgrep.NewScanner(set, bgrep.WithChunkSize(1<<20))
//	_, err := scanner.Scan(ctx, "input", reader, bgrep.SinkFunc(func(m bgrep.Match) error {
//	    fmt.Printf("%#x %s\n", m.Offset, m.Pattern)
//	    return nil
//	}))
//
// Searching many files, four at a time:
//
//	inputs := []bgrep.Input{bgrep.FileInput("a.bin"), bgrep.FileInput("b.bin")}
//	err := bgrep.Search(ctx, set, inputs, bgrep.HandlerFuncs{
//	    OnMatch: func(name string, m bgrep.Match) error {
//	        // Matches stream in offset order, one input after the other
//	        return nil
//	    },
//	}, bgrep.WithWorkers(4))
//
// # Chunk Boundaries
//
// With L the length of the longest pattern, the ChunkReader carries the last
// L-1 bytes of each chunk to the front of the next one. A match is reported
// from the first chunk that contains all of it: occurrences lying entirely
// inside the carried prefix were already reported and are skipped. Because a
// long pattern that starts early may only complete in the next chunk, the
// Matcher holds back matches starting in the last L-1 bytes of a chunk so
// that events always leave in non-decreasing offset order.
//
// # Thread Safety
//
// Patterns and PatternSets are immutable and may be shared by any number of
// goroutines. Scanner, Matcher and ChunkReader keep per-stream state and must
// not be shared; use one per goroutine or a ScannerPool.
package bgrep
