package bgrep_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/kalbasit/bgrep"
)

// TestSearchOrder verifies matches and results arrive in input order
// regardless of how long each scan takes.
func TestSearchOrder(t *testing.T) {
	t.Parallel()

	set, err := bgrep.NewPatternSet(texts("ab")...)
	if err != nil {
		t.Fatal(err)
	}

	inputs := []bgrep.Input{
		{Name: "slow", Open: func() (io.ReadCloser, error) {
			time.Sleep(50 * time.Millisecond)

			return io.NopCloser(strings.NewReader("ab ab")), nil
		}},
		bgrep.StringInput("fast", "xxab"),
		bgrep.StringInput("none", "xxxx"),
	}

	var events []string

	counts := map[string]int{}

	err = bgrep.Search(context.Background(), set, inputs, bgrep.HandlerFuncs{
		OnMatch: func(name string, m bgrep.Match) error {
			events = append(events, fmt.Sprintf("%s@%d", name, m.Offset))

			return nil
		},
		OnDone: func(r bgrep.Result) error {
			if r.Err != nil {
				t.Errorf("%s: %v", r.Name, r.Err)
			}

			events = append(events, r.Name)
			counts[r.Name] = r.Stats.Matches

			return nil
		},
	}, bgrep.WithWorkers(3), bgrep.WithChunkSize(2))
	if err != nil {
		t.Fatal(err)
	}

	want := "slow@0,slow@3,slow,fast@2,fast,none"
	if got := strings.Join(events, ","); got != want {
		t.Errorf("events = %s, want %s", got, want)
	}

	if counts["slow"] != 2 || counts["fast"] != 1 || counts["none"] != 0 {
		t.Errorf("counts = %v", counts)
	}
}

// TestSearchErrorIsolation verifies a failing input does not affect others.
func TestSearchErrorIsolation(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	good := filepath.Join(dir, "good.bin")
	if err := os.WriteFile(good, []byte("\x00\x01needle\x02"), 0o600); err != nil {
		t.Fatal(err)
	}

	set, err := bgrep.NewPatternSet(texts("needle")...)
	if err != nil {
		t.Fatal(err)
	}

	inputs := []bgrep.Input{
		bgrep.FileInput(filepath.Join(dir, "missing.bin")),
		bgrep.FileInput(good),
	}

	var (
		results []bgrep.Result
		offsets []uint64
	)

	err = bgrep.Search(context.Background(), set, inputs, bgrep.HandlerFuncs{
		OnMatch: func(name string, m bgrep.Match) error {
			if name != good {
				t.Errorf("match reported for %s", name)
			}

			offsets = append(offsets, m.Offset)

			return nil
		},
		OnDone: func(r bgrep.Result) error {
			results = append(results, r)

			return nil
		},
	}, bgrep.WithWorkers(1))
	if err != nil {
		t.Fatal(err)
	}

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	var rerr *bgrep.StreamReadError
	if !errors.As(results[0].Err, &rerr) || !errors.Is(results[0].Err, os.ErrNotExist) {
		t.Errorf("missing file error = %v", results[0].Err)
	}

	if results[1].Err != nil || results[1].Stats.Matches != 1 || len(offsets) != 1 || offsets[0] != 2 {
		t.Errorf("good file result = %+v, offsets %v", results[1], offsets)
	}
}

// TestSearchCallbackError verifies a handler error ends the search.
func TestSearchCallbackError(t *testing.T) {
	t.Parallel()

	set, err := bgrep.NewPatternSet(texts("a")...)
	if err != nil {
		t.Fatal(err)
	}

	inputs := make([]bgrep.Input, 20)
	for i := range inputs {
		inputs[i] = bgrep.StringInput("in", strings.Repeat("a", 1000))
	}

	done := errors.New("done")

	t.Run("done", func(t *testing.T) {
		var calls int

		err := bgrep.Search(context.Background(), set, inputs, bgrep.HandlerFuncs{
			OnDone: func(bgrep.Result) error {
				calls++

				return done
			},
		}, bgrep.WithWorkers(2))
		if !errors.Is(err, done) {
			t.Fatalf("Search() error = %v, want %v", err, done)
		}

		if calls != 1 {
			t.Errorf("OnDone called %d times, want 1", calls)
		}
	})

	t.Run("match", func(t *testing.T) {
		var matches, results int

		err := bgrep.Search(context.Background(), set, inputs, bgrep.HandlerFuncs{
			OnMatch: func(string, bgrep.Match) error {
				matches++
				if matches == 10 {
					return done
				}

				return nil
			},
			OnDone: func(bgrep.Result) error {
				results++

				return nil
			},
		}, bgrep.WithWorkers(2), bgrep.WithChunkSize(16))
		if !errors.Is(err, done) {
			t.Fatalf("Search() error = %v, want %v", err, done)
		}

		if matches != 10 || results != 0 {
			t.Errorf("matches = %d, results = %d, want 10 and 0", matches, results)
		}
	})
}

// TestSearchHandlerStop verifies ErrStop from the handler ends only the
// current input.
func TestSearchHandlerStop(t *testing.T) {
	t.Parallel()

	set, err := bgrep.NewPatternSet(texts("a")...)
	if err != nil {
		t.Fatal(err)
	}

	inputs := []bgrep.Input{
		bgrep.StringInput("first", strings.Repeat("a", 5000)),
		bgrep.StringInput("second", "aaaa"),
	}

	seen := map[string]int{}
	stats := map[string]bgrep.Stats{}

	err = bgrep.Search(context.Background(), set, inputs, bgrep.HandlerFuncs{
		OnMatch: func(name string, _ bgrep.Match) error {
			seen[name]++
			if name == "first" {
				return bgrep.ErrStop
			}

			return nil
		},
		OnDone: func(r bgrep.Result) error {
			if r.Err != nil {
				t.Errorf("%s: %v", r.Name, r.Err)
			}

			stats[r.Name] = r.Stats

			return nil
		},
	}, bgrep.WithChunkSize(8))
	if err != nil {
		t.Fatal(err)
	}

	if seen["first"] != 1 || stats["first"].Matches != 1 || !stats["first"].Stopped {
		t.Errorf("first: seen %d, stats %+v", seen["first"], stats["first"])
	}

	if seen["second"] != 4 || stats["second"].Matches != 4 || stats["second"].Stopped {
		t.Errorf("second: seen %d, stats %+v", seen["second"], stats["second"])
	}
}

// TestSearchMaxMatches verifies the match limit applies per input.
func TestSearchMaxMatches(t *testing.T) {
	t.Parallel()

	set, err := bgrep.NewPatternSet(texts("x")...)
	if err != nil {
		t.Fatal(err)
	}

	inputs := []bgrep.Input{bgrep.StringInput("a", "xxxx"), bgrep.StringInput("b", "xxx")}

	err = bgrep.Search(context.Background(), set, inputs, bgrep.HandlerFuncs{
		OnDone: func(r bgrep.Result) error {
			if r.Stats.Matches != 1 || !r.Stats.Stopped {
				t.Errorf("%s: stats %+v", r.Name, r.Stats)
			}

			return nil
		},
	}, bgrep.WithMaxMatches(1))
	if err != nil {
		t.Fatal(err)
	}
}

// TestSearchContextCancel verifies a cancelled context ends the search.
func TestSearchContextCancel(t *testing.T) {
	t.Parallel()

	set, err := bgrep.NewPatternSet(texts("a")...)
	if err != nil {
		t.Fatal(err)
	}

	inputs := []bgrep.Input{
		bgrep.StringInput("a", strings.Repeat("a", 10000)),
		bgrep.StringInput("b", "aaaa"),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = bgrep.Search(ctx, set, inputs, bgrep.HandlerFuncs{
		OnMatch: func(string, bgrep.Match) error {
			cancel()

			return nil
		},
	}, bgrep.WithChunkSize(4))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Search() error = %v, want %v", err, context.Canceled)
	}
}

// zeroReader yields n zero bytes without holding them in memory.
type zeroReader struct {
	n int
}

func (z *zeroReader) Read(p []byte) (int, error) {
	if z.n == 0 {
		return 0, io.EOF
	}

	k := min(len(p), z.n)
	clear(p[:k])
	z.n -= k

	return k, nil
}

// TestSearchBoundedMemory verifies that heap use does not grow with the
// number of matches when every byte of a large stream matches.
func TestSearchBoundedMemory(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping large stream in short mode")
	}

	const size = 16 * 1024 * 1024

	set, err := bgrep.NewPatternSet(bgrep.MustCompile("00", bgrep.SyntaxHex))
	if err != nil {
		t.Fatal(err)
	}

	var (
		count int
		peak  uint64
		ms    runtime.MemStats
	)

	inputs := []bgrep.Input{bgrep.ReaderInput("zeros", &zeroReader{n: size})}

	err = bgrep.Search(context.Background(), set, inputs, bgrep.HandlerFuncs{
		OnMatch: func(string, bgrep.Match) error {
			count++
			if count%(1<<20) == 0 {
				runtime.ReadMemStats(&ms)
				peak = max(peak, ms.HeapAlloc)
			}

			return nil
		},
	}, bgrep.WithChunkSize(64*1024), bgrep.WithWorkers(1))
	if err != nil {
		t.Fatal(err)
	}

	if count != size {
		t.Fatalf("got %d matches, want %d", count, size)
	}

	// Holding every match would take more than 500 MiB
	if peak > 64*1024*1024 {
		t.Errorf("peak heap %d MiB while streaming matches", peak/(1024*1024))
	}
}

// TestSearchInvalidOptions verifies options are validated before any input is opened.
func TestSearchInvalidOptions(t *testing.T) {
	t.Parallel()

	set, err := bgrep.NewPatternSet(texts("x")...)
	if err != nil {
		t.Fatal(err)
	}

	opened := false
	inputs := []bgrep.Input{{Name: "x", Open: func() (io.ReadCloser, error) {
		opened = true

		return io.NopCloser(strings.NewReader("")), nil
	}}}

	err = bgrep.Search(context.Background(), set, inputs, bgrep.HandlerFuncs{}, bgrep.WithWorkers(-1))
	if !errors.Is(err, bgrep.ErrInvalidWorkers) {
		t.Errorf("error = %v, want %v", err, bgrep.ErrInvalidWorkers)
	}

	if opened {
		t.Error("input opened despite invalid options")
	}
}
