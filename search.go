package bgrep

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"
)

const (
	// matchBatch is the number of matches a worker hands over at once.
	matchBatch = 256

	// batchBacklog is the number of batches a worker may queue before it
	// blocks waiting for the handler to reach its input.
	batchBacklog = 4
)

// Input is one stream to search.
type Input struct {
	Name string                        // Reported in results and errors
	Open func() (io.ReadCloser, error) // Called once, from a worker goroutine
}

// FileInput returns an Input that opens the file at path.
func FileInput(path string) Input {
	return Input{
		Name: path,
		Open: func() (io.ReadCloser, error) {
			return os.Open(path) //nolint:gosec // G304: searching user-given paths is the point
		},
	}
}

// ReaderInput returns an Input for an already open reader.
// The reader is not closed.
func ReaderInput(name string, r io.Reader) Input {
	return Input{
		Name: name,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(r), nil
		},
	}
}

// StringInput returns an Input reading s. It is mostly useful in tests and examples.
func StringInput(name, s string) Input {
	return ReaderInput(name, strings.NewReader(s))
}

// Result summarizes the search of one Input.
type Result struct {
	Name  string
	Stats Stats // Stats.Matches counts matches delivered to the Handler
	Err   error // Open or read failure of this input only
}

// Handler receives the output of Search. All calls are made from the
// goroutine that called Search, one input at a time and in input order.
type Handler interface {
	// Match is called for every match of the named input, in offset order.
	// Returning ErrStop ends the search of that input only.
	Match(name string, m Match) error

	// Done is called once per input, after its last match.
	Done(res Result) error
}

// HandlerFuncs adapts plain functions to a Handler. Nil fields are skipped.
type HandlerFuncs struct {
	OnMatch func(name string, m Match) error
	OnDone  func(res Result) error
}

// Match calls h.OnMatch if it is set.
func (h HandlerFuncs) Match(name string, m Match) error {
	if h.OnMatch == nil {
		return nil
	}

	return h.OnMatch(name, m)
}

// Done calls h.OnDone if it is set.
func (h HandlerFuncs) Done(res Result) error {
	if h.OnDone == nil {
		return nil
	}

	return h.OnDone(res)
}

// searchSlot carries the matches of one input from its worker to the handler.
type searchSlot struct {
	in     Input
	ctx    context.Context
	cancel context.CancelFunc
	events chan []Match
	result Result // Written by the worker before events is closed
}

// Search scans inputs concurrently, using at most WithWorkers goroutines,
// and streams their matches to h in input order.
//
// Matches of the input being delivered are passed on as they are found.
// Workers running ahead on later inputs queue a bounded number of matches
// and then wait, so memory use depends on the worker count and never on
// the size of the inputs or the number of matches.
//
// A failure to open or read an input is reported in that input's
// Result.Err and does not affect the others. If h returns an error other
// than ErrStop, the remaining scans are cancelled and Search returns it.
func Search(ctx context.Context, set *PatternSet, inputs []Input, h Handler, opts ...Option) error {
	cfg, err := newConfig(opts...)
	if err != nil {
		return err
	}

	pool, err := NewScannerPool(set, opts...)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.workers)

	// Inputs launched but not yet delivered are bounded by the queue size.
	queue := make(chan *searchSlot, cfg.workers)
	launched := make(chan struct{})

	go func() {
		defer close(launched)
		defer close(queue)

		for _, in := range inputs {
			sctx, scancel := context.WithCancel(gctx)
			sl := &searchSlot{
				in:     in,
				ctx:    sctx,
				cancel: scancel,
				events: make(chan []Match, batchBacklog),
			}

			select {
			case queue <- sl:
			case <-ctx.Done():
				scancel()

				return
			}

			g.Go(func() error {
				searchInput(pool, sl)

				return nil
			})
		}
	}()

	var ferr error

	for sl := range queue {
		if ferr == nil {
			ferr = deliver(ctx, sl, h)
			if ferr != nil {
				cancel()
			}
		}

		sl.cancel()
	}

	if ferr == nil {
		ferr = ctx.Err()
	}

	cancel()
	<-launched

	_ = g.Wait()

	return ferr
}

// deliver passes the matches and the result of one input to h.
func deliver(ctx context.Context, sl *searchSlot, h Handler) error {
	var (
		delivered int
		stopped   bool
	)

	for batch := range sl.events {
		if stopped {
			continue
		}

		for _, m := range batch {
			err := h.Match(sl.in.Name, m)
			if err != nil && !errors.Is(err, ErrStop) {
				return err
			}

			delivered++

			if err != nil {
				// Stop the worker; the rest of the queue is drained.
				stopped = true

				sl.cancel()

				break
			}
		}
	}

	res := sl.result
	res.Stats.Matches = delivered

	if stopped {
		res.Stats.Stopped = true
		res.Err = nil
	}

	if res.Err != nil && ctx.Err() != nil && errors.Is(res.Err, ctx.Err()) {
		return ctx.Err()
	}

	return h.Done(res)
}

// searchInput scans one input and sends its matches to sl.events in batches.
func searchInput(pool *ScannerPool, sl *searchSlot) {
	defer close(sl.events)

	ctx := sl.ctx
	res := Result{Name: sl.in.Name}

	defer func() { sl.result = res }()

	if err := ctx.Err(); err != nil {
		res.Err = err

		return
	}

	rc, err := sl.in.Open()
	if err != nil {
		res.Err = &StreamReadError{Name: sl.in.Name, Err: err}

		return
	}
	defer rc.Close()

	s, err := pool.Get()
	if err != nil {
		res.Err = err

		return
	}
	defer pool.Put(s)

	batch := make([]Match, 0, matchBatch)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}

		select {
		case sl.events <- batch:
			batch = make([]Match, 0, matchBatch)

			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	res.Stats, res.Err = s.Scan(ctx, sl.in.Name, rc, SinkFunc(func(m Match) error {
		batch = append(batch, m)
		if len(batch) == matchBatch {
			return flush()
		}

		return nil
	}))

	// Matches found before a read error are still delivered
	if err := flush(); err != nil && res.Err == nil {
		res.Err = err
	}
}
