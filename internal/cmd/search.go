package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kalbasit/bgrep"
	"github.com/kalbasit/bgrep/internal/config"
	"github.com/kalbasit/bgrep/internal/display"
	"github.com/kalbasit/bgrep/internal/logger"
	"github.com/kalbasit/bgrep/internal/walk"
)

var errInputsFailed = errors.New("one or more inputs could not be read")

// runSearch implements the root command logic
func runSearch(cmd *cobra.Command, args []string, opts *options) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return usageError(err)
	}

	log := logger.NewConsoleLogger(cmd.ErrOrStderr(), cfg.LogLevel)

	switch strings.ToLower(cfg.Color) {
	case config.ColorAlways:
		log.SetColor(true)
	case config.ColorNever:
		log.SetColor(false)
	}

	patterns, paths, err := compilePatterns(args, opts)
	if err != nil {
		return usageError(err)
	}

	set, err := bgrep.NewPatternSet(patterns...)
	if err != nil {
		return usageError(err)
	}

	searchOpts := cfg.Options()

	switch {
	case opts.filesOnly:
		searchOpts = append(searchOpts, bgrep.WithMaxMatches(1))
	case opts.maxCount != 0:
		searchOpts = append(searchOpts, bgrep.WithMaxMatches(opts.maxCount))
	}

	failed := false

	inputs := walk.Expand(paths, cmd.InOrStdin(), func(path, _ string, err error) {
		failed = true

		log.LogWarn(fmt.Sprintf("unable to read %s: %v", path, err))
	})

	if len(inputs) == 0 {
		return runtimeError(errInputsFailed)
	}

	for i := range inputs {
		open := inputs[i].Open
		name := inputs[i].Name

		inputs[i].Open = func() (io.ReadCloser, error) {
			log.LogDebug("Searching " + name)

			return open()
		}
	}

	out := cmd.OutOrStdout()
	printer := display.NewPrinter(out, display.Options{
		DecimalOffsets: strings.EqualFold(cfg.OffsetFormat, config.OffsetDec),
		ShowNames:      len(inputs) > 1,
		Color:          display.ColorEnabled(cfg.Color, out),
	})

	h := &resultHandler{
		printer:   printer,
		log:       log,
		count:     opts.count,
		filesOnly: opts.filesOnly,
	}

	// Context is read back from files; standard input cannot be reread
	if len(paths) > 0 {
		h.contextBytes = cfg.ContextBytes
	}

	err = bgrep.Search(cmd.Context(), set, inputs, h, searchOpts...)

	h.closeContext()

	if err != nil {
		return runtimeError(err)
	}

	if failed || h.failed {
		return runtimeError(errInputsFailed)
	}

	return nil
}

// loadConfig reads the configuration file and applies flag overrides.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	flags := cmd.Flags()

	path := config.DefaultPath()
	if flags.Changed("config") {
		path = opts.config
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if flags.Changed("chunk-size") {
		size, err := config.ParseSize(opts.chunkSize)
		if err != nil {
			return nil, fmt.Errorf("invalid --chunk-size: %w", err)
		}

		cfg.ChunkSize = size
	}

	if flags.Changed("jobs") {
		cfg.Workers = opts.jobs
	}

	if flags.Changed("after-context") {
		cfg.ContextBytes = opts.after
	}

	if flags.Changed("color") {
		cfg.Color = opts.color
	}

	if flags.Changed("offset-format") {
		cfg.OffsetFormat = opts.offsets
	}

	switch {
	case flags.Changed("log-level"):
		cfg.LogLevel = opts.logLevel
	case opts.verbose:
		cfg.LogLevel = "debug"
	case opts.quiet:
		cfg.LogLevel = "warn"
	}

	if opts.maxCount < 0 {
		return nil, fmt.Errorf("%w: --max-count %d", bgrep.ErrInvalidMaxMatches, opts.maxCount)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// compilePatterns builds the pattern list in flag order and returns the
// remaining arguments as paths. Without -e or -x the first argument is the
// pattern.
func compilePatterns(args []string, opts *options) ([]*bgrep.Pattern, []string, error) {
	var patterns []*bgrep.Pattern

	paths := args

	if len(opts.texts) == 0 && len(opts.hexes) == 0 {
		if len(args) == 0 {
			return nil, nil, fmt.Errorf("%w: missing <pattern> argument", bgrep.ErrNoPatterns)
		}

		syntax := bgrep.SyntaxText
		if opts.hex {
			syntax = bgrep.SyntaxHex
		}

		p, err := bgrep.Compile(args[0], syntax)
		if err != nil {
			return nil, nil, err
		}

		patterns = append(patterns, p)
		paths = args[1:]
	}

	for _, spec := range opts.texts {
		p, err := bgrep.CompileText(spec)
		if err != nil {
			return nil, nil, err
		}

		patterns = append(patterns, p)
	}

	for _, spec := range opts.hexes {
		p, err := bgrep.CompileHex(spec)
		if err != nil {
			return nil, nil, err
		}

		patterns = append(patterns, p)
	}

	return patterns, paths, nil
}

// resultHandler prints search events as they arrive. Matches are never
// collected: counts come from the per-input stats.
type resultHandler struct {
	printer      *display.Printer
	log          logger.Logger
	count        bool
	filesOnly    bool
	contextBytes int
	failed       bool

	// File the context bytes of the current input are read from
	ctxName string
	ctxFile *os.File
}

func (h *resultHandler) Match(name string, m bgrep.Match) error {
	if h.count || h.filesOnly {
		return nil
	}

	ctx, err := display.ReadContext(h.contextReader(name), m, h.contextBytes)
	if err != nil {
		h.log.LogDebug(fmt.Sprintf("no context for %s at %d: %v", name, m.Offset, err))
	}

	return h.printer.Match(name, m, ctx)
}

func (h *resultHandler) Done(res bgrep.Result) error {
	h.closeContext()

	if res.Err != nil {
		h.failed = true

		h.log.LogWarn(fmt.Sprintf("unable to read %s: %v", res.Name, res.Err))

		return nil
	}

	h.log.LogDebug(fmt.Sprintf("%s: scanned %s in %d chunks, %d matches",
		res.Name, humanize.IBytes(res.Stats.Bytes), res.Stats.Chunks, res.Stats.Matches))

	switch {
	case h.filesOnly:
		if res.Stats.Matches > 0 {
			return h.printer.Name(res.Name)
		}
	case h.count:
		return h.printer.Count(res.Name, res.Stats.Matches)
	}

	return nil
}

// contextReader returns the file of the named input, opening it on the
// first match. It returns nil when no context is wanted or available.
func (h *resultHandler) contextReader(name string) io.ReaderAt {
	if h.contextBytes == 0 {
		return nil
	}

	if name != h.ctxName {
		h.closeContext()
		h.ctxName = name

		f, err := openRegular(name)
		if err != nil {
			h.log.LogDebug(fmt.Sprintf("no context for %s: %v", name, err))
		}

		h.ctxFile = f
	}

	if h.ctxFile == nil {
		return nil
	}

	return h.ctxFile
}

func (h *resultHandler) closeContext() {
	if h.ctxFile != nil {
		h.ctxFile.Close()
	}

	h.ctxName = ""
	h.ctxFile = nil
}

func openRegular(path string) (*os.File, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path comes from the command line
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()

		return nil, err
	}

	if !info.Mode().IsRegular() {
		f.Close()

		return nil, fmt.Errorf("%s is not a regular file", path)
	}

	return f, nil
}
