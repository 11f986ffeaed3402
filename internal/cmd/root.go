package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// Exit codes
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// ExitError attaches a process exit code to an error.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}

	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode maps an error returned by the root command to a process exit code.
// Errors without an explicit code come from cobra's argument parsing.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	return ExitUsage
}

func usageError(err error) error {
	return &ExitError{Code: ExitUsage, Err: err}
}

func runtimeError(err error) error {
	return &ExitError{Code: ExitFailure, Err: err}
}

// options holds the raw flag values of the root command.
type options struct {
	hex       bool
	texts     []string
	hexes     []string
	chunkSize string
	jobs      int
	maxCount  int
	count     bool
	filesOnly bool
	after     int
	verbose   bool
	quiet     bool
	logLevel  string
	color     string
	offsets   string
	config    string
}

// NewRootCommand creates and returns the root cobra command for bgrep
func NewRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "bgrep [flags] <pattern> [path ...]",
		Short: "Search binary files for byte patterns",
		Long: `bgrep searches files, directories and standard input for byte patterns
and prints the absolute offset of every occurrence.

Inputs are read in fixed-size chunks, so files of any size are searched in
constant memory. Matches are exact and case-sensitive, and overlapping
occurrences are all reported.

When -e or -x is given, every positional argument is a path. Without paths,
standard input is searched.

Configuration is loaded from $XDG_CONFIG_HOME/bgrep/config.yaml if present.
CLI flags override configuration file settings.

Examples:
  # Text pattern in one file
  bgrep hello firmware.bin

  # Hex pattern, directories are searched recursively
  bgrep --hex "7f 45 4c 46" /usr/lib

  # Several patterns at once
  bgrep -e PK -x 1f8b08 'dumps/*.img'

  # Names of files containing a pattern
  bgrep -l secret ./build`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
		// main prints the error once, with the right exit code
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, args, opts)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.hex, "hex", false, "Treat the positional pattern as hex digits")
	f.StringArrayVarP(&opts.texts, "text", "e", nil, "Text pattern to search for (repeatable)")
	f.StringArrayVarP(&opts.hexes, "hex-pattern", "x", nil, "Hex pattern to search for (repeatable)")
	f.StringVar(&opts.chunkSize, "chunk-size", "", "Bytes read per chunk, e.g. 64KiB or 4MiB (default: config or 4MiB)")
	f.IntVarP(&opts.jobs, "jobs", "j", 0, "Number of files searched concurrently (0 = number of CPUs)")
	f.IntVarP(&opts.maxCount, "max-count", "m", 0, "Stop searching a file after N matches (0 = unlimited)")
	f.BoolVarP(&opts.count, "count", "c", false, "Print the number of matches per input")
	f.BoolVarP(&opts.filesOnly, "files-with-matches", "l", false, "Print only the names of inputs with a match")
	f.IntVarP(&opts.after, "after-context", "A", 0, "Bytes of context printed after each match (default: config or 20)")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Log progress and scan statistics")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "Log only warnings and errors")
	f.StringVar(&opts.logLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
	f.StringVar(&opts.color, "color", "", "Colored output: auto, always, never")
	f.StringVar(&opts.offsets, "offset-format", "", "Offset format: hex, dec")
	f.StringVar(&opts.config, "config", "", "Path to config file (default: $XDG_CONFIG_HOME/bgrep/config.yaml)")

	// --hex only applies to the positional pattern, which -e and -x replace
	cmd.MarkFlagsMutuallyExclusive("hex", "text")
	cmd.MarkFlagsMutuallyExclusive("hex", "hex-pattern")
	cmd.MarkFlagsMutuallyExclusive("count", "files-with-matches")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	return cmd
}
