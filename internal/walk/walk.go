// Package walk turns command-line path arguments into searchable inputs.
package walk

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kalbasit/bgrep"
)

// StdinName is the input name used for standard input.
const StdinName = "<standard input>"

// ErrorFunc is called for every path that cannot be expanded or walked.
// pattern is the argument that led to path.
type ErrorFunc func(path, pattern string, err error)

// Expand resolves each argument as a glob pattern and returns one input per
// regular file found, walking directories recursively. Arguments are
// processed in order and files within a directory in lexical order, so the
// result is deterministic. With no arguments, stdin is returned as the only
// input.
//
// Symbolic links to regular files found inside directories are included;
// links to directories are not followed. Problems (no match, unreadable
// directory, dangling link) are passed to onErr and the remaining paths are
// still expanded.
func Expand(args []string, stdin io.Reader, onErr ErrorFunc) []bgrep.Input {
	if len(args) == 0 {
		return []bgrep.Input{bgrep.ReaderInput(StdinName, stdin)}
	}

	if onErr == nil {
		onErr = func(string, string, error) {}
	}

	var inputs []bgrep.Input

	seen := make(map[string]bool)

	add := func(path string) {
		if seen[path] {
			return
		}

		seen[path] = true
		inputs = append(inputs, bgrep.FileInput(path))
	}

	for _, pattern := range args {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			onErr(pattern, pattern, fmt.Errorf("invalid glob pattern: %w", err))

			continue
		}

		if len(matches) == 0 {
			onErr(pattern, pattern, fmt.Errorf("file or directory not found: %s", pattern))

			continue
		}

		for _, match := range matches {
			walkPath(match, pattern, add, onErr)
		}
	}

	return inputs
}

func walkPath(root, pattern string, add func(string), onErr ErrorFunc) {
	info, err := os.Stat(root)
	if err != nil {
		onErr(root, pattern, err)

		return
	}

	if !info.IsDir() {
		add(root)

		return
	}

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			onErr(path, pattern, err)

			if d != nil && d.IsDir() {
				return fs.SkipDir
			}

			return nil
		}

		switch {
		case d.Type().IsRegular():
			add(path)
		case d.Type()&fs.ModeSymlink != 0:
			// Links to files are searched, links to directories are not
			// followed.
			info, err := os.Stat(path)
			if err != nil {
				onErr(path, pattern, err)

				return nil
			}

			if info.Mode().IsRegular() {
				add(path)
			}
		}

		return nil
	})
}
