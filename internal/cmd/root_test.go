package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalbasit/bgrep"
)

type execResult struct {
	stdout string
	stderr string
	code   int
}

// execute runs the root command with an isolated config directory.
func execute(t *testing.T, stdin string, args ...string) execResult {
	t.Helper()

	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	var stdout, stderr bytes.Buffer

	cmd := NewRootCommand()
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return execResult{stdout: stdout.String(), stderr: stderr.String(), code: ExitCode(err)}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestRootCommandHelp(t *testing.T) {
	res := execute(t, "", "--help")

	assert.Equal(t, ExitOK, res.code)
	assert.Contains(t, res.stdout, "bgrep [flags] <pattern> [path ...]")
	assert.Contains(t, res.stdout, "--files-with-matches")
}

func TestRootCommandVersion(t *testing.T) {
	res := execute(t, "", "--version")

	assert.Equal(t, ExitOK, res.code)
	assert.Contains(t, res.stdout, Version)
}

func TestSearchFileWithContext(t *testing.T) {
	path := writeFile(t, t.TempDir(), "data.bin", "Hello, hello world")

	res := execute(t, "", "hello", path)

	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Equal(t, "0x00000007: 68 65 6c 6c 6f 20 77 6f 72 6c 64  hello world\n", res.stdout)
}

func TestSearchStdin(t *testing.T) {
	res := execute(t, "abcabc", "bc")

	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Equal(t, "0x00000001: 62 63  bc\n0x00000004: 62 63  bc\n", res.stdout)
}

func TestSearchHexDecimal(t *testing.T) {
	path := writeFile(t, t.TempDir(), "elf", "xx\x7fELF\x00")

	res := execute(t, "", "--hex", "--offset-format", "dec", "-A", "1", "7f 45 4c 46", path)

	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Equal(t, "2: 7f 45 4c 46 00  .ELF.\n", res.stdout)
}

func TestSearchMultiplePatterns(t *testing.T) {
	res := execute(t, "PK\x1f\x8b", "-e", "PK", "-x", "0x1f8b")

	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Equal(t, "0x00000000: 50 4b  PK\n0x00000002: 1f 8b  ..\n", res.stdout)
}

func TestSearchCountAndFilesWithMatches(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.bin", "needle needle")
	b := writeFile(t, dir, "b.bin", "haystack")

	res := execute(t, "", "-c", "needle", a, b)
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Equal(t, fmt.Sprintf("%s:2\n%s:0\n", a, b), res.stdout)

	res = execute(t, "", "-l", "needle", dir)
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Equal(t, a+"\n", res.stdout)
}

func TestSearchCountManyMatches(t *testing.T) {
	path := writeFile(t, t.TempDir(), "dense.bin", strings.Repeat("a", 100000))

	res := execute(t, "", "--chunk-size", "1KiB", "-c", "a", path)

	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Equal(t, "100000\n", res.stdout)
}

func TestSearchContextAcrossInputs(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.bin", "key=1;key=2")
	b := writeFile(t, dir, "b.bin", "key=3")

	res := execute(t, "", "-A", "2", "key", a, b)

	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Equal(t, a+":0x00000000: 6b 65 79 3d 31  key=1\n"+
		a+":0x00000006: 6b 65 79 3d 32  key=2\n"+
		b+":0x00000000: 6b 65 79 3d 33  key=3\n", res.stdout)
}

func TestSearchMaxCount(t *testing.T) {
	res := execute(t, "aaaa", "-m", "2", "-c", "a")

	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Equal(t, "2\n", res.stdout)
}

func TestSearchMissingInput(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.bin", "xneedle")
	missing := filepath.Join(dir, "missing.bin")

	res := execute(t, "", "-A", "0", "needle", missing, a)

	assert.Equal(t, ExitFailure, res.code)
	assert.Contains(t, res.stderr, "unable to read "+missing)
	assert.Equal(t, "0x00000001: 6e 65 65 64 6c 65  needle\n", res.stdout)
}

func TestSearchVerbose(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.bin", "abc")

	res := execute(t, "", "-v", "b", path)

	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stderr, "Searching "+path)
	assert.Contains(t, res.stderr, "scanned 3 B in 1 chunks, 1 matches")
}

func TestSearchConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.yaml", "offset_format: dec\ncontext_bytes: 0\n")

	res := execute(t, "xyz", "--config", cfgPath, "z")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Equal(t, "2: 7a  z\n", res.stdout)

	// Flags override the file
	res = execute(t, "xyz", "--config", cfgPath, "--offset-format", "hex", "z")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Equal(t, "0x00000002: 7a  z\n", res.stdout)
}

func TestSearchUsageErrors(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		errMsg string
	}{
		{name: "no pattern", args: []string{}, errMsg: "missing <pattern>"},
		{name: "bad hex", args: []string{"--hex", "abc"}, errMsg: "hex pattern"},
		{name: "empty text", args: []string{"-e", ""}, errMsg: "empty pattern"},
		{name: "bad chunk size", args: []string{"--chunk-size", "huge", "x"}, errMsg: "invalid --chunk-size"},
		{name: "negative max count", args: []string{"-m", "-1", "x"}, errMsg: "max-count"},
		{name: "bad color", args: []string{"--color", "pink", "x"}, errMsg: "invalid color mode"},
		{name: "unknown flag", args: []string{"--bogus", "x"}, errMsg: "unknown flag"},
		{name: "exclusive flags", args: []string{"-c", "-l", "x"}, errMsg: "none of the others can be"},
		{name: "hex with -x", args: []string{"--hex", "-x", "41", "414243"}, errMsg: "[hex hex-pattern]"},
		{name: "hex with -e", args: []string{"--hex", "-e", "A", "file"}, errMsg: "[hex text]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("XDG_CONFIG_HOME", t.TempDir())

			cmd := NewRootCommand()
			cmd.SetIn(strings.NewReader(""))
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.Equal(t, ExitUsage, ExitCode(err))
		})
	}
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitOK, ExitCode(nil))
	assert.Equal(t, ExitFailure, ExitCode(runtimeError(errInputsFailed)))
	assert.Equal(t, ExitUsage, ExitCode(usageError(bgrep.ErrNoPatterns)))
	assert.Equal(t, ExitUsage, ExitCode(errors.New("unknown flag: --bogus")))

	wrapped := fmt.Errorf("context: %w", runtimeError(errInputsFailed))
	assert.Equal(t, ExitFailure, ExitCode(wrapped))
	assert.ErrorIs(t, wrapped, errInputsFailed)
}
