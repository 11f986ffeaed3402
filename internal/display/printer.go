// Package display renders match events for the terminal.
package display

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/kalbasit/bgrep"
)

// Options control how matches are printed.
type Options struct {
	DecimalOffsets bool // Print offsets in decimal instead of 0x-prefixed hex
	ShowNames      bool // Prefix every line with the input name
	Color          bool // Highlight names, offsets and matched bytes
}

// Printer writes one line per match:
//
//	name:0x00000007: 68 65 6c 6c 6f 2c 20  hello,
//
// The matched bytes come first, followed by the trailing context bytes.
// Printer is not safe for concurrent use.
type Printer struct {
	w    io.Writer
	opts Options

	name    *color.Color
	offset  *color.Color
	match   *color.Color
	context *color.Color
}

// NewPrinter creates a Printer writing to w.
func NewPrinter(w io.Writer, opts Options) *Printer {
	p := &Printer{
		w:       w,
		opts:    opts,
		name:    color.New(color.FgMagenta),
		offset:  color.New(color.FgGreen),
		match:   color.New(color.FgRed, color.Bold),
		context: color.New(color.Faint),
	}

	for _, c := range []*color.Color{p.name, p.offset, p.match, p.context} {
		if opts.Color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	return p
}

// ColorEnabled resolves a color mode (auto, always, never) for w.
// auto enables color only when w is a terminal and NO_COLOR is unset.
func ColorEnabled(mode string, w io.Writer) bool {
	switch strings.ToLower(mode) {
	case "always":
		return true
	case "never":
		return false
	}

	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}

	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Match prints m followed by the context bytes that come after it.
func (p *Printer) Match(name string, m bgrep.Match, context []byte) error {
	matched := m.Bytes()

	var b strings.Builder

	if p.opts.ShowNames {
		b.WriteString(p.name.Sprint(name))
		b.WriteByte(':')
	}

	b.WriteString(p.offset.Sprint(p.FormatOffset(m.Offset)))
	b.WriteString(": ")
	b.WriteString(p.match.Sprint(hexBytes(matched)))

	if len(context) > 0 {
		b.WriteByte(' ')
		b.WriteString(p.context.Sprint(hexBytes(context)))
	}

	b.WriteString("  ")
	b.WriteString(p.match.Sprint(Printable(matched)))
	b.WriteString(p.context.Sprint(Printable(context)))
	b.WriteByte('\n')

	_, err := io.WriteString(p.w, b.String())

	return err
}

// Count prints the number of matches found in one input.
func (p *Printer) Count(name string, n int) error {
	var err error
	if p.opts.ShowNames {
		_, err = fmt.Fprintf(p.w, "%s:%d\n", p.name.Sprint(name), n)
	} else {
		_, err = fmt.Fprintf(p.w, "%d\n", n)
	}

	return err
}

// Name prints an input name on its own line.
func (p *Printer) Name(name string) error {
	_, err := fmt.Fprintln(p.w, p.name.Sprint(name))

	return err
}

// FormatOffset renders an absolute offset in the configured base.
func (p *Printer) FormatOffset(off uint64) string {
	if p.opts.DecimalOffsets {
		return fmt.Sprintf("%d", off)
	}

	return fmt.Sprintf("0x%08x", off)
}

func hexBytes(b []byte) string {
	var sb strings.Builder

	for i, c := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}

		fmt.Fprintf(&sb, "%02x", c)
	}

	return sb.String()
}

// Printable renders b as ASCII, replacing bytes outside 0x20..0x7e with '.'.
func Printable(b []byte) string {
	out := make([]byte, len(b))

	for i, c := range b {
		if c < 0x20 || c > 0x7e {
			out[i] = '.'
		} else {
			out[i] = c
		}
	}

	return string(out)
}

// ReadContext reads up to n bytes following m from ra.
// A short read at the end of the input is not an error.
func ReadContext(ra io.ReaderAt, m bgrep.Match, n int) ([]byte, error) {
	if n <= 0 || ra == nil {
		return nil, nil
	}

	buf := make([]byte, n)

	read, err := ra.ReadAt(buf, int64(m.End())) //nolint:gosec // G115
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	return buf[:read], nil
}
