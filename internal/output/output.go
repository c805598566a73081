// Package output formats CLI output: status lines, search results, build
// progress and errors. Color and in-place progress are used only on a
// terminal.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	amanerrors "github.com/Aman-CERP/amandocs/internal/errors"
)

const defaultWidth = 80

// Writer provides formatted output for the CLI.
type Writer struct {
	out    io.Writer
	styles Styles
	tty    bool
	width  int
}

// New creates a Writer for out. Color and width are detected when out is
// a terminal; NO_COLOR disables color.
func New(out io.Writer) *Writer {
	w := &Writer{out: out, width: defaultWidth}
	if f, ok := out.(*os.File); ok {
		fd := f.Fd()
		w.tty = isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
		if w.tty {
			if width, _, err := term.GetSize(int(fd)); err == nil && width > 0 {
				w.width = width
			}
		}
	}
	w.styles = GetStyles(!w.tty || os.Getenv("NO_COLOR") != "")
	return w
}

// NewPlain creates a Writer that never colors or redraws.
func NewPlain(out io.Writer) *Writer {
	return &Writer{out: out, styles: NoColorStyles(), width: defaultWidth}
}

// IsTTY reports whether the Writer targets a terminal.
func (w *Writer) IsTTY() bool {
	return w.tty
}

// Width returns the terminal width, or 80 off a terminal.
func (w *Writer) Width() int {
	return w.width
}

// Styles returns the active styles.
func (w *Writer) Styles() Styles {
	return w.styles
}

// Out returns the underlying writer.
func (w *Writer) Out() io.Writer {
	return w.out
}

// Status prints a message with an icon. Write errors are ignored for
// console output.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Statusf prints a formatted status message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a success message.
func (w *Writer) Success(msg string) {
	w.Status(w.styles.Success.Render("✓"), msg)
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Status(w.styles.Warning.Render("!"), msg)
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.Status(w.styles.Error.Render("✗"), msg)
}

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Header prints a section header.
func (w *Writer) Header(title string) {
	_, _ = fmt.Fprintln(w.out, w.styles.Header.Render(title))
}

// KeyValue prints an aligned label and value.
func (w *Writer) KeyValue(label string, value any) {
	_, _ = fmt.Fprintf(w.out, "  %s %v\n", w.styles.Label.Render(fmt.Sprintf("%-16s", label+":")), value)
}

// Code prints an indented block.
func (w *Writer) Code(content string) {
	_, _ = fmt.Fprintln(w.out)
	for _, line := range strings.Split(content, "\n") {
		_, _ = fmt.Fprintf(w.out, "  %s\n", line)
	}
	_, _ = fmt.Fprintln(w.out)
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// Err prints err with its code, details and suggestion.
func (w *Writer) Err(err error) {
	if err == nil {
		return
	}
	text := strings.TrimRight(amanerrors.FormatForCLI(err), "\n")
	lines := strings.Split(text, "\n")
	w.Error(lines[0])
	for _, line := range lines[1:] {
		_, _ = fmt.Fprintf(w.out, "  %s\n", w.styles.Dim.Render(strings.TrimSpace(line)))
	}
}
