package ui

import (
	"os"

	"github.com/charmbracelet/x/term"
	"github.com/mattn/go-isatty"
)

// DefaultTermWidth is used when stdout is not a terminal or its size is
// unknown.
const DefaultTermWidth = 120

// DisplayContext carries the output width item listings are fitted to.
type DisplayContext struct {
	TermWidth int
}

// NewDisplayContext measures the terminal attached to stdout.
func NewDisplayContext() *DisplayContext {
	if !StdoutIsTerminal() {
		return FixedWidth(DefaultTermWidth)
	}
	w, _, err := term.GetSize(os.Stdout.Fd())
	if err != nil || w <= 0 {
		return FixedWidth(DefaultTermWidth)
	}
	return FixedWidth(w)
}

// FixedWidth returns a context with the given width.
func FixedWidth(width int) *DisplayContext {
	return &DisplayContext{TermWidth: width}
}

// StdoutIsTerminal reports whether stdout is attached to a terminal.
func StdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
