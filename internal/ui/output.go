package ui

import "fmt"

// Status markers prefixed to one-line messages.
const (
	markOK   = "✓"
	markFail = "✗"
)

// Successf formats a confirmation line.
func Successf(format string, args ...any) string {
	return markOK + " " + fmt.Sprintf(format, args...)
}

// Error formats a failure line for stderr.
func Error(msg string) string {
	return markFail + " " + msg
}

// Header renders a section title.
func Header(title string) string { return Bold.Render(title) }

// Hint renders secondary text.
func Hint(msg string) string { return Muted.Render(msg) }

// Count renders a parenthesized quantity, e.g. "(3 items)".
func Count(n int, singular, plural string) string {
	noun := plural
	if n == 1 {
		noun = singular
	}
	return fmt.Sprintf("(%d %s)", n, noun)
}
