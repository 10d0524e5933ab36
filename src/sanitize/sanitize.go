// Package sanitize cleans text that originates in the analysed program
// (property names, source snippets, messages) before it reaches a terminal,
// a report file or an MCP tool response.
package sanitize

import (
	"strings"
	"unicode"

	"github.com/charmbracelet/x/ansi"
)

// StripANSI removes ANSI escape sequences.
func StripANSI(s string) string {
	return ansi.Strip(s)
}

// Text strips escape sequences, normalizes line endings, drops other control
// characters and trims surrounding whitespace.
func Text(s string) string {
	s = ansi.Strip(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// Truncate shortens s to at most width display cells, appending tail when cut.
func Truncate(s string, width int, tail string) string {
	return ansi.Truncate(Text(s), width, tail)
}

// Width returns the display width of s, ignoring escape sequences.
func Width(s string) int {
	return ansi.StringWidth(s)
}
