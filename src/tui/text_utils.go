package tui

import (
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

// VisualWidth returns the display width of text, accounting for wide characters.
func VisualWidth(s string) int {
	return runewidth.StringWidth(s)
}

// Truncate cuts text to maxLen display cells, optionally ending with "...".
func Truncate(s string, maxLen int, ellipsis bool) string {
	s = strings.TrimSpace(s)
	if maxLen <= 0 {
		return ""
	}
	if VisualWidth(s) <= maxLen {
		return s
	}
	if ellipsis && maxLen > 3 {
		return runewidth.Truncate(s, maxLen-3, "") + "..."
	}
	return runewidth.Truncate(s, maxLen, "")
}

// TruncateAndPad truncates text and pads it to exactly width cells.
// Used for table cells.
func TruncateAndPad(s string, width int, ellipsis bool) string {
	return runewidth.FillRight(Truncate(s, width, ellipsis), width)
}

// Wrap breaks text into lines of at most width cells, on word boundaries
// where possible. Existing line breaks are kept; words wider than width are split.
func Wrap(text string, width int) string {
	if width <= 0 {
		return text
	}
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		lines = append(lines, wrapLine(para, width)...)
	}
	return strings.Join(lines, "\n")
}

func wrapLine(s string, width int) []string {
	var (
		lines    []string
		cur      strings.Builder
		curWidth int
	)
	flush := func() {
		lines = append(lines, cur.String())
		cur.Reset()
		curWidth = 0
	}

	for _, word := range strings.Fields(s) {
		for VisualWidth(word) > width {
			if curWidth > 0 {
				flush()
			}
			head := runewidth.Truncate(word, width, "")
			if head == "" {
				// a single rune wider than the line
				_, size := utf8.DecodeRuneInString(word)
				head = word[:size]
			}
			lines = append(lines, head)
			word = word[len(head):]
		}
		if word == "" {
			continue
		}

		w := VisualWidth(word)
		switch {
		case curWidth == 0:
		case curWidth+1+w <= width:
			cur.WriteByte(' ')
			curWidth++
		default:
			flush()
		}
		cur.WriteString(word)
		curWidth += w
	}

	if curWidth > 0 || len(lines) == 0 {
		flush()
	}
	return lines
}
