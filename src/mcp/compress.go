package mcp

import (
	"regexp"
	"strings"

	"hookstat/src/sanitize"
)

// maxMessageWidth bounds a message in a manifest. Full text is in get_finding_details.
const maxMessageWidth = 240

// longPathPattern matches absolute paths with 3+ directories.
// Captures the filename (and optional line number) at the end.
var longPathPattern = regexp.MustCompile(`/(?:[^/\s():]+/){3,}([^/\s():]+(?::\d+)?)`)

// compressPath shortens long file paths to .../filename.
func compressPath(s string) string {
	return longPathPattern.ReplaceAllString(s, ".../$1")
}

// minPrefixLength is the shortest directory prefix worth stripping.
const minPrefixLength = 20

// commonDirPrefix returns the longest directory prefix, ending in '/', shared by all files.
// Returns "" for fewer than two files or a prefix too short to matter.
func commonDirPrefix(files []string) string {
	if len(files) < 2 {
		return ""
	}

	prefix := files[0]
	for _, f := range files[1:] {
		for !strings.HasPrefix(f, prefix) {
			prefix = prefix[:len(prefix)-1]
		}
		if prefix == "" {
			return ""
		}
	}

	cut := strings.LastIndexByte(prefix, '/')
	if cut < 0 {
		return ""
	}
	prefix = prefix[:cut+1]
	if len(prefix) < minPrefixLength {
		return ""
	}
	return prefix
}

// stripPrefix removes prefix from every path in s.
func stripPrefix(s, prefix string) string {
	if prefix == "" {
		return s
	}
	return strings.ReplaceAll(s, prefix, "")
}

// whitespacePattern matches multiple consecutive whitespace characters.
var whitespacePattern = regexp.MustCompile(`\s+`)

// normalizeWhitespace collapses multiple spaces/tabs and trims.
func normalizeWhitespace(s string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}

// compactLocation renders a location relative to the shared prefix.
func compactLocation(loc, prefix string) string {
	if prefix != "" {
		return stripPrefix(loc, prefix)
	}
	return compressPath(loc)
}

// compactMessage sanitizes a message and shortens it for a manifest.
func compactMessage(msg, prefix string) string {
	msg = normalizeWhitespace(sanitize.Text(msg))
	if prefix != "" {
		msg = stripPrefix(msg, prefix)
	} else {
		msg = compressPath(msg)
	}
	return sanitize.Truncate(msg, maxMessageWidth, "...")
}
