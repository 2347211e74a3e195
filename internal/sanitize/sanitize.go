// Package sanitize cleans user-supplied labels, such as scenario names,
// before they are stored in the trajectory database, printed in tables or
// written into export metadata.
package sanitize

import (
	"regexp"
	"strings"
)

// MaxNameLength is the maximum allowed length for run names.
const MaxNameLength = 64

var (
	// reRepeatedHyphens matches 2 or more consecutive hyphens.
	reRepeatedHyphens = regexp.MustCompile(`-{2,}`)

	// reRepeatedUnderscores matches 2 or more consecutive underscores.
	reRepeatedUnderscores = regexp.MustCompile(`_{2,}`)
)

// RunName reduces a label to [a-zA-Z0-9-_.], mapping whitespace to hyphens,
// collapsing repeated hyphens and underscores and enforcing MaxNameLength.
// Leading and trailing separators are trimmed. The result may be empty.
func RunName(input string) string {
	if input == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range stripControlChars(input) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		case r == ' ' || r == '\t' || r == '\n':
			b.WriteRune('-')
		}
	}
	s := b.String()

	s = reRepeatedHyphens.ReplaceAllString(s, "-")
	s = reRepeatedUnderscores.ReplaceAllString(s, "_")
	s = strings.Trim(s, "-_.")

	if len(s) > MaxNameLength {
		s = strings.TrimRight(s[:MaxNameLength], "-_.")
	}

	return s
}

// stripControlChars removes ASCII control characters (0x00-0x1F and 0x7F),
// except for newline and tab.
func stripControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r < 0x20 && r != '\n' && r != '\t') || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
