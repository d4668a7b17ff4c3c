package document

import (
	"strings"
	"unicode"
)

const (
	// maxFileNameRunes bounds sanitized base names. Long enough for any
	// reasonable title, short enough to stay under filesystem limits
	// once a folder path and numeric suffix are added.
	maxFileNameRunes = 120

	// untitledName stands in for titles that sanitize to nothing.
	untitledName = "Untitled"
)

// SanitizeFileName turns a bookmark or collection title into a usable
// file or folder base name. Characters that break filesystems or wiki
// links become spaces, runs of whitespace collapse, and overly long
// names are truncated. The result never contains a path separator.
func SanitizeFileName(title string) string {
	var b strings.Builder

	for _, r := range title {
		switch {
		case strings.ContainsRune(`/\:*?"<>|#^[]`, r):
			b.WriteRune(' ')
		case r == '\n' || r == '\r' || r == '\t':
			b.WriteRune(' ')
		case unicode.IsControl(r):
			// dropped
		default:
			b.WriteRune(r)
		}
	}

	name := strings.Join(strings.Fields(b.String()), " ")

	if runes := []rune(name); len(runes) > maxFileNameRunes {
		name = string(runes[:maxFileNameRunes])
	}

	// Trailing dots confuse several filesystems and markdown link
	// parsers.
	name = strings.TrimRight(name, ". ")

	if name == "" {
		return untitledName
	}

	return name
}
