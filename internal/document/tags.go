package document

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Tag conversion is two one-way normalizations, not a bidirectional
// mapping. Remote "Web Dev" becomes local "web-dev"; local "web-dev"
// becomes remote "Web Dev"; but remote "API" becomes "api" and returns
// as "Api". The casing loss is accepted, not a defect.

// RemoteTagsToLocal converts a record's tag list to vault form. Tags
// that normalize to nothing are dropped.
func RemoteTagsToLocal(tags []string) []string {
	var out []string

	for _, tag := range tags {
		if local := RemoteTagToLocal(tag); local != "" {
			out = append(out, local)
		}
	}

	return out
}

// RemoteTagToLocal folds one remote tag to vault form: lowercase,
// spaces to hyphens, everything outside a-z, 0-9 and hyphen stripped.
func RemoteTagToLocal(tag string) string {
	lower := strings.ToLower(strings.TrimSpace(tag))
	lower = strings.ReplaceAll(lower, " ", "-")

	var b strings.Builder

	for _, r := range lower {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}

	return b.String()
}

// LocalTagsToRemote converts vault tags to the display form pushed back
// to Raindrop. Tags that convert to nothing are dropped.
func LocalTagsToRemote(tags []string) []string {
	var out []string

	for _, tag := range tags {
		if remote := LocalTagToRemote(tag); remote != "" {
			out = append(out, remote)
		}
	}

	return out
}

// LocalTagToRemote title-cases each hyphen-delimited token and joins
// the tokens with spaces: "web-dev" becomes "Web Dev".
func LocalTagToRemote(tag string) string {
	var words []string

	for _, part := range strings.Split(tag, "-") {
		if part == "" {
			continue
		}

		r, size := utf8.DecodeRuneInString(part)
		words = append(words, string(unicode.ToUpper(r))+part[size:])
	}

	return strings.Join(words, " ")
}
