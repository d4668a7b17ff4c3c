package document

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	errs "github.com/iroshandezilva/raindrop-sync/internal/errors"
	"github.com/iroshandezilva/raindrop-sync/internal/raindrop"
)

// addedDateLayout renders the human-readable "added" field.
const addedDateLayout = "January 2, 2006"

// Encode renders the canonical document for a record. The output is a
// deterministic function of its inputs: encoding the same record,
// collection title, sync time, and annotation twice produces identical
// bytes. Call sites pass "now" as syncedAt; comparisons between runs go
// through EqualIgnoringSyncTime so the moving timestamp does not defeat
// idempotence.
//
// The annotation parameter is what lands under the Notes heading: the
// record's own excerpt on a fresh write, or the preserved local text
// when the conflict rule applies.
func Encode(rec *raindrop.Raindrop, collectionTitle string, syncedAt time.Time, annotation string) []byte {
	tags := RemoteTagsToLocal(rec.Tags)

	var b strings.Builder

	b.WriteString("---\n")
	writeField(&b, "title", rec.Title)
	writeField(&b, "url", rec.Link)
	b.WriteString("id: ")
	b.WriteString(strconv.FormatInt(rec.ID, 10))
	b.WriteString("\n")
	writeField(&b, "collection", collectionTitle)

	if len(tags) == 0 {
		b.WriteString("tags: []\n")
	} else {
		b.WriteString("tags:\n")

		for _, tag := range tags {
			b.WriteString("  - ")
			b.WriteString(quoteIfNeeded(tag))
			b.WriteString("\n")
		}
	}

	b.WriteString("created: ")
	b.WriteString(rec.Created.UTC().Format(time.RFC3339))
	b.WriteString("\n")
	b.WriteString("last_synced: ")
	b.WriteString(syncedAt.UTC().Format(time.RFC3339))
	b.WriteString("\n")
	b.WriteString("type: ")
	b.WriteString(TypeBookmark)
	b.WriteString("\n")
	writeField(&b, "domain", rec.Domain)
	writeField(&b, "added", rec.Created.UTC().Format(addedDateLayout))
	b.WriteString("---\n\n")

	b.WriteString("# ")
	b.WriteString(flatten(rec.Title))
	b.WriteString("\n\n")
	b.WriteString("[")
	b.WriteString(rec.Link)
	b.WriteString("](")
	b.WriteString(rec.Link)
	b.WriteString(")\n\n")
	b.WriteString("Collection: ")
	b.WriteString(collectionTitle)
	b.WriteString("\n\n")

	if len(tags) > 0 {
		b.WriteString("Tags: #")
		b.WriteString(strings.Join(tags, " #"))
		b.WriteString("\n\n")
	}

	b.WriteString(NotesHeading)
	b.WriteString("\n")

	if annotation != "" {
		b.WriteString("\n")
		b.WriteString(annotation)
		b.WriteString("\n")
	}

	return []byte(b.String())
}

// Decode parses a document into metadata and annotation. It returns
// ErrNoMetadata when the header delimiters are absent, which is the
// expected shape of a non-bookmark document, and a wrapped parse error
// when a block is present but malformed. Callers skip either way; only
// the second is worth logging.
func Decode(content []byte) (*Document, error) {
	block, body, ok := splitHeader(content)
	if !ok {
		return nil, errs.ErrNoMetadata
	}

	var meta Metadata
	if err := yaml.Unmarshal(block, &meta); err != nil {
		return nil, fmt.Errorf("parsing metadata block: %w", err)
	}

	return &Document{
		Meta:       meta,
		Annotation: annotationOf(body),
	}, nil
}

// splitHeader separates the ----delimited header block from the body.
// The closing delimiter must start a line.
func splitHeader(content []byte) (block, body []byte, ok bool) {
	if !bytes.HasPrefix(content, []byte("---")) {
		return nil, nil, false
	}

	// Skip the remainder of the opening line ("---\n" or "---\r\n").
	rest := content[3:]

	idx := bytes.IndexByte(rest, '\n')
	if idx < 0 {
		return nil, nil, false
	}

	rest = rest[idx+1:]

	end := bytes.Index(rest, []byte("\n---"))
	if end < 0 {
		return nil, nil, false
	}

	block = rest[:end]

	body = rest[end+1:]
	if nl := bytes.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		body = nil
	}

	return block, body, true
}

// annotationOf extracts the user content after the Notes heading line.
// The first exact heading line wins; a document without one has an
// empty annotation.
func annotationOf(body []byte) string {
	lines := bytes.Split(body, []byte("\n"))

	for i, line := range lines {
		if string(bytes.TrimRight(line, "\r")) == NotesHeading {
			rest := bytes.Join(lines[i+1:], []byte("\n"))
			return string(bytes.TrimSpace(rest))
		}
	}

	return ""
}

// ReplaceSyncTime rewrites the last_synced line inside the header block
// and leaves every other byte of the document untouched. The reverse
// pass uses it after a successful push so the document does not read as
// locally edited on the next run.
func ReplaceSyncTime(content []byte, syncedAt time.Time) ([]byte, error) {
	if !bytes.HasPrefix(content, []byte("---")) {
		return nil, errs.ErrNoMetadata
	}

	lines := bytes.Split(content, []byte("\n"))

	for i := 1; i < len(lines); i++ {
		trimmed := string(bytes.TrimRight(lines[i], "\r"))
		if trimmed == "---" {
			break // end of header, field never seen
		}

		if strings.HasPrefix(trimmed, "last_synced:") {
			lines[i] = []byte("last_synced: " + syncedAt.UTC().Format(time.RFC3339))
			return bytes.Join(lines, []byte("\n")), nil
		}
	}

	return nil, fmt.Errorf("last_synced: %w", errs.ErrFieldMissing)
}

// EqualIgnoringSyncTime compares two encoded documents while ignoring
// the last_synced header line. Encode stamps that field with the
// current time, so a plain byte compare would never report a stored
// document as unchanged.
func EqualIgnoringSyncTime(a, b []byte) bool {
	return bytes.Equal(stripSyncLine(a), stripSyncLine(b))
}

// stripSyncLine removes the first last_synced line found inside the
// header block. Content without one comes back unchanged.
func stripSyncLine(content []byte) []byte {
	lines := bytes.Split(content, []byte("\n"))

	for i := 1; i < len(lines); i++ {
		trimmed := string(bytes.TrimRight(lines[i], "\r"))
		if trimmed == "---" {
			break
		}

		if strings.HasPrefix(trimmed, "last_synced:") {
			return bytes.Join(append(lines[:i:i], lines[i+1:]...), []byte("\n"))
		}
	}

	return content
}

// writeField emits one key: value header line, quoting the value when
// it would otherwise be structurally significant.
func writeField(b *strings.Builder, key, value string) {
	b.WriteString(key)
	b.WriteString(": ")
	b.WriteString(quoteIfNeeded(flatten(value)))
	b.WriteByte('\n')
}

// flatten folds line breaks and tabs to spaces so every metadata value
// stays on its own header line.
func flatten(s string) string {
	replacer := strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ")
	return replacer.Replace(s)
}

// needsQuote reports whether a value could be misread as structure:
// separator characters anywhere, a marker character in the leading
// position, surrounding whitespace the parser would strip, or a null
// literal. Other scalar literals (true, 1984, dates) keep their raw
// text when parsed into a string field, but the null spellings decode
// to the zero value and would not round-trip.
func needsQuote(s string) bool {
	if s == "" {
		return true
	}

	switch s {
	case "null", "Null", "NULL", "~":
		return true
	}

	if s != strings.TrimSpace(s) {
		return true
	}

	if strings.ContainsAny(s, ":#\"\\") {
		return true
	}

	switch s[0] {
	case '-', '?', '[', ']', '{', '}', '>', '|', '*', '&', '!', '%', '@', '`', '\'':
		return true
	}

	return false
}

// quoteIfNeeded wraps hazardous values in double quotes, escaping
// backslashes and quotes so the value round-trips exactly.
func quoteIfNeeded(s string) string {
	if !needsQuote(s) {
		return s
	}

	escaped := strings.ReplaceAll(s, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)

	return `"` + escaped + `"`
}
