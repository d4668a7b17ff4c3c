package document

import "time"

const (
	// TypeBookmark is the metadata type marker identifying a document
	// owned by the sync engine.
	TypeBookmark = "raindrop-bookmark"

	// NotesHeading introduces the user-editable annotation section.
	// It is the authoritative boundary: everything after it is user
	// content and survives forward-pass rewrites when the local copy is
	// newer than its last sync.
	NotesHeading = "## Notes"
)

// Metadata is the parsed header block of a bookmark document.
// Timestamps stay as strings here; SyncTime parses on demand so a
// hand-mangled value degrades to "never synced" instead of failing the
// whole document.
type Metadata struct {
	Title      string   `yaml:"title"`
	URL        string   `yaml:"url"`
	ID         int64    `yaml:"id"`
	Collection string   `yaml:"collection"`
	Tags       []string `yaml:"tags"`
	Created    string   `yaml:"created"`
	LastSynced string   `yaml:"last_synced"`
	Type       string   `yaml:"type"`
	Domain     string   `yaml:"domain"`
	Added      string   `yaml:"added"`
}

// Document is one decoded local document: its metadata plus the
// annotation section.
type Document struct {
	Meta       Metadata
	Annotation string
}

// IsBookmark reports whether the metadata identifies a synced bookmark
// document: the type marker plus a remote id.
func (m *Metadata) IsBookmark() bool {
	return m.Type == TypeBookmark && m.ID != 0
}

// SyncTime returns the parsed last_synced timestamp. Absent or
// malformed values yield the zero time, which makes any later file
// modification count as a local edit.
func (m *Metadata) SyncTime() time.Time {
	t, err := time.Parse(time.RFC3339, m.LastSynced)
	if err != nil {
		return time.Time{}
	}

	return t
}
