package sync

import (
	"errors"
	"fmt"
	"io/fs"
	"path"

	"github.com/iroshandezilva/raindrop-sync/internal/document"
	"github.com/iroshandezilva/raindrop-sync/internal/raindrop"
)

// maxNameAttempts bounds the suffix probe before falling back to an
// id-keyed file name.
const maxNameAttempts = 100

// resolveFileName picks the file name for a record's document inside
// folder. The sanitized title is tried first; when another record's
// document already holds a candidate name, numeric suffixes are
// probed in order. Because a candidate is reused as soon as its
// document carries the record's own id, the chosen name is stable
// across runs regardless of processing order. After too many
// collisions the name is keyed by the record id, which cannot
// collide with another record.
func (e *Engine) resolveFileName(folder string, rec *raindrop.Raindrop) (string, error) {
	base := document.SanitizeFileName(rec.Title)

	name := base + ".md"
	for attempt := 2; attempt <= maxNameAttempts+1; attempt++ {
		target := path.Join(folder, name)

		content, err := e.storage.Read(target)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return name, nil
			}
			return "", fmt.Errorf("probing %s: %w", target, err)
		}

		doc, err := document.Decode(content)
		if err == nil && doc.Meta.ID == rec.ID {
			return name, nil
		}

		name = fmt.Sprintf("%s %d.md", base, attempt)
	}

	return fmt.Sprintf("%s-%d.md", base, rec.ID), nil
}
