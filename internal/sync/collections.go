package sync

import (
	"log/slog"
	"path"

	"github.com/iroshandezilva/raindrop-sync/internal/document"
	"github.com/iroshandezilva/raindrop-sync/internal/raindrop"
)

// unsortedFolder holds records whose collection is absent or unknown,
// mirroring Raindrop's own Unsorted bucket.
const unsortedFolder = "Unsorted"

// resolveCollectionPath walks parent links from the given collection
// up to the root and returns sanitized folder segments, outermost
// first. An unknown id yields nil. A parent link that revisits an
// already-seen collection means the remote hierarchy has a cycle;
// resolution stops at the first revisit, keeping the segments gathered
// so far.
func resolveCollectionPath(id int64, collections map[int64]raindrop.Collection, logger *slog.Logger) []string {
	current, ok := collections[id]
	if !ok {
		return nil
	}

	segments := []string{document.SanitizeFileName(current.Title)}
	visited := map[int64]bool{id: true}

	for {
		parentID, ok := current.ParentID()
		if !ok {
			return segments
		}

		if visited[parentID] {
			logger.Warn("collection hierarchy contains a cycle",
				slog.Int64("collection_id", id),
				slog.Int64("revisited_id", parentID),
			)
			return segments
		}

		parent, ok := collections[parentID]
		if !ok {
			// Parent not visible to this account; treat the current
			// collection as a root.
			return segments
		}

		visited[parentID] = true
		segments = append([]string{document.SanitizeFileName(parent.Title)}, segments...)
		current = parent
	}
}

// targetFolder returns the vault-relative folder a record's document
// belongs in. With collection folders disabled everything lands at the
// sync root.
func (e *Engine) targetFolder(r *run, rec *raindrop.Raindrop) string {
	if !e.cfg.CollectionFolders {
		return ""
	}

	segments := resolveCollectionPath(rec.CollectionID(), r.collections, e.logger)
	if len(segments) == 0 {
		return unsortedFolder
	}

	return path.Join(segments...)
}

// collectionTitle returns the display title stored in a record's
// metadata, independent of the folder layout setting.
func (e *Engine) collectionTitle(r *run, rec *raindrop.Raindrop) string {
	if c, ok := r.collections[rec.CollectionID()]; ok {
		return c.Title
	}

	return unsortedFolder
}
