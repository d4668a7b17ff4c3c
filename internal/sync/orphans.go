package sync

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/iroshandezilva/raindrop-sync/internal/raindrop"
)

// cleanupOrphans deletes local documents whose remote id no longer
// appears in the fetched set, then prunes folders the run emptied.
// When the test mode cap is active the fetched set may be truncated,
// so deletion is skipped entirely rather than wiping documents for
// records beyond the cap.
func (e *Engine) cleanupOrphans(r *run, records []raindrop.Raindrop) {
	if e.cfg.TestModeMaxItems > 0 {
		e.logger.Info("test mode cap active, skipping orphan cleanup")
	} else {
		seen := make(map[int64]bool, len(records))
		for i := range records {
			seen[records[i].ID] = true
		}

		for _, doc := range r.index.docs {
			if seen[doc.Meta.ID] {
				continue
			}

			if err := e.storage.Delete(doc.Path); err != nil {
				e.logger.Warn("deleting orphaned document",
					slog.String("path", doc.Path),
					slog.String("error", err.Error()),
				)
				continue
			}

			e.logger.Info("deleted orphaned document",
				slog.Int64("id", doc.Meta.ID),
				slog.String("path", doc.Path),
			)
			r.rec.Deleted++
		}
	}

	r.rec.FoldersPruned = e.pruneEmptyFolders()
}

// pruneEmptyFolders removes empty folders under the sync root,
// deepest first so a parent emptied by its child's removal goes in
// the same pass. Folders holding any file, synced or not, are left
// alone. Returns the number of folders removed.
func (e *Engine) pruneEmptyFolders() int {
	var folders []string
	e.collectFolders("", &folders)

	sort.Slice(folders, func(i, j int) bool {
		return strings.Count(folders[i], "/") > strings.Count(folders[j], "/")
	})

	pruned := 0
	for _, dir := range folders {
		if err := e.storage.DeleteEmptyDir(dir); err != nil {
			e.logger.Warn("pruning folder",
				slog.String("path", dir),
				slog.String("error", err.Error()),
			)
			continue
		}

		// DeleteEmptyDir is a no-op on non-empty folders, so probe
		// whether this one actually went away.
		exists, err := e.storage.Exists(dir)
		if err == nil && !exists {
			pruned++
			e.logger.Info("removed empty folder", slog.String("path", dir))
		}
	}

	return pruned
}

func (e *Engine) collectFolders(dir string, out *[]string) {
	entries, err := e.storage.List(dir)
	if err != nil {
		e.logger.Warn("listing folder",
			slog.String("path", dir),
			slog.String("error", err.Error()),
		)
		return
	}

	for _, entry := range entries {
		if !entry.IsDir {
			continue
		}

		*out = append(*out, entry.Path)
		e.collectFolders(entry.Path, out)
	}
}
