package sync

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/iroshandezilva/raindrop-sync/internal/document"
	errs "github.com/iroshandezilva/raindrop-sync/internal/errors"
	"github.com/iroshandezilva/raindrop-sync/internal/vault"
)

// indexedDoc is one synced bookmark document found during the vault
// scan, with enough decoded state to drive both sync directions.
type indexedDoc struct {
	Path       string
	Meta       document.Metadata
	Annotation string
	ModTime    time.Time
}

// localIndex is the run's view of the vault, built fresh from a full
// tree scan at the start of every run. Nothing is cached across runs,
// so documents moved or edited between runs are always seen.
type localIndex struct {
	byID map[int64]*indexedDoc
	docs []*indexedDoc
}

// buildIndex scans the sync tree and decodes every markdown file.
// Files without a metadata block, non-bookmark documents, and
// unreadable files are skipped rather than fatal; only a failure to
// list the sync root aborts. Folders are visited depth-first in
// listing order, so the scan order is stable across runs.
func (e *Engine) buildIndex() (*localIndex, error) {
	index := &localIndex{byID: make(map[int64]*indexedDoc)}

	if err := e.scanFolder("", index); err != nil {
		return nil, err
	}

	e.logger.Debug("vault indexed", slog.Int("documents", len(index.docs)))

	return index, nil
}

func (e *Engine) scanFolder(dir string, index *localIndex) error {
	entries, err := e.storage.List(dir)
	if err != nil {
		if dir == "" {
			return fmt.Errorf("listing sync root: %w", err)
		}

		e.logger.Warn("listing folder during scan",
			slog.String("path", dir),
			slog.String("error", err.Error()),
		)

		return nil
	}

	for _, entry := range entries {
		if entry.IsDir {
			if err := e.scanFolder(entry.Path, index); err != nil {
				return err
			}
			continue
		}

		if !strings.HasSuffix(entry.Path, ".md") {
			continue
		}

		e.indexDocument(entry, index)
	}

	return nil
}

func (e *Engine) indexDocument(entry vault.Entry, index *localIndex) {
	content, err := e.storage.Read(entry.Path)
	if err != nil {
		e.logger.Warn("reading document during scan",
			slog.String("path", entry.Path),
			slog.String("error", err.Error()),
		)
		return
	}

	doc, err := document.Decode(content)
	if err != nil {
		// Plain notes without a metadata block live alongside synced
		// documents and are none of our business.
		if !errors.Is(err, errs.ErrNoMetadata) {
			e.logger.Warn("parsing document during scan",
				slog.String("path", entry.Path),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	if !doc.Meta.IsBookmark() {
		return
	}

	indexed := &indexedDoc{
		Path:       entry.Path,
		Meta:       doc.Meta,
		Annotation: doc.Annotation,
		ModTime:    entry.ModTime,
	}

	index.docs = append(index.docs, indexed)

	if _, dup := index.byID[doc.Meta.ID]; dup {
		e.logger.Warn("duplicate remote id in vault, keeping first document",
			slog.Int64("id", doc.Meta.ID),
			slog.String("path", entry.Path),
		)
		return
	}

	index.byID[doc.Meta.ID] = indexed
}
