package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/iroshandezilva/raindrop-sync/internal/document"
)

// reversePass pushes locally edited annotations back to the remote
// service. A document qualifies when its file changed after its last
// recorded sync and its annotation is non-empty. Push failures are
// logged and counted; the batch never aborts on one bad record.
//
// Running before the fetch means a pushed annotation comes straight
// back in the same run's forward pass and the document settles as
// skipped.
func (e *Engine) reversePass(ctx context.Context, r *run) error {
	for _, doc := range r.index.docs {
		if err := ctx.Err(); err != nil {
			return err
		}

		// Only the first document indexed for an id may push. A later
		// duplicate stays local-only, matching the forward pass, which
		// reads the same map.
		if r.index.byID[doc.Meta.ID] != doc {
			continue
		}

		// Documents that never synced carry no timestamp; treat them
		// as older than any edit.
		if !doc.ModTime.After(doc.Meta.SyncTime()) {
			continue
		}

		if doc.Annotation == "" {
			continue
		}

		if err := e.pushDocument(ctx, doc); err != nil {
			r.rec.PushFailed++
			r.rec.Failures = append(r.rec.Failures, fmt.Sprintf("%d (%s): push: %v", doc.Meta.ID, doc.Meta.Title, err))

			e.logger.Warn("pushing annotation",
				slog.Int64("id", doc.Meta.ID),
				slog.String("path", doc.Path),
				slog.String("error", err.Error()),
			)
			continue
		}

		r.rec.Pushed++
	}

	if r.rec.Pushed > 0 || r.rec.PushFailed > 0 {
		e.logger.Info("reverse pass complete",
			slog.Int("pushed", r.rec.Pushed),
			slog.Int("failed", r.rec.PushFailed),
		)
	}

	return nil
}

// pushDocument sends one document's annotation and tags to the remote
// service, then stamps the document with the push time so the next
// scan sees it as clean.
func (e *Engine) pushDocument(ctx context.Context, doc *indexedDoc) error {
	tags := document.LocalTagsToRemote(doc.Meta.Tags)

	if err := e.remote.UpdateRaindrop(ctx, doc.Meta.ID, doc.Annotation, tags); err != nil {
		return err
	}

	// Second precision, matching the stored sync time format.
	pushedAt := e.now().Truncate(time.Second)

	content, err := e.storage.Read(doc.Path)
	if err != nil {
		return fmt.Errorf("re-reading %s: %w", doc.Path, err)
	}

	updated, err := document.ReplaceSyncTime(content, pushedAt)
	if err != nil {
		return fmt.Errorf("stamping sync time in %s: %w", doc.Path, err)
	}

	if err := e.storage.Write(doc.Path, updated, pushedAt); err != nil {
		return fmt.Errorf("writing %s: %w", doc.Path, err)
	}

	// Refresh the index entry so the forward pass sees the document
	// as clean instead of re-detecting a local edit.
	doc.Meta.LastSynced = pushedAt.UTC().Format(time.RFC3339)
	doc.ModTime = pushedAt

	return nil
}
