package sync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"time"

	"github.com/iroshandezilva/raindrop-sync/internal/document"
	"github.com/iroshandezilva/raindrop-sync/internal/raindrop"
	"github.com/iroshandezilva/raindrop-sync/internal/vault"
)

// outcome classifies what the forward pass did with one record.
type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeCreated
	outcomeUpdated
	outcomeRelocated
)

// forwardPass materializes every fetched record as a vault document.
// Failures are per-record: logged, counted, and the pass moves on, so
// one broken record never blocks the rest of the batch.
func (e *Engine) forwardPass(ctx context.Context, r *run, records []raindrop.Raindrop) error {
	for i := range records {
		if err := ctx.Err(); err != nil {
			return err
		}

		rec := &records[i]

		out, err := e.syncRecord(r, rec)
		if err != nil {
			r.rec.Failed++
			r.rec.Failures = append(r.rec.Failures, fmt.Sprintf("%d (%s): %v", rec.ID, rec.Title, err))

			e.logger.Warn("syncing record",
				slog.Int64("id", rec.ID),
				slog.String("title", rec.Title),
				slog.String("error", err.Error()),
			)
			continue
		}

		switch out {
		case outcomeCreated:
			r.rec.Created++
		case outcomeUpdated:
			r.rec.Updated++
		case outcomeRelocated:
			r.rec.Relocated++
		case outcomeSkipped:
			r.rec.Skipped++
		}
	}

	return nil
}

// syncRecord reconciles one remote record with the vault: resolve the
// target path, carry over a locally edited annotation, drop the stale
// copy when the record moved, then create, refresh, or skip the
// document at the target.
func (e *Engine) syncRecord(r *run, rec *raindrop.Raindrop) (outcome, error) {
	folder := e.targetFolder(r, rec)
	title := e.collectionTitle(r, rec)

	name, err := e.resolveFileName(folder, rec)
	if err != nil {
		return outcomeSkipped, err
	}

	target := vault.NormalizePath(path.Join(folder, name))
	counterpart := r.index.byID[rec.ID]

	// A local edit is a counterpart whose file changed after its last
	// recorded sync. Its annotation survives the rewrite, even when a
	// retitled record moves the document to a new path; everything
	// else is re-derived from the remote record.
	annotation := rec.Excerpt
	localEdit := false

	if counterpart != nil {
		if syncTime := counterpart.Meta.SyncTime(); !syncTime.IsZero() {
			if info, err := e.storage.Stat(counterpart.Path); err == nil && info.ModTime.After(syncTime) {
				annotation = counterpart.Annotation
				localEdit = true
			}
		}
	}

	relocated := false
	if counterpart != nil && counterpart.Path != target {
		if err := e.storage.Delete(counterpart.Path); err != nil {
			return outcomeSkipped, fmt.Errorf("removing stale copy %s: %w", counterpart.Path, err)
		}

		e.logger.Info("relocating document",
			slog.Int64("id", rec.ID),
			slog.String("from", counterpart.Path),
			slog.String("to", target),
		)

		relocated = true
	}

	// Sync times are stored at second precision. Pinning the file
	// time to the same truncated instant keeps an untouched document
	// from ever reading as edited.
	syncedAt := e.now().Truncate(time.Second)
	encoded := document.Encode(rec, title, syncedAt, annotation)

	existing, err := e.storage.Read(target)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return outcomeSkipped, fmt.Errorf("reading %s: %w", target, err)
		}
		existing = nil
	}

	if existing == nil {
		if err := e.storage.Write(target, encoded, syncedAt); err != nil {
			return outcomeSkipped, fmt.Errorf("writing %s: %w", target, err)
		}

		if relocated {
			return outcomeRelocated, nil
		}
		return outcomeCreated, nil
	}

	if !localEdit && document.EqualIgnoringSyncTime(encoded, existing) {
		if relocated {
			return outcomeRelocated, nil
		}
		return outcomeSkipped, nil
	}

	if err := e.storage.Write(target, encoded, syncedAt); err != nil {
		return outcomeSkipped, fmt.Errorf("writing %s: %w", target, err)
	}

	if relocated {
		return outcomeRelocated, nil
	}
	return outcomeUpdated, nil
}
