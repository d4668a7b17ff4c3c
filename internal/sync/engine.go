// Package sync reconciles the Raindrop.io bookmark set with markdown
// documents in the local vault. A run fetches the full remote state,
// materializes every record as a document under the sync folder, and
// removes documents whose records disappeared remotely. When
// bidirectional sync is enabled, locally edited annotations are pushed
// back to the service before the fetch.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/iroshandezilva/raindrop-sync/internal/config"
	errs "github.com/iroshandezilva/raindrop-sync/internal/errors"
	"github.com/iroshandezilva/raindrop-sync/internal/raindrop"
	"github.com/iroshandezilva/raindrop-sync/internal/state"
	"github.com/iroshandezilva/raindrop-sync/internal/vault"
)

// Remote is the slice of the Raindrop API the engine consumes. The
// HTTP client in internal/raindrop is the real implementation; tests
// substitute a mock.
type Remote interface {
	// VerifyCredentials checks that the configured token is accepted.
	VerifyCredentials(ctx context.Context) error

	// FetchCollections returns every collection the account can see,
	// root-level and nested alike.
	FetchCollections(ctx context.Context) ([]raindrop.Collection, error)

	// FetchRaindrops returns the full bookmark set across all
	// collections, paginating internally.
	FetchRaindrops(ctx context.Context) ([]raindrop.Raindrop, error)

	// UpdateRaindrop overwrites the excerpt (and tags, when non-nil)
	// of one remote bookmark.
	UpdateRaindrop(ctx context.Context, id int64, excerpt string, tags []string) error
}

// Engine runs reconciliation passes against one vault. It is safe to
// reuse for consecutive runs but not for concurrent ones.
type Engine struct {
	storage vault.Storage
	remote  Remote
	state   *state.State
	cfg     *config.Config
	logger  *slog.Logger
	now     func() time.Time
}

// NewEngine wires an engine from its dependencies. state may be nil,
// in which case run history is not persisted.
func NewEngine(storage vault.Storage, remote Remote, st *state.State, cfg *config.Config, logger *slog.Logger) *Engine {
	return &Engine{
		storage: storage,
		remote:  remote,
		state:   st,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// run carries the per-run working set through the passes. Keeping it
// off the Engine lets one Engine serve the periodic loop without any
// state bleeding between runs.
type run struct {
	collections map[int64]raindrop.Collection
	index       *localIndex
	rec         state.RunRecord
}

// Run executes one full reconciliation pass: index the vault, push
// local edits when bidirectional sync is on, fetch the remote state,
// materialize every record, delete orphans, prune emptied folders,
// and write the status report. The returned record summarizes the
// run; it is also persisted to the run history.
//
// Transport failures while fetching the collection or bookmark sets
// abort the run. Per-record failures do not: they are logged, counted,
// and the pass continues.
func (e *Engine) Run(ctx context.Context) (*state.RunRecord, error) {
	if !e.cfg.HasToken() {
		return nil, errs.ErrMissingToken
	}

	r := &run{rec: state.RunRecord{
		StartedAt:         e.now(),
		SyncFolder:        e.cfg.SyncFolder,
		CollectionFolders: e.cfg.CollectionFolders,
		Bidirectional:     e.cfg.Bidirectional,
	}}

	e.logger.Info("sync starting",
		slog.String("sync_folder", e.cfg.SyncFolder),
		slog.Bool("bidirectional", e.cfg.Bidirectional),
	)

	index, err := e.buildIndex()
	if err != nil {
		return nil, err
	}
	r.index = index

	if e.cfg.Bidirectional {
		if err := e.reversePass(ctx, r); err != nil {
			return nil, err
		}
	}

	collections, err := e.remote.FetchCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching collections: %w", err)
	}

	r.collections = make(map[int64]raindrop.Collection, len(collections))
	for _, c := range collections {
		r.collections[c.ID] = c
	}

	records, err := e.remote.FetchRaindrops(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching raindrops: %w", err)
	}
	r.rec.Fetched = len(records)

	e.logger.Info("remote state fetched",
		slog.Int("collections", len(collections)),
		slog.Int("raindrops", len(records)),
	)

	if err := e.forwardPass(ctx, r, records); err != nil {
		return nil, err
	}

	e.cleanupOrphans(r, records)

	if err := e.writeReport(r); err != nil {
		e.logger.Warn("writing status report", slog.String("error", err.Error()))
	}

	r.rec.FinishedAt = e.now()

	if e.state != nil {
		if err := e.state.RecordRun(r.rec); err != nil {
			e.logger.Warn("persisting run record", slog.String("error", err.Error()))
		}
	}

	e.logger.Info("sync complete",
		slog.Int("fetched", r.rec.Fetched),
		slog.Int("created", r.rec.Created),
		slog.Int("updated", r.rec.Updated),
		slog.Int("relocated", r.rec.Relocated),
		slog.Int("skipped", r.rec.Skipped),
		slog.Int("pushed", r.rec.Pushed),
		slog.Int("deleted", r.rec.Deleted),
		slog.Int("failed", r.rec.Failed+r.rec.PushFailed),
		slog.Duration("took", r.rec.Duration()),
	)

	return &r.rec, nil
}

// Purge deletes every synced bookmark document from the vault and
// prunes the folders that emptied out. The remote service is never
// touched. Returns the number of documents removed.
func (e *Engine) Purge() (int, error) {
	index, err := e.buildIndex()
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, doc := range index.docs {
		if err := e.storage.Delete(doc.Path); err != nil {
			e.logger.Warn("deleting document",
				slog.String("path", doc.Path),
				slog.String("error", err.Error()),
			)
			continue
		}
		deleted++
	}

	pruned := e.pruneEmptyFolders()

	e.logger.Info("vault purged",
		slog.Int("deleted", deleted),
		slog.Int("folders_pruned", pruned),
	)

	return deleted, nil
}
