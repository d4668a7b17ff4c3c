package sync

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iroshandezilva/raindrop-sync/internal/config"
	"github.com/iroshandezilva/raindrop-sync/internal/document"
	"github.com/iroshandezilva/raindrop-sync/internal/raindrop"
	"github.com/iroshandezilva/raindrop-sync/internal/state"
	"github.com/iroshandezilva/raindrop-sync/internal/vault"
)

// Fixed instants keep every mtime-versus-sync-time comparison
// deterministic. Whole seconds, because sync times are stored at
// second precision.
var (
	syncT0 = time.Date(2025, 8, 20, 10, 0, 0, 0, time.UTC)
	syncT1 = syncT0.Add(2 * time.Hour)
	syncT2 = syncT0.Add(4 * time.Hour)
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestEngine builds an engine on a real vault and a real run
// history database, with the remote side injected by the caller and
// the clock pinned to syncT0.
func newTestEngine(t *testing.T, remote Remote) (*Engine, *vault.Vault) {
	t.Helper()

	root := t.TempDir()

	v, err := vault.New(filepath.Join(root, "Raindrop"))
	require.NoError(t, err)

	st, err := state.LoadAt(filepath.Join(root, "state", "sync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	cfg := &config.Config{
		Token:             "test-token",
		VaultDir:          root,
		SyncFolder:        "Raindrop",
		CollectionFolders: true,
	}

	e := NewEngine(v, remote, st, cfg, testLogger())
	e.now = func() time.Time { return syncT0 }

	return e, v
}

func makeCollection(id int64, title string, parent int64) raindrop.Collection {
	c := raindrop.Collection{ID: id, Title: title}
	if parent != 0 {
		c.Parent = &raindrop.ParentRef{ID: parent}
	}

	return c
}

func makeRaindrop(id int64, title string, collection int64) raindrop.Raindrop {
	return raindrop.Raindrop{
		ID:         id,
		Collection: raindrop.CollectionRef{ID: collection},
		Title:      title,
		Excerpt:    "excerpt for " + title,
		Link:       "https://example.com/" + document.SanitizeFileName(title),
		Domain:     "example.com",
		Created:    time.Date(2025, 1, 15, 8, 30, 0, 0, time.UTC),
	}
}

// readDoc decodes the document at path, failing the test when it is
// missing or malformed.
func readDoc(t *testing.T, v *vault.Vault, path string) *document.Document {
	t.Helper()

	content, err := v.Read(path)
	require.NoError(t, err)

	doc, err := document.Decode(content)
	require.NoError(t, err)

	return doc
}

// markEdited rewrites the document at path with the given annotation
// while keeping last_synced at syncedAt, then bumps the file time past
// it so the engine sees a local edit.
func markEdited(t *testing.T, v *vault.Vault, path string, rec *raindrop.Raindrop, collectionTitle, annotation string, syncedAt time.Time) {
	t.Helper()

	edited := document.Encode(rec, collectionTitle, syncedAt, annotation)
	require.NoError(t, v.Write(path, edited, syncedAt.Add(time.Hour)))
}
