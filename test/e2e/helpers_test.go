package e2e_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iroshandezilva/raindrop-sync/internal/config"
	"github.com/iroshandezilva/raindrop-sync/internal/document"
	"github.com/iroshandezilva/raindrop-sync/internal/raindrop"
	"github.com/iroshandezilva/raindrop-sync/internal/state"
	syncengine "github.com/iroshandezilva/raindrop-sync/internal/sync"
	"github.com/iroshandezilva/raindrop-sync/internal/vault"
)

const testToken = "e2e-test-token"

// updateCall captures one PUT /raindrop/{id} request body as the fake
// API received it.
type updateCall struct {
	ID      int64
	Excerpt string
	Tags    []string
}

// fakeRaindrop is an in-memory Raindrop API served over httptest. It
// implements the five endpoints the engine consumes: the user lookup,
// the two collection listings, the paginated raindrops fetch, and the
// single-record update. Tests mutate the backing data between runs to
// simulate remote edits.
type fakeRaindrop struct {
	mu          sync.Mutex
	token       string
	collections []raindrop.Collection
	drops       []raindrop.Raindrop

	requests      int
	raindropPages int
	updates       []updateCall
}

func newFakeRaindrop() *fakeRaindrop {
	return &fakeRaindrop{token: testToken}
}

func (f *fakeRaindrop) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /user", f.handleUser)
	mux.HandleFunc("GET /collections", f.handleRootCollections)
	mux.HandleFunc("GET /collections/childrens", f.handleChildCollections)
	mux.HandleFunc("GET /raindrops/0", f.handleRaindrops)
	mux.HandleFunc("PUT /raindrop/{id}", f.handleUpdate)

	return f.withAuth(mux)
}

// withAuth counts every request and rejects those without the expected
// bearer token, mirroring the production API's behavior.
func (f *fakeRaindrop) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests++
		want := "Bearer " + f.token
		f.mu.Unlock()

		if r.Header.Get("Authorization") != want {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"result":false,"errorMessage":"Incorrect access_token"}`)

			return
		}

		next.ServeHTTP(w, r)
	})
}

func (f *fakeRaindrop) handleUser(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"result": true,
		"user":   map[string]any{"fullName": "E2E User"},
	})
}

func (f *fakeRaindrop) handleRootCollections(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	items := []raindrop.Collection{}
	for _, c := range f.collections {
		if c.Parent == nil {
			items = append(items, c)
		}
	}

	writeJSON(w, map[string]any{"result": true, "items": items})
}

func (f *fakeRaindrop) handleChildCollections(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	items := []raindrop.Collection{}
	for _, c := range f.collections {
		if c.Parent != nil {
			items = append(items, c)
		}
	}

	writeJSON(w, map[string]any{"result": true, "items": items})
}

func (f *fakeRaindrop) handleRaindrops(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.raindropPages++

	perPage, _ := strconv.Atoi(r.URL.Query().Get("perpage"))
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))

	items := []raindrop.Raindrop{}

	start := page * perPage
	if start < len(f.drops) {
		end := min(start+perPage, len(f.drops))
		items = append(items, f.drops[start:end]...)
	}

	writeJSON(w, map[string]any{"result": true, "items": items, "count": len(f.drops)})
}

func (f *fakeRaindrop) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"result":false,"errorMessage":"bad id"}`)

		return
	}

	var body struct {
		Excerpt string   `json:"excerpt"`
		Tags    []string `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"result":false,"errorMessage":"bad body"}`)

		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.updates = append(f.updates, updateCall{ID: id, Excerpt: body.Excerpt, Tags: body.Tags})

	for i := range f.drops {
		if f.drops[i].ID == id {
			f.drops[i].Excerpt = body.Excerpt
			if body.Tags != nil {
				f.drops[i].Tags = body.Tags
			}

			writeJSON(w, map[string]any{"result": true})

			return
		}
	}

	w.WriteHeader(http.StatusNotFound)
	fmt.Fprint(w, `{"result":false,"errorMessage":"raindrop not found"}`)
}

// addCollection seeds one collection; parent 0 means a root collection.
func (f *fakeRaindrop) addCollection(id int64, title string, parent int64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	c := raindrop.Collection{ID: id, Title: title}
	if parent != 0 {
		c.Parent = &raindrop.ParentRef{ID: parent}
	}

	f.collections = append(f.collections, c)
}

func (f *fakeRaindrop) addDrop(rec raindrop.Raindrop) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.drops = append(f.drops, rec)
}

// mutate applies fn to the stored raindrop with the given id, failing
// the test when the id is unknown.
func (f *fakeRaindrop) mutate(t *testing.T, id int64, fn func(*raindrop.Raindrop)) {
	t.Helper()

	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.drops {
		if f.drops[i].ID == id {
			fn(&f.drops[i])
			return
		}
	}

	t.Fatalf("no raindrop with id %d", id)
}

// remove deletes the stored raindrop with the given id, simulating a
// remote deletion.
func (f *fakeRaindrop) remove(t *testing.T, id int64) {
	t.Helper()

	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.drops {
		if f.drops[i].ID == id {
			f.drops = append(f.drops[:i], f.drops[i+1:]...)
			return
		}
	}

	t.Fatalf("no raindrop with id %d", id)
}

// setToken changes the token the fake accepts, invalidating the one the
// harness client keeps sending.
func (f *fakeRaindrop) setToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.token = token
}

func (f *fakeRaindrop) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.requests
}

func (f *fakeRaindrop) pageCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.raindropPages
}

func (f *fakeRaindrop) updateCalls() []updateCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]updateCall(nil), f.updates...)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// harness holds the full e2e stack: the fake Raindrop API behind an
// httptest server, a real on-disk vault and run-history database, and
// the engine wired through the real HTTP client.
type harness struct {
	api    *fakeRaindrop
	client *raindrop.Client
	engine *syncengine.Engine
	vault  *vault.Vault
	state  *state.State
	cfg    *config.Config
}

// newHarness builds the stack in a temp directory. Config fields may be
// adjusted on the returned harness before the first run; the engine
// reads them at run time.
func newHarness(t *testing.T) *harness {
	t.Helper()

	api := newFakeRaindrop()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	root := t.TempDir()
	cfg := &config.Config{
		Token:             testToken,
		VaultDir:          root,
		SyncFolder:        "Raindrop",
		CollectionFolders: true,
		APIBaseURL:        srv.URL,
		DatabasePath:      filepath.Join(root, ".raindrop-sync", "state.db"),
	}

	v, err := vault.New(cfg.SyncRoot())
	require.NoError(t, err)

	st, err := state.LoadAt(cfg.DatabasePath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	logger := slog.New(slog.DiscardHandler)

	// A millisecond pause keeps multi-page fetches fast while still
	// exercising the pacing code path.
	client := raindrop.NewClient(srv.Client(), cfg.Token, raindrop.Options{
		BaseURL: srv.URL,
		Pause:   time.Millisecond,
	}, logger)

	engine := syncengine.NewEngine(v, client, st, cfg, logger)

	return &harness{
		api:    api,
		client: client,
		engine: engine,
		vault:  v,
		state:  st,
		cfg:    cfg,
	}
}

// run executes one reconciliation pass, failing the test on any fatal
// error.
func (h *harness) run(t *testing.T) *state.RunRecord {
	t.Helper()

	rec, err := h.engine.Run(t.Context())
	require.NoError(t, err)

	return rec
}

// readDoc decodes the vault document at path, failing the test when it
// is missing or malformed.
func (h *harness) readDoc(t *testing.T, path string) *document.Document {
	t.Helper()

	content, err := h.vault.Read(path)
	require.NoError(t, err)

	doc, err := document.Decode(content)
	require.NoError(t, err)

	return doc
}

func (h *harness) exists(t *testing.T, path string) bool {
	t.Helper()

	exists, err := h.vault.Exists(path)
	require.NoError(t, err)

	return exists
}

// editAnnotation rewrites the annotation section of a synced document
// the way a user editing in their vault would: the metadata block stays
// untouched and the file's modification time moves past the recorded
// sync time.
func (h *harness) editAnnotation(t *testing.T, path, annotation string) {
	t.Helper()

	content, err := h.vault.Read(path)
	require.NoError(t, err)

	doc, err := document.Decode(content)
	require.NoError(t, err)

	idx := bytes.Index(content, []byte(document.NotesHeading))
	require.GreaterOrEqual(t, idx, 0, "document %s has no annotation heading", path)

	edited := append(content[:idx:idx], []byte(document.NotesHeading+"\n\n"+annotation+"\n")...)

	require.NoError(t, h.vault.Write(path, edited, doc.Meta.SyncTime().Add(time.Hour)))
}

// makeDrop returns a remote record with unremarkable field values.
func makeDrop(id int64, title string, collection int64) raindrop.Raindrop {
	return raindrop.Raindrop{
		ID:         id,
		Collection: raindrop.CollectionRef{ID: collection},
		Title:      title,
		Excerpt:    "excerpt for " + title,
		Link:       fmt.Sprintf("https://example.com/%d", id),
		Domain:     "example.com",
		Created:    time.Date(2025, 2, 10, 9, 15, 0, 0, time.UTC),
		LastUpdate: time.Date(2025, 2, 11, 9, 15, 0, 0, time.UTC),
	}
}
