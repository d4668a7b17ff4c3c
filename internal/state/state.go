package state

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	// stateDirPerm is the permission mode for the state directory.
	stateDirPerm = fs.FileMode(0o700)

	// stateFilePerm is the permission mode for the state database file.
	stateFilePerm = fs.FileMode(0o600)

	// stateOpenTimeout is the maximum time to wait for the bolt database lock.
	stateOpenTimeout = 5 * time.Second

	// runKeyFormat is a fixed-width UTC timestamp, so lexicographic
	// bucket order is chronological. RFC3339Nano trims trailing zeros
	// and would break that.
	runKeyFormat = "2006-01-02T15:04:05.000000000Z0700"

	// maxRetainedRuns bounds the run history. Older records are pruned
	// on write.
	maxRetainedRuns = 90
)

var runsBucket = []byte("runs")

// RunRecord summarizes one reconciliation run: when it ran, what it
// did, and enough of the active configuration to interpret the counts.
type RunRecord struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Fetched       int `json:"fetched"`
	Created       int `json:"created"`
	Updated       int `json:"updated"`
	Relocated     int `json:"relocated"`
	Skipped       int `json:"skipped"`
	Pushed        int `json:"pushed"`
	Deleted       int `json:"deleted"`
	FoldersPruned int `json:"folders_pruned"`
	Failed        int `json:"failed"`
	PushFailed    int `json:"push_failed"`

	// Failures holds one line per failed item, for the status command
	// and the run report.
	Failures []string `json:"failures,omitempty"`

	SyncFolder        string `json:"sync_folder"`
	CollectionFolders bool   `json:"collection_folders"`
	Bidirectional     bool   `json:"bidirectional"`
}

// Duration returns how long the run took.
func (r RunRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Processed returns the number of fetched records that reached a
// terminal outcome in the forward pass.
func (r RunRecord) Processed() int {
	return r.Created + r.Updated + r.Relocated + r.Skipped + r.Failed
}

// State wraps a bbolt database holding the persistent run history.
type State struct {
	db *bolt.DB
}

// LoadAt opens a state database at the given path, creating it and its
// parent directory if they do not exist.
func LoadAt(path string) (*State, error) {
	if err := os.MkdirAll(filepath.Dir(path), stateDirPerm); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	db, err := bolt.Open(path, stateFilePerm, &bolt.Options{Timeout: stateOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(runsBucket)

		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing state db: %w", err)
	}

	return &State{db: db}, nil
}

// Close closes the database.
func (s *State) Close() error {
	return s.db.Close()
}

// RecordRun appends a run record to the history, pruning the oldest
// entries beyond the retention limit.
func (s *State) RecordRun(rec RunRecord) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(runsBucket)

		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}

		key := []byte(rec.StartedAt.UTC().Format(runKeyFormat))
		if err := b.Put(key, data); err != nil {
			return err
		}

		n := 0

		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			n++
		}

		for k, _ := c.First(); k != nil && n > maxRetainedRuns; k, _ = c.Next() {
			if err := c.Delete(); err != nil {
				return err
			}

			n--
		}

		return nil
	})
}

// LastRun returns the most recent run record, or nil if no run has
// been recorded yet.
func (s *State) LastRun() (*RunRecord, error) {
	var rec *RunRecord

	err := s.db.View(func(tx *bolt.Tx) error {
		_, v := tx.Bucket(runsBucket).Cursor().Last()
		if v == nil {
			return nil
		}

		rec = &RunRecord{}

		return json.Unmarshal(v, rec)
	})

	return rec, err
}

// RecentRuns returns up to n run records, newest first.
func (s *State) RecentRuns(n int) ([]RunRecord, error) {
	var recs []RunRecord

	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(runsBucket).Cursor()

		for k, v := c.Last(); k != nil && len(recs) < n; k, v = c.Prev() {
			var rec RunRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}

			recs = append(recs, rec)
		}

		return nil
	})

	return recs, err
}
