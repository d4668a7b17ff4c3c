package vault

import "time"

// Entry is one item in a directory listing. Path is vault-relative and
// slash-separated regardless of platform.
type Entry struct {
	Path    string
	IsDir   bool
	ModTime time.Time
}

// Info describes one stored document.
type Info struct {
	Size    int64
	ModTime time.Time
}

// Storage is the capability surface the reconciliation engine consumes:
// read, write, delete, list, exists, plus a stat for the conflict rule
// and an empty-dir delete for orphan cleanup. The disk-backed Vault is
// the normal implementation; tests substitute fakes or mocks without
// the engine noticing.
//
// Write sets the file's modification time to modTime, so a freshly
// synced document's mtime matches its recorded sync time. The conflict
// rule compares exactly those two values.
type Storage interface {
	Read(path string) ([]byte, error)
	Write(path string, data []byte, modTime time.Time) error
	Delete(path string) error
	DeleteEmptyDir(path string) error
	List(dir string) ([]Entry, error)
	Exists(path string) (bool, error)
	Stat(path string) (Info, error)
}
