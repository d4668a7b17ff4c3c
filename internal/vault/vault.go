// Package vault stores bookmark documents on disk under the sync
// directory. All access goes through the Storage interface so the
// reconciliation engine never touches the filesystem directly.
package vault

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/unicode/norm"
)

const (
	// vaultDirPerm is the permission mode for directories created inside
	// the vault. Group and other keep read+execute so note-taking apps
	// running as another user can open the tree.
	vaultDirPerm = fs.FileMode(0o755)

	// vaultFilePerm is the permission mode for files written inside the
	// vault. Group and other get read access for shared access.
	vaultFilePerm = fs.FileMode(0o644)
)

// mtimeMin and mtimeMax clamp recorded modification times to a
// reasonable range, preventing bogus remote timestamps from confusing
// the conflict rule.
var (
	mtimeMin = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	mtimeMax = time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)
)

// Vault is the disk-backed Storage rooted at the sync directory.
// Writes are serialized by an exclusive lock. Reads take a shared lock
// so they never observe partial writes.
type Vault struct {
	dir string
	mu  sync.RWMutex
}

// New creates a Vault rooted at the given directory, creating it if it
// does not exist. The directory must be an absolute path (resolved at
// config load time). The root is stored in symlink-resolved form: the
// traversal checks compare resolved file paths against it, so a root
// reached through a symlink must be resolved the same way or every
// existing file would read as an escape.
func New(dir string) (*Vault, error) {
	if dir == "" {
		return nil, fmt.Errorf("vault directory must not be empty")
	}

	if err := os.MkdirAll(dir, vaultDirPerm); err != nil {
		return nil, fmt.Errorf("creating vault directory %s: %w", dir, err)
	}

	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving vault directory %s: %w", dir, err)
	}

	return &Vault{dir: resolved}, nil
}

// Dir returns the root directory of the vault.
func (v *Vault) Dir() string {
	return v.dir
}

// Read reads a document by relative path.
func (v *Vault) Read(relPath string) ([]byte, error) {
	absPath, err := v.resolve(relPath)
	if err != nil {
		return nil, err
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	return os.ReadFile(absPath) //nolint:gosec // G304: absPath validated by Vault.resolve
}

// Write writes content to a document by relative path, creating parent
// directories as needed. If modTime is non-zero, the file's
// modification time is set to that value after writing so that a
// freshly synced document's mtime matches its recorded sync time.
func (v *Vault) Write(relPath string, data []byte, modTime time.Time) error {
	absPath, err := v.resolve(relPath)
	if err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	dir := filepath.Dir(absPath)
	if err := os.MkdirAll(dir, vaultDirPerm); err != nil {
		return fmt.Errorf("creating directory for %s: %w", relPath, err)
	}

	if err := os.WriteFile(absPath, data, vaultFilePerm); err != nil {
		return err
	}

	if !modTime.IsZero() {
		modTime = clampMtime(modTime)
		if err := os.Chtimes(absPath, modTime, modTime); err != nil {
			return fmt.Errorf("setting mtime for %s: %w", relPath, err)
		}
	}

	return nil
}

// Delete removes a document by relative path. Returns nil if the file
// does not exist.
func (v *Vault) Delete(relPath string) error {
	absPath, err := v.resolve(relPath)
	if err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	err = os.Remove(absPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %s: %w", relPath, err)
	}

	return nil
}

// DeleteEmptyDir removes a directory only if it is empty. Directories
// that still have children are left alone, as are directories that do
// not exist; both cases return nil.
func (v *Vault) DeleteEmptyDir(relPath string) error {
	absPath, err := v.resolve(relPath)
	if err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	entries, err := os.ReadDir(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return fmt.Errorf("reading directory %s: %w", relPath, err)
	}

	if len(entries) > 0 {
		return nil
	}

	err = os.Remove(absPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing directory %s: %w", relPath, err)
	}

	return nil
}

// List returns the immediate children of a directory, sorted by name.
// An empty dir means the vault root. Paths in the result are
// vault-relative and slash-separated. A missing directory yields an
// empty listing rather than an error.
func (v *Vault) List(dir string) ([]Entry, error) {
	absDir := v.dir

	if dir != "" {
		var err error

		absDir, err = v.resolve(dir)
		if err != nil {
			return nil, err
		}
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	dirEntries, err := os.ReadDir(absDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	entries := make([]Entry, 0, len(dirEntries))

	for _, de := range dirEntries {
		info, err := de.Info()
		if err != nil {
			// Entry vanished between ReadDir and Info. Skip it.
			if os.IsNotExist(err) {
				continue
			}

			return nil, fmt.Errorf("listing %s: %w", dir, err)
		}

		entries = append(entries, Entry{
			Path:    path.Join(dir, de.Name()),
			IsDir:   de.IsDir(),
			ModTime: info.ModTime(),
		})
	}

	return entries, nil
}

// Exists reports whether a document exists at the relative path.
func (v *Vault) Exists(relPath string) (bool, error) {
	absPath, err := v.resolve(relPath)
	if err != nil {
		return false, err
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	_, err = os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, fmt.Errorf("stat %s: %w", relPath, err)
	}

	return true, nil
}

// Stat returns size and modification time for a relative path. Takes a
// read lock to ensure the file isn't being written mid-stat.
func (v *Vault) Stat(relPath string) (Info, error) {
	absPath, err := v.resolve(relPath)
	if err != nil {
		return Info{}, err
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	info, err := os.Stat(absPath)
	if err != nil {
		return Info{}, err
	}

	return Info{Size: info.Size(), ModTime: info.ModTime()}, nil
}

// resolve converts a relative path to an absolute path within the vault
// directory, rejecting path traversal attempts. The path is normalized
// first, then validated against null bytes, ".." segments, and symlinks
// that escape the vault.
func (v *Vault) resolve(relPath string) (string, error) {
	relPath = NormalizePath(relPath)
	if relPath == "" {
		return "", fmt.Errorf("empty path")
	}

	if strings.ContainsRune(relPath, 0) {
		return "", fmt.Errorf("path contains null byte: %q", relPath)
	}

	// Reject paths containing ".." segments before filepath.Join cleans
	// them. Collection titles come from the server, so traversal hidden
	// in a crafted title must not reach the filesystem.
	for _, seg := range strings.Split(relPath, "/") {
		if seg == ".." {
			return "", fmt.Errorf("path contains ..: %q", relPath)
		}
	}

	absPath := filepath.Join(v.dir, relPath)
	if !strings.HasPrefix(absPath, v.dir+string(os.PathSeparator)) {
		return "", fmt.Errorf("path traversal blocked: %q resolves outside vault dir", relPath)
	}

	// Resolve symlinks and verify the real path stays within the vault.
	// This prevents a symlink at any path component from escaping the vault.
	realPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		// If the file does not exist yet (Write for a new file), check
		// the parent directory instead. If the parent is a symlink pointing
		// outside, that is still a traversal.
		if os.IsNotExist(err) {
			parentReal, pErr := filepath.EvalSymlinks(filepath.Dir(absPath))
			if pErr != nil {
				// Parent doesn't exist either. MkdirAll will create it.
				// The prefix check above already passed, so we allow it.
				return absPath, nil //nolint:nilerr // intentional: parent created by MkdirAll
			}

			vaultPrefix := v.dir + string(os.PathSeparator)
			if !strings.HasPrefix(parentReal+string(os.PathSeparator), vaultPrefix) && parentReal != v.dir {
				if filepath.Dir(absPath) != v.dir {
					return "", fmt.Errorf("symlink traversal blocked: parent of %q resolves to %q outside vault", relPath, parentReal)
				}
			}

			return absPath, nil
		}

		return "", fmt.Errorf("resolving symlinks for %q: %w", relPath, err)
	}

	if !strings.HasPrefix(realPath, v.dir+string(os.PathSeparator)) && realPath != v.dir {
		return "", fmt.Errorf("symlink traversal blocked: %q resolves to %q outside vault dir", relPath, realPath)
	}

	return absPath, nil
}

// clampMtime restricts a timestamp to the range [2000, 2100) to keep
// unreasonable remote timestamps off local files.
func clampMtime(t time.Time) time.Time {
	if t.Before(mtimeMin) {
		return mtimeMin
	}

	if t.After(mtimeMax) {
		return mtimeMax
	}

	return t
}

// NormalizePath normalizes a vault-relative path. It converts OS-native
// path separators to forward slashes, replaces non-breaking spaces with
// regular spaces, collapses repeated slashes, trims leading/trailing
// slashes, and applies Unicode NFC normalization. Call this on every
// path entering the system: listing output and paths computed from
// remote collection titles.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.ReplaceAll(p, " ", " ")
	p = strings.ReplaceAll(p, " ", " ")

	// Collapse multiple slashes and trim leading/trailing.
	var b strings.Builder

	prevSlash := false

	for _, r := range p {
		if r == '/' {
			if prevSlash {
				continue
			}

			prevSlash = true
		} else {
			prevSlash = false
		}

		b.WriteRune(r)
	}

	p = strings.Trim(b.String(), "/")

	return norm.NFC.String(p)
}
