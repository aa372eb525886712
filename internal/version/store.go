package version

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/analekt/epubcheck-mcp/internal/model"

	"github.com/gofrs/flock"
)

const (
	cacheDirName  = "epubcheck-mcp"
	cacheFileName = "version-check.json"
)

// ErrLocked is returned by Save if another process writes the cache right now.
var ErrLocked = errors.New("version cache is locked")

// Store persists the result of the last update check.
// Load returns an error wrapping fs.ErrNotExist if nothing was stored yet.
type Store interface {
	Load() (model.VersionCacheRecord, error)
	Save(model.VersionCacheRecord) error
}

// FileStore keeps the record in a single JSON file.
type FileStore struct {
	path string
}

// NewFileStore returns a store inside dir, or inside the user cache
// directory if dir is empty.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		d, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("locating user cache dir: %w", err)
		}
		dir = filepath.Join(d, cacheDirName)
	}
	return &FileStore{path: filepath.Join(dir, cacheFileName)}, nil
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load() (model.VersionCacheRecord, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return model.VersionCacheRecord{}, err
	}
	var rec model.VersionCacheRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return model.VersionCacheRecord{}, fmt.Errorf("parsing %s: %w", s.path, err)
	}
	return rec, nil
}

// Save replaces the file atomically. Concurrent writers from other processes
// are not waited for: the record is advisory, so a busy lock means ErrLocked.
func (s *FileStore) Save(rec model.VersionCacheRecord) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	lock := flock.New(s.path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("locking %s: %w", s.path, err)
	}
	if !locked {
		return ErrLocked
	}
	defer func() {
		_ = lock.Unlock()
	}()

	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	return atomicWrite(s.path, b)
}

// atomicWrite writes into a temp file in the same directory and renames it,
// readers never see a partial record.
func atomicWrite(path string, data []byte) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	if _, err = f.Write(data); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err = f.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err = os.Chmod(tmp, 0o644); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming temp file to %s: %w", path, err)
	}
	return nil
}
