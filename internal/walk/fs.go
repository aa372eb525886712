package walk

import (
	"context"
	"errors"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoTargets is yielded for a directory without a single matching file.
var ErrNoTargets = errors.New("no matching files in directory")

// Entry is a regular file found by FS.
type Entry interface {
	Path() string
	Stat() (fs.FileInfo, error)
}

// Targets expands command line arguments into validation targets. A file is
// yielded as is, a directory is walked recursively and every regular file
// with extension ext (case insensitive) is yielded. A directory without any
// is yielded with ErrNoTargets. Errors are yielded together with the
// offending path and do not stop the iteration.
func Targets(ctx context.Context, ext string, paths ...string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, path := range paths {
			if ctx.Err() != nil {
				return
			}
			info, err := os.Stat(path)
			if err != nil {
				if !yield(path, err) {
					return
				}
				continue
			}
			if !info.IsDir() {
				if !yield(path, nil) {
					return
				}
				continue
			}
			if !dir(ctx, path, ext, yield) {
				return
			}
		}
	}
}

func dir(ctx context.Context, path, ext string, yield func(string, error) bool) bool {
	root, err := os.OpenRoot(path)
	if err != nil {
		return yield(path, err)
	}
	defer func() {
		_ = root.Close()
	}()

	found := false
	for entry, err := range FS(ctx, root.FS(), path) {
		if err != nil {
			if !yield(entry.Path(), err) {
				return false
			}
			continue
		}
		if !strings.EqualFold(filepath.Ext(entry.Path()), ext) {
			continue
		}
		found = true
		if !yield(entry.Path(), nil) {
			return false
		}
	}
	if !found && ctx.Err() == nil {
		return yield(path, ErrNoTargets)
	}
	return true
}

// FS recursively walks the filesystem rooted at root and returns a handle for
// every regular file found, or an error if file information retrieval fails.
// Each Entry's Path() is prefixed with name, so passing the directory the
// root was opened from gives usable paths. It does not follow symlinks.
func FS(ctx context.Context, root fs.FS, name string) iter.Seq2[Entry, error] {
	if root == nil {
		panic("root is nil")
	}

	return func(yield func(Entry, error) bool) {
		fn := func(path string, d fs.DirEntry, err error) error {
			if ctx.Err() != nil {
				return fs.SkipAll
			}
			entry := fsEntry{path: filepath.Join(name, path)}
			if err == nil {
				entry.info, err = d.Info()
				if err == nil && !entry.info.Mode().IsRegular() {
					return nil
				}
			}
			entry.infoErr = err
			if !yield(entry, err) {
				return fs.SkipAll
			}
			return nil
		}
		_ = fs.WalkDir(root, ".", fn)
	}
}

type fsEntry struct {
	path    string
	info    fs.FileInfo
	infoErr error
}

func (e fsEntry) Path() string {
	return e.path
}

func (e fsEntry) Stat() (fs.FileInfo, error) {
	return e.info, e.infoErr
}
