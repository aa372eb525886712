package walk_test

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/analekt/epubcheck-mcp/internal/walk"
	"github.com/stretchr/testify/require"
)

func tree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, name := range []string{
		"b.epub",
		"c.EPUB",
		"readme.txt",
		"sub/d.epub",
		"sub/deeper/e.epub",
		"sub/notes.epub.bak",
	} {
		path := filepath.Join(root, "books", name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("PK"), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "single.epub"), []byte("PK"), 0o644))
	return root
}

func TestTargets(t *testing.T) {
	t.Parallel()
	root := tree(t)
	books := filepath.Join(root, "books")
	single := filepath.Join(root, "single.epub")
	missing := filepath.Join(root, "missing.epub")

	var paths []string
	var errs []string
	for path, err := range walk.Targets(t.Context(), ".epub", single, books, missing) {
		if err != nil {
			require.ErrorIs(t, err, fs.ErrNotExist)
			errs = append(errs, path)
			continue
		}
		paths = append(paths, path)
	}

	require.Equal(t, []string{
		single,
		filepath.Join(books, "b.epub"),
		filepath.Join(books, "c.EPUB"),
		filepath.Join(books, "sub", "d.epub"),
		filepath.Join(books, "sub", "deeper", "e.epub"),
	}, paths)
	require.Equal(t, []string{missing}, errs)
}

func TestTargets_NoMatches(t *testing.T) {
	t.Parallel()
	root := tree(t)
	empty := filepath.Join(root, "empty")
	require.NoError(t, os.Mkdir(empty, 0o755))
	notes := filepath.Join(root, "notes")
	require.NoError(t, os.Mkdir(notes, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(notes, "todo.txt"), nil, 0o644))

	var errs []string
	for path, err := range walk.Targets(t.Context(), ".epub", empty, notes) {
		require.ErrorIs(t, err, walk.ErrNoTargets)
		errs = append(errs, path)
	}
	require.Equal(t, []string{empty, notes}, errs)
}

func TestTargets_FileIsNotFiltered(t *testing.T) {
	t.Parallel()
	root := tree(t)
	opf := filepath.Join(root, "books", "readme.txt")

	var paths []string
	for path, err := range walk.Targets(t.Context(), ".epub", opf) {
		require.NoError(t, err)
		paths = append(paths, path)
	}
	require.Equal(t, []string{opf}, paths)
}

func TestTargets_Break(t *testing.T) {
	t.Parallel()
	root := tree(t)

	n := 0
	for range walk.Targets(t.Context(), ".epub", filepath.Join(root, "books")) {
		n++
		if n == 2 {
			break
		}
	}
	require.Equal(t, 2, n)
}

func TestTargets_Canceled(t *testing.T) {
	t.Parallel()
	root := tree(t)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	for range walk.Targets(ctx, ".epub", filepath.Join(root, "books")) {
		t.Fatal("canceled walk must not yield")
	}
}

func TestFS(t *testing.T) {
	t.Parallel()
	root := tree(t)
	books := filepath.Join(root, "books")

	var paths []string
	for entry, err := range walk.FS(t.Context(), os.DirFS(books), books) {
		require.NoError(t, err)
		info, err := entry.Stat()
		require.NoError(t, err)
		require.True(t, info.Mode().IsRegular())
		paths = append(paths, entry.Path())
	}
	require.Len(t, paths, 6)
	require.Contains(t, paths, filepath.Join(books, "readme.txt"))
}
