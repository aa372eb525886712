package engine_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeHeader emulates the parts of the epubcheck command line the tests rely
// on: --version, --json <path> as the first two arguments and the target as
// the last one. It records arguments and working directory next to itself.
const fakeHeader = `#!/bin/sh
if [ "$1" = "--version" ]; then
  echo "EPUBCheck v5.1.0"
  exit 0
fi
here=$(dirname "$0")
out="$2"
for a in "$@"; do target="$a"; done
printf '%s\n' "$@" > "$here/args.txt"
pwd -P > "$here/cwd.txt"
`

const writeReport = `printf '{"checker":{"path":"%s","checkerVersion":"5.1.0","checkDate":"2026-10-17T10:00:00Z","elapsedTime":10,"nFatal":0,"nError":1,"nWarning":0,"nUsage":0},"items":[],"messages":[{"ID":"RSC-005","severity":"ERROR","message":"boom","locations":[{"path":"EPUB/a.xhtml","line":1,"column":2}],"additionalLocations":0}]}' "$target" > "$out"
`

func lookSh(t *testing.T) string {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skipf("skipped, binary sh not available: %v", err)
	}
	return sh
}

// fakeEngine writes an executable script into a new directory and returns its path.
func fakeEngine(t *testing.T, body string) string {
	t.Helper()
	lookSh(t)
	dir := filepath.Join(t.TempDir(), "epubcheck")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "epubcheck")
	require.NoError(t, os.WriteFile(path, []byte(fakeHeader+body), 0o755))
	return path
}

// recordedArgs returns arguments the fake engine was started with
func recordedArgs(t *testing.T, enginePath string) []string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(filepath.Dir(enginePath), "args.txt"))
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(b), "\n"), "\n")
}

func recordedCwd(t *testing.T, enginePath string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(filepath.Dir(enginePath), "cwd.txt"))
	require.NoError(t, err)
	return strings.TrimSpace(string(b))
}

func realpath(t *testing.T, path string) string {
	t.Helper()
	ret, err := filepath.EvalSymlinks(path)
	require.NoError(t, err)
	return ret
}
