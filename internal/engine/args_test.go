package engine_test

import (
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/analekt/epubcheck-mcp/internal/engine"
	"github.com/analekt/epubcheck-mcp/internal/model"
	"github.com/stretchr/testify/require"
)

func TestBuildArgs(t *testing.T) {
	t.Parallel()
	const artifact = "/tmp/epubcheck-x.json"

	var testCases = []struct {
		scenario string
		given    model.Request
		then     []string
	}{
		{
			scenario: "defaults",
			given:    model.Request{Path: "book.epub"},
			then:     []string{"--json", artifact, "book.epub"},
		},
		{
			scenario: "explicit defaults",
			given:    model.Request{Path: "book.epub", Mode: model.ModeEPUB, Profile: model.ProfileDefault},
			then:     []string{"--json", artifact, "book.epub"},
		},
		{
			scenario: "version ignored for package",
			given:    model.Request{Path: "book.epub", TargetVersion: "2.0"},
			then:     []string{"--json", artifact, "book.epub"},
		},
		{
			scenario: "profile",
			given:    model.Request{Path: "book.epub", Profile: model.ProfileDict},
			then:     []string{"--json", artifact, "--profile", "dict", "book.epub"},
		},
		{
			scenario: "mode",
			given:    model.Request{Path: "package.opf", Mode: model.ModeOPF},
			then:     []string{"--json", artifact, "--mode", "opf", "package.opf"},
		},
		{
			scenario: "mode and version",
			given:    model.Request{Path: "c.xhtml", Mode: model.ModeXHTML, TargetVersion: "3.0"},
			then:     []string{"--json", artifact, "--mode", "xhtml", "-v", "3.0", "c.xhtml"},
		},
		{
			scenario: "everything",
			given:    model.Request{Path: "nav.xhtml", Mode: model.ModeNav, Profile: model.ProfileEDUPUB, TargetVersion: "3.0"},
			then:     []string{"--json", artifact, "--mode", "nav", "--profile", "edupub", "-v", "3.0", "nav.xhtml"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.scenario, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.then, engine.BuildArgs(tc.given, artifact))
		})
	}
}

func TestBuildArgs_Properties(t *testing.T) {
	t.Parallel()
	const artifact = "/tmp/out.json"

	for _, mode := range model.Modes {
		for _, profile := range model.Profiles {
			for _, version := range []string{"", "2.0", "3.0"} {
				req := model.Request{Path: "target", Mode: mode, Profile: profile, TargetVersion: version}
				args := engine.BuildArgs(req, artifact)

				require.Equal(t, []string{"--json", artifact}, args[:2], "%+v", req)
				require.Equal(t, "target", args[len(args)-1], "%+v", req)

				modeFlags := count(args, "--mode")
				if mode == model.ModeEPUB {
					require.Zero(t, modeFlags, "%+v", req)
				} else {
					require.Equal(t, 1, modeFlags, "%+v", req)
					idx := slices.Index(args, "--mode")
					require.Equal(t, string(mode), args[idx+1])
				}

				hasVersion := slices.Contains(args, "-v")
				require.Equal(t, version != "" && mode != model.ModeEPUB, hasVersion, "%+v", req)
				require.Equal(t, profile != model.ProfileDefault, slices.Contains(args, "--profile"), "%+v", req)
			}
		}
	}
}

func TestArtifactPath(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	p := engine.ArtifactPath(dir)
	require.Equal(t, dir, filepath.Dir(p))
	require.Equal(t, ".json", filepath.Ext(p))

	// concurrent callers never get the same path
	const n = 1000
	var (
		mx    sync.Mutex
		seen  = make(map[string]struct{}, n)
		group sync.WaitGroup
	)
	for range n {
		group.Go(func() {
			p := engine.ArtifactPath(dir)
			mx.Lock()
			seen[p] = struct{}{}
			mx.Unlock()
		})
	}
	group.Wait()
	require.Len(t, seen, n)
}

func count(args []string, flag string) int {
	var n int
	for _, a := range args {
		if a == flag {
			n++
		}
	}
	return n
}
