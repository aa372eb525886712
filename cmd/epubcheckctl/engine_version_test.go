package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/analekt/epubcheck-mcp/internal/model"
	"github.com/analekt/epubcheck-mcp/internal/version"

	"github.com/stretchr/testify/require"
)

type staticQuerier string

func (q staticQuerier) Version(context.Context) (string, error) {
	return string(q), nil
}

type staticFetcher struct {
	version string
	block   chan struct{}
}

func (f staticFetcher) Latest(ctx context.Context) (string, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.version, nil
}

func TestPrintEngineVersion(t *testing.T) {
	t.Parallel()

	type given struct {
		installed string
		latest    string
	}

	var testCases = []struct {
		scenario string
		given    given
		then     string
	}{
		{"update available", given{"EPUBCheck v5.1.0", "5.3.0"}, "EPUBCheck 5.1.0\nEPUBCheck 5.3.0 is available (installed: 5.1.0), download it from " + version.ReleasesPage + "\n"},
		{"up to date", given{"EPUBCheck v5.3.0", "5.3.0"}, "EPUBCheck 5.3.0\n"},
		{"unrecognized output", given{"", "5.3.0"}, "EPUBCheck unknown\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.scenario, func(t *testing.T) {
			t.Parallel()
			store, err := version.NewFileStore(t.TempDir())
			require.NoError(t, err)
			svc := version.New(staticQuerier(tc.given.installed), staticFetcher{version: tc.given.latest}, store)
			t.Cleanup(svc.Close)

			var buf bytes.Buffer
			require.NoError(t, printEngineVersion(t.Context(), &buf, svc, 5*time.Second))
			require.Equal(t, tc.then, buf.String())
		})
	}
}

func TestPrintEngineVersion_SlowCheck(t *testing.T) {
	t.Parallel()
	store, err := version.NewFileStore(t.TempDir())
	require.NoError(t, err)
	fetcher := staticFetcher{version: "5.3.0", block: make(chan struct{})}
	svc := version.New(staticQuerier("EPUBCheck v5.1.0"), fetcher, store)
	t.Cleanup(svc.Close)

	var buf bytes.Buffer
	require.NoError(t, printEngineVersion(t.Context(), &buf, svc, 50*time.Millisecond))
	require.Equal(t, "EPUBCheck 5.1.0\n", buf.String(), "no advisory before the check finished")
}

func TestNewVersionService(t *testing.T) {
	t.Parallel()
	cfg := model.DefaultConfig(t.Context())
	dir := t.TempDir()
	cfg.UpdateCheck.CacheDir = &dir

	svc, err := newVersionService(cfg, staticQuerier("EPUBCheck v5.1.0"))
	require.NoError(t, err)
	svc.Close()

	disabled := false
	cfg.UpdateCheck.Enabled = &disabled
	cfg.UpdateCheck.URL = nil
	svc, err = newVersionService(cfg, staticQuerier("EPUBCheck v5.1.0"))
	require.NoError(t, err)
	v, err := svc.CurrentVersion(t.Context())
	require.NoError(t, err)
	require.Equal(t, "5.1.0", v)
	require.NoError(t, svc.Wait(t.Context()))
	require.Empty(t, svc.Latest())
	svc.Close()

	enabled := true
	bad := "api.github.com/no-scheme"
	cfg.UpdateCheck.Enabled = &enabled
	cfg.UpdateCheck.URL = &bad
	_, err = newVersionService(cfg, staticQuerier(""))
	require.Error(t, err)
}
