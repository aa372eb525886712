package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/analekt/epubcheck-mcp/internal/model"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func TestFindConfig(t *testing.T) {
	t.Parallel()
	userDir := t.TempDir()
	cwd := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(cwd, configFileName), []byte("version: 0\n"), 0o644))

	env := func(v string) func(string) (string, bool) {
		return func(key string) (string, bool) {
			if key == envConfig && v != "" {
				return v, true
			}
			return "", false
		}
	}

	type given struct {
		env  string
		flag string
		dirs []string
	}

	var testCases = []struct {
		scenario string
		given    given
		then     string
	}{
		{"env wins", given{"/etc/env.yaml", "/etc/flag.yaml", []string{userDir, cwd}}, "/etc/env.yaml"},
		{"flag", given{"", "/etc/flag.yaml", []string{userDir, cwd}}, "/etc/flag.yaml"},
		{"search dirs", given{"", "", []string{userDir, cwd}}, filepath.Join(cwd, configFileName)},
		{"nothing", given{"", "", []string{userDir}}, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.scenario, func(t *testing.T) {
			t.Parallel()
			got := findConfig(env(tc.given.env), tc.given.flag, tc.given.dirs...)
			require.Equal(t, tc.then, got)
		})
	}
}

func TestStoreConfig(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "epubcheckctl", configFileName)
	expected := model.DefaultConfig(t.Context())

	require.NoError(t, storeConfig(path, expected))
	require.True(t, exists(path))

	got, err := loadConfig(path)
	require.NoError(t, err)
	require.Equal(t, expected, got)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), configFileName)
	require.NoError(t, os.WriteFile(path, []byte("version: 0\ndefaults:\n  mode: pdf\n"), 0o644))

	_, err := loadConfig(path)
	require.Error(t, err)
	require.NotEmpty(t, model.CueErrDetails(err))

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestExists(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	require.True(t, exists(file))
	require.False(t, exists(dir))
	require.False(t, exists(filepath.Join(dir, "missing")))
}

func TestLoadEnvFile(t *testing.T) {
	const key = "EPUBCHECKCTL_TEST_ENGINE"
	t.Cleanup(func() {
		_ = os.Unsetenv(key)
	})
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(key+"=/opt/epubcheck/epubcheck.jar\n"), 0o644))

	require.NoError(t, loadEnvFile(""))
	require.NoError(t, loadEnvFile(path))
	require.Equal(t, "/opt/epubcheck/epubcheck.jar", os.Getenv(key))

	require.Error(t, loadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
}
