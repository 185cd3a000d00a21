package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tuffix/internal/config"
	"tuffix/internal/errs"
)

func testConfig(t *testing.T) config.BuildConfig {
	t.Helper()
	return config.MustBuildConfig(semver.MustParse("0.1.0"), filepath.Join(t.TempDir(), "state.json"))
}

func TestWriteThenRead(t *testing.T) {
	cfg := testConfig(t)

	tests := []struct {
		name      string
		installed []string
	}{
		{"empty", nil},
		{"one", []string{"base"}},
		{"several unsorted", []string{"latex", "474", "base"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := New(semver.MustParse("1.2.3"), tt.installed...)
			require.NoError(t, Write(cfg, want))

			got, err := Read(cfg)
			require.NoError(t, err)
			assert.True(t, want.Equal(got), "want %+v, got %+v", want, got)
		})
	}
}

func TestWriteDocumentShape(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, Write(cfg, New(semver.MustParse("0.1.0"))))

	raw, err := os.ReadFile(cfg.StatePath)
	require.NoError(t, err)
	assert.JSONEq(t, `{"version": "0.1.0", "installed": []}`, string(raw))

	// no temp files left behind
	entries, err := os.ReadDir(cfg.StateDir())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		message string
	}{
		{"corrupt", `{"version": "0.1.0", `, "state file JSON is corrupted"},
		{"not an object", `["base"]`, "state file JSON has malformed values"},
		{"missing installed", `{"version": "0.1.0"}`, "state file JSON is missing required keys"},
		{"missing version", `{"installed": []}`, "state file JSON is missing required keys"},
		{"bad version", `{"version": "one", "installed": []}`, "version number in state file is invalid"},
		{"numeric version", `{"version": 1, "installed": []}`, "state file JSON has malformed values"},
		{"installed not a list", `{"version": "0.1.0", "installed": "base"}`, "state file JSON has malformed values"},
		{"installed null", `{"version": "0.1.0", "installed": null}`, "state file JSON has malformed values"},
		{"installed numbers", `{"version": "0.1.0", "installed": [1, 2]}`, "state file JSON has malformed values"},
		{"duplicates", `{"version": "0.1.0", "installed": ["base", "base"]}`, "state file JSON has malformed values"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			require.NoError(t, os.WriteFile(cfg.StatePath, []byte(tt.content), 0644))

			_, err := Read(cfg)
			require.Error(t, err)
			assert.True(t, errs.IsEnvironment(err))
			assert.Equal(t, tt.message, err.Error())
		})
	}
}

func TestReadMissing(t *testing.T) {
	cfg := testConfig(t)
	assert.False(t, Exists(cfg))

	_, err := Read(cfg)
	require.True(t, errs.IsEnvironment(err))
	assert.Equal(t, "state file not found, you must run $ tuffix init", err.Error())
}

func TestWithWithout(t *testing.T) {
	v1 := semver.MustParse("0.1.0")
	v2 := semver.MustParse("0.2.0")
	st := New(v1, "latex")

	added := st.With(v2, "base")
	assert.Equal(t, []string{"base", "latex"}, added.Installed)
	assert.Equal(t, "0.2.0", added.Version.String())
	assert.True(t, added.Has("base"))
	assert.False(t, st.Has("base"), "original must not change")

	removed := added.Without(v2, "latex")
	assert.Equal(t, []string{"base"}, removed.Installed)
	assert.False(t, removed.Has("latex"))
}

func TestLockIsExclusive(t *testing.T) {
	cfg := testConfig(t)

	unlock, err := Lock(cfg)
	require.NoError(t, err)

	_, err = Lock(cfg)
	require.Error(t, err)
	assert.True(t, errs.IsEnvironment(err))

	unlock()
	unlockAgain, err := Lock(cfg)
	require.NoError(t, err)
	unlockAgain()
}

func TestLockBeforeInit(t *testing.T) {
	cfg := config.MustBuildConfig(semver.MustParse("0.1.0"), filepath.Join(t.TempDir(), "missing", "state.json"))

	_, err := Lock(cfg)
	require.Error(t, err)
	assert.Equal(t, "state file not found, you must run $ tuffix init", err.Error())
}
