package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tuffix/internal/errs"
)

func TestNewBuildConfig(t *testing.T) {
	v := semver.MustParse("1.2.3")

	cfg, err := NewBuildConfig(v, "state.json")
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", cfg.Version.String())
	assert.Equal(t, "state.json", cfg.StatePath)

	_, err = NewBuildConfig(nil, "state.json")
	assert.Error(t, err)

	_, err = NewBuildConfig(v, "state.yaml")
	assert.Error(t, err)

	assert.Panics(t, func() { MustBuildConfig(v, "/var/lib/tuffix/state") })
}

func TestDefault(t *testing.T) {
	cfg, err := Default("")
	require.NoError(t, err)
	assert.Equal(t, DefaultStatePath, cfg.StatePath)
	assert.Equal(t, Version, cfg.Version.String())
	assert.Equal(t, "/var/lib/tuffix", cfg.StateDir())
}

func TestLoadSettings(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing default file yields defaults", func(t *testing.T) {
		st, err := LoadSettings(filepath.Join(dir, "absent.yaml"), false)
		require.NoError(t, err)
		assert.Equal(t, DefaultSettings(), st)
	})

	t.Run("missing explicit file is an environment error", func(t *testing.T) {
		_, err := LoadSettings(filepath.Join(dir, "absent.yaml"), true)
		assert.True(t, errs.IsEnvironment(err))
	})

	t.Run("yaml overrides", func(t *testing.T) {
		path := filepath.Join(dir, "site.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
state_path: /srv/tuffix/state.json
apt:
  update: false
googletest:
  tag: v1.15.2
vscode:
  extensions: [llvm-vs-code-extensions.vscode-clangd]
`), 0644))

		st, err := LoadSettings(path, true)
		require.NoError(t, err)
		assert.Equal(t, "/srv/tuffix/state.json", st.StatePath)
		assert.False(t, st.Apt.Update)
		assert.Equal(t, "google/googletest", st.GoogleTest.Repo)
		assert.Equal(t, "v1.15.2", st.GoogleTest.Tag)
		assert.Equal(t, []string{"llvm-vs-code-extensions.vscode-clangd"}, st.VSCode.Extensions)
		assert.Equal(t, "/var/log/tuffix.log", st.AuditLog)
	})

	t.Run("toml by extension", func(t *testing.T) {
		path := filepath.Join(dir, "site.toml")
		require.NoError(t, os.WriteFile(path, []byte(`
audit_log = ""

[googletest]
repo = "mirror/googletest"
`), 0644))

		st, err := LoadSettings(path, true)
		require.NoError(t, err)
		assert.Empty(t, st.AuditLog)
		assert.Equal(t, "mirror/googletest", st.GoogleTest.Repo)
		assert.Equal(t, "v1.14.0", st.GoogleTest.Tag)
	})

	t.Run("bad state path", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("state_path: /tmp/state.txt\n"), 0644))
		_, err := LoadSettings(path, true)
		assert.True(t, errs.IsEnvironment(err))
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(dir, "broken.yaml")
		require.NoError(t, os.WriteFile(path, []byte("apt: [unclosed\n"), 0644))
		_, err := LoadSettings(path, true)
		assert.True(t, errs.IsEnvironment(err))
	})
}

func TestLoadSettingsGitIdentity(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("git:\n  name: Ada Lovelace\n  email: ada@example.edu\n"), 0644))
	st, err := LoadSettings(yamlPath, true)
	require.NoError(t, err)
	assert.Equal(t, Git{Name: "Ada Lovelace", Email: "ada@example.edu"}, st.Git)

	tomlPath := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte("[git]\nname = \"Grace Hopper\"\n"), 0644))
	st, err = LoadSettings(tomlPath, true)
	require.NoError(t, err)
	assert.Equal(t, Git{Name: "Grace Hopper"}, st.Git)

	// unset by default, so base keeps or asks for the user's own identity
	assert.Equal(t, Git{}, DefaultSettings().Git)
}
