package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tuffix/internal/config"
	"tuffix/internal/fake"
	"tuffix/internal/keyword"
	"tuffix/internal/logger"
	"tuffix/internal/state"
	"tuffix/internal/system"
)

const usageText = `tuffix 1.0.0

usage:

    tuffix <command> [argument...]

where <command> and [argument...] match one of the following:

add        add (install) one or more keywords
describe   describe a keyword
init       initialize tuffix
installed  list all currently-installed keywords
list       list all available keywords
rekey      regenerate the ssh or gpg key of the login user
remove     remove (uninstall) one or more keywords
status     status of the current host

`

func fixedNow() time.Time {
	return time.Date(2024, time.September, 2, 9, 30, 0, 0, time.UTC)
}

// steadyProbes pins the one probe that changes on its own between runs.
type steadyProbes struct {
	*system.Probes
}

func (steadyProbes) Uptime() (string, error) { return "0 days, 1 hour, 0 minutes, 0 seconds", nil }

// harness runs tuffix against fakes rooted in a temp directory.
type harness struct {
	cfg        config.BuildConfig
	env        *Env
	out        *bytes.Buffer
	in         *bytes.Buffer
	dir        string
	packages   *fake.Packages
	shell      *fake.Shell
	privileges *fake.Privileges
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	prev := logger.SetOutput(io.Discard)
	t.Cleanup(func() { logger.SetOutput(prev) })
	color.NoColor = true

	dir := t.TempDir()
	statePath := filepath.Join(dir, "lib", "state.json")
	settingsPath := filepath.Join(dir, "tuffix.yaml")
	require.NoError(t, os.WriteFile(settingsPath, []byte(
		"state_path: "+statePath+"\n"+
			"audit_log: "+filepath.Join(dir, "audit.log")+"\n"+
			"git:\n  name: Ada Lovelace\n  email: ada@example.edu\n"), 0644))

	netDir := filepath.Join(dir, "net")
	require.NoError(t, os.MkdirAll(filepath.Join(netDir, "eth0"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(netDir, "eth0", "carrier"), []byte("1\n"), 0644))

	h := &harness{
		cfg:        config.MustBuildConfig(semver.MustParse("1.0.0"), statePath),
		out:        &bytes.Buffer{},
		in:         &bytes.Buffer{},
		dir:        dir,
		packages:   &fake.Packages{},
		shell:      &fake.Shell{},
		privileges: &fake.Privileges{Root: true, User: "student"},
	}
	workDir := t.TempDir()
	h.env = &Env{
		Out:          h.out,
		In:           h.in,
		SettingsPath: settingsPath,
		Tools: func(s config.Settings) *keyword.Tools {
			return &keyword.Tools{
				Packages:   h.packages,
				Shell:      h.shell,
				Fetch:      &fake.Fetcher{},
				Privileges: h.privileges,
				Settings:   s,
				Root:       dir,
				WorkDir:    workDir,
			}
		},
		Probes:     &system.Probes{Root: dir, Shell: h.shell, Now: fixedNow},
		NetworkDir: netDir,
	}
	return h
}

// run executes one command line and returns its status and output, resetting
// the output buffer.
func (h *harness) run(args ...string) (int, string) {
	h.out.Reset()
	code := Run(h.cfg, h.env, args)
	return code, h.out.String()
}

func (h *harness) installed(t *testing.T) []string {
	t.Helper()
	st, err := state.Read(h.cfg)
	require.NoError(t, err)
	return st.Installed
}

func TestAddRemoveLifecycle(t *testing.T) {
	h := newHarness(t)

	code, out := h.run("init")
	assert.Equal(t, 0, code)
	assert.Equal(t, "tuffix init succeeded\n", out)

	code, out = h.run("installed")
	assert.Equal(t, 0, code)
	assert.Equal(t, "no keywords are installed\n", out)

	code, out = h.run("add", "base")
	assert.Equal(t, 0, code, out)
	assert.Contains(t, out, "tuffix: successfully installed base\n")

	code, out = h.run("installed")
	assert.Equal(t, 0, code)
	assert.Equal(t, "tuffix installed keywords:\nbase\n", out)

	code, out = h.run("add", "base")
	assert.Equal(t, 1, code)
	assert.Equal(t, "error: cannot add base, it is already installed\n"+usageText, out)

	code, _ = h.run("remove", "base")
	assert.Equal(t, 0, code)
	assert.Empty(t, h.installed(t))

	code, out = h.run("remove", "base")
	assert.Equal(t, 1, code)
	assert.True(t, strings.HasPrefix(out, "error: cannot remove keyword base, it is not installed\n"))

	audit, err := os.ReadFile(filepath.Join(h.dir, "audit.log"))
	require.NoError(t, err)
	assert.Contains(t, string(audit), `"msg":"init"`)
	assert.Contains(t, string(audit), `"msg":"keyword.remove"`)
}

func TestInitTwice(t *testing.T) {
	h := newHarness(t)
	code, _ := h.run("init")
	require.Equal(t, 0, code)

	code, out := h.run("init")
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "error: tuffix is already initialized")
}

func TestAddUnknownKeywordLeavesStateAlone(t *testing.T) {
	h := newHarness(t)
	h.run("init")

	code, out := h.run("add", "240", "emacs")
	assert.Equal(t, 1, code)
	assert.True(t, strings.HasPrefix(out,
		"error: unknown keyword \"emacs\", see valid keyword names with $ tuffix list\n"), out)
	assert.True(t, strings.HasSuffix(out, usageText))
	assert.Empty(t, h.installed(t))
	assert.Empty(t, h.packages.Calls)
}

func TestAddWithoutRoot(t *testing.T) {
	h := newHarness(t)
	h.run("init")
	h.privileges.Root = false

	code, out := h.run("add", "240")
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "error: you do not have root access")
	assert.Empty(t, h.installed(t))
	assert.Empty(t, h.packages.Calls)
}

func TestAddAllWithYes(t *testing.T) {
	h := newHarness(t)
	h.run("init")

	code, out := h.run("add", "--yes", "all")
	assert.Equal(t, 0, code, out)
	assert.Equal(t, []string{"240", "439", "474", "base", "latex", "vscode"}, h.installed(t))
}

func TestRemoveAllCancelled(t *testing.T) {
	h := newHarness(t)
	h.run("init")
	h.run("add", "240")
	h.in.WriteString("n\n")

	code, out := h.run("remove", "all")
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "remove 1 keyword (240)? [y/N] error: cancelled\n")
	assert.Equal(t, []string{"240"}, h.installed(t))
}

func TestStatefulCommandsNeedInit(t *testing.T) {
	for _, args := range [][]string{{"add", "240"}, {"remove", "240"}, {"installed"}, {"status"}} {
		t.Run(args[0], func(t *testing.T) {
			h := newHarness(t)
			code, out := h.run(args...)
			assert.Equal(t, 1, code)
			// environment errors do not print usage
			assert.Equal(t, "error: state file not found, you must run $ tuffix init\n", out)
		})
	}
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		message string
	}{
		{"no command", nil, "you must supply a command name"},
		{"unknown command", []string{"frobnicate"}, `unknown command "frobnicate"`},
		{"unknown flag", []string{"list", "--frob"}, "unknown flag: --frob"},
		{"add without keywords", []string{"add"}, "you must specify at least one keyword to add"},
		{"remove without keywords", []string{"remove"}, "you must specify at least one keyword to remove"},
		{"all mixed", []string{"add", "all", "240"}, `"all" cannot be combined with other keywords`},
		{"list with argument", []string{"list", "x"}, "list command does not accept arguments"},
		{"init with argument", []string{"init", "x"}, "init command does not accept arguments"},
		{"describe without keyword", []string{"describe"}, "you must supply exactly one keyword to describe"},
		{"rekey without kind", []string{"rekey"}, "you must specify what to rekey: ssh or gpg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			code, out := h.run(tt.args...)
			assert.Equal(t, 1, code)
			assert.Equal(t, "error: "+tt.message+"\n"+usageText, out)
			assert.False(t, state.Exists(h.cfg))
		})
	}
}

func TestHelpPrintsUsage(t *testing.T) {
	h := newHarness(t)
	code, out := h.run("--help")
	assert.Equal(t, 0, code)
	assert.Equal(t, usageText, out)
}

func TestList(t *testing.T) {
	h := newHarness(t)

	code, out := h.run("list")
	assert.Equal(t, 0, code)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, "tuffix list of keywords:", lines[0])
	assert.Equal(t, "base      CPSC 120-121-131-301 C++ development environment", lines[1])
	assert.Equal(t, "vscode    Visual Studio Code editor with C++ extensions", lines[3])
	assert.True(t, strings.HasPrefix(lines[6], "474       "))
}

func TestDescribe(t *testing.T) {
	h := newHarness(t)

	code, out := h.run("describe", "vscode")
	assert.Equal(t, 0, code)
	assert.Equal(t, "vscode: Visual Studio Code editor with C++ extensions\n", out)

	code, out = h.run("describe", "all")
	assert.Equal(t, 1, code)
	assert.Contains(t, out, `error: unknown keyword "all"`)
}

func TestInstalledFlagsUnknownNames(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, state.EnsureDir(h.cfg))
	require.NoError(t, state.Write(h.cfg, state.New(h.cfg.Version, "240", "retired")))

	code, out := h.run("installed")
	assert.Equal(t, 0, code)
	assert.Equal(t, "tuffix installed keywords:\n240\nretired (unknown keyword)\n", out)
}

func TestStatus(t *testing.T) {
	h := newHarness(t)
	h.run("init")
	h.run("add", "439")
	host, err := os.Hostname()
	require.NoError(t, err)

	code, out := h.run("status")
	assert.Equal(t, 0, code)
	// nothing a probe runs may print ahead of the report
	assert.True(t, strings.HasPrefix(out, "student@"+host+"\n-----\n\nOS: "), out)
	assert.Contains(t, out, "Installed keywords:\n  - 439\n")
	assert.Contains(t, out, "Current Time: Mon 02 September 2024 09:30:00\n")
	assert.Contains(t, out, "Connected to Internet: Yes\n")
	// no /proc under the fake root
	assert.Contains(t, out, "CPU: unknown\n")
}

func TestReadOnlyCommandsAreIdempotent(t *testing.T) {
	h := newHarness(t)
	h.env.Probes = steadyProbes{h.env.Probes.(*system.Probes)}
	h.run("init")
	code, _ := h.run("add", "240")
	require.Equal(t, 0, code)
	before, err := os.ReadFile(h.cfg.StatePath)
	require.NoError(t, err)

	for _, args := range [][]string{{"list"}, {"installed"}, {"status"}, {"describe", "240"}} {
		t.Run(args[0], func(t *testing.T) {
			code, first := h.run(args...)
			require.Equal(t, 0, code, first)
			code, second := h.run(args...)
			require.Equal(t, 0, code, second)
			assert.Equal(t, first, second)

			after, err := os.ReadFile(h.cfg.StatePath)
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})
	}
}

func TestRekeyDoesNotNeedState(t *testing.T) {
	h := newHarness(t)
	h.privileges.Root = false
	h.shell.Lines = []string{"user.name=Ada Lovelace", "user.email=ada@example.edu"}

	code, out := h.run("rekey", "gpg")
	assert.Equal(t, 0, code, out)
	assert.Equal(t, "tuffix: successfully regenerated gpg key for student\n", out)
}

func TestExplicitConfigMustExist(t *testing.T) {
	h := newHarness(t)

	code, out := h.run("--config", filepath.Join(h.dir, "missing.toml"), "list")
	assert.Equal(t, 1, code)
	assert.True(t, strings.HasPrefix(out, "error: cannot read config file"), out)
	assert.NotContains(t, out, "usage:")
}

func TestTOMLConfig(t *testing.T) {
	h := newHarness(t)
	other := filepath.Join(h.dir, "other", "state.json")
	path := filepath.Join(h.dir, "site.toml")
	require.NoError(t, os.WriteFile(path, []byte("state_path = \""+other+"\"\naudit_log = \"\"\n"), 0644))

	code, _ := h.run("--config", path, "init")
	assert.Equal(t, 0, code)
	assert.FileExists(t, other)
	assert.False(t, state.Exists(h.cfg))
}

func TestDefaultEnvKeepsLookupsQuiet(t *testing.T) {
	env := DefaultEnv()

	probes, ok := env.Probes.(*system.Probes)
	require.True(t, ok)
	assert.Nil(t, probes.Shell.(*system.Exec).Echo, "status probes must not echo")

	tools := env.Tools(config.DefaultSettings())
	assert.Nil(t, tools.QueryShell().(*system.Exec).Echo, "git lookups must not echo")
	assert.NotNil(t, tools.Shell.(*system.Exec).Echo, "package and build steps stream their output")
}
