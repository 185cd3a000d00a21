package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"tuffix/internal/errs"
)

// DefaultSettingsPath is read when --config is not given. Its absence is fine.
const DefaultSettingsPath = "/etc/tuffix/config.yaml"

// Settings is the optional site configuration an instructor can drop on a lab
// image to point the tool at a different state file or pin the versions a
// keyword installs.
type Settings struct {
	StatePath  string     `yaml:"state_path" toml:"state_path"`
	AuditLog   string     `yaml:"audit_log" toml:"audit_log"`
	Apt        Apt        `yaml:"apt" toml:"apt"`
	GoogleTest GoogleTest `yaml:"googletest" toml:"googletest"`
	VSCode     VSCode     `yaml:"vscode" toml:"vscode"`
	Git        Git        `yaml:"git" toml:"git"`
}

// Apt tunes the package manager driver.
// - Update: refresh package lists before every commit.
type Apt struct {
	Update bool `yaml:"update" toml:"update"`
}

// GoogleTest names the GitHub release the base keyword builds from source.
// - Repo: owner/name on GitHub (e.g. google/googletest).
// - Tag: release tag (e.g. v1.14.0).
type GoogleTest struct {
	Repo string `yaml:"repo" toml:"repo"`
	Tag  string `yaml:"tag" toml:"tag"`
}

// VSCode lists the editor extensions installed for the login user.
type VSCode struct {
	Extensions []string `yaml:"extensions" toml:"extensions"`
}

// Git is the identity the base keyword configures for the login user.
// Left empty, the user's existing identity is kept or asked for.
type Git struct {
	Name  string `yaml:"name" toml:"name"`
	Email string `yaml:"email" toml:"email"`
}

// DefaultSettings returns the values used for any key the site config omits.
func DefaultSettings() Settings {
	return Settings{
		StatePath: DefaultStatePath,
		AuditLog:  "/var/log/tuffix.log",
		Apt:       Apt{Update: true},
		GoogleTest: GoogleTest{
			Repo: "google/googletest",
			Tag:  "v1.14.0",
		},
		VSCode: VSCode{
			Extensions: []string{
				"ms-vscode.cpptools",
				"ms-vscode.cmake-tools",
			},
		},
	}
}

// LoadSettings reads the site config at path on top of DefaultSettings.
// The format follows the extension: .toml is TOML, anything else YAML.
//
// When explicit is false a missing file yields the defaults; when true (the
// user passed --config) it is an EnvironmentError, as is any parse failure.
func LoadSettings(path string, explicit bool) (Settings, error) {
	st := DefaultSettings()

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return st, nil
		}
		return st, errs.WrapEnvironment(err, "cannot read config file %s", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(raw), &st); err != nil {
			return st, errs.WrapEnvironment(err, "config file %s is not valid TOML", path)
		}
	default:
		if err := yaml.Unmarshal(raw, &st); err != nil {
			return st, errs.WrapEnvironment(err, "config file %s is not valid YAML", path)
		}
	}

	if st.StatePath == "" {
		st.StatePath = DefaultStatePath
	}
	if filepath.Ext(st.StatePath) != ".json" {
		return st, errs.Environment("config file %s: state_path %q must end in .json", path, st.StatePath)
	}
	if st.GoogleTest.Repo == "" || st.GoogleTest.Tag == "" {
		d := DefaultSettings().GoogleTest
		if st.GoogleTest.Repo == "" {
			st.GoogleTest.Repo = d.Repo
		}
		if st.GoogleTest.Tag == "" {
			st.GoogleTest.Tag = d.Tag
		}
	}
	return st, nil
}
