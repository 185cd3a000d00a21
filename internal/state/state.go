package state

import (
	"bytes"
	"encoding/json" // For JSON encoding and decoding of the state file
	"errors"
	"io/fs"
	"os" // For file system operations like reading and writing files
	"path/filepath"
	"slices"
	"sort"

	"github.com/Masterminds/semver/v3"
	"github.com/sirupsen/logrus"

	"tuffix/internal/config"
	"tuffix/internal/errs"
	"tuffix/internal/logger" // Console and audit logging
)

// State is the persisted record of which keywords are installed on this host
// and which tuffix version last wrote it.
// Installed is kept sorted and free of duplicates.
type State struct {
	Version   *semver.Version
	Installed []string
}

// New returns a State with the given version and installed names, sorted.
func New(version *semver.Version, installed ...string) *State {
	names := slices.Clone(installed)
	sort.Strings(names)
	return &State{Version: version, Installed: slices.Compact(names)}
}

// Has reports whether name is recorded as installed.
func (s *State) Has(name string) bool {
	_, found := slices.BinarySearch(s.Installed, name)
	return found
}

// With returns a copy stamped with version that also records name.
func (s *State) With(version *semver.Version, name string) *State {
	return New(version, append(slices.Clone(s.Installed), name)...)
}

// Without returns a copy stamped with version that no longer records name.
func (s *State) Without(version *semver.Version, name string) *State {
	kept := make([]string, 0, len(s.Installed))
	for _, n := range s.Installed {
		if n != name {
			kept = append(kept, n)
		}
	}
	return New(version, kept...)
}

// Equal compares version and installed set.
func (s *State) Equal(o *State) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.Version.Equal(o.Version) && slices.Equal(s.Installed, o.Installed)
}

// document is the on-disk shape of the state file.
type document struct {
	Version   string   `json:"version"`
	Installed []string `json:"installed"`
}

// Exists reports whether the state file is present.
func Exists(cfg config.BuildConfig) bool {
	_, err := os.Stat(cfg.StatePath)
	return err == nil
}

// Read loads and validates the state file named by cfg.
// Every failure is an EnvironmentError with a message saying what is wrong.
func Read(cfg config.BuildConfig) (*State, error) {
	// Read entire state JSON file into memory
	raw, err := os.ReadFile(cfg.StatePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errs.Environment("state file not found, you must run $ tuffix init")
		}
		return nil, errs.WrapEnvironment(err, "cannot read state file %s", cfg.StatePath)
	}
	return parse(raw)
}

// parse validates the document key by key so each failure gets its own message.
func parse(raw []byte) (*State, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			// valid JSON, but not an object
			return nil, errs.Environment("state file JSON has malformed values")
		}
		return nil, errs.Environment("state file JSON is corrupted")
	}

	rawVersion, okVersion := fields["version"]
	rawInstalled, okInstalled := fields["installed"]
	if !okVersion || !okInstalled {
		return nil, errs.Environment("state file JSON is missing required keys")
	}

	var versionText string
	if err := json.Unmarshal(rawVersion, &versionText); err != nil || isNull(rawVersion) {
		return nil, errs.Environment("state file JSON has malformed values")
	}
	version, err := semver.StrictNewVersion(versionText)
	if err != nil {
		return nil, errs.Environment("version number in state file is invalid")
	}

	var installed []string
	if err := json.Unmarshal(rawInstalled, &installed); err != nil || isNull(rawInstalled) {
		return nil, errs.Environment("state file JSON has malformed values")
	}
	st := New(version, installed...)
	if len(st.Installed) != len(installed) {
		// duplicate names
		return nil, errs.Environment("state file JSON has malformed values")
	}
	return st, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// Write replaces the state file with st. The document goes to a temporary
// file in the same directory first and is renamed into place, so a crash
// never leaves a truncated state file behind.
func Write(cfg config.BuildConfig, st *State) error {
	doc := document{Version: st.Version.String(), Installed: st.Installed}
	if doc.Installed == nil {
		doc.Installed = []string{}
	}

	// Marshal the State into indented JSON bytes
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errs.WrapEnvironment(err, "cannot encode state")
	}
	data = append(data, '\n')

	// Log debug info showing the full JSON state being written
	logger.Debug("[DEBUG] Writing state to %s:\n%s", cfg.StatePath, data)

	tmp, err := os.CreateTemp(cfg.StateDir(), ".state-*.json")
	if err != nil {
		return errs.WrapEnvironment(err, "cannot write state file %s", cfg.StatePath)
	}
	tmpName := tmp.Name()
	// Remove the temp file on any failure path; after a successful rename it is gone already.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errs.WrapEnvironment(err, "cannot write state file %s", cfg.StatePath)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errs.WrapEnvironment(err, "cannot write state file %s", cfg.StatePath)
	}
	if err := tmp.Close(); err != nil {
		return errs.WrapEnvironment(err, "cannot write state file %s", cfg.StatePath)
	}
	// Readable by everyone, like the rest of /var/lib
	if err := os.Chmod(tmpName, 0644); err != nil {
		return errs.WrapEnvironment(err, "cannot write state file %s", cfg.StatePath)
	}
	if err := os.Rename(tmpName, cfg.StatePath); err != nil {
		return errs.WrapEnvironment(err, "cannot write state file %s", cfg.StatePath)
	}

	logger.Audit("state.write", logrus.Fields{
		"path":      cfg.StatePath,
		"version":   doc.Version,
		"installed": doc.Installed,
	})
	return nil
}

// EnsureDir creates the directory that holds the state file.
func EnsureDir(cfg config.BuildConfig) error {
	if err := os.MkdirAll(filepath.Dir(cfg.StatePath), 0755); err != nil {
		return errs.WrapEnvironment(err, "cannot create state directory %s", cfg.StateDir())
	}
	return nil
}
