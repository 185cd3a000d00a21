package config

import (
	"fmt"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
)

// Version is the release of this build. It is a string so release builds can
// stamp it with -ldflags "-X tuffix/internal/config.Version=1.2.3".
var Version = "0.1.0"

// DefaultStatePath is where the state file lives unless the site config
// overrides it.
const DefaultStatePath = "/var/lib/tuffix/state.json"

// BuildConfig is the immutable runtime configuration every operation receives:
// the running tool's version and the location of the state file.
//
// It is passed by value and never mutated after NewBuildConfig returns.
type BuildConfig struct {
	Version   *semver.Version
	StatePath string
}

// NewBuildConfig validates and assembles a BuildConfig. The state path must
// carry a .json extension.
func NewBuildConfig(version *semver.Version, statePath string) (BuildConfig, error) {
	if version == nil {
		return BuildConfig{}, fmt.Errorf("build config: version is required")
	}
	if filepath.Ext(statePath) != ".json" {
		return BuildConfig{}, fmt.Errorf("build config: state path %q must end in .json", statePath)
	}
	return BuildConfig{Version: version, StatePath: statePath}, nil
}

// MustBuildConfig is NewBuildConfig for values fixed at build time; an
// invalid combination is a programming defect.
func MustBuildConfig(version *semver.Version, statePath string) BuildConfig {
	cfg, err := NewBuildConfig(version, statePath)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Default returns the BuildConfig for this build with the given state path,
// falling back to DefaultStatePath when it is empty.
func Default(statePath string) (BuildConfig, error) {
	v, err := semver.StrictNewVersion(Version)
	if err != nil {
		return BuildConfig{}, fmt.Errorf("build config: version %q: %w", Version, err)
	}
	if statePath == "" {
		statePath = DefaultStatePath
	}
	return NewBuildConfig(v, statePath)
}

// StateDir is the directory holding the state file.
func (c BuildConfig) StateDir() string {
	return filepath.Dir(c.StatePath)
}
