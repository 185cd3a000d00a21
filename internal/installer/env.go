package installer

import (
	"io"

	"tuffix/internal/config"
	"tuffix/internal/keyword"
)

// Env is everything a command needs for one invocation. It is built once by
// the dispatcher; tests build it with fakes.
type Env struct {
	Config config.BuildConfig
	Tools  *keyword.Tools
	// Out receives user-facing lines; In answers confirmation prompts.
	Out io.Writer
	In  io.Reader
	// AssumeYes skips the confirmation asked before bulk operations.
	AssumeYes bool
	// Network, when set, is checked before anything is downloaded.
	Network func() error
	// LSBRelease, when set, is the lsb-release file init checks to make sure
	// this is a Debian-style system.
	LSBRelease string
}
