package system

import (
	"os"
	"os/user"

	"golang.org/x/sys/unix"

	"tuffix/internal/errs"
)

// Privileges answers who is running tuffix.
type Privileges interface {
	// IsRoot reports whether the process has an effective uid of 0.
	IsRoot() bool
	// LoginUser is the human behind the invocation: $SUDO_USER under sudo,
	// otherwise the current account.
	LoginUser() (string, error)
}

// Host reads privileges from the running process.
type Host struct{}

func (Host) IsRoot() bool { return unix.Geteuid() == 0 }

func (Host) LoginUser() (string, error) {
	if name := os.Getenv("SUDO_USER"); name != "" && name != "root" {
		return name, nil
	}
	u, err := user.Current()
	if err != nil {
		return "", errs.WrapEnvironment(err, "cannot determine the current user")
	}
	return u.Username, nil
}

// EnsureRoot returns the UsageError every mutating command reports when run
// without root.
func EnsureRoot(p Privileges) error {
	if !p.IsRoot() {
		return errs.Usage("you do not have root access; run this command like $ sudo tuffix ...")
	}
	return nil
}
