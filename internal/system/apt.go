package system

import (
	"strings"

	"tuffix/internal/errs"
	"tuffix/internal/logger"
)

// PackageManager queues package changes and applies them in one commit.
type PackageManager interface {
	MarkInstall(names ...string) error
	MarkRemove(names ...string) error
	Commit() error
}

// Apt drives apt-get and apt-cache through a Shell.
type Apt struct {
	Shell Shell
	// Update refreshes the package lists before each commit.
	Update bool

	install []string
	remove  []string
}

// NewApt returns an Apt with empty queues.
func NewApt(sh Shell, update bool) *Apt {
	return &Apt{Shell: sh, Update: update}
}

// MarkInstall queues names for installation. Unknown packages fail immediately.
func (a *Apt) MarkInstall(names ...string) error {
	for _, name := range names {
		if err := a.ensureKnown(name); err != nil {
			return err
		}
		a.install = append(a.install, name)
	}
	return nil
}

// MarkRemove queues names for removal. Unknown packages fail immediately.
func (a *Apt) MarkRemove(names ...string) error {
	for _, name := range names {
		if err := a.ensureKnown(name); err != nil {
			return err
		}
		a.remove = append(a.remove, name)
	}
	return nil
}

func (a *Apt) ensureKnown(name string) error {
	if _, err := a.Shell.Run("apt-cache", "show", "--no-all-versions", name); err != nil {
		logger.Debug("[DEBUG] apt-cache show %s: %v\n", name, err)
		return errs.Environment("deb package %q not found, is this Ubuntu?", name)
	}
	return nil
}

// Commit applies every queued change and empties the queues, whether or not
// the commit succeeds.
func (a *Apt) Commit() error {
	install, remove := a.install, a.remove
	a.install, a.remove = nil, nil
	if len(install) == 0 && len(remove) == 0 {
		return nil
	}

	if a.Update {
		logger.Info("[INFO] Refreshing package lists...\n")
		if _, err := a.Shell.Run("apt-get", "update"); err != nil {
			return errs.WrapEnvironment(err, "apt-get update failed")
		}
	}
	if len(install) > 0 {
		logger.Info("[INFO] Installing %s\n", strings.Join(install, " "))
		if _, err := a.aptGet("install", install); err != nil {
			return errs.WrapEnvironment(err, "error installing packages %s", strings.Join(install, ", "))
		}
	}
	if len(remove) > 0 {
		logger.Info("[INFO] Removing %s\n", strings.Join(remove, " "))
		if _, err := a.aptGet("remove", remove); err != nil {
			return errs.WrapEnvironment(err, "error removing packages %s", strings.Join(remove, ", "))
		}
	}
	return nil
}

func (a *Apt) aptGet(verb string, names []string) (string, error) {
	args := append([]string{"DEBIAN_FRONTEND=noninteractive", "apt-get", verb, "-y"}, names...)
	return a.Shell.Run("env", args...)
}
