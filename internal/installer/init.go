package installer

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"tuffix/internal/errs"
	"tuffix/internal/logger"
	"tuffix/internal/state"
	"tuffix/internal/system"
)

// lockState is state.Lock; tests replace it to interleave another process.
var lockState = state.Lock

// Init creates the state directory and an empty state stamped with this
// build's version. It refuses to run twice.
func Init(env *Env) error {
	if state.Exists(env.Config) {
		return errs.Usage("tuffix is already initialized, state file %s exists", env.Config.StatePath)
	}
	if err := system.EnsureRoot(env.Tools.Privileges); err != nil {
		return err
	}
	if env.LSBRelease != "" {
		codename, err := system.DistribCodename(env.LSBRelease)
		if err != nil {
			return err
		}
		logger.Debug("[DEBUG] Distribution codename: %s\n", codename)
	}

	if err := state.EnsureDir(env.Config); err != nil {
		return err
	}
	unlock, err := lockState(env.Config)
	if err != nil {
		return err
	}
	defer unlock()
	// another init may have finished while we waited to get here
	if state.Exists(env.Config) {
		return errs.Usage("tuffix is already initialized, state file %s exists", env.Config.StatePath)
	}

	if err := state.Write(env.Config, state.New(env.Config.Version)); err != nil {
		return err
	}
	logger.Audit("init", logrus.Fields{"version": env.Config.Version.String()})

	fmt.Fprintln(env.Out, "tuffix init succeeded")
	return nil
}
