package state

import (
	"errors"
	"io/fs"
	"os"

	"golang.org/x/sys/unix"

	"tuffix/internal/config"
	"tuffix/internal/errs"
	"tuffix/internal/logger"
)

// Lock takes an exclusive advisory lock on "<state path>.lock" so two tuffix
// processes cannot interleave the read-modify-write of the state file.
// The lock is not waited for: a second process fails straight away.
// Call the returned function to release it.
func Lock(cfg config.BuildConfig) (func(), error) {
	path := cfg.StatePath + ".lock"
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// no state directory means init never ran
			return nil, errs.Environment("state file not found, you must run $ tuffix init")
		}
		return nil, errs.WrapEnvironment(err, "cannot open lock file %s", path)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, errs.Environment("another tuffix process is running, try again when it has finished")
		}
		return nil, errs.WrapEnvironment(err, "cannot lock %s", path)
	}
	logger.Debug("[DEBUG] Locked %s\n", path)

	return func() {
		if err := unix.Flock(int(f.Fd()), unix.LOCK_UN); err != nil {
			logger.Warn("[WARN] Failed to unlock %s: %v\n", path, err)
		}
		f.Close()
	}, nil
}
