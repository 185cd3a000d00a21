package system

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"tuffix/internal/errs"
)

// SysClassNet lists the kernel's network adapters.
const SysClassNet = "/sys/class/net"

const loopbackAdapter = "lo"

// NetworkConnected reports whether any non-loopback adapter under dir has a
// carrier. A missing dir means this is not Linux and is an EnvironmentError.
func NetworkConnected(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, errs.Environment("no %s; this does not seem to be Linux", dir)
	}
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") || name == loopbackAdapter {
			continue
		}
		// adapters are usually symlinks into /sys/devices
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil || !info.IsDir() {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, name, "carrier"))
		if err != nil {
			continue
		}
		carrier, err := strconv.Atoi(strings.TrimSpace(string(raw)))
		if err != nil {
			continue
		}
		if carrier != 0 {
			return true, nil
		}
	}
	return false, nil
}

// EnsureNetworkConnected fails with an EnvironmentError when no adapter is up.
func EnsureNetworkConnected(dir string) error {
	ok, err := NetworkConnected(dir)
	if err != nil {
		return err
	}
	if !ok {
		return errs.Environment("no connected network adapter, internet is down")
	}
	return nil
}
