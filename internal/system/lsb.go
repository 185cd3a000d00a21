package system

import (
	"bufio"
	"errors"
	"io"
	"io/fs"
	"os"
	"strings"

	"tuffix/internal/errs"
)

// LSBReleasePath is the Debian-style release description.
const LSBReleasePath = "/etc/lsb-release"

// DistribCodename returns the release codename (e.g. "noble") from the
// lsb-release file at path.
func DistribCodename(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", errs.Environment("no %s; this does not seem to be Linux", path)
		}
		return "", errs.WrapEnvironment(err, "cannot read %s", path)
	}
	defer f.Close()
	return ParseDistribCodename(f)
}

// ParseDistribCodename finds the DISTRIB_CODENAME=... line in an
// lsb-release formatted stream and returns the trimmed value.
func ParseDistribCodename(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "DISTRIB_CODENAME") {
			continue
		}
		tokens := strings.Split(line, "=")
		if len(tokens) != 2 {
			return "", errs.Environment("%s syntax error", LSBReleasePath)
		}
		return strings.TrimSpace(tokens[1]), nil
	}
	if err := scanner.Err(); err != nil {
		return "", errs.WrapEnvironment(err, "cannot read %s", LSBReleasePath)
	}
	return "", errs.Environment("%s has no DISTRIB_CODENAME", LSBReleasePath)
}
