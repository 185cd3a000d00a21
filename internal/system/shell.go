package system

import (
	"bytes"
	"io"
	"os"
	"os/exec"
	"os/user"
	"strings"

	"github.com/pkg/errors"

	"tuffix/internal/logger"
)

// ErrUnknownUser is returned by RunAs when the target account does not exist.
var ErrUnknownUser = errors.New("unknown user")

// ErrPermission is returned by RunAs when sudo refuses to switch users.
var ErrPermission = errors.New("permission denied")

// Shell runs external programs on behalf of keywords and probes.
type Shell interface {
	// Run executes name with args and returns its combined output.
	Run(name string, args ...string) (string, error)
	// RunAs executes a bash command line as user and returns the output lines.
	RunAs(username, command string) ([]string, error)
}

// Exec is the Shell backed by os/exec.
// When Echo is set, output is copied there while the command runs, so long
// package installs show progress.
type Exec struct {
	Echo io.Writer
}

// Run implements Shell.
func (e *Exec) Run(name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	logger.Debug("[DEBUG] Running command: %s\n", strings.Join(cmd.Args, " "))
	return e.run(cmd)
}

func (e *Exec) run(cmd *exec.Cmd) (string, error) {
	var buf bytes.Buffer
	var w io.Writer = &buf
	if e.Echo != nil {
		w = io.MultiWriter(&buf, e.Echo)
	}
	cmd.Stdout = w
	cmd.Stderr = w

	if err := cmd.Run(); err != nil {
		return buf.String(), errors.Wrapf(err, "%s failed\nOutput: %s", strings.Join(cmd.Args, " "), strings.TrimSpace(buf.String()))
	}
	return buf.String(), nil
}

// RunAs implements Shell. When tuffix already runs as username the command
// is started directly; otherwise it goes through sudo -H so HOME points at
// the target user's home directory.
func (e *Exec) RunAs(username, command string) ([]string, error) {
	if _, err := user.Lookup(username); err != nil {
		return nil, errors.Wrapf(ErrUnknownUser, "%s", username)
	}

	var cmd *exec.Cmd
	if current, err := user.Current(); err == nil && current.Username == username {
		cmd = exec.Command("bash", "-c", command)
	} else {
		cmd = exec.Command("sudo", "-H", "-u", username, "bash", "-c", command)
	}
	logger.Debug("[DEBUG] Running as %s: %s\n", username, command)

	out, err := e.run(cmd)
	if err != nil {
		lower := strings.ToLower(out)
		if strings.Contains(lower, "is not allowed") || strings.Contains(lower, "not in the sudoers") {
			return nil, errors.Wrapf(ErrPermission, "%s cannot run %q as %s", currentName(), command, username)
		}
		return nil, err
	}
	return splitLines(out), nil
}

func currentName() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return os.Getenv("USER")
}

// splitLines breaks command output into non-empty, right-trimmed lines.
func splitLines(out string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, " \r\t")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// Quote wraps s in single quotes for a bash command line.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
