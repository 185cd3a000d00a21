package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/fatih/color" // Import the fatih/color package for colored console output
	"github.com/sirupsen/logrus"
)

// out is where the console printers write. It defaults to the colorable
// standard output that fatih/color detects for the current terminal.
var out io.Writer = color.Output

// Define colorized printing functions for different log levels using fatih/color.
// These are package-level variables holding functions that behave like fmt.Printf,
// but with text colored appropriately for the log level.

// Info logs informational messages in green color.
// Green is used for progress of package operations and other normal events.
var Info = printer(color.FgGreen)

// Warn logs warning messages in bright magenta color.
// Used for things the user should notice but that do not stop a command,
// such as a state entry naming a keyword this build no longer knows.
var Warn = printer(color.FgHiMagenta)

// Debug logs debug messages in cyan color if enabled, otherwise is a no-op.
// This is a function variable that is reassigned during Init based on the debug flag.
var Debug = func(format string, a ...any) {}

// printer returns a printf-style function writing in the given color to the
// current console writer.
func printer(attr color.Attribute) func(format string, a ...any) {
	c := color.New(attr)
	return func(format string, a ...any) {
		_, _ = c.Fprintf(out, format, a...)
	}
}

// Init initializes the logger package, specifically enabling or disabling debug logging.
// Parameters:
// - enableDebug: boolean flag to turn debug messages on or off.
// When enabled, Debug will print messages in cyan color.
// When disabled, Debug will be a no-op function that silently ignores debug logs.
func Init(enableDebug bool) {
	if enableDebug {
		Debug = printer(color.FgCyan)
	} else {
		Debug = func(format string, a ...any) {}
	}
}

// SetOutput redirects the console printers and returns the previous writer,
// so callers (mostly tests) can restore it.
func SetOutput(w io.Writer) io.Writer {
	prev := out
	out = w
	return prev
}

// audit is the append-only JSON log of every mutating action. It discards
// everything until OpenAudit points it at a file.
var audit = struct {
	logger *logrus.Logger
	mutex  sync.Mutex
}{
	logger: func() *logrus.Logger {
		l := logrus.New()
		l.SetFormatter(&logrus.JSONFormatter{})
		l.SetOutput(io.Discard)
		return l
	}(),
}

// OpenAudit starts appending audit records to path. An empty path leaves
// auditing disabled. The returned closer restores the discarding writer.
func OpenAudit(path string) (io.Closer, error) {
	if path == "" {
		return closerFunc(func() error { return nil }), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("ensure audit log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open audit log %s: %w", path, err)
	}
	SetAuditOutput(f)
	return closerFunc(func() error {
		SetAuditOutput(io.Discard)
		return f.Close()
	}), nil
}

// SetAuditOutput sends audit records to w.
func SetAuditOutput(w io.Writer) {
	audit.mutex.Lock()
	audit.logger.SetOutput(w)
	audit.mutex.Unlock()
}

// Audit records one action, e.g. Audit("keyword.add", logrus.Fields{"keyword": "base"}).
func Audit(action string, fields logrus.Fields) {
	audit.mutex.Lock()
	defer audit.mutex.Unlock()
	audit.logger.WithFields(fields).WithField("uid", os.Geteuid()).Info(action)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
