// Package errs defines the two error kinds allowed to cross the boundary
// between a command and the dispatcher.
//
// A UsageError means the command line itself was wrong (bad arity, unknown
// command or keyword, missing root access). The dispatcher prints the usage
// text after it. An EnvironmentError means the host did not meet an
// assumption: missing or corrupt state file, package not found, a failed
// package-manager commit, and so on.
package errs

import (
	"errors"
	"fmt"
)

// Domain is implemented by every error the dispatcher knows how to report.
type Domain interface {
	error
	domain()
}

// UsageError reports a malformed command invocation.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string { return e.Message }
func (e *UsageError) domain()       {}

// EnvironmentError reports a host that does not meet an assumption.
// Err, when set, is the underlying cause and is reachable with errors.Is/As.
type EnvironmentError struct {
	Message string
	Err     error
}

func (e *EnvironmentError) Error() string { return e.Message }
func (e *EnvironmentError) Unwrap() error { return e.Err }
func (e *EnvironmentError) domain()       {}

// Usage builds a UsageError from a format string.
func Usage(format string, a ...any) error {
	return &UsageError{Message: fmt.Sprintf(format, a...)}
}

// Environment builds an EnvironmentError from a format string.
func Environment(format string, a ...any) error {
	return &EnvironmentError{Message: fmt.Sprintf(format, a...)}
}

// WrapEnvironment turns an arbitrary collaborator failure into an
// EnvironmentError whose message is "<formatted>: <cause>". Domain errors
// pass through untouched so their original kind and message survive.
func WrapEnvironment(err error, format string, a ...any) error {
	if err == nil {
		return nil
	}
	var d Domain
	if errors.As(err, &d) {
		return err
	}
	return &EnvironmentError{
		Message: fmt.Sprintf(format, a...) + ": " + err.Error(),
		Err:     err,
	}
}

// AsDomain reports whether err is (or wraps) a domain error and returns it.
func AsDomain(err error) (Domain, bool) {
	var d Domain
	if errors.As(err, &d) {
		return d, true
	}
	return nil, false
}

// IsUsage reports whether err is (or wraps) a UsageError.
func IsUsage(err error) bool {
	var u *UsageError
	return errors.As(err, &u)
}

// IsEnvironment reports whether err is (or wraps) an EnvironmentError.
func IsEnvironment(err error) bool {
	var e *EnvironmentError
	return errors.As(err, &e)
}
