// Package executor runs shell commands against a monitored host, either in
// the local process environment or over SSH.
package executor

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/rileyhilliard/sentinel/internal/errors"
)

// Result is the captured output of one command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Executor runs commands against a single host.
type Executor interface {
	// Execute runs command and returns its output. A non-nil error is
	// either an *ExecError or a *ConnectivityError.
	Execute(ctx context.Context, command string) (Result, error)

	// Close releases what the executor holds. Safe to call more than once.
	Close() error
}

// ExecError reports a command that couldn't run or exited non-zero.
type ExecError struct {
	Command  string
	ExitCode int
	Stderr   string
	Cause    error
}

func (e *ExecError) Error() string {
	msg := fmt.Sprintf("command %q", e.Command)
	switch {
	case e.ExitCode > 0:
		msg += fmt.Sprintf(" exited with code %d", e.ExitCode)
	default:
		msg += " failed to run"
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + firstLine(s)
	} else if e.Cause != nil {
		msg += ": " + errors.Summary(e.Cause)
	}
	return msg
}

// Unwrap exposes an EXEC-coded error so errors.IsCode(err, errors.ErrExec)
// holds for every ExecError.
func (e *ExecError) Unwrap() error {
	if e.Cause != nil && errors.IsCode(e.Cause, errors.ErrExec) {
		return e.Cause
	}
	return errors.WrapWithCode(e.Cause, errors.ErrExec, "Command failed", "")
}

// FailReason categorizes why a host couldn't be reached.
type FailReason int

const (
	FailUnknown FailReason = iota
	FailTimeout
	FailRefused
	FailUnreachable
	FailAuth
	FailHostKey
)

// String returns a human-readable description of the failure reason.
func (r FailReason) String() string {
	switch r {
	case FailTimeout:
		return "connection timed out"
	case FailRefused:
		return "connection refused"
	case FailUnreachable:
		return "host unreachable"
	case FailAuth:
		return "authentication failed"
	case FailHostKey:
		return "host key verification failed"
	default:
		return "connection failed"
	}
}

// ConnectivityError reports that a session to the host couldn't be
// established or was lost.
type ConnectivityError struct {
	Address string
	Reason  FailReason
	Cause   error
}

func (e *ConnectivityError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%s)", e.Address, e.Reason, errors.Summary(e.Cause))
	}
	return fmt.Sprintf("%s: %s", e.Address, e.Reason)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Cause
}

// NewConnectivityError categorizes err by its message.
func NewConnectivityError(address string, err error) *ConnectivityError {
	return &ConnectivityError{
		Address: address,
		Reason:  categorize(err),
		Cause:   err,
	}
}

// IsConnectivity reports whether err is a ConnectivityError.
func IsConnectivity(err error) bool {
	var ce *ConnectivityError
	return stderrors.As(err, &ce)
}

// IsConfiguration reports whether err comes from missing or bad
// configuration, such as an absent private key.
func IsConfiguration(err error) bool {
	return errors.IsCode(err, errors.ErrConfig)
}

func categorize(err error) FailReason {
	if err == nil {
		return FailUnknown
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return FailTimeout
	}

	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "timed out"):
		return FailTimeout
	case strings.Contains(errStr, "connection refused"):
		return FailRefused
	case strings.Contains(errStr, "no route to host") ||
		strings.Contains(errStr, "network is unreachable") ||
		strings.Contains(errStr, "host is down") ||
		strings.Contains(errStr, "no such host"):
		return FailUnreachable
	case strings.Contains(errStr, "unable to authenticate") ||
		strings.Contains(errStr, "no supported methods") ||
		strings.Contains(errStr, "permission denied") ||
		strings.Contains(errStr, "authentication failed"):
		return FailAuth
	case strings.Contains(errStr, "host key"):
		return FailHostKey
	default:
		return FailUnknown
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
