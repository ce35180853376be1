package executor

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rileyhilliard/sentinel/internal/errors"
	"github.com/rileyhilliard/sentinel/internal/logger"
)

// socketHints are stderr fragments that mean the container runtime socket
// isn't reachable from this process.
var socketHints = []string{
	"permission denied",
	"Is the docker daemon running?",
}

const waitDelay = time.Second

// Local runs commands through a shell in this process's environment.
// Non-zero exits are not errors: the caller gets an empty stdout so the
// remaining metrics keep flowing.
type Local struct {
	Shell string
	Log   logger.Logger
}

// NewLocal creates a local executor. An empty shell means $SHELL, then /bin/sh.
func NewLocal(shell string, log logger.Logger) *Local {
	if log == nil {
		log = logger.Noop()
	}
	return &Local{Shell: shell, Log: log}
}

func (l *Local) shell() string {
	if l.Shell != "" {
		return l.Shell
	}
	if s := os.Getenv("SHELL"); s != "" {
		return s
	}
	return "/bin/sh"
}

func (l *Local) log() logger.Logger {
	if l.Log == nil {
		return logger.Noop()
	}
	return l.Log
}

// Execute runs command with `<shell> -c`.
func (l *Local) Execute(ctx context.Context, command string) (Result, error) {
	cmd := exec.CommandContext(ctx, l.shell(), "-c", command)
	// Children that inherit stdout must not hold Run open past cancellation.
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runErr == nil {
		return Result{Stdout: stdout.String(), Stderr: stderr.String()}, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return Result{ExitCode: -1}, &ExecError{
			Command:  command,
			ExitCode: -1,
			Stderr:   stderr.String(),
			Cause: errors.WrapWithCode(ctxErr, errors.ErrExec,
				"Local command cancelled",
				"Raise collect_timeout if the host is slow to answer."),
		}
	}

	var exitErr *exec.ExitError
	if stderrors.As(runErr, &exitErr) {
		res := Result{Stderr: stderr.String(), ExitCode: exitErr.ExitCode()}
		l.warnFailure(command, res)
		return res, nil
	}

	return Result{ExitCode: -1}, &ExecError{
		Command:  command,
		ExitCode: -1,
		Cause: errors.WrapWithCode(runErr, errors.ErrExec,
			"Couldn't run the command locally",
			"Make sure local.shell points to an existing shell."),
	}
}

func (l *Local) warnFailure(command string, res Result) {
	log := l.log()
	msg := strings.TrimSpace(res.Stderr)
	log.Warn("local command %q exited %d: %s", command, res.ExitCode, firstLine(msg))

	for _, hint := range socketHints {
		if strings.Contains(msg, hint) {
			log.Warn("is /var/run/docker.sock mounted into this environment with the right permissions?")
			return
		}
	}
}

// Close is a no-op.
func (l *Local) Close() error {
	return nil
}

var _ Executor = (*Local)(nil)
