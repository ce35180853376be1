package executor

import (
	"context"

	"github.com/rileyhilliard/sentinel/internal/errors"
	"github.com/rileyhilliard/sentinel/pkg/sshutil"
)

// Remote runs commands over a pooled SSH connection. Every command gets
// its own session, which sshutil closes on every return path.
type Remote struct {
	client sshutil.SSHClient
	pool   *Pool
	host   string
	port   int
}

// NewRemote wraps an established client. pool may be nil.
func NewRemote(client sshutil.SSHClient, pool *Pool, host string, port int) *Remote {
	return &Remote{client: client, pool: pool, host: host, port: port}
}

// Execute runs command. A non-zero exit is an *ExecError carrying stderr
// and the exit code; a lost connection is a *ConnectivityError and evicts
// the connection from the pool.
func (r *Remote) Execute(ctx context.Context, command string) (Result, error) {
	stdout, stderr, code, err := r.client.Exec(ctx, command)
	res := Result{Stdout: string(stdout), Stderr: string(stderr), ExitCode: code}

	if err != nil {
		if errors.IsCode(err, errors.ErrSSH) {
			if r.pool != nil {
				r.pool.Evict(r.host, r.port)
			}
			return res, NewConnectivityError(r.client.GetAddress(), err)
		}
		return res, &ExecError{Command: command, ExitCode: code, Stderr: res.Stderr, Cause: err}
	}

	if code != 0 {
		return res, &ExecError{Command: command, ExitCode: code, Stderr: res.Stderr}
	}
	return res, nil
}

// Close does nothing; the pool owns the connection.
func (r *Remote) Close() error {
	return nil
}

var _ Executor = (*Remote)(nil)
