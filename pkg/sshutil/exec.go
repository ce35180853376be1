package sshutil

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"

	"github.com/rileyhilliard/sentinel/internal/errors"
	"golang.org/x/crypto/ssh"
)

// Exec runs a command on the remote host and returns the output.
// Returns stdout, stderr, exit code, and any error.
// Exit code is -1 if the command couldn't be executed at all. A non-zero
// exit code with a nil error means the command ran but failed.
//
// The session is closed on every return path. Cancelling ctx kills the
// remote command and closes the session.
func (c *Client) Exec(ctx context.Context, cmd string) (stdout, stderr []byte, exitCode int, err error) {
	session, err := c.openSession(ctx)
	if err != nil {
		return nil, nil, -1, err
	}
	defer session.Close()

	var stdoutBuf, stderrBuf bytes.Buffer
	session.Stdout = &stdoutBuf
	session.Stderr = &stderrBuf

	done := make(chan error, 1)
	go func() {
		done <- session.Run(cmd)
	}()

	select {
	case err = <-done:
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		_ = session.Close()
		<-done
		return stdoutBuf.Bytes(), stderrBuf.Bytes(), -1, errors.WrapWithCode(ctx.Err(), errors.ErrExec,
			fmt.Sprintf("Command cancelled: %s", cmd),
			"The host took longer than collect_timeout to answer.")
	}

	if err != nil {
		var exitErr *ssh.ExitError
		if stderrors.As(err, &exitErr) {
			return stdoutBuf.Bytes(), stderrBuf.Bytes(), exitErr.ExitStatus(), nil
		}

		var missingErr *ssh.ExitMissingError
		if stderrors.As(err, &missingErr) {
			return nil, nil, -1, errors.WrapWithCode(err, errors.ErrSSH,
				"Connection dropped before the command finished",
				"The host may have rebooted or the network flapped.")
		}

		return nil, nil, -1, errors.WrapWithCode(err, errors.ErrExec,
			fmt.Sprintf("Failed to execute command: %s", cmd),
			"Check if the command exists on the remote host.")
	}

	return stdoutBuf.Bytes(), stderrBuf.Bytes(), 0, nil
}

type sessionResult struct {
	session *ssh.Session
	err     error
}

// openSession opens a session but gives up when ctx is done. A session that
// opens after that is closed straight away.
func (c *Client) openSession(ctx context.Context) (*ssh.Session, error) {
	opened := make(chan sessionResult, 1)
	go func() {
		s, err := c.Client.NewSession()
		opened <- sessionResult{session: s, err: err}
	}()

	select {
	case r := <-opened:
		if r.err != nil {
			return nil, errors.WrapWithCode(r.err, errors.ErrSSH,
				"Failed to create SSH session",
				"Connection may have been closed. Try reconnecting.")
		}
		return r.session, nil
	case <-ctx.Done():
		go func() {
			if r := <-opened; r.session != nil {
				_ = r.session.Close()
			}
		}()
		return nil, errors.WrapWithCode(ctx.Err(), errors.ErrSSH,
			"Timed out opening an SSH session",
			"The connection stopped responding. It will be redialed on the next poll.")
	}
}
