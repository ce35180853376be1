package sshutil

import "context"

// SSHClient defines the interface for SSH command execution.
// Both the real Client and mock implementations satisfy this interface.
type SSHClient interface {
	// Exec runs a command and returns stdout, stderr, and exit code.
	// Exit code is -1 if the command couldn't be executed at all.
	// A non-zero exit code with nil error means the command ran but failed.
	Exec(ctx context.Context, cmd string) (stdout, stderr []byte, exitCode int, err error)

	// SendRequest sends a global request, used as a cheap liveness check.
	SendRequest(name string, wantReply bool, payload []byte) (bool, []byte, error)

	// GetAddress returns the resolved host:port address.
	GetAddress() string

	// Close closes the SSH connection.
	Close() error
}

var _ SSHClient = (*Client)(nil)
