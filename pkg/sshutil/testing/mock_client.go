package testing

import (
	"context"
	"errors"
	"regexp"
	"sync"

	"github.com/rileyhilliard/sentinel/pkg/sshutil"
)

// CommandResponse defines a canned response for a specific command pattern.
type CommandResponse struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Error    error
}

// MockClient simulates an SSH connection for testing. Commands are answered
// from registered responses; unknown commands succeed with empty output.
type MockClient struct {
	mu       sync.Mutex
	address  string
	closed   bool
	dead     bool
	commands map[string]CommandResponse // pattern -> response
	executed []string
}

var _ sshutil.SSHClient = (*MockClient)(nil)

// NewMockClient creates a new mock SSH client.
func NewMockClient(address string) *MockClient {
	return &MockClient{
		address:  address,
		commands: make(map[string]CommandResponse),
	}
}

// Exec answers cmd from the registered responses. Exact matches win over
// regex patterns.
func (m *MockClient) Exec(ctx context.Context, cmd string) (stdout, stderr []byte, exitCode int, err error) {
	select {
	case <-ctx.Done():
		return nil, nil, -1, ctx.Err()
	default:
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, nil, -1, errors.New("connection closed")
	}
	m.executed = append(m.executed, cmd)

	if resp, ok := m.commands[cmd]; ok {
		return resp.Stdout, resp.Stderr, resp.ExitCode, resp.Error
	}

	for pattern, resp := range m.commands {
		if matched, _ := regexp.MatchString(pattern, cmd); matched {
			return resp.Stdout, resp.Stderr, resp.ExitCode, resp.Error
		}
	}

	return nil, nil, 0, nil
}

// Close marks the connection as closed.
func (m *MockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockClient) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// GetAddress returns the host:port address.
func (m *MockClient) GetAddress() string {
	return m.address
}

// SetCommandResponse registers a canned response for a command pattern.
// The pattern can be an exact string or a regex pattern.
func (m *MockClient) SetCommandResponse(pattern string, resp CommandResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands[pattern] = resp
}

// Kill makes liveness checks fail without closing the client, simulating
// a connection the remote end dropped.
func (m *MockClient) Kill() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dead = true
}

// Executed returns the commands run so far, in order.
func (m *MockClient) Executed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.executed))
	copy(out, m.executed)
	return out
}

// SendRequest simulates a keepalive on the connection.
func (m *MockClient) SendRequest(name string, wantReply bool, payload []byte) (bool, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || m.dead {
		return false, nil, errors.New("connection closed")
	}
	return true, nil, nil
}
