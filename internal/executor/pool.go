package executor

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/rileyhilliard/sentinel/pkg/sshutil"
)

// Dialer opens an SSH connection to host:port.
type Dialer func(ctx context.Context, host string, port int) (sshutil.SSHClient, error)

// DefaultDialer dials with sshutil.Dial and fixed credentials.
func DefaultDialer(opts sshutil.Options) Dialer {
	return func(ctx context.Context, host string, port int) (sshutil.SSHClient, error) {
		return sshutil.Dial(ctx, host, port, opts)
	}
}

// Pool keeps SSH connections alive between refresh cycles so each poll
// only pays for new sessions, not new handshakes.
type Pool struct {
	mu          sync.Mutex
	connections map[string]*poolEntry
	dial        Dialer
}

type poolEntry struct {
	client   sshutil.SSHClient
	lastUsed time.Time
}

// NewPool creates a connection pool that opens connections with dial.
func NewPool(dial Dialer) *Pool {
	return &Pool{
		connections: make(map[string]*poolEntry),
		dial:        dial,
	}
}

// Key is the pool key for a host and port.
func Key(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Get returns a live connection for host:port, dialing a new one when
// none exists or the pooled one stopped answering keepalives. Port 0 is
// passed through so the dialer resolves it.
func (p *Pool) Get(ctx context.Context, host string, port int) (sshutil.SSHClient, error) {
	key := Key(host, port)

	p.mu.Lock()
	entry, exists := p.connections[key]
	p.mu.Unlock()

	if exists && entry.client != nil {
		if isAlive(ctx, entry.client) {
			p.mu.Lock()
			entry.lastUsed = time.Now()
			p.mu.Unlock()
			return entry.client, nil
		}
		p.remove(key, entry.client)
	}

	client, err := p.dial(ctx, host, port)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	// Another poll may have dialed the same host meanwhile; keep theirs.
	if existing, ok := p.connections[key]; ok && existing.client != nil {
		_ = client.Close()
		existing.lastUsed = time.Now()
		return existing.client, nil
	}
	p.connections[key] = &poolEntry{client: client, lastUsed: time.Now()}
	return client, nil
}

// Evict closes and forgets the connection for host:port.
func (p *Pool) Evict(host string, port int) {
	p.remove(Key(host, port), nil)
}

// Close closes all connections in the pool and clears it.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for key, entry := range p.connections {
		if entry.client != nil {
			_ = entry.client.Close()
		}
		delete(p.connections, key)
	}
	return nil
}

// Size returns the number of connections in the pool.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.connections)
}

// remove closes and drops the entry for key. When only is non-nil the
// entry is removed only if it still holds that client.
func (p *Pool) remove(key string, only sshutil.SSHClient) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.connections[key]
	if !ok {
		return
	}
	if only != nil && entry.client != only {
		return
	}
	if entry.client != nil {
		_ = entry.client.Close()
	}
	delete(p.connections, key)
}

// keepaliveTimeout bounds the liveness check on a pooled connection. A
// half-open TCP connection never answers, so treat silence as dead.
const keepaliveTimeout = 5 * time.Second

func isAlive(ctx context.Context, client sshutil.SSHClient) bool {
	return isAliveWithin(ctx, client, keepaliveTimeout)
}

func isAliveWithin(ctx context.Context, client sshutil.SSHClient, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, _, err := client.SendRequest("keepalive@openssh.com", true, nil)
		done <- err
	}()

	select {
	case err := <-done:
		return err == nil
	case <-ctx.Done():
		return false
	}
}
