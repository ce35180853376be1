package executor

import (
	"context"

	"github.com/rileyhilliard/sentinel/internal/monitor"
)

// Factory picks the executor for a host: the local one for the sentinel
// address, a pooled SSH executor for everything else.
type Factory struct {
	LocalAddress string
	Local        Executor
	Pool         *Pool
}

// For returns an executor for host. The caller must Close it. An error
// means the host can't be reached at all: either a *ConnectivityError or a
// CONFIG-coded error such as a missing private key.
func (f *Factory) For(ctx context.Context, host monitor.Host) (Executor, error) {
	if host.IsLocal(f.LocalAddress) {
		return sharedExecutor{f.Local}, nil
	}

	// An unset port stays 0 so the dialer can fall back to ssh_config and
	// ssh.default_port.
	client, err := f.Pool.Get(ctx, host.Address, host.SSHPort)
	if err != nil {
		if IsConfiguration(err) {
			return nil, err
		}
		return nil, NewConnectivityError(dialTarget(host), err)
	}
	return NewRemote(client, f.Pool, host.Address, host.SSHPort), nil
}

// Evict drops any pooled connection for host.
func (f *Factory) Evict(host monitor.Host) {
	if f.Pool == nil || host.IsLocal(f.LocalAddress) {
		return
	}
	f.Pool.Evict(host.Address, host.SSHPort)
}

func dialTarget(host monitor.Host) string {
	if host.SSHPort == 0 {
		return host.Address
	}
	return Key(host.Address, host.SSHPort)
}

// Close releases the local executor and every pooled connection.
func (f *Factory) Close() error {
	var firstErr error
	if f.Local != nil {
		firstErr = f.Local.Close()
	}
	if f.Pool != nil {
		if err := f.Pool.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// sharedExecutor hands out a long-lived executor whose Close belongs to
// the Factory.
type sharedExecutor struct {
	Executor
}

func (sharedExecutor) Close() error { return nil }
