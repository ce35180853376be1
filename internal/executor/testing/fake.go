// Package testing provides in-memory executors for tests.
package testing

import (
	"context"
	"sync"
	"time"

	"github.com/rileyhilliard/sentinel/internal/executor"
	"github.com/rileyhilliard/sentinel/internal/monitor"
)

// Response is a canned answer for one command.
type Response struct {
	Result executor.Result
	Err    error
	// Delay holds the answer back, honouring ctx cancellation.
	Delay time.Duration
}

// Fake answers commands from registered responses. Unknown commands
// succeed with empty output.
type Fake struct {
	mu        sync.Mutex
	responses map[string]Response
	calls     []string
	closes    int
}

var _ executor.Executor = (*Fake)(nil)

// NewFake creates an empty fake executor.
func NewFake() *Fake {
	return &Fake{responses: make(map[string]Response)}
}

// On registers the response for an exact command string.
func (f *Fake) On(command string, resp Response) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[command] = resp
	return f
}

// OnStdout registers a successful response with the given stdout.
func (f *Fake) OnStdout(command, stdout string) *Fake {
	return f.On(command, Response{Result: executor.Result{Stdout: stdout}})
}

// Execute returns the registered response for command.
func (f *Fake) Execute(ctx context.Context, command string) (executor.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, command)
	resp := f.responses[command]
	f.mu.Unlock()

	if resp.Delay > 0 {
		timer := time.NewTimer(resp.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return executor.Result{ExitCode: -1}, &executor.ExecError{Command: command, ExitCode: -1, Cause: ctx.Err()}
		}
	}
	return resp.Result, resp.Err
}

// Close counts calls.
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

// Calls returns the commands executed so far, in arrival order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// Closes returns how many times Close was called.
func (f *Fake) Closes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}

// Provider hands out executors by host address.
type Provider struct {
	mu        sync.Mutex
	executors map[string]executor.Executor
	errs      map[string]error
	evicted   []string
	requests  int
	closed    bool
}

// NewProvider creates an empty provider.
func NewProvider() *Provider {
	return &Provider{
		executors: make(map[string]executor.Executor),
		errs:      make(map[string]error),
	}
}

// Set registers the executor returned for address.
func (p *Provider) Set(address string, exec executor.Executor) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.executors[address] = exec
	delete(p.errs, address)
	return p
}

// Fail makes For return err for address.
func (p *Provider) Fail(address string, err error) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs[address] = err
	return p
}

// For returns the executor registered for host.Address. Unknown addresses
// are unreachable.
func (p *Provider) For(_ context.Context, host monitor.Host) (executor.Executor, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests++

	if err, ok := p.errs[host.Address]; ok {
		return nil, err
	}
	if exec, ok := p.executors[host.Address]; ok {
		return exec, nil
	}
	return nil, &executor.ConnectivityError{Address: host.Address, Reason: executor.FailUnreachable}
}

// Evict records the eviction.
func (p *Provider) Evict(host monitor.Host) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.evicted = append(p.evicted, host.Address)
}

// Evicted returns the addresses passed to Evict.
func (p *Provider) Evicted() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.evicted))
	copy(out, p.evicted)
	return out
}

// Requests returns how many times For was called.
func (p *Provider) Requests() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests
}

// Close marks the provider closed.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Closed reports whether Close was called.
func (p *Provider) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
