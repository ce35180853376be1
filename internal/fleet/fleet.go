// Package fleet owns the set of monitored hosts and drives the refresh
// loop: every interval each host is polled, merged into its record and
// written back to the store.
package fleet

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rileyhilliard/sentinel/internal/errors"
	"github.com/rileyhilliard/sentinel/internal/logger"
	"github.com/rileyhilliard/sentinel/internal/monitor"
	"github.com/rileyhilliard/sentinel/internal/store"
)

// Defaults used when Options leaves a field zero.
const (
	DefaultInterval      = 5 * time.Second
	DefaultMaxConcurrent = 8
	idPrefix             = "host-"
)

// Collector polls one host.
type Collector interface {
	Collect(ctx context.Context, host monitor.Host, previous []monitor.Container) monitor.Snapshot
}

// Executors is the connection source behind the collector. Removing a host
// evicts its pooled connection; closing the fleet closes all of them.
type Executors interface {
	Evict(host monitor.Host)
	Close() error
}

// Options configures a Fleet.
type Options struct {
	Interval            time.Duration
	MaxConcurrent       int
	Retention           monitor.RetentionPolicy
	DownsampleThreshold int
	Executors           Executors
	Log                 logger.Logger

	// OnRefresh is called after every completed batch.
	OnRefresh func(Summary)
}

// Summary counts the outcome of one refresh batch.
type Summary struct {
	Polled  int
	Online  int
	Offline int
	Skipped int
}

// state is never modified after it is published.
type state struct {
	hosts map[string]monitor.Host
}

// Fleet is safe for concurrent use. Readers see a consistent copy of every
// host; each poll result is swapped in whole.
type Fleet struct {
	store     store.Store
	collector Collector
	opts      Options
	log       logger.Logger

	state atomic.Pointer[state]
	mu    sync.Mutex // serializes state writers

	// membership serializes adds and removals with reload so a host added
	// between LoadHosts and the swap is not dropped.
	membership sync.Mutex

	flightMu sync.Mutex
	inFlight map[string]bool

	batches sync.WaitGroup

	now   func() time.Time
	newID func() string
}

// New creates a fleet backed by st. Call Load before polling.
func New(st store.Store, col Collector, opts Options) *Fleet {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = DefaultMaxConcurrent
	}
	if opts.Retention == nil {
		opts.Retention = monitor.DefaultRetention()
	}
	if opts.DownsampleThreshold <= 0 {
		opts.DownsampleThreshold = monitor.DefaultDownsampleThreshold
	}
	log := opts.Log
	if log == nil {
		log = logger.With(logger.Default(), "fleet")
	}

	f := &Fleet{
		store:     st,
		collector: col,
		opts:      opts,
		log:       log,
		inFlight:  make(map[string]bool),
		now:       time.Now,
		newID:     func() string { return idPrefix + uuid.NewString() },
	}
	f.state.Store(&state{hosts: map[string]monitor.Host{}})
	return f
}

// Load replaces the in-memory host set with the store's contents.
func (f *Fleet) Load(ctx context.Context) error {
	hosts, err := f.store.LoadHosts(ctx)
	if err != nil {
		return err
	}

	next := make(map[string]monitor.Host, len(hosts))
	for _, h := range hosts {
		if h.Containers == nil {
			h.Containers = []monitor.Container{}
		}
		next[h.ID] = h
	}

	f.mu.Lock()
	f.state.Store(&state{hosts: next})
	f.mu.Unlock()

	f.log.Debug("loaded %d hosts", len(next))
	return nil
}

// Snapshot returns a copy of every host, newest first.
func (f *Fleet) Snapshot() []monitor.Host {
	s := f.state.Load()
	out := make([]monitor.Host, 0, len(s.hosts))
	for _, h := range s.hosts {
		out = append(out, h.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Host returns a copy of the host with id.
func (f *Fleet) Host(id string) (monitor.Host, bool) {
	h, ok := f.state.Load().hosts[id]
	if !ok {
		return monitor.Host{}, false
	}
	return h.Clone(), true
}

// AddHost registers a new host. It starts online with no containers or
// history until the first poll says otherwise.
func (f *Fleet) AddHost(ctx context.Context, name, address string, port int) (monitor.Host, error) {
	f.membership.Lock()
	defer f.membership.Unlock()

	name = strings.TrimSpace(name)
	address = strings.TrimSpace(address)
	if name == "" || address == "" {
		return monitor.Host{}, errors.New(errors.ErrConfig,
			"Host name and address are required",
			"Usage: sentinel host add <name> <address> [--port 22]")
	}
	if port < 0 || port > 65535 {
		return monitor.Host{}, errors.New(errors.ErrConfig,
			fmt.Sprintf("SSH port %d is out of range", port),
			"Use a port between 1 and 65535, or 0 for the default.")
	}

	h := monitor.Host{
		ID:         f.newID(),
		Name:       name,
		Address:    address,
		SSHPort:    port,
		Status:     monitor.StatusOnline,
		CreatedAt:  f.now().UTC().Truncate(time.Millisecond),
		Containers: []monitor.Container{},
		History:    []monitor.HostMetric{},
	}
	if err := f.store.SaveHost(ctx, h); err != nil {
		return monitor.Host{}, err
	}

	f.update(func(hosts map[string]monitor.Host) {
		hosts[h.ID] = h
	})
	f.log.Info("added host %s (%s) as %s", h.Name, h.Address, h.ID)
	return h.Clone(), nil
}

// RemoveHost deletes the host and its history.
func (f *Fleet) RemoveHost(ctx context.Context, id string) error {
	f.membership.Lock()
	defer f.membership.Unlock()

	h, known := f.state.Load().hosts[id]

	if err := f.store.DeleteHost(ctx, id); err != nil {
		if !known || !stderrors.Is(err, store.ErrNotFound) {
			return err
		}
	}

	f.update(func(hosts map[string]monitor.Host) {
		delete(hosts, id)
	})
	if known && f.opts.Executors != nil {
		f.opts.Executors.Evict(h)
	}
	f.log.Info("removed host %s", id)
	return nil
}

// update publishes a modified copy of the host map.
func (f *Fleet) update(fn func(map[string]monitor.Host)) {
	f.mu.Lock()
	defer f.mu.Unlock()

	cur := f.state.Load().hosts
	next := make(map[string]monitor.Host, len(cur)+1)
	for id, h := range cur {
		next[id] = h
	}
	fn(next)
	f.state.Store(&state{hosts: next})
}

func (f *Fleet) begin(id string) bool {
	f.flightMu.Lock()
	defer f.flightMu.Unlock()
	if f.inFlight[id] {
		return false
	}
	f.inFlight[id] = true
	return true
}

func (f *Fleet) end(id string) {
	f.flightMu.Lock()
	defer f.flightMu.Unlock()
	delete(f.inFlight, id)
}

// reload picks up hosts another process added to or removed from the
// store. Hosts still present keep their in-memory record.
func (f *Fleet) reload(ctx context.Context) {
	f.membership.Lock()
	defer f.membership.Unlock()

	stored, err := f.store.LoadHosts(ctx)
	if err != nil {
		f.log.Warn("reloading hosts failed, keeping the current set: %s", errors.Summary(err))
		return
	}
	present := make(map[string]monitor.Host, len(stored))
	for _, h := range stored {
		if h.Containers == nil {
			h.Containers = []monitor.Container{}
		}
		present[h.ID] = h
	}

	var added, dropped []monitor.Host
	f.update(func(hosts map[string]monitor.Host) {
		for id, h := range hosts {
			if _, ok := present[id]; !ok {
				delete(hosts, id)
				dropped = append(dropped, h)
			}
		}
		for id, h := range present {
			if _, ok := hosts[id]; !ok {
				hosts[id] = h
				added = append(added, h)
			}
		}
	})

	for _, h := range added {
		f.log.Info("picked up host %s (%s) as %s", h.Name, h.Address, h.ID)
	}
	for _, h := range dropped {
		if f.opts.Executors != nil {
			f.opts.Executors.Evict(h)
		}
		f.log.Info("host %s was removed from the store", h.ID)
	}
}

// RefreshAll polls every host once with at most MaxConcurrent polls at a
// time. The host set is reloaded from the store first. A host whose
// previous poll is still running is skipped. One host's failure never
// stops the others.
func (f *Fleet) RefreshAll(ctx context.Context) Summary {
	if ctx.Err() == nil {
		f.reload(ctx)
	}

	ids := make([]string, 0)
	for id := range f.state.Load().hosts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var mu sync.Mutex
	var sum Summary

	var g errgroup.Group
	g.SetLimit(f.opts.MaxConcurrent)

	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		if !f.begin(id) {
			f.log.Debug("%s: previous poll still running, skipping", id)
			mu.Lock()
			sum.Skipped++
			mu.Unlock()
			continue
		}
		g.Go(func() error {
			defer f.end(id)
			h, ok := f.refresh(ctx, id)
			if !ok {
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			sum.Polled++
			if h.Status == monitor.StatusOnline {
				sum.Online++
			} else {
				sum.Offline++
			}
			return nil
		})
	}
	_ = g.Wait()

	if f.opts.OnRefresh != nil {
		f.opts.OnRefresh(sum)
	}
	return sum
}

// Refresh polls a single host and returns its updated record.
func (f *Fleet) Refresh(ctx context.Context, id string) (monitor.Host, error) {
	if _, ok := f.Host(id); !ok {
		return monitor.Host{}, unknownHost(id)
	}
	if !f.begin(id) {
		return monitor.Host{}, errors.New(errors.ErrExec,
			fmt.Sprintf("A poll of %s is already running", id),
			"Wait for it to finish and try again.")
	}
	defer f.end(id)

	h, ok := f.refresh(ctx, id)
	if !ok {
		if err := ctx.Err(); err != nil {
			return monitor.Host{}, err
		}
		return monitor.Host{}, unknownHost(id)
	}
	return h, nil
}

func unknownHost(id string) error {
	return errors.WrapWithCode(store.ErrNotFound, errors.ErrStore,
		fmt.Sprintf("Unknown host %s", id),
		"Run 'sentinel host list' to see known hosts.")
}

// refresh runs one poll and persists the merged record. ok is false when
// the host disappeared or the poll was cancelled before it finished.
func (f *Fleet) refresh(ctx context.Context, id string) (monitor.Host, bool) {
	cur, exists := f.state.Load().hosts[id]
	if !exists {
		return monitor.Host{}, false
	}

	snap := f.collector.Collect(ctx, cur, cur.Containers)
	if ctx.Err() != nil {
		// Shutting down; an aborted poll says nothing about the host.
		return monitor.Host{}, false
	}
	if snap.ContainersStale {
		f.log.Debug("%s: container list unavailable, keeping previous %d containers", cur.Name, len(snap.Containers))
	}

	now := f.now().UTC().Truncate(time.Millisecond)
	var merged monitor.Host
	var applied bool
	f.update(func(hosts map[string]monitor.Host) {
		latest, ok := hosts[id]
		if !ok {
			return
		}
		merged = Merge(latest, snap, now, f.opts.Retention)
		hosts[id] = merged
		applied = true
	})
	if !applied {
		return monitor.Host{}, false
	}

	f.logTransition(cur, merged)

	if err := f.store.UpdateHost(ctx, merged); err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			f.log.Debug("%s: removed while polling", id)
		} else {
			f.log.Error("%s: failed to persist poll result: %s", cur.Name, errors.Summary(err))
		}
	}
	return merged.Clone(), true
}

func (f *Fleet) logTransition(before, after monitor.Host) {
	switch {
	case before.Status != monitor.StatusOffline && after.Status == monitor.StatusOffline:
		f.log.Warn("%s (%s) went offline: %s", after.Name, after.Address, after.LastError)
	case before.Status == monitor.StatusOffline && after.Status == monitor.StatusOnline:
		f.log.Info("%s (%s) is back online", after.Name, after.Address)
	}
}

// Merge applies one poll result to a host record. Identity fields are
// preserved. A reachable poll replaces containers and readings and appends
// to history. An unreachable poll marks the host offline and clears its
// containers and readings but leaves history untouched.
func Merge(h monitor.Host, snap monitor.Snapshot, at time.Time, policy monitor.RetentionPolicy) monitor.Host {
	h.LastPolled = at

	if !snap.Reachable {
		h.Status = monitor.StatusOffline
		h.Containers = []monitor.Container{}
		h.CPUUsage, h.MemoryUsage, h.MemoryUsedGB, h.MemoryTotalGB = nil, nil, nil, nil
		h.DiskUsage, h.DiskUsedGB, h.DiskTotalGB = nil, nil, nil
		h.LastError = errors.Summary(snap.Err)
		if h.LastError == "" {
			h.LastError = "unreachable"
		}
		return h
	}

	h.Status = monitor.StatusOnline
	h.LastError = ""
	h.Containers = snap.Containers
	if h.Containers == nil {
		h.Containers = []monitor.Container{}
	}
	h.CPUUsage = snap.CPUUsage
	h.MemoryUsage = snap.MemoryUsage
	h.MemoryUsedGB = snap.MemoryUsedGB
	h.MemoryTotalGB = snap.MemoryTotalGB
	h.DiskUsage = snap.DiskUsage
	h.DiskUsedGB = snap.DiskUsedGB
	h.DiskTotalGB = snap.DiskTotalGB
	h.History = monitor.Append(h.History, snap, at, policy)
	return h
}

// Run refreshes immediately and then on every tick until ctx is done. A
// tick never waits for a slow batch; overlapping polls of the same host
// are skipped instead.
func (f *Fleet) Run(ctx context.Context) error {
	f.log.Info("polling %d hosts every %s", len(f.state.Load().hosts), f.opts.Interval)

	f.spawn(ctx)

	ticker := time.NewTicker(f.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			f.batches.Wait()
			f.log.Info("refresh loop stopped")
			return nil
		case <-ticker.C:
			f.spawn(ctx)
		}
	}
}

func (f *Fleet) spawn(ctx context.Context) {
	f.batches.Add(1)
	go func() {
		defer f.batches.Done()
		f.RefreshAll(ctx)
	}()
}

// Close waits for running batches and releases the executors and store.
func (f *Fleet) Close() error {
	f.batches.Wait()

	var errs []error
	if f.opts.Executors != nil {
		if err := f.opts.Executors.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := f.store.Close(); err != nil {
		errs = append(errs, err)
	}
	return stderrors.Join(errs...)
}
