package fleet

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rileyhilliard/sentinel/internal/collector"
	"github.com/rileyhilliard/sentinel/internal/errors"
	exectest "github.com/rileyhilliard/sentinel/internal/executor/testing"
	"github.com/rileyhilliard/sentinel/internal/logger"
	"github.com/rileyhilliard/sentinel/internal/monitor"
	"github.com/rileyhilliard/sentinel/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// stubCollector answers by host address.
type stubCollector struct {
	mu        sync.Mutex
	snaps     map[string]monitor.Snapshot
	calls     map[string]int
	delay     time.Duration
	block     chan struct{}
	entered   chan string
	active    int
	maxActive int
}

func newStub() *stubCollector {
	return &stubCollector{
		snaps: make(map[string]monitor.Snapshot),
		calls: make(map[string]int),
	}
}

func (s *stubCollector) set(address string, snap monitor.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[address] = snap
}

func (s *stubCollector) Collect(ctx context.Context, host monitor.Host, _ []monitor.Container) monitor.Snapshot {
	s.mu.Lock()
	s.calls[host.Address]++
	s.active++
	if s.active > s.maxActive {
		s.maxActive = s.active
	}
	snap, ok := s.snaps[host.Address]
	delay, block, entered := s.delay, s.block, s.entered
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.active--
		s.mu.Unlock()
	}()

	if entered != nil {
		entered <- host.Address
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return monitor.Unreachable(ctx.Err())
		}
	}
	if delay > 0 {
		time.Sleep(delay)
	}
	if !ok {
		return monitor.Unreachable(stderrors.New("no route to host"))
	}
	return snap
}

func (s *stubCollector) callCount(address string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[address]
}

func healthySnap(cpu float64) monitor.Snapshot {
	return monitor.Snapshot{
		Reachable: true,
		Containers: []monitor.Container{{
			ID:          "c1",
			Name:        "api",
			Status:      monitor.ContainerRunning,
			CPUUsage:    monitor.Float(10),
			MemoryUsage: monitor.Float(20),
		}},
		CPUUsage:      monitor.Float(cpu),
		MemoryUsage:   monitor.Float(40),
		MemoryUsedGB:  monitor.Float(6.4),
		MemoryTotalGB: monitor.Float(16),
		DiskUsage:     monitor.Float(34),
		DiskUsedGB:    monitor.Float(151),
		DiskTotalGB:   monitor.Float(458),
	}
}

func tickingClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	cur := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		cur = cur.Add(step)
		return cur
	}
}

func newFleet(t *testing.T, col Collector, opts Options) (*Fleet, *store.FileStore) {
	t.Helper()
	st, err := store.NewFileStore(filepath.Join(t.TempDir(), "hosts.json"))
	require.NoError(t, err)
	f := New(st, col, opts)
	f.now = tickingClock(t0, time.Second)
	return f, st
}

func TestAddHost(t *testing.T) {
	f, st := newFleet(t, newStub(), Options{})
	ctx := context.Background()

	first, err := f.AddHost(ctx, "web", "10.0.0.5", 0)
	require.NoError(t, err)
	second, err := f.AddHost(ctx, " db ", " 10.0.0.6 ", 2222)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(first.ID, "host-"))
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, monitor.StatusOnline, first.Status)
	assert.NotNil(t, first.Containers)
	assert.Empty(t, first.Containers)
	assert.Empty(t, first.History)
	assert.Equal(t, "db", second.Name)
	assert.Equal(t, "10.0.0.6", second.Address)

	// Newest first.
	snap := f.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, second.ID, snap[0].ID)
	assert.Equal(t, first.ID, snap[1].ID)

	stored, err := st.LoadHosts(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestAddHost_Validation(t *testing.T) {
	f, _ := newFleet(t, newStub(), Options{})

	tests := []struct {
		name    string
		host    string
		address string
		port    int
	}{
		{name: "empty name", host: "", address: "10.0.0.5"},
		{name: "blank address", host: "web", address: "   "},
		{name: "negative port", host: "web", address: "10.0.0.5", port: -1},
		{name: "port too large", host: "web", address: "10.0.0.5", port: 70000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.AddHost(context.Background(), tt.host, tt.address, tt.port)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrConfig))
		})
	}
	assert.Empty(t, f.Snapshot())
}

func TestRemoveHost(t *testing.T) {
	provider := exectest.NewProvider()
	f, st := newFleet(t, newStub(), Options{Executors: provider})
	ctx := context.Background()

	h, err := f.AddHost(ctx, "web", "10.0.0.5", 0)
	require.NoError(t, err)

	require.NoError(t, f.RemoveHost(ctx, h.ID))
	_, ok := f.Host(h.ID)
	assert.False(t, ok)
	assert.Equal(t, []string{"10.0.0.5"}, provider.Evicted())

	stored, err := st.LoadHosts(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)

	err = f.RemoveHost(ctx, h.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestLoad(t *testing.T) {
	f, st := newFleet(t, newStub(), Options{})
	ctx := context.Background()

	require.NoError(t, st.SaveHost(ctx, monitor.Host{ID: "host-a", Name: "a", Address: "10.0.0.1", CreatedAt: t0}))
	require.NoError(t, st.SaveHost(ctx, monitor.Host{ID: "host-b", Name: "b", Address: "10.0.0.2", CreatedAt: t0.Add(time.Hour)}))

	require.NoError(t, f.Load(ctx))
	snap := f.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "host-b", snap[0].ID)
	assert.NotNil(t, snap[1].Containers)
}

func TestSnapshot_ReturnsCopies(t *testing.T) {
	stub := newStub()
	stub.set("10.0.0.5", healthySnap(50))
	f, _ := newFleet(t, stub, Options{})
	ctx := context.Background()

	h, err := f.AddHost(ctx, "web", "10.0.0.5", 0)
	require.NoError(t, err)
	f.RefreshAll(ctx)

	snap := f.Snapshot()
	snap[0].Containers[0].Name = "mutated"
	*snap[0].CPUUsage = 99

	again, ok := f.Host(h.ID)
	require.True(t, ok)
	assert.Equal(t, "api", again.Containers[0].Name)
	assert.Equal(t, 50.0, *again.CPUUsage)
}

func TestRefreshAll_EndToEnd(t *testing.T) {
	cmds := collector.DefaultCommands()
	healthy := exectest.NewFake().
		OnStdout(cmds.Containers, `{"ID":"abc123","Names":"api","Image":"api:1.4","State":"running","Status":"Up 2 hours","CreatedAt":"2026-02-27 09:15:42 +0000 UTC"}`+"\n").
		OnStdout(cmds.Stats, `{"ID":"abc123","Name":"api","CPUPerc":"12.5%","MemPerc":"3.0%"}`+"\n").
		OnStdout(cmds.CPU, "93.5\n").
		OnStdout(cmds.Memory, "16028592 5592348\n").
		OnStdout(cmds.Disk, "458G 151G 34%\n")
	provider := exectest.NewProvider().Set("10.0.0.5", healthy)

	log := logger.NewBufferLogger()
	col := collector.New(provider, cmds, 5*time.Second, log)
	f, st := newFleet(t, col, Options{Executors: provider, Log: log})
	ctx := context.Background()

	web, err := f.AddHost(ctx, "web", "10.0.0.5", 0)
	require.NoError(t, err)
	gone, err := f.AddHost(ctx, "gone", "10.0.0.99", 0)
	require.NoError(t, err)

	sum := f.RefreshAll(ctx)
	assert.Equal(t, Summary{Polled: 2, Online: 1, Offline: 1}, sum)

	got, ok := f.Host(web.ID)
	require.True(t, ok)
	assert.Equal(t, monitor.StatusOnline, got.Status)
	require.Len(t, got.Containers, 1)
	assert.Equal(t, "api", got.Containers[0].Name)
	assert.InDelta(t, 6.5, *got.CPUUsage, 0.001)
	require.Len(t, got.History, 1)
	assert.Contains(t, got.History[0].Containers, "abc123")
	assert.Empty(t, got.LastError)
	assert.False(t, got.LastPolled.IsZero())

	off, ok := f.Host(gone.ID)
	require.True(t, ok)
	assert.Equal(t, monitor.StatusOffline, off.Status)
	assert.Empty(t, off.Containers)
	assert.Nil(t, off.CPUUsage)
	assert.Empty(t, off.History)
	assert.NotEmpty(t, off.LastError)
	assert.True(t, log.Contains("warn", "went offline"))

	stored, err := st.LoadHosts(ctx)
	require.NoError(t, err)
	byID := map[string]monitor.Host{}
	for _, h := range stored {
		byID[h.ID] = h
	}
	assert.Equal(t, monitor.StatusOnline, byID[web.ID].Status)
	assert.Len(t, byID[web.ID].History, 1)
	assert.Equal(t, monitor.StatusOffline, byID[gone.ID].Status)
}

func TestRefreshAll_OfflineKeepsHistory(t *testing.T) {
	stub := newStub()
	stub.set("10.0.0.5", healthySnap(50))
	f, _ := newFleet(t, stub, Options{})
	ctx := context.Background()

	h, err := f.AddHost(ctx, "web", "10.0.0.5", 0)
	require.NoError(t, err)
	f.RefreshAll(ctx)
	f.RefreshAll(ctx)

	stub.set("10.0.0.5", monitor.Unreachable(stderrors.New("connection refused")))
	f.RefreshAll(ctx)

	got, _ := f.Host(h.ID)
	assert.Equal(t, monitor.StatusOffline, got.Status)
	assert.Len(t, got.History, 2)
	assert.Empty(t, got.Containers)
	assert.Nil(t, got.DiskUsage)
	assert.Contains(t, got.LastError, "connection refused")

	stub.set("10.0.0.5", healthySnap(60))
	f.RefreshAll(ctx)

	got, _ = f.Host(h.ID)
	assert.Equal(t, monitor.StatusOnline, got.Status)
	assert.Len(t, got.History, 3)
	assert.Empty(t, got.LastError)
}

func TestRefreshAll_HistoryRetention(t *testing.T) {
	stub := newStub()
	stub.set("10.0.0.5", healthySnap(50))
	f, _ := newFleet(t, stub, Options{Retention: monitor.MaxCount(3)})
	ctx := context.Background()

	h, err := f.AddHost(ctx, "web", "10.0.0.5", 0)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		f.RefreshAll(ctx)
	}

	got, _ := f.Host(h.ID)
	require.Len(t, got.History, 3)
	for i := 1; i < len(got.History); i++ {
		assert.False(t, got.History[i].Timestamp.Before(got.History[i-1].Timestamp))
	}
}

func TestRefreshAll_SkipsHostStillPolling(t *testing.T) {
	stub := newStub()
	stub.set("10.0.0.5", healthySnap(50))
	stub.block = make(chan struct{})
	stub.entered = make(chan string, 4)
	f, _ := newFleet(t, stub, Options{})
	ctx := context.Background()

	_, err := f.AddHost(ctx, "web", "10.0.0.5", 0)
	require.NoError(t, err)

	done := make(chan Summary)
	go func() { done <- f.RefreshAll(ctx) }()
	<-stub.entered

	sum := f.RefreshAll(ctx)
	assert.Equal(t, Summary{Skipped: 1}, sum)
	assert.Equal(t, 1, stub.callCount("10.0.0.5"))

	close(stub.block)
	first := <-done
	assert.Equal(t, 1, first.Polled)
}

func TestRefreshAll_BoundedConcurrency(t *testing.T) {
	stub := newStub()
	stub.delay = 20 * time.Millisecond
	f, _ := newFleet(t, stub, Options{MaxConcurrent: 2})
	ctx := context.Background()

	for _, addr := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3", "10.0.0.4", "10.0.0.5"} {
		stub.set(addr, healthySnap(50))
		_, err := f.AddHost(ctx, "h"+addr, addr, 0)
		require.NoError(t, err)
	}

	sum := f.RefreshAll(ctx)
	assert.Equal(t, 5, sum.Polled)
	assert.LessOrEqual(t, stub.maxActive, 2)
}

func TestRefreshAll_CancelledPollLeavesHostAlone(t *testing.T) {
	stub := newStub()
	stub.set("10.0.0.5", healthySnap(50))
	stub.block = make(chan struct{})
	stub.entered = make(chan string, 1)
	f, _ := newFleet(t, stub, Options{})

	h, err := f.AddHost(context.Background(), "web", "10.0.0.5", 0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Summary)
	go func() { done <- f.RefreshAll(ctx) }()
	<-stub.entered
	cancel()

	sum := <-done
	assert.Equal(t, 0, sum.Polled)

	got, _ := f.Host(h.ID)
	assert.Equal(t, monitor.StatusOnline, got.Status)
	assert.True(t, got.LastPolled.IsZero())
}

func TestRefresh_Single(t *testing.T) {
	stub := newStub()
	stub.set("10.0.0.5", healthySnap(50))
	f, _ := newFleet(t, stub, Options{})
	ctx := context.Background()

	h, err := f.AddHost(ctx, "web", "10.0.0.5", 0)
	require.NoError(t, err)

	got, err := f.Refresh(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, monitor.StatusOnline, got.Status)
	assert.Len(t, got.History, 1)

	_, err = f.Refresh(ctx, "host-missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRun_RefreshesUntilCancelled(t *testing.T) {
	stub := newStub()
	stub.set("10.0.0.5", healthySnap(50))

	var batches atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f, _ := newFleet(t, stub, Options{
		Interval: 10 * time.Millisecond,
		OnRefresh: func(Summary) {
			if batches.Add(1) == 3 {
				cancel()
			}
		},
	})
	_, err := f.AddHost(context.Background(), "web", "10.0.0.5", 0)
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- f.Run(ctx) }()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.GreaterOrEqual(t, int(batches.Load()), 3)
	assert.GreaterOrEqual(t, stub.callCount("10.0.0.5"), 3)
}

func TestRun_ReloadsHostsFromStore(t *testing.T) {
	stub := newStub()
	stub.set("10.0.0.7", healthySnap(30))
	provider := exectest.NewProvider()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f, st := newFleet(t, stub, Options{Interval: 10 * time.Millisecond, Executors: provider})
	_, err := f.AddHost(context.Background(), "web", "10.0.0.5", 0)
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- f.Run(ctx) }()

	// Another process sharing the store adds a host.
	added := monitor.Host{ID: "host-other", Name: "other", Address: "10.0.0.7", Status: monitor.StatusOnline, CreatedAt: t0}
	require.NoError(t, st.SaveHost(context.Background(), added))

	require.Eventually(t, func() bool {
		return stub.callCount("10.0.0.7") > 0
	}, 5*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		h, ok := f.Host(added.ID)
		return ok && len(h.History) > 0
	}, 5*time.Second, 5*time.Millisecond)

	// And removes it again.
	require.NoError(t, st.DeleteHost(context.Background(), added.ID))
	require.Eventually(t, func() bool {
		_, ok := f.Host(added.ID)
		return !ok
	}, 5*time.Second, 5*time.Millisecond)
	assert.Contains(t, provider.Evicted(), "10.0.0.7")

	cancel()
	require.NoError(t, <-errCh)
	assert.Len(t, f.Snapshot(), 1)
}

func TestRefreshAll_KeepsInMemoryRecordOnReload(t *testing.T) {
	stub := newStub()
	stub.set("10.0.0.5", healthySnap(50))
	f, st := newFleet(t, stub, Options{})
	ctx := context.Background()

	h, err := f.AddHost(ctx, "web", "10.0.0.5", 0)
	require.NoError(t, err)
	f.RefreshAll(ctx)

	// A stale copy in the store must not roll back history.
	stale := h
	stale.Name = "renamed-elsewhere"
	require.NoError(t, st.UpdateHost(ctx, stale))

	f.RefreshAll(ctx)
	got, ok := f.Host(h.ID)
	require.True(t, ok)
	assert.Equal(t, "web", got.Name)
	assert.Len(t, got.History, 2)
}

func TestTimestampsSurviveSQLiteRoundTrip(t *testing.T) {
	st, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	stub := newStub()
	stub.set("10.0.0.5", healthySnap(50))
	f := New(st, stub, Options{})
	defer f.Close()
	f.now = func() time.Time { return t0.Add(1234567 * time.Nanosecond) }
	ctx := context.Background()

	h, err := f.AddHost(ctx, "web", "10.0.0.5", 0)
	require.NoError(t, err)
	assert.Equal(t, t0.Add(time.Millisecond), h.CreatedAt)

	f.RefreshAll(ctx)
	mem, ok := f.Host(h.ID)
	require.True(t, ok)
	assert.Equal(t, t0.Add(time.Millisecond), mem.LastPolled)

	stored, err := st.LoadHosts(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.True(t, mem.CreatedAt.Equal(stored[0].CreatedAt))
	assert.True(t, mem.LastPolled.Equal(stored[0].LastPolled))
}

func TestClose(t *testing.T) {
	provider := exectest.NewProvider()
	f, _ := newFleet(t, newStub(), Options{Executors: provider})

	require.NoError(t, f.Close())
	assert.True(t, provider.Closed())
}

func TestMerge(t *testing.T) {
	base := monitor.Host{
		ID:        "host-1",
		Name:      "web",
		Address:   "10.0.0.5",
		SSHPort:   2222,
		CreatedAt: t0,
		Status:    monitor.StatusOnline,
	}

	online := Merge(base, healthySnap(50), t0.Add(time.Minute), nil)
	assert.Equal(t, "host-1", online.ID)
	assert.Equal(t, "web", online.Name)
	assert.Equal(t, 2222, online.SSHPort)
	assert.Equal(t, t0, online.CreatedAt)
	assert.Equal(t, t0.Add(time.Minute), online.LastPolled)
	assert.Len(t, online.History, 1)
	assert.Equal(t, 458.0, *online.DiskTotalGB)

	offline := Merge(online, monitor.Unreachable(nil), t0.Add(2*time.Minute), nil)
	assert.Equal(t, monitor.StatusOffline, offline.Status)
	assert.Equal(t, "unreachable", offline.LastError)
	assert.Len(t, offline.History, 1)
	assert.NotNil(t, offline.Containers)
	assert.Empty(t, offline.Containers)
	assert.Nil(t, offline.MemoryTotalGB)

	// The input record is never modified.
	assert.Len(t, online.Containers, 1)
	assert.NotNil(t, online.CPUUsage)
}
