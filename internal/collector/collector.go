// Package collector polls a single host: it runs the metric command set
// through an executor and turns the output into a monitor.Snapshot.
package collector

import (
	"context"
	"sync"
	"time"

	"github.com/rileyhilliard/sentinel/internal/errors"
	"github.com/rileyhilliard/sentinel/internal/executor"
	"github.com/rileyhilliard/sentinel/internal/logger"
	"github.com/rileyhilliard/sentinel/internal/monitor"
	"github.com/rileyhilliard/sentinel/internal/monitor/parsers"
)

// DefaultTimeout bounds a single host poll.
const DefaultTimeout = 30 * time.Second

// Provider hands out an executor for a host.
type Provider interface {
	For(ctx context.Context, host monitor.Host) (executor.Executor, error)
}

// Collector gathers container and resource metrics from hosts.
type Collector struct {
	provider Provider
	commands Commands
	timeout  time.Duration
	log      logger.Logger
	now      func() time.Time
}

// New creates a collector. A zero timeout uses DefaultTimeout.
func New(provider Provider, commands Commands, timeout time.Duration, log logger.Logger) *Collector {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.Noop()
	}
	return &Collector{
		provider: provider,
		commands: commands,
		timeout:  timeout,
		log:      log,
		now:      time.Now,
	}
}

type commandResult struct {
	ran bool
	res executor.Result
	err error
}

func (r commandResult) ok() bool {
	return r.ran && r.err == nil && r.res.ExitCode == 0
}

// Collect polls host once. It never returns an error: a host that can't
// be reached yields an unreachable snapshot, and a failed command only
// leaves its own metric absent. previous is the host's container list from
// the last poll, carried forward if only the container listing fails.
func (c *Collector) Collect(ctx context.Context, host monitor.Host, previous []monitor.Container) monitor.Snapshot {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	exec, err := c.provider.For(ctx, host)
	if err != nil {
		c.log.Warn("%s (%s) unreachable: %s", host.Name, host.Address, errors.Summary(err))
		return monitor.Unreachable(err)
	}
	defer func() {
		if err := exec.Close(); err != nil {
			c.log.Debug("%s: closing executor: %v", host.Name, err)
		}
	}()

	results := c.runAll(ctx, exec)

	var issued, lost int
	var lostErr error
	for _, r := range results {
		if !r.ran {
			continue
		}
		issued++
		if executor.IsConnectivity(r.err) {
			lost++
			if lostErr == nil {
				lostErr = r.err
			}
		}
	}
	if issued > 0 && lost == issued {
		c.log.Warn("%s (%s) unreachable: %s", host.Name, host.Address, errors.Summary(lostErr))
		return monitor.Unreachable(lostErr)
	}

	for m, r := range results {
		if r.ran && !r.ok() {
			c.logFailure(host, metric(m), r)
		}
	}

	snap := monitor.Snapshot{Reachable: true}
	c.applyContainers(&snap, host, results[metricContainers], results[metricStats], previous)
	c.applyHostMetrics(&snap, results)
	return snap
}

// runAll issues every configured command concurrently.
func (c *Collector) runAll(ctx context.Context, exec executor.Executor) [metricCount]commandResult {
	var results [metricCount]commandResult
	var wg sync.WaitGroup

	for m, cmd := range c.commands.byMetric() {
		if cmd == "" {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := exec.Execute(ctx, cmd)
			results[m] = commandResult{ran: true, res: res, err: err}
		}()
	}
	wg.Wait()
	return results
}

func (c *Collector) logFailure(host monitor.Host, m metric, r commandResult) {
	if r.err != nil {
		c.log.Warn("%s: %s command failed: %s", host.Name, m, errors.Summary(r.err))
		return
	}
	c.log.Debug("%s: %s command exited %d", host.Name, m, r.res.ExitCode)
}

func (c *Collector) applyContainers(snap *monitor.Snapshot, host monitor.Host, list, stats commandResult, previous []monitor.Container) {
	if !list.ran {
		snap.Containers = []monitor.Container{}
		return
	}
	if !list.ok() {
		snap.Containers = carryForward(previous)
		snap.ContainersStale = len(previous) > 0
		return
	}

	containers, skips := parsers.ParseContainerList(list.res.Stdout, c.now())
	for _, s := range skips {
		c.log.Warn("%s: skipped container record: %s", host.Name, s)
	}

	if stats.ok() {
		byID, skips := parsers.ParseContainerStats(stats.res.Stdout)
		for _, s := range skips {
			c.log.Warn("%s: skipped stats record: %s", host.Name, s)
		}
		for i := range containers {
			if st, ok := parsers.MatchStats(byID, containers[i].ID); ok {
				containers[i].CPUUsage = monitor.Float(st.CPUPercent)
				containers[i].MemoryUsage = monitor.Float(st.MemoryPercent)
			}
		}
	}
	snap.Containers = containers
}

// carryForward returns the last known containers without their readings.
func carryForward(previous []monitor.Container) []monitor.Container {
	out := make([]monitor.Container, len(previous))
	for i, p := range previous {
		out[i] = p.Clone()
		out[i].CPUUsage = nil
		out[i].MemoryUsage = nil
	}
	return out
}

func (c *Collector) applyHostMetrics(snap *monitor.Snapshot, results [metricCount]commandResult) {
	if r := results[metricCPU]; r.ok() {
		snap.CPUUsage = parsers.ParseCPU(r.res.Stdout, c.commands.CPUReportsIdle)
	}
	if r := results[metricMemory]; r.ok() {
		if mem := parsers.ParseMemory(r.res.Stdout); mem != nil {
			snap.MemoryUsage = monitor.Float(mem.UsagePercent)
			snap.MemoryUsedGB = monitor.Float(mem.UsedGB)
			snap.MemoryTotalGB = monitor.Float(mem.TotalGB)
		}
	}
	if r := results[metricDisk]; r.ok() {
		disk := parsers.ParseDisk(r.res.Stdout)
		snap.DiskUsage = disk.UsagePercent
		snap.DiskTotalGB = disk.TotalGB
		snap.DiskUsedGB = disk.UsedGB
	}
}
