package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"golang.org/x/sync/errgroup"

	"github.com/rileyhilliard/sentinel/internal/errors"
	"github.com/rileyhilliard/sentinel/internal/logger"
	"github.com/rileyhilliard/sentinel/internal/monitor/parsers"
)

// DockerAPI is the part of the Docker Engine client the socket executor uses.
type DockerAPI interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
	ContainerStats(ctx context.Context, containerID string, stream bool) (container.StatsResponseReader, error)
	Close() error
}

// statsConcurrency bounds parallel one-shot stats requests.
const statsConcurrency = 8

// DockerSocket answers the container list and stats commands from the
// Docker Engine API and hands every other command to Next. Its output is
// the same newline-delimited JSON the docker CLI prints, so callers parse
// both paths the same way.
type DockerSocket struct {
	API               DockerAPI
	Next              Executor
	ContainersCommand string
	StatsCommand      string
	Log               logger.Logger
}

// NewDockerClient connects to the Docker Engine. An empty host uses the
// DOCKER_HOST environment, then the default socket.
func NewDockerClient(host string) (DockerAPI, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't create a Docker Engine client",
			"Check local.docker_host or DOCKER_HOST.")
	}
	return cli, nil
}

// Execute routes command to the API or to Next.
func (d *DockerSocket) Execute(ctx context.Context, command string) (Result, error) {
	var (
		out string
		err error
	)
	switch strings.TrimSpace(command) {
	case strings.TrimSpace(d.ContainersCommand):
		out, err = d.listContainers(ctx)
	case strings.TrimSpace(d.StatsCommand):
		out, err = d.containerStats(ctx)
	default:
		return d.Next.Execute(ctx, command)
	}
	return d.answer(ctx, command, out, err)
}

func (d *DockerSocket) answer(ctx context.Context, command, out string, err error) (Result, error) {
	if err == nil {
		return Result{Stdout: out}, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Result{ExitCode: -1}, &ExecError{
			Command:  command,
			ExitCode: -1,
			Cause:    errors.WrapWithCode(ctxErr, errors.ErrExec, "Docker API request cancelled", ""),
		}
	}

	log := d.Log
	if log == nil {
		log = logger.Noop()
	}
	log.Warn("docker api request for %q failed: %v", command, err)
	if strings.Contains(strings.ToLower(err.Error()), "permission denied") ||
		strings.Contains(err.Error(), "Is the docker daemon running?") {
		log.Warn("is /var/run/docker.sock mounted into this environment with the right permissions?")
	}
	return Result{Stderr: err.Error(), ExitCode: 1}, nil
}

func (d *DockerSocket) listContainers(ctx context.Context) (string, error) {
	containers, err := d.API.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, c := range containers {
		names := make([]string, 0, len(c.Names))
		for _, n := range c.Names {
			names = append(names, strings.TrimPrefix(n, "/"))
		}
		rec := parsers.PSRecord{
			ID:        c.ID,
			Names:     strings.Join(names, ","),
			Image:     c.Image,
			State:     c.State,
			Status:    c.Status,
			CreatedAt: time.Unix(c.Created, 0).UTC().Format(parsers.DockerTimeLayout),
		}
		if err := enc.Encode(rec); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func (d *DockerSocket) containerStats(ctx context.Context) (string, error) {
	containers, err := d.API.ContainerList(ctx, container.ListOptions{})
	if err != nil {
		return "", err
	}

	// Each goroutine writes only its own index.
	records := make([]parsers.StatsRecord, len(containers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(statsConcurrency)
	for i, c := range containers {
		g.Go(func() error {
			cpu, mem, err := d.oneShotStats(gctx, c.ID)
			if err != nil {
				// A container that stopped between list and stats has no row.
				return nil
			}
			name := ""
			if len(c.Names) > 0 {
				name = strings.TrimPrefix(c.Names[0], "/")
			}
			records[i] = parsers.StatsRecord{
				ID:        c.ID,
				Container: c.ID,
				Name:      name,
				CPUPerc:   fmt.Sprintf("%.2f%%", cpu),
				MemPerc:   fmt.Sprintf("%.2f%%", mem),
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, rec := range records {
		if rec.ID == "" {
			continue
		}
		if err := enc.Encode(rec); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func (d *DockerSocket) oneShotStats(ctx context.Context, id string) (cpu, mem float64, err error) {
	resp, err := d.API.ContainerStats(ctx, id, false)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()

	var stats container.StatsResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&stats); err != nil {
		return 0, 0, err
	}
	cpu, mem = statsPercentages(&stats)
	return cpu, mem, nil
}

// statsPercentages computes CPU and memory percentages the way `docker
// stats` does.
func statsPercentages(stats *container.StatsResponse) (cpu, mem float64) {
	cpuDelta := float64(stats.CPUStats.CPUUsage.TotalUsage) - float64(stats.PreCPUStats.CPUUsage.TotalUsage)
	systemDelta := float64(stats.CPUStats.SystemUsage) - float64(stats.PreCPUStats.SystemUsage)
	cpuCount := float64(stats.CPUStats.OnlineCPUs)
	if cpuCount == 0 {
		cpuCount = 1
	}
	if systemDelta > 0 && cpuDelta > 0 {
		cpu = cpuDelta / systemDelta * cpuCount * 100
	}

	if stats.MemoryStats.Limit > 0 {
		mem = float64(stats.MemoryStats.Usage) / float64(stats.MemoryStats.Limit) * 100
	}
	return cpu, mem
}

// Close closes the API client and Next.
func (d *DockerSocket) Close() error {
	var firstErr error
	if d.API != nil {
		firstErr = d.API.Close()
	}
	if d.Next != nil {
		if err := d.Next.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ Executor = (*DockerSocket)(nil)
