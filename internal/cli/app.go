package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rileyhilliard/sentinel/internal/collector"
	"github.com/rileyhilliard/sentinel/internal/config"
	"github.com/rileyhilliard/sentinel/internal/errors"
	"github.com/rileyhilliard/sentinel/internal/executor"
	"github.com/rileyhilliard/sentinel/internal/fleet"
	"github.com/rileyhilliard/sentinel/internal/logger"
	"github.com/rileyhilliard/sentinel/internal/monitor"
	"github.com/rileyhilliard/sentinel/internal/store"
	"github.com/rileyhilliard/sentinel/pkg/sshutil"
)

// app is everything a command needs: the loaded config and a fleet wired
// to the store and executors it describes.
type app struct {
	cfg   *config.Config
	log   logger.Logger
	fleet *fleet.Fleet
}

// appOptions adjusts how openApp builds the app.
type appOptions struct {
	// configure runs after the config is loaded and before it's validated.
	configure func(*config.Config)

	// logBatches logs a line per refresh batch.
	logBatches bool
}

// openApp loads config, opens the store and loads the fleet from it. Logs
// go to logOut. The caller must call close.
func openApp(ctx context.Context, logOut io.Writer, opts appOptions) (*app, error) {
	cfg, err := config.LoadOrDefault(configFlag)
	if err != nil {
		return nil, err
	}
	if opts.configure != nil {
		opts.configure(cfg)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if verboseFlag {
		level = "debug"
	}
	log := logger.New(logger.Options{Level: level, Format: cfg.Log.Format, Output: logOut})
	logger.SetDefault(log)
	sshutil.WarningHandler = func(message string) {
		log.Warn("%s", message)
	}

	st, err := store.Open(cfg.Store.Driver, cfg.Store.Path)
	if err != nil {
		return nil, err
	}

	execs, err := newExecutors(cfg, log)
	if err != nil {
		st.Close()
		return nil, err
	}

	col := collector.New(execs, cfg.Commands.Collector(), cfg.CollectTimeout, logger.With(log, "collector"))

	fopts := fleet.Options{
		Interval:            cfg.Interval,
		MaxConcurrent:       cfg.MaxConcurrent,
		Retention:           retentionPolicy(cfg.History),
		DownsampleThreshold: cfg.History.DownsampleThreshold,
		Executors:           execs,
		Log:                 logger.With(log, "fleet"),
	}
	if opts.logBatches {
		fopts.OnRefresh = func(s fleet.Summary) {
			log.Info("refreshed %d hosts: %d online, %d offline, %d skipped", s.Polled, s.Online, s.Offline, s.Skipped)
		}
	}

	f := fleet.New(st, col, fopts)
	if err := f.Load(ctx); err != nil {
		f.Close()
		return nil, err
	}

	return &app{cfg: cfg, log: log, fleet: f}, nil
}

func (a *app) close() {
	if err := a.fleet.Close(); err != nil {
		a.log.Warn("shutdown: %s", errors.Summary(err))
	}
}

// newExecutors builds the executor factory: the local shell (or the Docker
// Engine API in front of it) for the sentinel address, pooled SSH for the
// rest.
func newExecutors(cfg *config.Config, log logger.Logger) (*executor.Factory, error) {
	key, err := cfg.SSH.KeyMaterial()
	if err != nil {
		return nil, err
	}
	if len(key) == 0 {
		log.Warn("no SSH private key configured; remote hosts will report offline")
	}

	var local executor.Executor = executor.NewLocal(cfg.Local.Shell, logger.With(log, "local"))
	if cfg.Local.DockerAPI {
		api, err := executor.NewDockerClient(cfg.Local.DockerHost)
		if err != nil {
			local.Close()
			return nil, err
		}
		local = &executor.DockerSocket{
			API:               api,
			Next:              local,
			ContainersCommand: cfg.Commands.Containers,
			StatsCommand:      cfg.Commands.Stats,
			Log:               logger.With(log, "docker"),
		}
	}

	pool := executor.NewPool(executor.DefaultDialer(sshutil.Options{
		User:           cfg.SSH.User,
		Key:            key,
		Timeout:        cfg.SSH.ConnectTimeout,
		DefaultPort:    cfg.SSH.DefaultPort,
		KnownHostsFile: cfg.SSH.KnownHosts,
		ConfigFile:     cfg.SSH.ConfigFile,
	}))

	return &executor.Factory{
		LocalAddress: cfg.LocalAddress,
		Local:        local,
		Pool:         pool,
	}, nil
}

// retentionPolicy maps history config to a policy. Age retention keeps a
// count cap as a safety bound.
func retentionPolicy(h config.HistoryConfig) monitor.RetentionPolicy {
	if h.Retention == "count" {
		return monitor.MaxCount(h.MaxEntries)
	}
	return monitor.Both(monitor.MaxAge(h.MaxAge), monitor.MaxCount(monitor.DefaultMaxCount))
}

// resolveHost accepts a full host ID, a unique ID prefix or a unique name.
func (a *app) resolveHost(arg string) (monitor.Host, error) {
	if h, ok := a.fleet.Host(arg); ok {
		return h, nil
	}

	var matches []monitor.Host
	for _, h := range a.fleet.Snapshot() {
		if strings.HasPrefix(h.ID, arg) || h.Name == arg {
			matches = append(matches, h)
		}
	}

	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return monitor.Host{}, errors.WrapWithCode(store.ErrNotFound, errors.ErrStore,
			fmt.Sprintf("No host matches '%s'", arg),
			"Run 'sentinel host list' to see known hosts.")
	default:
		names := make([]string, len(matches))
		for i, h := range matches {
			names[i] = fmt.Sprintf("%s (%s)", h.ID, h.Name)
		}
		return monitor.Host{}, errors.New(errors.ErrConfig,
			fmt.Sprintf("'%s' matches %d hosts: %s", arg, len(matches), strings.Join(names, ", ")),
			"Use a longer ID prefix.")
	}
}
