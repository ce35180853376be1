package config

import (
	"fmt"
	"time"

	"github.com/rileyhilliard/sentinel/internal/errors"
)

// MinInterval is the fastest refresh the loop accepts.
const MinInterval = 500 * time.Millisecond

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if cfg.Interval < MinInterval {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("interval %s is too short", cfg.Interval),
			fmt.Sprintf("Use at least %s, e.g. interval: 5s", MinInterval))
	}

	if cfg.CollectTimeout <= 0 {
		return errors.New(errors.ErrConfig,
			"collect_timeout must be positive",
			"Try collect_timeout: 30s")
	}

	if cfg.MaxConcurrent < 1 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("max_concurrent must be at least 1, got %d", cfg.MaxConcurrent),
			"Try max_concurrent: 8")
	}

	if cfg.LocalAddress == "" {
		return errors.New(errors.ErrConfig,
			"local_address can't be empty",
			"Use the default sentinel address "+DefaultLocalAddress)
	}

	if err := validateSSH(cfg.SSH); err != nil {
		return err
	}
	if err := validateHistory(cfg.History); err != nil {
		return err
	}
	if err := validateStore(cfg.Store); err != nil {
		return err
	}
	if err := validateLog(cfg.Log); err != nil {
		return err
	}

	if cfg.Commands.Containers == "" || cfg.Commands.Stats == "" {
		return errors.New(errors.ErrConfig,
			"commands.containers and commands.stats can't be empty",
			"Remove the overrides to use the docker CLI defaults")
	}

	return nil
}

func validateSSH(s SSHConfig) error {
	if s.User == "" {
		return errors.New(errors.ErrConfig,
			"ssh.user can't be empty",
			"Set ssh.user: root")
	}
	if s.DefaultPort < 1 || s.DefaultPort > 65535 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("ssh.default_port %d is out of range", s.DefaultPort),
			"Use a port between 1 and 65535")
	}
	if s.ConnectTimeout <= 0 {
		return errors.New(errors.ErrConfig,
			"ssh.connect_timeout must be positive",
			"Try ssh.connect_timeout: 10s")
	}
	return nil
}

func validateHistory(h HistoryConfig) error {
	switch h.Retention {
	case "age":
		if h.MaxAge <= 0 {
			return errors.New(errors.ErrConfig,
				"history.max_age must be positive with age retention",
				"Try history.max_age: 24h")
		}
	case "count":
		if h.MaxEntries < 1 {
			return errors.New(errors.ErrConfig,
				"history.max_entries must be at least 1 with count retention",
				"Try history.max_entries: 100")
		}
	default:
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown history.retention %q", h.Retention),
			"Use 'age' or 'count'")
	}

	if h.DownsampleThreshold < 2 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("history.downsample_threshold must be at least 2, got %d", h.DownsampleThreshold),
			"Try history.downsample_threshold: 100")
	}
	return nil
}

func validateStore(s StoreConfig) error {
	switch s.Driver {
	case "file", "sqlite":
	default:
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown store.driver %q", s.Driver),
			"Use 'file' or 'sqlite'")
	}
	if s.Path == "" {
		return errors.New(errors.ErrConfig,
			"store.path can't be empty",
			"Try store.path: data/hosts.json")
	}
	return nil
}

func validateLog(l LogConfig) error {
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown log.level %q", l.Level),
			"Use debug, info, warn, or error")
	}
	switch l.Format {
	case "text", "json":
	default:
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown log.format %q", l.Format),
			"Use 'text' or 'json'")
	}
	return nil
}
