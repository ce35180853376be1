package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rileyhilliard/sentinel/internal/errors"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the default config file name.
	ConfigFileName = "sentinel.yaml"
	// GlobalConfigDir is the directory for global config.
	GlobalConfigDir = ".config/sentinel"
	// GlobalConfigFile is the global config file name.
	GlobalConfigFile = "config.yaml"
	// EnvPrefix prefixes every environment override, e.g. SENTINEL_INTERVAL.
	EnvPrefix = "SENTINEL"
)

// Load reads config from the specified path. An empty path loads defaults
// plus environment overrides.
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if os.IsNotExist(err) {
				return nil, errors.WrapWithCode(err, errors.ErrConfig,
					"Config file not found",
					"Create "+ConfigFileName+" or specify one with --config")
			}
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to read config file",
				"Check the file exists and is valid YAML")
		}
	}

	return parseConfig(v, path)
}

// Find locates the config file using the search order:
// 1. Explicit path (from --config flag)
// 2. sentinel.yaml in current directory
// 3. ~/.config/sentinel/config.yaml
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot determine current directory",
			"Check directory permissions")
	}

	localConfig := filepath.Join(cwd, ConfigFileName)
	if _, err := os.Stat(localConfig); err == nil {
		return localConfig, nil
	}

	if home, _ := os.UserHomeDir(); home != "" {
		globalConfig := filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
		if _, err := os.Stat(globalConfig); err == nil {
			return globalConfig, nil
		}
	}

	return "", nil
}

// LoadOrDefault finds and loads a config, falling back to defaults when
// no file exists.
func LoadOrDefault(explicit string) (*Config, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, err
	}
	return Load(path)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	// Container deployments commonly pass the key as plain SSH_PRIVATE_KEY.
	_ = v.BindEnv("ssh.private_key", EnvPrefix+"_SSH_PRIVATE_KEY", "SSH_PRIVATE_KEY")
	return v
}

// parseConfig converts viper config to our Config struct with defaults merged in.
func parseConfig(v *viper.Viper, path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		where := "the environment"
		if path != "" {
			where = path
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax in "+where)
	}

	cfg.Store.Path = ExpandTilde(cfg.Store.Path)
	cfg.SSH.PrivateKeyFile = ExpandTilde(cfg.SSH.PrivateKeyFile)
	cfg.SSH.KnownHosts = ExpandTilde(cfg.SSH.KnownHosts)
	cfg.SSH.ConfigFile = ExpandTilde(cfg.SSH.ConfigFile)

	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("interval", d.Interval)
	v.SetDefault("collect_timeout", d.CollectTimeout)
	v.SetDefault("max_concurrent", d.MaxConcurrent)
	v.SetDefault("local_address", d.LocalAddress)

	v.SetDefault("ssh.user", d.SSH.User)
	v.SetDefault("ssh.private_key", "")
	v.SetDefault("ssh.private_key_file", "")
	v.SetDefault("ssh.connect_timeout", d.SSH.ConnectTimeout)
	v.SetDefault("ssh.default_port", d.SSH.DefaultPort)
	v.SetDefault("ssh.known_hosts", "")
	v.SetDefault("ssh.config_file", "")

	v.SetDefault("local.shell", "")
	v.SetDefault("local.docker_api", false)
	v.SetDefault("local.docker_host", "")

	v.SetDefault("history.retention", d.History.Retention)
	v.SetDefault("history.max_age", d.History.MaxAge)
	v.SetDefault("history.max_entries", d.History.MaxEntries)
	v.SetDefault("history.downsample_threshold", d.History.DownsampleThreshold)

	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.path", d.Store.Path)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("commands.containers", d.Commands.Containers)
	v.SetDefault("commands.stats", d.Commands.Stats)
	v.SetDefault("commands.cpu", d.Commands.CPU)
	v.SetDefault("commands.cpu_reports_idle", d.Commands.CPUReportsIdle)
	v.SetDefault("commands.memory", d.Commands.Memory)
	v.SetDefault("commands.disk", d.Commands.Disk)
}

// ExpandTilde replaces ~ or ~/path with the user's home directory.
func ExpandTilde(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}

	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}

	return path
}
