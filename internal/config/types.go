package config

import (
	"os"
	"strings"
	"time"

	"github.com/rileyhilliard/sentinel/internal/collector"
	"github.com/rileyhilliard/sentinel/internal/errors"
)

// DefaultLocalAddress is the reserved address that means "poll this machine
// directly" instead of opening an SSH session.
const DefaultLocalAddress = "0.0.0.1"

// Config represents the complete sentinel.yaml configuration file.
type Config struct {
	// Interval between fleet refreshes.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`

	// CollectTimeout bounds a single host poll, all five commands included.
	CollectTimeout time.Duration `yaml:"collect_timeout" mapstructure:"collect_timeout"`

	// MaxConcurrent caps how many hosts are polled at once.
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`

	// LocalAddress is the sentinel address routed to the local executor.
	LocalAddress string `yaml:"local_address" mapstructure:"local_address"`

	SSH      SSHConfig      `yaml:"ssh" mapstructure:"ssh"`
	Local    LocalConfig    `yaml:"local" mapstructure:"local"`
	History  HistoryConfig  `yaml:"history" mapstructure:"history"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Commands CommandsConfig `yaml:"commands" mapstructure:"commands"`
}

// SSHConfig holds the connection settings shared by every remote host.
type SSHConfig struct {
	// User is the account every remote command runs as.
	User string `yaml:"user" mapstructure:"user"`

	// PrivateKey is PEM key material. Literal "\n" sequences are accepted
	// so the key can live in a single-line environment variable.
	PrivateKey string `yaml:"private_key" mapstructure:"private_key"`

	// PrivateKeyFile is read when PrivateKey is empty.
	PrivateKeyFile string `yaml:"private_key_file" mapstructure:"private_key_file"`

	ConnectTimeout time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout"`
	DefaultPort    int           `yaml:"default_port" mapstructure:"default_port"`

	// KnownHosts enables host key verification when set.
	KnownHosts string `yaml:"known_hosts" mapstructure:"known_hosts"`

	// ConfigFile is the ssh_config used to resolve host aliases.
	ConfigFile string `yaml:"config_file" mapstructure:"config_file"`
}

// LocalConfig controls how the sentinel address is polled.
type LocalConfig struct {
	// Shell runs local commands. Empty means $SHELL, then /bin/sh.
	Shell string `yaml:"shell" mapstructure:"shell"`

	// DockerAPI answers container commands from the Engine API instead of the docker CLI.
	DockerAPI bool `yaml:"docker_api" mapstructure:"docker_api"`

	// DockerHost overrides DOCKER_HOST for the Engine API client.
	DockerHost string `yaml:"docker_host" mapstructure:"docker_host"`
}

// HistoryConfig controls per-host metric retention and chart reduction.
type HistoryConfig struct {
	// Retention is "age" or "count".
	Retention           string        `yaml:"retention" mapstructure:"retention"`
	MaxAge              time.Duration `yaml:"max_age" mapstructure:"max_age"`
	MaxEntries          int           `yaml:"max_entries" mapstructure:"max_entries"`
	DownsampleThreshold int           `yaml:"downsample_threshold" mapstructure:"downsample_threshold"`
}

// StoreConfig selects the host store backend.
type StoreConfig struct {
	// Driver is "file" or "sqlite".
	Driver string `yaml:"driver" mapstructure:"driver"`
	Path   string `yaml:"path" mapstructure:"path"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// CommandsConfig overrides the shell commands issued on each poll.
type CommandsConfig struct {
	Containers     string `yaml:"containers" mapstructure:"containers"`
	Stats          string `yaml:"stats" mapstructure:"stats"`
	CPU            string `yaml:"cpu" mapstructure:"cpu"`
	CPUReportsIdle bool   `yaml:"cpu_reports_idle" mapstructure:"cpu_reports_idle"`
	Memory         string `yaml:"memory" mapstructure:"memory"`
	Disk           string `yaml:"disk" mapstructure:"disk"`
}

// Collector converts the configured commands to the collector's command set.
func (c CommandsConfig) Collector() collector.Commands {
	return collector.Commands{
		Containers:     c.Containers,
		Stats:          c.Stats,
		CPU:            c.CPU,
		CPUReportsIdle: c.CPUReportsIdle,
		Memory:         c.Memory,
		Disk:           c.Disk,
	}
}

// KeyMaterial returns the configured private key bytes, or nil when no key
// is configured. A missing key is not an error here: remote hosts simply
// report unreachable.
func (s SSHConfig) KeyMaterial() ([]byte, error) {
	if key := strings.TrimSpace(s.PrivateKey); key != "" {
		return []byte(strings.ReplaceAll(key, `\n`, "\n") + "\n"), nil
	}
	if s.PrivateKeyFile == "" {
		return nil, nil
	}
	data, err := os.ReadFile(ExpandTilde(s.PrivateKeyFile))
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Can't read SSH private key file "+s.PrivateKeyFile,
			"Check ssh.private_key_file points at a readable key")
	}
	return data, nil
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	cmds := collector.DefaultCommands()
	return &Config{
		Interval:       5 * time.Second,
		CollectTimeout: 30 * time.Second,
		MaxConcurrent:  8,
		LocalAddress:   DefaultLocalAddress,
		SSH: SSHConfig{
			User:           "root",
			ConnectTimeout: 10 * time.Second,
			DefaultPort:    22,
		},
		History: HistoryConfig{
			Retention:           "age",
			MaxAge:              24 * time.Hour,
			MaxEntries:          100,
			DownsampleThreshold: 100,
		},
		Store: StoreConfig{
			Driver: "file",
			Path:   "data/hosts.json",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Commands: CommandsConfig{
			Containers:     cmds.Containers,
			Stats:          cmds.Stats,
			CPU:            cmds.CPU,
			CPUReportsIdle: cmds.CPUReportsIdle,
			Memory:         cmds.Memory,
			Disk:           cmds.Disk,
		},
	}
}
