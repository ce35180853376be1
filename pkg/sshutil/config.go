package sshutil

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/kevinburke/ssh_config"
)

// matchWarningOnce ensures the SSH config Match directive warning is only shown once per process.
var matchWarningOnce sync.Once

// SSHHostEntry is the subset of an ssh_config Host block sentinel uses.
// User and IdentityFile are not read: every host shares the
// configured user and key.
type SSHHostEntry struct {
	Alias    string
	Hostname string
	Port     string
}

// LookupHost returns the ssh_config entry for alias, or ok=false when the
// config doesn't mention it. An empty configPath means ~/.ssh/config.
func LookupHost(configPath, alias string) (SSHHostEntry, bool) {
	if configPath == "" {
		configPath = filepath.Join(homeDir(), ".ssh", "config")
	}

	content, matchLine, err := preprocessSSHConfig(configPath)
	if err != nil {
		return SSHHostEntry{}, false
	}

	cfg, err := ssh_config.Decode(bytes.NewReader(content))
	if err != nil {
		return SSHHostEntry{}, false
	}

	entry := SSHHostEntry{Alias: alias}
	found := false

	if hostname, _ := cfg.Get(alias, "HostName"); hostname != "" {
		entry.Hostname = hostname
		found = true
	}
	if port, _ := cfg.Get(alias, "Port"); port != "" {
		entry.Port = port
		found = true
	}

	// Only warn about Match block if host wasn't found - it might be defined after the Match
	if matchLine > 0 && !found {
		matchWarningOnce.Do(func() {
			emitWarning(fmt.Sprintf(
				"Host '%s' not found in SSH config (config has a Match block at line %d that may hide later entries)",
				alias, matchLine))
		})
	}

	return entry, found
}

// ResolveAddress turns a host record's address and port into a dialable
// host:port. An ssh_config alias contributes its HostName and Port. An
// explicit port on the record wins over the config; defaultPort applies
// when neither names one.
func ResolveAddress(configPath, host string, port, defaultPort int) string {
	hostname := host
	resolvedPort := port

	if entry, ok := LookupHost(configPath, host); ok {
		if entry.Hostname != "" {
			hostname = entry.Hostname
		}
		if resolvedPort == 0 && entry.Port != "" {
			if p, err := strconv.Atoi(entry.Port); err == nil {
				resolvedPort = p
			}
		}
	}

	if resolvedPort == 0 {
		resolvedPort = defaultPort
	}
	if resolvedPort == 0 {
		resolvedPort = 22
	}

	return net.JoinHostPort(hostname, strconv.Itoa(resolvedPort))
}

// preprocessSSHConfig reads the SSH config and returns content up to the first Match directive.
// The ssh_config library doesn't understand Match, so anything after it is dropped.
// Also returns the line number where Match was found (0 if not found).
func preprocessSSHConfig(configPath string) ([]byte, int, error) {
	content, err := os.ReadFile(configPath)
	if err != nil {
		return nil, 0, err
	}

	lines := strings.Split(string(content), "\n")
	var result []string
	matchLine := 0

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(strings.ToLower(trimmed), "match ") {
			matchLine = i + 1
			break
		}
		result = append(result, line)
	}

	return []byte(strings.Join(result, "\n")), matchLine, nil
}
