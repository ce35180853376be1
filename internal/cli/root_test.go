package cli

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rileyhilliard/sentinel/internal/config"
	"github.com/rileyhilliard/sentinel/internal/errors"
	"github.com/rileyhilliard/sentinel/internal/fleet"
	"github.com/rileyhilliard/sentinel/internal/monitor"
	"github.com/rileyhilliard/sentinel/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// runCLI executes the root command with fresh flag values and returns what
// it wrote to stdout and stderr.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	configFlag = ""
	machineMode = false
	noColorFlag = false
	verboseFlag = false
	hostAddPort = 0
	serveIntervalFlag = 0
	statsMetricFlag = "cpu"
	statsWindowFlag = time.Hour
	statsPointsFlag = 0
	versionShort = false

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// writeTestConfig writes a config whose commands print canned output, so the
// local host can be polled without docker.
func writeTestConfig(t *testing.T, driver, storeFile string) string {
	t.Helper()
	dir := t.TempDir()

	doc := map[string]interface{}{
		"local_address": config.DefaultLocalAddress,
		"local":         map[string]interface{}{"shell": "/bin/sh"},
		"store": map[string]interface{}{
			"driver": driver,
			"path":   filepath.Join(dir, storeFile),
		},
		"log": map[string]interface{}{"level": "debug"},
		"commands": map[string]interface{}{
			"containers":       `echo '{"ID":"8f1d2c3b4a59e0aa","Names":"api","Image":"api:1.4","State":"running","Status":"Up 2 hours","CreatedAt":"2026-02-27 09:15:42 +0000 UTC"}'`,
			"stats":            `echo '{"ID":"8f1d2c3b4a59","Name":"api","CPUPerc":"12.34%","MemPerc":"3.21%"}'`,
			"cpu":              "echo 12.5",
			"cpu_reports_idle": false,
			"memory":           "echo 8388608 2097152",
			"disk":             "echo 100G 40G 40%",
		},
	}
	data, err := yaml.Marshal(doc)
	require.NoError(t, err)

	path := filepath.Join(dir, "sentinel.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

type envelope[T any] struct {
	Success bool       `json:"success"`
	Data    T          `json:"data"`
	Error   *JSONError `json:"error"`
}

func decode[T any](t *testing.T, out string) T {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal([]byte(out), &env), out)
	require.True(t, env.Success, out)
	return env.Data
}

func TestCLI_HostLifecycle(t *testing.T) {
	backends := []struct {
		driver string
		file   string
	}{
		{store.DriverFile, "hosts.json"},
		{store.DriverSQLite, "hosts.db"},
	}

	for _, b := range backends {
		t.Run(b.driver, func(t *testing.T) {
			cfg := writeTestConfig(t, b.driver, b.file)

			out, _, err := runCLI(t, "host", "add", "local", config.DefaultLocalAddress, "--config", cfg)
			require.NoError(t, err)
			assert.Contains(t, out, "Added host 'local'")

			out, _, err = runCLI(t, "host", "list", "--json", "--config", cfg)
			require.NoError(t, err)
			hosts := decode[[]monitor.Host](t, out)
			require.Len(t, hosts, 1)
			id := hosts[0].ID
			assert.Equal(t, "local", hosts[0].Name)
			assert.Equal(t, monitor.StatusOnline, hosts[0].Status)
			assert.Empty(t, hosts[0].History)

			out, _, err = runCLI(t, "poll", "--json", "--config", cfg)
			require.NoError(t, err)
			polled := decode[struct {
				Polled  int            `json:"polled"`
				Online  int            `json:"online"`
				Offline int            `json:"offline"`
				Hosts   []monitor.Host `json:"hosts"`
			}](t, out)
			assert.Equal(t, 1, polled.Polled)
			assert.Equal(t, 1, polled.Online)
			require.Len(t, polled.Hosts, 1)

			h := polled.Hosts[0]
			require.NotNil(t, h.CPUUsage)
			assert.Equal(t, 12.5, *h.CPUUsage)
			require.NotNil(t, h.MemoryUsage)
			assert.Equal(t, 25.0, *h.MemoryUsage)
			require.NotNil(t, h.DiskUsage)
			assert.Equal(t, 40.0, *h.DiskUsage)
			require.Len(t, h.Containers, 1)
			assert.Equal(t, "api", h.Containers[0].Name)
			assert.Equal(t, monitor.ContainerRunning, h.Containers[0].Status)
			require.NotNil(t, h.Containers[0].CPUUsage)
			assert.Equal(t, 12.34, *h.Containers[0].CPUUsage)
			assert.Len(t, h.History, 1)

			// A second process sees what the poll saved.
			out, _, err = runCLI(t, "status", "local", "--config", cfg)
			require.NoError(t, err)
			assert.Contains(t, out, id)
			assert.Contains(t, out, "api")
			assert.Contains(t, out, "history  1 samples")

			out, _, err = runCLI(t, "stats", id[:8], "--metric", "memory", "--json", "--config", cfg)
			require.NoError(t, err)
			st := decode[fleet.Stats](t, out)
			assert.Equal(t, 1, st.Samples)
			require.Len(t, st.Summaries, 2)
			assert.Equal(t, 25.0, st.Summaries[0].Current)
			assert.Equal(t, 3.21, st.Summaries[1].Current)

			out, _, err = runCLI(t, "stats", "local", "--config", cfg)
			require.NoError(t, err)
			assert.Contains(t, out, "ENTITY")
			assert.Contains(t, out, "12.5%")

			out, _, err = runCLI(t, "host", "rm", "local", "--config", cfg)
			require.NoError(t, err)
			assert.Contains(t, out, "Removed host 'local'")

			_, _, err = runCLI(t, "status", id, "--config", cfg)
			assert.True(t, stderrors.Is(err, store.ErrNotFound))

			out, _, err = runCLI(t, "host", "list", "--config", cfg)
			require.NoError(t, err)
			assert.Contains(t, out, "No hosts configured")
		})
	}
}

func TestCLI_PollMarksUnreachableHostOffline(t *testing.T) {
	cfg := writeTestConfig(t, store.DriverFile, "hosts.json")

	_, _, err := runCLI(t, "host", "add", "dead", "127.0.0.1", "--port", "1", "--config", cfg)
	require.NoError(t, err)

	out, stderr, err := runCLI(t, "poll", "dead", "--json", "--config", cfg)
	require.NoError(t, err)

	h := decode[monitor.Host](t, out)
	assert.Equal(t, monitor.StatusOffline, h.Status)
	assert.Empty(t, h.Containers)
	assert.Nil(t, h.CPUUsage)
	assert.NotEmpty(t, h.LastError)
	assert.Contains(t, stderr, "no SSH private key configured")
}

func TestCLI_Errors(t *testing.T) {
	cfg := writeTestConfig(t, store.DriverFile, "hosts.json")

	t.Run("unknown metric", func(t *testing.T) {
		_, _, err := runCLI(t, "stats", "anything", "--metric", "disk", "--config", cfg)
		assert.True(t, errors.IsCode(err, errors.ErrConfig))
	})

	t.Run("unknown host", func(t *testing.T) {
		_, _, err := runCLI(t, "poll", "nope", "--config", cfg)
		require.Error(t, err)
		assert.Equal(t, ErrCodeHostNotFound, ErrorToJSON(err).Code)
	})

	t.Run("ambiguous prefix", func(t *testing.T) {
		_, _, err := runCLI(t, "host", "add", "a", "10.0.0.1", "--config", cfg)
		require.NoError(t, err)
		_, _, err = runCLI(t, "host", "add", "b", "10.0.0.2", "--config", cfg)
		require.NoError(t, err)

		_, _, err = runCLI(t, "host", "remove", "host-", "--config", cfg)
		assert.True(t, errors.IsCode(err, errors.ErrConfig))
	})

	t.Run("invalid host", func(t *testing.T) {
		_, _, err := runCLI(t, "host", "add", "x", "10.0.0.3", "--port", "70000", "--config", cfg)
		assert.True(t, errors.IsCode(err, errors.ErrConfig))
	})

	t.Run("missing config file", func(t *testing.T) {
		_, _, err := runCLI(t, "status", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
		assert.Equal(t, ErrCodeConfigNotFound, ErrorToJSON(err).Code)
	})
}
