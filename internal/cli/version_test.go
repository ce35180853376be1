package cli

import (
	"encoding/json"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func saveVersion(t *testing.T) {
	t.Helper()
	v, c, d := version, commit, date
	t.Cleanup(func() { version, commit, date = v, c, d })
}

func TestVersionOutput(t *testing.T) {
	saveVersion(t)
	SetVersionInfo("1.2.3", "abc1234", "2026-01-08T12:00:00Z")

	out, _, err := runCLI(t, "version")
	require.NoError(t, err)

	assert.Contains(t, out, "sentinel v1.2.3", "should show version with v prefix")
	assert.Contains(t, out, "commit: abc1234")
	assert.Contains(t, out, "built: 2026-01-08T12:00:00Z")
	assert.Contains(t, out, "go: "+runtime.Version())
	assert.Contains(t, out, "os/arch: "+runtime.GOOS+"/"+runtime.GOARCH)
}

func TestVersionOutputShort(t *testing.T) {
	saveVersion(t)
	SetVersionInfo("1.2.3", "abc1234", "unknown")

	out, _, err := runCLI(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", strings.TrimSpace(out))
}

func TestVersionOutputDev(t *testing.T) {
	saveVersion(t)
	SetVersionInfo("dev", "none", "unknown")

	out, _, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "sentinel dev", "dev version should not have v prefix")
}

func TestVersionJSON(t *testing.T) {
	saveVersion(t)
	SetVersionInfo("2.0.0", "def5678", "2026-06-15T10:00:00Z")

	out, _, err := runCLI(t, "version", "--json")
	require.NoError(t, err)

	var env struct {
		Success bool              `json:"success"`
		Data    map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &env))
	assert.True(t, env.Success)
	assert.Equal(t, "2.0.0", env.Data["version"])
	assert.Equal(t, "def5678", env.Data["commit"])
}

func TestFormatVersion(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty string", input: "", want: ""},
		{name: "dev version", input: "dev", want: "dev"},
		{name: "version without prefix", input: "1.2.3", want: "v1.2.3"},
		{name: "version with prefix", input: "v1.2.3", want: "v1.2.3"},
		{name: "version with prerelease", input: "1.2.3-beta.1", want: "v1.2.3-beta.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatVersion(tt.input))
		})
	}
}

func TestSetVersionInfo(t *testing.T) {
	saveVersion(t)

	SetVersionInfo("2.0.0", "def5678", "2026-06-15T10:00:00Z")

	assert.Equal(t, "2.0.0", GetVersion())
	assert.Equal(t, "def5678", commit)
	assert.Equal(t, "2026-06-15T10:00:00Z", date)
}
