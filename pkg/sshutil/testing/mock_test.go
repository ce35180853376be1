package testing

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockClient_Responses(t *testing.T) {
	m := NewMockClient("10.0.0.5:22")
	m.SetCommandResponse("free -k", CommandResponse{Stdout: []byte("16028592 5592348\n")})
	m.SetCommandResponse("^docker ", CommandResponse{Stderr: []byte("denied"), ExitCode: 1})

	stdout, _, code, err := m.Exec(context.Background(), "free -k")
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, "16028592 5592348\n", string(stdout))

	_, stderr, code, err := m.Exec(context.Background(), "docker ps")
	require.NoError(t, err)
	assert.Equal(t, 1, code)
	assert.Equal(t, "denied", string(stderr))

	stdout, _, code, err = m.Exec(context.Background(), "uptime")
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Empty(t, stdout)

	assert.Equal(t, []string{"free -k", "docker ps", "uptime"}, m.Executed())
	assert.Equal(t, "10.0.0.5:22", m.GetAddress())
}

func TestMockClient_CloseAndKill(t *testing.T) {
	m := NewMockClient("h:22")

	_, _, err := m.SendRequest("keepalive@openssh.com", true, nil)
	require.NoError(t, err)

	m.Kill()
	_, _, err = m.SendRequest("keepalive@openssh.com", true, nil)
	assert.Error(t, err)

	require.NoError(t, m.Close())
	assert.True(t, m.Closed())
	_, _, _, err = m.Exec(context.Background(), "true")
	assert.Error(t, err)
}

func TestMockClient_CancelledContext(t *testing.T) {
	m := NewMockClient("h:22")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, code, err := m.Exec(ctx, "true")
	assert.Error(t, err)
	assert.Equal(t, -1, code)
	assert.Empty(t, m.Executed())
}

func TestServer_Starts(t *testing.T) {
	srv, err := NewServer("root", func(cmd string) (string, string, int) {
		return strings.ToUpper(cmd), "", 0
	})
	require.NoError(t, err)
	defer srv.Close()

	assert.NotEmpty(t, srv.ClientKey)
	assert.NotNil(t, srv.HostKey)
	assert.NotZero(t, srv.Port)
	assert.Contains(t, srv.Addr(), "127.0.0.1:")
	assert.Empty(t, srv.Commands())
}
