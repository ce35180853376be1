package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_LevelFiltering(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		expectLog bool
	}{
		{name: "debug level logs debug", level: "debug", expectLog: true},
		{name: "info level hides debug", level: "info", expectLog: false},
		{name: "unknown level defaults to info", level: "loud", expectLog: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := New(Options{Level: tt.level, Output: &buf})

			l.Debug("polling %s", "web-1")

			if tt.expectLog {
				assert.Contains(t, buf.String(), "polling web-1")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestNew_JSONFormatWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := With(New(Options{Level: "info", Format: "json", Output: &buf}), "fleet")

	l.Warn("host %s offline", "db-1")

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "host db-1 offline", rec["msg"])
	assert.Equal(t, "fleet", rec["component"])
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Output: &buf})

	l.Error("store write failed: %v", "disk full")

	out := buf.String()
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "store write failed: disk full")
}

func TestEnvLogger_Debug(t *testing.T) {
	t.Setenv("SENTINEL_DEBUG", "1")
	l := NewEnvLogger("collector")
	require.NotNil(t, l)

	sl, ok := l.(*slogLogger)
	require.True(t, ok)
	assert.True(t, sl.l.Enabled(t.Context(), ParseLevel("debug")))
}

func TestNoop(t *testing.T) {
	l := Noop()
	assert.NotPanics(t, func() {
		l.Debug("x")
		l.Info("x")
		l.Warn("x")
		l.Error("x")
	})
}

func TestBufferLogger(t *testing.T) {
	buf := NewBufferLogger()

	buf.Info("started %d hosts", 3)
	buf.Warn("slow host")

	msgs := buf.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "info", msgs[0].Level)
	assert.Equal(t, "started 3 hosts", msgs[0].Message)
	assert.True(t, buf.HasLevel("warn"))
	assert.False(t, buf.HasLevel("error"))
	assert.True(t, buf.Contains("warn", "slow"))

	buf.Clear()
	assert.Empty(t, buf.Messages())
}

func TestBufferLogger_WithSharesMessages(t *testing.T) {
	buf := NewBufferLogger()
	child := With(buf, "parsers")

	child.Debug("skipped line %d", 2)

	msgs := buf.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "parsers", msgs[0].Component)
}

func TestBufferLogger_Concurrent(t *testing.T) {
	buf := NewBufferLogger()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			buf.Info("msg %d", i)
		}(i)
	}
	wg.Wait()

	assert.Len(t, buf.Messages(), 50)
}

func TestWith_UnknownLoggerUnchanged(t *testing.T) {
	l := Noop()
	assert.Equal(t, l, With(l, "x"))
}

func TestDefault(t *testing.T) {
	orig := Default()
	defer SetDefault(orig)

	buf := NewBufferLogger()
	SetDefault(buf)
	Default().Info("hello")

	assert.True(t, strings.Contains(buf.Messages()[0].Message, "hello"))
}
