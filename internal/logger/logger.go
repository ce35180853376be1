// Package logger provides a simple logging interface for sentinel components.
// It allows packages to log debug, info, warn, and error messages without
// being coupled to a specific logging implementation.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Logger defines the interface for logging operations.
// All methods accept a format string and arguments, similar to fmt.Printf.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// Options configures a slog-backed logger.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // text or json
	Output io.Writer
}

// slogLogger adapts the printf-style Logger interface onto log/slog.
type slogLogger struct {
	l *slog.Logger
}

// New creates a logger writing through log/slog.
func New(opts Options) Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}

	var h slog.Handler
	if strings.EqualFold(opts.Format, "json") {
		h = slog.NewJSONHandler(out, handlerOpts)
	} else {
		h = slog.NewTextHandler(out, handlerOpts)
	}
	return &slogLogger{l: slog.New(h)}
}

// NewEnvLogger creates a text logger that respects the SENTINEL_DEBUG environment variable.
// The component is attached to every record.
func NewEnvLogger(component string) Logger {
	level := "info"
	if os.Getenv("SENTINEL_DEBUG") != "" {
		level = "debug"
	}
	return With(New(Options{Level: level}), component)
}

// ParseLevel maps a level name to a slog level. Unknown names mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (s *slogLogger) log(level slog.Level, format string, args ...interface{}) {
	if !s.l.Enabled(context.Background(), level) {
		return
	}
	s.l.Log(context.Background(), level, fmt.Sprintf(format, args...))
}

func (s *slogLogger) Debug(format string, args ...interface{}) {
	s.log(slog.LevelDebug, format, args...)
}

func (s *slogLogger) Info(format string, args ...interface{}) {
	s.log(slog.LevelInfo, format, args...)
}

func (s *slogLogger) Warn(format string, args ...interface{}) {
	s.log(slog.LevelWarn, format, args...)
}

func (s *slogLogger) Error(format string, args ...interface{}) {
	s.log(slog.LevelError, format, args...)
}

func (s *slogLogger) with(component string) Logger {
	return &slogLogger{l: s.l.With("component", component)}
}

// With returns a logger tagged with the given component. Loggers that
// don't support tagging are returned unchanged.
func With(l Logger, component string) Logger {
	if component == "" {
		return l
	}
	switch v := l.(type) {
	case *slogLogger:
		return v.with(component)
	case *BufferLogger:
		return &BufferLogger{shared: v.root(), component: component}
	default:
		return l
	}
}

// noopLogger implements Logger but discards all messages.
// Useful for testing or when logging is not desired.
type noopLogger struct{}

// Noop returns a logger that discards all messages.
func Noop() Logger {
	return &noopLogger{}
}

func (l *noopLogger) Debug(format string, args ...interface{}) {}
func (l *noopLogger) Info(format string, args ...interface{})  {}
func (l *noopLogger) Warn(format string, args ...interface{})  {}
func (l *noopLogger) Error(format string, args ...interface{}) {}

// LogMessage represents a captured log message.
type LogMessage struct {
	Level     string
	Component string
	Message   string
}

// BufferLogger captures log messages for testing. Safe for concurrent use,
// since the collector and fleet log from many goroutines.
type BufferLogger struct {
	mu        sync.Mutex
	messages  []LogMessage
	shared    *BufferLogger
	component string
}

// NewBufferLogger creates a logger that captures messages for inspection.
func NewBufferLogger() *BufferLogger {
	return &BufferLogger{messages: make([]LogMessage, 0)}
}

func (l *BufferLogger) root() *BufferLogger {
	if l.shared != nil {
		return l.shared
	}
	return l
}

func (l *BufferLogger) add(level, format string, args ...interface{}) {
	r := l.root()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, LogMessage{Level: level, Component: l.component, Message: fmt.Sprintf(format, args...)})
}

func (l *BufferLogger) Debug(format string, args ...interface{}) { l.add("debug", format, args...) }
func (l *BufferLogger) Info(format string, args ...interface{})  { l.add("info", format, args...) }
func (l *BufferLogger) Warn(format string, args ...interface{})  { l.add("warn", format, args...) }
func (l *BufferLogger) Error(format string, args ...interface{}) { l.add("error", format, args...) }

// Messages returns a copy of everything captured so far.
func (l *BufferLogger) Messages() []LogMessage {
	r := l.root()
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]LogMessage, len(r.messages))
	copy(out, r.messages)
	return out
}

// HasLevel returns true if any message was logged at the given level.
func (l *BufferLogger) HasLevel(level string) bool {
	for _, m := range l.Messages() {
		if m.Level == level {
			return true
		}
	}
	return false
}

// Contains reports whether any message at the given level contains substr.
func (l *BufferLogger) Contains(level, substr string) bool {
	for _, m := range l.Messages() {
		if m.Level == level && strings.Contains(m.Message, substr) {
			return true
		}
	}
	return false
}

// Clear removes all captured messages.
func (l *BufferLogger) Clear() {
	r := l.root()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = r.messages[:0]
}

var (
	defaultMu     sync.RWMutex
	defaultLogger = NewEnvLogger("")
)

// Default returns the package-level default logger.
func Default() Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefault sets the default logger for the package.
func SetDefault(l Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}
