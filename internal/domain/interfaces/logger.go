// Package interfaces defines core domain contracts.
//
//nolint:revive // Package name 'interfaces' is intentional for domain layer
package interfaces

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Logger defines the interface for structured logging
type Logger interface {
	// Debug logs debug-level messages
	Debug(msg string, fields ...Field)

	// Info logs informational messages
	Info(msg string, fields ...Field)

	// Warn logs warning messages
	Warn(msg string, fields ...Field)

	// Error logs error messages
	Error(msg string, fields ...Field)
}

// Field represents a structured log field
type Field struct {
	Key   string
	Value interface{}
}

// F creates a new Field (convenience function)
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Level is a logging threshold
type Level int

// Levels in increasing severity
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a config string to a Level, defaulting to info
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// NoOpLogger is a logger that does nothing (useful for tests)
type NoOpLogger struct{}

// Debug does nothing (no-op implementation)
func (n *NoOpLogger) Debug(_ string, _ ...Field) {}

// Info does nothing (no-op implementation)
func (n *NoOpLogger) Info(_ string, _ ...Field) {}

// Warn does nothing (no-op implementation)
func (n *NoOpLogger) Warn(_ string, _ ...Field) {}

// Error does nothing (no-op implementation)
func (n *NoOpLogger) Error(_ string, _ ...Field) {}

// WriterLogger writes logfmt-style lines to an io.Writer.
// Safe for concurrent use by scan workers.
type WriterLogger struct {
	mu    sync.Mutex
	out   io.Writer
	level Level
	now   func() time.Time
}

// NewWriterLogger creates a logger emitting records at or above level
func NewWriterLogger(out io.Writer, level Level) *WriterLogger {
	return &WriterLogger{out: out, level: level, now: time.Now}
}

// Debug logs debug-level messages
func (w *WriterLogger) Debug(msg string, fields ...Field) {
	w.log(LevelDebug, msg, fields)
}

// Info logs informational messages
func (w *WriterLogger) Info(msg string, fields ...Field) {
	w.log(LevelInfo, msg, fields)
}

// Warn logs warning messages
func (w *WriterLogger) Warn(msg string, fields ...Field) {
	w.log(LevelWarn, msg, fields)
}

// Error logs error messages
func (w *WriterLogger) Error(msg string, fields ...Field) {
	w.log(LevelError, msg, fields)
}

func (w *WriterLogger) log(level Level, msg string, fields []Field) {
	if level < w.level {
		return
	}

	var b strings.Builder
	b.WriteString("time=")
	b.WriteString(w.now().UTC().Format(time.RFC3339))
	b.WriteString(" level=")
	b.WriteString(level.String())
	b.WriteString(" msg=")
	b.WriteString(quote(msg))
	for _, f := range fields {
		b.WriteByte(' ')
		b.WriteString(f.Key)
		b.WriteByte('=')
		b.WriteString(quote(fmt.Sprint(f.Value)))
	}
	b.WriteByte('\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	//nolint:errcheck // Logging is best-effort
	io.WriteString(w.out, b.String())
}

func quote(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\"=") {
		return fmt.Sprintf("%q", s)
	}
	return s
}
