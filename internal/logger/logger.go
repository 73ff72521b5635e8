// Package logger provides leveled logging with support for debug, info, warn, and error levels.
// Messages are printf-formatted and emitted through log/slog with either a text
// or a JSON handler, selected by the configured format.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"
)

// Level represents a logging level
type Level int

const (
	// DebugLevel logs are typically voluminous, and are usually disabled in production.
	DebugLevel Level = iota
	// InfoLevel is the default logging priority.
	InfoLevel
	// WarnLevel logs are more important than Info, but don't need individual human review.
	WarnLevel
	// ErrorLevel logs are high-priority. If an application is running smoothly, it shouldn't generate any error-level logs.
	ErrorLevel
)

func (l Level) slogLevel() slog.Level {
	switch l {
	case DebugLevel:
		return slog.LevelDebug
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel maps a level name to a Level, defaulting to InfoLevel.
func ParseLevel(level string) Level {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

var (
	mu            sync.RWMutex
	defaultLogger *slog.Logger
	output        io.Writer = os.Stderr
)

// Init initializes the default logger with the specified level and format
func Init(level string, format string) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = build(output, ParseLevel(level), format)
}

// SetOutput redirects log output, keeping the current level and format.
// Intended for tests and for commands that must keep stdout clean.
func SetOutput(w io.Writer, level string, format string) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	defaultLogger = build(w, ParseLevel(level), format)
}

func build(w io.Writer, l Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: l.slogLevel(), AddSource: strings.ToLower(format) == "text"}
	var h slog.Handler
	if strings.ToLower(format) == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}

// Debug logs a message at DebugLevel
func Debug(format string, args ...interface{}) {
	logf(slog.LevelDebug, format, args...)
}

// Info logs a message at InfoLevel
func Info(format string, args ...interface{}) {
	logf(slog.LevelInfo, format, args...)
}

// Warn logs a message at WarnLevel
func Warn(format string, args ...interface{}) {
	logf(slog.LevelWarn, format, args...)
}

// Error logs a message at ErrorLevel
func Error(format string, args ...interface{}) {
	logf(slog.LevelError, format, args...)
}

// Fatal logs a message at ErrorLevel and exits
func Fatal(format string, args ...interface{}) {
	mu.RLock()
	l := defaultLogger
	mu.RUnlock()
	msg := fmt.Sprintf(format, args...)
	if l != nil {
		l.Error(msg, "fatal", true)
	} else {
		fmt.Fprintln(os.Stderr, "[FATAL] "+msg)
	}
	os.Exit(1)
}

func logf(level slog.Level, format string, args ...interface{}) {
	mu.RLock()
	l := defaultLogger
	mu.RUnlock()
	if l == nil || !l.Enabled(context.Background(), level) {
		return
	}
	// Skip logf and the exported wrapper so the source points at the caller.
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])
	r := slog.NewRecord(time.Now(), level, fmt.Sprintf(format, args...), pcs[0])
	_ = l.Handler().Handle(context.Background(), r)
}
