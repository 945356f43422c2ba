// Package logging provides a structured, subsystem-tagged logger built on
// log/slog. Every component in mcpfed logs through here rather than the
// global slog logger directly, so subsystem names stay consistent
// ("ManagedClient", "Registry", "Poller", ...) and filtering by level is
// centralized in one place.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Level mirrors slog.Level with a small, stable API surface for callers
// that don't want to import log/slog directly.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var defaultLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

// Init (re)configures the process-wide logger. Safe to call once at startup;
// not safe for concurrent use with the logging calls below.
func Init(level Level, output io.Writer) {
	defaultLogger = slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: level.slogLevel()}))
}

func logf(level slog.Level, subsystem string, err error, format string, args ...interface{}) {
	if !defaultLogger.Enabled(context.Background(), level) {
		return
	}
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	attrs := []slog.Attr{slog.String("subsystem", subsystem)}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	defaultLogger.LogAttrs(context.Background(), level, msg, attrs...)
}

// Debug logs a debug-level message tagged with subsystem.
func Debug(subsystem, format string, args ...interface{}) {
	logf(slog.LevelDebug, subsystem, nil, format, args...)
}

// Info logs an info-level message tagged with subsystem.
func Info(subsystem, format string, args ...interface{}) {
	logf(slog.LevelInfo, subsystem, nil, format, args...)
}

// Warn logs a warning-level message tagged with subsystem.
func Warn(subsystem, format string, args ...interface{}) {
	logf(slog.LevelWarn, subsystem, nil, format, args...)
}

// Error logs an error-level message tagged with subsystem, attaching err.
func Error(subsystem string, err error, format string, args ...interface{}) {
	logf(slog.LevelError, subsystem, err, format, args...)
}
