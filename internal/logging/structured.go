// Package logging provides structured JSON logging for taskd components.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Level represents log severity
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// ParseLevel validates a level name (case-insensitive).
func ParseLevel(s string) (Level, error) {
	switch l := Level(strings.ToLower(strings.TrimSpace(s))); l {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		return l, nil
	case "":
		return LevelInfo, nil
	default:
		return "", fmt.Errorf("invalid log level %q (want debug, info, warn or error)", s)
	}
}

func (l Level) toSlog() slog.Level {
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

// Logger provides structured logging
type Logger struct {
	base      *slog.Logger
	component string
}

// New creates a root logger writing JSON lines to w.
// A nil writer logs to stderr.
func New(w io.Writer, level Level) *Logger {
	if w == nil {
		w = os.Stderr
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level.toSlog(),
		ReplaceAttr: renameKeys,
	})
	return &Logger{base: slog.New(handler)}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return New(io.Discard, LevelError)
}

// renameKeys keeps the short key names used in our log pipeline.
func renameKeys(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return a
	}
	switch a.Key {
	case slog.TimeKey:
		a.Key = "ts"
		a.Value = slog.StringValue(a.Value.Time().UTC().Format(time.RFC3339))
	case slog.MessageKey:
		a.Key = "event"
	case slog.LevelKey:
		a.Value = slog.StringValue(strings.ToLower(a.Value.String()))
	}
	return a
}

// Component returns a child logger tagged with a component name.
func (l *Logger) Component(name string) *Logger {
	return &Logger{
		base:      l.base.With(slog.String("component", name)),
		component: name,
	}
}

// WithContext binds the request ID carried by ctx, if any.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	id := GetRequestID(ctx)
	if id == "" {
		return l
	}
	return &Logger{
		base:      l.base.With(slog.String("request_id", id)),
		component: l.component,
	}
}

// Enabled reports whether events at level would be written.
func (l *Logger) Enabled(level Level) bool {
	return l.base.Enabled(context.Background(), level.toSlog())
}

// log emits a structured log event
func (l *Logger) log(level Level, event string, extra map[string]any, err error, attrs ...slog.Attr) {
	if len(extra) > 0 {
		attrs = append(attrs, slog.Any("extra", extra))
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	l.base.LogAttrs(context.Background(), level.toSlog(), event, attrs...)
}

// Debug logs a debug event
func (l *Logger) Debug(event string, extra map[string]any) {
	l.log(LevelDebug, event, extra, nil)
}

// Info logs an info event
func (l *Logger) Info(event string, extra map[string]any) {
	l.log(LevelInfo, event, extra, nil)
}

// Warn logs a warning event
func (l *Logger) Warn(event string, extra map[string]any, err error) {
	l.log(LevelWarn, event, extra, err)
}

// Error logs an error event
func (l *Logger) Error(event string, extra map[string]any, err error) {
	l.log(LevelError, event, extra, err)
}

// TimedEvent logs an info event with the elapsed time since start.
func (l *Logger) TimedEvent(event string, start time.Time, extra map[string]any) {
	l.log(LevelInfo, event, extra, nil, slog.Int64("duration_ms", time.Since(start).Milliseconds()))
}
