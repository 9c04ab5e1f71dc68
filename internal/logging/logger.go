// Package logging provides the structured logger shared by the pipeline packages.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with pipeline-specific helpers
type Logger struct {
	*slog.Logger
}

// New creates a logger writing to stderr, as text or JSON
func New(debug, json bool) *Logger {
	return NewWithWriter(os.Stderr, debug, json)
}

// NewWithWriter creates a logger writing to w
func NewWithWriter(w io.Writer, debug, json bool) *Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return &Logger{slog.New(handler)}
}

// Discard returns a logger that drops everything, for tests
func Discard() *Logger {
	return &Logger{slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// WithComponent adds a component field to the logger
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{l.With("component", component)}
}

// WithUtility adds a utility field to the logger
func (l *Logger) WithUtility(utility string) *Logger {
	return &Logger{l.With("utility", utility)}
}

// WithRun adds an ingest run ID to the logger
func (l *Logger) WithRun(runID string) *Logger {
	return &Logger{l.With("run_id", runID)}
}

// LogStorageOperation logs storage operations
func (l *Logger) LogStorageOperation(operation, path string) {
	l.Debug("Storage operation",
		"operation", operation,
		"path", path,
	)
}

// LogSkipped logs a row or file left out of a batch
func (l *Logger) LogSkipped(source string, err error) {
	l.Warn("Skipped input",
		"source", source,
		"error", err,
	)
}
