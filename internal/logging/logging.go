package logging

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with domain-specific helpers.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a text-formatted logger writing to stderr.
func NewLogger(debug bool) *Logger {
	return &Logger{slog.New(slog.NewTextHandler(os.Stderr, handlerOptions(debug)))}
}

// NewJSONLogger creates a JSON-formatted logger writing to stderr.
func NewJSONLogger(debug bool) *Logger {
	return &Logger{slog.New(slog.NewJSONHandler(os.Stderr, handlerOptions(debug)))}
}

// Discard returns a logger that drops everything. Used in tests.
func Discard() *Logger {
	return &Logger{slog.New(slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelError + 1}))}
}

func handlerOptions(debug bool) *slog.HandlerOptions {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return &slog.HandlerOptions{Level: level}
}

// WithComponent adds a component field to the logger.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{l.With("component", component)}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
