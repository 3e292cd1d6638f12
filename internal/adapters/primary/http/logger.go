package http

import (
	"context"
	"fmt"
	"log/slog"
)

// HTTPLogger gives the HTTP layer printf-style logging on top of slog
type HTTPLogger struct {
	logger *slog.Logger
}

// NewHTTPLogger creates a logger tagged with the component name
func NewHTTPLogger(component string, logger *slog.Logger) *HTTPLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPLogger{logger: logger.With("component", component)}
}

// Debug logs debug messages
func (l *HTTPLogger) Debug(msg string, args ...interface{}) {
	l.log(slog.LevelDebug, msg, args...)
}

// Info logs informational messages
func (l *HTTPLogger) Info(msg string, args ...interface{}) {
	l.log(slog.LevelInfo, msg, args...)
}

// Warn logs warning messages
func (l *HTTPLogger) Warn(msg string, args ...interface{}) {
	l.log(slog.LevelWarn, msg, args...)
}

// Error logs error messages
func (l *HTTPLogger) Error(msg string, args ...interface{}) {
	l.log(slog.LevelError, msg, args...)
}

// Slog returns the underlying structured logger
func (l *HTTPLogger) Slog() *slog.Logger {
	return l.logger
}

func (l *HTTPLogger) log(level slog.Level, msg string, args ...interface{}) {
	ctx := context.Background()
	if !l.logger.Enabled(ctx, level) {
		return
	}
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	l.logger.Log(ctx, level, msg)
}
