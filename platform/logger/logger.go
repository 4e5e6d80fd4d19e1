// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Context key types for storing values in context
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// ProjectIDKey is the context key for the project being operated on
	ProjectIDKey contextKey = "project_id"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithContext returns a logger with request_id and project_id extracted
// from the context, when present.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("request_id", requestID))}
	}

	if projectID, ok := ctx.Value(ProjectIDKey).(string); ok && projectID != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("project_id", projectID))}
	}

	return newLogger
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// StageTransition logs a department stage status change.
func (l *Logger) StageTransition(projectID, department, from, to string) {
	l.Info("stage_transition",
		slog.String("project_id", projectID),
		slog.String("department", department),
		slog.String("from", from),
		slog.String("to", to),
	)
}

// TaskEvent logs an external evaluation task lifecycle event.
func (l *Logger) TaskEvent(event, taskID string, attrs ...any) {
	args := append([]any{slog.String("task_id", taskID)}, attrs...)
	l.Info("task_"+event, args...)
}

// ExternalCallDegraded logs a tolerated failure of an external capability.
// The pipeline continues with placeholder output after these.
func (l *Logger) ExternalCallDegraded(capability string, err error) {
	l.Warn("external_call_degraded",
		slog.String("capability", capability),
		slog.String("error", err.Error()),
	)
}

// DatabaseError logs database errors
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}
