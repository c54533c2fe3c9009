package log

import (
	"context"
	"log/slog"
	"net/http"
)

// ContextKey type for context keys
type ContextKey string

const (
	// LoggerContextKey is the context key for the logger
	LoggerContextKey ContextKey = "logger"
)

// Middleware creates HTTP middleware that adds a logger to the request context
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := NewContext(r.Context(), logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext extracts a logger from the request context
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// StructuredLogger provides structured logging methods with context awareness
type StructuredLogger struct {
	logger *Logger
}

// NewStructuredLogger creates a new structured logger
func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{
		logger: logger,
	}
}

// LogTransactionCreated logs a transaction accepted by the store
func (sl *StructuredLogger) LogTransactionCreated(ctx context.Context, id, typ, desc, amount, category string) {
	fields := NewFields().
		WithTransaction(id, typ, desc, amount, category).
		WithOperation(OpCreate)
	sl.logger.InfoContext(ctx, "Transaction created", fields.ToSlice()...)
}

// LogTransactionDeleted logs a delete request handled by the store
func (sl *StructuredLogger) LogTransactionDeleted(ctx context.Context, id string, existed bool) {
	sl.logger.InfoContext(ctx, "Transaction deleted",
		FieldTxID, id,
		FieldOperation, OpDelete,
		"existed", existed)
}

// LogError logs an error with structured context
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	allFields := fields.
		WithError(err).
		WithOperation(operation)
	sl.logger.ErrorContext(ctx, msg, allFields.ToSlice()...)
}
