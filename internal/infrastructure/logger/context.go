package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// contextKey is a type for context keys used by the logger package
type contextKey string

const (
	// LoggerKey is the context key for the logger
	LoggerKey contextKey = "logger"
	// ExportIDKey is the context key for the export ID
	ExportIDKey contextKey = "export_id"
)

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// WithExportID adds the export ID to context and returns the enriched logger
func WithExportID(ctx context.Context, logger *zap.Logger, exportID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, ExportIDKey, exportID)
	enriched := logger.With(zap.String("export_id", exportID))
	return WithContext(ctx, enriched), enriched
}

// GetExportID retrieves the export ID from context
func GetExportID(ctx context.Context) string {
	if exportID, ok := ctx.Value(ExportIDKey).(string); ok {
		return exportID
	}
	return ""
}

// WithTraceContext adds trace_id and span_id to the logger from the context's
// span. If no valid span exists, returns the original logger unchanged.
func WithTraceContext(ctx context.Context, logger *zap.Logger) *zap.Logger {
	spanCtx := trace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.IsValid() {
		return logger
	}
	return logger.With(
		zap.String("trace_id", spanCtx.TraceID().String()),
		zap.String("span_id", spanCtx.SpanID().String()),
	)
}

// ContextLogger logs with the trace and export identifiers found in a context.
type ContextLogger struct {
	ctx    context.Context
	logger *zap.Logger
	// loggers not created by WithExportID lack the export_id field
	external bool
}

// WithLogger returns a ContextLogger that adds the trace and export
// identifiers of ctx to logger. Components with their own logger use it so
// their entries can be correlated with the export that called them.
func WithLogger(ctx context.Context, logger *zap.Logger) *ContextLogger {
	return &ContextLogger{
		ctx:      ctx,
		logger:   logger,
		external: true,
	}
}

func (cl *ContextLogger) enrichedLogger() *zap.Logger {
	l := cl.logger
	if l == nil {
		l = zap.NewNop()
	}
	l = WithTraceContext(cl.ctx, l)

	if exportID := GetExportID(cl.ctx); exportID != "" && cl.external {
		l = l.With(zap.String("export_id", exportID))
	}
	return l
}

// With creates a child ContextLogger with additional fields.
func (cl *ContextLogger) With(fields ...zap.Field) *ContextLogger {
	base := cl.logger
	if base == nil {
		base = zap.NewNop()
	}
	return &ContextLogger{
		ctx:      cl.ctx,
		logger:   base.With(fields...),
		external: cl.external,
	}
}

// Debug logs a debug level message with trace context.
func (cl *ContextLogger) Debug(msg string, fields ...zap.Field) {
	cl.enrichedLogger().Debug(msg, fields...)
}

// Info logs an info level message with trace context.
func (cl *ContextLogger) Info(msg string, fields ...zap.Field) {
	cl.enrichedLogger().Info(msg, fields...)
}

// Warn logs a warning level message with trace context.
func (cl *ContextLogger) Warn(msg string, fields ...zap.Field) {
	cl.enrichedLogger().Warn(msg, fields...)
}

// Error logs an error level message with trace context.
func (cl *ContextLogger) Error(msg string, fields ...zap.Field) {
	cl.enrichedLogger().Error(msg, fields...)
}

// Zap returns the underlying zap.Logger enriched with trace context.
func (cl *ContextLogger) Zap() *zap.Logger {
	return cl.enrichedLogger()
}
