package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey     contextKey = "logger"
	requestIDKey  contextKey = "request_id"
	subjectKey    contextKey = "subject"
	propertyIDKey contextKey = "property_id"
)

// WithContext returns a new context carrying the logger
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the logger from context, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID stores the request ID in the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

// WithSubject stores the authenticated caller in the context
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey, subject)
}

// GetSubject retrieves the authenticated caller from context
func GetSubject(ctx context.Context) string {
	v, _ := ctx.Value(subjectKey).(string)
	return v
}

// WithPropertyID stores the property being operated on in the context
func WithPropertyID(ctx context.Context, propertyID string) context.Context {
	return context.WithValue(ctx, propertyIDKey, propertyID)
}

// GetPropertyID retrieves the property ID from context
func GetPropertyID(ctx context.Context) string {
	v, _ := ctx.Value(propertyIDKey).(string)
	return v
}

// L returns the context logger enriched with trace, request, subject and property fields.
//
//	logger.L(ctx).Info("payment recorded", zap.String("payment_id", id))
func L(ctx context.Context) *zap.Logger {
	l := FromContext(ctx)

	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		l = l.With(
			zap.String("trace_id", spanCtx.TraceID().String()),
			zap.String("span_id", spanCtx.SpanID().String()),
		)
	}
	if v := GetRequestID(ctx); v != "" {
		l = l.With(zap.String("request_id", v))
	}
	if v := GetSubject(ctx); v != "" {
		l = l.With(zap.String("subject", v))
	}
	if v := GetPropertyID(ctx); v != "" {
		l = l.With(zap.String("property_id", v))
	}
	return l
}
