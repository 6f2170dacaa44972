package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	l := zap.NewExample()
	assert.Same(t, l, FromContext(WithContext(context.Background(), l)))
}

func TestContextValues(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithSubject(ctx, "clerk@example.com")
	ctx = WithPropertyID(ctx, "prop-9")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "clerk@example.com", GetSubject(ctx))
	assert.Equal(t, "prop-9", GetPropertyID(ctx))
	assert.Empty(t, GetRequestID(context.Background()))
}

func TestL_EnrichesFields(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	ctx := WithContext(context.Background(), zap.New(core))
	ctx = WithRequestID(ctx, "req-7")
	ctx = WithPropertyID(ctx, "prop-1")

	traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	spanID, _ := trace.SpanIDFromHex("0102030405060708")
	ctx = trace.ContextWithSpanContext(ctx, trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	L(ctx).Info("allocated")

	fields := recorded.All()[0].ContextMap()
	assert.Equal(t, "req-7", fields["request_id"])
	assert.Equal(t, "prop-1", fields["property_id"])
	assert.Equal(t, traceID.String(), fields["trace_id"])
	assert.Equal(t, spanID.String(), fields["span_id"])
	assert.NotContains(t, fields, "subject")
}
