package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return recorder
}

func TestStartServiceSpan_RecordsAttributesAndErrors(t *testing.T) {
	recorder := withRecorder(t)

	ctx, span := StartServiceSpan(context.Background(), "payment", "record", WithAttribute(SpanAttrReference, "BANK-1"))
	assert.NotEmpty(t, TraceID(ctx))
	SetAttributes(span, SpanAttrAmountCents, int64(1500), SpanAttrAllocations, 2, 42, "ignored")
	AddEvent(span, "allocated", SpanAttrInvoiceID, "inv-1")
	RecordError(span, errors.New("invoice changed"))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	got := spans[0]
	assert.Equal(t, "payment.record", got.Name())
	assert.Equal(t, codes.Error, got.Status().Code)
	assert.Contains(t, got.Attributes(), attribute.String(SpanAttrReference, "BANK-1"))
	assert.Contains(t, got.Attributes(), attribute.Int64(SpanAttrAmountCents, 1500))
	assert.Contains(t, got.Attributes(), attribute.Int(SpanAttrAllocations, 2))
	assert.Len(t, got.Attributes(), 3)
	require.Len(t, got.Events(), 2)
	assert.Equal(t, "allocated", got.Events()[0].Name)
}

func TestHelpersTolerateNilSpan(t *testing.T) {
	assert.NotPanics(t, func() {
		SetAttributes(nil, "k", "v")
		RecordError(nil, errors.New("x"))
		AddEvent(nil, "e")
	})
	assert.Empty(t, TraceID(context.Background()))
}

func TestLabelPairs(t *testing.T) {
	long := make([]byte, 200)
	for i := range long {
		long[i] = 'a'
	}
	pairs := labelPairs(map[string]string{
		ProfilingLabelRoute:     "/api/v1/payments",
		ProfilingLabelTenantID:  "",
		ProfilingLabelMethod:    "POST",
		ProfilingLabelOperation: string(long),
	})
	require.Len(t, pairs, 6)
	assert.Equal(t, []string{ProfilingLabelMethod, "POST"}, pairs[:2])
	assert.Len(t, pairs[3], maxLabelValueLength)
	assert.Equal(t, ProfilingLabelRoute, pairs[4])
}
