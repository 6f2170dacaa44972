package middleware

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(t.Context())
		otel.SetTracerProvider(prev)
	})
	return sr
}

func attrMap(attrs []attribute.KeyValue) map[string]attribute.Value {
	out := make(map[string]attribute.Value, len(attrs))
	for _, a := range attrs {
		out[string(a.Key)] = a.Value
	}
	return out
}

func tracedRouter(t *testing.T, enabled bool) *gin.Engine {
	t.Helper()
	v := newTestVerifier()
	r := gin.New()
	r.Use(
		RequestID(),
		TracingWithConfig(TracingConfig{ServiceName: "propledger-test", Enabled: enabled}),
		SpanErrorMarker(),
		JWTAuthMiddlewareWithConfig(DefaultJWTConfig(v)),
		TracingAttributeInjector(),
	)
	r.GET("/api/v1/invoices/:id", func(c *gin.Context) {
		if c.Param("id") == "boom" {
			c.Status(http.StatusInternalServerError)
			return
		}
		if c.Param("id") == "missing" {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusOK)
	})
	return r
}

func TestTracing_Disabled(t *testing.T) {
	sr := setupTestTracer(t)
	v := newTestVerifier()
	w := serve(tracedRouter(t, false), "GET", "/api/v1/invoices/1", map[string]string{
		"Authorization": "Bearer " + signedToken(t, v, time.Hour),
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, sr.Ended())
}

func TestTracing_SpanAttributes(t *testing.T) {
	sr := setupTestTracer(t)
	v := newTestVerifier()
	w := serve(tracedRouter(t, true), "GET", "/api/v1/invoices/1", map[string]string{
		"Authorization": "Bearer " + signedToken(t, v, time.Hour),
		RequestIDHeader: "req-42",
	})
	require.Equal(t, http.StatusOK, w.Code)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /api/v1/invoices/:id", spans[0].Name())
	attrs := attrMap(spans[0].Attributes())
	assert.Equal(t, "req-42", attrs["request_id"].AsString())
	assert.Equal(t, "accountant-1", attrs["enduser.id"].AsString())
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
}

func TestSpanErrorMarker(t *testing.T) {
	v := newTestVerifier()
	auth := map[string]string{"Authorization": "Bearer " + signedToken(t, v, time.Hour)}

	t.Run("server error fails the span", func(t *testing.T) {
		sr := setupTestTracer(t)
		serve(tracedRouter(t, true), "GET", "/api/v1/invoices/boom", auth)
		spans := sr.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, codes.Error, spans[0].Status().Code)
		assert.Equal(t, int64(500), attrMap(spans[0].Attributes())["http.status_code"].AsInt64())
	})

	t.Run("client error keeps the span ok", func(t *testing.T) {
		sr := setupTestTracer(t)
		serve(tracedRouter(t, true), "GET", "/api/v1/invoices/missing", auth)
		spans := sr.Ended()
		require.Len(t, spans, 1)
		assert.NotEqual(t, codes.Error, spans[0].Status().Code)
		assert.Equal(t, int64(404), attrMap(spans[0].Attributes())["http.status_code"].AsInt64())
	})
}
