package middleware

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestHTTPMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	mw, err := HTTPMetrics(provider.Meter("http.server"))
	require.NoError(t, err)

	r := gin.New()
	r.Use(mw)
	r.GET("/api/v1/invoices/:id", func(c *gin.Context) { c.String(http.StatusOK, "invoice") })

	serve(r, "GET", "/api/v1/invoices/1", nil)
	serve(r, "GET", "/api/v1/invoices/2", nil)
	serve(r, "GET", "/nowhere", nil)

	metrics := collect(t, reader)
	total, ok := metrics["http_server_request_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)

	byRoute := map[string]int64{}
	for _, dp := range total.DataPoints {
		route, _ := dp.Attributes.Value("http.route")
		byRoute[route.AsString()] += dp.Value
	}
	assert.Equal(t, int64(2), byRoute["/api/v1/invoices/:id"])
	assert.Equal(t, int64(1), byRoute["unmatched"])

	active, ok := metrics["http_server_active_requests"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	for _, dp := range active.DataPoints {
		assert.Zero(t, dp.Value)
	}
	assert.Contains(t, metrics, "http_server_request_duration_seconds")
	assert.Contains(t, metrics, "http_server_response_size_bytes")
}

func TestHTTPMetrics_NilMeter(t *testing.T) {
	mw, err := HTTPMetrics(nil)
	require.NoError(t, err)
	r := gin.New()
	r.Use(mw)
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusOK, serve(r, "GET", "/x", nil).Code)
}
