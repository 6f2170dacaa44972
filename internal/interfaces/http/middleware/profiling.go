package middleware

import (
	"context"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/propledger/backend/internal/infrastructure/telemetry"
)

// ProfilingConfig holds configuration for the profiling middleware.
type ProfilingConfig struct {
	Enabled   bool
	SkipPaths []string
}

// ProfilingWithConfig tags each request's CPU samples with its method, route
// pattern and resource so profiles can be sliced per endpoint.
func ProfilingWithConfig(cfg ProfilingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	return func(c *gin.Context) {
		if slices.Contains(cfg.SkipPaths, c.Request.URL.Path) {
			c.Next()
			return
		}
		telemetry.WithProfilingLabels(c.Request.Context(), profilingLabels(c), func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

func profilingLabels(c *gin.Context) map[string]string {
	route := c.FullPath()
	return map[string]string{
		telemetry.ProfilingLabelMethod:    c.Request.Method,
		telemetry.ProfilingLabelRoute:     route,
		telemetry.ProfilingLabelOperation: resourceOf(route),
	}
}

// resourceOf returns the first path segment after the version:
// "/api/v1/leases/:id/activate" -> "leases"
func resourceOf(route string) string {
	parts := strings.Split(strings.Trim(route, "/"), "/")
	for i, p := range parts {
		if strings.HasPrefix(p, "v") && len(p) > 1 && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return ""
}
