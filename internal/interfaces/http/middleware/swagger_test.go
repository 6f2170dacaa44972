package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func swaggerRouter(cfg SwaggerConfig, jwtMiddleware gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.GET("/swagger/*any", SwaggerProtection(cfg, jwtMiddleware), func(c *gin.Context) {
		c.String(http.StatusOK, "docs")
	})
	return r
}

func swaggerRequest(r *gin.Engine, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", "/swagger/index.html", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSwaggerProtection(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		w := swaggerRequest(swaggerRouter(SwaggerConfig{}, nil), "10.0.0.1:1234")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("enabled and open", func(t *testing.T) {
		w := swaggerRequest(swaggerRouter(SwaggerConfig{Enabled: true}, nil), "10.0.0.1:1234")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("ip allow list", func(t *testing.T) {
		r := swaggerRouter(SwaggerConfig{Enabled: true, AllowedIPs: []string{"192.168.1.0/24", "10.0.0.7"}}, nil)
		assert.Equal(t, http.StatusOK, swaggerRequest(r, "192.168.1.20:1").Code)
		assert.Equal(t, http.StatusOK, swaggerRequest(r, "10.0.0.7:1").Code)
		assert.Equal(t, http.StatusForbidden, swaggerRequest(r, "10.0.0.8:1").Code)
	})

	t.Run("requires auth", func(t *testing.T) {
		jwtMW := JWTAuthMiddlewareWithConfig(JWTMiddlewareConfig{Verifier: newTestVerifier()})
		r := swaggerRouter(SwaggerConfig{Enabled: true, RequireAuth: true}, jwtMW)
		assert.Equal(t, http.StatusUnauthorized, swaggerRequest(r, "10.0.0.1:1").Code)
	})
}
