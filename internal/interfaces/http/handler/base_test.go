package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/propledger/backend/internal/domain/shared"
	"github.com/propledger/backend/internal/infrastructure/auth"
	"github.com/propledger/backend/internal/interfaces/http/dto"
	"github.com/propledger/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := middleware.SetupValidator(); err != nil {
		panic(err)
	}
}

// withClaims simulates a verified token scoped to the given properties
func withClaims(properties ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := &auth.Claims{PropertyIDs: properties}
		claims.Subject = "accountant-1"
		c.Set(middleware.JWTClaimsKey, claims)
		c.Next()
	}
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func newContext(method, path string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, nil)
	return c, w
}

func TestGetRequestID(t *testing.T) {
	t.Run("from context", func(t *testing.T) {
		c, _ := newContext(http.MethodGet, "/")
		c.Set(middleware.RequestIDKey, "ctx-id")
		c.Request.Header.Set(middleware.RequestIDHeader, "header-id")
		assert.Equal(t, "ctx-id", getRequestID(c))
	})

	t.Run("falls back to header", func(t *testing.T) {
		c, _ := newContext(http.MethodGet, "/")
		c.Request.Header.Set(middleware.RequestIDHeader, "header-id")
		assert.Equal(t, "header-id", getRequestID(c))
	})

	t.Run("empty when unset", func(t *testing.T) {
		c, _ := newContext(http.MethodGet, "/")
		assert.Empty(t, getRequestID(c))
	})
}

func TestBaseHandler_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", shared.NewValidationError("INVALID_AMOUNT", "amount must be positive"), http.StatusBadRequest, "INVALID_AMOUNT"},
		{"not found", shared.NewNotFoundError("invoice"), http.StatusNotFound, shared.CodeNotFound},
		{"invalid state", shared.NewInvalidStateError("INVOICE_PAID", "invoice is paid"), http.StatusUnprocessableEntity, "INVOICE_PAID"},
		{"conflict", shared.NewConflictError("DUPLICATE_REFERENCE", "reference already recorded"), http.StatusConflict, "DUPLICATE_REFERENCE"},
		{"overpayment", shared.NewOverpaymentError("allocation exceeds balance"), http.StatusInternalServerError, shared.CodeOverpayment},
		{"wrapped domain error", errors.Join(errors.New("context"), shared.NewNotFoundError("lease")), http.StatusNotFound, shared.CodeNotFound},
		{"plain error", errors.New("connection reset"), http.StatusInternalServerError, dto.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newContext(http.MethodGet, "/")
			c.Set(middleware.RequestIDKey, "req-1")
			h := &BaseHandler{}

			h.HandleError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Equal(t, "req-1", resp.Error.RequestID)
		})
	}
}

func TestBaseHandler_HandleErrorHidesInternals(t *testing.T) {
	c, w := newContext(http.MethodGet, "/")
	(&BaseHandler{}).HandleError(c, errors.New("pq: password authentication failed"))

	resp := decodeResponse(t, w)
	assert.NotContains(t, resp.Error.Message, "password")
}

func TestBaseHandler_BindError(t *testing.T) {
	type body struct {
		Reference string `json:"reference" binding:"required"`
	}
	r := gin.New()
	r.POST("/", func(c *gin.Context) {
		var b body
		if err := c.ShouldBindJSON(&b); err != nil {
			(&BaseHandler{}).BindError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})

	t.Run("validation details", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", jsonBody(t, map[string]string{})))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "reference", resp.Error.Details[0].Field)
	})

	t.Run("malformed json", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", stringBody("{")))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidJSON, decodeResponse(t, w).Error.Code)
	})
}

func TestBaseHandler_PathID(t *testing.T) {
	h := &BaseHandler{}
	r := gin.New()
	r.GET("/:id", func(c *gin.Context) {
		if id, ok := h.pathID(c); ok {
			h.Success(c, id)
		}
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeInvalidID, decodeResponse(t, w).Error.Code)

	id := uuid.New()
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/"+id.String(), nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id.String(), decodeResponse(t, w).Data)
}

func TestBaseHandler_ScopeListFilter(t *testing.T) {
	own := uuid.New()
	other := uuid.New()

	run := func(mw gin.HandlerFunc, filter string) (string, int) {
		var got string
		r := gin.New()
		if mw != nil {
			r.Use(mw)
		}
		r.GET("/", func(c *gin.Context) {
			f := filter
			if (&BaseHandler{}).scopeListFilter(c, &f) {
				got = f
				c.Status(http.StatusOK)
			}
		})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		return got, w.Code
	}

	t.Run("no claims leaves the filter alone", func(t *testing.T) {
		got, status := run(nil, "")
		assert.Equal(t, http.StatusOK, status)
		assert.Empty(t, got)
	})

	t.Run("single property token fills the filter", func(t *testing.T) {
		got, status := run(withClaims(own.String()), "")
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, own.String(), got)
	})

	t.Run("foreign property is forbidden", func(t *testing.T) {
		_, status := run(withClaims(own.String()), other.String())
		assert.Equal(t, http.StatusForbidden, status)
	})

	t.Run("malformed property is a bad request", func(t *testing.T) {
		_, status := run(withClaims(own.String()), "not-a-uuid")
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("multi property token must name one", func(t *testing.T) {
		_, status := run(withClaims(own.String(), other.String()), "")
		assert.Equal(t, http.StatusForbidden, status)

		got, status := run(withClaims(own.String(), other.String()), other.String())
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, other.String(), got)
	})
}
