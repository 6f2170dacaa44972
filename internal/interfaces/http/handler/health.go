package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/propledger/backend/internal/infrastructure/logger"
	"github.com/propledger/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Pinger checks a dependency's connection
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	BaseHandler
	db        Pinger
	version   string
	startedAt time.Time
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db Pinger, version string) *HealthHandler {
	return &HealthHandler{db: db, version: version, startedAt: time.Now()}
}

// HealthResponse is the liveness payload
type HealthResponse struct {
	Status  string `json:"status" example:"ok"`
	Version string `json:"version" example:"1.0.0"`
	Uptime  string `json:"uptime" example:"1h30m45s"`
}

// Health godoc
// @ID           health
// @Summary      Liveness probe
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[HealthResponse]
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	h.Success(c, HealthResponse{
		Status:  "ok",
		Version: h.version,
		Uptime:  time.Since(h.startedAt).Round(time.Second).String(),
	})
}

// Ready godoc
// @ID           ready
// @Summary      Readiness probe
// @Description  Pings the database.
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[HealthResponse]
// @Failure      503 {object} ErrorResponse
// @Router       /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		logger.L(ctx).Warn("readiness check failed", zap.Error(err))
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeUnavailable, "Database unavailable")
		return
	}
	h.Success(c, HealthResponse{Status: "ready", Version: h.version})
}
