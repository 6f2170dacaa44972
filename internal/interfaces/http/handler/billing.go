package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	meteringapp "github.com/propledger/backend/internal/application/metering"
	"github.com/propledger/backend/internal/interfaces/http/dto"
	"github.com/propledger/backend/internal/interfaces/http/middleware"
)

// ArchiveLinker hands out temporary download links for archived run reports
type ArchiveLinker interface {
	ObjectExists(ctx context.Context, key string) (bool, error)
	DownloadURL(ctx context.Context, key string) (string, time.Time, error)
}

// BillingHandler handles utility billing runs
type BillingHandler struct {
	BaseHandler
	water   *meteringapp.WaterBillingService
	archive ArchiveLinker
}

// NewBillingHandler creates a new BillingHandler. archive may be nil when
// report archiving is disabled.
func NewBillingHandler(water *meteringapp.WaterBillingService, archive ArchiveLinker) *BillingHandler {
	return &BillingHandler{water: water, archive: archive}
}

// ArchiveLinkResponse is a presigned link to an archived run report
type ArchiveLinkResponse struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RunWater godoc
// @ID           runWaterBilling
// @Summary      Run water billing for a property and month
// @Description  Invoices every occupied unit for its metered consumption. Units already billed for the month are skipped, so the run can be repeated safely. Per-unit failures are reported without aborting the run.
// @Tags         billing
// @Accept       json
// @Produce      json
// @Param        request body meteringapp.WaterBillingRequest true "Run"
// @Success      200 {object} APIResponse[meteringapp.WaterBillingReport]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      429 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /billing/water_invoices [post]
func (h *BillingHandler) RunWater(c *gin.Context) {
	var req meteringapp.WaterBillingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	if !h.authorizeProperty(c, req.PropertyID) {
		return
	}
	report, err := h.water.Run(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// ArchiveLink godoc
// @ID           getBillingArchiveLink
// @Summary      Get a download link for an archived run report
// @Tags         billing
// @Produce      json
// @Param        key query string true "archive_key from a run report"
// @Success      200 {object} APIResponse[ArchiveLinkResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse "Archiving disabled"
// @Security     BearerAuth
// @Router       /billing/archive [get]
func (h *BillingHandler) ArchiveLink(c *gin.Context) {
	if h.archive == nil {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeUnavailable, "Report archiving is disabled")
		return
	}
	key := c.Query("key")
	if key == "" || strings.Contains(key, "..") {
		h.BadRequest(c, "A valid archive key is required")
		return
	}
	// keys start with the property ID
	propertyID, _, _ := strings.Cut(key, "/")
	if !middleware.CanAccessProperty(c, propertyID) {
		h.Forbidden(c, "Not allowed to access this property")
		return
	}

	ctx := c.Request.Context()
	exists, err := h.archive.ObjectExists(ctx, key)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !exists {
		h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, "Archived report not found")
		return
	}
	url, expires, err := h.archive.DownloadURL(ctx, key)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ArchiveLinkResponse{Key: key, URL: url, ExpiresAt: expires})
}
