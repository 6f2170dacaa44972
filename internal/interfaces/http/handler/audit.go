package handler

import (
	"github.com/gin-gonic/gin"
	auditapp "github.com/propledger/backend/internal/application/audit"
)

// AuditHandler exposes the audit trail
type AuditHandler struct {
	BaseHandler
	service *auditapp.AuditService
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(service *auditapp.AuditService) *AuditHandler {
	return &AuditHandler{service: service}
}

// List godoc
// @ID           listAuditLogs
// @Summary      List audit entries
// @Description  Every ledger event (payment recorded, invoice paid, paid-through advanced, ...) with its payload, newest first.
// @Tags         audit
// @Produce      json
// @Param        filter query auditapp.AuditListFilter false "Filters"
// @Success      200 {object} ListResponse[auditapp.AuditEntryResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /audit_logs [get]
func (h *AuditHandler) List(c *gin.Context) {
	var f auditapp.AuditListFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		h.BindError(c, err)
		return
	}
	// entries are not partitioned by property
	if scopedToken(c) {
		h.Forbidden(c, "The audit log requires an unscoped token")
		return
	}
	page, err := h.service.ListEntries(c.Request.Context(), f)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	SuccessPage(c, page)
}

// Get godoc
// @ID           getAuditLog
// @Summary      Get an audit entry
// @Tags         audit
// @Produce      json
// @Param        id path string true "Audit entry ID" format(uuid)
// @Success      200 {object} APIResponse[auditapp.AuditEntryResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /audit_logs/{id} [get]
func (h *AuditHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if scopedToken(c) {
		h.Forbidden(c, "The audit log requires an unscoped token")
		return
	}
	entry, err := h.service.GetEntry(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}
