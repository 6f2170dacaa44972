package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	ledgerapp "github.com/propledger/backend/internal/application/ledger"
)

// InvoiceHandler handles invoice API endpoints
type InvoiceHandler struct {
	BaseHandler
	service *ledgerapp.InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(service *ledgerapp.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{service: service}
}

// Create godoc
// @ID           createInvoice
// @Summary      Create an invoice
// @Description  Creates a draft invoice, or an issued one when issue is true. Items, when given, must sum to amount_cents.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        request body ledgerapp.CreateInvoiceRequest true "Invoice"
// @Success      201 {object} APIResponse[ledgerapp.InvoiceResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /invoices [post]
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req ledgerapp.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	if !h.authorizeProperty(c, req.PropertyID) {
		return
	}
	invoice, err := h.service.CreateInvoice(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, invoice)
}

// Get godoc
// @ID           getInvoice
// @Summary      Get an invoice with its allocations
// @Tags         invoices
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} APIResponse[ledgerapp.InvoiceResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /invoices/{id} [get]
func (h *InvoiceHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	invoice, err := h.service.GetInvoice(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !h.authorizeProperty(c, invoice.PropertyID) {
		return
	}
	h.Success(c, invoice)
}

// List godoc
// @ID           listInvoices
// @Summary      List invoices
// @Tags         invoices
// @Produce      json
// @Param        filter query ledgerapp.InvoiceListFilter false "Filters"
// @Success      200 {object} ListResponse[ledgerapp.InvoiceResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /invoices [get]
func (h *InvoiceHandler) List(c *gin.Context) {
	var f ledgerapp.InvoiceListFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		h.BindError(c, err)
		return
	}
	if !h.scopeListFilter(c, &f.PropertyID) {
		return
	}
	page, err := h.service.ListInvoices(c.Request.Context(), f)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	SuccessPage(c, page)
}

// Update godoc
// @ID           updateInvoice
// @Summary      Issue a draft invoice or change its notes
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id      path string                          true "Invoice ID" format(uuid)
// @Param        request body ledgerapp.UpdateInvoiceRequest true "Changes"
// @Success      200 {object} APIResponse[ledgerapp.InvoiceResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse "Transition not allowed"
// @Security     BearerAuth
// @Router       /invoices/{id} [patch]
func (h *InvoiceHandler) Update(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req ledgerapp.UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	if !h.authorizeExisting(c, id) {
		return
	}
	invoice, err := h.service.UpdateInvoice(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}

// Void godoc
// @ID           voidInvoice
// @Summary      Void an invoice
// @Description  Only invoices without payments can be voided.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id      path string                        true "Invoice ID" format(uuid)
// @Param        request body ledgerapp.VoidInvoiceRequest true "Reason"
// @Success      200 {object} APIResponse[ledgerapp.InvoiceResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /invoices/{id}/void [patch]
func (h *InvoiceHandler) Void(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req ledgerapp.VoidInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	if !h.authorizeExisting(c, id) {
		return
	}
	invoice, err := h.service.VoidInvoice(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}

// AddItem godoc
// @ID           addInvoiceItem
// @Summary      Add a line to a draft invoice
// @Description  The invoice amount becomes the sum of its lines.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id      path string                      true "Invoice ID" format(uuid)
// @Param        request body ledgerapp.InvoiceItemInput true "Line"
// @Success      201 {object} APIResponse[ledgerapp.InvoiceResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse "Invoice is not a draft"
// @Security     BearerAuth
// @Router       /invoices/{id}/invoice_items [post]
func (h *InvoiceHandler) AddItem(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req ledgerapp.InvoiceItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	if !h.authorizeExisting(c, id) {
		return
	}
	invoice, err := h.service.AddInvoiceItem(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, invoice)
}

// UpdateItem godoc
// @ID           updateInvoiceItem
// @Summary      Change a line of a draft invoice
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id      path string                              true "Invoice item ID" format(uuid)
// @Param        request body ledgerapp.UpdateInvoiceItemRequest true "Changes"
// @Success      200 {object} APIResponse[ledgerapp.InvoiceResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse "Invoice is not a draft"
// @Security     BearerAuth
// @Router       /invoice_items/{id} [patch]
func (h *InvoiceHandler) UpdateItem(c *gin.Context) {
	itemID, ok := h.pathID(c)
	if !ok {
		return
	}
	var req ledgerapp.UpdateInvoiceItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	if !h.authorizeItem(c, itemID) {
		return
	}
	invoice, err := h.service.UpdateInvoiceItem(c.Request.Context(), itemID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}

// DeleteItem godoc
// @ID           deleteInvoiceItem
// @Summary      Remove a line from a draft invoice
// @Description  Returns the invoice without the line. The last line cannot be removed.
// @Tags         invoices
// @Produce      json
// @Param        id path string true "Invoice item ID" format(uuid)
// @Success      200 {object} APIResponse[ledgerapp.InvoiceResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse "Invoice is not a draft"
// @Security     BearerAuth
// @Router       /invoice_items/{id} [delete]
func (h *InvoiceHandler) DeleteItem(c *gin.Context) {
	itemID, ok := h.pathID(c)
	if !ok {
		return
	}
	if !h.authorizeItem(c, itemID) {
		return
	}
	invoice, err := h.service.RemoveInvoiceItem(c.Request.Context(), itemID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}

// authorizeItem checks the property of the invoice owning an item
func (h *InvoiceHandler) authorizeItem(c *gin.Context, itemID uuid.UUID) bool {
	if !scopedToken(c) {
		return true
	}
	invoiceID, err := h.service.InvoiceIDForItem(c.Request.Context(), itemID)
	if err != nil {
		h.HandleError(c, err)
		return false
	}
	return h.authorizeExisting(c, invoiceID)
}

// authorizeExisting checks the property of an invoice before it is changed
func (h *InvoiceHandler) authorizeExisting(c *gin.Context, id uuid.UUID) bool {
	if !scopedToken(c) {
		return true
	}
	invoice, err := h.service.GetInvoice(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return false
	}
	return h.authorizeProperty(c, invoice.PropertyID)
}
