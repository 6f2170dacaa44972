package handler

import (
	"github.com/gin-gonic/gin"
	ledgerapp "github.com/propledger/backend/internal/application/ledger"
)

// PaymentHandler handles payment API endpoints
type PaymentHandler struct {
	BaseHandler
	service *ledgerapp.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(service *ledgerapp.PaymentService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

// Record godoc
// @ID           recordPayment
// @Summary      Record a payment
// @Description  Stores the payment and allocates it oldest-first to the tenant's open invoices of the property. Lease paid-through dates advance for fully paid rent; advancement problems are returned as warnings.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        request body ledgerapp.RecordPaymentRequest true "Payment"
// @Success      201 {object} APIResponse[ledgerapp.RecordPaymentResult]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse "Duplicate reference or exhausted retries"
// @Security     BearerAuth
// @Router       /payments [post]
func (h *PaymentHandler) Record(c *gin.Context) {
	var req ledgerapp.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	if !h.authorizeProperty(c, req.PropertyID) {
		return
	}

	result, err := h.service.RecordPayment(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// Get godoc
// @ID           getPayment
// @Summary      Get a payment with its allocations
// @Tags         payments
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Success      200 {object} APIResponse[ledgerapp.PaymentResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /payments/{id} [get]
func (h *PaymentHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	payment, err := h.service.GetPayment(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !h.authorizeProperty(c, payment.PropertyID) {
		return
	}
	h.Success(c, payment)
}

// List godoc
// @ID           listPayments
// @Summary      List payments
// @Tags         payments
// @Produce      json
// @Param        filter query ledgerapp.PaymentListFilter false "Filters"
// @Success      200 {object} ListResponse[ledgerapp.PaymentResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /payments [get]
func (h *PaymentHandler) List(c *gin.Context) {
	var f ledgerapp.PaymentListFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		h.BindError(c, err)
		return
	}
	if !h.scopeListFilter(c, &f.PropertyID) {
		return
	}
	page, err := h.service.ListPayments(c.Request.Context(), f)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	SuccessPage(c, page)
}

// GetAllocation godoc
// @ID           getPaymentAllocation
// @Summary      Get a payment allocation
// @Tags         payment_allocations
// @Produce      json
// @Param        id path string true "Allocation ID" format(uuid)
// @Success      200 {object} APIResponse[ledgerapp.PaymentAllocationResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /payment_allocations/{id} [get]
func (h *PaymentHandler) GetAllocation(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	allocation, err := h.service.GetAllocation(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !h.authorizeProperty(c, allocation.PropertyID) {
		return
	}
	h.Success(c, allocation)
}

// ListAllocations godoc
// @ID           listPaymentAllocations
// @Summary      List payment allocations
// @Description  Allocations across payments. Property and tenant filters match the payment the allocation came from.
// @Tags         payment_allocations
// @Produce      json
// @Param        filter query ledgerapp.AllocationListFilter false "Filters"
// @Success      200 {object} ListResponse[ledgerapp.PaymentAllocationResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /payment_allocations [get]
func (h *PaymentHandler) ListAllocations(c *gin.Context) {
	var f ledgerapp.AllocationListFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		h.BindError(c, err)
		return
	}
	if !h.scopeListFilter(c, &f.PropertyID) {
		return
	}
	page, err := h.service.ListAllocations(c.Request.Context(), f)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	SuccessPage(c, page)
}
