package handler

import (
	"context"
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	leaseapp "github.com/propledger/backend/internal/application/lease"
)

// LeaseHandler handles lease API endpoints
type LeaseHandler struct {
	BaseHandler
	service *leaseapp.LeaseService
}

// NewLeaseHandler creates a new LeaseHandler
func NewLeaseHandler(service *leaseapp.LeaseService) *LeaseHandler {
	return &LeaseHandler{service: service}
}

// Create godoc
// @ID           createLease
// @Summary      Sign a lease
// @Description  Creates the lease, its rent installments and their issued rent invoices in one transaction.
// @Tags         leases
// @Accept       json
// @Produce      json
// @Param        request body leaseapp.CreateLeaseRequest true "Lease"
// @Success      201 {object} APIResponse[leaseapp.LeaseResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /leases [post]
func (h *LeaseHandler) Create(c *gin.Context) {
	var req leaseapp.CreateLeaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	if !h.authorizeProperty(c, req.PropertyID) {
		return
	}
	lease, err := h.service.CreateLease(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, lease)
}

// Get godoc
// @ID           getLease
// @Summary      Get a lease with its installments
// @Tags         leases
// @Produce      json
// @Param        id path string true "Lease ID" format(uuid)
// @Success      200 {object} APIResponse[leaseapp.LeaseResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /leases/{id} [get]
func (h *LeaseHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	lease, err := h.service.GetLease(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !h.authorizeProperty(c, lease.PropertyID) {
		return
	}
	h.Success(c, lease)
}

// List godoc
// @ID           listLeases
// @Summary      List leases
// @Tags         leases
// @Produce      json
// @Param        filter query leaseapp.LeaseListFilter false "Filters"
// @Success      200 {object} ListResponse[leaseapp.LeaseResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /leases [get]
func (h *LeaseHandler) List(c *gin.Context) {
	var f leaseapp.LeaseListFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		h.BindError(c, err)
		return
	}
	if !h.scopeListFilter(c, &f.PropertyID) {
		return
	}
	page, err := h.service.ListLeases(c.Request.Context(), f)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	SuccessPage(c, page)
}

// GetInstallment godoc
// @ID           getRentInstallment
// @Summary      Get a rent installment
// @Description  Status reports overdue once an unpaid installment is past its due date.
// @Tags         rent_installments
// @Produce      json
// @Param        id path string true "Installment ID" format(uuid)
// @Success      200 {object} APIResponse[leaseapp.InstallmentResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /rent_installments/{id} [get]
func (h *LeaseHandler) GetInstallment(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	installment, err := h.service.GetInstallment(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if installment.PropertyID != nil && !h.authorizeProperty(c, *installment.PropertyID) {
		return
	}
	h.Success(c, installment)
}

// ListInstallments godoc
// @ID           listRentInstallments
// @Summary      List rent installments
// @Description  Installments across leases. Property and tenant filters match the owning lease.
// @Tags         rent_installments
// @Produce      json
// @Param        filter query leaseapp.InstallmentListFilter false "Filters"
// @Success      200 {object} ListResponse[leaseapp.InstallmentResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /rent_installments [get]
func (h *LeaseHandler) ListInstallments(c *gin.Context) {
	var f leaseapp.InstallmentListFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		h.BindError(c, err)
		return
	}
	if !h.scopeListFilter(c, &f.PropertyID) {
		return
	}
	page, err := h.service.ListInstallments(c.Request.Context(), f)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	SuccessPage(c, page)
}

// Activate godoc
// @ID           activateLease
// @Summary      Activate a pending lease
// @Tags         leases
// @Produce      json
// @Param        id path string true "Lease ID" format(uuid)
// @Success      200 {object} APIResponse[leaseapp.LeaseResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /leases/{id}/activate [patch]
func (h *LeaseHandler) Activate(c *gin.Context) {
	h.transition(c, h.service.ActivateLease)
}

// Terminate godoc
// @ID           terminateLease
// @Summary      Terminate a lease early
// @Description  The body is optional; the termination date defaults to today. The paid-through date is kept.
// @Tags         leases
// @Accept       json
// @Produce      json
// @Param        id      path string                          true  "Lease ID" format(uuid)
// @Param        request body leaseapp.TerminateLeaseRequest false "Termination date"
// @Success      200 {object} APIResponse[leaseapp.LeaseResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /leases/{id}/terminate [patch]
func (h *LeaseHandler) Terminate(c *gin.Context) {
	var req leaseapp.TerminateLeaseRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.BindError(c, err)
		return
	}
	h.transition(c, func(ctx context.Context, id uuid.UUID) (*leaseapp.LeaseResponse, error) {
		return h.service.TerminateLease(ctx, id, req)
	})
}

// Expire godoc
// @ID           expireLease
// @Summary      Expire an active lease past its end date
// @Tags         leases
// @Produce      json
// @Param        id path string true "Lease ID" format(uuid)
// @Success      200 {object} APIResponse[leaseapp.LeaseResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /leases/{id}/expire [patch]
func (h *LeaseHandler) Expire(c *gin.Context) {
	h.transition(c, h.service.ExpireLease)
}

// Reconcile godoc
// @ID           reconcileLease
// @Summary      Recompute the paid-through date
// @Description  Rebuilds installment balances and the paid-through date from the lease's rent invoices, repairing advancements that failed after a payment.
// @Tags         leases
// @Produce      json
// @Param        id path string true "Lease ID" format(uuid)
// @Success      200 {object} APIResponse[leaseapp.LeaseResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /leases/{id}/reconcile [post]
func (h *LeaseHandler) Reconcile(c *gin.Context) {
	h.transition(c, h.service.ReconcilePaidThrough)
}

// Delete godoc
// @ID           deleteLease
// @Summary      Delete a lease
// @Description  Removes the lease with its installments and rent invoices. Fails when any of those invoices has received a payment.
// @Tags         leases
// @Param        id path string true "Lease ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /leases/{id} [delete]
func (h *LeaseHandler) Delete(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok || !h.authorizeExisting(c, id) {
		return
	}
	if err := h.service.DeleteLease(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

func (h *LeaseHandler) transition(c *gin.Context, fn func(context.Context, uuid.UUID) (*leaseapp.LeaseResponse, error)) {
	id, ok := h.pathID(c)
	if !ok || !h.authorizeExisting(c, id) {
		return
	}
	lease, err := fn(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, lease)
}

func (h *LeaseHandler) authorizeExisting(c *gin.Context, id uuid.UUID) bool {
	if !scopedToken(c) {
		return true
	}
	lease, err := h.service.GetLease(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return false
	}
	return h.authorizeProperty(c, lease.PropertyID)
}
