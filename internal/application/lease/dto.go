package lease

import (
	"time"

	"github.com/google/uuid"
	"github.com/propledger/backend/internal/domain/lease"
	"github.com/propledger/backend/internal/domain/shared"
)

// CreateLeaseRequest represents a request to sign a lease
type CreateLeaseRequest struct {
	PropertyID           uuid.UUID `json:"property_id" binding:"required"`
	UnitID               uuid.UUID `json:"unit_id" binding:"required"`
	TenantID             uuid.UUID `json:"tenant_id" binding:"required"`
	StartDate            string    `json:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate              string    `json:"end_date" binding:"omitempty,datetime=2006-01-02"`
	PlanMonths           int       `json:"plan_months" binding:"required,oneof=3 6 12"`
	BillingMode          string    `json:"billing_mode" binding:"omitempty,oneof=term monthly"`
	RentCents            int64     `json:"rent_cents" binding:"required,gt=0"`
	SecurityDepositCents int64     `json:"security_deposit_cents" binding:"gte=0"`
	Notes                string    `json:"notes" binding:"max=2000"`
}

// TerminateLeaseRequest represents a request to end a lease early
type TerminateLeaseRequest struct {
	// On defaults to today
	On string `json:"on" binding:"omitempty,datetime=2006-01-02"`
}

// LeaseListFilter represents filter options for the lease list
type LeaseListFilter struct {
	PropertyID string `form:"property_id" binding:"omitempty,uuid"`
	UnitID     string `form:"unit_id" binding:"omitempty,uuid"`
	TenantID   string `form:"tenant_id" binding:"omitempty,uuid"`
	Status     string `form:"status" binding:"omitempty,oneof=pending active expired terminated"`
	Page       int    `form:"page" binding:"min=0"`
	PageSize   int    `form:"page_size" binding:"min=0,max=100"`
	OrderBy    string `form:"order_by"`
	OrderDir   string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// InstallmentListFilter represents filter options for the installment list
type InstallmentListFilter struct {
	PropertyID string `form:"property_id" binding:"omitempty,uuid"`
	TenantID   string `form:"tenant_id" binding:"omitempty,uuid"`
	LeaseID    string `form:"lease_id" binding:"omitempty,uuid"`
	Status     string `form:"status" binding:"omitempty,oneof=pending partial paid overdue"`
	DueFrom    string `form:"due_from" binding:"omitempty,datetime=2006-01-02"`
	DueTo      string `form:"due_to" binding:"omitempty,datetime=2006-01-02"`
	Page       int    `form:"page" binding:"min=0"`
	PageSize   int    `form:"page_size" binding:"min=0,max=100"`
	OrderBy    string `form:"order_by" binding:"omitempty,oneof=due_date sequence amount_cents balance_cents created_at"`
	OrderDir   string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// InstallmentResponse represents one scheduled rent amount in API responses
type InstallmentResponse struct {
	ID           uuid.UUID  `json:"id"`
	LeaseID      uuid.UUID  `json:"lease_id"`
	PropertyID   *uuid.UUID `json:"property_id,omitempty"`
	TenantID     *uuid.UUID `json:"tenant_id,omitempty"`
	InvoiceID    uuid.UUID  `json:"invoice_id"`
	Sequence     int        `json:"sequence"`
	DueDate      string     `json:"due_date"`
	AmountCents  int64      `json:"amount_cents"`
	BalanceCents int64      `json:"balance_cents"`
	Status       string     `json:"status"`
	PaidAt       *time.Time `json:"paid_at,omitempty"`
}

func toInstallmentResponse(inst *lease.Installment, status lease.InstallmentStatus) InstallmentResponse {
	return InstallmentResponse{
		ID:           inst.ID,
		LeaseID:      inst.LeaseID,
		InvoiceID:    inst.InvoiceID,
		Sequence:     inst.Sequence,
		DueDate:      shared.FormatDate(inst.DueDate),
		AmountCents:  inst.AmountCents,
		BalanceCents: inst.BalanceCents,
		Status:       string(status),
		PaidAt:       inst.PaidAt,
	}
}

// ToInstallmentResponse converts a standalone installment read, reporting
// the status it has on today
func ToInstallmentResponse(li *lease.LeaseInstallment, today time.Time) InstallmentResponse {
	resp := toInstallmentResponse(li.Installment, li.StatusAsOf(today))
	propertyID, tenantID := li.PropertyID, li.TenantID
	resp.PropertyID = &propertyID
	resp.TenantID = &tenantID
	return resp
}

// LeaseResponse represents a lease in API responses
type LeaseResponse struct {
	ID                   uuid.UUID             `json:"id"`
	PropertyID           uuid.UUID             `json:"property_id"`
	UnitID               uuid.UUID             `json:"unit_id"`
	TenantID             uuid.UUID             `json:"tenant_id"`
	StartDate            string                `json:"start_date"`
	EndDate              string                `json:"end_date"`
	PlanMonths           int                   `json:"plan_months"`
	BillingMode          string                `json:"billing_mode"`
	Status               string                `json:"status"`
	RentCents            int64                 `json:"rent_cents"`
	SecurityDepositCents int64                 `json:"security_deposit_cents"`
	PaidThroughDate      *string               `json:"paid_through_date"`
	TerminatedOn         *string               `json:"terminated_on,omitempty"`
	Notes                string                `json:"notes,omitempty"`
	Installments         []InstallmentResponse `json:"installments,omitempty"`
	Version              int                   `json:"version"`
	CreatedAt            time.Time             `json:"created_at"`
	UpdatedAt            time.Time             `json:"updated_at"`
}

// ToLeaseResponse converts a domain Lease to LeaseResponse
func ToLeaseResponse(l *lease.Lease, installments []*lease.Installment) LeaseResponse {
	resp := LeaseResponse{
		ID:                   l.ID,
		PropertyID:           l.PropertyID,
		UnitID:               l.UnitID,
		TenantID:             l.TenantID,
		StartDate:            shared.FormatDate(l.StartDate),
		EndDate:              shared.FormatDate(l.EndDate),
		PlanMonths:           l.PlanMonths,
		BillingMode:          string(l.BillingMode),
		Status:               string(l.Status),
		RentCents:            l.RentCents,
		SecurityDepositCents: l.SecurityDepositCents,
		PaidThroughDate:      formatOptional(l.PaidThroughDate),
		TerminatedOn:         formatOptional(l.TerminatedOn),
		Notes:                l.Notes,
		Version:              l.Version,
		CreatedAt:            l.CreatedAt,
		UpdatedAt:            l.UpdatedAt,
	}
	for _, inst := range installments {
		resp.Installments = append(resp.Installments, toInstallmentResponse(inst, inst.Status))
	}
	return resp
}

func formatOptional(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := shared.FormatDate(*t)
	return &s
}
