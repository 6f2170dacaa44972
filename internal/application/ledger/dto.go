package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/propledger/backend/internal/domain/ledger"
	"github.com/propledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ==================== Invoice DTOs ====================

// CreateInvoiceRequest represents a request to create an invoice
type CreateInvoiceRequest struct {
	PropertyID    uuid.UUID          `json:"property_id" binding:"required"`
	TenantID      uuid.UUID          `json:"tenant_id" binding:"required"`
	UnitID        *uuid.UUID         `json:"unit_id"`
	LeaseID       *uuid.UUID         `json:"lease_id"`
	Type          string             `json:"type" binding:"required,oneof=rent water electricity service_charge penalty other"`
	AmountCents   int64              `json:"amount_cents" binding:"gte=0"`
	IssuedOn      string             `json:"issued_on" binding:"omitempty,datetime=2006-01-02"`
	DueOn         string             `json:"due_on" binding:"required,datetime=2006-01-02"`
	BillingPeriod string             `json:"billing_period" binding:"omitempty,yyyymm"`
	Notes         string             `json:"notes" binding:"max=2000"`
	Items         []InvoiceItemInput `json:"items" binding:"omitempty,dive"`
	// Issue creates the invoice directly in issued status
	Issue bool `json:"issue"`
}

// InvoiceItemInput represents a line item in the create invoice request
type InvoiceItemInput struct {
	Description    string          `json:"description" binding:"required,min=1,max=500"`
	Quantity       decimal.Decimal `json:"quantity" binding:"required"`
	UnitPriceCents int64           `json:"unit_price_cents" binding:"gte=0"`
}

// UpdateInvoiceItemRequest represents a PATCH on a draft invoice line; omitted fields keep their value
type UpdateInvoiceItemRequest struct {
	Description    *string          `json:"description" binding:"omitempty,min=1,max=500"`
	Quantity       *decimal.Decimal `json:"quantity"`
	UnitPriceCents *int64           `json:"unit_price_cents" binding:"omitempty,gte=0"`
}

// UpdateInvoiceRequest represents a PATCH on an invoice: a status transition, a notes change, or both
type UpdateInvoiceRequest struct {
	Status *string `json:"status" binding:"omitempty,oneof=issued"`
	Notes  *string `json:"notes" binding:"omitempty,max=2000"`
}

// VoidInvoiceRequest represents a request to void an invoice
type VoidInvoiceRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// InvoiceListFilter represents the query parameters of the invoice list
type InvoiceListFilter struct {
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=200"`
	OrderBy    string `form:"order_by" binding:"omitempty,oneof=created_at due_on issued_on amount_cents balance_cents"`
	OrderDir   string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	PropertyID string `form:"property_id" binding:"omitempty,uuid"`
	TenantID   string `form:"tenant_id" binding:"omitempty,uuid"`
	UnitID     string `form:"unit_id" binding:"omitempty,uuid"`
	LeaseID    string `form:"lease_id" binding:"omitempty,uuid"`
	Type       string `form:"type" binding:"omitempty,oneof=rent water electricity service_charge penalty other"`
	Status     string `form:"status" binding:"omitempty,oneof=draft issued partial paid overdue void"`
	DueFrom    string `form:"due_from" binding:"omitempty,datetime=2006-01-02"`
	DueTo      string `form:"due_to" binding:"omitempty,datetime=2006-01-02"`
}

// InvoiceItemResponse represents an invoice line in API responses
type InvoiceItemResponse struct {
	ID             uuid.UUID       `json:"id"`
	Description    string          `json:"description"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitPriceCents int64           `json:"unit_price_cents"`
	AmountCents    int64           `json:"amount_cents"`
}

// AllocationResponse represents an allocation in API responses
type AllocationResponse struct {
	ID            uuid.UUID `json:"id"`
	PaymentID     uuid.UUID `json:"payment_id"`
	InvoiceID     uuid.UUID `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
	AmountCents   int64     `json:"amount_cents"`
	AllocatedAt   time.Time `json:"allocated_at"`
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID              uuid.UUID             `json:"id"`
	InvoiceNumber   string                `json:"invoice_number"`
	PropertyID      uuid.UUID             `json:"property_id"`
	TenantID        uuid.UUID             `json:"tenant_id"`
	UnitID          *uuid.UUID            `json:"unit_id,omitempty"`
	LeaseID         *uuid.UUID            `json:"lease_id,omitempty"`
	Type            string                `json:"type"`
	Status          string                `json:"status"`
	AmountCents     int64                 `json:"amount_cents"`
	AmountPaidCents int64                 `json:"amount_paid_cents"`
	BalanceCents    int64                 `json:"balance_cents"`
	IssuedOn        string                `json:"issued_on"`
	DueOn           string                `json:"due_on"`
	BillingPeriod   string                `json:"billing_period,omitempty"`
	Notes           string                `json:"notes,omitempty"`
	Items           []InvoiceItemResponse `json:"items"`
	Allocations     []AllocationResponse  `json:"allocations,omitempty"`
	VoidedAt        *time.Time            `json:"voided_at,omitempty"`
	VoidReason      string                `json:"void_reason,omitempty"`
	Version         int                   `json:"version"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// ToInvoiceResponse converts a domain invoice to a response
func ToInvoiceResponse(inv *ledger.Invoice) InvoiceResponse {
	items := make([]InvoiceItemResponse, 0, len(inv.Items))
	for _, item := range inv.Items {
		items = append(items, InvoiceItemResponse{
			ID:             item.ID,
			Description:    item.Description,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			AmountCents:    item.AmountCents,
		})
	}
	return InvoiceResponse{
		ID:              inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		PropertyID:      inv.PropertyID,
		TenantID:        inv.TenantID,
		UnitID:          inv.UnitID,
		LeaseID:         inv.LeaseID,
		Type:            string(inv.Type),
		Status:          string(inv.Status),
		AmountCents:     inv.AmountCents,
		AmountPaidCents: inv.AmountPaidCents,
		BalanceCents:    inv.BalanceCents,
		IssuedOn:        shared.FormatDate(inv.IssuedOn),
		DueOn:           shared.FormatDate(inv.DueOn),
		BillingPeriod:   inv.BillingPeriod,
		Notes:           inv.Notes,
		Items:           items,
		VoidedAt:        inv.VoidedAt,
		VoidReason:      inv.VoidReason,
		Version:         inv.Version,
		CreatedAt:       inv.CreatedAt,
		UpdatedAt:       inv.UpdatedAt,
	}
}

// ToAllocationResponses converts allocations to responses
func ToAllocationResponses(allocations []ledger.Allocation) []AllocationResponse {
	out := make([]AllocationResponse, 0, len(allocations))
	for _, a := range allocations {
		out = append(out, AllocationResponse{
			ID:            a.ID,
			PaymentID:     a.PaymentID,
			InvoiceID:     a.InvoiceID,
			InvoiceNumber: a.InvoiceNumber,
			AmountCents:   a.AmountCents,
			AllocatedAt:   a.AllocatedAt,
		})
	}
	return out
}

// AllocationListFilter represents the query parameters of the allocation list
type AllocationListFilter struct {
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=200"`
	OrderBy    string `form:"order_by" binding:"omitempty,oneof=allocated_at amount_cents"`
	OrderDir   string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	PropertyID string `form:"property_id" binding:"omitempty,uuid"`
	TenantID   string `form:"tenant_id" binding:"omitempty,uuid"`
	PaymentID  string `form:"payment_id" binding:"omitempty,uuid"`
	InvoiceID  string `form:"invoice_id" binding:"omitempty,uuid"`
}

// PaymentAllocationResponse is an allocation read on its own, with the
// property and tenant of the payment it came from
type PaymentAllocationResponse struct {
	AllocationResponse
	PropertyID       uuid.UUID `json:"property_id"`
	TenantID         uuid.UUID `json:"tenant_id"`
	PaymentReference string    `json:"payment_reference"`
}

// ToPaymentAllocationResponse converts a joined allocation read to a response
func ToPaymentAllocationResponse(a ledger.PaymentAllocation) PaymentAllocationResponse {
	return PaymentAllocationResponse{
		AllocationResponse: ToAllocationResponses([]ledger.Allocation{a.Allocation})[0],
		PropertyID:         a.PropertyID,
		TenantID:           a.TenantID,
		PaymentReference:   a.PaymentReference,
	}
}

// ==================== Payment DTOs ====================

// RecordPaymentRequest represents a request to record and allocate a payment
type RecordPaymentRequest struct {
	PropertyID  uuid.UUID `json:"property_id" binding:"required"`
	TenantID    uuid.UUID `json:"tenant_id" binding:"required"`
	Reference   string    `json:"reference" binding:"required,min=1,max=100"`
	Method      string    `json:"method" binding:"required,oneof=cash bank_transfer mobile_money card cheque"`
	AmountCents int64     `json:"amount_cents" binding:"required,gt=0"`
	// PaidAt defaults to now when omitted
	PaidAt *time.Time `json:"paid_at"`
	Notes  string     `json:"notes" binding:"max=2000"`
}

// PaymentListFilter represents the query parameters of the payment list
type PaymentListFilter struct {
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=200"`
	OrderBy    string `form:"order_by" binding:"omitempty,oneof=created_at paid_at amount_cents"`
	OrderDir   string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	PropertyID string `form:"property_id" binding:"omitempty,uuid"`
	TenantID   string `form:"tenant_id" binding:"omitempty,uuid"`
	Method     string `form:"method" binding:"omitempty,oneof=cash bank_transfer mobile_money card cheque"`
	PaidFrom   string `form:"paid_from" binding:"omitempty,datetime=2006-01-02"`
	PaidTo     string `form:"paid_to" binding:"omitempty,datetime=2006-01-02"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID               uuid.UUID            `json:"id"`
	PropertyID       uuid.UUID            `json:"property_id"`
	TenantID         uuid.UUID            `json:"tenant_id"`
	Reference        string               `json:"reference"`
	Method           string               `json:"method"`
	AmountCents      int64                `json:"amount_cents"`
	UnallocatedCents int64                `json:"unallocated_cents"`
	PaidAt           time.Time            `json:"paid_at"`
	Notes            string               `json:"notes,omitempty"`
	Allocations      []AllocationResponse `json:"allocations"`
	CreatedAt        time.Time            `json:"created_at"`
}

// ToPaymentResponse converts a domain payment to a response
func ToPaymentResponse(p *ledger.Payment) PaymentResponse {
	return PaymentResponse{
		ID:               p.ID,
		PropertyID:       p.PropertyID,
		TenantID:         p.TenantID,
		Reference:        p.Reference,
		Method:           string(p.Method),
		AmountCents:      p.AmountCents,
		UnallocatedCents: p.UnallocatedCents,
		PaidAt:           p.PaidAt,
		Notes:            p.Notes,
		Allocations:      ToAllocationResponses(p.Allocations),
		CreatedAt:        p.CreatedAt,
	}
}

// RecordPaymentResult is the outcome of recording a payment
type RecordPaymentResult struct {
	Payment          PaymentResponse      `json:"payment"`
	Allocations      []AllocationResponse `json:"allocations"`
	UnallocatedCents int64                `json:"unallocated_cents"`
	// FullyUnallocated is set when the tenant had no open invoices to pay
	FullyUnallocated bool                `json:"fully_unallocated"`
	SettledInvoices  []uuid.UUID         `json:"settled_invoice_ids"`
	Warnings         []SettlementWarning `json:"warnings"`
}
