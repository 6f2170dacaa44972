package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/propledger/backend/internal/domain/shared"
)

// Aggregate type names
const (
	AggregateTypeInvoice = "Invoice"
	AggregateTypePayment = "Payment"
)

// Event type names
const (
	EventTypeInvoiceCreated        = "InvoiceCreated"
	EventTypeInvoiceIssued         = "InvoiceIssued"
	EventTypeInvoicePaymentApplied = "InvoicePaymentApplied"
	EventTypeInvoicePaid           = "InvoicePaid"
	EventTypeInvoiceVoided         = "InvoiceVoided"
	EventTypeInvoiceItemsChanged   = "InvoiceItemsChanged"
	EventTypePaymentRecorded       = "PaymentRecorded"
	EventTypePaymentAllocated      = "PaymentAllocated"
)

// InvoiceCreatedEvent is raised when an invoice is created
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID     `json:"invoice_id"`
	InvoiceNumber string        `json:"invoice_number"`
	PropertyID    uuid.UUID     `json:"property_id"`
	LeaseID       *uuid.UUID    `json:"lease_id,omitempty"`
	Type          InvoiceType   `json:"type"`
	Status        InvoiceStatus `json:"status"`
	AmountCents   int64         `json:"amount_cents"`
	DueOn         time.Time     `json:"due_on"`
}

// NewInvoiceCreatedEvent creates a new InvoiceCreatedEvent
func NewInvoiceCreatedEvent(inv *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCreated, AggregateTypeInvoice, inv.ID, inv.TenantID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		PropertyID:      inv.PropertyID,
		LeaseID:         inv.LeaseID,
		Type:            inv.Type,
		Status:          inv.Status,
		AmountCents:     inv.AmountCents,
		DueOn:           inv.DueOn,
	}
}

// InvoiceIssuedEvent is raised when a draft invoice is issued
type InvoiceIssuedEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
	AmountCents   int64     `json:"amount_cents"`
}

// NewInvoiceIssuedEvent creates a new InvoiceIssuedEvent
func NewInvoiceIssuedEvent(inv *Invoice) *InvoiceIssuedEvent {
	return &InvoiceIssuedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceIssued, AggregateTypeInvoice, inv.ID, inv.TenantID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		AmountCents:     inv.AmountCents,
	}
}

// InvoiceItemsChangedEvent is raised when the lines of a draft invoice change
type InvoiceItemsChangedEvent struct {
	shared.BaseDomainEvent
	InvoiceID   uuid.UUID `json:"invoice_id"`
	ItemID      uuid.UUID `json:"item_id"`
	Change      string    `json:"change"`
	ItemCount   int       `json:"item_count"`
	AmountCents int64     `json:"amount_cents"`
}

// NewInvoiceItemsChangedEvent creates a new InvoiceItemsChangedEvent
func NewInvoiceItemsChangedEvent(inv *Invoice, itemID uuid.UUID, change string) *InvoiceItemsChangedEvent {
	return &InvoiceItemsChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceItemsChanged, AggregateTypeInvoice, inv.ID, inv.TenantID),
		InvoiceID:       inv.ID,
		ItemID:          itemID,
		Change:          change,
		ItemCount:       len(inv.Items),
		AmountCents:     inv.AmountCents,
	}
}

// InvoicePaymentAppliedEvent is raised for every allocation applied to an invoice
type InvoicePaymentAppliedEvent struct {
	shared.BaseDomainEvent
	InvoiceID    uuid.UUID     `json:"invoice_id"`
	PaymentID    uuid.UUID     `json:"payment_id"`
	LeaseID      *uuid.UUID    `json:"lease_id,omitempty"`
	AmountCents  int64         `json:"amount_cents"`
	BalanceCents int64         `json:"balance_cents"`
	Status       InvoiceStatus `json:"status"`
}

// NewInvoicePaymentAppliedEvent creates a new InvoicePaymentAppliedEvent
func NewInvoicePaymentAppliedEvent(inv *Invoice, paymentID uuid.UUID, amountCents int64) *InvoicePaymentAppliedEvent {
	return &InvoicePaymentAppliedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoicePaymentApplied, AggregateTypeInvoice, inv.ID, inv.TenantID),
		InvoiceID:       inv.ID,
		PaymentID:       paymentID,
		LeaseID:         inv.LeaseID,
		AmountCents:     amountCents,
		BalanceCents:    inv.BalanceCents,
		Status:          inv.Status,
	}
}

// InvoicePaidEvent is raised when an invoice balance reaches zero
type InvoicePaidEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID   `json:"invoice_id"`
	InvoiceNumber string      `json:"invoice_number"`
	LeaseID       *uuid.UUID  `json:"lease_id,omitempty"`
	Type          InvoiceType `json:"type"`
	AmountCents   int64       `json:"amount_cents"`
}

// NewInvoicePaidEvent creates a new InvoicePaidEvent
func NewInvoicePaidEvent(inv *Invoice) *InvoicePaidEvent {
	return &InvoicePaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoicePaid, AggregateTypeInvoice, inv.ID, inv.TenantID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		LeaseID:         inv.LeaseID,
		Type:            inv.Type,
		AmountCents:     inv.AmountCents,
	}
}

// InvoiceVoidedEvent is raised when an invoice is voided
type InvoiceVoidedEvent struct {
	shared.BaseDomainEvent
	InvoiceID       uuid.UUID     `json:"invoice_id"`
	InvoiceNumber   string        `json:"invoice_number"`
	PreviousStatus  InvoiceStatus `json:"previous_status"`
	AmountPaidCents int64         `json:"amount_paid_cents"`
	BalanceCents    int64         `json:"balance_cents"`
	Reason          string        `json:"reason,omitempty"`
}

// NewInvoiceVoidedEvent creates a new InvoiceVoidedEvent
func NewInvoiceVoidedEvent(inv *Invoice, previous InvoiceStatus) *InvoiceVoidedEvent {
	return &InvoiceVoidedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceVoided, AggregateTypeInvoice, inv.ID, inv.TenantID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		PreviousStatus:  previous,
		AmountPaidCents: inv.AmountPaidCents,
		BalanceCents:    inv.BalanceCents,
		Reason:          inv.VoidReason,
	}
}

// PaymentRecordedEvent is raised when a payment is recorded
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	PaymentID   uuid.UUID     `json:"payment_id"`
	PropertyID  uuid.UUID     `json:"property_id"`
	Reference   string        `json:"reference"`
	Method      PaymentMethod `json:"method"`
	AmountCents int64         `json:"amount_cents"`
	PaidAt      time.Time     `json:"paid_at"`
}

// NewPaymentRecordedEvent creates a new PaymentRecordedEvent
func NewPaymentRecordedEvent(p *Payment) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRecorded, AggregateTypePayment, p.ID, p.TenantID),
		PaymentID:       p.ID,
		PropertyID:      p.PropertyID,
		Reference:       p.Reference,
		Method:          p.Method,
		AmountCents:     p.AmountCents,
		PaidAt:          p.PaidAt,
	}
}

// PaymentAllocatedEvent is raised when part of a payment is applied to an invoice
type PaymentAllocatedEvent struct {
	shared.BaseDomainEvent
	PaymentID        uuid.UUID `json:"payment_id"`
	AllocationID     uuid.UUID `json:"allocation_id"`
	InvoiceID        uuid.UUID `json:"invoice_id"`
	AmountCents      int64     `json:"amount_cents"`
	UnallocatedCents int64     `json:"unallocated_cents"`
}

// NewPaymentAllocatedEvent creates a new PaymentAllocatedEvent
func NewPaymentAllocatedEvent(p *Payment, a Allocation) *PaymentAllocatedEvent {
	return &PaymentAllocatedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypePaymentAllocated, AggregateTypePayment, p.ID, p.TenantID),
		PaymentID:        p.ID,
		AllocationID:     a.ID,
		InvoiceID:        a.InvoiceID,
		AmountCents:      a.AmountCents,
		UnallocatedCents: p.UnallocatedCents,
	}
}
