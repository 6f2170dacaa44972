package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/propledger/backend/internal/domain/shared"
)

// PaymentMethod represents how a payment was received
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodMobileMoney  PaymentMethod = "mobile_money"
	PaymentMethodCheque       PaymentMethod = "cheque"
	PaymentMethodCard         PaymentMethod = "card"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodMobileMoney,
		PaymentMethodCheque, PaymentMethodCard:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// MaxReferenceLength bounds the business reference
const MaxReferenceLength = 100

// Allocation links part of a payment to an invoice. Allocations are append-only.
type Allocation struct {
	ID            uuid.UUID
	PaymentID     uuid.UUID
	InvoiceID     uuid.UUID
	InvoiceNumber string
	AmountCents   int64
	AllocatedAt   time.Time
}

// Payment is money received from a tenant.
// UnallocatedCents always equals AmountCents minus the sum of its allocations.
type Payment struct {
	shared.BaseAggregateRoot
	PropertyID       uuid.UUID
	TenantID         uuid.UUID
	Reference        string
	Method           PaymentMethod
	AmountCents      int64
	UnallocatedCents int64
	PaidAt           time.Time
	Notes            string
	Allocations      []Allocation
}

// PaymentSpec holds the inputs for recording a payment
type PaymentSpec struct {
	PropertyID  uuid.UUID
	TenantID    uuid.UUID
	Reference   string
	Method      PaymentMethod
	AmountCents int64
	PaidAt      time.Time
	Notes       string
}

// Validate checks the payment fields without creating a payment
func (s PaymentSpec) Validate() error {
	if s.PropertyID == uuid.Nil {
		return shared.NewValidationError("INVALID_PROPERTY", "Property ID cannot be empty")
	}
	if s.TenantID == uuid.Nil {
		return shared.NewValidationError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if s.AmountCents <= 0 {
		return shared.NewValidationError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	ref := strings.TrimSpace(s.Reference)
	if ref == "" {
		return shared.NewValidationError("INVALID_REFERENCE", "Payment reference cannot be empty")
	}
	if len(ref) > MaxReferenceLength {
		return shared.NewValidationError("INVALID_REFERENCE",
			fmt.Sprintf("Payment reference cannot exceed %d characters", MaxReferenceLength))
	}
	if !s.Method.IsValid() {
		return shared.NewValidationError("INVALID_METHOD", fmt.Sprintf("Invalid payment method %q", s.Method))
	}
	if s.PaidAt.IsZero() {
		return shared.NewValidationError("INVALID_DATE", "Payment date is required")
	}
	return nil
}

// NewPayment creates a new, fully unallocated payment
func NewPayment(spec PaymentSpec) (*Payment, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	p := &Payment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		PropertyID:        spec.PropertyID,
		TenantID:          spec.TenantID,
		Reference:         strings.TrimSpace(spec.Reference),
		Method:            spec.Method,
		AmountCents:       spec.AmountCents,
		UnallocatedCents:  spec.AmountCents,
		PaidAt:            spec.PaidAt,
		Notes:             spec.Notes,
		Allocations:       make([]Allocation, 0),
	}
	p.AddDomainEvent(NewPaymentRecordedEvent(p))
	return p, nil
}

// AllocateTo applies amountCents of this payment to the invoice, updating both sides.
// Both the payment remainder and the invoice balance are checked before anything changes.
func (p *Payment) AllocateTo(inv *Invoice, amountCents int64, now time.Time) (Allocation, error) {
	if inv == nil {
		return Allocation{}, shared.NewValidationError("INVALID_INVOICE", "Invoice cannot be nil")
	}
	if amountCents <= 0 {
		return Allocation{}, shared.NewValidationError("INVALID_AMOUNT", "Allocation amount must be positive")
	}
	if amountCents > p.UnallocatedCents {
		return Allocation{}, shared.NewOverpaymentError(fmt.Sprintf(
			"Allocation %d exceeds payment %s unallocated amount %d", amountCents, p.Reference, p.UnallocatedCents))
	}
	if inv.TenantID != p.TenantID {
		return Allocation{}, shared.NewValidationError("TENANT_MISMATCH", "Invoice belongs to a different tenant")
	}

	if err := inv.ApplyPayment(amountCents, p.ID, shared.Date(now)); err != nil {
		return Allocation{}, err
	}

	alloc := Allocation{
		ID:            uuid.New(),
		PaymentID:     p.ID,
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		AmountCents:   amountCents,
		AllocatedAt:   now,
	}
	p.Allocations = append(p.Allocations, alloc)
	p.UnallocatedCents -= amountCents
	p.Touch()
	p.AddDomainEvent(NewPaymentAllocatedEvent(p, alloc))
	return alloc, nil
}

// AllocatedCents returns the sum of all allocations
func (p *Payment) AllocatedCents() int64 {
	var total int64
	for _, a := range p.Allocations {
		total += a.AmountCents
	}
	return total
}

// IsFullyAllocated returns true when nothing remains to apply
func (p *Payment) IsFullyAllocated() bool {
	return p.UnallocatedCents == 0
}
