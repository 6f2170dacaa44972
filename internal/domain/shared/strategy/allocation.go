package strategy

import (
	"context"
	"time"
)

// Invoice is the allocation view of an open invoice
type Invoice struct {
	ID            string
	InvoiceNumber string
	IssuedOn      time.Time
	DueOn         time.Time
	BalanceCents  int64
}

// Allocation is one planned application of payment money to an invoice
type Allocation struct {
	InvoiceID          string
	InvoiceNumber      string
	AmountCents        int64
	BalanceBeforeCents int64
	BalanceAfterCents  int64
}

// AllocationContext provides context for payment allocation
type AllocationContext struct {
	TenantID     string
	PropertyID   string
	PaymentCents int64
	PaidAt       time.Time
}

// AllocationResult contains the planned allocations in application order
type AllocationResult struct {
	Allocations    []Allocation
	TotalAllocated int64
	Remaining      int64
}

// PaymentAllocationStrategy plans how a payment is spread over open invoices.
// Implementations must be deterministic: the same inputs always produce the
// same allocations in the same order.
type PaymentAllocationStrategy interface {
	Strategy
	Allocate(ctx context.Context, allocCtx AllocationContext, invoices []Invoice) (AllocationResult, error)
}
