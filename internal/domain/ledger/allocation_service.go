package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/propledger/backend/internal/domain/shared"
	"github.com/propledger/backend/internal/domain/shared/strategy"
)

// AllocationService distributes a payment over a tenant's open invoices.
// The ordering policy is delegated to a PaymentAllocationStrategy; this service
// enforces the ledger rules on both sides of every planned allocation.
type AllocationService struct {
	strategy strategy.PaymentAllocationStrategy
}

// NewAllocationService creates an allocation service using the given ordering strategy
func NewAllocationService(s strategy.PaymentAllocationStrategy) *AllocationService {
	return &AllocationService{strategy: s}
}

// StrategyName returns the name of the configured ordering strategy
func (s *AllocationService) StrategyName() string {
	return s.strategy.Name()
}

// AllocationOutcome is the result of allocating one payment
type AllocationOutcome struct {
	Allocations      []Allocation
	TouchedInvoices  []*Invoice
	SettledInvoices  []*Invoice
	TotalAllocated   int64
	UnallocatedCents int64
	// FullyUnallocated is informational: the tenant had nothing open to pay
	FullyUnallocated bool
}

// Allocate applies payment to the candidate invoices in the strategy's order.
// Invoices that are void, draft, paid, belong to another tenant, or carry no
// balance are never candidates. now stamps the allocations and drives overdue status.
func (s *AllocationService) Allocate(ctx context.Context, payment *Payment, invoices []*Invoice, now time.Time) (*AllocationOutcome, error) {
	if payment == nil {
		return nil, shared.NewValidationError("INVALID_PAYMENT", "Payment cannot be nil")
	}

	byID := make(map[string]*Invoice, len(invoices))
	candidates := make([]strategy.Invoice, 0, len(invoices))
	for _, inv := range invoices {
		if inv == nil || inv.TenantID != payment.TenantID || !inv.IsOpen() {
			continue
		}
		id := inv.ID.String()
		byID[id] = inv
		candidates = append(candidates, strategy.Invoice{
			ID:            id,
			InvoiceNumber: inv.InvoiceNumber,
			IssuedOn:      inv.IssuedOn,
			DueOn:         inv.DueOn,
			BalanceCents:  inv.BalanceCents,
		})
	}

	outcome := &AllocationOutcome{
		Allocations:      make([]Allocation, 0),
		TouchedInvoices:  make([]*Invoice, 0),
		SettledInvoices:  make([]*Invoice, 0),
		UnallocatedCents: payment.UnallocatedCents,
	}
	if len(candidates) == 0 || payment.UnallocatedCents == 0 {
		outcome.FullyUnallocated = payment.AllocatedCents() == 0
		return outcome, nil
	}

	plan, err := s.strategy.Allocate(ctx, strategy.AllocationContext{
		TenantID:     payment.TenantID.String(),
		PropertyID:   payment.PropertyID.String(),
		PaymentCents: payment.UnallocatedCents,
		PaidAt:       payment.PaidAt,
	}, candidates)
	if err != nil {
		return nil, fmt.Errorf("allocation strategy %s failed: %w", s.strategy.Name(), err)
	}

	for _, planned := range plan.Allocations {
		inv, ok := byID[planned.InvoiceID]
		if !ok {
			return nil, shared.NewValidationError("UNKNOWN_INVOICE",
				fmt.Sprintf("Strategy planned an allocation to unknown invoice %s", planned.InvoiceID))
		}
		take := min(planned.AmountCents, inv.BalanceCents, payment.UnallocatedCents)
		if take <= 0 {
			continue
		}
		alloc, err := payment.AllocateTo(inv, take, now)
		if err != nil {
			return nil, err
		}
		outcome.Allocations = append(outcome.Allocations, alloc)
		outcome.TouchedInvoices = append(outcome.TouchedInvoices, inv)
		if inv.Status == InvoiceStatusPaid {
			outcome.SettledInvoices = append(outcome.SettledInvoices, inv)
		}
		outcome.TotalAllocated += take
		if payment.UnallocatedCents == 0 {
			break
		}
	}

	outcome.UnallocatedCents = payment.UnallocatedCents
	outcome.FullyUnallocated = len(outcome.Allocations) == 0
	return outcome, nil
}
