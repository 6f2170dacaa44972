package allocation

import (
	"context"
	"sort"

	"github.com/propledger/backend/internal/domain/shared/strategy"
)

// OldestFirstStrategyName is the registry name of the default allocation policy
const OldestFirstStrategyName = "oldest_first"

// OldestFirstAllocationStrategy pays the oldest obligations first.
// Invoices are ordered by due date, then issue date, then invoice ID, which is
// a total order, so repeated runs over the same ledger state plan identical
// allocations.
type OldestFirstAllocationStrategy struct {
	strategy.BaseStrategy
}

// NewOldestFirstAllocationStrategy creates a new oldest-first allocation strategy
func NewOldestFirstAllocationStrategy() *OldestFirstAllocationStrategy {
	return &OldestFirstAllocationStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			OldestFirstStrategyName,
			strategy.StrategyTypeAllocation,
			"Allocate payments to the tenant's oldest unpaid invoices first",
		),
	}
}

// Allocate walks the invoices oldest-first, taking min(balance, remaining) from each
func (s *OldestFirstAllocationStrategy) Allocate(
	ctx context.Context,
	allocCtx strategy.AllocationContext,
	invoices []strategy.Invoice,
) (strategy.AllocationResult, error) {
	sorted := make([]strategy.Invoice, len(invoices))
	copy(sorted, invoices)
	SortOldestFirst(sorted)

	remaining := allocCtx.PaymentCents
	allocations := make([]strategy.Allocation, 0)
	var total int64

	for _, inv := range sorted {
		if remaining <= 0 {
			break
		}
		if inv.BalanceCents <= 0 {
			continue
		}

		take := min(remaining, inv.BalanceCents)
		allocations = append(allocations, strategy.Allocation{
			InvoiceID:          inv.ID,
			InvoiceNumber:      inv.InvoiceNumber,
			AmountCents:        take,
			BalanceBeforeCents: inv.BalanceCents,
			BalanceAfterCents:  inv.BalanceCents - take,
		})

		remaining -= take
		total += take
	}

	return strategy.AllocationResult{
		Allocations:    allocations,
		TotalAllocated: total,
		Remaining:      remaining,
	}, nil
}

// SortOldestFirst orders invoices by due date, issue date, then ID ascending
func SortOldestFirst(invoices []strategy.Invoice) {
	sort.SliceStable(invoices, func(i, j int) bool {
		a, b := invoices[i], invoices[j]
		if !a.DueOn.Equal(b.DueOn) {
			return a.DueOn.Before(b.DueOn)
		}
		if !a.IssuedOn.Equal(b.IssuedOn) {
			return a.IssuedOn.Before(b.IssuedOn)
		}
		return a.ID < b.ID
	})
}

var _ strategy.PaymentAllocationStrategy = (*OldestFirstAllocationStrategy)(nil)
