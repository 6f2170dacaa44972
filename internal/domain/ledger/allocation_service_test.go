package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/propledger/backend/internal/domain/ledger"
	"github.com/propledger/backend/internal/domain/shared"
	"github.com/propledger/backend/internal/infrastructure/strategy/allocation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	propertyID = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	tenantID   = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	now        = time.Date(2025, 1, 20, 9, 30, 0, 0, time.UTC)
)

func newService() *ledger.AllocationService {
	return ledger.NewAllocationService(allocation.NewOldestFirstAllocationStrategy())
}

func openInvoice(t *testing.T, amount int64, dueOn time.Time) *ledger.Invoice {
	t.Helper()
	inv, err := ledger.NewInvoice(ledger.InvoiceSpec{
		PropertyID:  propertyID,
		TenantID:    tenantID,
		Type:        ledger.InvoiceTypeRent,
		AmountCents: amount,
		IssuedOn:    dueOn.AddDate(0, -1, 0),
		DueOn:       dueOn,
		Issue:       true,
	}, shared.Date(now))
	require.NoError(t, err)
	return inv
}

func newPayment(t *testing.T, amount int64) *ledger.Payment {
	t.Helper()
	p, err := ledger.NewPayment(ledger.PaymentSpec{
		PropertyID:  propertyID,
		TenantID:    tenantID,
		Reference:   "MPESA-" + uuid.NewString()[:8],
		Method:      ledger.PaymentMethodMobileMoney,
		AmountCents: amount,
		PaidAt:      now,
	})
	require.NoError(t, err)
	return p
}

func assertPaymentInvariant(t *testing.T, p *ledger.Payment) {
	t.Helper()
	assert.Equal(t, p.AmountCents-p.AllocatedCents(), p.UnallocatedCents)
	assert.GreaterOrEqual(t, p.UnallocatedCents, int64(0))
}

func TestAllocationService_SettlesOldestThenPartial(t *testing.T) {
	inv1 := openInvoice(t, 100, shared.NewDate(2025, 1, 1))
	inv2 := openInvoice(t, 150, shared.NewDate(2025, 2, 1))
	payment := newPayment(t, 120)

	outcome, err := newService().Allocate(context.Background(), payment, []*ledger.Invoice{inv2, inv1}, now)
	require.NoError(t, err)

	require.Len(t, outcome.Allocations, 2)
	assert.Equal(t, inv1.ID, outcome.Allocations[0].InvoiceID)
	assert.Equal(t, int64(100), outcome.Allocations[0].AmountCents)
	assert.Equal(t, inv2.ID, outcome.Allocations[1].InvoiceID)
	assert.Equal(t, int64(20), outcome.Allocations[1].AmountCents)

	assert.Equal(t, ledger.InvoiceStatusPaid, inv1.Status)
	assert.Equal(t, ledger.InvoiceStatusPartial, inv2.Status)
	assert.Equal(t, int64(130), inv2.BalanceCents)
	assert.Equal(t, int64(0), payment.UnallocatedCents)
	assert.Equal(t, []*ledger.Invoice{inv1}, outcome.SettledInvoices)
	assertPaymentInvariant(t, payment)
}

func TestAllocationService_OverpaymentLeavesCredit(t *testing.T) {
	inv1 := openInvoice(t, 100, shared.NewDate(2025, 1, 1))
	inv2 := openInvoice(t, 150, shared.NewDate(2025, 2, 1))
	payment := newPayment(t, 300)

	outcome, err := newService().Allocate(context.Background(), payment, []*ledger.Invoice{inv1, inv2}, now)
	require.NoError(t, err)

	assert.Equal(t, ledger.InvoiceStatusPaid, inv1.Status)
	assert.Equal(t, ledger.InvoiceStatusPaid, inv2.Status)
	assert.Equal(t, int64(50), payment.UnallocatedCents)
	assert.Equal(t, int64(50), outcome.UnallocatedCents)
	assert.Equal(t, int64(250), outcome.TotalAllocated)
	assert.False(t, outcome.FullyUnallocated)
	assertPaymentInvariant(t, payment)
}

func TestAllocationService_NoOpenInvoicesKeepsFullCredit(t *testing.T) {
	payment := newPayment(t, 500)

	outcome, err := newService().Allocate(context.Background(), payment, nil, now)
	require.NoError(t, err)

	assert.Empty(t, outcome.Allocations)
	assert.True(t, outcome.FullyUnallocated)
	assert.Equal(t, int64(500), payment.UnallocatedCents)
	assertPaymentInvariant(t, payment)
}

func TestAllocationService_ExcludesIneligibleInvoices(t *testing.T) {
	voided := openInvoice(t, 100, shared.NewDate(2024, 10, 1))
	require.NoError(t, voided.Void("error", now))

	paid := openInvoice(t, 100, shared.NewDate(2024, 11, 1))
	require.NoError(t, paid.ApplyPayment(100, uuid.New(), shared.Date(now)))

	other := openInvoice(t, 100, shared.NewDate(2024, 9, 1))
	other.TenantID = uuid.New()

	draft, err := ledger.NewInvoice(ledger.InvoiceSpec{
		PropertyID: propertyID, TenantID: tenantID, Type: ledger.InvoiceTypeRent,
		AmountCents: 100, IssuedOn: shared.NewDate(2024, 8, 1), DueOn: shared.NewDate(2024, 8, 1),
	}, shared.Date(now))
	require.NoError(t, err)

	target := openInvoice(t, 100, shared.NewDate(2025, 1, 1))
	payment := newPayment(t, 60)

	outcome, err := newService().Allocate(context.Background(), payment,
		[]*ledger.Invoice{voided, paid, other, draft, target}, now)
	require.NoError(t, err)

	require.Len(t, outcome.Allocations, 1)
	assert.Equal(t, target.ID, outcome.Allocations[0].InvoiceID)
	assert.Equal(t, ledger.InvoiceStatusVoid, voided.Status)
	assert.Equal(t, int64(100), other.BalanceCents)
}

func TestAllocationService_Deterministic(t *testing.T) {
	due := shared.NewDate(2025, 1, 1)
	ids := []uuid.UUID{
		uuid.MustParse("cccccccc-0000-0000-0000-000000000000"),
		uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000000"),
		uuid.MustParse("bbbbbbbb-0000-0000-0000-000000000000"),
	}

	run := func() []ledger.Allocation {
		invoices := make([]*ledger.Invoice, 0, len(ids))
		for _, id := range ids {
			inv := openInvoice(t, 50, due)
			inv.ID = id
			invoices = append(invoices, inv)
		}
		outcome, err := newService().Allocate(context.Background(), newPayment(t, 120), invoices, now)
		require.NoError(t, err)
		return outcome.Allocations
	}

	first := run()
	require.Len(t, first, 3)
	assert.Equal(t, ids[1], first[0].InvoiceID)
	assert.Equal(t, ids[2], first[1].InvoiceID)
	assert.Equal(t, ids[0], first[2].InvoiceID)
	assert.Equal(t, int64(20), first[2].AmountCents)

	for i := 0; i < 5; i++ {
		again := run()
		for j := range first {
			assert.Equal(t, first[j].InvoiceID, again[j].InvoiceID)
			assert.Equal(t, first[j].AmountCents, again[j].AmountCents)
		}
	}
}

func TestAllocationService_AllocationCapPerInvoice(t *testing.T) {
	inv := openInvoice(t, 100, shared.NewDate(2025, 1, 1))
	svc := newService()

	var total int64
	for _, amount := range []int64{60, 60, 60} {
		p := newPayment(t, amount)
		outcome, err := svc.Allocate(context.Background(), p, []*ledger.Invoice{inv}, now)
		require.NoError(t, err)
		total += outcome.TotalAllocated
		assertPaymentInvariant(t, p)
	}

	assert.Equal(t, int64(100), total)
	assert.Equal(t, int64(0), inv.BalanceCents)
	assert.Equal(t, ledger.InvoiceStatusPaid, inv.Status)
}
