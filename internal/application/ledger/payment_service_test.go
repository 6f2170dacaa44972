package ledger_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	appledger "github.com/propledger/backend/internal/application/ledger"
	"github.com/propledger/backend/internal/domain/ledger"
	"github.com/propledger/backend/internal/domain/shared"
	"github.com/propledger/backend/internal/infrastructure/cache"
	"github.com/propledger/backend/internal/infrastructure/persistence"
	"github.com/propledger/backend/internal/infrastructure/strategy/allocation"
	"github.com/propledger/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type paymentEnv struct {
	db        *gorm.DB
	service   *appledger.PaymentService
	publisher *testutil.RecordingPublisher
	clock     shared.FixedClock
	property  uuid.UUID
	tenant    uuid.UUID
}

func newPaymentEnv(t *testing.T) *paymentEnv {
	t.Helper()
	return newPaymentEnvWithScope(t, nil)
}

func newPaymentEnvWithScope(t *testing.T, wrap func(appledger.TransactionScope) appledger.TransactionScope) *paymentEnv {
	t.Helper()

	db := testutil.NewSQLiteDB(t)
	var scope appledger.TransactionScope = persistence.NewGormTransactionScope(db)
	if wrap != nil {
		scope = wrap(scope)
	}
	env := &paymentEnv{
		db:        db,
		publisher: testutil.NewRecordingPublisher(),
		clock:     testutil.ClockAt(2025, 1, 15),
		property:  uuid.New(),
		tenant:    uuid.New(),
	}
	env.service = appledger.NewPaymentService(
		scope,
		persistence.NewGormPaymentRepository(db),
		ledger.NewAllocationService(allocation.NewOldestFirstAllocationStrategy()),
		cache.NewKeyedMutexLocker(),
		env.publisher,
		env.clock,
		nil,
		appledger.DefaultPaymentServiceConfig(),
	)
	return env
}

func (e *paymentEnv) invoice(t *testing.T, dueOn string, amount int64) *ledger.Invoice {
	t.Helper()
	due, err := shared.ParseDate(dueOn)
	require.NoError(t, err)
	return testutil.CreateInvoice(t, e.db, testutil.InvoiceFixture{
		PropertyID:  e.property,
		TenantID:    e.tenant,
		AmountCents: amount,
		IssuedOn:    due,
		DueOn:       due,
	}, shared.Today(e.clock))
}

func (e *paymentEnv) pay(t *testing.T, reference string, amount int64) *appledger.RecordPaymentResult {
	t.Helper()
	res, err := e.service.RecordPayment(context.Background(), appledger.RecordPaymentRequest{
		PropertyID:  e.property,
		TenantID:    e.tenant,
		Reference:   reference,
		Method:      "bank_transfer",
		AmountCents: amount,
	})
	require.NoError(t, err)
	return res
}

func TestRecordPayment_SettlesOldestFirst(t *testing.T) {
	env := newPaymentEnv(t)
	inv1 := env.invoice(t, "2025-01-01", 100)
	inv2 := env.invoice(t, "2025-02-01", 150)

	res := env.pay(t, "REF-1", 120)

	require.Len(t, res.Allocations, 2)
	assert.Equal(t, inv1.ID, res.Allocations[0].InvoiceID)
	assert.Equal(t, int64(100), res.Allocations[0].AmountCents)
	assert.Equal(t, inv2.ID, res.Allocations[1].InvoiceID)
	assert.Equal(t, int64(20), res.Allocations[1].AmountCents)
	assert.Zero(t, res.UnallocatedCents)
	assert.Equal(t, []uuid.UUID{inv1.ID}, res.SettledInvoices)
	assert.Empty(t, res.Warnings)

	stored1 := testutil.ReloadInvoice(t, env.db, inv1.ID)
	assert.Equal(t, ledger.InvoiceStatusPaid, stored1.Status)
	assert.Zero(t, stored1.BalanceCents)
	stored2 := testutil.ReloadInvoice(t, env.db, inv2.ID)
	assert.Equal(t, ledger.InvoiceStatusPartial, stored2.Status)
	assert.Equal(t, int64(130), stored2.BalanceCents)

	assert.Equal(t, 1, env.publisher.Count(ledger.EventTypePaymentRecorded))
	assert.Equal(t, 1, env.publisher.Count(ledger.EventTypeInvoicePaid))
}

func TestRecordPayment_OverpaymentStaysUnallocated(t *testing.T) {
	env := newPaymentEnv(t)
	inv1 := env.invoice(t, "2025-01-01", 100)
	inv2 := env.invoice(t, "2025-02-01", 150)

	res := env.pay(t, "REF-1", 300)

	assert.Equal(t, int64(50), res.UnallocatedCents)
	assert.ElementsMatch(t, []uuid.UUID{inv1.ID, inv2.ID}, res.SettledInvoices)

	stored, err := env.service.GetPayment(context.Background(), res.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), stored.UnallocatedCents)
	assert.Len(t, stored.Allocations, 2)

	remainder, err := env.service.GetUnallocated(context.Background(), res.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), remainder)
}

func TestRecordPayment_NoOpenInvoices(t *testing.T) {
	env := newPaymentEnv(t)

	res := env.pay(t, "REF-1", 500)

	assert.Empty(t, res.Allocations)
	assert.Equal(t, int64(500), res.UnallocatedCents)
	assert.True(t, res.FullyUnallocated)
	assert.Equal(t, []string{ledger.EventTypePaymentRecorded}, env.publisher.EventTypes())
}

func TestRecordPayment_IgnoresDraftVoidAndOtherProperties(t *testing.T) {
	env := newPaymentEnv(t)
	today := shared.Today(env.clock)
	draft := testutil.CreateInvoice(t, env.db, testutil.InvoiceFixture{
		PropertyID: env.property, TenantID: env.tenant, AmountCents: 100, Draft: true,
	}, today)
	elsewhere := testutil.CreateInvoice(t, env.db, testutil.InvoiceFixture{
		PropertyID: uuid.New(), TenantID: env.tenant, AmountCents: 100,
	}, today)
	target := env.invoice(t, "2025-01-10", 100)

	res := env.pay(t, "REF-1", 100)

	require.Len(t, res.Allocations, 1)
	assert.Equal(t, target.ID, res.Allocations[0].InvoiceID)
	assert.Equal(t, ledger.InvoiceStatusDraft, testutil.ReloadInvoice(t, env.db, draft.ID).Status)
	assert.Equal(t, int64(100), testutil.ReloadInvoice(t, env.db, elsewhere.ID).BalanceCents)
}

func TestRecordPayment_DuplicateReference(t *testing.T) {
	env := newPaymentEnv(t)
	inv := env.invoice(t, "2025-01-01", 100)
	env.pay(t, "REF-1", 40)

	_, err := env.service.RecordPayment(context.Background(), appledger.RecordPaymentRequest{
		PropertyID:  env.property,
		TenantID:    env.tenant,
		Reference:   "REF-1",
		Method:      "cash",
		AmountCents: 60,
	})

	require.Error(t, err)
	de, ok := shared.AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, shared.KindConflict, de.Kind)
	assert.Equal(t, "DUPLICATE_REFERENCE", de.Code)
	assert.Equal(t, int64(60), testutil.ReloadInvoice(t, env.db, inv.ID).BalanceCents)
}

func TestRecordPayment_RejectsInvalidInput(t *testing.T) {
	env := newPaymentEnv(t)

	tests := []struct {
		name string
		req  appledger.RecordPaymentRequest
		code string
	}{
		{"zero amount", appledger.RecordPaymentRequest{PropertyID: env.property, TenantID: env.tenant, Reference: "R", Method: "cash"}, "INVALID_AMOUNT"},
		{"unknown method", appledger.RecordPaymentRequest{PropertyID: env.property, TenantID: env.tenant, Reference: "R", Method: "barter", AmountCents: 10}, "INVALID_METHOD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.service.RecordPayment(context.Background(), tt.req)
			de, ok := shared.AsDomainError(err)
			require.True(t, ok)
			assert.Equal(t, shared.KindValidation, de.Kind)
			assert.Equal(t, tt.code, de.Code)
		})
	}
}

func TestRecordPayment_ConcurrentPaymentsNeverOverAllocate(t *testing.T) {
	env := newPaymentEnv(t)
	inv := env.invoice(t, "2025-01-01", 100)

	var wg sync.WaitGroup
	results := make([]*appledger.RecordPaymentResult, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = env.service.RecordPayment(context.Background(), appledger.RecordPaymentRequest{
				PropertyID:  env.property,
				TenantID:    env.tenant,
				Reference:   uuid.NewString(),
				Method:      "mobile_money",
				AmountCents: 60,
			})
		}(i)
	}
	wg.Wait()

	var allocated []int64
	for i := range results {
		require.NoError(t, errs[i])
		for _, a := range results[i].Allocations {
			allocated = append(allocated, a.AmountCents)
		}
	}
	assert.ElementsMatch(t, []int64{60, 40}, allocated)

	stored := testutil.ReloadInvoice(t, env.db, inv.ID)
	assert.Equal(t, int64(100), stored.AmountPaidCents)
	assert.Equal(t, ledger.InvoiceStatusPaid, stored.Status)
}

// conflictingScope fails the first n transactions with a concurrency conflict
type conflictingScope struct {
	appledger.TransactionScope
	mu        sync.Mutex
	remaining int
	calls     int
}

func (s *conflictingScope) Execute(ctx context.Context, fn func(repos appledger.TransactionalRepositories) error) error {
	s.mu.Lock()
	s.calls++
	fail := s.remaining > 0
	if fail {
		s.remaining--
	}
	s.mu.Unlock()
	if fail {
		return shared.NewConcurrencyConflictError("invoice changed")
	}
	return s.TransactionScope.Execute(ctx, fn)
}

func TestRecordPayment_RetriesConcurrencyConflicts(t *testing.T) {
	scope := &conflictingScope{remaining: 2}
	env := newPaymentEnvWithScope(t, func(inner appledger.TransactionScope) appledger.TransactionScope {
		scope.TransactionScope = inner
		return scope
	})
	env.invoice(t, "2025-01-01", 100)

	res := env.pay(t, "REF-1", 100)

	assert.Len(t, res.Allocations, 1)
	assert.Equal(t, 3, scope.calls)
}

func TestRecordPayment_GivesUpAfterRetries(t *testing.T) {
	scope := &conflictingScope{remaining: 10}
	env := newPaymentEnvWithScope(t, func(inner appledger.TransactionScope) appledger.TransactionScope {
		scope.TransactionScope = inner
		return scope
	})

	_, err := env.service.RecordPayment(context.Background(), appledger.RecordPaymentRequest{
		PropertyID: env.property, TenantID: env.tenant, Reference: "REF-1", Method: "cash", AmountCents: 10,
	})

	assert.True(t, shared.IsConcurrencyConflict(err))
	assert.Equal(t, 1+appledger.DefaultPaymentServiceConfig().RetryAttempts, scope.calls)
	assert.Empty(t, env.publisher.Events())
}

func TestListPayments(t *testing.T) {
	env := newPaymentEnv(t)
	env.pay(t, "REF-1", 10)
	env.pay(t, "REF-2", 20)

	page, err := env.service.ListPayments(context.Background(), appledger.PaymentListFilter{TenantID: env.tenant.String()})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Len(t, page.Items, 2)
}

func TestListAllocations(t *testing.T) {
	env := newPaymentEnv(t)
	ctx := context.Background()
	inv1 := env.invoice(t, "2025-01-01", 100)
	inv2 := env.invoice(t, "2025-02-01", 150)
	res := env.pay(t, "REF-1", 120)
	env.pay(t, "REF-2", 30)

	page, err := env.service.ListAllocations(ctx, appledger.AllocationListFilter{PaymentID: res.Payment.ID.String()})
	require.NoError(t, err)
	require.Equal(t, int64(2), page.Total)
	for _, a := range page.Items {
		assert.Equal(t, res.Payment.ID, a.PaymentID)
		assert.Equal(t, env.property, a.PropertyID)
		assert.Equal(t, env.tenant, a.TenantID)
		assert.Equal(t, "REF-1", a.PaymentReference)
	}

	page, err = env.service.ListAllocations(ctx, appledger.AllocationListFilter{InvoiceID: inv2.ID.String(), OrderBy: "amount_cents", OrderDir: "asc"})
	require.NoError(t, err)
	require.Equal(t, int64(2), page.Total)
	assert.Equal(t, int64(20), page.Items[0].AmountCents)
	assert.Equal(t, int64(30), page.Items[1].AmountCents)

	page, err = env.service.ListAllocations(ctx, appledger.AllocationListFilter{PropertyID: uuid.NewString()})
	require.NoError(t, err)
	assert.Zero(t, page.Total)

	got, err := env.service.GetAllocation(ctx, res.Allocations[0].ID)
	require.NoError(t, err)
	assert.Equal(t, inv1.ID, got.InvoiceID)
	assert.Equal(t, inv1.InvoiceNumber, got.InvoiceNumber)

	_, err = env.service.GetAllocation(ctx, uuid.New())
	assert.True(t, shared.IsKind(err, shared.KindNotFound))

	_, err = env.service.ListAllocations(ctx, appledger.AllocationListFilter{InvoiceID: "INV-1"})
	assert.True(t, shared.IsKind(err, shared.KindValidation))
}
