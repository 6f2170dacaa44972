package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/propledger/backend/internal/domain/lease"
	"github.com/propledger/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLease(t *testing.T, propertyID, unitID uuid.UUID, mode lease.BillingMode, y, m, d int) *lease.Lease {
	t.Helper()
	l, err := lease.NewLease(lease.LeaseSpec{
		PropertyID:  propertyID,
		UnitID:      unitID,
		TenantID:    uuid.New(),
		StartDate:   shared.NewDate(y, time.Month(m), d),
		PlanMonths:  3,
		BillingMode: mode,
		RentCents:   50000,
	}, testToday)
	require.NoError(t, err)
	return l
}

func TestGormLeaseRepository_CRUD(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormLeaseRepository(db)
	ctx := context.Background()

	propertyID, unitID := uuid.New(), uuid.New()
	l := newTestLease(t, propertyID, unitID, lease.BillingModeMonthly, 2025, 1, 1)
	require.NoError(t, repo.Create(ctx, l))

	found, err := repo.FindByID(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, lease.LeaseStatusActive, found.Status)
	assert.Equal(t, shared.NewDate(2025, 3, 31), found.EndDate)
	assert.Nil(t, found.PaidThroughDate)

	changed, err := found.AdvancePaidThrough(shared.NewDate(2025, 2, 1))
	require.NoError(t, err)
	require.True(t, changed)
	require.NoError(t, repo.SaveWithLock(ctx, found))

	locked, err := repo.FindByIDForUpdate(ctx, l.ID)
	require.NoError(t, err)
	require.NotNil(t, locked.PaidThroughDate)
	assert.Equal(t, shared.NewDate(2025, 2, 1), *locked.PaidThroughDate)
	assert.Equal(t, 2, locked.Version)

	// the original copy is stale now
	err = repo.SaveWithLock(ctx, l)
	assert.True(t, shared.IsConcurrencyConflict(err))

	require.NoError(t, repo.Delete(ctx, l.ID))
	_, err = repo.FindByID(ctx, l.ID)
	assert.True(t, shared.IsKind(err, shared.KindNotFound))
	assert.True(t, shared.IsKind(repo.Delete(ctx, l.ID), shared.KindNotFound))
}

func TestGormLeaseRepository_PeriodQueries(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormLeaseRepository(db)
	ctx := context.Background()

	propertyID := uuid.New()
	unitA, unitB := uuid.New(), uuid.New()

	janToMar := newTestLease(t, propertyID, unitA, lease.BillingModeTerm, 2025, 1, 1)
	aprToJun := newTestLease(t, propertyID, unitB, lease.BillingModeTerm, 2025, 4, 1)
	otherProperty := newTestLease(t, uuid.New(), uuid.New(), lease.BillingModeTerm, 2025, 1, 1)
	terminated := newTestLease(t, propertyID, uuid.New(), lease.BillingModeTerm, 2025, 1, 1)
	require.NoError(t, terminated.Terminate(shared.NewDate(2025, 1, 10)))

	for _, l := range []*lease.Lease{janToMar, aprToJun, otherProperty, terminated} {
		require.NoError(t, repo.Create(ctx, l))
	}

	active, err := repo.FindActiveForPropertyInPeriod(ctx, propertyID, shared.NewDate(2025, 3, 1), shared.NewDate(2025, 3, 31))
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, janToMar.ID, active[0].ID)

	properties, err := repo.FindPropertiesWithActiveLeases(ctx, shared.NewDate(2025, 3, 1), shared.NewDate(2025, 3, 31))
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{propertyID, otherProperty.PropertyID}, properties)

	properties, err = repo.FindPropertiesWithActiveLeases(ctx, shared.NewDate(2025, 7, 1), shared.NewDate(2025, 7, 31))
	require.NoError(t, err)
	assert.Empty(t, properties)

	overlap, err := repo.ExistsOverlappingForUnit(ctx, unitA, shared.NewDate(2025, 3, 15), shared.NewDate(2025, 6, 14), uuid.Nil)
	require.NoError(t, err)
	assert.True(t, overlap)

	overlap, err = repo.ExistsOverlappingForUnit(ctx, unitA, shared.NewDate(2025, 3, 15), shared.NewDate(2025, 6, 14), janToMar.ID)
	require.NoError(t, err)
	assert.False(t, overlap)

	overlap, err = repo.ExistsOverlappingForUnit(ctx, unitA, shared.NewDate(2025, 4, 1), shared.NewDate(2025, 6, 30), uuid.Nil)
	require.NoError(t, err)
	assert.False(t, overlap)

	status := lease.LeaseStatusPending
	pending, total, err := repo.FindAll(ctx, lease.LeaseFilter{Filter: shared.DefaultFilter(), PropertyID: &propertyID, Status: &status})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, aprToJun.ID, pending[0].ID)
}

func TestGormInstallmentRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormInstallmentRepository(db)
	ctx := context.Background()

	l := newTestLease(t, uuid.New(), uuid.New(), lease.BillingModeMonthly, 2025, 1, 1)
	installments := lease.BuildInstallments(l)
	for _, inst := range installments {
		inst.InvoiceID = uuid.New()
	}
	require.NoError(t, repo.CreateBatch(ctx, installments))
	require.NoError(t, repo.CreateBatch(ctx, nil))

	loaded, err := repo.FindByLease(ctx, l.ID)
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	for i, inst := range loaded {
		assert.Equal(t, i+1, inst.Sequence)
	}
	assert.Equal(t, shared.NewDate(2025, 2, 1), loaded[1].DueDate)

	second, err := repo.FindByInvoice(ctx, installments[1].InvoiceID)
	require.NoError(t, err)
	becamePaid, err := second.SyncBalance(0, testToday, testToday)
	require.NoError(t, err)
	require.True(t, becamePaid)
	require.NoError(t, repo.Save(ctx, second))

	reloaded, err := repo.FindByInvoice(ctx, installments[1].InvoiceID)
	require.NoError(t, err)
	assert.Equal(t, lease.InstallmentStatusPaid, reloaded.Status)
	assert.NotNil(t, reloaded.PaidAt)

	_, err = repo.FindByInvoice(ctx, uuid.New())
	assert.True(t, shared.IsKind(err, shared.KindNotFound))

	removed, err := repo.DeleteByLease(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)
}

func TestGormInstallmentRepository_FindAll(t *testing.T) {
	db := newTestDB(t)
	leases := NewGormLeaseRepository(db)
	repo := NewGormInstallmentRepository(db)
	ctx := context.Background()

	propertyID := uuid.New()
	l := newTestLease(t, propertyID, uuid.New(), lease.BillingModeMonthly, 2025, 1, 1)
	other := newTestLease(t, uuid.New(), uuid.New(), lease.BillingModeTerm, 2025, 1, 1)
	for _, x := range []*lease.Lease{l, other} {
		require.NoError(t, leases.Create(ctx, x))
		installments := lease.BuildInstallments(x)
		for _, inst := range installments {
			inst.InvoiceID = uuid.New()
		}
		require.NoError(t, repo.CreateBatch(ctx, installments))
	}

	t.Run("by id carries the lease's property and tenant", func(t *testing.T) {
		first, err := repo.FindByLease(ctx, l.ID)
		require.NoError(t, err)
		found, err := repo.FindByID(ctx, first[0].ID)
		require.NoError(t, err)
		assert.Equal(t, propertyID, found.PropertyID)
		assert.Equal(t, l.TenantID, found.TenantID)
		assert.Equal(t, 1, found.Sequence)

		_, err = repo.FindByID(ctx, uuid.New())
		assert.True(t, shared.IsKind(err, shared.KindNotFound))
	})

	t.Run("filters by property and pages by due date", func(t *testing.T) {
		filter := lease.InstallmentFilter{
			Filter:     shared.Filter{Page: 1, PageSize: 2, OrderBy: "due_date", OrderDir: "asc"},
			PropertyID: &propertyID,
		}
		page, total, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, page, 2)
		assert.Equal(t, shared.NewDate(2025, 1, 1), page[0].DueDate)
		assert.Equal(t, shared.NewDate(2025, 2, 1), page[1].DueDate)
		assert.Equal(t, propertyID, page[1].PropertyID)
	})

	t.Run("overdue follows the due date", func(t *testing.T) {
		overdue := lease.InstallmentStatusOverdue
		asOf := shared.NewDate(2025, 2, 15)
		page, total, err := repo.FindAll(ctx, lease.InstallmentFilter{
			Filter: shared.DefaultFilter(), LeaseID: &l.ID, Status: &overdue, AsOf: &asOf,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		for _, inst := range page {
			assert.Equal(t, lease.InstallmentStatusPending, inst.Status)
			assert.Equal(t, lease.InstallmentStatusOverdue, inst.StatusAsOf(asOf))
		}

		pending := lease.InstallmentStatusPending
		_, total, err = repo.FindAll(ctx, lease.InstallmentFilter{
			Filter: shared.DefaultFilter(), LeaseID: &l.ID, Status: &pending, AsOf: &asOf,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
	})
}
