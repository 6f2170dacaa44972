package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/propledger/backend/internal/domain/ledger"
	"github.com/propledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testToday = shared.NewDate(2025, 3, 1)

type invoiceOpts struct {
	propertyID uuid.UUID
	tenantID   uuid.UUID
	unitID     *uuid.UUID
	leaseID    *uuid.UUID
	invType    ledger.InvoiceType
	amount     int64
	issuedOn   time.Time
	dueOn      time.Time
	period     string
	draft      bool
}

func newTestInvoice(t *testing.T, o invoiceOpts) *ledger.Invoice {
	t.Helper()
	if o.invType == "" {
		o.invType = ledger.InvoiceTypeRent
	}
	if o.amount == 0 {
		o.amount = 10000
	}
	if o.issuedOn.IsZero() {
		o.issuedOn = shared.NewDate(2025, 2, 1)
	}
	if o.dueOn.IsZero() {
		o.dueOn = o.issuedOn.AddDate(0, 0, 14)
	}
	inv, err := ledger.NewInvoice(ledger.InvoiceSpec{
		PropertyID:    o.propertyID,
		TenantID:      o.tenantID,
		UnitID:        o.unitID,
		LeaseID:       o.leaseID,
		Type:          o.invType,
		AmountCents:   o.amount,
		IssuedOn:      o.issuedOn,
		DueOn:         o.dueOn,
		BillingPeriod: o.period,
		Issue:         !o.draft,
	}, testToday)
	require.NoError(t, err)
	return inv
}

func TestGormInvoiceRepository_CreateAndFind(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()

	item, err := ledger.NewInvoiceItem("Water 12.5 units", decimal.RequireFromString("12.5"), 150)
	require.NoError(t, err)
	inv, err := ledger.NewInvoice(ledger.InvoiceSpec{
		PropertyID: uuid.New(),
		TenantID:   uuid.New(),
		Type:       ledger.InvoiceTypeWater,
		IssuedOn:   shared.NewDate(2025, 2, 1),
		DueOn:      shared.NewDate(2025, 2, 15),
		Items:      []ledger.InvoiceItem{item},
		Issue:      true,
	}, testToday)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, inv))

	found, err := repo.FindByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, inv.InvoiceNumber, found.InvoiceNumber)
	assert.Equal(t, int64(1875), found.AmountCents)
	assert.Equal(t, shared.NewDate(2025, 2, 15), found.DueOn)
	assert.Equal(t, 1, found.Version)
	require.Len(t, found.Items, 1)
	assert.True(t, found.Items[0].Quantity.Equal(decimal.RequireFromString("12.5")))

	byNumber, err := repo.FindByNumber(ctx, inv.InvoiceNumber)
	require.NoError(t, err)
	assert.Equal(t, inv.ID, byNumber.ID)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.True(t, shared.IsKind(err, shared.KindNotFound))
}

func TestGormInvoiceRepository_SaveItems(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()

	first, err := ledger.NewInvoiceItem("Security", decimal.NewFromInt(1), 2500)
	require.NoError(t, err)
	inv, err := ledger.NewInvoice(ledger.InvoiceSpec{
		PropertyID: uuid.New(),
		TenantID:   uuid.New(),
		Type:       ledger.InvoiceTypeServiceCharge,
		IssuedOn:   shared.NewDate(2025, 2, 1),
		DueOn:      shared.NewDate(2025, 2, 15),
		Items:      []ledger.InvoiceItem{first},
	}, testToday)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, inv))

	second, err := ledger.NewInvoiceItem("Garbage", decimal.NewFromInt(2), 300)
	require.NoError(t, err)
	require.NoError(t, inv.AddItem(second))
	require.NoError(t, repo.SaveWithLock(ctx, inv))
	require.NoError(t, repo.SaveItems(ctx, inv))

	found, err := repo.FindByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3100), found.AmountCents)
	assert.Equal(t, int64(3100), found.BalanceCents)
	require.Len(t, found.Items, 2)
	assert.Equal(t, first.ID, found.Items[0].ID)
	assert.Equal(t, second.ID, found.Items[1].ID)

	owner, err := repo.FindInvoiceIDByItem(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, inv.ID, owner)

	require.NoError(t, inv.RemoveItem(first.ID))
	require.NoError(t, repo.SaveWithLock(ctx, inv))
	require.NoError(t, repo.SaveItems(ctx, inv))

	_, err = repo.FindInvoiceIDByItem(ctx, first.ID)
	assert.True(t, shared.IsKind(err, shared.KindNotFound))
	found, err = repo.FindByID(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	assert.Equal(t, int64(600), found.AmountCents)
}

func TestGormInvoiceRepository_FindOpen_OrdersOldestFirst(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()

	propertyID, tenantID := uuid.New(), uuid.New()
	base := invoiceOpts{propertyID: propertyID, tenantID: tenantID}

	late := base
	late.dueOn = shared.NewDate(2025, 3, 20)
	late.issuedOn = shared.NewDate(2025, 3, 1)
	early := base
	early.dueOn = shared.NewDate(2025, 2, 10)
	early.issuedOn = shared.NewDate(2025, 2, 1)
	sameDueLaterIssue := base
	sameDueLaterIssue.dueOn = shared.NewDate(2025, 2, 10)
	sameDueLaterIssue.issuedOn = shared.NewDate(2025, 2, 5)
	draft := base
	draft.draft = true
	draft.dueOn = shared.NewDate(2025, 1, 1)
	draft.issuedOn = shared.NewDate(2025, 1, 1)
	otherTenant := base
	otherTenant.tenantID = uuid.New()

	invLate := newTestInvoice(t, late)
	invEarly := newTestInvoice(t, early)
	invSecond := newTestInvoice(t, sameDueLaterIssue)
	for _, inv := range []*ledger.Invoice{
		invLate, invEarly, invSecond,
		newTestInvoice(t, draft),
		newTestInvoice(t, otherTenant),
	} {
		require.NoError(t, repo.Create(ctx, inv))
	}

	voided := newTestInvoice(t, early)
	require.NoError(t, voided.Void("duplicate", time.Now()))
	require.NoError(t, repo.Create(ctx, voided))

	open, err := repo.FindOpen(ctx, ledger.OpenInvoiceQuery{TenantID: tenantID, PropertyID: &propertyID, ForUpdate: true})
	require.NoError(t, err)
	require.Len(t, open, 3)
	assert.Equal(t, invEarly.ID, open[0].ID)
	assert.Equal(t, invSecond.ID, open[1].ID)
	assert.Equal(t, invLate.ID, open[2].ID)
}

func TestGormInvoiceRepository_SaveWithLock(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()

	inv := newTestInvoice(t, invoiceOpts{propertyID: uuid.New(), tenantID: uuid.New()})
	require.NoError(t, repo.Create(ctx, inv))

	first, err := repo.FindByID(ctx, inv.ID)
	require.NoError(t, err)
	stale, err := repo.FindByID(ctx, inv.ID)
	require.NoError(t, err)

	require.NoError(t, first.ApplyPayment(4000, uuid.New(), testToday))
	require.NoError(t, repo.SaveWithLock(ctx, first))
	assert.Equal(t, 2, first.Version)

	require.NoError(t, stale.ApplyPayment(4000, uuid.New(), testToday))
	err = repo.SaveWithLock(ctx, stale)
	require.Error(t, err)
	assert.True(t, shared.IsConcurrencyConflict(err))

	reloaded, err := repo.FindByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4000), reloaded.AmountPaidCents)
	assert.Equal(t, int64(6000), reloaded.BalanceCents)
	assert.Equal(t, ledger.InvoiceStatusOverdue, reloaded.Status)
	assert.Equal(t, 2, reloaded.Version)
}

func TestGormInvoiceRepository_FindAllAndPeriodChecks(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()

	propertyID, unitID, leaseID := uuid.New(), uuid.New(), uuid.New()
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, newTestInvoice(t, invoiceOpts{
			propertyID: propertyID,
			tenantID:   uuid.New(),
			unitID:     &unitID,
			leaseID:    &leaseID,
			issuedOn:   shared.NewDate(2025, time.Month(i+1), 1),
			period:     shared.NewDate(2025, time.Month(i+1), 1).Format("2006-01"),
		})))
	}
	water := newTestInvoice(t, invoiceOpts{
		propertyID: propertyID, tenantID: uuid.New(), unitID: &unitID,
		invType: ledger.InvoiceTypeWater, period: "2025-01",
	})
	require.NoError(t, repo.Create(ctx, water))

	rent := ledger.InvoiceTypeRent
	page, total, err := repo.FindAll(ctx, ledger.InvoiceFilter{
		Filter:     shared.Filter{Page: 1, PageSize: 2, OrderBy: "due_on", OrderDir: "asc"},
		PropertyID: &propertyID,
		Type:       &rent,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 2)
	assert.True(t, page[0].DueOn.Before(page[1].DueOn))

	byLease, err := repo.FindByLease(ctx, leaseID)
	require.NoError(t, err)
	assert.Len(t, byLease, 3)

	exists, err := repo.ExistsActiveForPeriod(ctx, propertyID, unitID, "2025-01", ledger.InvoiceTypeWater)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.ExistsActiveForPeriod(ctx, propertyID, unitID, "2025-02", ledger.InvoiceTypeWater)
	require.NoError(t, err)
	assert.False(t, exists)

	dup := newTestInvoice(t, invoiceOpts{
		propertyID: propertyID, tenantID: uuid.New(), unitID: &unitID,
		invType: ledger.InvoiceTypeWater, period: "2025-01",
	})
	err = repo.Create(ctx, dup)
	assert.True(t, shared.IsKind(err, shared.KindConflict))

	removed, err := repo.DeleteByLease(ctx, leaseID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)
}

func TestGormInvoiceRepository_FindAll_StatusAsOfDate(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()
	propertyID := uuid.New()

	// stored as issued, past due by asOf
	lapsed := newTestInvoice(t, invoiceOpts{propertyID: propertyID, tenantID: uuid.New(),
		issuedOn: shared.NewDate(2025, 3, 1), dueOn: shared.NewDate(2025, 3, 15)})
	current := newTestInvoice(t, invoiceOpts{propertyID: propertyID, tenantID: uuid.New(),
		issuedOn: shared.NewDate(2025, 3, 1), dueOn: shared.NewDate(2025, 5, 1)})
	partial := newTestInvoice(t, invoiceOpts{propertyID: propertyID, tenantID: uuid.New(),
		issuedOn: shared.NewDate(2025, 3, 1), dueOn: shared.NewDate(2025, 5, 1)})
	for _, inv := range []*ledger.Invoice{lapsed, current, partial} {
		require.NoError(t, repo.Create(ctx, inv))
	}
	require.NoError(t, partial.ApplyPayment(2500, uuid.New(), testToday))
	require.NoError(t, repo.SaveWithLock(ctx, partial))

	asOf := shared.NewDate(2025, 4, 1)
	find := func(status ledger.InvoiceStatus, asOf *time.Time) []uuid.UUID {
		found, _, err := repo.FindAll(ctx, ledger.InvoiceFilter{
			Filter:     shared.Filter{Page: 1, PageSize: 10},
			PropertyID: &propertyID,
			Status:     &status,
			AsOf:       asOf,
		})
		require.NoError(t, err)
		ids := make([]uuid.UUID, 0, len(found))
		for _, inv := range found {
			ids = append(ids, inv.ID)
		}
		return ids
	}

	assert.Equal(t, []uuid.UUID{lapsed.ID}, find(ledger.InvoiceStatusOverdue, &asOf))
	assert.Equal(t, []uuid.UUID{current.ID}, find(ledger.InvoiceStatusIssued, &asOf))
	assert.Equal(t, []uuid.UUID{partial.ID}, find(ledger.InvoiceStatusPartial, &asOf))
	assert.Empty(t, find(ledger.InvoiceStatusPaid, &asOf))
	// without a reference date the stored column is matched
	assert.Empty(t, find(ledger.InvoiceStatusOverdue, nil))
}

func TestGormInvoiceRepository_FindOpen_LocksRowsOnPostgres(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()
	repo := NewGormInvoiceRepository(db.DB)

	tenantID := uuid.New()
	mock.ExpectQuery(`SELECT \* FROM "invoices" WHERE tenant_id = \$1 AND status IN \(\$2,\$3,\$4\) AND balance_cents > 0 ORDER BY due_on ASC, issued_on ASC, id ASC FOR UPDATE`).
		WithArgs(tenantID, "issued", "partial", "overdue").
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "status"}))

	_, err := repo.FindOpen(context.Background(), ledger.OpenInvoiceQuery{TenantID: tenantID, ForUpdate: true})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormInvoiceRepository_SaveWithLock_PostgresVersionPredicate(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()
	repo := NewGormInvoiceRepository(db.DB)

	inv := newTestInvoice(t, invoiceOpts{propertyID: uuid.New(), tenantID: uuid.New()})
	inv.Version = 3

	mock.ExpectExec(`UPDATE "invoices" SET .* WHERE id = \$\d+ AND version = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SaveWithLock(context.Background(), inv)
	assert.True(t, shared.IsConcurrencyConflict(err))
	assert.Equal(t, 3, inv.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}
