package audit_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	appaudit "github.com/propledger/backend/internal/application/audit"
	"github.com/propledger/backend/internal/domain/ledger"
	"github.com/propledger/backend/internal/domain/shared"
	"github.com/propledger/backend/internal/infrastructure/cache"
	"github.com/propledger/backend/internal/infrastructure/event"
	"github.com/propledger/backend/internal/infrastructure/persistence"
	"github.com/propledger/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAuditTrailHandler_RecordsPublishedEvents(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := persistence.NewGormAuditRepository(db)
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()

	bus := event.NewInMemoryEventBus(zap.NewNop())
	bus.Subscribe(event.NewIdempotentHandler(appaudit.NewAuditTrailHandler(repo, nil), store, nil))
	require.NoError(t, bus.Start(context.Background()))

	inv := testutil.NewInvoice(t, testutil.InvoiceFixture{AmountCents: 1200}, testutil.Date(2025, 1, 15))
	created := ledger.NewInvoiceCreatedEvent(inv)
	paid := ledger.NewInvoicePaidEvent(inv)

	require.NoError(t, bus.Publish(context.Background(), created, paid))
	// redelivery of the same event
	require.NoError(t, bus.Publish(context.Background(), created))

	svc := appaudit.NewAuditService(repo)
	page, err := svc.ListEntries(context.Background(), appaudit.AuditListFilter{AggregateID: inv.ID.String(), OrderDir: "asc"})
	require.NoError(t, err)
	require.Equal(t, int64(2), page.Total)

	types := []string{page.Items[0].EventType, page.Items[1].EventType}
	assert.ElementsMatch(t, []string{ledger.EventTypeInvoiceCreated, ledger.EventTypeInvoicePaid}, types)
	for _, item := range page.Items {
		assert.Equal(t, inv.ID, item.AggregateID)
		require.NotNil(t, item.TenantID)
		assert.Equal(t, inv.TenantID, *item.TenantID)

		var payload map[string]any
		require.NoError(t, json.Unmarshal(item.Payload, &payload))
		assert.Equal(t, item.EventType, payload["event_type"])
	}
	assert.Zero(t, bus.Stats().HandlerFailures)
}

func TestAuditTrailHandler_DuplicateEventIsIgnoredByStore(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := persistence.NewGormAuditRepository(db)
	h := appaudit.NewAuditTrailHandler(repo, nil)

	inv := testutil.NewInvoice(t, testutil.InvoiceFixture{AmountCents: 500}, testutil.Date(2025, 1, 15))
	e := ledger.NewInvoiceCreatedEvent(inv)
	require.NoError(t, h.Handle(context.Background(), e))
	require.NoError(t, h.Handle(context.Background(), e))

	page, err := appaudit.NewAuditService(repo).ListEntries(context.Background(), appaudit.AuditListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	assert.Empty(t, h.EventTypes())
}

func TestAuditTrailHandler_RejectsNilEvent(t *testing.T) {
	h := appaudit.NewAuditTrailHandler(persistence.NewGormAuditRepository(testutil.NewSQLiteDB(t)), nil)
	var e shared.DomainEvent
	assert.True(t, shared.IsKind(h.Handle(context.Background(), e), shared.KindValidation))
}

func TestAuditService_Filters(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := persistence.NewGormAuditRepository(db)
	h := appaudit.NewAuditTrailHandler(repo, nil)
	today := testutil.Date(2025, 1, 15)

	a := testutil.NewInvoice(t, testutil.InvoiceFixture{AmountCents: 100}, today)
	b := testutil.NewInvoice(t, testutil.InvoiceFixture{AmountCents: 200}, today)
	for _, e := range []shared.DomainEvent{
		ledger.NewInvoiceCreatedEvent(a),
		ledger.NewInvoiceCreatedEvent(b),
		ledger.NewInvoiceVoidedEvent(b, ledger.InvoiceStatusIssued),
	} {
		require.NoError(t, h.Handle(context.Background(), e))
	}

	svc := appaudit.NewAuditService(repo)
	voided, err := svc.ListEntries(context.Background(), appaudit.AuditListFilter{EventType: ledger.EventTypeInvoiceVoided})
	require.NoError(t, err)
	require.Len(t, voided.Items, 1)
	assert.Equal(t, b.ID, voided.Items[0].AggregateID)

	unknown := uuid.New()
	none, err := svc.ListEntries(context.Background(), appaudit.AuditListFilter{AggregateID: unknown.String()})
	require.NoError(t, err)
	assert.Zero(t, none.Total)

	paged, err := svc.ListEntries(context.Background(), appaudit.AuditListFilter{PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), paged.Total)
	assert.Len(t, paged.Items, 2)
	assert.Equal(t, 2, paged.TotalPages)

	entry, err := svc.GetEntry(context.Background(), voided.Items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.EventTypeInvoiceVoided, entry.EventType)
	assert.Equal(t, voided.Items[0].EventID, entry.EventID)

	_, err = svc.GetEntry(context.Background(), unknown)
	assert.True(t, shared.IsKind(err, shared.KindNotFound))
}
