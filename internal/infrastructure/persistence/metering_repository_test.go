package persistence

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/propledger/backend/internal/domain/audit"
	"github.com/propledger/backend/internal/domain/metering"
	"github.com/propledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormMeterReadingRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormMeterReadingRepository(db)
	ctx := context.Background()

	propertyID, unitID := uuid.New(), uuid.New()
	record := func(value string, y, m, d int) *metering.MeterReading {
		r, err := metering.NewMeterReading(metering.MeterReadingSpec{
			PropertyID:   propertyID,
			UnitID:       unitID,
			ReadingValue: decimal.RequireFromString(value),
			ReadingOn:    shared.NewDate(y, time.Month(m), d),
		})
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, r))
		return r
	}

	record("100", 2024, 12, 31)
	record("105", 2025, 1, 15)
	record("112.5", 2025, 1, 31)

	opening, err := repo.LatestOnOrBefore(ctx, unitID, metering.MeterTypeWater, shared.NewDate(2024, 12, 31))
	require.NoError(t, err)
	require.NotNil(t, opening)
	assert.True(t, opening.ReadingValue.Equal(decimal.NewFromInt(100)))

	closing, err := repo.LatestBetween(ctx, unitID, metering.MeterTypeWater, shared.NewDate(2025, 1, 1), shared.NewDate(2025, 1, 31))
	require.NoError(t, err)
	require.NotNil(t, closing)
	assert.Equal(t, shared.NewDate(2025, 1, 31), closing.ReadingOn)
	assert.True(t, closing.ReadingValue.Equal(decimal.RequireFromString("112.5")))

	none, err := repo.LatestBetween(ctx, unitID, metering.MeterTypeWater, shared.NewDate(2025, 2, 1), shared.NewDate(2025, 2, 28))
	require.NoError(t, err)
	assert.Nil(t, none)

	none, err = repo.LatestOnOrBefore(ctx, unitID, metering.MeterTypeElectricity, shared.NewDate(2025, 12, 31))
	require.NoError(t, err)
	assert.Nil(t, none)

	dup, err := metering.NewMeterReading(metering.MeterReadingSpec{
		PropertyID: propertyID, UnitID: unitID,
		ReadingValue: decimal.NewFromInt(120), ReadingOn: shared.NewDate(2025, 1, 31),
	})
	require.NoError(t, err)
	assert.True(t, shared.IsKind(repo.Create(ctx, dup), shared.KindConflict))

	from := shared.NewDate(2025, 1, 1)
	page, total, err := repo.FindAll(ctx, metering.MeterReadingFilter{
		Filter: shared.Filter{OrderBy: "reading_on", OrderDir: "asc"}, UnitID: &unitID, From: &from,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, page, 2)
	assert.Equal(t, shared.NewDate(2025, 1, 15), page[0].ReadingOn)
}

func TestGormPumpTopupRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormPumpTopupRepository(db)
	ctx := context.Background()

	propertyID := uuid.New()
	for _, tc := range []struct {
		day    int
		month  int
		amount int64
	}{{5, 1, 300000}, {20, 1, 150000}, {2, 2, 99999}} {
		topup, err := metering.NewPumpTopup(metering.PumpTopupSpec{
			PropertyID:   propertyID,
			TopupOn:      shared.NewDate(2025, time.Month(tc.month), tc.day),
			VolumeLiters: decimal.NewFromInt(10000),
			AmountCents:  tc.amount,
		})
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, topup))
	}

	sum, err := repo.SumForPeriod(ctx, propertyID, shared.NewDate(2025, 1, 1), shared.NewDate(2025, 1, 31))
	require.NoError(t, err)
	assert.Equal(t, int64(450000), sum)

	sum, err = repo.SumForPeriod(ctx, uuid.New(), shared.NewDate(2025, 1, 1), shared.NewDate(2025, 1, 31))
	require.NoError(t, err)
	assert.Zero(t, sum)

	all, total, err := repo.FindAll(ctx, metering.PumpTopupFilter{Filter: shared.DefaultFilter(), PropertyID: &propertyID})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, all, 3)
}

type testEvent struct {
	shared.BaseDomainEvent
	Amount int64 `json:"amount"`
}

func TestGormAuditRepository_AppendIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormAuditRepository(db)
	ctx := context.Background()

	aggID := uuid.New()
	event := &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PaymentRecorded", "Payment", aggID, uuid.New()),
		Amount:          1500,
	}
	entry, err := audit.NewEntry(event)
	require.NoError(t, err)

	require.NoError(t, repo.Append(ctx, entry))
	again, err := audit.NewEntry(event)
	require.NoError(t, err)
	require.NoError(t, repo.Append(ctx, again))

	entries, total, err := repo.FindAll(ctx, audit.Filter{Filter: shared.DefaultFilter(), AggregateID: &aggID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, entries, 1)
	assert.Equal(t, "PaymentRecorded", entries[0].EventType)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(entries[0].Payload, &payload))
	assert.EqualValues(t, 1500, payload["amount"])
}
