package metering_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	appmetering "github.com/propledger/backend/internal/application/metering"
	"github.com/propledger/backend/internal/domain/shared"
	"github.com/propledger/backend/internal/infrastructure/persistence"
	"github.com/propledger/backend/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMeteringService(t *testing.T) *appmetering.MeteringService {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	return appmetering.NewMeteringService(
		persistence.NewGormMeterReadingRepository(db),
		persistence.NewGormPumpTopupRepository(db),
		nil,
	)
}

func TestMeteringService_RecordMeterReading(t *testing.T) {
	svc := newMeteringService(t)
	ctx := context.Background()
	property, unit := uuid.New(), uuid.New()

	req := appmetering.RecordMeterReadingRequest{
		PropertyID:   property,
		UnitID:       unit,
		ReadingValue: decimal.RequireFromString("123.5"),
		ReadingOn:    "2025-02-27",
	}

	t.Run("defaults to water", func(t *testing.T) {
		resp, err := svc.RecordMeterReading(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, "water", resp.MeterType)
		assert.Equal(t, "2025-02-27", resp.ReadingOn)
		assert.True(t, resp.ReadingValue.Equal(decimal.RequireFromString("123.5")))
	})

	t.Run("same day twice is a conflict", func(t *testing.T) {
		_, err := svc.RecordMeterReading(ctx, req)
		require.Error(t, err)
		assert.True(t, shared.IsKind(err, shared.KindConflict))
		de, ok := shared.AsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, "DUPLICATE_READING", de.Code)
	})

	t.Run("another meter on the same day is fine", func(t *testing.T) {
		electric := req
		electric.MeterType = "electricity"
		_, err := svc.RecordMeterReading(ctx, electric)
		require.NoError(t, err)
	})

	t.Run("negative value", func(t *testing.T) {
		bad := req
		bad.ReadingOn = "2025-02-28"
		bad.ReadingValue = decimal.NewFromInt(-1)
		_, err := svc.RecordMeterReading(ctx, bad)
		assert.True(t, shared.IsKind(err, shared.KindValidation))
	})

	t.Run("bad date", func(t *testing.T) {
		bad := req
		bad.ReadingOn = "27/02/2025"
		_, err := svc.RecordMeterReading(ctx, bad)
		assert.True(t, shared.IsKind(err, shared.KindValidation))
	})
}

func TestMeteringService_ListMeterReadings(t *testing.T) {
	svc := newMeteringService(t)
	ctx := context.Background()
	property, unit := uuid.New(), uuid.New()

	for i, day := range []string{"2025-01-31", "2025-02-14", "2025-02-27"} {
		_, err := svc.RecordMeterReading(ctx, appmetering.RecordMeterReadingRequest{
			PropertyID:   property,
			UnitID:       unit,
			ReadingValue: decimal.NewFromInt(int64(100 + 10*i)),
			ReadingOn:    day,
		})
		require.NoError(t, err)
	}

	page, err := svc.ListMeterReadings(ctx, appmetering.MeterReadingListFilter{
		UnitID:   unit.String(),
		From:     "2025-02-01",
		OrderDir: "asc",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "2025-02-14", page.Items[0].ReadingOn)
	assert.Equal(t, "2025-02-27", page.Items[1].ReadingOn)

	_, err = svc.ListMeterReadings(ctx, appmetering.MeterReadingListFilter{UnitID: "unit-7"})
	assert.Error(t, err)

	_, err = svc.ListMeterReadings(ctx, appmetering.MeterReadingListFilter{To: "not-a-date"})
	assert.Error(t, err)
}

func TestMeteringService_PumpTopups(t *testing.T) {
	svc := newMeteringService(t)
	ctx := context.Background()
	property := uuid.New()

	resp, err := svc.RecordPumpTopup(ctx, appmetering.RecordPumpTopupRequest{
		PropertyID:   property,
		TopupOn:      "2025-02-03",
		VolumeLiters: decimal.NewFromInt(5000),
		AmountCents:  4200,
		VendorName:   "Borehole Supplies",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4200), resp.AmountCents)
	assert.Equal(t, "Borehole Supplies", resp.VendorName)

	_, err = svc.RecordPumpTopup(ctx, appmetering.RecordPumpTopupRequest{
		PropertyID:   property,
		TopupOn:      "2025-02-04",
		VolumeLiters: decimal.Zero,
		AmountCents:  100,
	})
	assert.True(t, shared.IsKind(err, shared.KindValidation))

	page, err := svc.ListPumpTopups(ctx, appmetering.PumpTopupListFilter{PropertyID: property.String()})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, resp.ID, page.Items[0].ID)

	got, err := svc.GetPumpTopup(ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, property, got.PropertyID)
	assert.Equal(t, "2025-02-03", got.TopupOn)

	_, err = svc.GetPumpTopup(ctx, uuid.New())
	assert.True(t, shared.IsKind(err, shared.KindNotFound))
}

func TestMeteringService_GetMeterReading(t *testing.T) {
	svc := newMeteringService(t)
	ctx := context.Background()

	recorded, err := svc.RecordMeterReading(ctx, appmetering.RecordMeterReadingRequest{
		PropertyID:   uuid.New(),
		UnitID:       uuid.New(),
		ReadingValue: decimal.RequireFromString("88.25"),
		ReadingOn:    "2025-03-01",
	})
	require.NoError(t, err)

	got, err := svc.GetMeterReading(ctx, recorded.ID)
	require.NoError(t, err)
	assert.Equal(t, recorded.UnitID, got.UnitID)
	assert.True(t, got.ReadingValue.Equal(decimal.RequireFromString("88.25")))

	_, err = svc.GetMeterReading(ctx, uuid.New())
	assert.True(t, shared.IsKind(err, shared.KindNotFound))
}
