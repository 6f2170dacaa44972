package metering

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/propledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reading(t *testing.T, value string, y, m, d int) *MeterReading {
	t.Helper()
	r, err := NewMeterReading(MeterReadingSpec{
		PropertyID:   uuid.New(),
		UnitID:       uuid.New(),
		ReadingValue: decimal.RequireFromString(value),
		ReadingOn:    shared.NewDate(y, time.Month(m), d),
	})
	require.NoError(t, err)
	return r
}

func TestNewMeterReading(t *testing.T) {
	r := reading(t, "120.5", 2025, 1, 31)
	assert.Equal(t, MeterTypeWater, r.MeterType)

	_, err := NewMeterReading(MeterReadingSpec{
		PropertyID: uuid.New(), UnitID: uuid.New(),
		ReadingValue: decimal.NewFromInt(-1), ReadingOn: shared.NewDate(2025, 1, 1),
	})
	assert.True(t, shared.IsKind(err, shared.KindValidation))

	_, err = NewMeterReading(MeterReadingSpec{
		PropertyID: uuid.New(), UnitID: uuid.New(), MeterType: "steam",
		ReadingValue: decimal.NewFromInt(1), ReadingOn: shared.NewDate(2025, 1, 1),
	})
	de, ok := shared.AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, "INVALID_METER_TYPE", de.Code)
}

func TestConsumption(t *testing.T) {
	prev := reading(t, "100", 2024, 12, 31)
	cur := reading(t, "112.5", 2025, 1, 31)

	got, err := Consumption(prev, cur)
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("12.5")))

	tests := []struct {
		name     string
		previous *MeterReading
		current  *MeterReading
		code     string
	}{
		{"no reading in month", prev, nil, "MISSING_READING"},
		{"no opening reading", nil, cur, "MISSING_READING"},
		{"meter went backwards", cur, prev, "NEGATIVE_CONSUMPTION"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Consumption(tt.previous, tt.current)
			de, ok := shared.AsDomainError(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, de.Code)
		})
	}
}

func TestBillingMonth(t *testing.T) {
	m, err := ParseBillingMonth("2024-02")
	require.NoError(t, err)
	assert.Equal(t, shared.NewDate(2024, 2, 1), m.Start)
	assert.Equal(t, shared.NewDate(2024, 2, 29), m.End)
	assert.Equal(t, "2024-02", m.String())
	assert.True(t, m.Contains(shared.NewDate(2024, 2, 29)))
	assert.False(t, m.Contains(shared.NewDate(2024, 3, 1)))

	for _, bad := range []string{"2024-13", "2024-2", "202402", ""} {
		_, err := ParseBillingMonth(bad)
		assert.Error(t, err, bad)
	}
}

func TestNewPumpTopup(t *testing.T) {
	topup, err := NewPumpTopup(PumpTopupSpec{
		PropertyID:   uuid.New(),
		TopupOn:      shared.NewDate(2025, 1, 10),
		VolumeLiters: decimal.NewFromInt(10000),
		AmountCents:  450000,
		VendorName:   "Bowser Ltd",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(450000), topup.AmountCents)

	_, err = NewPumpTopup(PumpTopupSpec{
		PropertyID: uuid.New(), TopupOn: shared.NewDate(2025, 1, 10),
		VolumeLiters: decimal.Zero, AmountCents: 1,
	})
	assert.True(t, shared.IsKind(err, shared.KindValidation))
}
