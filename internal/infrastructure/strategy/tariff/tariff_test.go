package tariff

import (
	"context"
	"testing"

	"github.com/propledger/backend/internal/domain/shared"
	"github.com/propledger/backend/internal/domain/shared/strategy"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatRateTariffStrategy_Charge(t *testing.T) {
	s := NewFlatRateTariffStrategy()
	ctx := context.Background()

	t.Run("multiplies consumption by rate and rounds to the cent", func(t *testing.T) {
		charges, err := s.Charge(ctx, strategy.TariffContext{
			RatePerUnitCents: decimal.RequireFromString("150.5"),
		}, []strategy.UnitUsage{
			{UnitID: "u1", Consumption: decimal.RequireFromString("12.3")},
			{UnitID: "u2", Consumption: decimal.Zero},
		})
		require.NoError(t, err)
		require.Len(t, charges, 2)
		// 12.3 * 150.5 = 1851.15
		assert.Equal(t, int64(1851), charges[0].AmountCents)
		assert.Equal(t, int64(0), charges[1].AmountCents)
	})

	t.Run("rejects negative consumption", func(t *testing.T) {
		_, err := s.Charge(ctx, strategy.TariffContext{RatePerUnitCents: decimal.NewFromInt(10)},
			[]strategy.UnitUsage{{UnitID: "u1", Consumption: decimal.NewFromInt(-1)}})
		require.Error(t, err)
		assert.True(t, shared.IsKind(err, shared.KindValidation))
	})
}

func TestPumpCostRecoveryTariffStrategy_Charge(t *testing.T) {
	s := NewPumpCostRecoveryTariffStrategy()
	ctx := context.Background()

	t.Run("shares sum exactly to the pool cost", func(t *testing.T) {
		usage := []strategy.UnitUsage{
			{UnitID: "u1", Consumption: decimal.NewFromInt(1)},
			{UnitID: "u2", Consumption: decimal.NewFromInt(1)},
			{UnitID: "u3", Consumption: decimal.NewFromInt(1)},
		}
		charges, err := s.Charge(ctx, strategy.TariffContext{PoolCostCents: 1000}, usage)
		require.NoError(t, err)

		var sum int64
		for _, c := range charges {
			sum += c.AmountCents
		}
		assert.Equal(t, int64(1000), sum)
		// 333.33 each; the extra cent goes to the first unit by ID
		assert.Equal(t, int64(334), charges[0].AmountCents)
		assert.Equal(t, int64(333), charges[1].AmountCents)
		assert.Equal(t, int64(333), charges[2].AmountCents)
	})

	t.Run("splits in proportion to consumption", func(t *testing.T) {
		usage := []strategy.UnitUsage{
			{UnitID: "u1", Consumption: decimal.NewFromInt(30)},
			{UnitID: "u2", Consumption: decimal.NewFromInt(10)},
		}
		charges, err := s.Charge(ctx, strategy.TariffContext{PoolCostCents: 4000}, usage)
		require.NoError(t, err)
		assert.Equal(t, int64(3000), charges[0].AmountCents)
		assert.Equal(t, int64(1000), charges[1].AmountCents)
		assert.True(t, charges[0].Rate.Equal(decimal.NewFromInt(100)))
	})

	t.Run("charges nothing when no water was consumed", func(t *testing.T) {
		charges, err := s.Charge(ctx, strategy.TariffContext{PoolCostCents: 4000},
			[]strategy.UnitUsage{{UnitID: "u1", Consumption: decimal.Zero}})
		require.NoError(t, err)
		assert.Equal(t, int64(0), charges[0].AmountCents)
	})
}
