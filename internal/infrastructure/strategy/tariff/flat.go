// Package tariff provides water tariff strategies for the billing run.
package tariff

import (
	"context"
	"fmt"

	"github.com/propledger/backend/internal/domain/shared"
	"github.com/propledger/backend/internal/domain/shared/strategy"
	"github.com/shopspring/decimal"
)

// FlatStrategyName is the registry name of the per-unit rate tariff
const FlatStrategyName = "flat"

// FlatRateTariffStrategy charges consumption x rate, rounded half away from zero to the cent
type FlatRateTariffStrategy struct {
	strategy.BaseStrategy
}

// NewFlatRateTariffStrategy creates a new flat rate tariff
func NewFlatRateTariffStrategy() *FlatRateTariffStrategy {
	return &FlatRateTariffStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			FlatStrategyName,
			strategy.StrategyTypeTariff,
			"Charge each unit its consumption times a fixed rate per unit",
		),
	}
}

// Charge prices every unit independently
func (s *FlatRateTariffStrategy) Charge(ctx context.Context, tc strategy.TariffContext, usage []strategy.UnitUsage) ([]strategy.UnitCharge, error) {
	if tc.RatePerUnitCents.IsNegative() {
		return nil, shared.NewValidationError("INVALID_TARIFF", "Rate per unit cannot be negative")
	}

	charges := make([]strategy.UnitCharge, 0, len(usage))
	for _, u := range usage {
		if u.Consumption.IsNegative() {
			return nil, shared.NewValidationError("NEGATIVE_CONSUMPTION",
				fmt.Sprintf("Unit %s has negative consumption %s", u.UnitID, u.Consumption))
		}
		amount := u.Consumption.Mul(tc.RatePerUnitCents).Round(0)
		charges = append(charges, strategy.UnitCharge{
			UnitID:      u.UnitID,
			AmountCents: amount.IntPart(),
			Rate:        tc.RatePerUnitCents,
		})
	}
	return charges, nil
}

// effectiveRate is amount / consumption, or zero when nothing was consumed
func effectiveRate(amountCents int64, consumption decimal.Decimal) decimal.Decimal {
	if consumption.IsZero() {
		return decimal.Zero
	}
	return decimal.NewFromInt(amountCents).DivRound(consumption, 4)
}

var _ strategy.TariffStrategy = (*FlatRateTariffStrategy)(nil)
