package tariff

import (
	"context"
	"fmt"
	"sort"

	"github.com/propledger/backend/internal/domain/shared"
	"github.com/propledger/backend/internal/domain/shared/strategy"
	"github.com/shopspring/decimal"
)

// PumpCostStrategyName is the registry name of the cost recovery tariff
const PumpCostStrategyName = "pump_cost"

// PumpCostRecoveryTariffStrategy splits the period's pump topup cost across
// units pro rata by consumption. Shares are floored to the cent and the
// leftover cents go to the units with the largest fractional parts (ties by
// unit ID), so the charges always sum to the pool cost exactly.
type PumpCostRecoveryTariffStrategy struct {
	strategy.BaseStrategy
}

// NewPumpCostRecoveryTariffStrategy creates a new pump cost recovery tariff
func NewPumpCostRecoveryTariffStrategy() *PumpCostRecoveryTariffStrategy {
	return &PumpCostRecoveryTariffStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			PumpCostStrategyName,
			strategy.StrategyTypeTariff,
			"Recover the period's pump topup cost from units in proportion to consumption",
		),
	}
}

type share struct {
	index    int
	unitID   string
	cents    int64
	fraction decimal.Decimal
}

// Charge distributes tc.PoolCostCents across the units
func (s *PumpCostRecoveryTariffStrategy) Charge(ctx context.Context, tc strategy.TariffContext, usage []strategy.UnitUsage) ([]strategy.UnitCharge, error) {
	if tc.PoolCostCents < 0 {
		return nil, shared.NewValidationError("INVALID_TARIFF", "Pool cost cannot be negative")
	}

	total := decimal.Zero
	for _, u := range usage {
		if u.Consumption.IsNegative() {
			return nil, shared.NewValidationError("NEGATIVE_CONSUMPTION",
				fmt.Sprintf("Unit %s has negative consumption %s", u.UnitID, u.Consumption))
		}
		total = total.Add(u.Consumption)
	}

	charges := make([]strategy.UnitCharge, len(usage))
	if total.IsZero() || tc.PoolCostCents == 0 {
		for i, u := range usage {
			charges[i] = strategy.UnitCharge{UnitID: u.UnitID, Rate: decimal.Zero}
		}
		return charges, nil
	}

	pool := decimal.NewFromInt(tc.PoolCostCents)
	shares := make([]share, len(usage))
	var assigned int64
	for i, u := range usage {
		exact := pool.Mul(u.Consumption).Div(total)
		floor := exact.Floor()
		shares[i] = share{
			index:    i,
			unitID:   u.UnitID,
			cents:    floor.IntPart(),
			fraction: exact.Sub(floor),
		}
		assigned += shares[i].cents
	}

	leftover := tc.PoolCostCents - assigned
	order := make([]share, len(shares))
	copy(order, shares)
	sort.SliceStable(order, func(i, j int) bool {
		if !order[i].fraction.Equal(order[j].fraction) {
			return order[i].fraction.GreaterThan(order[j].fraction)
		}
		return order[i].unitID < order[j].unitID
	})
	for k := 0; k < len(order) && leftover > 0; k++ {
		shares[order[k].index].cents++
		leftover--
	}

	for i, sh := range shares {
		charges[i] = strategy.UnitCharge{
			UnitID:      sh.unitID,
			AmountCents: sh.cents,
			Rate:        effectiveRate(sh.cents, usage[i].Consumption),
		}
	}
	return charges, nil
}

var _ strategy.TariffStrategy = (*PumpCostRecoveryTariffStrategy)(nil)
