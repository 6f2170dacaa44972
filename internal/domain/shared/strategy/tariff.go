package strategy

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// UnitUsage is the metered consumption of one unit for a billing period
type UnitUsage struct {
	UnitID      string
	Consumption decimal.Decimal
}

// TariffContext carries the pricing inputs for one property and period
type TariffContext struct {
	PropertyID       string
	PeriodStart      time.Time
	PeriodEnd        time.Time
	RatePerUnitCents decimal.Decimal
	// PoolCostCents is the cost to recover across all units (pump topups)
	PoolCostCents int64
}

// UnitCharge is the billed amount for one unit
type UnitCharge struct {
	UnitID      string
	AmountCents int64
	// Rate is the effective cents per unit of consumption, for the invoice line item
	Rate decimal.Decimal
}

// TariffStrategy prices consumption into per-unit charges
type TariffStrategy interface {
	Strategy
	Charge(ctx context.Context, tc TariffContext, usage []UnitUsage) ([]UnitCharge, error)
}
