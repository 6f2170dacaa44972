package strategy

import (
	"github.com/propledger/backend/internal/domain/shared/strategy"
	"github.com/propledger/backend/internal/infrastructure/strategy/allocation"
	"github.com/propledger/backend/internal/infrastructure/strategy/tariff"
)

// NewRegistryWithDefaults creates a registry with the built-in strategies.
// oldest_first is the default allocation policy; defaultTariff selects the
// water tariff (flat when empty).
func NewRegistryWithDefaults(defaultTariff string) (*StrategyRegistry, error) {
	r := NewStrategyRegistry()

	if err := r.RegisterAllocationStrategy(allocation.NewOldestFirstAllocationStrategy()); err != nil {
		return nil, err
	}

	if err := r.RegisterTariffStrategy(tariff.NewFlatRateTariffStrategy()); err != nil {
		return nil, err
	}
	if err := r.RegisterTariffStrategy(tariff.NewPumpCostRecoveryTariffStrategy()); err != nil {
		return nil, err
	}

	if err := r.SetDefault(strategy.StrategyTypeAllocation, allocation.OldestFirstStrategyName); err != nil {
		return nil, err
	}
	if defaultTariff == "" {
		defaultTariff = tariff.FlatStrategyName
	}
	if err := r.SetDefault(strategy.StrategyTypeTariff, defaultTariff); err != nil {
		return nil, err
	}

	return r, nil
}
