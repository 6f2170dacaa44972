package strategy

import (
	"fmt"
	"sort"
	"sync"

	"github.com/propledger/backend/internal/domain/shared"
	"github.com/propledger/backend/internal/domain/shared/strategy"
)

// StrategyRegistry manages strategy registrations
type StrategyRegistry struct {
	mu                   sync.RWMutex
	allocationStrategies map[string]strategy.PaymentAllocationStrategy
	tariffStrategies     map[string]strategy.TariffStrategy
	defaults             map[strategy.StrategyType]string
}

// NewStrategyRegistry creates a new strategy registry
func NewStrategyRegistry() *StrategyRegistry {
	return &StrategyRegistry{
		allocationStrategies: make(map[string]strategy.PaymentAllocationStrategy),
		tariffStrategies:     make(map[string]strategy.TariffStrategy),
		defaults:             make(map[strategy.StrategyType]string),
	}
}

// RegisterAllocationStrategy registers a payment allocation strategy
func (r *StrategyRegistry) RegisterAllocationStrategy(s strategy.PaymentAllocationStrategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := s.Name()
	if _, exists := r.allocationStrategies[name]; exists {
		return fmt.Errorf("%w: allocation strategy '%s' already registered", shared.ErrAlreadyExists, name)
	}
	r.allocationStrategies[name] = s
	return nil
}

// GetAllocationStrategy returns an allocation strategy by name, or the default if name is empty
func (r *StrategyRegistry) GetAllocationStrategy(name string) (strategy.PaymentAllocationStrategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		name = r.defaults[strategy.StrategyTypeAllocation]
		if name == "" {
			return nil, fmt.Errorf("%w: no default allocation strategy set", shared.ErrNotFound)
		}
	}

	s, exists := r.allocationStrategies[name]
	if !exists {
		return nil, fmt.Errorf("%w: allocation strategy '%s' not found", shared.ErrNotFound, name)
	}
	return s, nil
}

// RegisterTariffStrategy registers a water tariff strategy
func (r *StrategyRegistry) RegisterTariffStrategy(s strategy.TariffStrategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := s.Name()
	if _, exists := r.tariffStrategies[name]; exists {
		return fmt.Errorf("%w: tariff strategy '%s' already registered", shared.ErrAlreadyExists, name)
	}
	r.tariffStrategies[name] = s
	return nil
}

// GetTariffStrategy returns a tariff strategy by name, or the default if name is empty
func (r *StrategyRegistry) GetTariffStrategy(name string) (strategy.TariffStrategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		name = r.defaults[strategy.StrategyTypeTariff]
		if name == "" {
			return nil, fmt.Errorf("%w: no default tariff strategy set", shared.ErrNotFound)
		}
	}

	s, exists := r.tariffStrategies[name]
	if !exists {
		return nil, fmt.Errorf("%w: tariff strategy '%s' not found", shared.ErrNotFound, name)
	}
	return s, nil
}

// SetDefault sets the default strategy for a type. The strategy must already be registered.
func (r *StrategyRegistry) SetDefault(strategyType strategy.StrategyType, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var exists bool
	switch strategyType {
	case strategy.StrategyTypeAllocation:
		_, exists = r.allocationStrategies[name]
	case strategy.StrategyTypeTariff:
		_, exists = r.tariffStrategies[name]
	default:
		return fmt.Errorf("%w: unknown strategy type '%s'", shared.ErrInvalidInput, strategyType)
	}
	if !exists {
		return fmt.Errorf("%w: %s strategy '%s' not found", shared.ErrNotFound, strategyType, name)
	}
	r.defaults[strategyType] = name
	return nil
}

// GetDefault returns the default strategy name for a type
func (r *StrategyRegistry) GetDefault(strategyType strategy.StrategyType) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaults[strategyType]
}

// List returns the registered strategy names of a type, sorted
func (r *StrategyRegistry) List(strategyType strategy.StrategyType) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0)
	switch strategyType {
	case strategy.StrategyTypeAllocation:
		for name := range r.allocationStrategies {
			names = append(names, name)
		}
	case strategy.StrategyTypeTariff:
		for name := range r.tariffStrategies {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
