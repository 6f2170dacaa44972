package strategy

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/propledger/backend/internal/domain/shared"
	"github.com/propledger/backend/internal/domain/shared/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockAllocationStrategy struct {
	strategy.BaseStrategy
}

func newMockAllocationStrategy(name string) *mockAllocationStrategy {
	return &mockAllocationStrategy{
		BaseStrategy: strategy.NewBaseStrategy(name, strategy.StrategyTypeAllocation, "Mock allocation strategy"),
	}
}

func (s *mockAllocationStrategy) Allocate(ctx context.Context, allocCtx strategy.AllocationContext, invoices []strategy.Invoice) (strategy.AllocationResult, error) {
	return strategy.AllocationResult{Remaining: allocCtx.PaymentCents}, nil
}

func TestStrategyRegistry_Allocation(t *testing.T) {
	r := NewStrategyRegistry()

	t.Run("registers and resolves by name", func(t *testing.T) {
		require.NoError(t, r.RegisterAllocationStrategy(newMockAllocationStrategy("mock")))

		s, err := r.GetAllocationStrategy("mock")
		require.NoError(t, err)
		assert.Equal(t, "mock", s.Name())
	})

	t.Run("rejects duplicate registration", func(t *testing.T) {
		err := r.RegisterAllocationStrategy(newMockAllocationStrategy("mock"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrAlreadyExists))
	})

	t.Run("empty name without default is not found", func(t *testing.T) {
		_, err := r.GetAllocationStrategy("")
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})

	t.Run("empty name resolves the default", func(t *testing.T) {
		require.NoError(t, r.SetDefault(strategy.StrategyTypeAllocation, "mock"))
		s, err := r.GetAllocationStrategy("")
		require.NoError(t, err)
		assert.Equal(t, "mock", s.Name())
	})

	t.Run("default must be registered", func(t *testing.T) {
		err := r.SetDefault(strategy.StrategyTypeAllocation, "missing")
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})
}

func TestNewRegistryWithDefaults(t *testing.T) {
	r, err := NewRegistryWithDefaults("")
	require.NoError(t, err)

	assert.Equal(t, "oldest_first", r.GetDefault(strategy.StrategyTypeAllocation))
	assert.Equal(t, "flat", r.GetDefault(strategy.StrategyTypeTariff))
	assert.Equal(t, []string{"flat", "pump_cost"}, r.List(strategy.StrategyTypeTariff))

	r, err = NewRegistryWithDefaults("pump_cost")
	require.NoError(t, err)
	s, err := r.GetTariffStrategy("")
	require.NoError(t, err)
	assert.Equal(t, "pump_cost", s.Name())

	_, err = NewRegistryWithDefaults("unknown")
	assert.Error(t, err)
}

func TestStrategyRegistry_ConcurrentAccess(t *testing.T) {
	r, err := NewRegistryWithDefaults("")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.GetAllocationStrategy("")
			assert.NoError(t, err)
			_ = r.List(strategy.StrategyTypeAllocation)
		}()
	}
	wg.Wait()
}
