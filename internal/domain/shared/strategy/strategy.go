// Package strategy declares the pluggable ledger policies: how a payment is
// spread over open invoices and how metered water is priced.
package strategy

// StrategyType groups strategies that are interchangeable with each other
type StrategyType string

const (
	StrategyTypeAllocation StrategyType = "allocation"
	StrategyTypeTariff     StrategyType = "tariff"
)

// Strategy is implemented by every registered policy. Name is the key used in
// configuration and in billing requests, e.g. "oldest_first" or "pump_cost".
type Strategy interface {
	Name() string
	Type() StrategyType
	Description() string
}

// BaseStrategy supplies the Strategy metadata methods to an embedding policy
type BaseStrategy struct {
	name, description string
	kind              StrategyType
}

// NewBaseStrategy creates a new BaseStrategy
func NewBaseStrategy(name string, kind StrategyType, description string) BaseStrategy {
	return BaseStrategy{name: name, description: description, kind: kind}
}

func (s BaseStrategy) Name() string        { return s.name }
func (s BaseStrategy) Type() StrategyType  { return s.kind }
func (s BaseStrategy) Description() string { return s.description }
