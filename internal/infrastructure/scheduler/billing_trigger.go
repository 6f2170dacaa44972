// Package scheduler runs the monthly water billing without an operator.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	meteringapp "github.com/propledger/backend/internal/application/metering"
	"github.com/propledger/backend/internal/domain/metering"
	"github.com/propledger/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// PropertyProvider lists the properties that had occupied units in a period
type PropertyProvider interface {
	FindPropertiesWithActiveLeases(ctx context.Context, from, to time.Time) ([]uuid.UUID, error)
}

// WaterBillingRunner executes one water billing run
type WaterBillingRunner interface {
	Run(ctx context.Context, req meteringapp.WaterBillingRequest) (*meteringapp.WaterBillingReport, error)
}

// BillingTriggerConfig holds the schedule of the automatic run
type BillingTriggerConfig struct {
	// DayOfMonth and Hour (UTC) mark when the previous month is billed
	DayOfMonth    int
	Hour          int
	CheckInterval time.Duration
}

// DefaultBillingTriggerConfig bills on the 1st at 02:00, checking every minute
func DefaultBillingTriggerConfig() BillingTriggerConfig {
	return BillingTriggerConfig{DayOfMonth: 1, Hour: 2, CheckInterval: time.Minute}
}

// RunOutcome is the result of the run for one property
type RunOutcome struct {
	PropertyID uuid.UUID
	Report     *meteringapp.WaterBillingReport
	Err        error
}

// BillingTrigger bills the previous month for every occupied property once a month.
// Runs are idempotent, so a restart that fires again in the same month only
// bills units the first attempt missed.
type BillingTrigger struct {
	config     BillingTriggerConfig
	runner     WaterBillingRunner
	properties PropertyProvider
	clock      shared.Clock
	logger     *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	lastMonth string
}

// NewBillingTrigger creates a BillingTrigger
func NewBillingTrigger(
	config BillingTriggerConfig,
	runner WaterBillingRunner,
	properties PropertyProvider,
	clock shared.Clock,
	logger *zap.Logger,
) (*BillingTrigger, error) {
	if config.DayOfMonth < 1 || config.DayOfMonth > 28 || config.Hour < 0 || config.Hour > 23 {
		return nil, fmt.Errorf("%w: day %d hour %d", ErrInvalidConfig, config.DayOfMonth, config.Hour)
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BillingTrigger{
		config:     config,
		runner:     runner,
		properties: properties,
		clock:      clock,
		logger:     logger,
	}, nil
}

// Start launches the check loop
func (t *BillingTrigger) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.isRunning {
		return
	}
	t.isRunning = true

	ctx, t.cancel = context.WithCancel(ctx)
	t.wg.Add(1)
	go t.loop(ctx)

	t.logger.Info("Billing trigger started",
		zap.Int("day_of_month", t.config.DayOfMonth),
		zap.Int("hour", t.config.Hour),
		zap.Duration("check_interval", t.config.CheckInterval),
	)
}

// Stop ends the loop and waits for an in-flight run until ctx expires
func (t *BillingTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.cancel()
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		t.logger.Info("Billing trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *BillingTrigger) loop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.config.CheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Tick(ctx)
		}
	}
}

// Tick fires the run when the schedule is due and this month has not run yet.
// It reports whether a run happened.
func (t *BillingTrigger) Tick(ctx context.Context) bool {
	now := t.clock.Now().UTC()
	current := metering.NewBillingMonth(now)

	t.mu.Lock()
	due := now.Day() == t.config.DayOfMonth && now.Hour() >= t.config.Hour && t.lastMonth != current.String()
	if due {
		t.lastMonth = current.String()
	}
	t.mu.Unlock()
	if !due {
		return false
	}

	t.RunMonth(ctx, current.Previous())
	return true
}

// RunMonth bills month for every property with an active lease in it.
// Properties run one after another; each run parallelizes over units.
func (t *BillingTrigger) RunMonth(ctx context.Context, month metering.BillingMonth) []RunOutcome {
	log := t.logger.With(zap.String("billing_month", month.String()))

	ids, err := t.properties.FindPropertiesWithActiveLeases(ctx, month.Start, month.End)
	if err != nil {
		log.Error("Failed to list properties for scheduled billing", zap.Error(err))
		return nil
	}
	log.Info("Scheduled water billing started", zap.Int("properties", len(ids)))

	outcomes := make([]RunOutcome, 0, len(ids))
	for _, id := range ids {
		if ctx.Err() != nil {
			log.Warn("Scheduled water billing interrupted", zap.Int("remaining", len(ids)-len(outcomes)))
			break
		}
		report, err := t.runner.Run(ctx, meteringapp.WaterBillingRequest{
			PropertyID:   id,
			BillingMonth: month.String(),
		})
		outcomes = append(outcomes, RunOutcome{PropertyID: id, Report: report, Err: err})
		if err != nil {
			log.Error("Scheduled water billing failed",
				zap.String("property_id", id.String()),
				zap.Error(err),
			)
		}
	}
	return outcomes
}
