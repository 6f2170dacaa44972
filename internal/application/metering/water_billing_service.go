package metering

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/propledger/backend/internal/application/ledger"
	"github.com/propledger/backend/internal/domain/lease"
	domainledger "github.com/propledger/backend/internal/domain/ledger"
	"github.com/propledger/backend/internal/domain/metering"
	"github.com/propledger/backend/internal/domain/shared"
	"github.com/propledger/backend/internal/domain/shared/strategy"
	"github.com/propledger/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// TariffResolver looks up a tariff strategy by name; an empty name selects the default
type TariffResolver interface {
	GetTariffStrategy(name string) (strategy.TariffStrategy, error)
}

// ReportArchive stores billing run reports
type ReportArchive interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
}

// WaterBillingConfig holds billing run settings
type WaterBillingConfig struct {
	// Tariff is the tariff strategy used when a request names none
	Tariff string
	// RatePerUnitCents is the flat price of one unit of consumption
	RatePerUnitCents decimal.Decimal
	// DueDays is the gap between issue and due date of the invoices
	DueDays int
	// Workers bounds the number of units processed in parallel
	Workers int
	// ArchivePrefix is prepended to archived report keys
	ArchivePrefix string
}

// WaterBillingService turns meter readings into water invoices for occupied units
type WaterBillingService struct {
	scope     ledger.TransactionScope
	leases    lease.LeaseRepository
	readings  metering.MeterReadingRepository
	topups    metering.PumpTopupRepository
	tariffs   TariffResolver
	publisher shared.EventPublisher
	clock     shared.Clock
	logger    *zap.Logger
	config    WaterBillingConfig
	archive   ReportArchive
	metrics   *telemetry.LedgerMetrics
}

// NewWaterBillingService creates a new WaterBillingService
func NewWaterBillingService(
	scope ledger.TransactionScope,
	leases lease.LeaseRepository,
	readings metering.MeterReadingRepository,
	topups metering.PumpTopupRepository,
	tariffs TariffResolver,
	publisher shared.EventPublisher,
	clock shared.Clock,
	logger *zap.Logger,
	config WaterBillingConfig,
) *WaterBillingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Workers <= 0 {
		config.Workers = 4
	}
	if config.DueDays < 0 {
		config.DueDays = 0
	}
	return &WaterBillingService{
		scope:     scope,
		leases:    leases,
		readings:  readings,
		topups:    topups,
		tariffs:   tariffs,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
		config:    config,
	}
}

// SetReportArchive enables archiving of run reports
func (s *WaterBillingService) SetReportArchive(a ReportArchive) {
	s.archive = a
}

// SetLedgerMetrics sets the optional metrics recorder
func (s *WaterBillingService) SetLedgerMetrics(m *telemetry.LedgerMetrics) {
	s.metrics = m
}

// occupancy is one billable unit with its tenant and consumption
type occupancy struct {
	lease       *lease.Lease
	consumption decimal.Decimal
	failure     *UnitFailure
}

// Run bills water for every occupied unit of the property for one month.
// Running it again for the same month only bills units that have no active
// water invoice yet. One unit's failure never stops the others.
func (s *WaterBillingService) Run(ctx context.Context, req WaterBillingRequest) (*WaterBillingReport, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "water_billing", "run")
	defer span.End()
	started := s.clock.Now()

	month := metering.NewBillingMonth(started)
	if req.BillingMonth != "" {
		m, err := metering.ParseBillingMonth(req.BillingMonth)
		if err != nil {
			return nil, err
		}
		month = m
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrPropertyID, req.PropertyID.String(),
		telemetry.SpanAttrBillingPeriod, month.String(),
	)

	tariff, err := s.tariffs.GetTariffStrategy(firstNonEmpty(req.Tariff, s.config.Tariff))
	if err != nil {
		return nil, err
	}

	report := &WaterBillingReport{
		PropertyID:   req.PropertyID,
		BillingMonth: month.String(),
		Tariff:       tariff.Name(),
		InvoiceIDs:   []uuid.UUID{},
		Skipped:      []SkippedUnit{},
		Failures:     []UnitFailure{},
		StartedAt:    started,
	}

	leases, err := s.leases.FindActiveForPropertyInPeriod(ctx, req.PropertyID, month.Start, month.End)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load occupied units: %w", err)
	}
	units := s.measure(ctx, latestLeasePerUnit(leases), month)

	usage := make([]strategy.UnitUsage, 0, len(units))
	byUnit := make(map[string]*occupancy, len(units))
	for _, u := range units {
		if u.failure != nil {
			report.Failures = append(report.Failures, *u.failure)
			continue
		}
		id := u.lease.UnitID.String()
		byUnit[id] = u
		usage = append(usage, strategy.UnitUsage{UnitID: id, Consumption: u.consumption})
	}

	if len(usage) > 0 {
		pool, err := s.topups.SumForPeriod(ctx, req.PropertyID, month.Start, month.End)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to total pump topups: %w", err)
		}
		report.PoolCostCents = pool

		charges, err := tariff.Charge(ctx, strategy.TariffContext{
			PropertyID:       req.PropertyID.String(),
			PeriodStart:      month.Start,
			PeriodEnd:        month.End,
			RatePerUnitCents: s.config.RatePerUnitCents,
			PoolCostCents:    pool,
		}, usage)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		s.invoiceAll(ctx, report, charges, byUnit, month)
	}

	report.FinishedAt = s.clock.Now()
	s.archiveReport(ctx, report)

	s.metrics.RecordBillingRun(ctx, string(domainledger.InvoiceTypeWater),
		report.InvoicesCreated, len(report.Skipped), len(report.Failures), time.Since(started))
	s.logger.Info("water billing run finished",
		zap.String("property_id", req.PropertyID.String()),
		zap.String("billing_month", report.BillingMonth),
		zap.String("tariff", report.Tariff),
		zap.Int("invoices_created", report.InvoicesCreated),
		zap.Int("skipped", len(report.Skipped)),
		zap.Int("failures", len(report.Failures)),
	)
	return report, nil
}

// measure reads the opening and closing meter values of every unit in parallel
func (s *WaterBillingService) measure(ctx context.Context, leases []*lease.Lease, month metering.BillingMonth) []*occupancy {
	out := make([]*occupancy, len(leases))
	var g errgroup.Group
	g.SetLimit(s.config.Workers)
	for i, l := range leases {
		g.Go(func() error {
			occ := &occupancy{lease: l}
			occ.consumption, occ.failure = s.consumption(ctx, l.UnitID, month)
			out[i] = occ
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (s *WaterBillingService) consumption(ctx context.Context, unitID uuid.UUID, month metering.BillingMonth) (decimal.Decimal, *UnitFailure) {
	previous, err := s.readings.LatestOnOrBefore(ctx, unitID, metering.MeterTypeWater, month.Start.AddDate(0, 0, -1))
	if err != nil {
		return decimal.Zero, unitFailure(unitID, err)
	}
	current, err := s.readings.LatestBetween(ctx, unitID, metering.MeterTypeWater, month.Start, month.End)
	if err != nil {
		return decimal.Zero, unitFailure(unitID, err)
	}
	delta, err := metering.Consumption(previous, current)
	if err != nil {
		return decimal.Zero, unitFailure(unitID, err)
	}
	return delta, nil
}

// invoiceAll creates the invoices in parallel, one transaction per unit
func (s *WaterBillingService) invoiceAll(ctx context.Context, report *WaterBillingReport, charges []strategy.UnitCharge, byUnit map[string]*occupancy, month metering.BillingMonth) {
	var (
		mu     sync.Mutex
		events []shared.DomainEvent
		g      errgroup.Group
	)
	g.SetLimit(s.config.Workers)
	today := shared.Today(s.clock)

	for _, charge := range charges {
		occ, ok := byUnit[charge.UnitID]
		if !ok {
			continue
		}
		g.Go(func() error {
			inv, skip, err := s.invoiceUnit(ctx, occ, charge, month, today)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				report.Failures = append(report.Failures, *unitFailure(occ.lease.UnitID, err))
			case skip != "":
				report.Skipped = append(report.Skipped, SkippedUnit{UnitID: occ.lease.UnitID, Reason: skip})
			default:
				report.InvoiceIDs = append(report.InvoiceIDs, inv.ID)
				events = append(events, shared.CollectEvents(inv)...)
			}
			return nil
		})
	}
	_ = g.Wait()

	report.InvoicesCreated = len(report.InvoiceIDs)
	sortReport(report)
	if len(events) > 0 {
		if err := s.publisher.Publish(ctx, events...); err != nil {
			s.logger.Error("failed to publish water invoice events", zap.Error(err))
		}
	}
}

// invoiceUnit creates the unit's water invoice unless one is already active for the month
func (s *WaterBillingService) invoiceUnit(ctx context.Context, occ *occupancy, charge strategy.UnitCharge, month metering.BillingMonth, today time.Time) (*domainledger.Invoice, string, error) {
	if charge.AmountCents <= 0 {
		return nil, SkipZeroAmount, nil
	}
	l := occ.lease
	item, err := domainledger.NewInvoiceItem(
		fmt.Sprintf("Water %s: %s units @ %s cents", month, occ.consumption.String(), charge.Rate.StringFixed(2)),
		decimal.NewFromInt(1), charge.AmountCents)
	if err != nil {
		return nil, "", err
	}
	unitID := l.UnitID
	inv, err := domainledger.NewInvoice(domainledger.InvoiceSpec{
		PropertyID:    l.PropertyID,
		TenantID:      l.TenantID,
		UnitID:        &unitID,
		Type:          domainledger.InvoiceTypeWater,
		IssuedOn:      today,
		DueOn:         today.AddDate(0, 0, s.config.DueDays),
		BillingPeriod: month.String(),
		Items:         []domainledger.InvoiceItem{item},
		Issue:         true,
	}, today)
	if err != nil {
		return nil, "", err
	}

	var skip string
	err = s.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		exists, err := repos.Invoices().ExistsActiveForPeriod(ctx, l.PropertyID, unitID, month.String(), domainledger.InvoiceTypeWater)
		if err != nil {
			return err
		}
		if exists {
			skip = SkipAlreadyBilled
			return nil
		}
		return repos.Invoices().Create(ctx, inv)
	})
	if shared.IsKind(err, shared.KindConflict) {
		// lost the race to a concurrent run; the unique index kept one invoice
		return nil, SkipAlreadyBilled, nil
	}
	if err != nil || skip != "" {
		return nil, skip, err
	}
	return inv, "", nil
}

func (s *WaterBillingService) archiveReport(ctx context.Context, report *WaterBillingReport) {
	if s.archive == nil {
		return
	}
	key := fmt.Sprintf("%s%s/%s/%s.json", s.config.ArchivePrefix,
		report.PropertyID, report.BillingMonth, report.FinishedAt.UTC().Format("20060102T150405Z"))
	report.ArchiveKey = key

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		report.ArchiveKey = ""
		s.logger.Error("failed to encode billing run report", zap.Error(err))
		return
	}
	if err := s.archive.Upload(ctx, key, buf.Bytes(), "application/json"); err != nil {
		report.ArchiveKey = ""
		s.logger.Warn("failed to archive billing run report", zap.String("key", key), zap.Error(err))
	}
}

// latestLeasePerUnit keeps one lease per unit, the one that started last
func latestLeasePerUnit(leases []*lease.Lease) []*lease.Lease {
	byUnit := make(map[uuid.UUID]*lease.Lease, len(leases))
	for _, l := range leases {
		if cur, ok := byUnit[l.UnitID]; !ok || l.StartDate.After(cur.StartDate) {
			byUnit[l.UnitID] = l
		}
	}
	out := make([]*lease.Lease, 0, len(byUnit))
	for _, l := range byUnit {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UnitID.String() < out[j].UnitID.String() })
	return out
}

func sortReport(r *WaterBillingReport) {
	sort.Slice(r.InvoiceIDs, func(i, j int) bool { return r.InvoiceIDs[i].String() < r.InvoiceIDs[j].String() })
	sort.Slice(r.Skipped, func(i, j int) bool { return r.Skipped[i].UnitID.String() < r.Skipped[j].UnitID.String() })
	sort.Slice(r.Failures, func(i, j int) bool { return r.Failures[i].UnitID.String() < r.Failures[j].UnitID.String() })
}

func unitFailure(unitID uuid.UUID, err error) *UnitFailure {
	if de, ok := shared.AsDomainError(err); ok {
		return &UnitFailure{UnitID: unitID, Code: de.Code, Message: de.Message}
	}
	return &UnitFailure{UnitID: unitID, Code: "BILLING_FAILED", Message: err.Error()}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
