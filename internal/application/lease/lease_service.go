package lease

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/propledger/backend/internal/application/ledger"
	"github.com/propledger/backend/internal/domain/lease"
	domainledger "github.com/propledger/backend/internal/domain/ledger"
	"github.com/propledger/backend/internal/domain/shared"
	"github.com/propledger/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LeaseServiceConfig holds rent invoicing settings
type LeaseServiceConfig struct {
	// RentDueDays is added to an installment due date for its invoice due date
	RentDueDays int
}

// LeaseService manages leases and their rent schedules
type LeaseService struct {
	scope        ledger.TransactionScope
	leases       lease.LeaseRepository
	installments lease.InstallmentRepository
	coordinator  *BillingCoordinator
	publisher    shared.EventPublisher
	clock        shared.Clock
	logger       *zap.Logger
	config       LeaseServiceConfig
}

// NewLeaseService creates a new LeaseService
func NewLeaseService(
	scope ledger.TransactionScope,
	leases lease.LeaseRepository,
	installments lease.InstallmentRepository,
	coordinator *BillingCoordinator,
	publisher shared.EventPublisher,
	clock shared.Clock,
	logger *zap.Logger,
	config LeaseServiceConfig,
) *LeaseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if coordinator == nil {
		coordinator = NewBillingCoordinator(logger)
	}
	if config.RentDueDays < 0 {
		config.RentDueDays = 0
	}
	return &LeaseService{
		scope:        scope,
		leases:       leases,
		installments: installments,
		coordinator:  coordinator,
		publisher:    publisher,
		clock:        clock,
		logger:       logger,
		config:       config,
	}
}

// CreateLease signs a lease for a free unit and issues one rent invoice per installment
func (s *LeaseService) CreateLease(ctx context.Context, req CreateLeaseRequest) (*LeaseResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "lease", "create")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, req.TenantID.String(),
		telemetry.SpanAttrPropertyID, req.PropertyID.String(),
	)

	start, err := shared.ParseDate(req.StartDate)
	if err != nil {
		return nil, err
	}
	var end *time.Time
	if req.EndDate != "" {
		d, err := shared.ParseDate(req.EndDate)
		if err != nil {
			return nil, err
		}
		end = &d
	}

	today := shared.Today(s.clock)
	l, err := lease.NewLease(lease.LeaseSpec{
		PropertyID:           req.PropertyID,
		UnitID:               req.UnitID,
		TenantID:             req.TenantID,
		StartDate:            start,
		EndDate:              end,
		PlanMonths:           req.PlanMonths,
		BillingMode:          lease.BillingMode(req.BillingMode),
		RentCents:            req.RentCents,
		SecurityDepositCents: req.SecurityDepositCents,
		Notes:                req.Notes,
	}, today)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	installments := lease.BuildInstallments(l)
	invoices := make([]*domainledger.Invoice, 0, len(installments))
	for _, inst := range installments {
		inv, err := s.rentInvoice(l, inst, today)
		if err != nil {
			return nil, err
		}
		inst.InvoiceID = inv.ID
		invoices = append(invoices, inv)
	}

	err = s.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		overlapping, err := repos.Leases().ExistsOverlappingForUnit(ctx, l.UnitID, l.StartDate, l.EndDate, uuid.Nil)
		if err != nil {
			return fmt.Errorf("failed to check unit availability: %w", err)
		}
		if overlapping {
			return shared.NewConflictError("LEASE_OVERLAP",
				fmt.Sprintf("Unit already has a lease between %s and %s",
					shared.FormatDate(l.StartDate), shared.FormatDate(l.EndDate)))
		}
		if err := repos.Leases().Create(ctx, l); err != nil {
			return fmt.Errorf("failed to create lease: %w", err)
		}
		for _, inv := range invoices {
			if err := repos.Invoices().Create(ctx, inv); err != nil {
				return fmt.Errorf("failed to create rent invoice: %w", err)
			}
		}
		return repos.Installments().CreateBatch(ctx, installments)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	aggregates := make([]shared.AggregateRoot, 0, len(invoices)+1)
	aggregates = append(aggregates, l)
	for _, inv := range invoices {
		aggregates = append(aggregates, inv)
	}
	s.publish(ctx, shared.CollectEvents(aggregates...))

	s.logger.Info("lease created",
		zap.String("lease_id", l.ID.String()),
		zap.String("unit_id", l.UnitID.String()),
		zap.String("billing_mode", string(l.BillingMode)),
		zap.Int("installments", len(installments)),
	)
	telemetry.SetAttributes(span, telemetry.SpanAttrLeaseID, l.ID.String())
	resp := ToLeaseResponse(l, installments)
	return &resp, nil
}

// rentInvoice builds the issued invoice backing one installment
func (s *LeaseService) rentInvoice(l *lease.Lease, inst *lease.Installment, today time.Time) (*domainledger.Invoice, error) {
	quantity := decimal.NewFromInt(1)
	if l.BillingMode == lease.BillingModeTerm {
		quantity = decimal.NewFromInt(int64(l.PlanMonths))
	}
	item, err := domainledger.NewInvoiceItem(inst.Description(l), quantity, l.RentCents)
	if err != nil {
		return nil, err
	}
	unitID, leaseID := l.UnitID, l.ID
	return domainledger.NewInvoice(domainledger.InvoiceSpec{
		PropertyID:    l.PropertyID,
		TenantID:      l.TenantID,
		UnitID:        &unitID,
		LeaseID:       &leaseID,
		Type:          domainledger.InvoiceTypeRent,
		IssuedOn:      inst.DueDate,
		DueOn:         inst.DueDate.AddDate(0, 0, s.config.RentDueDays),
		BillingPeriod: inst.BillingPeriod(),
		Items:         []domainledger.InvoiceItem{item},
		Issue:         true,
	}, today)
}

// GetLease returns a lease with its installment schedule
func (s *LeaseService) GetLease(ctx context.Context, id uuid.UUID) (*LeaseResponse, error) {
	l, err := s.leases.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	installments, err := s.installments.FindByLease(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load installments: %w", err)
	}
	resp := ToLeaseResponse(l, installments)
	return &resp, nil
}

// ListLeases returns a page of leases
func (s *LeaseService) ListLeases(ctx context.Context, f LeaseListFilter) (*shared.Paginated[LeaseResponse], error) {
	filter := lease.LeaseFilter{
		Filter: shared.Filter{Page: f.Page, PageSize: f.PageSize, OrderBy: f.OrderBy, OrderDir: f.OrderDir},
	}
	var err error
	if filter.PropertyID, err = shared.ParseOptionalID("property_id", f.PropertyID); err != nil {
		return nil, err
	}
	if filter.UnitID, err = shared.ParseOptionalID("unit_id", f.UnitID); err != nil {
		return nil, err
	}
	if filter.TenantID, err = shared.ParseOptionalID("tenant_id", f.TenantID); err != nil {
		return nil, err
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "start_date"
	}
	filter.Normalize()
	if f.Status != "" {
		st := lease.LeaseStatus(f.Status)
		filter.Status = &st
	}

	leases, total, err := s.leases.FindAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list leases: %w", err)
	}
	items := make([]LeaseResponse, 0, len(leases))
	for _, l := range leases {
		items = append(items, ToLeaseResponse(l, nil))
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

// GetInstallment returns one rent installment with its lease's property and tenant
func (s *LeaseService) GetInstallment(ctx context.Context, id uuid.UUID) (*InstallmentResponse, error) {
	li, err := s.installments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToInstallmentResponse(li, shared.Today(s.clock))
	return &resp, nil
}

// ListInstallments returns a page of rent installments across leases
func (s *LeaseService) ListInstallments(ctx context.Context, f InstallmentListFilter) (*shared.Paginated[InstallmentResponse], error) {
	today := shared.Today(s.clock)
	filter := lease.InstallmentFilter{
		Filter: shared.Filter{Page: f.Page, PageSize: f.PageSize, OrderBy: f.OrderBy, OrderDir: f.OrderDir},
		AsOf:   &today,
	}
	var err error
	if filter.PropertyID, err = shared.ParseOptionalID("property_id", f.PropertyID); err != nil {
		return nil, err
	}
	if filter.TenantID, err = shared.ParseOptionalID("tenant_id", f.TenantID); err != nil {
		return nil, err
	}
	if filter.LeaseID, err = shared.ParseOptionalID("lease_id", f.LeaseID); err != nil {
		return nil, err
	}
	if f.Status != "" {
		st := lease.InstallmentStatus(f.Status)
		filter.Status = &st
	}
	if filter.DueFrom, err = shared.ParseOptionalDate(f.DueFrom); err != nil {
		return nil, err
	}
	if filter.DueTo, err = shared.ParseOptionalDate(f.DueTo); err != nil {
		return nil, err
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "due_date"
		if filter.OrderDir == "" {
			filter.OrderDir = "asc"
		}
	}
	filter.Normalize()

	rows, total, err := s.installments.FindAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list installments: %w", err)
	}
	items := make([]InstallmentResponse, 0, len(rows))
	for _, li := range rows {
		items = append(items, ToInstallmentResponse(li, today))
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

// ActivateLease moves a pending lease to active
func (s *LeaseService) ActivateLease(ctx context.Context, id uuid.UUID) (*LeaseResponse, error) {
	return s.mutate(ctx, id, "activate", func(l *lease.Lease) error {
		return l.Activate()
	})
}

// TerminateLease ends a lease early. Its paid-through date is kept.
func (s *LeaseService) TerminateLease(ctx context.Context, id uuid.UUID, req TerminateLeaseRequest) (*LeaseResponse, error) {
	on := shared.Today(s.clock)
	if req.On != "" {
		d, err := shared.ParseDate(req.On)
		if err != nil {
			return nil, err
		}
		on = d
	}
	return s.mutate(ctx, id, "terminate", func(l *lease.Lease) error {
		return l.Terminate(on)
	})
}

// ExpireLease closes an active lease whose end date has passed
func (s *LeaseService) ExpireLease(ctx context.Context, id uuid.UUID) (*LeaseResponse, error) {
	today := shared.Today(s.clock)
	return s.mutate(ctx, id, "expire", func(l *lease.Lease) error {
		return l.Expire(today)
	})
}

// ReconcilePaidThrough re-syncs every installment from its invoice and
// advances the paid-through date to what the schedule supports. It repairs
// leases whose update was reported as a settlement warning.
func (s *LeaseService) ReconcilePaidThrough(ctx context.Context, id uuid.UUID) (*LeaseResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "lease", "reconcile")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrLeaseID, id.String())

	now := s.clock.Now()
	today := shared.Date(now)
	var (
		l            *lease.Lease
		installments []*lease.Installment
		changed      bool
	)
	err := s.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		var err error
		l, err = repos.Leases().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if l.Status == lease.LeaseStatusTerminated {
			return shared.NewInvalidStateError(WarningLeaseTerminated,
				"Paid-through date cannot advance on a terminated lease")
		}
		installments, err = repos.Installments().FindByLease(ctx, id)
		if err != nil {
			return err
		}
		for _, inst := range installments {
			inv, err := repos.Invoices().FindByID(ctx, inst.InvoiceID)
			if err != nil {
				return fmt.Errorf("failed to load invoice of installment %d: %w", inst.Sequence, err)
			}
			if _, err := inst.SyncBalance(inv.BalanceCents, today, now); err != nil {
				return err
			}
			if err := repos.Installments().Save(ctx, inst); err != nil {
				return err
			}
		}
		changed, err = s.coordinator.advance(ctx, repos, l)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if changed {
		s.publish(ctx, shared.CollectEvents(l))
		s.logger.Info("lease paid-through date reconciled",
			zap.String("lease_id", l.ID.String()),
			zap.String("paid_through", shared.FormatDate(*l.PaidThroughDate)),
		)
	}
	resp := ToLeaseResponse(l, installments)
	return &resp, nil
}

// DeleteLease removes a lease together with its rent invoices and schedule.
// A lease with any payment allocated to its invoices cannot be deleted.
func (s *LeaseService) DeleteLease(ctx context.Context, id uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "lease", "delete")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrLeaseID, id.String())

	var (
		l       *lease.Lease
		removed int64
	)
	err := s.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		var err error
		l, err = repos.Leases().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		invoices, err := repos.Invoices().FindByLease(ctx, id)
		if err != nil {
			return err
		}
		ids := make([]uuid.UUID, 0, len(invoices))
		for _, inv := range invoices {
			ids = append(ids, inv.ID)
		}
		allocated, err := repos.Payments().CountAllocationsForInvoices(ctx, ids)
		if err != nil {
			return err
		}
		if allocated > 0 {
			return shared.NewInvalidStateError("LEASE_HAS_PAYMENTS",
				"Lease has payments allocated to its invoices and cannot be deleted")
		}
		if _, err := repos.Installments().DeleteByLease(ctx, id); err != nil {
			return err
		}
		if removed, err = repos.Invoices().DeleteByLease(ctx, id); err != nil {
			return err
		}
		return repos.Leases().Delete(ctx, id)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	s.publish(ctx, []shared.DomainEvent{lease.NewLeaseDeletedEvent(l, removed)})
	s.logger.Info("lease deleted",
		zap.String("lease_id", id.String()),
		zap.Int64("invoices_removed", removed),
	)
	return nil
}

func (s *LeaseService) mutate(ctx context.Context, id uuid.UUID, op string, fn func(*lease.Lease) error) (*LeaseResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "lease", op)
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrLeaseID, id.String())

	var l *lease.Lease
	err := s.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		var err error
		l, err = repos.Leases().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(l); err != nil {
			return err
		}
		return repos.Leases().SaveWithLock(ctx, l)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.publish(ctx, shared.CollectEvents(l))
	resp := ToLeaseResponse(l, nil)
	return &resp, nil
}

func (s *LeaseService) publish(ctx context.Context, events []shared.DomainEvent) {
	if len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Error("failed to publish lease events", zap.Error(err))
	}
}
