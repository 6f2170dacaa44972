package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/propledger/backend/internal/domain/ledger"
	"github.com/propledger/backend/internal/domain/shared"
	"github.com/propledger/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// PaymentServiceConfig tunes retries and tenant lock waiting
type PaymentServiceConfig struct {
	// RetryAttempts is how many times a payment is retried after a concurrency conflict
	RetryAttempts int
	// LockWait bounds the wait for the tenant lock
	LockWait time.Duration
}

// DefaultPaymentServiceConfig returns 3 retries and a 10s lock wait
func DefaultPaymentServiceConfig() PaymentServiceConfig {
	return PaymentServiceConfig{RetryAttempts: 3, LockWait: 10 * time.Second}
}

// PaymentService records payments and allocates them to open invoices
type PaymentService struct {
	scope      TransactionScope
	payments   ledger.PaymentRepository
	allocator  *ledger.AllocationService
	locker     shared.Locker
	publisher  shared.EventPublisher
	clock      shared.Clock
	logger     *zap.Logger
	config     PaymentServiceConfig
	settlement SettlementListener
	metrics    *telemetry.LedgerMetrics
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	scope TransactionScope,
	payments ledger.PaymentRepository,
	allocator *ledger.AllocationService,
	locker shared.Locker,
	publisher shared.EventPublisher,
	clock shared.Clock,
	logger *zap.Logger,
	config PaymentServiceConfig,
) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.LockWait <= 0 {
		config.LockWait = DefaultPaymentServiceConfig().LockWait
	}
	if config.RetryAttempts < 0 {
		config.RetryAttempts = 0
	}
	return &PaymentService{
		scope:     scope,
		payments:  payments,
		allocator: allocator,
		locker:    locker,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
		config:    config,
	}
}

// SetSettlementListener registers the listener told about invoices each payment touched
func (s *PaymentService) SetSettlementListener(l SettlementListener) {
	s.settlement = l
}

// SetLedgerMetrics sets the optional metrics recorder
func (s *PaymentService) SetLedgerMetrics(m *telemetry.LedgerMetrics) {
	s.metrics = m
}

// TenantLockKey is the lock that serializes payments of one tenant
func TenantLockKey(tenantID uuid.UUID) string {
	return "tenant:" + tenantID.String()
}

// RecordPayment stores a payment and allocates it oldest-first to the tenant's
// open invoices of the same property, all in one transaction. Concurrency
// conflicts rerun the whole operation a bounded number of times.
func (s *PaymentService) RecordPayment(ctx context.Context, req RecordPaymentRequest) (*RecordPaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "record")
	defer span.End()
	started := time.Now()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, req.TenantID.String(),
		telemetry.SpanAttrPropertyID, req.PropertyID.String(),
		telemetry.SpanAttrReference, req.Reference,
		telemetry.SpanAttrAmountCents, req.AmountCents,
	)

	paidAt := s.clock.Now()
	if req.PaidAt != nil {
		paidAt = req.PaidAt.UTC()
	}
	spec := ledger.PaymentSpec{
		PropertyID:  req.PropertyID,
		TenantID:    req.TenantID,
		Reference:   req.Reference,
		Method:      ledger.PaymentMethod(req.Method),
		AmountCents: req.AmountCents,
		PaidAt:      paidAt,
		Notes:       req.Notes,
	}
	if err := spec.Validate(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	lockCtx, cancel := context.WithTimeout(ctx, s.config.LockWait)
	unlock, err := s.locker.Lock(lockCtx, TenantLockKey(req.TenantID))
	cancel()
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to acquire tenant lock: %w", err)
	}
	defer unlock()

	var (
		result *RecordPaymentResult
		events []shared.DomainEvent
	)
	for attempt := 1; ; attempt++ {
		result, events, err = s.recordOnce(ctx, spec)
		if err == nil {
			break
		}
		if !shared.IsConcurrencyConflict(err) || attempt > s.config.RetryAttempts {
			telemetry.RecordError(span, err)
			return nil, err
		}
		s.metrics.RecordPaymentRetry(ctx, req.TenantID)
		s.logger.Warn("payment hit a concurrency conflict, retrying",
			zap.String("tenant_id", req.TenantID.String()),
			zap.String("reference", req.Reference),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		telemetry.AddEvent(span, "retry", telemetry.SpanAttrAttempt, attempt)
	}

	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Error("failed to publish payment events",
			zap.String("payment_id", result.Payment.ID.String()),
			zap.Error(err),
		)
	}
	for _, w := range result.Warnings {
		s.metrics.RecordSettlementWarning(ctx, w.Code)
		s.logger.Warn("settled invoice could not update its lease",
			zap.String("payment_id", result.Payment.ID.String()),
			zap.String("invoice_id", w.InvoiceID.String()),
			zap.String("code", w.Code),
			zap.String("message", w.Message),
		)
	}

	s.metrics.RecordPayment(ctx, req.TenantID, req.Method, req.AmountCents,
		result.UnallocatedCents, len(result.Allocations), time.Since(started))
	telemetry.SetAttributes(span,
		telemetry.SpanAttrPaymentID, result.Payment.ID.String(),
		telemetry.SpanAttrAllocations, len(result.Allocations),
		telemetry.SpanAttrUnallocated, result.UnallocatedCents,
	)
	return result, nil
}

// recordOnce runs one attempt with a fresh payment aggregate
func (s *PaymentService) recordOnce(ctx context.Context, spec ledger.PaymentSpec) (*RecordPaymentResult, []shared.DomainEvent, error) {
	payment, err := ledger.NewPayment(spec)
	if err != nil {
		return nil, nil, err
	}
	now := s.clock.Now()
	today := shared.Date(now)

	var (
		outcome    *ledger.AllocationOutcome
		settlement SettlementOutcome
	)
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		existing, err := repos.Payments().FindByReference(ctx, payment.PropertyID, payment.Reference)
		if err != nil && !shared.IsKind(err, shared.KindNotFound) {
			return fmt.Errorf("failed to check payment reference: %w", err)
		}
		if existing != nil {
			return shared.NewConflictError("DUPLICATE_REFERENCE",
				fmt.Sprintf("Payment reference %q is already recorded for this property", payment.Reference))
		}

		propertyID := payment.PropertyID
		open, err := repos.Invoices().FindOpen(ctx, ledger.OpenInvoiceQuery{
			TenantID:   payment.TenantID,
			PropertyID: &propertyID,
			ForUpdate:  true,
		})
		if err != nil {
			return fmt.Errorf("failed to load open invoices: %w", err)
		}
		for _, inv := range open {
			inv.RefreshStatus(today)
		}

		outcome, err = s.allocator.Allocate(ctx, payment, open, now)
		if err != nil {
			return err
		}
		if err := repos.Payments().Create(ctx, payment); err != nil {
			return fmt.Errorf("failed to save payment: %w", err)
		}
		for _, inv := range outcome.TouchedInvoices {
			if err := repos.Invoices().SaveWithLock(ctx, inv); err != nil {
				return err
			}
		}

		if s.settlement != nil && len(outcome.TouchedInvoices) > 0 {
			settlement = s.settlement.AfterAllocation(ctx, repos, outcome.TouchedInvoices, now)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	aggregates := make([]shared.AggregateRoot, 0, len(outcome.TouchedInvoices)+1)
	aggregates = append(aggregates, payment)
	for _, inv := range outcome.TouchedInvoices {
		aggregates = append(aggregates, inv)
	}
	events := append(shared.CollectEvents(aggregates...), settlement.Events...)

	settled := make([]uuid.UUID, 0, len(outcome.SettledInvoices))
	for _, inv := range outcome.SettledInvoices {
		settled = append(settled, inv.ID)
	}
	warnings := settlement.Warnings
	if warnings == nil {
		warnings = []SettlementWarning{}
	}
	return &RecordPaymentResult{
		Payment:          ToPaymentResponse(payment),
		Allocations:      ToAllocationResponses(outcome.Allocations),
		UnallocatedCents: outcome.UnallocatedCents,
		FullyUnallocated: outcome.FullyUnallocated,
		SettledInvoices:  settled,
		Warnings:         warnings,
	}, events, nil
}

// GetPayment returns a payment with its allocations
func (s *PaymentService) GetPayment(ctx context.Context, id uuid.UUID) (*PaymentResponse, error) {
	p, err := s.payments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToPaymentResponse(p)
	return &resp, nil
}

// GetUnallocated returns the stored unallocated remainder of a payment
func (s *PaymentService) GetUnallocated(ctx context.Context, id uuid.UUID) (int64, error) {
	p, err := s.payments.FindByID(ctx, id)
	if err != nil {
		return 0, err
	}
	return p.UnallocatedCents, nil
}

// ListPayments returns a page of payments
func (s *PaymentService) ListPayments(ctx context.Context, f PaymentListFilter) (*shared.Paginated[PaymentResponse], error) {
	filter := ledger.PaymentFilter{
		Filter: pageFilter(f.Page, f.PageSize, f.OrderBy, f.OrderDir, "paid_at"),
	}
	var err error
	if filter.PropertyID, err = shared.ParseOptionalID("property_id", f.PropertyID); err != nil {
		return nil, err
	}
	if filter.TenantID, err = shared.ParseOptionalID("tenant_id", f.TenantID); err != nil {
		return nil, err
	}
	if f.Method != "" {
		m := ledger.PaymentMethod(f.Method)
		filter.Method = &m
	}
	if filter.PaidFrom, err = shared.ParseOptionalDate(f.PaidFrom); err != nil {
		return nil, err
	}
	if filter.PaidTo, err = shared.ParseOptionalDate(f.PaidTo); err != nil {
		return nil, err
	}
	if filter.PaidTo != nil {
		end := filter.PaidTo.AddDate(0, 0, 1).Add(-time.Nanosecond)
		filter.PaidTo = &end
	}

	payments, total, err := s.payments.FindAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	items := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		items = append(items, ToPaymentResponse(p))
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

// GetAllocation returns one payment allocation
func (s *PaymentService) GetAllocation(ctx context.Context, id uuid.UUID) (*PaymentAllocationResponse, error) {
	a, err := s.payments.FindAllocationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToPaymentAllocationResponse(*a)
	return &resp, nil
}

// ListAllocations returns a page of payment allocations across payments
func (s *PaymentService) ListAllocations(ctx context.Context, f AllocationListFilter) (*shared.Paginated[PaymentAllocationResponse], error) {
	filter := ledger.AllocationFilter{
		Filter: pageFilter(f.Page, f.PageSize, f.OrderBy, f.OrderDir, "allocated_at"),
	}
	var err error
	if filter.PropertyID, err = shared.ParseOptionalID("property_id", f.PropertyID); err != nil {
		return nil, err
	}
	if filter.TenantID, err = shared.ParseOptionalID("tenant_id", f.TenantID); err != nil {
		return nil, err
	}
	if filter.PaymentID, err = shared.ParseOptionalID("payment_id", f.PaymentID); err != nil {
		return nil, err
	}
	if filter.InvoiceID, err = shared.ParseOptionalID("invoice_id", f.InvoiceID); err != nil {
		return nil, err
	}

	rows, total, err := s.payments.FindAllocations(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list allocations: %w", err)
	}
	items := make([]PaymentAllocationResponse, 0, len(rows))
	for _, a := range rows {
		items = append(items, ToPaymentAllocationResponse(a))
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

func pageFilter(page, size int, orderBy, orderDir, defaultOrder string) shared.Filter {
	f := shared.Filter{Page: page, PageSize: size, OrderBy: orderBy, OrderDir: orderDir}
	if f.OrderBy == "" {
		f.OrderBy = defaultOrder
	}
	f.Normalize()
	return f
}

