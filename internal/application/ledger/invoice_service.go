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

// InvoiceService manages the invoice ledger
type InvoiceService struct {
	scope     TransactionScope
	invoices  ledger.InvoiceRepository
	payments  ledger.PaymentRepository
	publisher shared.EventPublisher
	clock     shared.Clock
	logger    *zap.Logger
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	scope TransactionScope,
	invoices ledger.InvoiceRepository,
	payments ledger.PaymentRepository,
	publisher shared.EventPublisher,
	clock shared.Clock,
	logger *zap.Logger,
) *InvoiceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceService{
		scope:     scope,
		invoices:  invoices,
		payments:  payments,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
	}
}

// CreateInvoice creates a draft invoice, or an issued one when req.Issue is set
func (s *InvoiceService) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*InvoiceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "create")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, req.TenantID.String(),
		telemetry.SpanAttrInvoiceType, req.Type,
		telemetry.SpanAttrAmountCents, req.AmountCents,
	)

	today := shared.Today(s.clock)
	issuedOn := today
	if req.IssuedOn != "" {
		d, err := shared.ParseDate(req.IssuedOn)
		if err != nil {
			return nil, err
		}
		issuedOn = d
	}
	dueOn, err := shared.ParseDate(req.DueOn)
	if err != nil {
		return nil, err
	}

	items := make([]ledger.InvoiceItem, 0, len(req.Items))
	for _, in := range req.Items {
		item, err := ledger.NewInvoiceItem(in.Description, in.Quantity, in.UnitPriceCents)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	inv, err := ledger.NewInvoice(ledger.InvoiceSpec{
		PropertyID:    req.PropertyID,
		TenantID:      req.TenantID,
		UnitID:        req.UnitID,
		LeaseID:       req.LeaseID,
		Type:          ledger.InvoiceType(req.Type),
		AmountCents:   req.AmountCents,
		IssuedOn:      issuedOn,
		DueOn:         dueOn,
		BillingPeriod: req.BillingPeriod,
		Notes:         req.Notes,
		Items:         items,
		Issue:         req.Issue,
	}, today)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		return repos.Invoices().Create(ctx, inv)
	}); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}

	s.publish(ctx, inv)
	telemetry.SetAttributes(span, telemetry.SpanAttrInvoiceID, inv.ID.String())
	resp := ToInvoiceResponse(inv)
	return &resp, nil
}

// GetInvoice returns an invoice with its allocations. The status is evaluated against today.
func (s *InvoiceService) GetInvoice(ctx context.Context, id uuid.UUID) (*InvoiceResponse, error) {
	inv, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	inv.RefreshStatus(shared.Today(s.clock))

	allocations, err := s.payments.FindAllocationsByInvoice(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load allocations: %w", err)
	}
	resp := ToInvoiceResponse(inv)
	resp.Allocations = ToAllocationResponses(allocations)
	return &resp, nil
}

// ListInvoices returns a page of invoices with statuses evaluated against today
func (s *InvoiceService) ListInvoices(ctx context.Context, f InvoiceListFilter) (*shared.Paginated[InvoiceResponse], error) {
	filter := ledger.InvoiceFilter{
		Filter: pageFilter(f.Page, f.PageSize, f.OrderBy, f.OrderDir, "due_on"),
	}
	var err error
	if filter.PropertyID, err = shared.ParseOptionalID("property_id", f.PropertyID); err != nil {
		return nil, err
	}
	if filter.TenantID, err = shared.ParseOptionalID("tenant_id", f.TenantID); err != nil {
		return nil, err
	}
	if filter.UnitID, err = shared.ParseOptionalID("unit_id", f.UnitID); err != nil {
		return nil, err
	}
	if filter.LeaseID, err = shared.ParseOptionalID("lease_id", f.LeaseID); err != nil {
		return nil, err
	}
	if f.Type != "" {
		t := ledger.InvoiceType(f.Type)
		filter.Type = &t
	}
	if f.Status != "" {
		st := ledger.InvoiceStatus(f.Status)
		filter.Status = &st
	}
	if filter.DueFrom, err = shared.ParseOptionalDate(f.DueFrom); err != nil {
		return nil, err
	}
	if filter.DueTo, err = shared.ParseOptionalDate(f.DueTo); err != nil {
		return nil, err
	}

	today := shared.Today(s.clock)
	filter.AsOf = &today

	invoices, total, err := s.invoices.FindAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	items := make([]InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		inv.RefreshStatus(today)
		items = append(items, ToInvoiceResponse(inv))
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

// UpdateInvoice applies a status transition (only "issued") and/or a notes change
func (s *InvoiceService) UpdateInvoice(ctx context.Context, id uuid.UUID, req UpdateInvoiceRequest) (*InvoiceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "update")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrInvoiceID, id.String())

	if req.Status == nil && req.Notes == nil {
		return nil, shared.NewValidationError(shared.CodeValidation, "Nothing to update")
	}
	if req.Status != nil && ledger.InvoiceStatus(*req.Status) != ledger.InvoiceStatusIssued {
		return nil, shared.NewValidationError("INVALID_STATUS",
			fmt.Sprintf("Invoices can only be moved to %s through this operation", ledger.InvoiceStatusIssued))
	}

	inv, err := s.mutate(ctx, id, func(inv *ledger.Invoice, today time.Time) error {
		if req.Status != nil {
			if err := inv.Issue(today); err != nil {
				return err
			}
		}
		if req.Notes != nil {
			return inv.UpdateNotes(*req.Notes)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	resp := ToInvoiceResponse(inv)
	return &resp, nil
}

// VoidInvoice cancels an invoice's remaining obligation. Prior allocations stay on record.
func (s *InvoiceService) VoidInvoice(ctx context.Context, id uuid.UUID, req VoidInvoiceRequest) (*InvoiceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "void")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrInvoiceID, id.String())

	inv, err := s.mutate(ctx, id, func(inv *ledger.Invoice, _ time.Time) error {
		return inv.Void(req.Reason, s.clock.Now())
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.logger.Info("invoice voided",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.Int64("amount_paid_cents", inv.AmountPaidCents),
	)
	resp := ToInvoiceResponse(inv)
	return &resp, nil
}

// InvoiceIDForItem returns the invoice that owns a line
func (s *InvoiceService) InvoiceIDForItem(ctx context.Context, itemID uuid.UUID) (uuid.UUID, error) {
	return s.invoices.FindInvoiceIDByItem(ctx, itemID)
}

// AddInvoiceItem appends a line to a draft invoice
func (s *InvoiceService) AddInvoiceItem(ctx context.Context, invoiceID uuid.UUID, req InvoiceItemInput) (*InvoiceResponse, error) {
	item, err := ledger.NewInvoiceItem(req.Description, req.Quantity, req.UnitPriceCents)
	if err != nil {
		return nil, err
	}
	return s.editItems(ctx, invoiceID, func(inv *ledger.Invoice) error {
		return inv.AddItem(item)
	})
}

// UpdateInvoiceItem changes a line of a draft invoice
func (s *InvoiceService) UpdateInvoiceItem(ctx context.Context, itemID uuid.UUID, req UpdateInvoiceItemRequest) (*InvoiceResponse, error) {
	if req.Description == nil && req.Quantity == nil && req.UnitPriceCents == nil {
		return nil, shared.NewValidationError(shared.CodeValidation, "Nothing to update")
	}
	invoiceID, err := s.invoices.FindInvoiceIDByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return s.editItems(ctx, invoiceID, func(inv *ledger.Invoice) error {
		var current ledger.InvoiceItem
		for _, it := range inv.Items {
			if it.ID == itemID {
				current = it
			}
		}
		if req.Description != nil {
			current.Description = *req.Description
		}
		if req.Quantity != nil {
			current.Quantity = *req.Quantity
		}
		if req.UnitPriceCents != nil {
			current.UnitPriceCents = *req.UnitPriceCents
		}
		item, err := ledger.NewInvoiceItem(current.Description, current.Quantity, current.UnitPriceCents)
		if err != nil {
			return err
		}
		return inv.UpdateItem(itemID, item)
	})
}

// RemoveInvoiceItem drops a line from a draft invoice
func (s *InvoiceService) RemoveInvoiceItem(ctx context.Context, itemID uuid.UUID) (*InvoiceResponse, error) {
	invoiceID, err := s.invoices.FindInvoiceIDByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return s.editItems(ctx, invoiceID, func(inv *ledger.Invoice) error {
		return inv.RemoveItem(itemID)
	})
}

func (s *InvoiceService) editItems(ctx context.Context, invoiceID uuid.UUID, fn func(inv *ledger.Invoice) error) (*InvoiceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "edit_items")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrInvoiceID, invoiceID.String())

	inv, err := s.save(ctx, invoiceID, true, func(inv *ledger.Invoice, _ time.Time) error {
		return fn(inv)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	resp := ToInvoiceResponse(inv)
	return &resp, nil
}

// mutate loads the invoice under a row lock, applies fn and writes it back with a version check
func (s *InvoiceService) mutate(ctx context.Context, id uuid.UUID, fn func(inv *ledger.Invoice, today time.Time) error) (*ledger.Invoice, error) {
	return s.save(ctx, id, false, fn)
}

func (s *InvoiceService) save(ctx context.Context, id uuid.UUID, withItems bool, fn func(inv *ledger.Invoice, today time.Time) error) (*ledger.Invoice, error) {
	today := shared.Today(s.clock)
	var inv *ledger.Invoice
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		inv, err = repos.Invoices().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		inv.RefreshStatus(today)
		if err := fn(inv, today); err != nil {
			return err
		}
		if err := repos.Invoices().SaveWithLock(ctx, inv); err != nil {
			return err
		}
		if withItems {
			return repos.Invoices().SaveItems(ctx, inv)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, inv)
	return inv, nil
}

func (s *InvoiceService) publish(ctx context.Context, inv *ledger.Invoice) {
	if err := s.publisher.Publish(ctx, shared.CollectEvents(inv)...); err != nil {
		s.logger.Error("failed to publish invoice events",
			zap.String("invoice_id", inv.ID.String()),
			zap.Error(err),
		)
	}
}
