package lease

import (
	"context"
	"fmt"
	"time"

	"github.com/propledger/backend/internal/application/ledger"
	"github.com/propledger/backend/internal/domain/lease"
	domainledger "github.com/propledger/backend/internal/domain/ledger"
	"github.com/propledger/backend/internal/domain/shared"
	"github.com/propledger/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Settlement warning codes
const (
	WarningLeaseNotFound       = "LEASE_NOT_FOUND"
	WarningInstallmentNotFound = "INSTALLMENT_NOT_FOUND"
	WarningLeaseTerminated     = "LEASE_TERMINATED"
	WarningLeaseUpdateFailed   = "LEASE_UPDATE_FAILED"
)

// BillingCoordinator keeps rent installments and lease paid-through dates in
// step with the rent invoices a payment touched. Each invoice is handled in its
// own savepoint, so one broken lease cannot undo the payment or the other leases.
type BillingCoordinator struct {
	logger  *zap.Logger
	metrics *telemetry.LedgerMetrics
}

// NewBillingCoordinator creates a new BillingCoordinator
func NewBillingCoordinator(logger *zap.Logger) *BillingCoordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BillingCoordinator{logger: logger}
}

// SetLedgerMetrics sets the optional metrics recorder
func (c *BillingCoordinator) SetLedgerMetrics(m *telemetry.LedgerMetrics) {
	c.metrics = m
}

// AfterAllocation implements ledger.SettlementListener
func (c *BillingCoordinator) AfterAllocation(ctx context.Context, repos ledger.TransactionalRepositories, invoices []*domainledger.Invoice, now time.Time) ledger.SettlementOutcome {
	var out ledger.SettlementOutcome
	today := shared.Date(now)

	for _, inv := range invoices {
		if inv.Type != domainledger.InvoiceTypeRent || inv.LeaseID == nil {
			continue
		}
		var (
			events  []shared.DomainEvent
			warning *ledger.SettlementWarning
		)
		err := repos.Savepoint(ctx, func(sp ledger.TransactionalRepositories) error {
			var err error
			events, warning, err = c.syncInvoice(ctx, sp, inv, today, now)
			return err
		})
		if err != nil {
			warning = warningFromError(inv, err)
			events = nil
		}
		if warning != nil {
			out.Warnings = append(out.Warnings, *warning)
		}
		out.Events = append(out.Events, events...)
	}
	return out
}

// syncInvoice mirrors one rent invoice onto its installment and advances the
// lease when the installment became paid. A warning without an error keeps
// whatever was written in the savepoint.
func (c *BillingCoordinator) syncInvoice(
	ctx context.Context,
	repos ledger.TransactionalRepositories,
	inv *domainledger.Invoice,
	today, now time.Time,
) ([]shared.DomainEvent, *ledger.SettlementWarning, error) {
	l, err := repos.Leases().FindByIDForUpdate(ctx, *inv.LeaseID)
	if shared.IsKind(err, shared.KindNotFound) {
		return nil, newWarning(inv, WarningLeaseNotFound, "Lease of the invoice no longer exists"), nil
	}
	if err != nil {
		return nil, nil, err
	}
	inst, err := repos.Installments().FindByInvoice(ctx, inv.ID)
	if shared.IsKind(err, shared.KindNotFound) {
		return nil, newWarning(inv, WarningInstallmentNotFound, "Invoice is not on the lease schedule"), nil
	}
	if err != nil {
		return nil, nil, err
	}

	becamePaid, err := inst.SyncBalance(inv.BalanceCents, today, now)
	if err != nil {
		return nil, nil, err
	}
	if err := repos.Installments().Save(ctx, inst); err != nil {
		return nil, nil, err
	}

	if l.Status == lease.LeaseStatusTerminated {
		return nil, newWarning(inv, WarningLeaseTerminated,
			"Lease is terminated; its paid-through date was not advanced"), nil
	}
	if !becamePaid {
		return nil, nil, nil
	}

	changed, err := c.advance(ctx, repos, l)
	if err != nil || !changed {
		return nil, nil, err
	}
	c.logger.Info("lease paid-through date advanced",
		zap.String("lease_id", l.ID.String()),
		zap.String("invoice_id", inv.ID.String()),
		zap.String("paid_through", shared.FormatDate(*l.PaidThroughDate)),
	)
	return shared.CollectEvents(l), nil, nil
}

// advance recomputes the paid-through date from the installment schedule and
// saves the lease when it moved forward
func (c *BillingCoordinator) advance(ctx context.Context, repos ledger.TransactionalRepositories, l *lease.Lease) (bool, error) {
	installments, err := repos.Installments().FindByLease(ctx, l.ID)
	if err != nil {
		return false, err
	}
	through := l.SettledThrough(installments)
	if through == nil {
		return false, nil
	}
	changed, err := l.AdvancePaidThrough(*through)
	if err != nil || !changed {
		return false, err
	}
	if err := repos.Leases().SaveWithLock(ctx, l); err != nil {
		return false, err
	}
	c.metrics.RecordPaidThroughAdvance(ctx, l.TenantID)
	return true, nil
}

func newWarning(inv *domainledger.Invoice, code, message string) *ledger.SettlementWarning {
	return &ledger.SettlementWarning{
		InvoiceID: inv.ID,
		LeaseID:   inv.LeaseID,
		Code:      code,
		Message:   message,
	}
}

func warningFromError(inv *domainledger.Invoice, err error) *ledger.SettlementWarning {
	if de, ok := shared.AsDomainError(err); ok && de.Code == WarningLeaseTerminated {
		return newWarning(inv, de.Code, de.Message)
	}
	return newWarning(inv, WarningLeaseUpdateFailed, fmt.Sprintf("Lease update failed: %v", err))
}

var _ ledger.SettlementListener = (*BillingCoordinator)(nil)
