package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/propledger/backend/internal/domain/ledger"
	"github.com/propledger/backend/internal/domain/shared"
)

// SettlementWarning reports lease bookkeeping that could not follow a settled invoice.
// The payment that settled the invoice is committed regardless.
type SettlementWarning struct {
	InvoiceID uuid.UUID  `json:"invoice_id"`
	LeaseID   *uuid.UUID `json:"lease_id,omitempty"`
	Code      string     `json:"code"`
	Message   string     `json:"message"`
}

// SettlementOutcome is what a SettlementListener did with the invoices of one payment
type SettlementOutcome struct {
	Warnings []SettlementWarning
	// Events are published after the surrounding transaction commits
	Events []shared.DomainEvent
}

// SettlementListener is told about every invoice a payment touched, paid in
// full or not, inside the payment transaction. Implementations isolate their own failures (for
// example with repos.Savepoint) and report them as warnings; a returned
// warning never rolls the payment back.
type SettlementListener interface {
	AfterAllocation(ctx context.Context, repos TransactionalRepositories, invoices []*ledger.Invoice, now time.Time) SettlementOutcome
}
