package ledger

import (
	"context"

	"github.com/propledger/backend/internal/domain/lease"
	"github.com/propledger/backend/internal/domain/ledger"
)

// TransactionScope defines an interface for executing operations within a transaction.
// Everything done through the repositories handed to fn commits or rolls back together.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the ledger and lease repositories within a transaction.
// All repositories returned share the same underlying database transaction.
type TransactionalRepositories interface {
	Invoices() ledger.InvoiceRepository
	Payments() ledger.PaymentRepository
	Leases() lease.LeaseRepository
	Installments() lease.InstallmentRepository
	// Savepoint runs fn in a nested transaction. An error from fn rolls back only the
	// work done inside fn; the outer transaction stays usable.
	Savepoint(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}
