package persistence

import (
	"context"

	appledger "github.com/propledger/backend/internal/application/ledger"
	"github.com/propledger/backend/internal/domain/lease"
	"github.com/propledger/backend/internal/domain/ledger"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appledger.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// Invoices returns the invoice repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Invoices() ledger.InvoiceRepository {
	return NewGormInvoiceRepository(r.tx)
}

// Payments returns the payment repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Payments() ledger.PaymentRepository {
	return NewGormPaymentRepository(r.tx)
}

// Leases returns the lease repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Leases() lease.LeaseRepository {
	return NewGormLeaseRepository(r.tx)
}

// Installments returns the installment repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Installments() lease.InstallmentRepository {
	return NewGormInstallmentRepository(r.tx)
}

// Savepoint runs fn inside a nested transaction, which GORM maps to SAVEPOINT / ROLLBACK TO.
func (r *gormTransactionalRepositories) Savepoint(ctx context.Context, fn func(repos appledger.TransactionalRepositories) error) error {
	return r.tx.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// Ensure GormTransactionScope implements TransactionScope
var _ appledger.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appledger.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
