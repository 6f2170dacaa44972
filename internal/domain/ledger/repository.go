package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/propledger/backend/internal/domain/shared"
)

// InvoiceFilter narrows invoice list queries
type InvoiceFilter struct {
	shared.Filter
	PropertyID *uuid.UUID
	TenantID   *uuid.UUID
	UnitID     *uuid.UUID
	LeaseID    *uuid.UUID
	Type       *InvoiceType
	Status     *InvoiceStatus
	DueFrom    *time.Time
	DueTo      *time.Time
	// AsOf is the reference date for the derived statuses issued, partial
	// and overdue. Without it Status matches the stored column.
	AsOf *time.Time
}

// OpenInvoiceQuery selects the allocation candidates of one tenant
type OpenInvoiceQuery struct {
	TenantID   uuid.UUID
	PropertyID *uuid.UUID
	// ForUpdate takes row locks on the selected invoices until the transaction ends
	ForUpdate bool
}

// InvoiceRepository defines persistence operations for invoices
type InvoiceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	// FindByIDForUpdate loads the invoice with a row lock
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Invoice, error)
	FindByNumber(ctx context.Context, number string) (*Invoice, error)
	// FindOpen returns non-void invoices with status issued, partial or overdue and a positive balance
	FindOpen(ctx context.Context, q OpenInvoiceQuery) ([]*Invoice, error)
	FindAll(ctx context.Context, filter InvoiceFilter) ([]*Invoice, int64, error)
	FindByLease(ctx context.Context, leaseID uuid.UUID) ([]*Invoice, error)
	// ExistsActiveForPeriod reports whether a non-void invoice of the type exists for the unit and period
	ExistsActiveForPeriod(ctx context.Context, propertyID, unitID uuid.UUID, period string, invoiceType InvoiceType) (bool, error)
	// Create inserts a new invoice with its items
	Create(ctx context.Context, inv *Invoice) error
	// SaveWithLock updates an existing invoice if its version is unchanged, then bumps the version
	SaveWithLock(ctx context.Context, inv *Invoice) error
	// SaveItems replaces the stored lines of the invoice with inv.Items
	SaveItems(ctx context.Context, inv *Invoice) error
	// FindInvoiceIDByItem returns the invoice that owns the line
	FindInvoiceIDByItem(ctx context.Context, itemID uuid.UUID) (uuid.UUID, error)
	DeleteByLease(ctx context.Context, leaseID uuid.UUID) (int64, error)
}

// PaymentFilter narrows payment list queries
type PaymentFilter struct {
	shared.Filter
	PropertyID *uuid.UUID
	TenantID   *uuid.UUID
	Method     *PaymentMethod
	PaidFrom   *time.Time
	PaidTo     *time.Time
}

// AllocationFilter narrows allocation list queries. Property and tenant come from the payment.
type AllocationFilter struct {
	shared.Filter
	PropertyID *uuid.UUID
	TenantID   *uuid.UUID
	PaymentID  *uuid.UUID
	InvoiceID  *uuid.UUID
}

// PaymentAllocation is an allocation read together with its payment's property, tenant and reference
type PaymentAllocation struct {
	Allocation
	PropertyID       uuid.UUID
	TenantID         uuid.UUID
	PaymentReference string
}

// PaymentRepository defines persistence operations for payments and their allocations
type PaymentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	FindByReference(ctx context.Context, propertyID uuid.UUID, reference string) (*Payment, error)
	FindAll(ctx context.Context, filter PaymentFilter) ([]*Payment, int64, error)
	// Create inserts the payment and all of its allocations
	Create(ctx context.Context, p *Payment) error
	FindAllocationsByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]Allocation, error)
	CountAllocationsForInvoices(ctx context.Context, invoiceIDs []uuid.UUID) (int64, error)
	FindAllocationByID(ctx context.Context, id uuid.UUID) (*PaymentAllocation, error)
	FindAllocations(ctx context.Context, filter AllocationFilter) ([]PaymentAllocation, int64, error)
}
