package lease

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/propledger/backend/internal/domain/shared"
)

// LeaseFilter narrows lease list queries
type LeaseFilter struct {
	shared.Filter
	PropertyID *uuid.UUID
	UnitID     *uuid.UUID
	TenantID   *uuid.UUID
	Status     *LeaseStatus
}

// InstallmentFilter narrows installment list queries. Property and tenant
// are matched on the owning lease.
type InstallmentFilter struct {
	shared.Filter
	PropertyID *uuid.UUID
	TenantID   *uuid.UUID
	LeaseID    *uuid.UUID
	Status     *InstallmentStatus
	DueFrom    *time.Time
	DueTo      *time.Time
	// AsOf derives overdue from the due date instead of the stored status
	AsOf *time.Time
}

// LeaseInstallment is an installment read together with its lease's property and tenant
type LeaseInstallment struct {
	*Installment
	PropertyID uuid.UUID
	TenantID   uuid.UUID
}

// LeaseRepository defines persistence operations for leases
type LeaseRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Lease, error)
	// FindByIDForUpdate loads the lease with a row lock
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Lease, error)
	FindAll(ctx context.Context, filter LeaseFilter) ([]*Lease, int64, error)
	// FindActiveForPropertyInPeriod returns active leases of the property overlapping [from, to]
	FindActiveForPropertyInPeriod(ctx context.Context, propertyID uuid.UUID, from, to time.Time) ([]*Lease, error)
	// FindPropertiesWithActiveLeases returns the distinct properties having an active lease overlapping [from, to]
	FindPropertiesWithActiveLeases(ctx context.Context, from, to time.Time) ([]uuid.UUID, error)
	// ExistsOverlappingForUnit reports whether another pending or active lease covers part of [from, to]
	ExistsOverlappingForUnit(ctx context.Context, unitID uuid.UUID, from, to time.Time, excludeID uuid.UUID) (bool, error)
	Create(ctx context.Context, l *Lease) error
	// SaveWithLock updates the lease if its version is unchanged, then bumps the version
	SaveWithLock(ctx context.Context, l *Lease) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// InstallmentRepository defines persistence operations for rent installments
type InstallmentRepository interface {
	// FindByLease returns the installments ordered by sequence
	FindByLease(ctx context.Context, leaseID uuid.UUID) ([]*Installment, error)
	FindByInvoice(ctx context.Context, invoiceID uuid.UUID) (*Installment, error)
	FindByID(ctx context.Context, id uuid.UUID) (*LeaseInstallment, error)
	FindAll(ctx context.Context, filter InstallmentFilter) ([]*LeaseInstallment, int64, error)
	CreateBatch(ctx context.Context, installments []*Installment) error
	Save(ctx context.Context, inst *Installment) error
	DeleteByLease(ctx context.Context, leaseID uuid.UUID) (int64, error)
}
