package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/propledger/backend/internal/domain/ledger"
	"github.com/propledger/backend/internal/domain/shared"
	"github.com/propledger/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPaymentRepository implements PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// WithTx returns a new repository instance bound to the transaction
func (r *GormPaymentRepository) WithTx(tx *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: tx}
}

// FindByID finds a payment by ID with its allocations
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Payment, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByReference finds a payment by its business reference within a property
func (r *GormPaymentRepository) FindByReference(ctx context.Context, propertyID uuid.UUID, reference string) (*ledger.Payment, error) {
	return r.findOne(ctx, "property_id = ? AND reference = ?", propertyID, reference)
}

func (r *GormPaymentRepository) findOne(ctx context.Context, cond string, args ...any) (*ledger.Payment, error) {
	var model models.PaymentModel
	err := r.db.WithContext(ctx).
		Preload("Allocations", orderAllocations).
		Where(cond, args...).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Payment")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns a page of payments matching the filter and the total match count
func (r *GormPaymentRepository) FindAll(ctx context.Context, filter ledger.PaymentFilter) ([]*ledger.Payment, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.PaymentModel{})
	if filter.PropertyID != nil {
		query = query.Where("property_id = ?", *filter.PropertyID)
	}
	if filter.TenantID != nil {
		query = query.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.Method != nil {
		query = query.Where("method = ?", filter.Method.String())
	}
	if filter.PaidFrom != nil {
		query = query.Where("paid_at >= ?", *filter.PaidFrom)
	}
	if filter.PaidTo != nil {
		query = query.Where("paid_at <= ?", *filter.PaidTo)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.PaymentModel
	err := applyPaging(query, filter.Filter, PaymentSortFields, "paid_at").
		Preload("Allocations", orderAllocations).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	out := make([]*ledger.Payment, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, total, nil
}

// Create inserts the payment and its allocations in one statement batch.
// A reused reference within the property is reported as a conflict.
func (r *GormPaymentRepository) Create(ctx context.Context, p *ledger.Payment) error {
	model := models.PaymentModelFromDomain(p)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %w", shared.NewConflictError("DUPLICATE_REFERENCE",
				fmt.Sprintf("Payment reference %q is already recorded for this property", p.Reference)), err)
		}
		return err
	}
	return nil
}

// FindAllocationsByInvoice returns the allocations applied to an invoice in the order they were made
func (r *GormPaymentRepository) FindAllocationsByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]ledger.Allocation, error) {
	var rows []models.AllocationModel
	err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("allocated_at ASC, position ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]ledger.Allocation, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// CountAllocationsForInvoices counts allocations that target any of the invoices
func (r *GormPaymentRepository) CountAllocationsForInvoices(ctx context.Context, invoiceIDs []uuid.UUID) (int64, error) {
	if len(invoiceIDs) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.AllocationModel{}).
		Where("invoice_id IN ?", invoiceIDs).
		Count(&count).Error
	return count, err
}

// allocationRow is an allocation joined with the columns of its payment
type allocationRow struct {
	models.AllocationModel
	PropertyID       uuid.UUID
	TenantID         uuid.UUID
	PaymentReference string
}

func (row *allocationRow) toDomain() ledger.PaymentAllocation {
	return ledger.PaymentAllocation{
		Allocation:       row.AllocationModel.ToDomain(),
		PropertyID:       row.PropertyID,
		TenantID:         row.TenantID,
		PaymentReference: row.PaymentReference,
	}
}

func (r *GormPaymentRepository) allocations(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("payment_allocations").
		Joins("JOIN payments ON payments.id = payment_allocations.payment_id")
}

const allocationColumns = "payment_allocations.*, payments.property_id, payments.tenant_id, payments.reference AS payment_reference"

// FindAllocationByID returns one allocation with its payment's property and tenant
func (r *GormPaymentRepository) FindAllocationByID(ctx context.Context, id uuid.UUID) (*ledger.PaymentAllocation, error) {
	var row allocationRow
	err := r.allocations(ctx).
		Select(allocationColumns).
		Where("payment_allocations.id = ?", id).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Payment allocation")
		}
		return nil, err
	}
	out := row.toDomain()
	return &out, nil
}

// FindAllocations returns a page of allocations matching the filter and the total match count
func (r *GormPaymentRepository) FindAllocations(ctx context.Context, filter ledger.AllocationFilter) ([]ledger.PaymentAllocation, int64, error) {
	query := r.allocations(ctx)
	if filter.PropertyID != nil {
		query = query.Where("payments.property_id = ?", *filter.PropertyID)
	}
	if filter.TenantID != nil {
		query = query.Where("payments.tenant_id = ?", *filter.TenantID)
	}
	if filter.PaymentID != nil {
		query = query.Where("payment_allocations.payment_id = ?", *filter.PaymentID)
	}
	if filter.InvoiceID != nil {
		query = query.Where("payment_allocations.invoice_id = ?", *filter.InvoiceID)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []allocationRow
	err := applyPagingOn(query.Select(allocationColumns), "payment_allocations", filter.Filter, AllocationSortFields, "allocated_at").
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	out := make([]ledger.PaymentAllocation, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out, total, nil
}

func orderAllocations(db *gorm.DB) *gorm.DB {
	return db.Order("allocated_at ASC, position ASC")
}

// Ensure GormPaymentRepository implements PaymentRepository
var _ ledger.PaymentRepository = (*GormPaymentRepository)(nil)
