package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/propledger/backend/internal/domain/lease"
	"github.com/propledger/backend/internal/domain/shared"
	"github.com/propledger/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormLeaseRepository implements LeaseRepository using GORM
type GormLeaseRepository struct {
	db *gorm.DB
}

// NewGormLeaseRepository creates a new GormLeaseRepository
func NewGormLeaseRepository(db *gorm.DB) *GormLeaseRepository {
	return &GormLeaseRepository{db: db}
}

// WithTx returns a new repository instance bound to the transaction
func (r *GormLeaseRepository) WithTx(tx *gorm.DB) *GormLeaseRepository {
	return &GormLeaseRepository{db: tx}
}

// FindByID finds a lease by ID
func (r *GormLeaseRepository) FindByID(ctx context.Context, id uuid.UUID) (*lease.Lease, error) {
	return r.findByID(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds a lease by ID and locks the row until the transaction ends
func (r *GormLeaseRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*lease.Lease, error) {
	query := r.db.WithContext(ctx)
	if supportsRowLocks(r.db) {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.findByID(query, id)
}

func (r *GormLeaseRepository) findByID(query *gorm.DB, id uuid.UUID) (*lease.Lease, error) {
	var model models.LeaseModel
	if err := query.Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Lease")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns a page of leases matching the filter and the total match count
func (r *GormLeaseRepository) FindAll(ctx context.Context, filter lease.LeaseFilter) ([]*lease.Lease, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.LeaseModel{})
	if filter.PropertyID != nil {
		query = query.Where("property_id = ?", *filter.PropertyID)
	}
	if filter.UnitID != nil {
		query = query.Where("unit_id = ?", *filter.UnitID)
	}
	if filter.TenantID != nil {
		query = query.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", filter.Status.String())
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.LeaseModel
	if err := applyPaging(query, filter.Filter, LeaseSortFields, "start_date").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return toLeases(rows), total, nil
}

// FindActiveForPropertyInPeriod returns active leases of the property whose term overlaps [from, to]
func (r *GormLeaseRepository) FindActiveForPropertyInPeriod(ctx context.Context, propertyID uuid.UUID, from, to time.Time) ([]*lease.Lease, error) {
	var rows []models.LeaseModel
	err := r.db.WithContext(ctx).
		Where("property_id = ? AND status = ?", propertyID, lease.LeaseStatusActive.String()).
		Where("start_date <= ? AND end_date >= ?", shared.Date(to), shared.Date(from)).
		Order("unit_id ASC, start_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toLeases(rows), nil
}

// FindPropertiesWithActiveLeases returns the distinct properties with an active lease overlapping [from, to]
func (r *GormLeaseRepository) FindPropertiesWithActiveLeases(ctx context.Context, from, to time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.LeaseModel{}).
		Distinct("property_id").
		Where("status = ?", lease.LeaseStatusActive.String()).
		Where("start_date <= ? AND end_date >= ?", shared.Date(to), shared.Date(from)).
		Order("property_id ASC").
		Pluck("property_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// ExistsOverlappingForUnit reports whether another pending or active lease of the unit overlaps [from, to]
func (r *GormLeaseRepository) ExistsOverlappingForUnit(ctx context.Context, unitID uuid.UUID, from, to time.Time, excludeID uuid.UUID) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).
		Model(&models.LeaseModel{}).
		Where("unit_id = ?", unitID).
		Where("status IN ?", []string{lease.LeaseStatusPending.String(), lease.LeaseStatusActive.String()}).
		Where("start_date <= ? AND end_date >= ?", shared.Date(to), shared.Date(from))
	if excludeID != uuid.Nil {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts a new lease
func (r *GormLeaseRepository) Create(ctx context.Context, l *lease.Lease) error {
	return r.db.WithContext(ctx).Create(models.LeaseModelFromDomain(l)).Error
}

// SaveWithLock writes the mutable lease columns only if nobody changed the row since it was loaded.
// On success the in-memory version advances to match the row.
func (r *GormLeaseRepository) SaveWithLock(ctx context.Context, l *lease.Lease) error {
	result := r.db.WithContext(ctx).
		Model(&models.LeaseModel{}).
		Where("id = ? AND version = ?", l.ID, l.Version).
		Updates(map[string]any{
			"status":            l.Status.String(),
			"paid_through_date": l.PaidThroughDate,
			"terminated_on":     l.TerminatedOn,
			"notes":             l.Notes,
			"version":           l.Version + 1,
			"updated_at":        l.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewConcurrencyConflictError(fmt.Sprintf("Lease %s was modified by another transaction", l.ID))
	}
	l.IncrementVersion()
	return nil
}

// Delete removes a lease
func (r *GormLeaseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.LeaseModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("Lease")
	}
	return nil
}

func toLeases(rows []models.LeaseModel) []*lease.Lease {
	out := make([]*lease.Lease, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}

// Ensure GormLeaseRepository implements LeaseRepository
var _ lease.LeaseRepository = (*GormLeaseRepository)(nil)

// GormInstallmentRepository implements InstallmentRepository using GORM
type GormInstallmentRepository struct {
	db *gorm.DB
}

// NewGormInstallmentRepository creates a new GormInstallmentRepository
func NewGormInstallmentRepository(db *gorm.DB) *GormInstallmentRepository {
	return &GormInstallmentRepository{db: db}
}

// WithTx returns a new repository instance bound to the transaction
func (r *GormInstallmentRepository) WithTx(tx *gorm.DB) *GormInstallmentRepository {
	return &GormInstallmentRepository{db: tx}
}

// FindByLease returns the installments of a lease ordered by sequence
func (r *GormInstallmentRepository) FindByLease(ctx context.Context, leaseID uuid.UUID) ([]*lease.Installment, error) {
	var rows []models.InstallmentModel
	err := r.db.WithContext(ctx).
		Where("lease_id = ?", leaseID).
		Order("sequence ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]*lease.Installment, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// FindByInvoice returns the installment backed by the invoice
func (r *GormInstallmentRepository) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) (*lease.Installment, error) {
	var model models.InstallmentModel
	if err := r.db.WithContext(ctx).Where("invoice_id = ?", invoiceID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Installment")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// installmentRow is an installment joined with the owning lease's property and tenant
type installmentRow struct {
	models.InstallmentModel
	PropertyID uuid.UUID
	TenantID   uuid.UUID
}

func (row *installmentRow) toDomain() *lease.LeaseInstallment {
	return &lease.LeaseInstallment{
		Installment: row.InstallmentModel.ToDomain(),
		PropertyID:  row.PropertyID,
		TenantID:    row.TenantID,
	}
}

func (r *GormInstallmentRepository) withLease(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("lease_installments").
		Joins("JOIN leases ON leases.id = lease_installments.lease_id")
}

const installmentColumns = "lease_installments.*, leases.property_id, leases.tenant_id"

// FindByID returns one installment with its lease's property and tenant
func (r *GormInstallmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*lease.LeaseInstallment, error) {
	var row installmentRow
	err := r.withLease(ctx).
		Select(installmentColumns).
		Where("lease_installments.id = ?", id).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Installment")
		}
		return nil, err
	}
	return row.toDomain(), nil
}

// FindAll returns a page of installments matching the filter and the total match count
func (r *GormInstallmentRepository) FindAll(ctx context.Context, filter lease.InstallmentFilter) ([]*lease.LeaseInstallment, int64, error) {
	query := r.withLease(ctx)
	if filter.PropertyID != nil {
		query = query.Where("leases.property_id = ?", *filter.PropertyID)
	}
	if filter.TenantID != nil {
		query = query.Where("leases.tenant_id = ?", *filter.TenantID)
	}
	if filter.LeaseID != nil {
		query = query.Where("lease_installments.lease_id = ?", *filter.LeaseID)
	}
	if filter.Status != nil {
		query = applyInstallmentStatusFilter(query, *filter.Status, filter.AsOf)
	}
	if filter.DueFrom != nil {
		query = query.Where("lease_installments.due_date >= ?", shared.Date(*filter.DueFrom))
	}
	if filter.DueTo != nil {
		query = query.Where("lease_installments.due_date <= ?", shared.Date(*filter.DueTo))
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []installmentRow
	err := applyPagingOn(query.Select(installmentColumns), "lease_installments", filter.Filter, InstallmentSortFields, "due_date").
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	out := make([]*lease.LeaseInstallment, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out, total, nil
}

// applyInstallmentStatusFilter matches the status an installment has as of
// asOf. Unpaid installments past their due date count as overdue whatever
// the stored status says.
func applyInstallmentStatusFilter(query *gorm.DB, status lease.InstallmentStatus, asOf *time.Time) *gorm.DB {
	if asOf == nil || status == lease.InstallmentStatusPaid {
		return query.Where("lease_installments.status = ?", string(status))
	}
	today := shared.Date(*asOf)
	if status == lease.InstallmentStatusOverdue {
		return query.Where("lease_installments.status <> ? AND lease_installments.due_date < ?",
			string(lease.InstallmentStatusPaid), today)
	}
	return query.Where("lease_installments.status = ? AND lease_installments.due_date >= ?", string(status), today)
}

// CreateBatch inserts the installments of a lease
func (r *GormInstallmentRepository) CreateBatch(ctx context.Context, installments []*lease.Installment) error {
	if len(installments) == 0 {
		return nil
	}
	rows := make([]*models.InstallmentModel, len(installments))
	for i, inst := range installments {
		rows[i] = models.InstallmentModelFromDomain(inst)
	}
	return r.db.WithContext(ctx).CreateInBatches(rows, 100).Error
}

// Save writes the balance and status of an installment
func (r *GormInstallmentRepository) Save(ctx context.Context, inst *lease.Installment) error {
	result := r.db.WithContext(ctx).
		Model(&models.InstallmentModel{}).
		Where("id = ?", inst.ID).
		Updates(map[string]any{
			"balance_cents": inst.BalanceCents,
			"status":        string(inst.Status),
			"paid_at":       inst.PaidAt,
			"updated_at":    inst.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("Installment")
	}
	return nil
}

// DeleteByLease removes the installments of a lease
func (r *GormInstallmentRepository) DeleteByLease(ctx context.Context, leaseID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("lease_id = ?", leaseID).Delete(&models.InstallmentModel{})
	return result.RowsAffected, result.Error
}

// Ensure GormInstallmentRepository implements InstallmentRepository
var _ lease.InstallmentRepository = (*GormInstallmentRepository)(nil)
