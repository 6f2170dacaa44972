package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/propledger/backend/internal/domain/ledger"
	"github.com/propledger/backend/internal/domain/shared"
	"github.com/propledger/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// WithTx returns a new repository instance bound to the transaction
func (r *GormInvoiceRepository) WithTx(tx *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: tx}
}

// FindByID finds an invoice by ID with its items
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Invoice, error) {
	return r.findOne(r.db.WithContext(ctx).Preload("Items", orderItems), "id = ?", id)
}

// FindByIDForUpdate finds an invoice by ID and locks the row until the transaction ends
func (r *GormInvoiceRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*ledger.Invoice, error) {
	query := r.db.WithContext(ctx).Preload("Items", orderItems)
	if supportsRowLocks(r.db) {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.findOne(query, "id = ?", id)
}

// FindByNumber finds an invoice by its business number
func (r *GormInvoiceRepository) FindByNumber(ctx context.Context, number string) (*ledger.Invoice, error) {
	return r.findOne(r.db.WithContext(ctx).Preload("Items", orderItems), "invoice_number = ?", number)
}

func (r *GormInvoiceRepository) findOne(query *gorm.DB, cond string, arg any) (*ledger.Invoice, error) {
	var model models.InvoiceModel
	if err := query.Where(cond, arg).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Invoice")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindOpen returns the allocation candidates of a tenant ordered by due date, issue date and ID.
// With ForUpdate the rows stay locked until the surrounding transaction ends.
func (r *GormInvoiceRepository) FindOpen(ctx context.Context, q ledger.OpenInvoiceQuery) ([]*ledger.Invoice, error) {
	statuses := make([]string, 0, 3)
	for _, s := range ledger.OpenStatuses() {
		statuses = append(statuses, s.String())
	}

	query := r.db.WithContext(ctx).
		Where("tenant_id = ?", q.TenantID).
		Where("status IN ?", statuses).
		Where("balance_cents > 0")
	if q.PropertyID != nil {
		query = query.Where("property_id = ?", *q.PropertyID)
	}
	if q.ForUpdate && supportsRowLocks(r.db) {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var rows []models.InvoiceModel
	if err := query.Order("due_on ASC, issued_on ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return toInvoices(rows), nil
}

// FindAll returns a page of invoices matching the filter and the total match count
func (r *GormInvoiceRepository) FindAll(ctx context.Context, filter ledger.InvoiceFilter) ([]*ledger.Invoice, int64, error) {
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.InvoiceModel{}), filter).
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.InvoiceModel
	err := applyPaging(query, filter.Filter, InvoiceSortFields, "due_on").
		Preload("Items", orderItems).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return toInvoices(rows), total, nil
}

func (r *GormInvoiceRepository) applyFilter(query *gorm.DB, filter ledger.InvoiceFilter) *gorm.DB {
	if filter.PropertyID != nil {
		query = query.Where("property_id = ?", *filter.PropertyID)
	}
	if filter.TenantID != nil {
		query = query.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.UnitID != nil {
		query = query.Where("unit_id = ?", *filter.UnitID)
	}
	if filter.LeaseID != nil {
		query = query.Where("lease_id = ?", *filter.LeaseID)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", filter.Type.String())
	}
	if filter.Status != nil {
		query = applyStatusFilter(query, *filter.Status, filter.AsOf)
	}
	if filter.DueFrom != nil {
		query = query.Where("due_on >= ?", shared.Date(*filter.DueFrom))
	}
	if filter.DueTo != nil {
		query = query.Where("due_on <= ?", shared.Date(*filter.DueTo))
	}
	return query
}

// applyStatusFilter matches the status an invoice has as of asOf. The stored
// column lags for open invoices that passed their due date, so those
// statuses are derived from the due date and the amount paid.
func applyStatusFilter(query *gorm.DB, status ledger.InvoiceStatus, asOf *time.Time) *gorm.DB {
	open := []string{
		ledger.InvoiceStatusIssued.String(),
		ledger.InvoiceStatusPartial.String(),
		ledger.InvoiceStatusOverdue.String(),
	}
	if asOf == nil {
		return query.Where("status = ?", status.String())
	}
	today := shared.Date(*asOf)
	switch status {
	case ledger.InvoiceStatusOverdue:
		return query.Where("status IN ? AND due_on < ?", open, today)
	case ledger.InvoiceStatusIssued:
		return query.Where("status IN ? AND due_on >= ? AND amount_paid_cents = 0", open, today)
	case ledger.InvoiceStatusPartial:
		return query.Where("status IN ? AND due_on >= ? AND amount_paid_cents > 0", open, today)
	default:
		return query.Where("status = ?", status.String())
	}
}

// FindByLease returns the invoices of a lease ordered by due date
func (r *GormInvoiceRepository) FindByLease(ctx context.Context, leaseID uuid.UUID) ([]*ledger.Invoice, error) {
	var rows []models.InvoiceModel
	err := r.db.WithContext(ctx).
		Where("lease_id = ?", leaseID).
		Order("due_on ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toInvoices(rows), nil
}

// ExistsActiveForPeriod reports whether a non-void invoice of the type already bills the unit for the period
func (r *GormInvoiceRepository) ExistsActiveForPeriod(ctx context.Context, propertyID, unitID uuid.UUID, period string, invoiceType ledger.InvoiceType) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("property_id = ? AND unit_id = ? AND billing_period = ? AND type = ?",
			propertyID, unitID, period, invoiceType.String()).
		Where("status <> ?", ledger.InvoiceStatusVoid.String()).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts the invoice and its items
func (r *GormInvoiceRepository) Create(ctx context.Context, inv *ledger.Invoice) error {
	model := models.InvoiceModelFromDomain(inv)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %w", shared.NewConflictError(shared.CodeAlreadyExists,
				fmt.Sprintf("An active %s invoice already exists for this unit and period", inv.Type)), err)
		}
		return err
	}
	return nil
}

// SaveWithLock writes the mutable invoice columns only if nobody changed the row since it was loaded.
// On success the in-memory version advances to match the row.
func (r *GormInvoiceRepository) SaveWithLock(ctx context.Context, inv *ledger.Invoice) error {
	result := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("id = ? AND version = ?", inv.ID, inv.Version).
		Updates(map[string]any{
			"status":            inv.Status.String(),
			"amount_cents":      inv.AmountCents,
			"amount_paid_cents": inv.AmountPaidCents,
			"balance_cents":     inv.BalanceCents,
			"notes":             inv.Notes,
			"voided_at":         inv.VoidedAt,
			"void_reason":       inv.VoidReason,
			"version":           inv.Version + 1,
			"updated_at":        inv.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewConcurrencyConflictError(
			fmt.Sprintf("Invoice %s was modified by another transaction", inv.InvoiceNumber))
	}
	inv.IncrementVersion()
	return nil
}

// SaveItems rewrites the line rows of the invoice in order
func (r *GormInvoiceRepository) SaveItems(ctx context.Context, inv *ledger.Invoice) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("invoice_id = ?", inv.ID).Delete(&models.InvoiceItemModel{}).Error; err != nil {
		return err
	}
	if len(inv.Items) == 0 {
		return nil
	}
	rows := make([]models.InvoiceItemModel, len(inv.Items))
	for i, item := range inv.Items {
		rows[i] = models.InvoiceItemModelFromDomain(inv.ID, item, i+1)
	}
	return db.Create(&rows).Error
}

// FindInvoiceIDByItem returns the invoice that owns an item
func (r *GormInvoiceRepository) FindInvoiceIDByItem(ctx context.Context, itemID uuid.UUID) (uuid.UUID, error) {
	var row models.InvoiceItemModel
	err := r.db.WithContext(ctx).Select("invoice_id").Where("id = ?", itemID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, shared.NewNotFoundError("Invoice item")
		}
		return uuid.Nil, err
	}
	return row.InvoiceID, nil
}

// DeleteByLease removes every invoice of a lease together with its items
func (r *GormInvoiceRepository) DeleteByLease(ctx context.Context, leaseID uuid.UUID) (int64, error) {
	db := r.db.WithContext(ctx)
	ids := db.Model(&models.InvoiceModel{}).Select("id").Where("lease_id = ?", leaseID)
	if err := db.Where("invoice_id IN (?)", ids).Delete(&models.InvoiceItemModel{}).Error; err != nil {
		return 0, err
	}
	result := db.Where("lease_id = ?", leaseID).Delete(&models.InvoiceModel{})
	return result.RowsAffected, result.Error
}

func orderItems(db *gorm.DB) *gorm.DB {
	return db.Order("line_no ASC")
}

func toInvoices(rows []models.InvoiceModel) []*ledger.Invoice {
	out := make([]*ledger.Invoice, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}

// Ensure GormInvoiceRepository implements InvoiceRepository
var _ ledger.InvoiceRepository = (*GormInvoiceRepository)(nil)
