package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/propledger/backend/internal/domain/audit"
	"github.com/propledger/backend/internal/domain/shared"
	"github.com/propledger/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormAuditRepository implements audit.Repository using GORM
type GormAuditRepository struct {
	db *gorm.DB
}

// NewGormAuditRepository creates a new GormAuditRepository
func NewGormAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

// Append stores the entry. Redelivered events hit the event_id unique index and are dropped.
func (r *GormAuditRepository) Append(ctx context.Context, entry *audit.Entry) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "event_id"}}, DoNothing: true}).
		Create(models.AuditLogModelFromDomain(entry)).Error
}

// FindByID finds an entry by its own ID
func (r *GormAuditRepository) FindByID(ctx context.Context, id uuid.UUID) (*audit.Entry, error) {
	var model models.AuditLogModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Audit entry")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns a page of entries matching the filter and the total match count
func (r *GormAuditRepository) FindAll(ctx context.Context, filter audit.Filter) ([]*audit.Entry, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.AuditLogModel{})
	if filter.AggregateType != "" {
		query = query.Where("aggregate_type = ?", filter.AggregateType)
	}
	if filter.AggregateID != nil {
		query = query.Where("aggregate_id = ?", *filter.AggregateID)
	}
	if filter.EventType != "" {
		query = query.Where("event_type = ?", filter.EventType)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.AuditLogModel
	if err := applyPaging(query, filter.Filter, AuditLogSortFields, "occurred_at").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]*audit.Entry, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, total, nil
}

// Ensure GormAuditRepository implements audit.Repository
var _ audit.Repository = (*GormAuditRepository)(nil)
