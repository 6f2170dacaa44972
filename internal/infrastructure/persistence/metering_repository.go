package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/propledger/backend/internal/domain/metering"
	"github.com/propledger/backend/internal/domain/shared"
	"github.com/propledger/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormMeterReadingRepository implements MeterReadingRepository using GORM
type GormMeterReadingRepository struct {
	db *gorm.DB
}

// NewGormMeterReadingRepository creates a new GormMeterReadingRepository
func NewGormMeterReadingRepository(db *gorm.DB) *GormMeterReadingRepository {
	return &GormMeterReadingRepository{db: db}
}

// Create inserts a reading. A second reading for the same unit, meter and day is a conflict.
func (r *GormMeterReadingRepository) Create(ctx context.Context, reading *metering.MeterReading) error {
	if err := r.db.WithContext(ctx).Create(models.MeterReadingModelFromDomain(reading)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %w", shared.NewConflictError("DUPLICATE_READING",
				fmt.Sprintf("A %s reading for this unit on %s already exists",
					reading.MeterType, reading.ReadingOn.Format(time.DateOnly))), err)
		}
		return err
	}
	return nil
}

// FindByID finds a reading by ID
func (r *GormMeterReadingRepository) FindByID(ctx context.Context, id uuid.UUID) (*metering.MeterReading, error) {
	var model models.MeterReadingModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Meter reading")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns a page of readings matching the filter and the total match count
func (r *GormMeterReadingRepository) FindAll(ctx context.Context, filter metering.MeterReadingFilter) ([]*metering.MeterReading, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.MeterReadingModel{})
	if filter.PropertyID != nil {
		query = query.Where("property_id = ?", *filter.PropertyID)
	}
	if filter.UnitID != nil {
		query = query.Where("unit_id = ?", *filter.UnitID)
	}
	if filter.MeterType != nil {
		query = query.Where("meter_type = ?", string(*filter.MeterType))
	}
	if filter.From != nil {
		query = query.Where("reading_on >= ?", shared.Date(*filter.From))
	}
	if filter.To != nil {
		query = query.Where("reading_on <= ?", shared.Date(*filter.To))
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.MeterReadingModel
	if err := applyPaging(query, filter.Filter, MeterReadingSortFields, "reading_on").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]*metering.MeterReading, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, total, nil
}

// LatestOnOrBefore returns the most recent reading dated on or before day, nil if none
func (r *GormMeterReadingRepository) LatestOnOrBefore(ctx context.Context, unitID uuid.UUID, meterType metering.MeterType, day time.Time) (*metering.MeterReading, error) {
	return r.latest(r.db.WithContext(ctx).
		Where("unit_id = ? AND meter_type = ?", unitID, string(meterType)).
		Where("reading_on <= ?", shared.Date(day)))
}

// LatestBetween returns the most recent reading dated within [from, to], nil if none
func (r *GormMeterReadingRepository) LatestBetween(ctx context.Context, unitID uuid.UUID, meterType metering.MeterType, from, to time.Time) (*metering.MeterReading, error) {
	return r.latest(r.db.WithContext(ctx).
		Where("unit_id = ? AND meter_type = ?", unitID, string(meterType)).
		Where("reading_on >= ? AND reading_on <= ?", shared.Date(from), shared.Date(to)))
}

func (r *GormMeterReadingRepository) latest(query *gorm.DB) (*metering.MeterReading, error) {
	var rows []models.MeterReadingModel
	if err := query.Order("reading_on DESC").Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].ToDomain(), nil
}

// Ensure GormMeterReadingRepository implements MeterReadingRepository
var _ metering.MeterReadingRepository = (*GormMeterReadingRepository)(nil)

// GormPumpTopupRepository implements PumpTopupRepository using GORM
type GormPumpTopupRepository struct {
	db *gorm.DB
}

// NewGormPumpTopupRepository creates a new GormPumpTopupRepository
func NewGormPumpTopupRepository(db *gorm.DB) *GormPumpTopupRepository {
	return &GormPumpTopupRepository{db: db}
}

// Create inserts a topup
func (r *GormPumpTopupRepository) Create(ctx context.Context, t *metering.PumpTopup) error {
	return r.db.WithContext(ctx).Create(models.PumpTopupModelFromDomain(t)).Error
}

// FindByID finds a topup by ID
func (r *GormPumpTopupRepository) FindByID(ctx context.Context, id uuid.UUID) (*metering.PumpTopup, error) {
	var model models.PumpTopupModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Pump topup")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns a page of topups matching the filter and the total match count
func (r *GormPumpTopupRepository) FindAll(ctx context.Context, filter metering.PumpTopupFilter) ([]*metering.PumpTopup, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.PumpTopupModel{})
	if filter.PropertyID != nil {
		query = query.Where("property_id = ?", *filter.PropertyID)
	}
	if filter.From != nil {
		query = query.Where("topup_on >= ?", shared.Date(*filter.From))
	}
	if filter.To != nil {
		query = query.Where("topup_on <= ?", shared.Date(*filter.To))
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.PumpTopupModel
	if err := applyPaging(query, filter.Filter, PumpTopupSortFields, "topup_on").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]*metering.PumpTopup, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, total, nil
}

// SumForPeriod totals the topup cost of a property within [from, to]
func (r *GormPumpTopupRepository) SumForPeriod(ctx context.Context, propertyID uuid.UUID, from, to time.Time) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.PumpTopupModel{}).
		Select("COALESCE(SUM(amount_cents), 0)").
		Where("property_id = ?", propertyID).
		Where("topup_on >= ? AND topup_on <= ?", shared.Date(from), shared.Date(to)).
		Scan(&total).Error
	return total, err
}

// Ensure GormPumpTopupRepository implements PumpTopupRepository
var _ metering.PumpTopupRepository = (*GormPumpTopupRepository)(nil)
