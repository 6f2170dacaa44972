package metering

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/propledger/backend/internal/domain/shared"
)

// MeterReadingFilter narrows reading list queries
type MeterReadingFilter struct {
	shared.Filter
	PropertyID *uuid.UUID
	UnitID     *uuid.UUID
	MeterType  *MeterType
	From       *time.Time
	To         *time.Time
}

// MeterReadingRepository defines persistence operations for meter readings
type MeterReadingRepository interface {
	// Create inserts a reading; a second reading for the same unit, meter and day is a conflict
	Create(ctx context.Context, r *MeterReading) error
	FindByID(ctx context.Context, id uuid.UUID) (*MeterReading, error)
	FindAll(ctx context.Context, filter MeterReadingFilter) ([]*MeterReading, int64, error)
	// LatestOnOrBefore returns the most recent reading dated on or before the given day, nil if none
	LatestOnOrBefore(ctx context.Context, unitID uuid.UUID, meterType MeterType, day time.Time) (*MeterReading, error)
	// LatestBetween returns the most recent reading dated within [from, to], nil if none
	LatestBetween(ctx context.Context, unitID uuid.UUID, meterType MeterType, from, to time.Time) (*MeterReading, error)
}

// PumpTopupFilter narrows topup list queries
type PumpTopupFilter struct {
	shared.Filter
	PropertyID *uuid.UUID
	From       *time.Time
	To         *time.Time
}

// PumpTopupRepository defines persistence operations for pump topups
type PumpTopupRepository interface {
	Create(ctx context.Context, t *PumpTopup) error
	FindByID(ctx context.Context, id uuid.UUID) (*PumpTopup, error)
	FindAll(ctx context.Context, filter PumpTopupFilter) ([]*PumpTopup, int64, error)
	// SumForPeriod totals the topup cost of a property within [from, to]
	SumForPeriod(ctx context.Context, propertyID uuid.UUID, from, to time.Time) (int64, error)
}
