package metering

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/propledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// MeterType identifies what a meter measures
type MeterType string

const (
	MeterTypeWater       MeterType = "water"
	MeterTypeElectricity MeterType = "electricity"
	MeterTypeGas         MeterType = "gas"
	MeterTypeOther       MeterType = "other"
)

// IsValid checks if the meter type is known
func (t MeterType) IsValid() bool {
	switch t {
	case MeterTypeWater, MeterTypeElectricity, MeterTypeGas, MeterTypeOther:
		return true
	}
	return false
}

// MeterReading is a cumulative meter value taken for a unit on a day
type MeterReading struct {
	shared.BaseEntity
	PropertyID   uuid.UUID
	UnitID       uuid.UUID
	MeterType    MeterType
	ReadingValue decimal.Decimal
	ReadingOn    time.Time
	Notes        string
}

// MeterReadingSpec holds the inputs for recording a reading
type MeterReadingSpec struct {
	PropertyID   uuid.UUID
	UnitID       uuid.UUID
	MeterType    MeterType
	ReadingValue decimal.Decimal
	ReadingOn    time.Time
	Notes        string
}

// NewMeterReading validates and creates a reading
func NewMeterReading(spec MeterReadingSpec) (*MeterReading, error) {
	if spec.PropertyID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_PROPERTY", "Property ID cannot be empty")
	}
	if spec.UnitID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_UNIT", "Unit ID cannot be empty")
	}
	meterType := spec.MeterType
	if meterType == "" {
		meterType = MeterTypeWater
	}
	if !meterType.IsValid() {
		return nil, shared.NewValidationError("INVALID_METER_TYPE", fmt.Sprintf("Invalid meter type %q", spec.MeterType))
	}
	if spec.ReadingValue.IsNegative() {
		return nil, shared.NewValidationError("INVALID_READING", "Reading value cannot be negative")
	}
	if spec.ReadingOn.IsZero() {
		return nil, shared.NewValidationError("INVALID_DATE", "Reading date is required")
	}
	return &MeterReading{
		BaseEntity:   shared.NewBaseEntity(),
		PropertyID:   spec.PropertyID,
		UnitID:       spec.UnitID,
		MeterType:    meterType,
		ReadingValue: spec.ReadingValue,
		ReadingOn:    shared.Date(spec.ReadingOn),
		Notes:        spec.Notes,
	}, nil
}

// Consumption is the usage between the reading closing the previous period and
// the latest reading of the current one.
func Consumption(previous, current *MeterReading) (decimal.Decimal, error) {
	if current == nil {
		return decimal.Zero, shared.NewValidationError("MISSING_READING", "No reading recorded in the billing month")
	}
	if previous == nil {
		return decimal.Zero, shared.NewValidationError("MISSING_READING", "No reading recorded before the billing month")
	}
	delta := current.ReadingValue.Sub(previous.ReadingValue)
	if delta.IsNegative() {
		return decimal.Zero, shared.NewValidationError("NEGATIVE_CONSUMPTION",
			fmt.Sprintf("Reading %s on %s is below %s on %s",
				current.ReadingValue, shared.FormatDate(current.ReadingOn),
				previous.ReadingValue, shared.FormatDate(previous.ReadingOn)))
	}
	return delta, nil
}
