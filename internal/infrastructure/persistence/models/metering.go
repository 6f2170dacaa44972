package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/propledger/backend/internal/domain/metering"
	"github.com/propledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// MeterReadingModel is the persistence model for a meter reading.
// One reading per unit, meter and day.
type MeterReadingModel struct {
	BaseModel
	PropertyID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	UnitID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_meter_readings_unit_day,priority:1"`
	MeterType    string          `gorm:"type:varchar(20);not null;uniqueIndex:idx_meter_readings_unit_day,priority:2"`
	ReadingOn    time.Time       `gorm:"type:date;not null;uniqueIndex:idx_meter_readings_unit_day,priority:3"`
	ReadingValue decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Notes        string          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (MeterReadingModel) TableName() string {
	return "meter_readings"
}

// ToDomain converts the persistence model to a domain MeterReading
func (m *MeterReadingModel) ToDomain() *metering.MeterReading {
	return &metering.MeterReading{
		BaseEntity:   m.BaseModel.ToDomain(),
		PropertyID:   m.PropertyID,
		UnitID:       m.UnitID,
		MeterType:    metering.MeterType(m.MeterType),
		ReadingValue: m.ReadingValue,
		ReadingOn:    shared.Date(m.ReadingOn),
		Notes:        m.Notes,
	}
}

// MeterReadingModelFromDomain creates a new persistence model from a domain MeterReading
func MeterReadingModelFromDomain(r *metering.MeterReading) *MeterReadingModel {
	m := &MeterReadingModel{
		PropertyID:   r.PropertyID,
		UnitID:       r.UnitID,
		MeterType:    string(r.MeterType),
		ReadingOn:    r.ReadingOn,
		ReadingValue: r.ReadingValue,
		Notes:        r.Notes,
	}
	m.FromDomainBaseEntity(r.BaseEntity)
	return m
}

// PumpTopupModel is the persistence model for a water tank topup
type PumpTopupModel struct {
	BaseModel
	PropertyID   uuid.UUID       `gorm:"type:uuid;not null;index:idx_pump_topups_property_day,priority:1"`
	TopupOn      time.Time       `gorm:"type:date;not null;index:idx_pump_topups_property_day,priority:2"`
	VolumeLiters decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	AmountCents  int64           `gorm:"not null"`
	VendorName   string          `gorm:"type:varchar(200)"`
	Notes        string          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (PumpTopupModel) TableName() string {
	return "pump_topups"
}

// ToDomain converts the persistence model to a domain PumpTopup
func (m *PumpTopupModel) ToDomain() *metering.PumpTopup {
	return &metering.PumpTopup{
		BaseEntity:   m.BaseModel.ToDomain(),
		PropertyID:   m.PropertyID,
		TopupOn:      shared.Date(m.TopupOn),
		VolumeLiters: m.VolumeLiters,
		AmountCents:  m.AmountCents,
		VendorName:   m.VendorName,
		Notes:        m.Notes,
	}
}

// PumpTopupModelFromDomain creates a new persistence model from a domain PumpTopup
func PumpTopupModelFromDomain(t *metering.PumpTopup) *PumpTopupModel {
	m := &PumpTopupModel{
		PropertyID:   t.PropertyID,
		TopupOn:      t.TopupOn,
		VolumeLiters: t.VolumeLiters,
		AmountCents:  t.AmountCents,
		VendorName:   t.VendorName,
		Notes:        t.Notes,
	}
	m.FromDomainBaseEntity(t.BaseEntity)
	return m
}
