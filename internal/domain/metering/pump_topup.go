package metering

import (
	"time"

	"github.com/google/uuid"
	"github.com/propledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PumpTopup is a purchase of water delivered to a property's tank
type PumpTopup struct {
	shared.BaseEntity
	PropertyID   uuid.UUID
	TopupOn      time.Time
	VolumeLiters decimal.Decimal
	AmountCents  int64
	VendorName   string
	Notes        string
}

// PumpTopupSpec holds the inputs for recording a topup
type PumpTopupSpec struct {
	PropertyID   uuid.UUID
	TopupOn      time.Time
	VolumeLiters decimal.Decimal
	AmountCents  int64
	VendorName   string
	Notes        string
}

// NewPumpTopup validates and creates a topup
func NewPumpTopup(spec PumpTopupSpec) (*PumpTopup, error) {
	if spec.PropertyID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_PROPERTY", "Property ID cannot be empty")
	}
	if spec.TopupOn.IsZero() {
		return nil, shared.NewValidationError("INVALID_DATE", "Topup date is required")
	}
	if !spec.VolumeLiters.IsPositive() {
		return nil, shared.NewValidationError("INVALID_VOLUME", "Volume must be positive")
	}
	if spec.AmountCents <= 0 {
		return nil, shared.NewValidationError("INVALID_AMOUNT", "Topup amount must be positive")
	}
	return &PumpTopup{
		BaseEntity:   shared.NewBaseEntity(),
		PropertyID:   spec.PropertyID,
		TopupOn:      shared.Date(spec.TopupOn),
		VolumeLiters: spec.VolumeLiters,
		AmountCents:  spec.AmountCents,
		VendorName:   spec.VendorName,
		Notes:        spec.Notes,
	}, nil
}
