package metering

import (
	"time"

	"github.com/google/uuid"
	"github.com/propledger/backend/internal/domain/metering"
	"github.com/propledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ==================== Billing run DTOs ====================

// WaterBillingRequest triggers a water billing run for one property
type WaterBillingRequest struct {
	PropertyID uuid.UUID `json:"property_id" binding:"required"`
	// BillingMonth defaults to the current month
	BillingMonth string `json:"billing_month" binding:"omitempty,yyyymm"`
	// Tariff overrides the configured tariff strategy
	Tariff string `json:"tariff" binding:"omitempty,oneof=flat pump_cost"`
}

// SkippedUnit is a unit the run deliberately did not invoice
type SkippedUnit struct {
	UnitID uuid.UUID `json:"unit_id"`
	Reason string    `json:"reason"`
}

// UnitFailure is a unit the run could not bill
type UnitFailure struct {
	UnitID  uuid.UUID `json:"unit_id"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

// WaterBillingReport is the outcome of one billing run
type WaterBillingReport struct {
	PropertyID      uuid.UUID     `json:"property_id"`
	BillingMonth    string        `json:"billing_month"`
	Tariff          string        `json:"tariff"`
	InvoicesCreated int           `json:"invoices_created"`
	InvoiceIDs      []uuid.UUID   `json:"invoice_ids"`
	Skipped         []SkippedUnit `json:"skipped"`
	Failures        []UnitFailure `json:"failures"`
	PoolCostCents   int64         `json:"pool_cost_cents,omitempty"`
	ArchiveKey      string        `json:"archive_key,omitempty"`
	StartedAt       time.Time     `json:"started_at"`
	FinishedAt      time.Time     `json:"finished_at"`
}

// Skip reasons
const (
	SkipAlreadyBilled = "already_billed"
	SkipZeroAmount    = "zero_amount"
)

// ==================== Meter reading DTOs ====================

// RecordMeterReadingRequest represents a request to record a meter reading
type RecordMeterReadingRequest struct {
	PropertyID   uuid.UUID       `json:"property_id" binding:"required"`
	UnitID       uuid.UUID       `json:"unit_id" binding:"required"`
	MeterType    string          `json:"meter_type" binding:"omitempty,oneof=water electricity gas other"`
	ReadingValue decimal.Decimal `json:"reading_value" binding:"required"`
	ReadingOn    string          `json:"reading_on" binding:"required,datetime=2006-01-02"`
	Notes        string          `json:"notes" binding:"max=2000"`
}

// MeterReadingListFilter represents the query parameters of the reading list
type MeterReadingListFilter struct {
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=200"`
	OrderBy    string `form:"order_by" binding:"omitempty,oneof=reading_on created_at"`
	OrderDir   string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	PropertyID string `form:"property_id" binding:"omitempty,uuid"`
	UnitID     string `form:"unit_id" binding:"omitempty,uuid"`
	MeterType  string `form:"meter_type" binding:"omitempty,oneof=water electricity gas other"`
	From       string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To         string `form:"to" binding:"omitempty,datetime=2006-01-02"`
}

// MeterReadingResponse represents a meter reading in API responses
type MeterReadingResponse struct {
	ID           uuid.UUID       `json:"id"`
	PropertyID   uuid.UUID       `json:"property_id"`
	UnitID       uuid.UUID       `json:"unit_id"`
	MeterType    string          `json:"meter_type"`
	ReadingValue decimal.Decimal `json:"reading_value"`
	ReadingOn    string          `json:"reading_on"`
	Notes        string          `json:"notes,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ToMeterReadingResponse converts a domain reading to a response
func ToMeterReadingResponse(r *metering.MeterReading) MeterReadingResponse {
	return MeterReadingResponse{
		ID:           r.ID,
		PropertyID:   r.PropertyID,
		UnitID:       r.UnitID,
		MeterType:    string(r.MeterType),
		ReadingValue: r.ReadingValue,
		ReadingOn:    shared.FormatDate(r.ReadingOn),
		Notes:        r.Notes,
		CreatedAt:    r.CreatedAt,
	}
}

// ==================== Pump topup DTOs ====================

// RecordPumpTopupRequest represents a request to record a water delivery
type RecordPumpTopupRequest struct {
	PropertyID   uuid.UUID       `json:"property_id" binding:"required"`
	TopupOn      string          `json:"topup_on" binding:"required,datetime=2006-01-02"`
	VolumeLiters decimal.Decimal `json:"volume_liters" binding:"required"`
	AmountCents  int64           `json:"amount_cents" binding:"required,gt=0"`
	VendorName   string          `json:"vendor_name" binding:"max=200"`
	Notes        string          `json:"notes" binding:"max=2000"`
}

// PumpTopupListFilter represents the query parameters of the topup list
type PumpTopupListFilter struct {
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=200"`
	OrderBy    string `form:"order_by" binding:"omitempty,oneof=topup_on amount_cents created_at"`
	OrderDir   string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	PropertyID string `form:"property_id" binding:"omitempty,uuid"`
	From       string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To         string `form:"to" binding:"omitempty,datetime=2006-01-02"`
}

// PumpTopupResponse represents a pump topup in API responses
type PumpTopupResponse struct {
	ID           uuid.UUID       `json:"id"`
	PropertyID   uuid.UUID       `json:"property_id"`
	TopupOn      string          `json:"topup_on"`
	VolumeLiters decimal.Decimal `json:"volume_liters"`
	AmountCents  int64           `json:"amount_cents"`
	VendorName   string          `json:"vendor_name,omitempty"`
	Notes        string          `json:"notes,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ToPumpTopupResponse converts a domain topup to a response
func ToPumpTopupResponse(t *metering.PumpTopup) PumpTopupResponse {
	return PumpTopupResponse{
		ID:           t.ID,
		PropertyID:   t.PropertyID,
		TopupOn:      shared.FormatDate(t.TopupOn),
		VolumeLiters: t.VolumeLiters,
		AmountCents:  t.AmountCents,
		VendorName:   t.VendorName,
		Notes:        t.Notes,
		CreatedAt:    t.CreatedAt,
	}
}
