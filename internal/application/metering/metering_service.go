package metering

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/propledger/backend/internal/domain/metering"
	"github.com/propledger/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// MeteringService records meter readings and pump topups
type MeteringService struct {
	readings metering.MeterReadingRepository
	topups   metering.PumpTopupRepository
	logger   *zap.Logger
}

// NewMeteringService creates a new MeteringService
func NewMeteringService(readings metering.MeterReadingRepository, topups metering.PumpTopupRepository, logger *zap.Logger) *MeteringService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MeteringService{readings: readings, topups: topups, logger: logger}
}

// RecordMeterReading stores a cumulative meter value for a unit
func (s *MeteringService) RecordMeterReading(ctx context.Context, req RecordMeterReadingRequest) (*MeterReadingResponse, error) {
	readingOn, err := shared.ParseDate(req.ReadingOn)
	if err != nil {
		return nil, err
	}
	reading, err := metering.NewMeterReading(metering.MeterReadingSpec{
		PropertyID:   req.PropertyID,
		UnitID:       req.UnitID,
		MeterType:    metering.MeterType(req.MeterType),
		ReadingValue: req.ReadingValue,
		ReadingOn:    readingOn,
		Notes:        req.Notes,
	})
	if err != nil {
		return nil, err
	}
	if err := s.readings.Create(ctx, reading); err != nil {
		return nil, fmt.Errorf("failed to record meter reading: %w", err)
	}
	s.logger.Debug("meter reading recorded",
		zap.String("unit_id", reading.UnitID.String()),
		zap.String("meter_type", string(reading.MeterType)),
		zap.String("reading_on", shared.FormatDate(reading.ReadingOn)),
	)
	resp := ToMeterReadingResponse(reading)
	return &resp, nil
}

// ListMeterReadings returns a page of readings
func (s *MeteringService) ListMeterReadings(ctx context.Context, f MeterReadingListFilter) (*shared.Paginated[MeterReadingResponse], error) {
	filter := metering.MeterReadingFilter{
		Filter: pageFilter(f.Page, f.PageSize, f.OrderBy, f.OrderDir, "reading_on"),
	}
	var err error
	if filter.PropertyID, err = shared.ParseOptionalID("property_id", f.PropertyID); err != nil {
		return nil, err
	}
	if filter.UnitID, err = shared.ParseOptionalID("unit_id", f.UnitID); err != nil {
		return nil, err
	}
	if f.MeterType != "" {
		mt := metering.MeterType(f.MeterType)
		filter.MeterType = &mt
	}
	if filter.From, filter.To, err = dateRange(f.From, f.To); err != nil {
		return nil, err
	}

	readings, total, err := s.readings.FindAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list meter readings: %w", err)
	}
	items := make([]MeterReadingResponse, 0, len(readings))
	for _, r := range readings {
		items = append(items, ToMeterReadingResponse(r))
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

// GetMeterReading returns one meter reading
func (s *MeteringService) GetMeterReading(ctx context.Context, id uuid.UUID) (*MeterReadingResponse, error) {
	r, err := s.readings.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToMeterReadingResponse(r)
	return &resp, nil
}

// RecordPumpTopup stores a water delivery and its cost
func (s *MeteringService) RecordPumpTopup(ctx context.Context, req RecordPumpTopupRequest) (*PumpTopupResponse, error) {
	topupOn, err := shared.ParseDate(req.TopupOn)
	if err != nil {
		return nil, err
	}
	topup, err := metering.NewPumpTopup(metering.PumpTopupSpec{
		PropertyID:   req.PropertyID,
		TopupOn:      topupOn,
		VolumeLiters: req.VolumeLiters,
		AmountCents:  req.AmountCents,
		VendorName:   req.VendorName,
		Notes:        req.Notes,
	})
	if err != nil {
		return nil, err
	}
	if err := s.topups.Create(ctx, topup); err != nil {
		return nil, fmt.Errorf("failed to record pump topup: %w", err)
	}
	resp := ToPumpTopupResponse(topup)
	return &resp, nil
}

// ListPumpTopups returns a page of topups
func (s *MeteringService) ListPumpTopups(ctx context.Context, f PumpTopupListFilter) (*shared.Paginated[PumpTopupResponse], error) {
	filter := metering.PumpTopupFilter{
		Filter: pageFilter(f.Page, f.PageSize, f.OrderBy, f.OrderDir, "topup_on"),
	}
	var err error
	if filter.PropertyID, err = shared.ParseOptionalID("property_id", f.PropertyID); err != nil {
		return nil, err
	}
	if filter.From, filter.To, err = dateRange(f.From, f.To); err != nil {
		return nil, err
	}

	topups, total, err := s.topups.FindAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list pump topups: %w", err)
	}
	items := make([]PumpTopupResponse, 0, len(topups))
	for _, t := range topups {
		items = append(items, ToPumpTopupResponse(t))
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

func pageFilter(page, size int, orderBy, orderDir, defaultOrder string) shared.Filter {
	f := shared.Filter{Page: page, PageSize: size, OrderBy: orderBy, OrderDir: orderDir}
	if f.OrderBy == "" {
		f.OrderBy = defaultOrder
	}
	f.Normalize()
	return f
}

func dateRange(from, to string) (*time.Time, *time.Time, error) {
	var out [2]*time.Time
	for i, s := range []string{from, to} {
		if s == "" {
			continue
		}
		d, err := shared.ParseDate(s)
		if err != nil {
			return nil, nil, err
		}
		out[i] = &d
	}
	return out[0], out[1], nil
}

// GetPumpTopup returns one pump topup
func (s *MeteringService) GetPumpTopup(ctx context.Context, id uuid.UUID) (*PumpTopupResponse, error) {
	t, err := s.topups.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToPumpTopupResponse(t)
	return &resp, nil
}
