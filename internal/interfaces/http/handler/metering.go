package handler

import (
	"github.com/gin-gonic/gin"
	meteringapp "github.com/propledger/backend/internal/application/metering"
)

// MeteringHandler handles meter readings and pump topups
type MeteringHandler struct {
	BaseHandler
	service *meteringapp.MeteringService
}

// NewMeteringHandler creates a new MeteringHandler
func NewMeteringHandler(service *meteringapp.MeteringService) *MeteringHandler {
	return &MeteringHandler{service: service}
}

// RecordReading godoc
// @ID           recordMeterReading
// @Summary      Record a meter reading
// @Description  One reading per unit, meter type and day.
// @Tags         metering
// @Accept       json
// @Produce      json
// @Param        request body meteringapp.RecordMeterReadingRequest true "Reading"
// @Success      201 {object} APIResponse[meteringapp.MeterReadingResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse "Duplicate reading"
// @Security     BearerAuth
// @Router       /meter_readings [post]
func (h *MeteringHandler) RecordReading(c *gin.Context) {
	var req meteringapp.RecordMeterReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	if !h.authorizeProperty(c, req.PropertyID) {
		return
	}
	reading, err := h.service.RecordMeterReading(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, reading)
}

// ListReadings godoc
// @ID           listMeterReadings
// @Summary      List meter readings
// @Tags         metering
// @Produce      json
// @Param        filter query meteringapp.MeterReadingListFilter false "Filters"
// @Success      200 {object} ListResponse[meteringapp.MeterReadingResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /meter_readings [get]
func (h *MeteringHandler) ListReadings(c *gin.Context) {
	var f meteringapp.MeterReadingListFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		h.BindError(c, err)
		return
	}
	if !h.scopeListFilter(c, &f.PropertyID) {
		return
	}
	page, err := h.service.ListMeterReadings(c.Request.Context(), f)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	SuccessPage(c, page)
}

// GetReading godoc
// @ID           getMeterReading
// @Summary      Get a meter reading
// @Tags         metering
// @Produce      json
// @Param        id path string true "Meter reading ID" format(uuid)
// @Success      200 {object} APIResponse[meteringapp.MeterReadingResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /meter_readings/{id} [get]
func (h *MeteringHandler) GetReading(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	reading, err := h.service.GetMeterReading(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !h.authorizeProperty(c, reading.PropertyID) {
		return
	}
	h.Success(c, reading)
}

// RecordTopup godoc
// @ID           recordPumpTopup
// @Summary      Record a water delivery
// @Tags         metering
// @Accept       json
// @Produce      json
// @Param        request body meteringapp.RecordPumpTopupRequest true "Topup"
// @Success      201 {object} APIResponse[meteringapp.PumpTopupResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /pump_topups [post]
func (h *MeteringHandler) RecordTopup(c *gin.Context) {
	var req meteringapp.RecordPumpTopupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	if !h.authorizeProperty(c, req.PropertyID) {
		return
	}
	topup, err := h.service.RecordPumpTopup(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, topup)
}

// ListTopups godoc
// @ID           listPumpTopups
// @Summary      List water deliveries
// @Tags         metering
// @Produce      json
// @Param        filter query meteringapp.PumpTopupListFilter false "Filters"
// @Success      200 {object} ListResponse[meteringapp.PumpTopupResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /pump_topups [get]
func (h *MeteringHandler) ListTopups(c *gin.Context) {
	var f meteringapp.PumpTopupListFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		h.BindError(c, err)
		return
	}
	if !h.scopeListFilter(c, &f.PropertyID) {
		return
	}
	page, err := h.service.ListPumpTopups(c.Request.Context(), f)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	SuccessPage(c, page)
}

// GetTopup godoc
// @ID           getPumpTopup
// @Summary      Get a water delivery
// @Tags         metering
// @Produce      json
// @Param        id path string true "Pump topup ID" format(uuid)
// @Success      200 {object} APIResponse[meteringapp.PumpTopupResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /pump_topups/{id} [get]
func (h *MeteringHandler) GetTopup(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	topup, err := h.service.GetPumpTopup(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !h.authorizeProperty(c, topup.PropertyID) {
		return
	}
	h.Success(c, topup)
}
