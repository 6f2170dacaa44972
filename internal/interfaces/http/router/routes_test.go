package router

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/propledger/backend/internal/interfaces/http/handler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type downDB struct{}

func (downDB) Ping(context.Context) error { return errors.New("connection refused") }

func nilServiceHandlers() Handlers {
	return Handlers{
		Payment:  handler.NewPaymentHandler(nil),
		Invoice:  handler.NewInvoiceHandler(nil),
		Lease:    handler.NewLeaseHandler(nil),
		Metering: handler.NewMeteringHandler(nil),
		Billing:  handler.NewBillingHandler(nil, nil),
		Audit:    handler.NewAuditHandler(nil),
	}
}

func TestRegisterLedgerAPI(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)
	RegisterLedgerAPI(r, nilServiceHandlers(), RouteOptions{}).Setup()

	registered := map[string]bool{}
	for _, route := range engine.Routes() {
		registered[route.Method+" "+route.Path] = true
	}

	want := []string{
		"POST /api/v1/payments",
		"GET /api/v1/payments",
		"GET /api/v1/payments/:id",
		"GET /api/v1/payment_allocations",
		"GET /api/v1/payment_allocations/:id",
		"POST /api/v1/invoices",
		"GET /api/v1/invoices",
		"GET /api/v1/invoices/:id",
		"PATCH /api/v1/invoices/:id",
		"PATCH /api/v1/invoices/:id/void",
		"POST /api/v1/invoices/:id/invoice_items",
		"PATCH /api/v1/invoice_items/:id",
		"DELETE /api/v1/invoice_items/:id",
		"POST /api/v1/leases",
		"GET /api/v1/leases",
		"GET /api/v1/leases/:id",
		"PATCH /api/v1/leases/:id/activate",
		"PATCH /api/v1/leases/:id/terminate",
		"PATCH /api/v1/leases/:id/expire",
		"POST /api/v1/leases/:id/reconcile",
		"DELETE /api/v1/leases/:id",
		"GET /api/v1/rent_installments",
		"GET /api/v1/rent_installments/:id",
		"POST /api/v1/meter_readings",
		"GET /api/v1/meter_readings",
		"GET /api/v1/meter_readings/:id",
		"POST /api/v1/pump_topups",
		"GET /api/v1/pump_topups",
		"GET /api/v1/pump_topups/:id",
		"POST /api/v1/billing/water_invoices",
		"GET /api/v1/billing/archive",
		"GET /api/v1/audit_logs",
		"GET /api/v1/audit_logs/:id",
	}
	for _, route := range want {
		assert.True(t, registered[route], "missing route %s", route)
	}
	assert.Len(t, registered, len(want))
}

func TestRegisterLedgerAPI_BillingRunLimit(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)
	limited := 0
	RegisterLedgerAPI(r, nilServiceHandlers(), RouteOptions{
		BillingRunLimit: func(c *gin.Context) {
			limited++
			c.AbortWithStatus(http.StatusTooManyRequests)
		},
	}).Setup()

	assert.Equal(t, http.StatusTooManyRequests, serve(engine, http.MethodPost, "/api/v1/billing/water_invoices").Code)
	require.Equal(t, 1, limited)

	// other billing routes are not throttled
	assert.Equal(t, http.StatusServiceUnavailable, serve(engine, http.MethodGet, "/api/v1/billing/archive?key=a/b").Code)
	assert.Equal(t, 1, limited)
}

func TestRegisterProbes(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)
	RegisterProbes(engine, r, handler.NewHealthHandler(downDB{}, "test"))

	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/health").Code)
	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/api/v1/health").Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(engine, http.MethodGet, "/ready").Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(engine, http.MethodGet, "/api/v1/ready").Code)
}
