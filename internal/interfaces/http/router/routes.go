package router

import (
	"github.com/gin-gonic/gin"
	"github.com/propledger/backend/internal/interfaces/http/handler"
)

// Handlers are the HTTP handlers of the ledger API
type Handlers struct {
	Payment  *handler.PaymentHandler
	Invoice  *handler.InvoiceHandler
	Lease    *handler.LeaseHandler
	Metering *handler.MeteringHandler
	Billing  *handler.BillingHandler
	Audit    *handler.AuditHandler
}

// RouteOptions holds per-route middleware
type RouteOptions struct {
	// BillingRunLimit throttles billing runs; nil disables it
	BillingRunLimit gin.HandlerFunc
}

// LedgerGroups returns the route groups of the ledger API
func LedgerGroups(h Handlers, opts RouteOptions) []*DomainGroup {
	payments := NewDomainGroup("payments", "/payments")
	payments.POST("", h.Payment.Record).
		GET("", h.Payment.List).
		GET("/:id", h.Payment.Get)

	allocations := NewDomainGroup("payment_allocations", "/payment_allocations")
	allocations.GET("", h.Payment.ListAllocations).
		GET("/:id", h.Payment.GetAllocation)

	invoices := NewDomainGroup("invoices", "/invoices")
	invoices.POST("", h.Invoice.Create).
		GET("", h.Invoice.List).
		GET("/:id", h.Invoice.Get).
		PATCH("/:id", h.Invoice.Update).
		PATCH("/:id/void", h.Invoice.Void).
		POST("/:id/invoice_items", h.Invoice.AddItem)

	items := NewDomainGroup("invoice_items", "/invoice_items")
	items.PATCH("/:id", h.Invoice.UpdateItem).
		DELETE("/:id", h.Invoice.DeleteItem)

	leases := NewDomainGroup("leases", "/leases")
	leases.POST("", h.Lease.Create).
		GET("", h.Lease.List).
		GET("/:id", h.Lease.Get).
		PATCH("/:id/activate", h.Lease.Activate).
		PATCH("/:id/terminate", h.Lease.Terminate).
		PATCH("/:id/expire", h.Lease.Expire).
		POST("/:id/reconcile", h.Lease.Reconcile).
		DELETE("/:id", h.Lease.Delete)

	installments := NewDomainGroup("rent_installments", "/rent_installments")
	installments.GET("", h.Lease.ListInstallments).
		GET("/:id", h.Lease.GetInstallment)

	readings := NewDomainGroup("meter_readings", "/meter_readings")
	readings.POST("", h.Metering.RecordReading).
		GET("", h.Metering.ListReadings).
		GET("/:id", h.Metering.GetReading)

	topups := NewDomainGroup("pump_topups", "/pump_topups")
	topups.POST("", h.Metering.RecordTopup).
		GET("", h.Metering.ListTopups).
		GET("/:id", h.Metering.GetTopup)

	billing := NewDomainGroup("billing", "/billing")
	run := []gin.HandlerFunc{h.Billing.RunWater}
	if opts.BillingRunLimit != nil {
		run = append([]gin.HandlerFunc{opts.BillingRunLimit}, run...)
	}
	billing.POST("/water_invoices", run...).
		GET("/archive", h.Billing.ArchiveLink)

	audit := NewDomainGroup("audit_logs", "/audit_logs")
	audit.GET("", h.Audit.List).
		GET("/:id", h.Audit.Get)

	return []*DomainGroup{payments, allocations, invoices, items, leases, installments, readings, topups, billing, audit}
}

// RegisterLedgerAPI queues every ledger route group on r
func RegisterLedgerAPI(r *Router, h Handlers, opts RouteOptions) *Router {
	for _, g := range LedgerGroups(h, opts) {
		r.Register(g)
	}
	return r
}

// RegisterProbes mounts the liveness and readiness probes at the root and
// under the API prefix
func RegisterProbes(engine *gin.Engine, r *Router, h *handler.HealthHandler) {
	for _, base := range []string{"", r.Prefix()} {
		engine.GET(base+"/health", h.Health)
		engine.GET(base+"/ready", h.Ready)
	}
}
