package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when a metrics set is built without a meter
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// Billing run outcomes per unit
const (
	OutcomeCreated = "created"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// LedgerMetrics records payment, allocation and billing activity. A nil
// *LedgerMetrics is valid and records nothing.
type LedgerMetrics struct {
	paymentsTotal       *Counter
	paymentCents        *Counter
	allocationsTotal    *Counter
	unallocatedCents    *Counter
	paymentRetries      *Counter
	paidThroughAdvances *Counter
	settlementWarnings  *Counter
	billingRunUnits     *Counter
	paymentDuration     *Histogram
	billingRunDuration  *Histogram
}

// NewLedgerMetrics registers the ledger instruments on meter
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	m := &LedgerMetrics{}
	counters := []struct {
		dst              **Counter
		name, desc, unit string
	}{
		{&m.paymentsTotal, "ledger_payments_total", "Payments recorded", "{payment}"},
		{&m.paymentCents, "ledger_payment_amount_cents_total", "Cents received", "{cent}"},
		{&m.allocationsTotal, "ledger_allocations_total", "Payment allocations created", "{allocation}"},
		{&m.unallocatedCents, "ledger_unallocated_cents_total", "Cents left unallocated after a payment", "{cent}"},
		{&m.paymentRetries, "ledger_payment_retries_total", "Payment attempts retried after a concurrency conflict", "{retry}"},
		{&m.paidThroughAdvances, "lease_paid_through_advances_total", "Lease paid-through date advances", "{advance}"},
		{&m.settlementWarnings, "lease_settlement_warnings_total", "Settled rent invoices that could not update their lease", "{warning}"},
		{&m.billingRunUnits, "billing_run_units_total", "Units processed by utility billing runs", "{unit}"},
	}
	for _, c := range counters {
		counter, err := NewCounter(meter, c.name, c.desc, c.unit)
		if err != nil {
			return nil, err
		}
		*c.dst = counter
	}

	var err error
	m.paymentDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "ledger_payment_duration_seconds",
		Description: "Time to record and allocate a payment",
		Unit:        "s",
		Boundaries:  OperationDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	m.billingRunDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "billing_run_duration_seconds",
		Description: "Time to complete a utility billing run",
		Unit:        "s",
		Boundaries:  BillingRunDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// RecordPayment records one committed payment and its allocation result
func (m *LedgerMetrics) RecordPayment(ctx context.Context, tenantID uuid.UUID, method string, amountCents, unallocatedCents int64, allocations int, took time.Duration) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{AttrTenantID.String(tenantID.String()), AttrPaymentMethod.String(method)}
	m.paymentsTotal.Inc(ctx, attrs...)
	m.paymentCents.Add(ctx, amountCents, attrs...)
	m.allocationsTotal.Add(ctx, int64(allocations), attrs...)
	if unallocatedCents > 0 {
		m.unallocatedCents.Add(ctx, unallocatedCents, attrs...)
	}
	m.paymentDuration.RecordDuration(ctx, took, attrs...)
}

// RecordPaymentRetry records a retried payment attempt
func (m *LedgerMetrics) RecordPaymentRetry(ctx context.Context, tenantID uuid.UUID) {
	if m == nil {
		return
	}
	m.paymentRetries.Inc(ctx, AttrTenantID.String(tenantID.String()))
}

// RecordPaidThroughAdvance records a lease whose paid-through date moved forward
func (m *LedgerMetrics) RecordPaidThroughAdvance(ctx context.Context, tenantID uuid.UUID) {
	if m == nil {
		return
	}
	m.paidThroughAdvances.Inc(ctx, AttrTenantID.String(tenantID.String()))
}

// RecordSettlementWarning records a settlement that could not update its lease
func (m *LedgerMetrics) RecordSettlementWarning(ctx context.Context, code string) {
	if m == nil {
		return
	}
	m.settlementWarnings.Inc(ctx, AttrWarningCode.String(code))
}

// RecordBillingRun records the per-unit outcome counts and duration of a billing run
func (m *LedgerMetrics) RecordBillingRun(ctx context.Context, invoiceType string, created, skipped, failed int, took time.Duration) {
	if m == nil {
		return
	}
	typ := AttrInvoiceType.String(invoiceType)
	m.billingRunUnits.Add(ctx, int64(created), typ, AttrOutcome.String(OutcomeCreated))
	m.billingRunUnits.Add(ctx, int64(skipped), typ, AttrOutcome.String(OutcomeSkipped))
	m.billingRunUnits.Add(ctx, int64(failed), typ, AttrOutcome.String(OutcomeFailed))
	m.billingRunDuration.RecordDuration(ctx, took, typ)
}
