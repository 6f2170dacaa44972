package metering

import (
	"fmt"
	"time"

	"github.com/propledger/backend/internal/domain/shared"
)

// BillingMonthLayout is the YYYY-MM format of billing periods
const BillingMonthLayout = "2006-01"

// BillingMonth is a calendar month billed as one utility period
type BillingMonth struct {
	Start time.Time
	End   time.Time
}

// NewBillingMonth returns the month containing t
func NewBillingMonth(t time.Time) BillingMonth {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return BillingMonth{Start: start, End: start.AddDate(0, 1, -1)}
}

// ParseBillingMonth parses YYYY-MM
func ParseBillingMonth(s string) (BillingMonth, error) {
	t, err := time.Parse(BillingMonthLayout, s)
	if err != nil || len(s) != len(BillingMonthLayout) {
		return BillingMonth{}, shared.NewValidationError("INVALID_BILLING_MONTH",
			fmt.Sprintf("invalid billing month %q, expected YYYY-MM", s))
	}
	return NewBillingMonth(t), nil
}

// String renders the month as YYYY-MM
func (m BillingMonth) String() string {
	return m.Start.Format(BillingMonthLayout)
}

// Contains reports whether the date falls inside the month
func (m BillingMonth) Contains(t time.Time) bool {
	d := shared.Date(t)
	return !d.Before(m.Start) && !d.After(m.End)
}

// Previous returns the month before m
func (m BillingMonth) Previous() BillingMonth {
	return NewBillingMonth(m.Start.AddDate(0, 0, -1))
}
