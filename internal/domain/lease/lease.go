package lease

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/propledger/backend/internal/domain/shared"
)

// LeaseStatus represents the lifecycle status of a lease
type LeaseStatus string

const (
	LeaseStatusPending    LeaseStatus = "pending"
	LeaseStatusActive     LeaseStatus = "active"
	LeaseStatusExpired    LeaseStatus = "expired"
	LeaseStatusTerminated LeaseStatus = "terminated"
)

// IsValid checks if the status is a valid LeaseStatus
func (s LeaseStatus) IsValid() bool {
	switch s {
	case LeaseStatusPending, LeaseStatusActive, LeaseStatusExpired, LeaseStatusTerminated:
		return true
	}
	return false
}

// String returns the string representation of LeaseStatus
func (s LeaseStatus) String() string {
	return string(s)
}

// BillingMode decides how rent for the plan is invoiced
type BillingMode string

const (
	// BillingModeTerm bills the whole plan as a single installment due on the start date
	BillingModeTerm BillingMode = "term"
	// BillingModeMonthly bills one installment per month on the start date anniversaries
	BillingModeMonthly BillingMode = "monthly"
)

// IsValid checks if the mode is a valid BillingMode
func (m BillingMode) IsValid() bool {
	return m == BillingModeTerm || m == BillingModeMonthly
}

// IsValidPlanMonths reports whether months is an offered plan length
func IsValidPlanMonths(months int) bool {
	switch months {
	case 3, 6, 12:
		return true
	}
	return false
}

// DefaultEndDate returns the last day covered by a plan starting on start
func DefaultEndDate(start time.Time, planMonths int) time.Time {
	return shared.AddMonths(shared.Date(start), planMonths).AddDate(0, 0, -1)
}

// Lease is a rental agreement for one unit.
// PaidThroughDate never decreases and never passes EndDate.
type Lease struct {
	shared.BaseAggregateRoot
	PropertyID           uuid.UUID
	UnitID               uuid.UUID
	TenantID             uuid.UUID
	StartDate            time.Time
	EndDate              time.Time
	PlanMonths           int
	BillingMode          BillingMode
	Status               LeaseStatus
	RentCents            int64
	SecurityDepositCents int64
	PaidThroughDate      *time.Time
	TerminatedOn         *time.Time
	Notes                string
}

// LeaseSpec holds the inputs for creating a lease
type LeaseSpec struct {
	PropertyID           uuid.UUID
	UnitID               uuid.UUID
	TenantID             uuid.UUID
	StartDate            time.Time
	EndDate              *time.Time
	PlanMonths           int
	BillingMode          BillingMode
	RentCents            int64
	SecurityDepositCents int64
	Notes                string
}

// NewLease creates a lease. It starts active when the start date is not in the future.
func NewLease(spec LeaseSpec, today time.Time) (*Lease, error) {
	if spec.PropertyID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_PROPERTY", "Property ID cannot be empty")
	}
	if spec.UnitID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_UNIT", "Unit ID cannot be empty")
	}
	if spec.TenantID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if !IsValidPlanMonths(spec.PlanMonths) {
		return nil, shared.NewValidationError("INVALID_PLAN", fmt.Sprintf("Plan must be 3, 6 or 12 months, got %d", spec.PlanMonths))
	}
	mode := spec.BillingMode
	if mode == "" {
		mode = BillingModeTerm
	}
	if !mode.IsValid() {
		return nil, shared.NewValidationError("INVALID_BILLING_MODE", fmt.Sprintf("Invalid billing mode %q", spec.BillingMode))
	}
	if spec.RentCents <= 0 {
		return nil, shared.NewValidationError("INVALID_AMOUNT", "Rent must be positive")
	}
	if spec.SecurityDepositCents < 0 {
		return nil, shared.NewValidationError("INVALID_AMOUNT", "Security deposit cannot be negative")
	}
	if spec.StartDate.IsZero() {
		return nil, shared.NewValidationError("INVALID_DATE", "Start date is required")
	}

	start := shared.Date(spec.StartDate)
	end := DefaultEndDate(start, spec.PlanMonths)
	if spec.EndDate != nil {
		end = shared.Date(*spec.EndDate)
	}
	if !end.After(start) {
		return nil, shared.NewValidationError("INVALID_DATE", "End date must be after start date")
	}

	l := &Lease{
		BaseAggregateRoot:    shared.NewBaseAggregateRoot(),
		PropertyID:           spec.PropertyID,
		UnitID:               spec.UnitID,
		TenantID:             spec.TenantID,
		StartDate:            start,
		EndDate:              end,
		PlanMonths:           spec.PlanMonths,
		BillingMode:          mode,
		Status:               LeaseStatusPending,
		RentCents:            spec.RentCents,
		SecurityDepositCents: spec.SecurityDepositCents,
		Notes:                spec.Notes,
	}
	if !start.After(shared.Date(today)) {
		l.Status = LeaseStatusActive
	}

	l.AddDomainEvent(NewLeaseCreatedEvent(l))
	return l, nil
}

// TermAmountCents is the rent owed for the whole plan
func (l *Lease) TermAmountCents() int64 {
	return l.RentCents * int64(l.PlanMonths)
}

// Overlaps reports whether the lease term intersects [from, to]
func (l *Lease) Overlaps(from, to time.Time) bool {
	return !l.StartDate.After(to) && !l.EndDate.Before(from)
}

// OccupiesDuring reports whether the unit is occupied under this lease during [from, to]
func (l *Lease) OccupiesDuring(from, to time.Time) bool {
	return l.Status == LeaseStatusActive && l.Overlaps(from, to)
}

// Activate moves a pending lease to active
func (l *Lease) Activate() error {
	if l.Status != LeaseStatusPending {
		return shared.NewInvalidStateError(shared.CodeInvalidState,
			fmt.Sprintf("Cannot activate lease in %s status", l.Status))
	}
	l.Status = LeaseStatusActive
	l.Touch()
	l.AddDomainEvent(NewLeaseStatusChangedEvent(l, EventTypeLeaseActivated, LeaseStatusPending))
	return nil
}

// Terminate ends the lease early. The paid-through date is left as is.
func (l *Lease) Terminate(on time.Time) error {
	if l.Status != LeaseStatusPending && l.Status != LeaseStatusActive {
		return shared.NewInvalidStateError(shared.CodeInvalidState,
			fmt.Sprintf("Cannot terminate lease in %s status", l.Status))
	}
	previous := l.Status
	date := shared.Date(on)
	l.Status = LeaseStatusTerminated
	l.TerminatedOn = &date
	l.Touch()
	l.AddDomainEvent(NewLeaseStatusChangedEvent(l, EventTypeLeaseTerminated, previous))
	return nil
}

// Expire closes an active lease whose end date has passed
func (l *Lease) Expire(today time.Time) error {
	if l.Status != LeaseStatusActive {
		return shared.NewInvalidStateError(shared.CodeInvalidState,
			fmt.Sprintf("Cannot expire lease in %s status", l.Status))
	}
	if !shared.Date(today).After(l.EndDate) {
		return shared.NewInvalidStateError("LEASE_NOT_ENDED",
			fmt.Sprintf("Lease runs until %s", shared.FormatDate(l.EndDate)))
	}
	l.Status = LeaseStatusExpired
	l.Touch()
	l.AddDomainEvent(NewLeaseStatusChangedEvent(l, EventTypeLeaseExpired, LeaseStatusActive))
	return nil
}

// AdvancePaidThrough moves the paid-through date forward to date, capped at EndDate.
// It returns false when the lease is already paid through that date.
func (l *Lease) AdvancePaidThrough(date time.Time) (bool, error) {
	if l.Status == LeaseStatusTerminated {
		return false, shared.NewInvalidStateError("LEASE_TERMINATED",
			"Paid-through date cannot advance on a terminated lease")
	}
	target := shared.Date(date)
	if target.After(l.EndDate) {
		target = l.EndDate
	}
	if l.PaidThroughDate != nil && !target.After(*l.PaidThroughDate) {
		return false, nil
	}

	var previous *time.Time
	if l.PaidThroughDate != nil {
		p := *l.PaidThroughDate
		previous = &p
	}
	l.PaidThroughDate = &target
	l.Touch()
	l.AddDomainEvent(NewLeasePaidThroughAdvancedEvent(l, previous))
	return true, nil
}

// SettledThrough derives the date the lease is paid through from its installments.
// installments must be ordered by sequence. It returns nil when nothing is settled.
func (l *Lease) SettledThrough(installments []*Installment) *time.Time {
	if len(installments) == 0 {
		return nil
	}
	if l.BillingMode == BillingModeTerm {
		if !installments[0].IsPaid() {
			return nil
		}
		end := l.EndDate
		return &end
	}

	var through *time.Time
	for _, inst := range installments {
		if !inst.IsPaid() {
			break
		}
		due := inst.DueDate
		through = &due
	}
	if through != nil && through.After(l.EndDate) {
		end := l.EndDate
		through = &end
	}
	return through
}
