package lease

import (
	"time"

	"github.com/google/uuid"
	"github.com/propledger/backend/internal/domain/shared"
)

// AggregateTypeLease is the aggregate type name for leases
const AggregateTypeLease = "Lease"

// Event type names
const (
	EventTypeLeaseCreated             = "LeaseCreated"
	EventTypeLeaseActivated           = "LeaseActivated"
	EventTypeLeaseTerminated          = "LeaseTerminated"
	EventTypeLeaseExpired             = "LeaseExpired"
	EventTypeLeaseDeleted             = "LeaseDeleted"
	EventTypeLeasePaidThroughAdvanced = "LeasePaidThroughAdvanced"
)

// LeaseCreatedEvent is raised when a lease is signed
type LeaseCreatedEvent struct {
	shared.BaseDomainEvent
	LeaseID     uuid.UUID   `json:"lease_id"`
	PropertyID  uuid.UUID   `json:"property_id"`
	UnitID      uuid.UUID   `json:"unit_id"`
	StartDate   time.Time   `json:"start_date"`
	EndDate     time.Time   `json:"end_date"`
	PlanMonths  int         `json:"plan_months"`
	BillingMode BillingMode `json:"billing_mode"`
	Status      LeaseStatus `json:"status"`
	RentCents   int64       `json:"rent_cents"`
}

// NewLeaseCreatedEvent creates a new LeaseCreatedEvent
func NewLeaseCreatedEvent(l *Lease) *LeaseCreatedEvent {
	return &LeaseCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLeaseCreated, AggregateTypeLease, l.ID, l.TenantID),
		LeaseID:         l.ID,
		PropertyID:      l.PropertyID,
		UnitID:          l.UnitID,
		StartDate:       l.StartDate,
		EndDate:         l.EndDate,
		PlanMonths:      l.PlanMonths,
		BillingMode:     l.BillingMode,
		Status:          l.Status,
		RentCents:       l.RentCents,
	}
}

// LeaseStatusChangedEvent is raised on activate, terminate and expire
type LeaseStatusChangedEvent struct {
	shared.BaseDomainEvent
	LeaseID        uuid.UUID   `json:"lease_id"`
	PreviousStatus LeaseStatus `json:"previous_status"`
	Status         LeaseStatus `json:"status"`
	TerminatedOn   *time.Time  `json:"terminated_on,omitempty"`
}

// NewLeaseStatusChangedEvent creates a status change event of the given type
func NewLeaseStatusChangedEvent(l *Lease, eventType string, previous LeaseStatus) *LeaseStatusChangedEvent {
	return &LeaseStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeLease, l.ID, l.TenantID),
		LeaseID:         l.ID,
		PreviousStatus:  previous,
		Status:          l.Status,
		TerminatedOn:    l.TerminatedOn,
	}
}

// LeaseDeletedEvent is raised when a lease and its billing are removed
type LeaseDeletedEvent struct {
	shared.BaseDomainEvent
	LeaseID         uuid.UUID `json:"lease_id"`
	InvoicesRemoved int64     `json:"invoices_removed"`
}

// NewLeaseDeletedEvent creates a new LeaseDeletedEvent
func NewLeaseDeletedEvent(l *Lease, invoicesRemoved int64) *LeaseDeletedEvent {
	return &LeaseDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLeaseDeleted, AggregateTypeLease, l.ID, l.TenantID),
		LeaseID:         l.ID,
		InvoicesRemoved: invoicesRemoved,
	}
}

// LeasePaidThroughAdvancedEvent is raised when settled rent moves the paid-through date
type LeasePaidThroughAdvancedEvent struct {
	shared.BaseDomainEvent
	LeaseID         uuid.UUID  `json:"lease_id"`
	PreviousThrough *time.Time `json:"previous_paid_through,omitempty"`
	PaidThroughDate time.Time  `json:"paid_through_date"`
}

// NewLeasePaidThroughAdvancedEvent creates a new LeasePaidThroughAdvancedEvent
func NewLeasePaidThroughAdvancedEvent(l *Lease, previous *time.Time) *LeasePaidThroughAdvancedEvent {
	return &LeasePaidThroughAdvancedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLeasePaidThroughAdvanced, AggregateTypeLease, l.ID, l.TenantID),
		LeaseID:         l.ID,
		PreviousThrough: previous,
		PaidThroughDate: *l.PaidThroughDate,
	}
}
