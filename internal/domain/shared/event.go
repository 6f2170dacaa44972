package shared

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is a fact recorded by a ledger aggregate. Events are published
// after the transaction that produced them commits, so handlers never see
// rolled-back state.
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	AggregateType() string
	// TenantID is the renter the event concerns, uuid.Nil for property-level events
	TenantID() uuid.UUID
}

// BaseDomainEvent carries the envelope fields every ledger event shares.
// The JSON names match the audit log columns.
type BaseDomainEvent struct {
	EventUUID uuid.UUID `json:"event_id"`
	Name      string    `json:"event_type"`
	At        time.Time `json:"occurred_at"`
	Aggregate uuid.UUID `json:"aggregate_id"`
	Kind      string    `json:"aggregate_type"`
	Renter    uuid.UUID `json:"tenant_id"`
}

func (e *BaseDomainEvent) EventID() uuid.UUID     { return e.EventUUID }
func (e *BaseDomainEvent) EventType() string      { return e.Name }
func (e *BaseDomainEvent) OccurredAt() time.Time  { return e.At }
func (e *BaseDomainEvent) AggregateID() uuid.UUID { return e.Aggregate }
func (e *BaseDomainEvent) AggregateType() string  { return e.Kind }
func (e *BaseDomainEvent) TenantID() uuid.UUID    { return e.Renter }

// NewBaseDomainEvent stamps a new event envelope with a fresh ID and the current UTC time
func NewBaseDomainEvent(eventType, aggregateType string, aggregateID, tenantID uuid.UUID) BaseDomainEvent {
	return BaseDomainEvent{
		EventUUID: uuid.New(),
		Name:      eventType,
		At:        time.Now().UTC(),
		Aggregate: aggregateID,
		Kind:      aggregateType,
		Renter:    tenantID,
	}
}
