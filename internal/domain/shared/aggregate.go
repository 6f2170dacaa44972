package shared

import (
	"time"

	"github.com/google/uuid"
)

// Entity is anything in the ledger with an identity and audit timestamps
type Entity interface {
	GetID() uuid.UUID
	GetCreatedAt() time.Time
	GetUpdatedAt() time.Time
}

// BaseEntity holds the identity and timestamps. Timestamps are UTC.
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBaseEntity returns an entity with a fresh random ID created now
func NewBaseEntity() BaseEntity {
	now := time.Now().UTC()
	return BaseEntity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
}

func (e *BaseEntity) GetID() uuid.UUID        { return e.ID }
func (e *BaseEntity) GetCreatedAt() time.Time { return e.CreatedAt }
func (e *BaseEntity) GetUpdatedAt() time.Time { return e.UpdatedAt }

// Touch records a modification
func (e *BaseEntity) Touch() {
	e.UpdatedAt = time.Now().UTC()
}

// AggregateRoot is a unit saved atomically and guarded by an optimistic
// version. Repositories compare Version on update and bump it on success;
// pending events are drained after commit.
type AggregateRoot interface {
	Entity
	GetVersion() int
	IncrementVersion()
	AddDomainEvent(event DomainEvent)
	GetDomainEvents() []DomainEvent
	ClearDomainEvents()
}

// BaseAggregateRoot implements AggregateRoot over a BaseEntity
type BaseAggregateRoot struct {
	BaseEntity
	// Version is the value last read from or written to storage; new aggregates start at 1
	Version int
	pending []DomainEvent
}

// NewBaseAggregateRoot returns a new, unsaved aggregate at version 1
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{BaseEntity: NewBaseEntity(), Version: 1}
}

// GetVersion returns the optimistic lock version
func (a *BaseAggregateRoot) GetVersion() int { return a.Version }

// IncrementVersion is called by repositories after a successful versioned update
func (a *BaseAggregateRoot) IncrementVersion() { a.Version++ }

// AddDomainEvent queues an event for publication after commit
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.pending = append(a.pending, event)
}

// GetDomainEvents returns the queued events in the order they were raised
func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.pending
}

// ClearDomainEvents drops the queued events
func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.pending = nil
}
