package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/propledger/backend/internal/domain/shared"
)

// Entry is the persisted record of one domain event
type Entry struct {
	shared.BaseEntity
	EventID       uuid.UUID
	EventType     string
	AggregateType string
	AggregateID   uuid.UUID
	TenantID      *uuid.UUID
	Payload       json.RawMessage
	OccurredAt    time.Time
}

// NewEntry captures a domain event as an audit entry
func NewEntry(event shared.DomainEvent) (*Entry, error) {
	if event == nil {
		return nil, shared.NewValidationError("INVALID_EVENT", "Event cannot be nil")
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, shared.NewValidationError("INVALID_EVENT", "Event payload is not serializable: "+err.Error())
	}
	entry := &Entry{
		BaseEntity:    shared.NewBaseEntity(),
		EventID:       event.EventID(),
		EventType:     event.EventType(),
		AggregateType: event.AggregateType(),
		AggregateID:   event.AggregateID(),
		Payload:       payload,
		OccurredAt:    event.OccurredAt().UTC(),
	}
	if tid := event.TenantID(); tid != uuid.Nil {
		entry.TenantID = &tid
	}
	return entry, nil
}

// Filter narrows audit log queries
type Filter struct {
	shared.Filter
	AggregateType string
	AggregateID   *uuid.UUID
	EventType     string
}

// Repository persists audit entries
type Repository interface {
	// Append stores the entry; an entry whose event ID is already stored is ignored
	Append(ctx context.Context, entry *Entry) error
	FindByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	FindAll(ctx context.Context, filter Filter) ([]*Entry, int64, error)
}
