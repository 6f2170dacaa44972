package shared

import "context"

// EventHandler handles domain events
type EventHandler interface {
	// Handle processes a domain event
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes returns the event types this handler is interested in
	// An empty slice means the handler receives all events
	EventTypes() []string
}

// EventPublisher publishes domain events
type EventPublisher interface {
	// Publish publishes one or more domain events
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventSubscriber subscribes to domain events
type EventSubscriber interface {
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
}

// EventBus combines publisher and subscriber capabilities
type EventBus interface {
	EventPublisher
	EventSubscriber
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// CollectEvents drains pending events from the given aggregates in order
func CollectEvents(aggregates ...AggregateRoot) []DomainEvent {
	events := make([]DomainEvent, 0)
	for _, agg := range aggregates {
		if agg == nil {
			continue
		}
		events = append(events, agg.GetDomainEvents()...)
		agg.ClearDomainEvents()
	}
	return events
}
