package event

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/propledger/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ErrBusStopped is returned by Publish when the bus is not running
var ErrBusStopped = errors.New("event bus is not running")

// BusStats is a snapshot of bus counters
type BusStats struct {
	Published       int64 `json:"published"`
	HandlerFailures int64 `json:"handler_failures"`
}

// InMemoryEventBus dispatches events synchronously to in-process handlers.
// Services publish only after their transaction has committed, so handlers
// never observe rolled-back state.
type InMemoryEventBus struct {
	registry  *HandlerRegistry
	logger    *zap.Logger
	running   atomic.Bool
	published atomic.Int64
	failures  atomic.Int64
}

// NewInMemoryEventBus creates a stopped bus; call Start before publishing
func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		logger:   logger,
	}
}

// Publish hands every event to its handlers in order. A failing or panicking
// handler is logged and counted; it does not stop delivery to the others.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	if !b.running.Load() {
		return ErrBusStopped
	}
	for _, event := range events {
		if event == nil {
			continue
		}
		b.published.Add(1)
		for _, handler := range b.registry.HandlersFor(event.EventType()) {
			if err := b.dispatch(ctx, handler, event); err != nil {
				b.failures.Add(1)
				b.logger.Error("event handler failed",
					zap.String("event_type", event.EventType()),
					zap.String("event_id", event.EventID().String()),
					zap.String("aggregate_id", event.AggregateID().String()),
					zap.Error(err),
				)
			}
		}
	}
	return nil
}

// Subscribe registers handler for eventTypes, or for the handler's own EventTypes when none are given
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes a handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
}

// Start enables publishing
func (b *InMemoryEventBus) Start(_ context.Context) error {
	b.running.Store(true)
	b.logger.Info("event bus started", zap.Int("handlers", b.registry.Count()))
	return nil
}

// Stop disables publishing. Dispatch is synchronous, so nothing is in flight
// once concurrent Publish calls have returned.
func (b *InMemoryEventBus) Stop(_ context.Context) error {
	b.running.Store(false)
	b.logger.Info("event bus stopped", zap.Int64("published", b.published.Load()))
	return nil
}

// Stats returns the current counters
func (b *InMemoryEventBus) Stats() BusStats {
	return BusStats{
		Published:       b.published.Load(),
		HandlerFailures: b.failures.Load(),
	}
}

func (b *InMemoryEventBus) dispatch(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler.Handle(ctx, event)
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
