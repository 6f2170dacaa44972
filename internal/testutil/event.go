package testutil

import (
	"context"
	"sync"

	"github.com/propledger/backend/internal/domain/shared"
)

// RecordingPublisher is a shared.EventPublisher that keeps every published event.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
	err    error
}

// NewRecordingPublisher creates an empty RecordingPublisher.
func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{}
}

// Publish records the events and returns the configured error.
func (p *RecordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return p.err
}

// SetError sets the error to return from Publish.
func (p *RecordingPublisher) SetError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Events returns a copy of everything published so far.
func (p *RecordingPublisher) Events() []shared.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]shared.DomainEvent(nil), p.events...)
}

// EventTypes returns the type of every published event in order.
func (p *RecordingPublisher) EventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.EventType())
	}
	return types
}

// Count returns how many events of eventType were published.
func (p *RecordingPublisher) Count(eventType string) int {
	n := 0
	for _, t := range p.EventTypes() {
		if t == eventType {
			n++
		}
	}
	return n
}

// Reset clears recorded events and the error.
func (p *RecordingPublisher) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
	p.err = nil
}

var _ shared.EventPublisher = (*RecordingPublisher)(nil)
