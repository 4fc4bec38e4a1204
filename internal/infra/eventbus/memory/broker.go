// Package memory provides an in-memory event bus used in tests and local
// development where a Kafka cluster is unavailable.
package memory

import (
	"context"
	"sync"

	"github.com/scanhound/scanhound/internal/domain/events"
)

var _ events.EventBus = (*EventBus)(nil)

// EventBus is an in-process implementation of events.EventBus. Handlers are
// invoked synchronously on Publish, which makes test assertions
// deterministic.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[events.EventType][]events.HandlerFunc
	closed   bool
}

// NewEventBus creates an empty in-memory event bus.
func NewEventBus() *EventBus {
	return &EventBus{handlers: make(map[events.EventType][]events.HandlerFunc)}
}

// Publish delivers the event to every handler subscribed to its type. Each
// handler receives an ack callback that records nothing; delivery is
// at-most-once within the process.
func (b *EventBus) Publish(ctx context.Context, event events.EventEnvelope, opts ...events.PublishOption) error {
	var pParams events.PublishParams
	for _, opt := range opts {
		opt(&pParams)
	}
	if pParams.Key != "" {
		event.Key = pParams.Key
	}

	b.mu.RLock()
	hs := append([]events.HandlerFunc(nil), b.handlers[event.Type]...)
	b.mu.RUnlock()

	for _, h := range hs {
		if err := h(ctx, event, func(error) {}); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe registers the handler for each of the given event types.
func (b *EventBus) Subscribe(ctx context.Context, eventTypes []events.EventType, handler events.HandlerFunc) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, et := range eventTypes {
		b.handlers[et] = append(b.handlers[et], handler)
	}
	return nil
}

// Close drops all registered handlers.
func (b *EventBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = make(map[events.EventType][]events.HandlerFunc)
	b.closed = true
	return nil
}
