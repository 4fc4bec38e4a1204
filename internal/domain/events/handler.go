package events

import "context"

// AckFunc acknowledges processing of a consumed event. Passing a non-nil
// error signals the broker that processing failed and the event should be
// redelivered per the broker's retry policy.
type AckFunc func(err error)

// HandlerFunc processes a single consumed event. The ack callback must be
// invoked exactly once when the handler has finished with the event.
type HandlerFunc func(ctx context.Context, evt EventEnvelope, ack AckFunc) error

// EventHandler defines the contract for components that process domain events.
// Each handler must declare which event types it can process and implement the
// logic to handle those events. The event bus routes events to the appropriate
// handlers based on the event type.
type EventHandler interface {
	// HandleEvent processes a domain event and returns an error if processing fails.
	HandleEvent(ctx context.Context, evt EventEnvelope, ack AckFunc) error

	// SupportedEvents returns the event types this handler can process.
	SupportedEvents() []EventType
}
