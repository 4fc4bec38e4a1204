// Package eventbus bridges the domain event interfaces to concrete broker
// implementations.
package eventbus

import (
	"context"

	"github.com/scanhound/scanhound/internal/domain/events"
)

var _ events.DomainEventPublisher = (*DomainEventPublisher)(nil)

// DomainEventPublisher adapts an events.EventBus to the narrower publishing
// interface used by application services.
type DomainEventPublisher struct {
	bus events.EventBus
}

// NewDomainEventPublisher creates a publisher backed by the given bus.
func NewDomainEventPublisher(bus events.EventBus) *DomainEventPublisher {
	return &DomainEventPublisher{bus: bus}
}

// PublishDomainEvent forwards the event to the underlying bus.
func (p *DomainEventPublisher) PublishDomainEvent(ctx context.Context, event events.EventEnvelope, opts ...events.PublishOption) error {
	return p.bus.Publish(ctx, event, opts...)
}
