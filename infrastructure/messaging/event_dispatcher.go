package messaging

import (
	"context"
	"time"

	"github.com/lehelkovach/osl-agent-prototype-sub000/application/ports"
	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/events"

	"go.uber.org/zap"
)

// EventDispatcher publishes a domain event to the local in-process bus
// (e.g. the websocket broadcaster) and, if configured, an external bus such
// as EventBridge. A local dispatch failure never blocks the external
// publish, so websocket subscribers being briefly unavailable can't stall
// durable event delivery.
type EventDispatcher struct {
	local    ports.EventBus
	external ports.EventPublisher
	logger   *zap.Logger
}

// NewEventDispatcher creates a dispatcher. external may be nil, in which
// case events are only delivered locally.
func NewEventDispatcher(local ports.EventBus, external ports.EventPublisher, logger *zap.Logger) *EventDispatcher {
	return &EventDispatcher{
		local:    local,
		external: external,
		logger:   logger,
	}
}

// Publish dispatches a single event locally, then externally.
func (d *EventDispatcher) Publish(ctx context.Context, event events.DomainEvent) error {
	return d.PublishBatch(ctx, []events.DomainEvent{event})
}

// PublishBatch dispatches a batch of events locally, then externally.
func (d *EventDispatcher) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	startTime := time.Now()

	if d.local != nil {
		if err := d.local.PublishBatch(ctx, batch); err != nil {
			d.logger.Warn("local event dispatch failed",
				zap.Error(err),
				zap.Duration("duration", time.Since(startTime)),
			)
		}
	}

	if d.external == nil {
		return nil
	}
	return d.external.PublishBatch(ctx, batch)
}
