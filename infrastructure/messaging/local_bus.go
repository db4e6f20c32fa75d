package messaging

import (
	"context"
	"fmt"
	"sync"

	"github.com/lehelkovach/osl-agent-prototype-sub000/application/ports"
	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/events"

	"go.uber.org/zap"
)

// LocalEventBus fans a domain event out to every in-process handler whose
// CanHandle matches the event type, e.g. the websocket broadcaster.
type LocalEventBus struct {
	mu       sync.RWMutex
	handlers []ports.EventHandler
	logger   *zap.Logger
}

// NewLocalEventBus creates an empty local event bus.
func NewLocalEventBus(logger *zap.Logger) *LocalEventBus {
	return &LocalEventBus{logger: logger}
}

// Publish dispatches a single event to matching handlers.
func (b *LocalEventBus) Publish(ctx context.Context, event events.DomainEvent) error {
	return b.PublishBatch(ctx, []events.DomainEvent{event})
}

// PublishBatch dispatches a batch of events to matching handlers. A handler
// failure is logged and does not stop the remaining handlers or events.
func (b *LocalEventBus) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	b.mu.RLock()
	handlers := make([]ports.EventHandler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	var failures int
	for _, event := range batch {
		for _, h := range handlers {
			if !h.CanHandle(event.GetEventType()) {
				continue
			}
			if err := h.Handle(ctx, event); err != nil {
				failures++
				b.logger.Warn("local event handler failed",
					zap.String("eventType", event.GetEventType()),
					zap.Error(err),
				)
			}
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d local handler dispatches failed", failures)
	}
	return nil
}

// Subscribe registers a handler for future events.
func (b *LocalEventBus) Subscribe(eventType string, handler ports.EventHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler)
	return nil
}

// Unsubscribe removes a previously registered handler.
func (b *LocalEventBus) Unsubscribe(eventType string, handler ports.EventHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, h := range b.handlers {
		if h == handler {
			b.handlers = append(b.handlers[:i], b.handlers[i+1:]...)
			break
		}
	}
	return nil
}
