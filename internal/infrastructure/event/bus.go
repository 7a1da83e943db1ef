package event

import (
	"context"
	"fmt"

	"github.com/clinic-ledger/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// InMemoryEventBus hands committed ledger events to in-process subscribers.
// The outbox processor is its only publisher.
type InMemoryEventBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger
}

// NewInMemoryEventBus returns a bus with no subscribers
func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	return &InMemoryEventBus{registry: NewHandlerRegistry(), logger: logger}
}

// Publish runs every matching handler for each event, in registration order.
// All handlers run even when one fails; the first failure is returned so the
// outbox keeps the entry for retry.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	var firstErr error
	for _, ev := range events {
		log := b.logger.With(
			zap.String("event_type", ev.EventType()),
			zap.String("event_id", ev.EventID().String()),
		)
		for _, h := range b.registry.GetHandlers(ev.EventType()) {
			err := safeHandle(ctx, h, ev)
			if err == nil {
				continue
			}
			log.Error("Event handler failed", zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Subscribe adds handler for eventTypes, or for handler.EventTypes() when none are given
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("Event handler subscribed", zap.Strings("event_types", eventTypes))
}

func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
}

// Start and Stop exist for the EventBus contract; dispatch is synchronous.
func (b *InMemoryEventBus) Start(context.Context) error { return nil }
func (b *InMemoryEventBus) Stop(context.Context) error  { return nil }

// safeHandle turns a handler panic into an error
func safeHandle(ctx context.Context, h shared.EventHandler, ev shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked on %s: %v", ev.EventType(), r)
		}
	}()
	return h.Handle(ctx, ev)
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
