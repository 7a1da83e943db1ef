package event

import (
	"context"
	"fmt"

	"github.com/clinic-ledger/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// OutboxPublisher writes domain events to the outbox table inside the
// caller's transaction. Delivery to the bus happens later in the
// OutboxProcessor.
type OutboxPublisher struct {
	serializer *EventSerializer
}

// NewOutboxPublisher creates a publisher that encodes with serializer
func NewOutboxPublisher(serializer *EventSerializer) *OutboxPublisher {
	return &OutboxPublisher{serializer: serializer}
}

// PublishWithTx stores events through tx, so they commit or roll back with
// the ledger change that raised them
func (p *OutboxPublisher) PublishWithTx(ctx context.Context, tx *gorm.DB, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	entries := make([]*shared.OutboxEntry, len(events))
	for i, event := range events {
		payload, err := p.serializer.Serialize(event)
		if err != nil {
			return fmt.Errorf("serialize %s event %s: %w", event.EventType(), event.EventID(), err)
		}
		entries[i] = shared.NewOutboxEntry(event, payload)
	}
	return NewGormOutboxRepository(tx).Save(ctx, entries...)
}
