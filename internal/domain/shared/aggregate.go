package shared

import (
	"github.com/google/uuid"
)

// BaseAggregateRoot is embedded by aggregates that are saved under
// optimistic locking and raise domain events.
//
// Version starts at 1. Repositories compare it with the stored row and bump
// it on every successful write, so a caller holding a stale copy fails with
// ErrConcurrencyConflict instead of overwriting.
type BaseAggregateRoot struct {
	BaseEntity
	Version      int        `json:"version"`
	CreatedBy    *uuid.UUID `json:"created_by,omitempty"`
	domainEvents []DomainEvent
}

// NewBaseAggregateRoot creates a first-version aggregate root
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{BaseEntity: NewBaseEntity(), Version: 1}
}

// IncrementVersion is called by repositories after a write
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
}

// AddDomainEvent queues an event for the outbox
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.domainEvents = append(a.domainEvents, event)
}

// GetDomainEvents returns the queued events
func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.domainEvents
}

// ClearDomainEvents drops queued events once they have been written
func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.domainEvents = nil
}
