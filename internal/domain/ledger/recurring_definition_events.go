package ledger

import (
	"time"

	"github.com/clinic-ledger/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Aggregate and event type names
const (
	AggregateTypeRecurringDefinition = "RecurringDefinition"

	EventTypeRecurringDefinitionCreated = "RecurringDefinitionCreated"
	EventTypeRecurringDefinitionToggled = "RecurringDefinitionToggled"
	EventTypeRecurringEntryMaterialized = "RecurringEntryMaterialized"
)

// RecurringDefinitionCreatedEvent is raised when a recurring definition is created
type RecurringDefinitionCreatedEvent struct {
	shared.BaseDomainEvent
	DefinitionID       uuid.UUID `json:"definition_id"`
	Frequency          Frequency `json:"frequency"`
	NextOccurrenceDate time.Time `json:"next_occurrence_date"`
}

// NewRecurringDefinitionCreatedEvent creates a new RecurringDefinitionCreatedEvent
func NewRecurringDefinitionCreatedEvent(d *RecurringDefinition) *RecurringDefinitionCreatedEvent {
	return &RecurringDefinitionCreatedEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(EventTypeRecurringDefinitionCreated, AggregateTypeRecurringDefinition, d.ID),
		DefinitionID:       d.ID,
		Frequency:          d.Frequency,
		NextOccurrenceDate: d.NextOccurrenceDate,
	}
}

// RecurringDefinitionToggledEvent is raised when a definition is paused or resumed
type RecurringDefinitionToggledEvent struct {
	shared.BaseDomainEvent
	DefinitionID uuid.UUID `json:"definition_id"`
	Active       bool      `json:"active"`
}

// NewRecurringDefinitionToggledEvent creates a new RecurringDefinitionToggledEvent
func NewRecurringDefinitionToggledEvent(d *RecurringDefinition) *RecurringDefinitionToggledEvent {
	return &RecurringDefinitionToggledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRecurringDefinitionToggled, AggregateTypeRecurringDefinition, d.ID),
		DefinitionID:    d.ID,
		Active:          d.Active,
	}
}

// RecurringEntryMaterializedEvent is raised when an occurrence becomes an entry
type RecurringEntryMaterializedEvent struct {
	shared.BaseDomainEvent
	DefinitionID       uuid.UUID `json:"definition_id"`
	EntryID            uuid.UUID `json:"entry_id"`
	OccurrenceDate     time.Time `json:"occurrence_date"`
	NextOccurrenceDate time.Time `json:"next_occurrence_date"`
}

// NewRecurringEntryMaterializedEvent creates a new RecurringEntryMaterializedEvent
func NewRecurringEntryMaterializedEvent(d *RecurringDefinition, entry *Entry, occurrence time.Time) *RecurringEntryMaterializedEvent {
	return &RecurringEntryMaterializedEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(EventTypeRecurringEntryMaterialized, AggregateTypeRecurringDefinition, d.ID),
		DefinitionID:       d.ID,
		EntryID:            entry.ID,
		OccurrenceDate:     occurrence,
		NextOccurrenceDate: d.NextOccurrenceDate,
	}
}
