package event

import (
	"github.com/clinic-ledger/backend/internal/domain/ledger"
)

var ledgerEvents = []struct {
	eventType string
	register  func(*EventSerializer, string)
}{
	{ledger.EventTypeEntryCreated, RegisterEvent[ledger.EntryCreatedEvent]},
	{ledger.EventTypeEntryEdited, RegisterEvent[ledger.EntryEditedEvent]},
	{ledger.EventTypeEntryValidated, RegisterEvent[ledger.EntryValidatedEvent]},
	{ledger.EventTypeEntryCanceled, RegisterEvent[ledger.EntryCanceledEvent]},
	{ledger.EventTypeInstallmentPaid, RegisterEvent[ledger.InstallmentPaidEvent]},
	{ledger.EventTypeRecurringDefinitionCreated, RegisterEvent[ledger.RecurringDefinitionCreatedEvent]},
	{ledger.EventTypeRecurringDefinitionToggled, RegisterEvent[ledger.RecurringDefinitionToggledEvent]},
	{ledger.EventTypeRecurringEntryMaterialized, RegisterEvent[ledger.RecurringEntryMaterializedEvent]},
}

// RegisterLedgerEvents registers every ledger event type with the serializer.
// The outbox processor cannot deliver an event whose type is not registered.
func RegisterLedgerEvents(serializer *EventSerializer) {
	for _, e := range ledgerEvents {
		e.register(serializer, e.eventType)
	}
}

// LedgerEventTypes lists the event types RegisterLedgerEvents registers
func LedgerEventTypes() []string {
	types := make([]string, len(ledgerEvents))
	for i, e := range ledgerEvents {
		types[i] = e.eventType
	}
	return types
}
