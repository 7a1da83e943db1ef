package event

import (
	"testing"

	"github.com/clinic-ledger/backend/internal/domain/ledger"
	"github.com/stretchr/testify/assert"
)

func TestHandlerRegistry_GetHandlers(t *testing.T) {
	registry := NewHandlerRegistry()
	approvals := newTestHandler()
	wildcard := newTestHandler()

	registry.Register(approvals, ledger.EventTypeEntryValidated, ledger.EventTypeEntryCanceled)
	registry.Register(wildcard)

	tests := []struct {
		eventType string
		want      int
	}{
		{ledger.EventTypeEntryValidated, 2},
		{ledger.EventTypeEntryCanceled, 2},
		{ledger.EventTypeEntryCreated, 1},
	}

	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			handlers := registry.GetHandlers(tt.eventType)
			assert.Len(t, handlers, tt.want)
			assert.Same(t, wildcard, handlers[len(handlers)-1], "wildcard handlers come last")
		})
	}
}

func TestHandlerRegistry_Unregister(t *testing.T) {
	registry := NewHandlerRegistry()
	first := newTestHandler()
	second := newTestHandler()
	wildcard := newTestHandler()

	registry.Register(first, ledger.EventTypeInstallmentPaid)
	registry.Register(second, ledger.EventTypeInstallmentPaid)
	registry.Register(wildcard)

	registry.Unregister(first)
	registry.Unregister(wildcard)

	handlers := registry.GetHandlers(ledger.EventTypeInstallmentPaid)
	assert.Len(t, handlers, 1)
	assert.Same(t, second, handlers[0])

	registry.Unregister(second)
	assert.Empty(t, registry.GetHandlers(ledger.EventTypeInstallmentPaid))
}

func TestHandlerRegistry_GetAllHandlers_NoDuplicates(t *testing.T) {
	registry := NewHandlerRegistry()
	entries := newTestHandler()
	definitions := newTestHandler()

	registry.Register(entries, ledger.EventTypeEntryCreated, ledger.EventTypeEntryEdited)
	registry.Register(definitions, ledger.EventTypeRecurringDefinitionCreated)
	registry.Register(definitions)

	assert.Len(t, registry.GetAllHandlers(), 2)
}
