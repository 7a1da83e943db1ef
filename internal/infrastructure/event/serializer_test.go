package event

import (
	"testing"
	"time"

	"github.com/clinic-ledger/backend/internal/domain/ledger"
	"github.com/clinic-ledger/backend/internal/domain/shared"
	"github.com/clinic-ledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLedgerSerializer() *EventSerializer {
	s := NewEventSerializer()
	RegisterLedgerEvents(s)
	return s
}

func newTestEntry(t *testing.T) *ledger.Entry {
	t.Helper()
	entry, err := ledger.NewPreEntry(ledger.NewEntryParams{
		Kind:             ledger.EntryKindExpense,
		Description:      "Aluguel sala 2",
		IssueDate:        time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		Amount:           valueobject.MustMoney("1000.00"),
		InstallmentCount: 3,
	})
	require.NoError(t, err)
	return entry
}

func TestRegisterLedgerEvents(t *testing.T) {
	serializer := newLedgerSerializer()

	assert.ElementsMatch(t, LedgerEventTypes(), serializer.RegisteredTypes())
	for _, eventType := range LedgerEventTypes() {
		assert.True(t, serializer.IsRegistered(eventType), eventType)
	}
}

func TestEventSerializer_RoundTrip_EntryCreated(t *testing.T) {
	serializer := newLedgerSerializer()
	entry := newTestEntry(t)
	original := ledger.NewEntryCreatedEvent(entry)

	data, err := serializer.Serialize(original)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"amount_total":"1000.00"`)

	decoded, err := serializer.Deserialize(ledger.EventTypeEntryCreated, data)
	require.NoError(t, err)

	event, ok := decoded.(*ledger.EntryCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, original.EventID(), event.EventID())
	assert.Equal(t, original.AggregateID(), event.AggregateID())
	assert.Equal(t, ledger.AggregateTypeEntry, event.AggregateType())
	assert.Equal(t, entry.ID, event.EntryID)
	assert.Equal(t, ledger.EntryKindExpense, event.Kind)
	assert.Equal(t, "1000.00", event.AmountTotal.StringFixed())
	assert.True(t, original.IssueDate.Equal(event.IssueDate))
}

func TestEventSerializer_RoundTrip_RecurringDefinition(t *testing.T) {
	serializer := newLedgerSerializer()
	def, err := ledger.NewRecurringDefinition(ledger.RecurringDefinitionParams{
		Kind:          ledger.EntryKindExpense,
		Description:   "Internet",
		Amount:        valueobject.MustMoney("199.90"),
		Frequency:     ledger.FrequencyMonthly,
		DueDayOfMonth: 10,
		StartDate:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	events := def.GetDomainEvents()
	require.Len(t, events, 1)

	data, err := serializer.Serialize(events[0])
	require.NoError(t, err)

	decoded, err := serializer.Deserialize(events[0].EventType(), data)
	require.NoError(t, err)
	assert.IsType(t, &ledger.RecurringDefinitionCreatedEvent{}, decoded)
	assert.Equal(t, def.ID, decoded.AggregateID())
}

func TestEventSerializer_Deserialize_Errors(t *testing.T) {
	serializer := newLedgerSerializer()

	t.Run("unknown type", func(t *testing.T) {
		_, err := serializer.Deserialize("OrderShipped", []byte(`{}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown event type")
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := serializer.Deserialize(ledger.EventTypeEntryCanceled, []byte(`not json`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to unmarshal")
	})
}

func TestEventSerializer_Serialize_Unregistered(t *testing.T) {
	serializer := NewEventSerializer()
	event := &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("Anything", "TestAggregate", uuid.New()),
		Data:            "payload",
	}

	data, err := serializer.Serialize(event)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"data":"payload"`)
}
