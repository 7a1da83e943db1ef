package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/clinic-ledger/backend/internal/domain/ledger"
	"github.com/clinic-ledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEvent struct {
	shared.BaseDomainEvent
	Data string `json:"data"`
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, ledger.AggregateTypeEntry, uuid.New()),
		Data:            "test data",
	}
}

type testHandler struct {
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
	panicMsg   string
	mu         sync.Mutex
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{eventTypes: eventTypes}
}

func (h *testHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if h.panicMsg != "" {
		panic(h.panicMsg)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	return h.err
}

func (h *testHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *testHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	created := newTestHandler(ledger.EventTypeEntryCreated)
	all := newTestHandler()

	bus.Subscribe(created)
	bus.Subscribe(all)

	err := bus.Publish(context.Background(),
		newTestEvent(ledger.EventTypeEntryCreated),
		newTestEvent(ledger.EventTypeEntryCanceled),
	)

	require.NoError(t, err)
	assert.Equal(t, 1, created.count())
	assert.Equal(t, 2, all.count())
}

func TestInMemoryEventBus_Publish_ExplicitTypesOverrideHandler(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newTestHandler(ledger.EventTypeEntryCreated)

	bus.Subscribe(handler, ledger.EventTypeEntryValidated)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent(ledger.EventTypeEntryCreated)))
	assert.Equal(t, 0, handler.count())

	require.NoError(t, bus.Publish(context.Background(), newTestEvent(ledger.EventTypeEntryValidated)))
	assert.Equal(t, 1, handler.count())
}

func TestInMemoryEventBus_Publish_HandlerError(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	failing := newTestHandler(ledger.EventTypeEntryValidated)
	failing.err = errors.New("metrics sink down")
	healthy := newTestHandler(ledger.EventTypeEntryValidated)

	bus.Subscribe(failing)
	bus.Subscribe(healthy)

	err := bus.Publish(context.Background(), newTestEvent(ledger.EventTypeEntryValidated))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "metrics sink down")
	assert.Equal(t, 1, healthy.count(), "other handlers still receive the event")
}

func TestInMemoryEventBus_Publish_RecoversPanic(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	panicking := newTestHandler(ledger.EventTypeEntryCanceled)
	panicking.panicMsg = "boom"

	bus.Subscribe(panicking)

	err := bus.Publish(context.Background(), newTestEvent(ledger.EventTypeEntryCanceled))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newTestHandler(ledger.EventTypeEntryCreated)

	bus.Subscribe(handler)
	bus.Unsubscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent(ledger.EventTypeEntryCreated)))
	assert.Equal(t, 0, handler.count())
}

func TestInMemoryEventBus_StartStop(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	assert.NoError(t, bus.Start(context.Background()))
	assert.NoError(t, bus.Stop(context.Background()))
}
