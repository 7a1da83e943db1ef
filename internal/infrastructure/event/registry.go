package event

import (
	"slices"
	"sync"

	"github.com/clinic-ledger/backend/internal/domain/shared"
)

// subscription binds a handler to a set of event types; a nil set matches
// every type
type subscription struct {
	handler shared.EventHandler
	types   map[string]struct{}
}

func (s subscription) matches(eventType string) bool {
	if s.types == nil {
		return false
	}
	_, ok := s.types[eventType]
	return ok
}

// HandlerRegistry tracks which handlers receive which event types
type HandlerRegistry struct {
	mu       sync.RWMutex
	typed    []subscription
	wildcard []subscription
}

// NewHandlerRegistry creates an empty registry
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{}
}

// Register subscribes handler to eventTypes, or to every type when none are given
func (r *HandlerRegistry) Register(handler shared.EventHandler, eventTypes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(eventTypes) == 0 {
		r.wildcard = append(r.wildcard, subscription{handler: handler})
		return
	}
	types := make(map[string]struct{}, len(eventTypes))
	for _, t := range eventTypes {
		types[t] = struct{}{}
	}
	r.typed = append(r.typed, subscription{handler: handler, types: types})
}

// Unregister drops every subscription of handler
func (r *HandlerRegistry) Unregister(handler shared.EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	owned := func(s subscription) bool { return s.handler == handler }
	r.typed = slices.DeleteFunc(r.typed, owned)
	r.wildcard = slices.DeleteFunc(r.wildcard, owned)
}

// GetHandlers returns the handlers for eventType in registration order,
// wildcard handlers last
func (r *HandlerRegistry) GetHandlers(eventType string) []shared.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]shared.EventHandler, 0, len(r.typed)+len(r.wildcard))
	for _, s := range r.typed {
		if s.matches(eventType) {
			result = append(result, s.handler)
		}
	}
	for _, s := range r.wildcard {
		result = append(result, s.handler)
	}
	return result
}

// GetAllHandlers returns each registered handler once
func (r *HandlerRegistry) GetAllHandlers() []shared.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []shared.EventHandler
	for _, s := range slices.Concat(r.wildcard, r.typed) {
		if !slices.Contains(result, s.handler) {
			result = append(result, s.handler)
		}
	}
	return result
}
