package sidechain

import (
	"sort"
	"time"
)

// EventType identifies a sidechain event.
type EventType string

// Sidechain event types.
const (
	EventRouteCreated EventType = "sidechain_route_created"
	EventRouteRemoved EventType = "sidechain_route_removed"
	EventRouteChanged EventType = "sidechain_route_changed"
)

// Event describes a sidechain matrix change.
type Event struct {
	Type      EventType `json:"type"`
	RouteID   string    `json:"route_id"`
	EffectID  string    `json:"effect_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EventHandler receives sidechain events.
type EventHandler func(Event)

// OnEvent registers a handler and returns a function that removes it.
func (m *Matrix) OnEvent(h EventHandler) (unsubscribe func()) {
	m.handlersMu.Lock()
	id := m.nextHandler
	m.nextHandler++
	m.handlers[id] = h
	m.handlersMu.Unlock()

	return func() {
		m.handlersMu.Lock()
		delete(m.handlers, id)
		m.handlersMu.Unlock()
	}
}

func (m *Matrix) emit(ev Event) {
	m.handlersMu.RLock()
	ids := make([]uint64, 0, len(m.handlers))
	for id := range m.handlers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	handlers := make([]EventHandler, len(ids))
	for i, id := range ids {
		handlers[i] = m.handlers[id]
	}
	m.handlersMu.RUnlock()

	ev.Timestamp = time.Now().UTC()
	for _, h := range handlers {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					m.logger.Error("sidechain event handler panicked", "event", ev.Type, "panic", rec)
				}
			}()
			h(ev)
		}()
	}
}
