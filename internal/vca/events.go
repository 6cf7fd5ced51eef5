package vca

import (
	"sort"
	"time"
)

// EventType identifies a VCA event.
type EventType string

// VCA event types.
const (
	EventFaderCreated           EventType = "fader_created"
	EventFaderRemoved           EventType = "fader_removed"
	EventGroupCreated           EventType = "group_created"
	EventGroupRemoved           EventType = "group_removed"
	EventFaderLinked            EventType = "fader_linked"
	EventFaderUnlinked          EventType = "fader_unlinked"
	EventGroupVolumeChanged     EventType = "group_volume_changed"
	EventGroupMuteChanged       EventType = "group_mute_changed"
	EventGroupParentChanged     EventType = "group_parent_changed"
	EventEffectiveVolumeChanged EventType = "effective_volume_changed"
)

// Event describes a VCA change. Value carries the new volume for volume
// events; Muted the new state for mute events.
type Event struct {
	Type      EventType `json:"type"`
	FaderID   string    `json:"fader_id,omitempty"`
	GroupID   string    `json:"group_id,omitempty"`
	Value     float64   `json:"value,omitempty"`
	Muted     bool      `json:"muted,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EventHandler receives VCA events.
type EventHandler func(Event)

// OnEvent registers a handler and returns a function that removes it.
func (m *Manager) OnEvent(h EventHandler) (unsubscribe func()) {
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

// queueLocked stamps events and appends them to the delivery queue.
// Callers hold m.mu, so queue order matches the order the changes were
// made in.
func (m *Manager) queueLocked(events ...Event) {
	if len(events) == 0 {
		return
	}
	now := time.Now().UTC()
	m.queueMu.Lock()
	for _, ev := range events {
		if ev.Timestamp.IsZero() {
			ev.Timestamp = now
		}
		m.pending = append(m.pending, ev)
	}
	m.queueMu.Unlock()
}

// flush delivers queued events. Must be called with no locks held. Only
// one goroutine delivers at a time; a concurrent or re-entrant caller
// leaves its events to the goroutine already draining, which keeps
// handlers seeing events in queue order.
func (m *Manager) flush() {
	m.queueMu.Lock()
	if m.draining {
		m.queueMu.Unlock()
		return
	}
	m.draining = true
	for len(m.pending) > 0 {
		batch := m.pending
		m.pending = nil
		m.queueMu.Unlock()

		m.deliver(batch)

		m.queueMu.Lock()
	}
	m.draining = false
	m.queueMu.Unlock()
}

func (m *Manager) deliver(events []Event) {
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

	for _, ev := range events {
		for _, h := range handlers {
			m.dispatch(h, ev)
		}
	}
}

func (m *Manager) dispatch(h EventHandler, ev Event) {
	defer func() {
		if rec := recover(); rec != nil {
			m.logger.Error("vca event handler panicked", "event", ev.Type, "panic", rec)
		}
	}()
	h(ev)
}
