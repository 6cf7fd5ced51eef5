package routing

import (
	"sort"
	"time"
)

// EventType identifies a matrix lifecycle event.
type EventType string

// Matrix event types.
const (
	EventPointRegistered EventType = "point_registered"
	EventPointRemoved    EventType = "point_removed"
	EventPointChanged    EventType = "point_changed"
	EventRouteCreated    EventType = "route_created"
	EventRouteRemoved    EventType = "route_removed"
	EventRouteChanged    EventType = "route_changed"
	EventMatrixCleared   EventType = "matrix_cleared"
)

// Event describes a change to the matrix. Point events set PointID; route
// events set RouteID, SourceID and DestinationID.
type Event struct {
	Type          EventType `json:"type"`
	PointID       string    `json:"point_id,omitempty"`
	RouteID       string    `json:"route_id,omitempty"`
	SourceID      string    `json:"source_id,omitempty"`
	DestinationID string    `json:"destination_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// EventHandler receives matrix events. Handlers run on the goroutine that
// made the change, after the matrix lock has been released.
type EventHandler func(Event)

func pointEvent(t EventType, p *Point) Event {
	return Event{Type: t, PointID: p.ID(), Timestamp: time.Now().UTC()}
}

func routeEvent(t EventType, r *Route) Event {
	return Event{
		Type:          t,
		RouteID:       r.ID(),
		SourceID:      r.SourceID(),
		DestinationID: r.DestinationID(),
		Timestamp:     time.Now().UTC(),
	}
}

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

// emit delivers events to every handler in registration order. It must be
// called without holding m.mu.
func (m *Matrix) emit(events ...Event) {
	if len(events) == 0 {
		return
	}

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
		eventsEmitted.WithLabelValues(string(ev.Type)).Inc()
		for _, h := range handlers {
			m.dispatch(h, ev)
		}
	}
}

func (m *Matrix) dispatch(h EventHandler, ev Event) {
	defer func() {
		if rec := recover(); rec != nil {
			m.logger.Error("event handler panicked", "event", ev.Type, "panic", rec)
		}
	}()
	h(ev)
}
