package sidechain

import (
	"sort"
	"strings"
	"sync"

	"github.com/nerrad567/mixroute-core/internal/audio"
)

// Logger defines the logging interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// EffectID is an Effect identified only by its ID. It lets control
// surfaces bind a route to an effect they cannot hold a reference to.
type EffectID string

// ID implements Effect.
func (e EffectID) ID() string { return string(e) }

// Matrix owns sidechain routes and the effect → route index.
//
// All public methods are thread-safe.
type Matrix struct {
	mu       sync.RWMutex
	routes   map[string]*Route
	byEffect map[string]*Route // effect ID → route feeding it
	order    []string          // route IDs in creation order

	handlersMu  sync.RWMutex
	handlers    map[uint64]EventHandler
	nextHandler uint64

	logger Logger
}

// NewMatrix creates an empty sidechain matrix.
func NewMatrix() *Matrix {
	return &Matrix{
		routes:   make(map[string]*Route),
		byEffect: make(map[string]*Route),
		handlers: make(map[uint64]EventHandler),
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the matrix.
func (m *Matrix) SetLogger(logger Logger) {
	m.logger = logger
}

// CreateRoute creates an active, unity-gain route. Both names are
// required; the same pair may be routed more than once.
func (m *Matrix) CreateRoute(sourceName, targetName string) (*Route, error) {
	sourceName = strings.TrimSpace(sourceName)
	targetName = strings.TrimSpace(targetName)
	if sourceName == "" || targetName == "" {
		return nil, ErrEmptyName
	}

	r := newRoute(sourceName, targetName)
	m.mu.Lock()
	m.routes[r.id] = r
	m.order = append(m.order, r.id)
	m.mu.Unlock()

	sidechainRoutes.Inc()
	m.logger.Info("sidechain route created", "route_id", r.id, "source", sourceName, "target", targetName)
	m.emit(Event{Type: EventRouteCreated, RouteID: r.id})
	return r, nil
}

func (m *Matrix) managesLocked(r *Route) bool {
	return r != nil && m.routes[r.id] == r
}

// AssignSource attaches a live source to r. A nil source detaches it.
func (m *Matrix) AssignSource(r *Route, src audio.Source) error {
	m.mu.RLock()
	managed := m.managesLocked(r)
	m.mu.RUnlock()
	if !managed {
		return ErrNotManaged
	}

	r.setSource(src)
	m.logger.Debug("sidechain source assigned", "route_id", r.id, "attached", src != nil)
	m.emit(Event{Type: EventRouteChanged, RouteID: r.id})
	return nil
}

// AssignTarget binds r to an effect and updates the effect index. A nil
// effect unbinds it. If another route already fed the effect, r takes
// over the index entry.
func (m *Matrix) AssignTarget(r *Route, e Effect) error {
	m.mu.Lock()
	if !m.managesLocked(r) {
		m.mu.Unlock()
		return ErrNotManaged
	}

	old := r.setTarget(e)
	if old != nil && m.byEffect[old.ID()] == r {
		delete(m.byEffect, old.ID())
		m.reindexLocked(old.ID())
	}
	var displaced *Route
	if e != nil {
		if prev := m.byEffect[e.ID()]; prev != nil && prev != r {
			displaced = prev
		}
		m.byEffect[e.ID()] = r
	}
	m.mu.Unlock()

	if displaced != nil {
		m.logger.Warn("effect already had a sidechain route; replacing",
			"effect_id", e.ID(),
			"previous_route_id", displaced.id,
			"route_id", r.id,
		)
	}
	ev := Event{Type: EventRouteChanged, RouteID: r.id}
	if e != nil {
		ev.EffectID = e.ID()
	}
	m.emit(ev)
	return nil
}

// reindexLocked points effectID at the earliest remaining route targeting
// it, if any.
func (m *Matrix) reindexLocked(effectID string) {
	for _, id := range m.order {
		r := m.routes[id]
		if t := r.Target(); t != nil && t.ID() == effectID {
			m.byEffect[effectID] = r
			return
		}
	}
}

// SetGain sets r's linear gain, clamped to [MinGain, MaxGain], and returns
// the stored value.
func (m *Matrix) SetGain(r *Route, gain float64) (float64, error) {
	m.mu.RLock()
	managed := m.managesLocked(r)
	m.mu.RUnlock()
	if !managed {
		return 0, ErrNotManaged
	}

	g := r.setGain(gain)
	m.emit(Event{Type: EventRouteChanged, RouteID: r.id})
	return g, nil
}

// SetActive enables or disables r.
func (m *Matrix) SetActive(r *Route, active bool) error {
	m.mu.RLock()
	managed := m.managesLocked(r)
	m.mu.RUnlock()
	if !managed {
		return ErrNotManaged
	}

	if r.setActive(active) {
		m.emit(Event{Type: EventRouteChanged, RouteID: r.id})
	}
	return nil
}

// RemoveRoute deletes a route and its index entry. Returns false if the
// route does not exist.
func (m *Matrix) RemoveRoute(id string) bool {
	m.mu.Lock()
	r, ok := m.routes[id]
	if !ok {
		m.mu.Unlock()
		return false
	}
	delete(m.routes, id)
	for i, rid := range m.order {
		if rid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}

	if t := r.Target(); t != nil && m.byEffect[t.ID()] == r {
		delete(m.byEffect, t.ID())
		m.reindexLocked(t.ID())
	} else {
		// Target changed under us; drop any stale entry.
		for effectID, indexed := range m.byEffect {
			if indexed == r {
				delete(m.byEffect, effectID)
				m.reindexLocked(effectID)
			}
		}
	}
	m.mu.Unlock()

	sidechainRoutes.Dec()
	m.logger.Info("sidechain route removed", "route_id", id)
	m.emit(Event{Type: EventRouteRemoved, RouteID: id})
	return true
}

// GetSidechainFor returns the signal keying effect: nil if no active route
// with a live source feeds it, a gain adapter if the route's gain is not
// unity, otherwise the raw source. The indexed route is preferred; when it
// is silent the earliest other live route targeting the effect is used.
// Safe for the audio thread.
func (m *Matrix) GetSidechainFor(effect Effect) audio.Source {
	if effect == nil {
		return nil
	}
	id := effect.ID()

	m.mu.RLock()
	defer m.mu.RUnlock()

	indexed := m.byEffect[id]
	if indexed == nil {
		return nil
	}
	if src := indexed.signal(); src != nil {
		return src
	}
	for _, rid := range m.order {
		r := m.routes[rid]
		if r == indexed {
			continue
		}
		if t := r.Target(); t != nil && t.ID() == id {
			if src := r.signal(); src != nil {
				return src
			}
		}
	}
	return nil
}

// RouteFor returns the route indexed for an effect ID, or nil.
func (m *Matrix) RouteFor(effectID string) *Route {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.byEffect[effectID]
}

// Route returns the route with the given ID, or nil.
func (m *Matrix) Route(id string) *Route {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.routes[id]
}

// Routes returns every route in creation order.
func (m *Matrix) Routes() []*Route {
	m.mu.RLock()
	defer m.mu.RUnlock()
	routes := make([]*Route, 0, len(m.order))
	for _, id := range m.order {
		routes = append(routes, m.routes[id])
	}
	return routes
}

// RoutesFromSource returns routes whose source name matches, ignoring case.
func (m *Matrix) RoutesFromSource(sourceName string) []*Route {
	var out []*Route
	for _, r := range m.Routes() {
		if strings.EqualFold(r.sourceName, sourceName) {
			out = append(out, r)
		}
	}
	return out
}

// IndexedEffects returns the effect IDs that currently have a route,
// sorted.
func (m *Matrix) IndexedEffects() []string {
	m.mu.RLock()
	ids := make([]string, 0, len(m.byEffect))
	for id := range m.byEffect {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Clear removes every route.
func (m *Matrix) Clear() {
	m.mu.Lock()
	n := len(m.routes)
	m.routes = make(map[string]*Route)
	m.byEffect = make(map[string]*Route)
	m.order = nil
	m.mu.Unlock()

	sidechainRoutes.Sub(float64(n))
	m.logger.Info("sidechain matrix cleared", "routes", n)
}
