package routing

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Matrix.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// routeSet is a set of route IDs.
type routeSet map[string]struct{}

// Matrix owns the routing points and routes of one session and keeps the
// enabled graph acyclic.
//
// All public methods are thread-safe.
type Matrix struct {
	mu            sync.RWMutex
	points        map[string]*Point
	routes        map[string]*Route
	bySource      map[string]routeSet // point ID → outgoing route IDs
	byDestination map[string]routeSet // point ID → incoming route IDs
	pointSeq      uint64
	routeSeq      uint64

	handlersMu  sync.RWMutex
	handlers    map[uint64]EventHandler
	nextHandler uint64

	logger Logger
}

// NewMatrix creates an empty matrix.
func NewMatrix() *Matrix {
	return &Matrix{
		points:        make(map[string]*Point),
		routes:        make(map[string]*Route),
		bySource:      make(map[string]routeSet),
		byDestination: make(map[string]routeSet),
		handlers:      make(map[uint64]EventHandler),
		logger:        noopLogger{},
	}
}

// SetLogger sets the logger for the matrix.
func (m *Matrix) SetLogger(logger Logger) {
	m.logger = logger
}

// ─── Points ────────────────────────────────────────────────────────────

// RegisterPoint adds p to the matrix. Returns false if p is nil, its ID is
// already present, or it is registered in another matrix.
func (m *Matrix) RegisterPoint(p *Point) bool {
	if p == nil {
		return false
	}

	m.mu.Lock()
	if _, exists := m.points[p.ID()]; exists {
		m.mu.Unlock()
		return false
	}
	if !p.owner.CompareAndSwap(nil, m) {
		m.mu.Unlock()
		m.logger.Warn("point already registered in another matrix", "point_id", p.ID())
		return false
	}
	m.pointSeq++
	p.seq = m.pointSeq
	m.points[p.ID()] = p
	m.mu.Unlock()

	pointsRegistered.Inc()
	m.logger.Debug("point registered", "point_id", p.ID(), "name", p.Name(), "type", p.Type())
	m.emit(pointEvent(EventPointRegistered, p))
	return true
}

// UnregisterPoint removes a point and every route touching it. Emits one
// EventRouteRemoved per route, then EventPointRemoved.
// Returns false if the point is not registered.
func (m *Matrix) UnregisterPoint(id string) bool {
	m.mu.Lock()
	p, ok := m.points[id]
	if !ok {
		m.mu.Unlock()
		return false
	}

	var removed []*Route
	for _, set := range []routeSet{m.bySource[id], m.byDestination[id]} {
		for rid := range set {
			r, ok := m.routes[rid]
			if !ok {
				m.logger.Error("index references missing route", "route_id", rid, "point_id", id)
				continue
			}
			removed = append(removed, r)
		}
	}
	sort.Slice(removed, func(i, j int) bool { return removed[i].seq < removed[j].seq })
	for _, r := range removed {
		m.removeRouteLocked(r)
	}
	delete(m.points, id)
	delete(m.bySource, id)
	delete(m.byDestination, id)
	p.owner.Store(nil)
	m.mu.Unlock()

	pointsRegistered.Dec()
	routesActive.Sub(float64(len(removed)))
	m.logger.Info("point unregistered", "point_id", id, "name", p.Name(), "routes_removed", len(removed))

	events := make([]Event, 0, len(removed)+1)
	for _, r := range removed {
		events = append(events, routeEvent(EventRouteRemoved, r))
	}
	events = append(events, pointEvent(EventPointRemoved, p))
	m.emit(events...)
	return true
}

// RenamePoint changes a point's display name and emits EventPointChanged.
func (m *Matrix) RenamePoint(id, name string) error {
	p := m.Point(id)
	if p == nil {
		return fmt.Errorf("%w: %s", ErrPointNotFound, id)
	}
	if err := p.SetName(name); err != nil {
		return err
	}
	m.emit(pointEvent(EventPointChanged, p))
	return nil
}

// SetPointActive activates or deactivates a point. Routes touching an
// inactive point have zero effective gain. Emits EventPointChanged when the
// flag changes.
func (m *Matrix) SetPointActive(id string, active bool) error {
	p := m.Point(id)
	if p == nil {
		return fmt.Errorf("%w: %s", ErrPointNotFound, id)
	}
	if p.SetActive(active) {
		m.emit(pointEvent(EventPointChanged, p))
	}
	return nil
}

// Point returns the point with the given ID, or nil.
func (m *Matrix) Point(id string) *Point {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.points[id]
}

// PointByName returns the earliest-registered point whose name matches,
// ignoring case, or nil.
func (m *Matrix) PointByName(name string) *Point {
	name = strings.TrimSpace(name)

	m.mu.RLock()
	defer m.mu.RUnlock()

	var found *Point
	for _, p := range m.points {
		if !strings.EqualFold(p.Name(), name) {
			continue
		}
		if found == nil || p.seq < found.seq {
			found = p
		}
	}
	return found
}

// Points returns every registered point in registration order.
func (m *Matrix) Points() []*Point {
	return m.collectPoints(func(*Point) bool { return true })
}

// PointsByType returns the points of one type in registration order.
func (m *Matrix) PointsByType(t PointType) []*Point {
	return m.collectPoints(func(p *Point) bool { return p.Type() == t })
}

// Sources returns the points that can originate a route.
func (m *Matrix) Sources() []*Point {
	return m.collectPoints((*Point).CanBeSource)
}

// Destinations returns the points that can receive a route.
func (m *Matrix) Destinations() []*Point {
	return m.collectPoints((*Point).CanBeDestination)
}

func (m *Matrix) collectPoints(keep func(*Point) bool) []*Point {
	m.mu.RLock()
	result := make([]*Point, 0, len(m.points))
	for _, p := range m.points {
		if keep(p) {
			result = append(result, p)
		}
	}
	m.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool { return result[i].seq < result[j].seq })
	return result
}

// ─── Routes ────────────────────────────────────────────────────────────

// CreateRoute connects two registered points.
//
// Checks run in order and nothing is modified when one fails:
//   - ErrUnregisteredEndpoint: either ID is not registered
//   - ErrFeedbackLoop: source and destination are the same point
//   - ErrIncompatibleEndpoints: the types do not allow the connection
//   - ErrDuplicateRoute: a route already exists for the pair
//   - ErrFeedbackLoop: the destination already reaches the source
//
// On success the route is enabled and EventRouteCreated is emitted.
func (m *Matrix) CreateRoute(sourceID, destinationID string, gainDB float64) (*Route, error) {
	m.mu.Lock()
	route, err := m.createRouteLocked(sourceID, destinationID, gainDB)
	m.mu.Unlock()

	if err != nil {
		routesRejected.WithLabelValues(rejectionReason(err)).Inc()
		m.logger.Debug("route rejected",
			"source_id", sourceID,
			"destination_id", destinationID,
			"error", err,
		)
		return nil, err
	}

	routesActive.Inc()
	m.logger.Info("route created",
		"route_id", route.ID(),
		"source", route.Source().Name(),
		"destination", route.Destination().Name(),
		"kind", route.Kind(),
		"gain_db", route.GainDB(),
	)
	m.emit(routeEvent(EventRouteCreated, route))
	return route, nil
}

func (m *Matrix) createRouteLocked(sourceID, destinationID string, gainDB float64) (*Route, error) {
	src, ok := m.points[sourceID]
	if !ok {
		return nil, fmt.Errorf("%w: source %s", ErrUnregisteredEndpoint, sourceID)
	}
	dst, ok := m.points[destinationID]
	if !ok {
		return nil, fmt.Errorf("%w: destination %s", ErrUnregisteredEndpoint, destinationID)
	}
	if sourceID == destinationID {
		return nil, fmt.Errorf("%w: %s routes to itself", ErrFeedbackLoop, src.Name())
	}
	if !src.IsCompatibleWith(dst) {
		return nil, fmt.Errorf("%w: %s cannot feed %s", ErrIncompatibleEndpoints, src, dst)
	}
	if m.routeBetweenLocked(sourceID, destinationID) != nil {
		return nil, fmt.Errorf("%w: %s -> %s", ErrDuplicateRoute, src.Name(), dst.Name())
	}
	if res := m.detectFeedbackLocked(sourceID, destinationID); res.HasFeedback {
		return nil, fmt.Errorf("%w: %s", ErrFeedbackLoop, m.describePathLocked(res.Path))
	}

	route, err := NewRoute(src, dst, gainDB)
	if err != nil {
		return nil, err
	}
	m.routeSeq++
	route.seq = m.routeSeq
	m.insertRouteLocked(route)
	return route, nil
}

func (m *Matrix) insertRouteLocked(r *Route) {
	m.routes[r.ID()] = r

	src, dst := r.SourceID(), r.DestinationID()
	if m.bySource[src] == nil {
		m.bySource[src] = make(routeSet)
	}
	m.bySource[src][r.ID()] = struct{}{}
	if m.byDestination[dst] == nil {
		m.byDestination[dst] = make(routeSet)
	}
	m.byDestination[dst][r.ID()] = struct{}{}
}

// removeRouteLocked drops r from all three structures and releases it.
func (m *Matrix) removeRouteLocked(r *Route) {
	delete(m.routes, r.ID())
	if set := m.bySource[r.SourceID()]; set != nil {
		delete(set, r.ID())
		if len(set) == 0 {
			delete(m.bySource, r.SourceID())
		}
	}
	if set := m.byDestination[r.DestinationID()]; set != nil {
		delete(set, r.ID())
		if len(set) == 0 {
			delete(m.byDestination, r.DestinationID())
		}
	}
	r.release()
}

// RemoveRoute removes a route by ID and emits EventRouteRemoved.
// Returns false if the route does not exist.
func (m *Matrix) RemoveRoute(id string) bool {
	m.mu.Lock()
	r, ok := m.routes[id]
	if ok {
		m.removeRouteLocked(r)
	}
	m.mu.Unlock()

	if !ok {
		return false
	}
	m.routeRemoved(r)
	return true
}

// RemoveRouteBetween removes the route from sourceID to destinationID.
// Returns false if there is none.
func (m *Matrix) RemoveRouteBetween(sourceID, destinationID string) bool {
	m.mu.Lock()
	r := m.routeBetweenLocked(sourceID, destinationID)
	if r != nil {
		m.removeRouteLocked(r)
	}
	m.mu.Unlock()

	if r == nil {
		return false
	}
	m.routeRemoved(r)
	return true
}

func (m *Matrix) routeRemoved(r *Route) {
	routesActive.Dec()
	m.logger.Info("route removed",
		"route_id", r.ID(),
		"source", r.Source().Name(),
		"destination", r.Destination().Name(),
	)
	m.emit(routeEvent(EventRouteRemoved, r))
}

// SetRouteGain sets a route's gain in dB and emits EventRouteChanged.
func (m *Matrix) SetRouteGain(id string, gainDB float64) error {
	r := m.Route(id)
	if r == nil {
		return fmt.Errorf("%w: %s", ErrRouteNotFound, id)
	}
	r.SetGainDB(gainDB)
	m.emit(routeEvent(EventRouteChanged, r))
	return nil
}

// SetRouteEnabled enables or disables a route. Enabling re-runs feedback
// detection and fails with ErrFeedbackLoop if the route would close a
// cycle through routes enabled since it was disabled.
func (m *Matrix) SetRouteEnabled(id string, enabled bool) error {
	m.mu.Lock()
	r, ok := m.routes[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrRouteNotFound, id)
	}
	if enabled && !r.Enabled() {
		// r is disabled, so the walk ignores it.
		if res := m.detectFeedbackLocked(r.SourceID(), r.DestinationID()); res.HasFeedback {
			path := m.describePathLocked(res.Path)
			m.mu.Unlock()
			routesRejected.WithLabelValues("feedback").Inc()
			m.logger.Warn("route enable rejected", "route_id", id, "path", path)
			return fmt.Errorf("%w: %s", ErrFeedbackLoop, path)
		}
	}
	changed := r.setEnabled(enabled)
	m.mu.Unlock()

	if changed {
		m.logger.Debug("route enabled changed", "route_id", id, "enabled", enabled)
		m.emit(routeEvent(EventRouteChanged, r))
	}
	return nil
}

// SetRouteLatency sets a route's latency compensation in frames and emits
// EventRouteChanged.
func (m *Matrix) SetRouteLatency(id string, frames int) error {
	r := m.Route(id)
	if r == nil {
		return fmt.Errorf("%w: %s", ErrRouteNotFound, id)
	}
	r.SetLatencySamples(frames)
	m.emit(routeEvent(EventRouteChanged, r))
	return nil
}

// Route returns the route with the given ID, or nil.
func (m *Matrix) Route(id string) *Route {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.routes[id]
}

// RouteBetween returns the route from sourceID to destinationID, or nil.
func (m *Matrix) RouteBetween(sourceID, destinationID string) *Route {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.routeBetweenLocked(sourceID, destinationID)
}

func (m *Matrix) routeBetweenLocked(sourceID, destinationID string) *Route {
	for rid := range m.bySource[sourceID] {
		if r := m.routes[rid]; r != nil && r.DestinationID() == destinationID {
			return r
		}
	}
	return nil
}

// Routes returns every route in creation order.
func (m *Matrix) Routes() []*Route {
	m.mu.RLock()
	result := make([]*Route, 0, len(m.routes))
	for _, r := range m.routes {
		result = append(result, r)
	}
	m.mu.RUnlock()
	return sortRoutes(result)
}

// RoutesFrom returns the routes leaving a point in creation order.
func (m *Matrix) RoutesFrom(pointID string) []*Route {
	m.mu.RLock()
	result := m.collectRoutesLocked(m.bySource[pointID])
	m.mu.RUnlock()
	return sortRoutes(result)
}

// RoutesTo returns the routes entering a point in creation order.
func (m *Matrix) RoutesTo(pointID string) []*Route {
	m.mu.RLock()
	result := m.collectRoutesLocked(m.byDestination[pointID])
	m.mu.RUnlock()
	return sortRoutes(result)
}

// RoutesByKind returns the routes of one kind in creation order.
func (m *Matrix) RoutesByKind(kind RouteKind) []*Route {
	m.mu.RLock()
	var result []*Route
	for _, r := range m.routes {
		if r.Kind() == kind {
			result = append(result, r)
		}
	}
	m.mu.RUnlock()
	return sortRoutes(result)
}

func (m *Matrix) collectRoutesLocked(set routeSet) []*Route {
	result := make([]*Route, 0, len(set))
	for rid := range set {
		if r, ok := m.routes[rid]; ok {
			result = append(result, r)
		}
	}
	return result
}

func sortRoutes(routes []*Route) []*Route {
	sort.Slice(routes, func(i, j int) bool { return routes[i].seq < routes[j].seq })
	return routes
}

// ─── Lifecycle ─────────────────────────────────────────────────────────

// Stats summarises the matrix contents.
type Stats struct {
	Points        int               `json:"points"`
	Routes        int               `json:"routes"`
	EnabledRoutes int               `json:"enabled_routes"`
	ByPointType   map[PointType]int `json:"by_point_type"`
	ByRouteKind   map[RouteKind]int `json:"by_route_kind"`
}

// GetStats returns point and route counts.
func (m *Matrix) GetStats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := Stats{
		Points:      len(m.points),
		Routes:      len(m.routes),
		ByPointType: make(map[PointType]int),
		ByRouteKind: make(map[RouteKind]int),
	}
	for _, p := range m.points {
		stats.ByPointType[p.Type()]++
	}
	for _, r := range m.routes {
		stats.ByRouteKind[r.Kind()]++
		if r.Enabled() {
			stats.EnabledRoutes++
		}
	}
	return stats
}

// Clear removes every point and route and releases all delay lines.
// The audio thread must have stopped using the matrix's routes.
func (m *Matrix) Clear() {
	m.mu.Lock()
	points, routes := len(m.points), len(m.routes)
	for _, r := range m.routes {
		r.release()
	}
	for _, p := range m.points {
		p.owner.Store(nil)
	}
	m.points = make(map[string]*Point)
	m.routes = make(map[string]*Route)
	m.bySource = make(map[string]routeSet)
	m.byDestination = make(map[string]routeSet)
	m.mu.Unlock()

	pointsRegistered.Sub(float64(points))
	routesActive.Sub(float64(routes))
	m.logger.Info("matrix cleared", "points", points, "routes", routes)
	m.emit(Event{Type: EventMatrixCleared, Timestamp: time.Now().UTC()})
}

// Close clears the matrix and drops all event handlers.
// The audio thread must have stopped using the matrix's routes.
func (m *Matrix) Close() {
	m.Clear()
	m.handlersMu.Lock()
	m.handlers = make(map[uint64]EventHandler)
	m.handlersMu.Unlock()
}
