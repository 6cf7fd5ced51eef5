package routing

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

// PointType classifies a routing endpoint.
type PointType string

// Point types.
const (
	PointInput     PointType = "input"
	PointOutput    PointType = "output"
	PointSend      PointType = "send"
	PointReturn    PointType = "return"
	PointSidechain PointType = "sidechain"
	PointGroup     PointType = "group"
	PointMaster    PointType = "master"
)

// AllPointTypes lists every point type in display order.
var AllPointTypes = []PointType{
	PointInput, PointOutput, PointSend, PointReturn,
	PointSidechain, PointGroup, PointMaster,
}

// Valid reports whether t is a known point type.
func (t PointType) Valid() bool {
	switch t {
	case PointInput, PointOutput, PointSend, PointReturn,
		PointSidechain, PointGroup, PointMaster:
		return true
	}
	return false
}

// CanBeSource reports whether points of this type may originate a route.
func (t PointType) CanBeSource() bool {
	switch t {
	case PointOutput, PointSend, PointGroup, PointMaster:
		return true
	}
	return false
}

// CanBeDestination reports whether points of this type may receive a route.
func (t PointType) CanBeDestination() bool {
	switch t {
	case PointInput, PointReturn, PointSidechain, PointGroup, PointMaster:
		return true
	}
	return false
}

// ParsePointType parses a point type name, ignoring case and surrounding
// whitespace.
func ParsePointType(s string) (PointType, error) {
	t := PointType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown type %q", ErrInvalidPoint, s)
	}
	return t, nil
}

// Point is a named endpoint in the routing graph.
//
// ID, type and channel count are fixed at construction. The name and the
// optional track/effect tags may change; the active flag is atomic so the
// audio thread can read it without locking.
//
// A Point holds no reference to the routes that touch it.
type Point struct {
	id       string
	typ      PointType
	channels int

	mu       sync.RWMutex // Protects name, trackID, effectID
	name     string
	trackID  string
	effectID string

	active atomic.Bool
	owner  atomic.Pointer[Matrix] // Matrix the point is registered in, if any
	seq    uint64                 // Registration order, written under owner's lock
}

// NewPoint creates an active point.
//
// Parameters:
//   - name: display name, must be non-empty after trimming
//   - typ: one of the PointType constants
//   - channels: channel count, at least 1
//
// Returns ErrInvalidPoint (wrapped) when any parameter is invalid.
func NewPoint(name string, typ PointType, channels int) (*Point, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidPoint)
	}
	if !typ.Valid() {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidPoint, typ)
	}
	if channels < 1 {
		return nil, fmt.Errorf("%w: channels must be at least 1, got %d", ErrInvalidPoint, channels)
	}

	p := &Point{
		id:       GenerateID(),
		typ:      typ,
		channels: channels,
		name:     name,
	}
	p.active.Store(true)
	return p, nil
}

// ID returns the point's unique identifier.
func (p *Point) ID() string { return p.id }

// Type returns the point type.
func (p *Point) Type() PointType { return p.typ }

// Channels returns the channel count.
func (p *Point) Channels() int { return p.channels }

// Name returns the current display name.
func (p *Point) Name() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.name
}

// SetName renames the point. Empty names are rejected with ErrInvalidPoint.
func (p *Point) SetName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidPoint)
	}
	p.mu.Lock()
	p.name = name
	p.mu.Unlock()
	return nil
}

// Active reports whether the point passes signal. Lock-free.
func (p *Point) Active() bool { return p.active.Load() }

// SetActive sets the active flag and reports whether it changed.
func (p *Point) SetActive(active bool) bool {
	return p.active.Swap(active) != active
}

// TrackID returns the associated track tag, if any.
func (p *Point) TrackID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.trackID
}

// SetTrackID tags the point with the track it belongs to.
func (p *Point) SetTrackID(id string) {
	p.mu.Lock()
	p.trackID = id
	p.mu.Unlock()
}

// EffectID returns the associated effect tag, if any.
func (p *Point) EffectID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.effectID
}

// SetEffectID tags the point with the effect it feeds or taps.
func (p *Point) SetEffectID(id string) {
	p.mu.Lock()
	p.effectID = id
	p.mu.Unlock()
}

// CanBeSource reports whether the point may originate a route.
func (p *Point) CanBeSource() bool { return p.typ.CanBeSource() }

// CanBeDestination reports whether the point may receive a route.
func (p *Point) CanBeDestination() bool { return p.typ.CanBeDestination() }

// IsCompatibleWith reports whether a route from p to dst is allowed by
// endpoint types. A point is never compatible with itself.
func (p *Point) IsCompatibleWith(dst *Point) bool {
	if p == nil || dst == nil || p == dst || p.id == dst.id {
		return false
	}
	return p.CanBeSource() && dst.CanBeDestination()
}

// PointInfo is a serialisable snapshot of a point.
type PointInfo struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Type             PointType `json:"type"`
	Channels         int       `json:"channels"`
	Active           bool      `json:"active"`
	TrackID          string    `json:"track_id,omitempty"`
	EffectID         string    `json:"effect_id,omitempty"`
	CanBeSource      bool      `json:"can_be_source"`
	CanBeDestination bool      `json:"can_be_destination"`
}

// Info returns a snapshot of the point's current state.
func (p *Point) Info() PointInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return PointInfo{
		ID:               p.id,
		Name:             p.name,
		Type:             p.typ,
		Channels:         p.channels,
		Active:           p.active.Load(),
		TrackID:          p.trackID,
		EffectID:         p.effectID,
		CanBeSource:      p.typ.CanBeSource(),
		CanBeDestination: p.typ.CanBeDestination(),
	}
}

// String returns "name (type)".
func (p *Point) String() string {
	return fmt.Sprintf("%s (%s)", p.Name(), p.typ)
}
