package sidechain

import (
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/mixroute-core/internal/audio"
)

// Gain limits for sidechain routes (linear).
const (
	MinGain = 0.1
	MaxGain = 10.0
)

// ClampGain limits g to [MinGain, MaxGain]. NaN maps to unity.
func ClampGain(g float64) float64 {
	if math.IsNaN(g) {
		return 1
	}
	return min(max(g, MinGain), MaxGain)
}

// Effect is anything that can receive a sidechain signal.
type Effect interface {
	ID() string
}

// Route maps a source to a target effect's key input.
type Route struct {
	id         string
	sourceName string
	targetName string
	createdAt  time.Time

	mu      sync.RWMutex
	source  audio.Source
	wrapped *audio.GainSource // Gain adapter over source, reused across reads
	target  Effect
	gain    float64
	active  bool
}

func newRoute(sourceName, targetName string) *Route {
	return &Route{
		id:         uuid.New().String(),
		sourceName: sourceName,
		targetName: targetName,
		createdAt:  time.Now().UTC(),
		gain:       1,
		active:     true,
	}
}

// ID returns the route's unique identifier.
func (r *Route) ID() string { return r.id }

// SourceName returns the free-text source name.
func (r *Route) SourceName() string { return r.sourceName }

// TargetName returns the free-text target effect name.
func (r *Route) TargetName() string { return r.targetName }

// Source returns the live source, or nil.
func (r *Route) Source() audio.Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.source
}

// Target returns the target effect, or nil.
func (r *Route) Target() Effect {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.target
}

// Gain returns the linear gain.
func (r *Route) Gain() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gain
}

// Active reports whether the route delivers a signal.
func (r *Route) Active() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

func (r *Route) setSource(src audio.Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.source = src
	r.wrapped = nil
	if src != nil {
		r.wrapped = audio.NewGainSource(src, r.gain)
	}
}

func (r *Route) setTarget(e Effect) Effect {
	r.mu.Lock()
	defer r.mu.Unlock()
	old := r.target
	r.target = e
	return old
}

func (r *Route) setGain(g float64) float64 {
	g = ClampGain(g)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gain = g
	if r.wrapped != nil {
		r.wrapped.SetGain(g)
	}
	return g
}

func (r *Route) setActive(active bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == active {
		return false
	}
	r.active = active
	return true
}

// signal returns what the target should read: nothing when inactive or
// unsourced, the gain adapter when gain is not unity, else the raw source.
func (r *Route) signal() audio.Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.active || r.source == nil {
		return nil
	}
	if !audio.IsUnity(r.gain) {
		return r.wrapped
	}
	return r.source
}

// RouteInfo is a serialisable snapshot of a sidechain route.
type RouteInfo struct {
	ID         string    `json:"id"`
	SourceName string    `json:"source_name"`
	TargetName string    `json:"target_name"`
	TargetID   string    `json:"target_id,omitempty"`
	HasSource  bool      `json:"has_source"`
	Gain       float64   `json:"gain"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}

// Info returns a snapshot of the route.
func (r *Route) Info() RouteInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info := RouteInfo{
		ID:         r.id,
		SourceName: r.sourceName,
		TargetName: r.targetName,
		HasSource:  r.source != nil,
		Gain:       r.gain,
		Active:     r.active,
		CreatedAt:  r.createdAt,
	}
	if r.target != nil {
		info.TargetID = r.target.ID()
	}
	return info
}
