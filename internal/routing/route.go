package routing

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/nerrad567/mixroute-core/internal/audio"
)

// Gain limits in decibels. At MinGainDB the linear gain is exactly zero.
const (
	MinGainDB = -96.0
	MaxGainDB = 24.0
)

// RouteKind classifies a route by what it feeds.
type RouteKind string

// Route kinds, derived from the destination point type.
const (
	RouteAudio      RouteKind = "audio"
	RouteSendReturn RouteKind = "send_return"
	RouteGroup      RouteKind = "group"
	RouteSidechain  RouteKind = "sidechain"
)

func kindFor(dst PointType) RouteKind {
	switch dst {
	case PointSidechain:
		return RouteSidechain
	case PointReturn:
		return RouteSendReturn
	case PointGroup:
		return RouteGroup
	default:
		return RouteAudio
	}
}

// ClampGainDB limits db to [MinGainDB, MaxGainDB]. NaN maps to MinGainDB.
func ClampGainDB(db float64) float64 {
	if math.IsNaN(db) || db < MinGainDB {
		return MinGainDB
	}
	if db > MaxGainDB {
		return MaxGainDB
	}
	return db
}

// DBToLinear converts decibels to linear amplitude. Values at or below
// MinGainDB return 0.
func DBToLinear(db float64) float64 {
	if db <= MinGainDB {
		return 0
	}
	return math.Pow(10, db/20)
}

// Route is a directed, gain-bearing connection between two points.
//
// Source, destination and kind never change. Gain, enabled state, latency
// and the pre-fader/pre-insert flags are guarded by one lock so dB and
// linear gain are always read as a consistent pair.
//
// Once removed from its matrix a route is released: it keeps answering
// queries but processes silence.
type Route struct {
	id          string
	source      *Point
	destination *Point
	kind        RouteKind
	createdAt   time.Time
	seq         uint64 // Creation order within the owning matrix

	mu         sync.RWMutex
	gainDB     float64
	gainLinear float64
	enabled    bool
	latency    int
	preFader   bool
	preInsert  bool
	delay      *delayLine
	released   bool
}

// NewRoute creates an enabled route between two points.
//
// Returns ErrInvalidSelfRoute if src and dst are the same point and
// ErrIncompatibleEndpoints if either is nil or the types do not allow the
// connection. Registration in a matrix is checked by Matrix.CreateRoute.
func NewRoute(src, dst *Point, gainDB float64) (*Route, error) {
	if src == nil || dst == nil {
		return nil, fmt.Errorf("%w: missing endpoint", ErrIncompatibleEndpoints)
	}
	if src == dst || src.ID() == dst.ID() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSelfRoute, src.Name())
	}
	if !src.IsCompatibleWith(dst) {
		return nil, fmt.Errorf("%w: %s cannot feed %s", ErrIncompatibleEndpoints, src, dst)
	}

	db := ClampGainDB(gainDB)
	return &Route{
		id:          GenerateID(),
		source:      src,
		destination: dst,
		kind:        kindFor(dst.Type()),
		createdAt:   time.Now().UTC(),
		gainDB:      db,
		gainLinear:  DBToLinear(db),
		enabled:     true,
	}, nil
}

// ID returns the route's unique identifier.
func (r *Route) ID() string { return r.id }

// Source returns the source point.
func (r *Route) Source() *Point { return r.source }

// Destination returns the destination point.
func (r *Route) Destination() *Point { return r.destination }

// SourceID returns the source point ID.
func (r *Route) SourceID() string { return r.source.ID() }

// DestinationID returns the destination point ID.
func (r *Route) DestinationID() string { return r.destination.ID() }

// Kind returns the route kind.
func (r *Route) Kind() RouteKind { return r.kind }

// CreatedAt returns when the route was constructed.
func (r *Route) CreatedAt() time.Time { return r.createdAt }

// GainDB returns the gain in decibels.
func (r *Route) GainDB() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gainDB
}

// GainLinear returns the linear gain.
func (r *Route) GainLinear() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gainLinear
}

// Gain returns dB and linear gain as a consistent pair.
func (r *Route) Gain() (db, linear float64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gainDB, r.gainLinear
}

// SetGainDB clamps and applies a new gain and returns the stored value.
func (r *Route) SetGainDB(db float64) float64 {
	db = ClampGainDB(db)
	r.mu.Lock()
	r.gainDB = db
	r.gainLinear = DBToLinear(db)
	r.mu.Unlock()
	return db
}

// Enabled reports whether the route passes signal.
func (r *Route) Enabled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabled
}

// setEnabled is unexported: enabling a route can close a cycle, so the
// matrix must check it first (see Matrix.SetRouteEnabled).
func (r *Route) setEnabled(enabled bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.enabled == enabled {
		return false
	}
	r.enabled = enabled
	return true
}

// LatencySamples returns the latency compensation in frames.
func (r *Route) LatencySamples() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latency
}

// SetLatencySamples sets the latency compensation in frames. Negative
// values clamp to 0. The previous delay line is discarded and a new one
// sized frames × source channels is allocated. Returns the stored value.
func (r *Route) SetLatencySamples(frames int) int {
	frames = max(frames, 0)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return r.latency
	}
	if frames == r.latency {
		return frames
	}
	if r.delay != nil {
		r.delay.release()
	}
	r.latency = frames
	r.delay = newDelayLine(frames, r.source.Channels())
	return frames
}

// PreFader reports whether the route taps before the source fader.
func (r *Route) PreFader() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.preFader
}

// SetPreFader sets the pre-fader flag.
func (r *Route) SetPreFader(v bool) {
	r.mu.Lock()
	r.preFader = v
	r.mu.Unlock()
}

// PreInsert reports whether the route taps before the source inserts.
func (r *Route) PreInsert() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.preInsert
}

// SetPreInsert sets the pre-insert flag.
func (r *Route) SetPreInsert(v bool) {
	r.mu.Lock()
	r.preInsert = v
	r.mu.Unlock()
}

// Released reports whether the route has been removed from its matrix.
func (r *Route) Released() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.released
}

// EffectiveGain returns the linear gain to apply right now: 0 when the
// route is disabled, released, or either endpoint is inactive.
func (r *Route) EffectiveGain() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.effectiveGainLocked()
}

func (r *Route) effectiveGainLocked() float64 {
	if !r.enabled || r.released {
		return 0
	}
	if !r.source.Active() || !r.destination.Active() {
		return 0
	}
	return r.gainLinear
}

// Process writes in, delayed and scaled by the effective gain, to out.
// Samples past len(in) are zeroed. Called from the audio thread only.
func (r *Route) Process(in, out []float32) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := min(len(in), len(out))
	g := r.effectiveGainLocked()
	if g <= 0 {
		if r.delay != nil && !r.released {
			r.delay.advance(in[:n])
		}
		audio.Silence(out)
		return
	}

	if r.delay != nil {
		r.delay.process(in[:n], out[:n])
	} else {
		copy(out[:n], in[:n])
	}
	if !audio.IsUnity(g) {
		audio.Scale(out[:n], float32(g))
	}
	audio.Silence(out[n:])
}

// MixInto adds in, delayed and scaled by the effective gain, onto out.
// Called from the audio thread only.
func (r *Route) MixInto(in, out []float32) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := min(len(in), len(out))
	g := r.effectiveGainLocked()
	if g <= 0 {
		if r.delay != nil && !r.released {
			r.delay.advance(in[:n])
		}
		return
	}

	src := in[:n]
	if r.delay != nil {
		tmp := r.delay.scratchBuf(n)
		r.delay.process(src, tmp)
		src = tmp
	}
	if audio.IsUnity(g) {
		for i, x := range src {
			out[i] += x
		}
		return
	}
	gain := float32(g)
	for i, x := range src {
		out[i] += x * gain
	}
}

// release frees the delay line and marks the route terminal.
func (r *Route) release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return
	}
	if r.delay != nil {
		r.delay.release()
		r.delay = nil
	}
	r.released = true
}

// RouteInfo is a serialisable snapshot of a route.
type RouteInfo struct {
	ID              string    `json:"id"`
	SourceID        string    `json:"source_id"`
	SourceName      string    `json:"source_name"`
	DestinationID   string    `json:"destination_id"`
	DestinationName string    `json:"destination_name"`
	Kind            RouteKind `json:"kind"`
	GainDB          float64   `json:"gain_db"`
	GainLinear      float64   `json:"gain_linear"`
	Enabled         bool      `json:"enabled"`
	LatencySamples  int       `json:"latency_samples"`
	PreFader        bool      `json:"pre_fader"`
	PreInsert       bool      `json:"pre_insert"`
	CreatedAt       time.Time `json:"created_at"`
}

// Info returns a snapshot of the route's current state.
func (r *Route) Info() RouteInfo {
	srcName, dstName := r.source.Name(), r.destination.Name()

	r.mu.RLock()
	defer r.mu.RUnlock()
	return RouteInfo{
		ID:              r.id,
		SourceID:        r.source.ID(),
		SourceName:      srcName,
		DestinationID:   r.destination.ID(),
		DestinationName: dstName,
		Kind:            r.kind,
		GainDB:          r.gainDB,
		GainLinear:      r.gainLinear,
		Enabled:         r.enabled,
		LatencySamples:  r.latency,
		PreFader:        r.preFader,
		PreInsert:       r.preInsert,
		CreatedAt:       r.createdAt,
	}
}

// String returns "source -> destination".
func (r *Route) String() string {
	return r.source.Name() + " -> " + r.destination.Name()
}
