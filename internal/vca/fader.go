package vca

import (
	"math"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// Volume limits for faders and groups. 1.0 is unity.
const (
	MinVolume = 0.0
	MaxVolume = 2.0
)

// ChangeEpsilon is the smallest effective-volume movement that produces an
// event.
const ChangeEpsilon = 1e-6

// ClampVolume limits v to [MinVolume, MaxVolume]. NaN maps to MinVolume.
func ClampVolume(v float64) float64 {
	if math.IsNaN(v) || v < MinVolume {
		return MinVolume
	}
	if v > MaxVolume {
		return MaxVolume
	}
	return v
}

// atomicFloat is a float64 readable without locks.
type atomicFloat struct {
	bits atomic.Uint64
}

func (f *atomicFloat) Load() float64   { return math.Float64frombits(f.bits.Load()) }
func (f *atomicFloat) Store(v float64) { f.bits.Store(math.Float64bits(v)) }

// Swap stores v and returns the previous value.
func (f *atomicFloat) Swap(v float64) float64 {
	return math.Float64frombits(f.bits.Swap(math.Float64bits(v)))
}

// Fader is a channel volume control that may follow one Group.
type Fader struct {
	id      string
	name    string
	manager *Manager

	volume        atomicFloat
	group         atomic.Pointer[Group]
	lastEffective atomicFloat
}

// NewFader creates an unmanaged fader. Unmanaged faders work with
// Group.AddMember but are rejected by Manager operations.
func NewFader(name string, volume float64) (*Fader, error) {
	return newFader(name, volume, nil)
}

func newFader(name string, volume float64, m *Manager) (*Fader, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	f := &Fader{
		id:      uuid.New().String(),
		name:    name,
		manager: m,
	}
	v := ClampVolume(volume)
	f.volume.Store(v)
	f.lastEffective.Store(v)
	return f, nil
}

// ID returns the fader's unique identifier.
func (f *Fader) ID() string { return f.id }

// Name returns the fader's display name.
func (f *Fader) Name() string { return f.name }

// Volume returns the local volume.
func (f *Fader) Volume() float64 { return f.volume.Load() }

// SetVolume clamps and applies a local volume and returns the stored
// value. For managed faders an effective-volume event fires if the
// effective level moved.
func (f *Fader) SetVolume(v float64) float64 {
	v = ClampVolume(v)
	if f.manager != nil {
		f.manager.setFaderVolume(f, v)
		return v
	}
	f.volume.Store(v)
	return v
}

// Group returns the group the fader follows, or nil.
func (f *Fader) Group() *Group { return f.group.Load() }

// EffectiveVolume returns local volume × group level. Lock-free.
func (f *Fader) EffectiveVolume() float64 {
	v := f.volume.Load()
	if g := f.group.Load(); g != nil {
		v *= g.Level()
	}
	return v
}

// refresh recomputes the effective volume and reports whether it moved by
// more than ChangeEpsilon since the last reported value. Callers hold the
// manager's write lock.
func (f *Fader) refresh() (float64, bool) {
	eff := f.EffectiveVolume()
	if math.Abs(eff-f.lastEffective.Load()) <= ChangeEpsilon {
		return eff, false
	}
	f.lastEffective.Store(eff)
	return eff, true
}

// FaderInfo is a serialisable snapshot of a fader.
type FaderInfo struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Volume          float64 `json:"volume"`
	EffectiveVolume float64 `json:"effective_volume"`
	GroupID         string  `json:"group_id,omitempty"`
}

// Info returns a snapshot of the fader.
func (f *Fader) Info() FaderInfo {
	info := FaderInfo{
		ID:              f.id,
		Name:            f.name,
		Volume:          f.Volume(),
		EffectiveVolume: f.EffectiveVolume(),
	}
	if g := f.Group(); g != nil {
		info.GroupID = g.ID()
	}
	return info
}
