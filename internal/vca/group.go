package vca

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// MaxGroupDepth bounds the length of a group's parent chain.
const MaxGroupDepth = 32

// Group scales and mutes a set of faders.
type Group struct {
	id      string
	name    string
	manager *Manager

	volume atomicFloat
	muted  atomic.Bool
	parent atomic.Pointer[Group]

	mu      sync.Mutex // Protects members
	members map[string]*Fader
}

// NewGroup creates an unmanaged group at unity volume.
func NewGroup(name string) (*Group, error) {
	return newGroup(name, nil)
}

func newGroup(name string, m *Manager) (*Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	g := &Group{
		id:      uuid.New().String(),
		name:    name,
		manager: m,
		members: make(map[string]*Fader),
	}
	g.volume.Store(1)
	return g, nil
}

// ID returns the group's unique identifier.
func (g *Group) ID() string { return g.id }

// Name returns the group's display name.
func (g *Group) Name() string { return g.name }

// Volume returns the group's own volume.
func (g *Group) Volume() float64 { return g.volume.Load() }

// SetVolume clamps and applies the group volume and returns the stored
// value.
func (g *Group) SetVolume(v float64) float64 {
	v = ClampVolume(v)
	if g.manager != nil {
		g.manager.setGroupVolume(g, v)
		return v
	}
	g.volume.Store(v)
	return v
}

// Muted reports whether the group is muted.
func (g *Group) Muted() bool { return g.muted.Load() }

// SetMute mutes or unmutes the group.
func (g *Group) SetMute(muted bool) {
	if g.manager != nil {
		g.manager.setGroupMute(g, muted)
		return
	}
	g.muted.Store(muted)
}

// Parent returns the enclosing group, or nil.
func (g *Group) Parent() *Group { return g.parent.Load() }

// Level returns the multiplier the group applies to its members: its own
// volume times every ancestor's, or 0 if any of them is muted. Lock-free.
func (g *Group) Level() float64 {
	level := 1.0
	cur := g
	for depth := 0; cur != nil && depth < MaxGroupDepth; depth++ {
		if cur.muted.Load() {
			return 0
		}
		level *= cur.volume.Load()
		cur = cur.parent.Load()
	}
	return level
}

// AddMember makes f follow the group. Adding a current member is a no-op.
// Returns ErrAlreadyGrouped if f follows another group and ErrNilFader if
// f is nil.
func (g *Group) AddMember(f *Fader) error {
	if f == nil {
		return ErrNilFader
	}
	if g.manager != nil {
		return g.manager.addMember(f, g)
	}
	return g.addMember(f)
}

func (g *Group) addMember(f *Fader) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !f.group.CompareAndSwap(nil, g) && f.group.Load() != g {
		return ErrAlreadyGrouped
	}
	g.members[f.id] = f
	return nil
}

// RemoveMember stops f following the group. Returns false if f was not a
// member.
func (g *Group) RemoveMember(f *Fader) bool {
	if f == nil {
		return false
	}
	if g.manager != nil {
		return g.manager.unlinkFrom(f, g)
	}
	return g.removeMember(f)
}

func (g *Group) removeMember(f *Fader) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !f.group.CompareAndSwap(g, nil) {
		return false
	}
	delete(g.members, f.id)
	return true
}

// moveMember transfers f from one group to another in a single step. It
// fails, changing nothing, if f no longer follows from. Callers hold the
// manager's write lock, which orders the two group locks.
func moveMember(f *Fader, from, to *Group) bool {
	from.mu.Lock()
	defer from.mu.Unlock()
	to.mu.Lock()
	defer to.mu.Unlock()

	if !f.group.CompareAndSwap(from, to) {
		return false
	}
	delete(from.members, f.id)
	to.members[f.id] = f
	return true
}

// HasMember reports whether f follows the group.
func (g *Group) HasMember(f *Fader) bool {
	if f == nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.members[f.id]
	return ok
}

// Members returns the member faders sorted by name.
func (g *Group) Members() []*Fader {
	g.mu.Lock()
	members := make([]*Fader, 0, len(g.members))
	for _, f := range g.members {
		members = append(members, f)
	}
	g.mu.Unlock()

	sort.Slice(members, func(i, j int) bool { return members[i].name < members[j].name })
	return members
}

// GroupInfo is a serialisable snapshot of a group.
type GroupInfo struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Volume    float64  `json:"volume"`
	Muted     bool     `json:"muted"`
	Level     float64  `json:"level"`
	ParentID  string   `json:"parent_id,omitempty"`
	MemberIDs []string `json:"member_ids"`
}

// Info returns a snapshot of the group.
func (g *Group) Info() GroupInfo {
	members := g.Members()
	info := GroupInfo{
		ID:        g.id,
		Name:      g.name,
		Volume:    g.Volume(),
		Muted:     g.Muted(),
		Level:     g.Level(),
		MemberIDs: make([]string, len(members)),
	}
	for i, f := range members {
		info.MemberIDs[i] = f.id
	}
	if p := g.Parent(); p != nil {
		info.ParentID = p.id
	}
	return info
}
