package vca

import (
	"fmt"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Logger defines the logging interface used by the Manager.
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

var (
	fadersGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mixroute",
		Subsystem: "vca",
		Name:      "faders",
		Help:      "Number of managed faders",
	})

	groupsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mixroute",
		Subsystem: "vca",
		Name:      "groups",
		Help:      "Number of managed VCA groups",
	})

	effectiveChanges = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mixroute",
		Subsystem: "vca",
		Name:      "effective_volume_changes_total",
		Help:      "Effective fader volume changes reported to handlers",
	})
)

// Manager creates faders and groups and keeps their links consistent.
//
// All public methods are thread-safe.
type Manager struct {
	mu     sync.RWMutex
	faders map[string]*Fader
	groups map[string]*Group

	handlersMu  sync.RWMutex
	handlers    map[uint64]EventHandler
	nextHandler uint64

	queueMu  sync.Mutex // Protects pending and draining
	pending  []Event
	draining bool

	logger Logger
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{
		faders:   make(map[string]*Fader),
		groups:   make(map[string]*Group),
		handlers: make(map[uint64]EventHandler),
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// CreateFader creates a managed fader with the given local volume.
func (m *Manager) CreateFader(name string, volume float64) (*Fader, error) {
	f, err := newFader(name, volume, m)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.faders[f.id] = f
	m.queueLocked(Event{Type: EventFaderCreated, FaderID: f.id, Value: f.Volume()})
	m.mu.Unlock()

	fadersGauge.Inc()
	m.logger.Debug("fader created", "fader_id", f.id, "name", f.name)
	m.flush()
	return f, nil
}

// CreateGroup creates a managed group at unity volume.
func (m *Manager) CreateGroup(name string) (*Group, error) {
	g, err := newGroup(name, m)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.groups[g.id] = g
	m.queueLocked(Event{Type: EventGroupCreated, GroupID: g.id, Value: g.Volume()})
	m.mu.Unlock()

	groupsGauge.Inc()
	m.logger.Debug("group created", "group_id", g.id, "name", g.name)
	m.flush()
	return g, nil
}

// Fader returns the managed fader with the given ID, or nil.
func (m *Manager) Fader(id string) *Fader {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.faders[id]
}

// Group returns the managed group with the given ID, or nil.
func (m *Manager) Group(id string) *Group {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.groups[id]
}

// Faders returns every managed fader sorted by name.
func (m *Manager) Faders() []*Fader {
	m.mu.RLock()
	faders := m.sortedFadersLocked()
	m.mu.RUnlock()
	return faders
}

// Groups returns every managed group sorted by name.
func (m *Manager) Groups() []*Group {
	m.mu.RLock()
	groups := make([]*Group, 0, len(m.groups))
	for _, g := range m.groups {
		groups = append(groups, g)
	}
	m.mu.RUnlock()

	sort.Slice(groups, func(i, j int) bool { return groups[i].name < groups[j].name })
	return groups
}

func (m *Manager) sortedFadersLocked() []*Fader {
	faders := make([]*Fader, 0, len(m.faders))
	for _, f := range m.faders {
		faders = append(faders, f)
	}
	sort.Slice(faders, func(i, j int) bool {
		if faders[i].name != faders[j].name {
			return faders[i].name < faders[j].name
		}
		return faders[i].id < faders[j].id
	})
	return faders
}

func (m *Manager) managesFaderLocked(f *Fader) bool {
	return f != nil && m.faders[f.id] == f
}

func (m *Manager) managesGroupLocked(g *Group) bool {
	return g != nil && m.groups[g.id] == g
}

// LinkFaderToGroup makes f follow g, moving it out of its current group
// if necessary. Linking to the current group is a no-op. Emits
// EventFaderUnlinked for the old group, then EventFaderLinked.
func (m *Manager) LinkFaderToGroup(f *Fader, g *Group) error {
	m.mu.Lock()
	if !m.managesFaderLocked(f) || !m.managesGroupLocked(g) {
		m.mu.Unlock()
		return ErrNotManaged
	}
	if f.Group() == g {
		m.mu.Unlock()
		return nil
	}

	var events []Event
	if old := f.Group(); old != nil {
		if !moveMember(f, old, g) {
			m.mu.Unlock()
			return ErrAlreadyGrouped
		}
		events = append(events, Event{Type: EventFaderUnlinked, FaderID: f.id, GroupID: old.id})
	} else if err := g.addMember(f); err != nil {
		m.mu.Unlock()
		return err
	}
	events = append(events, Event{Type: EventFaderLinked, FaderID: f.id, GroupID: g.id})
	m.queueLocked(m.appendRefresh(events, f)...)
	m.mu.Unlock()

	m.logger.Info("fader linked", "fader", f.name, "group", g.name)
	m.flush()
	return nil
}

// addMember backs Group.AddMember for managed groups: it refuses faders
// that follow another group.
func (m *Manager) addMember(f *Fader, g *Group) error {
	m.mu.Lock()
	if !m.managesFaderLocked(f) || !m.managesGroupLocked(g) {
		m.mu.Unlock()
		return ErrNotManaged
	}
	if f.Group() == g {
		m.mu.Unlock()
		return nil
	}
	if err := g.addMember(f); err != nil {
		m.mu.Unlock()
		return err
	}
	m.queueLocked(m.appendRefresh([]Event{{Type: EventFaderLinked, FaderID: f.id, GroupID: g.id}}, f)...)
	m.mu.Unlock()

	m.flush()
	return nil
}

// UnlinkFader removes f from its group. A fader with no group is left
// alone.
func (m *Manager) UnlinkFader(f *Fader) error {
	m.mu.Lock()
	if !m.managesFaderLocked(f) {
		m.mu.Unlock()
		return ErrNotManaged
	}
	g := f.Group()
	if g == nil || !g.removeMember(f) {
		m.mu.Unlock()
		return nil
	}
	m.queueLocked(m.appendRefresh([]Event{{Type: EventFaderUnlinked, FaderID: f.id, GroupID: g.id}}, f)...)
	m.mu.Unlock()

	m.logger.Info("fader unlinked", "fader", f.name, "group", g.name)
	m.flush()
	return nil
}

// unlinkFrom backs Group.RemoveMember for managed groups.
func (m *Manager) unlinkFrom(f *Fader, g *Group) bool {
	m.mu.Lock()
	if !g.removeMember(f) {
		m.mu.Unlock()
		return false
	}
	m.queueLocked(m.appendRefresh([]Event{{Type: EventFaderUnlinked, FaderID: f.id, GroupID: g.id}}, f)...)
	m.mu.Unlock()

	m.flush()
	return true
}

// SetGroupParent nests child inside parent; a nil parent detaches child.
// Returns ErrCircularGroup if parent is child or one of its descendants,
// and ErrGroupTooDeep if the resulting chain would exceed MaxGroupDepth.
func (m *Manager) SetGroupParent(child, parent *Group) error {
	m.mu.Lock()
	if !m.managesGroupLocked(child) || (parent != nil && !m.managesGroupLocked(parent)) {
		m.mu.Unlock()
		return ErrNotManaged
	}
	if child.Parent() == parent {
		m.mu.Unlock()
		return nil
	}
	if parent != nil {
		if err := m.checkNestingLocked(child, parent); err != nil {
			m.mu.Unlock()
			return err
		}
	}

	child.parent.Store(parent)
	events := []Event{{Type: EventGroupParentChanged, GroupID: child.id}}
	m.queueLocked(m.appendRefresh(events, m.sortedFadersLocked()...)...)
	m.mu.Unlock()

	parentName := ""
	if parent != nil {
		parentName = parent.name
	}
	m.logger.Info("group parent changed", "group", child.name, "parent", parentName)
	m.flush()
	return nil
}

func (m *Manager) checkNestingLocked(child, parent *Group) error {
	depth := 0
	for p := parent; p != nil; p = p.Parent() {
		if p == child {
			return fmt.Errorf("%w: %s is an ancestor of %s", ErrCircularGroup, child.name, parent.name)
		}
		depth++
	}
	if depth+m.subtreeHeightLocked(child) > MaxGroupDepth {
		return fmt.Errorf("%w: limit is %d", ErrGroupTooDeep, MaxGroupDepth)
	}
	return nil
}

// subtreeHeightLocked returns the number of levels in g's subtree,
// counting g itself.
func (m *Manager) subtreeHeightLocked(g *Group) int {
	children := make(map[*Group][]*Group)
	for _, c := range m.groups {
		if p := c.Parent(); p != nil {
			children[p] = append(children[p], c)
		}
	}

	height := 0
	level := []*Group{g}
	for len(level) > 0 && height <= MaxGroupDepth {
		height++
		var next []*Group
		for _, n := range level {
			next = append(next, children[n]...)
		}
		level = next
	}
	return height
}

// RemoveFader unlinks and forgets a fader. Returns false if it is not
// managed.
func (m *Manager) RemoveFader(id string) bool {
	m.mu.Lock()
	f, ok := m.faders[id]
	if !ok {
		m.mu.Unlock()
		return false
	}
	var events []Event
	if g := f.Group(); g != nil && g.removeMember(f) {
		events = append(events, Event{Type: EventFaderUnlinked, FaderID: f.id, GroupID: g.id})
	}
	delete(m.faders, id)
	events = append(events, Event{Type: EventFaderRemoved, FaderID: f.id})
	m.queueLocked(events...)
	m.mu.Unlock()

	fadersGauge.Dec()
	m.logger.Debug("fader removed", "fader_id", id, "name", f.name)
	m.flush()
	return true
}

// RemoveGroup unlinks every member, detaches child groups and forgets the
// group. Returns false if it is not managed.
func (m *Manager) RemoveGroup(id string) bool {
	m.mu.Lock()
	g, ok := m.groups[id]
	if !ok {
		m.mu.Unlock()
		return false
	}

	var events []Event
	for _, f := range g.Members() {
		if g.removeMember(f) {
			events = append(events, Event{Type: EventFaderUnlinked, FaderID: f.id, GroupID: g.id})
		}
	}
	for _, c := range m.groups {
		if c.parent.CompareAndSwap(g, nil) {
			events = append(events, Event{Type: EventGroupParentChanged, GroupID: c.id})
		}
	}
	delete(m.groups, id)
	events = append(events, Event{Type: EventGroupRemoved, GroupID: g.id})
	m.queueLocked(m.appendRefresh(events, m.sortedFadersLocked()...)...)
	m.mu.Unlock()

	groupsGauge.Dec()
	m.logger.Info("group removed", "group_id", id, "name", g.name)
	m.flush()
	return true
}

// setFaderVolume stores a managed fader's local volume and reports the
// effective change. The store, the epsilon check and the queueing happen
// under one write lock so events leave in the order the values were set.
func (m *Manager) setFaderVolume(f *Fader, v float64) {
	m.mu.Lock()
	f.volume.Store(v)
	m.queueLocked(m.appendRefresh(nil, f)...)
	m.mu.Unlock()

	m.flush()
}

// setGroupVolume stores a managed group's volume and reports any
// effective-volume changes it caused, including in nested groups.
func (m *Manager) setGroupVolume(g *Group, v float64) {
	m.mu.Lock()
	if g.volume.Swap(v) == v {
		m.mu.Unlock()
		return
	}
	ev := Event{Type: EventGroupVolumeChanged, GroupID: g.id, Value: v}
	m.queueLocked(m.appendRefresh([]Event{ev}, m.sortedFadersLocked()...)...)
	m.mu.Unlock()

	m.logger.Debug("group volume changed", "group", g.name, "volume", v)
	m.flush()
}

// setGroupMute is setGroupVolume for the mute flag.
func (m *Manager) setGroupMute(g *Group, muted bool) {
	m.mu.Lock()
	if g.muted.Swap(muted) == muted {
		m.mu.Unlock()
		return
	}
	ev := Event{Type: EventGroupMuteChanged, GroupID: g.id, Muted: muted}
	m.queueLocked(m.appendRefresh([]Event{ev}, m.sortedFadersLocked()...)...)
	m.mu.Unlock()

	m.logger.Debug("group mute changed", "group", g.name, "muted", muted)
	m.flush()
}

// appendRefresh must be called with m.mu held for writing.
func (m *Manager) appendRefresh(events []Event, faders ...*Fader) []Event {
	for _, f := range faders {
		if eff, changed := f.refresh(); changed {
			effectiveChanges.Inc()
			events = append(events, Event{Type: EventEffectiveVolumeChanged, FaderID: f.id, Value: eff})
		}
	}
	return events
}

// Stats summarises the manager contents.
type Stats struct {
	Faders        int `json:"faders"`
	Groups        int `json:"groups"`
	GroupedFaders int `json:"grouped_faders"`
	MutedGroups   int `json:"muted_groups"`
}

// GetStats returns fader and group counts.
func (m *Manager) GetStats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := Stats{Faders: len(m.faders), Groups: len(m.groups)}
	for _, f := range m.faders {
		if f.Group() != nil {
			stats.GroupedFaders++
		}
	}
	for _, g := range m.groups {
		if g.Muted() {
			stats.MutedGroups++
		}
	}
	return stats
}
