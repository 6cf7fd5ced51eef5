package vca

import (
	"errors"
	"math"
	"strconv"
	"sync"
	"testing"
)

const tolerance = 1e-9

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) handle(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) take() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.events
	r.events = nil
	return out
}

func countType(events []Event, t EventType) int {
	n := 0
	for _, ev := range events {
		if ev.Type == t {
			n++
		}
	}
	return n
}

func assertClose(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > tolerance {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

// ─── Fader and Group ───────────────────────────────────────────────────

func TestFader_EffectiveVolume(t *testing.T) {
	f, err := NewFader("Kick", 0.8)
	if err != nil {
		t.Fatalf("NewFader() error = %v", err)
	}
	g, err := NewGroup("Drums")
	if err != nil {
		t.Fatalf("NewGroup() error = %v", err)
	}

	assertClose(t, "ungrouped", f.EffectiveVolume(), 0.8)

	if err := g.AddMember(f); err != nil {
		t.Fatalf("AddMember() error = %v", err)
	}
	g.SetVolume(0.5)
	assertClose(t, "grouped", f.EffectiveVolume(), 0.4)

	g.SetMute(true)
	assertClose(t, "muted", f.EffectiveVolume(), 0)

	g.SetMute(false)
	assertClose(t, "unmuted", f.EffectiveVolume(), 0.4)
}

func TestClampVolume(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-1, 0},
		{0, 0},
		{1, 1},
		{2, 2},
		{3.5, 2},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		if got := ClampVolume(tt.in); got != tt.want {
			t.Errorf("ClampVolume(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}

	f, _ := NewFader("F", 5)
	if f.Volume() != MaxVolume {
		t.Errorf("NewFader volume = %v, want clamped %v", f.Volume(), MaxVolume)
	}
}

func TestNewFader_RequiresName(t *testing.T) {
	if _, err := NewFader("  ", 1); !errors.Is(err, ErrInvalidName) {
		t.Errorf("NewFader(blank) error = %v, want ErrInvalidName", err)
	}
	if _, err := NewGroup(""); !errors.Is(err, ErrInvalidName) {
		t.Errorf("NewGroup(blank) error = %v, want ErrInvalidName", err)
	}
}

func TestGroup_Membership(t *testing.T) {
	f, _ := NewFader("Snare", 1)
	g1, _ := NewGroup("Drums")
	g2, _ := NewGroup("Perc")

	if err := g1.AddMember(f); err != nil {
		t.Fatalf("AddMember() error = %v", err)
	}
	if err := g1.AddMember(f); err != nil {
		t.Errorf("re-adding a member error = %v, want nil", err)
	}
	if got := len(g1.Members()); got != 1 {
		t.Errorf("Members() = %d, want 1", got)
	}

	if err := g2.AddMember(f); !errors.Is(err, ErrAlreadyGrouped) {
		t.Fatalf("AddMember() to second group error = %v, want ErrAlreadyGrouped", err)
	}
	if f.Group() != g1 {
		t.Error("failed add changed the fader's group")
	}

	if g2.RemoveMember(f) {
		t.Error("RemoveMember() from non-owning group = true")
	}
	if !g1.RemoveMember(f) {
		t.Fatal("RemoveMember() = false")
	}
	if f.Group() != nil || g1.HasMember(f) {
		t.Error("fader still linked after RemoveMember()")
	}
	if err := g2.AddMember(f); err != nil {
		t.Errorf("AddMember() after removal error = %v", err)
	}
}

func TestGroup_NilFader(t *testing.T) {
	stray, _ := NewGroup("Stray")
	m := NewManager()
	managed, _ := m.CreateGroup("Managed")

	for _, g := range []*Group{stray, managed} {
		t.Run(g.Name(), func(t *testing.T) {
			if err := g.AddMember(nil); !errors.Is(err, ErrNilFader) {
				t.Errorf("AddMember(nil) error = %v, want ErrNilFader", err)
			}
			if g.RemoveMember(nil) {
				t.Error("RemoveMember(nil) = true")
			}
			if g.HasMember(nil) {
				t.Error("HasMember(nil) = true")
			}
		})
	}
}

// ─── Manager ───────────────────────────────────────────────────────────

func TestManager_LinkFaderToGroup(t *testing.T) {
	m := NewManager()
	rec := &recorder{}
	m.OnEvent(rec.handle)

	f, _ := m.CreateFader("Vox", 1)
	g1, _ := m.CreateGroup("Vocals")
	g2, _ := m.CreateGroup("Leads")
	g1.SetVolume(0.5)
	g2.SetVolume(0.25)
	rec.take()

	if err := m.LinkFaderToGroup(f, g1); err != nil {
		t.Fatalf("LinkFaderToGroup() error = %v", err)
	}
	events := rec.take()
	if len(events) != 2 || events[0].Type != EventFaderLinked || events[1].Type != EventEffectiveVolumeChanged {
		t.Fatalf("events = %+v, want linked then effective change", events)
	}
	assertClose(t, "effective event", events[1].Value, 0.5)

	// Same group: nothing happens.
	if err := m.LinkFaderToGroup(f, g1); err != nil {
		t.Fatalf("LinkFaderToGroup() no-op error = %v", err)
	}
	if events := rec.take(); len(events) != 0 {
		t.Errorf("no-op link emitted %+v", events)
	}

	if err := m.LinkFaderToGroup(f, g2); err != nil {
		t.Fatalf("LinkFaderToGroup() move error = %v", err)
	}
	events = rec.take()
	if len(events) < 2 {
		t.Fatalf("events = %+v", events)
	}
	if events[0].Type != EventFaderUnlinked || events[0].GroupID != g1.ID() {
		t.Errorf("events[0] = %+v, want unlink from old group", events[0])
	}
	if events[1].Type != EventFaderLinked || events[1].GroupID != g2.ID() {
		t.Errorf("events[1] = %+v, want link to new group", events[1])
	}
	if g1.HasMember(f) || !g2.HasMember(f) {
		t.Error("membership not moved")
	}
	assertClose(t, "effective", f.EffectiveVolume(), 0.25)
}

func TestMoveMember_StaleSourceChangesNothing(t *testing.T) {
	m := NewManager()
	f, _ := m.CreateFader("Vox", 1)
	g1, _ := m.CreateGroup("Vocals")
	g2, _ := m.CreateGroup("Leads")
	stray, _ := NewGroup("Stray")
	_ = m.LinkFaderToGroup(f, g1)

	// f follows g1, so a move that expects it in stray must fail whole.
	if moveMember(f, stray, g2) {
		t.Fatal("moveMember() from a group the fader left = true")
	}
	if f.Group() != g1 || !g1.HasMember(f) {
		t.Error("failed move detached the fader from its group")
	}
	if g2.HasMember(f) {
		t.Error("failed move added the fader to the destination")
	}

	if !moveMember(f, g1, g2) {
		t.Fatal("moveMember() = false")
	}
	if f.Group() != g2 || g1.HasMember(f) || !g2.HasMember(f) {
		t.Error("membership not transferred")
	}
}

func TestManager_GroupAddMemberDoesNotMove(t *testing.T) {
	m := NewManager()
	f, _ := m.CreateFader("Bass", 1)
	g1, _ := m.CreateGroup("Rhythm")
	g2, _ := m.CreateGroup("Low End")

	if err := g1.AddMember(f); err != nil {
		t.Fatalf("AddMember() error = %v", err)
	}
	if err := g2.AddMember(f); !errors.Is(err, ErrAlreadyGrouped) {
		t.Errorf("AddMember() error = %v, want ErrAlreadyGrouped", err)
	}
	if !g1.RemoveMember(f) {
		t.Error("RemoveMember() = false")
	}
}

func TestManager_NotManaged(t *testing.T) {
	m := NewManager()
	other := NewManager()

	managedF, _ := m.CreateFader("Mine", 1)
	managedG, _ := m.CreateGroup("Mine")
	strayF, _ := NewFader("Stray", 1)
	strayG, _ := NewGroup("Stray")
	foreignF, _ := other.CreateFader("Foreign", 1)

	tests := []struct {
		name string
		call func() error
	}{
		{"unmanaged fader", func() error { return m.LinkFaderToGroup(strayF, managedG) }},
		{"unmanaged group", func() error { return m.LinkFaderToGroup(managedF, strayG) }},
		{"foreign fader", func() error { return m.LinkFaderToGroup(foreignF, managedG) }},
		{"unlink unmanaged", func() error { return m.UnlinkFader(strayF) }},
		{"parent unmanaged", func() error { return m.SetGroupParent(managedG, strayG) }},
		{"foreign fader via group", func() error { return managedG.AddMember(foreignF) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, ErrNotManaged) {
				t.Errorf("error = %v, want ErrNotManaged", err)
			}
		})
	}

	m.RemoveFader(managedF.ID())
	if err := m.LinkFaderToGroup(managedF, managedG); !errors.Is(err, ErrNotManaged) {
		t.Errorf("removed fader error = %v, want ErrNotManaged", err)
	}
}

func TestManager_EffectiveChangeThreshold(t *testing.T) {
	m := NewManager()
	rec := &recorder{}
	f, _ := m.CreateFader("Pad", 0.5)
	m.OnEvent(rec.handle)

	f.SetVolume(0.5 + 5e-7)
	if n := countType(rec.take(), EventEffectiveVolumeChanged); n != 0 {
		t.Errorf("sub-threshold change emitted %d events", n)
	}

	f.SetVolume(0.6)
	events := rec.take()
	if n := countType(events, EventEffectiveVolumeChanged); n != 1 {
		t.Fatalf("change emitted %d events, want 1", n)
	}
	assertClose(t, "value", events[0].Value, 0.6)
}

func TestManager_GroupMuteEvents(t *testing.T) {
	m := NewManager()
	rec := &recorder{}
	f1, _ := m.CreateFader("A", 1)
	f2, _ := m.CreateFader("B", 0.5)
	g, _ := m.CreateGroup("G")
	_ = m.LinkFaderToGroup(f1, g)
	_ = m.LinkFaderToGroup(f2, g)
	m.OnEvent(rec.handle)

	g.SetMute(true)
	events := rec.take()
	if events[0].Type != EventGroupMuteChanged || !events[0].Muted {
		t.Errorf("events[0] = %+v, want mute", events[0])
	}
	if n := countType(events, EventEffectiveVolumeChanged); n != 2 {
		t.Errorf("effective changes = %d, want 2", n)
	}

	g.SetMute(true)
	if events := rec.take(); len(events) != 0 {
		t.Errorf("repeated mute emitted %+v", events)
	}

	// Volume change while muted moves nothing audible.
	g.SetVolume(0.3)
	events = rec.take()
	if n := countType(events, EventEffectiveVolumeChanged); n != 0 {
		t.Errorf("muted volume change emitted %d effective events", n)
	}
	if n := countType(events, EventGroupVolumeChanged); n != 1 {
		t.Errorf("group volume events = %d, want 1", n)
	}
}

func TestManager_NestedGroups(t *testing.T) {
	m := NewManager()
	f, _ := m.CreateFader("Snare", 1)
	drums, _ := m.CreateGroup("Drums")
	all, _ := m.CreateGroup("All")
	_ = m.LinkFaderToGroup(f, drums)
	drums.SetVolume(0.5)
	all.SetVolume(0.5)

	if err := m.SetGroupParent(drums, all); err != nil {
		t.Fatalf("SetGroupParent() error = %v", err)
	}
	assertClose(t, "nested", f.EffectiveVolume(), 0.25)

	all.SetMute(true)
	assertClose(t, "parent muted", f.EffectiveVolume(), 0)
	all.SetMute(false)

	if err := m.SetGroupParent(all, drums); !errors.Is(err, ErrCircularGroup) {
		t.Errorf("circular SetGroupParent() error = %v, want ErrCircularGroup", err)
	}
	if err := m.SetGroupParent(drums, drums); !errors.Is(err, ErrCircularGroup) {
		t.Errorf("self parent error = %v, want ErrCircularGroup", err)
	}

	if err := m.SetGroupParent(drums, nil); err != nil {
		t.Fatalf("detach error = %v", err)
	}
	assertClose(t, "detached", f.EffectiveVolume(), 0.5)
}

func TestManager_GroupDepthLimit(t *testing.T) {
	m := NewManager()
	var chain []*Group
	for i := range MaxGroupDepth + 1 {
		g, _ := m.CreateGroup("G" + strconv.Itoa(i))
		chain = append(chain, g)
	}

	for i := 1; i < MaxGroupDepth; i++ {
		if err := m.SetGroupParent(chain[i], chain[i-1]); err != nil {
			t.Fatalf("SetGroupParent(%d) error = %v", i, err)
		}
	}
	last := chain[MaxGroupDepth]
	if err := m.SetGroupParent(last, chain[MaxGroupDepth-1]); !errors.Is(err, ErrGroupTooDeep) {
		t.Errorf("over-deep SetGroupParent() error = %v, want ErrGroupTooDeep", err)
	}
}

func TestManager_RemoveGroup(t *testing.T) {
	m := NewManager()
	rec := &recorder{}
	f, _ := m.CreateFader("Keys", 1)
	parent, _ := m.CreateGroup("Parent")
	child, _ := m.CreateGroup("Child")
	_ = m.LinkFaderToGroup(f, parent)
	_ = m.SetGroupParent(child, parent)
	parent.SetVolume(0.5)
	m.OnEvent(rec.handle)

	if !m.RemoveGroup(parent.ID()) {
		t.Fatal("RemoveGroup() = false")
	}
	if f.Group() != nil {
		t.Error("member still linked")
	}
	if child.Parent() != nil {
		t.Error("child still nested in removed group")
	}
	assertClose(t, "effective", f.EffectiveVolume(), 1)

	events := rec.take()
	for _, want := range []EventType{EventFaderUnlinked, EventGroupParentChanged, EventGroupRemoved, EventEffectiveVolumeChanged} {
		if countType(events, want) != 1 {
			t.Errorf("%s events = %d, want 1", want, countType(events, want))
		}
	}
	if m.RemoveGroup(parent.ID()) {
		t.Error("second RemoveGroup() = true")
	}
}

func TestManager_RemoveFader(t *testing.T) {
	m := NewManager()
	f, _ := m.CreateFader("Gtr", 1)
	g, _ := m.CreateGroup("Guitars")
	_ = m.LinkFaderToGroup(f, g)

	if !m.RemoveFader(f.ID()) {
		t.Fatal("RemoveFader() = false")
	}
	if g.HasMember(f) {
		t.Error("removed fader still a member")
	}
	if m.Fader(f.ID()) != nil {
		t.Error("removed fader still listed")
	}
	if m.RemoveFader(f.ID()) {
		t.Error("second RemoveFader() = true")
	}
}

func TestManager_GetStats(t *testing.T) {
	m := NewManager()
	f1, _ := m.CreateFader("A", 1)
	m.CreateFader("B", 1)
	g, _ := m.CreateGroup("G")
	_ = m.LinkFaderToGroup(f1, g)
	g.SetMute(true)

	stats := m.GetStats()
	want := Stats{Faders: 2, Groups: 1, GroupedFaders: 1, MutedGroups: 1}
	if stats != want {
		t.Errorf("GetStats() = %+v, want %+v", stats, want)
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	m := NewManager()
	var faders []*Fader
	var groups []*Group
	for i := range 8 {
		f, _ := m.CreateFader("F"+strconv.Itoa(i), 1)
		faders = append(faders, f)
	}
	for i := range 3 {
		g, _ := m.CreateGroup("G" + strconv.Itoa(i))
		groups = append(groups, g)
	}
	m.OnEvent(func(Event) { _ = m.GetStats() })

	var wg sync.WaitGroup
	for w := range 6 {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := range 300 {
				f := faders[(w+i)%len(faders)]
				g := groups[(w*i)%len(groups)]
				switch i % 5 {
				case 0:
					_ = m.LinkFaderToGroup(f, g)
				case 1:
					g.SetVolume(float64(i%20) / 10)
				case 2:
					g.SetMute(i%2 == 0)
				case 3:
					_ = m.UnlinkFader(f)
				default:
					f.SetVolume(float64(i%10) / 10)
				}
				_ = f.EffectiveVolume()
			}
		}(w)
	}
	wg.Wait()

	for _, f := range faders {
		if g := f.Group(); g != nil && !g.HasMember(f) {
			t.Errorf("fader %s points at %s but is not a member", f.Name(), g.Name())
		}
	}
	for _, g := range groups {
		for _, f := range g.Members() {
			if f.Group() != g {
				t.Errorf("group %s lists %s which follows another group", g.Name(), f.Name())
			}
		}
	}
}

func TestManager_ConcurrentVolumeEventsEndOnCurrentValue(t *testing.T) {
	for round := range 50 {
		m := NewManager()
		f, _ := m.CreateFader("Keys", 0.1)
		g, _ := m.CreateGroup("Band")
		_ = m.LinkFaderToGroup(f, g)

		var mu sync.Mutex
		var last float64
		seen := false
		m.OnEvent(func(ev Event) {
			if ev.Type != EventEffectiveVolumeChanged || ev.FaderID != f.ID() {
				return
			}
			mu.Lock()
			last = ev.Value
			seen = true
			mu.Unlock()
		})

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := range 200 {
				f.SetVolume(float64((i+round)%19+1) / 10)
			}
		}()
		go func() {
			defer wg.Done()
			for i := range 200 {
				g.SetVolume(float64((i*7+round)%13+1) / 10)
			}
		}()
		wg.Wait()

		mu.Lock()
		if !seen {
			mu.Unlock()
			t.Fatalf("round %d: no effective-volume events", round)
		}
		if math.Abs(last-f.EffectiveVolume()) > ChangeEpsilon {
			t.Fatalf("round %d: last event value = %v, EffectiveVolume() = %v", round, last, f.EffectiveVolume())
		}
		mu.Unlock()
	}
}

func TestManager_ReentrantHandlerKeepsOrder(t *testing.T) {
	m := NewManager()
	f, _ := m.CreateFader("Pad", 1)
	rec := &recorder{}

	m.OnEvent(func(ev Event) {
		// Pull the fader back down whenever it goes above unity.
		if ev.Type == EventEffectiveVolumeChanged && ev.Value > 1 {
			f.SetVolume(1)
		}
	})
	m.OnEvent(rec.handle)

	f.SetVolume(1.5)
	events := rec.take()
	if len(events) != 2 {
		t.Fatalf("events = %+v, want two effective changes", events)
	}
	assertClose(t, "first", events[0].Value, 1.5)
	assertClose(t, "second", events[1].Value, 1)
	assertClose(t, "effective", f.EffectiveVolume(), 1)
}

func BenchmarkFader_EffectiveVolume(b *testing.B) {
	m := NewManager()
	f, _ := m.CreateFader("F", 0.9)
	g, _ := m.CreateGroup("G")
	parent, _ := m.CreateGroup("P")
	_ = m.LinkFaderToGroup(f, g)
	_ = m.SetGroupParent(g, parent)

	b.ResetTimer()
	for range b.N {
		_ = f.EffectiveVolume()
	}
}
