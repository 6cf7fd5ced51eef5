package routing

import (
	"errors"
	"math"
	"math/rand/v2"
	"strconv"
	"sync"
	"testing"
)

// eventRecorder collects matrix events for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) handle(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *eventRecorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

func (r *eventRecorder) reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

func addPoint(t testing.TB, m *Matrix, name string, typ PointType) *Point {
	t.Helper()
	p := mustPoint(t, name, typ)
	if !m.RegisterPoint(p) {
		t.Fatalf("RegisterPoint(%q) = false", name)
	}
	return p
}

func mustRoute(t testing.TB, m *Matrix, src, dst *Point, gainDB float64) *Route {
	t.Helper()
	r, err := m.CreateRoute(src.ID(), dst.ID(), gainDB)
	if err != nil {
		t.Fatalf("CreateRoute(%s -> %s) error = %v", src.Name(), dst.Name(), err)
	}
	return r
}

// ─── Point registration ────────────────────────────────────────────────

func TestMatrix_RegisterPoint(t *testing.T) {
	m := NewMatrix()
	p := mustPoint(t, "Drums", PointOutput)

	if !m.RegisterPoint(p) {
		t.Fatal("first RegisterPoint() = false")
	}
	if m.RegisterPoint(p) {
		t.Error("duplicate RegisterPoint() = true")
	}
	if m.RegisterPoint(nil) {
		t.Error("RegisterPoint(nil) = true")
	}

	other := NewMatrix()
	if other.RegisterPoint(p) {
		t.Error("point registered in two matrices")
	}

	if !m.UnregisterPoint(p.ID()) {
		t.Fatal("UnregisterPoint() = false")
	}
	if !other.RegisterPoint(p) {
		t.Error("point should be registrable after unregistering")
	}
}

func TestMatrix_UnregisterPoint_Cascades(t *testing.T) {
	m := NewMatrix()
	rec := &eventRecorder{}
	m.OnEvent(rec.handle)

	out := addPoint(t, m, "Out", PointOutput)
	grp := addPoint(t, m, "Grp", PointGroup)
	master := addPoint(t, m, "Master", PointMaster)
	toGrp := mustRoute(t, m, out, grp, 0)
	toMaster := mustRoute(t, m, grp, master, 0)
	toGrp.SetLatencySamples(64)
	rec.reset()

	if !m.UnregisterPoint(grp.ID()) {
		t.Fatal("UnregisterPoint() = false")
	}

	if len(m.Routes()) != 0 {
		t.Errorf("Routes() = %d, want 0", len(m.Routes()))
	}
	if !toGrp.Released() || !toMaster.Released() {
		t.Error("cascaded routes should be released")
	}
	want := []EventType{EventRouteRemoved, EventRouteRemoved, EventPointRemoved}
	got := rec.types()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	if err := m.Verify(); err != nil {
		t.Errorf("Verify() error = %v", err)
	}
	if m.UnregisterPoint(grp.ID()) {
		t.Error("second UnregisterPoint() = true")
	}
}

// ─── Route creation ────────────────────────────────────────────────────

func TestMatrix_CreateRoute_Errors(t *testing.T) {
	m := NewMatrix()
	out := addPoint(t, m, "Out", PointOutput)
	in := addPoint(t, m, "In", PointInput)
	g1 := addPoint(t, m, "G1", PointGroup)
	g2 := addPoint(t, m, "G2", PointGroup)
	stray := mustPoint(t, "Stray", PointOutput)

	mustRoute(t, m, out, g1, 0)
	mustRoute(t, m, g1, g2, 0)

	tests := []struct {
		name    string
		src     string
		dst     string
		wantErr error
	}{
		{"unregistered source", stray.ID(), in.ID(), ErrUnregisteredEndpoint},
		{"unregistered destination", out.ID(), "missing", ErrUnregisteredEndpoint},
		{"self loop", g1.ID(), g1.ID(), ErrFeedbackLoop},
		{"input cannot be source", in.ID(), g1.ID(), ErrIncompatibleEndpoints},
		{"output cannot be destination", g1.ID(), out.ID(), ErrIncompatibleEndpoints},
		{"duplicate", out.ID(), g1.ID(), ErrDuplicateRoute},
		{"closes cycle", g2.ID(), g1.ID(), ErrFeedbackLoop},
		// Unregistered wins over self-loop and incompatibility.
		{"unregistered before self", "ghost", "ghost", ErrUnregisteredEndpoint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(m.Routes())
			r, err := m.CreateRoute(tt.src, tt.dst, 0)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CreateRoute() error = %v, want %v", err, tt.wantErr)
			}
			if r != nil {
				t.Error("failed CreateRoute() returned a route")
			}
			if after := len(m.Routes()); after != before {
				t.Errorf("route count changed from %d to %d", before, after)
			}
			if err := m.Verify(); err != nil {
				t.Errorf("Verify() error = %v", err)
			}
		})
	}
}

func TestMatrix_CreateRoute_IndexesAndEvents(t *testing.T) {
	m := NewMatrix()
	rec := &eventRecorder{}
	m.OnEvent(rec.handle)

	out := addPoint(t, m, "Out", PointOutput)
	ret := addPoint(t, m, "Reverb Return", PointReturn)
	rec.reset()

	r := mustRoute(t, m, out, ret, -3)

	if got := m.Route(r.ID()); got != r {
		t.Error("Route() did not return the created route")
	}
	if got := m.RouteBetween(out.ID(), ret.ID()); got != r {
		t.Error("RouteBetween() did not return the created route")
	}
	if got := m.RoutesFrom(out.ID()); len(got) != 1 || got[0] != r {
		t.Errorf("RoutesFrom() = %v", got)
	}
	if got := m.RoutesTo(ret.ID()); len(got) != 1 || got[0] != r {
		t.Errorf("RoutesTo() = %v", got)
	}
	if got := m.RoutesByKind(RouteSendReturn); len(got) != 1 {
		t.Errorf("RoutesByKind(send_return) = %d routes, want 1", len(got))
	}
	if types := rec.types(); len(types) != 1 || types[0] != EventRouteCreated {
		t.Errorf("events = %v, want [route_created]", types)
	}
	rec.mu.Lock()
	ev := rec.events[0]
	rec.mu.Unlock()
	if ev.RouteID != r.ID() || ev.SourceID != out.ID() || ev.DestinationID != ret.ID() {
		t.Errorf("event = %+v", ev)
	}
}

// TestMatrix_GroupToMasterScenario walks a small session: an input strip
// cannot feed a group, a group feeds master at -6 dB, and feedback probes
// follow the enabled graph transitively.
func TestMatrix_GroupToMasterScenario(t *testing.T) {
	t.Run("input endpoint", func(t *testing.T) {
		m := NewMatrix()
		in1 := addPoint(t, m, "In1", PointInput)
		grp := addPoint(t, m, "Grp", PointGroup)
		master := addPoint(t, m, "Master", PointMaster)

		if _, err := m.CreateRoute(in1.ID(), grp.ID(), 0); !errors.Is(err, ErrIncompatibleEndpoints) {
			t.Fatalf("In1 -> Grp error = %v, want ErrIncompatibleEndpoints", err)
		}

		r := mustRoute(t, m, grp, master, -6)
		if math.Abs(r.GainLinear()-0.501187) > floatTolerance {
			t.Errorf("GainLinear() = %v, want ~0.501187", r.GainLinear())
		}

		if res := m.DetectFeedback(master.ID(), in1.ID()); res.HasFeedback {
			t.Errorf("DetectFeedback(Master, In1) = %+v, want none", res)
		}
		if res := m.DetectFeedback(master.ID(), grp.ID()); !res.HasFeedback {
			t.Error("DetectFeedback(Master, Grp) should report Grp -> Master")
		}
	})

	t.Run("output endpoint", func(t *testing.T) {
		m := NewMatrix()
		in1 := addPoint(t, m, "In1", PointOutput)
		grp := addPoint(t, m, "Grp", PointGroup)
		master := addPoint(t, m, "Master", PointMaster)

		mustRoute(t, m, in1, grp, 0)
		mustRoute(t, m, grp, master, -6)

		if res := m.DetectFeedback(grp.ID(), in1.ID()); !res.HasFeedback {
			t.Error("DetectFeedback(Grp, In1) = false, want true")
		}
		res := m.DetectFeedback(master.ID(), in1.ID())
		if !res.HasFeedback {
			t.Fatal("DetectFeedback(Master, In1) = false, want true via Grp")
		}
		want := []string{in1.ID(), grp.ID(), master.ID()}
		assertPath(t, res.Path, want)
	})
}

// ─── Feedback ──────────────────────────────────────────────────────────

func TestMatrix_DetectFeedback(t *testing.T) {
	m := NewMatrix()
	g1 := addPoint(t, m, "G1", PointGroup)
	g2 := addPoint(t, m, "G2", PointGroup)
	g3 := addPoint(t, m, "G3", PointGroup)
	g4 := addPoint(t, m, "G4", PointGroup)

	mustRoute(t, m, g1, g2, 0)
	mid := mustRoute(t, m, g2, g3, 0)

	t.Run("identical endpoints", func(t *testing.T) {
		res := m.DetectFeedback(g1.ID(), g1.ID())
		if !res.HasFeedback {
			t.Fatal("self should report feedback")
		}
		assertPath(t, res.Path, []string{g1.ID()})
	})

	t.Run("transitive path", func(t *testing.T) {
		res := m.DetectFeedback(g3.ID(), g1.ID())
		if !res.HasFeedback {
			t.Fatal("G3 -> G1 should close G1 -> G2 -> G3")
		}
		assertPath(t, res.Path, []string{g1.ID(), g2.ID(), g3.ID()})
	})

	t.Run("forward edge is safe", func(t *testing.T) {
		if res := m.DetectFeedback(g1.ID(), g3.ID()); res.HasFeedback {
			t.Errorf("G1 -> G3 reported feedback: %v", res.Path)
		}
	})

	t.Run("unrelated point", func(t *testing.T) {
		if res := m.DetectFeedback(g4.ID(), g1.ID()); res.HasFeedback {
			t.Error("G4 is not reachable from G1")
		}
	})

	t.Run("disabled edges ignored", func(t *testing.T) {
		if err := m.SetRouteEnabled(mid.ID(), false); err != nil {
			t.Fatalf("SetRouteEnabled() error = %v", err)
		}
		defer func() { _ = m.SetRouteEnabled(mid.ID(), true) }()

		if res := m.DetectFeedback(g3.ID(), g1.ID()); res.HasFeedback {
			t.Error("path through a disabled route should not count")
		}
	})
}

func TestMatrix_SetRouteEnabled_RechecksFeedback(t *testing.T) {
	m := NewMatrix()
	g1 := addPoint(t, m, "G1", PointGroup)
	g2 := addPoint(t, m, "G2", PointGroup)

	forward := mustRoute(t, m, g1, g2, 0)
	if err := m.SetRouteEnabled(forward.ID(), false); err != nil {
		t.Fatalf("disable error = %v", err)
	}

	// With forward disabled the reverse edge is legal.
	back := mustRoute(t, m, g2, g1, 0)

	err := m.SetRouteEnabled(forward.ID(), true)
	if !errors.Is(err, ErrFeedbackLoop) {
		t.Fatalf("re-enable error = %v, want ErrFeedbackLoop", err)
	}
	if forward.Enabled() {
		t.Error("rejected re-enable left route enabled")
	}
	if cycles := m.FindCycles(); len(cycles) != 0 {
		t.Errorf("FindCycles() = %v, want none", cycles)
	}

	m.RemoveRoute(back.ID())
	if err := m.SetRouteEnabled(forward.ID(), true); err != nil {
		t.Errorf("re-enable after removing reverse route error = %v", err)
	}

	if err := m.SetRouteEnabled("missing", true); !errors.Is(err, ErrRouteNotFound) {
		t.Errorf("unknown route error = %v, want ErrRouteNotFound", err)
	}
}

// ─── Route mutation ────────────────────────────────────────────────────

func TestMatrix_RouteChanges(t *testing.T) {
	m := NewMatrix()
	rec := &eventRecorder{}
	m.OnEvent(rec.handle)
	out := addPoint(t, m, "Out", PointOutput)
	master := addPoint(t, m, "Master", PointMaster)
	r := mustRoute(t, m, out, master, 0)
	rec.reset()

	if err := m.SetRouteGain(r.ID(), -12); err != nil {
		t.Fatalf("SetRouteGain() error = %v", err)
	}
	if r.GainDB() != -12 {
		t.Errorf("GainDB() = %v, want -12", r.GainDB())
	}
	if err := m.SetRouteLatency(r.ID(), 128); err != nil {
		t.Fatalf("SetRouteLatency() error = %v", err)
	}
	if r.LatencySamples() != 128 {
		t.Errorf("LatencySamples() = %d, want 128", r.LatencySamples())
	}
	if err := m.SetRouteEnabled(r.ID(), false); err != nil {
		t.Fatalf("SetRouteEnabled() error = %v", err)
	}
	// No change, no event.
	if err := m.SetRouteEnabled(r.ID(), false); err != nil {
		t.Fatalf("SetRouteEnabled() error = %v", err)
	}

	if got := rec.types(); len(got) != 3 {
		t.Errorf("events = %v, want 3 route_changed", got)
	}

	if err := m.SetRouteGain("missing", 0); !errors.Is(err, ErrRouteNotFound) {
		t.Errorf("SetRouteGain(missing) error = %v", err)
	}
	if err := m.SetRouteLatency("missing", 0); !errors.Is(err, ErrRouteNotFound) {
		t.Errorf("SetRouteLatency(missing) error = %v", err)
	}
}

func TestMatrix_RemoveRoute(t *testing.T) {
	m := NewMatrix()
	out := addPoint(t, m, "Out", PointOutput)
	in := addPoint(t, m, "In", PointInput)
	master := addPoint(t, m, "Master", PointMaster)
	r1 := mustRoute(t, m, out, in, 0)
	mustRoute(t, m, out, master, 0)

	if !m.RemoveRoute(r1.ID()) {
		t.Fatal("RemoveRoute() = false")
	}
	if m.RemoveRoute(r1.ID()) {
		t.Error("second RemoveRoute() = true")
	}
	if !r1.Released() {
		t.Error("removed route should be released")
	}
	if !m.RemoveRouteBetween(out.ID(), master.ID()) {
		t.Fatal("RemoveRouteBetween() = false")
	}
	if m.RemoveRouteBetween(out.ID(), master.ID()) {
		t.Error("second RemoveRouteBetween() = true")
	}
	if err := m.Verify(); err != nil {
		t.Errorf("Verify() error = %v", err)
	}

	// The pair can be connected again.
	mustRoute(t, m, out, in, 0)
}

// ─── Queries ───────────────────────────────────────────────────────────

func TestMatrix_PointQueries(t *testing.T) {
	m := NewMatrix()
	first := addPoint(t, m, "Drums", PointOutput)
	addPoint(t, m, "drums", PointGroup)
	in := addPoint(t, m, "Vox", PointInput)
	addPoint(t, m, "Master", PointMaster)

	if got := m.PointByName("DRUMS"); got != first {
		t.Errorf("PointByName(DRUMS) = %v, want first registered", got)
	}
	if got := m.PointByName("nobody"); got != nil {
		t.Errorf("PointByName(nobody) = %v, want nil", got)
	}
	if got := m.PointsByType(PointInput); len(got) != 1 || got[0] != in {
		t.Errorf("PointsByType(input) = %v", got)
	}
	if got := len(m.Sources()); got != 3 {
		t.Errorf("Sources() = %d, want 3", got)
	}
	if got := len(m.Destinations()); got != 3 {
		t.Errorf("Destinations() = %d, want 3", got)
	}

	points := m.Points()
	if len(points) != 4 || points[0] != first {
		t.Fatalf("Points() = %v, want registration order", points)
	}
	points[0] = nil
	if m.Points()[0] != first {
		t.Error("Points() should return a copy")
	}
}

func TestMatrix_RenameAndActivate(t *testing.T) {
	m := NewMatrix()
	rec := &eventRecorder{}
	m.OnEvent(rec.handle)
	p := addPoint(t, m, "Bus", PointGroup)
	rec.reset()

	if err := m.RenamePoint(p.ID(), "Drum Bus"); err != nil {
		t.Fatalf("RenamePoint() error = %v", err)
	}
	if m.PointByName("drum bus") != p {
		t.Error("renamed point not found by new name")
	}
	if err := m.RenamePoint(p.ID(), " "); !errors.Is(err, ErrInvalidPoint) {
		t.Errorf("RenamePoint(blank) error = %v", err)
	}
	if err := m.SetPointActive(p.ID(), false); err != nil {
		t.Fatalf("SetPointActive() error = %v", err)
	}
	if err := m.SetPointActive(p.ID(), false); err != nil {
		t.Fatalf("SetPointActive() error = %v", err)
	}
	if err := m.SetPointActive("missing", true); !errors.Is(err, ErrPointNotFound) {
		t.Errorf("SetPointActive(missing) error = %v", err)
	}

	if got := rec.types(); len(got) != 2 {
		t.Errorf("events = %v, want two point_changed", got)
	}
}

func TestMatrix_GetStats(t *testing.T) {
	m := NewMatrix()
	out := addPoint(t, m, "Out", PointOutput)
	sc := addPoint(t, m, "Comp SC", PointSidechain)
	grp := addPoint(t, m, "Grp", PointGroup)
	mustRoute(t, m, out, sc, 0)
	r := mustRoute(t, m, out, grp, 0)
	_ = m.SetRouteEnabled(r.ID(), false)

	stats := m.GetStats()
	if stats.Points != 3 || stats.Routes != 2 || stats.EnabledRoutes != 1 {
		t.Errorf("GetStats() = %+v", stats)
	}
	if stats.ByRouteKind[RouteSidechain] != 1 || stats.ByRouteKind[RouteGroup] != 1 {
		t.Errorf("ByRouteKind = %v", stats.ByRouteKind)
	}
}

// ─── Events ────────────────────────────────────────────────────────────

func TestMatrix_HandlersRunOutsideLock(t *testing.T) {
	m := NewMatrix()
	var seen int
	m.OnEvent(func(Event) {
		// Would deadlock if the write lock were still held.
		seen = len(m.Routes())
	})

	out := addPoint(t, m, "Out", PointOutput)
	master := addPoint(t, m, "Master", PointMaster)
	mustRoute(t, m, out, master, 0)

	if seen != 1 {
		t.Errorf("handler saw %d routes, want 1", seen)
	}
}

func TestMatrix_OnEvent_Unsubscribe(t *testing.T) {
	m := NewMatrix()
	rec := &eventRecorder{}
	unsubscribe := m.OnEvent(rec.handle)

	addPoint(t, m, "A", PointGroup)
	unsubscribe()
	addPoint(t, m, "B", PointGroup)

	if got := rec.types(); len(got) != 1 {
		t.Errorf("events after unsubscribe = %v, want 1", got)
	}
}

func TestMatrix_HandlerPanicIsContained(t *testing.T) {
	m := NewMatrix()
	rec := &eventRecorder{}
	m.OnEvent(func(Event) { panic("boom") })
	m.OnEvent(rec.handle)

	addPoint(t, m, "A", PointGroup)

	if got := rec.types(); len(got) != 1 {
		t.Errorf("second handler events = %v, want 1", got)
	}
}

// ─── Lifecycle ─────────────────────────────────────────────────────────

func TestMatrix_Clear(t *testing.T) {
	m := NewMatrix()
	rec := &eventRecorder{}
	m.OnEvent(rec.handle)
	out := addPoint(t, m, "Out", PointOutput)
	master := addPoint(t, m, "Master", PointMaster)
	r := mustRoute(t, m, out, master, 0)
	r.SetLatencySamples(32)
	rec.reset()

	m.Clear()

	if len(m.Points()) != 0 || len(m.Routes()) != 0 {
		t.Error("Clear() left state behind")
	}
	if !r.Released() {
		t.Error("Clear() should release routes")
	}
	if got := rec.types(); len(got) != 1 || got[0] != EventMatrixCleared {
		t.Errorf("events = %v, want [matrix_cleared]", got)
	}
	if !m.RegisterPoint(out) {
		t.Error("point should be registrable after Clear()")
	}

	m.Close()
	rec.reset()
	addPoint(t, m, "After Close", PointGroup)
	if got := rec.types(); len(got) != 0 {
		t.Errorf("Close() should drop handlers, got %v", got)
	}
}

// ─── Mixing ────────────────────────────────────────────────────────────

func TestMatrix_MixInto(t *testing.T) {
	m := NewMatrix()
	a := addPoint(t, m, "A", PointOutput)
	b := addPoint(t, m, "B", PointOutput)
	c := addPoint(t, m, "C", PointOutput)
	master := addPoint(t, m, "Master", PointMaster)
	mustRoute(t, m, a, master, 0)
	mustRoute(t, m, b, master, -96)
	mustRoute(t, m, c, master, 0)

	inputs := map[string][]float32{
		a.ID(): {0.5, 0.5},
		b.ID(): {1, 1},
		// c has no buffer this cycle
	}
	out := []float32{9, 9}
	m.MixInto(master.ID(), inputs, out)
	assertSamples(t, out, []float32{0.5, 0.5})
}

// ─── Invariants under random edits ─────────────────────────────────────

func TestMatrix_RandomEditsStayAcyclic(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	m := NewMatrix()

	types := []PointType{PointOutput, PointGroup, PointGroup, PointGroup, PointMaster, PointInput, PointSend, PointReturn}
	var points []*Point
	for i := range 24 {
		points = append(points, addPoint(t, m, "P"+strconv.Itoa(i), types[i%len(types)]))
	}

	for step := range 2000 {
		src := points[rng.IntN(len(points))]
		dst := points[rng.IntN(len(points))]
		switch rng.IntN(10) {
		case 0, 1:
			m.RemoveRouteBetween(src.ID(), dst.ID())
		case 2:
			if r := m.RouteBetween(src.ID(), dst.ID()); r != nil {
				_ = m.SetRouteEnabled(r.ID(), rng.IntN(2) == 0)
			}
		default:
			_, err := m.CreateRoute(src.ID(), dst.ID(), rng.Float64()*12-6)
			if err == nil {
				continue
			}
			if !errors.Is(err, ErrFeedbackLoop) && !errors.Is(err, ErrDuplicateRoute) &&
				!errors.Is(err, ErrIncompatibleEndpoints) {
				t.Fatalf("step %d: unexpected error %v", step, err)
			}
		}

		if cycles := m.FindCycles(); len(cycles) != 0 {
			t.Fatalf("step %d: cycle in enabled graph: %v", step, cycles)
		}
	}

	if err := m.Verify(); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	for _, r := range m.Routes() {
		if m.RouteBetween(r.SourceID(), r.DestinationID()) != r {
			t.Fatalf("duplicate pair for %s", r)
		}
	}
}

func TestMatrix_ConcurrentAccess(t *testing.T) {
	m := NewMatrix()
	var groups []*Point
	for i := range 8 {
		groups = append(groups, addPoint(t, m, "G"+strconv.Itoa(i), PointGroup))
	}

	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			rng := rand.New(rand.NewPCG(uint64(w), 7))
			buf := make([]float32, 64)
			for range 200 {
				src := groups[rng.IntN(len(groups))]
				dst := groups[rng.IntN(len(groups))]
				if r, err := m.CreateRoute(src.ID(), dst.ID(), 0); err == nil {
					r.Process(buf, buf)
				}
				m.DetectFeedback(dst.ID(), src.ID())
				_ = m.Visualization()
				for _, r := range m.RoutesTo(dst.ID()) {
					_ = r.EffectiveGain()
				}
				m.RemoveRouteBetween(dst.ID(), src.ID())
			}
		}(w)
	}
	wg.Wait()

	if cycles := m.FindCycles(); len(cycles) != 0 {
		t.Errorf("FindCycles() = %v", cycles)
	}
	if err := m.Verify(); err != nil {
		t.Errorf("Verify() error = %v", err)
	}
}

func assertPath(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("path = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("path[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

// ─── Benchmarks ────────────────────────────────────────────────────────

func BenchmarkMatrix_DetectFeedback_Chain(b *testing.B) {
	m := NewMatrix()
	var chain []*Point
	for i := range 256 {
		chain = append(chain, addPoint(b, m, "G"+strconv.Itoa(i), PointGroup))
	}
	for i := 1; i < len(chain); i++ {
		mustRoute(b, m, chain[i-1], chain[i], 0)
	}
	last, first := chain[len(chain)-1], chain[0]

	b.ResetTimer()
	for range b.N {
		m.DetectFeedback(last.ID(), first.ID())
	}
}

func BenchmarkRoute_MixInto(b *testing.B) {
	r := newTestRoute(b)
	r.SetGainDB(-3)
	in := make([]float32, 512)
	out := make([]float32, 512)

	b.ResetTimer()
	for range b.N {
		r.MixInto(in, out)
	}
}
