package routing

import (
	"errors"
	"strings"
	"testing"
)

// forceRoute inserts a route without any checks, to build graphs the
// public API refuses.
func forceRoute(t *testing.T, m *Matrix, src, dst *Point) *Route {
	t.Helper()
	r, err := NewRoute(src, dst, 0)
	if err != nil {
		t.Fatalf("NewRoute() error = %v", err)
	}
	m.mu.Lock()
	m.routeSeq++
	r.seq = m.routeSeq
	m.insertRouteLocked(r)
	m.mu.Unlock()
	return r
}

func TestMatrix_FindCycles(t *testing.T) {
	m := NewMatrix()
	a := addPoint(t, m, "A", PointGroup)
	b := addPoint(t, m, "B", PointGroup)
	c := addPoint(t, m, "C", PointGroup)
	d := addPoint(t, m, "D", PointGroup)

	mustRoute(t, m, a, b, 0)
	mustRoute(t, m, b, c, 0)
	mustRoute(t, m, c, d, 0)
	if cycles := m.FindCycles(); len(cycles) != 0 {
		t.Fatalf("acyclic chain reported %v", cycles)
	}

	back := forceRoute(t, m, c, a)
	cycles := m.FindCycles()
	if len(cycles) != 1 {
		t.Fatalf("FindCycles() = %v, want one component", cycles)
	}
	assertPath(t, cycles[0], []string{a.ID(), b.ID(), c.ID()})

	back.setEnabled(false)
	if cycles := m.FindCycles(); len(cycles) != 0 {
		t.Errorf("disabled back edge still reported: %v", cycles)
	}
}

func TestMatrix_DetectFeedback_ToleratesExistingCycle(t *testing.T) {
	m := NewMatrix()
	a := addPoint(t, m, "A", PointGroup)
	b := addPoint(t, m, "B", PointGroup)
	c := addPoint(t, m, "C", PointGroup)
	x := addPoint(t, m, "X", PointGroup)

	forceRoute(t, m, a, b)
	forceRoute(t, m, b, a)
	forceRoute(t, m, b, c)

	if res := m.DetectFeedback(x.ID(), a.ID()); res.HasFeedback {
		t.Error("X is not reachable from the A/B loop")
	}
	if res := m.DetectFeedback(c.ID(), a.ID()); !res.HasFeedback {
		t.Error("A reaches C, so C -> A is feedback")
	}
}

func TestMatrix_CreateRoute_FeedbackMessageNamesPath(t *testing.T) {
	m := NewMatrix()
	g1 := addPoint(t, m, "Drums", PointGroup)
	g2 := addPoint(t, m, "Music", PointGroup)
	mustRoute(t, m, g1, g2, 0)

	_, err := m.CreateRoute(g2.ID(), g1.ID(), 0)
	if !errors.Is(err, ErrFeedbackLoop) {
		t.Fatalf("error = %v, want ErrFeedbackLoop", err)
	}
	if !strings.Contains(err.Error(), "Drums -> Music") {
		t.Errorf("error %q should name the existing path", err)
	}
}

func TestMatrix_Verify(t *testing.T) {
	m := NewMatrix()
	out := addPoint(t, m, "Out", PointOutput)
	master := addPoint(t, m, "Master", PointMaster)
	r := mustRoute(t, m, out, master, 0)

	if err := m.Verify(); err != nil {
		t.Fatalf("Verify() on healthy matrix error = %v", err)
	}

	m.mu.Lock()
	delete(m.bySource[out.ID()], r.ID())
	m.byDestination[master.ID()]["ghost"] = struct{}{}
	m.mu.Unlock()

	err := m.Verify()
	if !errors.Is(err, ErrIndexCorrupt) {
		t.Fatalf("Verify() error = %v, want ErrIndexCorrupt", err)
	}
	if !strings.Contains(err.Error(), "missing from source index") {
		t.Errorf("error %q should mention the source index", err)
	}
	if !strings.Contains(err.Error(), "unknown route ghost") {
		t.Errorf("error %q should mention the unknown route", err)
	}
}
