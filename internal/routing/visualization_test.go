package routing

import (
	"strings"
	"testing"
)

func TestMatrix_Visualization(t *testing.T) {
	m := NewMatrix()
	vox := addPoint(t, m, "vox", PointOutput)
	bass := addPoint(t, m, "Bass", PointOutput)
	master := addPoint(t, m, "Master", PointMaster)
	ret := addPoint(t, m, "Reverb", PointReturn)
	mustRoute(t, m, vox, ret, -10)
	off := mustRoute(t, m, bass, master, 0)
	if err := m.SetRouteEnabled(off.ID(), false); err != nil {
		t.Fatalf("SetRouteEnabled() error = %v", err)
	}

	v := m.Visualization()

	wantSources := []string{"Bass", "Master", "vox"}
	if len(v.Sources) != len(wantSources) {
		t.Fatalf("Sources = %d, want %d", len(v.Sources), len(wantSources))
	}
	for i, name := range wantSources {
		if v.Sources[i].Name != name {
			t.Errorf("Sources[%d] = %s, want %s", i, v.Sources[i].Name, name)
		}
	}
	wantDests := []string{"Master", "Reverb"}
	for i, name := range wantDests {
		if v.Destinations[i].Name != name {
			t.Errorf("Destinations[%d] = %s, want %s", i, v.Destinations[i].Name, name)
		}
	}

	// Master cannot route to itself.
	if cell := v.Cells[1][0]; cell.Routable {
		t.Error("Master -> Master should not be routable")
	}
	if cell := v.Cells[2][1]; cell.Route == nil || cell.Route.GainDB != -10 {
		t.Errorf("vox -> Reverb cell = %+v, want route at -10 dB", cell)
	}
	if cell := v.Cells[0][1]; cell.Route != nil || !cell.Routable {
		t.Errorf("Bass -> Reverb cell = %+v, want routable and empty", cell)
	}

	if got := len(m.Cells()); got != 6 {
		t.Errorf("Cells() = %d, want 6", got)
	}
}

func TestVisualization_RenderText(t *testing.T) {
	m := NewMatrix()
	vox := addPoint(t, m, "Vox", PointOutput)
	master := addPoint(t, m, "Master", PointMaster)
	r := mustRoute(t, m, vox, master, -6)

	text := m.Visualization().RenderText()
	for _, want := range []string{"Vox", "Master", "-6.0 dB"} {
		if !strings.Contains(text, want) {
			t.Errorf("RenderText() missing %q:\n%s", want, text)
		}
	}

	_ = m.SetRouteEnabled(r.ID(), false)
	if text := m.Visualization().RenderText(); !strings.Contains(text, "(off)") {
		t.Errorf("disabled route should render as off:\n%s", text)
	}
}
