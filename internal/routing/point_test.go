package routing

import (
	"errors"
	"testing"
)

func TestNewPoint(t *testing.T) {
	tests := []struct {
		name     string
		pname    string
		typ      PointType
		channels int
		wantErr  bool
	}{
		{"valid stereo output", "Drums", PointOutput, 2, false},
		{"valid mono input", "Vox In", PointInput, 1, false},
		{"trims name", "  Bus A  ", PointGroup, 2, false},
		{"empty name", "", PointOutput, 2, true},
		{"whitespace name", "   ", PointOutput, 2, true},
		{"zero channels", "Drums", PointOutput, 0, true},
		{"negative channels", "Drums", PointOutput, -1, true},
		{"unknown type", "Drums", PointType("aux"), 2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPoint(tt.pname, tt.typ, tt.channels)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPoint) {
					t.Fatalf("NewPoint() error = %v, want ErrInvalidPoint", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewPoint() error = %v", err)
			}
			if p.ID() == "" {
				t.Error("ID should be generated")
			}
			if !p.Active() {
				t.Error("new point should be active")
			}
			if p.Channels() != tt.channels {
				t.Errorf("Channels() = %d, want %d", p.Channels(), tt.channels)
			}
		})
	}
}

func TestNewPoint_UniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		p, err := NewPoint("P", PointGroup, 2)
		if err != nil {
			t.Fatalf("NewPoint() error = %v", err)
		}
		if seen[p.ID()] {
			t.Fatalf("duplicate ID %s", p.ID())
		}
		seen[p.ID()] = true
	}
}

func TestPointType_Capabilities(t *testing.T) {
	tests := []struct {
		typ         PointType
		source      bool
		destination bool
	}{
		{PointInput, false, true},
		{PointOutput, true, false},
		{PointSend, true, false},
		{PointReturn, false, true},
		{PointSidechain, false, true},
		{PointGroup, true, true},
		{PointMaster, true, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			if got := tt.typ.CanBeSource(); got != tt.source {
				t.Errorf("CanBeSource() = %v, want %v", got, tt.source)
			}
			if got := tt.typ.CanBeDestination(); got != tt.destination {
				t.Errorf("CanBeDestination() = %v, want %v", got, tt.destination)
			}
		})
	}
}

func TestPoint_IsCompatibleWith(t *testing.T) {
	out := mustPoint(t, "Out", PointOutput)
	in := mustPoint(t, "In", PointInput)
	grp := mustPoint(t, "Grp", PointGroup)
	master := mustPoint(t, "Master", PointMaster)

	tests := []struct {
		name string
		src  *Point
		dst  *Point
		want bool
	}{
		{"output to input", out, in, true},
		{"output to group", out, grp, true},
		{"group to master", grp, master, true},
		{"input to group", in, grp, false},
		{"output to output", out, out, false},
		{"group to itself", grp, grp, false},
		{"nil destination", out, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.src.IsCompatibleWith(tt.dst); got != tt.want {
				t.Errorf("IsCompatibleWith() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParsePointType(t *testing.T) {
	got, err := ParsePointType(" Sidechain ")
	if err != nil {
		t.Fatalf("ParsePointType() error = %v", err)
	}
	if got != PointSidechain {
		t.Errorf("ParsePointType() = %q, want %q", got, PointSidechain)
	}

	if _, err := ParsePointType("bogus"); !errors.Is(err, ErrInvalidPoint) {
		t.Errorf("ParsePointType(bogus) error = %v, want ErrInvalidPoint", err)
	}
}

func TestPoint_SetName(t *testing.T) {
	p := mustPoint(t, "Old", PointGroup)

	if err := p.SetName("New"); err != nil {
		t.Fatalf("SetName() error = %v", err)
	}
	if p.Name() != "New" {
		t.Errorf("Name() = %q, want New", p.Name())
	}
	if err := p.SetName(""); !errors.Is(err, ErrInvalidPoint) {
		t.Errorf("SetName(\"\") error = %v, want ErrInvalidPoint", err)
	}
	if p.Name() != "New" {
		t.Errorf("failed rename changed name to %q", p.Name())
	}
}

func TestPoint_SetActive(t *testing.T) {
	p := mustPoint(t, "P", PointGroup)

	if p.SetActive(true) {
		t.Error("SetActive(true) on active point should report no change")
	}
	if !p.SetActive(false) {
		t.Error("SetActive(false) should report a change")
	}
	if p.Active() {
		t.Error("point should be inactive")
	}
}

func mustPoint(t testing.TB, name string, typ PointType) *Point {
	t.Helper()
	p, err := NewPoint(name, typ, 2)
	if err != nil {
		t.Fatalf("NewPoint(%q) error = %v", name, err)
	}
	return p
}
