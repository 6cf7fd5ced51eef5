package metering

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/mixroute-core/internal/routing"
	"github.com/nerrad567/mixroute-core/internal/sidechain"
	"github.com/nerrad567/mixroute-core/internal/vca"
)

type writtenPoint struct {
	measurement string
	tags        map[string]string
	fields      map[string]any
}

type fakeWriter struct {
	mu     sync.Mutex
	points []writtenPoint
}

func (w *fakeWriter) WritePoint(measurement string, tags map[string]string, fields map[string]any, _ time.Time) {
	w.mu.Lock()
	w.points = append(w.points, writtenPoint{measurement, tags, fields})
	w.mu.Unlock()
}

func (w *fakeWriter) byMeasurement(name string) []writtenPoint {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []writtenPoint
	for _, p := range w.points {
		if p.measurement == name {
			out = append(out, p)
		}
	}
	return out
}

type fakePublisher struct {
	topics []string
	err    error
}

func (p *fakePublisher) PublishJSON(topic string, _ any) error {
	p.topics = append(p.topics, topic)
	return p.err
}

func newSession(t *testing.T) (*routing.Matrix, *vca.Manager, *sidechain.BusManager) {
	t.Helper()

	m := routing.NewMatrix()
	out, _ := routing.NewPoint("Kick", routing.PointOutput, 1)
	master, _ := routing.NewPoint("Master", routing.PointMaster, 2)
	m.RegisterPoint(out)
	m.RegisterPoint(master)
	if _, err := m.CreateRoute(out.ID(), master.ID(), -6); err != nil {
		t.Fatalf("CreateRoute() error = %v", err)
	}

	vm := vca.NewManager()
	f, err := vm.CreateFader("Kick", 1)
	if err != nil {
		t.Fatalf("CreateFader() error = %v", err)
	}
	g, _ := vm.CreateGroup("Drums")
	g.SetVolume(0.5)
	if err := vm.LinkFaderToGroup(f, g); err != nil {
		t.Fatalf("LinkFaderToGroup() error = %v", err)
	}

	buses, err := sidechain.NewBusManager(sidechain.DefaultBusConfig())
	if err != nil {
		t.Fatalf("NewBusManager() error = %v", err)
	}
	bus, _, _ := buses.GetOrCreateBus("kick-bus", "Kick SC")
	bus.Process([]float32{0.8, -0.8, 0.8, -0.8})

	return m, vm, buses
}

func TestReport(t *testing.T) {
	m, vm, buses := newSession(t)
	w := &fakeWriter{}
	pub := &fakePublisher{}

	r := NewReporter(Deps{
		Instance:  "studio-a",
		Matrix:    m,
		VCA:       vm,
		Buses:     buses,
		Writer:    w,
		Publisher: pub,
	})

	if n := r.Report(); n != 3 {
		t.Errorf("Report() = %d points, want 3", n)
	}

	busPoints := w.byMeasurement(MeasurementBus)
	if len(busPoints) != 1 || busPoints[0].tags["bus_id"] != "kick-bus" {
		t.Fatalf("bus points = %+v", busPoints)
	}
	if peak := busPoints[0].fields["peak"].(float64); peak < 0.79 {
		t.Errorf("peak = %v, want about 0.8", peak)
	}

	faderPoints := w.byMeasurement(MeasurementFader)
	if len(faderPoints) != 1 {
		t.Fatalf("fader points = %+v", faderPoints)
	}
	if eff := faderPoints[0].fields["effective"].(float64); eff != 0.5 {
		t.Errorf("effective = %v, want 0.5", eff)
	}

	matrixPoints := w.byMeasurement(MeasurementMatrix)
	if len(matrixPoints) != 1 {
		t.Fatalf("matrix points = %+v", matrixPoints)
	}
	if matrixPoints[0].fields["routes"] != 1 || matrixPoints[0].tags["instance"] != "studio-a" {
		t.Errorf("matrix point = %+v", matrixPoints[0])
	}

	if len(pub.topics) != 1 || pub.topics[0] != "mixroute/core/meter/kick-bus" {
		t.Errorf("published topics = %v", pub.topics)
	}
}

func TestReport_NilSources(t *testing.T) {
	w := &fakeWriter{}
	r := NewReporter(Deps{Writer: w})
	if n := r.Report(); n != 0 {
		t.Errorf("Report() = %d, want 0", n)
	}
}

func TestReport_NoWriter(t *testing.T) {
	m, _, _ := newSession(t)
	r := NewReporter(Deps{Matrix: m})
	if n := r.Report(); n != 0 {
		t.Errorf("Report() without writer = %d, want 0", n)
	}
}

func TestReport_PublishErrorIsNotFatal(t *testing.T) {
	_, _, buses := newSession(t)
	w := &fakeWriter{}
	r := NewReporter(Deps{Buses: buses, Writer: w, Publisher: &fakePublisher{err: errors.New("offline")}})

	if n := r.Report(); n != 1 {
		t.Errorf("Report() = %d, want 1", n)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	m, _, _ := newSession(t)
	w := &fakeWriter{}
	r := NewReporter(Deps{Matrix: m, Writer: w, Interval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for len(w.byMeasurement(MeasurementMatrix)) < 2 {
		select {
		case <-deadline:
			t.Fatal("reporter did not tick")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestMaxOf(t *testing.T) {
	if got := maxOf([]float64{0.1, 0.7, 0.3}); got != 0.7 {
		t.Errorf("maxOf() = %v, want 0.7", got)
	}
	if got := maxOf(nil); got != 0 {
		t.Errorf("maxOf(nil) = %v, want 0", got)
	}
}
