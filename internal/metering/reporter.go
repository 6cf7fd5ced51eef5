package metering

import (
	"context"
	"time"

	"github.com/nerrad567/mixroute-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/mixroute-core/internal/routing"
	"github.com/nerrad567/mixroute-core/internal/sidechain"
	"github.com/nerrad567/mixroute-core/internal/vca"
)

// Measurement names.
const (
	MeasurementBus    = "sidechain_bus"
	MeasurementFader  = "vca_fader"
	MeasurementMatrix = "routing_matrix"
)

const defaultInterval = 5 * time.Second

// Writer stores a telemetry point. *influxdb.Client implements it.
type Writer interface {
	WritePoint(measurement string, tags map[string]string, fields map[string]any, ts time.Time)
}

// Publisher sends a JSON payload to a topic. *mqtt.Client implements it.
type Publisher interface {
	PublishJSON(topic string, v any) error
}

// Logger is the logging interface used by the reporter.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Deps holds the reporter's sources and sinks. Any source may be nil.
// Writer is required; Publisher is optional.
type Deps struct {
	Instance  string
	Interval  time.Duration
	Matrix    *routing.Matrix
	VCA       *vca.Manager
	Buses     *sidechain.BusManager
	Writer    Writer
	Publisher Publisher
	Logger    Logger
}

// Reporter writes a telemetry snapshot on every tick.
type Reporter struct {
	deps Deps
	now  func() time.Time
}

// NewReporter creates a reporter. A zero interval uses five seconds.
func NewReporter(deps Deps) *Reporter {
	if deps.Interval <= 0 {
		deps.Interval = defaultInterval
	}
	if deps.Logger == nil {
		deps.Logger = noopLogger{}
	}
	return &Reporter{deps: deps, now: time.Now}
}

// Run reports every interval until ctx is cancelled.
func (r *Reporter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.deps.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Report()
		}
	}
}

// Report writes one snapshot and returns the number of points written.
func (r *Reporter) Report() int {
	if r.deps.Writer == nil {
		return 0
	}
	ts := r.now().UTC()
	n := r.reportBuses(ts) + r.reportFaders(ts) + r.reportMatrix(ts)
	r.deps.Logger.Debug("metering report written", "points", n)
	return n
}

// BusMeter is the MQTT payload for one bus.
type BusMeter struct {
	BusID     string           `json:"bus_id"`
	Meters    sidechain.Meters `json:"meters"`
	Timestamp time.Time        `json:"timestamp"`
}

func (r *Reporter) reportBuses(ts time.Time) int {
	if r.deps.Buses == nil {
		return 0
	}
	n := 0
	for _, b := range r.deps.Buses.Buses() {
		m := b.Meters()
		r.deps.Writer.WritePoint(MeasurementBus,
			map[string]string{"bus_id": b.ID()},
			map[string]any{
				"envelope": maxOf(m.Envelope),
				"peak":     maxOf(m.Peak),
				"rms":      maxOf(m.RMS),
			}, ts)
		n++

		if r.deps.Publisher != nil {
			err := r.deps.Publisher.PublishJSON(mqtt.Topics{}.CoreMeter(b.ID()), BusMeter{BusID: b.ID(), Meters: m, Timestamp: ts})
			if err != nil {
				r.deps.Logger.Warn("meter publish failed", "bus_id", b.ID(), "error", err)
			}
		}
	}
	return n
}

func (r *Reporter) reportFaders(ts time.Time) int {
	if r.deps.VCA == nil {
		return 0
	}
	faders := r.deps.VCA.Faders()
	for _, f := range faders {
		r.deps.Writer.WritePoint(MeasurementFader,
			map[string]string{"fader_id": f.ID(), "name": f.Name()},
			map[string]any{
				"volume":    f.Volume(),
				"effective": f.EffectiveVolume(),
			}, ts)
	}
	return len(faders)
}

func (r *Reporter) reportMatrix(ts time.Time) int {
	if r.deps.Matrix == nil {
		return 0
	}
	stats := r.deps.Matrix.GetStats()
	r.deps.Writer.WritePoint(MeasurementMatrix,
		map[string]string{"instance": r.deps.Instance},
		map[string]any{
			"points":         stats.Points,
			"routes":         stats.Routes,
			"enabled_routes": stats.EnabledRoutes,
		}, ts)
	return 1
}

// maxOf returns the loudest channel.
func maxOf(values []float64) float64 {
	m := 0.0
	for _, v := range values {
		m = max(m, v)
	}
	return m
}
