package main

import (
	"fmt"
	"strings"

	"github.com/nerrad567/mixroute-core/internal/infrastructure/config"
	"github.com/nerrad567/mixroute-core/internal/infrastructure/logging"
	"github.com/nerrad567/mixroute-core/internal/routing"
	"github.com/nerrad567/mixroute-core/internal/sidechain"
	"github.com/nerrad567/mixroute-core/internal/vca"
)

// defaultPointChannels is used when a layout point omits channels.
const defaultPointChannels = 2

// engine groups the routing graph and its overlays.
type engine struct {
	matrix    *routing.Matrix
	vca       *vca.Manager
	sidechain *sidechain.Matrix
	buses     *sidechain.BusManager
}

// layoutSummary counts what applyLayout created.
type layoutSummary struct {
	Points          int
	Routes          int
	Groups          int
	Faders          int
	Buses           int
	SidechainRoutes int
}

// busConfig derives the sidechain detector defaults from the engine and
// sidechain sections.
func busConfig(cfg *config.Config) sidechain.BusConfig {
	return sidechain.BusConfig{
		SampleRate:  cfg.Engine.SampleRate,
		Channels:    cfg.Sidechain.Channels,
		AttackMS:    cfg.Sidechain.AttackMS,
		ReleaseMS:   cfg.Sidechain.ReleaseMS,
		RMSWindowMS: cfg.Sidechain.RMSWindowMS,
		PeakDecay:   cfg.Sidechain.PeakDecay,
		HighPassHz:  cfg.Sidechain.HighPassHz,
	}
}

// newEngine creates the domain components and gives each a tagged logger.
func newEngine(cfg *config.Config, log *logging.Logger) (*engine, error) {
	buses, err := sidechain.NewBusManager(busConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("creating sidechain bus manager: %w", err)
	}

	e := &engine{
		matrix:    routing.NewMatrix(),
		vca:       vca.NewManager(),
		sidechain: sidechain.NewMatrix(),
		buses:     buses,
	}
	e.matrix.SetLogger(log.Component("routing"))
	e.vca.SetLogger(log.Component("vca"))
	e.sidechain.SetLogger(log.Component("sidechain"))
	e.buses.SetLogger(log.Component("sidechain"))
	return e, nil
}

// close releases route delay lines and drops overlay state. The audio
// thread must already be stopped.
func (e *engine) close() {
	e.sidechain.Clear()
	e.matrix.Close()
}

// applyLayout seeds the engine from the layout section. Points and groups
// are referenced by name, buses by ID. The first failure aborts; anything
// created before it stays in place.
//
// Parameters:
//   - e: Engine to populate
//   - layout: Startup layout from configuration
//
// Returns:
//   - layoutSummary: Counts of created objects
//   - error: First object that could not be created or wired
func applyLayout(e *engine, layout config.LayoutConfig) (layoutSummary, error) {
	var sum layoutSummary

	for i, spec := range layout.Points {
		if err := applyPoint(e.matrix, spec); err != nil {
			return sum, fmt.Errorf("layout.points[%d] %q: %w", i, spec.Name, err)
		}
		sum.Points++
	}

	for i, spec := range layout.Routes {
		if err := applyRoute(e.matrix, spec); err != nil {
			return sum, fmt.Errorf("layout.routes[%d] %s -> %s: %w", i, spec.Source, spec.Destination, err)
		}
		sum.Routes++
	}

	groups := make(map[string]*vca.Group, len(layout.Groups))
	for i, spec := range layout.Groups {
		key := strings.ToLower(strings.TrimSpace(spec.Name))
		if _, dup := groups[key]; dup {
			return sum, fmt.Errorf("layout.groups[%d]: duplicate group name %q", i, spec.Name)
		}
		g, err := e.vca.CreateGroup(spec.Name)
		if err != nil {
			return sum, fmt.Errorf("layout.groups[%d]: %w", i, err)
		}
		if spec.Volume != nil {
			g.SetVolume(*spec.Volume)
		}
		g.SetMute(spec.Muted)
		groups[key] = g
		sum.Groups++
	}
	// Parents are resolved after every group exists so order does not matter.
	for i, spec := range layout.Groups {
		if spec.Parent == "" {
			continue
		}
		parent, ok := groups[strings.ToLower(strings.TrimSpace(spec.Parent))]
		if !ok {
			return sum, fmt.Errorf("layout.groups[%d]: %w: parent %q", i, vca.ErrGroupNotFound, spec.Parent)
		}
		child := groups[strings.ToLower(strings.TrimSpace(spec.Name))]
		if err := e.vca.SetGroupParent(child, parent); err != nil {
			return sum, fmt.Errorf("layout.groups[%d]: %w", i, err)
		}
	}

	for i, spec := range layout.Faders {
		volume := 1.0
		if spec.Volume != nil {
			volume = *spec.Volume
		}
		f, err := e.vca.CreateFader(spec.Name, volume)
		if err != nil {
			return sum, fmt.Errorf("layout.faders[%d]: %w", i, err)
		}
		sum.Faders++
		if spec.Group == "" {
			continue
		}
		g, ok := groups[strings.ToLower(strings.TrimSpace(spec.Group))]
		if !ok {
			return sum, fmt.Errorf("layout.faders[%d]: %w: %q", i, vca.ErrGroupNotFound, spec.Group)
		}
		if err := e.vca.LinkFaderToGroup(f, g); err != nil {
			return sum, fmt.Errorf("layout.faders[%d]: %w", i, err)
		}
	}

	for i, spec := range layout.SidechainBuses {
		b, created, err := e.buses.GetOrCreateBus(spec.ID, spec.Name)
		if err != nil {
			return sum, fmt.Errorf("layout.sidechain_buses[%d]: %w", i, err)
		}
		if !created {
			return sum, fmt.Errorf("layout.sidechain_buses[%d]: duplicate bus id %q", i, spec.ID)
		}
		if spec.InputGain != 0 {
			b.SetInputGain(spec.InputGain)
		}
		if spec.HighPassHz != 0 {
			if err := b.SetHighPass(spec.HighPassHz); err != nil {
				return sum, fmt.Errorf("layout.sidechain_buses[%d]: %w", i, err)
			}
		}
		sum.Buses++
	}

	for i, spec := range layout.SidechainRoutes {
		if err := applySidechainRoute(e, spec); err != nil {
			return sum, fmt.Errorf("layout.sidechain_routes[%d] %s -> %s: %w", i, spec.Source, spec.Target, err)
		}
		sum.SidechainRoutes++
	}

	return sum, nil
}

func applyPoint(m *routing.Matrix, spec config.PointSpec) error {
	if m.PointByName(spec.Name) != nil {
		return fmt.Errorf("%w: duplicate name", routing.ErrInvalidPoint)
	}
	typ, err := routing.ParsePointType(spec.Type)
	if err != nil {
		return err
	}
	channels := spec.Channels
	if channels == 0 {
		channels = defaultPointChannels
	}
	p, err := routing.NewPoint(spec.Name, typ, channels)
	if err != nil {
		return err
	}
	p.SetTrackID(spec.TrackID)
	p.SetEffectID(spec.EffectID)
	m.RegisterPoint(p)
	return nil
}

func applyRoute(m *routing.Matrix, spec config.RouteSpec) error {
	src := m.PointByName(spec.Source)
	if src == nil {
		return fmt.Errorf("%w: source %q", routing.ErrPointNotFound, spec.Source)
	}
	dst := m.PointByName(spec.Destination)
	if dst == nil {
		return fmt.Errorf("%w: destination %q", routing.ErrPointNotFound, spec.Destination)
	}

	r, err := m.CreateRoute(src.ID(), dst.ID(), spec.GainDB)
	if err != nil {
		return err
	}
	r.SetPreFader(spec.PreFader)
	r.SetPreInsert(spec.PreInsert)
	if spec.LatencySamples > 0 {
		if err := m.SetRouteLatency(r.ID(), spec.LatencySamples); err != nil {
			return err
		}
	}
	if spec.Disabled {
		return m.SetRouteEnabled(r.ID(), false)
	}
	return nil
}

func applySidechainRoute(e *engine, spec config.SidechainRouteSpec) error {
	r, err := e.sidechain.CreateRoute(spec.Source, spec.Target)
	if err != nil {
		return err
	}
	if spec.Bus != "" {
		b := e.buses.Bus(spec.Bus)
		if b == nil {
			return fmt.Errorf("%w: %q", sidechain.ErrBusNotFound, spec.Bus)
		}
		if err := e.sidechain.AssignSource(r, b); err != nil {
			return err
		}
	}
	if spec.Effect != "" {
		if err := e.sidechain.AssignTarget(r, sidechain.EffectID(spec.Effect)); err != nil {
			return err
		}
	}
	if spec.Gain != 0 {
		if _, err := e.sidechain.SetGain(r, spec.Gain); err != nil {
			return err
		}
	}
	return nil
}
