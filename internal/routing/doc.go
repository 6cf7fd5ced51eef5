// Package routing provides the signal-routing graph for the mixroute engine.
//
// The graph connects named routing points (track outputs, bus inputs, sends,
// returns, sidechain taps, group buses, master) through gain-bearing routes
// that can be enabled, disabled and latency-compensated. It carries no
// samples itself; it answers which endpoints exist, which are connected, at
// what gain, and whether the topology is free of feedback.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────────────┐
//	│                              Matrix                                   │
//	│                                                                       │
//	│   points  map[id]*Point         routes  map[id]*Route                 │
//	│   bySource      map[pointID]set[routeID]                              │
//	│   byDestination map[pointID]set[routeID]                              │
//	│                                                                       │
//	│   CreateRoute ─▶ unregistered? ─▶ self? ─▶ compatible? ─▶ duplicate?  │
//	│                 ─▶ DetectFeedback (DFS over enabled edges) ─▶ insert  │
//	└──────────────────────────────────────────────────────────────────────┘
//	            │ events (after unlock)                │ read-only
//	            ▼                                      ▼
//	   relay / API / metering                 audio thread: EffectiveGain,
//	                                          Process, MixInto, RoutesTo
//
// Points are an arena keyed by ID. Routes refer to their two endpoints but
// points never refer back to routes, so there are no ownership cycles.
//
// # Invariants
//
//   - At most one route per ordered (source, destination) pair.
//   - The graph of enabled routes is acyclic.
//   - bySource and byDestination always agree with routes.
//
// All checks run before any mutation; a rejected operation commits nothing.
//
// # Thread Safety
//
// A Matrix is safe for concurrent use. Control-side mutations are
// serialised through one RWMutex. Event handlers run after the lock is
// released, so a handler may query the matrix. Query methods return
// snapshots; callers iterating routes while rendering audio should take a
// snapshot (RoutesTo) and release the matrix before calling into DSP code.
//
// Clear and Close release latency buffers. They must only be called once
// the audio thread has stopped reading from the matrix's routes.
//
// # Usage
//
//	m := routing.NewMatrix()
//	m.SetLogger(log)
//
//	out, _ := routing.NewPoint("Drums Out", routing.PointOutput, 2)
//	master, _ := routing.NewPoint("Master", routing.PointMaster, 2)
//	m.RegisterPoint(out)
//	m.RegisterPoint(master)
//
//	route, err := m.CreateRoute(out.ID(), master.ID(), -3)
//	if errors.Is(err, routing.ErrFeedbackLoop) {
//	    // change the topology; retrying will fail again
//	}
package routing
