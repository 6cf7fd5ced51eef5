package routing

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// FeedbackResult reports whether a candidate route would close a cycle.
// Path lists point IDs from the candidate destination to the candidate
// source along existing enabled routes.
type FeedbackResult struct {
	HasFeedback bool     `json:"has_feedback"`
	Path        []string `json:"path,omitempty"`
}

// DetectFeedback reports whether a route from sourceID to destinationID
// would create a cycle, i.e. whether destinationID already reaches
// sourceID through enabled routes. Identical IDs always report feedback.
//
// The walk is iterative and tolerates cycles already present in the graph.
func (m *Matrix) DetectFeedback(sourceID, destinationID string) FeedbackResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.detectFeedbackLocked(sourceID, destinationID)
}

func (m *Matrix) detectFeedbackLocked(sourceID, destinationID string) FeedbackResult {
	if sourceID == destinationID {
		return FeedbackResult{HasFeedback: true, Path: []string{sourceID}}
	}

	start := time.Now()
	defer func() { feedbackChecks.Observe(time.Since(start).Seconds()) }()

	parent := make(map[string]string)
	visited := map[string]struct{}{destinationID: {}}
	stack := []string{destinationID}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for rid := range m.bySource[current] {
			r, ok := m.routes[rid]
			if !ok {
				m.logger.Error("index references missing route", "route_id", rid, "point_id", current)
				continue
			}
			if !r.Enabled() {
				continue
			}
			next := r.DestinationID()
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = struct{}{}
			parent[next] = current
			if next == sourceID {
				return FeedbackResult{HasFeedback: true, Path: walkBack(parent, destinationID, sourceID)}
			}
			stack = append(stack, next)
		}
	}
	return FeedbackResult{}
}

// walkBack rebuilds the path from..to by following parent links from to.
func walkBack(parent map[string]string, from, to string) []string {
	path := []string{to}
	for node := to; node != from; {
		node = parent[node]
		path = append(path, node)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// describePathLocked renders point IDs as "A -> B -> C" using names.
func (m *Matrix) describePathLocked(path []string) string {
	names := make([]string, len(path))
	for i, id := range path {
		if p, ok := m.points[id]; ok {
			names[i] = p.Name()
		} else {
			names[i] = id
		}
	}
	return strings.Join(names, " -> ")
}

// FindCycles returns the strongly connected components of the enabled
// graph that contain more than one point. Each component lists point IDs
// in registration order. An empty result proves the graph is acyclic.
func (m *Matrix) FindCycles() [][]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	nodes := make([]*Point, 0, len(m.points))
	for _, p := range m.points {
		nodes = append(nodes, p)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].seq < nodes[j].seq })

	t := tarjan{
		m:       m,
		index:   make(map[string]int, len(nodes)),
		lowlink: make(map[string]int, len(nodes)),
		onStack: make(map[string]bool, len(nodes)),
	}
	for _, p := range nodes {
		if _, seen := t.index[p.ID()]; !seen {
			t.visit(p.ID())
		}
	}

	for _, scc := range t.components {
		sort.Slice(scc, func(i, j int) bool {
			return m.points[scc[i]].seq < m.points[scc[j]].seq
		})
	}
	return t.components
}

// tarjan holds the state of an iterative Tarjan SCC walk.
type tarjan struct {
	m          *Matrix
	counter    int
	index      map[string]int
	lowlink    map[string]int
	onStack    map[string]bool
	stack      []string
	components [][]string
}

// frame is one entry of the explicit call stack.
type frame struct {
	node string
	succ []string
	next int
}

func (t *tarjan) successors(node string) []string {
	var out []string
	for rid := range t.m.bySource[node] {
		if r, ok := t.m.routes[rid]; ok && r.Enabled() {
			out = append(out, r.DestinationID())
		}
	}
	return out
}

func (t *tarjan) push(node string) frame {
	t.index[node] = t.counter
	t.lowlink[node] = t.counter
	t.counter++
	t.stack = append(t.stack, node)
	t.onStack[node] = true
	return frame{node: node, succ: t.successors(node)}
}

func (t *tarjan) visit(root string) {
	calls := []frame{t.push(root)}

	for len(calls) > 0 {
		top := &calls[len(calls)-1]

		if top.next < len(top.succ) {
			w := top.succ[top.next]
			top.next++
			if _, seen := t.index[w]; !seen {
				calls = append(calls, t.push(w))
			} else if t.onStack[w] {
				t.lowlink[top.node] = min(t.lowlink[top.node], t.index[w])
			}
			continue
		}

		v := top.node
		calls = calls[:len(calls)-1]
		if len(calls) > 0 {
			parent := calls[len(calls)-1].node
			t.lowlink[parent] = min(t.lowlink[parent], t.lowlink[v])
		}

		if t.lowlink[v] != t.index[v] {
			continue
		}
		var scc []string
		for {
			w := t.stack[len(t.stack)-1]
			t.stack = t.stack[:len(t.stack)-1]
			t.onStack[w] = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		if len(scc) > 1 {
			t.components = append(t.components, scc)
		}
	}
}

// Verify checks that bySource and byDestination agree with the route table
// and that every route's endpoints are registered. Any mismatch is logged
// at error level and returned wrapped in ErrIndexCorrupt.
func (m *Matrix) Verify() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var errs []error
	for id, r := range m.routes {
		if _, ok := m.points[r.SourceID()]; !ok {
			errs = append(errs, fmt.Errorf("route %s: source %s not registered", id, r.SourceID()))
		}
		if _, ok := m.points[r.DestinationID()]; !ok {
			errs = append(errs, fmt.Errorf("route %s: destination %s not registered", id, r.DestinationID()))
		}
		if _, ok := m.bySource[r.SourceID()][id]; !ok {
			errs = append(errs, fmt.Errorf("route %s: missing from source index", id))
		}
		if _, ok := m.byDestination[r.DestinationID()][id]; !ok {
			errs = append(errs, fmt.Errorf("route %s: missing from destination index", id))
		}
	}
	errs = append(errs, m.verifyIndexLocked("source", m.bySource, (*Route).SourceID)...)
	errs = append(errs, m.verifyIndexLocked("destination", m.byDestination, (*Route).DestinationID)...)

	if len(errs) == 0 {
		return nil
	}
	err := errors.Join(errs...)
	m.logger.Error("routing index inconsistent", "problems", len(errs), "error", err)
	return fmt.Errorf("%w: %w", ErrIndexCorrupt, err)
}

func (m *Matrix) verifyIndexLocked(name string, index map[string]routeSet, endpoint func(*Route) string) []error {
	var errs []error
	for pointID, set := range index {
		for rid := range set {
			r, ok := m.routes[rid]
			if !ok {
				errs = append(errs, fmt.Errorf("%s index %s: unknown route %s", name, pointID, rid))
				continue
			}
			if endpoint(r) != pointID {
				errs = append(errs, fmt.Errorf("%s index %s: route %s belongs to %s", name, pointID, rid, endpoint(r)))
			}
		}
	}
	return errs
}
