package routing

import "errors"

// Domain errors for the routing package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, routing.ErrFeedbackLoop) {
//	    // reject the edit in the UI
//	}
var (
	// ErrInvalidPoint is returned when a point has an empty name, an
	// unknown type or fewer than one channel.
	ErrInvalidPoint = errors.New("routing: invalid point")

	// ErrInvalidSelfRoute is returned when a route is constructed with the
	// same point as source and destination.
	ErrInvalidSelfRoute = errors.New("routing: route cannot connect a point to itself")

	// ErrIncompatibleEndpoints is returned when the source cannot feed the
	// destination (or either endpoint is missing).
	ErrIncompatibleEndpoints = errors.New("routing: incompatible endpoints")

	// ErrUnregisteredEndpoint is returned when a route references a point
	// that is not registered in the matrix.
	ErrUnregisteredEndpoint = errors.New("routing: endpoint not registered")

	// ErrDuplicateRoute is returned when a route already exists for the
	// ordered (source, destination) pair.
	ErrDuplicateRoute = errors.New("routing: duplicate route")

	// ErrFeedbackLoop is returned when a route would close a cycle through
	// enabled routes. Retrying with the same arguments always fails.
	ErrFeedbackLoop = errors.New("routing: feedback loop")

	// ErrPointNotFound is returned when a point ID does not exist.
	ErrPointNotFound = errors.New("routing: point not found")

	// ErrRouteNotFound is returned when a route ID does not exist.
	ErrRouteNotFound = errors.New("routing: route not found")

	// ErrIndexCorrupt is reported by Verify when the adjacency indices
	// disagree with the route table. It indicates a bug in this package.
	ErrIndexCorrupt = errors.New("routing: index inconsistent with routes")
)
