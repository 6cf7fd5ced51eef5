package sidechain

import "errors"

// Domain errors for the sidechain package.
var (
	// ErrEmptyName is returned when a route's source or target name, or a
	// bus ID, is empty.
	ErrEmptyName = errors.New("sidechain: name is required")

	// ErrNotManaged is returned when a route was not created by the
	// matrix, or has been removed from it.
	ErrNotManaged = errors.New("sidechain: route not managed by this matrix")

	// ErrRouteNotFound is returned when a route ID does not exist.
	ErrRouteNotFound = errors.New("sidechain: route not found")

	// ErrBusNotFound is returned when a bus ID does not exist.
	ErrBusNotFound = errors.New("sidechain: bus not found")

	// ErrInvalidBusConfig is returned when bus parameters are out of range.
	ErrInvalidBusConfig = errors.New("sidechain: invalid bus configuration")
)
