package vca

import "errors"

// Domain errors for the vca package.
var (
	// ErrAlreadyGrouped is returned when a fader is added to a group while
	// it belongs to a different group.
	ErrAlreadyGrouped = errors.New("vca: fader already belongs to another group")

	// ErrNotManaged is returned when a fader or group was not created by
	// the Manager (or has been removed from it).
	ErrNotManaged = errors.New("vca: object not managed by this manager")

	// ErrCircularGroup is returned when a parent assignment would make a
	// group its own ancestor.
	ErrCircularGroup = errors.New("vca: circular group nesting")

	// ErrGroupTooDeep is returned when nesting would exceed MaxGroupDepth.
	ErrGroupTooDeep = errors.New("vca: group nesting too deep")

	// ErrInvalidName is returned when a fader or group name is empty.
	ErrInvalidName = errors.New("vca: name is required")

	// ErrNilFader is returned when a nil fader is passed to a group.
	ErrNilFader = errors.New("vca: fader is nil")

	// ErrFaderNotFound is returned when a fader ID does not exist.
	ErrFaderNotFound = errors.New("vca: fader not found")

	// ErrGroupNotFound is returned when a group ID does not exist.
	ErrGroupNotFound = errors.New("vca: group not found")
)
