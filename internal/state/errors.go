package state

import "errors"

// Domain errors for the state store.
var (
	// ErrUnknownPath is returned for paths missing from the object schema.
	ErrUnknownPath = errors.New("state: unknown path")

	// ErrReadOnly is returned when a command targets a path that is not writable.
	ErrReadOnly = errors.New("state: path is read-only")

	ErrInvalidPath = errors.New("state: invalid path")
	ErrInvalidType = errors.New("state: value does not match object type")
)
