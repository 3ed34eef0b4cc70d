package domain

import "errors"

// ErrElementNotFound is returned when an element ID cannot be resolved.
var ErrElementNotFound = errors.New("element not found")

// ErrDependencyNotFound is returned when removing an edge that does not exist.
var ErrDependencyNotFound = errors.New("dependency not found")

// ErrStatusComputed is returned when a client attempts to write the blocked
// status directly. Blocked is computed by the engine, never accepted as input.
var ErrStatusComputed = errors.New("status \"blocked\" is computed and cannot be set directly")

// ErrValidation is the root of all input validation failures.
var ErrValidation = errors.New("validation failed")

// ValidationError reports a malformed field on client input. It unwraps to
// ErrValidation so callers can classify without inspecting the struct.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
