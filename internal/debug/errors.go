package debug

import (
	"errors"
	"fmt"
)

// Errors returned by debugger operations.
var (
	// ErrNotFound indicates a breakpoint, line source or window lookup miss.
	ErrNotFound = errors.New("not found")

	// ErrFileUnresolvable indicates the UI could not locate a source file.
	ErrFileUnresolvable = errors.New("source file could not be resolved")

	// ErrRuntimeRejected indicates the runtime declined a breakpoint.
	ErrRuntimeRejected = errors.New("runtime rejected breakpoint")

	// ErrConfigFieldMissing indicates a saved record lacks a required field.
	ErrConfigFieldMissing = errors.New("configuration field missing")

	// ErrNoRuntime indicates an operation needs an attached runtime.
	ErrNoRuntime = errors.New("no runtime attached")

	// ErrInvalidLine indicates a line number below 1.
	ErrInvalidLine = errors.New("invalid line number")

	// ErrEmptyCondition indicates a global breakpoint without a condition.
	ErrEmptyCondition = errors.New("global breakpoint needs a condition")
)

// FieldError describes a missing or malformed field of a saved record.
type FieldError struct {
	Group string
	Field string
	Index int
	Err   error
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	return fmt.Sprintf("%s.%s[%d]: %v", e.Group, e.Field, e.Index, e.Err)
}

// Unwrap returns the underlying error.
func (e *FieldError) Unwrap() error {
	return e.Err
}

func notFound(what string, key any) error {
	return fmt.Errorf("%s %v: %w", what, key, ErrNotFound)
}
