package luavm

import "errors"

// Errors for VM operations.
var (
	// ErrNoCode is returned when a breakpoint line has no statement at or
	// after it.
	ErrNoCode = errors.New("no code at or after line")

	// ErrUnknownSource is returned for a source id or filename the VM did
	// not compile.
	ErrUnknownSource = errors.New("unknown source")

	// ErrUnknownBreakpoint is returned for a breakpoint number the VM does
	// not hold.
	ErrUnknownBreakpoint = errors.New("unknown breakpoint")

	// ErrBadCondition is returned when a condition is not a Lua expression.
	ErrBadCondition = errors.New("invalid condition")

	// ErrNotStopped is returned when stop state is queried while the
	// program is not suspended.
	ErrNotStopped = errors.New("program is not stopped")

	// ErrUnknownSignal is returned for a signal the VM cannot act on.
	ErrUnknownSignal = errors.New("unknown signal")

	// ErrAborted is returned by Run when the program was aborted.
	ErrAborted = errors.New("program aborted")
)
