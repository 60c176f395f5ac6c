package debug

import "strings"

// NoSource is the source id of windows not tied to a line source.
const NoSource = -1

// Handle identifies a window created by the UI. The zero Handle is invalid.
type Handle uint64

// LineFlags is the status bitmask of a single source line.
type LineFlags uint8

const (
	// FlagBreakpoint marks a line holding a breakpoint.
	FlagBreakpoint LineFlags = 1 << iota
	// FlagBreakpointDisabled marks a breakpoint that is disabled.
	FlagBreakpointDisabled
	// FlagBreakpointConditional marks a breakpoint with a condition.
	FlagBreakpointConditional
	// FlagCurrentLine marks the execution point.
	FlagCurrentLine
	// FlagContextLine marks the line of the inspected non-top stack frame.
	FlagContextLine
)

// BreakpointFlags are the flags owned by breakpoints.
const BreakpointFlags = FlagBreakpoint | FlagBreakpointDisabled | FlagBreakpointConditional

// Has reports whether all bits of f are set.
func (l LineFlags) Has(f LineFlags) bool {
	return l&f == f
}

// String returns a "|"-separated list of set flags.
func (l LineFlags) String() string {
	if l == 0 {
		return "none"
	}
	names := []struct {
		flag LineFlags
		name string
	}{
		{FlagBreakpoint, "breakpoint"},
		{FlagBreakpointDisabled, "disabled"},
		{FlagBreakpointConditional, "conditional"},
		{FlagCurrentLine, "current"},
		{FlagContextLine, "context"},
	}
	var parts []string
	for _, n := range names {
		if l.Has(n.flag) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// WindowKind identifies the kind of a debugger window.
type WindowKind int

const (
	// KindSource is a window showing a line source.
	KindSource WindowKind = iota
	// KindStack shows the call stack.
	KindStack
	// KindHistory shows the call history.
	KindHistory
	// KindSearch shows search results.
	KindSearch
	// KindHelp shows help text.
	KindHelp
	// KindDebugLog shows debugger log messages.
	KindDebugLog
)

// String returns a string representation of the window kind.
func (k WindowKind) String() string {
	switch k {
	case KindSource:
		return "source"
	case KindStack:
		return "stack"
	case KindHistory:
		return "history"
	case KindSearch:
		return "search"
	case KindHelp:
		return "help"
	case KindDebugLog:
		return "debuglog"
	default:
		return "unknown"
	}
}

// IsTool reports whether the kind is a singleton tool window.
func (k WindowKind) IsTool() bool {
	return k >= KindStack && k <= KindDebugLog
}

// Position is a location in a line source.
type Position struct {
	SourceID int
	Line     int
}

// Frame is one entry of the runtime call stack, innermost first.
type Frame struct {
	Function string
	SourceID int
	Filename string
	Line     int
}

// HistoryEntry is one recorded call of the call history.
type HistoryEntry struct {
	Function string
	Filename string
	Line     int
	Depth    int
}

// SearchHit is one line of a search result listing.
type SearchHit struct {
	Filename string
	Line     int
	Text     string
}

// LoadResult summarises a configuration load.
type LoadResult int

const (
	// LoadOK means every breakpoint was restored at its saved line.
	LoadOK LoadResult = iota
	// LoadBreakpointsMoved means some breakpoints were restored at a different line.
	LoadBreakpointsMoved
	// LoadBreakpointsNotSet means some breakpoints could not be restored.
	LoadBreakpointsNotSet
)

// String returns a string representation of the load result.
func (r LoadResult) String() string {
	switch r {
	case LoadOK:
		return "ok"
	case LoadBreakpointsMoved:
		return "breakpoints moved"
	case LoadBreakpointsNotSet:
		return "breakpoints not set"
	default:
		return "unknown"
	}
}

// Merge returns the more severe of r and other.
func (r LoadResult) Merge(other LoadResult) LoadResult {
	if other > r {
		return other
	}
	return r
}
