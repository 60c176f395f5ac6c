package debug

// Signal is an execution command forwarded to the runtime.
type Signal int

const (
	SignalGo Signal = iota
	SignalStepOver
	SignalStepInto
	SignalStepOut
	SignalQuit
	SignalRestart
	SignalAbort
)

// String returns a string representation of the signal.
func (s Signal) String() string {
	switch s {
	case SignalGo:
		return "go"
	case SignalStepOver:
		return "step-over"
	case SignalStepInto:
		return "step-into"
	case SignalStepOut:
		return "step-out"
	case SignalQuit:
		return "quit"
	case SignalRestart:
		return "restart"
	case SignalAbort:
		return "abort"
	default:
		return "unknown"
	}
}

// RuntimeSource describes a file compiled into the running program.
type RuntimeSource struct {
	ID       int
	Filename string
	Path     string
}

// BreakpointRequest asks the runtime to arm a breakpoint.
type BreakpointRequest struct {
	Global       bool
	SourceID     int
	Filename     string
	Line         int
	Condition    string
	StopOnChange bool
	Temporary    bool
}

// BreakpointConfirmation is the runtime's answer to a BreakpointRequest.
type BreakpointConfirmation struct {
	// Number is the runtime's breakpoint number.
	Number int
	// Line is the line actually used; it may differ from the request.
	Line int
}

// Runtime is the script VM as seen by the debugger.
type Runtime interface {
	// SourceIDThreshold returns the first id not reserved for runtime sources.
	SourceIDThreshold() int

	// Sources lists the files of the compiled program.
	Sources() []RuntimeSource

	// SetBreakpoint arms a breakpoint. The runtime may relocate a line
	// breakpoint; an error means it was not set.
	SetBreakpoint(req BreakpointRequest) (BreakpointConfirmation, error)

	// ClearBreakpoint disarms a breakpoint.
	ClearBreakpoint(number int) error

	// EnableBreakpoint changes the enablement of a breakpoint.
	EnableBreakpoint(number int, enabled bool) error

	// BreakpointEnabled reports the runtime's view of a breakpoint's
	// enablement; known is false if the runtime has no such breakpoint.
	BreakpointEnabled(number int) (enabled, known bool)

	// CurrentPosition reports where execution stopped.
	CurrentPosition() (Position, error)

	// Signal forwards an execution command.
	Signal(sig Signal) error

	// CallStack returns the frames at the current stop, innermost first.
	CallStack() []Frame

	// History returns the recorded call history.
	History() []HistoryEntry
}

// UI is the window layer as seen by the debugger.
type UI interface {
	// CreateWindow opens a window and returns its handle.
	CreateWindow(kind WindowKind, title, path string) (Handle, error)

	// LoadFileInto loads the file at path into a window.
	LoadFileInto(h Handle, path string) error

	// UpdateLineMarker repaints the marker of one line of a window.
	UpdateLineMarker(h Handle, line int, flags LineFlags)

	// ResolvePath locates a file on disk.
	ResolvePath(filename string) (string, bool)

	// SetWindowLines replaces the text of a tool window.
	SetWindowLines(h Handle, lines []string)

	// CloseWindow closes a window.
	CloseWindow(h Handle)
}
