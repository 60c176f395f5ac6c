package debug

import "fmt"

// ExecState is the coarse execution state of the debuggee.
type ExecState int

const (
	// StateIdle means the debugger has control.
	StateIdle ExecState = iota
	// StateRunning means the runtime is executing.
	StateRunning
)

// String returns a string representation of the state.
func (s ExecState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	default:
		return "unknown"
	}
}

// RunMode is how the runtime was last resumed.
type RunMode int

const (
	// ModeNone means the runtime has not been resumed since the last stop.
	ModeNone RunMode = iota
	// ModeGo runs until a breakpoint or the end of the program.
	ModeGo
	// ModeStepOver stops at the next line in the same or a calling frame.
	ModeStepOver
	// ModeStepInto stops at the next line executed.
	ModeStepInto
	// ModeStepOut stops once the current function returns.
	ModeStepOut
)

// String returns a string representation of the mode.
func (m RunMode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeGo:
		return "go"
	case ModeStepOver:
		return "step-over"
	case ModeStepInto:
		return "step-into"
	case ModeStepOut:
		return "step-out"
	default:
		return "unknown"
	}
}

func (m RunMode) signal() Signal {
	switch m {
	case ModeStepOver:
		return SignalStepOver
	case ModeStepInto:
		return SignalStepInto
	case ModeStepOut:
		return SignalStepOut
	default:
		return SignalGo
	}
}

// ExecutionStateController turns execution commands into runtime signals
// and owns the current-line and context-line markers. Without a runtime
// every operation is a no-op.
type ExecutionStateController struct {
	state ExecState
	mode  RunMode

	current    Position
	hasCurrent bool
	context    Position
	hasContext bool

	status  *LineStatusTracker
	runtime Runtime
}

// NewExecutionStateController creates an idle controller.
func NewExecutionStateController(status *LineStatusTracker) *ExecutionStateController {
	return &ExecutionStateController{status: status}
}

// SetRuntime attaches or detaches the runtime.
func (c *ExecutionStateController) SetRuntime(rt Runtime) {
	c.runtime = rt
	if rt == nil {
		c.state = StateIdle
		c.mode = ModeNone
	}
}

// State returns the execution state.
func (c *ExecutionStateController) State() ExecState {
	return c.state
}

// Mode returns how the runtime was last resumed.
func (c *ExecutionStateController) Mode() RunMode {
	return c.mode
}

// Current returns the current line, if known.
func (c *ExecutionStateController) Current() (Position, bool) {
	return c.current, c.hasCurrent
}

// Context returns the context line, if set.
func (c *ExecutionStateController) Context() (Position, bool) {
	return c.context, c.hasContext
}

// Resume clears the markers and starts the runtime in mode.
func (c *ExecutionStateController) Resume(mode RunMode) error {
	if c.runtime == nil {
		return ErrNoRuntime
	}
	if mode == ModeNone {
		mode = ModeGo
	}
	c.ClearMarkers()
	if err := c.runtime.Signal(mode.signal()); err != nil {
		return fmt.Errorf("signal %s: %w", mode, err)
	}
	c.state = StateRunning
	c.mode = mode
	return nil
}

// Send forwards a one-way signal (quit, restart, abort) after clearing the
// markers.
func (c *ExecutionStateController) Send(sig Signal) error {
	if c.runtime == nil {
		return ErrNoRuntime
	}
	c.ClearMarkers()
	if err := c.runtime.Signal(sig); err != nil {
		return fmt.Errorf("signal %s: %w", sig, err)
	}
	return nil
}

// Enter records that the debugger has been re-entered and marks the
// runtime's current position.
func (c *ExecutionStateController) Enter() (Position, error) {
	if c.runtime == nil {
		return Position{}, nil
	}
	c.state = StateIdle
	c.mode = ModeNone
	c.ClearMarkers()

	pos, err := c.runtime.CurrentPosition()
	if err != nil {
		return Position{}, fmt.Errorf("current position: %w", err)
	}
	c.current = pos
	c.hasCurrent = true
	c.status.Set(pos.SourceID, pos.Line, FlagCurrentLine)
	return pos, nil
}

// SetContext moves the context-line marker to pos.
func (c *ExecutionStateController) SetContext(pos Position) {
	c.ClearContext()
	c.context = pos
	c.hasContext = true
	c.status.Set(pos.SourceID, pos.Line, FlagContextLine)
}

// ClearContext removes the context-line marker.
func (c *ExecutionStateController) ClearContext() {
	if c.hasContext {
		c.status.Clear(c.context.SourceID, c.context.Line, FlagContextLine)
		c.hasContext = false
	}
}

// ClearMarkers removes the current-line and context-line markers.
func (c *ExecutionStateController) ClearMarkers() {
	if c.hasCurrent {
		c.status.Clear(c.current.SourceID, c.current.Line, FlagCurrentLine)
		c.hasCurrent = false
	}
	c.ClearContext()
}

// Forget drops the markers without repainting; the tracker is being reset.
func (c *ExecutionStateController) Forget() {
	c.hasCurrent = false
	c.hasContext = false
}

// Exit records that the runtime finished running the program.
func (c *ExecutionStateController) Exit() {
	c.ClearMarkers()
	c.state = StateIdle
	c.mode = ModeNone
}
