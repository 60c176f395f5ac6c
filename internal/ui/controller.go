package ui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dshills/stepwise/internal/debug"
	"github.com/dshills/stepwise/internal/logging"
	"github.com/dshills/stepwise/internal/renderer/backend"
)

// ReloadRequest is the payload of an interrupt event asking for the
// program to be reloaded.
type ReloadRequest struct {
	Paths []string
}

// RunFunc runs the program once. action is the key action that started
// the run; onStop must be called each time the program stops.
type RunFunc func(ctx context.Context, action string, onStop func()) error

// Controller turns key events into session operations.
type Controller struct {
	session *debug.Session
	host    *Host
	screen  backend.Backend
	keys    *Keymap
	log     *logging.Logger

	reload  func(paths []string) error
	pending []string

	stopped  bool
	quitting bool
}

// NewController creates a controller drawing host on screen.
func NewController(s *debug.Session, host *Host, screen backend.Backend, keys *Keymap, log *logging.Logger) *Controller {
	if log == nil {
		log = logging.Nop()
	}
	return &Controller{
		session: s,
		host:    host,
		screen:  screen,
		keys:    keys,
		log:     log.WithComponent("controller"),
	}
}

// SetReloader sets the function run for reload requests. Requests arriving
// while the program is stopped wait until the run ends.
func (c *Controller) SetReloader(fn func(paths []string) error) {
	c.reload = fn
}

// Stopped reports whether the program is suspended at a stop.
func (c *Controller) Stopped() bool { return c.stopped }

// Quitting reports whether the user asked to leave.
func (c *Controller) Quitting() bool { return c.quitting }

// Loop runs the debugger until the user quits or ctx is done. Between runs
// it waits for a command; run executes the program.
func (c *Controller) Loop(ctx context.Context, run RunFunc) error {
	for !c.quitting {
		if err := ctx.Err(); err != nil {
			return err
		}
		action := c.Wait()
		switch action {
		case ActionQuit, "":
			return nil
		case ActionAbort:
			continue
		}
		err := run(ctx, action, c.OnStop)
		c.session.OnProgramExited(err)
		if err != nil {
			c.host.SetMessage("%v", err)
		} else if !c.quitting {
			c.host.SetMessage("program finished")
		}
		c.applyPendingReload()
	}
	return nil
}

// OnStop is the runtime's stop callback: it re-enters the debugger and
// handles events until the program is resumed or ended.
func (c *Controller) OnStop() {
	c.stopped = true
	defer func() { c.stopped = false }()

	if err := c.session.OnDebuggerEntered(); err != nil {
		c.host.SetMessage("%v", err)
	}
	if pos, ok := c.session.Execution().Current(); ok {
		c.host.SetMessage("stopped at %s", c.describe(pos))
	}
	c.Wait()
}

// Wait draws and handles events until one ends the wait, returning the
// action that did.
func (c *Controller) Wait() string {
	for {
		c.Redraw()
		action, done := c.HandleEvent(c.screen.PollEvent())
		if done {
			return action
		}
	}
}

// Redraw draws the screen.
func (c *Controller) Redraw() {
	c.host.Draw(c.screen, c.statusText())
}

// HandleEvent processes one event. done reports that the wait should end:
// the program was resumed, a run should start, or the user quit.
func (c *Controller) HandleEvent(ev backend.Event) (action string, done bool) {
	switch ev.Type {
	case backend.EventInterrupt:
		if req, ok := ev.Data.(ReloadRequest); ok {
			c.requestReload(req.Paths)
		}
		return "", false
	case backend.EventKey:
		action, ok := c.keys.Lookup(ev)
		if !ok {
			return "", false
		}
		return action, c.Dispatch(action)
	default:
		return "", false
	}
}

// Dispatch runs one action and reports whether it ends the wait.
func (c *Controller) Dispatch(action string) bool {
	c.host.SetMessage("")
	switch action {
	case ActionGo:
		return c.resume(c.session.Go)
	case ActionStepOver:
		return c.resume(c.session.StepOver)
	case ActionStepInto:
		return c.resume(c.session.StepInto)
	case ActionStepOut:
		if !c.stopped {
			c.host.SetMessage("not stopped")
			return false
		}
		return c.resume(c.session.StepOut)
	case ActionRunToCursor:
		return c.runToCursor()
	case ActionRestart:
		return c.resume(c.session.Restart)
	case ActionAbort:
		if !c.stopped {
			c.host.SetMessage("not running")
			return false
		}
		return c.resume(c.session.Abort)
	case ActionQuit:
		c.quitting = true
		if c.stopped {
			c.report(c.session.Quit())
		}
		return true

	case ActionToggleBreakpoint:
		c.toggleBreakpoint()
	case ActionEnableBreakpoint:
		c.enableBreakpoint()
	case ActionListBreakpoints:
		c.listBreakpoints()
	case ActionClearBreakpoints:
		c.session.ClearBreakpoints()
		c.host.SetMessage("breakpoints cleared")

	case ActionNextWindow:
		c.host.Cycle(1)
	case ActionPrevWindow:
		c.host.Cycle(-1)
	case ActionCloseWindow:
		if h, ok := c.host.Active(); ok {
			c.report(c.session.CloseWindow(h))
		}
	case ActionCursorUp:
		c.host.MoveCursor(-1)
	case ActionCursorDown:
		c.host.MoveCursor(1)
	case ActionPageUp:
		c.host.MoveCursor(-c.host.PageSize())
	case ActionPageDown:
		c.host.MoveCursor(c.host.PageSize())
	case ActionTop:
		c.host.SetCursor(1)
	case ActionBottom:
		if h, ok := c.host.Active(); ok {
			c.host.SetCursor(len(c.host.Lines(h)))
		}
	case ActionSelect:
		c.selectLine()

	case ActionStack:
		c.openTool(debug.KindStack)
	case ActionHistory:
		c.openTool(debug.KindHistory)
	case ActionLog:
		c.openTool(debug.KindDebugLog)
	case ActionHelp:
		c.report(c.session.ShowHelp("keys", c.keys.HelpLines()))
	}
	return false
}

// resume issues an execution command while stopped; otherwise the action
// starts a run.
func (c *Controller) resume(fn func() error) bool {
	if !c.stopped {
		return true
	}
	if err := fn(); err != nil {
		c.report(err)
		return false
	}
	return true
}

func (c *Controller) cursorLine() (debug.Handle, int, bool) {
	h, ok := c.host.Active()
	if !ok {
		return 0, 0, false
	}
	if kind, _ := c.host.ActiveKind(); kind != debug.KindSource {
		c.host.SetMessage("not a source window")
		return 0, 0, false
	}
	return h, c.host.Cursor(h), true
}

func (c *Controller) toggleBreakpoint() {
	h, line, ok := c.cursorLine()
	if !ok {
		return
	}
	added, err := c.session.ToggleBreakpoint(h, line, "", false)
	if err != nil {
		c.report(err)
		return
	}
	if added {
		c.host.SetMessage("breakpoint set")
	} else {
		c.host.SetMessage("breakpoint removed")
	}
}

func (c *Controller) enableBreakpoint() {
	h, line, ok := c.cursorLine()
	if !ok {
		return
	}
	bp, ok := c.session.BreakpointAt(h, line)
	if !ok {
		c.host.SetMessage("no breakpoint on line %d", line)
		return
	}
	c.report(c.session.EnableBreakpoint(bp.Number, !bp.Enabled))
}

func (c *Controller) runToCursor() bool {
	h, line, ok := c.cursorLine()
	if !ok {
		return false
	}
	if err := c.session.RunToCursor(h, line); err != nil {
		c.report(err)
		return false
	}
	return true
}

// selectLine acts on the cursor line of a tool window: a stack line
// selects its frame, a search hit opens its file.
func (c *Controller) selectLine() {
	h, ok := c.host.Active()
	if !ok {
		return
	}
	kind, _ := c.host.ActiveKind()
	line := c.host.Cursor(h)
	switch kind {
	case debug.KindStack:
		if len(c.session.Frames()) == 0 {
			return
		}
		c.report(c.session.SelectFrame(line - 1))
		c.host.Activate(h)
	case debug.KindSearch:
		text := c.host.Lines(h)
		if line < 1 || line > len(text) {
			return
		}
		parts := strings.SplitN(text[line-1], ":", 3)
		a, err := c.session.OpenFile(parts[0])
		if err != nil {
			c.report(err)
			return
		}
		c.host.Activate(a.Window)
		if len(parts) > 1 {
			if n, err := strconv.Atoi(parts[1]); err == nil && n > 0 {
				c.host.SetCursor(n)
			}
		}
	}
}

// listBreakpoints shows every breakpoint in the search window.
func (c *Controller) listBreakpoints() {
	var hits []debug.SearchHit
	c.session.EnumBreakpoints(func(bp debug.Breakpoint) bool {
		state := "enabled"
		if !bp.Enabled {
			state = "disabled"
		}
		text := fmt.Sprintf("#%d %s", bp.Number, state)
		if bp.Condition != "" {
			text += " if " + bp.Condition
		}
		hit := debug.SearchHit{Filename: "<global>", Text: text}
		if !bp.IsGlobal() {
			if src, ok := c.session.Sources().Get(bp.SourceID); ok {
				hit.Filename = src.Filename
			}
			hit.Line = bp.Line
		}
		hits = append(hits, hit)
		return true
	})
	if err := c.session.ShowSearchResults(hits); err != nil {
		c.report(err)
		return
	}
	if a, ok := c.session.Windows().ByKind(debug.KindSearch); ok {
		c.host.Activate(a.Window)
	}
}

func (c *Controller) openTool(kind debug.WindowKind) {
	a, err := c.session.OpenToolWindow(kind)
	if err != nil {
		c.report(err)
		return
	}
	c.host.Activate(a.Window)
}

func (c *Controller) requestReload(paths []string) {
	if c.stopped {
		c.pending = append(c.pending, paths...)
		c.host.SetMessage("files changed; reloading when the run ends")
		return
	}
	c.pending = append(c.pending, paths...)
	c.applyPendingReload()
}

func (c *Controller) applyPendingReload() {
	if len(c.pending) == 0 || c.reload == nil {
		return
	}
	paths := c.pending
	c.pending = nil
	if err := c.reload(paths); err != nil {
		c.report(err)
		return
	}
	c.host.SetMessage("reloaded %d file(s)", len(paths))
}

func (c *Controller) report(err error) {
	if err == nil {
		return
	}
	c.log.Warn("%v", err)
	c.host.SetMessage("%v", err)
	if errors.Is(err, debug.ErrNotFound) || errors.Is(err, debug.ErrRuntimeRejected) {
		c.screen.Beep()
	}
}

func (c *Controller) describe(pos debug.Position) string {
	if src, ok := c.session.Sources().Get(pos.SourceID); ok {
		return fmt.Sprintf("%s:%d", src.Filename, pos.Line)
	}
	return fmt.Sprintf("#%d:%d", pos.SourceID, pos.Line)
}

func (c *Controller) statusText() string {
	state := "idle"
	switch {
	case c.stopped:
		state = "stopped"
		if pos, ok := c.session.Execution().Current(); ok {
			state += " at " + c.describe(pos)
		}
	case c.session.State() == debug.StateRunning:
		state = "running"
	}
	return fmt.Sprintf("%s | %d breakpoint(s) | ?: help", state, c.session.Breakpoints().Len())
}
