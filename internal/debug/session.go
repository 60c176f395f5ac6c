package debug

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/dshills/stepwise/internal/config"
	"github.com/dshills/stepwise/internal/config/store"
	"github.com/dshills/stepwise/internal/logging"
)

// DefaultLogCapacity is the number of lines kept for the debug log window.
const DefaultLogCapacity = 500

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithSourceIDThreshold sets the lowest id used for local line sources.
func WithSourceIDThreshold(n int) Option {
	return func(s *Session) {
		s.baseThreshold = n
	}
}

// WithAutoOpenCurrent controls whether re-entering the debugger opens a
// window for the current line.
func WithAutoOpenCurrent(enable bool) Option {
	return func(s *Session) {
		s.autoOpenCurrent = enable
	}
}

// WithLogCapacity sets how many debug log lines are kept.
func WithLogCapacity(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.logCapacity = n
		}
	}
}

// Session owns every debugger registry and orchestrates them against a UI
// and an optional runtime.
type Session struct {
	id      uuid.UUID
	ui      UI
	runtime Runtime
	log     *logging.Logger

	sources     *LineSourceRegistry
	breakpoints *BreakpointRegistry
	status      *LineStatusTracker
	windows     *WindowAssociationRegistry
	exec        *ExecutionStateController
	bridge      *ConfigurationBridge

	frames        []Frame
	selectedFrame int
	history       []HistoryEntry
	searchHits    []SearchHit
	helpTopic     string
	helpLines     []string
	logLines      []string

	baseThreshold   int
	autoOpenCurrent bool
	logCapacity     int
}

// New creates a session drawing into ui. No runtime is attached.
func New(ui UI, opts ...Option) *Session {
	s := &Session{
		id:              uuid.New(),
		ui:              ui,
		log:             logging.Nop(),
		autoOpenCurrent: true,
		logCapacity:     DefaultLogCapacity,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithComponent("debug").WithField("session", s.id.String()[:8])

	s.windows = NewWindowAssociationRegistry()
	s.status = NewLineStatusTracker(s.refreshLine)
	s.sources = NewLineSourceRegistry(s.baseThreshold)
	s.breakpoints = NewBreakpointRegistry(s.status, s.sources)
	s.exec = NewExecutionStateController(s.status)
	s.bridge = NewConfigurationBridge(s.sources, s.breakpoints, s.log.WithComponent("config"))
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id.String() }

// Sources returns the line source registry.
func (s *Session) Sources() *LineSourceRegistry { return s.sources }

// Breakpoints returns the breakpoint registry.
func (s *Session) Breakpoints() *BreakpointRegistry { return s.breakpoints }

// Status returns the line status tracker.
func (s *Session) Status() *LineStatusTracker { return s.status }

// Windows returns the window association registry.
func (s *Session) Windows() *WindowAssociationRegistry { return s.windows }

// Execution returns the execution state controller.
func (s *Session) Execution() *ExecutionStateController { return s.exec }

// Runtime returns the attached runtime, or nil.
func (s *Session) Runtime() Runtime { return s.runtime }

// refreshLine fans a status change out to every window showing the source.
func (s *Session) refreshLine(sourceID, line int, flags LineFlags) {
	for _, a := range s.windows.BySource(sourceID) {
		s.ui.UpdateLineMarker(a.Window, line, flags)
	}
}

func (s *Session) paintWindow(a *WindowAssociation) {
	for _, e := range s.status.EntriesFor(a.SourceID) {
		s.ui.UpdateLineMarker(a.Window, e.Line, e.Flags)
	}
}

// Attach connects a runtime to the current session. Line sources are
// rebuilt from rt and every breakpoint in the local list is re-armed
// through it, as LoadProgram does. A nil rt detaches.
func (s *Session) Attach(rt Runtime) LoadResult {
	if rt == nil {
		s.Detach()
		return LoadOK
	}
	return s.LoadProgram(rt, nil)
}

// attach connects rt and registers the sources it compiled. Breakpoints
// are left to the caller.
func (s *Session) attach(rt Runtime) {
	if rt == nil {
		s.Detach()
		return
	}
	s.runtime = rt
	s.breakpoints.SetRuntime(rt)
	s.exec.SetRuntime(rt)

	threshold := rt.SourceIDThreshold()
	if threshold < s.baseThreshold {
		threshold = s.baseThreshold
	}
	s.sources.SetThreshold(threshold)
	for _, src := range rt.Sources() {
		s.sources.Register(src.ID, src.Filename, src.Path)
	}
	s.relinkWindows()
}

// Detach disconnects the runtime. Breakpoints stay in the local list.
func (s *Session) Detach() {
	s.exec.ClearMarkers()
	s.runtime = nil
	s.breakpoints.SetRuntime(nil)
	s.exec.SetRuntime(nil)
	s.sources.SetThreshold(s.baseThreshold)
}

// relinkWindows points every source window at the current line source for
// its file.
func (s *Session) relinkWindows() {
	for _, h := range s.windows.Handles() {
		a, _ := s.windows.Get(h)
		if a.Kind != KindSource {
			continue
		}
		src, _ := s.sources.FindOrSynthesize(a.Filename, a.Path)
		a.SourceID = src.ID
	}
}

// LoadProgram replaces the program: line sources are rebuilt from rt and
// breakpoints are restored from cfg. A nil cfg carries the current
// breakpoints over, which is how a reload after a recompile works.
func (s *Session) LoadProgram(rt Runtime, cfg config.Store) LoadResult {
	if cfg == nil {
		snapshot := store.NewMemory()
		s.bridge.Save(snapshot)
		cfg = snapshot
	}

	s.exec.ClearMarkers()
	s.breakpoints.Reset()
	s.status.Reset()
	s.exec.Forget()
	s.sources.Reset()
	s.frames, s.history, s.selectedFrame = nil, nil, 0

	s.attach(rt)
	if rt == nil {
		s.relinkWindows()
	}

	res := s.bridge.Load(cfg, rt != nil)
	s.refreshTool(KindStack)
	s.refreshTool(KindHistory)

	s.log.Info("program loaded: %d sources, %d breakpoints, result %s",
		s.sources.Len(), s.breakpoints.Len(), res)
	if res != LoadOK {
		s.Logf("warning: %s", res)
	}
	return res
}

// Reload re-reads the program from the attached runtime, keeping the
// breakpoints and reconciling moved lines. The runtime must already have
// dropped its breakpoints (luavm.VM.Reload does), since every listed
// breakpoint is set again under a number the runtime assigns.
func (s *Session) Reload() LoadResult {
	return s.LoadProgram(s.runtime, nil)
}

func (s *Session) sourceWindow(h Handle) (*WindowAssociation, error) {
	a, ok := s.windows.Get(h)
	if !ok {
		return nil, notFound("window", h)
	}
	if a.SourceID == NoSource {
		return nil, fmt.Errorf("window %d shows no line source: %w", h, ErrNotFound)
	}
	return a, nil
}

// ToggleBreakpoint toggles a breakpoint on a line of a source window.
func (s *Session) ToggleBreakpoint(h Handle, line int, condition string, stopOnChange bool) (bool, error) {
	a, err := s.sourceWindow(h)
	if err != nil {
		return false, err
	}
	return s.ToggleBreakpointAt(a.SourceID, line, condition, stopOnChange)
}

// ToggleBreakpointAt toggles a breakpoint on a line of a line source.
func (s *Session) ToggleBreakpointAt(sourceID, line int, condition string, stopOnChange bool) (bool, error) {
	if _, ok := s.sources.Get(sourceID); !ok {
		return false, notFound("line source", sourceID)
	}
	set, err := s.breakpoints.ToggleAt(sourceID, line, condition, stopOnChange)
	if err != nil {
		s.log.Warn("toggle breakpoint %d:%d: %v", sourceID, line, err)
		return set, err
	}
	s.log.Debug("breakpoint %d:%d set=%v", sourceID, line, set)
	return set, nil
}

// AddGlobalBreakpoint adds a condition-only breakpoint.
func (s *Session) AddGlobalBreakpoint(condition string, stopOnChange bool) (*Breakpoint, error) {
	if condition == "" {
		return nil, ErrEmptyCondition
	}
	bp, err := s.breakpoints.AddGlobal(condition, stopOnChange, true)
	if err != nil {
		s.log.Warn("global breakpoint %q: %v", condition, err)
		return nil, err
	}
	s.log.Debug("global breakpoint %d %q", bp.Number, condition)
	return bp, nil
}

// EnableBreakpoint enables or disables a breakpoint.
func (s *Session) EnableBreakpoint(number int, enabled bool) error {
	return s.breakpoints.Enable(number, enabled)
}

// DeleteBreakpoint deletes a breakpoint.
func (s *Session) DeleteBreakpoint(number int) error {
	return s.breakpoints.Delete(number)
}

// ClearBreakpoints deletes every breakpoint.
func (s *Session) ClearBreakpoints() {
	s.breakpoints.Clear()
	s.log.Debug("breakpoints cleared")
}

// OnBreakpointMoved is called by the runtime when a recompile shifted a
// breakpoint to another line.
func (s *Session) OnBreakpointMoved(number, line int) error {
	return s.MoveBreakpoint(number, line)
}

// MoveBreakpoint moves a line breakpoint to another line of its source.
func (s *Session) MoveBreakpoint(number, line int) error {
	if err := s.breakpoints.Move(number, line); err != nil {
		return err
	}
	s.log.Debug("breakpoint %d moved to line %d", number, line)
	return nil
}

// BreakpointAt returns the breakpoint on a line of a source window.
func (s *Session) BreakpointAt(h Handle, line int) (*Breakpoint, bool) {
	a, err := s.sourceWindow(h)
	if err != nil {
		return nil, false
	}
	return s.breakpoints.At(a.SourceID, line)
}

// EnumBreakpoints calls fn for each listed breakpoint after refreshing
// global enablement from the runtime. fn may delete the breakpoint it gets.
func (s *Session) EnumBreakpoints(fn func(bp Breakpoint) bool) {
	s.breakpoints.RefreshEnabled()
	s.breakpoints.Each(func(bp *Breakpoint) bool {
		return fn(*bp)
	})
}

// RunToCursor sets the temporary breakpoint at a line of a source window
// and resumes execution.
func (s *Session) RunToCursor(h Handle, line int) error {
	a, err := s.sourceWindow(h)
	if err != nil {
		return err
	}
	if s.runtime == nil {
		return ErrNoRuntime
	}
	if _, err := s.breakpoints.SetTemporary(a.SourceID, line); err != nil {
		return err
	}
	return s.Go()
}

// OpenLineSource shows a line source in a window, reusing an existing one.
func (s *Session) OpenLineSource(id int) (*WindowAssociation, error) {
	src, ok := s.sources.Get(id)
	if !ok {
		return nil, notFound("line source", id)
	}
	a, _, err := s.FindOrCreateWindow(src)
	return a, err
}

// SourceForFile returns the line source registered for filename.
func (s *Session) SourceForFile(filename string) (*LineSource, bool) {
	return s.sources.Find(filename, "")
}

// WindowAt returns the window at position index in opening order.
func (s *Session) WindowAt(index int) (*WindowAssociation, bool) {
	return s.windows.At(index)
}

// WindowForFile returns the first source window showing filename.
func (s *Session) WindowForFile(filename string) (*WindowAssociation, bool) {
	return s.windows.ByFilename(filename)
}

// OpenFile shows a file by name, registering a local line source for it
// when neither the runtime nor the user has referenced it before.
func (s *Session) OpenFile(filename string) (*WindowAssociation, error) {
	src, ok := s.sources.Find(filename, "")
	if !ok {
		path, found := s.ui.ResolvePath(filename)
		if !found {
			return nil, fmt.Errorf("%s: %w", filename, ErrFileUnresolvable)
		}
		src, _ = s.sources.FindOrSynthesize(filename, path)
	}
	a, _, err := s.FindOrCreateWindow(src)
	return a, err
}

// FindOrCreateWindow returns the window showing src, creating and loading
// one if needed. created reports whether a new window was made.
func (s *Session) FindOrCreateWindow(src *LineSource) (a *WindowAssociation, created bool, err error) {
	if a, ok := s.windows.ForFile(src.Filename, src.Path); ok {
		if a.SourceID != src.ID {
			a.SourceID = src.ID
			s.paintWindow(a)
		}
		return a, false, nil
	}

	query := src.Path
	if query == "" {
		query = src.Filename
	}
	path, ok := s.ui.ResolvePath(query)
	if !ok {
		return nil, false, fmt.Errorf("%s: %w", src.Filename, ErrFileUnresolvable)
	}
	if src.Path == "" {
		src.Path = path
	}

	h, err := s.ui.CreateWindow(KindSource, src.Filename, path)
	if err != nil {
		return nil, false, fmt.Errorf("create window for %s: %w", src.Filename, err)
	}
	if err := s.ui.LoadFileInto(h, path); err != nil {
		s.ui.CloseWindow(h)
		return nil, false, fmt.Errorf("load %s: %w: %v", path, ErrFileUnresolvable, err)
	}

	a = &WindowAssociation{Window: h, SourceID: src.ID, Filename: src.Filename, Path: path, Kind: KindSource}
	s.windows.Add(a)
	s.paintWindow(a)
	s.log.Debug("opened %s in window %d", src.Filename, h)
	return a, true, nil
}

// OpenToolWindow returns the singleton window of a tool kind, creating it
// on first use.
func (s *Session) OpenToolWindow(kind WindowKind) (*WindowAssociation, error) {
	b, ok := toolBehaviors[kind]
	if !ok {
		return nil, fmt.Errorf("tool window %s: %w", kind, ErrNotFound)
	}
	if a, ok := s.windows.ByKind(kind); ok {
		b.reformat(s, a)
		return a, nil
	}
	h, err := s.ui.CreateWindow(kind, b.title(), "")
	if err != nil {
		return nil, fmt.Errorf("create %s window: %w", kind, err)
	}
	a := &WindowAssociation{Window: h, SourceID: NoSource, Filename: b.title(), Kind: kind}
	s.windows.Add(a)
	b.reformat(s, a)
	return a, nil
}

func (s *Session) refreshTool(kind WindowKind) {
	if a, ok := s.windows.ByKind(kind); ok {
		toolBehaviors[kind].reformat(s, a)
	}
}

// OnWindowClosed forgets a window the UI has closed.
func (s *Session) OnWindowClosed(h Handle) {
	a, ok := s.windows.Remove(h)
	if !ok {
		return
	}
	if b, ok := toolBehaviors[a.Kind]; ok {
		b.closed(s, a)
	}
	s.log.Debug("window %d (%s) closed", h, a.Kind)
}

// CloseWindow closes a window through the UI.
func (s *Session) CloseWindow(h Handle) error {
	if _, ok := s.windows.Get(h); !ok {
		return notFound("window", h)
	}
	s.ui.CloseWindow(h)
	s.OnWindowClosed(h)
	return nil
}

// ChangeFileLink repoints a source window at another file without closing
// it.
func (s *Session) ChangeFileLink(h Handle, filename string) error {
	a, err := s.sourceWindow(h)
	if err != nil {
		return err
	}
	path, ok := s.ui.ResolvePath(filename)
	if !ok {
		return fmt.Errorf("%s: %w", filename, ErrFileUnresolvable)
	}
	src, _ := s.sources.FindOrSynthesize(filename, path)

	for _, e := range s.status.EntriesFor(a.SourceID) {
		s.ui.UpdateLineMarker(h, e.Line, 0)
	}
	a.SourceID = src.ID
	a.Filename = filename
	a.Path = path
	s.paintWindow(a)
	return nil
}

// EnumSourceWindows calls fn for each source window. fn may close the
// window it is given.
func (s *Session) EnumSourceWindows(fn func(a WindowAssociation) bool) {
	for _, h := range s.windows.Handles() {
		a, ok := s.windows.Get(h)
		if !ok || a.Kind != KindSource {
			continue
		}
		if !fn(*a) {
			return
		}
	}
}

// GetLineStatusList returns the status entries of the source a window shows.
func (s *Session) GetLineStatusList(h Handle) ([]LineStatusEntry, error) {
	a, ok := s.windows.Get(h)
	if !ok {
		return nil, notFound("window", h)
	}
	if a.SourceID == NoSource {
		return nil, nil
	}
	return s.status.EntriesFor(a.SourceID), nil
}

// State returns the execution state.
func (s *Session) State() ExecState { return s.exec.State() }

// Go resumes execution.
func (s *Session) Go() error { return s.resume(ModeGo) }

// StepOver resumes until the next line in the current function.
func (s *Session) StepOver() error { return s.resume(ModeStepOver) }

// StepInto resumes until the next line, entering calls.
func (s *Session) StepInto() error { return s.resume(ModeStepInto) }

// StepOut resumes until the current function returns.
func (s *Session) StepOut() error { return s.resume(ModeStepOut) }

// Quit asks the runtime to stop the program.
func (s *Session) Quit() error { return s.send(SignalQuit) }

// Restart asks the runtime to restart the program.
func (s *Session) Restart() error { return s.send(SignalRestart) }

// Abort asks the runtime to abort the program.
func (s *Session) Abort() error { return s.send(SignalAbort) }

func (s *Session) resume(mode RunMode) error {
	if err := s.exec.Resume(mode); err != nil {
		s.log.Warn("%v", err)
		return err
	}
	s.log.Debug("resumed: %s", mode)
	return nil
}

func (s *Session) send(sig Signal) error {
	if err := s.exec.Send(sig); err != nil {
		s.log.Warn("%v", err)
		return err
	}
	s.log.Debug("signal: %s", sig)
	return nil
}

// OnDebuggerEntered is called by the runtime, while suspended, when it
// breaks into the debugger. It marks the current line, consumes the
// temporary breakpoint and refreshes the stack and history windows.
func (s *Session) OnDebuggerEntered() error {
	if s.runtime == nil {
		return nil
	}
	pos, err := s.exec.Enter()
	if err != nil {
		s.log.Warn("%v", err)
		return err
	}
	s.breakpoints.ClearTemporary()

	s.frames = s.runtime.CallStack()
	s.history = s.runtime.History()
	s.selectedFrame = 0
	s.refreshTool(KindStack)
	s.refreshTool(KindHistory)

	s.log.Debug("stopped at %d:%d", pos.SourceID, pos.Line)
	if s.autoOpenCurrent {
		if src, ok := s.sources.Get(pos.SourceID); ok {
			if _, _, err := s.FindOrCreateWindow(src); err != nil {
				s.log.Warn("open current source: %v", err)
			}
		}
	}
	return nil
}

// OnProgramExited is called once the runtime has finished running; err is
// the run's result.
func (s *Session) OnProgramExited(err error) {
	s.exec.Exit()
	s.breakpoints.ClearTemporary()
	s.frames = nil
	s.selectedFrame = 0
	if s.runtime != nil {
		s.history = s.runtime.History()
	}
	s.refreshTool(KindStack)
	s.refreshTool(KindHistory)
	if err != nil {
		s.Logf("program ended: %v", err)
		return
	}
	s.Logf("program finished")
}

// Frames returns the call stack captured at the last stop.
func (s *Session) Frames() []Frame {
	return append([]Frame(nil), s.frames...)
}

// SelectedFrame returns the index of the inspected frame.
func (s *Session) SelectedFrame() int { return s.selectedFrame }

// SelectFrame inspects a stack frame. Frames other than the innermost get
// a context-line marker.
func (s *Session) SelectFrame(index int) error {
	if index < 0 || index >= len(s.frames) {
		return notFound("frame", index)
	}
	s.selectedFrame = index
	defer s.refreshTool(KindStack)

	if index == 0 {
		s.exec.ClearContext()
		return nil
	}

	f := s.frames[index]
	src, ok := s.sources.Get(f.SourceID)
	if !ok {
		src, ok = s.sources.Find(f.Filename, "")
	}
	if !ok {
		s.exec.ClearContext()
		return notFound("line source", f.Filename)
	}
	s.exec.SetContext(Position{SourceID: src.ID, Line: f.Line})
	if _, _, err := s.FindOrCreateWindow(src); err != nil {
		s.log.Warn("open context source: %v", err)
	}
	return nil
}

// ShowSearchResults lists hits in the search window.
func (s *Session) ShowSearchResults(hits []SearchHit) error {
	s.searchHits = append([]SearchHit(nil), hits...)
	_, err := s.OpenToolWindow(KindSearch)
	return err
}

// ShowHelp shows text in the help window.
func (s *Session) ShowHelp(topic string, lines []string) error {
	s.helpTopic = topic
	s.helpLines = append([]string(nil), lines...)
	_, err := s.OpenToolWindow(KindHelp)
	return err
}

// Logf logs a message and appends it to the debug log window.
func (s *Session) Logf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	s.log.Info("%s", msg)
	s.logLines = append(s.logLines, msg)
	if over := len(s.logLines) - s.logCapacity; over > 0 {
		s.logLines = append([]string(nil), s.logLines[over:]...)
	}
	s.refreshTool(KindDebugLog)
}

// LogLines returns the debug log contents.
func (s *Session) LogLines() []string {
	return append([]string(nil), s.logLines...)
}

// Save writes breakpoints and line sources to cfg and flushes it.
func (s *Session) Save(cfg config.Store) error {
	s.bridge.Save(cfg)
	if err := cfg.Flush(); err != nil {
		return fmt.Errorf("save configuration: %w", err)
	}
	s.log.Debug("saved %d breakpoints, %d sources", s.breakpoints.Len(), s.sources.Len())
	return nil
}

// Load replaces the breakpoints with those saved in cfg.
func (s *Session) Load(cfg config.Store) LoadResult {
	s.breakpoints.Clear()
	res := s.bridge.Load(cfg, s.runtime != nil)
	if res != LoadOK {
		s.log.Warn("configuration loaded: %s", res)
		s.Logf("warning: %s", res)
	}
	return res
}

// Close closes every window and drops execution markers.
func (s *Session) Close() {
	s.exec.ClearMarkers()
	s.breakpoints.ClearTemporary()
	for _, h := range s.windows.Handles() {
		s.ui.CloseWindow(h)
		s.OnWindowClosed(h)
	}
}
