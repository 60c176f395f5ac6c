package luavm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/stepwise/internal/debug"
	"github.com/dshills/stepwise/internal/logging"
)

// DefaultHistoryLimit is the default number of call history entries kept.
const DefaultHistoryLimit = 200

const maxStackLevels = 256

// pendingAction is a signal that ends the current run.
type pendingAction int

const (
	pendingNone pendingAction = iota
	pendingQuit
	pendingRestart
	pendingAbort
)

func (p pendingAction) String() string {
	switch p {
	case pendingQuit:
		return "quit"
	case pendingRestart:
		return "restart"
	case pendingAbort:
		return "abort"
	default:
		return "none"
	}
}

type breakpoint struct {
	number       int
	global       bool
	sourceID     int
	line         int
	condition    string
	stopOnChange bool
	temporary    bool
	enabled      bool

	// condition state carried between evaluations
	seen   bool
	last   string
	truthy bool
}

// Option configures a VM.
type Option func(*VM)

// WithOutput redirects the program's print output.
func WithOutput(w io.Writer) Option {
	return func(vm *VM) {
		if w != nil {
			vm.out = w
		}
	}
}

// WithLogger sets the VM logger.
func WithLogger(l *logging.Logger) Option {
	return func(vm *VM) {
		if l != nil {
			vm.log = l
		}
	}
}

// WithHistoryLimit caps the call history.
func WithHistoryLimit(n int) Option {
	return func(vm *VM) {
		if n > 0 {
			vm.historyLimit = n
		}
	}
}

// WithStopOnEntry stops before the first statement runs.
func WithStopOnEntry(enable bool) Option {
	return func(vm *VM) {
		vm.stopOnEntry = enable
	}
}

// VM is a Lua program under debugger control.
type VM struct {
	sources []*source
	bps     map[int]*breakpoint
	next    int

	out          io.Writer
	log          *logging.Logger
	historyLimit int
	stopOnEntry  bool

	// run state
	L         *lua.LState
	conds     map[string]*lua.LFunction
	onStop    func()
	running   bool
	suspended bool
	pos       debug.Position
	mode      debug.Signal
	stepDepth int
	lastDepth int
	pending   pendingAction
	stack     []debug.Frame
	history   []debug.HistoryEntry
}

var _ debug.Runtime = (*VM)(nil)

// New loads and compiles the Lua files at paths.
func New(paths []string, opts ...Option) (*VM, error) {
	files := make([]SourceFile, 0, len(paths))
	for _, p := range paths {
		f, err := ReadSourceFile(p)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return NewFromSources(files, opts...)
}

// NewFromSources compiles in-memory Lua files. Source ids are assigned
// 1..n in order.
func NewFromSources(files []SourceFile, opts ...Option) (*VM, error) {
	vm := &VM{
		bps:          make(map[int]*breakpoint),
		next:         1,
		out:          os.Stdout,
		log:          logging.Nop(),
		historyLimit: DefaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(vm)
	}
	vm.log = vm.log.WithComponent("luavm")

	srcs, err := compileAll(files)
	if err != nil {
		return nil, err
	}
	vm.sources = srcs
	return vm, nil
}

func compileAll(files []SourceFile) ([]*source, error) {
	srcs := make([]*source, 0, len(files))
	for i, f := range files {
		src, err := compileSource(i+1, f)
		if err != nil {
			return nil, err
		}
		srcs = append(srcs, src)
	}
	return srcs, nil
}

// Reload re-reads files that came from disk, recompiles every source and
// drops all breakpoints. It fails while the program is running.
func (vm *VM) Reload() error {
	if vm.running {
		return errors.New("cannot reload a running program")
	}
	files := make([]SourceFile, 0, len(vm.sources))
	for _, src := range vm.sources {
		f := src.file
		if f.Path != "" {
			fresh, err := ReadSourceFile(f.Path)
			if err != nil {
				return err
			}
			f.Code = fresh.Code
		}
		files = append(files, f)
	}
	srcs, err := compileAll(files)
	if err != nil {
		return err
	}
	vm.sources = srcs
	vm.bps = make(map[int]*breakpoint)
	vm.log.Info("reloaded %d sources", len(srcs))
	return nil
}

// SourceIDThreshold returns the first id not used by the program's sources.
func (vm *VM) SourceIDThreshold() int {
	return len(vm.sources) + 1
}

// Sources lists the compiled files.
func (vm *VM) Sources() []debug.RuntimeSource {
	out := make([]debug.RuntimeSource, 0, len(vm.sources))
	for _, src := range vm.sources {
		out = append(out, src.runtimeSource())
	}
	return out
}

// ExecutableLines returns the lines of a source that hold a statement.
func (vm *VM) ExecutableLines(id int) []int {
	if src, ok := vm.source(id, ""); ok {
		return append([]int(nil), src.lines...)
	}
	return nil
}

func (vm *VM) source(id int, filename string) (*source, bool) {
	if id >= 1 && id <= len(vm.sources) {
		return vm.sources[id-1], true
	}
	if filename == "" {
		return nil, false
	}
	for _, src := range vm.sources {
		if src.file.Filename == filename {
			return src, true
		}
	}
	return nil, false
}

func (vm *VM) sourceByName(name string) (*source, bool) {
	for _, src := range vm.sources {
		if src.file.Filename == name {
			return src, true
		}
	}
	return nil, false
}

// SetBreakpoint arms a breakpoint, moving a line request to the next line
// holding a statement.
func (vm *VM) SetBreakpoint(req debug.BreakpointRequest) (debug.BreakpointConfirmation, error) {
	if req.Condition != "" {
		if err := validateCondition(req.Condition); err != nil {
			return debug.BreakpointConfirmation{}, err
		}
	}

	bp := &breakpoint{
		global:       req.Global,
		condition:    req.Condition,
		stopOnChange: req.StopOnChange,
		temporary:    req.Temporary,
		enabled:      true,
		sourceID:     debug.NoSource,
	}
	if req.Global {
		if req.Condition == "" {
			return debug.BreakpointConfirmation{}, fmt.Errorf("global breakpoint: %w", ErrBadCondition)
		}
	} else {
		src, ok := vm.source(req.SourceID, req.Filename)
		if !ok {
			return debug.BreakpointConfirmation{}, fmt.Errorf("%s (%d): %w", req.Filename, req.SourceID, ErrUnknownSource)
		}
		line, ok := src.executableFrom(req.Line)
		if !ok {
			return debug.BreakpointConfirmation{}, fmt.Errorf("%s:%d: %w", src.file.Filename, req.Line, ErrNoCode)
		}
		bp.sourceID = src.id
		bp.line = line
	}

	bp.number = vm.next
	vm.next++
	vm.bps[bp.number] = bp
	return debug.BreakpointConfirmation{Number: bp.number, Line: bp.line}, nil
}

// ClearBreakpoint removes a breakpoint.
func (vm *VM) ClearBreakpoint(number int) error {
	if _, ok := vm.bps[number]; !ok {
		return fmt.Errorf("breakpoint %d: %w", number, ErrUnknownBreakpoint)
	}
	delete(vm.bps, number)
	return nil
}

// EnableBreakpoint changes the enablement of a breakpoint.
func (vm *VM) EnableBreakpoint(number int, enabled bool) error {
	bp, ok := vm.bps[number]
	if !ok {
		return fmt.Errorf("breakpoint %d: %w", number, ErrUnknownBreakpoint)
	}
	bp.enabled = enabled
	return nil
}

// BreakpointEnabled reports the enablement of a breakpoint.
func (vm *VM) BreakpointEnabled(number int) (enabled, known bool) {
	bp, ok := vm.bps[number]
	if !ok {
		return false, false
	}
	return bp.enabled, true
}

// CurrentPosition returns where the program is stopped.
func (vm *VM) CurrentPosition() (debug.Position, error) {
	if !vm.suspended {
		return debug.Position{}, ErrNotStopped
	}
	return vm.pos, nil
}

// Signal records an execution command. Resume signals take effect when the
// stop callback returns; quit, restart and abort unwind the run.
func (vm *VM) Signal(sig debug.Signal) error {
	switch sig {
	case debug.SignalGo, debug.SignalStepOver, debug.SignalStepInto, debug.SignalStepOut:
		vm.mode = sig
	case debug.SignalQuit:
		vm.pending = pendingQuit
	case debug.SignalRestart:
		vm.pending = pendingRestart
	case debug.SignalAbort:
		vm.pending = pendingAbort
	default:
		return fmt.Errorf("signal %d: %w", sig, ErrUnknownSignal)
	}
	return nil
}

// CallStack returns the frames captured at the last stop, innermost first.
func (vm *VM) CallStack() []debug.Frame {
	return append([]debug.Frame(nil), vm.stack...)
}

// History returns the recorded function entries, oldest first.
func (vm *VM) History() []debug.HistoryEntry {
	return append([]debug.HistoryEntry(nil), vm.history...)
}

// SetStopOnEntry changes whether the next run stops at its first line.
func (vm *VM) SetStopOnEntry(enable bool) {
	vm.stopOnEntry = enable
}

// Stopped reports whether the program is suspended in the stop callback.
func (vm *VM) Stopped() bool {
	return vm.suspended
}

// Running reports whether Run is executing.
func (vm *VM) Running() bool {
	return vm.running
}

// Run executes the program. onStop is called each time execution stops
// and must return once a signal has been given; without one execution
// continues as if SignalGo had been sent.
func (vm *VM) Run(ctx context.Context, onStop func()) error {
	if vm.running {
		return errors.New("program is already running")
	}
	vm.running = true
	vm.onStop = onStop
	defer func() {
		vm.running = false
		vm.onStop = nil
	}()

	for {
		vm.pending = pendingNone
		err := vm.runOnce(ctx)
		switch vm.pending {
		case pendingRestart:
			vm.log.Info("restarting program")
			continue
		case pendingQuit:
			vm.log.Info("program quit")
			return nil
		case pendingAbort:
			vm.log.Info("program aborted")
			return ErrAborted
		}
		if err != nil {
			vm.log.Warn("program failed: %v", err)
			return err
		}
		vm.log.Debug("program finished")
		return nil
	}
}

func (vm *VM) runOnce(ctx context.Context) error {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	vm.openLibraries(L)
	L.SetGlobal(lineHookName, L.NewFunction(vm.lineHook))
	if ctx != nil {
		L.SetContext(ctx)
	}

	vm.L = L
	vm.conds = make(map[string]*lua.LFunction)
	vm.history = nil
	vm.stack = nil
	vm.lastDepth = 0
	vm.stepDepth = 0
	vm.mode = debug.SignalGo
	if vm.stopOnEntry {
		vm.mode = debug.SignalStepInto
	}
	for _, bp := range vm.bps {
		bp.seen, bp.last, bp.truthy = false, "", false
	}
	defer func() {
		vm.L = nil
		vm.conds = nil
	}()

	for _, src := range vm.sources {
		L.Push(L.NewFunctionFromProto(src.proto))
		if err := L.PCall(0, 0, nil); err != nil {
			if vm.pending != pendingNone {
				return nil
			}
			return fmt.Errorf("%s: %w", src.file.Filename, err)
		}
	}
	return nil
}

// openLibraries opens the safe standard libraries and routes print to the
// configured writer.
func (vm *VM) openLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	L.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
		n := L.GetTop()
		parts := make([]string, 0, n)
		for i := 1; i <= n; i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		fmt.Fprintln(vm.out, strings.Join(parts, "\t"))
		return 0
	}))
}

// lineHook runs before every statement.
func (vm *VM) lineHook(L *lua.LState) int {
	id := L.CheckInt(1)
	line := L.CheckInt(2)
	vm.pos = debug.Position{SourceID: id, Line: line}

	depth := vm.depth(L)
	if depth > vm.lastDepth {
		vm.recordCall(L, depth)
	}
	vm.lastDepth = depth

	if reason, stop := vm.shouldStop(L, id, line, depth); stop {
		vm.suspend(L, depth, reason)
	}
	return 0
}

func (vm *VM) shouldStop(L *lua.LState, id, line, depth int) (string, bool) {
	// Global conditions are evaluated on every line so change detection
	// sees every value.
	global := false
	for _, n := range vm.numbers() {
		bp := vm.bps[n]
		if bp.global && bp.enabled && vm.conditionFires(L, bp) {
			global = true
		}
	}

	switch vm.mode {
	case debug.SignalStepInto:
		return "step", true
	case debug.SignalStepOver:
		if depth <= vm.stepDepth {
			return "step", true
		}
	case debug.SignalStepOut:
		if depth < vm.stepDepth {
			return "step", true
		}
	}

	for _, n := range vm.numbers() {
		bp := vm.bps[n]
		if bp.global || !bp.enabled || bp.sourceID != id || bp.line != line {
			continue
		}
		if bp.temporary {
			delete(vm.bps, n)
			return "run to cursor", true
		}
		if vm.conditionFires(L, bp) {
			return fmt.Sprintf("breakpoint %d", n), true
		}
	}
	if global {
		return "condition", true
	}
	return "", false
}

func (vm *VM) numbers() []int {
	nums := make([]int, 0, len(vm.bps))
	for n := range vm.bps {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// conditionFires evaluates a breakpoint condition. Line breakpoints fire
// while it is truthy, global ones when it turns truthy; in stop-on-change
// mode both fire when its value differs from the last evaluation.
func (vm *VM) conditionFires(L *lua.LState, bp *breakpoint) bool {
	if bp.condition == "" {
		return true
	}
	v, err := vm.evaluate(L, bp.condition)
	if err != nil {
		vm.log.Warn("breakpoint %d condition %q: %v", bp.number, bp.condition, err)
		return false
	}

	if bp.stopOnChange {
		s := v.String()
		changed := bp.seen && s != bp.last
		bp.seen, bp.last = true, s
		return changed
	}
	truthy := lua.LVAsBool(v)
	if !bp.global {
		return truthy
	}
	fired := truthy && !bp.truthy
	bp.truthy = truthy
	return fired
}

func (vm *VM) evaluate(L *lua.LState, cond string) (lua.LValue, error) {
	fn, ok := vm.conds[cond]
	if !ok {
		var err error
		fn, err = L.LoadString("return " + cond)
		if err != nil {
			return lua.LNil, err
		}
		vm.conds[cond] = fn
	}
	L.Push(fn)
	if err := L.PCall(0, 1, nil); err != nil {
		return lua.LNil, err
	}
	v := L.Get(-1)
	L.Pop(1)
	return v, nil
}

// suspend hands control to the host until it resumes or ends the run.
func (vm *VM) suspend(L *lua.LState, depth int, reason string) {
	vm.stack = vm.captureStack(L)
	vm.suspended = true
	vm.mode = debug.SignalGo
	vm.log.Debug("stopped at %d:%d (%s)", vm.pos.SourceID, vm.pos.Line, reason)

	if vm.onStop != nil {
		vm.onStop()
	}
	vm.suspended = false
	vm.stepDepth = depth

	if vm.pending != pendingNone {
		L.RaiseError("stepwise: %s", vm.pending)
	}
}

// frames walks the Lua call stack innermost first, skipping Go functions.
func (vm *VM) frames(L *lua.LState, fn func(dbg *lua.Debug) bool) {
	for level := 0; level < maxStackLevels; level++ {
		dbg, ok := L.GetStack(level)
		if !ok {
			return
		}
		if _, err := L.GetInfo("Sln", dbg, lua.LNil); err != nil {
			return
		}
		if dbg.What == "G" {
			continue
		}
		if !fn(dbg) {
			return
		}
	}
}

func (vm *VM) depth(L *lua.LState) int {
	n := 0
	vm.frames(L, func(*lua.Debug) bool {
		n++
		return true
	})
	return n
}

func (vm *VM) frame(dbg *lua.Debug) debug.Frame {
	f := debug.Frame{
		Function: dbg.Name,
		SourceID: debug.NoSource,
		Filename: dbg.Source,
		Line:     dbg.CurrentLine,
	}
	if f.Function == "" {
		if dbg.What == "main" {
			f.Function = "main chunk"
		} else {
			f.Function = fmt.Sprintf("function <%s:%d>", dbg.Source, dbg.LineDefined)
		}
	}
	if src, ok := vm.sourceByName(dbg.Source); ok {
		f.SourceID = src.id
	}
	return f
}

func (vm *VM) captureStack(L *lua.LState) []debug.Frame {
	var out []debug.Frame
	vm.frames(L, func(dbg *lua.Debug) bool {
		out = append(out, vm.frame(dbg))
		return true
	})
	return out
}

func (vm *VM) recordCall(L *lua.LState, depth int) {
	vm.frames(L, func(dbg *lua.Debug) bool {
		f := vm.frame(dbg)
		vm.history = append(vm.history, debug.HistoryEntry{
			Function: f.Function,
			Filename: f.Filename,
			Line:     f.Line,
			Depth:    depth - 1,
		})
		return false
	})
	if over := len(vm.history) - vm.historyLimit; over > 0 {
		vm.history = append([]debug.HistoryEntry(nil), vm.history[over:]...)
	}
}
