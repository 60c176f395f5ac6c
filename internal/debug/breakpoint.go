package debug

import "fmt"

// BreakpointKind distinguishes global-condition and line breakpoints.
type BreakpointKind int

const (
	// BreakpointAtLine stops at a source line.
	BreakpointAtLine BreakpointKind = iota
	// BreakpointGlobal stops when its condition holds or changes anywhere.
	BreakpointGlobal
)

// String returns a string representation of the breakpoint kind.
func (k BreakpointKind) String() string {
	switch k {
	case BreakpointAtLine:
		return "line"
	case BreakpointGlobal:
		return "global"
	default:
		return "unknown"
	}
}

// Breakpoint is a user breakpoint. Global breakpoints have SourceID NoSource
// and Line 0.
type Breakpoint struct {
	Number       int
	Kind         BreakpointKind
	SourceID     int
	Line         int
	Condition    string
	StopOnChange bool
	Enabled      bool
	Temporary    bool
}

// IsGlobal reports whether the breakpoint has no source line.
func (b *Breakpoint) IsGlobal() bool {
	return b.Kind == BreakpointGlobal
}

// Flags returns the line status flags the breakpoint contributes.
func (b *Breakpoint) Flags() LineFlags {
	f := FlagBreakpoint
	if !b.Enabled {
		f |= FlagBreakpointDisabled
	}
	if b.Condition != "" {
		f |= FlagBreakpointConditional
	}
	return f
}

// BreakpointRegistry is the ordered breakpoint list plus the single
// temporary breakpoint slot used for run-to-cursor. Every mutation keeps the
// line status tracker in step.
type BreakpointRegistry struct {
	order     []int
	byNumber  map[int]*Breakpoint
	temporary *Breakpoint

	status  *LineStatusTracker
	sources *LineSourceRegistry
	runtime Runtime
}

// NewBreakpointRegistry creates an empty registry that reports line status
// changes to status and names line sources through sources.
func NewBreakpointRegistry(status *LineStatusTracker, sources *LineSourceRegistry) *BreakpointRegistry {
	return &BreakpointRegistry{
		byNumber: make(map[int]*Breakpoint),
		status:   status,
		sources:  sources,
	}
}

func (r *BreakpointRegistry) filename(sourceID int) string {
	if r.sources == nil {
		return ""
	}
	if src, ok := r.sources.Get(sourceID); ok {
		return src.Filename
	}
	return ""
}

// SetRuntime attaches or (with nil) detaches the runtime that confirms and
// numbers breakpoints.
func (r *BreakpointRegistry) SetRuntime(rt Runtime) {
	r.runtime = rt
}

// SynthesizeNumber returns 1 + the largest number in use, including the
// temporary breakpoint.
func (r *BreakpointRegistry) SynthesizeNumber() int {
	highest := 0
	for n := range r.byNumber {
		if n > highest {
			highest = n
		}
	}
	if r.temporary != nil && r.temporary.Number > highest {
		highest = r.temporary.Number
	}
	return highest + 1
}

// Get returns the breakpoint with the given number.
func (r *BreakpointRegistry) Get(number int) (*Breakpoint, bool) {
	bp, ok := r.byNumber[number]
	return bp, ok
}

// At returns the line breakpoint at (sourceID, line).
func (r *BreakpointRegistry) At(sourceID, line int) (*Breakpoint, bool) {
	for _, n := range r.order {
		bp := r.byNumber[n]
		if !bp.IsGlobal() && bp.SourceID == sourceID && bp.Line == line {
			return bp, true
		}
	}
	return nil, false
}

// ForSource returns the line breakpoints of a source in list order.
func (r *BreakpointRegistry) ForSource(sourceID int) []*Breakpoint {
	var out []*Breakpoint
	for _, n := range r.order {
		if bp := r.byNumber[n]; !bp.IsGlobal() && bp.SourceID == sourceID {
			out = append(out, bp)
		}
	}
	return out
}

// Numbers returns a snapshot of the breakpoint numbers in list order.
func (r *BreakpointRegistry) Numbers() []int {
	return append([]int(nil), r.order...)
}

// All returns copies of the breakpoints in list order. The temporary
// breakpoint is not included.
func (r *BreakpointRegistry) All() []Breakpoint {
	out := make([]Breakpoint, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, *r.byNumber[n])
	}
	return out
}

// Len returns the number of listed breakpoints.
func (r *BreakpointRegistry) Len() int {
	return len(r.order)
}

// ToggleAt deletes the breakpoint at (sourceID, line) if there is one and
// creates one otherwise. It reports whether a breakpoint exists afterwards.
func (r *BreakpointRegistry) ToggleAt(sourceID, line int, condition string, stopOnChange bool) (bool, error) {
	if bp, ok := r.At(sourceID, line); ok {
		if err := r.Delete(bp.Number); err != nil {
			return true, err
		}
		return false, nil
	}
	if _, _, err := r.AddLine(sourceID, line, condition, stopOnChange, true); err != nil {
		return false, err
	}
	return true, nil
}

// AddLine creates an enabled or disabled line breakpoint. With a runtime
// attached the breakpoint is confirmed first and may land on a different
// line; moved reports that. If a breakpoint already occupies the final line
// it is returned unchanged.
func (r *BreakpointRegistry) AddLine(sourceID, line int, condition string, stopOnChange, enabled bool) (bp *Breakpoint, moved bool, err error) {
	if line < 1 {
		return nil, false, fmt.Errorf("line %d: %w", line, ErrInvalidLine)
	}

	number := 0
	actual := line
	if r.runtime != nil {
		conf, err := r.runtime.SetBreakpoint(BreakpointRequest{
			SourceID:     sourceID,
			Filename:     r.filename(sourceID),
			Line:         line,
			Condition:    condition,
			StopOnChange: stopOnChange,
		})
		if err != nil {
			return nil, false, fmt.Errorf("line %d: %w: %v", line, ErrRuntimeRejected, err)
		}
		number, actual = conf.Number, conf.Line
		if actual < 1 {
			actual = line
		}
		if existing, ok := r.At(sourceID, actual); ok {
			_ = r.runtime.ClearBreakpoint(number)
			return existing, actual != line, nil
		}
	} else if existing, ok := r.At(sourceID, line); ok {
		return existing, false, nil
	}

	bp = &Breakpoint{
		Number:       r.uniqueNumber(number),
		Kind:         BreakpointAtLine,
		SourceID:     sourceID,
		Line:         actual,
		Condition:    condition,
		StopOnChange: stopOnChange,
		Enabled:      true,
	}
	r.insert(bp)

	if !enabled {
		if err := r.Enable(bp.Number, false); err != nil {
			return bp, actual != line, err
		}
	}
	return bp, actual != line, nil
}

// AddGlobal creates a global breakpoint. Without a runtime it is kept
// locally and armed when the configuration is next loaded with one.
func (r *BreakpointRegistry) AddGlobal(condition string, stopOnChange, enabled bool) (*Breakpoint, error) {
	number := 0
	if r.runtime != nil {
		conf, err := r.runtime.SetBreakpoint(BreakpointRequest{
			Global:       true,
			SourceID:     NoSource,
			Condition:    condition,
			StopOnChange: stopOnChange,
		})
		if err != nil {
			return nil, fmt.Errorf("global %q: %w: %v", condition, ErrRuntimeRejected, err)
		}
		number = conf.Number
	}

	bp := &Breakpoint{
		Number:       r.uniqueNumber(number),
		Kind:         BreakpointGlobal,
		SourceID:     NoSource,
		Condition:    condition,
		StopOnChange: stopOnChange,
		Enabled:      true,
	}
	r.insert(bp)

	if !enabled {
		if err := r.Enable(bp.Number, false); err != nil {
			return bp, err
		}
	}
	return bp, nil
}

// uniqueNumber keeps a runtime-supplied number unless it is unusable.
func (r *BreakpointRegistry) uniqueNumber(n int) int {
	if n > 0 {
		if _, taken := r.byNumber[n]; !taken && (r.temporary == nil || r.temporary.Number != n) {
			return n
		}
	}
	return r.SynthesizeNumber()
}

func (r *BreakpointRegistry) insert(bp *Breakpoint) {
	r.byNumber[bp.Number] = bp
	r.order = append(r.order, bp.Number)
	if !bp.IsGlobal() {
		r.status.Set(bp.SourceID, bp.Line, bp.Flags())
	}
}

// Enable sets the enablement of a breakpoint.
func (r *BreakpointRegistry) Enable(number int, enabled bool) error {
	bp, ok := r.byNumber[number]
	if !ok {
		return notFound("breakpoint", number)
	}
	if r.runtime != nil {
		if err := r.runtime.EnableBreakpoint(number, enabled); err != nil {
			return fmt.Errorf("enable breakpoint %d: %w", number, err)
		}
	}
	bp.Enabled = enabled
	if bp.IsGlobal() {
		return nil
	}
	if enabled {
		r.status.Clear(bp.SourceID, bp.Line, FlagBreakpointDisabled)
	} else {
		r.status.Set(bp.SourceID, bp.Line, FlagBreakpointDisabled)
	}
	return nil
}

// Delete removes a breakpoint and its line flags.
func (r *BreakpointRegistry) Delete(number int) error {
	bp, ok := r.byNumber[number]
	if !ok {
		return notFound("breakpoint", number)
	}
	if r.runtime != nil {
		// The runtime may already have dropped it; the local list wins.
		_ = r.runtime.ClearBreakpoint(number)
	}
	r.remove(bp)
	return nil
}

func (r *BreakpointRegistry) remove(bp *Breakpoint) {
	delete(r.byNumber, bp.Number)
	for i, n := range r.order {
		if n == bp.Number {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if !bp.IsGlobal() {
		r.clearLine(bp.SourceID, bp.Line)
	}
}

// clearLine drops the breakpoint flags of a line, restoring those of any
// breakpoint still listed there.
func (r *BreakpointRegistry) clearLine(sourceID, line int) {
	r.status.Clear(sourceID, line, BreakpointFlags)
	if other, ok := r.At(sourceID, line); ok {
		r.status.Set(sourceID, line, other.Flags())
	}
}

// Move relocates a line breakpoint, keeping its enablement. A different
// breakpoint already on the new line is deleted, so a line never holds two.
func (r *BreakpointRegistry) Move(number, newLine int) error {
	bp, ok := r.byNumber[number]
	if !ok {
		return notFound("breakpoint", number)
	}
	if bp.IsGlobal() {
		return fmt.Errorf("breakpoint %d is global: %w", number, ErrInvalidLine)
	}
	if newLine < 1 {
		return fmt.Errorf("line %d: %w", newLine, ErrInvalidLine)
	}
	if newLine == bp.Line {
		return nil
	}
	if occupant, ok := r.At(bp.SourceID, newLine); ok && occupant != bp {
		if err := r.Delete(occupant.Number); err != nil {
			return err
		}
	}
	oldLine := bp.Line
	bp.Line = newLine
	r.clearLine(bp.SourceID, oldLine)
	r.status.Set(bp.SourceID, bp.Line, bp.Flags())
	return nil
}

// SetTemporary replaces the temporary breakpoint. It never appears in the
// list, in saved configuration or as a line marker.
func (r *BreakpointRegistry) SetTemporary(sourceID, line int) (*Breakpoint, error) {
	if line < 1 {
		return nil, fmt.Errorf("line %d: %w", line, ErrInvalidLine)
	}
	r.ClearTemporary()

	number := 0
	actual := line
	if r.runtime != nil {
		conf, err := r.runtime.SetBreakpoint(BreakpointRequest{
			SourceID:  sourceID,
			Filename:  r.filename(sourceID),
			Line:      line,
			Temporary: true,
		})
		if err != nil {
			return nil, fmt.Errorf("temporary at line %d: %w: %v", line, ErrRuntimeRejected, err)
		}
		number = conf.Number
		if conf.Line > 0 {
			actual = conf.Line
		}
	}
	if number <= 0 {
		number = r.SynthesizeNumber()
	} else if _, taken := r.byNumber[number]; taken {
		number = r.SynthesizeNumber()
	}

	r.temporary = &Breakpoint{
		Number:    number,
		Kind:      BreakpointAtLine,
		SourceID:  sourceID,
		Line:      actual,
		Enabled:   true,
		Temporary: true,
	}
	return r.temporary, nil
}

// Temporary returns the temporary breakpoint, if one is set.
func (r *BreakpointRegistry) Temporary() (*Breakpoint, bool) {
	return r.temporary, r.temporary != nil
}

// ClearTemporary removes the temporary breakpoint.
func (r *BreakpointRegistry) ClearTemporary() {
	if r.temporary == nil {
		return
	}
	if r.runtime != nil {
		_ = r.runtime.ClearBreakpoint(r.temporary.Number)
	}
	r.temporary = nil
}

// Clear deletes every breakpoint, including the temporary one.
func (r *BreakpointRegistry) Clear() {
	for _, n := range r.Numbers() {
		_ = r.Delete(n)
	}
	r.ClearTemporary()
}

// Reset drops every breakpoint without telling the runtime. Used when the
// program the runtime knew about is gone.
func (r *BreakpointRegistry) Reset() {
	for _, n := range r.Numbers() {
		r.remove(r.byNumber[n])
	}
	r.temporary = nil
}

// RefreshEnabled pulls global breakpoint enablement from the runtime, which
// is authoritative for it.
func (r *BreakpointRegistry) RefreshEnabled() {
	if r.runtime == nil {
		return
	}
	for _, n := range r.order {
		bp := r.byNumber[n]
		if !bp.IsGlobal() {
			continue
		}
		if enabled, known := r.runtime.BreakpointEnabled(n); known {
			bp.Enabled = enabled
		}
	}
}

// Each calls fn with each breakpoint in list order until fn returns false.
// fn may delete the breakpoint it is given.
func (r *BreakpointRegistry) Each(fn func(bp *Breakpoint) bool) {
	for _, n := range r.Numbers() {
		bp, ok := r.byNumber[n]
		if !ok {
			continue
		}
		if !fn(bp) {
			return
		}
	}
}
