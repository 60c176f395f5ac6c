package debug

import (
	"errors"
	"path/filepath"
)

type markerUpdate struct {
	window Handle
	line   int
	flags  LineFlags
}

type fakeWindow struct {
	kind    WindowKind
	title   string
	path    string
	lines   []string
	markers map[int]LineFlags
}

// fakeUI records window operations. Files resolve under /src.
type fakeUI struct {
	next    Handle
	windows map[Handle]*fakeWindow
	updates []markerUpdate
	files   map[string]bool
	loadErr error
	closed  []Handle
}

func newFakeUI(files ...string) *fakeUI {
	ui := &fakeUI{windows: make(map[Handle]*fakeWindow), files: make(map[string]bool)}
	for _, f := range files {
		ui.files[f] = true
	}
	return ui
}

func (u *fakeUI) CreateWindow(kind WindowKind, title, path string) (Handle, error) {
	u.next++
	u.windows[u.next] = &fakeWindow{kind: kind, title: title, path: path, markers: make(map[int]LineFlags)}
	return u.next, nil
}

func (u *fakeUI) LoadFileInto(h Handle, path string) error {
	if u.loadErr != nil {
		return u.loadErr
	}
	if _, ok := u.windows[h]; !ok {
		return errors.New("no such window")
	}
	return nil
}

func (u *fakeUI) UpdateLineMarker(h Handle, line int, flags LineFlags) {
	u.updates = append(u.updates, markerUpdate{h, line, flags})
	if w, ok := u.windows[h]; ok {
		if flags == 0 {
			delete(w.markers, line)
		} else {
			w.markers[line] = flags
		}
	}
}

func (u *fakeUI) ResolvePath(filename string) (string, bool) {
	name := filepath.Base(filename)
	if !u.files[name] {
		return "", false
	}
	return filepath.Join("/src", name), true
}

func (u *fakeUI) SetWindowLines(h Handle, lines []string) {
	if w, ok := u.windows[h]; ok {
		w.lines = lines
	}
}

func (u *fakeUI) CloseWindow(h Handle) {
	delete(u.windows, h)
	u.closed = append(u.closed, h)
}

func (u *fakeUI) marker(h Handle, line int) LineFlags {
	if w, ok := u.windows[h]; ok {
		return w.markers[line]
	}
	return 0
}

func (u *fakeUI) updatedWindows(line int) map[Handle]bool {
	out := make(map[Handle]bool)
	for _, up := range u.updates {
		if up.line == line {
			out[up.window] = true
		}
	}
	return out
}

// fakeRuntime numbers breakpoints from 100 and can move or reject lines.
type fakeRuntime struct {
	threshold int
	sources   []RuntimeSource

	relocate map[int]int
	reject   map[int]bool
	next     int
	armed    map[int]BreakpointRequest
	enabled  map[int]bool

	pos     Position
	signals []Signal
	stack   []Frame
	history []HistoryEntry
}

func newFakeRuntime(files ...string) *fakeRuntime {
	rt := &fakeRuntime{
		relocate: make(map[int]int),
		reject:   make(map[int]bool),
		next:     100,
		armed:    make(map[int]BreakpointRequest),
		enabled:  make(map[int]bool),
	}
	for i, f := range files {
		rt.sources = append(rt.sources, RuntimeSource{ID: i + 1, Filename: f, Path: filepath.Join("/src", f)})
	}
	rt.threshold = len(files) + 1
	return rt
}

func (r *fakeRuntime) SourceIDThreshold() int   { return r.threshold }
func (r *fakeRuntime) Sources() []RuntimeSource { return r.sources }

func (r *fakeRuntime) SetBreakpoint(req BreakpointRequest) (BreakpointConfirmation, error) {
	if !req.Global && r.reject[req.Line] {
		return BreakpointConfirmation{}, errors.New("no code at line")
	}
	line := req.Line
	if to, ok := r.relocate[line]; ok {
		line = to
	}
	n := r.next
	r.next++
	req.Line = line
	r.armed[n] = req
	r.enabled[n] = true
	return BreakpointConfirmation{Number: n, Line: line}, nil
}

func (r *fakeRuntime) ClearBreakpoint(number int) error {
	delete(r.armed, number)
	delete(r.enabled, number)
	return nil
}

func (r *fakeRuntime) EnableBreakpoint(number int, enabled bool) error {
	if _, ok := r.armed[number]; !ok {
		return errors.New("unknown breakpoint")
	}
	r.enabled[number] = enabled
	return nil
}

func (r *fakeRuntime) BreakpointEnabled(number int) (bool, bool) {
	en, ok := r.enabled[number]
	return en, ok
}

func (r *fakeRuntime) CurrentPosition() (Position, error) { return r.pos, nil }

func (r *fakeRuntime) Signal(sig Signal) error {
	r.signals = append(r.signals, sig)
	return nil
}

func (r *fakeRuntime) CallStack() []Frame      { return r.stack }
func (r *fakeRuntime) History() []HistoryEntry { return r.history }
