package debug

import (
	"errors"
	"strings"
	"testing"

	"github.com/dshills/stepwise/internal/config"
	"github.com/dshills/stepwise/internal/config/store"
)

func newTestSession(t *testing.T, files ...string) (*Session, *fakeUI, *fakeRuntime) {
	t.Helper()
	ui := newFakeUI(files...)
	rt := newFakeRuntime(files...)
	s := New(ui)
	if res := s.LoadProgram(rt, store.NewMemory()); res != LoadOK {
		t.Fatalf("LoadProgram() = %s", res)
	}
	return s, ui, rt
}

func TestSession_New(t *testing.T) {
	s := New(newFakeUI())
	if s.ID() == "" {
		t.Error("empty session id")
	}
	if s.State() != StateIdle {
		t.Errorf("State() = %s, want idle", s.State())
	}
	// Without a runtime, execution commands are refused.
	if err := s.Go(); !errors.Is(err, ErrNoRuntime) {
		t.Errorf("Go() without runtime = %v, want ErrNoRuntime", err)
	}
	if err := s.Quit(); !errors.Is(err, ErrNoRuntime) {
		t.Errorf("Quit() without runtime = %v, want ErrNoRuntime", err)
	}
	if err := s.OnDebuggerEntered(); err != nil {
		t.Errorf("OnDebuggerEntered() without runtime = %v", err)
	}
}

func TestSession_AttachArmsOfflineBreakpoints(t *testing.T) {
	s := New(newFakeUI("main.lua"))
	src, _ := s.Sources().FindOrSynthesize("main.lua", "")
	if _, err := s.ToggleBreakpointAt(src.ID, 5, "", false); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddGlobalBreakpoint("done", false); err != nil {
		t.Fatal(err)
	}

	rt := newFakeRuntime("main.lua")
	if res := s.Attach(rt); res != LoadOK {
		t.Fatalf("Attach() = %s, want ok", res)
	}
	if len(rt.armed) != 2 {
		t.Fatalf("armed in runtime = %d, want 2", len(rt.armed))
	}

	var line Breakpoint
	s.EnumBreakpoints(func(bp Breakpoint) bool {
		if !bp.IsGlobal() {
			line = bp
		}
		return true
	})
	if line.SourceID != 1 || line.Line != 5 {
		t.Fatalf("line breakpoint = %+v, want runtime source 1 line 5", line)
	}
	if _, ok := rt.armed[line.Number]; !ok {
		t.Fatalf("breakpoint #%d not known to the runtime", line.Number)
	}
	if err := s.EnableBreakpoint(line.Number, false); err != nil {
		t.Fatalf("EnableBreakpoint() error = %v", err)
	}
	if rt.enabled[line.Number] {
		t.Error("runtime breakpoint still enabled")
	}

	if res := s.Attach(nil); res != LoadOK || s.Runtime() != nil {
		t.Errorf("Attach(nil) = %s, runtime %v", res, s.Runtime())
	}
	if s.Breakpoints().Len() != 2 {
		t.Errorf("breakpoints after detach = %d, want 2", s.Breakpoints().Len())
	}
}

func TestSession_RefreshFansOutToEveryWindow(t *testing.T) {
	s, ui, _ := newTestSession(t, "main.lua")

	first, err := s.OpenLineSource(1)
	if err != nil {
		t.Fatal(err)
	}
	// A second window on the same source, e.g. a split view.
	h2, _ := ui.CreateWindow(KindSource, "main.lua", "/src/main.lua")
	s.Windows().Add(&WindowAssociation{Window: h2, SourceID: 1, Filename: "main.lua", Path: "/src/main.lua", Kind: KindSource})

	if _, err := s.ToggleBreakpoint(first.Window, 12, "", false); err != nil {
		t.Fatal(err)
	}

	got := ui.updatedWindows(12)
	if !got[first.Window] || !got[h2] {
		t.Errorf("refreshed windows = %v, want %d and %d", got, first.Window, h2)
	}
	if ui.marker(h2, 12) != FlagBreakpoint {
		t.Errorf("marker in second window = %s", ui.marker(h2, 12))
	}
}

func TestSession_ToggleBreakpointNotFound(t *testing.T) {
	s, _, _ := newTestSession(t, "main.lua")

	if _, err := s.ToggleBreakpoint(42, 1, "", false); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown window: %v", err)
	}
	help, err := s.OpenToolWindow(KindHelp)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.ToggleBreakpoint(help.Window, 1, "", false); !errors.Is(err, ErrNotFound) {
		t.Errorf("tool window: %v", err)
	}
	if _, err := s.ToggleBreakpointAt(77, 1, "", false); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown source: %v", err)
	}
}

func TestSession_OpenWindowPaintsExistingMarkers(t *testing.T) {
	s, ui, _ := newTestSession(t, "main.lua")
	s.ToggleBreakpointAt(1, 3, "", false)
	s.ToggleBreakpointAt(1, 8, "x", false)

	a, err := s.OpenLineSource(1)
	if err != nil {
		t.Fatal(err)
	}
	if ui.marker(a.Window, 3) != FlagBreakpoint {
		t.Errorf("line 3 marker = %s", ui.marker(a.Window, 3))
	}
	if ui.marker(a.Window, 8) != FlagBreakpoint|FlagBreakpointConditional {
		t.Errorf("line 8 marker = %s", ui.marker(a.Window, 8))
	}

	again, err := s.OpenLineSource(1)
	if err != nil || again.Window != a.Window {
		t.Errorf("second open = %v, %v; want window reuse", again, err)
	}
}

func TestSession_OpenFileUnresolvable(t *testing.T) {
	s, ui, _ := newTestSession(t, "main.lua")

	if _, err := s.OpenFile("missing.lua"); !errors.Is(err, ErrFileUnresolvable) {
		t.Errorf("OpenFile(missing) = %v", err)
	}

	ui.files["extra.lua"] = true
	ui.loadErr = errors.New("permission denied")
	if _, err := s.OpenFile("extra.lua"); !errors.Is(err, ErrFileUnresolvable) {
		t.Errorf("OpenFile(unreadable) = %v", err)
	}
	if len(ui.windows) != 0 {
		t.Errorf("failed load left %d windows open", len(ui.windows))
	}
	if s.Windows().Len() != 0 {
		t.Error("failed load left an association")
	}
}

func TestSession_OpenFileSynthesizesSource(t *testing.T) {
	s, _, rt := newTestSession(t, "main.lua")
	s.ui.(*fakeUI).files["notes.lua"] = true

	a, err := s.OpenFile("notes.lua")
	if err != nil {
		t.Fatal(err)
	}
	if a.SourceID < rt.SourceIDThreshold() {
		t.Errorf("synthesized id %d below threshold %d", a.SourceID, rt.SourceIDThreshold())
	}
}

func TestSession_ToolWindowsAreSingletons(t *testing.T) {
	s, ui, _ := newTestSession(t, "main.lua")

	a, err := s.OpenToolWindow(KindStack)
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.OpenToolWindow(KindStack)
	if err != nil {
		t.Fatal(err)
	}
	if a.Window != b.Window {
		t.Errorf("stack windows %d and %d", a.Window, b.Window)
	}
	if a.SourceID != NoSource {
		t.Errorf("tool window source = %d", a.SourceID)
	}

	if err := s.CloseWindow(a.Window); err != nil {
		t.Fatal(err)
	}
	c, _ := s.OpenToolWindow(KindStack)
	if c.Window == a.Window {
		t.Error("closed tool window reused")
	}
	if _, ok := ui.windows[c.Window]; !ok {
		t.Error("new tool window not created in the UI")
	}

	if _, err := s.OpenToolWindow(KindSource); !errors.Is(err, ErrNotFound) {
		t.Errorf("OpenToolWindow(source) = %v", err)
	}
}

func TestSession_StopRefreshesToolWindows(t *testing.T) {
	s, ui, rt := newTestSession(t, "main.lua", "util.lua")
	stack, _ := s.OpenToolWindow(KindStack)

	rt.pos = Position{SourceID: 2, Line: 4}
	rt.stack = []Frame{
		{Function: "helper", SourceID: 2, Filename: "util.lua", Line: 4},
		{Function: "main", SourceID: 1, Filename: "main.lua", Line: 10},
	}
	rt.history = []HistoryEntry{{Function: "main", Filename: "main.lua", Line: 1}}

	if err := s.OnDebuggerEntered(); err != nil {
		t.Fatal(err)
	}
	if got := s.Status().Flags(2, 4); got != FlagCurrentLine {
		t.Errorf("current line flags = %s", got)
	}
	lines := ui.windows[stack.Window].lines
	if len(lines) != 2 || !strings.HasPrefix(lines[0], ">#0") || !strings.Contains(lines[0], "helper") {
		t.Errorf("stack lines = %q", lines)
	}
	// Auto-open shows the current source.
	if _, ok := s.Windows().ForFile("util.lua", "/src/util.lua"); !ok {
		t.Error("current source not opened")
	}

	if err := s.SelectFrame(1); err != nil {
		t.Fatal(err)
	}
	if got := s.Status().Flags(1, 10); got != FlagContextLine {
		t.Errorf("context line flags = %s", got)
	}
	if err := s.SelectFrame(5); !errors.Is(err, ErrNotFound) {
		t.Errorf("SelectFrame(5) = %v", err)
	}

	if err := s.StepOver(); err != nil {
		t.Fatal(err)
	}
	if s.Status().Len() != 0 {
		t.Errorf("markers left after resume: %d", s.Status().Len())
	}
	if last := rt.signals[len(rt.signals)-1]; last != SignalStepOver {
		t.Errorf("last signal = %s", last)
	}
	if s.State() != StateRunning {
		t.Errorf("State() = %s, want running", s.State())
	}
}

func TestSession_RunToCursor(t *testing.T) {
	s, _, rt := newTestSession(t, "main.lua")
	a, _ := s.OpenLineSource(1)

	if err := s.RunToCursor(a.Window, 15); err != nil {
		t.Fatal(err)
	}
	tmp, ok := s.Breakpoints().Temporary()
	if !ok || tmp.Line != 15 {
		t.Fatalf("temporary = %+v, %v", tmp, ok)
	}
	if rt.signals[len(rt.signals)-1] != SignalGo {
		t.Error("run to cursor did not resume")
	}
	if s.Breakpoints().Len() != 0 {
		t.Error("temporary breakpoint listed")
	}

	rt.pos = Position{SourceID: 1, Line: 15}
	s.OnDebuggerEntered()
	if _, ok := s.Breakpoints().Temporary(); ok {
		t.Error("temporary breakpoint not consumed on stop")
	}
}

func TestSession_ChangeFileLink(t *testing.T) {
	s, ui, _ := newTestSession(t, "main.lua", "util.lua")
	a, _ := s.OpenLineSource(1)
	s.ToggleBreakpointAt(1, 5, "", false)
	s.ToggleBreakpointAt(2, 7, "", false)

	if err := s.ChangeFileLink(a.Window, "util.lua"); err != nil {
		t.Fatal(err)
	}
	if ui.marker(a.Window, 5) != 0 {
		t.Error("old source marker left")
	}
	if ui.marker(a.Window, 7) != FlagBreakpoint {
		t.Error("new source marker not painted")
	}
	if got, _ := s.Windows().Get(a.Window); got.SourceID != 2 || got.Filename != "util.lua" {
		t.Errorf("association = %+v", got)
	}

	if err := s.ChangeFileLink(a.Window, "nowhere.lua"); !errors.Is(err, ErrFileUnresolvable) {
		t.Errorf("ChangeFileLink(nowhere) = %v", err)
	}
}

func TestSession_EnumSourceWindowsAllowsClose(t *testing.T) {
	s, _, _ := newTestSession(t, "a.lua", "b.lua", "c.lua")
	for id := 1; id <= 3; id++ {
		if _, err := s.OpenLineSource(id); err != nil {
			t.Fatal(err)
		}
	}
	s.OpenToolWindow(KindHelp)

	visited := 0
	s.EnumSourceWindows(func(a WindowAssociation) bool {
		visited++
		return s.CloseWindow(a.Window) == nil
	})
	if visited != 3 {
		t.Errorf("visited %d windows, want 3", visited)
	}
	if s.Windows().Len() != 1 {
		t.Errorf("Len() = %d, want only the help window", s.Windows().Len())
	}
}

func TestSession_EnumBreakpointsAllowsDelete(t *testing.T) {
	s, _, _ := newTestSession(t, "main.lua")
	for line := 1; line <= 3; line++ {
		s.ToggleBreakpointAt(1, line, "", false)
	}
	var lines []int
	s.EnumBreakpoints(func(bp Breakpoint) bool {
		lines = append(lines, bp.Line)
		return s.DeleteBreakpoint(bp.Number) == nil
	})
	if len(lines) != 3 || s.Breakpoints().Len() != 0 {
		t.Errorf("visited %v, %d left", lines, s.Breakpoints().Len())
	}
}

func TestSession_GlobalBreakpointNeedsCondition(t *testing.T) {
	s, _, _ := newTestSession(t, "main.lua")
	if _, err := s.AddGlobalBreakpoint("", false); !errors.Is(err, ErrEmptyCondition) {
		t.Errorf("AddGlobalBreakpoint(\"\") = %v", err)
	}
	bp, err := s.AddGlobalBreakpoint("total > 10", true)
	if err != nil || !bp.IsGlobal() {
		t.Errorf("AddGlobalBreakpoint = %+v, %v", bp, err)
	}
}

func TestSession_ReloadKeepsBreakpoints(t *testing.T) {
	s, ui, rt := newTestSession(t, "main.lua")
	a, _ := s.OpenLineSource(1)
	s.ToggleBreakpointAt(1, 20, "", false)

	// The recompiled program moved line 20's code to line 22.
	rt2 := newFakeRuntime("main.lua")
	rt2.relocate[20] = 22
	res := s.LoadProgram(rt2, nil)
	if res != LoadBreakpointsMoved {
		t.Fatalf("LoadProgram() = %s, want breakpoints moved", res)
	}
	if ui.marker(a.Window, 20) != 0 || ui.marker(a.Window, 22) != FlagBreakpoint {
		t.Errorf("markers: 20=%s 22=%s", ui.marker(a.Window, 20), ui.marker(a.Window, 22))
	}
	if len(rt.armed) != 1 {
		t.Error("old runtime should not be touched by reload")
	}
	if len(rt2.armed) != 1 {
		t.Errorf("new runtime armed %d breakpoints", len(rt2.armed))
	}
}

func TestSession_SaveLoad(t *testing.T) {
	s, _, _ := newTestSession(t, "main.lua")
	s.ToggleBreakpointAt(1, 4, "", false)
	s.AddGlobalBreakpoint("x", false)

	cfg := store.NewMemory()
	if err := s.Save(cfg); err != nil {
		t.Fatal(err)
	}
	if n := config.GroupLen(cfg, config.GroupBreakpoints, config.BreakpointFields); n != 2 {
		t.Fatalf("saved %d records", n)
	}

	s.ClearBreakpoints()
	if res := s.Load(cfg); res != LoadOK {
		t.Errorf("Load() = %s", res)
	}
	if s.Breakpoints().Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Breakpoints().Len())
	}

	cfg.Close()
	if err := s.Save(cfg); err == nil {
		t.Error("Save to closed store succeeded")
	}
}

func TestSession_LogfCapacity(t *testing.T) {
	s := New(newFakeUI(), WithLogCapacity(2))
	w, _ := s.OpenToolWindow(KindDebugLog)
	s.Logf("one")
	s.Logf("two")
	s.Logf("three %d", 3)

	got := s.LogLines()
	if len(got) != 2 || got[0] != "two" || got[1] != "three 3" {
		t.Errorf("LogLines() = %q", got)
	}
	if lines := s.ui.(*fakeUI).windows[w.Window].lines; len(lines) != 2 {
		t.Errorf("log window lines = %q", lines)
	}
}

func TestSession_SearchAndHelp(t *testing.T) {
	s := New(newFakeUI())
	if err := s.ShowSearchResults([]SearchHit{{Filename: "a.lua", Line: 3, Text: "local x"}}); err != nil {
		t.Fatal(err)
	}
	w, _ := s.Windows().ByKind(KindSearch)
	if lines := s.ui.(*fakeUI).windows[w.Window].lines; len(lines) != 1 || lines[0] != "a.lua:3: local x" {
		t.Errorf("search lines = %q", lines)
	}
	s.CloseWindow(w.Window)
	if s.searchHits != nil {
		t.Error("search hits kept after close")
	}

	if err := s.ShowHelp("Keys", []string{"b  toggle breakpoint"}); err != nil {
		t.Fatal(err)
	}
	h, _ := s.Windows().ByKind(KindHelp)
	if lines := s.ui.(*fakeUI).windows[h.Window].lines; len(lines) != 2 || lines[0] != "Keys" {
		t.Errorf("help lines = %q", lines)
	}
}

func TestSession_Close(t *testing.T) {
	s, ui, _ := newTestSession(t, "main.lua")
	s.OpenLineSource(1)
	s.OpenToolWindow(KindStack)

	s.Close()
	if s.Windows().Len() != 0 || len(ui.windows) != 0 {
		t.Errorf("windows left: registry=%d ui=%d", s.Windows().Len(), len(ui.windows))
	}
}

func TestSession_ProgramExited(t *testing.T) {
	s, ui, rt := newTestSession(t, "main.lua")
	stack, _ := s.OpenToolWindow(KindStack)
	logw, _ := s.OpenToolWindow(KindDebugLog)

	rt.pos = Position{SourceID: 1, Line: 3}
	rt.stack = []Frame{{Function: "main", SourceID: 1, Filename: "main.lua", Line: 3}}
	s.OnDebuggerEntered()
	s.Go()

	s.OnProgramExited(errors.New("boom"))
	if s.State() != StateIdle {
		t.Errorf("State() = %s, want idle", s.State())
	}
	if len(s.Frames()) != 0 {
		t.Errorf("frames kept after exit: %v", s.Frames())
	}
	if lines := ui.windows[stack.Window].lines; len(lines) != 1 || lines[0] != "(not stopped)" {
		t.Errorf("stack lines = %q", lines)
	}
	lines := ui.windows[logw.Window].lines
	if len(lines) == 0 || !strings.Contains(lines[len(lines)-1], "boom") {
		t.Errorf("log lines = %q", lines)
	}
}

func TestSession_Lookups(t *testing.T) {
	s, _, _ := newTestSession(t, "main.lua", "util.lua")
	a, _ := s.OpenLineSource(2)
	tool, _ := s.OpenToolWindow(KindHelp)

	if src, ok := s.SourceForFile("util.lua"); !ok || src.ID != 2 {
		t.Errorf("SourceForFile(util.lua) = %+v, %v", src, ok)
	}
	if _, ok := s.SourceForFile("nope.lua"); ok {
		t.Error("SourceForFile found an unknown file")
	}
	if w, ok := s.WindowAt(1); !ok || w.Window != tool.Window {
		t.Errorf("WindowAt(1) = %+v, %v", w, ok)
	}
	if _, ok := s.WindowAt(2); ok {
		t.Error("WindowAt(2) past the end")
	}
	if w, ok := s.WindowForFile("util.lua"); !ok || w.Window != a.Window {
		t.Errorf("WindowForFile(util.lua) = %+v, %v", w, ok)
	}

	s.ToggleBreakpoint(a.Window, 6, "", false)
	bp, ok := s.BreakpointAt(a.Window, 6)
	if !ok {
		t.Fatal("BreakpointAt(6) not found")
	}
	if _, ok := s.BreakpointAt(tool.Window, 6); ok {
		t.Error("BreakpointAt on a tool window")
	}
	if err := s.MoveBreakpoint(bp.Number, 9); err != nil {
		t.Fatal(err)
	}
	if s.Status().Flags(2, 6) != 0 || s.Status().Flags(2, 9) != FlagBreakpoint {
		t.Errorf("flags after move: 6=%s 9=%s", s.Status().Flags(2, 6), s.Status().Flags(2, 9))
	}
	if err := s.MoveBreakpoint(999, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("MoveBreakpoint(999) = %v", err)
	}
}
