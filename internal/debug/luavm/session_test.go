package luavm

import (
	"bytes"
	"context"
	"testing"

	"github.com/dshills/stepwise/internal/debug"
)

// headlessUI resolves every file and keeps only the markers.
type headlessUI struct {
	next    debug.Handle
	markers map[debug.Handle]map[int]debug.LineFlags
}

func (u *headlessUI) CreateWindow(debug.WindowKind, string, string) (debug.Handle, error) {
	u.next++
	u.markers[u.next] = make(map[int]debug.LineFlags)
	return u.next, nil
}

func (u *headlessUI) LoadFileInto(debug.Handle, string) error { return nil }

func (u *headlessUI) UpdateLineMarker(h debug.Handle, line int, flags debug.LineFlags) {
	if flags == 0 {
		delete(u.markers[h], line)
		return
	}
	u.markers[h][line] = flags
}

func (u *headlessUI) ResolvePath(filename string) (string, bool) { return filename, true }
func (u *headlessUI) SetWindowLines(debug.Handle, []string)      {}
func (u *headlessUI) CloseWindow(h debug.Handle)                 { delete(u.markers, h) }

func TestSessionDrivesVM(t *testing.T) {
	vm := newSumVM(t, &bytes.Buffer{})
	ui := &headlessUI{markers: make(map[debug.Handle]map[int]debug.LineFlags)}
	s := debug.New(ui)

	if res := s.LoadProgram(vm, nil); res != debug.LoadOK {
		t.Fatalf("LoadProgram() = %s", res)
	}
	// Line 4 holds no statement; the breakpoint lands on line 5.
	if _, err := s.ToggleBreakpointAt(1, 4, "", false); err != nil {
		t.Fatal(err)
	}
	bps := s.Breakpoints().All()
	if len(bps) != 1 || bps[0].Line != 5 {
		t.Fatalf("breakpoints = %+v", bps)
	}
	if _, err := s.ToggleBreakpointAt(1, 2, "i == 2", false); err != nil {
		t.Fatal(err)
	}

	var stops []debug.Position
	err := vm.Run(context.Background(), func() {
		if err := s.OnDebuggerEntered(); err != nil {
			t.Fatal(err)
		}
		pos, _ := s.Execution().Current()
		stops = append(stops, pos)
		if s.Status().Flags(pos.SourceID, pos.Line)&debug.FlagCurrentLine == 0 {
			t.Errorf("current line %d not marked", pos.Line)
		}
		if err := s.Go(); err != nil {
			t.Fatal(err)
		}
	})
	if err != nil {
		t.Fatal(err)
	}

	// The condition sees globals only, so "i == 2" never holds inside add.
	if len(stops) != 1 || stops[0].Line != 5 {
		t.Errorf("stops = %+v, want one at line 5", stops)
	}
	if s.Status().Flags(1, 5) != debug.FlagBreakpoint {
		t.Errorf("line 5 flags after run = %s", s.Status().Flags(1, 5))
	}
	if _, ok := s.Windows().ForFile("main.lua", ""); !ok {
		t.Error("auto-open did not show the stopped source")
	}
}
