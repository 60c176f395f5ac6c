package debug

import "testing"

type refreshCall struct {
	source int
	line   int
	flags  LineFlags
}

func newRecordingTracker() (*LineStatusTracker, *[]refreshCall) {
	var calls []refreshCall
	t := NewLineStatusTracker(func(src, line int, flags LineFlags) {
		calls = append(calls, refreshCall{src, line, flags})
	})
	return t, &calls
}

func TestLineStatusTracker_SetClear(t *testing.T) {
	tr, calls := newRecordingTracker()

	tr.Set(1, 10, FlagBreakpoint)
	tr.Set(1, 10, FlagCurrentLine)
	if got := tr.Flags(1, 10); got != FlagBreakpoint|FlagCurrentLine {
		t.Fatalf("flags = %s", got)
	}
	if len(*calls) != 2 {
		t.Fatalf("refresh calls = %d, want 2", len(*calls))
	}

	tr.Clear(1, 10, FlagBreakpoint)
	if _, ok := tr.Entry(1, 10); !ok {
		t.Fatal("entry removed while flags remain")
	}
	tr.Clear(1, 10, FlagCurrentLine)
	if _, ok := tr.Entry(1, 10); ok {
		t.Fatal("entry kept with zero flags")
	}
	last := (*calls)[len(*calls)-1]
	if last != (refreshCall{1, 10, 0}) {
		t.Errorf("last refresh = %+v, want zero flags", last)
	}
}

func TestLineStatusTracker_ClearIdempotent(t *testing.T) {
	tr, calls := newRecordingTracker()
	tr.Set(2, 5, FlagBreakpoint)

	tr.Clear(2, 5, FlagBreakpoint)
	n := len(*calls)
	tr.Clear(2, 5, FlagBreakpoint)
	tr.Clear(2, 5, FlagContextLine)

	if len(*calls) != n {
		t.Errorf("second clear refreshed: %d calls, want %d", len(*calls), n)
	}
	if tr.Len() != 0 {
		t.Errorf("Len() = %d, want 0", tr.Len())
	}
}

func TestLineStatusTracker_SetSameFlagNoRefresh(t *testing.T) {
	tr, calls := newRecordingTracker()
	tr.Set(1, 1, FlagBreakpoint)
	tr.Set(1, 1, FlagBreakpoint)
	tr.Set(1, 1, 0)
	if len(*calls) != 1 {
		t.Errorf("refresh calls = %d, want 1", len(*calls))
	}
}

func TestLineStatusTracker_EntriesFor(t *testing.T) {
	tr, _ := newRecordingTracker()
	tr.Set(1, 30, FlagBreakpoint)
	tr.Set(1, 10, FlagCurrentLine)
	tr.Set(2, 20, FlagBreakpoint)

	got := tr.EntriesFor(1)
	if len(got) != 2 || got[0].Line != 10 || got[1].Line != 30 {
		t.Errorf("EntriesFor(1) = %+v", got)
	}
}

func TestLineStatusTracker_ClearFlagEverywhere(t *testing.T) {
	tr, _ := newRecordingTracker()
	tr.Set(1, 1, FlagCurrentLine)
	tr.Set(2, 2, FlagCurrentLine|FlagBreakpoint)

	tr.ClearFlagEverywhere(FlagCurrentLine)

	if tr.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", tr.Len())
	}
	if got := tr.Flags(2, 2); got != FlagBreakpoint {
		t.Errorf("flags = %s, want breakpoint", got)
	}
}

func TestLineStatusTracker_Reset(t *testing.T) {
	tr, calls := newRecordingTracker()
	tr.Set(1, 1, FlagBreakpoint)
	tr.Set(1, 2, FlagBreakpoint)
	*calls = nil

	tr.Reset()

	if tr.Len() != 0 {
		t.Errorf("Len() = %d after reset", tr.Len())
	}
	if len(*calls) != 2 {
		t.Fatalf("refresh calls = %d, want 2", len(*calls))
	}
	for _, c := range *calls {
		if c.flags != 0 {
			t.Errorf("reset refreshed %+v with non-zero flags", c)
		}
	}
}

func TestLineFlags_String(t *testing.T) {
	tests := []struct {
		flags LineFlags
		want  string
	}{
		{0, "none"},
		{FlagBreakpoint, "breakpoint"},
		{FlagBreakpoint | FlagBreakpointDisabled, "breakpoint|disabled"},
		{FlagCurrentLine | FlagContextLine, "current|context"},
	}
	for _, tt := range tests {
		if got := tt.flags.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.flags, got, tt.want)
		}
	}
}
