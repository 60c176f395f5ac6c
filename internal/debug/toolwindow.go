package debug

import (
	"fmt"
	"strings"
)

// windowBehavior is the per-kind capability set of a tool window.
type windowBehavior interface {
	title() string
	// reformat rebuilds the window text from session state.
	reformat(s *Session, a *WindowAssociation)
	// closed runs after the window's association has been removed.
	closed(s *Session, a *WindowAssociation)
}

var toolBehaviors = map[WindowKind]windowBehavior{
	KindStack:    stackWindow{},
	KindHistory:  historyWindow{},
	KindSearch:   searchWindow{},
	KindHelp:     helpWindow{},
	KindDebugLog: logWindow{},
}

type stackWindow struct{}

func (stackWindow) title() string { return "Stack" }

func (stackWindow) reformat(s *Session, a *WindowAssociation) {
	lines := make([]string, 0, len(s.frames))
	for i, f := range s.frames {
		mark := " "
		if i == s.selectedFrame {
			mark = ">"
		}
		fn := f.Function
		if fn == "" {
			fn = "?"
		}
		lines = append(lines, fmt.Sprintf("%s#%-2d %s  %s:%d", mark, i, fn, f.Filename, f.Line))
	}
	if len(lines) == 0 {
		lines = append(lines, "(not stopped)")
	}
	s.ui.SetWindowLines(a.Window, lines)
}

func (stackWindow) closed(s *Session, _ *WindowAssociation) {
	s.exec.ClearContext()
	s.selectedFrame = 0
}

type historyWindow struct{}

func (historyWindow) title() string { return "Call History" }

func (historyWindow) reformat(s *Session, a *WindowAssociation) {
	lines := make([]string, 0, len(s.history))
	for _, h := range s.history {
		depth := h.Depth
		if depth < 0 {
			depth = 0
		}
		lines = append(lines, fmt.Sprintf("%s%s  %s:%d", strings.Repeat("  ", depth), h.Function, h.Filename, h.Line))
	}
	s.ui.SetWindowLines(a.Window, lines)
}

func (historyWindow) closed(*Session, *WindowAssociation) {}

type searchWindow struct{}

func (searchWindow) title() string { return "Search Results" }

func (searchWindow) reformat(s *Session, a *WindowAssociation) {
	lines := make([]string, 0, len(s.searchHits))
	for _, h := range s.searchHits {
		lines = append(lines, fmt.Sprintf("%s:%d: %s", h.Filename, h.Line, h.Text))
	}
	s.ui.SetWindowLines(a.Window, lines)
}

func (searchWindow) closed(s *Session, _ *WindowAssociation) {
	s.searchHits = nil
}

type helpWindow struct{}

func (helpWindow) title() string { return "Help" }

func (helpWindow) reformat(s *Session, a *WindowAssociation) {
	lines := make([]string, 0, len(s.helpLines)+1)
	if s.helpTopic != "" {
		lines = append(lines, s.helpTopic)
	}
	lines = append(lines, s.helpLines...)
	s.ui.SetWindowLines(a.Window, lines)
}

func (helpWindow) closed(*Session, *WindowAssociation) {}

type logWindow struct{}

func (logWindow) title() string { return "Debug Log" }

func (logWindow) reformat(s *Session, a *WindowAssociation) {
	s.ui.SetWindowLines(a.Window, append([]string(nil), s.logLines...))
}

func (logWindow) closed(*Session, *WindowAssociation) {}
