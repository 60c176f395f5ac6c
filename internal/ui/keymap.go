package ui

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/dshills/stepwise/internal/renderer/backend"
)

// Actions understood by the Controller.
const (
	ActionToggleBreakpoint = "toggle_breakpoint"
	ActionEnableBreakpoint = "enable_breakpoint"
	ActionClearBreakpoints = "clear_breakpoints"
	ActionListBreakpoints  = "list_breakpoints"
	ActionGo               = "go"
	ActionStepOver         = "step_over"
	ActionStepInto         = "step_into"
	ActionStepOut          = "step_out"
	ActionRunToCursor      = "run_to_cursor"
	ActionRestart          = "restart"
	ActionAbort            = "abort"
	ActionQuit             = "quit"
	ActionNextWindow       = "next_window"
	ActionPrevWindow       = "prev_window"
	ActionCloseWindow      = "close_window"
	ActionCursorUp         = "cursor_up"
	ActionCursorDown       = "cursor_down"
	ActionPageUp           = "page_up"
	ActionPageDown         = "page_down"
	ActionTop              = "top"
	ActionBottom           = "bottom"
	ActionSelect           = "select"
	ActionStack            = "stack"
	ActionHistory          = "history"
	ActionLog              = "log"
	ActionHelp             = "help"
)

// ErrInvalidKey is returned for a key specification that cannot be parsed.
var ErrInvalidKey = errors.New("invalid key specification")

// ErrUnknownAction is returned when a binding names an unknown action.
var ErrUnknownAction = errors.New("unknown action")

// Binding maps a key to an action.
type Binding struct {
	Keys        string
	Action      string
	Description string
}

// DefaultBindings returns the built-in key bindings.
func DefaultBindings() []Binding {
	return []Binding{
		{Keys: "b", Action: ActionToggleBreakpoint, Description: "Toggle breakpoint at cursor"},
		{Keys: "e", Action: ActionEnableBreakpoint, Description: "Enable/disable breakpoint at cursor"},
		{Keys: "B", Action: ActionClearBreakpoints, Description: "Clear all breakpoints"},
		{Keys: "l", Action: ActionListBreakpoints, Description: "List breakpoints"},
		{Keys: "g", Action: ActionGo, Description: "Run / continue"},
		{Keys: "n", Action: ActionStepOver, Description: "Step over"},
		{Keys: "s", Action: ActionStepInto, Description: "Step into"},
		{Keys: "o", Action: ActionStepOut, Description: "Step out"},
		{Keys: "r", Action: ActionRunToCursor, Description: "Run to cursor"},
		{Keys: "R", Action: ActionRestart, Description: "Restart program"},
		{Keys: "A", Action: ActionAbort, Description: "Abort program"},
		{Keys: "q", Action: ActionQuit, Description: "Quit"},
		{Keys: "Tab", Action: ActionNextWindow, Description: "Next window"},
		{Keys: "Backtab", Action: ActionPrevWindow, Description: "Previous window"},
		{Keys: "x", Action: ActionCloseWindow, Description: "Close window"},
		{Keys: "k", Action: ActionCursorUp, Description: "Cursor up"},
		{Keys: "Up", Action: ActionCursorUp, Description: "Cursor up"},
		{Keys: "j", Action: ActionCursorDown, Description: "Cursor down"},
		{Keys: "Down", Action: ActionCursorDown, Description: "Cursor down"},
		{Keys: "PgUp", Action: ActionPageUp, Description: "Page up"},
		{Keys: "PgDn", Action: ActionPageDown, Description: "Page down"},
		{Keys: "Home", Action: ActionTop, Description: "First line"},
		{Keys: "End", Action: ActionBottom, Description: "Last line"},
		{Keys: "Enter", Action: ActionSelect, Description: "Select frame / open source"},
		{Keys: "S", Action: ActionStack, Description: "Call stack window"},
		{Keys: "H", Action: ActionHistory, Description: "Call history window"},
		{Keys: "L", Action: ActionLog, Description: "Debug log window"},
		{Keys: "?", Action: ActionHelp, Description: "Key help"},
		{Keys: "F5", Action: ActionGo, Description: "Run / continue"},
		{Keys: "F9", Action: ActionToggleBreakpoint, Description: "Toggle breakpoint at cursor"},
		{Keys: "F10", Action: ActionStepOver, Description: "Step over"},
		{Keys: "F11", Action: ActionStepInto, Description: "Step into"},
		{Keys: "Ctrl+C", Action: ActionQuit, Description: "Quit"},
	}
}

// keySpec is a parsed key: a special key, or KeyRune with a rune.
type keySpec struct {
	key  backend.Key
	r    rune
	ctrl bool
}

var namedKeys = map[string]backend.Key{
	"enter":     backend.KeyEnter,
	"return":    backend.KeyEnter,
	"esc":       backend.KeyEscape,
	"escape":    backend.KeyEscape,
	"tab":       backend.KeyTab,
	"backtab":   backend.KeyBacktab,
	"backspace": backend.KeyBackspace,
	"home":      backend.KeyHome,
	"end":       backend.KeyEnd,
	"pgup":      backend.KeyPageUp,
	"pageup":    backend.KeyPageUp,
	"pgdn":      backend.KeyPageDown,
	"pagedown":  backend.KeyPageDown,
	"up":        backend.KeyUp,
	"down":      backend.KeyDown,
	"left":      backend.KeyLeft,
	"right":     backend.KeyRight,
	"f5":        backend.KeyF5,
	"f9":        backend.KeyF9,
	"f10":       backend.KeyF10,
	"f11":       backend.KeyF11,
}

// parseKey parses a key specification: a single character ("b", "?"),
// a key name ("Enter", "F9", "PgDn") or "Ctrl+C".
func parseKey(spec string) (keySpec, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return keySpec{}, fmt.Errorf("empty key: %w", ErrInvalidKey)
	}
	if spec == "Space" || spec == "space" {
		return keySpec{key: backend.KeyRune, r: ' '}, nil
	}
	if utf8.RuneCountInString(spec) == 1 {
		r, _ := utf8.DecodeRuneInString(spec)
		return keySpec{key: backend.KeyRune, r: r}, nil
	}
	lower := strings.ToLower(spec)
	if k, ok := namedKeys[lower]; ok {
		return keySpec{key: k}, nil
	}
	if lower == "ctrl+c" {
		return keySpec{ctrl: true, r: 'c'}, nil
	}
	return keySpec{}, fmt.Errorf("%q: %w", spec, ErrInvalidKey)
}

// specFor returns the keySpec an event corresponds to.
func specFor(ev backend.Event) keySpec {
	switch {
	case ev.Key == backend.KeyCtrlC:
		return keySpec{ctrl: true, r: 'c'}
	case ev.Key == backend.KeyRune:
		return keySpec{key: backend.KeyRune, r: ev.Rune}
	default:
		return keySpec{key: ev.Key}
	}
}

// Keymap resolves key events to actions.
type Keymap struct {
	bindings []Binding
	lookup   map[keySpec]string
}

// NewKeymap builds a keymap from the defaults, with overrides mapping
// action names to keys. An override replaces every default key of its
// action.
func NewKeymap(overrides map[string]string) (*Keymap, error) {
	defaults := DefaultBindings()
	known := make(map[string]string, len(defaults))
	for _, b := range defaults {
		known[b.Action] = b.Description
	}

	bindings := make([]Binding, 0, len(defaults)+len(overrides))
	for _, b := range defaults {
		if _, ok := overrides[b.Action]; !ok {
			bindings = append(bindings, b)
		}
	}
	actions := make([]string, 0, len(overrides))
	for action := range overrides {
		actions = append(actions, action)
	}
	sort.Strings(actions)
	for _, action := range actions {
		desc, ok := known[action]
		if !ok {
			return nil, fmt.Errorf("%q: %w", action, ErrUnknownAction)
		}
		bindings = append(bindings, Binding{Keys: overrides[action], Action: action, Description: desc})
	}

	km := &Keymap{bindings: bindings, lookup: make(map[keySpec]string, len(bindings))}
	for _, b := range bindings {
		spec, err := parseKey(b.Keys)
		if err != nil {
			return nil, fmt.Errorf("binding %s: %w", b.Action, err)
		}
		km.lookup[spec] = b.Action
	}
	return km, nil
}

// Lookup returns the action bound to a key event.
func (km *Keymap) Lookup(ev backend.Event) (string, bool) {
	if ev.Type != backend.EventKey {
		return "", false
	}
	action, ok := km.lookup[specFor(ev)]
	return action, ok
}

// Bindings returns the effective bindings.
func (km *Keymap) Bindings() []Binding {
	return append([]Binding(nil), km.bindings...)
}

// HelpLines formats the bindings for the help window.
func (km *Keymap) HelpLines() []string {
	lines := make([]string, 0, len(km.bindings))
	for _, b := range km.bindings {
		lines = append(lines, fmt.Sprintf("%-8s %-18s %s", b.Keys, b.Action, b.Description))
	}
	return lines
}
