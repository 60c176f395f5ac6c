package ui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dshills/stepwise/internal/debug"
	"github.com/dshills/stepwise/internal/logging"
	"github.com/dshills/stepwise/internal/renderer/gutter"
)

// defaultPageSize is used until the first draw reports the real height.
const defaultPageSize = 20

// HostOption configures a Host.
type HostOption func(*Host)

// WithSearchPaths sets the directories consulted by ResolvePath.
func WithSearchPaths(paths ...string) HostOption {
	return func(h *Host) {
		h.searchPaths = append([]string(nil), paths...)
	}
}

// WithTabWidth sets the tab stop width used when drawing text.
func WithTabWidth(n int) HostOption {
	return func(h *Host) {
		if n > 0 {
			h.tabWidth = n
		}
	}
}

// WithGutter sets the gutter configuration of source windows.
func WithGutter(cfg gutter.Config) HostOption {
	return func(h *Host) {
		h.gutterConfig = cfg
	}
}

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(l *logging.Logger) HostOption {
	return func(h *Host) {
		if l != nil {
			h.log = l
		}
	}
}

type window struct {
	handle  debug.Handle
	kind    debug.WindowKind
	title   string
	path    string
	lines   []string
	markers map[int]debug.LineFlags

	// cursor and top are 1-based line numbers.
	cursor int
	top    int

	gutter *gutter.Gutter
}

func (w *window) clamp(page int) {
	n := len(w.lines)
	w.cursor = max(1, min(w.cursor, n))
	if page < 1 {
		page = 1
	}
	if w.cursor < w.top {
		w.top = w.cursor
	}
	if w.cursor >= w.top+page {
		w.top = w.cursor - page + 1
	}
	w.top = max(1, w.top)
}

// Host keeps the debugger's windows and implements debug.UI.
type Host struct {
	windows map[debug.Handle]*window
	order   []debug.Handle
	active  debug.Handle
	next    debug.Handle

	searchPaths  []string
	tabWidth     int
	gutterConfig gutter.Config
	pageSize     int
	message      string

	log *logging.Logger
}

var _ debug.UI = (*Host)(nil)

// NewHost creates a host with no windows.
func NewHost(opts ...HostOption) *Host {
	h := &Host{
		windows:      make(map[debug.Handle]*window),
		searchPaths:  []string{"."},
		tabWidth:     4,
		gutterConfig: gutter.DefaultConfig(),
		pageSize:     defaultPageSize,
		log:          logging.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.log = h.log.WithComponent("ui")
	return h
}

// CreateWindow opens a window and makes it active.
func (h *Host) CreateWindow(kind debug.WindowKind, title, path string) (debug.Handle, error) {
	h.next++
	w := &window{
		handle:  h.next,
		kind:    kind,
		title:   title,
		path:    path,
		markers: make(map[int]debug.LineFlags),
		cursor:  1,
		top:     1,
		gutter:  gutter.New(h.gutterConfig),
	}
	h.windows[w.handle] = w
	h.order = append(h.order, w.handle)
	h.active = w.handle
	h.log.Debug("window %d created: %s %q", w.handle, kind, title)
	return w.handle, nil
}

// LoadFileInto reads the file at path into a window.
func (h *Host) LoadFileInto(handle debug.Handle, path string) error {
	w, ok := h.windows[handle]
	if !ok {
		return fmt.Errorf("window %d: %w", handle, debug.ErrNotFound)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	w.path = path
	w.title = filepath.Base(path)
	w.lines = splitLines(string(data))
	w.gutter.SetLineCount(len(w.lines))
	w.clamp(h.pageSize)
	return nil
}

// UpdateLineMarker stores the marker of one line. A window receiving the
// current-line marker becomes active with its cursor on that line.
func (h *Host) UpdateLineMarker(handle debug.Handle, line int, flags debug.LineFlags) {
	w, ok := h.windows[handle]
	if !ok {
		return
	}
	if flags == 0 {
		delete(w.markers, line)
		return
	}
	w.markers[line] = flags
	if flags&debug.FlagCurrentLine != 0 {
		h.active = handle
		w.cursor = line
		w.clamp(h.pageSize)
	}
}

// ResolvePath locates filename: as given when absolute, otherwise under
// each search path, first by its relative path and then by base name.
func (h *Host) ResolvePath(filename string) (string, bool) {
	if filename == "" {
		return "", false
	}
	if filepath.IsAbs(filename) {
		return filename, isFile(filename)
	}
	var candidates []string
	for _, dir := range h.searchPaths {
		candidates = append(candidates, filepath.Join(dir, filename))
	}
	if base := filepath.Base(filename); base != filename {
		for _, dir := range h.searchPaths {
			candidates = append(candidates, filepath.Join(dir, base))
		}
	}
	for _, c := range candidates {
		if isFile(c) {
			abs, err := filepath.Abs(c)
			if err != nil {
				return c, true
			}
			return abs, true
		}
	}
	return "", false
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// SetWindowLines replaces the text of a window.
func (h *Host) SetWindowLines(handle debug.Handle, lines []string) {
	w, ok := h.windows[handle]
	if !ok {
		return
	}
	w.lines = append([]string(nil), lines...)
	w.gutter.SetLineCount(len(w.lines))
	w.clamp(h.pageSize)
}

// CloseWindow removes a window. The next window in tab order becomes
// active.
func (h *Host) CloseWindow(handle debug.Handle) {
	if _, ok := h.windows[handle]; !ok {
		return
	}
	delete(h.windows, handle)
	idx := h.indexOf(handle)
	h.order = append(h.order[:idx], h.order[idx+1:]...)
	if h.active == handle {
		h.active = 0
		if len(h.order) > 0 {
			h.active = h.order[min(idx, len(h.order)-1)]
		}
	}
	h.log.Debug("window %d closed", handle)
}

func (h *Host) indexOf(handle debug.Handle) int {
	for i, o := range h.order {
		if o == handle {
			return i
		}
	}
	return -1
}

// Active returns the active window.
func (h *Host) Active() (debug.Handle, bool) {
	return h.active, h.active != 0
}

// ActiveKind returns the kind of the active window.
func (h *Host) ActiveKind() (debug.WindowKind, bool) {
	w, ok := h.windows[h.active]
	if !ok {
		return 0, false
	}
	return w.kind, true
}

// Activate makes a window active.
func (h *Host) Activate(handle debug.Handle) bool {
	if _, ok := h.windows[handle]; !ok {
		return false
	}
	h.active = handle
	return true
}

// Cycle moves the active window delta places through the tab order.
func (h *Host) Cycle(delta int) {
	if len(h.order) == 0 {
		return
	}
	idx := h.indexOf(h.active)
	if idx < 0 {
		idx = 0
	}
	n := len(h.order)
	h.active = h.order[((idx+delta)%n+n)%n]
}

// Handles returns the windows in tab order.
func (h *Host) Handles() []debug.Handle {
	return append([]debug.Handle(nil), h.order...)
}

// Title returns the title of a window.
func (h *Host) Title(handle debug.Handle) string {
	if w, ok := h.windows[handle]; ok {
		return w.title
	}
	return ""
}

// Lines returns the text of a window.
func (h *Host) Lines(handle debug.Handle) []string {
	if w, ok := h.windows[handle]; ok {
		return append([]string(nil), w.lines...)
	}
	return nil
}

// Marker returns the stored marker of a line.
func (h *Host) Marker(handle debug.Handle, line int) debug.LineFlags {
	if w, ok := h.windows[handle]; ok {
		return w.markers[line]
	}
	return 0
}

// Cursor returns the cursor line of a window, 0 if there is none.
func (h *Host) Cursor(handle debug.Handle) int {
	if w, ok := h.windows[handle]; ok {
		return w.cursor
	}
	return 0
}

// MoveCursor moves the active window's cursor by delta lines.
func (h *Host) MoveCursor(delta int) {
	if w, ok := h.windows[h.active]; ok {
		w.cursor += delta
		w.clamp(h.pageSize)
	}
}

// SetCursor puts the active window's cursor on line.
func (h *Host) SetCursor(line int) {
	if w, ok := h.windows[h.active]; ok {
		w.cursor = line
		w.clamp(h.pageSize)
	}
}

// PageSize returns the number of text rows shown per window.
func (h *Host) PageSize() int {
	return h.pageSize
}

// SetMessage sets the status line message.
func (h *Host) SetMessage(format string, args ...any) {
	h.message = fmt.Sprintf(format, args...)
}

// Message returns the status line message.
func (h *Host) Message() string {
	return h.message
}

// splitLines splits file content into lines without terminators.
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
