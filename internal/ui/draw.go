package ui

import (
	"github.com/dshills/stepwise/internal/debug"
	"github.com/dshills/stepwise/internal/renderer/backend"
	"github.com/dshills/stepwise/internal/renderer/core"
	"github.com/dshills/stepwise/internal/renderer/gutter"
)

var (
	styleText      = core.DefaultStyle()
	styleTab       = core.DefaultStyle().Reverse()
	styleTabActive = core.NewStyle(core.ColorYellow).Bold().Reverse()
	styleStatus    = core.NewStyle(core.ColorCyan).Reverse()
	styleCursor    = core.DefaultStyle().Reverse()
	styleEmpty     = core.NewStyle(core.ColorGray).Dim()
)

// gutterStyles maps gutter cell styles to terminal styles.
var gutterStyles = map[gutter.CellStyle]core.Style{
	gutter.StyleNormal:             core.DefaultStyle(),
	gutter.StyleDim:                core.NewStyle(core.ColorGray),
	gutter.StyleCurrentLine:        core.NewStyle(core.ColorYellow).Bold(),
	gutter.StyleContext:            core.NewStyle(core.ColorCyan),
	gutter.StyleBreakpoint:         core.NewStyle(core.ColorRed).Bold(),
	gutter.StyleBreakpointDisabled: core.NewStyle(core.ColorRed).Dim(),
}

// Draw renders the tab bar, the active window and the status line.
func (h *Host) Draw(b backend.Backend, status string) {
	width, height := b.Size()
	b.Clear()
	b.HideCursor()
	if width <= 0 || height <= 0 {
		b.Show()
		return
	}

	h.pageSize = max(1, height-2)
	h.drawTabs(b, width)
	if w, ok := h.windows[h.active]; ok {
		w.clamp(h.pageSize)
		h.drawWindow(b, w, 1, width, h.pageSize)
	} else if height > 2 {
		putString(b, 0, 1, width, "no window open (S: stack, ?: help)", styleEmpty, h.tabWidth)
	}
	if height > 1 {
		h.drawStatus(b, height-1, width, status)
	}
	b.Show()
}

func (h *Host) drawTabs(b backend.Backend, width int) {
	fill(b, 0, width, styleTab)
	x := 0
	for _, handle := range h.order {
		style := styleTab
		if handle == h.active {
			style = styleTabActive
		}
		x = putString(b, x, 0, width, " "+h.windows[handle].title+" ", style, h.tabWidth)
		x = putString(b, x, 0, width, "|", styleTab, h.tabWidth)
		if x >= width {
			break
		}
	}
}

func (h *Host) drawWindow(b backend.Backend, w *window, y, width, rows int) {
	source := w.kind == debug.KindSource
	for i := 0; i < rows; i++ {
		line := w.top + i
		x := 0
		if source {
			for _, c := range w.gutter.RenderLine(line, w.markers[line]) {
				style := gutterStyles[c.Style]
				if line == w.cursor && c.Rune >= '0' && c.Rune <= '9' {
					style = style.Reverse()
				}
				b.SetCell(x, y+i, core.NewStyledCell(c.Rune, style))
				x++
			}
		}
		if line > len(w.lines) {
			continue
		}
		style := styleText
		if !source && line == w.cursor {
			style = styleCursor
			fill(b, y+i, width, style)
		}
		putString(b, x, y+i, width, w.lines[line-1], style, h.tabWidth)
	}
}

func (h *Host) drawStatus(b backend.Backend, y, width int, status string) {
	fill(b, y, width, styleStatus)
	x := putString(b, 0, y, width, " "+status, styleStatus, h.tabWidth)
	if h.message != "" {
		putString(b, x, y, width, "  "+h.message, styleStatus, h.tabWidth)
	}
}

// putString draws s from x on row y, clipped at width, and returns the
// column after the last cell drawn.
func putString(b backend.Backend, x, y, width int, s string, style core.Style, tabWidth int) int {
	for _, c := range core.CellsFromString(s, style, tabWidth) {
		if x >= width {
			break
		}
		b.SetCell(x, y, c)
		x++
	}
	return x
}

func fill(b backend.Backend, y, width int, style core.Style) {
	for x := 0; x < width; x++ {
		b.SetCell(x, y, core.NewStyledCell(' ', style))
	}
}
