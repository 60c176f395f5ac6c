// Package gutter renders the column to the left of a source window:
// breakpoint signs, the execution arrow and line numbers.
package gutter

import "github.com/dshills/stepwise/internal/debug"

// Config holds gutter configuration.
type Config struct {
	// ShowLineNumbers enables line number display.
	ShowLineNumbers bool

	// LineNumberWidth is the fixed width for line numbers (0 = auto).
	LineNumberWidth int

	// MinLineNumberWidth is the minimum width for auto-calculated widths.
	MinLineNumberWidth int

	// ShowSigns enables the breakpoint and execution sign columns.
	ShowSigns bool
}

// DefaultConfig returns the default gutter configuration.
func DefaultConfig() Config {
	return Config{
		ShowLineNumbers:    true,
		MinLineNumberWidth: 3,
		ShowSigns:          true,
	}
}

// signColumns is the number of sign cells: breakpoint, then execution.
const signColumns = 2

// SignType represents the type of sign to display.
type SignType uint8

const (
	SignNone SignType = iota
	SignBreakpoint
	SignBreakpointConditional
	SignBreakpointDisabled
	SignCurrentLine
	SignContextLine
)

// Signs converts line status flags into the signs to display.
func Signs(flags debug.LineFlags) []SignType {
	var signs []SignType
	if flags&debug.FlagBreakpoint != 0 {
		switch {
		case flags&debug.FlagBreakpointDisabled != 0:
			signs = append(signs, SignBreakpointDisabled)
		case flags&debug.FlagBreakpointConditional != 0:
			signs = append(signs, SignBreakpointConditional)
		default:
			signs = append(signs, SignBreakpoint)
		}
	}
	if flags&debug.FlagCurrentLine != 0 {
		signs = append(signs, SignCurrentLine)
	}
	if flags&debug.FlagContextLine != 0 {
		signs = append(signs, SignContextLine)
	}
	return signs
}

// CellStyle describes how to style a gutter cell.
type CellStyle uint8

const (
	StyleNormal CellStyle = iota
	StyleCurrentLine
	StyleDim
	StyleBreakpoint
	StyleBreakpointDisabled
	StyleContext
)

// Cell represents a single gutter cell.
type Cell struct {
	Rune  rune
	Style CellStyle
}

// Gutter lays out the gutter of one window.
type Gutter struct {
	config Config

	width     int
	lineCount int
}

// New creates a new gutter with the given configuration.
func New(config Config) *Gutter {
	return &Gutter{
		config: config,
		width:  calculateWidth(config, 1),
	}
}

// Width returns the current gutter width.
func (g *Gutter) Width() int {
	return g.width
}

// Config returns the current configuration.
func (g *Gutter) Config() Config {
	return g.config
}

// SetConfig updates the gutter configuration.
func (g *Gutter) SetConfig(config Config) {
	g.config = config
	g.width = calculateWidth(config, g.lineCount)
}

// SetLineCount updates the total line count (affects width calculation).
func (g *Gutter) SetLineCount(count int) {
	g.lineCount = count
	g.width = calculateWidth(g.config, count)
}

// LineNumberWidth returns just the line number width (without signs/separator).
func (g *Gutter) LineNumberWidth() int {
	return lineNumberWidth(g.config, g.lineCount)
}

// RenderLine renders the gutter for a 1-based line with the given status.
// Lines past the end of the text show a '~'.
func (g *Gutter) RenderLine(line int, flags debug.LineFlags) []Cell {
	if g.width == 0 {
		return nil
	}

	cells := make([]Cell, g.width)
	for i := range cells {
		cells[i] = Cell{Rune: ' ', Style: StyleNormal}
	}

	col := 0
	if g.config.ShowSigns {
		for _, c := range renderSigns(flags) {
			cells[col] = c
			col++
		}
	}

	if g.config.ShowLineNumbers {
		numWidth := g.LineNumberWidth()
		if line >= 1 && line <= g.lineCount {
			style := styleForLine(flags)
			num := FormatNumber(line)
			for i := 0; i < numWidth-len(num); i++ {
				cells[col] = Cell{Rune: ' ', Style: style}
				col++
			}
			for _, r := range num {
				cells[col] = Cell{Rune: r, Style: style}
				col++
			}
		} else {
			col += numWidth - 1
			cells[col] = Cell{Rune: '~', Style: StyleDim}
		}
	}

	return cells
}

func styleForLine(flags debug.LineFlags) CellStyle {
	switch {
	case flags&debug.FlagCurrentLine != 0:
		return StyleCurrentLine
	case flags&debug.FlagContextLine != 0:
		return StyleContext
	default:
		return StyleDim
	}
}

// renderSigns returns the two sign cells: the breakpoint glyph and the
// execution arrow.
func renderSigns(flags debug.LineFlags) []Cell {
	cells := []Cell{{Rune: ' '}, {Rune: ' '}}
	var bp, exec SignType
	for _, s := range Signs(flags) {
		if s >= SignCurrentLine {
			exec = highestPriority(exec, s)
		} else {
			bp = highestPriority(bp, s)
		}
	}
	if bp != SignNone {
		r, style := signGlyph(bp)
		cells[0] = Cell{Rune: r, Style: style}
	}
	if exec != SignNone {
		r, style := signGlyph(exec)
		cells[1] = Cell{Rune: r, Style: style}
	}
	return cells
}

func lineNumberWidth(config Config, lineCount int) int {
	if config.LineNumberWidth > 0 {
		return config.LineNumberWidth
	}
	digits := countDigits(lineCount)
	if digits < config.MinLineNumberWidth {
		digits = config.MinLineNumberWidth
	}
	return digits
}

// calculateWidth calculates the total gutter width.
func calculateWidth(config Config, lineCount int) int {
	width := 0
	if config.ShowSigns {
		width += signColumns
	}
	if config.ShowLineNumbers {
		width += lineNumberWidth(config, lineCount)
	}

	// Separator
	if width > 0 {
		width++
	}
	return width
}

// countDigits returns the number of digits needed to display a number.
func countDigits(n int) int {
	if n <= 0 {
		return 1
	}
	digits := 0
	for n > 0 {
		digits++
		n /= 10
	}
	return digits
}

// FormatNumber converts a non-negative number to a string.
func FormatNumber(n int) string {
	if n <= 0 {
		return "0"
	}

	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// highestPriority returns whichever of a and b matters more.
func highestPriority(a, b SignType) SignType {
	if signPriority(b) > signPriority(a) {
		return b
	}
	return a
}

// signPriority returns the priority of a sign type (higher = more important).
func signPriority(st SignType) int {
	switch st {
	case SignCurrentLine:
		return 100
	case SignBreakpoint:
		return 90
	case SignBreakpointConditional:
		return 85
	case SignContextLine:
		return 60
	case SignBreakpointDisabled:
		return 50
	default:
		return 0
	}
}

// signGlyph returns the glyph and style for a sign type.
func signGlyph(st SignType) (rune, CellStyle) {
	switch st {
	case SignBreakpoint:
		return '*', StyleBreakpoint
	case SignBreakpointConditional:
		return '?', StyleBreakpoint
	case SignBreakpointDisabled:
		return 'o', StyleBreakpointDisabled
	case SignCurrentLine:
		return '>', StyleCurrentLine
	case SignContextLine:
		return '-', StyleContext
	default:
		return ' ', StyleNormal
	}
}
