// Package core provides the cell and style types shared by the renderer
// backends and the debugger screen.
package core

import "github.com/rivo/uniseg"

// Attribute represents text attributes (bold, reverse, etc.).
type Attribute uint16

// Text attribute flags.
const (
	AttrNone      Attribute = 0
	AttrBold      Attribute = 1 << iota
	AttrDim                 // Faint/dim text
	AttrUnderline           // Underlined text
	AttrReverse             // Reverse video (swap fg/bg)
)

// Has returns true if the attribute set contains the given attribute.
func (a Attribute) Has(attr Attribute) bool {
	return a&attr != 0
}

// Color represents a terminal color: the default color or a palette index.
type Color struct {
	Index   uint8
	Default bool
}

// ColorDefault represents the terminal's default color.
var ColorDefault = Color{Default: true}

// Palette colors used by the debugger.
var (
	ColorBlack  = ColorFromIndex(0)
	ColorRed    = ColorFromIndex(1)
	ColorGreen  = ColorFromIndex(2)
	ColorYellow = ColorFromIndex(3)
	ColorBlue   = ColorFromIndex(4)
	ColorCyan   = ColorFromIndex(6)
	ColorWhite  = ColorFromIndex(7)
	ColorGray   = ColorFromIndex(8)
)

// ColorFromIndex creates an indexed palette color.
func ColorFromIndex(index uint8) Color {
	return Color{Index: index}
}

// IsDefault returns true if this is the default/transparent color.
func (c Color) IsDefault() bool {
	return c.Default
}

// Style represents the visual style of text.
type Style struct {
	Foreground Color
	Background Color
	Attributes Attribute
}

// DefaultStyle returns the default terminal style.
func DefaultStyle() Style {
	return Style{Foreground: ColorDefault, Background: ColorDefault}
}

// NewStyle creates a style with the given foreground color.
func NewStyle(fg Color) Style {
	return Style{Foreground: fg, Background: ColorDefault}
}

// WithBackground returns a new style with the given background color.
func (s Style) WithBackground(bg Color) Style {
	s.Background = bg
	return s
}

// Bold returns a bold copy of the style.
func (s Style) Bold() Style {
	s.Attributes |= AttrBold
	return s
}

// Dim returns a dimmed copy of the style.
func (s Style) Dim() Style {
	s.Attributes |= AttrDim
	return s
}

// Reverse returns a reverse-video copy of the style.
func (s Style) Reverse() Style {
	s.Attributes |= AttrReverse
	return s
}

// Cell represents a single terminal cell.
type Cell struct {
	// Rune is the character to display.
	Rune rune

	// Width is the display width of this cell; 0 marks the right half
	// of a wide character.
	Width int

	// Style is the visual style for this cell.
	Style Style
}

// EmptyCell returns an empty cell with default style.
func EmptyCell() Cell {
	return Cell{Rune: ' ', Width: 1, Style: DefaultStyle()}
}

// NewStyledCell creates a cell with the given rune and style.
func NewStyledCell(r rune, style Style) Cell {
	return Cell{Rune: r, Width: RuneWidth(r), Style: style}
}

// IsContinuation returns true if this is a continuation cell.
func (c Cell) IsContinuation() bool {
	return c.Width == 0 && c.Rune == 0
}

// RuneWidth returns the display width of a rune.
func RuneWidth(r rune) int {
	if r < 32 || r == 0x7F {
		return 0
	}
	return uniseg.StringWidth(string(r))
}

// CellsFromString creates cells from a string. Tabs expand to tabWidth
// spaces and wide characters are followed by a continuation cell.
func CellsFromString(s string, style Style, tabWidth int) []Cell {
	cells := make([]Cell, 0, len(s))
	for _, r := range s {
		if r == '\t' {
			n := tabWidth - len(cells)%max(tabWidth, 1)
			for i := 0; i < n; i++ {
				cells = append(cells, Cell{Rune: ' ', Width: 1, Style: style})
			}
			continue
		}
		width := RuneWidth(r)
		if width == 0 {
			continue
		}
		cells = append(cells, Cell{Rune: r, Width: width, Style: style})
		if width == 2 {
			cells = append(cells, Cell{Style: style})
		}
	}
	return cells
}

// StringFromCells converts cells back to a string.
func StringFromCells(cells []Cell) string {
	runes := make([]rune, 0, len(cells))
	for _, c := range cells {
		if !c.IsContinuation() && c.Rune != 0 {
			runes = append(runes, c.Rune)
		}
	}
	return string(runes)
}
