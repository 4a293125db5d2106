package core

// Color represents a foreground color for a screen cell.
// Maps to ANSI codes in the terminal layer.
type Color uint8

// Colors used by board rendering.
const (
	ColorDefault Color = iota
	ColorRed
	ColorGreen
	ColorYellow
	ColorBrightRed
	ColorBrightGreen
	ColorGray
)
