// Package core provides the grid vocabulary shared by the simulator, the
// learning agent and the terminal drivers. It has no external dependencies
// so game logic stays pure and testable.
package core

import "fmt"

// Position is a cell on the board, addressed by row (top to bottom) and
// column (left to right).
type Position struct {
	Row, Col int
}

// Translate returns the position one step away in direction d.
// Composite directions move diagonally.
func (p Position) Translate(d Direction) Position {
	dr, dc := d.Delta()
	return Position{Row: p.Row + dr, Col: p.Col + dc}
}

// Direction is either a cardinal movement direction or a composite
// direction used only to describe where food lies relative to the head.
type Direction int

const (
	DirUp Direction = iota
	DirDown
	DirLeft
	DirRight
	DirLeftUp
	DirLeftDown
	DirRightUp
	DirRightDown
)

// CardinalDirections returns the four movement directions.
func CardinalDirections() []Direction {
	return []Direction{DirLeft, DirRight, DirUp, DirDown}
}

// AllDirections returns all eight directions, cardinal first.
func AllDirections() []Direction {
	return []Direction{
		DirLeft, DirRight, DirUp, DirDown,
		DirLeftUp, DirLeftDown, DirRightUp, DirRightDown,
	}
}

// IsCardinal reports whether d may be used as a movement direction.
func (d Direction) IsCardinal() bool {
	return d >= DirUp && d <= DirRight
}

// IsVertical reports whether d is Up or Down.
func (d Direction) IsVertical() bool {
	return d == DirUp || d == DirDown
}

// Opposite returns the reverse of a cardinal direction.
// Composite directions are returned unchanged.
func (d Direction) Opposite() Direction {
	switch d {
	case DirUp:
		return DirDown
	case DirDown:
		return DirUp
	case DirLeft:
		return DirRight
	case DirRight:
		return DirLeft
	default:
		return d
	}
}

// Delta returns the row and column offsets for one step in direction d.
func (d Direction) Delta() (rowDelta, colDelta int) {
	switch d {
	case DirUp:
		return -1, 0
	case DirDown:
		return 1, 0
	case DirLeft:
		return 0, -1
	case DirRight:
		return 0, 1
	case DirLeftUp:
		return -1, -1
	case DirLeftDown:
		return 1, -1
	case DirRightUp:
		return -1, 1
	case DirRightDown:
		return 1, 1
	default:
		return 0, 0
	}
}

func (d Direction) String() string {
	switch d {
	case DirUp:
		return "up"
	case DirDown:
		return "down"
	case DirLeft:
		return "left"
	case DirRight:
		return "right"
	case DirLeftUp:
		return "left-up"
	case DirLeftDown:
		return "left-down"
	case DirRightUp:
		return "right-up"
	case DirRightDown:
		return "right-down"
	default:
		return "unknown"
	}
}

// ParseDirection is the inverse of Direction.String.
func ParseDirection(s string) (Direction, bool) {
	for _, d := range AllDirections() {
		if d.String() == s {
			return d, true
		}
	}
	return 0, false
}

// MarshalText encodes d by name.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes a direction name.
func (d *Direction) UnmarshalText(text []byte) error {
	v, ok := ParseDirection(string(text))
	if !ok {
		return fmt.Errorf("core: unknown direction %q", text)
	}
	*d = v
	return nil
}

// Rect represents an axis-aligned box on a screen.
type Rect struct {
	X, Y int // Top-left corner position
	W, H int // Width and height
}

// NewRect creates a new rectangle with the given position and dimensions.
func NewRect(x, y, w, h int) Rect {
	return Rect{X: x, Y: y, W: w, H: h}
}

// Right returns the x-coordinate of the right edge.
func (r Rect) Right() int {
	return r.X + r.W
}

// Bottom returns the y-coordinate of the bottom edge.
func (r Rect) Bottom() int {
	return r.Y + r.H
}

// Abs returns the absolute value of an integer.
func Abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
