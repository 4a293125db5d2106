package core

// GridValue describes what occupies a board cell.
type GridValue int

const (
	GridEmpty GridValue = iota
	GridSnake
	GridFood
	// GridOutside is returned for positions beyond the board edges.
	// It is never stored in a grid.
	GridOutside
)

func (v GridValue) String() string {
	switch v {
	case GridEmpty:
		return "empty"
	case GridSnake:
		return "snake"
	case GridFood:
		return "food"
	case GridOutside:
		return "outside"
	default:
		return "unknown"
	}
}

// IsDeadly reports whether moving the head into a cell holding v ends the game.
func (v GridValue) IsDeadly() bool {
	return v == GridOutside || v == GridSnake
}
