// Package snake implements the deterministic snake simulator used by the
// learning agent. A Game owns the grid, the snake body, its heading, the
// score and the game-over flag, and advances one discrete tick per Step.
// Food placement is left to the driver.
package snake

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/vovakirdan/snakeql/internal/core"
)

var (
	// ErrInvalidDimensions is returned when a board has a non-positive side.
	ErrInvalidDimensions = errors.New("snake: grid dimensions must be positive")
	// ErrInvalidBody is returned for a starting body that is empty,
	// out of bounds or self-overlapping.
	ErrInvalidBody = errors.New("snake: invalid starting body")
	// ErrOutOfBounds is returned when food is placed off the board.
	ErrOutOfBounds = errors.New("snake: position out of bounds")
	// ErrCellOccupied is returned when food is placed on a non-empty cell.
	ErrCellOccupied = errors.New("snake: cell is not empty")
)

// Outcome reports what a single Step did.
type Outcome int

const (
	// OutcomeNone means the game was already over and nothing changed.
	OutcomeNone Outcome = iota
	// OutcomeMoved means the snake advanced without growing.
	OutcomeMoved
	// OutcomeAte means the snake ate the food and grew by one segment.
	// The driver must place new food.
	OutcomeAte
	// OutcomeCollided means the head hit a wall or the body; the game is over.
	OutcomeCollided
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "none"
	case OutcomeMoved:
		return "moved"
	case OutcomeAte:
		return "ate"
	case OutcomeCollided:
		return "collided"
	default:
		return "unknown"
	}
}

// Game is one snake game on a fixed rows×cols board.
type Game struct {
	rows int
	cols int
	grid []core.GridValue // row-major, source of truth for occupancy

	body    []core.Position // Head at index 0
	heading core.Direction

	score    int
	gameOver bool

	food    core.Position
	hasFood bool
}

// New creates a rows×cols game with a three-segment snake on the middle
// row heading right. Boards narrower than four columns get a shorter snake.
func New(rows, cols int) (*Game, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, rows, cols)
	}

	length := min(3, cols)
	start := 0
	if cols > 3 {
		start = 1
	}

	row := rows / 2
	body := make([]core.Position, 0, length)
	for c := start + length - 1; c >= start; c-- {
		body = append(body, core.Position{Row: row, Col: c})
	}

	return NewWithBody(rows, cols, body, core.DirRight)
}

// NewWithBody creates a game whose snake occupies body (head first) and
// moves in heading. The body is copied.
func NewWithBody(rows, cols int, body []core.Position, heading core.Direction) (*Game, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, rows, cols)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrInvalidBody)
	}
	if !heading.IsCardinal() {
		return nil, fmt.Errorf("%w: heading %s is not a movement direction", ErrInvalidBody, heading)
	}

	g := &Game{
		rows:    rows,
		cols:    cols,
		grid:    make([]core.GridValue, rows*cols),
		body:    make([]core.Position, 0, len(body)),
		heading: heading,
	}

	for _, p := range body {
		if !g.inBounds(p) {
			return nil, fmt.Errorf("%w: segment (%d,%d) off the board", ErrInvalidBody, p.Row, p.Col)
		}
		if g.grid[g.index(p)] == core.GridSnake {
			return nil, fmt.Errorf("%w: segment (%d,%d) repeated", ErrInvalidBody, p.Row, p.Col)
		}
		g.grid[g.index(p)] = core.GridSnake
		g.body = append(g.body, p)
	}

	return g, nil
}

// Clone returns an independent deep copy of the game. Mutating the copy
// never affects the original.
func (g *Game) Clone() *Game {
	c := *g
	c.grid = slices.Clone(g.grid)
	c.body = slices.Clone(g.body)
	return &c
}

// Rows returns the board height.
func (g *Game) Rows() int { return g.rows }

// Cols returns the board width.
func (g *Game) Cols() int { return g.cols }

// Heading returns the current movement direction.
func (g *Game) Heading() core.Direction { return g.heading }

// Score returns the number of food cells eaten.
func (g *Game) Score() int { return g.score }

// GameOver reports whether a collision has ended the game.
func (g *Game) GameOver() bool { return g.gameOver }

// Len returns the number of body segments.
func (g *Game) Len() int { return len(g.body) }

// HeadPosition returns the head segment.
func (g *Game) HeadPosition() core.Position { return g.body[0] }

// TailPosition returns the last body segment.
func (g *Game) TailPosition() core.Position { return g.body[len(g.body)-1] }

// FoodPosition returns the food cell and whether food is on the board.
func (g *Game) FoodPosition() (core.Position, bool) { return g.food, g.hasFood }

// NeedsFood reports whether the board has no food but an empty cell for it.
func (g *Game) NeedsFood() bool {
	return !g.hasFood && len(g.body) < g.rows*g.cols
}

// At returns the grid value stored at p, or GridOutside off the board.
func (g *Game) At(p core.Position) core.GridValue {
	if !g.inBounds(p) {
		return core.GridOutside
	}
	return g.grid[g.index(p)]
}

// WillHit reports what the head would run into at p without changing
// anything. The tail cell reads as empty because the tail moves away on
// the same tick.
func (g *Game) WillHit(p core.Position) core.GridValue {
	if !g.inBounds(p) {
		return core.GridOutside
	}
	if p == g.TailPosition() {
		return core.GridEmpty
	}
	return g.grid[g.index(p)]
}

// ChangeDirection turns the snake. Requests to reverse onto the body and
// non-cardinal directions are ignored.
func (g *Game) ChangeDirection(d core.Direction) {
	if !d.IsCardinal() || d == g.heading.Opposite() {
		return
	}
	g.heading = d
}

// Step advances the game by one tick.
func (g *Game) Step() Outcome {
	if g.gameOver {
		return OutcomeNone
	}

	newHead := g.HeadPosition().Translate(g.heading)

	switch g.WillHit(newHead) {
	case core.GridOutside, core.GridSnake:
		g.gameOver = true
		return OutcomeCollided
	case core.GridFood:
		g.addHead(newHead)
		g.score++
		g.hasFood = false
		return OutcomeAte
	default:
		g.removeTail()
		g.addHead(newHead)
		return OutcomeMoved
	}
}

// AddFood places food at p, replacing any food already on the board.
func (g *Game) AddFood(p core.Position) error {
	if !g.inBounds(p) {
		return fmt.Errorf("%w: (%d,%d)", ErrOutOfBounds, p.Row, p.Col)
	}
	if g.grid[g.index(p)] == core.GridSnake {
		return fmt.Errorf("%w: (%d,%d)", ErrCellOccupied, p.Row, p.Col)
	}

	if g.hasFood {
		g.grid[g.index(g.food)] = core.GridEmpty
	}
	g.grid[g.index(p)] = core.GridFood
	g.food = p
	g.hasFood = true
	return nil
}

// EmptyPositions yields every cell holding neither snake nor food,
// row by row.
func (g *Game) EmptyPositions() iter.Seq[core.Position] {
	return func(yield func(core.Position) bool) {
		for r := 0; r < g.rows; r++ {
			for c := 0; c < g.cols; c++ {
				if g.grid[r*g.cols+c] != core.GridEmpty {
					continue
				}
				if !yield(core.Position{Row: r, Col: c}) {
					return
				}
			}
		}
	}
}

// SnakePositions yields the body from head to tail.
func (g *Game) SnakePositions() iter.Seq[core.Position] {
	return func(yield func(core.Position) bool) {
		for _, p := range g.body {
			if !yield(p) {
				return
			}
		}
	}
}

// RowDistanceFromFood returns |head.Row - food.Row|, or 0 without food.
func (g *Game) RowDistanceFromFood() int {
	if !g.hasFood {
		return 0
	}
	return core.Abs(g.HeadPosition().Row - g.food.Row)
}

// ColDistanceFromFood returns |head.Col - food.Col|, or 0 without food.
func (g *Game) ColDistanceFromFood() int {
	if !g.hasFood {
		return 0
	}
	return core.Abs(g.HeadPosition().Col - g.food.Col)
}

func (g *Game) addHead(p core.Position) {
	g.body = slices.Insert(g.body, 0, p)
	g.grid[g.index(p)] = core.GridSnake
}

func (g *Game) removeTail() {
	tail := g.TailPosition()
	g.grid[g.index(tail)] = core.GridEmpty
	g.body = g.body[:len(g.body)-1]
}

func (g *Game) inBounds(p core.Position) bool {
	return p.Row >= 0 && p.Row < g.rows && p.Col >= 0 && p.Col < g.cols
}

func (g *Game) index(p core.Position) int {
	return p.Row*g.cols + p.Col
}

// DebugState returns a string representation of the game state.
func (g *Game) DebugState() string {
	var b strings.Builder
	head := g.HeadPosition()
	fmt.Fprintf(&b, "Score: %d, Len: %d, Heading: %s\n", g.score, len(g.body), g.heading)
	fmt.Fprintf(&b, "Head: (%d, %d), Food: (%d, %d) present=%v\n", head.Row, head.Col, g.food.Row, g.food.Col, g.hasFood)
	fmt.Fprintf(&b, "GameOver: %v\n", g.gameOver)
	for r := 0; r < g.rows; r++ {
		for c := 0; c < g.cols; c++ {
			p := core.Position{Row: r, Col: c}
			switch {
			case p == head:
				b.WriteByte('H')
			case g.grid[g.index(p)] == core.GridSnake:
				b.WriteByte('o')
			case g.grid[g.index(p)] == core.GridFood:
				b.WriteByte('*')
			default:
				b.WriteByte('.')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
