package agent

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/vovakirdan/snakeql/internal/core"
	"github.com/vovakirdan/snakeql/internal/games/snake"
)

// NumStates is the size of the discrete state space:
// 4 headings × 8 food directions × 2^4 danger flags.
const NumStates = 4 * 8 * 16

// ErrUnknownState is returned for a state that has no Q-table entry.
var ErrUnknownState = errors.New("agent: unknown state")

// State is the discrete observation the agent learns over.
type State struct {
	Heading     core.Direction
	Food        core.Direction
	DangerLeft  bool
	DangerRight bool
	DangerUp    bool
	DangerDown  bool
}

// Encode observes g and returns its discrete state. It never mutates g.
func Encode(g *snake.Game) State {
	head := g.HeadPosition()
	heading := g.Heading()

	s := State{
		Heading:     heading,
		Food:        heading,
		DangerLeft:  isDanger(g, head, core.DirLeft),
		DangerRight: isDanger(g, head, core.DirRight),
		DangerUp:    isDanger(g, head, core.DirUp),
		DangerDown:  isDanger(g, head, core.DirDown),
	}

	if food, ok := g.FoodPosition(); ok {
		s.Food = foodDirection(head, food, heading)
	}
	return s
}

func isDanger(g *snake.Game, head core.Position, d core.Direction) bool {
	return g.WillHit(head.Translate(d)).IsDeadly()
}

// foodDirection compares columns first, then refines by row.
// Food under the head maps to fallback.
func foodDirection(head, food core.Position, fallback core.Direction) core.Direction {
	switch {
	case head.Col > food.Col:
		switch {
		case head.Row > food.Row:
			return core.DirLeftUp
		case head.Row < food.Row:
			return core.DirLeftDown
		}
		return core.DirLeft
	case head.Col < food.Col:
		switch {
		case head.Row > food.Row:
			return core.DirRightUp
		case head.Row < food.Row:
			return core.DirRightDown
		}
		return core.DirRight
	case head.Row > food.Row:
		return core.DirUp
	case head.Row < food.Row:
		return core.DirDown
	default:
		return fallback
	}
}

// Key renders the state as "heading,food,L,R,U,D", for example
// "right,left-up,false,false,true,false".
func (s State) Key() string {
	return fmt.Sprintf("%s,%s,%t,%t,%t,%t",
		s.Heading, s.Food, s.DangerLeft, s.DangerRight, s.DangerUp, s.DangerDown)
}

func (s State) String() string {
	return s.Key()
}

// Index returns the dense table index of s.
func (s State) Index() (int, error) {
	h := slices.Index(core.CardinalDirections(), s.Heading)
	if h < 0 {
		return 0, fmt.Errorf("%w: heading %s", ErrUnknownState, s.Heading)
	}
	f := slices.Index(core.AllDirections(), s.Food)
	if f < 0 {
		return 0, fmt.Errorf("%w: food direction %d", ErrUnknownState, int(s.Food))
	}

	idx := (h*8 + f) * 16
	if s.DangerLeft {
		idx |= 8
	}
	if s.DangerRight {
		idx |= 4
	}
	if s.DangerUp {
		idx |= 2
	}
	if s.DangerDown {
		idx |= 1
	}
	return idx, nil
}

// StateFromIndex is the inverse of State.Index.
func StateFromIndex(idx int) (State, error) {
	if idx < 0 || idx >= NumStates {
		return State{}, fmt.Errorf("%w: index %d", ErrUnknownState, idx)
	}
	flags := idx % 16
	f := (idx / 16) % 8
	h := idx / 128

	return State{
		Heading:     core.CardinalDirections()[h],
		Food:        core.AllDirections()[f],
		DangerLeft:  flags&8 != 0,
		DangerRight: flags&4 != 0,
		DangerUp:    flags&2 != 0,
		DangerDown:  flags&1 != 0,
	}, nil
}

// ParseStateKey is the inverse of State.Key.
func ParseStateKey(key string) (State, error) {
	parts := strings.Split(key, ",")
	if len(parts) != 6 {
		return State{}, fmt.Errorf("%w: %q", ErrUnknownState, key)
	}

	var s State
	var ok bool
	if s.Heading, ok = core.ParseDirection(parts[0]); !ok || !s.Heading.IsCardinal() {
		return State{}, fmt.Errorf("%w: heading %q", ErrUnknownState, parts[0])
	}
	if s.Food, ok = core.ParseDirection(parts[1]); !ok {
		return State{}, fmt.Errorf("%w: food direction %q", ErrUnknownState, parts[1])
	}

	flags := []*bool{&s.DangerLeft, &s.DangerRight, &s.DangerUp, &s.DangerDown}
	for i, dst := range flags {
		v, err := strconv.ParseBool(parts[2+i])
		if err != nil {
			return State{}, fmt.Errorf("%w: flag %q", ErrUnknownState, parts[2+i])
		}
		*dst = v
	}
	return s, nil
}
