package agent

import (
	"fmt"
	"iter"

	"github.com/vovakirdan/snakeql/internal/core"
)

// NumActions is the number of relative actions available in every state.
const NumActions = 3

// Action is a move relative to the current heading.
type Action int

const (
	// ActionStraight keeps the current heading.
	ActionStraight Action = iota
	// ActionTurnA turns left when moving vertically, up when moving horizontally.
	ActionTurnA
	// ActionTurnB turns right when moving vertically, down when moving horizontally.
	ActionTurnB
)

// Direction maps a onto an absolute direction given the current heading.
func (a Action) Direction(heading core.Direction) core.Direction {
	switch a {
	case ActionTurnA:
		if heading.IsVertical() {
			return core.DirLeft
		}
		return core.DirUp
	case ActionTurnB:
		if heading.IsVertical() {
			return core.DirRight
		}
		return core.DirDown
	default:
		return heading
	}
}

func (a Action) String() string {
	switch a {
	case ActionStraight:
		return "straight"
	case ActionTurnA:
		return "turn-a"
	case ActionTurnB:
		return "turn-b"
	default:
		return "unknown"
	}
}

// Table holds one value per (state, action) pair. Every state is present
// from construction with all values zero.
type Table struct {
	values [NumStates][NumActions]float64
}

// NewTable returns a zeroed table covering the whole state space.
func NewTable() *Table {
	return &Table{}
}

// Len returns the number of states in the table.
func (t *Table) Len() int {
	return NumStates
}

// Values returns a copy of the action values for s.
func (t *Table) Values(s State) ([NumActions]float64, error) {
	idx, err := s.Index()
	if err != nil {
		return [NumActions]float64{}, err
	}
	return t.values[idx], nil
}

// Lookup returns the action values stored under a state key.
func (t *Table) Lookup(key string) ([NumActions]float64, error) {
	s, err := ParseStateKey(key)
	if err != nil {
		return [NumActions]float64{}, err
	}
	return t.Values(s)
}

// BestAction returns the highest-valued action for s.
// Ties go to the lowest action index.
func (t *Table) BestAction(s State) (Action, error) {
	idx, err := s.Index()
	if err != nil {
		return ActionStraight, err
	}
	return bestOf(&t.values[idx]), nil
}

// MaxValue returns the highest action value for s.
func (t *Table) MaxValue(s State) (float64, error) {
	idx, err := s.Index()
	if err != nil {
		return 0, err
	}
	row := &t.values[idx]
	return row[bestOf(row)], nil
}

// States yields every state with its action values in index order.
func (t *Table) States() iter.Seq2[State, [NumActions]float64] {
	return func(yield func(State, [NumActions]float64) bool) {
		for idx := range NumStates {
			s, _ := StateFromIndex(idx)
			if !yield(s, t.values[idx]) {
				return
			}
		}
	}
}

// Visited returns the number of states with at least one non-zero value.
func (t *Table) Visited() int {
	n := 0
	for idx := range t.values {
		if t.values[idx] != [NumActions]float64{} {
			n++
		}
	}
	return n
}

func (t *Table) set(s State, a Action, v float64) error {
	idx, err := s.Index()
	if err != nil {
		return err
	}
	if a < 0 || int(a) >= NumActions {
		return fmt.Errorf("agent: action %d out of range", a)
	}
	t.values[idx][a] = v
	return nil
}

func bestOf(row *[NumActions]float64) Action {
	best := 0
	for i := 1; i < NumActions; i++ {
		if row[i] > row[best] {
			best = i
		}
	}
	return Action(best)
}
