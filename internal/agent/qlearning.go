// Package agent implements a tabular Q-learning player for the snake
// simulator. The agent observes a game, picks a relative action with an
// epsilon-greedy policy, simulates it on a private clone and, while
// training, applies a one-step Bellman update to its table.
package agent

import (
	"fmt"
	"math/rand"

	"github.com/vovakirdan/snakeql/internal/core"
	"github.com/vovakirdan/snakeql/internal/games/snake"
)

// Params are the learning hyperparameters. They are not range checked.
type Params struct {
	Epsilon        float64
	LearningRate   float64
	DiscountFactor float64
}

// DefaultParams returns epsilon, learning rate and discount factor of 0.1.
func DefaultParams() Params {
	return Params{
		Epsilon:        0.1,
		LearningRate:   0.1,
		DiscountFactor: 0.1,
	}
}

// Rewards are the reward magnitudes used by Reward.
type Rewards struct {
	GameOver   float64
	EatFood    float64
	MoveCloser float64
	MoveAway   float64
}

// DefaultRewards returns the standard reward scheme.
func DefaultRewards() Rewards {
	return Rewards{
		GameOver:   -1000,
		EatFood:    10,
		MoveCloser: 1,
		MoveAway:   -1,
	}
}

// Stats counts agent activity since construction.
type Stats struct {
	Decisions    int
	Explorations int
	Updates      int
}

// Agent owns a Q-table and a random source. It is not safe for
// concurrent use.
type Agent struct {
	params  Params
	rewards Rewards
	table   *Table
	rng     *rand.Rand
	stats   Stats
}

// NewAgent creates an agent with a zeroed table. A nil rng is replaced
// by a time-seeded source.
func NewAgent(params Params, rewards Rewards, rng *rand.Rand) *Agent {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Agent{
		params:  params,
		rewards: rewards,
		table:   NewTable(),
		rng:     rng,
	}
}

// NewDefaultAgent creates an agent with default hyperparameters and rewards.
func NewDefaultAgent(rng *rand.Rand) *Agent {
	return NewAgent(DefaultParams(), DefaultRewards(), rng)
}

// Params returns the agent's hyperparameters.
func (a *Agent) Params() Params { return a.params }

// Rewards returns the agent's reward scheme.
func (a *Agent) Rewards() Rewards { return a.rewards }

// Table returns the agent's live Q-table.
func (a *Agent) Table() *Table { return a.table }

// Stats returns activity counters.
func (a *Agent) Stats() Stats { return a.stats }

// NextMove picks the direction the snake in g should take next. When
// training, the table is updated from the simulated outcome. g is never
// modified; the caller applies the returned direction.
func (a *Agent) NextMove(g *snake.Game, training bool) (core.Direction, error) {
	current := Encode(g)

	action, err := a.SelectAction(current, training)
	if err != nil {
		return g.Heading(), err
	}
	dir := action.Direction(current.Heading)

	next := g.Clone()
	next.ChangeDirection(dir)
	next.Step()

	if training {
		reward := a.Reward(g, next)
		if err := a.Update(current, action, reward, Encode(next), next.GameOver()); err != nil {
			return g.Heading(), err
		}
	}

	return dir, nil
}

// SelectAction chooses an action for s. A uniform draw is taken on every
// call; exploration happens only while training and when the draw is at
// most epsilon.
func (a *Agent) SelectAction(s State, training bool) (Action, error) {
	if _, err := s.Index(); err != nil {
		return ActionStraight, err
	}

	a.stats.Decisions++
	p := a.rng.Float64()
	if training && p <= a.params.Epsilon {
		a.stats.Explorations++
		return Action(a.rng.Intn(NumActions)), nil
	}
	return a.table.BestAction(s)
}

// Reward scores the transition from current to next.
func (a *Agent) Reward(current, next *snake.Game) float64 {
	if next.GameOver() {
		return a.rewards.GameOver
	}
	if food, ok := current.FoodPosition(); ok && next.HeadPosition() == food {
		return a.rewards.EatFood
	}
	if next.RowDistanceFromFood() < current.RowDistanceFromFood() ||
		next.ColDistanceFromFood() < current.ColDistanceFromFood() {
		return a.rewards.MoveCloser
	}
	return a.rewards.MoveAway
}

// Update applies one Bellman step to Q(s, action). Terminal transitions
// have no future term.
func (a *Agent) Update(s State, action Action, reward float64, next State, terminal bool) error {
	q, err := a.table.Values(s)
	if err != nil {
		return err
	}
	if action < 0 || int(action) >= NumActions {
		return fmt.Errorf("agent: action %d out of range", action)
	}
	old := q[action]

	target := reward
	if !terminal {
		future, err := a.table.MaxValue(next)
		if err != nil {
			return err
		}
		target += a.params.DiscountFactor * future
	}

	a.stats.Updates++
	return a.table.set(s, action, old+a.params.LearningRate*(target-old))
}
