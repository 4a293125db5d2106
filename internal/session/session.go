// Package session drives snake games with a learning agent: it places
// food, applies the agent's moves tick by tick and reports a result for
// every finished episode. One Session owns one game and one agent and is
// not safe for concurrent use.
package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"time"

	"github.com/vovakirdan/snakeql/internal/agent"
	"github.com/vovakirdan/snakeql/internal/games/snake"
)

// Mode tells whether an episode was played while learning or with
// exploration and updates switched off.
type Mode int

const (
	ModeTraining Mode = iota
	ModeTesting
)

// ModeFor returns the mode matching the training flag.
func ModeFor(training bool) Mode {
	if training {
		return ModeTraining
	}
	return ModeTesting
}

func (m Mode) String() string {
	switch m {
	case ModeTraining:
		return "training"
	case ModeTesting:
		return "testing"
	default:
		return "unknown"
	}
}

// Config describes the board and the idle guard.
type Config struct {
	Rows int
	Cols int
	// MaxIdleSteps ends an episode as stalled after this many ticks
	// without eating. Zero disables the guard.
	MaxIdleSteps int
}

// EpisodeResult summarizes one finished game.
type EpisodeResult struct {
	Episode  int
	Mode     Mode
	Score    int
	Steps    int
	Length   int
	Stalled  bool
	Duration time.Duration
	Final    snake.Snapshot // Board state when the episode ended
}

// Session pairs a game with an agent.
type Session struct {
	cfg   Config
	agent *agent.Agent
	rng   *rand.Rand

	game     *snake.Game
	steps    int
	idle     int
	started  time.Time
	episodes int
}

// New creates a session and starts its first game. A nil rng is replaced
// by a time-seeded source.
func New(cfg Config, a *agent.Agent, rng *rand.Rand) (*Session, error) {
	if a == nil {
		return nil, errors.New("session: agent is required")
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	s := &Session{
		cfg:   cfg,
		agent: a,
		rng:   rng,
	}
	if err := s.Reset(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewSeeded creates a fresh agent and a session around it. The agent's
// decisions and the food placement draw from separate sources derived
// from seed, so equal seeds replay equal runs.
func NewSeeded(cfg Config, params agent.Params, rewards agent.Rewards, seed int64) (*Session, error) {
	a := agent.NewAgent(params, rewards, rand.New(rand.NewSource(seed)))
	return New(cfg, a, rand.New(rand.NewSource(seed^0x5eed)))
}

// Game returns the live game. Callers must not mutate it.
func (s *Session) Game() *snake.Game { return s.game }

// Agent returns the session's agent.
func (s *Session) Agent() *agent.Agent { return s.agent }

// Episodes returns the number of finished episodes.
func (s *Session) Episodes() int { return s.episodes }

// Steps returns the ticks played in the current game.
func (s *Session) Steps() int { return s.steps }

// Reset starts a fresh game with food on the board.
func (s *Session) Reset() error {
	g, err := snake.New(s.cfg.Rows, s.cfg.Cols)
	if err != nil {
		return fmt.Errorf("session: cannot start game: %w", err)
	}
	s.game = g
	s.steps = 0
	s.idle = 0
	s.started = time.Now()
	return s.placeFood()
}

// Stalled reports whether the idle guard has ended the current game.
func (s *Session) Stalled() bool {
	return s.cfg.MaxIdleSteps > 0 && s.idle >= s.cfg.MaxIdleSteps
}

// Done reports whether the current game has ended.
func (s *Session) Done() bool {
	return s.game.GameOver() || s.Stalled()
}

// Tick asks the agent for a move and applies it to the live game.
// Ticking a finished game does nothing.
func (s *Session) Tick(training bool) (snake.Outcome, error) {
	if s.Done() {
		return snake.OutcomeNone, nil
	}

	dir, err := s.agent.NextMove(s.game, training)
	if err != nil {
		return snake.OutcomeNone, fmt.Errorf("session: agent failed: %w", err)
	}

	s.game.ChangeDirection(dir)
	out := s.game.Step()
	s.steps++

	switch out {
	case snake.OutcomeAte:
		s.idle = 0
		if err := s.placeFood(); err != nil {
			return out, err
		}
	case snake.OutcomeMoved:
		s.idle++
	}
	return out, nil
}

// Finish records the current game as an episode and returns its result.
func (s *Session) Finish(training bool) EpisodeResult {
	s.episodes++
	return EpisodeResult{
		Episode:  s.episodes,
		Mode:     ModeFor(training),
		Score:    s.game.Score(),
		Steps:    s.steps,
		Length:   s.game.Len(),
		Stalled:  !s.game.GameOver() && s.Stalled(),
		Duration: time.Since(s.started),
		Final:    s.game.Snapshot(),
	}
}

// RunEpisode plays one full game from a fresh board.
func (s *Session) RunEpisode(ctx context.Context, training bool) (EpisodeResult, error) {
	if err := s.Reset(); err != nil {
		return EpisodeResult{}, err
	}

	for !s.Done() {
		if err := ctx.Err(); err != nil {
			return EpisodeResult{}, err
		}
		if _, err := s.Tick(training); err != nil {
			return EpisodeResult{}, err
		}
	}
	return s.Finish(training), nil
}

// Run plays games episodes back to back and hands each result to
// onEpisode, which may be nil. It stops at the first error.
func (s *Session) Run(ctx context.Context, training bool, games int, onEpisode func(EpisodeResult) error) error {
	for range games {
		res, err := s.RunEpisode(ctx, training)
		if err != nil {
			return err
		}
		if onEpisode != nil {
			if err := onEpisode(res); err != nil {
				return err
			}
		}
	}
	return nil
}

// placeFood drops food on a random empty cell. A full board gets none.
func (s *Session) placeFood() error {
	if !s.game.NeedsFood() {
		return nil
	}
	empty := slices.Collect(s.game.EmptyPositions())
	if len(empty) == 0 {
		return nil
	}
	if err := s.game.AddFood(empty[s.rng.Intn(len(empty))]); err != nil {
		return fmt.Errorf("session: cannot place food: %w", err)
	}
	return nil
}
