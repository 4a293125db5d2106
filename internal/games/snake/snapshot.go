package snake

import "github.com/vovakirdan/snakeql/internal/core"

// GameStateType represents the current game state.
type GameStateType string

const (
	StatePlaying  GameStateType = "playing"
	StateGameOver GameStateType = "game_over"
)

// Snapshot captures the observable game state for logging, telemetry and
// determinism checks.
type Snapshot struct {
	Rows     int            `json:"rows"`
	Cols     int            `json:"cols"`
	Score    int            `json:"score"`
	SnakeLen int            `json:"snake_len"`
	Head     core.Position  `json:"head"`
	Heading  core.Direction `json:"heading"`
	Food     core.Position  `json:"food"`
	HasFood  bool           `json:"has_food"`
	State    GameStateType  `json:"state"`
}

// Snapshot returns the current game snapshot.
func (g *Game) Snapshot() Snapshot {
	state := StatePlaying
	if g.gameOver {
		state = StateGameOver
	}

	return Snapshot{
		Rows:     g.rows,
		Cols:     g.cols,
		Score:    g.score,
		SnakeLen: len(g.body),
		Head:     g.HeadPosition(),
		Heading:  g.heading,
		Food:     g.food,
		HasFood:  g.hasFood,
		State:    state,
	}
}
