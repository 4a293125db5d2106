// Package config provides layered YAML configuration for snakeql:
// embedded defaults, user and project files, environment variables and
// command-line flags.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/vovakirdan/snakeql/internal/agent"
	"github.com/vovakirdan/snakeql/internal/session"
)

// ErrInvalidGrid is returned by Validate for a non-positive board size.
var ErrInvalidGrid = errors.New("config: grid dimensions must be positive")

// Config is the complete application configuration.
type Config struct {
	Grid      GridConfig      `yaml:"grid" mapstructure:"grid"`
	Agent     AgentConfig     `yaml:"agent" mapstructure:"agent"`
	Rewards   RewardsConfig   `yaml:"rewards" mapstructure:"rewards"`
	Training  TrainingConfig  `yaml:"training" mapstructure:"training"`
	Display   DisplayConfig   `yaml:"display" mapstructure:"display"`
	Storage   StorageConfig   `yaml:"storage" mapstructure:"storage"`
	Telemetry TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// GridConfig sets the board size.
type GridConfig struct {
	Rows int `yaml:"rows" mapstructure:"rows"`
	Cols int `yaml:"cols" mapstructure:"cols"`
}

// AgentConfig holds the learning hyperparameters.
type AgentConfig struct {
	Epsilon        float64 `yaml:"epsilon" mapstructure:"epsilon"`
	LearningRate   float64 `yaml:"learning_rate" mapstructure:"learning_rate"`
	DiscountFactor float64 `yaml:"discount_factor" mapstructure:"discount_factor"`
}

// RewardsConfig holds the reward magnitudes.
type RewardsConfig struct {
	GameOver   float64 `yaml:"game_over" mapstructure:"game_over"`
	EatFood    float64 `yaml:"eat_food" mapstructure:"eat_food"`
	MoveCloser float64 `yaml:"move_closer" mapstructure:"move_closer"`
	MoveAway   float64 `yaml:"move_away" mapstructure:"move_away"`
}

// TrainingConfig controls how many games a run plays.
type TrainingConfig struct {
	Games        int   `yaml:"games" mapstructure:"games"`
	TestGames    int   `yaml:"test_games" mapstructure:"test_games"`
	MaxIdleSteps int   `yaml:"max_idle_steps" mapstructure:"max_idle_steps"` // 0 disables the idle guard
	Seed         int64 `yaml:"seed" mapstructure:"seed"`                     // 0 seeds from the clock
}

// DisplayConfig sets the per-tick delay of the terminal driver.
type DisplayConfig struct {
	TrainingDelayMS int `yaml:"training_delay_ms" mapstructure:"training_delay_ms"`
	TestingDelayMS  int `yaml:"testing_delay_ms" mapstructure:"testing_delay_ms"`
}

// StorageConfig locates the run history database.
type StorageConfig struct {
	DBPath string `yaml:"db_path" mapstructure:"db_path"`
}

// TelemetryConfig enables the live episode feed.
type TelemetryConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"` // empty disables the server
}

// LogConfig sets the log level.
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
}

// Validate checks the settings the simulator cannot run without.
// Hyperparameters are taken as given.
func (c Config) Validate() error {
	if c.Grid.Rows <= 0 || c.Grid.Cols <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidGrid, c.Grid.Rows, c.Grid.Cols)
	}
	return nil
}

// AgentParams converts the agent section for agent.NewAgent.
func (c Config) AgentParams() agent.Params {
	return agent.Params{
		Epsilon:        c.Agent.Epsilon,
		LearningRate:   c.Agent.LearningRate,
		DiscountFactor: c.Agent.DiscountFactor,
	}
}

// AgentRewards converts the rewards section for agent.NewAgent.
func (c Config) AgentRewards() agent.Rewards {
	return agent.Rewards{
		GameOver:   c.Rewards.GameOver,
		EatFood:    c.Rewards.EatFood,
		MoveCloser: c.Rewards.MoveCloser,
		MoveAway:   c.Rewards.MoveAway,
	}
}

// SessionConfig returns the board and idle guard settings.
func (c Config) SessionConfig() session.Config {
	return session.Config{
		Rows:         c.Grid.Rows,
		Cols:         c.Grid.Cols,
		MaxIdleSteps: c.Training.MaxIdleSteps,
	}
}

// Delay returns the display delay for training or testing games.
func (c Config) Delay(training bool) time.Duration {
	if training {
		return time.Duration(c.Display.TrainingDelayMS) * time.Millisecond
	}
	return time.Duration(c.Display.TestingDelayMS) * time.Millisecond
}

// Seed returns the configured seed, or a clock-based one when unset.
func (c Config) Seed() int64 {
	if c.Training.Seed != 0 {
		return c.Training.Seed
	}
	return time.Now().UnixNano()
}
