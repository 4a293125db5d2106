package config

import (
	_ "embed"

	"gopkg.in/yaml.v3"
)

//go:embed defaults/snakeql.yaml
var defaultYAML []byte

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Grid: GridConfig{
			Rows: 20,
			Cols: 20,
		},
		Agent: AgentConfig{
			Epsilon:        0.1,
			LearningRate:   0.1,
			DiscountFactor: 0.1,
		},
		Rewards: RewardsConfig{
			GameOver:   -1000,
			EatFood:    10,
			MoveCloser: 1,
			MoveAway:   -1,
		},
		Training: TrainingConfig{
			Games:        500,
			TestGames:    10,
			MaxIdleSteps: 1000,
		},
		Display: DisplayConfig{
			TrainingDelayMS: 2,
			TestingDelayMS:  50,
		},
		Storage: StorageConfig{
			DBPath: "~/.snakeql/runs.db",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultYAML returns the embedded default configuration file.
func DefaultYAML() []byte {
	return defaultYAML
}

// Dump renders cfg as YAML.
func Dump(cfg Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}
