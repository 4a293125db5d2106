// snakeql trains a tabular Q-learning agent to play snake.
//
// Usage:
//
//	snakeql train            - Train and test headless, storing every episode
//	snakeql watch            - Watch the agent learn in the terminal
//	snakeql serve            - Start SSH server so remote users can watch
//	snakeql runs [id]        - List recorded runs or show one
//	snakeql board            - Browse the best recorded episodes
//	snakeql export           - Export a run's episodes to parquet
//	snakeql config           - Print the effective configuration
//
// Global flags:
//
//	--config <path>     - Extra YAML config file
//	--seed <value>      - RNG seed for reproducible runs
//	--db <path>         - Run history database (default: ~/.snakeql/runs.db)
//	--log-level <level> - debug, info, warn or error
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/snakeql/internal/config"
)

var (
	// Global flags
	flagConfig   string
	flagSeed     int64
	flagDBPath   string
	flagLogLevel string

	// Set by loadConfig before any subcommand runs.
	loader *config.Loader
	cfg    config.Config
	logger *log.Logger
)

// flagKeys maps command-line flags to the config keys they override.
var flagKeys = map[string]string{
	"seed":           "training.seed",
	"db":             "storage.db_path",
	"log-level":      "log.level",
	"rows":           "grid.rows",
	"cols":           "grid.cols",
	"epsilon":        "agent.epsilon",
	"learning-rate":  "agent.learning_rate",
	"discount":       "agent.discount_factor",
	"games":          "training.games",
	"test-games":     "training.test_games",
	"max-idle":       "training.max_idle_steps",
	"training-delay": "display.training_delay_ms",
	"testing-delay":  "display.testing_delay_ms",
	"listen":         "telemetry.addr",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "snakeql",
	Short: "snakeql - a Q-learning agent that learns to play snake",
	Long: `snakeql trains a tabular Q-learning agent to play snake on a grid.

The agent sees a compact state (heading, food direction, danger on four
sides), picks one of three relative moves and learns from rewards for
eating, approaching the food and dying.

Available commands:
  train    - Train and test headless, storing every episode
  watch    - Watch the agent learn in the terminal
  serve    - Start SSH server so remote users can watch
  runs     - List recorded runs
  board    - Browse the best recorded episodes
  export   - Export a run to parquet
  config   - Print the effective configuration

Examples:
  snakeql train --games 2000
  snakeql watch --rows 15 --cols 15
  snakeql serve --ssh :2222
  snakeql export --out run.parquet`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to an extra config YAML")
	rootCmd.PersistentFlags().Int64Var(&flagSeed, "seed", 0, "RNG seed (0 = random based on time)")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "~/.snakeql/runs.db", "Path to run history database")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(boardCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(configCmd)
}

// addRunFlags registers the flags that shape a training run.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().Int("rows", 20, "Board rows")
	cmd.Flags().Int("cols", 20, "Board columns")
	cmd.Flags().Float64("epsilon", 0.1, "Exploration rate while training")
	cmd.Flags().Float64("learning-rate", 0.1, "Learning rate")
	cmd.Flags().Float64("discount", 0.1, "Discount factor")
	cmd.Flags().Int("games", 500, "Training games")
	cmd.Flags().Int("test-games", 10, "Testing games after training")
	cmd.Flags().Int("max-idle", 1000, "End a game after this many moves without food (0 = never)")
	cmd.Flags().String("listen", "", "Serve live telemetry on this address (e.g. :8080)")
}

// loadConfig builds the effective configuration and the logger.
func loadConfig(cmd *cobra.Command, _ []string) error {
	loader = config.NewLoader(flagConfig)
	for name, key := range flagKeys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			continue
		}
		if err := loader.BindFlag(key, flag); err != nil {
			return err
		}
	}

	var err error
	cfg, err = loader.Load()
	if err != nil {
		return err
	}

	logger = newLogger("snakeql", cfg.Log.Level)
	logger.Debug("Configuration loaded", "sources", loader.Sources())
	return nil
}

func newLogger(prefix, level string) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          prefix,
	})
	lvl, err := log.ParseLevel(level)
	if err != nil {
		logger.Warn("Unknown log level, using info", "level", level)
		lvl = log.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}
