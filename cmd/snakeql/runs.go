package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/snakeql/internal/storage"
)

var (
	flagRunsLimit int
	flagRunsClear bool
)

var runsCmd = &cobra.Command{
	Use:   "runs [id]",
	Short: "List recorded runs or show one",
	Long: `Without an argument, list the most recent runs. With a run ID, show
per-mode statistics of that run.

Examples:
  snakeql runs
  snakeql runs --limit 50
  snakeql runs 12
  snakeql runs --clear`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRuns,
}

func init() {
	runsCmd.Flags().IntVar(&flagRunsLimit, "limit", 20, "Number of runs to list")
	runsCmd.Flags().BoolVar(&flagRunsClear, "clear", false, "Delete every recorded run")
}

func runRuns(_ *cobra.Command, args []string) error {
	store, err := storage.Open(cfg.Storage.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if flagRunsClear {
		if err := store.ClearRuns(); err != nil {
			return err
		}
		fmt.Println("All runs deleted.")
		return nil
	}

	if len(args) == 1 {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid run id %q", args[0])
		}
		return showRun(store, id)
	}

	runs, err := store.Runs(flagRunsLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		fmt.Println()
		fmt.Println("Run 'snakeql train' to record the first one!")
		return nil
	}

	fmt.Printf("  %-5s  %-6s  %-7s  %-5s  %-6s  %-5s  %s\n", "ID", "Source", "Grid", "Games", "Played", "Best", "Started")
	fmt.Printf("  %-5s  %-6s  %-7s  %-5s  %-6s  %-5s  %s\n", "--", "------", "----", "-----", "------", "----", "-------")
	for _, r := range runs {
		started := r.StartedAt.Format("2006-01-02 15:04")
		if !r.Finished() {
			started += " (unfinished)"
		}
		fmt.Printf("  %-5d  %-6s  %-7s  %-5d  %-6d  %-5d  %s\n",
			r.ID, r.Source, fmt.Sprintf("%dx%d", r.Rows, r.Cols),
			r.Games+r.TestGames, r.EpisodeCount, r.BestScore, started)
	}
	return nil
}

func showRun(store *storage.Store, id int64) error {
	run, err := store.RunByID(id)
	if err != nil {
		return err
	}
	stats, err := store.RunStats(id)
	if err != nil {
		return err
	}

	fmt.Printf("Run #%d (%s)\n\n", run.ID, run.Source)
	fmt.Printf("  Grid:        %dx%d\n", run.Rows, run.Cols)
	fmt.Printf("  Epsilon:     %g\n", run.Epsilon)
	fmt.Printf("  Learning:    %g\n", run.LearningRate)
	fmt.Printf("  Discount:    %g\n", run.DiscountFactor)
	fmt.Printf("  Seed:        %d\n", run.Seed)
	fmt.Printf("  Started:     %s\n", run.StartedAt.Format("2006-01-02 15:04:05"))
	if run.Finished() {
		fmt.Printf("  Finished:    %s\n", run.FinishedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Println()

	fmt.Printf("  %-9s  %-6s  %-5s  %-7s  %-7s  %s\n", "Mode", "Games", "Best", "Mean", "Stalled", "Steps")
	fmt.Printf("  %-9s  %-6s  %-5s  %-7s  %-7s  %s\n", "----", "-----", "----", "----", "-------", "-----")
	for _, mode := range []string{"training", "testing"} {
		s, ok := stats[mode]
		if !ok {
			continue
		}
		fmt.Printf("  %-9s  %-6d  %-5d  %-7.2f  %-7d  %d\n",
			mode, s.Games, s.HighScore, s.AvgScore, s.Stalled, s.TotalSteps)
	}
	return nil
}
