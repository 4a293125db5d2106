package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/snakeql/internal/agent"
	"github.com/vovakirdan/snakeql/internal/recorder"
	"github.com/vovakirdan/snakeql/internal/session"
	"github.com/vovakirdan/snakeql/internal/storage"
	"github.com/vovakirdan/snakeql/internal/telemetry"
)

var (
	flagNoStore  bool
	flagLogEvery int
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train and test the agent without a display",
	Long: `Train a fresh agent for --games games, then play --test-games games
with exploration and learning switched off. Every episode is stored in
the run history database unless --no-store is given.

With --listen, finished episodes are also streamed over HTTP:
  GET /healthz    server status
  GET /episodes   recent episodes as JSON
  GET /ws         live websocket feed

Examples:
  snakeql train
  snakeql train --games 5000 --test-games 100 --seed 42
  snakeql train --listen :8080
  snakeql train --no-store --log-every 10`,
	Args: cobra.NoArgs,
	RunE: runTrain,
}

func init() {
	addRunFlags(trainCmd)
	trainCmd.Flags().BoolVar(&flagNoStore, "no-store", false, "Do not record the run in the database")
	trainCmd.Flags().IntVar(&flagLogEvery, "log-every", 50, "Log progress every N training games (0 = never)")
}

func runTrain(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store *storage.Store
	if !flagNoStore {
		var err error
		if store, err = storage.Open(cfg.Storage.DBPath); err != nil {
			return err
		}
		defer store.Close()
	}

	group, ctx := errgroup.WithContext(ctx)
	hub, stopTelemetry := startTelemetry(ctx, group, cfg.Telemetry.Addr)

	seed := cfg.Seed()
	sess, err := session.NewSeeded(cfg.SessionConfig(), cfg.AgentParams(), cfg.AgentRewards(), seed)
	if err != nil {
		stopTelemetry()
		return err
	}
	rec, err := recorder.Start(store, hub, logger, recorder.RunFromConfig("train", cfg, seed))
	if err != nil {
		stopTelemetry()
		return err
	}

	logger.Info("Training",
		"run", rec.RunID(),
		"games", cfg.Training.Games,
		"test_games", cfg.Training.TestGames,
		"grid", fmt.Sprintf("%dx%d", cfg.Grid.Rows, cfg.Grid.Cols),
		"seed", seed,
	)

	group.Go(func() error {
		defer stopTelemetry()

		err := sess.Run(ctx, true, cfg.Training.Games, func(r session.EpisodeResult) error {
			if err := rec.Record(r); err != nil {
				return err
			}
			sum := rec.Summary(session.ModeTraining)
			logger.Debug("Episode", "mode", r.Mode, "game", sum.Games, "score", r.Score, "steps", r.Steps, "stalled", r.Stalled)
			if flagLogEvery > 0 && sum.Games%flagLogEvery == 0 {
				logger.Info("Progress",
					"games", sum.Games,
					"best", sum.Best,
					"mean", fmt.Sprintf("%.2f", sum.Mean()),
					"states", sess.Agent().Table().Visited(),
				)
			}
			return nil
		})
		if err == nil {
			err = sess.Run(ctx, false, cfg.Training.TestGames, rec.Record)
		}
		if closeErr := rec.Close(); err == nil {
			err = closeErr
		}
		return err
	})

	err = group.Wait()
	if errors.Is(err, context.Canceled) {
		logger.Warn("Interrupted, partial results follow")
		err = nil
	}

	printSummary(rec, sess.Agent())
	return err
}

// startTelemetry runs a telemetry server on addr in group. It returns a
// nil hub and a no-op stop when addr is empty.
func startTelemetry(ctx context.Context, group *errgroup.Group, addr string) (*telemetry.Hub, func()) {
	if addr == "" {
		return nil, func() {}
	}
	hub := telemetry.NewHub(0)
	srv := telemetry.NewServer(addr, hub, logger.WithPrefix("telemetry"))

	serverCtx, cancel := context.WithCancel(ctx)
	group.Go(func() error {
		return srv.ListenAndServe(serverCtx)
	})
	return hub, cancel
}

func printSummary(rec *recorder.Recorder, a *agent.Agent) {
	fmt.Println()
	if rec.RunID() != 0 {
		fmt.Printf("Run #%d\n\n", rec.RunID())
	}

	fmt.Printf("  %-9s  %-6s  %-5s  %-7s  %-7s  %s\n", "Mode", "Games", "Best", "Mean", "Stalled", "Steps")
	fmt.Printf("  %-9s  %-6s  %-5s  %-7s  %-7s  %s\n", "----", "-----", "----", "----", "-------", "-----")
	for _, mode := range []session.Mode{session.ModeTraining, session.ModeTesting} {
		sum := rec.Summary(mode)
		fmt.Printf("  %-9s  %-6d  %-5d  %-7.2f  %-7d  %d\n",
			mode, sum.Games, sum.Best, sum.Mean(), sum.Stalled, sum.Steps)
	}

	stats := a.Stats()
	fmt.Println()
	fmt.Printf("States visited: %d/%d\n", a.Table().Visited(), agent.NumStates)
	fmt.Printf("Decisions: %d (%d explored), updates: %d\n", stats.Decisions, stats.Explorations, stats.Updates)
}
