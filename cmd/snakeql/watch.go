package main

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/snakeql/internal/platform/tui"
	"github.com/vovakirdan/snakeql/internal/recorder"
	"github.com/vovakirdan/snakeql/internal/session"
	"github.com/vovakirdan/snakeql/internal/storage"
	"github.com/vovakirdan/snakeql/internal/telemetry"
)

var flagWatchStore bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the agent learn in the terminal",
	Long: `Show a fresh agent playing: --games training games at the training
delay, then --test-games games with exploration off at the testing delay.

Controls:
  P/Space    - Pause
  +/-        - Play more or fewer moves per frame
  T/Tab      - Skip the rest of training
  ?          - More keys
  Q/Ctrl+C   - Quit

Examples:
  snakeql watch
  snakeql watch --games 50 --training-delay 20
  snakeql watch --rows 12 --cols 30 --store`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	addRunFlags(watchCmd)
	addDisplayFlags(watchCmd)
	watchCmd.Flags().BoolVar(&flagWatchStore, "store", false, "Record the run in the database")
}

// addDisplayFlags registers the per-move delays of the watch screen.
func addDisplayFlags(cmd *cobra.Command) {
	cmd.Flags().Int("training-delay", 2, "Milliseconds between moves while training")
	cmd.Flags().Int("testing-delay", 50, "Milliseconds between moves while testing")
}

func runWatch(cmd *cobra.Command, _ []string) error {
	var store *storage.Store
	if flagWatchStore {
		var err error
		if store, err = storage.Open(cfg.Storage.DBPath); err != nil {
			return err
		}
		defer store.Close()
	}

	seed := cfg.Seed()
	sess, err := session.NewSeeded(cfg.SessionConfig(), cfg.AgentParams(), cfg.AgentRewards(), seed)
	if err != nil {
		return err
	}

	// The screen belongs to the program; the telemetry server stays quiet.
	var hub *telemetry.Hub
	group, ctx := errgroup.WithContext(cmd.Context())
	serverCtx, stopServer := context.WithCancel(ctx)
	defer stopServer()
	if cfg.Telemetry.Addr != "" {
		hub = telemetry.NewHub(0)
		srv := telemetry.NewServer(cfg.Telemetry.Addr, hub, log.New(io.Discard))
		group.Go(func() error {
			return srv.ListenAndServe(serverCtx)
		})
	}

	rec, err := recorder.Start(store, hub, logger, recorder.RunFromConfig("watch", cfg, seed))
	if err != nil {
		return err
	}

	final, runErr := tui.RunWatch(tui.NewWatchModel(sess, tui.WatchConfigFrom(cfg), rec.Record))
	closeErr := rec.Close()
	stopServer()
	if err := group.Wait(); err != nil && runErr == nil {
		runErr = err
	}
	if runErr != nil {
		return runErr
	}
	if closeErr != nil {
		return closeErr
	}

	if !final.Done() {
		logger.Info("Stopped before the last game")
	}
	printSummary(rec, sess.Agent())
	return nil
}
