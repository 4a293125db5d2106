// Package recorder stores finished episodes as a run in the history
// database and publishes them to the live telemetry hub.
package recorder

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/snakeql/internal/config"
	"github.com/vovakirdan/snakeql/internal/session"
	"github.com/vovakirdan/snakeql/internal/storage"
	"github.com/vovakirdan/snakeql/internal/telemetry"
)

// Recorder sinks episode results of one run. Store and hub are both
// optional; a Recorder with neither only counts.
type Recorder struct {
	store  *storage.Store
	hub    *telemetry.Hub
	logger *log.Logger
	runID  int64

	training session.Summary
	testing  session.Summary
}

// RunFromConfig describes a run of cfg started by source.
func RunFromConfig(source string, cfg config.Config, seed int64) storage.Run {
	return storage.Run{
		Source:         source,
		Rows:           cfg.Grid.Rows,
		Cols:           cfg.Grid.Cols,
		Epsilon:        cfg.Agent.Epsilon,
		LearningRate:   cfg.Agent.LearningRate,
		DiscountFactor: cfg.Agent.DiscountFactor,
		Seed:           seed,
		Games:          cfg.Training.Games,
		TestGames:      cfg.Training.TestGames,
	}
}

// Start opens a run in store, when one is given, and returns a recorder
// for it.
func Start(store *storage.Store, hub *telemetry.Hub, logger *log.Logger, run storage.Run) (*Recorder, error) {
	if logger == nil {
		logger = log.Default()
	}
	r := &Recorder{store: store, hub: hub, logger: logger}
	if store != nil {
		id, err := store.CreateRun(run)
		if err != nil {
			return nil, fmt.Errorf("recorder: %w", err)
		}
		r.runID = id
		logger.Debug("Run started", "run", id, "source", run.Source)
	}
	return r, nil
}

// RunID returns the database id of the run, or 0 without a store.
func (r *Recorder) RunID() int64 {
	return r.runID
}

// Record saves and publishes one episode. Episodes are numbered from 1
// within their mode.
func (r *Recorder) Record(res session.EpisodeResult) error {
	switch res.Mode {
	case session.ModeTraining:
		r.training.Add(res)
		res.Episode = r.training.Games
	case session.ModeTesting:
		r.testing.Add(res)
		res.Episode = r.testing.Games
	}

	if r.store != nil {
		_, err := r.store.SaveEpisode(storage.Episode{
			RunID:      r.runID,
			Index:      res.Episode,
			Mode:       res.Mode.String(),
			Score:      res.Score,
			Steps:      res.Steps,
			Length:     res.Length,
			Stalled:    res.Stalled,
			DurationMS: res.Duration.Milliseconds(),
		})
		if err != nil {
			return fmt.Errorf("recorder: %w", err)
		}
	}
	if r.hub != nil {
		r.hub.Publish(telemetry.EventFromResult(r.runID, res))
	}
	return nil
}

// Summary returns the aggregates recorded so far for mode.
func (r *Recorder) Summary(mode session.Mode) session.Summary {
	if mode == session.ModeTesting {
		return r.testing
	}
	return r.training
}

// Close marks the run finished.
func (r *Recorder) Close() error {
	if r.store == nil {
		return nil
	}
	err := r.store.FinishRun(r.runID)
	if errors.Is(err, storage.ErrRunNotFound) {
		r.logger.Warn("Run vanished before it finished", "run", r.runID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("recorder: %w", err)
	}
	return nil
}
