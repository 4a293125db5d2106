package recorder

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/snakeql/internal/config"
	"github.com/vovakirdan/snakeql/internal/session"
	"github.com/vovakirdan/snakeql/internal/storage"
	"github.com/vovakirdan/snakeql/internal/telemetry"
)

func result(mode session.Mode, episode, score int) session.EpisodeResult {
	return session.EpisodeResult{
		Episode:  episode,
		Mode:     mode,
		Score:    score,
		Steps:    20,
		Length:   3 + score,
		Duration: 3 * time.Millisecond,
	}
}

func TestRunFromConfig(t *testing.T) {
	cfg := config.Default()
	run := RunFromConfig("train", cfg, 42)

	if run.Source != "train" || run.Seed != 42 {
		t.Errorf("Unexpected run %+v", run)
	}
	if run.Rows != cfg.Grid.Rows || run.Games != cfg.Training.Games || run.Epsilon != cfg.Agent.Epsilon {
		t.Errorf("Run does not mirror config: %+v", run)
	}
}

func TestRecorderWithoutSinks(t *testing.T) {
	rec, err := Start(nil, nil, nil, storage.Run{})
	if err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if rec.RunID() != 0 {
		t.Errorf("RunID() = %d, expected 0", rec.RunID())
	}

	for i, score := range []int{2, 5} {
		if err := rec.Record(result(session.ModeTraining, i+1, score)); err != nil {
			t.Fatalf("Record() failed: %v", err)
		}
	}
	sum := rec.Summary(session.ModeTraining)
	if sum.Games != 2 || sum.Best != 5 || sum.Total != 7 {
		t.Errorf("Training summary = %+v", sum)
	}
	if rec.Summary(session.ModeTesting).Games != 0 {
		t.Error("Testing summary should be empty")
	}
	if err := rec.Close(); err != nil {
		t.Errorf("Close() failed: %v", err)
	}
}

func TestRecorderPersistsAndPublishes(t *testing.T) {
	store, err := storage.Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer store.Close()

	hub := telemetry.NewHub(10)
	sub, _ := hub.Subscribe(10)
	logger := log.NewWithOptions(io.Discard, log.Options{})

	rec, err := Start(store, hub, logger, RunFromConfig("watch", config.Default(), 7))
	if err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	// Session counters run across modes; stored indexes restart per mode.
	records := []session.EpisodeResult{
		result(session.ModeTraining, 1, 1),
		result(session.ModeTraining, 2, 4),
		result(session.ModeTesting, 3, 6),
	}
	for _, r := range records {
		if err := rec.Record(r); err != nil {
			t.Fatalf("Record() failed: %v", err)
		}
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	episodes, err := store.Episodes(rec.RunID())
	if err != nil {
		t.Fatalf("Episodes() failed: %v", err)
	}
	if len(episodes) != 3 {
		t.Fatalf("Stored %d episodes, expected 3", len(episodes))
	}
	if episodes[2].Mode != "testing" || episodes[2].Index != 1 || episodes[2].Score != 6 {
		t.Errorf("Testing episode = %+v, expected index 1 score 6", episodes[2])
	}

	run, err := store.RunByID(rec.RunID())
	if err != nil {
		t.Fatalf("RunByID() failed: %v", err)
	}
	if !run.Finished() || run.Source != "watch" || run.BestScore != 6 {
		t.Errorf("Unexpected run %+v", run)
	}

	if len(sub.Events()) != 3 {
		t.Fatalf("Published %d events, expected 3", len(sub.Events()))
	}
	first := <-sub.Events()
	if first.RunID != rec.RunID() || first.Episode != 1 || first.Mode != "training" {
		t.Errorf("First event = %+v", first)
	}
}
