package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

// EpisodeRow is the columnar export layout of an episode.
type EpisodeRow struct {
	RunID      int64   `parquet:"run_id"`
	Index      int32   `parquet:"idx"`
	Mode       string  `parquet:"mode,dict"`
	Score      int32   `parquet:"score"`
	Steps      int32   `parquet:"steps"`
	Length     int32   `parquet:"length"`
	Stalled    bool    `parquet:"stalled"`
	DurationMS int64   `parquet:"duration_ms"`
	Rows       int32   `parquet:"grid_rows"`
	Cols       int32   `parquet:"grid_cols"`
	Epsilon    float64 `parquet:"epsilon"`
}

// ExportEpisodesParquet writes the episodes of run to outPath as a
// zstd-compressed parquet file. The file is written to a temporary path
// and renamed into place.
func ExportEpisodesParquet(outPath string, run Run, episodes []Episode) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("storage: create output dir: %w", err)
	}

	rows := make([]EpisodeRow, 0, len(episodes))
	for _, e := range episodes {
		rows = append(rows, EpisodeRow{
			RunID:      e.RunID,
			Index:      int32(e.Index),
			Mode:       e.Mode,
			Score:      int32(e.Score),
			Steps:      int32(e.Steps),
			Length:     int32(e.Length),
			Stalled:    e.Stalled,
			DurationMS: e.DurationMS,
			Rows:       int32(run.Rows),
			Cols:       int32(run.Cols),
			Epsilon:    run.Epsilon,
		})
	}

	tmpPath := outPath + ".tmp"
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, rows,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", "snakeql_episode_v1"),
	); err != nil {
		return fmt.Errorf("storage: write parquet: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("storage: rename parquet: %w", err)
	}
	return nil
}

// ExportRun writes every episode of runID to outPath and returns the
// number of rows written.
func (s *Store) ExportRun(runID int64, outPath string) (int, error) {
	run, err := s.RunByID(runID)
	if err != nil {
		return 0, err
	}
	episodes, err := s.Episodes(runID)
	if err != nil {
		return 0, err
	}
	if err := ExportEpisodesParquet(outPath, run, episodes); err != nil {
		return 0, err
	}
	return len(episodes), nil
}
