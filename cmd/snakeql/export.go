package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/snakeql/internal/storage"
)

var (
	flagExportRun int64
	flagExportOut string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a run's episodes to a parquet file",
	Long: `Write every episode of a run to a zstd-compressed parquet file,
one row per episode with the run's grid and exploration rate.

Examples:
  snakeql export                       # Latest run to run-<id>.parquet
  snakeql export --run 3 --out three.parquet`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().Int64Var(&flagExportRun, "run", 0, "Run ID (0 = latest)")
	exportCmd.Flags().StringVar(&flagExportOut, "out", "", "Output file (default run-<id>.parquet)")
}

func runExport(_ *cobra.Command, _ []string) error {
	store, err := storage.Open(cfg.Storage.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	runID := flagExportRun
	if runID == 0 {
		if runID, err = store.LatestRunID(); err != nil {
			return err
		}
	}

	out := flagExportOut
	if out == "" {
		out = fmt.Sprintf("run-%d.parquet", runID)
	}

	n, err := store.ExportRun(runID, out)
	if err != nil {
		return err
	}
	logger.Info("Exported", "run", runID, "episodes", n, "file", out)
	return nil
}
