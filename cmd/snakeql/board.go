package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/snakeql/internal/platform/tui"
	"github.com/vovakirdan/snakeql/internal/storage"
)

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Browse the best recorded episodes",
	Long: `Open an interactive table of the highest scoring episodes across all
runs, filterable by training or testing.

Controls:
  Up/Down    - Scroll
  Tab        - Next filter
  R          - Reload
  Q/Ctrl+C   - Quit`,
	Args: cobra.NoArgs,
	RunE: runBoard,
}

func runBoard(_ *cobra.Command, _ []string) error {
	store, err := storage.Open(cfg.Storage.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	width, height := 80, 24 // Defaults
	if w, h, termErr := term.GetSize(int(os.Stdout.Fd())); termErr == nil {
		width = w
		height = h
	}

	return tui.RunBoard(store, width, height)
}
