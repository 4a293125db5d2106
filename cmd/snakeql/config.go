package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/snakeql/internal/config"
)

var flagConfigDefaults bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration after merging every layer, lowest priority
first:

  embedded defaults
  ~/.snakeql/config.yaml
  ./configs/snakeql.yaml
  --config file
  SNAKEQL_* environment variables (e.g. SNAKEQL_GRID_ROWS=30)
  command-line flags

Examples:
  snakeql config
  snakeql config --defaults > ~/.snakeql/config.yaml`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

func init() {
	configCmd.Flags().BoolVar(&flagConfigDefaults, "defaults", false, "Print the built-in defaults instead")
}

func runConfig(_ *cobra.Command, _ []string) error {
	if flagConfigDefaults {
		_, err := os.Stdout.Write(config.DefaultYAML())
		return err
	}

	out, err := config.Dump(cfg)
	if err != nil {
		return err
	}
	for _, src := range loader.Sources() {
		fmt.Printf("# source: %s\n", src)
	}
	fmt.Print(string(out))
	return nil
}
