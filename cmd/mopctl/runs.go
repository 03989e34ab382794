package main

import (
	"context"
	"fmt"

	"github.com/marketops/mopctl/internal/repl"
	"github.com/marketops/mopctl/internal/storage"
	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show recent run history",
	Long: `List the most recent batch runs with their outcomes and record
counts. History is kept in the configured SQLite database.

Examples:
  mopctl runs
  mopctl runs --limit 50`,
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")

		cfg := loadConfig()
		store, err := storage.New(cfg.RunDB)
		if err != nil {
			fatal("could not open run history: %v", err)
		}
		defer store.Close()

		runs, err := store.ListRuns(context.Background(), limit)
		if err != nil {
			fatal("%v", err)
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded yet.")
			return
		}
		repl.PrintRuns(runs)
	},
}

func init() {
	runsCmd.Flags().Int("limit", 20, "maximum number of runs to show")
	rootCmd.AddCommand(runsCmd)
}
