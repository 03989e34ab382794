package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/marketops/mopctl/internal/config"
	"github.com/marketops/mopctl/internal/merge"
	"github.com/marketops/mopctl/internal/pipeline"
	"github.com/marketops/mopctl/internal/sheets"
	"github.com/marketops/mopctl/internal/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Merge and deduplicate contact lists across worksheets",
	Long: `Read every worksheet of the configured spreadsheet, drop inactive
contacts, support addresses, and duplicates, and write the merged list
to the configured output worksheet in one shot.

A contact appearing in multiple worksheets is kept once, from the first
worksheet it appears in. Worksheets missing the mandatory email or name
column are skipped. Nothing is written when the run fails, so the
previous output stays intact.

Examples:
  mopctl clean                 # Merge using mopctl.yaml
  mopctl clean --dry-run       # Report counts without writing
  mopctl clean -c prod.yaml    # Use a different config file`,
	Run: func(cmd *cobra.Command, args []string) {
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		cfg := loadConfig()
		if err := cfg.ValidateClean(); err != nil {
			fatal("%v", err)
		}
		logger := newLogger(cfg)
		defer logger.Sync()

		ctx := context.Background()
		outcome, err := runClean(ctx, cfg, logger, dryRun)
		if err != nil {
			fatal("clean run failed: %v", err)
		}

		fmt.Println(cleanSummary(outcome, dryRun))
	},
}

func init() {
	cleanCmd.Flags().Bool("dry-run", false, "merge in memory and report counts without writing")
	rootCmd.AddCommand(cleanCmd)
}

// runClean wires the spreadsheet client, run history, and pipeline for
// one clean run. Shared with the REPL's clean command.
func runClean(ctx context.Context, cfg config.Config, logger *zap.Logger, dryRun bool) (*pipeline.Outcome, error) {
	client, err := sheets.NewGoogleClient(ctx, sheets.GoogleConfig{
		SpreadsheetID:     cfg.Sheets.SpreadsheetID,
		CredentialsFile:   cfg.Sheets.CredentialsFile,
		RequestsPerMinute: cfg.Sheets.RequestsPerMinute,
		Retry:             cfg.RetryConfig(),
	}, logger)
	if err != nil {
		return nil, err
	}

	store, err := storage.New(cfg.RunDB)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	cleaner := pipeline.NewCleaner(client, client, store, logger)
	return cleaner.Run(ctx, pipeline.Options{
		Merge:       cfg.MergeConfig(),
		OutputTable: cfg.Clean.OutputTableName,
		DryRun:      dryRun,
	})
}

// cleanSummary renders the outcome the way the run log reports it.
func cleanSummary(outcome *pipeline.Outcome, dryRun bool) string {
	green := color.New(color.FgGreen).SprintFunc()

	var b strings.Builder
	if dryRun {
		fmt.Fprintf(&b, "%s\n", color.YellowString("DRY RUN MODE - nothing was written"))
	}
	fmt.Fprintf(&b, "%s Merged %d worksheet(s): %d read, %d written\n",
		green("✓"),
		outcome.WorksheetsRead,
		outcome.Stats.RecordsRead,
		outcome.Stats.RecordsWritten)
	for _, reason := range merge.DropReasons {
		if n := outcome.Stats.Dropped[reason]; n > 0 {
			fmt.Fprintf(&b, "  dropped %-22s %d\n", string(reason)+":", n)
		}
	}
	if len(outcome.WorksheetsSkipped) > 0 {
		fmt.Fprintf(&b, "  skipped worksheets: %s\n", strings.Join(outcome.WorksheetsSkipped, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}
