package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/marketops/mopctl/internal/ai"
	"github.com/marketops/mopctl/internal/glossary"
	"github.com/marketops/mopctl/internal/storage"
	"github.com/spf13/cobra"
)

var glossaryCmd = &cobra.Command{
	Use:   "glossary",
	Short: "Expand thin glossary definitions with AI and publish them",
	Long: `Read a CSV of glossary term URLs, fetch each term from the WordPress
REST API, generate an expanded HTML definition with the configured AI
provider, and publish the result back.

WordPress credentials come from WP_USERNAME and WP_APPLICATION_PASSWORD
(or a .env file). Each term's outcome is appended to the result log.

Examples:
  mopctl glossary
  mopctl glossary --input low_word_count.csv --concurrency 4`,
	Run: func(cmd *cobra.Command, args []string) {
		input, _ := cmd.Flags().GetString("input")
		concurrency, _ := cmd.Flags().GetInt("concurrency")

		cfg := loadConfig()
		if input != "" {
			cfg.Glossary.InputCSV = input
		}
		if concurrency > 0 {
			cfg.Glossary.Concurrency = concurrency
		}
		if err := cfg.ValidateGlossary(); err != nil {
			fatal("%v", err)
		}
		logger := newLogger(cfg)
		defer logger.Sync()

		ctx := context.Background()
		model, err := ai.New(ctx, ai.Config{
			Provider:          cfg.AI.Provider,
			Model:             cfg.AI.Model,
			APIKey:            cfg.AI.APIKey,
			RequestsPerMinute: cfg.AI.RequestsPerMinute,
			Retry:             cfg.RetryConfig(),
		}, logger)
		if err != nil {
			fatal("%v", err)
		}

		wp, err := glossary.NewWPClient(glossary.WPConfig{
			CollectionURL:       cfg.Glossary.CollectionURL,
			UpdateURLBase:       cfg.Glossary.UpdateURLBase,
			Username:            cfg.Glossary.Username,
			ApplicationPassword: cfg.Glossary.ApplicationPassword,
			Retry:               cfg.RetryConfig(),
		}, logger)
		if err != nil {
			fatal("%v", err)
		}

		expander := glossary.NewExpander(wp, model, glossary.Config{
			TargetWordCount: cfg.Glossary.TargetWordCount,
			Concurrency:     cfg.Glossary.Concurrency,
			ResultLog:       cfg.Glossary.ResultLog,
		}, logger)

		run := storage.NewRun("glossary")
		summary, err := expander.Run(ctx, cfg.Glossary.InputCSV)
		if summary != nil {
			run.RecordsRead = summary.Succeeded + summary.Failed + summary.Skipped
			run.RecordsWritten = summary.Succeeded
		}
		run.Finish(err)
		recordRun(cfg.RunDB, run)
		if err != nil {
			fatal("glossary run failed: %v", err)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Updated %d term(s), %d failed, %d skipped (log: %s)\n",
			green("✓"), summary.Succeeded, summary.Failed, summary.Skipped, cfg.Glossary.ResultLog)
	},
}

func init() {
	glossaryCmd.Flags().String("input", "", "CSV of term URLs (default from config)")
	glossaryCmd.Flags().Int("concurrency", 0, "parallel term limit (default from config)")
	rootCmd.AddCommand(glossaryCmd)
}
