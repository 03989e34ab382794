package main

import (
	"context"

	"github.com/marketops/mopctl/internal/repl"
	"github.com/marketops/mopctl/internal/storage"
	"github.com/spf13/cobra"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start the interactive shell",
	Long: `Start an interactive shell for inspecting run history and kicking off
clean runs without retyping configuration flags.

Type 'help' in the shell for available commands.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		logger := newLogger(cfg)
		defer logger.Sync()

		store, err := storage.New(cfg.RunDB)
		if err != nil {
			fatal("could not open run history: %v", err)
		}
		defer store.Close()

		shell, err := repl.New(&repl.Config{
			Store: store,
			Clean: func(ctx context.Context, dryRun bool) (string, error) {
				if err := cfg.ValidateClean(); err != nil {
					return "", err
				}
				outcome, err := runClean(ctx, cfg, logger, dryRun)
				if err != nil {
					return "", err
				}
				return cleanSummary(outcome, dryRun), nil
			},
		})
		if err != nil {
			fatal("failed to create shell: %v", err)
		}

		if err := shell.Run(context.Background()); err != nil {
			fatal("%v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(replCmd)
}
