// mopctl is the marketing operations CLI: it merges and deduplicates
// contact lists across spreadsheet worksheets, builds CRM and survey
// analysis workbooks, and expands glossary definitions with AI.
package main

import (
	"fmt"
	"os"

	"github.com/marketops/mopctl/internal/config"
	"github.com/marketops/mopctl/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	configPath string
	debugMode  bool
)

var rootCmd = &cobra.Command{
	Use:   "mopctl",
	Short: "Marketing operations toolkit",
	Long: `mopctl cleans and merges contact lists across spreadsheet worksheets,
builds CRM and survey analysis workbooks, and expands glossary
definitions with AI-generated content.

Configuration is read from a YAML file (see --config), overridable with
MOPCTL_* environment variables. A .env file in the working directory is
loaded automatically.`,
	Version: Version,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "mopctl.yaml", "path to the configuration file")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging")
}

// loadConfig reads the config file and environment overrides.
func loadConfig() config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// newLogger builds the console+file logger from config.
func newLogger(cfg config.Config) *zap.Logger {
	logger, err := logging.New(cfg.LogFile, debugMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	return logger
}

// fatal prints an error and exits.
func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
