// Package config loads and validates the toolkit configuration from a
// YAML file, a .env file, and MOPCTL_* environment variables. Required
// settings are checked once at load time so a misconfigured run aborts
// before any I/O happens.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/marketops/mopctl/internal/merge"
	"github.com/marketops/mopctl/internal/retry"
	"gopkg.in/yaml.v3"
)

// Config is the full configuration surface of the toolkit. One file
// configures all subcommands; each subcommand validates only the section
// it needs.
type Config struct {
	// Sheets configures the spreadsheet source/sink.
	Sheets SheetsConfig `yaml:"sheets"`

	// Clean configures the deduplicating merge run.
	Clean CleanConfig `yaml:"clean"`

	// Retry configures the source/sink retry wrapper.
	Retry RetryConfig `yaml:"retry"`

	// Report configures the Excel report generators.
	Report ReportConfig `yaml:"report"`

	// Glossary configures the WordPress glossary expander.
	Glossary GlossaryConfig `yaml:"glossary"`

	// AI configures the text-generation provider.
	AI AIConfig `yaml:"ai"`

	// LogFile is the append-mode log file path (default: mopctl.log).
	LogFile string `yaml:"log_file"`

	// RunDB is the SQLite run-history database path (default: mopctl.db).
	RunDB string `yaml:"run_db"`
}

// SheetsConfig identifies the spreadsheet and the service-account
// credentials used to reach it.
type SheetsConfig struct {
	// SpreadsheetID is the ID from the spreadsheet URL (required for
	// commands that touch the spreadsheet service).
	SpreadsheetID string `yaml:"spreadsheet_id"`

	// CredentialsFile is the path to the service-account key JSON.
	CredentialsFile string `yaml:"credentials_file"`

	// RequestsPerMinute paces API calls below the service quota
	// (default: 50).
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

// CleanConfig maps worksheet columns to semantic fields and names the
// output worksheet for the merge run.
type CleanConfig struct {
	// StatusColumn, EmailColumn, NameColumn are the worksheet headers
	// holding the semantic fields (required).
	StatusColumn string `yaml:"status_column"`
	EmailColumn  string `yaml:"email_column"`
	NameColumn   string `yaml:"name_column"`

	// ActiveStatusValue keeps a row when the status matches it
	// case-insensitively (default: "Active").
	ActiveStatusValue string `yaml:"active_status_value"`

	// OutputTableName is the worksheet the merged result is written to,
	// overwriting or creating it (required).
	OutputTableName string `yaml:"output_table_name"`
}

// RetryConfig mirrors the retry wrapper settings in file-friendly units.
type RetryConfig struct {
	// MaxAttempts is the total attempt count per call (default: 5).
	MaxAttempts int `yaml:"max_attempts"`

	// BaseDelaySeconds is the initial backoff delay (default: 1.0).
	BaseDelaySeconds float64 `yaml:"base_delay_seconds"`

	// MaxDelaySeconds caps the backoff delay (default: 60.0).
	MaxDelaySeconds float64 `yaml:"max_delay_seconds"`
}

// ReportConfig configures the CRM and survey report generators.
type ReportConfig struct {
	// CRMCSV is the path of the semicolon-separated CRM export.
	CRMCSV string `yaml:"crm_csv"`

	// CRMOutput is the CRM report workbook path (default:
	// crm_analysis.xlsx).
	CRMOutput string `yaml:"crm_output"`

	// SurveyWorksheet is the worksheet holding survey responses
	// (default: "Feedback_Report").
	SurveyWorksheet string `yaml:"survey_worksheet"`

	// SurveyOutput is the survey report workbook path (default:
	// survey_analysis.xlsx).
	SurveyOutput string `yaml:"survey_output"`

	// SurveyDropColumns are response columns excluded from the report,
	// such as personally identifying fields.
	SurveyDropColumns []string `yaml:"survey_drop_columns"`

	// SurveyMultiSelectColumns hold comma-separated selections that are
	// exploded before counting.
	SurveyMultiSelectColumns []string `yaml:"survey_multi_select_columns"`

	// AdSpendWeekly is the weekly ad spend series used for ROI.
	// AdSpendString is the alternative concatenated form ("$192.94$218.04")
	// ad platforms export; it is parsed when AdSpendWeekly is empty.
	AdSpendWeekly []float64 `yaml:"ad_spend_weekly"`
	AdSpendString string    `yaml:"ad_spend_string"`

	// AnalysisYear scopes the ROI breakdown (default: current year).
	AnalysisYear int `yaml:"analysis_year"`
}

// GlossaryConfig configures the WordPress glossary expander.
type GlossaryConfig struct {
	// InputCSV lists glossary term URLs, one per row.
	InputCSV string `yaml:"input_csv"`

	// CollectionURL is the WP REST collection endpoint for glossary
	// terms; UpdateURLBase is the per-post update endpoint prefix.
	CollectionURL string `yaml:"collection_url"`
	UpdateURLBase string `yaml:"update_url_base"`

	// Username and ApplicationPassword authenticate against the WP REST
	// API (Basic auth). Usually supplied via environment.
	Username            string `yaml:"username"`
	ApplicationPassword string `yaml:"application_password"`

	// TargetWordCount is the length hint for expanded definitions
	// (default: 600).
	TargetWordCount int `yaml:"target_word_count"`

	// Concurrency bounds parallel term processing (default: 1,
	// sequential like the legacy script).
	Concurrency int `yaml:"concurrency"`

	// ResultLog is the per-term outcome log path (default:
	// glossary_update_log.txt).
	ResultLog string `yaml:"result_log"`
}

// AIConfig selects and configures the text-generation provider.
type AIConfig struct {
	// Provider is "anthropic" or "gemini" (default: "anthropic").
	Provider string `yaml:"provider"`

	// Model overrides the provider's default model.
	Model string `yaml:"model"`

	// APIKey falls back to ANTHROPIC_API_KEY or GEMINI_API_KEY when
	// empty.
	APIKey string `yaml:"api_key"`

	// RequestsPerMinute paces generation calls (default: 30).
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

// Default returns the configuration defaults.
func Default() Config {
	return Config{
		Sheets: SheetsConfig{
			RequestsPerMinute: 50,
		},
		Clean: CleanConfig{
			ActiveStatusValue: merge.DefaultActiveStatus,
		},
		Retry: RetryConfig{
			MaxAttempts:      5,
			BaseDelaySeconds: 1.0,
			MaxDelaySeconds:  60.0,
		},
		Report: ReportConfig{
			CRMOutput:       "crm_analysis.xlsx",
			SurveyWorksheet: "Feedback_Report",
			SurveyOutput:    "survey_analysis.xlsx",
		},
		Glossary: GlossaryConfig{
			TargetWordCount: 600,
			Concurrency:     1,
			ResultLog:       "glossary_update_log.txt",
		},
		AI: AIConfig{
			Provider:          "anthropic",
			RequestsPerMinute: 30,
		},
		LogFile: "mopctl.log",
		RunDB:   "mopctl.db",
	}
}

// Load reads the YAML config file (when path is non-empty), loads a .env
// file if one exists, and applies MOPCTL_* environment overrides on top
// of the defaults.
func Load(path string) (Config, error) {
	// .env is optional; ignore a missing file.
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overrides settings from MOPCTL_* (and provider key fallback)
// environment variables.
func (c *Config) applyEnv() error {
	parseEnvString("MOPCTL_SPREADSHEET_ID", &c.Sheets.SpreadsheetID)
	parseEnvString("MOPCTL_CREDENTIALS_FILE", &c.Sheets.CredentialsFile)
	parseEnvString("MOPCTL_STATUS_COLUMN", &c.Clean.StatusColumn)
	parseEnvString("MOPCTL_EMAIL_COLUMN", &c.Clean.EmailColumn)
	parseEnvString("MOPCTL_NAME_COLUMN", &c.Clean.NameColumn)
	parseEnvString("MOPCTL_ACTIVE_STATUS_VALUE", &c.Clean.ActiveStatusValue)
	parseEnvString("MOPCTL_OUTPUT_TABLE_NAME", &c.Clean.OutputTableName)
	parseEnvString("MOPCTL_LOG_FILE", &c.LogFile)
	parseEnvString("MOPCTL_RUN_DB", &c.RunDB)
	parseEnvString("MOPCTL_AI_PROVIDER", &c.AI.Provider)
	parseEnvString("MOPCTL_AI_MODEL", &c.AI.Model)
	parseEnvString("MOPCTL_AI_API_KEY", &c.AI.APIKey)
	parseEnvString("WP_USERNAME", &c.Glossary.Username)
	parseEnvString("WP_APPLICATION_PASSWORD", &c.Glossary.ApplicationPassword)

	if err := parseEnvInt("MOPCTL_RETRY_MAX_ATTEMPTS", &c.Retry.MaxAttempts); err != nil {
		return err
	}
	if err := parseEnvFloat("MOPCTL_RETRY_BASE_DELAY_SECONDS", &c.Retry.BaseDelaySeconds); err != nil {
		return err
	}
	if err := parseEnvFloat("MOPCTL_RETRY_MAX_DELAY_SECONDS", &c.Retry.MaxDelaySeconds); err != nil {
		return err
	}
	return nil
}

// ValidateClean checks the settings the clean run needs. Errors here are
// the fatal configuration path: they abort before any I/O.
func (c Config) ValidateClean() error {
	if c.Sheets.SpreadsheetID == "" {
		return fmt.Errorf("%w: sheets.spreadsheet_id is required", merge.ErrConfiguration)
	}
	if c.Clean.OutputTableName == "" {
		return fmt.Errorf("%w: clean.output_table_name is required", merge.ErrConfiguration)
	}
	return c.MergeConfig().Validate()
}

// ValidateGlossary checks the settings the glossary expander needs.
func (c Config) ValidateGlossary() error {
	if c.Glossary.InputCSV == "" {
		return fmt.Errorf("%w: glossary.input_csv is required", merge.ErrConfiguration)
	}
	if c.Glossary.CollectionURL == "" || c.Glossary.UpdateURLBase == "" {
		return fmt.Errorf("%w: glossary collection_url and update_url_base are required", merge.ErrConfiguration)
	}
	if c.Glossary.Username == "" || c.Glossary.ApplicationPassword == "" {
		return fmt.Errorf("%w: WordPress credentials are required (WP_USERNAME / WP_APPLICATION_PASSWORD)", merge.ErrConfiguration)
	}
	return nil
}

// MergeConfig converts the clean section into the engine's config.
func (c Config) MergeConfig() merge.Config {
	return merge.Config{
		StatusColumn:      c.Clean.StatusColumn,
		EmailColumn:       c.Clean.EmailColumn,
		NameColumn:        c.Clean.NameColumn,
		ActiveStatusValue: c.Clean.ActiveStatusValue,
	}
}

// RetryConfig converts the retry section into the wrapper's config.
func (c Config) RetryConfig() retry.Config {
	return retry.Config{
		MaxAttempts: c.Retry.MaxAttempts,
		BaseDelay:   time.Duration(c.Retry.BaseDelaySeconds * float64(time.Second)),
		MaxDelay:    time.Duration(c.Retry.MaxDelaySeconds * float64(time.Second)),
		Jitter:      250 * time.Millisecond,
	}
}

func parseEnvString(key string, dest *string) {
	if value := os.Getenv(key); value != "" {
		*dest = value
	}
}

func parseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

func parseEnvFloat(key string, dest *float64) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}
