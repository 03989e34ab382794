package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/marketops/mopctl/internal/merge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "Active", cfg.Clean.ActiveStatusValue)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 1.0, cfg.Retry.BaseDelaySeconds)
	assert.Equal(t, 60.0, cfg.Retry.MaxDelaySeconds)
	assert.Equal(t, "anthropic", cfg.AI.Provider)
	assert.Equal(t, 600, cfg.Glossary.TargetWordCount)
	assert.Equal(t, "mopctl.log", cfg.LogFile)
}

func TestLoadFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mopctl.yaml")
	data := `
sheets:
  spreadsheet_id: sheet-123
  credentials_file: key.json
clean:
  status_column: Status
  email_column: Email
  name_column: Name
  output_table_name: Combined_Cleaned
retry:
  max_attempts: 7
  base_delay_seconds: 0.5
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sheet-123", cfg.Sheets.SpreadsheetID)
	assert.Equal(t, "Combined_Cleaned", cfg.Clean.OutputTableName)
	assert.Equal(t, 7, cfg.Retry.MaxAttempts)
	assert.Equal(t, 0.5, cfg.Retry.BaseDelaySeconds)
	// Unset values keep their defaults.
	assert.Equal(t, 60.0, cfg.Retry.MaxDelaySeconds)
	assert.Equal(t, "Active", cfg.Clean.ActiveStatusValue)

	require.NoError(t, cfg.ValidateClean())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MOPCTL_SPREADSHEET_ID", "env-sheet")
	t.Setenv("MOPCTL_RETRY_MAX_ATTEMPTS", "9")
	t.Setenv("MOPCTL_ACTIVE_STATUS_VALUE", "Subscribed")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "env-sheet", cfg.Sheets.SpreadsheetID)
	assert.Equal(t, 9, cfg.Retry.MaxAttempts)
	assert.Equal(t, "Subscribed", cfg.Clean.ActiveStatusValue)
}

func TestEnvOverrideInvalidInt(t *testing.T) {
	t.Setenv("MOPCTL_RETRY_MAX_ATTEMPTS", "not-a-number")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MOPCTL_RETRY_MAX_ATTEMPTS")
}

func TestValidateCleanRequiresMapping(t *testing.T) {
	cfg := Default()
	cfg.Sheets.SpreadsheetID = "sheet-123"
	cfg.Clean.OutputTableName = "Out"
	cfg.Clean.StatusColumn = "Status"
	cfg.Clean.EmailColumn = "Email"
	// NameColumn deliberately missing.

	err := cfg.ValidateClean()
	require.Error(t, err)
	assert.ErrorIs(t, err, merge.ErrConfiguration)
}

func TestValidateCleanRequiresOutputTable(t *testing.T) {
	cfg := Default()
	cfg.Sheets.SpreadsheetID = "sheet-123"
	cfg.Clean.StatusColumn = "Status"
	cfg.Clean.EmailColumn = "Email"
	cfg.Clean.NameColumn = "Name"

	err := cfg.ValidateClean()
	require.Error(t, err)
	assert.ErrorIs(t, err, merge.ErrConfiguration)
}

func TestRetryConfigConversion(t *testing.T) {
	cfg := Default()
	cfg.Retry.BaseDelaySeconds = 0.5
	cfg.Retry.MaxDelaySeconds = 10

	rc := cfg.RetryConfig()
	assert.Equal(t, 500*time.Millisecond, rc.BaseDelay)
	assert.Equal(t, 10*time.Second, rc.MaxDelay)
	assert.Equal(t, 5, rc.MaxAttempts)
}
