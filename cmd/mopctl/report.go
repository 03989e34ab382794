package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/marketops/mopctl/internal/report"
	"github.com/marketops/mopctl/internal/sheets"
	"github.com/marketops/mopctl/internal/storage"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Build Excel analysis workbooks",
	Long:  `Commands for building CRM and survey analysis workbooks.`,
}

var reportCRMCmd = &cobra.Command{
	Use:   "crm",
	Short: "Build the CRM deal analysis workbook",
	Long: `Parse the configured semicolon-separated CRM export and write a
multi-sheet workbook: summary dashboard, quarterly revenue and ROI
against weekly ad spend, funnel breakdown, user performance, and UTM
attribution.

Examples:
  mopctl report crm
  mopctl report crm --output q3_analysis.xlsx`,
	Run: func(cmd *cobra.Command, args []string) {
		output, _ := cmd.Flags().GetString("output")

		cfg := loadConfig()
		if cfg.Report.CRMCSV == "" {
			fatal("report.crm_csv is not configured")
		}
		if output == "" {
			output = cfg.Report.CRMOutput
		}
		logger := newLogger(cfg)
		defer logger.Sync()

		deals, err := report.LoadCRM(cfg.Report.CRMCSV, logger)
		if err != nil {
			fatal("%v", err)
		}

		weekly := cfg.Report.AdSpendWeekly
		if len(weekly) == 0 && cfg.Report.AdSpendString != "" {
			weekly = report.ParseWeeklyAdSpend(cfg.Report.AdSpendString)
		}
		year := cfg.Report.AnalysisYear
		if year == 0 {
			year = time.Now().Year()
		}

		run := storage.NewRun("report-crm")
		analysis := report.AnalyzeCRM(deals, weekly, year)
		err = report.WriteCRMWorkbook(output, analysis)
		run.RecordsRead = analysis.TotalDeals
		run.RecordsWritten = analysis.TotalDeals
		run.Finish(err)
		recordRun(cfg.RunDB, run)
		if err != nil {
			fatal("%v", err)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Analyzed %d deals (%d closed won), wrote %s\n",
			green("✓"), analysis.TotalDeals, analysis.ClosedWonDeals, output)
	},
}

var reportSurveyCmd = &cobra.Command{
	Use:   "survey",
	Short: "Build the survey response analysis workbook",
	Long: `Read the configured survey worksheet, drop excluded columns, tally
single-choice and multi-select answers, and write a workbook with one
sheet and bar chart per question.

Examples:
  mopctl report survey
  mopctl report survey --worksheet Feedback_Report`,
	Run: func(cmd *cobra.Command, args []string) {
		worksheet, _ := cmd.Flags().GetString("worksheet")
		output, _ := cmd.Flags().GetString("output")

		cfg := loadConfig()
		if cfg.Sheets.SpreadsheetID == "" {
			fatal("sheets.spreadsheet_id is not configured")
		}
		if worksheet == "" {
			worksheet = cfg.Report.SurveyWorksheet
		}
		if output == "" {
			output = cfg.Report.SurveyOutput
		}
		logger := newLogger(cfg)
		defer logger.Sync()

		ctx := context.Background()
		client, err := sheets.NewGoogleClient(ctx, sheets.GoogleConfig{
			SpreadsheetID:     cfg.Sheets.SpreadsheetID,
			CredentialsFile:   cfg.Sheets.CredentialsFile,
			RequestsPerMinute: cfg.Sheets.RequestsPerMinute,
			Retry:             cfg.RetryConfig(),
		}, logger)
		if err != nil {
			fatal("%v", err)
		}

		table, err := client.ReadTable(ctx, worksheet)
		if err != nil {
			fatal("failed to read survey worksheet: %v", err)
		}

		run := storage.NewRun("report-survey")
		analysis := report.AnalyzeSurvey(table, report.SurveyOptions{
			DropColumns:        cfg.Report.SurveyDropColumns,
			MultiSelectColumns: cfg.Report.SurveyMultiSelectColumns,
		})
		err = report.WriteSurveyWorkbook(output, analysis)
		run.RecordsRead = analysis.Responses
		run.RecordsWritten = analysis.Responses
		run.Finish(err)
		recordRun(cfg.RunDB, run)
		if err != nil {
			fatal("%v", err)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Analyzed %d responses across %d questions, wrote %s\n",
			green("✓"), analysis.Responses, len(analysis.Questions), output)
	},
}

func init() {
	reportCRMCmd.Flags().String("output", "", "workbook path (default from config)")
	reportSurveyCmd.Flags().String("output", "", "workbook path (default from config)")
	reportSurveyCmd.Flags().String("worksheet", "", "survey worksheet name (default from config)")
	reportCmd.AddCommand(reportCRMCmd)
	reportCmd.AddCommand(reportSurveyCmd)
	rootCmd.AddCommand(reportCmd)
}

// recordRun appends to run history, tolerating storage failures so a
// finished report is never discarded over bookkeeping.
func recordRun(dbPath string, run *storage.Run) {
	store, err := storage.New(dbPath)
	if err != nil {
		fmt.Printf("warning: could not open run history: %v\n", err)
		return
	}
	defer store.Close()
	if err := store.RecordRun(context.Background(), run); err != nil {
		fmt.Printf("warning: could not record run: %v\n", err)
	}
}
