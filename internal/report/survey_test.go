package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/marketops/mopctl/internal/sheets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func surveyTable() *sheets.Table {
	return &sheets.Table{
		Name:   "Feedback_Report",
		Header: []string{"Timestamp", "Satisfaction", "Improvement Areas"},
		Rows: [][]string{
			{"2025-07-01", "Very satisfied", "Pricing, Support"},
			{"2025-07-01", "Satisfied", "Support"},
			{"2025-07-02", "Very satisfied", "Pricing, Features, Support"},
			{"2025-07-02", "", ""},
		},
	}
}

func TestAnalyzeSurveySingleChoice(t *testing.T) {
	a := AnalyzeSurvey(surveyTable(), SurveyOptions{
		DropColumns:        []string{"Timestamp", "Improvement Areas"},
		MultiSelectColumns: nil,
	})

	require.Len(t, a.Questions, 1)
	q := a.Questions[0]
	assert.Equal(t, "Satisfaction", q.Question)
	assert.False(t, q.MultiSelect)
	assert.Equal(t, 4, q.Respondents)

	require.Len(t, q.Options, 3)
	assert.Equal(t, "Very satisfied", q.Options[0].Option)
	assert.Equal(t, 2, q.Options[0].Count)
	assert.InDelta(t, 0.5, q.Options[0].Percentage, 0.001)

	// Blank answers are counted explicitly.
	found := false
	for _, o := range q.Options {
		if o.Option == "No Response" {
			found = true
			assert.Equal(t, 1, o.Count)
		}
	}
	assert.True(t, found)
}

func TestAnalyzeSurveyMultiSelect(t *testing.T) {
	a := AnalyzeSurvey(surveyTable(), SurveyOptions{
		DropColumns:        []string{"Timestamp", "Satisfaction"},
		MultiSelectColumns: []string{"Improvement Areas"},
	})

	require.Len(t, a.Questions, 1)
	q := a.Questions[0]
	assert.True(t, q.MultiSelect)
	// Blank multi-select answers do not count as respondents.
	assert.Equal(t, 3, q.Respondents)

	byOption := make(map[string]OptionCount)
	for _, o := range q.Options {
		byOption[o.Option] = o
	}
	assert.Equal(t, 3, byOption["Support"].Count)
	assert.InDelta(t, 1.0, byOption["Support"].Percentage, 0.001)
	assert.Equal(t, 2, byOption["Pricing"].Count)
	assert.Equal(t, 1, byOption["Features"].Count)
}

func TestAnalyzeSurveyDropColumns(t *testing.T) {
	a := AnalyzeSurvey(surveyTable(), SurveyOptions{
		DropColumns: []string{"Timestamp"},
	})
	for _, q := range a.Questions {
		assert.NotEqual(t, "Timestamp", q.Question)
	}
	assert.Len(t, a.Questions, 2)
}

func TestSheetNameLimits(t *testing.T) {
	used := map[string]bool{}
	long := sheetName("How satisfied are you with the overall level of support?", 0, used)
	assert.LessOrEqual(t, len(long), 31)
	assert.NotContains(t, long, "?")

	// Same question twice gets distinct sheets.
	again := sheetName("How satisfied are you with the overall level of support?", 1, used)
	assert.NotEqual(t, long, again)
}

func TestWriteSurveyWorkbook(t *testing.T) {
	a := AnalyzeSurvey(surveyTable(), SurveyOptions{
		DropColumns:        []string{"Timestamp"},
		MultiSelectColumns: []string{"Improvement Areas"},
	})

	path := filepath.Join(t.TempDir(), "survey.xlsx")
	require.NoError(t, WriteSurveyWorkbook(path, a))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
