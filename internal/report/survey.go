package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/marketops/mopctl/internal/record"
	"github.com/marketops/mopctl/internal/sheets"
	"github.com/xuri/excelize/v2"
)

// OptionCount is one answer option with its tally.
type OptionCount struct {
	Option     string
	Count      int
	Percentage float64 // fraction of respondents, 0..1
}

// QuestionBreakdown is the analyzed distribution for one survey column.
type QuestionBreakdown struct {
	Question    string
	MultiSelect bool
	Respondents int
	Options     []OptionCount
}

// SurveyAnalysis is the full per-question breakdown for a survey table.
type SurveyAnalysis struct {
	Responses int
	Questions []QuestionBreakdown
}

// SurveyOptions configures the analysis.
type SurveyOptions struct {
	// DropColumns are removed before analysis (PII, free text).
	DropColumns []string

	// MultiSelectColumns hold comma-separated selections that are
	// exploded before counting. Percentages for these are per
	// respondent, so they can exceed 100% in total.
	MultiSelectColumns []string
}

// AnalyzeSurvey tallies each remaining column of the table. Single-choice
// columns count each distinct answer; multi-select columns split answers
// on commas first. Blank answers count as "No Response" for single-choice
// columns and are ignored for multi-select ones.
func AnalyzeSurvey(table *sheets.Table, opts SurveyOptions) *SurveyAnalysis {
	drop := toSet(opts.DropColumns)
	multi := toSet(opts.MultiSelectColumns)

	recs := table.Records()
	analysis := &SurveyAnalysis{Responses: len(recs)}

	for _, question := range table.Header {
		if drop[question] {
			continue
		}
		if multi[question] {
			analysis.Questions = append(analysis.Questions, analyzeMultiSelect(question, recs))
			continue
		}
		analysis.Questions = append(analysis.Questions, analyzeSingleChoice(question, recs))
	}
	return analysis
}

func analyzeSingleChoice(question string, recs []record.Record) QuestionBreakdown {
	counts := make(map[string]int)
	for _, rec := range recs {
		answer := rec.Get(question)
		if answer == "" {
			answer = "No Response"
		}
		counts[answer]++
	}
	return QuestionBreakdown{
		Question:    question,
		Respondents: len(recs),
		Options:     sortedOptions(counts, len(recs)),
	}
}

func analyzeMultiSelect(question string, recs []record.Record) QuestionBreakdown {
	counts := make(map[string]int)
	respondents := 0
	for _, rec := range recs {
		answer := rec.Get(question)
		if answer == "" {
			continue
		}
		respondents++
		seen := make(map[string]bool)
		for _, part := range strings.Split(answer, ",") {
			option := strings.TrimSpace(part)
			if option == "" || seen[option] {
				continue
			}
			seen[option] = true
			counts[option]++
		}
	}
	return QuestionBreakdown{
		Question:    question,
		MultiSelect: true,
		Respondents: respondents,
		Options:     sortedOptions(counts, respondents),
	}
}

func sortedOptions(counts map[string]int, respondents int) []OptionCount {
	out := make([]OptionCount, 0, len(counts))
	for option, n := range counts {
		oc := OptionCount{Option: option, Count: n}
		if respondents > 0 {
			oc.Percentage = float64(n) / float64(respondents)
		}
		out = append(out, oc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Option < out[j].Option
	})
	return out
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

// WriteSurveyWorkbook writes one sheet per question with a bar chart of
// the answer distribution, plus an overview sheet.
func WriteSurveyWorkbook(path string, a *SurveyAnalysis) error {
	f := excelize.NewFile()
	defer f.Close()

	const overview = "Overview"
	if _, err := f.NewSheet(overview); err != nil {
		return err
	}
	rows := [][]any{
		{"Metric", "Value"},
		{"Total Responses", a.Responses},
		{"Questions Analyzed", len(a.Questions)},
	}
	if err := writeRows(f, overview, rows); err != nil {
		return err
	}

	used := make(map[string]bool)
	for i, q := range a.Questions {
		if err := writeQuestionSheet(f, q, i, used); err != nil {
			return err
		}
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func writeQuestionSheet(f *excelize.File, q QuestionBreakdown, index int, used map[string]bool) error {
	sheet := sheetName(q.Question, index, used)
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	header := "Percentage"
	if q.MultiSelect {
		header = "Percentage of Respondents"
	}
	rows := [][]any{{"Option", "Count", header}}
	for _, o := range q.Options {
		rows = append(rows, []any{o.Option, o.Count, round2(o.Percentage * 100)})
	}
	if err := writeRows(f, sheet, rows); err != nil {
		return err
	}
	if len(q.Options) == 0 {
		return nil
	}

	n := len(q.Options)
	return f.AddChart(sheet, "E2", &excelize.Chart{
		Type:  excelize.Bar,
		Title: []excelize.RichTextRun{{Text: q.Question}},
		Series: []excelize.ChartSeries{{
			Name:       fmt.Sprintf("'%s'!$B$1", sheet),
			Categories: fmt.Sprintf("'%s'!$A$2:$A$%d", sheet, n+1),
			Values:     fmt.Sprintf("'%s'!$B$2:$B$%d", sheet, n+1),
		}},
	})
}

// sheetName squeezes a question into Excel's 31-character limit, avoiding
// characters the format forbids and collisions between questions.
func sheetName(question string, index int, used map[string]bool) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return ' '
		}
		return r
	}, question)
	name = strings.Join(strings.Fields(name), " ")
	if len(name) > 28 {
		name = strings.TrimSpace(name[:28])
	}
	if name == "" || used[name] {
		name = fmt.Sprintf("%s Q%d", name, index+1)
		name = strings.TrimSpace(name)
		if len(name) > 31 {
			name = name[len(name)-31:]
		}
	}
	used[name] = true
	return name
}
