package report

import (
	"fmt"
	"math"

	"github.com/xuri/excelize/v2"
)

// WriteCRMWorkbook writes the multi-sheet analysis workbook.
func WriteCRMWorkbook(path string, a *CRMAnalysis) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeSummarySheet(f, a); err != nil {
		return err
	}
	if err := writeQuarterlySheet(f, a); err != nil {
		return err
	}
	if err := writeFunnelSheet(f, a); err != nil {
		return err
	}
	if err := writeUserSheet(f, a); err != nil {
		return err
	}
	if err := writeAttributionSheet(f, a); err != nil {
		return err
	}

	// Drop the default sheet so the dashboard opens first.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, a *CRMAnalysis) error {
	const sheet = "Summary Dashboard"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	rows := [][]any{
		{"Metric", "Value"},
		{"Total Deals in CRM", a.TotalDeals},
		{"Total Revenue in CRM ($)", round2(a.TotalRevenue)},
		{"Total Deals Closed Won", a.ClosedWonDeals},
		{"Total Revenue Closed Won ($)", round2(a.ClosedWonRevenue)},
		{"Average Closed Won Deal Size ($)", round2(a.AvgClosedWonDeal)},
		{"Total Ad Spend ($)", round2(a.TotalAdSpend)},
		{"Combined ROI (%)", formatROI(a.CombinedROI)},
	}
	if err := writeRows(f, sheet, rows); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", "A", 36); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "B", "B", 20)
}

func writeQuarterlySheet(f *excelize.File, a *CRMAnalysis) error {
	const sheet = "Quarterly Trends"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	rows := [][]any{{"Quarter", "Ad Spend (USD)", "Revenue (USD)", "ROI (%)"}}
	for _, q := range a.QuarterlyROI {
		rows = append(rows, []any{q.Quarter, round2(q.AdSpend), round2(q.Revenue), formatROI(q.ROI)})
	}
	if err := writeRows(f, sheet, rows); err != nil {
		return err
	}
	if len(a.QuarterlyROI) == 0 {
		return nil
	}

	n := len(a.QuarterlyROI)
	return f.AddChart(sheet, "F2", &excelize.Chart{
		Type:  excelize.Col,
		Title: []excelize.RichTextRun{{Text: "Quarterly Revenue vs Ad Spend"}},
		Series: []excelize.ChartSeries{
			{
				Name:       fmt.Sprintf("'%s'!$B$1", sheet),
				Categories: fmt.Sprintf("'%s'!$A$2:$A$%d", sheet, n+1),
				Values:     fmt.Sprintf("'%s'!$B$2:$B$%d", sheet, n+1),
			},
			{
				Name:       fmt.Sprintf("'%s'!$C$1", sheet),
				Categories: fmt.Sprintf("'%s'!$A$2:$A$%d", sheet, n+1),
				Values:     fmt.Sprintf("'%s'!$C$2:$C$%d", sheet, n+1),
			},
		},
	})
}

func writeFunnelSheet(f *excelize.File, a *CRMAnalysis) error {
	const sheet = "Funnel Breakdown"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	rows := [][]any{{"Stage", "Total Deals"}}
	for _, s := range a.Funnel {
		rows = append(rows, []any{s.Stage, s.Deals})
	}
	if err := writeRows(f, sheet, rows); err != nil {
		return err
	}
	if len(a.Funnel) == 0 {
		return nil
	}

	n := len(a.Funnel)
	return f.AddChart(sheet, "D2", &excelize.Chart{
		Type:  excelize.Bar,
		Title: []excelize.RichTextRun{{Text: "Deal Volume by Stage"}},
		Series: []excelize.ChartSeries{{
			Name:       fmt.Sprintf("'%s'!$B$1", sheet),
			Categories: fmt.Sprintf("'%s'!$A$2:$A$%d", sheet, n+1),
			Values:     fmt.Sprintf("'%s'!$B$2:$B$%d", sheet, n+1),
		}},
	})
}

func writeUserSheet(f *excelize.File, a *CRMAnalysis) error {
	const sheet = "User Performance"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	rows := [][]any{{"User", "Deals Won", "Revenue Won (USD)", "Avg Deal Size (USD)"}}
	for _, u := range a.Users {
		rows = append(rows, []any{u.UserID, u.DealsWon, round2(u.RevenueWon), round2(u.AvgDealSize)})
	}
	if err := writeRows(f, sheet, rows); err != nil {
		return err
	}
	if len(a.Users) == 0 {
		return nil
	}

	// Chart the top earners only; long tails make the chart unreadable.
	n := min(len(a.Users), 10)
	return f.AddChart(sheet, "F2", &excelize.Chart{
		Type:  excelize.Col,
		Title: []excelize.RichTextRun{{Text: "Top Users by Revenue Won"}},
		Series: []excelize.ChartSeries{{
			Name:       fmt.Sprintf("'%s'!$C$1", sheet),
			Categories: fmt.Sprintf("'%s'!$A$2:$A$%d", sheet, n+1),
			Values:     fmt.Sprintf("'%s'!$C$2:$C$%d", sheet, n+1),
		}},
	})
}

func writeAttributionSheet(f *excelize.File, a *CRMAnalysis) error {
	const sheet = "UTM Attribution"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	rows := [][]any{{"UTM Source", "Deals", "Revenue (USD)"}}
	for _, s := range a.SourceAttribution {
		rows = append(rows, []any{s.Value, s.Deals, round2(s.Revenue)})
	}
	rows = append(rows, []any{}, []any{"UTM Medium", "Deals", "Revenue (USD)"})
	for _, m := range a.MediumAttribution {
		rows = append(rows, []any{m.Value, m.Deals, round2(m.Revenue)})
	}
	return writeRows(f, sheet, rows)
}

// writeRows writes rows starting at A1.
func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

// formatROI renders infinite ROI (revenue with zero spend) as a label.
func formatROI(v float64) any {
	if math.IsInf(v, 1) {
		return "n/a (no spend)"
	}
	return round2(v)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
