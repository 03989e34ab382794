package report

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseUSDAmount(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"USD 1200.50", 1200.50, true},
		{"USD300", 300, true},
		{"EUR 99.00", 0, false},
		{"", 0, false},
		{"1200.50", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseUSDAmount(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseWeeklyAdSpend(t *testing.T) {
	got := ParseWeeklyAdSpend("$192.94$218.04$249.00")
	assert.Equal(t, []float64{192.94, 218.04, 249.00}, got)
	assert.Empty(t, ParseWeeklyAdSpend("no dollars here"))
}

func TestDealQuarter(t *testing.T) {
	d := &Deal{CreatedAt: time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)}
	assert.Equal(t, "2025Q1", d.Quarter())

	d.CreatedAt = time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025Q4", d.Quarter())

	assert.Equal(t, "", (&Deal{}).Quarter())
}

func TestROI(t *testing.T) {
	assert.InDelta(t, 100.0, ROI(200, 100), 0.001)
	assert.InDelta(t, -50.0, ROI(50, 100), 0.001)
	assert.True(t, math.IsInf(ROI(100, 0), 1))
	assert.Equal(t, 0.0, ROI(0, 0))
}

func TestLoadCRMParsesSemicolonSeparatedExport(t *testing.T) {
	csvData := "id;user_id;stage;amount;created_at;updated_at;utm_source;utm_medium;utm_campaign\n" +
		"1;u1;closed won;USD 1000.00;2025-01-15 10:00:00;2025-01-20 10:00:00;Google;CPC;brand\n" +
		"2;u2;(not set);USD 500.00;2025-04-02 09:00:00;2025-04-03 09:00:00;;;\n" +
		"3;u1;closed won;no amount;2025-05-01 12:00:00;2025-05-02 12:00:00;(not set);email;promo\n"

	path := filepath.Join(t.TempDir(), "crm.csv")
	require.NoError(t, os.WriteFile(path, []byte(csvData), 0o644))

	deals, err := LoadCRM(path, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, deals, 3)

	assert.Equal(t, "Closed Won", deals[0].Stage)
	assert.Equal(t, 1000.0, deals[0].AmountUSD)
	assert.True(t, deals[0].HasAmount)
	assert.Equal(t, "google", deals[0].UTMSource)
	assert.Equal(t, "cpc", deals[0].UTMMedium)

	assert.Equal(t, "Unknown", deals[1].Stage)
	assert.Equal(t, "organic traffic", deals[1].UTMSource)
	assert.Equal(t, "unknown", deals[1].UTMMedium)

	assert.False(t, deals[2].HasAmount)
	assert.Equal(t, "unknown", deals[2].UTMSource)
}

func TestLoadCRMRequiresStageAndAmount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crm.csv")
	require.NoError(t, os.WriteFile(path, []byte("id;name\n1;x\n"), 0o644))

	_, err := LoadCRM(path, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stage")
}

func mkDeal(stage, user, source string, amount float64, month time.Month) *Deal {
	return &Deal{
		Stage:     stage,
		UserID:    user,
		UTMSource: source,
		UTMMedium: "unknown",
		AmountUSD: amount,
		HasAmount: true,
		CreatedAt: time.Date(2025, month, 10, 0, 0, 0, 0, time.UTC),
	}
}

func TestAnalyzeCRMAggregates(t *testing.T) {
	deals := []*Deal{
		mkDeal("Closed Won", "u1", "google", 1000, time.January),
		mkDeal("Closed Won", "u1", "google", 500, time.February),
		mkDeal("Closed Won", "u2", "linkedin", 2000, time.May),
		mkDeal("Closed Lost", "u3", "google", 800, time.May),
		mkDeal("Negotiation", "u2", "bing", 300, time.June),
	}
	// 14 weeks of spend: 13 in Q1, 1 in Q2.
	weekly := make([]float64, 14)
	for i := range weekly {
		weekly[i] = 100
	}

	a := AnalyzeCRM(deals, weekly, 2025)

	assert.Equal(t, 5, a.TotalDeals)
	assert.Equal(t, 3, a.ClosedWonDeals)
	assert.InDelta(t, 3500.0, a.ClosedWonRevenue, 0.001)
	assert.InDelta(t, 3500.0/3, a.AvgClosedWonDeal, 0.001)
	assert.InDelta(t, 1400.0, a.TotalAdSpend, 0.001)

	assert.InDelta(t, 1500.0, a.QuarterlyRevenue["2025Q1"], 0.001)
	assert.InDelta(t, 2000.0, a.QuarterlyRevenue["2025Q2"], 0.001)

	require.Len(t, a.QuarterlyROI, 2)
	assert.Equal(t, "2025Q1", a.QuarterlyROI[0].Quarter)
	assert.InDelta(t, 1300.0, a.QuarterlyROI[0].AdSpend, 0.001)
	assert.InDelta(t, (1500.0-1300.0)/1300.0*100, a.QuarterlyROI[0].ROI, 0.001)
	assert.Equal(t, "2025Q2", a.QuarterlyROI[1].Quarter)
	assert.InDelta(t, 100.0, a.QuarterlyROI[1].AdSpend, 0.001)

	// Users sorted by revenue won.
	require.Len(t, a.Users, 2)
	assert.Equal(t, "u2", a.Users[0].UserID)
	assert.InDelta(t, 2000.0, a.Users[0].RevenueWon, 0.001)
	assert.Equal(t, "u1", a.Users[1].UserID)
	assert.Equal(t, 2, a.Users[1].DealsWon)

	// Attribution covers closed-won deals only.
	require.Len(t, a.SourceAttribution, 2)
	assert.Equal(t, "linkedin", a.SourceAttribution[0].Value)
	assert.Equal(t, "google", a.SourceAttribution[1].Value)
	assert.Equal(t, 2, a.SourceAttribution[1].Deals)

	// Funnel counts every stage.
	total := 0
	for _, s := range a.Funnel {
		total += s.Deals
	}
	assert.Equal(t, 5, total)
}

func TestWriteCRMWorkbook(t *testing.T) {
	deals := []*Deal{
		mkDeal("Closed Won", "u1", "google", 1000, time.January),
		mkDeal("Closed Lost", "u2", "bing", 400, time.March),
	}
	a := AnalyzeCRM(deals, []float64{100, 100}, 2025)

	path := filepath.Join(t.TempDir(), "crm_analysis.xlsx")
	require.NoError(t, WriteCRMWorkbook(path, a))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
