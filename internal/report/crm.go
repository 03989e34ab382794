// Package report builds Excel analysis workbooks: a CRM deal analysis
// from an exported CSV and a survey response breakdown read from a
// worksheet.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// usdRegex extracts the numeric part of amounts like "USD 1200.50".
var usdRegex = regexp.MustCompile(`USD\s*([\d.]+)`)

// dollarRegex extracts amounts like "$192.94" from an ad spend string.
var dollarRegex = regexp.MustCompile(`\$\d+\.?\d*`)

const stageClosedWon = "Closed Won"

// Deal is one CRM opportunity row.
type Deal struct {
	ID          string
	UserID      string
	Stage       string
	AmountUSD   float64
	HasAmount   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	UTMSource   string
	UTMMedium   string
	UTMCampaign string
}

// Quarter returns the deal's creation quarter as "2025Q1", or "" when the
// creation date is unknown.
func (d *Deal) Quarter() string {
	if d.CreatedAt.IsZero() {
		return ""
	}
	q := (int(d.CreatedAt.Month())-1)/3 + 1
	return fmt.Sprintf("%dQ%d", d.CreatedAt.Year(), q)
}

// ClosedWon reports whether the deal reached the won stage.
func (d *Deal) ClosedWon() bool {
	return d.Stage == stageClosedWon
}

// LoadCRM parses a semicolon-separated CRM export. Rows shorter than the
// header are skipped; unknown columns are ignored.
func LoadCRM(path string, logger *zap.Logger) ([]*Deal, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CRM export: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = ';'
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CRM header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		// Exports repeat id/user_id; first occurrence wins.
		if _, ok := col[name]; !ok {
			col[name] = i
		}
	}
	for _, required := range []string{"stage", "amount"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("CRM export missing %q column", required)
		}
	}

	var deals []*Deal
	skipped := 0
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CRM row: %w", err)
		}
		deal, ok := parseDeal(row, col)
		if !ok {
			skipped++
			continue
		}
		deals = append(deals, deal)
	}

	logger.Info("loaded CRM export",
		zap.Int("deals", len(deals)),
		zap.Int("skipped_rows", skipped))
	return deals, nil
}

func parseDeal(row []string, col map[string]int) (*Deal, bool) {
	field := func(name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	stage := field("stage")
	if stage == "" {
		return nil, false
	}

	d := &Deal{
		ID:          field("id"),
		UserID:      field("user_id"),
		Stage:       normalizeStage(stage),
		UTMSource:   normalizeUTM(field("utm_source"), "Organic Traffic"),
		UTMMedium:   normalizeUTM(field("utm_medium"), "Unknown"),
		UTMCampaign: normalizeUTM(field("utm_campaign"), "Unknown"),
	}
	d.AmountUSD, d.HasAmount = ParseUSDAmount(field("amount"))
	d.CreatedAt = parseTimestamp(field("created_at"))
	d.UpdatedAt = parseTimestamp(field("updated_at"))
	return d, true
}

// ParseUSDAmount extracts the dollar value from an amount field like
// "USD 1200.50". The second result is false when no USD amount is present.
func ParseUSDAmount(s string) (float64, bool) {
	m := usdRegex.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseWeeklyAdSpend extracts dollar amounts from a concatenated ad spend
// string like "$192.94$218.04".
func ParseWeeklyAdSpend(s string) []float64 {
	var out []float64
	for _, m := range dollarRegex.FindAllString(s, -1) {
		v, err := strconv.ParseFloat(strings.TrimPrefix(m, "$"), 64)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

// normalizeUTM lowercases a UTM value, mapping missing values to the
// fallback and "(not set)" to "Unknown".
func normalizeUTM(v, fallback string) string {
	switch v {
	case "":
		v = fallback
	case "(not set)":
		v = "Unknown"
	}
	return strings.ToLower(v)
}

// normalizeStage title-cases the stage, mapping "(not set)" to "Unknown".
func normalizeStage(v string) string {
	if v == "(not set)" {
		return "Unknown"
	}
	words := strings.Fields(strings.ToLower(v))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// parseTimestamp tries the formats CRM exports actually use.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ROI returns the percentage return of revenue over cost. Zero cost with
// revenue yields +Inf; the workbook writer formats that case specially.
func ROI(revenue, cost float64) float64 {
	if cost > 0 {
		return (revenue - cost) / cost * 100
	}
	if revenue > 0 {
		return math.Inf(1)
	}
	return 0
}

// QuarterROI is one row of the quarterly ROI breakdown.
type QuarterROI struct {
	Quarter string
	AdSpend float64
	Revenue float64
	ROI     float64
}

// UserPerformance aggregates closed-won outcomes per CRM user.
type UserPerformance struct {
	UserID      string
	DealsWon    int
	RevenueWon  float64
	AvgDealSize float64
}

// Attribution is revenue and deal volume for one UTM dimension value.
type Attribution struct {
	Value   string
	Deals   int
	Revenue float64
}

// StageCount is deal volume for one funnel stage.
type StageCount struct {
	Stage string
	Deals int
}

// CRMAnalysis is everything the CRM workbook reports.
type CRMAnalysis struct {
	TotalDeals        int
	TotalRevenue      float64
	ClosedWonDeals    int
	ClosedWonRevenue  float64
	AvgClosedWonDeal  float64
	TotalAdSpend      float64
	CombinedROI       float64
	QuarterlyROI      []QuarterROI
	QuarterlyRevenue  map[string]float64
	Funnel            []StageCount
	Users             []UserPerformance
	SourceAttribution []Attribution
	MediumAttribution []Attribution
}

// AnalyzeCRM computes the aggregates for the workbook. weeklyAdSpend holds
// one value per week of the year being analyzed; weeks 1-13 are attributed
// to Q1, 14-26 to Q2, and the remainder to Q3.
func AnalyzeCRM(deals []*Deal, weeklyAdSpend []float64, year int) *CRMAnalysis {
	a := &CRMAnalysis{QuarterlyRevenue: make(map[string]float64)}

	stages := make(map[string]int)
	users := make(map[string]*UserPerformance)
	sources := make(map[string]*Attribution)
	mediums := make(map[string]*Attribution)

	for _, d := range deals {
		a.TotalDeals++
		if d.HasAmount {
			a.TotalRevenue += d.AmountUSD
		}
		stages[d.Stage]++

		if !d.ClosedWon() {
			continue
		}
		a.ClosedWonDeals++
		if d.HasAmount {
			a.ClosedWonRevenue += d.AmountUSD
		}
		if q := d.Quarter(); q != "" {
			a.QuarterlyRevenue[q] += d.AmountUSD
		}
		accumulate(users, d.UserID, d.AmountUSD)
		attribute(sources, d.UTMSource, d.AmountUSD)
		attribute(mediums, d.UTMMedium, d.AmountUSD)
	}

	if a.ClosedWonDeals > 0 {
		a.AvgClosedWonDeal = a.ClosedWonRevenue / float64(a.ClosedWonDeals)
	}

	for _, spend := range weeklyAdSpend {
		a.TotalAdSpend += spend
	}
	yearRevenue := 0.0
	for q, rev := range a.QuarterlyRevenue {
		if strings.HasPrefix(q, strconv.Itoa(year)) {
			yearRevenue += rev
		}
	}
	a.CombinedROI = ROI(yearRevenue, a.TotalAdSpend)
	a.QuarterlyROI = quarterlyROI(a.QuarterlyRevenue, weeklyAdSpend, year)

	a.Funnel = sortedStages(stages)
	a.Users = sortedUsers(users)
	a.SourceAttribution = sortedAttribution(sources)
	a.MediumAttribution = sortedAttribution(mediums)
	return a
}

// quarterlyROI splits the weekly spend into quarters and pairs it with
// closed-won revenue.
func quarterlyROI(revenue map[string]float64, weekly []float64, year int) []QuarterROI {
	spend := map[string]float64{}
	for i, v := range weekly {
		week := i + 1
		var q string
		switch {
		case week <= 13:
			q = fmt.Sprintf("%dQ1", year)
		case week <= 26:
			q = fmt.Sprintf("%dQ2", year)
		case week <= 39:
			q = fmt.Sprintf("%dQ3", year)
		default:
			q = fmt.Sprintf("%dQ4", year)
		}
		spend[q] += v
	}

	quarters := make([]string, 0, len(spend))
	for q := range spend {
		quarters = append(quarters, q)
	}
	sort.Strings(quarters)

	out := make([]QuarterROI, 0, len(quarters))
	for _, q := range quarters {
		out = append(out, QuarterROI{
			Quarter: q,
			AdSpend: spend[q],
			Revenue: revenue[q],
			ROI:     ROI(revenue[q], spend[q]),
		})
	}
	return out
}

func accumulate(users map[string]*UserPerformance, userID string, amount float64) {
	if userID == "" {
		userID = "unassigned"
	}
	u, ok := users[userID]
	if !ok {
		u = &UserPerformance{UserID: userID}
		users[userID] = u
	}
	u.DealsWon++
	u.RevenueWon += amount
	u.AvgDealSize = u.RevenueWon / float64(u.DealsWon)
}

func attribute(m map[string]*Attribution, value string, amount float64) {
	a, ok := m[value]
	if !ok {
		a = &Attribution{Value: value}
		m[value] = a
	}
	a.Deals++
	a.Revenue += amount
}

func sortedStages(stages map[string]int) []StageCount {
	out := make([]StageCount, 0, len(stages))
	for stage, n := range stages {
		out = append(out, StageCount{Stage: stage, Deals: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Deals > out[j].Deals })
	return out
}

func sortedUsers(users map[string]*UserPerformance) []UserPerformance {
	out := make([]UserPerformance, 0, len(users))
	for _, u := range users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RevenueWon > out[j].RevenueWon })
	return out
}

func sortedAttribution(m map[string]*Attribution) []Attribution {
	out := make([]Attribution, 0, len(m))
	for _, a := range m {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Revenue > out[j].Revenue })
	return out
}
