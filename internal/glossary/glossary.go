// Package glossary expands thin glossary definitions. It reads a CSV of
// term URLs, fetches each term from WordPress, asks an AI model for an
// expanded definition, and publishes the result back.
package glossary

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/marketops/mopctl/internal/ai"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// slugRegex pulls the term slug out of a glossary permalink.
var slugRegex = regexp.MustCompile(`/glossary/([^/]+)/?$`)

// expansion is the JSON contract the model is asked to fill.
type expansion struct {
	FullContentHTML string `json:"full_content_html"`
	ExcerptHTML     string `json:"excerpt_html"`
}

// Config configures an expansion run.
type Config struct {
	// TargetWordCount is the requested length of the expanded
	// definition (default: 600).
	TargetWordCount int

	// Concurrency bounds the number of terms processed in parallel
	// (default: 1, matching the API pacing of a sequential run).
	Concurrency int

	// ResultLog, when set, receives the per-term outcome lines.
	ResultLog string
}

// Summary reports the outcome of a run.
type Summary struct {
	Succeeded int
	Failed    int
	Skipped   int
}

// Expander drives the fetch-expand-publish loop for one run.
type Expander struct {
	wp     *WPClient
	model  ai.Client
	cfg    Config
	logger *zap.Logger

	mu       sync.Mutex
	messages []string
	summary  Summary
}

// NewExpander builds an Expander.
func NewExpander(wp *WPClient, model ai.Client, cfg Config, logger *zap.Logger) *Expander {
	if cfg.TargetWordCount <= 0 {
		cfg.TargetWordCount = 600
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Expander{wp: wp, model: model, cfg: cfg, logger: logger}
}

// Run processes every URL in the input CSV. The CSV must have a "Url"
// column; rows whose URL is not a glossary permalink are skipped. A
// per-term failure is recorded and does not stop the run.
func (e *Expander) Run(ctx context.Context, inputCSV string) (*Summary, error) {
	urls, err := readURLColumn(inputCSV)
	if err != nil {
		return nil, err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)

	for _, termURL := range urls {
		g.Go(func() error {
			e.processTerm(ctx, termURL)
			return ctx.Err()
		})
	}
	runErr := g.Wait()

	e.mu.Lock()
	summary := e.summary
	e.messages = append(e.messages,
		fmt.Sprintf("Total successful updates: %d", summary.Succeeded),
		fmt.Sprintf("Total failed updates: %d", summary.Failed))
	messages := strings.Join(e.messages, "\n")
	e.mu.Unlock()

	if e.cfg.ResultLog != "" {
		if err := os.WriteFile(e.cfg.ResultLog, []byte(messages+"\n"), 0o644); err != nil {
			return nil, fmt.Errorf("failed to write result log: %w", err)
		}
	}
	if runErr != nil {
		return &summary, runErr
	}
	return &summary, nil
}

// processTerm handles one URL end to end, recording the outcome.
func (e *Expander) processTerm(ctx context.Context, termURL string) {
	if !strings.Contains(termURL, "/glossary/") {
		e.skip("Skipping %s: not a glossary URL.", termURL)
		return
	}
	slug := ExtractSlug(termURL)
	if slug == "" {
		e.fail("Skipping %s: could not extract slug.", termURL)
		return
	}

	term, err := e.wp.TermBySlug(ctx, slug)
	if err != nil {
		e.fail("FAILED: fetch for slug '%s': %v", slug, err)
		return
	}
	if term == nil {
		e.fail("Could not find term for slug '%s'. Skipping %s.", slug, termURL)
		return
	}
	if strings.TrimSpace(term.Content) == "" {
		e.fail("Term %d (slug: %s) has no original content. Skipping expansion.", term.ID, slug)
		return
	}

	e.logger.Info("expanding term",
		zap.String("slug", slug),
		zap.Int("term_id", term.ID),
		zap.Int("original_chars", len(term.Content)))

	raw, err := e.model.Generate(ctx, buildPrompt(term, e.cfg.TargetWordCount))
	if err != nil {
		e.fail("FAILED: expansion for '%s' (ID: %d): %v", term.Title, term.ID, err)
		return
	}

	out, err := ai.Decode[expansion](raw)
	if err != nil || out.FullContentHTML == "" {
		e.fail("FAILED: model output for '%s' (ID: %d) was not usable.", term.Title, term.ID)
		return
	}
	// Keep the original excerpt when the model omits one.
	if out.ExcerptHTML == "" {
		out.ExcerptHTML = term.Excerpt
	}

	if err := e.wp.UpdateTerm(ctx, term.ID, out.FullContentHTML, out.ExcerptHTML); err != nil {
		e.fail("FAILED: update for '%s' (ID: %d): %v", term.Title, term.ID, err)
		return
	}

	e.succeed("SUCCESS: Updated '%s' (ID: %d).", term.Title, term.ID)
}

// ExtractSlug returns the term slug from a glossary permalink, or "".
func ExtractSlug(termURL string) string {
	m := slugRegex.FindStringSubmatch(strings.TrimSpace(termURL))
	if m == nil {
		return ""
	}
	return m[1]
}

// readURLColumn reads the "Url" column from the input CSV.
func readURLColumn(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input CSV: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	urlCol := -1
	for i, name := range header {
		if strings.TrimSpace(name) == "Url" {
			urlCol = i
			break
		}
	}
	if urlCol < 0 {
		return nil, fmt.Errorf("input CSV must contain a 'Url' column")
	}

	var urls []string
	for {
		row, err := r.Read()
		if err != nil {
			break
		}
		if urlCol < len(row) {
			if u := strings.TrimSpace(row[urlCol]); u != "" {
				urls = append(urls, u)
			}
		}
	}
	return urls, nil
}

// record appends an outcome line and bumps the matching counter.
func (e *Expander) record(counter *int, format string, args ...any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if counter != nil {
		*counter++
	}
	e.messages = append(e.messages, fmt.Sprintf(format, args...))
}

func (e *Expander) succeed(format string, args ...any) {
	e.record(&e.summary.Succeeded, format, args...)
}

func (e *Expander) skip(format string, args ...any) {
	e.record(&e.summary.Skipped, format, args...)
}

func (e *Expander) fail(format string, args ...any) {
	e.record(&e.summary.Failed, format, args...)
}
