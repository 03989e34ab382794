// Package pipeline runs the end-to-end clean: read every worksheet,
// merge and deduplicate the records, and write the merged table back in
// one shot. Nothing is written unless the merge succeeds, so a fatal
// failure leaves any previously written output untouched.
package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/marketops/mopctl/internal/merge"
	"github.com/marketops/mopctl/internal/record"
	"github.com/marketops/mopctl/internal/sheets"
	"github.com/marketops/mopctl/internal/storage"
	"go.uber.org/zap"
)

// Options configures a clean run.
type Options struct {
	// Merge is the validated merge configuration.
	Merge merge.Config

	// OutputTable names the worksheet the merged records are written to.
	// It is excluded from the input scan so reruns do not feed the
	// previous output back in.
	OutputTable string

	// DryRun stops after the merge and reports counts without writing.
	DryRun bool
}

// Outcome reports what a clean run did.
type Outcome struct {
	WorksheetsRead    int
	WorksheetsSkipped []string
	Stats             merge.Stats
	Wrote             bool
}

// Cleaner wires the source, sink, and engine for clean runs.
type Cleaner struct {
	source sheets.Source
	sink   sheets.Sink
	store  *storage.Store
	logger *zap.Logger
}

// NewCleaner builds a Cleaner. The store may be nil, in which case runs
// are not recorded.
func NewCleaner(source sheets.Source, sink sheets.Sink, store *storage.Store, logger *zap.Logger) *Cleaner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cleaner{source: source, sink: sink, store: store, logger: logger}
}

// Run executes one clean. Worksheets missing the mandatory email or name
// column are skipped as structurally invalid rather than failing the run.
// The run outcome, success or failure, is recorded in run history.
func (c *Cleaner) Run(ctx context.Context, opts Options) (*Outcome, error) {
	engine, err := merge.New(opts.Merge, c.logger)
	if err != nil {
		return nil, err
	}
	if opts.OutputTable == "" {
		return nil, fmt.Errorf("%w: output table name is required", merge.ErrConfiguration)
	}

	run := storage.NewRun("clean")
	outcome, err := c.run(ctx, engine, opts)
	if outcome != nil {
		run.RecordsRead = outcome.Stats.RecordsRead
		run.RecordsWritten = outcome.Stats.RecordsWritten
		run.Dropped = dropCounts(outcome.Stats)
	}
	run.Finish(err)

	if c.store != nil {
		if recErr := c.store.RecordRun(ctx, run); recErr != nil {
			c.logger.Warn("failed to record run", zap.Error(recErr))
		}
	}
	return outcome, err
}

func (c *Cleaner) run(ctx context.Context, engine *merge.Engine, opts Options) (*Outcome, error) {
	titles, err := c.source.ListWorksheets(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing worksheets: %w", err)
	}

	outcome := &Outcome{}
	var sets []record.Set
	for _, title := range titles {
		if title == opts.OutputTable {
			continue
		}
		table, err := c.source.ReadTable(ctx, title)
		if err != nil {
			return outcome, fmt.Errorf("reading worksheet %q: %w", title, err)
		}
		if !table.HasColumns(opts.Merge.EmailColumn, opts.Merge.NameColumn) {
			c.logger.Warn("skipping worksheet without mandatory columns",
				zap.String("worksheet", title),
				zap.Strings("required", []string{opts.Merge.EmailColumn, opts.Merge.NameColumn}))
			outcome.WorksheetsSkipped = append(outcome.WorksheetsSkipped, title)
			continue
		}
		sets = append(sets, record.Set{Source: title, Records: table.Records()})
		outcome.WorksheetsRead++
	}

	result := engine.Merge(sets)
	if err := result.Validate(opts.Merge); err != nil {
		return outcome, fmt.Errorf("merged output failed validation: %w", err)
	}
	outcome.Stats = result.Stats

	if opts.DryRun {
		c.logger.Info("dry run, skipping write",
			zap.Int("records", len(result.Records)))
		return outcome, nil
	}

	header := outputHeader(opts.Merge, result.Records)
	table := sheets.FromRecords(opts.OutputTable, header, result.Records)
	if err := c.sink.WriteTable(ctx, table); err != nil {
		return outcome, fmt.Errorf("writing merged output: %w", err)
	}
	outcome.Wrote = true

	c.logger.Info("clean run complete",
		zap.Int("worksheets", outcome.WorksheetsRead),
		zap.Int("records_read", result.Stats.RecordsRead),
		zap.Int("records_written", result.Stats.RecordsWritten),
		zap.Int("dropped", result.Stats.TotalDropped()))
	return outcome, nil
}

// outputHeader puts the configured columns first and appends any other
// column seen in the merged records, sorted so the header is stable
// across runs.
func outputHeader(cfg merge.Config, recs []record.Record) []string {
	header := []string{cfg.EmailColumn, cfg.NameColumn, cfg.StatusColumn}
	seen := map[string]bool{
		cfg.EmailColumn:  true,
		cfg.NameColumn:   true,
		cfg.StatusColumn: true,
	}
	var extras []string
	for _, rec := range recs {
		for key := range rec {
			if !seen[key] {
				seen[key] = true
				extras = append(extras, key)
			}
		}
	}
	sort.Strings(extras)
	return append(header, extras...)
}

func dropCounts(stats merge.Stats) map[string]int {
	out := make(map[string]int, len(stats.Dropped))
	for reason, n := range stats.Dropped {
		out[string(reason)] = n
	}
	return out
}
