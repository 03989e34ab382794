package merge

import (
	"fmt"
	"strings"

	"github.com/marketops/mopctl/internal/record"
	"go.uber.org/zap"
)

// DropReason labels why a row was discarded. Every discarded row is
// counted under exactly one reason.
type DropReason string

const (
	// DropInactive: status field missing or not equal to the configured
	// active value.
	DropInactive DropReason = "inactive"

	// DropSupportAddress: email contains "support".
	DropSupportAddress DropReason = "support_address"

	// DropDuplicateInSet: a row with the same identity key appeared
	// earlier in the same source set.
	DropDuplicateInSet DropReason = "duplicate_within_set"

	// DropDuplicateAcrossSets: a row with the same identity key appeared
	// earlier in a previously merged set.
	DropDuplicateAcrossSets DropReason = "duplicate_across_sets"

	// DropMissingKey: the email field is empty after normalization, so
	// the row cannot be deduplicated safely.
	DropMissingKey DropReason = "missing_key"
)

// DropReasons lists all reasons in reporting order.
var DropReasons = []DropReason{
	DropInactive,
	DropSupportAddress,
	DropDuplicateInSet,
	DropDuplicateAcrossSets,
	DropMissingKey,
}

// Stats summarizes one engine run for end-of-run reporting.
type Stats struct {
	// RecordsRead is the total number of input rows across all sets.
	RecordsRead int `json:"records_read"`

	// Dropped counts discarded rows per labeled reason.
	Dropped map[DropReason]int `json:"dropped"`

	// RecordsWritten is the number of rows in the merged output.
	RecordsWritten int `json:"records_written"`
}

// TotalDropped returns the sum of all drop counters.
func (s Stats) TotalDropped() int {
	total := 0
	for _, n := range s.Dropped {
		total += n
	}
	return total
}

// Result is the merged, globally deduplicated output of one engine run.
type Result struct {
	// Records in deterministic first-seen order: by source-set order,
	// then by within-set scan order.
	Records []record.Record

	// Stats for drop-count reporting.
	Stats Stats
}

// Validate checks the output invariants: identity-key uniqueness, no empty
// keys, and stats consistent with the record slice. Used by tests and as a
// final sanity check before the result is written anywhere.
func (r *Result) Validate(cfg Config) error {
	cfg = cfg.withDefaults()
	seen := make(map[string]struct{}, len(r.Records))
	for i, rec := range r.Records {
		key := record.Key(rec.Get(cfg.EmailColumn))
		if key == "" {
			return fmt.Errorf("record %d has an empty identity key", i)
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("duplicate identity key %q in merged output", key)
		}
		seen[key] = struct{}{}
	}
	if r.Stats.RecordsWritten != len(r.Records) {
		return fmt.Errorf("stats.records_written (%d) does not match record count (%d)",
			r.Stats.RecordsWritten, len(r.Records))
	}
	if got := r.Stats.RecordsRead - r.Stats.TotalDropped(); got != len(r.Records) {
		return fmt.Errorf("stats do not balance: read %d - dropped %d = %d, want %d",
			r.Stats.RecordsRead, r.Stats.TotalDropped(), got, len(r.Records))
	}
	return nil
}

// predicate is a named keep/drop rule. Rows failing the rule are counted
// under the predicate's reason.
type predicate struct {
	reason DropReason
	keep   func(record.Record) bool
}

// Engine merges record sets into one globally deduplicated result.
// It holds no state across runs; a single Engine may be reused.
type Engine struct {
	cfg        Config
	predicates []predicate
	logger     *zap.Logger
}

// New creates a merge engine. The column mapping is validated here, once,
// before any processing; an incomplete mapping returns ErrConfiguration.
func New(cfg Config, logger *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Engine{cfg: cfg, logger: logger}
	e.predicates = []predicate{
		{
			reason: DropInactive,
			keep: func(r record.Record) bool {
				return strings.EqualFold(r.Get(cfg.StatusColumn), cfg.ActiveStatusValue)
			},
		},
		{
			reason: DropSupportAddress,
			keep: func(r record.Record) bool {
				return !strings.Contains(strings.ToLower(r.Get(cfg.EmailColumn)), "support")
			},
		},
	}
	return e, nil
}

// Merge cleans each set independently, then merges all sets in the given
// order with global first-seen-wins deduplication on the identity key.
// Malformed rows never fail the merge; they are dropped and counted.
func (e *Engine) Merge(sets []record.Set) *Result {
	stats := Stats{Dropped: make(map[DropReason]int)}

	cleaned := make([]record.Set, 0, len(sets))
	for _, set := range sets {
		stats.RecordsRead += len(set.Records)
		cleaned = append(cleaned, e.cleanSet(set, &stats))
	}

	// Cross-set merge: first occurrence by set order, then scan order.
	seen := make(map[string]struct{})
	var out []record.Record
	for _, set := range cleaned {
		for _, rec := range set.Records {
			key := record.Key(rec.Get(e.cfg.EmailColumn))
			if key == "" {
				stats.Dropped[DropMissingKey]++
				continue
			}
			if _, dup := seen[key]; dup {
				stats.Dropped[DropDuplicateAcrossSets]++
				continue
			}
			seen[key] = struct{}{}
			out = append(out, rec)
		}
	}

	stats.RecordsWritten = len(out)
	e.logger.Info("merge complete",
		zap.Int("sets", len(sets)),
		zap.Int("records_read", stats.RecordsRead),
		zap.Int("records_written", stats.RecordsWritten),
		zap.Int("dropped", stats.TotalDropped()))

	return &Result{Records: out, Stats: stats}
}

// cleanSet applies the named predicates, the name backfill, and the
// within-set dedup to one source set, in scan order.
func (e *Engine) cleanSet(set record.Set, stats *Stats) record.Set {
	out := record.Set{Source: set.Source}
	seen := make(map[string]struct{}, len(set.Records))

rows:
	for _, rec := range set.Records {
		for _, p := range e.predicates {
			if !p.keep(rec) {
				stats.Dropped[p.reason]++
				continue rows
			}
		}

		rec = rec.Clone()
		if rec.Get(e.cfg.NameColumn) == "" {
			// Rows without an email keep an empty name rather than
			// being dropped here; the missing-key exclusion decides
			// their fate during the merge.
			rec[e.cfg.NameColumn] = record.NameFromEmail(rec.Get(e.cfg.EmailColumn))
		}

		key := record.Key(rec.Get(e.cfg.EmailColumn))
		if key != "" {
			if _, dup := seen[key]; dup {
				stats.Dropped[DropDuplicateInSet]++
				continue
			}
			seen[key] = struct{}{}
		}

		out.Records = append(out.Records, rec)
	}

	e.logger.Debug("cleaned source set",
		zap.String("source", set.Source),
		zap.Int("in", len(set.Records)),
		zap.Int("out", len(out.Records)))

	return out
}
