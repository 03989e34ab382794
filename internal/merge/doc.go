// Package merge implements the deduplicating merge engine at the heart of
// the sheet-cleaning pipeline.
//
// # Overview
//
// The engine consumes one or more record sets (each representing a
// worksheet of contact-like rows), applies per-set cleaning rules, and
// merges everything into a single record set that is globally deduplicated
// by normalized email address.
//
// # Cleaning rules
//
// Per set, applied in source order:
//
//  1. Active filter: rows whose status field does not equal the configured
//     active value (case-insensitive) are dropped. A missing status field
//     fails closed.
//  2. Support-address filter: rows whose email contains "support"
//     (case-insensitive) are dropped.
//  3. Name backfill: a missing display name is derived from the email's
//     local part.
//  4. Within-set dedup: rows sharing a normalized email key collapse to the
//     first occurrence in scan order.
//
// # Cross-set merge
//
// Cleaned sets are concatenated in caller order and deduplicated again:
// the first occurrence of each key wins globally, later duplicates are
// discarded even when they come from a different set. Rows with an empty
// key cannot be deduplicated safely and are excluded entirely.
//
// # Drop accounting
//
// The filters are an ordered list of named predicates, each tagged with a
// drop reason. Every discarded row increments exactly one counter in
// Stats, so the per-reason drop counts reported at the end of a run are
// derived mechanically rather than maintained by hand in each filter.
//
// The engine itself never fails on malformed rows; it only returns an
// error when the column mapping is incomplete (a precondition checked once
// before any processing).
package merge
