// Package record defines the tabular data model shared by the cleaning
// pipeline: rows read from a worksheet, ordered sets of rows from one
// source table, and the email-derived identity key used for deduplication.
package record

import (
	"strings"
	"unicode"
)

// Record is one row from one source table, keyed by column name.
// The semantic fields (status, email, name) are resolved through
// configuration; everything else rides along as passthrough data.
type Record map[string]string

// Get returns the trimmed value of a field, or "" when absent.
func (r Record) Get(field string) string {
	return strings.TrimSpace(r[field])
}

// Clone returns a shallow copy of the record. The merge engine clones
// before mutating so callers keep their input untouched.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Set is an ordered sequence of Records originating from one named source
// table. Order carries no meaning beyond being the scan order used for
// first-seen tie-breaking.
type Set struct {
	// Source is the name of the worksheet or table the rows came from.
	Source string

	// Records in scan order.
	Records []Record
}

// Key derives the identity key from an email address: whitespace trimmed
// and case-folded. Two records with the same key are duplicates regardless
// of which source set they came from. An empty result means the record
// cannot be deduplicated safely and must be excluded from merged output.
func Key(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NameFromEmail derives a display name from the local part of an email
// address: separators (. _ -) become spaces, each word is title-cased,
// and trailing digits are stripped ("jane.doe99@x.com" -> "Jane Doe").
// Returns "" when no usable name can be derived.
func NameFromEmail(email string) string {
	email = strings.TrimSpace(email)
	if email == "" {
		return ""
	}

	local := email
	if at := strings.IndexByte(email, '@'); at >= 0 {
		local = email[:at]
	}

	local = strings.Map(func(r rune) rune {
		switch r {
		case '.', '_', '-':
			return ' '
		}
		return r
	}, local)

	words := strings.Fields(local)
	for i, w := range words {
		words[i] = capitalize(w)
	}
	name := strings.Join(words, " ")

	// Trailing digits are usually uniquifiers (jane.doe99), not names.
	name = strings.TrimRightFunc(name, unicode.IsDigit)

	return strings.TrimSpace(name)
}

// capitalize upper-cases the first rune and lower-cases the rest,
// matching how the legacy cleaner title-cased name words.
func capitalize(w string) string {
	runes := []rune(w)
	if len(runes) == 0 {
		return w
	}
	runes[0] = unicode.ToUpper(runes[0])
	for i := 1; i < len(runes); i++ {
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}
