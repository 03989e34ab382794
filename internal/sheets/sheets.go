// Package sheets provides the spreadsheet source/sink boundary: reading
// named worksheets into tables and writing tables back, with every call
// against the external service going through the bounded retry wrapper
// and a rate limiter that stays below the API quota.
package sheets

import (
	"context"

	"github.com/marketops/mopctl/internal/record"
)

// Table is one worksheet's contents: a header row plus data rows.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// HasColumns reports whether the header contains every given column.
func (t *Table) HasColumns(cols ...string) bool {
	for _, want := range cols {
		found := false
		for _, h := range t.Header {
			if h == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Records converts the table rows to field-keyed records. Rows shorter
// than the header leave the missing fields absent; extra cells beyond the
// header are ignored.
func (t *Table) Records() []record.Record {
	out := make([]record.Record, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(record.Record, len(t.Header))
		for i, h := range t.Header {
			if i < len(row) {
				rec[h] = row[i]
			}
		}
		out = append(out, rec)
	}
	return out
}

// FromRecords builds a table with the given header from records; fields
// the header does not name are dropped.
func FromRecords(name string, header []string, recs []record.Record) *Table {
	t := &Table{Name: name, Header: header}
	for _, rec := range recs {
		row := make([]string, len(header))
		for i, h := range header {
			row[i] = rec.Get(h)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Source reads named tables from the external spreadsheet service.
type Source interface {
	// ListWorksheets returns all worksheet titles in sheet order.
	ListWorksheets(ctx context.Context) ([]string, error)

	// ReadTable reads one worksheet. An empty worksheet yields a table
	// with no header and no rows.
	ReadTable(ctx context.Context, name string) (*Table, error)
}

// Sink writes one named table, clearing an existing worksheet or creating
// it when absent.
type Sink interface {
	WriteTable(ctx context.Context, t *Table) error
}
