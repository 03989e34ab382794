package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/marketops/mopctl/internal/merge"
	"github.com/marketops/mopctl/internal/sheets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeSource serves canned tables.
type fakeSource struct {
	tables  []*sheets.Table
	readErr error
}

func (s *fakeSource) ListWorksheets(_ context.Context) ([]string, error) {
	var titles []string
	for _, t := range s.tables {
		titles = append(titles, t.Name)
	}
	return titles, nil
}

func (s *fakeSource) ReadTable(_ context.Context, name string) (*sheets.Table, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	for _, t := range s.tables {
		if t.Name == name {
			return t, nil
		}
	}
	return nil, errors.New("no such worksheet")
}

// fakeSink captures writes.
type fakeSink struct {
	written []*sheets.Table
	err     error
}

func (s *fakeSink) WriteTable(_ context.Context, t *sheets.Table) error {
	if s.err != nil {
		return s.err
	}
	s.written = append(s.written, t)
	return nil
}

func testConfig() merge.Config {
	return merge.Config{
		StatusColumn: "Status",
		EmailColumn:  "Email",
		NameColumn:   "Name",
	}
}

func testTables() []*sheets.Table {
	return []*sheets.Table{
		{
			Name:   "Newsletter_A",
			Header: []string{"Email", "Name", "Status"},
			Rows: [][]string{
				{"a@x.com", "Alice", "Active"},
				{"b@x.com", "Bob", "Inactive"},
			},
		},
		{
			Name:   "Newsletter_B",
			Header: []string{"Email", "Name", "Status"},
			Rows: [][]string{
				{"A@X.com", "Alice Again", "Active"},
				{"c@x.com", "Carol", "Active"},
			},
		},
		{
			// Missing the Name column, should be skipped.
			Name:   "Malformed",
			Header: []string{"Email", "Status"},
			Rows:   [][]string{{"d@x.com", "Active"}},
		},
	}
}

func TestRunMergesAndWritesOnce(t *testing.T) {
	source := &fakeSource{tables: testTables()}
	sink := &fakeSink{}
	cleaner := NewCleaner(source, sink, nil, zap.NewNop())

	outcome, err := cleaner.Run(context.Background(), Options{
		Merge:       testConfig(),
		OutputTable: "Merged",
	})
	require.NoError(t, err)

	assert.Equal(t, 2, outcome.WorksheetsRead)
	assert.Equal(t, []string{"Malformed"}, outcome.WorksheetsSkipped)
	assert.True(t, outcome.Wrote)
	assert.Equal(t, 4, outcome.Stats.RecordsRead)
	assert.Equal(t, 2, outcome.Stats.RecordsWritten)
	assert.Equal(t, 1, outcome.Stats.Dropped[merge.DropInactive])
	assert.Equal(t, 1, outcome.Stats.Dropped[merge.DropDuplicateAcrossSets])

	require.Len(t, sink.written, 1)
	written := sink.written[0]
	assert.Equal(t, "Merged", written.Name)
	assert.Equal(t, []string{"Email", "Name", "Status"}, written.Header)
	require.Len(t, written.Rows, 2)
	assert.Equal(t, "a@x.com", written.Rows[0][0])
	assert.Equal(t, "c@x.com", written.Rows[1][0])
}

func TestRunOutputTableExcludedFromInput(t *testing.T) {
	tables := testTables()
	tables = append(tables, &sheets.Table{
		Name:   "Merged",
		Header: []string{"Email", "Name", "Status"},
		Rows:   [][]string{{"stale@x.com", "Stale", "Active"}},
	})
	source := &fakeSource{tables: tables}
	sink := &fakeSink{}
	cleaner := NewCleaner(source, sink, nil, zap.NewNop())

	outcome, err := cleaner.Run(context.Background(), Options{
		Merge:       testConfig(),
		OutputTable: "Merged",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, outcome.WorksheetsRead)
	for _, row := range sink.written[0].Rows {
		assert.NotEqual(t, "stale@x.com", row[0])
	}
}

func TestRunDryRunDoesNotWrite(t *testing.T) {
	source := &fakeSource{tables: testTables()}
	sink := &fakeSink{}
	cleaner := NewCleaner(source, sink, nil, zap.NewNop())

	outcome, err := cleaner.Run(context.Background(), Options{
		Merge:       testConfig(),
		OutputTable: "Merged",
		DryRun:      true,
	})
	require.NoError(t, err)
	assert.False(t, outcome.Wrote)
	assert.Empty(t, sink.written)
	assert.Equal(t, 2, outcome.Stats.RecordsWritten)
}

func TestRunReadFailureWritesNothing(t *testing.T) {
	source := &fakeSource{tables: testTables(), readErr: errors.New("permission denied")}
	sink := &fakeSink{}
	cleaner := NewCleaner(source, sink, nil, zap.NewNop())

	_, err := cleaner.Run(context.Background(), Options{
		Merge:       testConfig(),
		OutputTable: "Merged",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading worksheet")
	assert.Empty(t, sink.written)
}

func TestRunInvalidConfigFailsBeforeIO(t *testing.T) {
	source := &fakeSource{tables: testTables()}
	cleaner := NewCleaner(source, &fakeSink{}, nil, zap.NewNop())

	_, err := cleaner.Run(context.Background(), Options{
		Merge:       merge.Config{EmailColumn: "Email"},
		OutputTable: "Merged",
	})
	require.ErrorIs(t, err, merge.ErrConfiguration)
}

func TestRunRequiresOutputTable(t *testing.T) {
	cleaner := NewCleaner(&fakeSource{}, &fakeSink{}, nil, zap.NewNop())
	_, err := cleaner.Run(context.Background(), Options{Merge: testConfig()})
	require.ErrorIs(t, err, merge.ErrConfiguration)
}
