package model

import (
	"fmt"
	"slices"
)

// ReportRow maps a column name to its scalar value. Rows of a table always
// carry exactly the table's column set; absent API fields are stored as "".
type ReportRow map[string]string

// ReportTable is the in-memory dataset for one report run: an ordered column
// list (insertion order = API field order) and the rows beneath it.
type ReportTable struct {
	Report  string
	Columns []string
	Rows    []ReportRow
}

// Validate checks the table invariant: every row's key set equals the column
// list, with no duplicate columns.
func (t *ReportTable) Validate() error {
	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if seen[c] {
			return fmt.Errorf("duplicate column %q", c)
		}
		seen[c] = true
	}

	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("row %d has %d values, table has %d columns", i, len(row), len(t.Columns))
		}
		for k := range row {
			if !seen[k] {
				return fmt.Errorf("row %d has unknown column %q", i, k)
			}
		}
	}

	return nil
}

// HasColumn reports whether name is one of the table's columns.
func (t *ReportTable) HasColumn(name string) bool {
	return slices.Contains(t.Columns, name)
}

// Project returns a new table containing only the selected columns, in table
// column order. Row count and row order are preserved.
func (t *ReportTable) Project(sel ColumnSelection) *ReportTable {
	columns := make([]string, 0, sel.Len())
	for _, c := range t.Columns {
		if sel.Keep(c) {
			columns = append(columns, c)
		}
	}

	rows := make([]ReportRow, 0, len(t.Rows))
	for _, row := range t.Rows {
		projected := make(ReportRow, len(columns))
		for _, c := range columns {
			projected[c] = row[c]
		}
		rows = append(rows, projected)
	}

	return &ReportTable{Report: t.Report, Columns: columns, Rows: rows}
}

// TableBuilder accumulates rows whose field sets may differ (direct Graph
// responses routinely omit null fields) and produces a ReportTable that
// satisfies the row/column invariant: the column list is the union of all
// fields in first-seen order, and every row is back-filled with "".
type TableBuilder struct {
	report  string
	columns []string
	index   map[string]bool
	rows    []ReportRow
}

// NewTableBuilder creates a builder for the named report.
func NewTableBuilder(report string) *TableBuilder {
	return &TableBuilder{
		report: report,
		index:  map[string]bool{},
	}
}

// Append adds one row. order lists the row's field names in the order the API
// emitted them; fields not yet known to the builder are appended to the
// column list.
func (b *TableBuilder) Append(fields map[string]string, order []string) {
	for _, name := range order {
		if !b.index[name] {
			b.index[name] = true
			b.columns = append(b.columns, name)
		}
	}

	row := make(ReportRow, len(fields))
	for k, v := range fields {
		row[k] = v
	}
	b.rows = append(b.rows, row)
}

// SetColumns pre-declares the column list (used when a header row is known up
// front, as with export-job CSVs).
func (b *TableBuilder) SetColumns(columns []string) {
	for _, name := range columns {
		if !b.index[name] {
			b.index[name] = true
			b.columns = append(b.columns, name)
		}
	}
}

// Build normalises every row to the full column set and returns the table.
func (b *TableBuilder) Build() *ReportTable {
	for _, row := range b.rows {
		for _, c := range b.columns {
			if _, ok := row[c]; !ok {
				row[c] = ""
			}
		}
	}

	return &ReportTable{
		Report:  b.report,
		Columns: slices.Clone(b.columns),
		Rows:    b.rows,
	}
}
