package model

import "fmt"

// ColumnSelection is the user-confirmed set of columns to retain in the
// export. It is created once, after the user confirms the column page, and is
// immutable from then on. A selection is always a subset of its table's
// columns and always contains the report's identifying column.
type ColumnSelection struct {
	columns []string
	keep    map[string]bool
}

// NewColumnSelection validates keep against the table and returns the
// selection. The identifying column idColumn is forced into the selection
// when the table has it, regardless of whether the user kept it. Column order
// follows the table's column order, not the order of keep.
func NewColumnSelection(table *ReportTable, keep []string, idColumn string) (ColumnSelection, error) {
	if len(keep) == 0 && (idColumn == "" || !table.HasColumn(idColumn)) {
		return ColumnSelection{}, fmt.Errorf("no columns selected")
	}

	wanted := make(map[string]bool, len(keep)+1)
	for _, c := range keep {
		if !table.HasColumn(c) {
			return ColumnSelection{}, fmt.Errorf("column %q is not in the report", c)
		}
		wanted[c] = true
	}
	if idColumn != "" && table.HasColumn(idColumn) {
		wanted[idColumn] = true
	}

	columns := make([]string, 0, len(wanted))
	keepSet := make(map[string]bool, len(wanted))
	for _, c := range table.Columns {
		if wanted[c] {
			columns = append(columns, c)
			keepSet[c] = true
		}
	}

	return ColumnSelection{columns: columns, keep: keepSet}, nil
}

// SelectAll returns a selection keeping every column of the table.
func SelectAll(table *ReportTable) ColumnSelection {
	sel, _ := NewColumnSelection(table, table.Columns, "")
	return sel
}

// Keep reports whether the named column is retained.
func (s ColumnSelection) Keep(column string) bool { return s.keep[column] }

// Columns returns the retained columns in table order.
func (s ColumnSelection) Columns() []string {
	out := make([]string, len(s.columns))
	copy(out, s.columns)
	return out
}

// Len is the number of retained columns.
func (s ColumnSelection) Len() int { return len(s.columns) }
