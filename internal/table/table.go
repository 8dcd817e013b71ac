// Package table provides the in-memory tabular model the pipeline stages
// exchange.
//
// A Table has ordered column names and row-major cells. A cell is nil (null)
// or one of: string, int64, float64, bool, time.Time, []any. Column names are
// not required to be unique; raw files regularly repeat headers, and
// [Table.MergeDuplicateColumns] collapses them.
//
// Operations return new tables and never mutate their receiver, so every
// pipeline stage can be written as a pure function of its input.
package table

import "strings"

// Table is an ordered-column, row-major table.
type Table struct {
	columns []string
	rows    [][]any
}

// New creates an empty table with the given columns.
func New(columns ...string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{columns: cols}
}

// FromRows creates a table from column names and rows.
// Rows shorter than the header are padded with nulls, longer rows are cut.
func FromRows(columns []string, rows [][]any) *Table {
	t := New(columns...)
	t.rows = make([][]any, 0, len(rows))
	for _, r := range rows {
		t.AppendRow(r)
	}
	return t
}

// Columns returns a copy of the column names.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Width returns the number of columns.
func (t *Table) Width() int { return len(t.columns) }

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool { return t.Len() == 0 }

// Index returns the position of the first column with the given name, or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Has reports whether a column exists.
func (t *Table) Has(name string) bool { return t.Index(name) >= 0 }

// Row returns the cells of row i. The slice is shared with the table.
func (t *Table) Row(i int) []any { return t.rows[i] }

// Cell returns the value of column name in row i, or nil if the column is absent.
func (t *Table) Cell(i int, name string) any {
	j := t.Index(name)
	if j < 0 {
		return nil
	}
	return t.rows[i][j]
}

// AppendRow appends a row, padding or cutting it to the table width.
// Intended for builders; stages should prefer the copying operations.
func (t *Table) AppendRow(vals []any) {
	row := make([]any, len(t.columns))
	copy(row, vals)
	t.rows = append(t.rows, row)
}

// Values returns a copy of all values of the named column.
func (t *Table) Values(name string) []any {
	j := t.Index(name)
	out := make([]any, len(t.rows))
	if j < 0 {
		return out
	}
	for i, r := range t.rows {
		out[i] = r[j]
	}
	return out
}

// Clone returns a copy of the table. Cell values are shared.
func (t *Table) Clone() *Table {
	c := New(t.columns...)
	c.rows = make([][]any, len(t.rows))
	for i, r := range t.rows {
		row := make([]any, len(r))
		copy(row, r)
		c.rows[i] = row
	}
	return c
}

// With returns a copy of the table where column name holds vals.
// The column is replaced when it exists, appended otherwise.
// vals shorter than the table leave the remaining cells null.
func (t *Table) With(name string, vals []any) *Table {
	c := t.Clone()
	j := c.Index(name)
	if j < 0 {
		c.columns = append(c.columns, name)
		for i := range c.rows {
			c.rows[i] = append(c.rows[i], nil)
		}
		j = len(c.columns) - 1
	}
	for i := range c.rows {
		if i < len(vals) {
			c.rows[i][j] = vals[i]
		} else {
			c.rows[i][j] = nil
		}
	}
	return c
}

// WithConst returns a copy of the table where column name holds v on every row.
func (t *Table) WithConst(name string, v any) *Table {
	vals := make([]any, t.Len())
	for i := range vals {
		vals[i] = v
	}
	return t.With(name, vals)
}

// Map returns a copy of the table with fn applied to every cell.
func (t *Table) Map(fn func(column string, v any) any) *Table {
	c := t.Clone()
	for _, r := range c.rows {
		for j := range r {
			r[j] = fn(c.columns[j], r[j])
		}
	}
	return c
}

// MapColumn returns a copy of the table with fn applied to every cell of one
// column. Every column with that name is affected.
func (t *Table) MapColumn(name string, fn func(v any) any) *Table {
	return t.Map(func(col string, v any) any {
		if col != name {
			return v
		}
		return fn(v)
	})
}

// Select returns the listed columns, in the listed order. Unknown names are
// skipped. A name repeated in the table contributes its first occurrence.
func (t *Table) Select(names ...string) *Table {
	idx := make([]int, 0, len(names))
	for _, n := range names {
		if j := t.Index(n); j >= 0 {
			idx = append(idx, j)
		}
	}
	return t.selectIndexes(idx)
}

// Keep returns the columns for which keep returns true, preserving order and
// duplicates.
func (t *Table) Keep(keep func(name string) bool) *Table {
	idx := make([]int, 0, len(t.columns))
	for j, c := range t.columns {
		if keep(c) {
			idx = append(idx, j)
		}
	}
	return t.selectIndexes(idx)
}

// Drop returns the table without the columns for which drop returns true.
func (t *Table) Drop(drop func(name string) bool) *Table {
	return t.Keep(func(name string) bool { return !drop(name) })
}

// DropColumns returns the table without the named columns.
func (t *Table) DropColumns(names ...string) *Table {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return t.Drop(func(name string) bool { return set[name] })
}

func (t *Table) selectIndexes(idx []int) *Table {
	cols := make([]string, len(idx))
	for k, j := range idx {
		cols[k] = t.columns[j]
	}
	out := New(cols...)
	out.rows = make([][]any, len(t.rows))
	for i, r := range t.rows {
		row := make([]any, len(idx))
		for k, j := range idx {
			row[k] = r[j]
		}
		out.rows[i] = row
	}
	return out
}

// Rename returns a copy with columns renamed through mapping. Names absent from
// mapping are kept.
func (t *Table) Rename(mapping map[string]string) *Table {
	return t.RenameFunc(func(name string) string {
		if to, ok := mapping[name]; ok {
			return to
		}
		return name
	})
}

// RenameFunc returns a copy with every column renamed by fn.
func (t *Table) RenameFunc(fn func(name string) string) *Table {
	c := t.Clone()
	for j, name := range c.columns {
		c.columns[j] = fn(name)
	}
	return c
}

// Filter returns the rows for which keep returns true.
func (t *Table) Filter(keep func(r Row) bool) *Table {
	out := New(t.columns...)
	for i, r := range t.rows {
		if keep(Row{t: t, i: i}) {
			row := make([]any, len(r))
			copy(row, r)
			out.rows = append(out.rows, row)
		}
	}
	return out
}

// Rows returns a view of each row.
func (t *Table) Rows() []Row {
	out := make([]Row, len(t.rows))
	for i := range t.rows {
		out[i] = Row{t: t, i: i}
	}
	return out
}

// Row is a read-only view of one table row.
type Row struct {
	t *Table
	i int
}

// Index returns the row position in its table.
func (r Row) Index() int { return r.i }

// Get returns the value of the named column, or nil.
func (r Row) Get(name string) any { return r.t.Cell(r.i, name) }

// String returns the named value when it is a non-empty string.
func (r Row) String(name string) (string, bool) {
	s, ok := r.Get(name).(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// Concat stacks tables vertically. The result has the union of all columns in
// order of first appearance; cells of missing columns are null.
func Concat(tables ...*Table) *Table {
	var cols []string
	seen := make(map[string]bool)
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, c := range t.columns {
			if !seen[c] {
				seen[c] = true
				cols = append(cols, c)
			}
		}
	}
	out := New(cols...)
	for _, t := range tables {
		if t == nil {
			continue
		}
		pos := make([]int, len(t.columns))
		for j, c := range t.columns {
			pos[j] = out.Index(c)
		}
		for _, r := range t.rows {
			row := make([]any, len(cols))
			for j, v := range r {
				// Repeated names in t land on the same output column; first non-null wins.
				if row[pos[j]] == nil {
					row[pos[j]] = v
				}
			}
			out.rows = append(out.rows, row)
		}
	}
	return out
}
