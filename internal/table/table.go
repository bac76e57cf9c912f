// Package table is the in-memory tabular model shared by every job: typed
// columns of equal length, a typed cell Value with an explicit missing marker,
// and the raw text batches that come from fixtures and stores.
//
// Tables are immutable by convention. Every operation in this module and in
// the transformer, window and summary packages returns a new Table and never
// writes to a Values slice reachable from its input. Callers must not mutate
// the slices returned by Column either.
package table

import (
	"fmt"
	"slices"
)

// Column is a named, typed sequence of values.
type Column struct {
	Name   string
	Kind   Kind
	Values []Value
}

// Len returns the number of values.
func (c Column) Len() int { return len(c.Values) }

// Floats returns the column as float64 with NaN for every value that is not
// a valid number.
func (c Column) Floats() []float64 {
	out := make([]float64, len(c.Values))
	for i, v := range c.Values {
		f, ok := v.Float()
		if !ok {
			f = nan
		}
		out[i] = f
	}
	return out
}

// Strings returns the canonical text of every value.
func (c Column) Strings() []string {
	out := make([]string, len(c.Values))
	for i, v := range c.Values {
		out[i] = v.String()
	}
	return out
}

// Table is an ordered set of equal-length columns with unique names.
type Table struct {
	cols  []Column
	index map[string]int
	rows  int
}

// New assembles a table. Columns must have unique names, equal lengths, and
// values of their declared kind.
func New(cols ...Column) (Table, error) {
	t := Table{cols: cols, index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if _, dup := t.index[c.Name]; dup {
			return Table{}, Errorf("table", ErrShape, c.Name, "duplicate column name")
		}
		t.index[c.Name] = i
		if i == 0 {
			t.rows = len(c.Values)
		} else if len(c.Values) != t.rows {
			return Table{}, Errorf("table", ErrShape, c.Name, "length %d, want %d", len(c.Values), t.rows)
		}
		for r, v := range c.Values {
			if v.kind != c.Kind {
				return Table{}, &Error{Op: "table", Kind: ErrShape, Column: c.Name, Row: r,
					Msg: fmt.Sprintf("value of kind %s in %s column", v.kind, c.Kind)}
			}
		}
	}
	return t, nil
}

// MustNew is New for tests and literals; it panics on error.
func MustNew(cols ...Column) Table {
	t, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

func (t Table) NumRows() int { return t.rows }
func (t Table) NumCols() int { return len(t.cols) }

// Names returns the column names in order.
func (t Table) Names() []string {
	out := make([]string, len(t.cols))
	for i, c := range t.cols {
		out[i] = c.Name
	}
	return out
}

// Columns returns the columns in order.
func (t Table) Columns() []Column { return slices.Clone(t.cols) }

// Has reports whether the table has a column with the given name.
func (t Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the named column or an ErrKeyNotFound error.
func (t Table) Column(name string) (Column, error) {
	i, ok := t.index[name]
	if !ok {
		return Column{}, NotFound("column", name)
	}
	return t.cols[i], nil
}

// Row returns the values of row i in column order.
func (t Table) Row(i int) []Value {
	out := make([]Value, len(t.cols))
	for j, c := range t.cols {
		out[j] = c.Values[i]
	}
	return out
}

// WithColumn returns a table with c replacing the column of the same name,
// or appended when no such column exists.
func (t Table) WithColumn(c Column) (Table, error) {
	cols := slices.Clone(t.cols)
	if i, ok := t.index[c.Name]; ok {
		cols[i] = c
	} else {
		cols = append(cols, c)
	}
	return New(cols...)
}

// Select returns a table with only the named columns, in the given order.
func (t Table) Select(names ...string) (Table, error) {
	cols := make([]Column, 0, len(names))
	for _, n := range names {
		c, err := t.Column(n)
		if err != nil {
			return Table{}, err
		}
		cols = append(cols, c)
	}
	return New(cols...)
}

// Take returns the rows at the given indexes, in that order.
func (t Table) Take(rows []int) Table {
	cols := make([]Column, len(t.cols))
	for j, c := range t.cols {
		vals := make([]Value, len(rows))
		for k, r := range rows {
			vals[k] = c.Values[r]
		}
		cols[j] = Column{Name: c.Name, Kind: c.Kind, Values: vals}
	}
	return Table{cols: cols, index: t.index, rows: len(rows)}
}

// Filter keeps the rows for which keep returns true, preserving order.
func (t Table) Filter(keep func(row int) bool) Table {
	rows := make([]int, 0, t.rows)
	for i := 0; i < t.rows; i++ {
		if keep(i) {
			rows = append(rows, i)
		}
	}
	return t.Take(rows)
}

// Head returns the first n rows.
func (t Table) Head(n int) Table {
	n = min(max(n, 0), t.rows)
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return t.Take(rows)
}

// Equal reports whether both tables have the same columns, kinds and values.
func (t Table) Equal(o Table) bool {
	if t.rows != o.rows || len(t.cols) != len(o.cols) {
		return false
	}
	for j, c := range t.cols {
		oc := o.cols[j]
		if c.Name != oc.Name || c.Kind != oc.Kind {
			return false
		}
		for i, v := range c.Values {
			if !v.Equal(oc.Values[i]) {
				return false
			}
		}
	}
	return true
}

// SortBy returns the table stably sorted by column name ascending, missing
// values last.
func SortBy(t Table, name string) (Table, error) {
	c, err := t.Column(name)
	if err != nil {
		return Table{}, err
	}
	rows := make([]int, t.rows)
	for i := range rows {
		rows[i] = i
	}
	slices.SortStableFunc(rows, func(a, b int) int {
		return c.Values[a].Compare(c.Values[b])
	})
	return t.Take(rows), nil
}
