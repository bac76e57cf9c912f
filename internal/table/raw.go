package table

import "math"

var nan = math.NaN()

// Cell is one raw input cell: either text or absent. Stores produce Missing
// cells for SQL NULL and JSON null; the CSV store only produces text.
type Cell struct {
	Text    string
	Missing bool
}

// Text returns a present cell.
func Text(s string) Cell { return Cell{Text: s} }

// Null returns an absent cell.
func Null() Cell { return Cell{Missing: true} }

// Raw is an untyped batch of rows as read from a fixture or a store.
type Raw struct {
	Header []string
	Rows   [][]Cell
}

// NumRows returns the number of data rows.
func (r Raw) NumRows() int { return len(r.Rows) }

// Index returns the position of the named header, or -1.
func (r Raw) Index(name string) int {
	for i, h := range r.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Cell returns the cell at row i, column j; short rows read as absent.
func (r Raw) Cell(i, j int) Cell {
	row := r.Rows[i]
	if j >= len(row) {
		return Null()
	}
	return row[j]
}

// Raw renders the table back to raw text. Missing values become absent cells;
// sentinels keep their label.
func (t Table) Raw() Raw {
	r := Raw{Header: t.Names(), Rows: make([][]Cell, t.rows)}
	for i := range r.Rows {
		row := make([]Cell, len(t.cols))
		for j, c := range t.cols {
			v := c.Values[i]
			if v.IsMissing() {
				row[j] = Null()
				continue
			}
			row[j] = Text(v.String())
		}
		r.Rows[i] = row
	}
	return r
}

// FromRaw wraps a raw batch as a table of String columns without any
// coercion. Absent cells become missing values.
func FromRaw(r Raw) (Table, error) {
	cols := make([]Column, len(r.Header))
	for j, h := range r.Header {
		vals := make([]Value, len(r.Rows))
		for i := range r.Rows {
			c := r.Cell(i, j)
			if c.Missing {
				vals[i] = Missing(String)
			} else {
				vals[i] = StringValue(c.Text)
			}
		}
		cols[j] = Column{Name: h, Kind: String, Values: vals}
	}
	return New(cols...)
}
