package window

import (
	"math"

	"tabjobs/internal/table"
)

// Spec describes a rolling column over a table.
type Spec struct {
	Column  string // numeric input column
	OrderBy string // column the table must be sorted by; empty skips the check
	Window  int
	Func    Func
	Output  string // defaults to Column + "_" + Func
	// Precision rounds the output; negative leaves it unrounded.
	Precision int
}

// Column appends the rolling aggregate described by s to t.
//
// When OrderBy is set the table must already be non-decreasing in that
// column (use table.SortBy); otherwise Column fails with table.ErrUnordered
// naming the first offending row. Missing cells in the input count as
// missing observations; windows without observations are missing in the
// output.
func Column(t table.Table, s Spec) (table.Table, error) {
	if s.Window < 1 {
		return table.Table{}, invalid(s.Window)
	}
	if s.OrderBy != "" {
		oc, err := t.Column(s.OrderBy)
		if err != nil {
			return table.Table{}, table.NotFound("rolling", s.OrderBy)
		}
		for i := 1; i < len(oc.Values); i++ {
			if oc.Values[i-1].Compare(oc.Values[i]) > 0 {
				return table.Table{}, &table.Error{Op: "rolling", Kind: table.ErrUnordered, Column: s.OrderBy, Row: i, Value: oc.Values[i].String()}
			}
		}
	}
	c, err := t.Column(s.Column)
	if err != nil {
		return table.Table{}, table.NotFound("rolling", s.Column)
	}
	if !c.Kind.Numeric() {
		return table.Table{}, table.Errorf("rolling", table.ErrInvalidExpression, s.Column, "%s column is not numeric", c.Kind)
	}
	fn := s.Func
	if fn == "" {
		fn = Mean
	}
	rolled, err := Rolling(c.Floats(), s.Window, fn)
	if err != nil {
		return table.Table{}, err
	}
	vals := make([]table.Value, len(rolled))
	for i, v := range rolled {
		if math.IsNaN(v) {
			vals[i] = table.Missing(table.Float)
			continue
		}
		vals[i] = table.FloatValue(table.Round(v, s.Precision))
	}
	name := s.Output
	if name == "" {
		name = s.Column + "_" + string(fn)
	}
	return t.WithColumn(table.Column{Name: name, Kind: table.Float, Values: vals})
}
