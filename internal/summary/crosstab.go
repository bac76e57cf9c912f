package summary

import (
	"math"

	"tabjobs/internal/table"
)

// TotalLabel names the totals row and column of a cross tabulation.
const TotalLabel = "Total"

// CrossSpec describes a two-way aggregation. Value may be empty for Count.
// RowOrder and ColOrder work like Order.Custom.
type CrossSpec struct {
	Row      string
	Col      string
	Value    string
	Func     Func
	RowOrder []string
	ColOrder []string
}

// CrossTab is a two-way aggregate with margins. Cells[i][j] aggregates the
// rows with Rows[i] and Cols[j]; combinations that never occur are 0 (NaN
// for Mean). Totals are sums of the non-NaN cells, so the grand total equals
// both the sum of the row totals and the sum of the column totals.
type CrossTab struct {
	RowKey    string      `json:"row_key"`
	ColKey    string      `json:"col_key"`
	Rows      []string    `json:"rows"`
	Cols      []string    `json:"cols"`
	Cells     [][]float64 `json:"cells"`
	RowTotals []float64   `json:"row_totals"`
	ColTotals []float64   `json:"col_totals"`
	Total     float64     `json:"total"`
	Func      Func        `json:"func"`
}

// CrossTabulate aggregates t by the pair of columns in s.
func CrossTabulate(t table.Table, s CrossSpec) (CrossTab, error) {
	rc, err := t.Column(s.Row)
	if err != nil {
		return CrossTab{}, table.NotFound("crosstab", s.Row)
	}
	cc, err := t.Column(s.Col)
	if err != nil {
		return CrossTab{}, table.NotFound("crosstab", s.Col)
	}
	fn := s.Func
	if fn == "" {
		fn = Count
	}
	vc, err := valueColumn(t, s.Value, fn)
	if err != nil {
		return CrossTab{}, err
	}

	// The margins order rows and columns the same way GroupAggregate does.
	rowGroups, err := GroupAggregate(t, s.Row, "", Count, Order{Custom: s.RowOrder})
	if err != nil {
		return CrossTab{}, err
	}
	colGroups, err := GroupAggregate(t, s.Col, "", Count, Order{Custom: s.ColOrder})
	if err != nil {
		return CrossTab{}, err
	}
	rowAt := positions(rowGroups)
	colAt := positions(colGroups)

	ct := CrossTab{
		RowKey: s.Row, ColKey: s.Col, Func: fn,
		Rows:      rowGroups.Labels(),
		Cols:      colGroups.Labels(),
		Cells:     make([][]float64, len(rowGroups)),
		RowTotals: make([]float64, len(rowGroups)),
		ColTotals: make([]float64, len(colGroups)),
	}
	counts := make([][]int, len(rowGroups))
	for i := range ct.Cells {
		ct.Cells[i] = make([]float64, len(colGroups))
		counts[i] = make([]int, len(colGroups))
	}

	var buf []byte
	for r := 0; r < t.NumRows(); r++ {
		buf = rc.Values[r].AppendKey(buf[:0])
		i := rowAt[string(buf)]
		buf = cc.Values[r].AppendKey(buf[:0])
		j := colAt[string(buf)]
		switch {
		case vc == nil:
			ct.Cells[i][j]++
		case fn == Count:
			if !vc.Values[r].IsMissing() {
				ct.Cells[i][j]++
			}
		default:
			if f, ok := vc.Values[r].Float(); ok {
				ct.Cells[i][j] += f
				counts[i][j]++
			}
		}
	}
	for i, row := range ct.Cells {
		for j := range row {
			if fn == Mean {
				if counts[i][j] == 0 {
					row[j] = math.NaN()
					continue
				}
				row[j] /= float64(counts[i][j])
			}
			ct.RowTotals[i] += row[j]
			ct.ColTotals[j] += row[j]
			ct.Total += row[j]
		}
	}
	return ct, nil
}

func positions(g Groups) map[string]int {
	out := make(map[string]int, len(g))
	for i, x := range g {
		out[string(x.key.AppendKey(nil))] = i
	}
	return out
}

// Table renders the cross tab with a leading label column, one column per
// Cols entry and a Total column, followed by a Total row. Count tabs have
// Int cells; other functions have Float cells.
func (c CrossTab) Table() table.Table {
	kind := table.Float
	if c.Func == Count {
		kind = table.Int
	}
	cell := func(f float64) table.Value {
		if kind == table.Int {
			return table.IntValue(int64(math.Round(f)))
		}
		return table.FloatValue(f)
	}

	n := len(c.Rows) + 1
	labels := make([]table.Value, 0, n)
	for _, r := range c.Rows {
		labels = append(labels, table.StringValue(r))
	}
	labels = append(labels, table.StringValue(TotalLabel))
	cols := []table.Column{{Name: c.RowKey, Kind: table.String, Values: labels}}

	for j, name := range c.Cols {
		vals := make([]table.Value, 0, n)
		for i := range c.Rows {
			vals = append(vals, cell(c.Cells[i][j]))
		}
		vals = append(vals, cell(c.ColTotals[j]))
		cols = append(cols, table.Column{Name: name, Kind: kind, Values: vals})
	}
	totals := make([]table.Value, 0, n)
	for i := range c.Rows {
		totals = append(totals, cell(c.RowTotals[i]))
	}
	totals = append(totals, cell(c.Total))
	cols = append(cols, table.Column{Name: TotalLabel, Kind: kind, Values: totals})

	out, err := table.New(cols...)
	if err != nil {
		// A column label equal to the row key or to Total collides; fall
		// back to qualified names.
		for j := 1; j < len(cols)-1; j++ {
			cols[j].Name = c.ColKey + "=" + cols[j].Name
		}
		out = table.MustNew(cols...)
	}
	return out
}
