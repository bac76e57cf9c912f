package summary

import (
	"math"
	"slices"

	"tabjobs/internal/table"
)

// Share is one entry of a percentage distribution.
type Share struct {
	Label   string  `json:"label"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// PercentageDistribution returns the share of each distinct value of column,
// in percent rounded to two decimals, ordered by count descending and then
// by value. Missing values form the MissingLabel share. The percentages sum
// to 100 within the rounding tolerance of 0.01 per entry.
func PercentageDistribution(t table.Table, column string) ([]Share, error) {
	groups, err := GroupAggregate(t, column, "", Count, Order{})
	if err != nil {
		return nil, err
	}
	// groups is ascending by key; a stable sort by count keeps that as the
	// tie-break.
	slices.SortStableFunc(groups, func(a, b Group) int {
		switch {
		case a.Rows > b.Rows:
			return -1
		case a.Rows < b.Rows:
			return 1
		}
		return 0
	})
	total := t.NumRows()
	out := make([]Share, len(groups))
	for i, g := range groups {
		out[i] = Share{Label: g.Label, Count: g.Rows, Percent: table.Round(100*float64(g.Rows)/float64(total), 2)}
	}
	return out, nil
}

// Stats describes the valid values of a numeric column.
type Stats struct {
	Count   int     `json:"count"`
	Missing int     `json:"missing"`
	Sum     float64 `json:"sum"`
	Mean    float64 `json:"mean"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// Describe computes Stats over column. Mean, Min and Max are NaN when the
// column has no valid values.
func Describe(t table.Table, column string) (Stats, error) {
	c, err := t.Column(column)
	if err != nil {
		return Stats{}, table.NotFound("describe", column)
	}
	if !c.Kind.Numeric() {
		return Stats{}, table.Errorf("describe", table.ErrInvalidExpression, column, "%s column is not numeric", c.Kind)
	}
	s := Stats{Min: math.Inf(1), Max: math.Inf(-1)}
	for _, v := range c.Values {
		f, ok := v.Float()
		if !ok {
			s.Missing++
			continue
		}
		s.Count++
		s.Sum += f
		s.Min = math.Min(s.Min, f)
		s.Max = math.Max(s.Max, f)
	}
	if s.Count == 0 {
		s.Mean, s.Min, s.Max = math.NaN(), math.NaN(), math.NaN()
		return s, nil
	}
	s.Mean = s.Sum / float64(s.Count)
	return s, nil
}
