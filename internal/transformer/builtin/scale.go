package builtin

import (
	"math"

	"tabjobs/internal/table"
)

// Range is the observed [Min, Max] of a column.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ScalingParams holds the fitted ranges of min-max scaling.
type ScalingParams struct {
	Columns []string         `json:"columns"`
	Ranges  map[string]Range `json:"ranges"`
}

// FitScaling records min and max of each column over its valid values. A
// column with no valid values or a single distinct value fails with
// table.ErrDegenerateRange.
func FitScaling(t table.Table, columns ...string) (ScalingParams, error) {
	p := ScalingParams{Columns: columns, Ranges: make(map[string]Range, len(columns))}
	for _, name := range columns {
		c, err := numericColumn(t, "scale", name)
		if err != nil {
			return ScalingParams{}, err
		}
		r := Range{Min: math.Inf(1), Max: math.Inf(-1)}
		for _, v := range c.Values {
			f, ok := v.Float()
			if !ok {
				continue
			}
			r.Min = math.Min(r.Min, f)
			r.Max = math.Max(r.Max, f)
		}
		if err := checkRange(name, r); err != nil {
			return ScalingParams{}, err
		}
		p.Ranges[name] = r
	}
	return p, nil
}

// ApplyScaling maps each column to (v-min)/(max-min) as Float. Values outside
// the fitted range clamp to [0, 1]. Missing and sentinel cells stay missing.
func ApplyScaling(t table.Table, p ScalingParams) (table.Table, error) {
	out := t
	for _, name := range p.Columns {
		c, err := numericColumn(t, "scale", name)
		if err != nil {
			return table.Table{}, err
		}
		r, ok := p.Ranges[name]
		if !ok {
			return table.Table{}, table.Errorf("scale", table.ErrKeyNotFound, name, "no fitted range")
		}
		if err := checkRange(name, r); err != nil {
			return table.Table{}, err
		}
		width := r.Max - r.Min
		vals := make([]table.Value, len(c.Values))
		for i, v := range c.Values {
			f, ok := v.Float()
			if !ok {
				vals[i] = table.Missing(table.Float)
				continue
			}
			vals[i] = table.FloatValue(min(max((f-r.Min)/width, 0), 1))
		}
		if out, err = out.WithColumn(table.Column{Name: name, Kind: table.Float, Values: vals}); err != nil {
			return table.Table{}, err
		}
	}
	return out, nil
}

// Scale scales columns with p, fitting new parameters first when p is nil.
func Scale(t table.Table, columns []string, p *ScalingParams) (table.Table, ScalingParams, error) {
	var params ScalingParams
	if p == nil {
		var err error
		if params, err = FitScaling(t, columns...); err != nil {
			return table.Table{}, ScalingParams{}, err
		}
	} else {
		params = ScalingParams{Columns: columns, Ranges: p.Ranges}
	}
	out, err := ApplyScaling(t, params)
	if err != nil {
		return table.Table{}, ScalingParams{}, err
	}
	return out, params, nil
}

func checkRange(name string, r Range) error {
	if math.IsInf(r.Min, 0) || math.IsInf(r.Max, 0) {
		return table.Errorf("scale", table.ErrDegenerateRange, name, "no numeric values")
	}
	if r.Max <= r.Min {
		return table.Errorf("scale", table.ErrDegenerateRange, name, "min %v equals max %v", r.Min, r.Max)
	}
	return nil
}

func numericColumn(t table.Table, op, name string) (table.Column, error) {
	c, err := t.Column(name)
	if err != nil {
		return table.Column{}, table.NotFound(op, name)
	}
	if !c.Kind.Numeric() {
		return table.Column{}, table.Errorf(op, table.ErrInvalidExpression, name, "%s column is not numeric", c.Kind)
	}
	return c, nil
}
