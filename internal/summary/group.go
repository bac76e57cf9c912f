// Package summary reduces typed tables to grouped aggregates, cross
// tabulations and percentage distributions.
//
// Missing values are never dropped silently: a missing grouping value forms
// its own group labelled MissingLabel, ordered after every other group.
package summary

import (
	"cmp"
	"math"
	"slices"

	"tabjobs/internal/table"
)

// MissingLabel labels the group of missing grouping values.
const MissingLabel = "(missing)"

// Func is an aggregate function.
type Func string

const (
	Sum   Func = "sum"
	Count Func = "count"
	Mean  Func = "mean"
)

// Order controls the order of groups.
//
// By default groups are ascending by key. Custom lists labels that come
// first, in that order; labels not listed follow in ascending order. ByValue
// sorts by the aggregate instead of the key. Descending reverses the
// ascending part. Missing groups are always last.
type Order struct {
	Custom     []string
	ByValue    bool
	Descending bool
}

// Group is one aggregated group.
type Group struct {
	Label   string  `json:"label"`
	Missing bool    `json:"missing,omitempty"`
	Value   float64 `json:"value"`
	Rows    int     `json:"rows"`

	key table.Value
}

// Groups is an ordered aggregate result.
type Groups []Group

// Labels returns the group labels in order.
func (g Groups) Labels() []string {
	out := make([]string, len(g))
	for i, x := range g {
		out[i] = x.Label
	}
	return out
}

// Values returns the aggregates in order.
func (g Groups) Values() []float64 {
	out := make([]float64, len(g))
	for i, x := range g {
		out[i] = x.Value
	}
	return out
}

// Table renders the groups as a two-column table.
func (g Groups) Table(keyName, valueName string) table.Table {
	keys := make([]table.Value, len(g))
	vals := make([]table.Value, len(g))
	for i, x := range g {
		keys[i] = table.StringValue(x.Label)
		vals[i] = table.FloatValue(x.Value)
	}
	return table.MustNew(
		table.Column{Name: keyName, Kind: table.String, Values: keys},
		table.Column{Name: valueName, Kind: table.Float, Values: vals},
	)
}

// GroupAggregate groups t by the group column and aggregates the value
// column with fn. The result holds every distinct grouping value present,
// exactly once.
//
// Count counts rows when value is empty and non-missing cells otherwise.
// Sum over a group without valid values is 0; Mean is NaN.
func GroupAggregate(t table.Table, group, value string, fn Func, order Order) (Groups, error) {
	gc, err := t.Column(group)
	if err != nil {
		return nil, table.NotFound("aggregate", group)
	}
	vc, err := valueColumn(t, value, fn)
	if err != nil {
		return nil, err
	}

	type acc struct {
		Group
		sum float64
		n   int
	}
	var (
		accs  []*acc
		index = make(map[string]int)
		buf   []byte
	)
	for i, k := range gc.Values {
		buf = k.AppendKey(buf[:0])
		gi, ok := index[string(buf)]
		if !ok {
			gi = len(accs)
			index[string(buf)] = gi
			label := k.String()
			if k.IsMissing() {
				label = MissingLabel
			}
			accs = append(accs, &acc{Group: Group{Label: label, Missing: k.IsMissing(), key: k}})
		}
		a := accs[gi]
		a.Rows++
		if vc == nil {
			a.n++
			continue
		}
		if fn == Count {
			if !vc.Values[i].IsMissing() {
				a.n++
			}
			continue
		}
		if f, ok := vc.Values[i].Float(); ok {
			a.sum += f
			a.n++
		}
	}

	out := make(Groups, len(accs))
	for i, a := range accs {
		switch fn {
		case Count:
			a.Value = float64(a.n)
		case Mean:
			a.Value = math.NaN()
			if a.n > 0 {
				a.Value = a.sum / float64(a.n)
			}
		default:
			a.Value = a.sum
		}
		out[i] = a.Group
	}
	sortGroups(out, order)
	return out, nil
}

func valueColumn(t table.Table, value string, fn Func) (*table.Column, error) {
	switch fn {
	case Sum, Mean, Count:
	default:
		return nil, table.Errorf("aggregate", table.ErrInvalidExpression, value, "unknown function %q", fn)
	}
	if value == "" {
		if fn != Count {
			return nil, table.Errorf("aggregate", table.ErrInvalidExpression, "", "%s needs a value column", fn)
		}
		return nil, nil
	}
	c, err := t.Column(value)
	if err != nil {
		return nil, table.NotFound("aggregate", value)
	}
	if fn != Count && !c.Kind.Numeric() {
		return nil, table.Errorf("aggregate", table.ErrInvalidExpression, value, "cannot %s a %s column", fn, c.Kind)
	}
	return &c, nil
}

func sortGroups(g Groups, o Order) {
	rank := customRank(o.Custom)
	slices.SortStableFunc(g, func(a, b Group) int {
		if a.Missing != b.Missing {
			if a.Missing {
				return 1
			}
			return -1
		}
		ra, aok := rank[a.Label]
		rb, bok := rank[b.Label]
		switch {
		case aok && bok:
			return cmp.Compare(ra, rb)
		case aok:
			return -1
		case bok:
			return 1
		}
		var c int
		if o.ByValue {
			c = compareFloat(a.Value, b.Value)
			if c == 0 {
				c = a.key.Compare(b.key)
			}
		} else {
			c = a.key.Compare(b.key)
		}
		if o.Descending {
			c = -c
		}
		return c
	})
}

func customRank(labels []string) map[string]int {
	rank := make(map[string]int, len(labels))
	for i, l := range labels {
		if _, dup := rank[l]; !dup {
			rank[l] = i
		}
	}
	return rank
}

// compareFloat orders NaN after every number.
func compareFloat(a, b float64) int {
	an, bn := math.IsNaN(a), math.IsNaN(b)
	switch {
	case an && bn:
		return 0
	case an:
		return 1
	case bn:
		return -1
	}
	return cmp.Compare(a, b)
}
