package builtin

import (
	"fmt"
	"sort"

	"tabjobs/internal/schema"
	"tabjobs/internal/table"
)

// Action is what a missing-value rule does with a missing cell.
type Action string

const (
	ActionReplace Action = "replace"
	ActionDrop    Action = "drop"
)

// Rule is the missing-value rule for one column.
type Rule struct {
	Action  Action `json:"action" yaml:"action"`
	Literal string `json:"literal,omitempty" yaml:"literal,omitempty"`
}

// Replace fills missing cells with lit.
func Replace(lit string) Rule { return Rule{Action: ActionReplace, Literal: lit} }

// DropRow removes rows whose cell is missing.
func DropRow() Rule { return Rule{Action: ActionDrop} }

// MissingPolicy maps column names to rules. Columns without a rule are left
// untouched.
type MissingPolicy map[string]Rule

// FillNullable builds a policy that replaces missing cells with lit in every
// column s declares nullable.
func FillNullable(s schema.Schema, lit string) MissingPolicy {
	p := make(MissingPolicy)
	for _, n := range s.Nullable() {
		p[n] = Replace(lit)
	}
	return p
}

// ResolveMissing applies p to t.
//
// A replacement keeps the column's kind: the literal is parsed as that kind,
// and when it does not parse (e.g. "N/A" in an int column) the cell becomes a
// sentinel labelled with the literal. A sentinel never reads as a number.
// Sentinels already present are not touched; only missing cells are.
func ResolveMissing(t table.Table, p MissingPolicy) (table.Table, error) {
	names := make([]string, 0, len(p))
	for n := range p {
		names = append(names, n)
	}
	sort.Strings(names)

	out := t
	var drop []table.Column
	for _, n := range names {
		c, err := out.Column(n)
		if err != nil {
			return table.Table{}, table.NotFound("missing", n)
		}
		rule := p[n]
		switch rule.Action {
		case ActionDrop:
			drop = append(drop, c)
		case ActionReplace:
			fill, ok := parseCell(rule.Literal, schema.Column{Name: n, Kind: c.Kind})
			if !ok {
				fill = table.Sentinel(c.Kind, rule.Literal)
			}
			vals := make([]table.Value, len(c.Values))
			for i, v := range c.Values {
				if v.IsMissing() {
					v = fill
				}
				vals[i] = v
			}
			if out, err = out.WithColumn(table.Column{Name: n, Kind: c.Kind, Values: vals}); err != nil {
				return table.Table{}, err
			}
		default:
			return table.Table{}, table.Errorf("missing", table.ErrInvalidExpression, n, "unknown action %q", rule.Action)
		}
	}
	if len(drop) == 0 {
		return out, nil
	}
	return out.Filter(func(r int) bool {
		for _, c := range drop {
			if c.Values[r].IsMissing() {
				return false
			}
		}
		return true
	}), nil
}

// DropMissing removes rows with a missing value in any of the columns.
func DropMissing(t table.Table, columns ...string) (table.Table, error) {
	p := make(MissingPolicy, len(columns))
	for _, c := range columns {
		p[c] = DropRow()
	}
	return ResolveMissing(t, p)
}

// FillMissing applies a MissingPolicy as a chain step.
type FillMissing struct{ Policy MissingPolicy }

func (f FillMissing) Apply(t table.Table) (table.Table, error) { return ResolveMissing(t, f.Policy) }

// CountMissing returns the number of missing cells per column, in column
// order. Sentinels are not counted.
func CountMissing(t table.Table) []MissingCount {
	out := make([]MissingCount, 0, t.NumCols())
	for _, c := range t.Columns() {
		n := 0
		for _, v := range c.Values {
			if v.IsMissing() {
				n++
			}
		}
		out = append(out, MissingCount{Column: c.Name, Missing: n})
	}
	return out
}

// MissingCount is one entry of CountMissing.
type MissingCount struct {
	Column  string `json:"column"`
	Missing int    `json:"missing"`
}

func (m MissingCount) String() string { return fmt.Sprintf("%s=%d", m.Column, m.Missing) }
