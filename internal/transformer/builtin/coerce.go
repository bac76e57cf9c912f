// Package builtin contains the reusable table steps: schema coercion,
// cleaning (dedup, missing values, masking) and feature transforms (derived
// columns, categorical encoding, min-max scaling).
package builtin

import (
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"tabjobs/internal/schema"
	"tabjobs/internal/table"
)

// canonicalLayouts are tried after a column's own layouts. The first two are
// what table.FormatDate emits, so coerced output re-coerces unchanged.
var canonicalLayouts = []string{
	table.DateLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// newCleaner returns a fresh text normalizer: NFC composition and
// non-breaking spaces folded to plain spaces. Transformers are stateful, so
// each Coerce call gets its own.
func newCleaner() transform.Transformer {
	return transform.Chain(
		norm.NFC,
		runes.Map(func(r rune) rune {
			if r == '\u00a0' || r == '\u202f' {
				return ' '
			}
			return r
		}),
	)
}

// Coerce converts a raw batch into a typed table following s.
//
// Declared columns come first in schema order, renamed from their source
// header; undeclared raw columns follow as String columns. Cells whose text
// is in the schema's missing set become the missing marker. A cell that does
// not parse is handled per column policy: missing (default), drop the row,
// or fail with table.ErrCoercion naming the column, row and value.
//
// A declared column absent from the raw header fails with
// table.ErrKeyNotFound; an undeclared raw column named like a declared
// column fails with table.ErrShape. An empty batch yields an empty table with the
// declared columns.
func Coerce(raw table.Raw, s schema.Schema) (table.Table, error) {
	if err := s.Validate(); err != nil {
		return table.Table{}, table.Errorf("coerce", table.ErrCoercion, "", "%v", err)
	}

	src := make([]int, len(s.Columns))
	used := make(map[int]struct{}, len(s.Columns))
	declared := make(map[string]struct{}, len(s.Columns))
	for j, c := range s.Columns {
		idx := raw.Index(c.SourceName())
		if idx < 0 {
			return table.Table{}, table.NotFound("coerce", c.SourceName())
		}
		src[j] = idx
		used[idx] = struct{}{}
		declared[c.Name] = struct{}{}
	}
	var extra []int
	for idx, h := range raw.Header {
		if _, ok := used[idx]; ok {
			continue
		}
		if _, clash := declared[h]; clash {
			return table.Table{}, table.Errorf("coerce", table.ErrShape, h, "raw column %d clashes with a declared column name", idx)
		}
		extra = append(extra, idx)
	}

	missing := s.MissingSet()
	clean := newCleaner()
	text := func(c table.Cell) (string, bool) {
		if c.Missing {
			return "", false
		}
		out, _, err := transform.String(clean, c.Text)
		if err != nil {
			out = c.Text
		}
		out = strings.TrimSpace(out)
		if _, ok := missing[out]; ok {
			return "", false
		}
		return out, true
	}

	vals := make([][]table.Value, len(s.Columns)+len(extra))
	row := make([]table.Value, len(vals))
rows:
	for i := range raw.Rows {
		for j, c := range s.Columns {
			txt, ok := text(raw.Cell(i, src[j]))
			if !ok {
				row[j] = table.Missing(c.Kind)
				continue
			}
			v, ok := parseCell(txt, c)
			if ok {
				row[j] = v
				continue
			}
			switch c.Policy() {
			case schema.OnErrorDrop:
				continue rows
			case schema.OnErrorFail:
				return table.Table{}, &table.Error{
					Op: "coerce", Kind: table.ErrCoercion, Column: c.Name, Row: i, Value: txt,
					Msg: "not a valid " + c.Kind.String(),
				}
			default:
				row[j] = table.Missing(c.Kind)
			}
		}
		for k, idx := range extra {
			txt, ok := text(raw.Cell(i, idx))
			if !ok {
				row[len(s.Columns)+k] = table.Missing(table.String)
			} else {
				row[len(s.Columns)+k] = table.StringValue(txt)
			}
		}
		for j := range vals {
			vals[j] = append(vals[j], row[j])
		}
	}

	cols := make([]table.Column, 0, len(vals))
	for j, c := range s.Columns {
		cols = append(cols, table.Column{Name: c.Name, Kind: c.Kind, Values: orEmpty(vals[j])})
	}
	for k, idx := range extra {
		cols = append(cols, table.Column{Name: raw.Header[idx], Kind: table.String, Values: orEmpty(vals[len(s.Columns)+k])})
	}
	return table.New(cols...)
}

// CoerceTable re-coerces an already typed table by rendering it back to raw
// text. Coerce output re-coerces to an equal table.
func CoerceTable(t table.Table, s schema.Schema) (table.Table, error) {
	byName := schema.Schema{Missing: s.Missing, Columns: make([]schema.Column, len(s.Columns))}
	for i, c := range s.Columns {
		c.Source = ""
		byName.Columns[i] = c
	}
	return Coerce(t.Raw(), byName)
}

// CoerceStep re-coerces a typed table as part of a chain.
type CoerceStep struct{ Schema schema.Schema }

func (c CoerceStep) Apply(t table.Table) (table.Table, error) { return CoerceTable(t, c.Schema) }

func parseCell(s string, c schema.Column) (table.Value, bool) {
	switch c.Kind {
	case table.String:
		return table.StringValue(s), true
	case table.Category:
		return table.CategoryValue(s), true
	case table.Int:
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return table.IntValue(n), true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) || math.Abs(f) > 1<<53 {
			return table.Value{}, false
		}
		return table.IntValue(int64(f)), true
	case table.Float:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return table.Value{}, false
		}
		return table.FloatValue(f), true
	case table.Date:
		for _, l := range c.Layouts {
			if t, err := time.Parse(l, s); err == nil {
				return table.DateValue(t), true
			}
		}
		for _, l := range canonicalLayouts {
			if t, err := time.Parse(l, s); err == nil {
				return table.DateValue(t), true
			}
		}
	}
	return table.Value{}, false
}

func orEmpty(v []table.Value) []table.Value {
	if v == nil {
		return []table.Value{}
	}
	return v
}
