package builtin

import (
	"strings"

	"tabjobs/internal/table"
)

// Mask hides the head of a text value. For "user7@example.com" with Keep 1,
// Char '*' and Sep "@" the result is "u****@example.com".
//
// Only the part before the first Sep is masked. A value without Sep is left
// as is, so fill literals such as "N/A" pass through; with Sep set to NoSep
// the whole value is masked. A part no longer than Keep is masked entirely,
// and an empty part becomes a single Char.
// Missing and sentinel cells are untouched.
type Mask struct {
	Column string
	Keep   int
	Char   rune   // defaults to '*'
	Sep    string // defaults to "@"; set NoSep to mask whole values
}

// NoSep as Mask.Sep masks the whole value.
const NoSep = "\x00"

func (m Mask) Apply(t table.Table) (table.Table, error) {
	c, err := t.Column(m.Column)
	if err != nil {
		return table.Table{}, table.NotFound("mask", m.Column)
	}
	if c.Kind != table.String && c.Kind != table.Category {
		return table.Table{}, table.Errorf("mask", table.ErrInvalidExpression, m.Column, "cannot mask a %s column", c.Kind)
	}
	vals := make([]table.Value, len(c.Values))
	for i, v := range c.Values {
		if !v.IsValid() {
			vals[i] = v
			continue
		}
		masked := m.mask(v.String())
		if c.Kind == table.Category {
			vals[i] = table.CategoryValue(masked)
		} else {
			vals[i] = table.StringValue(masked)
		}
	}
	return t.WithColumn(table.Column{Name: c.Name, Kind: c.Kind, Values: vals})
}

func (m Mask) mask(s string) string {
	ch := m.Char
	if ch == 0 {
		ch = '*'
	}
	sep := m.Sep
	if sep == "" {
		sep = "@"
	}
	head, tail := s, ""
	if sep != NoSep {
		i := strings.Index(s, sep)
		if i < 0 {
			return s
		}
		head, tail = s[:i], s[i:]
	}
	r := []rune(head)
	keep := max(m.Keep, 0)
	if len(r) <= keep {
		keep = 0
	}
	if len(r) == 0 {
		if tail == "" {
			return s
		}
		return string(ch) + tail
	}
	return string(r[:keep]) + strings.Repeat(string(ch), len(r)-keep) + tail
}
