package builtin

import (
	"encoding/json"
	"fmt"
	"slices"

	"tabjobs/internal/table"
)

// EncodingMap is a bijection between the category labels of one column and
// the integer codes 0..n-1. Codes follow first-seen order in the table the
// map was fitted on.
type EncodingMap struct {
	Column     string   `json:"column"`
	Categories []string `json:"categories"`

	index map[string]int
}

// NewEncodingMap builds a map with codes in the order given.
func NewEncodingMap(column string, categories ...string) (*EncodingMap, error) {
	m := &EncodingMap{Column: column, Categories: categories}
	if err := m.reindex(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *EncodingMap) reindex() error {
	idx, err := buildIndex(m.Column, m.Categories)
	if err != nil {
		return err
	}
	m.index = idx
	return nil
}

func buildIndex(column string, categories []string) (map[string]int, error) {
	idx := make(map[string]int, len(categories))
	for i, c := range categories {
		if _, dup := idx[c]; dup {
			return nil, table.Errorf("encode", table.ErrShape, column, "duplicate category %q", c)
		}
		idx[c] = i
	}
	return idx, nil
}

// lookup returns the label index without modifying m. A map built as a
// literal gets a fresh index, checked for duplicates.
func (m *EncodingMap) lookup() (map[string]int, error) {
	if m.index != nil {
		return m.index, nil
	}
	return buildIndex(m.Column, m.Categories)
}

// UnmarshalJSON restores a persisted map and its lookup index.
func (m *EncodingMap) UnmarshalJSON(b []byte) error {
	type plain EncodingMap
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*m = EncodingMap(p)
	return m.reindex()
}

// Len returns the number of categories.
func (m *EncodingMap) Len() int { return len(m.Categories) }

// Code returns the code of label. It never modifies m, so a map may be
// shared by concurrent pipelines.
func (m *EncodingMap) Code(label string) (int, bool) {
	if m.index == nil {
		i := slices.Index(m.Categories, label)
		return i, i >= 0
	}
	c, ok := m.index[label]
	return c, ok
}

// Label returns the label of code.
func (m *EncodingMap) Label(code int) (string, bool) {
	if code < 0 || code >= len(m.Categories) {
		return "", false
	}
	return m.Categories[code], true
}

// Mapping returns label -> code, the shape written to mapping artifacts.
func (m *EncodingMap) Mapping() map[string]int {
	out := make(map[string]int, len(m.Categories))
	for i, c := range m.Categories {
		out[c] = i
	}
	return out
}

// FitEncoding collects the distinct labels of column in first-seen order.
// Missing and sentinel cells are not categories.
func FitEncoding(t table.Table, column string) (*EncodingMap, error) {
	c, err := t.Column(column)
	if err != nil {
		return nil, table.NotFound("encode", column)
	}
	m := &EncodingMap{Column: column, index: make(map[string]int)}
	for _, v := range c.Values {
		if !v.IsValid() {
			continue
		}
		s := v.String()
		if _, ok := m.index[s]; ok {
			continue
		}
		m.index[s] = len(m.Categories)
		m.Categories = append(m.Categories, s)
	}
	return m, nil
}

// ApplyEncoding replaces m.Column with its Int codes. A label not in m fails
// with table.ErrUnknownCategory naming the value and row. Missing and
// sentinel cells become missing codes.
func ApplyEncoding(t table.Table, m *EncodingMap) (table.Table, error) {
	c, err := t.Column(m.Column)
	if err != nil {
		return table.Table{}, table.NotFound("encode", m.Column)
	}
	idx, err := m.lookup()
	if err != nil {
		return table.Table{}, err
	}
	vals := make([]table.Value, len(c.Values))
	for i, v := range c.Values {
		if !v.IsValid() {
			vals[i] = table.Missing(table.Int)
			continue
		}
		code, ok := idx[v.String()]
		if !ok {
			return table.Table{}, &table.Error{
				Op: "encode", Kind: table.ErrUnknownCategory, Column: m.Column, Row: i, Value: v.String(),
				Msg: fmt.Sprintf("not among %d known categories", m.Len()),
			}
		}
		vals[i] = table.IntValue(int64(code))
	}
	return t.WithColumn(table.Column{Name: m.Column, Kind: table.Int, Values: vals})
}

// Encode encodes column with m, fitting a new map first when m is nil. It
// returns the encoded table and the map used.
func Encode(t table.Table, column string, m *EncodingMap) (table.Table, *EncodingMap, error) {
	if m == nil {
		var err error
		if m, err = FitEncoding(t, column); err != nil {
			return table.Table{}, nil, err
		}
	} else if m.Column != column {
		return table.Table{}, nil, table.Errorf("encode", table.ErrInvalidExpression, column, "map was fitted on %q", m.Column)
	}
	out, err := ApplyEncoding(t, m)
	if err != nil {
		return table.Table{}, nil, err
	}
	return out, m, nil
}

// DecodeColumn maps the Int codes of m.Column back to Category labels.
func DecodeColumn(t table.Table, m *EncodingMap) (table.Table, error) {
	c, err := t.Column(m.Column)
	if err != nil {
		return table.Table{}, table.NotFound("decode", m.Column)
	}
	vals := make([]table.Value, len(c.Values))
	for i, v := range c.Values {
		code, ok := v.Int()
		if !ok {
			vals[i] = table.Missing(table.Category)
			continue
		}
		label, ok := m.Label(int(code))
		if !ok {
			return table.Table{}, &table.Error{Op: "decode", Kind: table.ErrUnknownCategory, Column: m.Column, Row: i, Value: v.String()}
		}
		vals[i] = table.CategoryValue(label)
	}
	return t.WithColumn(table.Column{Name: m.Column, Kind: table.Category, Values: vals})
}
