package builtin

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabjobs/internal/schema"
	"tabjobs/internal/table"
)

func orders(t *testing.T) table.Table {
	t.Helper()
	out, err := Coerce(raw([]string{"product", "quantity", "price"},
		[]string{"Phone", "3", "10.005"},
		[]string{"Laptop", "x", "5"},
		[]string{"Phone", "2", "<nil>"},
		[]string{"Tablet", "4", "2.5"},
	), schema.New(
		schema.Column{Name: "product", Kind: table.Category},
		schema.Column{Name: "quantity", Kind: table.Int},
		schema.Column{Name: "price", Kind: table.Float},
	))
	require.NoError(t, err)
	return out
}

// TestDeriveRevenue verifies the derived column is rounded and that a
// missing operand yields a missing result.
func TestDeriveRevenue(t *testing.T) {
	t.Parallel()

	e, err := ParseExpr("revenue", "quantity * price", 2)
	require.NoError(t, err)
	out, err := Derive(orders(t), e)
	require.NoError(t, err)

	rev, err := out.Column("revenue")
	require.NoError(t, err)
	assert.Equal(t, table.Float, rev.Kind)
	assert.Equal(t, []string{"30.02", "", "", "10"}, rev.Strings())
}

func TestDeriveConstantsAndDivision(t *testing.T) {
	t.Parallel()

	e, err := ParseExpr("half", "price/0", -1)
	require.NoError(t, err)
	out, err := e.Apply(orders(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"", "", "", ""}, strs(t, out, "half"))

	e, err = ParseExpr("scaled", "price * 1e-1", -1)
	require.NoError(t, err)
	assert.Equal(t, Operand{Const: 0.1}, e.Right)
	assert.Equal(t, byte('*'), e.Op)

	e, err = ParseExpr("neg", "quantity*-1", 0)
	require.NoError(t, err)
	out, err = e.Apply(orders(t))
	require.NoError(t, err)
	assert.Equal(t, "-3", strs(t, out, "neg")[0])
}

func TestDeriveInvalid(t *testing.T) {
	t.Parallel()

	_, err := ParseExpr("x", "quantity", 2)
	require.ErrorIs(t, err, table.ErrInvalidExpression)

	e, _ := ParseExpr("x", "quantity * weight", 2)
	_, err = e.Apply(orders(t))
	require.ErrorIs(t, err, table.ErrInvalidExpression)

	e, _ = ParseExpr("x", "product + 1", 2)
	_, err = e.Apply(orders(t))
	require.ErrorIs(t, err, table.ErrInvalidExpression)
}

// TestEncodeFirstSeenAndRoundTrip verifies codes follow first-seen order,
// cover 0..k-1 and decode back to the original labels.
func TestEncodeFirstSeenAndRoundTrip(t *testing.T) {
	t.Parallel()

	in := orders(t)
	enc, m, err := Encode(in, "product", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Phone", "Laptop", "Tablet"}, m.Categories)
	assert.Equal(t, []string{"0", "1", "0", "2"}, strs(t, enc, "product"))

	dec, err := DecodeColumn(enc, m)
	require.NoError(t, err)
	assert.True(t, dec.Equal(in))
}

// TestEncodeUnknownCategory verifies an unseen label fails with the value
// and row index when an existing map is supplied.
func TestEncodeUnknownCategory(t *testing.T) {
	t.Parallel()

	m, err := NewEncodingMap("product", "Phone", "Laptop")
	require.NoError(t, err)
	_, _, err = Encode(orders(t), "product", m)
	require.ErrorIs(t, err, table.ErrUnknownCategory)

	var te *table.Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "Tablet", te.Value)
	assert.Equal(t, 3, te.Row)
}

func TestEncodingMapJSON(t *testing.T) {
	t.Parallel()

	m, err := NewEncodingMap("op", "Purchase", "Transfer")
	require.NoError(t, err)
	b, err := json.Marshal(m)
	require.NoError(t, err)

	var back EncodingMap
	require.NoError(t, json.Unmarshal(b, &back))
	code, ok := back.Code("Transfer")
	assert.True(t, ok)
	assert.Equal(t, 1, code)
	assert.Equal(t, map[string]int{"Purchase": 0, "Transfer": 1}, back.Mapping())

	_, err = NewEncodingMap("op", "a", "a")
	assert.Error(t, err)
}

// TestEncodingMapLiteral verifies a map built without NewEncodingMap is
// usable read-only and that duplicate categories still fail.
func TestEncodingMapLiteral(t *testing.T) {
	t.Parallel()

	m := &EncodingMap{Column: "product", Categories: []string{"Phone", "Laptop", "Tablet"}}
	code, ok := m.Code("Laptop")
	assert.True(t, ok)
	assert.Equal(t, 1, code)
	_, ok = m.Code("Watch")
	assert.False(t, ok)
	assert.Nil(t, m.index)

	enc, _, err := Encode(orders(t), "product", m)
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1", "0", "2"}, strs(t, enc, "product"))
	assert.Nil(t, m.index)

	dup := &EncodingMap{Column: "product", Categories: []string{"Phone", "Phone", "Laptop", "Tablet"}}
	_, _, err = Encode(orders(t), "product", dup)
	assert.ErrorIs(t, err, table.ErrShape)
}

// TestScaleBounds verifies every scaled value is in [0,1], the minimum maps
// to 0 and the maximum to 1.
func TestScaleBounds(t *testing.T) {
	t.Parallel()

	out, p, err := Scale(orders(t), []string{"quantity", "price"}, nil)
	require.NoError(t, err)
	assert.Equal(t, Range{Min: 2, Max: 4}, p.Ranges["quantity"])
	assert.Equal(t, []string{"0.5", "", "0", "1"}, strs(t, out, "quantity"))

	price, _ := out.Column("price")
	for _, v := range price.Values {
		if f, ok := v.Float(); ok {
			assert.GreaterOrEqual(t, f, 0.0)
			assert.LessOrEqual(t, f, 1.0)
		}
	}
	assert.Equal(t, "1", price.Values[0].String())
	assert.Equal(t, "0", price.Values[3].String())
}

// TestScaleClampsWithFittedParams verifies values outside a fitted range
// clamp to the unit interval.
func TestScaleClampsWithFittedParams(t *testing.T) {
	t.Parallel()

	p := ScalingParams{Ranges: map[string]Range{"quantity": {Min: 3, Max: 3.5}}}
	out, _, err := Scale(orders(t), []string{"quantity"}, &p)
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "", "0", "1"}, strs(t, out, "quantity"))
}

func TestScaleDegenerate(t *testing.T) {
	t.Parallel()

	tb := table.MustNew(table.Column{Name: "v", Kind: table.Float, Values: []table.Value{
		table.FloatValue(2), table.FloatValue(2), table.Missing(table.Float),
	}})
	_, err := FitScaling(tb, "v")
	require.ErrorIs(t, err, table.ErrDegenerateRange)
	var te *table.Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "v", te.Column)
}
