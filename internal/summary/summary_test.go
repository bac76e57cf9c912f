package summary

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabjobs/internal/table"
)

func cats(vs ...string) []table.Value {
	out := make([]table.Value, len(vs))
	for i, v := range vs {
		if v == "" {
			out[i] = table.Missing(table.Category)
		} else {
			out[i] = table.CategoryValue(v)
		}
	}
	return out
}

func floats(vs ...float64) []table.Value {
	out := make([]table.Value, len(vs))
	for i, v := range vs {
		out[i] = table.FloatValue(v)
	}
	return out
}

func incidents() table.Table {
	return table.MustNew(
		table.Column{Name: "attack", Kind: table.Category, Values: cats("Virus", "DDoS", "Virus", "Phishing", "DDoS", "Virus", "")},
		table.Column{Name: "severity", Kind: table.Category, Values: cats("High", "Low", "Low", "Medium", "Critical", "High", "Low")},
	)
}

func sales() table.Table {
	return table.MustNew(
		table.Column{Name: "product", Kind: table.Category, Values: cats("Phone", "Laptop", "Phone", "Tablet", "")},
		table.Column{Name: "revenue", Kind: table.Float, Values: floats(100, 900, 50, math.NaN(), 10)},
	)
}

// TestGroupAggregateSum verifies every distinct value appears once, the
// missing group is last, and groups are ascending by default.
func TestGroupAggregateSum(t *testing.T) {
	t.Parallel()

	g, err := GroupAggregate(sales(), "product", "revenue", Sum, Order{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Laptop", "Phone", "Tablet", MissingLabel}, g.Labels())
	assert.Equal(t, []float64{900, 150, 0, 10}, g.Values())
	assert.True(t, g[3].Missing)
}

func TestGroupAggregateByValue(t *testing.T) {
	t.Parallel()

	g, err := GroupAggregate(sales(), "product", "revenue", Sum, Order{ByValue: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"Tablet", "Phone", "Laptop", MissingLabel}, g.Labels())

	g, err = GroupAggregate(sales(), "product", "revenue", Sum, Order{ByValue: true, Descending: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"Laptop", "Phone", "Tablet", MissingLabel}, g.Labels())
}

func TestGroupAggregateMeanAndCount(t *testing.T) {
	t.Parallel()

	mean, err := GroupAggregate(sales(), "product", "revenue", Mean, Order{})
	require.NoError(t, err)
	assert.Equal(t, 75.0, mean[1].Value)
	assert.True(t, math.IsNaN(mean[2].Value), "all-missing group mean is NaN")

	count, err := GroupAggregate(sales(), "product", "revenue", Count, Order{})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 0, 1}, count.Values())

	rows, err := GroupAggregate(sales(), "product", "", Count, Order{})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 1, 1}, rows.Values())
}

// TestGroupAggregateCustomOrder verifies a configured order comes first and
// unexpected values follow instead of disappearing.
func TestGroupAggregateCustomOrder(t *testing.T) {
	t.Parallel()

	g, err := GroupAggregate(incidents(), "severity", "", Count, Order{Custom: []string{"Low", "Medium", "High"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Low", "Medium", "High", "Critical"}, g.Labels())
	assert.Equal(t, []float64{3, 1, 2, 1}, g.Values())

	var total float64
	for _, v := range g.Values() {
		total += v
	}
	assert.Equal(t, float64(incidents().NumRows()), total)
}

func TestGroupAggregateErrors(t *testing.T) {
	t.Parallel()

	_, err := GroupAggregate(sales(), "nope", "revenue", Sum, Order{})
	require.ErrorIs(t, err, table.ErrKeyNotFound)
	_, err = GroupAggregate(sales(), "product", "nope", Sum, Order{})
	require.ErrorIs(t, err, table.ErrKeyNotFound)
	_, err = GroupAggregate(sales(), "revenue", "product", Sum, Order{})
	require.ErrorIs(t, err, table.ErrInvalidExpression)
}

// TestCrossTabulateTotals verifies margins are consistent: the grand total
// equals the sum of row totals and of column totals, and equals the row
// count for a count tab.
func TestCrossTabulateTotals(t *testing.T) {
	t.Parallel()

	ct, err := CrossTabulate(incidents(), CrossSpec{
		Row: "attack", Col: "severity", Func: Count,
		ColOrder: []string{"Low", "Medium", "High"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"DDoS", "Phishing", "Virus", MissingLabel}, ct.Rows)
	assert.Equal(t, []string{"Low", "Medium", "High", "Critical"}, ct.Cols)
	assert.Equal(t, []float64{1, 0, 0, 1}, ct.Cells[0])
	assert.Equal(t, []float64{1, 0, 2, 0}, ct.Cells[2])

	var rows, cols float64
	for _, v := range ct.RowTotals {
		rows += v
	}
	for _, v := range ct.ColTotals {
		cols += v
	}
	assert.Equal(t, ct.Total, rows)
	assert.Equal(t, ct.Total, cols)
	assert.Equal(t, 7.0, ct.Total)
}

func TestCrossTabTable(t *testing.T) {
	t.Parallel()

	ct, err := CrossTabulate(incidents(), CrossSpec{Row: "attack", Col: "severity"})
	require.NoError(t, err)
	tb := ct.Table()
	assert.Equal(t, []string{"attack", "Critical", "High", "Low", "Medium", TotalLabel}, tb.Names())
	assert.Equal(t, 5, tb.NumRows())

	total, err := tb.Column(TotalLabel)
	require.NoError(t, err)
	assert.Equal(t, table.Int, total.Kind)
	assert.Equal(t, []string{"2", "1", "3", "1", "7"}, total.Strings())
}

func TestCrossTabSum(t *testing.T) {
	t.Parallel()

	tb := table.MustNew(
		table.Column{Name: "r", Kind: table.Category, Values: cats("a", "a", "b")},
		table.Column{Name: "c", Kind: table.Category, Values: cats("x", "y", "x")},
		table.Column{Name: "v", Kind: table.Float, Values: floats(1.5, 2, 4)},
	)
	ct, err := CrossTabulate(tb, CrossSpec{Row: "r", Col: "c", Value: "v", Func: Sum})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1.5, 2}, {4, 0}}, ct.Cells)
	assert.Equal(t, 7.5, ct.Total)
}

// TestPercentageDistribution verifies rounding, ordering and the sum
// tolerance.
func TestPercentageDistribution(t *testing.T) {
	t.Parallel()

	shares, err := PercentageDistribution(incidents(), "attack")
	require.NoError(t, err)
	require.Len(t, shares, 4)
	assert.Equal(t, Share{Label: "Virus", Count: 3, Percent: 42.86}, shares[0])
	assert.Equal(t, Share{Label: "DDoS", Count: 2, Percent: 28.57}, shares[1])
	assert.Equal(t, "Phishing", shares[2].Label)
	assert.Equal(t, MissingLabel, shares[3].Label)

	var sum float64
	for _, s := range shares {
		sum += s.Percent
	}
	assert.InDelta(t, 100, sum, 0.01*float64(len(shares)))

	empty, err := PercentageDistribution(incidents().Head(0), "attack")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	s, err := Describe(sales(), "revenue")
	require.NoError(t, err)
	assert.Equal(t, Stats{Count: 4, Missing: 1, Sum: 1060, Mean: 265, Min: 10, Max: 900}, s)

	_, err = Describe(sales(), "product")
	require.ErrorIs(t, err, table.ErrInvalidExpression)
}
