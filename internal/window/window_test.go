package window

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabjobs/internal/table"
)

// TestRollingMeanMinPeriods verifies a shrinking window
// at the start and an output of the same length.
func TestRollingMeanMinPeriods(t *testing.T) {
	t.Parallel()

	got, err := RollingMean([]float64{10, 20, 30, 40, 50, 60}, 5)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 15, 20, 25, 30, 40}, got)
}

func TestRollingMeanWindowOne(t *testing.T) {
	t.Parallel()

	in := []float64{3, 1, 4, 1, 5}
	got, err := RollingMean(in, 1)
	require.NoError(t, err)
	assert.Equal(t, in, got)

	empty, err := RollingMean(nil, 3)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRollingInvalidWindow(t *testing.T) {
	t.Parallel()

	for _, w := range []int{0, -3} {
		_, err := RollingMean([]float64{1}, w)
		require.ErrorIs(t, err, table.ErrInvalidWindow)
		_, err = RollingMax([]float64{1}, w)
		require.ErrorIs(t, err, table.ErrInvalidWindow)
	}
}

// TestRollingSkipsNaN verifies missing observations are skipped and an
// all-missing window is NaN.
func TestRollingSkipsNaN(t *testing.T) {
	t.Parallel()

	nan := math.NaN()
	got, err := RollingMean([]float64{nan, 2, nan, nan, nan, 6}, 2)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got[0]))
	assert.Equal(t, 2.0, got[1])
	assert.Equal(t, 2.0, got[2])
	assert.True(t, math.IsNaN(got[3]))
	assert.True(t, math.IsNaN(got[4]))
	assert.Equal(t, 6.0, got[5])
}

func TestRollingSumMinMax(t *testing.T) {
	t.Parallel()

	in := []float64{5, 1, 4, 2, 8, 3}
	sum, err := RollingSum(in, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 6, 10, 7, 14, 13}, sum)

	lo, err := RollingMin(in, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 1, 1, 1, 2, 2}, lo)

	hi, err := Rolling(in, 3, Max)
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 5, 5, 4, 8, 8}, hi)
}

// TestRollingMinMatchesNaive checks the deque against a direct scan.
func TestRollingMinMatchesNaive(t *testing.T) {
	t.Parallel()

	in := []float64{9, 7, 7, 3, 8, 8, 1, 2, 6, 6, 0, 5}
	for w := 1; w <= len(in)+1; w++ {
		got, err := RollingMin(in, w)
		require.NoError(t, err)
		for i := range in {
			want := math.Inf(1)
			for j := max(0, i-w+1); j <= i; j++ {
				want = math.Min(want, in[j])
			}
			assert.Equal(t, want, got[i], "w=%d i=%d", w, i)
		}
	}
}

// TestRollingMeanMatchesNaive checks the running sum against a direct
// mean of each window, including a spike that dwarfs its neighbours.
func TestRollingMeanMatchesNaive(t *testing.T) {
	t.Parallel()

	inputs := [][]float64{
		{1e16, 1, 1, 1},
		{1e17, 3, 5, 7, 9},
		{0.1, 0.2, 1e20, 0.3, -7, 0.4, 1e-3, 2.5, 1e15, 4, 4, 4},
	}
	for _, in := range inputs {
		for w := 1; w <= len(in)+1; w++ {
			got, err := RollingMean(in, w)
			require.NoError(t, err)
			for i := range in {
				lo := max(0, i-w+1)
				var sum float64
				for _, v := range in[lo : i+1] {
					sum += v
				}
				want := sum / float64(i+1-lo)
				assert.InDelta(t, want, got[i], 1e-9*math.Max(1, math.Abs(want)), "in=%v w=%d i=%d", in, w, i)
			}
		}
	}

	got, err := RollingMean([]float64{1e16, 1, 1, 1}, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{1e16, 1, 1, 1}, got)

	got, err = RollingMean([]float64{1e17, 3, 5, 7, 9}, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 6, 8}, got[2:])
}

func prices(t *testing.T, days ...int) table.Table {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	dates := make([]table.Value, len(days))
	vals := make([]table.Value, len(days))
	for i, d := range days {
		dates[i] = table.DateValue(base.AddDate(0, 0, d))
		vals[i] = table.FloatValue(float64(10 * (i + 1)))
	}
	return table.MustNew(
		table.Column{Name: "date", Kind: table.Date, Values: dates},
		table.Column{Name: "price", Kind: table.Float, Values: vals},
	)
}

func TestColumnAppendsRolledValues(t *testing.T) {
	t.Parallel()

	out, err := Column(prices(t, 0, 1, 2), Spec{Column: "price", OrderBy: "date", Window: 2, Output: "ma", Precision: 2})
	require.NoError(t, err)
	ma, err := out.Column("ma")
	require.NoError(t, err)
	assert.Equal(t, []string{"10", "15", "25"}, ma.Strings())
}

// TestColumnRejectsUnordered verifies rolling over an unsorted order column
// fails instead of silently computing over the wrong neighbours.
func TestColumnRejectsUnordered(t *testing.T) {
	t.Parallel()

	in := prices(t, 0, 2, 1)
	_, err := Column(in, Spec{Column: "price", OrderBy: "date", Window: 2})
	require.ErrorIs(t, err, table.ErrUnordered)

	sorted, err := table.SortBy(in, "date")
	require.NoError(t, err)
	out, err := Column(sorted, Spec{Column: "price", OrderBy: "date", Window: 2})
	require.NoError(t, err)
	assert.True(t, out.Has("price_mean"))
}
