package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"tabjobs/internal/store"
	"tabjobs/internal/table"
)

func openMemory(t *testing.T) store.Store {
	t.Helper()
	s, err := store.New(context.Background(), store.Config{
		Kind:   "sqlite",
		DSN:    ":memory:",
		Prefix: "t_",
		Log:    zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sample() table.Table {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	return table.MustNew(
		table.Column{Name: "date", Kind: table.Date, Values: []table.Value{table.DateValue(day), table.Missing(table.Date), table.DateValue(day.AddDate(0, 0, 1))}},
		table.Column{Name: "product", Kind: table.Category, Values: []table.Value{table.CategoryValue("Phone"), table.CategoryValue("Tablet"), table.Sentinel(table.Category, "N/A")}},
		table.Column{Name: "quantity", Kind: table.Int, Values: []table.Value{table.IntValue(3), table.Missing(table.Int), table.IntValue(-1)}},
		table.Column{Name: "price", Kind: table.Float, Values: []table.Value{table.FloatValue(9.99), table.FloatValue(1200), table.Missing(table.Float)}},
	)
}

// TestSaveLoadRoundTrip verifies that a saved table loads back in saved
// order with NULL as absent cells and numbers in canonical text.
func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openMemory(t)

	require.NoError(t, s.Save(ctx, sample(), "sales_clean"))
	r, err := s.Load(ctx, "sales_clean")
	require.NoError(t, err)

	assert.Equal(t, []string{"date", "product", "quantity", "price"}, r.Header)
	require.Equal(t, 3, r.NumRows())
	assert.Equal(t, []table.Cell{table.Text("2024-01-02"), table.Text("Phone"), table.Text("3"), table.Text("9.99")}, r.Rows[0])
	assert.Equal(t, []table.Cell{table.Null(), table.Text("Tablet"), table.Null(), table.Text("1200")}, r.Rows[1])
	assert.Equal(t, []table.Cell{table.Text("2024-01-03"), table.Text("N/A"), table.Text("-1"), table.Null()}, r.Rows[2])
}

func TestSaveReplacesTable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openMemory(t)

	require.NoError(t, s.Save(ctx, sample(), "sales_clean"))
	require.NoError(t, s.Save(ctx, sample().Head(1), "sales_clean"))
	r, err := s.Load(ctx, "sales_clean")
	require.NoError(t, err)
	assert.Equal(t, 1, r.NumRows())
}

func TestSummaries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openMemory(t)

	type stats struct {
		TotalRevenue float64 `json:"total_revenue"`
		AveragePrice float64 `json:"average_price"`
	}
	require.NoError(t, s.SaveSummary(ctx, stats{100.5, 2.25}, "sales_stats"))
	require.NoError(t, s.SaveSummary(ctx, stats{200, 4}, "sales_stats"))

	var got stats
	require.NoError(t, s.LoadSummary(ctx, "sales_stats", &got))
	assert.Equal(t, stats{200, 4}, got)

	require.NoError(t, s.SaveSummary(ctx, sample(), "summary_table.csv"))
	r, err := s.Load(ctx, "summary_table")
	require.NoError(t, err)
	assert.Equal(t, 3, r.NumRows())
}

func TestNotFound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openMemory(t)

	_, err := s.Load(ctx, "missing_table")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.LoadSummary(ctx, "missing", &struct{}{}), store.ErrNotFound)
}

func TestOpenRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), store.Config{})
	assert.Error(t, err)
}
