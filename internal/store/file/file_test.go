package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"tabjobs/internal/store"
	"tabjobs/internal/table"
)

func newStore(t *testing.T, format string) *Store {
	t.Helper()
	s, err := Open(store.Config{Dir: t.TempDir(), Format: format, Log: zaptest.NewLogger(t)})
	require.NoError(t, err)
	return s
}

func sample() table.Table {
	return table.MustNew(
		table.Column{Name: "product", Kind: table.Category, Values: []table.Value{
			table.CategoryValue("Phone"), table.CategoryValue("Lap,top"), table.Missing(table.Category),
		}},
		table.Column{Name: "qty", Kind: table.Int, Values: []table.Value{
			table.IntValue(2), table.Missing(table.Int), table.Sentinel(table.Int, "N/A"),
		}},
		table.Column{Name: "price", Kind: table.Float, Values: []table.Value{
			table.FloatValue(9.5), table.FloatValue(0.1), table.FloatValue(1200),
		}},
	)
}

// TestCSVRoundTrip verifies that Save then Load returns the canonical text of
// every cell, with missing cells read back as empty text.
func TestCSVRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStore(t, "")

	require.NoError(t, s.Save(ctx, sample(), "sales_clean"))
	_, err := os.Stat(filepath.Join(s.Dir(), "sales_clean.csv"))
	require.NoError(t, err)

	r, err := s.Load(ctx, "sales_clean")
	require.NoError(t, err)
	assert.Equal(t, []string{"product", "qty", "price"}, r.Header)
	require.Len(t, r.Rows, 3)
	assert.Equal(t, []table.Cell{table.Text("Lap,top"), table.Text(""), table.Text("0.1")}, r.Rows[1])
	assert.Equal(t, table.Text("N/A"), r.Rows[2][1])
	assert.Equal(t, table.Text("1200"), r.Rows[2][2])
}

// TestJSONRecordsRoundTrip verifies that JSON records keep column order, map
// missing cells to null and read null back as absent.
func TestJSONRecordsRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStore(t, "json")

	require.NoError(t, s.Save(ctx, sample(), "bitcoin_prices"))
	data, err := os.ReadFile(filepath.Join(s.Dir(), "bitcoin_prices.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `{"product": "Phone", "qty": 2, "price": 9.5}`)
	assert.Contains(t, string(data), `"qty": null`)

	r, err := s.Load(ctx, "bitcoin_prices")
	require.NoError(t, err)
	assert.Equal(t, []string{"product", "qty", "price"}, r.Header)
	assert.True(t, r.Rows[1][1].Missing)
	assert.True(t, r.Rows[2][0].Missing)
	assert.Equal(t, table.Text("N/A"), r.Rows[2][1])
}

func TestReadRecordsLateKeys(t *testing.T) {
	t.Parallel()

	r, err := readRecords(strings.NewReader("[{\"a\": 1}, {\"b\": \"x\", \"a\": 2.5}]"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, r.Header)
	assert.True(t, r.Cell(0, 1).Missing)
	assert.Equal(t, table.Text("2.5"), r.Cell(1, 0))
	assert.Equal(t, table.Text("x"), r.Cell(1, 1))

	_, err = readRecords(strings.NewReader(`[{"a": {"nested": 1}}]`))
	assert.Error(t, err)
}

func TestSummaryFormats(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStore(t, "")

	stats := map[string]float64{"total_revenue": 1234.5, "average_price": 10.25}
	require.NoError(t, s.SaveSummary(ctx, stats, "sales_stats"))
	var got map[string]float64
	require.NoError(t, s.LoadSummary(ctx, "sales_stats", &got))
	assert.Equal(t, stats, got)

	require.NoError(t, s.SaveSummary(ctx, stats, "sales_stats.yaml"))
	got = nil
	require.NoError(t, s.LoadSummary(ctx, "sales_stats.yaml", &got))
	assert.Equal(t, stats, got)

	require.NoError(t, s.SaveSummary(ctx, sample(), "summary_table.csv"))
	r, err := s.Load(ctx, "summary_table.csv")
	require.NoError(t, err)
	assert.Equal(t, 3, r.NumRows())

	assert.Error(t, s.SaveSummary(ctx, stats, "summary_table.csv"))
}

func TestNotFoundAndInvalidIDs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStore(t, "")

	_, err := s.Load(ctx, "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.LoadSummary(ctx, "nope", &struct{}{}), store.ErrNotFound)

	for _, id := range []string{"../escape", "", "a/b", ".hidden"} {
		assert.Error(t, s.Save(ctx, sample(), id), id)
	}
}

func TestRegisteredAsFile(t *testing.T) {
	t.Parallel()

	st, err := store.New(context.Background(), store.Config{Kind: "file", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.NoError(t, st.Close())
	assert.Contains(t, store.ListKinds(), "file")

	_, err = Open(store.Config{Dir: t.TempDir(), Format: "xml"})
	assert.Error(t, err)
}
