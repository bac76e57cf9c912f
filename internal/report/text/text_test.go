package text

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabjobs/internal/report"
	"tabjobs/internal/table"
)

func revenueChart() report.Chart {
	return report.Chart{
		ID:       "sales_revenue",
		Kind:     report.Bar,
		Title:    "Revenue by product",
		XLabel:   "product",
		Labels:   []string{"Tablet", "Laptop"},
		Series:   []report.Series{{Name: "revenue", Values: []float64{120.5, 2400}}},
		RefLines: []report.RefLine{{Label: "average price x5", Y: 51.25}},
	}
}

// TestRenderBarAsText verifies that a bar chart becomes one row per label
// with reference lines in the footer.
func TestRenderBarAsText(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	r, err := New(report.Config{Dir: dir})
	require.NoError(t, err)
	h, err := r.Render(context.Background(), revenueChart())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "sales_revenue.txt"), h.Path)

	data, err := os.ReadFile(h.Path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "Revenue by product")
	assert.Contains(t, out, "Tablet")
	assert.Contains(t, out, "2400")
	assert.Contains(t, out, "51.25")
}

func TestRenderTableAsMarkdown(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	tbl := table.MustNew(
		table.Column{Name: "email", Kind: table.String, Values: []table.Value{table.StringValue("a****@x.com"), table.Missing(table.String)}},
		table.Column{Name: "age", Kind: table.Int, Values: []table.Value{table.IntValue(31), table.Sentinel(table.Int, "N/A")}},
	)
	r, err := New(report.Config{Dir: dir, Format: "md"})
	require.NoError(t, err)
	h, err := r.Render(context.Background(), report.Chart{ID: "users_preview", Kind: report.Table, Title: "Users", Table: tbl})
	require.NoError(t, err)
	assert.Equal(t, ".md", filepath.Ext(h.Path))

	data, err := os.ReadFile(h.Path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "## Users")
	assert.Contains(t, out, "| email")
	assert.Contains(t, out, "a****@x.com")
	assert.Contains(t, out, "NULL")
	assert.Contains(t, out, "N/A")
}

func TestFormatHistogram(t *testing.T) {
	t.Parallel()

	out := Format(report.Chart{
		ID:     "transactions_hist",
		Kind:   report.Hist,
		Bins:   2,
		Series: []report.Series{{Name: "amount", Values: []float64{0, 0.25, 1}}},
	}, false)
	assert.Contains(t, out, "amount")
	assert.Contains(t, out, "0.5")
}

func TestRenderRejectsInvalidChart(t *testing.T) {
	t.Parallel()

	r, err := New(report.Config{Dir: t.TempDir()})
	require.NoError(t, err)
	_, err = r.Render(context.Background(), report.Chart{ID: "x", Kind: report.Line})
	assert.Error(t, err)

	_, err = New(report.Config{Dir: t.TempDir(), Format: "html"})
	assert.Error(t, err)
}
