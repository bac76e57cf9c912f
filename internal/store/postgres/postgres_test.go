package postgres

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabjobs/internal/store"
	"tabjobs/internal/table"
)

func TestSplitFQN(t *testing.T) {
	t.Parallel()

	assert.Equal(t, pgx.Identifier{"public", "sales_clean"}, splitFQN("public.sales_clean"))
	assert.Equal(t, pgx.Identifier{"sales_clean"}, splitFQN("sales_clean"))
	assert.Equal(t, pgx.Identifier{"a"}, splitFQN(".a."))
}

// TestCopyRowsLayout verifies the row-major COPY payload: row index first,
// typed values next, NULL for missing cells and numeric sentinels.
func TestCopyRowsLayout(t *testing.T) {
	t.Parallel()

	tbl := table.MustNew(
		table.Column{Name: "name", Kind: table.String, Values: []table.Value{table.StringValue("a"), table.Sentinel(table.String, "N/A")}},
		table.Column{Name: "n", Kind: table.Int, Values: []table.Value{table.IntValue(7), table.Sentinel(table.Int, "N/A")}},
		table.Column{Name: "x", Kind: table.Float, Values: []table.Value{table.Missing(table.Float), table.FloatValue(0.5)}},
	)
	rows := copyRows(tbl)
	require.Len(t, rows, 2)
	assert.Equal(t, []any{int64(0), "a", int64(7), nil}, rows[0])
	assert.Equal(t, []any{int64(1), "N/A", nil, 0.5}, rows[1])
}

func TestOpenRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := store.New(context.Background(), store.Config{Kind: "postgres"})
	assert.Error(t, err)
}
