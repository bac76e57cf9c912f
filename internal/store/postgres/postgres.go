// Package postgres implements the Artifact Store on Postgres using pgx v5.
// Tables are written with COPY inside a transaction that first recreates
// the target table; summaries are upserted into a JSON key/value table.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"tabjobs/internal/ddl"
	"tabjobs/internal/store"
	"tabjobs/internal/table"
)

const summaryTable = "summaries"

var _ store.Store = (*Store)(nil)

func init() {
	store.Register("postgres", func(ctx context.Context, cfg store.Config) (store.Store, error) {
		return Open(ctx, cfg)
	})
}

// Store is a Postgres-backed artifact store.
type Store struct {
	pool   *pgxpool.Pool
	prefix string
	log    *zap.Logger
}

// Open connects a pool and creates the summaries table.
func Open(ctx context.Context, cfg store.Config) (*Store, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("postgres: DSN must not be empty")
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	s := &Store{pool: pool, prefix: cfg.Prefix, log: cfg.Logger()}
	stmt, err := ddl.BuildCreateTableSQL(ddl.SummaryTable(s.summaryTable(), ddl.Postgres), ddl.Postgres)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, stmt); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: create summaries: %w", err)
	}
	return s, nil
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) summaryTable() string { return s.prefix + summaryTable }

// Save recreates the table named after id and COPYs the rows of t into it.
func (s *Store) Save(ctx context.Context, t table.Table, id string) error {
	if err := store.CheckID(id); err != nil {
		return err
	}
	name := store.TableName(s.prefix, id)
	create, err := ddl.BuildCreateTableSQL(ddl.FromTable(name, t, ddl.Postgres), ddl.Postgres)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, ddl.DropTableSQL(name, ddl.Postgres)); err != nil {
		return fmt.Errorf("postgres: drop %s: %w", name, err)
	}
	if _, err := tx.Exec(ctx, create); err != nil {
		return fmt.Errorf("postgres: create %s: %w", name, err)
	}
	columns := append([]string{ddl.RowColumn}, t.Names()...)
	n, err := tx.CopyFrom(ctx, splitFQN(name), columns, pgx.CopyFromRows(copyRows(t)))
	if err != nil {
		return fmt.Errorf("postgres: copy %s: %w", name, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	s.log.Debug("store: saved", zap.String("id", id), zap.String("table", name), zap.Int64("rows", n))
	return nil
}

// copyRows lays out t row-major with the row index first.
func copyRows(t table.Table) [][]any {
	cols := t.Columns()
	rows := make([][]any, t.NumRows())
	for i := range rows {
		rows[i] = store.RowArgs(cols, i)
	}
	return rows
}

// Load reads the table named after id in saved order.
func (s *Store) Load(ctx context.Context, id string) (table.Raw, error) {
	if err := store.CheckID(id); err != nil {
		return table.Raw{}, err
	}
	name := store.TableName(s.prefix, id)
	fqn := ddl.Postgres.QuoteFQN(name)

	var exists bool
	if err := s.pool.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", fqn).Scan(&exists); err != nil {
		return table.Raw{}, fmt.Errorf("postgres: lookup %s: %w", name, err)
	}
	if !exists {
		return table.Raw{}, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf("SELECT * FROM %s ORDER BY %s", fqn, ddl.Postgres.Quote(ddl.RowColumn)))
	if err != nil {
		return table.Raw{}, fmt.Errorf("postgres: query %s: %w", name, err)
	}
	defer rows.Close()

	skip := -1
	var r table.Raw
	for j, f := range rows.FieldDescriptions() {
		if f.Name == ddl.RowColumn {
			skip = j
			continue
		}
		r.Header = append(r.Header, f.Name)
	}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return table.Raw{}, fmt.Errorf("postgres: scan %s: %w", name, err)
		}
		row := make([]table.Cell, 0, len(r.Header))
		for j, v := range vals {
			if j != skip {
				row = append(row, store.CellOf(v))
			}
		}
		r.Rows = append(r.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return table.Raw{}, fmt.Errorf("postgres: read %s: %w", name, err)
	}
	s.log.Debug("store: loaded", zap.String("id", id), zap.Int("rows", r.NumRows()))
	return r, nil
}

// SaveSummary upserts v as JSON. A table.Table summary is saved as a table.
func (s *Store) SaveSummary(ctx context.Context, v any, id string) error {
	if err := store.CheckID(id); err != nil {
		return err
	}
	if t, ok := v.(table.Table); ok {
		return s.Save(ctx, t, id)
	}
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("postgres: encode summary %s: %w", id, err)
	}
	q := fmt.Sprintf(
		`INSERT INTO %s ("id", "body") VALUES ($1, $2) ON CONFLICT ("id") DO UPDATE SET "body" = EXCLUDED."body"`,
		ddl.Postgres.QuoteFQN(s.summaryTable()),
	)
	if _, err := s.pool.Exec(ctx, q, id, string(body)); err != nil {
		return fmt.Errorf("postgres: upsert summary %s: %w", id, err)
	}
	s.log.Debug("store: saved summary", zap.String("id", id))
	return nil
}

// LoadSummary decodes the JSON summary stored under id into v.
func (s *Store) LoadSummary(ctx context.Context, id string, v any) error {
	if err := store.CheckID(id); err != nil {
		return err
	}
	q := fmt.Sprintf(`SELECT "body" FROM %s WHERE "id" = $1`, ddl.Postgres.QuoteFQN(s.summaryTable()))
	var body string
	err := s.pool.QueryRow(ctx, q, id).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("postgres: load summary %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return fmt.Errorf("postgres: decode summary %s: %w", id, err)
	}
	return nil
}

// splitFQN converts "schema.table" into a pgx.Identifier {"schema","table"}.
func splitFQN(fqn string) pgx.Identifier {
	parts := strings.Split(fqn, ".")
	id := make(pgx.Identifier, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			id = append(id, p)
		}
	}
	return id
}
