// Package sqlstore implements the Artifact Store over database/sql for the
// dialects that share its driver model (SQLite, MySQL, SQL Server). Backend
// packages supply the driver name, the dialect and the placeholder style.
//
// Every saved table becomes one SQL table named after the artifact, typed
// by column kind, with a leading row-number key so that Load returns rows in
// saved order. Summaries are JSON documents in a shared key/value table.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"tabjobs/internal/ddl"
	"tabjobs/internal/store"
	"tabjobs/internal/table"
)

// SummaryTable is the name, before prefixing, of the summaries table.
const SummaryTable = "summaries"

// Options configures a Store.
type Options struct {
	// Driver is the database/sql driver name.
	Driver  string
	DSN     string
	Dialect ddl.Dialect
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string
	// ExistsSQL counts tables named by its single bind parameter.
	ExistsSQL string
	Prefix    string
	// MaxOpenConns bounds the pool; in-memory SQLite databases need 1.
	MaxOpenConns int
	Log          *zap.Logger
}

// Question renders "?" placeholders.
func Question(int) string { return "?" }

// AtP renders "@p1", "@p2", ... placeholders.
func AtP(n int) string { return fmt.Sprintf("@p%d", n) }

var _ store.Store = (*Store)(nil)

// Store is a database/sql backed artifact store.
type Store struct {
	db   *sql.DB
	opts Options
	log  *zap.Logger
}

// Open connects, pings and creates the summaries table.
func Open(ctx context.Context, opts Options) (*Store, error) {
	name := opts.Dialect.Name
	if strings.TrimSpace(opts.DSN) == "" {
		return nil, fmt.Errorf("%s: DSN must not be empty", name)
	}
	db, err := sql.Open(opts.Driver, opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", name, err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: ping: %w", name, err)
	}
	s, err := New(ctx, db, opts)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database. The Store takes ownership of db.
func New(ctx context.Context, db *sql.DB, opts Options) (*Store, error) {
	if opts.Placeholder == nil {
		opts.Placeholder = Question
	}
	s := &Store{db: db, opts: opts, log: opts.Log}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	stmt, err := ddl.BuildCreateTableSQL(ddl.SummaryTable(s.summaryTable(), opts.Dialect), opts.Dialect)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return nil, fmt.Errorf("%s: create summaries: %w", opts.Dialect.Name, err)
	}
	return s, nil
}

// DB exposes the underlying pool.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the connection pool.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) summaryTable() string { return s.opts.Prefix + SummaryTable }

// Save replaces the table named after id with the rows of t, inside one
// transaction with a prepared INSERT.
func (s *Store) Save(ctx context.Context, t table.Table, id string) error {
	if err := store.CheckID(id); err != nil {
		return err
	}
	d := s.opts.Dialect
	name := store.TableName(s.opts.Prefix, id)
	create, err := ddl.BuildCreateTableSQL(ddl.FromTable(name, t, d), d)
	if err != nil {
		return err
	}

	cols := t.Columns()
	names := append([]string{ddl.RowColumn}, t.Names()...)
	placeholders := make([]string, len(names))
	for i := range placeholders {
		placeholders[i] = s.opts.Placeholder(i + 1)
	}
	insert := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		d.QuoteFQN(name),
		strings.Join(d.QuoteAll(names), ", "),
		strings.Join(placeholders, ", "),
	)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin tx: %w", d.Name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, ddl.DropTableSQL(name, d)); err != nil {
		return fmt.Errorf("%s: drop %s: %w", d.Name, name, err)
	}
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("%s: create %s: %w", d.Name, name, err)
	}
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("%s: prepare insert: %w", d.Name, err)
	}
	defer stmt.Close()

	for i := 0; i < t.NumRows(); i++ {
		if _, err := stmt.ExecContext(ctx, store.RowArgs(cols, i)...); err != nil {
			return fmt.Errorf("%s: insert row %d: %w", d.Name, i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", d.Name, err)
	}
	s.log.Debug("store: saved", zap.String("id", id), zap.String("table", name), zap.Int("rows", t.NumRows()))
	return nil
}

// Load reads the table named after id in saved order.
func (s *Store) Load(ctx context.Context, id string) (table.Raw, error) {
	if err := store.CheckID(id); err != nil {
		return table.Raw{}, err
	}
	d := s.opts.Dialect
	name := store.TableName(s.opts.Prefix, id)
	ok, err := s.exists(ctx, name)
	if err != nil {
		return table.Raw{}, err
	}
	if !ok {
		return table.Raw{}, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}

	q := fmt.Sprintf("SELECT * FROM %s ORDER BY %s", d.QuoteFQN(name), d.Quote(ddl.RowColumn))
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return table.Raw{}, fmt.Errorf("%s: query %s: %w", d.Name, name, err)
	}
	r, err := ScanRaw(rows)
	if err != nil {
		return table.Raw{}, fmt.Errorf("%s: scan %s: %w", d.Name, name, err)
	}
	s.log.Debug("store: loaded", zap.String("id", id), zap.Int("rows", r.NumRows()))
	return r, nil
}

func (s *Store) exists(ctx context.Context, name string) (bool, error) {
	if s.opts.ExistsSQL == "" {
		return true, nil
	}
	// The exists query matches the bare table name.
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	var n int
	if err := s.db.QueryRowContext(ctx, s.opts.ExistsSQL, name).Scan(&n); err != nil {
		return false, fmt.Errorf("%s: lookup %s: %w", s.opts.Dialect.Name, name, err)
	}
	return n > 0, nil
}

// ScanRaw drains rows into a raw batch, dropping the row-number column.
func ScanRaw(rows *sql.Rows) (table.Raw, error) {
	defer rows.Close()
	names, err := rows.Columns()
	if err != nil {
		return table.Raw{}, err
	}
	skip := -1
	r := table.Raw{Header: make([]string, 0, len(names))}
	for j, n := range names {
		if n == ddl.RowColumn {
			skip = j
			continue
		}
		r.Header = append(r.Header, n)
	}

	vals := make([]any, len(names))
	ptrs := make([]any, len(names))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return table.Raw{}, err
		}
		row := make([]table.Cell, 0, len(r.Header))
		for j, v := range vals {
			if j == skip {
				continue
			}
			row = append(row, store.CellOf(v))
		}
		r.Rows = append(r.Rows, row)
	}
	return r, rows.Err()
}

// SaveSummary stores v as JSON. A table.Table summary is saved as a table.
func (s *Store) SaveSummary(ctx context.Context, v any, id string) error {
	if err := store.CheckID(id); err != nil {
		return err
	}
	if t, ok := v.(table.Table); ok {
		return s.Save(ctx, t, id)
	}
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%s: encode summary %s: %w", s.opts.Dialect.Name, id, err)
	}

	d := s.opts.Dialect
	fqn := d.QuoteFQN(s.summaryTable())
	ph := s.opts.Placeholder

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin tx: %w", d.Name, err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s = %s", fqn, d.Quote("id"), ph(1)), id); err != nil {
		return fmt.Errorf("%s: delete summary: %w", d.Name, err)
	}
	ins := fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (%s, %s)", fqn, d.Quote("id"), d.Quote("body"), ph(1), ph(2))
	if _, err := tx.ExecContext(ctx, ins, id, string(body)); err != nil {
		return fmt.Errorf("%s: insert summary: %w", d.Name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", d.Name, err)
	}
	s.log.Debug("store: saved summary", zap.String("id", id))
	return nil
}

// LoadSummary decodes the JSON summary stored under id into v.
func (s *Store) LoadSummary(ctx context.Context, id string, v any) error {
	if err := store.CheckID(id); err != nil {
		return err
	}
	d := s.opts.Dialect
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		d.Quote("body"), d.QuoteFQN(s.summaryTable()), d.Quote("id"), s.opts.Placeholder(1))
	var body string
	err := s.db.QueryRowContext(ctx, q, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("%s: load summary %s: %w", d.Name, id, err)
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return fmt.Errorf("%s: decode summary %s: %w", d.Name, id, err)
	}
	return nil
}
