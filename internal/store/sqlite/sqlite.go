// Package sqlite registers the "sqlite" Artifact Store backend, built on the
// pure-Go modernc.org/sqlite driver.
//
// DSN is passed directly to database/sql; for example:
//
//	"file:artifacts.db?_pragma=busy_timeout(5000)"
//	":memory:"
package sqlite

import (
	"context"
	"strings"

	_ "modernc.org/sqlite"

	"tabjobs/internal/ddl"
	"tabjobs/internal/store"
	"tabjobs/internal/store/sqlstore"
)

const existsSQL = "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?"

func init() {
	store.Register("sqlite", func(ctx context.Context, cfg store.Config) (store.Store, error) {
		return Open(ctx, cfg)
	})
}

// Open opens a SQLite artifact store. In-memory databases are private to a
// connection, so their pool is limited to one.
func Open(ctx context.Context, cfg store.Config) (*sqlstore.Store, error) {
	opts := sqlstore.Options{
		Driver:      "sqlite",
		DSN:         cfg.DSN,
		Dialect:     ddl.SQLite,
		Placeholder: sqlstore.Question,
		ExistsSQL:   existsSQL,
		Prefix:      cfg.Prefix,
		Log:         cfg.Logger(),
	}
	if strings.Contains(cfg.DSN, ":memory:") || strings.Contains(cfg.DSN, "mode=memory") {
		opts.MaxOpenConns = 1
	}
	return sqlstore.Open(ctx, opts)
}
