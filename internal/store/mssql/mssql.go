// Package mssql registers the "mssql" Artifact Store backend on
// github.com/microsoft/go-mssqldb.
package mssql

import (
	"context"
	"fmt"

	_ "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"tabjobs/internal/ddl"
	"tabjobs/internal/store"
	"tabjobs/internal/store/sqlstore"
)

const existsSQL = "SELECT COUNT(*) FROM sys.tables WHERE name = @p1"

func init() {
	store.Register("mssql", func(ctx context.Context, cfg store.Config) (store.Store, error) {
		return Open(ctx, cfg)
	})
}

// Open validates the DSN early and opens a SQL Server artifact store.
func Open(ctx context.Context, cfg store.Config) (*sqlstore.Store, error) {
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return nil, fmt.Errorf("mssql dsn: %w", err)
	}
	return sqlstore.Open(ctx, sqlstore.Options{
		Driver:      "sqlserver",
		DSN:         cfg.DSN,
		Dialect:     ddl.MSSQL,
		Placeholder: sqlstore.AtP,
		ExistsSQL:   existsSQL,
		Prefix:      cfg.Prefix,
		Log:         cfg.Logger(),
	})
}
