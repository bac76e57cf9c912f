// Package mysql registers the "mysql" Artifact Store backend.
//
// DSN uses the go-sql-driver format, e.g. "user:pass@tcp(host:3306)/db".
// DDL statements commit implicitly in MySQL, so a failed Save may leave an
// empty table behind.
package mysql

import (
	"context"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"tabjobs/internal/ddl"
	"tabjobs/internal/store"
	"tabjobs/internal/store/sqlstore"
)

const existsSQL = "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?"

func init() {
	store.Register("mysql", func(ctx context.Context, cfg store.Config) (store.Store, error) {
		return Open(ctx, cfg)
	})
}

// Open validates the DSN and opens a MySQL artifact store.
func Open(ctx context.Context, cfg store.Config) (*sqlstore.Store, error) {
	dsn, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("mysql dsn: %w", err)
	}
	if dsn.DBName == "" {
		return nil, fmt.Errorf("mysql dsn: database name is required")
	}
	return sqlstore.Open(ctx, sqlstore.Options{
		Driver:      "mysql",
		DSN:         dsn.FormatDSN(),
		Dialect:     ddl.MySQL,
		Placeholder: sqlstore.Question,
		ExistsSQL:   existsSQL,
		Prefix:      cfg.Prefix,
		Log:         cfg.Logger(),
	})
}
