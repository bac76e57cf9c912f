// Package ddl defines a small model for SQL DDL and the dialects the SQL
// artifact stores speak.
//
// A Dialect knows how to quote identifiers, which SQL type holds each column
// kind, and how to render an idempotent CREATE TABLE. Stores persist typed
// tables through FromTable, which prepends the RowColumn used to read rows
// back in their original order.
package ddl

import (
	"fmt"
	"strings"

	"tabjobs/internal/table"
)

// RowColumn is the hidden column holding a row's original position.
const RowColumn = "_row"

// Dialect captures the per-backend differences of rendered DDL.
type Dialect struct {
	Name string
	// Quote quotes a single identifier segment.
	Quote func(string) string
	// MapType maps a column kind to a SQL type.
	MapType func(table.Kind) string
	// KeyType is a bounded text type usable in a primary key.
	KeyType string
	// TextType holds unbounded text.
	TextType string
	// GuardCreate wraps CREATE TABLE in an existence check instead of using
	// IF NOT EXISTS.
	GuardCreate bool
}

func doubleQuote(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }
func backtick(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" }
func bracket(id string) string { return "[" + strings.ReplaceAll(id, "]", "]]") + "]" }

var (
	// SQLite uses dynamic typing; dates are ISO-8601 TEXT.
	SQLite = Dialect{
		Name:  "sqlite",
		Quote: doubleQuote,
		MapType: func(k table.Kind) string {
			switch k {
			case table.Int:
				return "INTEGER"
			case table.Float:
				return "REAL"
			}
			return "TEXT"
		},
		KeyType:  "TEXT",
		TextType: "TEXT",
	}

	Postgres = Dialect{
		Name:  "postgres",
		Quote: doubleQuote,
		MapType: func(k table.Kind) string {
			switch k {
			case table.Int:
				return "BIGINT"
			case table.Float:
				return "DOUBLE PRECISION"
			}
			return "TEXT"
		},
		KeyType:  "TEXT",
		TextType: "TEXT",
	}

	MySQL = Dialect{
		Name:  "mysql",
		Quote: backtick,
		MapType: func(k table.Kind) string {
			switch k {
			case table.Int:
				return "BIGINT"
			case table.Float:
				return "DOUBLE"
			case table.Date:
				return "VARCHAR(64)"
			}
			return "TEXT"
		},
		KeyType:  "VARCHAR(255)",
		TextType: "LONGTEXT",
	}

	MSSQL = Dialect{
		Name:  "mssql",
		Quote: bracket,
		MapType: func(k table.Kind) string {
			switch k {
			case table.Int:
				return "BIGINT"
			case table.Float:
				return "FLOAT"
			case table.Date:
				return "NVARCHAR(64)"
			}
			return "NVARCHAR(MAX)"
		},
		KeyType:     "NVARCHAR(450)",
		TextType:    "NVARCHAR(MAX)",
		GuardCreate: true,
	}
)

// QuoteFQN quotes each dotted segment of fqn.
func (d Dialect) QuoteFQN(fqn string) string {
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, d.Quote(p))
	}
	return strings.Join(out, ".")
}

// QuoteAll quotes a list of column names.
func (d Dialect) QuoteAll(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = d.Quote(c)
	}
	return out
}

// FromTable derives the definition used to persist t: RowColumn as primary
// key followed by every column of t, all nullable.
func FromTable(fqn string, t table.Table, d Dialect) TableDef {
	td := TableDef{FQN: fqn, Columns: []ColumnDef{{Name: RowColumn, SQLType: d.MapType(table.Int), PrimaryKey: true}}}
	for _, c := range t.Columns() {
		td.Columns = append(td.Columns, ColumnDef{Name: c.Name, SQLType: d.MapType(c.Kind), Nullable: true})
	}
	return td
}

// SummaryTable is the key/value table summaries are stored in.
func SummaryTable(fqn string, d Dialect) TableDef {
	return TableDef{FQN: fqn, Columns: []ColumnDef{
		{Name: "id", SQLType: d.KeyType, PrimaryKey: true},
		{Name: "body", SQLType: d.TextType},
	}}
}

// BuildCreateTableSQL renders an idempotent CREATE TABLE for t:
//
//	CREATE TABLE IF NOT EXISTS "table" (
//	  "col1" TYPE [NOT NULL],
//	  PRIMARY KEY ("pk1")
//	);
//
// Dialects with GuardCreate wrap a plain CREATE TABLE in an OBJECT_ID check.
func BuildCreateTableSQL(t TableDef, d Dialect) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("%s ddl: table FQN must not be empty", d.Name)
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("%s ddl: at least one column is required", d.Name)
	}

	cols := make([]string, 0, len(t.Columns)+1)
	pks := make([]string, 0, 1)
	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("%s ddl: column with empty name in table %s", d.Name, fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("%s ddl: column %s missing SQLType", d.Name, name)
		}

		var sb strings.Builder
		sb.WriteString(d.Quote(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, d.Quote(name))
		}
	}
	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	quoted := d.QuoteFQN(fqn)
	if d.GuardCreate {
		return fmt.Sprintf(
			"IF OBJECT_ID(N'%s', N'U') IS NULL\nBEGIN\n  CREATE TABLE %s (\n    %s\n  );\nEND;",
			quoted, quoted, strings.Join(cols, ",\n    "),
		), nil
	}
	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n  %s\n);",
		quoted, strings.Join(cols, ",\n  "),
	), nil
}

// DropTableSQL renders DROP TABLE IF EXISTS for fqn.
func DropTableSQL(fqn string, d Dialect) string {
	return "DROP TABLE IF EXISTS " + d.QuoteFQN(fqn)
}
