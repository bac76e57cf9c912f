package ddl

// ColumnDef is one column of a TableDef. Name is unquoted; the dialect quotes
// it when rendering.
type ColumnDef struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
}

// TableDef is a table to create. FQN may be dotted ("schema.table"); each
// segment is quoted separately.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}
