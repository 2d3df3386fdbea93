package tessera

import "context"

// SchemaIntrospection is the optional metadata-discovery capability. All
// queries behind it are read-only catalog lookups; none may mutate the
// database.
type SchemaIntrospection interface {
	// ListTables returns the tables visible in the given schema ("" means
	// the backend default).
	ListTables(ctx context.Context, schema string) ([]TableInfo, error)

	// Columns returns the column definitions of a table in ordinal order.
	Columns(ctx context.Context, schema, table string) ([]ColumnInfo, error)

	// Indexes returns the indexes defined on a table.
	Indexes(ctx context.Context, schema, table string) ([]IndexInfo, error)

	// ForeignKeys returns the outgoing foreign keys of a table.
	ForeignKeys(ctx context.Context, schema, table string) ([]ForeignKeyInfo, error)

	// PrimaryKey returns the primary key of a table, or nil when none is
	// declared.
	PrimaryKey(ctx context.Context, schema, table string) (*PrimaryKeyInfo, error)

	// Triggers returns the triggers attached to a table.
	Triggers(ctx context.Context, schema, table string) ([]TriggerInfo, error)

	// TableDetails aggregates columns, indexes, foreign keys and the
	// primary key for one table. Fails with ErrNotFound for an unknown
	// table.
	TableDetails(ctx context.Context, schema, table string) (*TableDetails, error)
}

// TableInfo is a table listed by introspection.
type TableInfo struct {
	Name   string
	Schema string
	// Type is "table" or "view".
	Type string
	// RowCount is a catalog estimate when available, -1 when unknown.
	RowCount int64
	Comment  string
}

// ColumnInfo is a column definition discovered from the catalog.
type ColumnInfo struct {
	Name          string
	DataType      string
	Nullable      bool
	Ordinal       int
	DefaultValue  *string
	AutoIncrement bool
	MaxLength     *int64
	Precision     *int32
	Scale         *int32
	Comment       *string
	EnumValues    []string
}

// IndexInfo describes one index.
type IndexInfo struct {
	Name    string
	Columns []string
	Unique  bool
	Primary bool
}

// ForeignKeyInfo describes one outgoing foreign key.
type ForeignKeyInfo struct {
	Name              string
	Columns           []string
	ReferencedTable   string
	ReferencedSchema  string
	ReferencedColumns []string
	OnUpdate          string
	OnDelete          string
}

// PrimaryKeyInfo describes a table's primary key.
type PrimaryKeyInfo struct {
	Name    string
	Columns []string
}

// TriggerInfo describes one trigger.
type TriggerInfo struct {
	Name string
	// Timing is BEFORE, AFTER or INSTEAD OF.
	Timing string
	// Event is INSERT, UPDATE or DELETE.
	Event      string
	Definition string
}

// SequenceInfo describes one sequence (backends with sequence objects).
type SequenceInfo struct {
	Name      string
	Schema    string
	DataType  string
	StartWith int64
	Increment int64
}

// TableDetails aggregates everything introspection knows about a table.
type TableDetails struct {
	Table       TableInfo
	Columns     []ColumnInfo
	Indexes     []IndexInfo
	ForeignKeys []ForeignKeyInfo
	PrimaryKey  *PrimaryKeyInfo
}

// SequenceLister is implemented by introspectors whose backend has sequence
// objects (PostgreSQL).
type SequenceLister interface {
	Sequences(ctx context.Context, schema string) ([]SequenceInfo, error)
}
