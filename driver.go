package tessera

import "context"

// ColumnValue pairs a column name with a value.
type ColumnValue struct {
	Column string
	Value  Value
}

// RowIdentifier selects the predicate strategy used to locate a row for
// update or delete. Positional indexes are deliberately not a valid
// strategy: an index can silently point at a different row in a
// concurrently modified table, so RowIndex is rejected with ErrNotSupported
// wherever it reaches a backend.
type RowIdentifier interface {
	isRowIdentifier()
}

// RowIndex identifies a row by its position in a result. Always rejected.
type RowIndex int

// PrimaryKey identifies a row by its primary key column values.
type PrimaryKey []ColumnValue

// FullRow identifies a row by equality (or IS NULL) on every column. Used
// when the table has no declared primary key.
type FullRow []ColumnValue

func (RowIndex) isRowIdentifier()   {}
func (PrimaryKey) isRowIdentifier() {}
func (FullRow) isRowIdentifier()    {}

// CellUpdateRequest asks a connection to update a single cell.
type CellUpdateRequest struct {
	// TableName may be schema-qualified with a dot; each segment is escaped
	// separately by the backend.
	TableName  string
	ColumnName string
	// NewValue nil means SET ... = NULL.
	NewValue *Value
	Row      RowIdentifier
}

// CancelHandle aborts an in-flight query from any goroutine. Implementations
// are safe for concurrent use and idempotent; cancelling when nothing runs
// is a no-op. The interrupted query fails with a backend-specific
// "interrupted" query error, not a connection failure.
type CancelHandle interface {
	Cancel()
}

// Connection is the uniform capability set every backend implements. A
// Connection may be shared across callers; an internal exclusive guard
// serializes all operations on the underlying handle.
type Connection interface {
	// DriverName returns the backend identifier ("sqlite", "postgres",
	// "mysql", "mssql").
	DriverName() string

	// Dialect returns the static dialect data for this backend.
	Dialect() *Dialect

	// Execute runs a non-row-returning statement.
	Execute(ctx context.Context, sql string, params []Value) (*StatementResult, error)

	// Query runs a row-returning statement. Column metadata is populated
	// even when zero rows come back.
	Query(ctx context.Context, sql string, params []Value) (*QueryResult, error)

	// BeginTransaction starts a transaction that exclusively owns this
	// connection until it reaches a terminal state.
	BeginTransaction(ctx context.Context) (Transaction, error)

	// CancelHandle returns a handle for out-of-band cancellation, or nil
	// when the backend cannot cancel.
	CancelHandle() CancelHandle

	// SchemaIntrospection returns the introspection capability, or nil.
	// Absence is not an error; callers must degrade gracefully.
	SchemaIntrospection() SchemaIntrospection

	// UpdateCell synthesizes and runs a single-cell UPDATE using escaped
	// literals. Returns the number of affected rows.
	UpdateCell(ctx context.Context, req CellUpdateRequest) (uint64, error)

	// Close releases the connection.
	Close() error

	// Closed reports whether Close was called.
	Closed() bool
}

// Transaction is a scoped unit of work bound to one connection. While open
// it holds the connection's exclusive guard, so nothing else can interleave
// on that connection. Commit and Rollback are terminal; calling either a
// second time returns a query error instead of corrupting state. A
// transaction that is abandoned must be released with Close, which issues a
// best-effort synchronous ROLLBACK if no terminal call was made.
type Transaction interface {
	Query(ctx context.Context, sql string, params []Value) (*QueryResult, error)
	Execute(ctx context.Context, sql string, params []Value) (*StatementResult, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	// Close rolls back if the transaction is still open and releases the
	// connection guard. Safe to call after Commit or Rollback.
	Close() error
}
