package tessera

import "github.com/google/uuid"

// Row is a single result row. Column names are shared with the result's
// metadata so lookups by name stay cheap.
type Row struct {
	Values  []Value
	columns []string
}

// NewRow creates a row over the given column name slice. The slice is
// typically shared across every row of one result.
func NewRow(columns []string, values []Value) Row {
	return Row{Values: values, columns: columns}
}

// Get returns the value at the given column index.
func (r Row) Get(index int) (Value, bool) {
	if index < 0 || index >= len(r.Values) {
		return Value{}, false
	}
	return r.Values[index], true
}

// GetByName returns the value for the named column.
func (r Row) GetByName(name string) (Value, bool) {
	for i, c := range r.columns {
		if c == name && i < len(r.Values) {
			return r.Values[i], true
		}
	}
	return Value{}, false
}

// Columns returns the column names for this row.
func (r Row) Columns() []string { return r.columns }

// ToMap copies the row into a name-to-value map.
func (r Row) ToMap() map[string]Value {
	m := make(map[string]Value, len(r.Values))
	for i, c := range r.columns {
		if i < len(r.Values) {
			m[c] = r.Values[i]
		}
	}
	return m
}

// ColumnMeta describes one result column. It is produced from the prepared
// statement's descriptors, so it is correct even when the result has zero
// rows.
type ColumnMeta struct {
	Name          string
	DataType      string
	Nullable      bool
	Ordinal       int
	MaxLength     *int64
	Precision     *int32
	Scale         *int32
	AutoIncrement bool
	DefaultValue  *string
	Comment       *string
	EnumValues    []string
}

// QueryResult is the outcome of a row-returning statement.
type QueryResult struct {
	// ID is an opaque handle for this result.
	ID uuid.UUID
	// Columns always carries metadata, even for zero rows.
	Columns []ColumnMeta
	Rows    []Row
	// TotalRows is nil when no count was computed (e.g. filtered browse on
	// a slow-count backend).
	TotalRows *uint64
	// IsEstimatedTotal is true only when TotalRows came from catalog
	// statistics rather than an exact scan.
	IsEstimatedTotal bool
	AffectedRows     uint64
	ExecutionTimeMs  uint64
	Warnings         []string
}

// NewQueryResult creates an empty result with a fresh ID.
func NewQueryResult() *QueryResult {
	return &QueryResult{ID: uuid.New()}
}

// HasRows reports whether the result contains any rows.
func (r *QueryResult) HasRows() bool { return len(r.Rows) > 0 }

// ColumnCount returns the number of columns.
func (r *QueryResult) ColumnCount() int { return len(r.Columns) }

// RowCount returns the number of fetched rows.
func (r *QueryResult) RowCount() int { return len(r.Rows) }

// ColumnNames returns the column names in ordinal order.
func (r *QueryResult) ColumnNames() []string {
	names := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = c.Name
	}
	return names
}

// StatementResult is the outcome of a non-row-returning statement.
type StatementResult struct {
	IsQuery      bool
	AffectedRows uint64
	Error        string
}
