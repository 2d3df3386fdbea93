package tessera

import (
	"fmt"
	"strconv"
	"strings"
)

// QuoteStyle selects the identifier quoting characters for a backend.
type QuoteStyle int

const (
	// QuoteDouble wraps identifiers in double quotes (PostgreSQL, SQLite).
	QuoteDouble QuoteStyle = iota
	// QuoteBacktick wraps identifiers in backticks (MySQL).
	QuoteBacktick
	// QuoteBracket wraps identifiers in square brackets (SQL Server).
	QuoteBracket
)

// PlaceholderStyle selects the positional parameter syntax for a backend.
type PlaceholderStyle int

const (
	// PlaceholderQuestion is "?" (MySQL, SQLite).
	PlaceholderQuestion PlaceholderStyle = iota
	// PlaceholderDollar is "$1, $2, ..." (PostgreSQL).
	PlaceholderDollar
	// PlaceholderAt is "@P1, @P2, ..." (SQL Server).
	PlaceholderAt
)

// Dialect bundles the static, per-backend data that drives SQL generation:
// quoting, placeholder syntax and the counting cost class. Backend quirks
// live here as data so shared logic never special-cases driver names.
type Dialect struct {
	// Name is the backend identifier.
	Name string
	// FastCount is true when COUNT(*) is cheap enough to always run
	// exactly (SQLite, DuckDB). Slow-count backends get catalog estimates
	// instead.
	FastCount bool

	Quote       QuoteStyle
	Placeholder PlaceholderStyle

	// estimateSQL builds the catalog row-count estimate query. Nil for
	// fast-count backends.
	estimateSQL func(table string, schema string) string
	// boolLiteral renders a boolean SQL literal.
	boolLiteral func(v bool) string
	// bytesLiteral renders a blob SQL literal.
	bytesLiteral func(b []byte) string
}

// Static dialects, one per supported backend.
var (
	DialectSQLite = &Dialect{
		Name:         "sqlite",
		FastCount:    true,
		Quote:        QuoteDouble,
		Placeholder:  PlaceholderQuestion,
		boolLiteral:  func(v bool) string { return boolDigit(v) },
		bytesLiteral: func(b []byte) string { return fmt.Sprintf("X'%X'", b) },
	}

	DialectPostgres = &Dialect{
		Name:        "postgres",
		Quote:       QuoteDouble,
		Placeholder: PlaceholderDollar,
		estimateSQL: func(table, schema string) string {
			if schema == "" {
				schema = "public"
			}
			return fmt.Sprintf(
				"SELECT reltuples::bigint FROM pg_class WHERE relname = '%s' AND relnamespace = (SELECT oid FROM pg_namespace WHERE nspname = '%s')",
				escapeSQLString(table), escapeSQLString(schema))
		},
		boolLiteral: func(v bool) string {
			if v {
				return "TRUE"
			}
			return "FALSE"
		},
		bytesLiteral: func(b []byte) string { return fmt.Sprintf("'\\x%x'", b) },
	}

	DialectMySQL = &Dialect{
		Name:        "mysql",
		Quote:       QuoteBacktick,
		Placeholder: PlaceholderQuestion,
		estimateSQL: func(table, schema string) string {
			schemaExpr := "DATABASE()"
			if schema != "" {
				schemaExpr = "'" + escapeSQLString(schema) + "'"
			}
			return fmt.Sprintf(
				"SELECT TABLE_ROWS FROM information_schema.TABLES WHERE TABLE_SCHEMA = %s AND TABLE_NAME = '%s'",
				schemaExpr, escapeSQLString(table))
		},
		boolLiteral:  func(v bool) string { return boolDigit(v) },
		bytesLiteral: func(b []byte) string { return fmt.Sprintf("X'%X'", b) },
	}

	DialectSQLServer = &Dialect{
		Name:        "mssql",
		Quote:       QuoteBracket,
		Placeholder: PlaceholderAt,
		estimateSQL: func(table, schema string) string {
			if schema == "" {
				schema = "dbo"
			}
			return fmt.Sprintf(
				"SELECT SUM(p.rows) FROM sys.partitions p INNER JOIN sys.tables t ON p.object_id = t.object_id INNER JOIN sys.schemas s ON t.schema_id = s.schema_id WHERE t.name = '%s' AND s.name = '%s' AND p.index_id IN (0, 1)",
				escapeSQLString(table), escapeSQLString(schema))
		},
		boolLiteral:  func(v bool) string { return boolDigit(v) },
		bytesLiteral: func(b []byte) string { return fmt.Sprintf("0x%X", b) },
	}
)

func boolDigit(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func escapeSQLString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// QuoteIdent escapes a single identifier segment for this backend,
// doubling any embedded closing quote character.
func (d *Dialect) QuoteIdent(ident string) string {
	switch d.Quote {
	case QuoteBacktick:
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	case QuoteBracket:
		return "[" + strings.ReplaceAll(ident, "]", "]]") + "]"
	default:
		return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
	}
}

// QualifyTable escapes a table reference, optionally schema-qualified.
// Each segment is escaped separately and re-joined with a dot.
func (d *Dialect) QualifyTable(table, schema string) string {
	if schema != "" {
		return d.QuoteIdent(schema) + "." + d.QuoteIdent(table)
	}
	return d.QuoteIdent(table)
}

// PlaceholderAt returns the placeholder token for the 1-based parameter
// position.
func (d *Dialect) PlaceholderAt(position int) string {
	switch d.Placeholder {
	case PlaceholderDollar:
		return "$" + strconv.Itoa(position)
	case PlaceholderAt:
		return "@P" + strconv.Itoa(position)
	default:
		return "?"
	}
}

// EstimateRowCountSQL returns the catalog estimate query for a table, or ""
// for fast-count backends where callers should COUNT(*) instead.
func (d *Dialect) EstimateRowCountSQL(table, schema string) string {
	if d.estimateSQL == nil {
		return ""
	}
	return d.estimateSQL(table, schema)
}

// Literal renders a value as an escaped SQL literal for this backend.
// Used by UpdateCell, where binding ad hoc dynamically-typed literals is
// unreliable across backends.
func (d *Dialect) Literal(v Value) string {
	switch v.Kind() {
	case KindNull:
		return "NULL"
	case KindBool:
		return d.boolLiteral(v.BoolValue())
	case KindInt8, KindInt16, KindInt32, KindInt64:
		return strconv.FormatInt(v.Int64Value(), 10)
	case KindFloat32, KindFloat64:
		return strconv.FormatFloat(v.Float64Value(), 'g', -1, 64)
	case KindDecimal:
		return v.Text()
	case KindBytes:
		return d.bytesLiteral(v.BytesValue())
	case KindArray:
		elems := make([]string, len(v.ArrayValue()))
		for i, el := range v.ArrayValue() {
			elems[i] = d.Literal(el)
		}
		if d.Name == "postgres" {
			return "ARRAY[" + strings.Join(elems, ", ") + "]"
		}
		return "'" + escapeSQLString(v.String()) + "'"
	default:
		// Strings, UUIDs, JSON and temporals all render as quoted text.
		return "'" + escapeSQLString(v.String()) + "'"
	}
}

// BuildUpdateCellSQL renders the single-cell UPDATE for a CellUpdateRequest
// using escaped literals rather than bound parameters: binding ad hoc,
// dynamically typed values is unreliable across backends, while a properly
// escaped literal is not. The table name may arrive schema-qualified with a
// dot; each segment is escaped separately.
func BuildUpdateCellSQL(d *Dialect, req CellUpdateRequest) (string, error) {
	var pairs []ColumnValue
	switch id := req.Row.(type) {
	case RowIndex:
		return "", NewError(ErrNotSupported, "row index-based updates not supported; use primary key or full row identifier")
	case PrimaryKey:
		pairs = id
	case FullRow:
		pairs = id
	default:
		return "", Errorf(ErrNotSupported, "unknown row identifier %T", req.Row)
	}
	if len(pairs) == 0 {
		return "", NewError(ErrQuery, "empty row identifier")
	}

	conditions := make([]string, 0, len(pairs))
	for _, cv := range pairs {
		if cv.Value.IsNull() {
			conditions = append(conditions, d.QuoteIdent(cv.Column)+" IS NULL")
			continue
		}
		conditions = append(conditions, d.QuoteIdent(cv.Column)+" = "+d.Literal(cv.Value))
	}

	segments := strings.Split(req.TableName, ".")
	for i, seg := range segments {
		segments[i] = d.QuoteIdent(seg)
	}

	newLiteral := "NULL"
	if req.NewValue != nil {
		newLiteral = d.Literal(*req.NewValue)
	}

	return fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s",
		strings.Join(segments, "."),
		d.QuoteIdent(req.ColumnName),
		newLiteral,
		strings.Join(conditions, " AND ")), nil
}
