// Package stdsql bridges database/sql backends (MySQL, SQL Server) to the
// driver-neutral value model: parameter binding in the type-agnostic
// fallback representation, and row scanning that always produces column
// metadata, even for empty result sets.
package stdsql

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tessera-db/tessera"
)

// BindArgs converts values to their most natural database/sql
// representation. database/sql drivers expose no parameter type metadata,
// so this is the type-agnostic coercion fallback.
func BindArgs(params []tessera.Value) []any {
	args := make([]any, len(params))
	for i, p := range params {
		args[i] = bindArg(p)
	}
	return args
}

func bindArg(v tessera.Value) any {
	switch v.Kind() {
	case tessera.KindNull:
		return nil
	case tessera.KindBool:
		return v.BoolValue()
	case tessera.KindInt8:
		return int8(v.Int64Value())
	case tessera.KindInt16:
		return int16(v.Int64Value())
	case tessera.KindInt32:
		return int32(v.Int64Value())
	case tessera.KindInt64:
		return v.Int64Value()
	case tessera.KindFloat32:
		return float32(v.Float64Value())
	case tessera.KindFloat64:
		return v.Float64Value()
	case tessera.KindDecimal, tessera.KindString, tessera.KindJSON:
		return v.Text()
	case tessera.KindBytes:
		return v.BytesValue()
	case tessera.KindUUID:
		return v.UUIDValue().String()
	case tessera.KindDate, tessera.KindTime, tessera.KindDateTime, tessera.KindDateTimeUTC:
		return v.TimeValue()
	case tessera.KindArray:
		return v.String()
	default:
		return nil
	}
}

// ColumnMeta builds metadata from the result's column type descriptors.
// Available before any row is read, so zero-row results stay fully
// described.
func ColumnMeta(rows *sql.Rows) ([]tessera.ColumnMeta, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	metas := make([]tessera.ColumnMeta, len(types))
	for i, ct := range types {
		meta := tessera.ColumnMeta{
			Name:     ct.Name(),
			DataType: strings.ToLower(ct.DatabaseTypeName()),
			Ordinal:  i,
		}
		if nullable, ok := ct.Nullable(); ok {
			meta.Nullable = nullable
		}
		if length, ok := ct.Length(); ok {
			meta.MaxLength = &length
		}
		if precision, scale, ok := ct.DecimalSize(); ok {
			p, s := int32(precision), int32(scale)
			meta.Precision, meta.Scale = &p, &s
		}
		metas[i] = meta
	}
	return metas, nil
}

// ScanAll drains the cursor into rows of Values.
func ScanAll(rows *sql.Rows, columnNames []string) ([]tessera.Row, error) {
	var out []tessera.Row
	for rows.Next() {
		raw := make([]any, len(columnNames))
		ptrs := make([]any, len(columnNames))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		values := make([]tessera.Value, len(raw))
		for i, cell := range raw {
			values[i] = CellValue(cell)
		}
		out = append(out, tessera.NewRow(columnNames, values))
	}
	return out, rows.Err()
}

// CellValue converts one scanned driver value into a Value.
func CellValue(cell any) tessera.Value {
	switch v := cell.(type) {
	case nil:
		return tessera.Null()
	case bool:
		return tessera.Bool(v)
	case int64:
		return tessera.Int64(v)
	case float64:
		return tessera.Float64(v)
	case []byte:
		// database/sql drivers return text columns as []byte; keep valid
		// UTF-8 as a string and everything else as a blob.
		if isText(v) {
			return tessera.String(string(v))
		}
		return tessera.Bytes(v)
	case string:
		return tessera.String(v)
	case time.Time:
		return tessera.DateTime(v)
	default:
		return tessera.String(fmt.Sprint(v))
	}
}

func isText(b []byte) bool {
	if !utf8.Valid(b) {
		return false
	}
	for _, c := range b {
		if c < 0x09 || c == 0x7f {
			return false
		}
	}
	return true
}
