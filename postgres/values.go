package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/tessera-db/tessera"
	"github.com/tessera-db/tessera/internal/coerce"
)

// coerceParam converts a value into the Go representation pgx should bind
// for the statement's target OID. Strings upgrade to temporals, UUIDs and
// JSON when the target column asks for them; a failed upgrade keeps the
// string, leaving the final verdict to the server.
func coerceParam(v tessera.Value, oid uint32) any {
	switch v.Kind() {
	case tessera.KindNull:
		return nil
	case tessera.KindBool:
		return v.BoolValue()

	case tessera.KindInt8, tessera.KindInt16, tessera.KindInt32, tessera.KindInt64:
		return coerce.Int(v.Int64Value(), intWidthForOID(oid, v.Kind()))

	case tessera.KindFloat32, tessera.KindFloat64:
		if oid == pgtype.Float4OID {
			return float32(v.Float64Value())
		}
		return v.Float64Value()

	case tessera.KindString:
		return coerceString(v.Text(), oid)

	case tessera.KindDecimal, tessera.KindJSON:
		return v.Text()
	case tessera.KindBytes:
		return v.BytesValue()
	case tessera.KindUUID:
		return v.UUIDValue()
	case tessera.KindDate, tessera.KindTime, tessera.KindDateTime, tessera.KindDateTimeUTC:
		return v.TimeValue()

	case tessera.KindArray:
		elems := make([]any, len(v.ArrayValue()))
		for i, el := range v.ArrayValue() {
			elems[i] = coerceParam(el, 0)
		}
		return elems
	default:
		return v.String()
	}
}

// coerceString upgrades a string toward the column's declared type.
func coerceString(s string, oid uint32) any {
	switch oid {
	case pgtype.DateOID:
		if t, ok := coerce.Date(s); ok {
			return t
		}
	case pgtype.TimeOID:
		if t, ok := coerce.TimeOfDay(s); ok {
			return t
		}
	case pgtype.TimestampOID:
		if t, ok := coerce.DateTime(s); ok {
			return t
		}
	case pgtype.TimestamptzOID:
		if t, ok := coerce.DateTimeUTC(s); ok {
			return t
		}
	case pgtype.UUIDOID:
		if u, err := uuid.Parse(s); err == nil {
			return u
		}
	case pgtype.JSONOID, pgtype.JSONBOID:
		if coerce.ValidJSON(s) {
			return []byte(s)
		}
	case pgtype.Int2OID, pgtype.Int4OID, pgtype.Int8OID,
		pgtype.Float4OID, pgtype.Float8OID, pgtype.NumericOID, pgtype.BoolOID:
		// Numeric and boolean targets accept the textual form directly.
		return s
	}
	return s
}

// intWidthForOID picks the bind width: the column's when known, the value's
// own kind otherwise.
func intWidthForOID(oid uint32, kind tessera.Kind) int {
	switch oid {
	case pgtype.Int2OID:
		return 2
	case pgtype.Int4OID:
		return 4
	case pgtype.Int8OID:
		return 8
	}
	switch kind {
	case tessera.KindInt8, tessera.KindInt16:
		return 2
	case tessera.KindInt32:
		return 4
	default:
		return 8
	}
}

// bindFallback is the type-agnostic representation used when no parameter
// OIDs are available.
func bindFallback(params []tessera.Value) []any {
	args := make([]any, len(params))
	for i, p := range params {
		args[i] = coerceParam(p, 0)
	}
	return args
}

// cellValue converts one decoded pgx cell into a Value, using the column
// OID to keep date/timestamp/timestamptz distinct.
func cellValue(oid uint32, cell any) tessera.Value {
	switch v := cell.(type) {
	case nil:
		return tessera.Null()
	case bool:
		return tessera.Bool(v)
	case int16:
		return tessera.Int16(v)
	case int32:
		return tessera.Int32(v)
	case int64:
		return tessera.Int64(v)
	case float32:
		return tessera.Float32(v)
	case float64:
		return tessera.Float64(v)
	case string:
		if oid == pgtype.JSONOID || oid == pgtype.JSONBOID {
			return tessera.JSON(v)
		}
		return tessera.String(v)
	case []byte:
		if oid == pgtype.JSONOID || oid == pgtype.JSONBOID {
			return tessera.JSON(string(v))
		}
		return tessera.Bytes(v)
	case [16]byte:
		return tessera.UUID(uuid.UUID(v))
	case time.Time:
		switch oid {
		case pgtype.DateOID:
			return tessera.Date(v)
		case pgtype.TimestamptzOID:
			return tessera.DateTimeUTC(v)
		default:
			return tessera.DateTime(v)
		}
	case pgtype.Time:
		midnight := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
		return tessera.TimeOfDay(midnight.Add(time.Duration(v.Microseconds) * time.Microsecond))
	case pgtype.Numeric:
		if dv, err := v.Value(); err == nil {
			if s, ok := dv.(string); ok {
				return tessera.Decimal(s)
			}
		}
		return tessera.String(fmt.Sprint(cell))
	case map[string]any:
		// jsonb decoded by the type map; re-encode to keep the raw text
		// representation.
		if raw, err := json.Marshal(v); err == nil {
			return tessera.JSON(string(raw))
		}
		return tessera.String(fmt.Sprint(v))
	case []any:
		if oid == pgtype.JSONOID || oid == pgtype.JSONBOID {
			if raw, err := json.Marshal(v); err == nil {
				return tessera.JSON(string(raw))
			}
		}
		elems := make([]tessera.Value, len(v))
		for i, el := range v {
			elems[i] = cellValue(0, el)
		}
		return tessera.Array(elems)
	default:
		return tessera.String(fmt.Sprint(v))
	}
}
