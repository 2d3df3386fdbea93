package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/tessera-db/tessera"
)

func TestCoerceParamIntWidths(t *testing.T) {
	v := tessera.Int64(7)

	if got := coerceParam(v, pgtype.Int2OID); got != int16(7) {
		t.Errorf("int2 target: got %T(%v)", got, got)
	}
	if got := coerceParam(v, pgtype.Int4OID); got != int32(7) {
		t.Errorf("int4 target: got %T(%v)", got, got)
	}
	if got := coerceParam(v, pgtype.Int8OID); got != int64(7) {
		t.Errorf("int8 target: got %T(%v)", got, got)
	}
	// No target type: the value's own kind decides.
	if got := coerceParam(tessera.Int16(7), 0); got != int16(7) {
		t.Errorf("untyped int16: got %T(%v)", got, got)
	}
}

func TestCoerceParamFloatWidth(t *testing.T) {
	if got := coerceParam(tessera.Float64(1.5), pgtype.Float4OID); got != float32(1.5) {
		t.Errorf("float4 target: got %T(%v)", got, got)
	}
	if got := coerceParam(tessera.Float64(1.5), pgtype.Float8OID); got != float64(1.5) {
		t.Errorf("float8 target: got %T(%v)", got, got)
	}
}

func TestCoerceStringUpgrades(t *testing.T) {
	if got := coerceString("2024-03-15", pgtype.DateOID); got != time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC) {
		t.Errorf("date upgrade: got %T(%v)", got, got)
	}
	if _, ok := coerceString("2024-03-15 10:30:00", pgtype.TimestampOID).(time.Time); !ok {
		t.Error("timestamp upgrade failed")
	}
	if _, ok := coerceString("14:30:00", pgtype.TimeOID).(time.Time); !ok {
		t.Error("time upgrade failed")
	}

	u := "a0eebc99-9c0b-4ef8-bb6d-6bb9bd380a11"
	if got, ok := coerceString(u, pgtype.UUIDOID).(uuid.UUID); !ok || got.String() != u {
		t.Errorf("uuid upgrade: got %v", got)
	}

	if got, ok := coerceString(`{"a": 1}`, pgtype.JSONBOID).([]byte); !ok || string(got) != `{"a": 1}` {
		t.Errorf("jsonb upgrade: got %v", got)
	}
	// Invalid JSON stays a string; the server gets the final say.
	if _, ok := coerceString("{not json", pgtype.JSONBOID).(string); !ok {
		t.Error("invalid JSON should stay a string")
	}
	// Unparseable dates stay strings instead of failing the statement.
	if _, ok := coerceString("not a date", pgtype.DateOID).(string); !ok {
		t.Error("unparseable date should stay a string")
	}
}

func TestCoerceParamNullAndBytes(t *testing.T) {
	if got := coerceParam(tessera.Null(), pgtype.Int4OID); got != nil {
		t.Errorf("null: got %v", got)
	}
	got := coerceParam(tessera.Bytes([]byte{1, 2}), pgtype.ByteaOID)
	if b, ok := got.([]byte); !ok || len(b) != 2 {
		t.Errorf("bytes: got %T(%v)", got, got)
	}
}

func TestCellValueScalars(t *testing.T) {
	if v := cellValue(pgtype.Int4OID, int32(5)); v.Kind() != tessera.KindInt32 || v.Int64Value() != 5 {
		t.Errorf("int32 cell: %#v", v)
	}
	if v := cellValue(pgtype.BoolOID, true); v.Kind() != tessera.KindBool {
		t.Errorf("bool cell: %#v", v)
	}
	if v := cellValue(pgtype.TextOID, "hi"); v.Kind() != tessera.KindString || v.Text() != "hi" {
		t.Errorf("text cell: %#v", v)
	}
	if v := cellValue(pgtype.Int4OID, nil); !v.IsNull() {
		t.Errorf("nil cell: %#v", v)
	}
}

func TestCellValueTemporalsByOID(t *testing.T) {
	ts := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

	if v := cellValue(pgtype.DateOID, ts); v.Kind() != tessera.KindDate {
		t.Errorf("date cell kind = %v", v.Kind())
	}
	if v := cellValue(pgtype.TimestampOID, ts); v.Kind() != tessera.KindDateTime {
		t.Errorf("timestamp cell kind = %v", v.Kind())
	}
	if v := cellValue(pgtype.TimestamptzOID, ts); v.Kind() != tessera.KindDateTimeUTC {
		t.Errorf("timestamptz cell kind = %v", v.Kind())
	}

	tod := pgtype.Time{Microseconds: int64(14*3600+30*60) * 1_000_000, Valid: true}
	v := cellValue(pgtype.TimeOID, tod)
	if v.Kind() != tessera.KindTime {
		t.Fatalf("time cell kind = %v", v.Kind())
	}
	if got := v.TimeValue().Format("15:04:05"); got != "14:30:00" {
		t.Errorf("time cell = %s", got)
	}
}

func TestCellValueUUIDAndJSON(t *testing.T) {
	raw := [16]byte{0xa0, 0xee, 0xbc, 0x99, 0x9c, 0x0b, 0x4e, 0xf8, 0xbb, 0x6d, 0x6b, 0xb9, 0xbd, 0x38, 0x0a, 0x11}
	v := cellValue(pgtype.UUIDOID, raw)
	if v.Kind() != tessera.KindUUID {
		t.Fatalf("uuid cell kind = %v", v.Kind())
	}
	if v.UUIDValue().String() != "a0eebc99-9c0b-4ef8-bb6d-6bb9bd380a11" {
		t.Errorf("uuid cell = %s", v.UUIDValue())
	}

	j := cellValue(pgtype.JSONBOID, map[string]any{"a": float64(1)})
	if j.Kind() != tessera.KindJSON {
		t.Fatalf("jsonb cell kind = %v", j.Kind())
	}
	if j.Text() != `{"a":1}` {
		t.Errorf("jsonb cell = %s", j.Text())
	}
}

func TestCellValueArray(t *testing.T) {
	v := cellValue(0, []any{"a", "b"})
	if v.Kind() != tessera.KindArray {
		t.Fatalf("array cell kind = %v", v.Kind())
	}
	elems, _ := v.AsStringArray()
	if len(elems) != 2 || elems[0] != "a" || elems[1] != "b" {
		t.Errorf("array cell = %v", elems)
	}
}

func TestIntWidthFallsBackToValueKind(t *testing.T) {
	if w := intWidthForOID(0, tessera.KindInt8); w != 2 {
		t.Errorf("int8 width = %d", w)
	}
	if w := intWidthForOID(0, tessera.KindInt32); w != 4 {
		t.Errorf("int32 width = %d", w)
	}
	if w := intWidthForOID(0, tessera.KindInt64); w != 8 {
		t.Errorf("int64 width = %d", w)
	}
}
