package tessera

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind identifies which variant of a Value is active.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindFloat32
	KindFloat64
	KindDecimal
	KindString
	KindBytes
	KindUUID
	KindJSON
	KindDate
	KindTime
	KindDateTime
	KindDateTimeUTC
	KindArray
)

// Value is a closed tagged variant representing any SQL-transportable datum.
// Exactly one variant is active at a time. Null is a first-class variant so
// "set column to NULL" and "column unspecified" stay distinguishable.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	raw  []byte
	u    uuid.UUID
	t    time.Time
	arr  []Value
}

// Null returns the NULL value.
func Null() Value { return Value{kind: KindNull} }

// Bool returns a boolean value.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// Int8 returns an 8-bit signed integer value.
func Int8(v int8) Value { return Value{kind: KindInt8, i: int64(v)} }

// Int16 returns a 16-bit signed integer value.
func Int16(v int16) Value { return Value{kind: KindInt16, i: int64(v)} }

// Int32 returns a 32-bit signed integer value.
func Int32(v int32) Value { return Value{kind: KindInt32, i: int64(v)} }

// Int64 returns a 64-bit signed integer value.
func Int64(v int64) Value { return Value{kind: KindInt64, i: v} }

// Float32 returns a 32-bit float value.
func Float32(v float32) Value { return Value{kind: KindFloat32, f: float64(v)} }

// Float64 returns a 64-bit float value.
func Float64(v float64) Value { return Value{kind: KindFloat64, f: v} }

// Decimal returns an arbitrary-precision numeric value kept as text so no
// precision is lost in transit.
func Decimal(v string) Value { return Value{kind: KindDecimal, s: v} }

// String returns a UTF-8 string value.
func String(v string) Value { return Value{kind: KindString, s: v} }

// Bytes returns a binary blob value.
func Bytes(v []byte) Value { return Value{kind: KindBytes, raw: v} }

// UUID returns a UUID value.
func UUID(v uuid.UUID) Value { return Value{kind: KindUUID, u: v} }

// JSON returns a JSON value holding the raw encoded text.
func JSON(raw string) Value { return Value{kind: KindJSON, s: raw} }

// Date returns a date value (time component ignored).
func Date(v time.Time) Value { return Value{kind: KindDate, t: v} }

// TimeOfDay returns a time-of-day value (date component ignored).
func TimeOfDay(v time.Time) Value { return Value{kind: KindTime, t: v} }

// DateTime returns a naive (zone-less) datetime value.
func DateTime(v time.Time) Value { return Value{kind: KindDateTime, t: v} }

// DateTimeUTC returns a UTC datetime value.
func DateTimeUTC(v time.Time) Value { return Value{kind: KindDateTimeUTC, t: v.UTC()} }

// Array returns a homogeneous array value.
func Array(vs []Value) Value { return Value{kind: KindArray, arr: vs} }

// Kind reports the active variant.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is NULL.
func (v Value) IsNull() bool { return v.kind == KindNull }

// BoolValue returns the boolean payload. Valid only for KindBool.
func (v Value) BoolValue() bool { return v.b }

// Int64Value returns the integer payload widened to 64 bits. Valid for the
// four integer kinds.
func (v Value) Int64Value() int64 { return v.i }

// Float64Value returns the float payload widened to 64 bits. Valid for the
// two float kinds.
func (v Value) Float64Value() float64 { return v.f }

// Text returns the textual payload. Valid for KindString, KindDecimal and
// KindJSON.
func (v Value) Text() string { return v.s }

// BytesValue returns the blob payload. Valid only for KindBytes.
func (v Value) BytesValue() []byte { return v.raw }

// UUIDValue returns the UUID payload. Valid only for KindUUID.
func (v Value) UUIDValue() uuid.UUID { return v.u }

// TimeValue returns the temporal payload. Valid for the four temporal kinds.
func (v Value) TimeValue() time.Time { return v.t }

// ArrayValue returns the element slice. Valid only for KindArray.
func (v Value) ArrayValue() []Value { return v.arr }

// AsInt64 tries to read the value as an int64. Integer kinds convert
// directly; strings are parsed.
func (v Value) AsInt64() (int64, bool) {
	switch v.kind {
	case KindInt8, KindInt16, KindInt32, KindInt64:
		return v.i, true
	case KindString:
		n, err := strconv.ParseInt(v.s, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// AsFloat64 tries to read the value as a float64.
func (v Value) AsFloat64() (float64, bool) {
	switch v.kind {
	case KindFloat32, KindFloat64:
		return v.f, true
	case KindString:
		f, err := strconv.ParseFloat(v.s, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// AsBool tries to read the value as a bool.
func (v Value) AsBool() (bool, bool) {
	if v.kind == KindBool {
		return v.b, true
	}
	return false, false
}

// AsString tries to read the value as a string. Only KindString qualifies;
// use String for display formatting of other kinds.
func (v Value) AsString() (string, bool) {
	if v.kind == KindString {
		return v.s, true
	}
	return "", false
}

// AsStringArray collects the string elements of an array value.
func (v Value) AsStringArray() ([]string, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	out := make([]string, 0, len(v.arr))
	for _, el := range v.arr {
		if s, ok := el.AsString(); ok {
			out = append(out, s)
		}
	}
	return out, true
}

// Equal reports deep equality of two values, including the active kind.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindInt8, KindInt16, KindInt32, KindInt64:
		return v.i == o.i
	case KindFloat32, KindFloat64:
		return v.f == o.f
	case KindDecimal, KindString, KindJSON:
		return v.s == o.s
	case KindBytes:
		return string(v.raw) == string(o.raw)
	case KindUUID:
		return v.u == o.u
	case KindDate, KindTime, KindDateTime, KindDateTimeUTC:
		return v.t.Equal(o.t)
	case KindArray:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// String renders the value for display.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "NULL"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt8, KindInt16, KindInt32, KindInt64:
		return strconv.FormatInt(v.i, 10)
	case KindFloat32:
		return strconv.FormatFloat(v.f, 'g', -1, 32)
	case KindFloat64:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindDecimal, KindString, KindJSON:
		return v.s
	case KindBytes:
		return fmt.Sprintf("<%d bytes>", len(v.raw))
	case KindUUID:
		return v.u.String()
	case KindDate:
		return v.t.Format("2006-01-02")
	case KindTime:
		return v.t.Format("15:04:05")
	case KindDateTime:
		return v.t.Format("2006-01-02 15:04:05")
	case KindDateTimeUTC:
		return v.t.UTC().Format(time.RFC3339)
	case KindArray:
		return fmt.Sprintf("[%d items]", len(v.arr))
	default:
		return ""
	}
}

// GoString helps debugging output stay readable in test failures.
func (v Value) GoString() string {
	var b strings.Builder
	fmt.Fprintf(&b, "tessera.Value{kind:%d, %s}", v.kind, v.String())
	return b.String()
}
