package coerce

import (
	"testing"
	"time"
)

func TestDate(t *testing.T) {
	cases := []string{"2024-03-15", "2024/03/15", "15.03.2024"}
	want := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	for _, s := range cases {
		got, ok := Date(s)
		if !ok || !got.Equal(want) {
			t.Errorf("Date(%q) = %v, %v", s, got, ok)
		}
	}
	if _, ok := Date("not a date"); ok {
		t.Error("garbage must not parse")
	}
}

func TestTimeOfDay(t *testing.T) {
	got, ok := TimeOfDay("14:30:05")
	if !ok || got.Hour() != 14 || got.Minute() != 30 || got.Second() != 5 {
		t.Errorf("TimeOfDay = %v, %v", got, ok)
	}
	if _, ok := TimeOfDay("14:30"); !ok {
		t.Error("minute precision must parse")
	}
}

func TestDateTime(t *testing.T) {
	got, ok := DateTime("2024-03-15 14:30:05")
	if !ok || got.Hour() != 14 {
		t.Errorf("DateTime = %v, %v", got, ok)
	}
	if _, ok := DateTime("2024-03-15T14:30:05"); !ok {
		t.Error("T separator must parse")
	}
	// A bare date is midnight.
	got, ok = DateTime("2024-03-15")
	if !ok || got.Hour() != 0 {
		t.Errorf("bare date = %v, %v", got, ok)
	}
}

func TestDateTimeUTC(t *testing.T) {
	got, ok := DateTimeUTC("2024-03-15T12:00:00+02:00")
	if !ok || got.Hour() != 10 {
		t.Errorf("DateTimeUTC = %v, %v", got, ok)
	}
	// Zone-less input reads as UTC.
	got, ok = DateTimeUTC("2024-03-15 12:00:00")
	if !ok || got.Hour() != 12 {
		t.Errorf("zone-less = %v, %v", got, ok)
	}
}

func TestValidJSON(t *testing.T) {
	if !ValidJSON(`{"a": [1, 2]}`) {
		t.Error("valid JSON rejected")
	}
	if ValidJSON(`{broken`) {
		t.Error("invalid JSON accepted")
	}
}

func TestIntWidths(t *testing.T) {
	if v := Int(7, 2); v != int16(7) {
		t.Errorf("width 2 = %T(%v)", v, v)
	}
	if v := Int(7, 4); v != int32(7) {
		t.Errorf("width 4 = %T(%v)", v, v)
	}
	if v := Int(7, 8); v != int64(7) {
		t.Errorf("width 8 = %T(%v)", v, v)
	}
}
