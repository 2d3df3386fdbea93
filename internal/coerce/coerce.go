// Package coerce implements the best-effort textual upgrades used when a
// prepared statement reports a temporal or JSON target type for a string
// parameter. Every parser tries a list of known formats in order; a miss is
// reported with ok=false and the caller keeps the original string, so a
// failed upgrade can never fail a statement by itself.
package coerce

import (
	"encoding/json"
	"time"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02.01.2006",
}

var timeLayouts = []string{
	"15:04:05",
	"15:04:05.999999999",
	"15:04",
}

var dateTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
}

var dateTimeUTCLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
}

func parseAny(s string, layouts []string) (time.Time, bool) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Date parses a calendar date.
func Date(s string) (time.Time, bool) {
	return parseAny(s, dateLayouts)
}

// TimeOfDay parses a time of day.
func TimeOfDay(s string) (time.Time, bool) {
	return parseAny(s, timeLayouts)
}

// DateTime parses a zone-less timestamp. A bare date parses as midnight.
func DateTime(s string) (time.Time, bool) {
	if t, ok := parseAny(s, dateTimeLayouts); ok {
		return t, true
	}
	if t, ok := Date(s); ok {
		return t, true
	}
	return time.Time{}, false
}

// DateTimeUTC parses a timestamp with zone and normalizes it to UTC.
// Zone-less input is interpreted as already being UTC.
func DateTimeUTC(s string) (time.Time, bool) {
	if t, ok := parseAny(s, dateTimeUTCLayouts); ok {
		return t.UTC(), true
	}
	if t, ok := Date(s); ok {
		return t.UTC(), true
	}
	return time.Time{}, false
}

// ValidJSON reports whether s is well-formed JSON.
func ValidJSON(s string) bool {
	return json.Valid([]byte(s))
}

// Int clamps a 64-bit value into the wire width the target column
// requires, returning the exact Go type the driver must bind so the binary
// encoding has the right byte count.
func Int(v int64, widthBytes int) any {
	switch widthBytes {
	case 2:
		return int16(v)
	case 4:
		return int32(v)
	default:
		return v
	}
}
