// Package jsontime provides JSON-serializable time types.
package jsontime

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// isoLayouts are tried in order when decoding a string timestamp. Layouts
// without a zone are interpreted as UTC.
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Lenient is a time.Time that decodes from whatever a backend is likely to
// emit: RFC 3339 strings, naive ISO-8601 strings without a zone, or Unix
// seconds (integer or fractional). It always encodes as an RFC 3339 string,
// and the zero value encodes as null.
type Lenient time.Time

// Now returns the current time as Lenient.
func Now() Lenient {
	return Lenient(time.Now())
}

// Time returns the underlying time.Time value.
func (l Lenient) Time() time.Time {
	return time.Time(l)
}

// Before reports whether l is before t.
func (l Lenient) Before(t Lenient) bool {
	return time.Time(l).Before(time.Time(t))
}

// After reports whether l is after t.
func (l Lenient) After(t Lenient) bool {
	return time.Time(l).After(time.Time(t))
}

// Equal reports whether l and t represent the same time instant.
func (l Lenient) Equal(t Lenient) bool {
	return time.Time(l).Equal(time.Time(t))
}

// IsZero reports whether l represents the zero time instant.
func (l Lenient) IsZero() bool {
	return time.Time(l).IsZero()
}

// String returns the time formatted as RFC 3339, or "-" for the zero time.
func (l Lenient) String() string {
	if l.IsZero() {
		return "-"
	}
	return time.Time(l).Format(time.RFC3339)
}

// MarshalJSON implements json.Marshaler.
func (l Lenient) MarshalJSON() ([]byte, error) {
	if l.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(time.Time(l).Format(time.RFC3339Nano))
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *Lenient) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*l = Lenient{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		t, err := ParseISO(s)
		if err != nil {
			return err
		}
		*l = Lenient(t)
		return nil
	}
	var secs float64
	if err := json.Unmarshal(b, &secs); err != nil {
		return fmt.Errorf("jsontime: invalid timestamp %s", b)
	}
	whole, frac := math.Modf(secs)
	*l = Lenient(time.Unix(int64(whole), int64(frac*1e9)).UTC())
	return nil
}

// MarshalYAML encodes the time the same way as JSON, so CLI output in both
// formats agrees.
func (l Lenient) MarshalYAML() (any, error) {
	if l.IsZero() {
		return nil, nil
	}
	return time.Time(l).Format(time.RFC3339), nil
}

// ParseISO parses s with the layouts a Python backend typically produces.
// An empty string yields the zero time.
func ParseISO(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("jsontime: unrecognized time %q", s)
}
