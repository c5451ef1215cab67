package match

import (
	"encoding/json"
	"strings"
	"time"
)

// Text is an optional string field of a record. The blank value means absent.
type Text string

// Value returns the trimmed text and whether it is present.
func (t Text) Value() (string, bool) {
	s := strings.TrimSpace(string(t))
	return s, s != ""
}

// Present reports whether t holds a non-blank value.
func (t Text) Present() bool {
	_, ok := t.Value()
	return ok
}

// UnmarshalJSON accepts a JSON string. Any other JSON value (number, bool,
// object, null) decodes as absent instead of failing the whole record.
func (t *Text) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		*t = ""
		return nil
	}
	*t = Text(s)
	return nil
}

// Timestamp is an optional instant. The zero value means absent.
type Timestamp struct {
	time.Time
}

// At wraps t as a Timestamp.
func At(t time.Time) Timestamp { return Timestamp{Time: t} }

// UnmarshalJSON accepts an RFC 3339 string or unix milliseconds. Anything
// else decodes as absent.
func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	ts.Time = time.Time{}

	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if t, err := time.Parse(time.RFC3339, strings.TrimSpace(s)); err == nil {
			ts.Time = t
		}
		return nil
	}
	var ms float64
	if err := json.Unmarshal(b, &ms); err == nil && ms > 0 {
		ts.Time = time.UnixMilli(int64(ms)).UTC()
	}
	return nil
}

// MarshalJSON renders RFC 3339, or null when absent.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(ts.UTC().Format(time.RFC3339))
}
