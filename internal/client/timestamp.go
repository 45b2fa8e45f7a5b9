package client

import (
	"fmt"
	"strings"
	"time"
)

// timestampLayouts are tried in order. The service emits naive UTC
// timestamps without a zone suffix.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// Timestamp decodes ISO-8601 times with or without a zone. Zone-less values are UTC.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}

// ParseTimestamp parses a service timestamp string, returning the zero time
// when it cannot be parsed.
func ParseTimestamp(s string) time.Time {
	var ts Timestamp
	if err := ts.UnmarshalJSON([]byte(s)); err != nil {
		return time.Time{}
	}
	return ts.Time
}
