package common

import (
	"encoding/json"
	"strings"
	"time"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	time.DateOnly,
}

// ParseTimestamp normalizes a stored timestamp. Drivers hand back their native
// representation: time.Time (memory), unix milliseconds (SQLite), RFC 3339
// strings (Badger JSON). Reports false for nil, zero or unparsable values.
func ParseTimestamp(v any) (time.Time, bool) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t == nil || t.IsZero() {
			return time.Time{}, false
		}
		return *t, true
	case int64:
		if t <= 0 {
			return time.Time{}, false
		}
		return time.UnixMilli(t).UTC(), true
	case int:
		return ParseTimestamp(int64(t))
	case float64:
		return ParseTimestamp(int64(t))
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return time.Time{}, false
		}
		return ParseTimestamp(n)
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

// TimestampOr is ParseTimestamp with a fallback for absent values.
func TimestampOr(v any, fallback time.Time) time.Time {
	if ts, ok := ParseTimestamp(v); ok {
		return ts
	}
	return fallback
}
