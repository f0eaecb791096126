package source

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Accepted timestamp layouts, tried in order.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// asCount extracts a non-negative counter from a raw JSON value.
// Malformed or negative values report ok=false and count as zero, per
// the parse-failure policy.
func asCount(value any) (int64, bool) {
	parsed, ok := asInt64(value)
	if !ok || parsed < 0 {
		return 0, false
	}
	return parsed, true
}

func asInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case json.Number:
		if parsed, err := v.Int64(); err == nil {
			return parsed, true
		}
		if parsed, err := v.Float64(); err == nil {
			return int64(parsed), true
		}
		return 0, false
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, false
		}
		if parsed, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return parsed, true
		}
		if parsed, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return int64(parsed), true
		}
		return 0, false
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	case nil:
		return 0, false
	default:
		return 0, false
	}
}

// asTimestamp extracts a timestamp from a raw JSON value. Malformed
// values report ok=false and a zero time.
func asTimestamp(value any) (time.Time, bool) {
	raw, isString := value.(string)
	if !isString {
		return time.Time{}, false
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed.UTC(), true
		}
	}
	return time.Time{}, false
}

// asString extracts a trimmed string field.
func asString(value any) string {
	raw, isString := value.(string)
	if !isString {
		return ""
	}
	return strings.TrimSpace(raw)
}
