package pagination

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Identifiable is implemented by records that carry a platform-assigned id.
type Identifiable interface {
	// RecordID returns the id in its string representation.
	RecordID() string
}

// Record is an opaque platform entity. Only the "id" field is interpreted;
// every other field is passed through unexamined.
type Record map[string]any

// RecordID returns the "id" field coerced to a string.
// Returns "" if the record has no id.
func (r Record) RecordID() string {
	return idString(r["id"])
}

// idString coerces an id value decoded from JSON to its string form.
func idString(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case json.Number:
		return id.String()
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	default:
		return fmt.Sprint(id)
	}
}
