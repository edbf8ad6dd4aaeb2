package sources

import (
	"fmt"
	"strconv"
	"strings"
)

// Record is one row as returned by a Reader. Values keep the driver's native
// types (int64, float64, string, []byte or nil); accessors normalize them.
type Record map[string]any

// String returns the field as trimmed text. Numbers are formatted without
// trailing zeros; missing or NULL values yield "".
func (r Record) String(field string) string {
	switch v := r[field].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case []byte:
		return strings.TrimSpace(string(v))
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// Float returns the field as a float64. Unparseable values yield 0.
func (r Record) Float(field string) float64 {
	switch v := r[field].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string, []byte:
		f, err := strconv.ParseFloat(r.String(field), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// Int returns the field as an int64. Fractional values are truncated.
func (r Record) Int(field string) int64 {
	switch v := r[field].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case string, []byte:
		i, err := strconv.ParseInt(r.String(field), 10, 64)
		if err != nil {
			return 0
		}
		return i
	default:
		return 0
	}
}

// First returns the first non-empty string among fields, or "".
func (r Record) First(fields ...string) string {
	for _, f := range fields {
		if v := r.String(f); v != "" {
			return v
		}
	}
	return ""
}
