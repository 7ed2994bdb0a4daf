package util

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
)

// Placeholder is shown for missing values.
const Placeholder = "—"

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDate parses the date forms produced by the backends.
func ParseDate(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, !v.IsZero()
	case *time.Time:
		if v == nil {
			return time.Time{}, false
		}
		return *v, !v.IsZero()
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// FormatDate formats a date for display, falling back to the raw value
// when it cannot be parsed.
func FormatDate(value any) string {
	if value == nil {
		return Placeholder
	}
	if t, ok := ParseDate(value); ok {
		return t.Format("Jan 02, 2006")
	}
	return Stringify(value)
}

// FormatDateHuman formats a date relative to now: "3 days ago", "2 months ago".
func FormatDateHuman(value any) string {
	t, ok := ParseDate(value)
	if !ok {
		return FormatDate(value)
	}
	return humanize.Time(t)
}

// FormatCount formats an integer with thousands separators.
func FormatCount(n int) string {
	return humanize.Comma(int64(n))
}

// Stringify renders a JSON-like value as plain text.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.Format(time.RFC3339)
	case interface{ String() string }:
		return v.String()
	default:
		return strings.ReplaceAll(fmt.Sprint(v), "\n", " ")
	}
}

// ToFloat converts numeric values, including json.Number.
func ToFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case interface{ Float64() (float64, error) }:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

// ToInt converts numeric values, truncating fractions.
func ToInt(value any) (int, bool) {
	if f, ok := ToFloat(value); ok {
		return int(f), true
	}
	if s, ok := value.(string); ok {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		return n, err == nil
	}
	return 0, false
}

// TruncateString truncates s to maxWidth terminal cells, adding "…" when cut.
func TruncateString(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	return runewidth.Truncate(s, maxWidth, "…")
}
