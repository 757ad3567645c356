// Package normalize turns heterogeneous raw provider records into typed
// canonical rows. All functions are pure; callers decide whether a failed
// normalization is fatal.
package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	prefixedCodePattern = regexp.MustCompile(`^A(\d{6})$`)
	numericPattern      = regexp.MustCompile(`^\d+(\.0+)?$`)
	alnumCodePattern    = regexp.MustCompile(`^[A-Z0-9]{6}$`)
)

// InstrumentCode canonicalizes a raw instrument code. It strips a single
// leading market-prefix letter ("A005930" -> "005930"), collapses
// numeric-with-trailing-zero spellings ("5930.0" -> "5930"), left-pads pure
// numeric codes to 6 digits, and accepts already-valid 6-character
// alphanumeric codes. Anything else fails.
func InstrumentCode(raw any) (string, bool) {
	text := strings.ToUpper(strings.TrimSpace(stringify(raw)))
	if text == "" {
		return "", false
	}

	if m := prefixedCodePattern.FindStringSubmatch(text); m != nil {
		return m[1], true
	}

	if numericPattern.MatchString(text) {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return "", false
		}
		text = strconv.FormatInt(int64(f), 10)
	}

	if isDigits(text) {
		if len(text) > 6 {
			return "", false
		}
		return strings.Repeat("0", 6-len(text)) + text, true
	}

	if alnumCodePattern.MatchString(text) {
		return text, true
	}

	return "", false
}

// Date normalizes a raw date value to a UTC civil date. Accepts time.Time
// directly, compact YYYYMMDD, and ISO YYYY-MM-DD.
func Date(raw any) (time.Time, bool) {
	switch v := raw.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return civil(v), true
	}

	text := strings.TrimSpace(stringify(raw))
	if text == "" {
		return time.Time{}, false
	}
	if len(text) == 8 && isDigits(text) {
		parsed, err := time.ParseInLocation("20060102", text, time.UTC)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	}
	parsed, err := time.ParseInLocation("2006-01-02", text, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

// Number parses a raw numeric value, stripping thousands separators.
func Number(raw any) (float64, bool) {
	switch v := raw.(type) {
	case nil:
		return 0, false
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}

	text := strings.ReplaceAll(strings.TrimSpace(stringify(raw)), ",", "")
	if text == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// NumberOr parses like Number but falls back to def on empty or unparsable
// input instead of failing.
func NumberOr(raw any, def float64) float64 {
	if f, ok := Number(raw); ok {
		return f
	}
	return def
}

// NumberPtr parses like Number but returns nil on empty or unparsable input.
func NumberPtr(raw any) *float64 {
	f, ok := Number(raw)
	if !ok {
		return nil
	}
	return &f
}

// RawText keeps the trimmed string form of a provider value for audit
// trails, or nil when there is nothing to keep.
func RawText(raw any) *string {
	if raw == nil {
		return nil
	}
	text := strings.TrimSpace(stringify(raw))
	if text == "" {
		return nil
	}
	return &text
}

// positiveIntPtr parses a count-like field, keeping it only when > 0.
func positiveIntPtr(raw any) *int64 {
	f, ok := Number(raw)
	if !ok || f <= 0 {
		return nil
	}
	n := int64(f)
	return &n
}

func stringify(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// civil drops the time-of-day component, keeping the wall-clock date.
func civil(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
