// Package coerce converts raw CSV text fields to typed values. Converters
// never fail hard: malformed input yields ok=false so callers can null the
// field and keep the row.
package coerce

import (
	"strconv"
	"strings"
	"time"
)

// DateTimeLayout is the normalized, timezone-naive representation used for
// every datetime field written to the database.
const DateTimeLayout = "2006-01-02 15:04:05"

// dateTimeLayouts are tried in order for a direct parse before falling back
// to character stripping.
var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"02-01-2006 15:04:05",
}

// ToDateTime parses a datetime string. On direct-parse failure it strips
// every character except digits, whitespace, colon, slash and hyphen, and
// tries again. ok is false if the value is empty or still unparseable.
func ToDateTime(text string) (time.Time, bool) {
	s := strings.TrimSpace(text)
	if s == "" || strings.EqualFold(s, "null") {
		return time.Time{}, false
	}

	if t, ok := parseDateTime(s); ok {
		return t, true
	}

	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9':
			return r
		case r == ' ' || r == '\t':
			return r
		case r == ':' || r == '/' || r == '-':
			return r
		}
		return -1
	}, s)
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" || cleaned == s {
		return time.Time{}, false
	}

	t, ok := parseDateTime(cleaned)
	return t, ok
}

func parseDateTime(s string) (time.Time, bool) {
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ToInt parses an integer after discarding everything that is not a digit or
// a minus sign. ok is false for empty or unparseable input.
func ToInt(text string) (int64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		return -1
	}, text)
	if cleaned == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ToDecimal parses a decimal after discarding everything that is not a
// digit, dot or minus sign. ok is false for empty or unparseable input.
func ToDecimal(text string) (float64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, text)
	if cleaned == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ToBool matches common truthy/falsy spellings case-insensitively. ok is
// false when the value is neither.
func ToBool(text string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "true", "1", "yes", "y":
		return true, true
	case "false", "0", "no", "n":
		return false, true
	}
	return false, false
}
