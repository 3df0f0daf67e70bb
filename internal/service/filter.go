package service

import (
	"strings"
	"time"

	"github.com/report-import-api/internal/coerce"
	"github.com/report-import-api/internal/models"
)

// dateFieldHints mark a column name as date-like for the primary filter
// tier. Matching is case-insensitive substring.
var dateFieldHints = []string{"date", "time", "created", "updated", "start", "end", "closed"}

// isDateLikeField reports whether a header name hints at carrying a date.
func isDateLikeField(name string) bool {
	lower := strings.ToLower(name)
	for _, hint := range dateFieldHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

// filterByDateFields keeps records where any date-like field parses to a
// timestamp inside [start, end+24h). The window end is exclusive of the day
// after endDate, which makes endDate itself inclusive through 23:59:59.999.
func filterByDateFields(records []models.RawRecord, start, end time.Time) []models.RawRecord {
	endExclusive := end.AddDate(0, 0, 1)

	var kept []models.RawRecord
	for _, rec := range records {
		for field, value := range rec {
			if value == "" || !isDateLikeField(field) {
				continue
			}
			t, ok := coerce.ToDateTime(value)
			if !ok {
				continue
			}
			if !t.Before(start) && t.Before(endExclusive) {
				kept = append(kept, rec)
				break
			}
		}
	}
	return kept
}

// datePatterns derives the substring patterns for the fallback tier from
// both window boundaries: full date, year-month, and slash year-month.
func datePatterns(start, end time.Time) []string {
	seen := make(map[string]bool)
	var patterns []string
	for _, t := range []time.Time{start, end} {
		for _, p := range []string{
			t.Format("2006-01-02"),
			t.Format("2006-01"),
			t.Format("2006/01"),
		} {
			if !seen[p] {
				seen[p] = true
				patterns = append(patterns, p)
			}
		}
	}
	return patterns
}

// filterByPattern is the fallback tier: substring-match derived date
// patterns against every field value. Known imprecise (an ID can contain the
// same digits as a date); only used when the field-aware tier matched
// nothing out of a nonzero fetch.
func filterByPattern(records []models.RawRecord, start, end time.Time) []models.RawRecord {
	patterns := datePatterns(start, end)

	var kept []models.RawRecord
	for _, rec := range records {
		for _, value := range rec {
			if value == "" {
				continue
			}
			matched := false
			for _, p := range patterns {
				if strings.Contains(value, p) {
					matched = true
					break
				}
			}
			if matched {
				kept = append(kept, rec)
				break
			}
		}
	}
	return kept
}
