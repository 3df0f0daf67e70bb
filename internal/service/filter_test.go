package service

import (
	"testing"
	"time"

	"github.com/report-import-api/internal/models"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestIsDateLikeField(t *testing.T) {
	dateLike := []string{"Created Time", "updated_at", "Start Date", "Closed Time", "End Time", "interaction_date"}
	for _, f := range dateLike {
		if !isDateLikeField(f) {
			t.Errorf("%q should be date-like", f)
		}
	}
	notDateLike := []string{"Building Id", "Owner", "Notes", "Status"}
	for _, f := range notDateLike {
		if isDateLikeField(f) {
			t.Errorf("%q should not be date-like", f)
		}
	}
}

func TestFilterByDateFieldsWindow(t *testing.T) {
	start := day("2025-04-01")
	end := day("2025-04-30")

	tests := []struct {
		name string
		rec  models.RawRecord
		keep bool
	}{
		{"mid window", models.RawRecord{"Created Time": "2025-04-15 10:30:00"}, true},
		{"window start midnight", models.RawRecord{"Created Time": "2025-04-01 00:00:00"}, true},
		{"end date late evening", models.RawRecord{"Created Time": "2025-04-30 23:59:59"}, true},
		{"day after end", models.RawRecord{"Created Time": "2025-05-01 00:00:00"}, false},
		{"day before start", models.RawRecord{"Created Time": "2025-03-31 23:59:59"}, false},
		{"date only on end date", models.RawRecord{"Created Time": "2025-04-30"}, true},
		{"unparseable date", models.RawRecord{"Created Time": "soon"}, false},
		{"no date-like field", models.RawRecord{"Notes": "2025-04-15"}, false},
		{"empty value", models.RawRecord{"Created Time": ""}, false},
		{"second field matches", models.RawRecord{"Created Time": "", "Closed Time": "2025-04-20 08:00:00"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kept := filterByDateFields([]models.RawRecord{tt.rec}, start, end)
			if got := len(kept) == 1; got != tt.keep {
				t.Errorf("keep = %v, want %v for %v", got, tt.keep, tt.rec)
			}
		})
	}
}

func TestFilterByDateFieldsKeepsOrder(t *testing.T) {
	start, end := day("2025-04-01"), day("2025-04-30")
	records := []models.RawRecord{
		{"Created Time": "2025-04-02", "seq": "a"},
		{"Created Time": "2025-06-01", "seq": "b"},
		{"Created Time": "2025-04-03", "seq": "c"},
	}
	kept := filterByDateFields(records, start, end)
	if len(kept) != 2 || kept[0]["seq"] != "a" || kept[1]["seq"] != "c" {
		t.Errorf("expected ordered records a,c, got %v", kept)
	}
}

func TestDatePatterns(t *testing.T) {
	patterns := datePatterns(day("2025-04-01"), day("2025-05-15"))
	want := map[string]bool{
		"2025-04-01": true,
		"2025-04":    true,
		"2025/04":    true,
		"2025-05-15": true,
		"2025-05":    true,
		"2025/05":    true,
	}
	if len(patterns) != len(want) {
		t.Fatalf("expected %d patterns, got %v", len(want), patterns)
	}
	for _, p := range patterns {
		if !want[p] {
			t.Errorf("unexpected pattern %q", p)
		}
	}

	// Same month for both bounds must not duplicate patterns.
	patterns = datePatterns(day("2025-04-01"), day("2025-04-30"))
	seen := map[string]int{}
	for _, p := range patterns {
		seen[p]++
		if seen[p] > 1 {
			t.Errorf("duplicate pattern %q", p)
		}
	}
}

func TestFilterByPattern(t *testing.T) {
	start, end := day("2025-04-01"), day("2025-04-30")
	records := []models.RawRecord{
		{"Notes": "escalated 2025-04-12 by ops"},
		{"Notes": "escalated 2025-06-12 by ops"},
		{"Ref": "2025/04 billing cycle"},
		{"Ref": ""},
	}
	kept := filterByPattern(records, start, end)
	if len(kept) != 2 {
		t.Fatalf("expected 2 pattern matches, got %d: %v", len(kept), kept)
	}
}
