package coerce

import (
	"testing"
	"time"
)

func TestToDateTime(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string // normalized layout, "" means not parseable
		wantOK bool
	}{
		{"rfc3339", "2025-04-15T10:30:00Z", "2025-04-15 10:30:00", true},
		{"space separated", "2025-04-15 10:30:00", "2025-04-15 10:30:00", true},
		{"date only", "2025-04-15", "2025-04-15 00:00:00", true},
		{"us slash format", "04/15/2025 10:30:00", "2025-04-15 10:30:00", true},
		{"slash year first", "2025/04/15", "2025-04-15 00:00:00", true},
		{"noise stripped", "2025-04-15 10:30:00 (UTC)", "2025-04-15 10:30:00", true},
		{"letters around date", "approx. 2025-04-15", "2025-04-15 00:00:00", true},
		{"empty", "", "", false},
		{"literal null", "null", "", false},
		{"garbage", "not a date", "", false},
		{"only digits no structure", "123456789", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToDateTime(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ToDateTime(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if formatted := got.Format(DateTimeLayout); formatted != tt.want {
				t.Errorf("ToDateTime(%q) = %s, want %s", tt.input, formatted, tt.want)
			}
		})
	}
}

func TestToDateTimeBoundaries(t *testing.T) {
	got, ok := ToDateTime("2025-04-30 23:59:00")
	if !ok {
		t.Fatal("expected end-of-day timestamp to parse")
	}
	endExclusive := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	if !got.Before(endExclusive) {
		t.Errorf("23:59:00 should sort before the next day")
	}
}

func TestToInt(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   int64
		wantOK bool
	}{
		{"plain", "42", 42, true},
		{"negative", "-17", -17, true},
		{"thousands separator", "1,250", 1250, true},
		{"currency prefix", "$99", 99, true},
		{"trailing unit", "120s", 120, true},
		{"empty", "", 0, false},
		{"no digits", "abc", 0, false},
		{"lone minus", "-", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToInt(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ToInt(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ToInt(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestToDecimal(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   float64
		wantOK bool
	}{
		{"plain", "3.5", 3.5, true},
		{"negative", "-0.25", -0.25, true},
		{"currency", "$1,299.99", 1299.99, true},
		{"integer", "7", 7, true},
		{"empty", "", 0, false},
		{"no digits", "n/a", 0, false},
		{"multiple dots", "1.2.3", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToDecimal(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ToDecimal(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ToDecimal(%q) = %f, want %f", tt.input, got, tt.want)
			}
		})
	}
}

func TestToBool(t *testing.T) {
	truthy := []string{"true", "TRUE", "1", "yes", "Yes", "y", "Y"}
	for _, in := range truthy {
		if got, ok := ToBool(in); !ok || !got {
			t.Errorf("ToBool(%q) = %v, %v, want true, true", in, got, ok)
		}
	}

	falsy := []string{"false", "FALSE", "0", "no", "No", "n", "N"}
	for _, in := range falsy {
		if got, ok := ToBool(in); !ok || got {
			t.Errorf("ToBool(%q) = %v, %v, want false, true", in, got, ok)
		}
	}

	unknown := []string{"", "maybe", "2", "on"}
	for _, in := range unknown {
		if _, ok := ToBool(in); ok {
			t.Errorf("ToBool(%q) should not parse", in)
		}
	}
}
