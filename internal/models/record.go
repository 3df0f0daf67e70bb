package models

// RawRecord is one parsed CSV row as header name -> raw string value.
// Duplicate headers are disambiguated by the parser before a RawRecord is
// built, so keys are unique.
type RawRecord map[string]string

// TypedRow is one record after column mapping and type coercion, keyed by
// target relation field name. Values are nil for empty or unparseable input.
type TypedRow map[string]interface{}

// ParsedExport is one fully parsed CSV export: the header names in CSV
// order (after duplicate disambiguation) and every surviving row.
type ParsedExport struct {
	Headers []string    `json:"headers"`
	Records []RawRecord `json:"records"`
}
