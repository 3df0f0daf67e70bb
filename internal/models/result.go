package models

import "time"

// RowError records a single failed row. The loader keeps at most a configured
// number of these per batch so the result stays bounded regardless of input
// size.
type RowError struct {
	Line    int    `json:"line"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// ImportResult summarizes one dataset import.
type ImportResult struct {
	Dataset           string     `json:"dataset"`
	RecordsSeen       int        `json:"records_seen"`
	RecordsInserted   int        `json:"records_inserted"`
	DuplicatesSkipped int        `json:"duplicates_skipped"`
	RecordsFailed     int        `json:"records_failed"`
	DurationMs        int64      `json:"duration_ms"`
	Success           bool       `json:"success"`
	Error             string     `json:"error,omitempty"`
	Suggestion        string     `json:"suggestion,omitempty"`
	RowErrors         []RowError `json:"row_errors,omitempty"`
}

// ImportReport aggregates the results of a full import run.
type ImportReport struct {
	RunID          string          `json:"run_id"`
	StartedAt      time.Time       `json:"started_at"`
	DurationMs     int64           `json:"duration_ms"`
	TotalRecords   int             `json:"total_records"`
	TotalInserted  int             `json:"total_inserted"`
	TotalErrors    int             `json:"total_errors"`
	SuccessRate    float64         `json:"success_rate"`
	OverallSuccess bool            `json:"overall_success"`
	Results        []*ImportResult `json:"results"`
}

// DatabaseSummary is the persistence leg of a filtered import response.
type DatabaseSummary struct {
	RecordsInserted   int  `json:"recordsInserted"`
	DuplicatesSkipped int  `json:"duplicatesSkipped"`
	RecordsFailed     int  `json:"recordsFailed"`
	PreservedExisting bool `json:"preservedExisting"`
}

// SnapshotInfo describes the JSON snapshot written by a filtered import.
type SnapshotInfo struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
}

// FilteredImportResults is the data leg of a filtered import response. The
// consuming client reads filteredRecordsFound, database and jsonFile from
// under the "results" key.
type FilteredImportResults struct {
	TotalRecordsFetched  int              `json:"totalRecordsFetched"`
	FilteredRecordsFound int              `json:"filteredRecordsFound"`
	FilterStrategy       string           `json:"filterStrategy"`
	Database             *DatabaseSummary `json:"database,omitempty"`
	JSONFile             *SnapshotInfo    `json:"jsonFile,omitempty"`
}

// FilteredImportResult is the caller-facing shape of a filtered import. Field
// names and nesting follow the wire contract consumed by the bulk import
// client.
type FilteredImportResult struct {
	Success    bool                   `json:"success"`
	ExportID   string                 `json:"exportId"`
	Dataset    string                 `json:"dataType"`
	StartDate  string                 `json:"startDate"`
	EndDate    string                 `json:"endDate"`
	Results    *FilteredImportResults `json:"results,omitempty"`
	Duration   string                 `json:"duration"`
	Message    string                 `json:"message,omitempty"`
	Suggestion string                 `json:"suggestion,omitempty"`
}
