package models

import "time"

// RunStatus represents the status of an import run
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusPartial   RunStatus = "partial"
)

// RunKind represents the kind of import run
type RunKind string

const (
	RunKindFull     RunKind = "full"
	RunKindFiltered RunKind = "filtered"
)

// ImportRun is the persisted history record of one full or filtered import.
type ImportRun struct {
	ID                string     `json:"run_id" db:"id"`
	Kind              RunKind    `json:"kind" db:"kind"`
	Dataset           string     `json:"dataset,omitempty" db:"dataset"`
	StartDate         string     `json:"start_date,omitempty" db:"start_date"`
	EndDate           string     `json:"end_date,omitempty" db:"end_date"`
	Status            RunStatus  `json:"status" db:"status"`
	RecordsSeen       int        `json:"records_seen" db:"records_seen"`
	RecordsInserted   int        `json:"records_inserted" db:"records_inserted"`
	DuplicatesSkipped int        `json:"duplicates_skipped" db:"duplicates_skipped"`
	RecordsFailed     int        `json:"records_failed" db:"records_failed"`
	DurationMs        int64      `json:"duration_ms" db:"duration_ms"`
	Error             string     `json:"error,omitempty" db:"error"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}
