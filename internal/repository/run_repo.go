package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/report-import-api/internal/database"
	"github.com/report-import-api/internal/models"
)

// runRepo is the concrete implementation of RunRepository
type runRepo struct {
	db *database.DB
}

// NewRunRepo creates a new import run repository
func NewRunRepo(db *database.DB) RunRepository {
	return &runRepo{db: db}
}

// Create inserts a new import run record
func (r *runRepo) Create(ctx context.Context, run *models.ImportRun) error {
	query := `
		INSERT INTO import_runs (id, kind, dataset, start_date, end_date, status,
			records_seen, records_inserted, duplicates_skipped, records_failed,
			duration_ms, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.Kind, run.Dataset, run.StartDate, run.EndDate, run.Status,
		run.RecordsSeen, run.RecordsInserted, run.DuplicatesSkipped, run.RecordsFailed,
		run.DurationMs, run.Error, run.CreatedAt,
	)
	return err
}

// Update persists the final state of an import run
func (r *runRepo) Update(ctx context.Context, run *models.ImportRun) error {
	query := `
		UPDATE import_runs SET status = $2, records_seen = $3, records_inserted = $4,
			duplicates_skipped = $5, records_failed = $6, duration_ms = $7,
			error = $8, completed_at = $9
		WHERE id = $1
	`
	completedAt := run.CompletedAt
	if completedAt == nil {
		now := time.Now()
		completedAt = &now
		run.CompletedAt = completedAt
	}
	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.Status, run.RecordsSeen, run.RecordsInserted,
		run.DuplicatesSkipped, run.RecordsFailed, run.DurationMs,
		run.Error, completedAt,
	)
	return err
}

// GetByID retrieves an import run by ID
func (r *runRepo) GetByID(ctx context.Context, id string) (*models.ImportRun, error) {
	query := `
		SELECT id, kind, dataset, start_date, end_date, status, records_seen,
			records_inserted, duplicates_skipped, records_failed, duration_ms,
			error, created_at, completed_at
		FROM import_runs WHERE id = $1
	`
	var run models.ImportRun
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID, &run.Kind, &run.Dataset, &run.StartDate, &run.EndDate, &run.Status,
		&run.RecordsSeen, &run.RecordsInserted, &run.DuplicatesSkipped, &run.RecordsFailed,
		&run.DurationMs, &run.Error, &run.CreatedAt, &run.CompletedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &run, nil
}

// List returns the most recent import runs
func (r *runRepo) List(ctx context.Context, limit int) ([]*models.ImportRun, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, kind, dataset, start_date, end_date, status, records_seen,
			records_inserted, duplicates_skipped, records_failed, duration_ms,
			error, created_at, completed_at
		FROM import_runs ORDER BY created_at DESC LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.ImportRun
	for rows.Next() {
		var run models.ImportRun
		err := rows.Scan(
			&run.ID, &run.Kind, &run.Dataset, &run.StartDate, &run.EndDate, &run.Status,
			&run.RecordsSeen, &run.RecordsInserted, &run.DuplicatesSkipped, &run.RecordsFailed,
			&run.DurationMs, &run.Error, &run.CreatedAt, &run.CompletedAt,
		)
		if err != nil {
			return nil, err
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}
