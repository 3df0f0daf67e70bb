package repository

import (
	"context"

	"github.com/report-import-api/internal/database"
	"github.com/report-import-api/internal/models"
)

// BatchOutcome reports what happened to one batch of rows.
type BatchOutcome struct {
	Inserted   int
	Duplicates int
	Failed     int
	Errors     []models.RowError
}

// DatasetRepository defines persistence for dataset tables. Table and column
// names always come from the static dataset registry, never from request
// input.
type DatasetRepository interface {
	// DeleteAll clears a dataset table. Used only by explicit replace-all
	// imports.
	DeleteAll(ctx context.Context, table string) error

	// CopyBatch bulk-loads rows with COPY. Used on the replace-all path
	// where the table was just cleared and conflicts cannot occur.
	CopyBatch(ctx context.Context, table string, columns []string, rows [][]interface{}) (int, error)

	// AppendBatch inserts rows one at a time inside a transaction with
	// ON CONFLICT (id) DO NOTHING. Conflicting rows are counted as
	// duplicates, constraint failures as row errors; only systemic errors
	// (lost connection, missing relation) roll the batch back and return
	// an error.
	AppendBatch(ctx context.Context, table string, columns []string, idColumn string, rows [][]interface{}) (*BatchOutcome, error)

	// Count returns the number of rows in a dataset table.
	Count(ctx context.Context, table string) (int, error)
}

// RunRepository defines persistence for import run history.
type RunRepository interface {
	Create(ctx context.Context, run *models.ImportRun) error
	Update(ctx context.Context, run *models.ImportRun) error
	GetByID(ctx context.Context, id string) (*models.ImportRun, error)
	List(ctx context.Context, limit int) ([]*models.ImportRun, error)
}

// Repositories holds all repository interfaces
type Repositories struct {
	Dataset DatasetRepository
	Run     RunRepository
}

// New creates all repositories with the given database connection
func New(db *database.DB) *Repositories {
	return &Repositories{
		Dataset: NewDatasetRepo(db),
		Run:     NewRunRepo(db),
	}
}
