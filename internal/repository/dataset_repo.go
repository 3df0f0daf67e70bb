package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/report-import-api/internal/database"
	"github.com/report-import-api/internal/models"
)

// datasetRepo is the concrete implementation of DatasetRepository
type datasetRepo struct {
	db *database.DB
}

// NewDatasetRepo creates a new dataset repository
func NewDatasetRepo(db *database.DB) DatasetRepository {
	return &datasetRepo{db: db}
}

// DeleteAll clears all rows from a dataset table
func (r *datasetRepo) DeleteAll(ctx context.Context, table string) error {
	_, err := r.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", pq.QuoteIdentifier(table)))
	if err != nil {
		return fmt.Errorf("clearing %s: %w", table, err)
	}
	return nil
}

// CopyBatch bulk-loads rows using PostgreSQL COPY
func (r *datasetRepo) CopyBatch(ctx context.Context, table string, columns []string, rows [][]interface{}) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(table, columns...))
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			continue
		}
		inserted++
	}

	// Flush the COPY
	if _, err := stmt.ExecContext(ctx); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	return inserted, nil
}

// AppendBatch inserts rows sequentially with conflict-tolerant semantics
func (r *datasetRepo) AppendBatch(ctx context.Context, table string, columns []string, idColumn string, rows [][]interface{}) (*BatchOutcome, error) {
	outcome := &BatchOutcome{}
	if len(rows) == 0 {
		return outcome, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	placeholders := make([]string, len(columns))
	quoted := make([]string, len(columns))
	for i, c := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		quoted[i] = pq.QuoteIdentifier(c)
	}
	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO NOTHING",
		pq.QuoteIdentifier(table),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "),
		pq.QuoteIdentifier(idColumn),
	)

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("preparing insert for %s: %w", table, err)
	}
	defer stmt.Close()

	for i, row := range rows {
		// Savepoint per row so a constraint failure doesn't poison the
		// rest of the batch transaction.
		if _, err := tx.ExecContext(ctx, "SAVEPOINT batch_row"); err != nil {
			return nil, fmt.Errorf("inserting into %s: %w", table, err)
		}
		res, err := stmt.ExecContext(ctx, row...)
		if err != nil {
			if isSystemic(err) {
				return nil, fmt.Errorf("inserting into %s: %w", table, err)
			}
			if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT batch_row"); rbErr != nil {
				return nil, fmt.Errorf("recovering batch for %s: %w", table, rbErr)
			}
			outcome.Failed++
			outcome.Errors = append(outcome.Errors, models.RowError{
				Line:    i + 1,
				Message: err.Error(),
			})
			continue
		}
		affected, _ := res.RowsAffected()
		if affected == 0 {
			outcome.Duplicates++
		} else {
			outcome.Inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return outcome, nil
}

// Count returns the total number of rows in a table
func (r *datasetRepo) Count(ctx context.Context, table string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", pq.QuoteIdentifier(table))).Scan(&count)
	return count, err
}

// isSystemic distinguishes batch-aborting errors from per-row constraint
// failures. Connection loss and missing relations abort; integrity
// violations are counted and skipped.
func isSystemic(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08": // connection exceptions
			return true
		case "42": // undefined table, undefined column
			return true
		case "23": // integrity constraint violations are row-level
			return false
		case "22": // data exceptions (bad value for type) are row-level
			return false
		}
		return false
	}
	// Non-pq errors at exec time are driver or connection failures
	return true
}
