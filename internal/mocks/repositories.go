// Package mocks provides in-memory implementations of the repository and
// fetcher interfaces for tests.
package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/report-import-api/internal/models"
	"github.com/report-import-api/internal/repository"
)

// MockDatasetRepository is an in-memory DatasetRepository. Rows are keyed by
// identifier per table so duplicate detection behaves like ON CONFLICT DO
// NOTHING.
type MockDatasetRepository struct {
	mu     sync.Mutex
	Tables map[string]map[string][]interface{} // table -> id -> row values

	DeleteAllCalls []string

	// SystemicErr is returned by batch operations (optionally restricted to
	// SystemicTable) to simulate a lost connection or missing relation.
	SystemicErr   error
	SystemicTable string

	// FailRowIDs marks identifiers whose insert fails like a row-level
	// constraint violation: counted, reported with a batch-relative line,
	// never stored.
	FailRowIDs map[string]bool
}

// NewMockDatasetRepository creates an empty mock dataset repository
func NewMockDatasetRepository() *MockDatasetRepository {
	return &MockDatasetRepository{
		Tables: make(map[string]map[string][]interface{}),
	}
}

func (m *MockDatasetRepository) systemic(table string) error {
	if m.SystemicErr != nil && (m.SystemicTable == "" || m.SystemicTable == table) {
		return m.SystemicErr
	}
	return nil
}

func (m *MockDatasetRepository) rowsFor(table string) map[string][]interface{} {
	if m.Tables[table] == nil {
		m.Tables[table] = make(map[string][]interface{})
	}
	return m.Tables[table]
}

// DeleteAll clears a table
func (m *MockDatasetRepository) DeleteAll(ctx context.Context, table string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.systemic(table); err != nil {
		return err
	}
	m.DeleteAllCalls = append(m.DeleteAllCalls, table)
	m.Tables[table] = make(map[string][]interface{})
	return nil
}

// CopyBatch inserts rows keyed by the first column
func (m *MockDatasetRepository) CopyBatch(ctx context.Context, table string, columns []string, rows [][]interface{}) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.systemic(table); err != nil {
		return 0, err
	}
	stored := m.rowsFor(table)
	for _, row := range rows {
		stored[fmt.Sprintf("%v", row[0])] = row
	}
	return len(rows), nil
}

// AppendBatch inserts rows, counting existing identifiers as duplicates
func (m *MockDatasetRepository) AppendBatch(ctx context.Context, table string, columns []string, idColumn string, rows [][]interface{}) (*repository.BatchOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.systemic(table); err != nil {
		return nil, err
	}

	idIndex := 0
	for i, c := range columns {
		if c == idColumn {
			idIndex = i
			break
		}
	}

	stored := m.rowsFor(table)
	outcome := &repository.BatchOutcome{}
	for i, row := range rows {
		id := fmt.Sprintf("%v", row[idIndex])
		if m.FailRowIDs[id] {
			outcome.Failed++
			outcome.Errors = append(outcome.Errors, models.RowError{
				Line:    i + 1,
				Field:   idColumn,
				Message: "constraint violation",
			})
			continue
		}
		if _, exists := stored[id]; exists {
			outcome.Duplicates++
			continue
		}
		stored[id] = row
		outcome.Inserted++
	}
	return outcome, nil
}

// Count returns the number of stored rows in a table
func (m *MockDatasetRepository) Count(ctx context.Context, table string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.systemic(table); err != nil {
		return 0, err
	}
	return len(m.Tables[table]), nil
}

// MockRunRepository is an in-memory RunRepository
type MockRunRepository struct {
	mu   sync.Mutex
	Runs map[string]*models.ImportRun
}

// NewMockRunRepository creates an empty mock run repository
func NewMockRunRepository() *MockRunRepository {
	return &MockRunRepository{Runs: make(map[string]*models.ImportRun)}
}

// Create stores a run
func (m *MockRunRepository) Create(ctx context.Context, run *models.ImportRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *run
	m.Runs[run.ID] = &copied
	return nil
}

// Update replaces a stored run
func (m *MockRunRepository) Update(ctx context.Context, run *models.ImportRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *run
	m.Runs[run.ID] = &copied
	return nil
}

// GetByID retrieves a run or nil
func (m *MockRunRepository) GetByID(ctx context.Context, id string) (*models.ImportRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Runs[id], nil
}

// List returns all stored runs up to limit
func (m *MockRunRepository) List(ctx context.Context, limit int) ([]*models.ImportRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.ImportRun
	for _, r := range m.Runs {
		out = append(out, r)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
