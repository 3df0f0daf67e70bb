package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/report-import-api/internal/models"
)

// MockFetcher returns canned exports or errors per dataset name and records
// every requested URL.
type MockFetcher struct {
	mu      sync.Mutex
	Exports map[string]*models.ParsedExport
	Errs    map[string]error
	Calls   []string
}

// NewMockFetcher creates an empty mock fetcher
func NewMockFetcher() *MockFetcher {
	return &MockFetcher{
		Exports: make(map[string]*models.ParsedExport),
		Errs:    make(map[string]error),
	}
}

// FetchAndParse returns the canned result for a dataset
func (m *MockFetcher) FetchAndParse(ctx context.Context, rawURL, dataset string) (*models.ParsedExport, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, rawURL)
	m.mu.Unlock()

	if err, ok := m.Errs[dataset]; ok {
		return nil, err
	}
	if export, ok := m.Exports[dataset]; ok {
		return export, nil
	}
	return nil, fmt.Errorf("no canned export for dataset %q", dataset)
}
