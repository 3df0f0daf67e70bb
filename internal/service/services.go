package service

import (
	"context"

	"github.com/report-import-api/internal/config"
	"github.com/report-import-api/internal/dataset"
	"github.com/report-import-api/internal/fetch"
	"github.com/report-import-api/internal/loader"
	"github.com/report-import-api/internal/models"
	"github.com/report-import-api/internal/repository"
	"github.com/rs/zerolog"
)

// ImportService defines the import pipeline operations
type ImportService interface {
	RunFullImport(ctx context.Context) (*models.ImportReport, error)
	ImportFiltered(ctx context.Context, req *models.FilteredImportRequest) (*models.FilteredImportResult, error)
	GetRun(ctx context.Context, id string) (*models.ImportRun, error)
	ListRuns(ctx context.Context, limit int) ([]*models.ImportRun, error)
	DatasetCounts(ctx context.Context) (map[string]int, error)
}

// Services holds all service interfaces
type Services struct {
	Import   ImportService
	Registry *dataset.Registry
}

// NewServices creates all services
func NewServices(repos *repository.Repositories, fetcher fetch.Fetcher, cfg *config.Config, log zerolog.Logger) *Services {
	registry := dataset.NewRegistry()
	ldr := loader.New(repos.Dataset, &cfg.Import, log)
	importSvc := newImportService(repos, fetcher, ldr, registry, cfg, log)

	return &Services{
		Import:   importSvc,
		Registry: registry,
	}
}
