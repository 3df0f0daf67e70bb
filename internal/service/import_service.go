package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/report-import-api/internal/config"
	"github.com/report-import-api/internal/dataset"
	"github.com/report-import-api/internal/fetch"
	"github.com/report-import-api/internal/loader"
	"github.com/report-import-api/internal/models"
	"github.com/report-import-api/internal/repository"
	"github.com/rs/zerolog"
)

// importService is the concrete implementation of ImportService
type importService struct {
	repos    *repository.Repositories
	fetcher  fetch.Fetcher
	loader   *loader.Loader
	registry *dataset.Registry
	cfg      *config.Config
	log      zerolog.Logger

	mu      sync.Mutex
	running bool
}

// newImportService creates a new ImportService
func newImportService(repos *repository.Repositories, fetcher fetch.Fetcher, ldr *loader.Loader, registry *dataset.Registry, cfg *config.Config, log zerolog.Logger) *importService {
	return &importService{
		repos:    repos,
		fetcher:  fetcher,
		loader:   ldr,
		registry: registry,
		cfg:      cfg,
		log:      log.With().Str("service", "import").Logger(),
	}
}

// acquire marks the pipeline busy, refusing concurrent runs against the
// shared dataset tables.
func (s *importService) acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrRunInProgress
	}
	s.running = true
	return nil
}

func (s *importService) release() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// RunFullImport imports every configured dataset sequentially in the fixed
// priority order. Per-dataset failures are recorded but never abort the run;
// the report always covers all datasets.
func (s *importService) RunFullImport(ctx context.Context) (*models.ImportReport, error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()

	start := time.Now()
	report := &models.ImportReport{
		RunID:     uuid.New().String(),
		StartedAt: start,
	}

	run := &models.ImportRun{
		ID:        report.RunID,
		Kind:      models.RunKindFull,
		Status:    models.RunStatusRunning,
		CreatedAt: start,
	}
	if err := s.repos.Run.Create(ctx, run); err != nil {
		s.log.Error().Err(err).Msg("Failed to record import run, continuing")
	}

	order := s.registry.FullImportOrder()
	s.log.Info().Str("run_id", report.RunID).Int("datasets", len(order)).Msg("Starting full import")

	for i, desc := range order {
		result := s.importDataset(ctx, desc)
		report.Results = append(report.Results, result)

		report.TotalRecords += result.RecordsSeen
		report.TotalInserted += result.RecordsInserted
		if !result.Success {
			report.TotalErrors++
		}

		// Short pause between datasets so the upstream API is not hammered
		if i < len(order)-1 {
			select {
			case <-time.After(s.cfg.Import.InterDatasetDelay):
			case <-ctx.Done():
				s.log.Warn().Str("run_id", report.RunID).Msg("Full import interrupted")
				s.finishFullRun(ctx, run, report, start)
				return report, ctx.Err()
			}
		}
	}

	s.finishFullRun(ctx, run, report, start)

	s.log.Info().
		Str("run_id", report.RunID).
		Int("total_records", report.TotalRecords).
		Int("total_inserted", report.TotalInserted).
		Int("failed_datasets", report.TotalErrors).
		Bool("overall_success", report.OverallSuccess).
		Int64("duration_ms", report.DurationMs).
		Msg("Full import completed")

	return report, nil
}

// importDataset runs fetch, then load, for one dataset. Errors are folded
// into the result, never propagated.
func (s *importService) importDataset(ctx context.Context, desc *dataset.Descriptor) *models.ImportResult {
	dsStart := time.Now()
	log := s.log.With().Str("dataset", desc.Name).Logger()
	log.Info().Str("export_id", desc.ExportID).Str("mode", string(desc.FullImportMode)).Msg("Importing dataset")

	url := desc.ExportURL(s.cfg.Source.BaseURL, s.cfg.Source.AuthToken)
	export, err := s.fetcher.FetchAndParse(ctx, url, desc.Name)
	if err != nil {
		log.Error().Err(err).Msg("Dataset fetch failed")
		return &models.ImportResult{
			Dataset:    desc.Name,
			Error:      err.Error(),
			Suggestion: fetchSuggestion(err),
			DurationMs: time.Since(dsStart).Milliseconds(),
		}
	}

	result, err := s.loader.Load(ctx, export, desc, desc.FullImportMode)
	if err != nil {
		// Load already recorded the error on the result
		log.Error().Err(err).Msg("Dataset load failed")
	}
	result.DurationMs = time.Since(dsStart).Milliseconds()
	return result
}

// finishFullRun computes report aggregates and persists the run record.
func (s *importService) finishFullRun(ctx context.Context, run *models.ImportRun, report *models.ImportReport, start time.Time) {
	report.DurationMs = time.Since(start).Milliseconds()
	report.OverallSuccess = true
	failed := 0
	for _, r := range report.Results {
		if !r.Success {
			report.OverallSuccess = false
			failed++
		}
		run.RecordsSeen += r.RecordsSeen
		run.RecordsInserted += r.RecordsInserted
		run.DuplicatesSkipped += r.DuplicatesSkipped
		run.RecordsFailed += r.RecordsFailed
	}
	if len(report.Results) > 0 {
		report.SuccessRate = float64(len(report.Results)-failed) / float64(len(report.Results)) * 100
	}

	run.DurationMs = report.DurationMs
	switch {
	case report.OverallSuccess:
		run.Status = models.RunStatusCompleted
	case failed == len(report.Results):
		run.Status = models.RunStatusFailed
	default:
		run.Status = models.RunStatusPartial
	}
	if err := s.repos.Run.Update(ctx, run); err != nil {
		s.log.Error().Err(err).Str("run_id", run.ID).Msg("Failed to update import run record")
	}
}

// ImportFiltered fetches one dataset, filters it to the requested date
// window, appends the survivors without touching existing rows, and writes a
// JSON snapshot of the filtered set.
func (s *importService) ImportFiltered(ctx context.Context, req *models.FilteredImportRequest) (*models.FilteredImportResult, error) {
	desc, window, err := s.validateFilteredRequest(req)
	if err != nil {
		return nil, err
	}

	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()

	start := time.Now()
	log := s.log.With().Str("dataset", desc.Name).Str("start", req.StartDate).Str("end", req.EndDate).Logger()

	run := &models.ImportRun{
		ID:        uuid.New().String(),
		Kind:      models.RunKindFiltered,
		Dataset:   desc.Name,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Status:    models.RunStatusRunning,
		CreatedAt: start,
	}
	if err := s.repos.Run.Create(ctx, run); err != nil {
		log.Error().Err(err).Msg("Failed to record import run, continuing")
	}

	export, err := s.fetchFiltered(ctx, desc, req)
	if err != nil {
		run.Status = models.RunStatusFailed
		run.Error = err.Error()
		run.DurationMs = time.Since(start).Milliseconds()
		if updateErr := s.repos.Run.Update(ctx, run); updateErr != nil {
			log.Error().Err(updateErr).Msg("Failed to update import run record")
		}
		return &models.FilteredImportResult{
			ExportID:   desc.ExportID,
			Dataset:    desc.Name,
			StartDate:  req.StartDate,
			EndDate:    req.EndDate,
			Duration:   time.Since(start).String(),
			Message:    err.Error(),
			Suggestion: fetchSuggestion(err),
		}, err
	}

	// Server-side filtering is best effort and unreliable, so the window is
	// always enforced client-side.
	filtered := filterByDateFields(export.Records, window.start, window.end)
	strategy := "field"
	if len(filtered) == 0 && len(export.Records) > 0 {
		filtered = filterByPattern(export.Records, window.start, window.end)
		strategy = "pattern"
	}
	if len(filtered) == 0 {
		strategy = "none"
	}
	log.Info().
		Int("fetched", len(export.Records)).
		Int("filtered", len(filtered)).
		Str("strategy", strategy).
		Msg("Date filter applied")

	result := &models.FilteredImportResult{
		ExportID:  desc.ExportID,
		Dataset:   desc.Name,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Results: &models.FilteredImportResults{
			TotalRecordsFetched:  len(export.Records),
			FilteredRecordsFound: len(filtered),
			FilterStrategy:       strategy,
		},
	}

	filteredExport := &models.ParsedExport{Headers: export.Headers, Records: filtered}
	loadResult, loadErr := s.loader.Load(ctx, filteredExport, desc, dataset.ModeAppend)
	result.Results.Database = &models.DatabaseSummary{
		RecordsInserted:   loadResult.RecordsInserted,
		DuplicatesSkipped: loadResult.DuplicatesSkipped,
		RecordsFailed:     loadResult.RecordsFailed,
		PreservedExisting: true,
	}

	if snapshot, err := writeSnapshot(s.cfg.Import.SnapshotDir, desc, req, filtered, strategy); err != nil {
		log.Error().Err(err).Msg("Snapshot write failed")
	} else {
		result.Results.JSONFile = snapshot
	}

	run.RecordsSeen = len(export.Records)
	run.RecordsInserted = loadResult.RecordsInserted
	run.DuplicatesSkipped = loadResult.DuplicatesSkipped
	run.RecordsFailed = loadResult.RecordsFailed
	run.DurationMs = time.Since(start).Milliseconds()
	result.Duration = time.Since(start).String()

	if loadErr != nil {
		run.Status = models.RunStatusFailed
		run.Error = loadErr.Error()
		if updateErr := s.repos.Run.Update(ctx, run); updateErr != nil {
			log.Error().Err(updateErr).Msg("Failed to update import run record")
		}
		result.Message = loadErr.Error()
		result.Suggestion = loadResult.Suggestion
		return result, loadErr
	}

	run.Status = models.RunStatusCompleted
	if err := s.repos.Run.Update(ctx, run); err != nil {
		log.Error().Err(err).Msg("Failed to update import run record")
	}

	result.Success = true
	return result, nil
}

// dateWindow is a validated inclusive filter window.
type dateWindow struct {
	start time.Time
	end   time.Time
}

// validateFilteredRequest checks the request before any network call: known
// export id, ISO dates, end not before start.
func (s *importService) validateFilteredRequest(req *models.FilteredImportRequest) (*dataset.Descriptor, *dateWindow, error) {
	desc := s.registry.ByExportID(req.ExportID)
	if desc == nil {
		return nil, nil, &ValidationError{Field: "id", Message: fmt.Sprintf("unknown export id %q", req.ExportID)}
	}

	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, nil, &ValidationError{Field: "startDate", Message: "must be YYYY-MM-DD"}
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return nil, nil, &ValidationError{Field: "endDate", Message: "must be YYYY-MM-DD"}
	}
	if end.Before(start) {
		return nil, nil, &ValidationError{Field: "endDate", Message: "must not be before startDate"}
	}

	return desc, &dateWindow{start: start, end: end}, nil
}

// fetchFiltered tries the server-side filter URL variants in preference
// order, then falls back to the unfiltered export. Correctness never depends
// on a filtered variant working.
func (s *importService) fetchFiltered(ctx context.Context, desc *dataset.Descriptor, req *models.FilteredImportRequest) (*models.ParsedExport, error) {
	for _, url := range desc.FilteredURLs(s.cfg.Source.BaseURL, s.cfg.Source.AuthToken, req.StartDate, req.EndDate) {
		export, err := s.fetcher.FetchAndParse(ctx, url, desc.Name)
		if err == nil {
			return export, nil
		}
		s.log.Warn().Err(err).Str("dataset", desc.Name).Msg("Filtered URL variant failed, trying next")
	}

	s.log.Info().Str("dataset", desc.Name).Msg("All filtered URL variants failed, fetching unfiltered export")
	return s.fetcher.FetchAndParse(ctx, desc.ExportURL(s.cfg.Source.BaseURL, s.cfg.Source.AuthToken), desc.Name)
}

// GetRun retrieves one import run record
func (s *importService) GetRun(ctx context.Context, id string) (*models.ImportRun, error) {
	return s.repos.Run.GetByID(ctx, id)
}

// ListRuns retrieves recent import run records
func (s *importService) ListRuns(ctx context.Context, limit int) ([]*models.ImportRun, error) {
	return s.repos.Run.List(ctx, limit)
}

// DatasetCounts returns the current row count of every dataset table
func (s *importService) DatasetCounts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	for _, desc := range s.registry.All() {
		n, err := s.repos.Dataset.Count(ctx, desc.Table)
		if err != nil {
			return nil, err
		}
		counts[desc.Name] = n
	}
	return counts, nil
}

// fetchSuggestion produces the caller-facing hint attached to fetch errors.
func fetchSuggestion(err error) string {
	if fetch.IsRetryable(err) {
		return "the upstream API looks temporarily unavailable; retry in a few minutes"
	}
	return "check the export id and auth token configuration"
}
