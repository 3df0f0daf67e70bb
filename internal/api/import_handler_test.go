package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/report-import-api/internal/config"
	"github.com/report-import-api/internal/dataset"
	"github.com/report-import-api/internal/models"
	"github.com/report-import-api/internal/service"
	"github.com/rs/zerolog"
)

// stubImportService returns canned responses so handler status mapping can be
// tested without the pipeline.
type stubImportService struct {
	report      *models.ImportReport
	reportErr   error
	filtered    *models.FilteredImportResult
	filteredErr error
	run         *models.ImportRun
	runErr      error
	runs        []*models.ImportRun
	counts      map[string]int
	countsErr   error
}

func (s *stubImportService) RunFullImport(ctx context.Context) (*models.ImportReport, error) {
	return s.report, s.reportErr
}

func (s *stubImportService) ImportFiltered(ctx context.Context, req *models.FilteredImportRequest) (*models.FilteredImportResult, error) {
	return s.filtered, s.filteredErr
}

func (s *stubImportService) GetRun(ctx context.Context, id string) (*models.ImportRun, error) {
	return s.run, s.runErr
}

func (s *stubImportService) ListRuns(ctx context.Context, limit int) ([]*models.ImportRun, error) {
	return s.runs, nil
}

func (s *stubImportService) DatasetCounts(ctx context.Context) (map[string]int, error) {
	return s.counts, s.countsErr
}

func newTestRouter(stub *stubImportService) *gin.Engine {
	services := &service.Services{Import: stub, Registry: dataset.NewRegistry()}
	return NewRouter(services, &config.Config{}, zerolog.Nop())
}

func doRequest(router *gin.Engine, method, path string, body []byte) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(&stubImportService{})
	w := doRequest(router, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("expected healthy status, got %q", body["status"])
	}
}

func TestRunFullImportEndpoint(t *testing.T) {
	stub := &stubImportService{
		report: &models.ImportReport{RunID: "run-1", OverallSuccess: true, TotalInserted: 42},
	}
	router := newTestRouter(stub)

	w := doRequest(router, http.MethodPost, "/v1/imports/full", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var report models.ImportReport
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if report.RunID != "run-1" || report.TotalInserted != 42 {
		t.Errorf("unexpected report: %+v", report)
	}
}

func TestRunFullImportConflict(t *testing.T) {
	router := newTestRouter(&stubImportService{reportErr: service.ErrRunInProgress})
	w := doRequest(router, http.MethodPost, "/v1/imports/full", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
}

func TestImportFilteredEndpoint(t *testing.T) {
	stub := &stubImportService{
		filtered: &models.FilteredImportResult{
			Success:  true,
			ExportID: "5077534948",
			Dataset:  "buildings",
			Results: &models.FilteredImportResults{
				FilteredRecordsFound: 2,
				Database:             &models.DatabaseSummary{RecordsInserted: 2, DuplicatesSkipped: 1, PreservedExisting: true},
				JSONFile:             &models.SnapshotInfo{Filename: "buildings.json"},
			},
		},
	}
	router := newTestRouter(stub)

	body := []byte(`{"id":"5077534948","startDate":"2025-04-01","endDate":"2025-04-30"}`)
	w := doRequest(router, http.MethodPost, "/import-filtered-data", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp["success"] != true {
		t.Error("expected success true")
	}
	if resp["exportId"] != "5077534948" || resp["dataType"] != "buildings" {
		t.Errorf("wire field names broken: %v", resp)
	}

	// The consuming client reads everything below from the "results" key;
	// this pins the nesting, not just the field names.
	results, ok := resp["results"].(map[string]interface{})
	if !ok {
		t.Fatalf("response missing results object, top-level keys: %v", resp)
	}
	if results["filteredRecordsFound"] != float64(2) {
		t.Errorf("expected results.filteredRecordsFound 2, got %v", results["filteredRecordsFound"])
	}
	db, ok := results["database"].(map[string]interface{})
	if !ok {
		t.Fatalf("results missing database object: %v", results)
	}
	if db["recordsInserted"] != float64(2) || db["duplicatesSkipped"] != float64(1) || db["preservedExisting"] != true {
		t.Errorf("unexpected database summary: %v", db)
	}
	jsonFile, ok := results["jsonFile"].(map[string]interface{})
	if !ok || jsonFile["filename"] != "buildings.json" {
		t.Errorf("expected results.jsonFile.filename, got %v", results["jsonFile"])
	}
}

func TestImportFilteredMissingFields(t *testing.T) {
	router := newTestRouter(&stubImportService{})
	w := doRequest(router, http.MethodPost, "/import-filtered-data", []byte(`{"id":"5077534948"}`))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing dates, got %d", w.Code)
	}
}

func TestImportFilteredValidationError(t *testing.T) {
	stub := &stubImportService{
		filteredErr: &service.ValidationError{Field: "id", Message: "unknown export id"},
	}
	router := newTestRouter(stub)
	body := []byte(`{"id":"999","startDate":"2025-04-01","endDate":"2025-04-30"}`)
	w := doRequest(router, http.MethodPost, "/import-filtered-data", body)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for validation failure, got %d", w.Code)
	}
}

func TestImportFilteredUpstreamFailure(t *testing.T) {
	stub := &stubImportService{
		filtered: &models.FilteredImportResult{
			ExportID:   "5077534948",
			Message:    "fetch buildings: HTTP 503",
			Suggestion: "the upstream API looks temporarily unavailable; retry in a few minutes",
		},
		filteredErr: context.DeadlineExceeded,
	}
	router := newTestRouter(stub)
	body := []byte(`{"id":"5077534948","startDate":"2025-04-01","endDate":"2025-04-30"}`)
	w := doRequest(router, http.MethodPost, "/v1/imports/filtered", body)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if s, _ := resp["suggestion"].(string); s == "" {
		t.Error("error payload should carry a suggestion")
	}
}

func TestGetRunNotFound(t *testing.T) {
	router := newTestRouter(&stubImportService{})
	w := doRequest(router, http.MethodGet, "/v1/imports/runs/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestGetRunFound(t *testing.T) {
	stub := &stubImportService{run: &models.ImportRun{ID: "run-1", Status: models.RunStatusCompleted}}
	router := newTestRouter(stub)
	w := doRequest(router, http.MethodGet, "/v1/imports/runs/run-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var run models.ImportRun
	if err := json.Unmarshal(w.Body.Bytes(), &run); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if run.ID != "run-1" {
		t.Errorf("unexpected run: %+v", run)
	}
}

func TestListDatasetsEndpoint(t *testing.T) {
	router := newTestRouter(&stubImportService{})
	w := doRequest(router, http.MethodGet, "/v1/datasets", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		Datasets []struct {
			Name     string `json:"name"`
			ExportID string `json:"export_id"`
		} `json:"datasets"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(resp.Datasets) != 10 {
		t.Errorf("expected 10 datasets, got %d", len(resp.Datasets))
	}
}

func TestMetricsEndpoint(t *testing.T) {
	stub := &stubImportService{counts: map[string]int{"buildings": 3, "cases": 100}}
	router := newTestRouter(stub)
	w := doRequest(router, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		Database map[string]int `json:"database"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Database["cases"] != 100 {
		t.Errorf("unexpected counts: %v", resp.Database)
	}
}
