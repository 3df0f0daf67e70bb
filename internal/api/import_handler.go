package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/report-import-api/internal/config"
	"github.com/report-import-api/internal/models"
	"github.com/report-import-api/internal/service"
	"github.com/rs/zerolog"
)

// ImportHandler handles import endpoints
type ImportHandler struct {
	services *service.Services
	cfg      *config.Config
	log      zerolog.Logger
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *ImportHandler {
	return &ImportHandler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("handler", "import").Logger(),
	}
}

// RunFullImport handles POST /v1/imports/full. The run is synchronous: the
// response carries the complete report. Callers serialize triggers; a
// concurrent run gets 409.
func (h *ImportHandler) RunFullImport(c *gin.Context) {
	report, err := h.services.Import.RunFullImport(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrRunInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.log.Error().Err(err).Msg("Full import failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, report)
}

// ImportFiltered handles POST /import-filtered-data and POST
// /v1/imports/filtered
func (h *ImportHandler) ImportFiltered(c *gin.Context) {
	var req models.FilteredImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "id, startDate and endDate are required",
		})
		return
	}

	result, err := h.services.Import.ImportFiltered(c.Request.Context(), &req)
	if err != nil {
		switch {
		case service.IsValidation(err):
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": err.Error(),
			})
		case errors.Is(err, service.ErrRunInProgress):
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"message": err.Error(),
			})
		default:
			h.log.Error().Err(err).Str("export_id", req.ExportID).Msg("Filtered import failed")
			if result == nil {
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
				return
			}
			// result carries the structured error payload with a suggestion
			c.JSON(http.StatusBadGateway, result)
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetRun handles GET /v1/imports/runs/:run_id
func (h *ImportHandler) GetRun(c *gin.Context) {
	runID := c.Param("run_id")

	run, err := h.services.Import.GetRun(c.Request.Context(), runID)
	if err != nil {
		h.log.Error().Err(err).Str("run_id", runID).Msg("Failed to get run")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get import run"})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "import run not found"})
		return
	}

	c.JSON(http.StatusOK, run)
}

// ListRuns handles GET /v1/imports/runs
func (h *ImportHandler) ListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	runs, err := h.services.Import.ListRuns(c.Request.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list runs")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list import runs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

// ListDatasets handles GET /v1/datasets
func (h *ImportHandler) ListDatasets(c *gin.Context) {
	type datasetInfo struct {
		Name     string `json:"name"`
		ExportID string `json:"export_id"`
		Table    string `json:"table"`
		Mode     string `json:"full_import_mode"`
	}

	var out []datasetInfo
	for _, d := range h.services.Registry.All() {
		out = append(out, datasetInfo{
			Name:     d.Name,
			ExportID: d.ExportID,
			Table:    d.Table,
			Mode:     string(d.FullImportMode),
		})
	}

	c.JSON(http.StatusOK, gin.H{"datasets": out})
}
