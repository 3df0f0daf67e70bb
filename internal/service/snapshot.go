package service

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/report-import-api/internal/dataset"
	"github.com/report-import-api/internal/models"
)

// snapshotMetadata describes one filtered-import snapshot file.
type snapshotMetadata struct {
	ExportID      string    `json:"exportId"`
	DataType      string    `json:"dataType"`
	StartDate     string    `json:"startDate"`
	EndDate       string    `json:"endDate"`
	RecordCount   int       `json:"recordCount"`
	ExportedAt    time.Time `json:"exportedAt"`
	FilterApplied string    `json:"filterApplied"`
}

// snapshotDocument is the on-disk shape: metadata plus the filtered rows.
type snapshotDocument struct {
	Metadata snapshotMetadata   `json:"metadata"`
	Data     []models.RawRecord `json:"data"`
}

// writeSnapshot persists the filtered record set as a timestamped JSON file
// for audit and debugging. The filename encodes dataset, export id, date
// range and write time.
func writeSnapshot(dir string, desc *dataset.Descriptor, req *models.FilteredImportRequest, records []models.RawRecord, strategy string) (*models.SnapshotInfo, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating snapshot directory: %w", err)
	}

	now := time.Now()
	filename := fmt.Sprintf("%s_%s_%s_to_%s_%s.json",
		desc.Name, desc.ExportID, req.StartDate, req.EndDate, now.Format("20060102_150405"))
	path := filepath.Join(dir, filename)

	doc := snapshotDocument{
		Metadata: snapshotMetadata{
			ExportID:      desc.ExportID,
			DataType:      desc.Name,
			StartDate:     req.StartDate,
			EndDate:       req.EndDate,
			RecordCount:   len(records),
			ExportedAt:    now,
			FilterApplied: strategy,
		},
		Data: records,
	}

	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return nil, fmt.Errorf("writing snapshot: %w", err)
	}

	return &models.SnapshotInfo{Filename: filename, Path: path}, nil
}
