package models

// FilteredImportRequest asks for a date-windowed append import of one
// dataset. Dates are ISO YYYY-MM-DD, the end date inclusive through the whole
// day.
type FilteredImportRequest struct {
	ExportID  string `json:"id" binding:"required"`
	StartDate string `json:"startDate" binding:"required"`
	EndDate   string `json:"endDate" binding:"required"`
}
