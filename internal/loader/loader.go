// Package loader maps raw CSV records onto relation columns per the dataset
// descriptor, coerces values, and persists them in replace-all or
// append-ignore-duplicates mode.
package loader

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/report-import-api/internal/coerce"
	"github.com/report-import-api/internal/config"
	"github.com/report-import-api/internal/dataset"
	"github.com/report-import-api/internal/models"
	"github.com/report-import-api/internal/repository"
	"github.com/rs/zerolog"
)

// ConfigError means the batch cannot be loaded at all: the dataset's
// identifier column could not be resolved against the CSV headers.
type ConfigError struct {
	Dataset string
	Reason  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("dataset %s: %s", e.Dataset, e.Reason)
}

// Loader persists parsed exports into dataset tables.
type Loader struct {
	repo repository.DatasetRepository
	cfg  *config.ImportConfig
	log  zerolog.Logger
}

// New creates a Loader.
func New(repo repository.DatasetRepository, cfg *config.ImportConfig, log zerolog.Logger) *Loader {
	return &Loader{
		repo: repo,
		cfg:  cfg,
		log:  log.With().Str("component", "loader").Logger(),
	}
}

// columnBinding is one resolved CSV header -> relation field pair.
type columnBinding struct {
	header string
	field  string
	typ    dataset.TypeClass
}

// mappingPlan is the descriptor's column mapping resolved once against the
// observed header set, then reused for the whole batch.
type mappingPlan struct {
	bindings []columnBinding
	idField  string
	fields   []string // relation columns in insert order
	idIndex  int      // index of the identifier within fields
}

// resolvePlan validates the descriptor mapping against the actual headers.
// Mapped columns missing from the CSV are dropped for the batch with a log;
// the identifier column is mandatory and resolved by exact name, then
// normalized case-insensitive match, then (last resort, with a warning) the
// first CSV column.
func (l *Loader) resolvePlan(headers []string, desc *dataset.Descriptor) (*mappingPlan, error) {
	present := make(map[string]string, len(headers)) // normalized -> actual
	exact := make(map[string]bool, len(headers))
	for _, h := range headers {
		exact[h] = true
		present[normalizeHeader(h)] = h
	}

	resolveHeader := func(want string) (string, bool) {
		if exact[want] {
			return want, true
		}
		if actual, ok := present[normalizeHeader(want)]; ok {
			return actual, true
		}
		return "", false
	}

	idHeader, ok := resolveHeader(desc.IdentifierHeader)
	if !ok {
		if len(headers) == 0 {
			return nil, &ConfigError{Dataset: desc.Name, Reason: "no CSV headers to resolve identifier against"}
		}
		// Last resort: assume the export leads with its identifier.
		idHeader = headers[0]
		l.log.Warn().
			Str("dataset", desc.Name).
			Str("expected", desc.IdentifierHeader).
			Str("using", idHeader).
			Msg("Identifier column not found, falling back to first CSV column")
	}

	plan := &mappingPlan{idField: desc.IdentifierField, idIndex: -1}
	for _, cm := range desc.Columns {
		header := cm.SourceHeader
		if cm.SourceHeader == desc.IdentifierHeader {
			header = idHeader
		} else {
			actual, ok := resolveHeader(cm.SourceHeader)
			if !ok {
				l.log.Warn().
					Str("dataset", desc.Name).
					Str("column", cm.SourceHeader).
					Msg("Mapped column missing from CSV, skipping for this batch")
				continue
			}
			header = actual
		}
		if cm.TargetField == desc.IdentifierField {
			plan.idIndex = len(plan.bindings)
		}
		plan.bindings = append(plan.bindings, columnBinding{header: header, field: cm.TargetField, typ: cm.Type})
		plan.fields = append(plan.fields, cm.TargetField)
	}

	if plan.idIndex < 0 {
		return nil, &ConfigError{Dataset: desc.Name, Reason: "mapping does not declare the identifier field"}
	}
	return plan, nil
}

// normalizeHeader lowercases and strips spaces, underscores and hyphens so
// "Case Id", "case_id" and "CASE-ID" all resolve to the same column.
func normalizeHeader(h string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-', '\t':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(h)))
}

// MapRow converts one raw record to a TypedRow containing exactly the fields
// the plan declares; unmapped CSV columns are dropped, empty or literal null
// values become nil.
func (p *mappingPlan) mapRow(rec models.RawRecord) models.TypedRow {
	row := make(models.TypedRow, len(p.bindings))
	for _, b := range p.bindings {
		row[b.field] = coerceValue(rec[b.header], b.typ)
	}
	return row
}

// coerceValue converts one raw string per the declared type class. Malformed
// values null out rather than failing the row.
func coerceValue(raw string, typ dataset.TypeClass) interface{} {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "null") {
		return nil
	}
	switch typ {
	case dataset.TypeInt:
		if n, ok := coerce.ToInt(raw); ok {
			return n
		}
		return nil
	case dataset.TypeDecimal:
		if f, ok := coerce.ToDecimal(raw); ok {
			return f
		}
		return nil
	case dataset.TypeBool:
		if b, ok := coerce.ToBool(raw); ok {
			return b
		}
		return nil
	case dataset.TypeDateTime:
		if t, ok := coerce.ToDateTime(raw); ok {
			return t.Format(coerce.DateTimeLayout)
		}
		return nil
	default:
		return raw
	}
}

// Load persists an export into the descriptor's table. Row-level failures
// are counted and bounded, never returned as errors; only systemic
// persistence failures (lost connection, missing relation) and identifier
// resolution failures return an error.
func (l *Loader) Load(ctx context.Context, export *models.ParsedExport, desc *dataset.Descriptor, mode dataset.ImportMode) (*models.ImportResult, error) {
	start := time.Now()
	result := &models.ImportResult{Dataset: desc.Name, RecordsSeen: len(export.Records)}

	if len(export.Records) == 0 {
		result.Success = true
		result.DurationMs = time.Since(start).Milliseconds()
		return result, nil
	}

	plan, err := l.resolvePlan(export.Headers, desc)
	if err != nil {
		result.Error = err.Error()
		result.Suggestion = "check the dataset's column mapping against the current export headers"
		result.DurationMs = time.Since(start).Milliseconds()
		return result, err
	}

	// Replace mode is destructive and must never be reached implicitly;
	// callers opt in per descriptor.
	if mode == dataset.ModeReplaceAll {
		if err := l.repo.DeleteAll(ctx, desc.Table); err != nil {
			result.Error = err.Error()
			result.DurationMs = time.Since(start).Milliseconds()
			return result, err
		}
		l.log.Info().Str("dataset", desc.Name).Str("table", desc.Table).Msg("Cleared table for replace-all import")
	}

	batchSize := l.cfg.BatchSize
	if desc.ChunkSize > 0 {
		batchSize = desc.ChunkSize
	}

	batch := make([][]interface{}, 0, batchSize)
	batchLines := make([]int, 0, batchSize) // absolute CSV line per batch row
	line := 1                               // header occupies line 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		defer func() {
			batch = batch[:0]
			batchLines = batchLines[:0]
		}()

		if mode == dataset.ModeReplaceAll {
			inserted, err := l.repo.CopyBatch(ctx, desc.Table, plan.fields, batch)
			if err != nil {
				return err
			}
			result.RecordsInserted += inserted
			result.RecordsFailed += len(batch) - inserted
			return nil
		}

		outcome, err := l.repo.AppendBatch(ctx, desc.Table, plan.fields, plan.idField, batch)
		if err != nil {
			return err
		}
		result.RecordsInserted += outcome.Inserted
		result.DuplicatesSkipped += outcome.Duplicates
		result.RecordsFailed += outcome.Failed
		for _, re := range outcome.Errors {
			// The repository reports lines relative to the batch; map them
			// back to CSV line numbers before surfacing.
			if re.Line >= 1 && re.Line <= len(batchLines) {
				re.Line = batchLines[re.Line-1]
			}
			l.addRowError(result, re)
		}
		return nil
	}

	for _, rec := range export.Records {
		line++
		typed := plan.mapRow(rec)

		if typed[plan.idField] == nil {
			result.RecordsFailed++
			l.addRowError(result, models.RowError{
				Line:    line,
				Field:   plan.idField,
				Message: "missing or unparseable identifier",
			})
			continue
		}

		values := make([]interface{}, len(plan.fields))
		for i, f := range plan.fields {
			values[i] = typed[f]
		}
		batch = append(batch, values)
		batchLines = append(batchLines, line)

		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return l.failSystemic(result, start, err)
			}
		}
	}

	if err := flush(); err != nil {
		return l.failSystemic(result, start, err)
	}

	result.Success = true
	result.DurationMs = time.Since(start).Milliseconds()

	l.log.Info().
		Str("dataset", desc.Name).
		Str("mode", string(mode)).
		Int("seen", result.RecordsSeen).
		Int("inserted", result.RecordsInserted).
		Int("duplicates", result.DuplicatesSkipped).
		Int("failed", result.RecordsFailed).
		Int64("duration_ms", result.DurationMs).
		Msg("Load completed")

	return result, nil
}

// addRowError appends a row error while keeping the list bounded.
func (l *Loader) addRowError(result *models.ImportResult, re models.RowError) {
	if len(result.RowErrors) >= l.cfg.MaxRowErrors {
		return
	}
	result.RowErrors = append(result.RowErrors, re)
	if len(result.RowErrors) == l.cfg.MaxRowErrors {
		l.log.Warn().
			Str("dataset", result.Dataset).
			Int("kept", l.cfg.MaxRowErrors).
			Msg("Row error limit reached, further errors counted only")
	}
}

func (l *Loader) failSystemic(result *models.ImportResult, start time.Time, err error) (*models.ImportResult, error) {
	result.Error = err.Error()
	result.Suggestion = "verify the database connection and that migrations have run"
	result.DurationMs = time.Since(start).Milliseconds()
	l.log.Error().Err(err).Str("dataset", result.Dataset).Msg("Load aborted by systemic error")
	return result, err
}
