// Package fetch downloads CSV exports from the upstream reporting API and
// parses them into raw records, with per-dataset timeouts and retry of
// transient failures.
package fetch

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/report-import-api/internal/models"
	"github.com/rs/zerolog"
)

// Fetcher retrieves a CSV export and returns the fully materialized record
// list. The result is finite and built before returning; callers do not get
// a live stream.
type Fetcher interface {
	FetchAndParse(ctx context.Context, rawURL, dataset string) (*models.ParsedExport, error)
}

// HTTPFetcher is the concrete Fetcher backed by net/http.
type HTTPFetcher struct {
	client    *http.Client
	log       zerolog.Logger
	progress  func(dataset string, rows int)
	policyFor func(dataset string) Policy
}

// NewHTTPFetcher creates a fetcher. Per-attempt timeouts come from request
// contexts, so the shared client itself carries none.
func NewHTTPFetcher(log zerolog.Logger) *HTTPFetcher {
	f := &HTTPFetcher{
		client:    &http.Client{},
		log:       log.With().Str("component", "fetch").Logger(),
		policyFor: PolicyFor,
	}
	f.progress = func(dataset string, rows int) {
		f.log.Debug().Str("dataset", dataset).Int("rows", rows).Msg("Parse progress")
	}
	return f
}

// SetProgress replaces the periodic progress callback. The callback runs on
// the parse goroutine and must not block.
func (f *HTTPFetcher) SetProgress(fn func(dataset string, rows int)) {
	if fn != nil {
		f.progress = fn
	}
}

// SetPolicyFunc replaces the policy lookup. Tests use it to shrink timeouts
// and retry delays.
func (f *HTTPFetcher) SetPolicyFunc(fn func(dataset string) Policy) {
	if fn != nil {
		f.policyFor = fn
	}
}

// FetchAndParse downloads and parses one CSV export. Transient failures
// (timeout, reset, DNS, 5xx) are retried per the dataset's policy with the
// configured delay; after a timeout-class failure the next attempt's HTTP
// timeout grows by 50% up to the policy ceiling. 4xx statuses and parse
// deadline overruns fail immediately.
func (f *HTTPFetcher) FetchAndParse(ctx context.Context, rawURL, dataset string) (*models.ParsedExport, error) {
	policy := f.policyFor(dataset)
	httpTimeout := policy.HTTPTimeout

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		export, err := f.attempt(ctx, rawURL, dataset, httpTimeout, policy)
		if err == nil {
			f.log.Info().
				Str("dataset", dataset).
				Int("attempt", attempt).
				Int("records", len(export.Records)).
				Msg("Fetch completed")
			return export, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			f.log.Error().Err(err).Str("dataset", dataset).Int("attempt", attempt).Msg("Fetch failed, not retryable")
			return nil, err
		}

		f.log.Warn().Err(err).Str("dataset", dataset).Int("attempt", attempt).Msg("Fetch attempt failed")

		if attempt == policy.MaxAttempts {
			break
		}

		if isTimeoutClass(err) {
			grown := httpTimeout + httpTimeout/2
			if grown > policy.TimeoutCeiling {
				grown = policy.TimeoutCeiling
			}
			httpTimeout = grown
		}

		delay := policy.RetryDelay
		if policy.ProgressiveDelay {
			delay = time.Duration(attempt) * policy.RetryDelay
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, &Error{
		Dataset:  dataset,
		URL:      rawURL,
		Attempts: policy.MaxAttempts,
		Err:      fmt.Errorf("all attempts exhausted: %w", lastErr),
	}
}

// attempt performs one HTTP GET and parses the body.
func (f *HTTPFetcher) attempt(ctx context.Context, rawURL, dataset string, httpTimeout time.Duration, policy Policy) (*models.ParsedExport, error) {
	reqCtx, cancel := context.WithTimeout(ctx, httpTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{Dataset: dataset, URL: rawURL, Attempts: 1, Retryable: false, Err: err}
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &Error{
			Dataset:   dataset,
			URL:       rawURL,
			Attempts:  1,
			Retryable: isTransientTransport(err) || isTimeoutClass(err),
			Err:       err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain a little so the connection can be reused
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &Error{
			Dataset:   dataset,
			URL:       rawURL,
			Attempts:  1,
			Status:    resp.StatusCode,
			Retryable: retryableStatus(resp.StatusCode),
			Err:       fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	return f.parseCSV(resp.Body, dataset, policy)
}

// parseCSV reads rows under the dataset's hard parse deadline. Rows that
// fail CSV tokenization are skipped rather than aborting the parse; large
// exports routinely carry a few malformed trailing rows.
func (f *HTTPFetcher) parseCSV(body io.Reader, dataset string, policy Policy) (*models.ParsedExport, error) {
	deadline := time.Now().Add(policy.ParseDeadline)

	reader := csv.NewReader(body)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return &models.ParsedExport{}, nil
	}
	if err != nil {
		return nil, &Error{Dataset: dataset, Attempts: 1, Retryable: isTransientTransport(err), Err: fmt.Errorf("reading header: %w", err)}
	}
	headers := dedupeHeaders(header)

	var records []models.RawRecord
	skipped := 0
	for {
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: dataset %s after %d rows", ErrParseTimeout, dataset, len(records))
		}

		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			skipped++
			continue
		}
		if err != nil {
			return nil, &Error{
				Dataset:   dataset,
				Attempts:  1,
				Retryable: isTransientTransport(err) || isTimeoutClass(err),
				Err:       fmt.Errorf("reading row %d: %w", len(records)+1, err),
			}
		}

		if isBlankRow(row) {
			continue
		}

		record := make(models.RawRecord, len(headers))
		for i, h := range headers {
			if i < len(row) {
				record[h] = strings.TrimSpace(row[i])
			} else {
				record[h] = ""
			}
		}
		records = append(records, record)

		if policy.ProgressInterval > 0 && len(records)%policy.ProgressInterval == 0 {
			f.progress(dataset, len(records))
		}
	}

	if skipped > 0 {
		f.log.Warn().Str("dataset", dataset).Int("skipped_rows", skipped).Msg("Skipped malformed CSV rows")
	}

	return &models.ParsedExport{Headers: headers, Records: records}, nil
}

// dedupeHeaders disambiguates repeated header names by suffixing the second
// and later occurrences, so a duplicate never silently overwrites the first.
func dedupeHeaders(header []string) []string {
	seen := make(map[string]int, len(header))
	out := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		seen[h]++
		if n := seen[h]; n > 1 {
			h = fmt.Sprintf("%s_%d", h, n)
		}
		out[i] = h
	}
	return out
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
