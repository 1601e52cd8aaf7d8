package importer

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Error categories used across the import pipelines.
const (
	ErrCategoryValidation       = "validation"
	ErrCategoryCustomerNotFound = "customer_not_found"
	ErrCategoryInvalidProduct   = "invalid_product_code"
	ErrCategoryProcessing       = "processing"
	ErrCategoryBatch            = "batch"
)

// ErrorRecord is one structured failure captured during a run. Records live
// for the duration of a single file-processing run and are surfaced in the
// final summary.
type ErrorRecord struct {
	Category string                 `json:"category"`
	Message  string                 `json:"message"`
	Context  map[string]interface{} `json:"context,omitempty"`
}

// RowError is a recoverable, per-row failure. The orchestrator records it and
// skips the row; the batch continues.
type RowError struct {
	Category string
	Message  string
	Context  map[string]interface{}
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func rowErrorf(category string, context map[string]interface{}, format string, args ...interface{}) *RowError {
	return &RowError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
		Context:  context,
	}
}

// ErrorTracker accumulates structured error records for one run. Append-only;
// construct a fresh tracker per file.
type ErrorTracker struct {
	records []ErrorRecord
	counts  map[string]int
}

func NewErrorTracker() *ErrorTracker {
	return &ErrorTracker{counts: map[string]int{}}
}

func (t *ErrorTracker) Add(category string, message string, context map[string]interface{}) {
	t.records = append(t.records, ErrorRecord{
		Category: category,
		Message:  message,
		Context:  context,
	})
	t.counts[category]++
}

func (t *ErrorTracker) AddRowError(err *RowError) {
	t.Add(err.Category, err.Message, err.Context)
}

// Records returns the accumulated records in insertion order. Never nil, so
// the summary marshals as [] instead of null.
func (t *ErrorTracker) Records() []ErrorRecord {
	if t.records == nil {
		return []ErrorRecord{}
	}
	return t.records
}

// CountsByCategory returns a copy of the per-category tallies.
func (t *ErrorTracker) CountsByCategory() map[string]int {
	counts := make(map[string]int, len(t.counts))
	for k, v := range t.counts {
		counts[k] = v
	}
	return counts
}

func (t *ErrorTracker) Total() int {
	return len(t.records)
}

func (t *ErrorTracker) LogSummary(logger *logrus.Logger) {
	if len(t.records) == 0 {
		logger.Info("no errors recorded")
		return
	}
	logger.WithFields(logrus.Fields{
		"total":      len(t.records),
		"byCategory": t.counts,
	}).Warn("errors recorded during import")
	for _, rec := range t.records {
		logger.WithFields(logrus.Fields{
			"category": rec.Category,
			"context":  rec.Context,
		}).Warn(rec.Message)
	}
}

// RunStats is the per-invocation counter set for the invoice pipeline.
// Monotonically incremented during a run, reset by constructing a new run.
type RunStats struct {
	TotalInvoices     int `json:"total_invoices"`
	Created           int `json:"created"`
	Updated           int `json:"updated"`
	Skipped           int `json:"skipped"`
	Errors            int `json:"errors"`
	ValidationErrors  int `json:"validation_errors"`
	SuccessfulBatches int `json:"successful_batches"`
	FailedBatches     int `json:"failed_batches"`
}

// RunSummary is the final result handed back to the CLI layer.
type RunSummary struct {
	Success bool          `json:"success"`
	Stats   RunStats      `json:"stats"`
	Errors  []ErrorRecord `json:"errors"`
}
