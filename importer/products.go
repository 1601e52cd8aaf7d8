package importer

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/mmdatafocus/books_importer/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	maxProductCodeLen = 50
	maxDescriptionLen = 500
)

var productCodePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// InvalidProductCodeError is a recoverable per-row failure: the offending
// row's order and line items are skipped, the batch continues.
type InvalidProductCodeError struct {
	Code   string
	Reason string
}

func (e *InvalidProductCodeError) Error() string {
	return fmt.Sprintf("invalid product code %q: %s", e.Code, e.Reason)
}

// NormalizeProductCode trims and uppercases a raw code.
func NormalizeProductCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func validateProductCode(code string) error {
	if code == "" {
		return &InvalidProductCodeError{Code: code, Reason: "product code is required"}
	}
	if len(code) > maxProductCodeLen {
		return &InvalidProductCodeError{Code: code, Reason: "exceeds maximum length"}
	}
	if !productCodePattern.MatchString(code) {
		return &InvalidProductCodeError{Code: code, Reason: "only letters, numbers, hyphen, underscore and period allowed"}
	}
	return nil
}

func validateDescription(description string) error {
	if len(description) > maxDescriptionLen {
		return errors.New("description exceeds maximum length")
	}
	return nil
}

// EnsureProduct returns the product stored under code, auto-vivifying a
// minimal stub when none exists: name defaults to the code itself. Existing
// products are returned unmodified.
func EnsureProduct(tx *gorm.DB, code string, description string) (*models.Product, error) {
	code = NormalizeProductCode(code)
	if err := validateProductCode(code); err != nil {
		return nil, err
	}

	product, err := models.GetProductByCode(tx, code)
	if err == nil {
		return product, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	created := models.Product{
		ID:          uuid.NewString(),
		ProductCode: code,
		Name:        code,
		Description: strings.TrimSpace(description),
	}
	if err := tx.Create(&created).Error; err != nil {
		return nil, err
	}
	return &created, nil
}

// updateProductDescription overwrites a product's description when the import
// supplies a non-empty, differing one. The shared mutation path for both the
// product processor and line-item processing.
func updateProductDescription(tx *gorm.DB, code string, description string) (bool, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return false, nil
	}

	product, err := models.GetProductByCode(tx, code)
	if err != nil {
		return false, err
	}
	if product.Description == description {
		return false, nil
	}
	err = tx.Model(product).Update("description", description).Error
	if err != nil {
		return false, err
	}
	return true, nil
}

// ProductStats is the counter set for a product-file run.
type ProductStats struct {
	TotalProducts     int `json:"total_products"`
	Created           int `json:"created"`
	Updated           int `json:"updated"`
	Skipped           int `json:"skipped"`
	Errors            int `json:"errors"`
	ValidationErrors  int `json:"validation_errors"`
	SuccessfulBatches int `json:"successful_batches"`
	FailedBatches     int `json:"failed_batches"`
}

// ProductSummary is the result of a product-file run.
type ProductSummary struct {
	Success bool          `json:"success"`
	Stats   ProductStats  `json:"stats"`
	Errors  []ErrorRecord `json:"errors"`
}

// ProductProcessor imports the product master rows of a sales export:
// trims/uppercases codes, validates, creates unknown products and refreshes
// descriptions on known ones.
type ProductProcessor struct {
	db        *gorm.DB
	logger    *logrus.Logger
	batchSize int

	tracker *ErrorTracker
	stats   ProductStats
	seen    map[string]struct{}
}

func NewProductProcessor(db *gorm.DB, logger *logrus.Logger, batchSize int) *ProductProcessor {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &ProductProcessor{
		db:        db,
		logger:    logger,
		batchSize: batchSize,
		tracker:   NewErrorTracker(),
		seen:      map[string]struct{}{},
	}
}

// ProcessFile imports products from a sales CSV/XLSX file.
func (p *ProductProcessor) ProcessFile(path string) (*ProductSummary, error) {
	data, err := ReadRows(path)
	if err != nil {
		return nil, err
	}
	if err := data.RequireColumns(colProduct); err != nil {
		return nil, err
	}
	return p.Process(data.Rows), nil
}

// Process runs the row set through batched transactions.
func (p *ProductProcessor) Process(rows []Row) *ProductSummary {
	totalBatches := (len(rows) + p.batchSize - 1) / p.batchSize
	p.logger.WithFields(logrus.Fields{
		"rows":      len(rows),
		"batchSize": p.batchSize,
	}).Info("processing products")

	for start := 0; start < len(rows); start += p.batchSize {
		end := start + p.batchSize
		if end > len(rows) {
			end = len(rows)
		}
		batchNum := start/p.batchSize + 1

		tx := p.db.Begin()
		if tx.Error != nil {
			p.failBatch(batchNum, tx.Error)
			continue
		}
		for i, row := range rows[start:end] {
			p.processRow(tx, row, start+i+1)
		}
		if err := tx.Commit().Error; err != nil {
			tx.Rollback()
			p.failBatch(batchNum, err)
			continue
		}
		p.stats.SuccessfulBatches++
		p.logger.WithFields(logrus.Fields{
			"batch":   batchNum,
			"batches": totalBatches,
			"created": p.stats.Created,
			"updated": p.stats.Updated,
		}).Info("batch complete")
	}

	p.tracker.LogSummary(p.logger)
	return &ProductSummary{
		Success: p.stats.FailedBatches == 0,
		Stats:   p.stats,
		Errors:  p.tracker.Records(),
	}
}

func (p *ProductProcessor) failBatch(batchNum int, err error) {
	p.stats.FailedBatches++
	p.stats.Errors++
	p.tracker.Add(ErrCategoryBatch, err.Error(), map[string]interface{}{"batch": batchNum})
	p.logger.WithFields(logrus.Fields{"batch": batchNum}).Error(err.Error())
}

func (p *ProductProcessor) processRow(tx *gorm.DB, row Row, line int) {
	code := NormalizeProductCode(row.Field(colProduct))
	description := row.Field(colProductDesc)
	errCtx := map[string]interface{}{"line": line, "product_code": code}

	if verrs := validateProductRow(code, description); len(verrs) > 0 {
		p.stats.ValidationErrors += len(verrs)
		for _, msg := range verrs {
			p.tracker.Add(ErrCategoryValidation, msg, errCtx)
		}
		return
	}

	// Repeated codes within one file are expected (one row per line item).
	if _, ok := p.seen[code]; ok {
		p.stats.Skipped++
		return
	}
	p.seen[code] = struct{}{}
	p.stats.TotalProducts++

	_, err := models.GetProductByCode(tx, code)
	switch {
	case err == nil:
		updated, uerr := updateProductDescription(tx, code, description)
		if uerr != nil {
			p.recordProcessing(uerr, errCtx)
			return
		}
		if updated {
			p.stats.Updated++
		} else {
			p.stats.Skipped++
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		created := models.Product{
			ID:          uuid.NewString(),
			ProductCode: code,
			Name:        code, // use code as name initially
			Description: description,
		}
		if cerr := tx.Create(&created).Error; cerr != nil {
			p.recordProcessing(cerr, errCtx)
			return
		}
		p.stats.Created++
	default:
		p.recordProcessing(err, errCtx)
	}
}

func (p *ProductProcessor) recordProcessing(err error, errCtx map[string]interface{}) {
	p.stats.Errors++
	p.tracker.Add(ErrCategoryProcessing, err.Error(), errCtx)
}

// validateProductRow applies field checks plus the import business rules.
func validateProductRow(code string, description string) []string {
	var errs []string
	if err := validateProductCode(code); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateDescription(description); err != nil {
		errs = append(errs, err.Error())
	}
	if strings.HasPrefix(code, "TEST-") {
		errs = append(errs, "test products not allowed in production")
	}
	if strings.HasPrefix(strings.ToLower(description), "deprecated") {
		errs = append(errs, "deprecated products should not be imported")
	}
	return errs
}
