package importer

import (
	"errors"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Pipeline drives a full invoice file import: read, group by invoice number,
// then reconcile each invoice inside batched transactions. A batch is the
// unit of work; a failed commit loses only that batch's writes and the run
// moves on to the next batch.
type Pipeline struct {
	db        *gorm.DB
	logger    *logrus.Logger
	batchSize int

	resolver *CustomerResolver
	tracker  *ErrorTracker
	stats    RunStats
}

func NewPipeline(db *gorm.DB, logger *logrus.Logger, batchSize int) *Pipeline {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Pipeline{
		db:        db,
		logger:    logger,
		batchSize: batchSize,
		resolver:  NewCustomerResolver(),
		tracker:   NewErrorTracker(),
	}
}

// ProcessFile imports invoices from a sales CSV/XLSX file. A missing file or
// missing required columns is fatal; everything past that point is
// recoverable per row or per batch.
func (p *Pipeline) ProcessFile(path string) (*RunSummary, error) {
	data, err := ReadRows(path)
	if err != nil {
		return nil, err
	}
	if err := data.RequireColumns(colInvoiceNo, colCustomer, colProduct); err != nil {
		return nil, err
	}
	return p.Process(data.Rows), nil
}

// Process reconciles the grouped invoices batch by batch.
func (p *Pipeline) Process(rows []Row) *RunSummary {
	groups := groupRowsByInvoice(rows)
	totalBatches := (len(groups) + p.batchSize - 1) / p.batchSize
	p.logger.WithFields(logrus.Fields{
		"rows":      len(rows),
		"invoices":  len(groups),
		"batchSize": p.batchSize,
	}).Info("processing invoices")

	for start := 0; start < len(groups); start += p.batchSize {
		end := start + p.batchSize
		if end > len(groups) {
			end = len(groups)
		}
		batchNum := start/p.batchSize + 1

		tx := p.db.Begin()
		if tx.Error != nil {
			p.failBatch(batchNum, tx.Error)
			continue
		}
		for _, group := range groups[start:end] {
			if err := p.processInvoice(tx, group); err != nil {
				p.recordRowError(err, group)
			}
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
	return &RunSummary{
		Success: p.stats.FailedBatches == 0,
		Stats:   p.stats,
		Errors:  p.tracker.Records(),
	}
}

// processInvoice reconciles one invoice group inside the batch transaction.
// Returned errors are recoverable row errors; they never abort the batch.
func (p *Pipeline) processInvoice(tx *gorm.DB, group *invoiceGroup) error {
	inv, rowErr := parseInvoice(group)
	if rowErr != nil {
		return rowErr
	}

	customer, err := p.resolver.Resolve(tx, inv.CustomerName)
	if err != nil {
		var notFound *CustomerNotFoundError
		if errors.As(err, &notFound) {
			return rowErrorf(ErrCategoryCustomerNotFound, map[string]interface{}{
				"invoice_no": inv.OrderNumber,
				"customer":   inv.CustomerName,
			}, "no customer matches %q", inv.CustomerName)
		}
		return err
	}

	// Validate every line's product code before touching the order so a bad
	// code skips the whole invoice, not half of it.
	for _, item := range inv.Items {
		if verr := validateProductCode(NormalizeProductCode(item.ProductCode)); verr != nil {
			return rowErrorf(ErrCategoryInvalidProduct, map[string]interface{}{
				"invoice_no":   inv.OrderNumber,
				"product_code": item.ProductCode,
			}, "%s", verr.Error())
		}
	}

	p.stats.TotalInvoices++

	order, outcome, err := ReconcileOrder(tx, inv, customer)
	if err != nil {
		return rowErrorf(ErrCategoryProcessing, map[string]interface{}{
			"invoice_no": inv.OrderNumber,
		}, "order reconciliation failed: %s", err.Error())
	}
	if _, err := ReconcileLineItems(tx, order, inv.Items, p.tracker, &p.stats); err != nil {
		return rowErrorf(ErrCategoryProcessing, map[string]interface{}{
			"invoice_no": inv.OrderNumber,
		}, "line item reconciliation failed: %s", err.Error())
	}

	switch outcome {
	case OrderCreated:
		p.stats.Created++
	case OrderUpdated:
		p.stats.Updated++
	}
	return nil
}

func (p *Pipeline) failBatch(batchNum int, err error) {
	p.stats.FailedBatches++
	p.stats.Errors++
	p.tracker.Add(ErrCategoryBatch, err.Error(), map[string]interface{}{"batch": batchNum})
	p.logger.WithFields(logrus.Fields{"batch": batchNum}).Error(err.Error())
}

// recordRowError books a recoverable failure against the run: the invoice is
// skipped, counters advance, the batch keeps going.
func (p *Pipeline) recordRowError(err error, group *invoiceGroup) {
	p.stats.Errors++
	p.stats.Skipped++

	var rowErr *RowError
	if errors.As(err, &rowErr) {
		if rowErr.Category == ErrCategoryValidation {
			p.stats.ValidationErrors++
		}
		p.tracker.AddRowError(rowErr)
	} else {
		p.tracker.Add(ErrCategoryProcessing, err.Error(), map[string]interface{}{
			"invoice_no": group.orderNumber,
		})
	}

	p.logger.WithFields(logrus.Fields{
		"invoice_no": group.orderNumber,
		"lines":      group.lines,
	}).Warn(err.Error())
}
