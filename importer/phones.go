package importer

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/mmdatafocus/books_importer/models"
	"github.com/mmdatafocus/books_importer/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// PhoneStats is the counter set for a phone-file run.
type PhoneStats struct {
	TotalPhones       int `json:"total_phones"`
	Created           int `json:"created"`
	Skipped           int `json:"skipped"`
	Errors            int `json:"errors"`
	ValidationErrors  int `json:"validation_errors"`
	SuccessfulBatches int `json:"successful_batches"`
	FailedBatches     int `json:"failed_batches"`
}

// PhoneSummary is the result of a phone-file run.
type PhoneSummary struct {
	Success bool          `json:"success"`
	Stats   PhoneStats    `json:"stats"`
	Errors  []ErrorRecord `json:"errors"`
}

// PhoneProcessor imports customer phone numbers: the owning customer is
// resolved through the same name matching the invoice pipeline uses, numbers
// are validated and normalized to E.164, and duplicates per customer are
// skipped. Numbers that fail validation are recorded and skipped, never
// stored raw.
type PhoneProcessor struct {
	db        *gorm.DB
	logger    *logrus.Logger
	batchSize int
	region    string

	resolver *CustomerResolver
	tracker  *ErrorTracker
	stats    PhoneStats
}

func NewPhoneProcessor(db *gorm.DB, logger *logrus.Logger, batchSize int) *PhoneProcessor {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &PhoneProcessor{
		db:        db,
		logger:    logger,
		batchSize: batchSize,
		region:    utils.PhoneRegion(),
		resolver:  NewCustomerResolver(),
		tracker:   NewErrorTracker(),
	}
}

// ProcessFile imports phone numbers from a customer CSV/XLSX file.
func (p *PhoneProcessor) ProcessFile(path string) (*PhoneSummary, error) {
	data, err := ReadRows(path)
	if err != nil {
		return nil, err
	}
	if err := data.RequireColumns(colCustomer); err != nil {
		return nil, err
	}
	return p.Process(data.Rows), nil
}

func (p *PhoneProcessor) Process(rows []Row) *PhoneSummary {
	p.logger.WithFields(logrus.Fields{
		"rows":      len(rows),
		"batchSize": p.batchSize,
		"region":    p.region,
	}).Info("processing phone numbers")

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
	}

	p.tracker.LogSummary(p.logger)
	return &PhoneSummary{
		Success: p.stats.FailedBatches == 0,
		Stats:   p.stats,
		Errors:  p.tracker.Records(),
	}
}

func (p *PhoneProcessor) failBatch(batchNum int, err error) {
	p.stats.FailedBatches++
	p.stats.Errors++
	p.tracker.Add(ErrCategoryBatch, err.Error(), map[string]interface{}{"batch": batchNum})
	p.logger.WithFields(logrus.Fields{"batch": batchNum}).Error(err.Error())
}

func (p *PhoneProcessor) processRow(tx *gorm.DB, row Row, line int) {
	name := row.Field(colCustomer)
	errCtx := map[string]interface{}{"line": line, "customer": name}

	raw := row.Field(colPhoneNumbers, colPhoneAlt)
	if raw == "" {
		p.stats.Skipped++
		return
	}

	customer, err := p.resolver.Resolve(tx, name)
	if err != nil {
		var notFound *CustomerNotFoundError
		if errors.As(err, &notFound) {
			p.stats.Errors++
			p.tracker.Add(ErrCategoryCustomerNotFound, err.Error(), errCtx)
			return
		}
		p.stats.Errors++
		p.tracker.Add(ErrCategoryProcessing, err.Error(), errCtx)
		return
	}

	// "Phone Numbers" can carry several numbers separated by commas or
	// semicolons; the first is the main number.
	for i, number := range splitPhones(raw) {
		p.stats.TotalPhones++
		formatted, ferr := utils.FormatPhoneE164(number, p.region)
		if ferr != nil {
			p.stats.ValidationErrors++
			p.tracker.Add(ErrCategoryValidation, "invalid phone number", map[string]interface{}{
				"line":     line,
				"customer": name,
				"phone":    number,
			})
			continue
		}
		phoneType := "main"
		if i > 0 {
			phoneType = "other"
		}
		created, cerr := p.ensurePhone(tx, customer.ID, formatted, phoneType)
		if cerr != nil {
			p.stats.Errors++
			p.tracker.Add(ErrCategoryProcessing, cerr.Error(), errCtx)
			continue
		}
		if created {
			p.stats.Created++
		} else {
			p.stats.Skipped++
		}
	}
}

// ensurePhone inserts the number unless the customer already has it stored.
func (p *PhoneProcessor) ensurePhone(tx *gorm.DB, customerId string, phone string, phoneType string) (bool, error) {
	var count int64
	err := tx.Model(&models.CustomerPhone{}).
		Where("customer_id = ? AND phone = ?", customerId, phone).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	record := models.CustomerPhone{
		ID:         uuid.NewString(),
		CustomerId: customerId,
		Phone:      phone,
		PhoneType:  phoneType,
	}
	if err := tx.Create(&record).Error; err != nil {
		return false, err
	}
	return true, nil
}

func splitPhones(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';'
	})
	var numbers []string
	for _, part := range parts {
		if s := strings.TrimSpace(part); s != "" {
			numbers = append(numbers, s)
		}
	}
	return numbers
}
