package importer

import (
	"errors"
	"strings"

	"github.com/mmdatafocus/books_importer/models"
	"github.com/mmdatafocus/books_importer/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Column names of the customer export.
const (
	colCustEmail    = "Email"
	colCustEmailAlt = "Main Email"
	colCustId       = "Customer Id"
	colCustIdAlt    = "Customer ID"
	colCompanyName  = "Company"
	colPhoneNumbers = "Phone Numbers"
	colPhoneAlt     = "Main Phone"
)

// CustomerStats is the counter set for a customer-file run.
type CustomerStats struct {
	TotalCustomers    int `json:"total_customers"`
	Created           int `json:"created"`
	Updated           int `json:"updated"`
	Skipped           int `json:"skipped"`
	CompaniesCreated  int `json:"companies_created"`
	Errors            int `json:"errors"`
	ValidationErrors  int `json:"validation_errors"`
	SuccessfulBatches int `json:"successful_batches"`
	FailedBatches     int `json:"failed_batches"`
}

// CustomerSummary is the result of a customer-file run.
type CustomerSummary struct {
	Success bool          `json:"success"`
	Stats   CustomerStats `json:"stats"`
	Errors  []ErrorRecord `json:"errors"`
}

// CustomerProcessor imports customer master rows: it creates a Company per
// email domain and a Customer per unique name, refreshing stored emails on
// re-import. This is the only pipeline that creates customers; the invoice
// pipeline resolves against what this one has loaded.
type CustomerProcessor struct {
	db        *gorm.DB
	logger    *logrus.Logger
	batchSize int

	tracker *ErrorTracker
	stats   CustomerStats
	seen    map[string]struct{}
}

func NewCustomerProcessor(db *gorm.DB, logger *logrus.Logger, batchSize int) *CustomerProcessor {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &CustomerProcessor{
		db:        db,
		logger:    logger,
		batchSize: batchSize,
		tracker:   NewErrorTracker(),
		seen:      map[string]struct{}{},
	}
}

// ProcessFile imports customers from a CSV/XLSX file.
func (p *CustomerProcessor) ProcessFile(path string) (*CustomerSummary, error) {
	data, err := ReadRows(path)
	if err != nil {
		return nil, err
	}
	if err := data.RequireColumns(colCustomer); err != nil {
		return nil, err
	}
	return p.Process(data.Rows), nil
}

func (p *CustomerProcessor) Process(rows []Row) *CustomerSummary {
	p.logger.WithFields(logrus.Fields{
		"rows":      len(rows),
		"batchSize": p.batchSize,
	}).Info("processing customers")

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
	return &CustomerSummary{
		Success: p.stats.FailedBatches == 0,
		Stats:   p.stats,
		Errors:  p.tracker.Records(),
	}
}

func (p *CustomerProcessor) failBatch(batchNum int, err error) {
	p.stats.FailedBatches++
	p.stats.Errors++
	p.tracker.Add(ErrCategoryBatch, err.Error(), map[string]interface{}{"batch": batchNum})
	p.logger.WithFields(logrus.Fields{"batch": batchNum}).Error(err.Error())
}

func (p *CustomerProcessor) processRow(tx *gorm.DB, row Row, line int) {
	name := row.Field(colCustomer)
	email := strings.ToLower(row.Field(colCustEmail, colCustEmailAlt))
	errCtx := map[string]interface{}{"line": line, "customer": name}

	if name == "" {
		p.stats.ValidationErrors++
		p.tracker.Add(ErrCategoryValidation, "customer name is required", errCtx)
		return
	}
	if email != "" && !utils.IsValidEmail(email) {
		p.stats.ValidationErrors++
		p.tracker.Add(ErrCategoryValidation, "invalid email address", errCtx)
		email = ""
	}

	if _, ok := p.seen[name]; ok {
		p.stats.Skipped++
		return
	}
	p.seen[name] = struct{}{}
	p.stats.TotalCustomers++

	domain := emailDomain(email)
	if domain != "" {
		if err := p.ensureCompany(tx, domain, row.Field(colCompanyName)); err != nil {
			p.recordProcessing(err, errCtx)
			return
		}
	}

	existing, err := models.GetCustomerByName(tx, name)
	switch {
	case err == nil:
		p.updateCustomer(tx, existing, email, domain, row, errCtx)
	case errors.Is(err, gorm.ErrRecordNotFound):
		input := &models.NewCustomer{
			Name:          name,
			Email:         email,
			QuickbooksId:  row.Field(colCustId, colCustIdAlt),
			CompanyDomain: domain,
		}
		if _, cerr := models.CreateCustomer(tx, input); cerr != nil {
			p.recordProcessing(cerr, errCtx)
			return
		}
		p.stats.Created++
	default:
		p.recordProcessing(err, errCtx)
	}
}

func (p *CustomerProcessor) updateCustomer(tx *gorm.DB, existing *models.Customer, email string, domain string, row Row, errCtx map[string]interface{}) {
	updates := map[string]interface{}{}
	if email != "" && existing.Email != email {
		updates["email"] = email
	}
	if domain != "" && existing.CompanyDomain != domain {
		updates["company_domain"] = domain
	}
	if qbId := row.Field(colCustId, colCustIdAlt); qbId != "" && existing.QuickbooksId != qbId {
		updates["quickbooks_id"] = qbId
	}
	if len(updates) == 0 {
		p.stats.Skipped++
		return
	}
	if err := tx.Model(existing).Updates(updates).Error; err != nil {
		p.recordProcessing(err, errCtx)
		return
	}
	p.stats.Updated++
}

func (p *CustomerProcessor) ensureCompany(tx *gorm.DB, domain string, name string) error {
	var count int64
	err := tx.Model(&models.Company{}).Where("domain = ?", domain).Count(&count).Error
	if err != nil {
		return err
	}
	if _, err := models.GetOrCreateCompany(tx, domain, name); err != nil {
		return err
	}
	if count == 0 {
		p.stats.CompaniesCreated++
	}
	return nil
}

func (p *CustomerProcessor) recordProcessing(err error, errCtx map[string]interface{}) {
	p.stats.Errors++
	p.tracker.Add(ErrCategoryProcessing, err.Error(), errCtx)
}

// emailDomain returns the part after '@', lower-cased, or "".
func emailDomain(email string) string {
	_, domain, ok := strings.Cut(email, "@")
	if !ok {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(domain))
}
