package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Company groups customers under an email domain. The domain is the business
// key; the pretty name is whatever the source file supplied first.
type Company struct {
	ID        string    `gorm:"primary_key;size:36" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Domain    string    `gorm:"uniqueIndex;size:255;not null" json:"domain"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// GetOrCreateCompany looks a company up by domain, creating it when missing.
func GetOrCreateCompany(tx *gorm.DB, domain string, name string) (*Company, error) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return nil, errors.New("company domain is required")
	}

	var company Company
	err := tx.Where("domain = ?", domain).Take(&company).Error
	if err == nil {
		return &company, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	company = Company{
		ID:     uuid.NewString(),
		Name:   strings.TrimSpace(name),
		Domain: domain,
	}
	if company.Name == "" {
		company.Name = domain
	}
	if err := tx.Create(&company).Error; err != nil {
		return nil, err
	}
	return &company, nil
}
