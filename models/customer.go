package models

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var validate = validator.New()

// Customer is a billing party referenced by orders. The display name is what
// invoice rows are matched against; the normalized form is derived at match
// time, never stored.
type Customer struct {
	ID            string    `gorm:"primary_key;size:36" json:"id"`
	Name          string    `gorm:"index;size:255;not null" json:"name"`
	Email         string    `gorm:"size:100" json:"email"`
	QuickbooksId  string    `gorm:"index;size:50" json:"quickbooks_id"`
	CompanyDomain string    `gorm:"index;size:255" json:"company_domain"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCustomer struct {
	Name          string `validate:"required"`
	Email         string `validate:"omitempty,email"`
	QuickbooksId  string
	CompanyDomain string
}

func CreateCustomer(tx *gorm.DB, input *NewCustomer) (*Customer, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	customer := Customer{
		ID:            uuid.NewString(),
		Name:          input.Name,
		Email:         strings.TrimSpace(input.Email),
		QuickbooksId:  strings.TrimSpace(input.QuickbooksId),
		CompanyDomain: strings.ToLower(strings.TrimSpace(input.CompanyDomain)),
	}
	if err := tx.Create(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// GetCustomerByName fetches a customer by exact stored name. Returns
// gorm.ErrRecordNotFound when no row matches.
func GetCustomerByName(tx *gorm.DB, name string) (*Customer, error) {
	var customer Customer
	err := tx.Where("name = ?", name).
		Order("created_at DESC, id DESC").
		Take(&customer).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// GetCustomersNewestFirst loads every customer ordered most-recently-created
// first. The resolver relies on this ordering for deterministic tie-breaks.
func GetCustomersNewestFirst(tx *gorm.DB) ([]*Customer, error) {
	var customers []*Customer
	err := tx.Order("created_at DESC, id DESC").Find(&customers).Error
	if err != nil {
		return nil, err
	}
	return customers, nil
}
