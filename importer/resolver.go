package importer

import (
	"fmt"
	"strings"

	"github.com/mmdatafocus/books_importer/models"
	"gorm.io/gorm"
)

// CustomerNotFoundError signals that no stored customer matched a raw invoice
// name at any level. Recoverable per row, never fatal to the batch.
type CustomerNotFoundError struct {
	Name string
}

func (e *CustomerNotFoundError) Error() string {
	return fmt.Sprintf("customer not found: %q", e.Name)
}

// CustomerResolver matches raw invoice customer names against stored
// customers. Candidates are loaded once per run; the invoice pipeline never
// creates customers, so the snapshot stays valid for the run's lifetime.
type CustomerResolver struct {
	customers []*models.Customer
	loaded    bool
}

func NewCustomerResolver() *CustomerResolver {
	return &CustomerResolver{}
}

// Resolve finds the best-matching existing customer for a raw name:
// exact match first, then case-insensitive, then normalized-key equality.
func (r *CustomerResolver) Resolve(tx *gorm.DB, rawName string) (*models.Customer, error) {
	if err := r.load(tx); err != nil {
		return nil, err
	}
	if customer := matchCustomer(rawName, r.customers); customer != nil {
		return customer, nil
	}
	return nil, &CustomerNotFoundError{Name: rawName}
}

func (r *CustomerResolver) load(tx *gorm.DB) error {
	if r.loaded {
		return nil
	}
	customers, err := models.GetCustomersNewestFirst(tx)
	if err != nil {
		return err
	}
	r.customers = customers
	r.loaded = true
	return nil
}

// matchCustomer runs the three matching passes over candidates. Candidates
// must be ordered most-recently-created first: when several names collapse to
// the same key, the newest customer wins, keeping resolution reproducible.
func matchCustomer(rawName string, candidates []*models.Customer) *models.Customer {
	name := strings.TrimSpace(rawName)
	if name == "" {
		return nil
	}

	for _, c := range candidates {
		if c.Name == name {
			return c
		}
	}
	for _, c := range candidates {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}

	key := NormalizeName(name)
	if key == "" {
		return nil
	}
	for _, c := range candidates {
		if NormalizeName(c.Name) == key {
			return c
		}
	}
	return nil
}
