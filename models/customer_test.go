package models_test

import (
	"testing"

	"github.com/mmdatafocus/books_importer/models"
	"github.com/stretchr/testify/assert"
)

func TestCreateCustomerValidation(t *testing.T) {
	// Invalid input is rejected before any storage call runs.
	_, err := models.CreateCustomer(nil, &models.NewCustomer{Name: ""})
	assert.Error(t, err)

	_, err = models.CreateCustomer(nil, &models.NewCustomer{Name: "   "})
	assert.Error(t, err)

	_, err = models.CreateCustomer(nil, &models.NewCustomer{Name: "Acme Widgets", Email: "not-an-email"})
	assert.Error(t, err)
}
