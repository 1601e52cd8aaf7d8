package utils_test

import (
	"testing"

	"github.com/mmdatafocus/books_importer/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidEmail(t *testing.T) {
	assert.True(t, utils.IsValidEmail("jane@acme.com"))
	assert.True(t, utils.IsValidEmail("jane.doe+billing@acme.co.uk"))
	assert.False(t, utils.IsValidEmail("jane@acme"))
	assert.False(t, utils.IsValidEmail("not-an-email"))
	assert.False(t, utils.IsValidEmail(""))
}

func TestValidatePhoneNumber(t *testing.T) {
	assert.NoError(t, utils.ValidatePhoneNumber("(650) 253-0000", "US"))
	assert.Error(t, utils.ValidatePhoneNumber("123", "US"))
	assert.Error(t, utils.ValidatePhoneNumber("", "US"))
}

func TestFormatPhoneE164(t *testing.T) {
	got, err := utils.FormatPhoneE164("(650) 253-0000", "US")
	require.NoError(t, err)
	assert.Equal(t, "+16502530000", got)

	_, err = utils.FormatPhoneE164("123", "US")
	assert.Error(t, err)
}
