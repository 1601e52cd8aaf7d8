package importer

import (
	"testing"

	"github.com/mmdatafocus/books_importer/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(id, code string) models.OrderItem {
	return models.OrderItem{ID: id, ProductCode: code}
}

func input(code string) LineItemInput {
	return LineItemInput{ProductCode: code}
}

func TestDiffLineItemsAllNew(t *testing.T) {
	diff := diffLineItems(nil, []LineItemInput{input("A"), input("B")})

	assert.Len(t, diff.inserts, 2)
	assert.Empty(t, diff.updates)
	assert.Empty(t, diff.deletes)
}

func TestDiffLineItemsAllStale(t *testing.T) {
	diff := diffLineItems([]models.OrderItem{item("1", "A"), item("2", "B")}, nil)

	assert.Empty(t, diff.inserts)
	assert.Empty(t, diff.updates)
	assert.Len(t, diff.deletes, 2)
}

func TestDiffLineItemsMixed(t *testing.T) {
	existing := []models.OrderItem{item("1", "KEEP"), item("2", "GONE")}
	incoming := []LineItemInput{input("KEEP"), input("NEW")}

	diff := diffLineItems(existing, incoming)

	require.Len(t, diff.updates, 1)
	assert.Equal(t, "1", diff.updates[0].Existing.ID)
	require.Len(t, diff.inserts, 1)
	assert.Equal(t, "NEW", diff.inserts[0].ProductCode)
	require.Len(t, diff.deletes, 1)
	assert.Equal(t, "2", diff.deletes[0].ID)
}

func TestDiffLineItemsCodeCaseInsensitive(t *testing.T) {
	existing := []models.OrderItem{item("1", "WIDGET-1")}
	incoming := []LineItemInput{input("widget-1")}

	diff := diffLineItems(existing, incoming)

	assert.Len(t, diff.updates, 1)
	assert.Empty(t, diff.inserts)
	assert.Empty(t, diff.deletes)
}

func TestDiffLineItemsDuplicateExisting(t *testing.T) {
	// Two stored rows under the same code: the first is matched, the second
	// is deleted, and the duplication is reported.
	existing := []models.OrderItem{item("1", "DUP"), item("2", "DUP")}
	incoming := []LineItemInput{input("DUP")}

	diff := diffLineItems(existing, incoming)

	require.Len(t, diff.updates, 1)
	assert.Equal(t, "1", diff.updates[0].Existing.ID)
	assert.Empty(t, diff.inserts)
	require.Len(t, diff.deletes, 1)
	assert.Equal(t, "2", diff.deletes[0].ID)
	assert.Equal(t, []string{"DUP"}, diff.duplicateCodes)
}

func TestDiffLineItemsDuplicateIncoming(t *testing.T) {
	// Two incoming lines under one code against one stored row: the first
	// updates, the second inserts.
	existing := []models.OrderItem{item("1", "DUP")}
	incoming := []LineItemInput{input("DUP"), input("DUP")}

	diff := diffLineItems(existing, incoming)

	assert.Len(t, diff.updates, 1)
	assert.Len(t, diff.inserts, 1)
	assert.Empty(t, diff.deletes)
}

func TestAmountMismatch(t *testing.T) {
	ok := LineItemInput{
		Quantity:  decimal.RequireFromString("3"),
		UnitPrice: decimal.RequireFromString("33.33"),
		Amount:    decimal.RequireFromString("100.00"),
	}
	// 3 x 33.33 = 99.99, off by exactly the tolerance.
	assert.False(t, amountMismatch(ok))

	exact := LineItemInput{
		Quantity:  decimal.RequireFromString("2"),
		UnitPrice: decimal.RequireFromString("100.00"),
		Amount:    decimal.RequireFromString("200.00"),
	}
	assert.False(t, amountMismatch(exact))

	off := LineItemInput{
		Quantity:  decimal.RequireFromString("2"),
		UnitPrice: decimal.RequireFromString("100.00"),
		Amount:    decimal.RequireFromString("210.00"),
	}
	assert.True(t, amountMismatch(off))
}

func TestAmountMismatchDerivedPrice(t *testing.T) {
	// qty 7 at 100.00 derives a unit price of 14.29; 7 x 14.29 = 100.03,
	// past the tolerance, but a price computed from the amount can never
	// contradict it.
	groups := groupRowsByInvoice([]Row{invoiceRow(Row{colQty: "7", colAmountAlt: "100.00"})})
	inv, rowErr := parseInvoice(groups[0])
	require.Nil(t, rowErr)
	require.Len(t, inv.Items, 1)

	line := inv.Items[0]
	assert.True(t, line.PriceDerived)
	assert.True(t, line.UnitPrice.Equal(decimal.RequireFromString("14.29")))
	assert.False(t, amountMismatch(line))
}
