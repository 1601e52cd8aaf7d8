package importer

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/mmdatafocus/books_importer/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderOutcome reports whether reconciliation created or updated an order.
type OrderOutcome int

const (
	OrderCreated OrderOutcome = iota
	OrderUpdated
)

// statusMapping is one row of the status table: order state and payment state
// are derived independently from the same free-text field. An order can be
// CLOSED and UNPAID.
type statusMapping struct {
	Status  models.OrderStatus
	Payment models.PaymentStatus
}

var statusTable = map[string]statusMapping{
	"paid":   {models.OrderStatusClosed, models.PaymentStatusPaid},
	"closed": {models.OrderStatusClosed, models.PaymentStatusUnpaid},
}

// mapOrderStatus maps the export's free-text status to the two state axes.
// Anything unrecognized is an open, unpaid order.
func mapOrderStatus(raw string) (models.OrderStatus, models.PaymentStatus) {
	if m, ok := statusTable[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return m.Status, m.Payment
	}
	return models.OrderStatusOpen, models.PaymentStatusUnpaid
}

// invoiceSubtotal sums the incoming line amounts. The order total is always
// recomputed as subtotal + tax; a declared total in the input is ignored.
func invoiceSubtotal(items []LineItemInput) decimal.Decimal {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Amount)
	}
	return subtotal
}

// buildOrderCandidate computes the full mutable field set for an invoice.
func buildOrderCandidate(inv *Invoice, customerId string) models.Order {
	subtotal := invoiceSubtotal(inv.Items)
	status, payment := mapOrderStatus(inv.Status)
	return models.Order{
		OrderNumber:   inv.OrderNumber,
		CustomerId:    customerId,
		OrderDate:     inv.OrderDate,
		Status:        status,
		PaymentStatus: payment,
		Subtotal:      subtotal,
		TaxAmount:     inv.TaxAmount,
		TotalAmount:   subtotal.Add(inv.TaxAmount),
		Terms:         inv.Terms,
		DueDate:       inv.DueDate,
		Class:         inv.Class,
	}
}

// orderChanged compares the mutable field set of two orders.
func orderChanged(existing *models.Order, candidate *models.Order) bool {
	if existing.CustomerId != candidate.CustomerId ||
		!existing.OrderDate.Equal(candidate.OrderDate) ||
		existing.Status != candidate.Status ||
		existing.PaymentStatus != candidate.PaymentStatus ||
		existing.Terms != candidate.Terms ||
		existing.Class != candidate.Class {
		return true
	}
	if !existing.Subtotal.Equal(candidate.Subtotal) ||
		!existing.TaxAmount.Equal(candidate.TaxAmount) ||
		!existing.TotalAmount.Equal(candidate.TotalAmount) {
		return true
	}
	switch {
	case existing.DueDate == nil && candidate.DueDate == nil:
	case existing.DueDate == nil || candidate.DueDate == nil:
		return true
	case !existing.DueDate.Equal(*candidate.DueDate):
		return true
	}
	return false
}

// ReconcileOrder finds the order by its number and creates it, or overwrites
// every mutable field of the existing row. A repeated order number never
// produces a second order row; a re-seen order is always reported as updated,
// changed or not. Orders are never deleted here.
func ReconcileOrder(tx *gorm.DB, inv *Invoice, customer *models.Customer) (*models.Order, OrderOutcome, error) {
	candidate := buildOrderCandidate(inv, customer.ID)

	existing, err := models.GetOrderByNumber(tx, inv.OrderNumber)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		candidate.ID = uuid.NewString()
		if cerr := tx.Create(&candidate).Error; cerr != nil {
			return nil, 0, cerr
		}
		return &candidate, OrderCreated, nil
	}
	if err != nil {
		return nil, 0, err
	}

	if orderChanged(existing, &candidate) {
		updates := map[string]interface{}{
			"customer_id":    candidate.CustomerId,
			"order_date":     candidate.OrderDate,
			"status":         candidate.Status,
			"payment_status": candidate.PaymentStatus,
			"subtotal":       candidate.Subtotal,
			"tax_amount":     candidate.TaxAmount,
			"total_amount":   candidate.TotalAmount,
			"terms":          candidate.Terms,
			"due_date":       candidate.DueDate,
			"class":          candidate.Class,
		}
		if uerr := tx.Model(existing).Updates(updates).Error; uerr != nil {
			return nil, 0, uerr
		}
	}
	return existing, OrderUpdated, nil
}
