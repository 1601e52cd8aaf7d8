package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusOpen   OrderStatus = "OPEN"
	OrderStatusClosed OrderStatus = "CLOSED"
)

type PaymentStatus string

const (
	PaymentStatusPaid   PaymentStatus = "PAID"
	PaymentStatusUnpaid PaymentStatus = "UNPAID"
)

// Order is an imported invoice. The order number is the business key; the
// totals invariant (TotalAmount = Subtotal + TaxAmount) is recomputed on every
// write, never trusted from input.
type Order struct {
	ID            string          `gorm:"primary_key;size:36" json:"id"`
	OrderNumber   string          `gorm:"uniqueIndex;size:50;not null" json:"order_number"`
	CustomerId    string          `gorm:"index;size:36;not null" json:"customer_id"`
	OrderDate     time.Time       `json:"order_date"`
	Status        OrderStatus     `gorm:"type:enum('OPEN','CLOSED');not null;default:'OPEN'" json:"status"`
	PaymentStatus PaymentStatus   `gorm:"type:enum('PAID','UNPAID');not null;default:'UNPAID'" json:"payment_status"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"subtotal"`
	TaxAmount     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tax_amount"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	Terms         string          `gorm:"size:100" json:"terms"`
	DueDate       *time.Time      `json:"due_date"`
	Class         string          `gorm:"size:100" json:"class"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// GetOrderByNumber fetches an order by its business key.
// Returns gorm.ErrRecordNotFound when no row matches.
func GetOrderByNumber(tx *gorm.DB, orderNumber string) (*Order, error) {
	var order Order
	err := tx.Where("order_number = ?", orderNumber).Take(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}
