package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderItem is one invoice line. Items are owned by exactly one order and are
// reconciled as a set per import (matched by product code within the order).
type OrderItem struct {
	ID          string          `gorm:"primary_key;size:36" json:"id"`
	OrderId     string          `gorm:"index;size:36;not null" json:"order_id"`
	ProductCode string          `gorm:"index;size:50;not null" json:"product_code"`
	Description string          `gorm:"size:500" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// GetOrderItems loads every line item owned by an order, oldest first.
func GetOrderItems(tx *gorm.DB, orderId string) ([]OrderItem, error) {
	var items []OrderItem
	err := tx.Where("order_id = ?", orderId).
		Order("created_at, id").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
