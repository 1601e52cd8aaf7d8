package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is keyed by its uppercase product code (at most 50 chars,
// alphanumeric plus "-_."). Auto-vivified products use the code as name.
type Product struct {
	ID          string          `gorm:"primary_key;size:36" json:"id"`
	ProductCode string          `gorm:"uniqueIndex;size:50;not null" json:"product_code"`
	Name        string          `gorm:"size:100;not null" json:"name"`
	Description string          `gorm:"size:500" json:"description"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// GetProductByCode fetches a product by its (already normalized) code.
// Returns gorm.ErrRecordNotFound when no row matches.
func GetProductByCode(tx *gorm.DB, code string) (*Product, error) {
	var product Product
	err := tx.Where("product_code = ?", code).Take(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}
