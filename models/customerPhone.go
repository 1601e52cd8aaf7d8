package models

import (
	"time"
)

// CustomerPhone stores one normalized (E.164) phone number per customer and
// phone type ("main", "mobile", "fax", ...).
type CustomerPhone struct {
	ID         string    `gorm:"primary_key;size:36" json:"id"`
	CustomerId string    `gorm:"index;size:36;not null" json:"customer_id"`
	Phone      string    `gorm:"size:20;not null" json:"phone"`
	PhoneType  string    `gorm:"size:20;not null;default:'main'" json:"phone_type"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
