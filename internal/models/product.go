package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents an item a vendor offers for sale.
type Product struct {
	ID          string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	VendorID    string          `json:"vendor" gorm:"index;not null;type:varchar(36)"`
	Name        string          `json:"name" gorm:"not null;type:varchar(255)"`
	Description string          `json:"description" gorm:"type:text"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	Stock       int             `json:"stock" gorm:"not null;default:0;check:stock >= 0"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
