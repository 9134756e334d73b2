package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses.
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusShipped   = "shipped"
	OrderStatusCancelled = "cancelled"
)

// ValidOrderStatus reports whether status is one of the known order statuses.
func ValidOrderStatus(status string) bool {
	switch status {
	case OrderStatusPending, OrderStatusPaid, OrderStatusShipped, OrderStatusCancelled:
		return true
	}
	return false
}

// OrderItem represents a single item within an order.
type OrderItem struct {
	ID        string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID   string          `json:"-" gorm:"index;not null;type:varchar(36)"`
	ProductID string          `json:"product" gorm:"index;not null;type:varchar(36)"`
	Quantity  int             `json:"quantity" gorm:"not null"`
	Price     decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"` // Price at the time of order
}

// Subtotal is the line price times its quantity.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order represents a customer order.
type Order struct {
	ID         string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CustomerID string          `json:"customer" gorm:"index;not null;type:varchar(36)"`
	TotalPrice decimal.Decimal `json:"total_price" gorm:"type:decimal(10,2);not null"`
	Status     string          `json:"status" gorm:"not null;type:varchar(20);default:pending"`
	Items      []OrderItem     `json:"items" gorm:"foreignKey:OrderID"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// ComputeTotal sums the subtotals of the order's items.
func (o *Order) ComputeTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// ItemRequest is one requested line of a new order.
type ItemRequest struct {
	ProductID string `json:"product" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
}

// OrderCreatedEvent is emitted after an order commits.
type OrderCreatedEvent struct {
	OrderID    string
	CustomerID string
	VendorIDs  []string
}
