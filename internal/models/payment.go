package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment methods and statuses.
const (
	PaymentMethodStripe = "stripe"
	PaymentMethodPaypal = "paypal"

	PaymentStatusPending   = "pending"
	PaymentStatusSucceeded = "succeeded"
)

// Payment is the payment intent recorded for an order.
type Payment struct {
	ID            string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID       string          `json:"order" gorm:"uniqueIndex;not null;type:varchar(36)"`
	Amount        decimal.Decimal `json:"amount" gorm:"type:decimal(10,2);not null"`
	Method        string          `json:"method" gorm:"not null;type:varchar(20)"`
	Status        string          `json:"status" gorm:"not null;type:varchar(50)"`
	TransactionID *string         `json:"transaction_id" gorm:"type:varchar(255)"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"-"`
}

// WebhookEvent is the body the payment provider posts to the webhook.
type WebhookEvent struct {
	Type string      `json:"type"`
	Data WebhookData `json:"data"`
}

// WebhookData identifies the order a provider event refers to.
type WebhookData struct {
	OrderID       string `json:"order_id"`
	TransactionID string `json:"transaction_id"`
}
