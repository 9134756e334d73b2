package repositories

import (
	"context"

	"marketplace/internal/models"
)

// PaymentRepository defines the interface for payment data access.
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByOrderID(ctx context.Context, orderID string) (*models.Payment, error)
	UpdateStatus(ctx context.Context, orderID, status string, transactionID *string) error
}
