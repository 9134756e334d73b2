package repositories

import (
	"context"
	"errors"
	"fmt"

	"marketplace/internal/apperr"
	"marketplace/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMPaymentRepository is a GORM implementation of PaymentRepository.
type GORMPaymentRepository struct {
	db *gorm.DB
}

// NewGORMPaymentRepository creates a new instance of GORMPaymentRepository.
func NewGORMPaymentRepository(db *gorm.DB) *GORMPaymentRepository {
	return &GORMPaymentRepository{db: db}
}

// Create records a payment. The unique order_id index rejects a second
// payment for the same order.
func (r *GORMPaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.Payment{}).Where("order_id = ?", payment.OrderID).Count(&existing).Error; err != nil {
			return fmt.Errorf("failed to check payments of order %s: %w", payment.OrderID, err)
		}
		if existing > 0 {
			return apperr.Conflict("payment for order %s already exists", payment.OrderID)
		}
		if err := tx.Create(payment).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Conflict("payment for order %s already exists", payment.OrderID)
			}
			return fmt.Errorf("failed to create payment: %w", err)
		}
		return nil
	})
}

// GetByOrderID retrieves the payment of an order.
func (r *GORMPaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).First(&payment, "order_id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("payment for order %s %w", orderID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get payment for order %s: %w", orderID, err)
	}
	return &payment, nil
}

// UpdateStatus sets the status, and the transaction id when given, of an order's payment.
func (r *GORMPaymentRepository) UpdateStatus(ctx context.Context, orderID, status string, transactionID *string) error {
	updates := map[string]interface{}{"status": status}
	if transactionID != nil {
		updates["transaction_id"] = *transactionID
	}
	res := r.db.WithContext(ctx).Model(&models.Payment{}).Where("order_id = ?", orderID).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update payment for order %s: %w", orderID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("payment for order %s %w", orderID, apperr.ErrNotFound)
	}
	return nil
}
