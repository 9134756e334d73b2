package repositories

import (
	"context"
	"errors"
	"fmt"

	"marketplace/internal/apperr"
	"marketplace/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{
		db: db,
	}
}

// forUpdate adds a row lock on dialects that support one.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// Place creates the order inside a single transaction. Each product row is
// locked, checked against the requested quantity, and decremented with a
// guarded update so stock can never go negative under concurrent orders.
func (r *GORMOrderRepository) Place(ctx context.Context, order *models.Order) ([]string, error) {
	var vendorIDs []string

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		vendorIDs = nil
		seen := make(map[string]bool)

		if order.ID == "" {
			order.ID = uuid.New().String()
		}

		for i := range order.Items {
			item := &order.Items[i]
			if item.Quantity < 1 {
				return apperr.Validation("quantity of product %s must be at least 1", item.ProductID)
			}

			var product models.Product
			if err := forUpdate(tx).First(&product, "id = ?", item.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.NotFound("product", item.ProductID)
				}
				return fmt.Errorf("failed to load product %s: %w", item.ProductID, err)
			}

			if item.Quantity > product.Stock {
				return &apperr.OutOfStockError{ProductID: product.ID, Requested: item.Quantity, Available: product.Stock}
			}

			res := tx.Model(&models.Product{}).
				Where("id = ? AND stock >= ?", product.ID, item.Quantity).
				Update("stock", gorm.Expr("stock - ?", item.Quantity))
			if res.Error != nil {
				return fmt.Errorf("failed to decrement stock for product %s: %w", product.ID, res.Error)
			}
			if res.RowsAffected == 0 {
				// The stock read above may be stale when the dialect takes no row lock.
				var current models.Product
				if err := tx.Select("id", "stock").First(&current, "id = ?", product.ID).Error; err != nil {
					return fmt.Errorf("failed to reload stock of product %s: %w", product.ID, err)
				}
				return &apperr.OutOfStockError{ProductID: product.ID, Requested: item.Quantity, Available: current.Stock}
			}

			item.ID = uuid.New().String()
			item.OrderID = order.ID
			item.Price = product.Price

			if !seen[product.VendorID] {
				seen[product.VendorID] = true
				vendorIDs = append(vendorIDs, product.VendorID)
			}
		}

		order.Status = models.OrderStatusPending
		order.TotalPrice = order.ComputeTotal()

		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vendorIDs, nil
}

// GetByID retrieves an order with its items.
func (r *GORMOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Preload("Items").First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("order", id)
		}
		return nil, fmt.Errorf("failed to get order by ID %s: %w", id, err)
	}
	return &order, nil
}

// ListVisibleTo returns the orders placed by userID and, when vendor is set,
// the orders containing at least one of the vendor's products. Newest first.
func (r *GORMOrderRepository) ListVisibleTo(ctx context.Context, userID string, vendor bool) ([]models.Order, error) {
	db := r.db.WithContext(ctx)
	query := db.Preload("Items").Order("created_at DESC")

	if vendor {
		vendorOrders := db.Model(&models.OrderItem{}).
			Select("order_items.order_id").
			Joins("JOIN products ON products.id = order_items.product_id").
			Where("products.vendor_id = ?", userID)
		query = query.Where("customer_id = ? OR id IN (?)", userID, vendorOrders)
	} else {
		query = query.Where("customer_id = ?", userID)
	}

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders for user %s: %w", userID, err)
	}
	return orders, nil
}

// HasVendorItem reports whether the order contains a product owned by vendorID.
func (r *GORMOrderRepository) HasVendorItem(ctx context.Context, orderID, vendorID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.OrderItem{}).
		Joins("JOIN products ON products.id = order_items.product_id").
		Where("order_items.order_id = ? AND products.vendor_id = ?", orderID, vendorID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check vendor items for order %s: %w", orderID, err)
	}
	return count > 0, nil
}

// UpdateStatus updates the status of an order in a single conditional write.
func (r *GORMOrderRepository) UpdateStatus(ctx context.Context, id, status string, from ...string) (bool, error) {
	db := r.db.WithContext(ctx)

	query := db.Model(&models.Order{}).Where("id = ? AND status <> ?", id, status)
	if len(from) > 0 {
		query = query.Where("status IN ?", from)
	}
	res := query.Update("status", status)
	if res.Error != nil {
		return false, fmt.Errorf("failed to update order status for order %s: %w", id, res.Error)
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	var current models.Order
	if err := db.Select("id", "status").First(&current, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, apperr.NotFound("order", id)
		}
		return false, fmt.Errorf("failed to get order by ID %s: %w", id, err)
	}
	if current.Status == status {
		return false, nil
	}
	return false, apperr.Validation("order %s cannot move from %s to %s", id, current.Status, status)
}

// Cancel marks a pending order cancelled and restocks its items atomically.
func (r *GORMOrderRepository) Cancel(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&order, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("order", id)
			}
			return fmt.Errorf("failed to load order %s: %w", id, err)
		}
		if order.Status != models.OrderStatusPending {
			return apperr.Validation("only pending orders can be cancelled, order %s is %s", id, order.Status)
		}
		if err := tx.Find(&order.Items, "order_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to load items of order %s: %w", id, err)
		}

		for _, item := range order.Items {
			err := tx.Model(&models.Product{}).
				Where("id = ?", item.ProductID).
				Update("stock", gorm.Expr("stock + ?", item.Quantity)).Error
			if err != nil {
				return fmt.Errorf("failed to restock product %s: %w", item.ProductID, err)
			}
		}

		if err := tx.Model(&order).Update("status", models.OrderStatusCancelled).Error; err != nil {
			return fmt.Errorf("failed to cancel order %s: %w", id, err)
		}
		order.Status = models.OrderStatusCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}
