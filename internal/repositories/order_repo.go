package repositories

import (
	"context"

	"marketplace/internal/models"
)

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	// Place persists order and its items in one transaction, snapshotting
	// prices and decrementing stock. It returns the distinct vendor ids of
	// the ordered products.
	Place(ctx context.Context, order *models.Order) ([]string, error)
	GetByID(ctx context.Context, id string) (*models.Order, error)
	ListVisibleTo(ctx context.Context, userID string, vendor bool) ([]models.Order, error)
	HasVendorItem(ctx context.Context, orderID, vendorID string) (bool, error)
	// UpdateStatus moves the order to status. An empty from accepts any
	// current status. changed is false when the order already had status.
	UpdateStatus(ctx context.Context, id, status string, from ...string) (changed bool, err error)
	// Cancel cancels a pending order and returns its items to stock.
	Cancel(ctx context.Context, id string) (*models.Order, error)
}
