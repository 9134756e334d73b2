package services

import (
	"context"
	"fmt"
	"log"
	"math"

	"marketplace/internal/apperr"
	"marketplace/internal/models"
	"marketplace/internal/repositories"
)

// OrderEvents receives order lifecycle events after they commit.
type OrderEvents interface {
	OrderCreated(ctx context.Context, event models.OrderCreatedEvent)
	OrderStatusChanged(ctx context.Context, order *models.Order)
}

// OrderService handles business logic related to orders.
type OrderService struct {
	orderRepo repositories.OrderRepository
	events    OrderEvents
}

// NewOrderService creates a new OrderService.
func NewOrderService(orderRepo repositories.OrderRepository, events OrderEvents) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		events:    events,
	}
}

// CreateOrder validates the requested items and places the order atomically.
// Requests for the same product are merged into one item.
func (s *OrderService) CreateOrder(ctx context.Context, viewer Viewer, requests []models.ItemRequest) (*models.Order, error) {
	if viewer.Anonymous() {
		return nil, fmt.Errorf("an authenticated customer is required: %w", apperr.ErrAuth)
	}
	if len(requests) == 0 {
		return nil, apperr.Validation("at least one item is required")
	}

	items := make([]models.OrderItem, 0, len(requests))
	index := make(map[string]int, len(requests))
	for i, req := range requests {
		if req.ProductID == "" {
			return nil, apperr.Validation("item %d: product is required", i)
		}
		if req.Quantity < 1 {
			return nil, apperr.Validation("item %d: quantity must be at least 1", i)
		}
		if at, ok := index[req.ProductID]; ok {
			if items[at].Quantity > math.MaxInt-req.Quantity {
				return nil, apperr.Validation("item %d: total quantity of product %s is too large", i, req.ProductID)
			}
			items[at].Quantity += req.Quantity
			continue
		}
		index[req.ProductID] = len(items)
		items = append(items, models.OrderItem{ProductID: req.ProductID, Quantity: req.Quantity})
	}

	order := &models.Order{CustomerID: viewer.UserID, Items: items}
	vendorIDs, err := s.orderRepo.Place(ctx, order)
	if err != nil {
		return nil, err
	}
	log.Printf("Order %s placed by %s, total %s", order.ID, order.CustomerID, order.TotalPrice.StringFixed(2))

	if s.events != nil {
		s.events.OrderCreated(ctx, models.OrderCreatedEvent{
			OrderID:    order.ID,
			CustomerID: order.CustomerID,
			VendorIDs:  vendorIDs,
		})
	}
	return order, nil
}

// ListOrders returns the orders the viewer placed and, for vendors, the
// orders that include their products.
func (s *OrderService) ListOrders(ctx context.Context, viewer Viewer) ([]models.Order, error) {
	return s.orderRepo.ListVisibleTo(ctx, viewer.UserID, viewer.IsVendor)
}

// GetOrder returns an order visible to the viewer.
func (s *OrderService) GetOrder(ctx context.Context, viewer Viewer, id string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeView(ctx, viewer, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderService) authorizeView(ctx context.Context, viewer Viewer, order *models.Order) error {
	if order.CustomerID == viewer.UserID {
		return nil
	}
	if viewer.IsVendor {
		involved, err := s.orderRepo.HasVendorItem(ctx, order.ID, viewer.UserID)
		if err != nil {
			return err
		}
		if involved {
			return nil
		}
	}
	return apperr.Forbidden("order %s is not visible to user %s", order.ID, viewer.UserID)
}

// paymentSources lists the statuses a payment event may move an order out of.
var paymentSources = map[string][]string{
	models.OrderStatusPaid: {models.OrderStatusPending},
}

// TransitionOnPayment sets the status reported by the payment provider and
// notifies the customer. Repeating a transition writes nothing and sends
// no second notification.
func (s *OrderService) TransitionOnPayment(ctx context.Context, orderID, status string) (*models.Order, error) {
	if !models.ValidOrderStatus(status) {
		return nil, apperr.Validation("invalid order status: %s", status)
	}
	changed, err := s.orderRepo.UpdateStatus(ctx, orderID, status, paymentSources[status]...)
	if err != nil {
		return nil, err
	}
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if changed && s.events != nil {
		s.events.OrderStatusChanged(ctx, order)
	}
	return order, nil
}

// UpdateOrderStatus applies a lifecycle transition requested by a user. The
// customer may cancel a pending order; a vendor with products in a paid
// order may mark it shipped.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, viewer Viewer, id, status string) (*models.Order, error) {
	if !models.ValidOrderStatus(status) {
		return nil, apperr.Validation("invalid order status: %s", status)
	}

	order, err := s.GetOrder(ctx, viewer, id)
	if err != nil {
		return nil, err
	}

	var changed bool
	switch status {
	case models.OrderStatusCancelled:
		if order.CustomerID != viewer.UserID {
			return nil, apperr.Forbidden("only the customer can cancel order %s", id)
		}
		if order, err = s.orderRepo.Cancel(ctx, id); err != nil {
			return nil, err
		}
		changed = true
	case models.OrderStatusShipped:
		involved := false
		if viewer.IsVendor {
			if involved, err = s.orderRepo.HasVendorItem(ctx, id, viewer.UserID); err != nil {
				return nil, err
			}
		}
		if !involved {
			return nil, apperr.Forbidden("only a vendor with products in order %s can ship it", id)
		}
		if changed, err = s.orderRepo.UpdateStatus(ctx, id, status, models.OrderStatusPaid); err != nil {
			return nil, err
		}
		if order, err = s.orderRepo.GetByID(ctx, id); err != nil {
			return nil, err
		}
	default:
		return nil, apperr.Validation("status %s cannot be set directly", status)
	}

	if changed && s.events != nil {
		s.events.OrderStatusChanged(ctx, order)
	}
	return order, nil
}
