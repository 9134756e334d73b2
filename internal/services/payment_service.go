package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"marketplace/internal/apperr"
	"marketplace/internal/models"
	"marketplace/internal/repositories"
)

// Webhook acknowledgements.
const (
	WebhookAckOK      = "ok"
	WebhookAckIgnored = "ignored"
)

// EventPaymentSucceeded is the provider event that marks an order paid.
const EventPaymentSucceeded = "payment.succeeded"

// Notifier creates a notification for a user.
type Notifier interface {
	Notify(ctx context.Context, userID, message string) (*models.Notification, error)
}

// PaymentTransitioner moves an order to the status a payment event implies.
type PaymentTransitioner interface {
	TransitionOnPayment(ctx context.Context, orderID, status string) (*models.Order, error)
}

// PaymentService records payment intents and processes provider webhooks.
// It does not talk to a real provider.
type PaymentService struct {
	paymentRepo repositories.PaymentRepository
	orderRepo   repositories.OrderRepository
	orders      PaymentTransitioner
	notifier    Notifier
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(paymentRepo repositories.PaymentRepository, orderRepo repositories.OrderRepository, orders PaymentTransitioner, notifier Notifier) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		orderRepo:   orderRepo,
		orders:      orders,
		notifier:    notifier,
	}
}

// InitiatePayment records a pending payment for the viewer's order.
func (s *PaymentService) InitiatePayment(ctx context.Context, viewer Viewer, orderID, method string) (*models.Payment, error) {
	if orderID == "" {
		return nil, apperr.Validation("order is required")
	}
	if method != models.PaymentMethodStripe && method != models.PaymentMethodPaypal {
		return nil, apperr.Validation("unsupported payment method %q", method)
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != viewer.UserID {
		return nil, apperr.Forbidden("order %s belongs to another customer", orderID)
	}

	payment := &models.Payment{
		OrderID: order.ID,
		Amount:  order.TotalPrice,
		Method:  method,
		Status:  models.PaymentStatusPending,
	}
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		if _, err := s.notifier.Notify(ctx, order.CustomerID, fmt.Sprintf("Payment initiated for order %s", order.ID)); err != nil {
			log.Printf("Warning: %v", err)
		}
	}
	return payment, nil
}

// HandleWebhook applies a provider event and returns the acknowledgement to send back.
func (s *PaymentService) HandleWebhook(ctx context.Context, event models.WebhookEvent) (string, error) {
	if event.Type != EventPaymentSucceeded {
		return WebhookAckIgnored, nil
	}
	orderID := event.Data.OrderID
	if orderID == "" {
		return "", apperr.Validation("data.order_id is required")
	}

	if _, err := s.orders.TransitionOnPayment(ctx, orderID, models.OrderStatusPaid); err != nil {
		return "", err
	}

	var transactionID *string
	if event.Data.TransactionID != "" {
		transactionID = &event.Data.TransactionID
	}
	err := s.paymentRepo.UpdateStatus(ctx, orderID, models.PaymentStatusSucceeded, transactionID)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return "", err
	}
	return WebhookAckOK, nil
}
