package services

import (
	"context"
	"fmt"
	"log"

	"marketplace/internal/apperr"
	"marketplace/internal/models"
	"marketplace/internal/repositories"
)

// NotificationPublisher pushes a stored notification to live subscribers.
type NotificationPublisher interface {
	Publish(ctx context.Context, notification models.Notification) error
}

// NotificationService stores notifications and hands them to a publisher
// through a bounded queue drained by Run.
type NotificationService struct {
	repo      repositories.NotificationRepository
	publisher NotificationPublisher
	queue     chan models.Notification
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(repo repositories.NotificationRepository, publisher NotificationPublisher, queueSize int) *NotificationService {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &NotificationService{
		repo:      repo,
		publisher: publisher,
		queue:     make(chan models.Notification, queueSize),
	}
}

// Notify stores a notification for userID and queues it for delivery.
// It never waits on delivery.
func (s *NotificationService) Notify(ctx context.Context, userID, message string) (*models.Notification, error) {
	notification := &models.Notification{UserID: userID, Message: message}
	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, fmt.Errorf("failed to create notification for user %s: %w", userID, err)
	}

	select {
	case s.queue <- *notification:
	default:
		log.Printf("Notification queue full, skipping live delivery of %s to user %s", notification.ID, userID)
	}
	return notification, nil
}

// Run publishes queued notifications until ctx is done.
func (s *NotificationService) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case notification := <-s.queue:
			if s.publisher == nil {
				continue
			}
			if err := s.publisher.Publish(ctx, notification); err != nil {
				log.Printf("Warning: failed to publish notification %s to user %s: %v", notification.ID, notification.UserID, err)
			}
		}
	}
}

// Pending returns the number of notifications waiting for delivery.
func (s *NotificationService) Pending() int {
	return len(s.queue)
}

// ListFor returns the user's notifications, newest first.
func (s *NotificationService) ListFor(ctx context.Context, userID string) ([]models.Notification, error) {
	return s.repo.ListByUser(ctx, userID)
}

// UnreadCount returns how many of the user's notifications are unread.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

// MarkRead marks the user's notification as read. Marking twice succeeds.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	notification, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if notification.UserID != userID {
		return apperr.Forbidden("notification %s belongs to another user", id)
	}
	if notification.IsRead {
		return nil
	}
	return s.repo.MarkRead(ctx, id)
}

// OrderCreated notifies the customer and every vendor of a new order.
func (s *NotificationService) OrderCreated(ctx context.Context, event models.OrderCreatedEvent) {
	s.notifyQuietly(ctx, event.CustomerID, fmt.Sprintf("Order %s created", event.OrderID))
	for _, vendorID := range event.VendorIDs {
		s.notifyQuietly(ctx, vendorID, fmt.Sprintf("New order %s includes your products", event.OrderID))
	}
}

// OrderStatusChanged notifies the customer that their order moved to a new status.
func (s *NotificationService) OrderStatusChanged(ctx context.Context, order *models.Order) {
	var message string
	switch order.Status {
	case models.OrderStatusPaid:
		message = fmt.Sprintf("Payment received for order %s", order.ID)
	case models.OrderStatusShipped:
		message = fmt.Sprintf("Order %s shipped", order.ID)
	case models.OrderStatusCancelled:
		message = fmt.Sprintf("Order %s cancelled", order.ID)
	default:
		message = fmt.Sprintf("Order %s is now %s", order.ID, order.Status)
	}
	s.notifyQuietly(ctx, order.CustomerID, message)
}

func (s *NotificationService) notifyQuietly(ctx context.Context, userID, message string) {
	if _, err := s.Notify(ctx, userID, message); err != nil {
		log.Printf("Warning: %v", err)
	}
}
