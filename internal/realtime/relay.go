package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"marketplace/internal/models"

	"github.com/streadway/amqp"
)

// Broker is the message bus notifications travel over between instances.
type Broker interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
	Consume(messageHandler func(msg amqp.Delivery) error) error
}

// Relay publishes notifications to a broker and delivers the ones it
// consumes to the local hub, so a user connected to any instance receives them.
type Relay struct {
	broker Broker
	hub    *Hub
}

// NewRelay creates a relay between broker and hub.
func NewRelay(broker Broker, hub *Hub) *Relay {
	return &Relay{broker: broker, hub: hub}
}

// Publish sends the notification to the broker.
func (r *Relay) Publish(ctx context.Context, notification models.Notification) error {
	body, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal notification %s: %w", notification.ID, err)
	}
	return r.broker.Publish(ctx, notification.UserID, body)
}

// Start begins consuming broker messages into the hub.
func (r *Relay) Start() error {
	return r.broker.Consume(r.deliver)
}

func (r *Relay) deliver(msg amqp.Delivery) error {
	var notification models.Notification
	if err := json.Unmarshal(msg.Body, &notification); err != nil {
		log.Printf("realtime: discarding malformed notification message: %v", err)
		return nil
	}
	r.hub.Broadcast(notification.UserID, msg.Body)
	return nil
}
