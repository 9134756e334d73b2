// Package realtime keeps per-user groups of live connections and pushes
// notifications to them.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"marketplace/internal/models"
)

// Client is one live connection's membership in its user's group.
type Client struct {
	userID string
	send   chan []byte
}

// UserID returns the identity the client subscribed as.
func (c *Client) UserID() string { return c.userID }

// Messages returns the queue of payloads waiting to be written to the connection.
// It is closed when the client leaves the hub.
func (c *Client) Messages() <-chan []byte { return c.send }

// Hub maps user ids to the set of their live clients.
type Hub struct {
	mu         sync.RWMutex
	groups     map[string]map[*Client]struct{}
	sendBuffer int
}

// NewHub creates a hub whose clients buffer up to sendBuffer pending payloads.
func NewHub(sendBuffer int) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = 16
	}
	return &Hub{
		groups:     make(map[string]map[*Client]struct{}),
		sendBuffer: sendBuffer,
	}
}

// Join adds a new client to the group of userID.
func (h *Hub) Join(userID string) *Client {
	client := &Client{userID: userID, send: make(chan []byte, h.sendBuffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	group, ok := h.groups[userID]
	if !ok {
		group = make(map[*Client]struct{})
		h.groups[userID] = group
	}
	group[client] = struct{}{}
	return client
}

// Leave removes the client from its group and closes its queue. Leaving twice is a no-op.
func (h *Hub) Leave(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group, ok := h.groups[client.userID]
	if !ok {
		return
	}
	if _, member := group[client]; !member {
		return
	}
	delete(group, client)
	close(client.send)
	if len(group) == 0 {
		delete(h.groups, client.userID)
	}
}

// Subscribers returns the number of live clients of userID.
func (h *Hub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[userID])
}

// Total returns the number of live clients across all users.
func (h *Hub) Total() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, group := range h.groups {
		total += len(group)
	}
	return total
}

// Broadcast queues payload on every client of userID and returns how many
// accepted it. A client with a full queue misses the payload.
func (h *Hub) Broadcast(userID string, payload []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for client := range h.groups[userID] {
		select {
		case client.send <- payload:
			delivered++
		default:
			log.Printf("realtime: send buffer full for a client of user %s, dropping message", userID)
		}
	}
	return delivered
}

// Publish encodes the notification and fans it out to its owner's group.
func (h *Hub) Publish(ctx context.Context, notification models.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal notification %s: %w", notification.ID, err)
	}
	h.Broadcast(notification.UserID, payload)
	return nil
}

// enqueue queues a payload for a single client without blocking.
func (h *Hub) enqueue(client *Client, payload []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, member := h.groups[client.userID][client]; !member {
		return false
	}
	select {
	case client.send <- payload:
		return true
	default:
		return false
	}
}
