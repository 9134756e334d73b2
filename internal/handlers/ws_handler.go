package handlers

import (
	"log"

	"marketplace/internal/realtime"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// WSHandler upgrades authenticated requests to the live notification channel.
type WSHandler struct {
	hub *realtime.Hub
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(hub *realtime.Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

// RegisterRoutes registers the websocket route. The router must already
// authenticate the request.
func (h *WSHandler) RegisterRoutes(router fiber.Router) {
	wsRoutes := router.Group("/ws")
	wsRoutes.Use(requireUpgrade)
	wsRoutes.Get("/notifications", websocket.New(h.serve))
}

func requireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

func (h *WSHandler) serve(conn *websocket.Conn) {
	userID, _ := conn.Locals("user_id").(string)
	log.Printf("Websocket connected for user %s", userID)
	h.hub.Serve(userID, conn)
	log.Printf("Websocket closed for user %s", userID)
}
