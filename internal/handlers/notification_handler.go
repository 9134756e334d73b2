package handlers

import (
	"strconv"

	"marketplace/internal/middleware"
	"marketplace/internal/services"

	"github.com/gofiber/fiber/v2"
)

// NotificationHandler serves the notification feed.
type NotificationHandler struct {
	service *services.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(service *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// RegisterRoutes registers the notification routes with the Fiber app.
func (h *NotificationHandler) RegisterRoutes(router fiber.Router) {
	notificationRoutes := router.Group("/notifications")
	notificationRoutes.Get("/", h.HandleList)
	notificationRoutes.Post("/:id/read", h.HandleMarkRead)
}

// HandleList returns the caller's notifications, newest first, with the
// unread count in the X-Unread-Count header.
func (h *NotificationHandler) HandleList(c *fiber.Ctx) error {
	viewer := middleware.CurrentViewer(c)
	notifications, err := h.service.ListFor(c.UserContext(), viewer.UserID)
	if err != nil {
		return respondError(c, "Could not retrieve notifications", err)
	}
	unread, err := h.service.UnreadCount(c.UserContext(), viewer.UserID)
	if err != nil {
		return respondError(c, "Could not count notifications", err)
	}
	c.Set("X-Unread-Count", strconv.FormatInt(unread, 10))
	return c.JSON(notifications)
}

// HandleMarkRead marks one of the caller's notifications as read.
func (h *NotificationHandler) HandleMarkRead(c *fiber.Ctx) error {
	viewer := middleware.CurrentViewer(c)
	if err := h.service.MarkRead(c.UserContext(), viewer.UserID, c.Params("id")); err != nil {
		return respondError(c, "Could not mark notification as read", err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
