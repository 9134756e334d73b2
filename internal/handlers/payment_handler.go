package handlers

import (
	"log"

	"marketplace/internal/middleware"
	"marketplace/internal/models"
	"marketplace/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// PaymentHandler handles payment initiation and the provider webhook.
type PaymentHandler struct {
	service  *services.PaymentService
	validate *validator.Validate
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(service *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the authenticated payment routes.
func (h *PaymentHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/payments/initiate", h.HandleInitiate)
}

// RegisterWebhook registers the public provider callback.
func (h *PaymentHandler) RegisterWebhook(router fiber.Router) {
	router.Post("/payments/webhook", h.HandleWebhook)
}

// InitiatePaymentRequest represents the body of a payment initiation.
type InitiatePaymentRequest struct {
	OrderID string `json:"order" validate:"required"`
	Method  string `json:"method" validate:"required,oneof=stripe paypal"`
}

// HandleInitiate records a pending payment for one of the caller's orders.
func (h *PaymentHandler) HandleInitiate(c *fiber.Ctx) error {
	var req InitiatePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing payment request body: %v", err)
		return badBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	payment, err := h.service.InitiatePayment(c.UserContext(), middleware.CurrentViewer(c), req.OrderID, req.Method)
	if err != nil {
		return respondError(c, "Could not initiate payment", err)
	}
	return c.Status(fiber.StatusCreated).JSON(payment)
}

// HandleWebhook applies a payment provider event.
func (h *PaymentHandler) HandleWebhook(c *fiber.Ctx) error {
	var event models.WebhookEvent
	if err := c.BodyParser(&event); err != nil {
		log.Printf("Error parsing webhook body: %v", err)
		return badBody(c, err)
	}

	ack, err := h.service.HandleWebhook(c.UserContext(), event)
	if err != nil {
		log.Printf("Webhook %s for order %s failed: %v", event.Type, event.Data.OrderID, err)
		return respondError(c, "Webhook rejected", err)
	}
	return c.JSON(fiber.Map{"status": ack})
}
