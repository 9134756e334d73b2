package app

import (
	"fmt"
	"time"

	"marketplace/internal/config"
	"marketplace/internal/handlers"
	"marketplace/internal/middleware"
	"marketplace/internal/realtime"
	"marketplace/internal/repositories"
	"marketplace/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"
)

// App holds the wired HTTP server and the long-running parts behind it.
type App struct {
	Fiber         *fiber.App
	Hub           *realtime.Hub
	Notifications *services.NotificationService
	Auth          *services.AuthService
}

// New wires repositories, services and handlers over db. When broker is
// non-nil notifications travel through it so every instance's websocket
// clients receive them; otherwise they go straight to the local hub.
func New(cfg config.Config, db *gorm.DB, broker realtime.Broker) (*App, error) {
	// --- Repositories ---
	userRepo := repositories.NewGORMUserRepository(db)
	productRepo := repositories.NewGORMProductRepository(db)
	orderRepo := repositories.NewGORMOrderRepository(db)
	paymentRepo := repositories.NewGORMPaymentRepository(db)
	notificationRepo := repositories.NewGORMNotificationRepository(db)

	// --- Realtime ---
	hub := realtime.NewHub(cfg.WSSendBuffer)
	var publisher services.NotificationPublisher = hub
	if broker != nil {
		relay := realtime.NewRelay(broker, hub)
		if err := relay.Start(); err != nil {
			return nil, fmt.Errorf("failed to start notification relay: %w", err)
		}
		publisher = relay
	}

	// --- Services ---
	authService := services.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTTTL)
	notificationService := services.NewNotificationService(notificationRepo, publisher, cfg.NotificationQueueSize)
	productService := services.NewProductService(productRepo)
	orderService := services.NewOrderService(orderRepo, notificationService)
	paymentService := services.NewPaymentService(paymentRepo, orderRepo, orderService, notificationService)

	// --- Handlers ---
	authHandler := handlers.NewAuthHandler(authService)
	productHandler := handlers.NewProductHandler(productService)
	orderHandler := handlers.NewOrderHandler(orderService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	wsHandler := handlers.NewWSHandler(hub)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
	})

	// --- Middleware ---
	app.Use(recover.New())
	app.Use(logger.New())

	// --- Health Check Endpoint ---
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":      "healthy",
			"time":        time.Now().Format(time.RFC3339),
			"subscribers": hub.Total(),
			"pending":     notificationService.Pending(),
		})
	})

	// Public routes
	authHandler.RegisterRoutes(app)
	paymentHandler.RegisterWebhook(app)

	// Protected routes (require JWT authentication)
	protected := app.Group("", middleware.AuthRequired(authService))
	productHandler.RegisterRoutes(protected)
	orderHandler.RegisterRoutes(protected)
	paymentHandler.RegisterRoutes(protected)
	notificationHandler.RegisterRoutes(protected)
	wsHandler.RegisterRoutes(protected)

	return &App{
		Fiber:         app,
		Hub:           hub,
		Notifications: notificationService,
		Auth:          authService,
	}, nil
}
