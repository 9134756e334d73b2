package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"marketplace/internal/app"
	"marketplace/internal/config"
	"marketplace/internal/database"
	"marketplace/internal/realtime"
	"marketplace/pkg/rabbitmq"

	"golang.org/x/sync/errgroup"
)

func main() {
	// --- Configuration ---
	cfg := config.Load()

	// --- Database ---
	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	// --- Initialize RabbitMQ Client (optional) ---
	var broker realtime.Broker
	var mqClient *rabbitmq.Client
	if cfg.RabbitMQURL != "" {
		mqClient, err = rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Exchange: cfg.NotificationExchange})
		if err != nil {
			log.Fatalf("Failed to initialize RabbitMQ client: %v", err)
		}
		defer mqClient.Close()
		broker = mqClient
	}

	application, err := app.New(cfg, db, broker)
	if err != nil {
		// log.Fatalf skips deferred calls
		if mqClient != nil {
			mqClient.Close()
		}
		log.Fatalf("Failed to build application: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return application.Notifications.Run(gctx)
	})
	g.Go(func() error {
		log.Printf("Starting server on port %s", cfg.AppPort)
		return application.Fiber.Listen(cfg.AppPort)
	})
	g.Go(func() error {
		// Wait for interrupt signal to gracefully shut down the server
		<-gctx.Done()
		log.Println("Shutting down server...")
		return application.Fiber.ShutdownWithTimeout(cfg.ShutdownTimeout)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("Server stopped with error: %v", err)
	}
	log.Println("Server gracefully stopped")
}
