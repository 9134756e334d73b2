package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the runtime settings of the service.
type Config struct {
	AppPort               string
	DatabaseDriver        string
	DatabaseDSN           string
	JWTSecret             string
	JWTTTL                time.Duration
	RabbitMQURL           string
	NotificationExchange  string
	NotificationQueueSize int
	WSSendBuffer          int
	ShutdownTimeout       time.Duration
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("DATABASE_DRIVER", "postgres")
	v.SetDefault("DATABASE_DSN", "host=127.0.0.1 user=postgres password=postgres dbname=marketplace port=5432 sslmode=disable")
	v.SetDefault("JWT_SECRET", "change-me")
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("NOTIFICATION_EXCHANGE", "notifications")
	v.SetDefault("NOTIFICATION_QUEUE_SIZE", 256)
	v.SetDefault("WS_SEND_BUFFER", 16)
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
}

// Load reads an optional .env file, then environment variables on top of the defaults.
func Load() Config {
	if err := godotenv.Load(); err == nil {
		log.Println("[config] loaded .env")
	}

	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()

	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) Config {
	cfg := Config{
		AppPort:               v.GetString("APP_PORT"),
		DatabaseDriver:        v.GetString("DATABASE_DRIVER"),
		DatabaseDSN:           v.GetString("DATABASE_DSN"),
		JWTSecret:             v.GetString("JWT_SECRET"),
		JWTTTL:                v.GetDuration("JWT_TTL"),
		RabbitMQURL:           v.GetString("RABBITMQ_URL"),
		NotificationExchange:  v.GetString("NOTIFICATION_EXCHANGE"),
		NotificationQueueSize: v.GetInt("NOTIFICATION_QUEUE_SIZE"),
		WSSendBuffer:          v.GetInt("WS_SEND_BUFFER"),
		ShutdownTimeout:       v.GetDuration("SHUTDOWN_TIMEOUT"),
	}
	if cfg.JWTTTL <= 0 {
		cfg.JWTTTL = 24 * time.Hour
	}
	if cfg.NotificationQueueSize <= 0 {
		cfg.NotificationQueueSize = 256
	}
	if cfg.WSSendBuffer <= 0 {
		cfg.WSSendBuffer = 16
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	log.Printf("[config] APP_PORT=%s DATABASE_DRIVER=%s", cfg.AppPort, cfg.DatabaseDriver)
	if cfg.RabbitMQURL == "" {
		log.Println("[config] RABBITMQ_URL not set, notifications are delivered in-process only")
	}
	return cfg
}
