/**
 * @description
 * Entry point for the account onboarding service. Wires configuration, the
 * PostgreSQL pool, optional Redis and RabbitMQ connections, the onboarding
 * service and the HTTP router, then runs the server with graceful shutdown.
 */
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/rakib33/Registration/internal/api"
	"github.com/rakib33/Registration/internal/app"
	"github.com/rakib33/Registration/internal/config"
	"github.com/rakib33/Registration/internal/metrics"
	"github.com/rakib33/Registration/internal/store"
	"github.com/rakib33/Registration/pkg/rabbitmq"
)

func main() {
	// Load .env file for local development. In production, env vars are set directly.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("cannot load config: %v", err)
	}

	// Establish database connection pool.
	dbConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to parse database URL: %v\n", err)
	}

	dbConfig.MaxConns = 10
	dbConfig.MinConns = 2
	dbConfig.MaxConnLifetime = 30 * time.Minute
	dbConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statement caching to prevent conflicts behind poolers.
	dbConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), dbConfig)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}
	defer dbpool.Close()
	log.Println("Database connection established")

	// Ensure required tables exist (idempotent).
	if err := store.EnsureSchema(context.Background(), dbpool); err != nil {
		log.Printf("Warning: failed ensuring tables (may already exist): %v", err)
	}

	// Set up RabbitMQ producer; fall back to a no-op publisher on failure so
	// the service keeps working without a broker.
	var producer rabbitmq.Publisher
	if cfg.RabbitMQURL == "" {
		producer = nil
	} else if p, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL); err != nil {
		log.Printf("WARNING: Failed to connect to RabbitMQ at startup: %v. Continuing without MQ.", err)
		producer = &rabbitmq.EventProducerFallback{}
	} else {
		producer = p
		defer producer.Close()
		log.Println("RabbitMQ producer connected")
	}

	// Optional Redis client for resend rate limiting.
	var limiter api.ResendLimiter
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Printf("level=warn component=main msg=\"invalid REDIS_URL; resend limiter disabled\" err=%v", err)
		} else {
			redisClient := redis.NewClient(opts)
			defer redisClient.Close()
			limiter = app.NewRedisResendRateLimiter(redisClient, cfg.RedisRateLimitPrefix)
			log.Println("Redis resend limiter enabled")
		}
	}

	collected := metrics.New()
	repo := store.NewPostgresAccountRepository(dbpool)
	codeTTL := time.Duration(cfg.VerificationCodeTTLMinutes) * time.Minute
	sender := app.NewSimulatedCodeSender(producer, cfg.OnboardingEventExchange, codeTTL)
	service := app.NewOnboardingService(repo, sender, producer, cfg.OnboardingEventExchange, collected, codeTTL)

	handler := api.NewOnboardingHandler(service, limiter, cfg.ResendRateLimitPerMinute, collected)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not start server: %s\n", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}

	log.Println("Server gracefully stopped")
}
