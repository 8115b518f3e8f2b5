package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nodeflow-go/internal/builder/adapters/db/repository"
	"github.com/nodeflow-go/internal/builder/server"
	"github.com/nodeflow-go/pkg/config"
	"github.com/nodeflow-go/pkg/database"
	"github.com/nodeflow-go/pkg/events"
	"github.com/nodeflow-go/pkg/logger"
	"github.com/nodeflow-go/pkg/resilience"
	"github.com/nodeflow-go/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load("builder")
	if err != nil {
		panic(err)
	}

	// Initialize logger
	log := logger.New(cfg.Logger)
	defer func() { _ = log.Zap().Sync() }()

	tel, err := telemetry.New(cfg.Telemetry)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", "error", err)
	}

	// The database container may still be starting.
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = func(attempt int, err error) {
		log.Warn("Database not ready, retrying", "attempt", attempt, "error", err)
	}
	db, err := resilience.RetryWithResult(context.Background(), retry, func() (*database.DB, error) {
		return database.New(cfg.Database, log)
	})
	if err != nil {
		log.Fatal("Failed to connect to database", "error", err)
	}

	if cfg.Database.AutoMigrate {
		if err := repository.Migrate(db); err != nil {
			log.Fatal("Failed to migrate database", "error", err)
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
	}

	var eventBus events.EventBus = events.NopEventBus{}
	if cfg.Kafka.Enabled {
		eventBus = events.NewKafkaEventBus(cfg.Kafka)
	}

	srv, err := server.New(cfg, log, server.Dependencies{
		DB:        db,
		Redis:     redisClient,
		EventBus:  eventBus,
		Telemetry: tel,
	})
	if err != nil {
		log.Fatal("Failed to create server", "error", err)
	}

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal("Failed to start server", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down builder service...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Builder service exited")
}
