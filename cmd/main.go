package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"message-api/internal/api"
	"message-api/internal/config"
	"message-api/internal/logger"
	"message-api/internal/messaging"
	"message-api/internal/metrics"
	"message-api/internal/storage"
)

// @title Message API
// @version 1.0
// @description Greetings and a tiny persisted message board
// @host localhost:8080
// @BasePath /
// @schemes http
func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Failed to read .env: %v", err)
	}

	// Load Configuration
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logg, err := logger.New(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	logg.Info("Configuration loaded")

	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		stop()
		logg.WithError(err).Fatal("Service stopped")
	}
	logg.Info("Graceful shutdown complete")
}

// run owns every resource it opens and releases them before returning.
func run(ctx context.Context, cfg *config.Config, logg *logrus.Logger) error {
	// Init PostgreSQL
	db, err := storage.NewStorage(cfg.Database.URL, logg)
	if err != nil {
		return fmt.Errorf("init DB: %w", err)
	}
	defer db.Close()

	migrateCtx, cancelMigrate := context.WithTimeout(ctx, 30*time.Second)
	err = db.Migrate(migrateCtx)
	cancelMigrate()
	if err != nil {
		return fmt.Errorf("prepare schema: %w", err)
	}
	logg.Info("PostgreSQL connected")

	// Init RabbitMQ
	var publisher messaging.Publisher = messaging.NopPublisher{}
	if cfg.PublisherEnabled() {
		rabbitClient, err := messaging.NewRabbitClient(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue)
		if err != nil {
			return err
		}
		publisher = rabbitClient
		logg.WithField("queue", cfg.RabbitMQ.Queue).Info("RabbitMQ connected")
	} else {
		logg.Info("RabbitMQ not configured, message events disabled")
	}
	defer publisher.Close()

	// Init API
	apiHandler := api.NewAPI(db, publisher, cfg, logg)
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           apiHandler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.WithField("addr", server.Addr).Info("Starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}
	logg.Info("Shutdown initiated...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.WithError(err).Error("HTTP shutdown error")
	}
	return nil
}
