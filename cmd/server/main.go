package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"dispatch/internal/app"
	"dispatch/internal/config"
	"dispatch/internal/handler"
	internalRedis "dispatch/internal/redis"
	"dispatch/internal/repository/postgres"
	"dispatch/internal/service"
	"dispatch/internal/timer"
)

func main() {
	// Load configuration.
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Printf("failed to initialize New Relic: %v", err)
		} else {
			log.Printf("New Relic enabled: app=%s (with DB instrumentation)", cfg.NewRelic.AppName)
		}
	}

	// Initialize database with New Relic instrumentation.
	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	if err := app.Migrate(ctx, db); err != nil {
		log.Fatalf("failed to apply migrations: %v", err)
	}

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Connected to Redis")

	// Wire dependencies.
	registry := timer.NewRegistry()
	defer registry.Shutdown()

	server, dispatchService := wireServer(db, redisClient, registry, nrApp, cfg)

	// Rebuild phase timers before taking traffic so no active order is left
	// without a deadline.
	if _, err := dispatchService.RestoreTimers(ctx); err != nil {
		log.Fatalf("failed to restore timers: %v", err)
	}

	// Start server in goroutine.
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server together with
// the dispatch service so main can run timer recovery before serving.
func wireServer(
	db *sql.DB,
	redisClient *redis.Client,
	registry *timer.Registry,
	nrApp *newrelic.Application,
	cfg *config.Config,
) (*http.Server, *service.DispatchService) {
	// Initialize Redis stores.
	cooldownStore := internalRedis.NewCooldownStore(redisClient)
	settingsStore := internalRedis.NewSettingsStore(redisClient)
	positionStore := internalRedis.NewPositionStore(redisClient)

	// Initialize repositories.
	orderRepo := postgres.NewOrderRepository(db)
	bidRepo := postgres.NewBidRepository(db)
	driverRepo := postgres.NewDriverRepository(db)
	ratingRepo := postgres.NewRatingRepository(db)

	// Initialize services.
	notifier := service.NewNotificationService(nil)
	acceptor := service.NewTxBidAcceptor(db)
	dispatchService := service.NewDispatchService(
		orderRepo, bidRepo, driverRepo, acceptor,
		cooldownStore, settingsStore, registry, notifier,
		service.DispatchConfig{
			UnclaimedTimeout:  cfg.Dispatch.UnclaimedTimeout,
			SelectionTimeout:  cfg.Dispatch.SelectionTimeout,
			StaleTimeout:      cfg.Dispatch.StaleTimeout,
			OrderCooldown:     cfg.Dispatch.OrderCooldown,
			AutoAcceptDefault: cfg.Dispatch.AutoAcceptDefault,
		},
	)
	driverService := service.NewDriverService(driverRepo, orderRepo, positionStore)
	ratingService := service.NewRatingService(ratingRepo, orderRepo)

	// Initialize handlers.
	orderHandler := handler.NewOrderHandler(dispatchService, driverService)
	driverHandler := handler.NewDriverHandler(dispatchService, driverService)
	ratingHandler := handler.NewRatingHandler(ratingService)
	adminHandler := handler.NewAdminHandler(dispatchService)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		OrderHandler:  orderHandler,
		DriverHandler: driverHandler,
		RatingHandler: ratingHandler,
		AdminHandler:  adminHandler,
		RedisClient:   redisClient,
		NewRelicApp:   nrApp,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, dispatchService
}
