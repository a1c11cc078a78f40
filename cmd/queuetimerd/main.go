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

	"github.com/SherClockHolmes/webpush-go"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"queuetimer-backend/config"
	"queuetimer-backend/internal/api"
	"queuetimer-backend/internal/clock"
	"queuetimer-backend/internal/db"
	"queuetimer-backend/internal/janitor"
	"queuetimer-backend/internal/logger"
	"queuetimer-backend/internal/notification"
	"queuetimer-backend/internal/service"
	"queuetimer-backend/internal/store"
)

func main() {
	// A missing .env is fine; the environment may be set by the process manager.
	_ = godotenv.Load()

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}

	// Setup logger
	zlog, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zlog.Sync() //nolint:errcheck
	zlog.Info("Configuration loaded", zap.String("path", configPath))

	// VAPID keys are only needed when lapse notifications are sent.
	if cfg.Watcher.Enabled && (cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "") {
		zlog.Fatal("VAPID keys must be configured when the lapse watcher is enabled")
	}

	webpushOptions := webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}

	// Initialize database
	gormDB, err := db.Init(&cfg.Database, zlog)
	if err != nil {
		zlog.Fatal("Failed to initialize database", zap.Error(err))
	}

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	clk := clock.Real{}
	users := service.NewUserService(appStore, clk, cfg.Auth.TokenTTL, zlog)
	assignments := service.NewAssignmentService(appStore, clk, zlog)

	// Background services
	go janitor.NewService(cfg.Janitor, users, zlog.Named("janitor")).Run(ctx)

	pool := notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, &webpushOptions, zlog.Named("push"))
	go notification.NewWatcher(cfg.Watcher, appStore, pool, clk, zlog.Named("watcher")).Run(ctx)

	// Initialize router
	handler := api.NewHandler(assignments, users, appStore, &webpushOptions, clk, zlog)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewRouter(handler, cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start the server in a goroutine
	go func() {
		zlog.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("HTTP server ListenAndServe", zap.Error(err))
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	zlog.Info("Shutdown signal received, stopping services...")
	cancel()

	// Create a deadline to wait for.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal("HTTP server Shutdown", zap.Error(err))
	}

	zlog.Info("Server gracefully stopped")
}
