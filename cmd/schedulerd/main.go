package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"event-scheduler-backend/config"
	"event-scheduler-backend/internal/api"
	"event-scheduler-backend/internal/db"
	"event-scheduler-backend/internal/notification"
	"event-scheduler-backend/internal/schedule"
	"event-scheduler-backend/internal/seed"
	"event-scheduler-backend/internal/store"

	"github.com/SherClockHolmes/webpush-go"
)

func main() {
	seedPath := flag.String("seed", "", `load a seed file ("default" for the built-in sample) and exit`)
	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "scheduler-backend ", log.LstdFlags)

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s (timezone %s)", configPath, cfg.Scheduler.Timezone)

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	svc := schedule.NewService(&cfg.Scheduler, appStore)

	if *seedPath != "" {
		data, err := seed.Load(*seedPath)
		if err != nil {
			logger.Fatalf("failed to load seed %s: %v", *seedPath, err)
		}
		sum, err := seed.Apply(ctx, appStore, data, time.Now(), svc.Location())
		if err != nil {
			logger.Fatalf("failed to apply seed: %v", err)
		}
		logger.Printf("sample data created: %d resources, %d events, %d allocations", sum.Resources, sum.Events, sum.Allocations)
		return
	}

	var webpushOptions *webpush.Options
	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, svc.Location(), webpushOptions)
		pool.Start(ctx)
		svc.SetNotifier(pool)
		logger.Printf("booking notifications enabled with %d workers", cfg.WorkerPool.Size)
	} else {
		logger.Println("VAPID keys not configured; booking notifications disabled")
	}

	// Initialize router
	router := api.NewRouter(&cfg.Server, svc, appStore, webpushOptions)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	// Create a deadline to wait for.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
