package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"reservation-dashboard/config"
	"reservation-dashboard/internal/airtable"
	"reservation-dashboard/internal/api"
	"reservation-dashboard/internal/board"
	"reservation-dashboard/internal/dashboard"
	"reservation-dashboard/internal/db"
	"reservation-dashboard/internal/notification"
	"reservation-dashboard/internal/store"
)

func main() {
	// Setup logger
	log.SetOutput(os.Stdout)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if lvl, err := log.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		log.SetLevel(lvl)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warnf("failed to load .env file: %v", err)
	}

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	log.Printf("configuration loaded successfully from %s", configPath)

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}
	appStore := store.NewGormStore(gormDB)
	log.Println("data store initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loc := cfg.Dashboard.Location()
	tables := board.New(cfg.Dashboard.Tables, time.Now(), loc)
	if err := appStore.UpsertTables(ctx, tables.Snapshot()); err != nil {
		log.Fatalf("failed to register tables: %v", err)
	}

	opts := dashboard.Options{Store: appStore}

	client, err := airtable.NewClient(cfg.Airtable, loc)
	if err != nil {
		log.WithError(err).Error("reservation store client unavailable; running in local-only mode")
	} else {
		opts.Client = client
	}

	var webpushOptions *webpush.Options
	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		workerPool := notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, webpushOptions)
		workerPool.Start(ctx)
		opts.Notifier = workerPool
	} else {
		log.Warn("VAPID keys are not configured; push notifications are disabled")
	}

	svc := dashboard.NewService(cfg.Dashboard, tables, opts)

	// The router registers its cache flush with the service, so build it first.
	router := api.NewRouter(api.NewHandler(svc, appStore, webpushOptions), cfg.Server)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go svc.Run(ctx)

	go func() {
		log.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	log.Println("Shutdown signal received, stopping services...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("HTTP server Shutdown: %v", err)
	}

	log.Println("Server gracefully stopped")
}
