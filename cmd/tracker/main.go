package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"posti_delivery_tracker/internal/app"
	"posti_delivery_tracker/internal/domain/schedule"
	"posti_delivery_tracker/internal/infra/config"
	idb "posti_delivery_tracker/internal/infra/database"
	"posti_delivery_tracker/internal/infra/httpapi"
	"posti_delivery_tracker/internal/infra/logger"
	"posti_delivery_tracker/internal/infra/posti"
	"posti_delivery_tracker/internal/infra/scheduler"
	itg "posti_delivery_tracker/internal/infra/telegram"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func main() {
	fmt.Println("Posti Delivery Tracker starting...")

	mainLogger := log.New(os.Stdout, "MAIN: ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		mainLogger.Fatalf("FATAL: Could not load application configuration: %v", err)
	}

	logger.Init(cfg)
	appLog := logrus.NewEntry(logger.Get())
	mainLogger.Printf("INFO: Configuration loaded. LogLevel: %s, Environment: %s, Interval: %s", cfg.LogLevel, cfg.Environment, cfg.UpdateInterval)

	// Optional snapshot store: only wired when a database is configured.
	var store schedule.SnapshotStore
	if cfg.DatabaseURL != "" {
		db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
		if err != nil {
			mainLogger.Fatalf("FATAL: Could not connect to database: %v", err)
		}
		defer db.Close()

		pgStore := idb.NewPostgresSnapshotStore(db)
		schemaCtx, cancelSchema := context.WithTimeout(context.Background(), 10*time.Second)
		if err := pgStore.EnsureSchema(schemaCtx); err != nil {
			cancelSchema()
			mainLogger.Fatalf("FATAL: Could not prepare snapshot table: %v", err)
		}
		cancelSchema()
		store = pgStore
		mainLogger.Println("INFO: Snapshot store initialized.")
	} else {
		mainLogger.Println("INFO: No DATABASE_URL set, snapshot store disabled.")
	}

	// Fetch capability
	fetcher := posti.NewClient(cfg.PostiAPIURL, cfg.APITimeout, appLog)

	// Coordinator registry
	registry := app.NewCoordinatorRegistry(fetcher, store, app.RegistryConfig{
		BaseInterval:  cfg.UpdateInterval,
		InitialSpread: cfg.InitialSpread,
		UpdateJitter:  cfg.UpdateJitter,
	}, appLog)

	// Optional Telegram notifier; registered before tracking begins so every
	// coordinator carries the listener.
	if cfg.TelegramToken != "" {
		bot, err := telebot.NewBot(telebot.Settings{
			Token:  cfg.TelegramToken,
			Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		})
		if err != nil {
			mainLogger.Fatalf("FATAL: Could not create Telegram bot: %v", err)
		}
		notifier := itg.NewDeliveryNotifier(registry, itg.NewTelebotAdapter(bot), cfg.TelegramChatID, appLog)
		notifier.Register()
		mainLogger.Println("INFO: Telegram delivery notifier registered.")
	}

	// Track postal codes configured at boot.
	trackCtx, cancelTrack := context.WithTimeout(context.Background(), 30*time.Second)
	for _, code := range cfg.PostalCodes {
		if _, err := registry.Track(trackCtx, code, nil); err != nil {
			mainLogger.Printf("ERROR: Could not track postal code %s: %v", code, err)
		}
	}
	cancelTrack()

	// Midnight rollover re-derivation
	rollover := scheduler.NewRolloverScheduler(registry, appLog, cfg.CronSpecRollover)
	if err := rollover.Start(); err != nil {
		mainLogger.Fatalf("FATAL: Could not start rollover scheduler: %v", err)
	}

	// REST adapter
	apiServer := httpapi.NewServer(registry, appLog)
	httpServer := &http.Server{
		Addr:    cfg.HTTPListenAddr,
		Handler: apiServer.Handler(),
	}
	go func() {
		mainLogger.Printf("INFO: HTTP API listening on %s", cfg.HTTPListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			mainLogger.Fatalf("FATAL: HTTP server failed: %v", err)
		}
	}()

	mainLogger.Println("INFO: Application setup complete.")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit // Block until a signal is received

	mainLogger.Println("INFO: Shutting down application...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		mainLogger.Printf("ERROR: HTTP server shutdown: %v", err)
	}
	cancelShutdown()

	rollover.Stop()
	registry.Shutdown()
	// db.Close() is handled by defer
	mainLogger.Println("INFO: Application shut down gracefully.")
}
