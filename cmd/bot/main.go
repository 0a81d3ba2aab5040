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

	"github.com/creatorlab/viralbot/internal/api"
	"github.com/creatorlab/viralbot/internal/config"
	"github.com/creatorlab/viralbot/internal/events"
	"github.com/creatorlab/viralbot/internal/ingestion"
	"github.com/creatorlab/viralbot/internal/llm"
	"github.com/creatorlab/viralbot/internal/notifications"
	"github.com/creatorlab/viralbot/internal/reports"
	"github.com/creatorlab/viralbot/internal/runlock"
	"github.com/creatorlab/viralbot/internal/scheduler"
	"github.com/creatorlab/viralbot/internal/sources"
	"github.com/creatorlab/viralbot/internal/storage"
	"github.com/creatorlab/viralbot/internal/store"
	"github.com/creatorlab/viralbot/internal/tokens"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting viralbot")

	db, err := store.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		logrus.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		logrus.Fatalf("Failed to migrate database: %v", err)
	}

	archive, err := newArchive(cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize archive: %v", err)
	}

	publisher := newPublisher(cfg)
	defer publisher.Close()

	locker, closeLocker := newLocker(cfg)
	defer closeLocker()

	logger := logrus.StandardLogger()
	graph := sources.NewGraphClient(cfg.HTTPTimeout, logger)

	syncService := ingestion.NewService(ingestion.Dependencies{
		Resolver: tokens.NewResolver(db, tokens.Defaults{
			PageToken: cfg.InstagramPageToken,
			UserToken: cfg.InstagramToken,
		}),
		Discoverer: sources.NewDiscoverer(graph, cfg.GraphFacebookURL, cfg.GraphInstagramURL, logger),
		Media:      sources.NewMediaLister(graph, logger),
		Insights:   sources.NewInsightFetcher(graph, logger),
		Store:      db,
		Archive:    archive,
		Publisher:  publisher,
		Locker:     locker,
		Logger:     logger,
	}, ingestion.Options{
		MediaLimit:  cfg.SyncMediaLimit,
		Concurrency: cfg.SyncConcurrency,
		Timeout:     cfg.SyncTimeout,
		LockTTL:     cfg.RunLockTTL,
	})

	notificationService := notifications.NewService(notifications.Options{
		TeamsWebhookURL:   cfg.TeamsWebhookURL,
		NotificationEmail: cfg.NotificationEmail,
		SMTPHost:          cfg.SMTPHost,
		SMTPPort:          cfg.SMTPPort,
		SMTPUsername:      cfg.SMTPUsername,
		SMTPPassword:      cfg.SMTPPassword,
	})

	// Report generation stays off until a model key is configured
	var generator *reports.Generator
	if cfg.OpenAIAPIKey != "" {
		writer, err := llm.NewClient(llm.Options{
			APIKey:      cfg.OpenAIAPIKey,
			BaseURL:     cfg.OpenAIBaseURL,
			Model:       cfg.OpenAIModel,
			MaxAttempts: cfg.OpenAIMaxAttempts,
		}, logger)
		if err != nil {
			logrus.Fatalf("Failed to initialize report writer: %v", err)
		}
		generator = reports.NewGenerator(reports.Dependencies{
			Store:     db,
			Writer:    writer,
			Archive:   archive,
			Notifier:  notificationService,
			Publisher: publisher,
			Locker:    locker,
			Logger:    logger,
		}, reports.Options{
			LookbackDays: cfg.LookbackDays,
			Location:     cfg.Location(),
		})
	} else {
		logrus.Warn("OPENAI_API_KEY not set, weekly reports are disabled")
	}

	var reporter scheduler.Reporter
	var reportHandler api.ReportGenerator
	if generator != nil {
		reporter = generator
		reportHandler = generator
	}

	if cfg.DefaultUserID != "" {
		schedulerService := scheduler.NewService(scheduler.Options{
			SyncSchedule:   cfg.SyncSchedule,
			ReportSchedule: cfg.ReportSchedule,
			UserID:         cfg.DefaultUserID,
			Location:       cfg.Location(),
		}, syncService, reporter, notificationService)
		if err := schedulerService.Start(); err != nil {
			logrus.Fatalf("Failed to start scheduler: %v", err)
		}
		defer schedulerService.Stop()
	} else {
		logrus.Warn("DEFAULT_USER_ID not set, scheduled runs are disabled")
	}

	router := api.NewServer(syncService, reportHandler, tokens.NewService(db), db, api.Options{
		DefaultUserID: cfg.DefaultUserID,
	}).Router()

	// Sync and report requests run to completion before responding
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.SyncTimeout + time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

// newArchive returns nil when archiving is disabled
func newArchive(cfg *config.Config) (storage.StorageInterface, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch cfg.ArchiveBackend {
	case "azure":
		return storage.NewAzureStorage(ctx, cfg.StorageAccount, cfg.StorageContainer)
	case "minio":
		return storage.NewMinioStorage(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	case "local":
		return storage.NewLocalStorage(cfg.ArchiveDir)
	default:
		return nil, nil
	}
}

func newPublisher(cfg *config.Config) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		return events.NoopPublisher{}
	}
	publisher, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	if err != nil {
		logrus.Warnf("Kafka publisher disabled: %v", err)
		return events.NoopPublisher{}
	}
	logrus.Infof("Publishing pipeline events to %s", cfg.KafkaTopic)
	return publisher
}

func newLocker(cfg *config.Config) (runlock.Locker, func()) {
	if cfg.RedisURL == "" {
		return runlock.NewLocalLocker(), func() {}
	}
	client, err := runlock.Connect(cfg.RedisURL)
	if err != nil {
		logrus.Warnf("Redis unavailable, falling back to in-process locks: %v", err)
		return runlock.NewLocalLocker(), func() {}
	}
	locker := runlock.NewRedisLocker(client)
	return locker, func() { locker.Close() }
}
