package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/demyz/dou-jobs-feed/internal/config"
	"github.com/demyz/dou-jobs-feed/internal/logging"
	"github.com/demyz/dou-jobs-feed/internal/notify"
	"github.com/demyz/dou-jobs-feed/internal/scraper/feed"
	"github.com/demyz/dou-jobs-feed/internal/scraper/frontier"
	"github.com/demyz/dou-jobs-feed/internal/scraper/ingest"
	"github.com/demyz/dou-jobs-feed/internal/scraper/page"
	"github.com/demyz/dou-jobs-feed/internal/store"
	"github.com/demyz/dou-jobs-feed/internal/telegram"
)

// One-shot runner for the scrape and notification pipelines. Useful for
// cron-based deployments and manual backfills without the HTTP server.
func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	skipNotify := flag.Bool("skip-notify", false, "run the scrape only, skip notifications")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := logging.InitializeLogging(cfg.Logging); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.CloseLogging()

	logger := logging.GetGlobalLogger()
	logger.Info("Starting one-shot scrape run")

	db, err := store.Open(store.Options{
		URL:          cfg.Database.URL,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
		ConnMaxLife:  cfg.Database.ConnMaxLife,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", map[string]interface{}{"error": err.Error()})
	}
	defer db.Close()

	if err := db.AutoMigrate(); err != nil {
		logger.Fatal("Failed to run migrations", map[string]interface{}{"error": err.Error()})
	}

	reader := feed.NewReader(feed.Options{
		UserAgent:      cfg.Scraper.UserAgent,
		AcceptLanguage: cfg.Scraper.AcceptLanguage,
		RequestTimeout: cfg.Scraper.RequestTimeout,
	}, logger)
	extractor := page.NewExtractor(page.Options{
		UserAgent:      cfg.Scraper.UserAgent,
		AcceptLanguage: cfg.Scraper.AcceptLanguage,
		LangCookie:     cfg.Scraper.LangCookie,
		RequestTimeout: cfg.Scraper.RequestTimeout,
	}, logger)
	tracker := frontier.NewTracker(db, reader, cfg.Scraper.GlobalFeedURL, logger)
	orchestrator := ingest.NewOrchestrator(db, reader, extractor, tracker, logger)

	ctx := context.Background()

	session, err := orchestrator.Run(ctx)
	if err != nil {
		logger.Error("Scrape run failed", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	logger.Info("Scrape run completed", map[string]interface{}{
		"session_id": session.ID,
		"status":     string(session.Status),
		"processed":  session.TotalProcessed,
		"added":      session.TotalAdded,
		"updated":    session.TotalUpdated,
		"errors":     session.TotalErrors,
	})

	if *skipNotify {
		return
	}

	tgClient, err := telegram.NewClient(telegram.ClientConfig{
		BotToken:   cfg.Telegram.BotToken,
		APIBaseURL: cfg.Telegram.APIBaseURL,
		Timeout:    cfg.Telegram.Timeout,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create Telegram client", map[string]interface{}{"error": err.Error()})
	}

	dispatcher := notify.NewDispatcher(db, tgClient, cfg.Telegram.WebAppURL, cfg.Notifications.SendDelay, logger)

	stats, err := dispatcher.SendNewJobNotifications(ctx)
	if err != nil {
		logger.Error("Notification run failed", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	logger.Info("Notification run completed", map[string]interface{}{
		"subscribers": stats.Subscribers,
		"sent":        stats.Sent,
		"failed":      stats.Failed,
	})
}
