package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/demyz/dou-jobs-feed/internal/api/routes"
	"github.com/demyz/dou-jobs-feed/internal/config"
	"github.com/demyz/dou-jobs-feed/internal/logging"
	"github.com/demyz/dou-jobs-feed/internal/notify"
	"github.com/demyz/dou-jobs-feed/internal/scheduler"
	"github.com/demyz/dou-jobs-feed/internal/scraper/feed"
	"github.com/demyz/dou-jobs-feed/internal/scraper/frontier"
	"github.com/demyz/dou-jobs-feed/internal/scraper/ingest"
	"github.com/demyz/dou-jobs-feed/internal/scraper/page"
	"github.com/demyz/dou-jobs-feed/internal/store"
	"github.com/demyz/dou-jobs-feed/internal/telegram"
	"github.com/demyz/dou-jobs-feed/pkg/utils"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize logger
	if err := logging.InitializeLogging(cfg.Logging); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.CloseLogging()

	logger := logging.GetGlobalLogger()
	logger.Info("Starting job feed service")

	// Connect to the database
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

	// Connect to Redis for the scheduler run locks
	rdb := utils.NewRedisClient(cfg.Redis.URL)
	pingCtx, cancelPing := context.WithTimeout(context.Background(), cfg.Redis.Timeout)
	if err := utils.PingRedis(pingCtx, rdb); err != nil {
		logger.Warn("Redis unreachable, run locks disabled", map[string]interface{}{"error": err.Error()})
		rdb = nil
	}
	cancelPing()

	// Telegram client for outbound notifications
	tgClient, err := telegram.NewClient(telegram.ClientConfig{
		BotToken:   cfg.Telegram.BotToken,
		APIBaseURL: cfg.Telegram.APIBaseURL,
		Timeout:    cfg.Telegram.Timeout,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create Telegram client", map[string]interface{}{"error": err.Error()})
	}

	// Scraper pipeline
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

	// Notification pipeline
	dispatcher := notify.NewDispatcher(db, tgClient, cfg.Telegram.WebAppURL, cfg.Notifications.SendDelay, logger)

	// Scheduler for periodic scrape and notification runs
	sched := scheduler.New(cfg, orchestrator, dispatcher, rdb, logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sched.Start(ctx); err != nil {
		logger.Fatal("Failed to start scheduler", map[string]interface{}{"error": err.Error()})
	}

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	routes.SetupRoutes(e, cfg, db, sched)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down server...")

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancelShutdown()

		cancel()
		sched.Stop()

		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error shutting down server", map[string]interface{}{"error": err.Error()})
		}

		logger.Info("Server shutdown complete")
	}()

	// Start server
	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("Server starting", map[string]interface{}{"address": address})

	if err := e.Start(address); err != nil {
		logger.Info("Server stopped", map[string]interface{}{"reason": err.Error()})
	}
}
