package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/demyz/dou-jobs-feed/internal/config"
	"github.com/demyz/dou-jobs-feed/internal/logging"
	"github.com/demyz/dou-jobs-feed/internal/notify"
	"github.com/demyz/dou-jobs-feed/internal/scraper/ingest"
)

const (
	scrapeLockKey = "dou-jobs-feed:scrape:lock"
	notifyLockKey = "dou-jobs-feed:notify:lock"

	scrapeLockTTL = 30 * time.Minute
	notifyLockTTL = 10 * time.Minute
)

// ErrScrapeInProgress is returned when a scrape run is triggered while
// another one holds the run lock
var ErrScrapeInProgress = errors.New("scrape run already in progress")

// Scheduler wraps robfig/cron and manages the periodic scrape and
// notification loops. Both jobs take a Redis run lock so ticks never
// overlap, including across service instances.
type Scheduler struct {
	cron         *cron.Cron
	orchestrator *ingest.Orchestrator
	dispatcher   *notify.Dispatcher
	scrapeLock   *RunLock
	notifyLock   *RunLock
	scrapeSpec   string
	notifySpec   string
	logger       logging.Logger
}

// New creates a Scheduler wired to the ingestion orchestrator and the
// notification dispatcher
func New(cfg *config.Config, orchestrator *ingest.Orchestrator, dispatcher *notify.Dispatcher, rdb *redis.Client, logger logging.Logger) *Scheduler {
	return &Scheduler{
		cron:         cron.New(),
		orchestrator: orchestrator,
		dispatcher:   dispatcher,
		scrapeLock:   NewRunLock(rdb, scrapeLockKey, scrapeLockTTL),
		notifyLock:   NewRunLock(rdb, notifyLockKey, notifyLockTTL),
		scrapeSpec:   cfg.Scraper.CronSpec,
		notifySpec:   cfg.Notifications.CronSpec,
		logger:       logger,
	}
}

// Start registers both jobs and starts the cron loop
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.scrapeSpec, func() {
		s.runScrape(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule scrape job: %w", err)
	}

	if _, err := s.cron.AddFunc(s.notifySpec, func() {
		s.runNotifications(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule notification job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Scheduler started", map[string]interface{}{
		"scrape_spec": s.scrapeSpec,
		"notify_spec": s.notifySpec,
	})

	return nil
}

// Stop shuts the cron loop down and waits for running jobs to finish
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info("Scheduler stopped")
}

// TriggerScrape starts a scrape run in the background. It fails fast
// with ErrScrapeInProgress when another run holds the lock.
func (s *Scheduler) TriggerScrape(ctx context.Context) error {
	acquired, err := s.scrapeLock.TryLock(ctx)
	if err != nil {
		return err
	}
	if !acquired {
		return ErrScrapeInProgress
	}

	go func() {
		defer s.unlock(ctx, s.scrapeLock)
		s.executeScrape(ctx)
	}()

	return nil
}

func (s *Scheduler) runScrape(ctx context.Context) {
	acquired, err := s.scrapeLock.TryLock(ctx)
	if err != nil {
		s.logger.Error("Failed to acquire scrape lock", map[string]interface{}{"error": err.Error()})
		return
	}
	if !acquired {
		s.logger.Warn("Skipping scrape tick, previous run still active")
		return
	}
	defer s.unlock(ctx, s.scrapeLock)

	s.executeScrape(ctx)
}

func (s *Scheduler) executeScrape(ctx context.Context) {
	session, err := s.orchestrator.Run(ctx)
	if err != nil {
		s.logger.Error("Scrape run failed", map[string]interface{}{"error": err.Error()})
		return
	}

	s.logger.Info("Scrape run completed", map[string]interface{}{
		"session_id": session.ID,
		"status":     string(session.Status),
		"processed":  session.TotalProcessed,
		"added":      session.TotalAdded,
		"updated":    session.TotalUpdated,
		"errors":     session.TotalErrors,
	})
}

func (s *Scheduler) runNotifications(ctx context.Context) {
	acquired, err := s.notifyLock.TryLock(ctx)
	if err != nil {
		s.logger.Error("Failed to acquire notification lock", map[string]interface{}{"error": err.Error()})
		return
	}
	if !acquired {
		s.logger.Warn("Skipping notification tick, previous run still active")
		return
	}
	defer s.unlock(ctx, s.notifyLock)

	stats, err := s.dispatcher.SendNewJobNotifications(ctx)
	if err != nil {
		s.logger.Error("Notification run failed", map[string]interface{}{"error": err.Error()})
		return
	}

	s.logger.Info("Notification tick finished", map[string]interface{}{
		"subscribers": stats.Subscribers,
		"sent":        stats.Sent,
		"failed":      stats.Failed,
	})
}

func (s *Scheduler) unlock(ctx context.Context, lock *RunLock) {
	if err := lock.Unlock(ctx); err != nil && !errors.Is(err, ErrLockNotHeld) {
		s.logger.Error("Failed to release run lock", map[string]interface{}{"error": err.Error()})
	}
}
