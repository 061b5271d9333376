// Package ingest drives a scrape session across all active categories,
// coordinating the feed reader, page extractor, and persistence while
// journaling the run's outcome.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/demyz/dou-jobs-feed/internal/logging"
	"github.com/demyz/dou-jobs-feed/internal/scraper/feed"
	"github.com/demyz/dou-jobs-feed/internal/scraper/frontier"
	"github.com/demyz/dou-jobs-feed/internal/scraper/page"
	"github.com/demyz/dou-jobs-feed/internal/store"
)

// unknownCompanyName is used when the detail page carries no company name
const unknownCompanyName = "Unknown Company"

// itemOutcome is the typed result of processing one feed item. Expected
// skips are outcomes, not errors; error outcomes are counted and never
// abort the category.
type itemOutcome int

const (
	outcomeAdded itemOutcome = iota
	outcomeUpdated
	outcomeError
)

// RunStats aggregates counters across one orchestration run
type RunStats struct {
	Processed           int
	Added               int
	Updated             int
	Errors              int
	CategoriesProcessed int
}

// Orchestrator runs scrape sessions sequentially: one category at a
// time, one item at a time. Postings are rate-sensitive upstream and
// the watermark depends on sequential advancement, so no parallel
// fan-out is attempted.
type Orchestrator struct {
	store     *store.Store
	reader    *feed.Reader
	extractor *page.Extractor
	tracker   *frontier.Tracker
	logger    logging.Logger
}

// NewOrchestrator creates an ingestion orchestrator
func NewOrchestrator(s *store.Store, reader *feed.Reader, extractor *page.Extractor, tracker *frontier.Tracker, logger logging.Logger) *Orchestrator {
	return &Orchestrator{
		store:     s,
		reader:    reader,
		extractor: extractor,
		tracker:   tracker,
		logger:    logger,
	}
}

// Run executes one complete scrape session. The session record is
// created at start and finalized exactly once. A failure to create the
// session record is fatal and propagates to the caller; everything else
// is contained and reflected in the session's final status.
func (o *Orchestrator) Run(ctx context.Context) (*store.ScrapeSession, error) {
	startTime := time.Now()

	session := &store.ScrapeSession{
		Status:    store.SessionInProgress,
		StartedAt: startTime,
	}
	if err := o.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create scrape session: %w", err)
	}

	o.logger.Info("Scrape session started", map[string]interface{}{"session_id": session.ID})

	// Steady-state short circuit: one feed fetch and one watermark read
	if !o.tracker.HasNewJobs(ctx) {
		o.logger.Info("No new jobs in global feed, exiting early")
		return session, o.finalize(ctx, session, store.SessionSuccess, RunStats{}, "", startTime)
	}

	categories, err := o.store.ActiveCategories(ctx)
	if err != nil {
		o.fail(ctx, session, err, startTime)
		return session, err
	}

	if len(categories) == 0 {
		o.logger.Warn("No active categories found, nothing to scrape")
		return session, o.finalize(ctx, session, store.SessionSuccess, RunStats{}, "", startTime)
	}

	stats := RunStats{}
	errorDetails := ""

	for _, category := range categories {
		if err := o.processCategory(ctx, category, &stats); err != nil {
			stats.Errors++
			if errorDetails != "" {
				errorDetails += "\n"
			}
			errorDetails += fmt.Sprintf("%s: %v", category.Slug, err)

			o.logger.Error("Category processing failed, continuing with next", map[string]interface{}{
				"category": category.Slug,
				"error":    err.Error(),
			})
		}
	}

	status := finalStatus(stats)

	o.logger.Info("Scrape session completed", map[string]interface{}{
		"session_id": session.ID,
		"status":     string(status),
		"processed":  stats.Processed,
		"added":      stats.Added,
		"updated":    stats.Updated,
		"errors":     stats.Errors,
		"duration":   time.Since(startTime).String(),
	})

	return session, o.finalize(ctx, session, status, stats, errorDetails, startTime)
}

// finalStatus derives the terminal session status from the run's
// counters: failed only when errors occurred with zero progress.
func finalStatus(stats RunStats) store.SessionStatus {
	if stats.Errors > 0 && stats.Added == 0 && stats.Updated == 0 {
		return store.SessionFailed
	}
	if stats.Errors > 0 {
		return store.SessionPartial
	}
	return store.SessionSuccess
}

// processCategory fetches one category's feed, filters it against the
// frontier, and folds over the surviving items. An error here means the
// category itself could not be processed; per-item failures are absorbed
// into the stats.
func (o *Orchestrator) processCategory(ctx context.Context, category store.Category, stats *RunStats) error {
	logger := o.logger.WithField("category", category.Slug)

	items, err := o.reader.Fetch(ctx, category.RSSURL)
	if err != nil {
		return err
	}

	unprocessed, err := o.tracker.Unprocessed(ctx, items)
	if err != nil {
		return err
	}

	if len(unprocessed) == 0 {
		logger.Info("No unprocessed jobs for category")
		return nil
	}

	added, updated := 0, 0
	for _, item := range unprocessed {
		// Items whose link carries no numeric id cannot be deduplicated
		// and are journaled as errors without counting as processed.
		if item.DouID == 0 {
			logger.Warn("Skipping feed item without dou id", map[string]interface{}{"link": item.Link})
			stats.Errors++
			continue
		}
		stats.Processed++

		switch o.processItem(ctx, category, item) {
		case outcomeAdded:
			stats.Added++
			added++
		case outcomeUpdated:
			stats.Updated++
			updated++
		case outcomeError:
			stats.Errors++
		}
	}

	logger.Info("Category processing complete", map[string]interface{}{
		"total":   len(unprocessed),
		"added":   added,
		"updated": updated,
	})

	stats.CategoriesProcessed++
	return nil
}

// processItem enriches one feed item with detail-page data and persists
// the posting. The item's identity is already resolved by the caller.
// Any failure yields an error outcome; it never aborts the category.
func (o *Orchestrator) processItem(ctx context.Context, category store.Category, item feed.Item) itemOutcome {
	pageData, err := o.extractor.Extract(ctx, item.Link)
	if err != nil {
		o.logger.Error("Failed to extract job page", map[string]interface{}{
			"link":  item.Link,
			"error": err.Error(),
		})
		return outcomeError
	}

	companyName := pageData.CompanyName
	if companyName == "" {
		companyName = unknownCompanyName
	}

	company, err := o.store.UpsertCompany(ctx, pageData.CompanySlug, companyName, pageData.CompanyLogoURL)
	if err != nil {
		o.logger.Error("Failed to upsert company", map[string]interface{}{
			"slug":  pageData.CompanySlug,
			"error": err.Error(),
		})
		return outcomeError
	}

	// Short description comes from the feed, falling back from rich
	// content to the plain snippet
	description := item.Content
	if description == "" {
		description = item.Snippet
	}

	job := &store.Job{
		DouID:           item.DouID,
		Title:           pageData.Title,
		URL:             item.Link,
		Description:     description,
		FullDescription: pageData.FullDescription,
		Salary:          pageData.Salary,
		PublishedAt:     item.PublishedAt,
		CompanyID:       company.ID,
		CategoryID:      category.ID,
	}

	created, err := o.store.SaveJob(ctx, job)
	if err != nil {
		o.logger.Error("Failed to save job", map[string]interface{}{
			"dou_id": item.DouID,
			"error":  err.Error(),
		})
		return outcomeError
	}

	if err := o.replaceLocations(ctx, job.ID, pageData.Locations); err != nil {
		o.logger.Error("Failed to replace job locations", map[string]interface{}{
			"job_id": job.ID,
			"error":  err.Error(),
		})
		return outcomeError
	}

	if created {
		return outcomeAdded
	}
	return outcomeUpdated
}

// replaceLocations resolves each free-text location and replaces the
// posting's associations wholesale. A single unresolvable location is
// logged and skipped; the replacement still happens with the rest. A
// failed replacement is returned so the item counts as an error.
func (o *Orchestrator) replaceLocations(ctx context.Context, jobID string, names []string) error {
	locations := make([]store.Location, 0, len(names))
	for _, name := range names {
		location, err := o.store.UpsertLocationByName(ctx, name, store.LocationSourceJobParser)
		if err != nil {
			o.logger.Error("Failed to upsert location", map[string]interface{}{
				"name":  name,
				"error": err.Error(),
			})
			continue
		}
		locations = append(locations, *location)
	}

	return o.store.ReplaceJobLocations(ctx, jobID, locations)
}

// finalize writes the session's terminal state: final counters, highest
// observed identifier, duration.
func (o *Orchestrator) finalize(ctx context.Context, session *store.ScrapeSession, status store.SessionStatus, stats RunStats, errorDetails string, startTime time.Time) error {
	maxDouID, err := o.store.MaxDouID(ctx)
	if err != nil {
		o.logger.Error("Failed to read final watermark", map[string]interface{}{"error": err.Error()})
	}

	now := time.Now()
	session.Status = status
	session.TotalProcessed = stats.Processed
	session.TotalAdded = stats.Added
	session.TotalUpdated = stats.Updated
	session.TotalErrors = stats.Errors
	session.CategoriesProcessed = stats.CategoriesProcessed
	session.ErrorDetails = errorDetails
	session.CompletedAt = &now
	session.DurationMs = now.Sub(startTime).Milliseconds()
	if maxDouID > 0 {
		session.LastProcessedDouID = &maxDouID
	}

	if err := o.store.UpdateSession(ctx, session); err != nil {
		return fmt.Errorf("finalize scrape session: %w", err)
	}
	return nil
}

// fail marks the session failed with the fatal error's message. The
// caller re-raises the error after this; a failure to even record the
// failure is only logged.
func (o *Orchestrator) fail(ctx context.Context, session *store.ScrapeSession, cause error, startTime time.Time) {
	now := time.Now()
	session.Status = store.SessionFailed
	session.ErrorDetails = cause.Error()
	session.CompletedAt = &now
	session.DurationMs = now.Sub(startTime).Milliseconds()

	if err := o.store.UpdateSession(ctx, session); err != nil {
		o.logger.Error("Failed to record session failure", map[string]interface{}{
			"session_id": session.ID,
			"error":      err.Error(),
		})
	}
}
