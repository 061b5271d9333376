// Package frontier decides which feed items represent postings not yet
// persisted, using the highest persisted external identifier as a single
// global watermark shared by all category feeds.
package frontier

import (
	"context"

	"github.com/demyz/dou-jobs-feed/internal/logging"
	"github.com/demyz/dou-jobs-feed/internal/scraper/feed"
	"github.com/demyz/dou-jobs-feed/internal/store"
)

// Tracker answers "is there new work?" and filters category feed items
// against the persisted watermark.
type Tracker struct {
	store         *store.Store
	reader        *feed.Reader
	globalFeedURL string
	logger        logging.Logger
}

// NewTracker creates a frontier tracker. globalFeedURL is the aggregate
// feed covering all categories.
func NewTracker(s *store.Store, reader *feed.Reader, globalFeedURL string, logger logging.Logger) *Tracker {
	return &Tracker{
		store:         s,
		reader:        reader,
		globalFeedURL: globalFeedURL,
		logger:        logger,
	}
}

// HasNewJobs checks the aggregate feed for postings beyond the persisted
// watermark. It fails open: when the feed is unreadable or yields no
// parseable identifiers, it reports that new work exists so the pipeline
// is never silently starved by an upstream hiccup.
func (t *Tracker) HasNewJobs(ctx context.Context) bool {
	items, err := t.reader.Fetch(ctx, t.globalFeedURL)
	if err != nil {
		t.logger.Error("Failed to check global feed, assuming new jobs exist", map[string]interface{}{
			"error": err.Error(),
		})
		return true
	}

	if len(items) == 0 {
		t.logger.Info("Global feed is empty, no new jobs")
		return false
	}

	var maxFeedID int64
	for _, item := range items {
		if item.DouID > maxFeedID {
			maxFeedID = item.DouID
		}
	}

	if maxFeedID == 0 {
		t.logger.Warn("Could not extract any dou id from global feed, assuming new jobs exist")
		return true
	}

	watermark, err := t.store.MaxDouID(ctx)
	if err != nil {
		t.logger.Error("Failed to read watermark, assuming new jobs exist", map[string]interface{}{
			"error": err.Error(),
		})
		return true
	}

	hasNew := maxFeedID > watermark
	t.logger.Info("Global feed check result", map[string]interface{}{
		"max_feed_dou_id": maxFeedID,
		"watermark":       watermark,
		"has_new_jobs":    hasNew,
	})

	return hasNew
}

// Unprocessed filters a category's feed items down to ones beyond the
// current watermark. The watermark is re-read on every call, so it rises
// as earlier categories in the run persist postings; a posting listed in
// two categories' feeds is only fully processed once. Items without a
// resolvable identifier are kept so the orchestrator can journal them as
// errors.
func (t *Tracker) Unprocessed(ctx context.Context, items []feed.Item) ([]feed.Item, error) {
	watermark, err := t.store.MaxDouID(ctx)
	if err != nil {
		return nil, err
	}

	unprocessed := make([]feed.Item, 0, len(items))
	for _, item := range items {
		if item.DouID == 0 || item.DouID > watermark {
			unprocessed = append(unprocessed, item)
		}
	}

	t.logger.Debug("Frontier filter applied", map[string]interface{}{
		"total":       len(items),
		"unprocessed": len(unprocessed),
		"watermark":   watermark,
	})

	return unprocessed, nil
}
