// Package notify fans newly persisted postings out to subscribers,
// filtering per subscription, rate limiting sends, and advancing each
// subscriber's personal watermark exactly once per run.
package notify

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/demyz/dou-jobs-feed/internal/logging"
	"github.com/demyz/dou-jobs-feed/internal/store"
	"github.com/demyz/dou-jobs-feed/internal/telegram"
)

// Sender is the outbound message surface the dispatcher needs
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string, keyboard *telegram.InlineKeyboardMarkup) error
}

// RunStats aggregates counters across one notification run
type RunStats struct {
	Subscribers int
	Sent        int
	Failed      int
}

// Dispatcher computes and delivers per-subscriber notification batches.
// Subscribers are processed one at a time; the send limiter paces
// messages across subscriber boundaries, not just within one batch.
type Dispatcher struct {
	store     *store.Store
	sender    Sender
	webAppURL string
	limiter   *rate.Limiter
	logger    logging.Logger
	now       func() time.Time
}

// NewDispatcher creates a notification dispatcher. sendDelay is the
// fixed pause between successive deliveries.
func NewDispatcher(s *store.Store, sender Sender, webAppURL string, sendDelay time.Duration, logger logging.Logger) *Dispatcher {
	if sendDelay <= 0 {
		sendDelay = 50 * time.Millisecond
	}

	return &Dispatcher{
		store:     s,
		sender:    sender,
		webAppURL: webAppURL,
		limiter:   rate.NewLimiter(rate.Every(sendDelay), 1),
		logger:    logger,
		now:       time.Now,
	}
}

// SendNewJobNotifications delivers every posting published since each
// subscriber's watermark that matches one of their subscriptions. Send
// failures are counted but never retried within the run: the watermark
// advances once per subscriber regardless, so a persistently failing
// send cannot cause infinite re-delivery.
func (d *Dispatcher) SendNewJobNotifications(ctx context.Context) (*RunStats, error) {
	stats := &RunStats{}

	floor, found, err := d.store.OldestNotificationWatermark(ctx)
	if err != nil {
		return stats, err
	}
	if !found {
		d.logger.Info("No subscribers with subscriptions, nothing to send")
		return stats, nil
	}

	// One shared query serves every subscriber in the run
	jobs, err := d.store.JobsPublishedAfter(ctx, floor)
	if err != nil {
		return stats, err
	}

	d.logger.Info("Fetched new jobs for notification run", map[string]interface{}{
		"count": len(jobs),
		"since": floor,
	})

	if len(jobs) == 0 {
		return stats, nil
	}

	subscribers, err := d.store.SubscribersWithSubscriptions(ctx)
	if err != nil {
		return stats, err
	}

	stats.Subscribers = len(subscribers)

	for i := range subscribers {
		if err := d.processSubscriber(ctx, &subscribers[i], jobs, stats); err != nil {
			stats.Failed++
			d.logger.Error("Failed to process subscriber", map[string]interface{}{
				"telegram_id": subscribers[i].TelegramID,
				"error":       err.Error(),
			})
		}
	}

	d.logger.Info("Notification run completed", map[string]interface{}{
		"subscribers": stats.Subscribers,
		"sent":        stats.Sent,
		"failed":      stats.Failed,
	})

	return stats, nil
}

// processSubscriber delivers one subscriber's batch and advances their
// watermark. Per-message failures are absorbed; only failures around
// the whole batch propagate.
func (d *Dispatcher) processSubscriber(ctx context.Context, subscriber *store.Subscriber, jobs []store.Job, stats *RunStats) error {
	matched := filterJobsForSubscriber(jobs, subscriber)
	if len(matched) == 0 {
		return nil
	}

	d.logger.Info("Sending jobs to subscriber", map[string]interface{}{
		"telegram_id": subscriber.TelegramID,
		"count":       len(matched),
	})

	for _, job := range matched {
		if err := d.limiter.Wait(ctx); err != nil {
			return err
		}

		message := FormatJobMessage(&job)
		keyboard := JobKeyboard(&job, d.webAppURL)

		if err := d.sender.SendMessage(ctx, subscriber.TelegramID, message, keyboard); err != nil {
			stats.Failed++
			d.logger.Error("Failed to send job to subscriber", map[string]interface{}{
				"telegram_id": subscriber.TelegramID,
				"job_id":      job.ID,
				"error":       err.Error(),
			})
			continue
		}

		stats.Sent++
	}

	// Unconditional: forward progress even when every send failed
	return d.store.AdvanceNotificationWatermark(ctx, subscriber.ID, d.now())
}

// filterJobsForSubscriber keeps jobs published strictly after the
// subscriber's own watermark that match at least one subscription. A
// nil watermark includes everything; a subscription with no location
// filters is a wildcard that matches any posting in its category.
func filterJobsForSubscriber(jobs []store.Job, subscriber *store.Subscriber) []store.Job {
	var matched []store.Job

	for _, job := range jobs {
		if subscriber.LastNotifiedAt != nil && !job.PublishedAt.After(*subscriber.LastNotifiedAt) {
			continue
		}

		if subscriptionMatches(subscriber.Subscriptions, &job) {
			matched = append(matched, job)
		}
	}

	return matched
}

// subscriptionMatches reports whether any subscription targets the
// job's category and intersects its locations (or is a wildcard).
func subscriptionMatches(subscriptions []store.Subscription, job *store.Job) bool {
	for _, subscription := range subscriptions {
		if subscription.CategoryID != job.CategoryID {
			continue
		}

		if len(subscription.Locations) == 0 {
			return true
		}

		for _, want := range subscription.Locations {
			for _, have := range job.Locations {
				if want.ID == have.ID {
					return true
				}
			}
		}
	}

	return false
}
