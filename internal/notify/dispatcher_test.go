package notify

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/demyz/dou-jobs-feed/internal/logging"
	"github.com/demyz/dou-jobs-feed/internal/store"
	"github.com/demyz/dou-jobs-feed/internal/telegram"
)

type sentMessage struct {
	chatID   int64
	text     string
	keyboard *telegram.InlineKeyboardMarkup
}

type fakeSender struct {
	sent    []sentMessage
	failAll bool
}

func (f *fakeSender) SendMessage(ctx context.Context, chatID int64, text string, keyboard *telegram.InlineKeyboardMarkup) error {
	if f.failAll {
		return errors.New("telegram unavailable")
	}
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text, keyboard: keyboard})
	return nil
}

type dispatchEnv struct {
	store    *store.Store
	sender   *fakeSender
	dispatch *Dispatcher
	golang   *store.Category
	python   *store.Category
	kyiv     *store.Location
	lviv     *store.Location
	company  *store.Company
	now      time.Time
}

func newDispatchEnv(t *testing.T) *dispatchEnv {
	t.Helper()
	ctx := context.Background()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	logger := logging.GetGlobalLogger()
	s := store.New(db, logger)
	require.NoError(t, s.AutoMigrate())

	golang := &store.Category{Slug: "golang", Name: "Golang", RSSURL: "https://example.com/g", IsActive: true}
	require.NoError(t, s.UpsertCategory(ctx, golang))
	python := &store.Category{Slug: "python", Name: "Python", RSSURL: "https://example.com/p", IsActive: true}
	require.NoError(t, s.UpsertCategory(ctx, python))

	kyiv, err := s.UpsertLocationByName(ctx, "Kyiv", store.LocationSourceCityScraper)
	require.NoError(t, err)
	lviv, err := s.UpsertLocationByName(ctx, "Lviv", store.LocationSourceCityScraper)
	require.NoError(t, err)

	company, err := s.UpsertCompany(ctx, "acme", "Acme", nil)
	require.NoError(t, err)

	sender := &fakeSender{}
	dispatcher := NewDispatcher(s, sender, "https://app.example.com", time.Millisecond, logger)
	now := time.Date(2025, 8, 10, 12, 0, 0, 0, time.UTC)
	dispatcher.now = func() time.Time { return now }

	return &dispatchEnv{
		store:    s,
		sender:   sender,
		dispatch: dispatcher,
		golang:   golang,
		python:   python,
		kyiv:     kyiv,
		lviv:     lviv,
		company:  company,
		now:      now,
	}
}

func (e *dispatchEnv) addJob(t *testing.T, douID int64, category *store.Category, publishedAt time.Time, locations ...store.Location) *store.Job {
	t.Helper()
	ctx := context.Background()

	job := &store.Job{
		DouID:       douID,
		Title:       fmt.Sprintf("Job %d", douID),
		URL:         fmt.Sprintf("https://jobs.dou.ua/vacancies/%d/", douID),
		Description: "description",
		PublishedAt: publishedAt,
		CompanyID:   e.company.ID,
		CategoryID:  category.ID,
	}
	created, err := e.store.SaveJob(ctx, job)
	require.NoError(t, err)
	require.True(t, created)
	if len(locations) > 0 {
		require.NoError(t, e.store.ReplaceJobLocations(ctx, job.ID, locations))
	}
	return job
}

func (e *dispatchEnv) addSubscriber(t *testing.T, telegramID int64, subscriptions ...store.Subscription) *store.Subscriber {
	t.Helper()
	ctx := context.Background()

	subscriber, err := e.store.UpsertSubscriber(ctx, telegramID, store.SubscriberProfile{})
	require.NoError(t, err)
	if len(subscriptions) > 0 {
		require.NoError(t, e.store.ReplaceSubscriptions(ctx, subscriber.ID, subscriptions))
	}
	return subscriber
}

func TestSendNotificationsNoSubscribers(t *testing.T) {
	env := newDispatchEnv(t)
	env.addJob(t, 1, env.golang, env.now.Add(-time.Hour))

	stats, err := env.dispatch.SendNewJobNotifications(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Subscribers)
	assert.Empty(t, env.sender.sent)
}

func TestSendNotificationsCategoryAndWildcardLocation(t *testing.T) {
	env := newDispatchEnv(t)
	ctx := context.Background()

	env.addJob(t, 1, env.golang, env.now.Add(-2*time.Hour), *env.kyiv)
	env.addJob(t, 2, env.golang, env.now.Add(-time.Hour)) // no locations at all
	env.addJob(t, 3, env.python, env.now.Add(-time.Hour), *env.kyiv)

	// Wildcard: no location filters, matches any golang posting
	env.addSubscriber(t, 100, store.Subscription{CategoryID: env.golang.ID})

	stats, err := env.dispatch.SendNewJobNotifications(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Subscribers)
	assert.Equal(t, 2, stats.Sent)
	assert.Equal(t, 0, stats.Failed)
	require.Len(t, env.sender.sent, 2)
	assert.Equal(t, int64(100), env.sender.sent[0].chatID)
	assert.Contains(t, env.sender.sent[0].text, "Job 1")
	assert.Contains(t, env.sender.sent[1].text, "Job 2")

	// Watermark advanced to the run time
	reloaded, err := env.store.UpsertSubscriber(ctx, 100, store.SubscriberProfile{})
	require.NoError(t, err)
	require.NotNil(t, reloaded.LastNotifiedAt)
	assert.True(t, env.now.Equal(*reloaded.LastNotifiedAt))
}

func TestSendNotificationsLocationIntersection(t *testing.T) {
	env := newDispatchEnv(t)

	env.addJob(t, 1, env.golang, env.now.Add(-time.Hour), *env.kyiv)
	env.addJob(t, 2, env.golang, env.now.Add(-time.Hour), *env.lviv)

	env.addSubscriber(t, 200, store.Subscription{
		CategoryID: env.golang.ID,
		Locations:  []store.Location{*env.kyiv},
	})

	stats, err := env.dispatch.SendNewJobNotifications(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Sent)
	require.Len(t, env.sender.sent, 1)
	assert.Contains(t, env.sender.sent[0].text, "Job 1")
}

func TestSendNotificationsRespectsPersonalWatermark(t *testing.T) {
	env := newDispatchEnv(t)
	ctx := context.Background()

	old := env.addJob(t, 1, env.golang, env.now.Add(-3*time.Hour))
	env.addJob(t, 2, env.golang, env.now.Add(-time.Hour))

	// caughtUp already saw the first job; behind saw nothing
	caughtUp := env.addSubscriber(t, 300, store.Subscription{CategoryID: env.golang.ID})
	require.NoError(t, env.store.AdvanceNotificationWatermark(ctx, caughtUp.ID, old.PublishedAt))
	env.addSubscriber(t, 301, store.Subscription{CategoryID: env.golang.ID})

	stats, err := env.dispatch.SendNewJobNotifications(ctx)
	require.NoError(t, err)

	// caughtUp gets only the newer job, behind gets both
	assert.Equal(t, 3, stats.Sent)

	perChat := map[int64]int{}
	for _, message := range env.sender.sent {
		perChat[message.chatID]++
	}
	assert.Equal(t, 1, perChat[300])
	assert.Equal(t, 2, perChat[301])
}

func TestSendNotificationsAdvancesWatermarkWhenAllSendsFail(t *testing.T) {
	env := newDispatchEnv(t)
	ctx := context.Background()
	env.sender.failAll = true

	env.addJob(t, 1, env.golang, env.now.Add(-time.Hour))
	env.addSubscriber(t, 400, store.Subscription{CategoryID: env.golang.ID})

	stats, err := env.dispatch.SendNewJobNotifications(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Sent)
	assert.Equal(t, 1, stats.Failed)

	// At-most-one-attempt semantics: the watermark still advances so the
	// same posting is never retried on the next run
	reloaded, err := env.store.UpsertSubscriber(ctx, 400, store.SubscriberProfile{})
	require.NoError(t, err)
	require.NotNil(t, reloaded.LastNotifiedAt)
	assert.True(t, env.now.Equal(*reloaded.LastNotifiedAt))
}

func TestSendNotificationsSkipsSubscriberWithoutMatches(t *testing.T) {
	env := newDispatchEnv(t)
	ctx := context.Background()

	env.addJob(t, 1, env.python, env.now.Add(-time.Hour))
	env.addSubscriber(t, 500, store.Subscription{CategoryID: env.golang.ID})

	stats, err := env.dispatch.SendNewJobNotifications(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Sent)

	// No matches means no delivery attempt and no watermark advance
	reloaded, err := env.store.UpsertSubscriber(ctx, 500, store.SubscriberProfile{})
	require.NoError(t, err)
	assert.Nil(t, reloaded.LastNotifiedAt)
}

func TestSendNotificationsAttachesKeyboard(t *testing.T) {
	env := newDispatchEnv(t)

	job := env.addJob(t, 1, env.golang, env.now.Add(-time.Hour))
	env.addSubscriber(t, 600, store.Subscription{CategoryID: env.golang.ID})

	_, err := env.dispatch.SendNewJobNotifications(context.Background())
	require.NoError(t, err)

	require.Len(t, env.sender.sent, 1)
	keyboard := env.sender.sent[0].keyboard
	require.NotNil(t, keyboard)
	require.Len(t, keyboard.InlineKeyboard, 1)
	assert.Equal(t, fmt.Sprintf("https://app.example.com/#/job/%s", job.ID), keyboard.InlineKeyboard[0][0].WebApp.URL)
}
