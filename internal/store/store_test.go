package store

import (
	"context"
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
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	s := New(db, logging.GetGlobalLogger())
	require.NoError(t, s.AutoMigrate())
	return s
}

func seedCategory(t *testing.T, s *Store, slug string, active bool) *Category {
	t.Helper()

	category := &Category{
		Slug:     slug,
		Name:     slug,
		RSSURL:   "https://jobs.dou.ua/vacancies/feeds/?category=" + slug,
		IsActive: active,
	}
	require.NoError(t, s.db.Create(category).Error)
	return category
}

func seedJob(t *testing.T, s *Store, douID int64, publishedAt time.Time, company *Company, category *Category, locations ...Location) *Job {
	t.Helper()

	job := &Job{
		DouID:       douID,
		Title:       fmt.Sprintf("Job %d", douID),
		URL:         fmt.Sprintf("https://jobs.dou.ua/vacancies/%d/", douID),
		Description: "description",
		PublishedAt: publishedAt,
		CompanyID:   company.ID,
		CategoryID:  category.ID,
	}
	require.NoError(t, s.db.Omit("Locations").Create(job).Error)
	if len(locations) > 0 {
		require.NoError(t, s.ReplaceJobLocations(context.Background(), job.ID, locations))
	}
	return job
}

func TestUpsertCompanyRefreshesBySlug(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.UpsertCompany(ctx, "acme", "Acme", nil)
	require.NoError(t, err)

	logo := "https://s.dou.ua/img/acme.png"
	second, err := s.UpsertCompany(ctx, "acme", "Acme Corp", &logo)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Acme Corp", second.Name)
	require.NotNil(t, second.LogoURL)
	assert.Equal(t, logo, *second.LogoURL)
}

func TestUpsertLocationByNameDerivesSlug(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	location, err := s.UpsertLocationByName(ctx, "New York", LocationSourceJobParser)
	require.NoError(t, err)
	assert.Equal(t, "new-york", location.Slug)
	assert.Equal(t, "New York", location.Name)

	again, err := s.UpsertLocationByName(ctx, "New York", LocationSourceJobParser)
	require.NoError(t, err)
	assert.Equal(t, location.ID, again.ID)
}

func TestUpsertLocationByNameRejectsEmptySlug(t *testing.T) {
	s := newTestStore(t)

	_, err := s.UpsertLocationByName(context.Background(), "???", LocationSourceJobParser)
	require.Error(t, err)
}

func TestActiveCategoriesFiltersInactive(t *testing.T) {
	s := newTestStore(t)
	seedCategory(t, s, "golang", true)
	seedCategory(t, s, "flash", false)

	categories, err := s.ActiveCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, "golang", categories[0].Slug)
}

func TestMaxDouID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	max, err := s.MaxDouID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), max)

	company, err := s.UpsertCompany(ctx, "acme", "Acme", nil)
	require.NoError(t, err)
	category := seedCategory(t, s, "golang", true)
	seedJob(t, s, 100, time.Now(), company, category)
	seedJob(t, s, 250, time.Now(), company, category)

	max, err = s.MaxDouID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(250), max)
}

func TestSaveJobCreateThenUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	company, err := s.UpsertCompany(ctx, "acme", "Acme", nil)
	require.NoError(t, err)
	category := seedCategory(t, s, "golang", true)

	job := &Job{
		DouID:       42,
		Title:       "Go Engineer",
		URL:         "https://jobs.dou.ua/vacancies/42/",
		Description: "old",
		PublishedAt: time.Now(),
		CompanyID:   company.ID,
		CategoryID:  category.ID,
	}
	created, err := s.SaveJob(ctx, job)
	require.NoError(t, err)
	assert.True(t, created)

	salary := "$5000"
	update := &Job{
		DouID:       42,
		Title:       "Senior Go Engineer",
		URL:         job.URL,
		Description: "new",
		Salary:      &salary,
		PublishedAt: job.PublishedAt,
		CompanyID:   company.ID,
		CategoryID:  category.ID,
	}
	created, err = s.SaveJob(ctx, update)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, job.ID, update.ID)

	loaded, err := s.JobByID(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "Senior Go Engineer", loaded.Title)
	assert.Equal(t, "new", loaded.Description)
	require.NotNil(t, loaded.Salary)
	assert.Equal(t, "$5000", *loaded.Salary)
}

func TestReplaceJobLocationsWholesale(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	company, err := s.UpsertCompany(ctx, "acme", "Acme", nil)
	require.NoError(t, err)
	category := seedCategory(t, s, "golang", true)

	kyiv, err := s.UpsertLocationByName(ctx, "Kyiv", LocationSourceJobParser)
	require.NoError(t, err)
	lviv, err := s.UpsertLocationByName(ctx, "Lviv", LocationSourceJobParser)
	require.NoError(t, err)

	job := seedJob(t, s, 7, time.Now(), company, category, *kyiv)

	require.NoError(t, s.ReplaceJobLocations(ctx, job.ID, []Location{*lviv}))
	loaded, err := s.JobByID(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Locations, 1)
	assert.Equal(t, "lviv", loaded.Locations[0].Slug)

	// Empty replacement clears the associations
	require.NoError(t, s.ReplaceJobLocations(ctx, job.ID, nil))
	loaded, err = s.JobByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Empty(t, loaded.Locations)
}

func TestJobByIDMissingReturnsNil(t *testing.T) {
	s := newTestStore(t)

	job, err := s.JobByID(context.Background(), uuid.New().String())
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestJobsPublishedAfterIsStrict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	company, err := s.UpsertCompany(ctx, "acme", "Acme", nil)
	require.NoError(t, err)
	category := seedCategory(t, s, "golang", true)

	cutoff := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	seedJob(t, s, 1, cutoff.Add(-time.Hour), company, category)
	seedJob(t, s, 2, cutoff, company, category)
	seedJob(t, s, 3, cutoff.Add(time.Hour), company, category)
	seedJob(t, s, 4, cutoff.Add(2*time.Hour), company, category)

	jobs, err := s.JobsPublishedAfter(ctx, cutoff)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, int64(3), jobs[0].DouID)
	assert.Equal(t, int64(4), jobs[1].DouID)
}

func TestUpsertSubscriberPreservesWatermark(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	subscriber, err := s.UpsertSubscriber(ctx, 555, SubscriberProfile{FirstName: "Ann"})
	require.NoError(t, err)
	assert.Nil(t, subscriber.LastNotifiedAt)

	watermark := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.AdvanceNotificationWatermark(ctx, subscriber.ID, watermark))

	again, err := s.UpsertSubscriber(ctx, 555, SubscriberProfile{FirstName: "Anna", Username: "anna"})
	require.NoError(t, err)
	assert.Equal(t, subscriber.ID, again.ID)
	assert.Equal(t, "Anna", again.FirstName)
	require.NotNil(t, again.LastNotifiedAt)
	assert.True(t, watermark.Equal(*again.LastNotifiedAt))
}

func TestOldestNotificationWatermark(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	category := seedCategory(t, s, "golang", true)

	// No subscriber has any subscription yet
	_, found, err := s.OldestNotificationWatermark(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	early, err := s.UpsertSubscriber(ctx, 1, SubscriberProfile{})
	require.NoError(t, err)
	late, err := s.UpsertSubscriber(ctx, 2, SubscriberProfile{})
	require.NoError(t, err)
	// A subscriber without subscriptions never contributes a floor
	_, err = s.UpsertSubscriber(ctx, 3, SubscriberProfile{})
	require.NoError(t, err)

	require.NoError(t, s.ReplaceSubscriptions(ctx, early.ID, []Subscription{{CategoryID: category.ID}}))
	require.NoError(t, s.ReplaceSubscriptions(ctx, late.ID, []Subscription{{CategoryID: category.ID}}))

	earlyMark := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)
	lateMark := time.Date(2025, 8, 2, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.AdvanceNotificationWatermark(ctx, early.ID, earlyMark))
	require.NoError(t, s.AdvanceNotificationWatermark(ctx, late.ID, lateMark))

	floor, found, err := s.OldestNotificationWatermark(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, earlyMark.Equal(floor))
}

func TestOldestNotificationWatermarkNullFloorsAtZero(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	category := seedCategory(t, s, "golang", true)

	notified, err := s.UpsertSubscriber(ctx, 1, SubscriberProfile{})
	require.NoError(t, err)
	never, err := s.UpsertSubscriber(ctx, 2, SubscriberProfile{})
	require.NoError(t, err)

	require.NoError(t, s.ReplaceSubscriptions(ctx, notified.ID, []Subscription{{CategoryID: category.ID}}))
	require.NoError(t, s.ReplaceSubscriptions(ctx, never.ID, []Subscription{{CategoryID: category.ID}}))
	require.NoError(t, s.AdvanceNotificationWatermark(ctx, notified.ID, time.Now()))

	floor, found, err := s.OldestNotificationWatermark(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, floor.IsZero())
}

func TestReplaceSubscriptions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	golang := seedCategory(t, s, "golang", true)
	python := seedCategory(t, s, "python", true)
	kyiv, err := s.UpsertLocationByName(ctx, "Kyiv", LocationSourceCityScraper)
	require.NoError(t, err)

	subscriber, err := s.UpsertSubscriber(ctx, 9, SubscriberProfile{})
	require.NoError(t, err)

	require.NoError(t, s.ReplaceSubscriptions(ctx, subscriber.ID, []Subscription{
		{CategoryID: golang.ID, Locations: []Location{*kyiv}},
	}))

	subscriptions, err := s.SubscriptionsBySubscriber(ctx, subscriber.ID)
	require.NoError(t, err)
	require.Len(t, subscriptions, 1)
	assert.Equal(t, "golang", subscriptions[0].Category.Slug)
	require.Len(t, subscriptions[0].Locations, 1)

	// The whole set is replaced, not merged
	require.NoError(t, s.ReplaceSubscriptions(ctx, subscriber.ID, []Subscription{
		{CategoryID: python.ID},
	}))

	subscriptions, err = s.SubscriptionsBySubscriber(ctx, subscriber.ID)
	require.NoError(t, err)
	require.Len(t, subscriptions, 1)
	assert.Equal(t, "python", subscriptions[0].Category.Slug)
	assert.Empty(t, subscriptions[0].Locations)
}

func TestSessionsJournal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session := &ScrapeSession{Status: SessionInProgress, StartedAt: time.Now()}
	require.NoError(t, s.CreateSession(ctx, session))
	require.NotEmpty(t, session.ID)

	completed := time.Now()
	session.Status = SessionSuccess
	session.TotalProcessed = 5
	session.TotalAdded = 3
	session.CompletedAt = &completed
	require.NoError(t, s.UpdateSession(ctx, session))

	sessions, err := s.RecentSessions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, SessionSuccess, sessions[0].Status)
	assert.Equal(t, 3, sessions[0].TotalAdded)
}
