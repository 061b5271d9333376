package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionStatus enumerates the lifecycle states of a scrape session
type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionSuccess    SessionStatus = "success"
	SessionPartial    SessionStatus = "partial"
	SessionFailed     SessionStatus = "failed"
)

// Location provenance tags. Locations discovered while parsing job detail
// pages are tagged job_parser; ones seeded by the city registry scraper
// are tagged city_scraper.
const (
	LocationSourceJobParser   = "job_parser"
	LocationSourceCityScraper = "city_scraper"
)

// Company is an employer, upserted by slug on every sighting
type Company struct {
	ID        string  `gorm:"primaryKey;size:36" json:"id"`
	Slug      string  `gorm:"uniqueIndex;size:255;not null" json:"slug"`
	Name      string  `gorm:"size:255;not null" json:"name"`
	LogoURL   *string `gorm:"size:512" json:"logoUrl,omitempty"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c *Company) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// Category is a job category with its source RSS feed.
// Seeded by the category discovery process; only active ones are scraped.
type Category struct {
	ID        string `gorm:"primaryKey;size:36" json:"id"`
	Slug      string `gorm:"uniqueIndex;size:255;not null" json:"slug"`
	Name      string `gorm:"size:255;not null" json:"name"`
	RSSURL    string `gorm:"column:rss_url;size:512;not null" json:"rssUrl"`
	IsActive  bool   `gorm:"default:true" json:"isActive"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// Location is a work location, upserted by a slug derived from its name
type Location struct {
	ID        string `gorm:"primaryKey;size:36" json:"id"`
	Slug      string `gorm:"uniqueIndex;size:255;not null" json:"slug"`
	Name      string `gorm:"size:255;not null" json:"name"`
	Source    string `gorm:"size:32;not null" json:"source"`
	IsActive  bool   `gorm:"default:true" json:"isActive"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (l *Location) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	return nil
}

// Job is a single posting sourced from the external site. DouID is the
// numeric identifier assigned by the source; it is unique and totally
// ordered, and doubles as the incremental scrape watermark.
type Job struct {
	ID              string     `gorm:"primaryKey;size:36" json:"id"`
	DouID           int64      `gorm:"column:dou_id;uniqueIndex;not null" json:"douId"`
	Title           string     `gorm:"size:512;not null" json:"title"`
	URL             string     `gorm:"size:512;not null" json:"url"`
	Description     string     `gorm:"type:text" json:"description"`
	FullDescription string     `gorm:"type:text" json:"fullDescription"`
	Salary          *string    `gorm:"size:255" json:"salary,omitempty"`
	PublishedAt     time.Time  `gorm:"index;not null" json:"publishedAt"`
	CompanyID       string     `gorm:"size:36;not null" json:"companyId"`
	Company         Company    `json:"company"`
	CategoryID      string     `gorm:"size:36;not null" json:"categoryId"`
	Category        Category   `json:"category"`
	Locations       []Location `gorm:"many2many:job_locations" json:"locations"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (j *Job) BeforeCreate(tx *gorm.DB) error {
	if j.ID == "" {
		j.ID = uuid.New().String()
	}
	return nil
}

// Subscriber is a bot user identified by their Telegram ID. LastNotifiedAt
// is the personal notification watermark: postings published at or before
// it are considered already delivered.
type Subscriber struct {
	ID             string         `gorm:"primaryKey;size:36" json:"id"`
	TelegramID     int64          `gorm:"uniqueIndex;not null" json:"telegramId"`
	FirstName      string         `gorm:"size:255" json:"firstName"`
	LastName       string         `gorm:"size:255" json:"lastName"`
	Username       string         `gorm:"size:255" json:"username"`
	LanguageCode   string         `gorm:"size:16" json:"languageCode"`
	LastNotifiedAt *time.Time     `json:"lastNotifiedAt,omitempty"`
	Subscriptions  []Subscription `json:"subscriptions,omitempty"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (s *Subscriber) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

// Subscription links a subscriber to a category with optional location
// filters. An empty location set means "all locations in this category".
type Subscription struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`
	SubscriberID string     `gorm:"size:36;not null;index" json:"subscriberId"`
	CategoryID   string     `gorm:"size:36;not null" json:"categoryId"`
	Category     Category   `json:"category"`
	Locations    []Location `gorm:"many2many:subscription_locations" json:"locations"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (s *Subscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

// ScrapeSession journals one orchestration run. Created in_progress at run
// start and finalized exactly once with a terminal status.
type ScrapeSession struct {
	ID                  string        `gorm:"primaryKey;size:36" json:"id"`
	Status              SessionStatus `gorm:"size:32;not null" json:"status"`
	TotalProcessed      int           `json:"totalProcessed"`
	TotalAdded          int           `json:"totalAdded"`
	TotalUpdated        int           `json:"totalUpdated"`
	TotalErrors         int           `json:"totalErrors"`
	CategoriesProcessed int           `json:"categoriesProcessed"`
	LastProcessedDouID  *int64        `gorm:"column:last_processed_dou_id" json:"lastProcessedDouId,omitempty"`
	ErrorDetails        string        `gorm:"type:text" json:"errorDetails,omitempty"`
	StartedAt           time.Time     `json:"startedAt"`
	CompletedAt         *time.Time    `json:"completedAt,omitempty"`
	DurationMs          int64         `json:"durationMs"`
}

func (s *ScrapeSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}
