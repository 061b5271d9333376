package store

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/demyz/dou-jobs-feed/internal/logging"
)

// Store wraps the database handle with the repository methods the
// scraper, dispatcher, and API are built on.
type Store struct {
	db     *gorm.DB
	logger logging.Logger
}

// Options configures the database connection pool
type Options struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	ConnMaxLife  time.Duration
}

// Open connects to Postgres and returns a ready Store
func Open(opts Options, logger logging.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(opts.URL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access database pool: %w", err)
	}

	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLife > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLife)
	}

	return &Store{db: db, logger: logger}, nil
}

// New wraps an already-open gorm handle. Used by tests with sqlite.
func New(db *gorm.DB, logger logging.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// AutoMigrate creates or updates the schema for all models
func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(
		&Company{},
		&Category{},
		&Location{},
		&Job{},
		&Subscriber{},
		&Subscription{},
		&ScrapeSession{},
	)
}

// Ping verifies database connectivity
func (s *Store) Ping() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Close closes the underlying connection pool
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
