package store

import (
	"context"
	"fmt"
)

// CreateSession journals the start of an orchestration run
func (s *Store) CreateSession(ctx context.Context, session *ScrapeSession) error {
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("create scrape session: %w", err)
	}
	return nil
}

// UpdateSession persists the final state of a run. Terminal states are
// final; callers finalize a session exactly once.
func (s *Store) UpdateSession(ctx context.Context, session *ScrapeSession) error {
	if err := s.db.WithContext(ctx).Save(session).Error; err != nil {
		return fmt.Errorf("update scrape session %s: %w", session.ID, err)
	}
	return nil
}

// RecentSessions returns the most recent scrape sessions, newest first
func (s *Store) RecentSessions(ctx context.Context, limit int) ([]ScrapeSession, error) {
	if limit <= 0 {
		limit = 20
	}

	var sessions []ScrapeSession
	err := s.db.WithContext(ctx).
		Order("started_at desc").
		Limit(limit).
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("load recent sessions: %w", err)
	}
	return sessions, nil
}
