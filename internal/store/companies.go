package store

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"
)

// UpsertCompany creates or refreshes a company by slug. Name and logo are
// refreshed on every sighting since either can change upstream.
func (s *Store) UpsertCompany(ctx context.Context, slug, name string, logoURL *string) (*Company, error) {
	company := Company{
		Slug:    slug,
		Name:    name,
		LogoURL: logoURL,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "logo_url", "updated_at"}),
	}).Create(&company).Error
	if err != nil {
		return nil, fmt.Errorf("upsert company %s: %w", slug, err)
	}

	// The upsert does not return the surviving row's ID on conflict,
	// so re-read by the unique key.
	if err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&company).Error; err != nil {
		return nil, fmt.Errorf("load company %s after upsert: %w", slug, err)
	}

	return &company, nil
}
