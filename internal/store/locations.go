package store

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"github.com/demyz/dou-jobs-feed/pkg/utils"
)

// UpsertLocationByName resolves a location from its free-text name,
// creating it with the given provenance tag when it does not exist.
// The slug is the identity; the display name is refreshed on update.
func (s *Store) UpsertLocationByName(ctx context.Context, name, source string) (*Location, error) {
	slug := utils.Slugify(name)
	if slug == "" {
		return nil, fmt.Errorf("location name %q produces an empty slug", name)
	}

	location := Location{
		Slug:     slug,
		Name:     name,
		Source:   source,
		IsActive: true,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
	}).Create(&location).Error
	if err != nil {
		return nil, fmt.Errorf("upsert location %s: %w", slug, err)
	}

	if err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&location).Error; err != nil {
		return nil, fmt.Errorf("load location %s after upsert: %w", slug, err)
	}

	return &location, nil
}

// ActiveLocations returns all active locations ordered by name
func (s *Store) ActiveLocations(ctx context.Context) ([]Location, error) {
	var locations []Location
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name asc").
		Find(&locations).Error
	if err != nil {
		return nil, fmt.Errorf("load active locations: %w", err)
	}
	return locations, nil
}

// LocationsBySlugs returns the locations matching the given slugs.
// Unknown slugs are silently absent from the result.
func (s *Store) LocationsBySlugs(ctx context.Context, slugs []string) ([]Location, error) {
	if len(slugs) == 0 {
		return nil, nil
	}

	var locations []Location
	err := s.db.WithContext(ctx).Where("slug IN ?", slugs).Find(&locations).Error
	if err != nil {
		return nil, fmt.Errorf("load locations by slugs: %w", err)
	}
	return locations, nil
}
