package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UpsertCategory creates or refreshes a category by slug. The category
// registry is maintained by a separate discovery process; this is its
// write surface.
func (s *Store) UpsertCategory(ctx context.Context, category *Category) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "rss_url", "is_active", "updated_at"}),
	}).Create(category).Error
	if err != nil {
		return fmt.Errorf("upsert category %s: %w", category.Slug, err)
	}

	if err := s.db.WithContext(ctx).Where("slug = ?", category.Slug).First(category).Error; err != nil {
		return fmt.Errorf("load category %s after upsert: %w", category.Slug, err)
	}
	return nil
}

// ActiveCategories returns all active categories ordered by name
func (s *Store) ActiveCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name asc").
		Find(&categories).Error
	if err != nil {
		return nil, fmt.Errorf("load active categories: %w", err)
	}
	return categories, nil
}

// CategoryBySlug returns the category with the given slug, or nil when absent
func (s *Store) CategoryBySlug(ctx context.Context, slug string) (*Category, error) {
	var category Category
	err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&category).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load category %s: %w", slug, err)
	}
	return &category, nil
}
