package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// MaxDouID returns the highest external identifier currently persisted,
// or 0 when no jobs exist. This is the global scrape watermark.
func (s *Store) MaxDouID(ctx context.Context) (int64, error) {
	var job Job
	err := s.db.WithContext(ctx).Order("dou_id desc").Select("dou_id").First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load max dou id: %w", err)
	}
	return job.DouID, nil
}

// SaveJob creates or updates a job by its external identifier.
// All scraped fields are refreshed on update. Returns true when the
// job was newly created.
func (s *Store) SaveJob(ctx context.Context, job *Job) (bool, error) {
	var existing Job
	err := s.db.WithContext(ctx).Where("dou_id = ?", job.DouID).First(&existing).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := s.db.WithContext(ctx).Omit("Locations").Create(job).Error; err != nil {
			return false, fmt.Errorf("create job %d: %w", job.DouID, err)
		}
		return true, nil

	case err != nil:
		return false, fmt.Errorf("lookup job %d: %w", job.DouID, err)

	default:
		job.ID = existing.ID
		updates := map[string]interface{}{
			"title":            job.Title,
			"url":              job.URL,
			"description":      job.Description,
			"full_description": job.FullDescription,
			"salary":           job.Salary,
			"published_at":     job.PublishedAt,
			"company_id":       job.CompanyID,
			"category_id":      job.CategoryID,
		}
		if err := s.db.WithContext(ctx).Model(&Job{}).Where("id = ?", existing.ID).Updates(updates).Error; err != nil {
			return false, fmt.Errorf("update job %d: %w", job.DouID, err)
		}
		return false, nil
	}
}

// ReplaceJobLocations replaces a job's location associations wholesale.
// The job exclusively owns its association rows, so they are never merged.
func (s *Store) ReplaceJobLocations(ctx context.Context, jobID string, locations []Location) error {
	job := Job{ID: jobID}
	if err := s.db.WithContext(ctx).Model(&job).Association("Locations").Replace(locations); err != nil {
		return fmt.Errorf("replace locations for job %s: %w", jobID, err)
	}
	return nil
}

// JobByID returns a job with its company, category, and locations,
// or nil when absent.
func (s *Store) JobByID(ctx context.Context, id string) (*Job, error) {
	var job Job
	err := s.db.WithContext(ctx).
		Preload("Company").
		Preload("Category").
		Preload("Locations").
		Where("id = ?", id).
		First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load job %s: %w", id, err)
	}
	return &job, nil
}

// JobsPublishedAfter returns every job published strictly after the given
// time, ascending by publication time, with relations eagerly loaded.
// One call serves all subscribers in a notification run.
func (s *Store) JobsPublishedAfter(ctx context.Context, after time.Time) ([]Job, error) {
	var jobs []Job
	err := s.db.WithContext(ctx).
		Preload("Company").
		Preload("Category").
		Preload("Locations").
		Where("published_at > ?", after).
		Order("published_at asc").
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("load jobs published after %s: %w", after, err)
	}
	return jobs, nil
}
