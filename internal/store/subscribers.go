package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SubscriberProfile carries the mutable profile fields refreshed from
// the messaging platform on every authenticated interaction.
type SubscriberProfile struct {
	FirstName    string
	LastName     string
	Username     string
	LanguageCode string
}

// UpsertSubscriber creates or refreshes a subscriber by Telegram ID.
// The notification watermark is never touched here.
func (s *Store) UpsertSubscriber(ctx context.Context, telegramID int64, profile SubscriberProfile) (*Subscriber, error) {
	subscriber := Subscriber{
		TelegramID:   telegramID,
		FirstName:    profile.FirstName,
		LastName:     profile.LastName,
		Username:     profile.Username,
		LanguageCode: profile.LanguageCode,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "telegram_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"first_name", "last_name", "username", "language_code", "updated_at"}),
	}).Create(&subscriber).Error
	if err != nil {
		return nil, fmt.Errorf("upsert subscriber %d: %w", telegramID, err)
	}

	if err := s.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&subscriber).Error; err != nil {
		return nil, fmt.Errorf("load subscriber %d after upsert: %w", telegramID, err)
	}

	return &subscriber, nil
}

// OldestNotificationWatermark returns the minimum lastNotifiedAt among
// subscribers that have at least one subscription. The boolean is false
// when no such subscriber exists. A subscriber with a null watermark
// (never notified) floors the result at the zero time.
func (s *Store) OldestNotificationWatermark(ctx context.Context) (time.Time, bool, error) {
	var subscriber Subscriber
	err := s.db.WithContext(ctx).
		Where("id IN (?)", s.db.Model(&Subscription{}).Select("subscriber_id")).
		Order("last_notified_at asc NULLS FIRST").
		First(&subscriber).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("load oldest notification watermark: %w", err)
	}

	if subscriber.LastNotifiedAt == nil {
		return time.Time{}, true, nil
	}
	return *subscriber.LastNotifiedAt, true, nil
}

// SubscribersWithSubscriptions returns every subscriber that has at least
// one subscription, with each subscription's category and location filters
// eagerly loaded.
func (s *Store) SubscribersWithSubscriptions(ctx context.Context) ([]Subscriber, error) {
	var subscribers []Subscriber
	err := s.db.WithContext(ctx).
		Where("id IN (?)", s.db.Model(&Subscription{}).Select("subscriber_id")).
		Preload("Subscriptions").
		Preload("Subscriptions.Category").
		Preload("Subscriptions.Locations").
		Find(&subscribers).Error
	if err != nil {
		return nil, fmt.Errorf("load subscribers with subscriptions: %w", err)
	}
	return subscribers, nil
}

// AdvanceNotificationWatermark moves the subscriber's watermark forward.
// Called exactly once per subscriber per notification run.
func (s *Store) AdvanceNotificationWatermark(ctx context.Context, subscriberID string, to time.Time) error {
	err := s.db.WithContext(ctx).
		Model(&Subscriber{}).
		Where("id = ?", subscriberID).
		Update("last_notified_at", to).Error
	if err != nil {
		return fmt.Errorf("advance watermark for subscriber %s: %w", subscriberID, err)
	}
	return nil
}

// SubscriptionsBySubscriber returns a subscriber's subscriptions with
// category and location filters loaded.
func (s *Store) SubscriptionsBySubscriber(ctx context.Context, subscriberID string) ([]Subscription, error) {
	var subscriptions []Subscription
	err := s.db.WithContext(ctx).
		Preload("Category").
		Preload("Locations").
		Where("subscriber_id = ?", subscriberID).
		Find(&subscriptions).Error
	if err != nil {
		return nil, fmt.Errorf("load subscriptions for %s: %w", subscriberID, err)
	}
	return subscriptions, nil
}

// ReplaceSubscriptions replaces a subscriber's full subscription set.
// Subscriptions exclusively own their location-filter rows, so the old
// set is deleted outright rather than diffed.
func (s *Store) ReplaceSubscriptions(ctx context.Context, subscriberID string, subscriptions []Subscription) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []Subscription
		if err := tx.Where("subscriber_id = ?", subscriberID).Find(&existing).Error; err != nil {
			return fmt.Errorf("load existing subscriptions: %w", err)
		}

		for i := range existing {
			if err := tx.Model(&existing[i]).Association("Locations").Clear(); err != nil {
				return fmt.Errorf("clear subscription locations: %w", err)
			}
		}

		if err := tx.Where("subscriber_id = ?", subscriberID).Delete(&Subscription{}).Error; err != nil {
			return fmt.Errorf("delete existing subscriptions: %w", err)
		}

		for i := range subscriptions {
			subscriptions[i].SubscriberID = subscriberID
			if err := tx.Create(&subscriptions[i]).Error; err != nil {
				return fmt.Errorf("create subscription: %w", err)
			}
		}

		return nil
	})
}
