package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/demyz/dou-jobs-feed/internal/api/middleware"
	"github.com/demyz/dou-jobs-feed/internal/logging"
	"github.com/demyz/dou-jobs-feed/internal/store"
	"github.com/demyz/dou-jobs-feed/pkg/models"
	"github.com/demyz/dou-jobs-feed/pkg/utils"
)

var validate = validator.New()

// GetSubscriptionsHandler returns the authenticated subscriber's
// subscriptions
func GetSubscriptionsHandler(s *store.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		logger := logging.GetGlobalLogger()
		subscriber := middleware.SubscriberFromContext(c)

		subscriptions, err := s.SubscriptionsBySubscriber(c.Request().Context(), subscriber.ID)
		if err != nil {
			logger.Error("Failed to load subscriptions", map[string]interface{}{
				"subscriber_id": subscriber.ID,
				"error":         err.Error(),
			})
			return utils.NewInternalServerError("Failed to load subscriptions")
		}

		return c.JSON(http.StatusOK, models.OK(subscriptions))
	}
}

// UpdateSubscriptionsHandler replaces the subscriber's full subscription
// set with the one in the request. Category and location slugs are
// resolved against the current registry; unknown slugs reject the whole
// request.
func UpdateSubscriptionsHandler(s *store.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		logger := logging.GetGlobalLogger()
		subscriber := middleware.SubscriberFromContext(c)
		ctx := c.Request().Context()

		var req models.UpdateSubscriptionsRequest
		if err := c.Bind(&req); err != nil {
			logger.Warn("Failed to bind subscriptions request", map[string]interface{}{"error": err.Error()})
			return utils.NewBadRequestError("Invalid request format")
		}

		if err := validate.Struct(&req); err != nil {
			return utils.NewValidationError(err.Error())
		}

		subscriptions := make([]store.Subscription, 0, len(req.Subscriptions))
		for _, entry := range req.Subscriptions {
			category, err := s.CategoryBySlug(ctx, entry.CategorySlug)
			if err != nil {
				logger.Error("Failed to resolve category", map[string]interface{}{
					"slug":  entry.CategorySlug,
					"error": err.Error(),
				})
				return utils.NewInternalServerError("Failed to update subscriptions")
			}
			if category == nil {
				return utils.NewBadRequestError(fmt.Sprintf("Unknown category: %s", entry.CategorySlug))
			}

			locations, err := s.LocationsBySlugs(ctx, entry.LocationSlugs)
			if err != nil {
				logger.Error("Failed to resolve locations", map[string]interface{}{
					"slugs": entry.LocationSlugs,
					"error": err.Error(),
				})
				return utils.NewInternalServerError("Failed to update subscriptions")
			}
			if len(locations) != len(entry.LocationSlugs) {
				return utils.NewBadRequestError("One or more location slugs are unknown")
			}

			subscriptions = append(subscriptions, store.Subscription{
				SubscriberID: subscriber.ID,
				CategoryID:   category.ID,
				Locations:    locations,
			})
		}

		if err := s.ReplaceSubscriptions(ctx, subscriber.ID, subscriptions); err != nil {
			logger.Error("Failed to replace subscriptions", map[string]interface{}{
				"subscriber_id": subscriber.ID,
				"error":         err.Error(),
			})
			return utils.NewInternalServerError("Failed to update subscriptions")
		}

		updated, err := s.SubscriptionsBySubscriber(ctx, subscriber.ID)
		if err != nil {
			logger.Error("Failed to reload subscriptions", map[string]interface{}{
				"subscriber_id": subscriber.ID,
				"error":         err.Error(),
			})
			return utils.NewInternalServerError("Failed to update subscriptions")
		}

		logger.Info("Subscriptions replaced", map[string]interface{}{
			"subscriber_id": subscriber.ID,
			"count":         len(updated),
		})

		return c.JSON(http.StatusOK, models.OK(updated))
	}
}
