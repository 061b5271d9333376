package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/demyz/dou-jobs-feed/internal/logging"
	"github.com/demyz/dou-jobs-feed/internal/store"
	"github.com/demyz/dou-jobs-feed/pkg/models"
	"github.com/demyz/dou-jobs-feed/pkg/utils"
)

const defaultSessionsLimit = 20

// ScrapeRunner triggers a scrape run, refusing when one is already active
type ScrapeRunner interface {
	TriggerScrape(ctx context.Context) error
}

// TriggerScrapeHandler starts a scrape run in the background. The run is
// guarded by the scheduler's run lock, so a concurrent request while a
// run is active gets a conflict response.
func TriggerScrapeHandler(runner ScrapeRunner) echo.HandlerFunc {
	return func(c echo.Context) error {
		logger := logging.GetGlobalLogger()

		if err := runner.TriggerScrape(context.Background()); err != nil {
			logger.Warn("Manual scrape trigger rejected", map[string]interface{}{"error": err.Error()})
			return utils.NewConflictError(err.Error())
		}

		logger.Info("Manual scrape run triggered")
		return c.JSON(http.StatusAccepted, models.OK(map[string]string{
			"status": "started",
		}))
	}
}

// ListSessionsHandler returns recent scrape sessions, newest first
func ListSessionsHandler(s *store.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		logger := logging.GetGlobalLogger()

		limit := defaultSessionsLimit
		if raw := c.QueryParam("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 || parsed > 100 {
				return utils.NewBadRequestError("limit must be between 1 and 100")
			}
			limit = parsed
		}

		sessions, err := s.RecentSessions(c.Request().Context(), limit)
		if err != nil {
			logger.Error("Failed to list scrape sessions", map[string]interface{}{"error": err.Error()})
			return utils.NewInternalServerError("Failed to load sessions")
		}

		return c.JSON(http.StatusOK, models.OK(sessions))
	}
}
