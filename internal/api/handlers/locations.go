package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/demyz/dou-jobs-feed/internal/logging"
	"github.com/demyz/dou-jobs-feed/internal/store"
	"github.com/demyz/dou-jobs-feed/pkg/models"
	"github.com/demyz/dou-jobs-feed/pkg/utils"
)

// ListLocationsHandler returns the active locations available for
// subscription filters
func ListLocationsHandler(s *store.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		logger := logging.GetGlobalLogger()

		locations, err := s.ActiveLocations(c.Request().Context())
		if err != nil {
			logger.Error("Failed to list locations", map[string]interface{}{"error": err.Error()})
			return utils.NewInternalServerError("Failed to load locations")
		}

		return c.JSON(http.StatusOK, models.OK(locations))
	}
}
