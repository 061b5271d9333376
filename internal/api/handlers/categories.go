package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/demyz/dou-jobs-feed/internal/logging"
	"github.com/demyz/dou-jobs-feed/internal/store"
	"github.com/demyz/dou-jobs-feed/pkg/models"
	"github.com/demyz/dou-jobs-feed/pkg/utils"
)

// ListCategoriesHandler returns the active job categories
func ListCategoriesHandler(s *store.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		logger := logging.GetGlobalLogger()

		categories, err := s.ActiveCategories(c.Request().Context())
		if err != nil {
			logger.Error("Failed to list categories", map[string]interface{}{"error": err.Error()})
			return utils.NewInternalServerError("Failed to load categories")
		}

		return c.JSON(http.StatusOK, models.OK(categories))
	}
}
