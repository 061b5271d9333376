package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/demyz/dou-jobs-feed/internal/logging"
	"github.com/demyz/dou-jobs-feed/internal/store"
	"github.com/demyz/dou-jobs-feed/pkg/models"
	"github.com/demyz/dou-jobs-feed/pkg/utils"
)

// GetJobHandler returns a single job posting with its company, category
// and locations eagerly loaded
func GetJobHandler(s *store.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		logger := logging.GetGlobalLogger()
		id := c.Param("id")

		job, err := s.JobByID(c.Request().Context(), id)
		if err != nil {
			logger.Error("Failed to load job", map[string]interface{}{
				"job_id": id,
				"error":  err.Error(),
			})
			return utils.NewInternalServerError("Failed to load job")
		}
		if job == nil {
			return utils.NewNotFoundError("Job not found")
		}

		return c.JSON(http.StatusOK, models.OK(job))
	}
}
