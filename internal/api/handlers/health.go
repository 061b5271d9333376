package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/demyz/dou-jobs-feed/internal/logging"
	"github.com/demyz/dou-jobs-feed/internal/store"
	"github.com/demyz/dou-jobs-feed/pkg/models"
	"github.com/demyz/dou-jobs-feed/pkg/utils"
)

var startTime = time.Now()

// HealthHandler handles health check requests
func HealthHandler(c echo.Context) error {
	requestID := utils.GenerateRequestID()
	logger := logging.GetGlobalLogger()

	logger.Debug("Health check requested", map[string]interface{}{"request_id": requestID})

	response := models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   "1.0.0", // TODO: Get from build info
		Uptime:    time.Since(startTime),
		Checks: map[string]string{
			"api": "ok",
		},
	}

	return c.JSON(http.StatusOK, response)
}

// ReadinessHandler reports whether the service can reach its database
func ReadinessHandler(s *store.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := utils.GenerateRequestID()
		logger := logging.GetGlobalLogger()

		logger.Debug("Readiness check requested", map[string]interface{}{"request_id": requestID})

		checks := map[string]string{
			"api":      "ok",
			"database": "ok",
		}
		status := "ready"
		code := http.StatusOK

		if err := s.Ping(); err != nil {
			logger.Error("Database readiness check failed", map[string]interface{}{
				"request_id": requestID,
				"error":      err.Error(),
			})
			checks["database"] = "unreachable"
			status = "not_ready"
			code = http.StatusServiceUnavailable
		}

		return c.JSON(code, models.HealthResponse{
			Status:    status,
			Timestamp: time.Now(),
			Version:   "1.0.0",
			Uptime:    time.Since(startTime),
			Checks:    checks,
		})
	}
}

// LivenessHandler handles liveness probe requests
func LivenessHandler(c echo.Context) error {
	requestID := utils.GenerateRequestID()
	logger := logging.GetGlobalLogger()

	logger.Debug("Liveness check requested", map[string]interface{}{"request_id": requestID})

	return c.JSON(http.StatusOK, models.HealthResponse{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   "1.0.0",
		Uptime:    time.Since(startTime),
	})
}
