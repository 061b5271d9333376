package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/demyz/dou-jobs-feed/internal/api/handlers"
	"github.com/demyz/dou-jobs-feed/internal/api/middleware"
	"github.com/demyz/dou-jobs-feed/internal/config"
	"github.com/demyz/dou-jobs-feed/internal/store"
	"github.com/demyz/dou-jobs-feed/pkg/models"
	"github.com/demyz/dou-jobs-feed/pkg/utils"
)

// SetupRoutes configures all API routes
func SetupRoutes(e *echo.Echo, cfg *config.Config, s *store.Store, runner handlers.ScrapeRunner) {
	e.HTTPErrorHandler = errorHandler

	// Global middleware
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(middleware.CORSConfig())
	e.Use(middleware.RequestValidation())
	e.Use(middleware.TimeoutConfig(cfg.Server.ReadTimeout))

	// Health check routes
	health := e.Group("/health")
	{
		health.GET("", handlers.HealthHandler)
		health.GET("/ready", handlers.ReadinessHandler(s))
		health.GET("/live", handlers.LivenessHandler)
	}

	// API routes, all behind Telegram WebApp authentication
	api := e.Group("/api")
	api.Use(middleware.TelegramAuth(cfg.Telegram.BotToken, s))
	{
		api.GET("/categories", handlers.ListCategoriesHandler(s))
		api.GET("/locations", handlers.ListLocationsHandler(s))
		api.GET("/jobs/:id", handlers.GetJobHandler(s))

		api.GET("/subscriptions", handlers.GetSubscriptionsHandler(s))
		api.PUT("/subscriptions", handlers.UpdateSubscriptionsHandler(s))

		scraper := api.Group("/scraper")
		{
			scraper.POST("/run", handlers.TriggerScrapeHandler(runner))
			scraper.GET("/sessions", handlers.ListSessionsHandler(s))
		}
	}
}

// errorHandler renders every unhandled error in the standard envelope.
// Unexpected failures stay generic; their details go to the log, not
// the caller.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "Internal server error"

	var customErr *utils.CustomError
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &customErr):
		code = customErr.Code
		message = customErr.Message
	case errors.As(err, &httpErr):
		code = httpErr.Code
		if text, ok := httpErr.Message.(string); ok {
			message = text
		}
	}

	if jsonErr := c.JSON(code, models.Err(message)); jsonErr != nil {
		c.Logger().Error(jsonErr)
	}
}
