package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/demyz/dou-jobs-feed/pkg/models"
	"github.com/demyz/dou-jobs-feed/pkg/utils"
)

// RequestValidation middleware validates incoming requests
func RequestValidation() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Add request ID to context
			requestID := utils.GenerateRequestID()
			c.Set("request_id", requestID)
			c.Response().Header().Set("X-Request-ID", requestID)

			// Content length validation for mutating requests
			if c.Request().Method == http.MethodPost || c.Request().Method == http.MethodPut {
				if c.Request().ContentLength > 1024*1024 { // 1MB limit
					return c.JSON(http.StatusRequestEntityTooLarge, models.Err("Request body too large"))
				}
			}

			return next(c)
		}
	}
}
