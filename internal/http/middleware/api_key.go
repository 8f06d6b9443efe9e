package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/clinicdesk/campaign-gateway/internal/repository"
	echo "github.com/labstack/echo/v4"
)

// ClinicIDFromCtx extracts the authenticated clinic_id set by APIKeyMiddleware.
func ClinicIDFromCtx(c echo.Context) (int64, bool) {
	v := c.Get("clinic_id")
	id, ok := v.(int64)
	return id, ok
}

// UserIDFromCtx extracts the optional dashboard user id (query param,
// self-reported within the authenticated clinic) used to scope
// notification reads and websocket routing.
func UserIDFromCtx(c echo.Context) *int64 {
	raw := strings.TrimSpace(c.QueryParam("user_id"))
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil
	}
	return &id
}

// APIKeyMiddleware authenticates requests using the X-API-Key header. On
// success it stores clinic_id in context and blocks suspended clinics.
func APIKeyMiddleware(clinics repository.ClinicsRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := strings.TrimSpace(c.Request().Header.Get("X-API-Key"))
			if key == "" {
				// allow the websocket upgrade to pass the key as a query
				// param (browser WebSocket API cannot set headers)
				key = strings.TrimSpace(c.QueryParam("api_key"))
			}
			if key == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing api key"})
			}

			clinic, err := clinics.GetByAPIKey(c.Request().Context(), key)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "auth lookup failed"})
			}
			if clinic == nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid api key"})
			}
			if clinic.Status != "active" {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "clinic suspended"})
			}

			c.Set("clinic_id", clinic.ID)
			if clinic.RateLimitRPS != nil {
				c.Set("clinic_rps", *clinic.RateLimitRPS)
			}
			return next(c)
		}
	}
}
