package http

import (
	"errors"
	"net/http"

	"github.com/clinicdesk/campaign-gateway/internal/http/middleware"
	"github.com/clinicdesk/campaign-gateway/internal/repository"
	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

func listNotificationsHandler(repo repository.NotificationsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		clinicID, ok := middleware.ClinicIDFromCtx(c)
		if !ok || clinicID <= 0 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		limit, offset := pagination(c, 50)
		unreadOnly := c.QueryParam("unread") == "true"
		userID := middleware.UserIDFromCtx(c)

		rows, err := repo.ListByClinic(c.Request().Context(), clinicID, userID, unreadOnly, limit, offset)
		if err != nil {
			log.Errorf("list notifications failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"limit":         limit,
			"offset":        offset,
			"count":         len(rows),
			"notifications": rows,
		})
	}
}

func unreadCountHandler(repo repository.NotificationsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		clinicID, ok := middleware.ClinicIDFromCtx(c)
		if !ok || clinicID <= 0 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		n, err := repo.UnreadCount(c.Request().Context(), clinicID, middleware.UserIDFromCtx(c))
		if err != nil {
			log.Errorf("unread count failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		return c.JSON(http.StatusOK, map[string]any{"unread": n})
	}
}

func markReadHandler(repo repository.NotificationsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		clinicID, ok := middleware.ClinicIDFromCtx(c)
		if !ok || clinicID <= 0 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		if err := repo.MarkRead(c.Request().Context(), clinicID, c.Param("id")); err != nil {
			if errors.Is(err, repository.ErrNotificationNotFound) {
				return c.JSON(http.StatusNotFound, map[string]string{"error": "notification not found"})
			}
			log.Errorf("mark read failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		return c.JSON(http.StatusOK, map[string]any{"success": true})
	}
}

func markAllReadHandler(repo repository.NotificationsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		clinicID, ok := middleware.ClinicIDFromCtx(c)
		if !ok || clinicID <= 0 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		n, err := repo.MarkAllRead(c.Request().Context(), clinicID, middleware.UserIDFromCtx(c))
		if err != nil {
			log.Errorf("mark all read failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		return c.JSON(http.StatusOK, map[string]any{"success": true, "updated": n})
	}
}
