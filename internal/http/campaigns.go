package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/clinicdesk/campaign-gateway/internal/dispatch"
	"github.com/clinicdesk/campaign-gateway/internal/http/middleware"
	"github.com/clinicdesk/campaign-gateway/internal/model"
	"github.com/clinicdesk/campaign-gateway/internal/repository"
	"github.com/clinicdesk/campaign-gateway/internal/service/campaigns"
	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

type createCampaignReq struct {
	Name       string                   `json:"name"`
	Message    string                   `json:"message"`
	MediaURL   string                   `json:"media_url"`
	MediaType  string                   `json:"media_type"`
	Recipients []campaigns.NewRecipient `json:"recipients"`
}

func createCampaignHandler(svc *campaigns.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createCampaignReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		clinicID, ok := middleware.ClinicIDFromCtx(c)
		if !ok || clinicID <= 0 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		camp, err := svc.Create(c.Request().Context(), clinicID, req.Name, req.Message, req.MediaURL, req.MediaType, req.Recipients)
		if err != nil {
			switch {
			case errors.Is(err, campaigns.ErrBlankName),
				errors.Is(err, campaigns.ErrBlankMessage),
				errors.Is(err, campaigns.ErrNoRecipients):
				return c.JSON(http.StatusBadRequest, map[string]any{"success": false, "error": err.Error()})
			default:
				log.Errorf("create campaign failed: %v", err)
				return c.JSON(http.StatusInternalServerError, map[string]any{"success": false, "error": "db error"})
			}
		}

		return c.JSON(http.StatusCreated, map[string]any{"success": true, "campaign": camp})
	}
}

func listCampaignsHandler(svc *campaigns.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		clinicID, ok := middleware.ClinicIDFromCtx(c)
		if !ok || clinicID <= 0 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		limit, offset := pagination(c, 50)

		views, err := svc.List(c.Request().Context(), clinicID, limit, offset)
		if err != nil {
			log.Errorf("list campaigns failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"limit":     limit,
			"offset":    offset,
			"count":     len(views),
			"campaigns": views,
		})
	}
}

func getCampaignHandler(svc *campaigns.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		clinicID, ok := middleware.ClinicIDFromCtx(c)
		if !ok || clinicID <= 0 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		view, err := svc.Get(c.Request().Context(), clinicID, c.Param("id"))
		if err != nil {
			return campaignError(c, err)
		}
		return c.JSON(http.StatusOK, view)
	}
}

func pauseCampaignHandler(svc *campaigns.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		clinicID, ok := middleware.ClinicIDFromCtx(c)
		if !ok || clinicID <= 0 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		if err := svc.Pause(c.Request().Context(), clinicID, c.Param("id")); err != nil {
			return campaignError(c, err)
		}

		// A pause landing after the worker passed its last recipient is a
		// no-op; answer with the durable status, not the requested one.
		view, err := svc.Get(c.Request().Context(), clinicID, c.Param("id"))
		if err != nil {
			return campaignError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]any{"success": true, "status": view.Status})
	}
}

func resumeCampaignHandler(svc *campaigns.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		clinicID, ok := middleware.ClinicIDFromCtx(c)
		if !ok || clinicID <= 0 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		if err := svc.Resume(c.Request().Context(), clinicID, c.Param("id")); err != nil {
			return campaignError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]any{"success": true, "status": "running"})
	}
}

func campaignError(c echo.Context, err error) error {
	var illegal *model.ErrIllegalTransition
	switch {
	case errors.Is(err, repository.ErrCampaignNotFound), errors.Is(err, campaigns.ErrNotOwned):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "campaign not found"})
	case errors.As(err, &illegal), errors.Is(err, repository.ErrStaleStatus):
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, dispatch.ErrNotActive):
		return c.JSON(http.StatusConflict, map[string]string{"error": "campaign is not running"})
	case errors.Is(err, dispatch.ErrAlreadyRunning):
		return c.JSON(http.StatusConflict, map[string]string{"error": "campaign already running"})
	case errors.Is(err, dispatch.ErrTooManyActive):
		return c.JSON(http.StatusConflict, map[string]string{"error": "too many active campaigns"})
	default:
		log.Errorf("campaign op failed: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func pagination(c echo.Context, defLimit int) (limit, offset int) {
	limit = defLimit
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	if v := c.QueryParam("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
