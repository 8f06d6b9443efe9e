package http

import (
	"net/http"
	"strings"

	"github.com/clinicdesk/campaign-gateway/internal/http/middleware"
	"github.com/clinicdesk/campaign-gateway/internal/model"
	"github.com/clinicdesk/campaign-gateway/internal/repository"
	echo "github.com/labstack/echo/v4"
)

// listAttemptsHandler serves the per-recipient attempt history from the
// ClickHouse read model (fed by CDC off campaign_recipients).
func listAttemptsHandler(chRepo repository.CHAttemptsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		clinicID, ok := middleware.ClinicIDFromCtx(c)
		if !ok || clinicID <= 0 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		campaignID := strings.TrimSpace(c.QueryParam("campaign_id"))
		if campaignID == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "campaign_id required"})
		}

		var st model.RecipientState
		if raw := strings.TrimSpace(c.QueryParam("state")); raw != "" {
			tmp := model.RecipientState(raw)
			if tmp.Valid() {
				st = tmp
			}
		}

		limit, offset := pagination(c, 50)

		rows, err := chRepo.ListByCampaign(c.Request().Context(), clinicID, campaignID, st, limit, offset)
		if err != nil {
			c.Logger().Errorf("clickhouse attempts list failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"limit":   limit,
			"offset":  offset,
			"count":   len(rows),
			"results": rows,
		})
	}
}
