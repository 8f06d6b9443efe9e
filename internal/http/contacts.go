package http

import (
	"net/http"

	"github.com/clinicdesk/campaign-gateway/internal/http/middleware"
	"github.com/clinicdesk/campaign-gateway/internal/repository"
	"github.com/clinicdesk/campaign-gateway/internal/selector"
	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

// listContactsHandler is the recipient picker behind the campaign form: the
// dashboard narrows the clinic CRM down with the selector filters and
// submits the result as the campaign's recipient list.
func listContactsHandler(repo repository.ContactsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		clinicID, ok := middleware.ClinicIDFromCtx(c)
		if !ok || clinicID <= 0 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		contacts, err := repo.ListByClinic(c.Request().Context(), clinicID)
		if err != nil {
			log.Errorf("list contacts failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		matched := selector.Select(contacts, selector.Filter{
			CRMStatus: c.QueryParam("crm_status"),
			Tag:       c.QueryParam("tag"),
			Search:    c.QueryParam("q"),
		})

		return c.JSON(http.StatusOK, map[string]any{
			"count":    len(matched),
			"contacts": matched,
		})
	}
}
