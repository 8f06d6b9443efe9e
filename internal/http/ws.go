package http

import (
	"net/http"

	"github.com/clinicdesk/campaign-gateway/internal/gateway"
	"github.com/clinicdesk/campaign-gateway/internal/http/middleware"
	"github.com/gorilla/websocket"
	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// the dashboard is same-deployment; API-key auth is the gate
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsHandler upgrades an authenticated dashboard session and attaches it to
// the gateway hub. Clients that cannot upgrade fall back to polling the
// REST surface; the server simply never sees them here.
func wsHandler(hub *gateway.Hub) echo.HandlerFunc {
	return func(c echo.Context) error {
		clinicID, ok := middleware.ClinicIDFromCtx(c)
		if !ok || clinicID <= 0 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			// Upgrade already wrote the error response
			log.Warnf("ws upgrade failed: %v", err)
			return nil
		}

		hub.Attach(conn, clinicID, middleware.UserIDFromCtx(c))
		return nil
	}
}
