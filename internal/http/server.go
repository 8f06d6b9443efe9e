package http

import (
	"context"
	"net/http"
	"time"

	"github.com/clinicdesk/campaign-gateway/internal/config"
	"github.com/clinicdesk/campaign-gateway/internal/gateway"
	"github.com/clinicdesk/campaign-gateway/internal/http/middleware"
	"github.com/clinicdesk/campaign-gateway/internal/logger"
	"github.com/clinicdesk/campaign-gateway/internal/repository"
	"github.com/clinicdesk/campaign-gateway/internal/service/campaigns"
	"github.com/jmoiron/sqlx"
	echo "github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct{ e *echo.Echo }

// Deps carries the wired services the handlers need. Construction of
// repositories that only the HTTP layer uses happens here.
type Deps struct {
	MySQL      *sqlx.DB
	ClickHouse *sqlx.DB
	Redis      *redis.Client
	Campaigns  *campaigns.Service
	Hub        *gateway.Hub
}

func NewServer(cfg config.Config, d Deps) *Server {
	clinicsRepo := repository.NewClinicsRepository(d.MySQL)
	notifsRepo := repository.NewNotificationsRepository(d.MySQL)
	contactsRepo := repository.NewContactsRepository(d.MySQL)
	chAttemptsRepo := repository.NewCHAttemptsRepository(d.ClickHouse)

	e := echo.New()
	e.HideBanner = true
	e.Use(echoMid.Recover(), echoMid.Logger())

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// middlewares
	authMW := middleware.APIKeyMiddleware(clinicsRepo)
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:          d.Redis,
		DefaultRPS:     cfg.RateLimit.RPS,
		KeyPrefix:      "rl:clinic:",
		Window:         time.Second,
		RetryAfterHint: true,
	})

	// routes
	v1 := e.Group("/v1", authMW, rlMW)
	v1.GET("/contacts", listContactsHandler(contactsRepo))
	v1.POST("/campaigns", createCampaignHandler(d.Campaigns))
	v1.GET("/campaigns", listCampaignsHandler(d.Campaigns))
	v1.GET("/campaigns/:id", getCampaignHandler(d.Campaigns))
	v1.PUT("/campaigns/:id/pause", pauseCampaignHandler(d.Campaigns))
	v1.PUT("/campaigns/:id/resume", resumeCampaignHandler(d.Campaigns))

	v1.GET("/notifications", listNotificationsHandler(notifsRepo))
	v1.GET("/notifications/unread-count", unreadCountHandler(notifsRepo))
	v1.PUT("/notifications/:id/read", markReadHandler(notifsRepo))
	v1.PUT("/notifications/mark-all-read", markAllReadHandler(notifsRepo))

	v1.GET("/reports/attempts", listAttemptsHandler(chAttemptsRepo))

	// websocket push; auth via api_key query param
	v1.GET("/ws", wsHandler(d.Hub))

	return &Server{e: e}
}

func (s *Server) Start(addr string) error {
	logger.Log.Info("http: listening", zap.String("addr", addr))
	return s.e.Start(addr)
}
func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
