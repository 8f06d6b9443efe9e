package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clinicdesk/campaign-gateway/internal/bus"
	"github.com/clinicdesk/campaign-gateway/internal/config"
	"github.com/clinicdesk/campaign-gateway/internal/db"
	"github.com/clinicdesk/campaign-gateway/internal/dispatch"
	"github.com/clinicdesk/campaign-gateway/internal/gateway"
	httpSrv "github.com/clinicdesk/campaign-gateway/internal/http"
	"github.com/clinicdesk/campaign-gateway/internal/logger"
	"github.com/clinicdesk/campaign-gateway/internal/metrics"
	"github.com/clinicdesk/campaign-gateway/internal/repository"
	"github.com/clinicdesk/campaign-gateway/internal/service/campaigns"
	"github.com/clinicdesk/campaign-gateway/internal/transport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server, dispatch manager and push gateway",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logger.Init(cfg.Log.Level)
		defer logger.Sync()

		metrics.MustRegister(prometheus.DefaultRegisterer)

		mysqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
			PingTimeout:     cfg.MySQL.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer mysqlDB.Close()

		redisClient, err := db.NewRedisClient(db.RedisOpts{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: cfg.Redis.DialTimeout,
		})
		if err != nil {
			return fmt.Errorf("redis connect: %w", err)
		}
		defer func() { _ = redisClient.Close() }()

		chDB, err := db.NewClickHouseConnection(db.ClickHouseOpts{
			DSN:             cfg.ClickHouse.DSN,
			MaxOpenConns:    cfg.ClickHouse.MaxOpenConns,
			MaxIdleConns:    cfg.ClickHouse.MaxIdleConns,
			ConnMaxLifetime: cfg.ClickHouse.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.ClickHouse.ConnMaxIdleTime,
			PingTimeout:     cfg.ClickHouse.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("clickhouse connect: %w", err)
		}
		defer func() {
			_ = chDB.Close()
		}()

		// repos
		campaignsRepo := repository.NewCampaignsRepository(mysqlDB)
		recipientsRepo := repository.NewRecipientsRepository(mysqlDB)
		contactsRepo := repository.NewContactsRepository(mysqlDB)
		notifsRepo := repository.NewNotificationsRepository(mysqlDB)

		// event bus: durable store first, redis fan-out second
		eventBus := bus.New(notifsRepo, redisClient)

		// messaging transport (WhatsApp bridge)
		wa := transport.NewHTTPTransport(
			cfg.Transport.BaseURL,
			cfg.Transport.SendPath,
			cfg.Transport.Token,
			cfg.Transport.TimeoutMs,
			cfg.Transport.Breaker.FailThreshold,
			cfg.Transport.Breaker.OpenForMs,
		)

		// dispatch
		manager := dispatch.NewManager(dispatch.Worker{
			Campaigns:      campaignsRepo,
			Recipients:     recipientsRepo,
			Transport:      wa,
			Bus:            eventBus,
			PacingMin:      cfg.Dispatch.PacingMin,
			PacingMax:      cfg.Dispatch.PacingMax,
			SendTimeout:    cfg.Dispatch.SendTimeout,
			ProgressStride: cfg.Dispatch.ProgressStride,
		}, campaignsRepo, cfg.Dispatch.MaxActive)

		bootCtx, bootCancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := manager.Recover(bootCtx); err != nil {
			logger.Log.Warn("dispatch recovery failed", zap.Error(err))
		}
		bootCancel()

		// push gateway
		hub := gateway.NewHub(redisClient, cfg.Gateway.SessionBuffer, cfg.Gateway.PingInterval, cfg.Gateway.WriteTimeout)
		hubCtx, hubCancel := context.WithCancel(context.Background())
		defer hubCancel()
		go func() {
			if err := hub.Run(hubCtx); err != nil && hubCtx.Err() == nil {
				logger.Log.Error("gateway hub exited", zap.Error(err))
			}
		}()

		server := httpSrv.NewServer(cfg, httpSrv.Deps{
			MySQL:      mysqlDB,
			ClickHouse: chDB,
			Redis:      redisClient,
			Campaigns:  campaigns.New(campaignsRepo, contactsRepo, manager),
			Hub:        hub,
		})

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start(cfg.HTTP.Addr)
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			logger.Log.Info("signal received, shutting down", zap.String("signal", sig.String()))
		case err := <-errCh:
			if err != nil {
				logger.Log.Error("http server exited", zap.Error(err))
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)

		// stop workers without pausing: running campaigns are recovered on boot
		manager.Shutdown()

		return nil
	},
}
