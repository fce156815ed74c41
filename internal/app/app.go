// Package app boots the HTTP server: configuration, database, gateway
// selection, and route registration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/marketbridge/brokergate/internal/account"
	"github.com/marketbridge/brokergate/internal/alpaca"
	"github.com/marketbridge/brokergate/internal/config"
	"github.com/marketbridge/brokergate/internal/db"
	"github.com/marketbridge/brokergate/internal/http/api"
	"github.com/marketbridge/brokergate/internal/ratelimit"
	"github.com/marketbridge/brokergate/internal/store"
)

const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 120 * time.Second
	shutdownGrace     = 15 * time.Second
)

// buildGateway selects the live or stub gateway from configuration.
func buildGateway(brokerCfg config.BrokerConfig) alpaca.Gateway {
	if brokerCfg.Mode == config.BrokerModeStub {
		log.Info("broker gateway running in stub mode")
		return alpaca.NewStub()
	}
	return alpaca.NewClient(brokerCfg.BaseURL, brokerCfg.DataBaseURL, brokerCfg.APIKey, brokerCfg.APISecret, brokerCfg.Timeout)
}

// RunServer starts the API server and blocks until ctx is cancelled or the
// listener fails.
func RunServer(ctx context.Context, cfg config.AppConfig, port int) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)

	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	jwtCfg, err := config.LoadJWTConfig(configPath)
	if err != nil {
		return err
	}
	brokerCfg, err := config.LoadBrokerConfig(configPath)
	if err != nil {
		return err
	}
	rateCfg, err := config.LoadRateLimitConfig(configPath)
	if err != nil {
		return err
	}

	gateway := buildGateway(brokerCfg)
	users := store.NewUserStore(conn)
	gaps := store.NewGapJournal(conn)
	coordinator := account.NewCoordinator(users, gaps, gateway)
	limiter := ratelimit.NewManager(ratelimit.Options{
		Limit:         rateCfg.LoginLimit,
		Window:        rateCfg.Window,
		RedisAddr:     rateCfg.RedisAddr,
		RedisPassword: rateCfg.RedisPassword,
		RedisDB:       rateCfg.RedisDB,
		RedisPrefix:   rateCfg.RedisPrefix,
	}, nil)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger())

	api.RegisterRoutes(engine, api.Deps{
		DB:          conn,
		Users:       users,
		Gaps:        gaps,
		Coordinator: coordinator,
		Gateway:     gateway,
		JWT:         jwtCfg,
		Limiter:     limiter,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           engine,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.WithField("port", port).Info("server listening")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
			return errShutdown
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// requestLogger emits one structured line per request.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Info("request")
	}
}
