// Package server wires the classgate components together and runs the HTTP
// API and the gRPC health endpoint until the process is told to stop.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/classgate/internal/common"
	"github.com/dmitrijs2005/classgate/internal/dbx"
	"github.com/dmitrijs2005/classgate/internal/logging"
	"github.com/dmitrijs2005/classgate/internal/server/api"
	"github.com/dmitrijs2005/classgate/internal/server/auth"
	"github.com/dmitrijs2005/classgate/internal/server/config"
	"github.com/dmitrijs2005/classgate/internal/server/metrics"
	"github.com/dmitrijs2005/classgate/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/classgate/internal/server/services"
	"github.com/dmitrijs2005/classgate/internal/server/session"
	"github.com/dmitrijs2005/classgate/internal/server/upstream"
	"github.com/dmitrijs2005/classgate/internal/server/verification"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/classgate/internal/server/grpc"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config    *config.Config
	logger    logging.Logger
	connector *dbx.Connector
	redis     *redis.Client
	health    *gs.GRPCServer
	http      *http.Server
}

// NewApp builds every component. Nothing touches the network here: the
// database connects lazily on first use and Redis dials on demand.
func NewApp(c *config.Config) (*App, error) {
	logger := logging.New(c.LogFormat, c.Debug, os.Stdout)

	if c.SecretKey == c.AdminSecretKey {
		return nil, errors.New("session and admin secrets must differ")
	}

	rm := repomanager.NewPostgresRepositoryManager()
	connector := dbx.NewConnector(dbx.PostgresOpener(c.DatabaseDSN, rm.RunMigrations))

	rdb := redis.NewClient(&redis.Options{Addr: c.RedisAddr, Password: c.RedisPassword})
	otps := verification.NewStore(rdb, c.OTPValidityDuration, c.OTPMaxAttempts, c.OTPRequestLimit, c.OTPRequestWindow)

	up := upstream.NewClient(c.UpstreamBaseURL, c.UpstreamOrgCode, c.UpstreamTimeout, logger)

	m := metrics.New()

	userService := services.NewUserService(connector, rm, up, otps, c, logger)
	sessionCookies := auth.NewCookieManager(common.SessionCookieName, c.SessionTokenValidityDuration, c.Production)
	mw := session.NewMiddleware([]byte(c.SecretKey), c.SessionTokenValidityDuration, userService, up, sessionCookies, logger,
		session.WithRecorder(m))

	health := gs.NewGRPCServer(c.GRPCHealthAddr, logger, connector, c.HealthCheckInterval)

	h := api.NewHandler(api.Deps{
		Users:          userService,
		Batches:        services.NewBatchService(connector, rm),
		Admins:         services.NewAdminService(connector, rm, c, logger),
		Config:         services.NewServerConfigService(connector, rm),
		Proxy:          services.NewProxyService(up, mw, logger),
		Session:        mw,
		SessionCookies: sessionCookies,
		AdminCookies:   auth.NewCookieManager(common.AdminCookieName, c.AdminTokenValidityDuration, c.Production),
		Health:         health,
		Metrics:        m,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              c.HTTPAddr,
		Handler:           api.NewRouter(h, c.AllowedOrigins),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &App{config: c, logger: logger, connector: connector, redis: rdb, health: health, http: srv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.health.Run(ctx); err != nil {
		app.logger.Error(ctx, "grpc health server failed", "error", err)
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.http.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "http shutdown", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", app.config.HTTPAddr)
	if err := app.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, "http server failed", "error", err)
		cancelFunc()
	}
}

// Run blocks until ctx is cancelled, a signal arrives or a server fails.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.Close(); err != nil {
		app.logger.Error(context.Background(), "close", "error", err)
	}
	app.logger.Info(context.Background(), "Stopped")
}

// Close releases the database pool and the Redis client.
func (app *App) Close() error {
	var errs []error
	if err := app.connector.Close(); err != nil {
		errs = append(errs, fmt.Errorf("database: %w", err))
	}
	if err := app.redis.Close(); err != nil {
		errs = append(errs, fmt.Errorf("redis: %w", err))
	}
	return errors.Join(errs...)
}

// AdminService builds the admin service over the app's database, for tools
// such as adminctl that need it without serving traffic.
func (app *App) AdminService() *services.AdminService {
	return services.NewAdminService(app.connector, repomanager.NewPostgresRepositoryManager(), app.config, app.logger)
}
