package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/pmstore/pmstore-api/internal/config"
	"github.com/pmstore/pmstore-api/internal/health"
	"github.com/pmstore/pmstore-api/internal/observability"
)

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Server        *http.Server
	Observability *observability.Runtime
	DB            *gorm.DB
	Redis         redis.UniversalClient
	Readiness     *health.ProbeRunner

	ShutdownTimeout              time.Duration
	ShutdownHTTPDrainTimeout     time.Duration
	ShutdownObservabilityTimeout time.Duration

	stopBackground func()
}

func New(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	runtime *observability.Runtime,
	db *gorm.DB,
	redisClient redis.UniversalClient,
	readiness *health.ProbeRunner,
	stopBackground func(),
) *App {
	if stopBackground == nil {
		stopBackground = func() {}
	}
	return &App{
		Config:                       cfg,
		Logger:                       logger,
		Server:                       server,
		Observability:                runtime,
		DB:                           db,
		Redis:                        redisClient,
		Readiness:                    readiness,
		ShutdownTimeout:              cfg.ShutdownTimeout,
		ShutdownHTTPDrainTimeout:     cfg.ShutdownHTTPDrainTimeout,
		ShutdownObservabilityTimeout: cfg.ShutdownObservabilityTimeout,
		stopBackground:               stopBackground,
	}
}

func (a *App) StopBackgroundTasks() { a.stopBackground() }

// Run serves HTTP until ctx is cancelled or the server fails, then shuts
// everything down within ShutdownTimeout.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Logger.Info("http server listening", "addr", a.Server.Addr)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return a.Shutdown(context.Background())
	})
	return g.Wait()
}

func (a *App) Shutdown(parent context.Context) error {
	ctx, cancel := context.WithTimeout(parent, a.ShutdownTimeout)
	defer cancel()

	var errs []error
	drainCtx, drainCancel := context.WithTimeout(ctx, a.ShutdownHTTPDrainTimeout)
	if err := a.Server.Shutdown(drainCtx); err != nil {
		errs = append(errs, err)
	}
	drainCancel()

	a.StopBackgroundTasks()

	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}

	obsCtx, obsCancel := context.WithTimeout(ctx, a.ShutdownObservabilityTimeout)
	if err := a.Observability.Shutdown(obsCtx); err != nil {
		errs = append(errs, err)
	}
	obsCancel()

	a.Logger.Info("shutdown complete")
	return errors.Join(errs...)
}
