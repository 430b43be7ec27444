package di

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"gorm.io/gorm"

	"github.com/pmstore/pmstore-api/internal/config"
	"github.com/pmstore/pmstore-api/internal/database"
	"github.com/pmstore/pmstore-api/internal/health"
	"github.com/pmstore/pmstore-api/internal/http/handler"
	"github.com/pmstore/pmstore-api/internal/http/middleware"
	"github.com/pmstore/pmstore-api/internal/http/router"
	"github.com/pmstore/pmstore-api/internal/observability"
	"github.com/pmstore/pmstore-api/internal/repository"
	"github.com/pmstore/pmstore-api/internal/security"
	"github.com/pmstore/pmstore-api/internal/service"
)

const sessionCleanupInterval = 10 * time.Minute

type Logging struct {
	Logger   *slog.Logger
	Provider *sdklog.LoggerProvider
}

func provideLogging(ctx context.Context, cfg *config.Config) (*Logging, error) {
	logger, lp, err := observability.NewLogger(ctx, cfg, nil)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return &Logging{Logger: logger, Provider: lp}, nil
}

func provideLogger(l *Logging) *slog.Logger { return l.Logger }

func provideObservability(ctx context.Context, cfg *config.Config, l *Logging) (*observability.Runtime, error) {
	return observability.InitRuntime(ctx, cfg, l.Logger, l.Provider)
}

func provideDB(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*gorm.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, db, cfg.DatabaseDriver); err != nil {
			return nil, err
		}
		logger.Info("database schema migrated", "driver", cfg.DatabaseDriver)
	}
	return db, nil
}

// provideRedis returns nil unless sessions live in Redis.
func provideRedis(cfg *config.Config) redis.UniversalClient {
	if cfg.SessionStore != config.SessionStoreRedis {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

func provideSessionStore(cfg *config.Config, sessionRepo repository.SessionRepository, client redis.UniversalClient) (service.SessionStore, error) {
	switch cfg.SessionStore {
	case config.SessionStoreMemory:
		return service.NewInMemorySessionStore(), nil
	case config.SessionStoreRedis:
		if client == nil {
			return nil, fmt.Errorf("redis session store requires a redis client")
		}
		return service.NewRedisSessionStore(client, "session"), nil
	case config.SessionStoreDatabase:
		return service.NewDatabaseSessionStore(sessionRepo), nil
	default:
		return nil, fmt.Errorf("unsupported session store %q", cfg.SessionStore)
	}
}

func provideBackgroundTasks(store service.SessionStore, logger *slog.Logger) func() {
	return service.StartSessionCleanup(store, sessionCleanupInterval, logger)
}

func provideProductService(products repository.ProductRepository, client redis.UniversalClient) *service.ProductService {
	var misses service.ProductMissCache = service.NewInMemoryProductMissCache(0)
	if client != nil {
		misses = service.NewRedisProductMissCache(client, "product_miss", 0)
	}
	return service.NewProductService(products).WithMissCache(misses)
}

func providePasswordHasher(cfg *config.Config) (*security.BcryptHasher, error) {
	return security.NewBcryptHasher(cfg.BcryptCost)
}

func provideCSRF(cfg *config.Config) (*security.CSRF, error) {
	return security.NewCSRF(cfg.CSRFSecret, cfg.CSRFTokenSize)
}

func provideCSRFHandler(cfg *config.Config, guard *security.CSRF) *handler.CSRFHandler {
	return handler.NewCSRFHandler(guard, cfg.CSRFCookieName, cfg.CookieSecure, cfg.SessionTTL)
}

func provideReadiness(cfg *config.Config, db *gorm.DB, client redis.UniversalClient) *health.ProbeRunner {
	checkers := []health.Checker{health.NewDBChecker(db)}
	if client != nil {
		checkers = append(checkers, health.NewRedisChecker(client))
	}
	return health.NewProbeRunner(cfg.ReadinessProbeTimeout, time.Second, checkers...)
}

func provideRouterDependencies(
	cfg *config.Config,
	csrfHandler *handler.CSRFHandler,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	productHandler *handler.ProductHandler,
	sessions *service.SessionService,
	users *service.UserService,
	guard *security.CSRF,
	client redis.UniversalClient,
	readiness *health.ProbeRunner,
) router.Dependencies {
	dep := router.Dependencies{
		CSRFHandler:      csrfHandler,
		AuthHandler:      authHandler,
		UserHandler:      userHandler,
		ProductHandler:   productHandler,
		Sessions:         sessions,
		Users:            users,
		CSRFGuard:        guard,
		CSRFCookieName:   cfg.CSRFCookieName,
		CORSOrigins:      cfg.CORSOrigins,
		AuthRateLimitRPM: cfg.AuthRateLimitRPM,
		APIRateLimitRPM:  cfg.APIRateLimitRPM,
		Readiness:        readiness,
		EnableOTelHTTP:   cfg.OTELTracingEnabled || cfg.OTELMetricsEnabled,
		ExposeInternals:  !cfg.IsProduction(),
	}
	if client != nil {
		// Share counters across replicas; an unreachable Redis lets traffic
		// through rather than taking the API down with it.
		limiter := middleware.NewRedisFixedWindowLimiter(client, "ratelimit")
		dep.GlobalRateLimiter = middleware.NewDistributedRateLimiter(
			limiter, cfg.APIRateLimitRPM, time.Minute, middleware.FailOpen, "api", middleware.SessionOrIPKey,
		).Middleware()
		dep.AuthRateLimiter = middleware.NewDistributedRateLimiter(
			limiter, cfg.AuthRateLimitRPM, time.Minute, middleware.FailClosed, "auth", nil,
		).Middleware()
	}
	return dep
}

func provideHTTPServer(cfg *config.Config, dep router.Dependencies) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.NewRouter(dep),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
