//go:build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"github.com/pmstore/pmstore-api/internal/app"
	"github.com/pmstore/pmstore-api/internal/config"
	"github.com/pmstore/pmstore-api/internal/http/handler"
	"github.com/pmstore/pmstore-api/internal/repository"
	"github.com/pmstore/pmstore-api/internal/security"
	"github.com/pmstore/pmstore-api/internal/service"
)

var infraSet = wire.NewSet(
	config.Load,
	provideLogging,
	provideLogger,
	provideObservability,
	provideDB,
	provideRedis,
	provideReadiness,
)

var repositorySet = wire.NewSet(
	repository.NewUserRepository,
	repository.NewProductRepository,
	repository.NewSessionRepository,
)

var serviceSet = wire.NewSet(
	providePasswordHasher,
	wire.Bind(new(security.PasswordHasher), new(*security.BcryptHasher)),
	provideCSRF,
	provideSessionStore,
	provideBackgroundTasks,
	service.NewSessionService,
	service.NewAuthService,
	service.NewUserService,
	provideProductService,
)

var httpSet = wire.NewSet(
	provideCSRFHandler,
	handler.NewAuthHandler,
	handler.NewUserHandler,
	handler.NewProductHandler,
	provideRouterDependencies,
	provideHTTPServer,
)

func InitializeApp(ctx context.Context) (*app.App, error) {
	wire.Build(infraSet, repositorySet, serviceSet, httpSet, app.New)
	return nil, nil
}
