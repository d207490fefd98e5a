package container

import (
	"github.com/memofn/evalstore/cmd/evalstore/handlers"
	"github.com/memofn/evalstore/cmd/evalstore/repository"
	"github.com/memofn/evalstore/cmd/evalstore/service"
	"github.com/memofn/evalstore/common/bootstrap"
)

// Container holds all initialized services and repositories (singleton pattern)
type Container struct {
	// Components
	Components *bootstrap.Components

	// Repositories
	BlobRepo   *repository.BlobRepository
	EvalRepo   *repository.EvalRepository
	UserRepo   *repository.UserRepository
	APIKeyRepo *repository.APIKeyRepository

	// Services
	Store        *service.Store
	TokenService *service.TokenService
	LoginService *service.LoginService

	// Handlers
	EvalHandler   *handlers.EvalHandler
	BlobHandler   *handlers.BlobHandler
	APIKeyHandler *handlers.APIKeyHandler
	LoginHandler  *handlers.LoginHandler
	UserHandler   *handlers.UserHandler
}

// NewContainer initializes all services and repositories once
func NewContainer(components *bootstrap.Components) (*Container, error) {
	// Initialize repositories
	blobRepo := repository.NewBlobRepository(components.DB, components.Logger)
	evalRepo := repository.NewEvalRepository(components.DB, components.Logger)
	userRepo := repository.NewUserRepository(components.DB, components.Logger)
	apiKeyRepo := repository.NewAPIKeyRepository(components.DB, components.Logger)

	// Initialize services (bottom-up: dependencies first)
	store := service.NewStore(components.ObjectStore, components.Telemetry, components.Logger)
	tokenService := service.NewTokenService(
		components.Config.Auth.JWTSecret,
		components.Config.Auth.TokenExpiry,
	)
	loginService := service.NewLoginService(
		components.Config.Auth,
		userRepo,
		tokenService,
		components.Logger,
	)

	return &Container{
		Components:    components,
		BlobRepo:      blobRepo,
		EvalRepo:      evalRepo,
		UserRepo:      userRepo,
		APIKeyRepo:    apiKeyRepo,
		Store:         store,
		TokenService:  tokenService,
		LoginService:  loginService,
		EvalHandler:   handlers.NewEvalHandler(components, store, evalRepo),
		BlobHandler:   handlers.NewBlobHandler(components, store, blobRepo),
		APIKeyHandler: handlers.NewAPIKeyHandler(components, apiKeyRepo),
		LoginHandler:  handlers.NewLoginHandler(components, loginService),
		UserHandler:   handlers.NewUserHandler(components, userRepo),
	}, nil
}
