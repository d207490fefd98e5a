package bootstrap

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/memofn/evalstore/common/config"
	"github.com/memofn/evalstore/common/db"
	"github.com/memofn/evalstore/common/logger"
	"github.com/memofn/evalstore/common/objectstore"
	redisWrapper "github.com/memofn/evalstore/common/redis"
	"github.com/memofn/evalstore/common/telemetry"
)

// Setup initializes all service components.
// This is the main entry point for the service binary and for tests that
// want a fully wired stack.
func Setup(ctx context.Context, serviceName string, opts ...Option) (*Components, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	components := &Components{
		cleanupFuncs: make([]func() error, 0),
	}

	// 1. Load configuration
	var err error
	if options.customConfig != nil {
		components.Config = options.customConfig
	} else {
		components.Config, err = config.Load(serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	// 2. Initialize logger
	if options.customLogger != nil {
		components.Logger = options.customLogger
	} else {
		components.Logger = logger.New(
			components.Config.Service.LogLevel,
			components.Config.Service.LogFormat,
		)
	}
	// Every line this service emits carries its name.
	components.Logger = components.Logger.WithFields(map[string]any{"service": serviceName})

	components.Logger.Info("initializing service",
		"environment", components.Config.Service.Environment,
	)

	// 3. Initialize database (if not skipped)
	if !options.skipDB {
		components.Logger.Info("connecting to database")
		components.DB, err = db.New(ctx, components.Config, components.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		components.addCleanup(func() error {
			components.Logger.Info("closing database connection")
			components.DB.Close()
			return nil
		})
	}

	// 4. Initialize object store (if not skipped)
	if !options.skipObjectStore {
		if options.customBackend != nil {
			components.ObjectStore = options.customBackend
		} else {
			components.ObjectStore, err = newObjectStore(ctx, components)
			if err != nil {
				components.Shutdown(ctx)
				return nil, fmt.Errorf("failed to initialize object store: %w", err)
			}
		}
	}

	// 5. Initialize telemetry (if not skipped)
	if !options.skipTelemetry &&
		(components.Config.Telemetry.EnablePprof || components.Config.Telemetry.EnableMetrics) {
		components.Logger.Info("initializing telemetry")
		components.Telemetry = telemetry.New(components.Config.Telemetry, components.Logger)

		if err := components.Telemetry.Start(ctx); err != nil {
			// Don't fail startup if telemetry fails
			components.Logger.Warn("failed to start telemetry", "error", err)
		}
	}

	components.Logger.Info("service initialization complete",
		"service", serviceName,
		"db", components.DB != nil,
		"object_store", components.Config.ObjectStore.Backend,
		"telemetry", components.Telemetry != nil,
	)

	return components, nil
}

// MustSetup is like Setup but panics on error
func MustSetup(ctx context.Context, serviceName string, opts ...Option) *Components {
	components, err := Setup(ctx, serviceName, opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to setup service %s: %v", serviceName, err))
	}
	return components
}

func newObjectStore(ctx context.Context, components *Components) (objectstore.Backend, error) {
	cfg := components.Config

	switch cfg.ObjectStore.Backend {
	case "s3":
		components.Logger.Info("initializing S3 object store",
			"bucket", cfg.ObjectStore.S3Bucket,
			"region", cfg.ObjectStore.S3Region,
		)
		return objectstore.NewS3BackendFromEnv(
			ctx,
			cfg.ObjectStore.S3Region,
			cfg.ObjectStore.S3Bucket,
			cfg.ObjectStore.S3Prefix,
		)

	case "redis":
		components.Logger.Info("initializing Redis object store", "addr", cfg.Redis.Addr)
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		components.addCleanup(func() error {
			components.Logger.Info("closing redis connection")
			return client.Close()
		})
		return objectstore.NewRedisBackend(
			redisWrapper.NewClient(client, components.Logger),
		), nil

	case "memory":
		components.Logger.Warn("using in-memory object store; data will not survive restarts")
		return objectstore.NewMemoryBackend(), nil

	default:
		return nil, fmt.Errorf("unknown object store backend: %s", cfg.ObjectStore.Backend)
	}
}
