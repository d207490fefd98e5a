package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service configuration
type Config struct {
	Service     ServiceConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	ObjectStore ObjectStoreConfig
	Auth        AuthConfig
	Telemetry   TelemetryConfig
}

// ServiceConfig holds service-specific settings
type ServiceConfig struct {
	Name        string
	Port        int
	Environment string
	LogLevel    string
	LogFormat   string
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	Host        string
	Port        int
	Database    string
	User        string
	Password    string
	MaxConns    int
	MinConns    int
	MaxIdleTime time.Duration
	MaxLifetime time.Duration
}

// RedisConfig holds Redis connection settings. Redis is only dialed when
// it is selected as the object-store backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// ObjectStoreConfig selects and configures the blob backend
type ObjectStoreConfig struct {
	// Backend is one of "s3", "redis", "memory"
	Backend  string
	S3Bucket string
	S3Region string
	S3Prefix string
}

// AuthConfig holds signing key material and OAuth client credentials
type AuthConfig struct {
	// JWTSecret is the HMAC key used to sign and verify tokens
	JWTSecret      string
	GHClientID     string
	GHClientSecret string
	GHUserAgent    string
	TokenExpiry    time.Duration
}

// TelemetryConfig holds observability settings
type TelemetryConfig struct {
	EnablePprof   bool
	PprofPort     int
	EnableMetrics bool
	MetricsPort   int
}

// Load loads configuration from environment variables. Secrets may be
// supplied either directly (JWT_SECRET) or via a file path
// (JWT_SECRET_FILE); the file form wins when both are set.
func Load(serviceName string) (*Config, error) {
	cfg := &Config{
		Service: ServiceConfig{
			Name:        serviceName,
			Port:        getEnvInt("PORT", 8080),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFormat:   getEnv("LOG_FORMAT", "text"),
		},
		Database: DatabaseConfig{
			Host:        getEnv("POSTGRES_HOST", "localhost"),
			Port:        getEnvInt("POSTGRES_PORT", 5432),
			Database:    getEnv("POSTGRES_DB", "evalstore"),
			User:        getEnv("POSTGRES_USER", "evalstore"),
			Password:    getEnvSecret("POSTGRES_PASSWORD", "evalstore"),
			MaxConns:    getEnvInt("POSTGRES_MAX_CONNS", 50),
			MinConns:    getEnvInt("POSTGRES_MIN_CONNS", 10),
			MaxIdleTime: getEnvDuration("POSTGRES_MAX_IDLE_TIME", 30*time.Minute),
			MaxLifetime: getEnvDuration("POSTGRES_MAX_LIFETIME", 1*time.Hour),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnvSecret("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		ObjectStore: ObjectStoreConfig{
			Backend:  getEnv("OBJECT_STORE_BACKEND", "s3"),
			S3Bucket: getEnv("S3_BUCKET", "evalstore-binarystore"),
			S3Region: getEnv("S3_REGION", "eu-central-1"),
			S3Prefix: getEnv("S3_PREFIX", ""),
		},
		Auth: AuthConfig{
			JWTSecret:      getEnvSecret("JWT_SECRET", ""),
			GHClientID:     getEnv("GH_CLIENT_ID", ""),
			GHClientSecret: getEnvSecret("GH_CLIENT_SECRET", ""),
			GHUserAgent:    getEnv("GH_USER_AGENT", "evalstore-api"),
			TokenExpiry:    getEnvDuration("TOKEN_EXPIRY", 30*24*time.Hour),
		},
		Telemetry: TelemetryConfig{
			EnablePprof:   getEnvBool("ENABLE_PPROF", true),
			PprofPort:     getEnvInt("PPROF_PORT", 6060),
			EnableMetrics: getEnvBool("ENABLE_METRICS", true),
			MetricsPort:   getEnvInt("METRICS_PORT", 9090),
		},
	}

	return cfg, cfg.Validate()
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Service.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns must be >= min_conns")
	}

	switch c.ObjectStore.Backend {
	case "s3", "redis", "memory":
	default:
		return fmt.Errorf("unknown object store backend: %s", c.ObjectStore.Backend)
	}

	if c.ObjectStore.Backend == "s3" && c.ObjectStore.S3Bucket == "" {
		return fmt.Errorf("s3 bucket is required")
	}

	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvSecret reads KEY_FILE as a file path first, falling back to KEY.
// File contents have trailing whitespace trimmed so mounted secrets with
// a final newline behave.
func getEnvSecret(key, defaultValue string) string {
	if path := os.Getenv(key + "_FILE"); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			return strings.TrimSpace(string(data))
		}
	}
	return getEnv(key, defaultValue)
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
