package bootstrap

import (
	"github.com/memofn/evalstore/common/config"
	"github.com/memofn/evalstore/common/logger"
	"github.com/memofn/evalstore/common/objectstore"
)

// Option configures the bootstrap process
type Option func(*options)

type options struct {
	skipDB          bool
	skipObjectStore bool
	skipTelemetry   bool
	customLogger    *logger.Logger
	customConfig    *config.Config
	customBackend   objectstore.Backend
}

// WithoutDB skips database initialization
func WithoutDB() Option {
	return func(o *options) {
		o.skipDB = true
	}
}

// WithoutObjectStore skips object store initialization
func WithoutObjectStore() Option {
	return func(o *options) {
		o.skipObjectStore = true
	}
}

// WithoutTelemetry skips telemetry initialization
func WithoutTelemetry() Option {
	return func(o *options) {
		o.skipTelemetry = true
	}
}

// WithCustomLogger uses a custom logger instead of creating one
func WithCustomLogger(log *logger.Logger) Option {
	return func(o *options) {
		o.customLogger = log
	}
}

// WithCustomConfig uses a custom config instead of loading from env
func WithCustomConfig(cfg *config.Config) Option {
	return func(o *options) {
		o.customConfig = cfg
	}
}

// WithObjectStoreBackend uses a pre-built backend instead of the one the
// config selects. Useful for tests.
func WithObjectStoreBackend(b objectstore.Backend) Option {
	return func(o *options) {
		o.customBackend = b
	}
}

func defaultOptions() *options {
	return &options{}
}
