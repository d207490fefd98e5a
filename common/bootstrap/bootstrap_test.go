package bootstrap

import (
	"context"
	"testing"

	"github.com/memofn/evalstore/common/config"
	"github.com/memofn/evalstore/common/logger"
	"github.com/memofn/evalstore/common/objectstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Service: config.ServiceConfig{
			Name:        "evalstore-test",
			Port:        8080,
			Environment: "test",
		},
		ObjectStore: config.ObjectStoreConfig{
			Backend: "memory",
		},
	}
}

func TestSetup_WithCustomBackend(t *testing.T) {
	backend := objectstore.NewMemoryBackend()

	components, err := Setup(context.Background(), "evalstore-test",
		WithCustomConfig(testConfig()),
		WithCustomLogger(logger.New("error", "text")),
		WithoutDB(),
		WithoutTelemetry(),
		WithObjectStoreBackend(backend),
	)
	require.NoError(t, err)
	defer components.Shutdown(context.Background())

	assert.Same(t, backend, components.ObjectStore.(*objectstore.MemoryBackend))
	assert.Nil(t, components.DB)
	assert.Nil(t, components.Telemetry)
	assert.NoError(t, components.Health(context.Background()))
}

func TestSetup_MemoryBackendFromConfig(t *testing.T) {
	components, err := Setup(context.Background(), "evalstore-test",
		WithCustomConfig(testConfig()),
		WithCustomLogger(logger.New("error", "text")),
		WithoutDB(),
		WithoutTelemetry(),
	)
	require.NoError(t, err)
	defer components.Shutdown(context.Background())

	_, ok := components.ObjectStore.(*objectstore.MemoryBackend)
	assert.True(t, ok)
}

func TestSetup_WithoutObjectStore(t *testing.T) {
	components, err := Setup(context.Background(), "evalstore-test",
		WithCustomConfig(testConfig()),
		WithCustomLogger(logger.New("error", "text")),
		WithoutDB(),
		WithoutTelemetry(),
		WithoutObjectStore(),
	)
	require.NoError(t, err)
	defer components.Shutdown(context.Background())

	assert.Nil(t, components.ObjectStore)
}

func TestSetup_UnknownBackend(t *testing.T) {
	cfg := testConfig()
	cfg.ObjectStore.Backend = "tape"

	_, err := Setup(context.Background(), "evalstore-test",
		WithCustomConfig(cfg),
		WithCustomLogger(logger.New("error", "text")),
		WithoutDB(),
		WithoutTelemetry(),
	)
	require.Error(t, err)
}

func TestMustSetup(t *testing.T) {
	components := MustSetup(context.Background(), "evalstore-test",
		WithCustomConfig(testConfig()),
		WithCustomLogger(logger.New("error", "text")),
		WithoutDB(),
		WithoutTelemetry(),
	)
	defer components.Shutdown(context.Background())
	require.NotNil(t, components)

	cfg := testConfig()
	cfg.ObjectStore.Backend = "tape"
	require.Panics(t, func() {
		MustSetup(context.Background(), "evalstore-test",
			WithCustomConfig(cfg),
			WithCustomLogger(logger.New("error", "text")),
			WithoutDB(),
			WithoutTelemetry(),
		)
	})
}
