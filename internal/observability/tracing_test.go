package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_NoEndpoint(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Endpoint:    "", // Export stays disabled
		ServiceName: "test-service",
		Environment: "test",
	}

	ctx := context.Background()
	shutdown, err := Setup(ctx, cfg)

	require.NoError(t, err)
	require.NotNil(t, shutdown)

	// No-op shutdown must be callable
	err = shutdown(ctx)
	assert.NoError(t, err)
}

func TestSetup_WithEndpoint(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Endpoint:    "localhost:4318",
		ServiceName: "edumentor-test",
		Environment: "test",
	}

	ctx := context.Background()
	shutdown, err := Setup(ctx, cfg)

	// Exporter creation is lazy; no collector needs to be running
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	err = shutdown(ctx)
	assert.NoError(t, err)
}

func TestSetup_CollectorUnavailable_GracefulDegradation(t *testing.T) {
	t.Parallel()

	// Point at a collector that does not exist
	cfg := Config{
		Endpoint:    "localhost:1",
		ServiceName: "graceful-test",
		Environment: "test",
	}

	ctx := context.Background()
	shutdown, err := Setup(ctx, cfg)

	// Spans fail to export silently; startup must not fail
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	err = shutdown(ctx)
	assert.NoError(t, err)
}

func TestSetup_EmptyConfig(t *testing.T) {
	t.Parallel()

	shutdown, err := Setup(context.Background(), Config{})

	require.NoError(t, err)
	require.NotNil(t, shutdown)

	err = shutdown(context.Background())
	assert.NoError(t, err)
}
