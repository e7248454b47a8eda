package otel

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/supremacy-go/combat/internal/config"
)

func TestNew_Disabled(t *testing.T) {
	p, err := New(Config{Enabled: false})
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.Nil(t, p.LoggerProvider())
	assert.Equal(t, noop.Meter{}, p.Meter("combat"))
	assert.NoError(t, p.Flush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNew_EnabledWithoutSinks(t *testing.T) {
	_, err := New(Config{Enabled: true, ServiceName: "combatsim"})
	assert.ErrorContains(t, err, "no log writer or endpoint")
}

func TestNew_FileExporters(t *testing.T) {
	var logs, metrics bytes.Buffer
	p, err := New(Config{
		Enabled:        true,
		ServiceName:    "combatsim",
		BatchTimeout:   time.Second,
		LogWriter:      &logs,
		MetricWriter:   &metrics,
		MetricInterval: time.Hour,
	})
	require.NoError(t, err)
	require.NotNil(t, p.LoggerProvider())

	counter, err := p.Meter("test").Int64Counter("combat.rounds.resolved")
	require.NoError(t, err)
	counter.Add(context.Background(), 2)

	require.NoError(t, p.Flush(context.Background()))
	assert.Contains(t, metrics.String(), "combat.rounds.resolved")
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestFromConfig(t *testing.T) {
	var logs bytes.Buffer
	cfg := FromConfig(config.OTelConfig{
		Enabled:      true,
		ServiceName:  "combatsim",
		BatchTimeout: 5 * time.Second,
		Endpoint:     "collector:4318",
		Insecure:     true,
	}, &logs, nil)

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "combatsim", cfg.ServiceName)
	assert.Equal(t, 5*time.Second, cfg.BatchTimeout)
	assert.Equal(t, "collector:4318", cfg.Endpoint)
	assert.Same(t, &logs, cfg.LogWriter)
	assert.Nil(t, cfg.MetricWriter)
}
