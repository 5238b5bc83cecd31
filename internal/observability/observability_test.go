package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootstrap_StdoutFallbackNoOTLP(t *testing.T) {
	p, err := Bootstrap(context.Background(), Config{ServiceName: "test-service", StdoutFallback: true})
	require.NoError(t, err)
	require.NotNil(t, p.TracerProvider)
	require.NotNil(t, p.MeterProvider)

	_, span := StartSpan(context.Background(), "test.span")
	span.End()

	require.NoError(t, p.Shutdown(context.Background()))
}

func TestBootstrap_NoExportersStillProducesUsableProviders(t *testing.T) {
	p, err := Bootstrap(context.Background(), Config{ServiceName: "test-service"})
	require.NoError(t, err)
	assert.NotNil(t, p.Registry)
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestMetrics_AreRegisteredAndIncrementable(t *testing.T) {
	Metrics.StepOutcome.WithLabelValues("direct_check", "success").Inc()
	Metrics.BudgetExhausted.WithLabelValues("max_hops").Inc()
	Metrics.PlannerCalls.WithLabelValues("fallback").Inc()
	Metrics.RunOutcome.WithLabelValues("completed").Inc()
	Metrics.ImagesProcessed.WithLabelValues("evidence").Inc()
	Metrics.PlannerLatency.Observe(0.25)
}
