// Package observability bootstraps tracing and metrics for the
// investigator, in the shape the teacher's agent packages assume is
// already wired: otel.Tracer("...") calls scattered through the
// production code, a package-level promauto metrics block, and a
// tracer-provider bootstrap that in the teacher only appears in tests
// (observability_test.go's setupTestTracer) — here it graduates to real
// startup code using the OTLP/stdout exporters instead of an in-memory
// one.
package observability

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Tracer is the investigator's single shared tracer, mirroring the
// teacher's package-level otel.Tracer("aleutian.agent.routing.escalating")
// variable.
var Tracer = otel.Tracer("investigator.orchestrator")

// DefaultShutdownTimeout bounds how long entrypoints wait for exporters
// and HTTP servers to drain during graceful shutdown.
const DefaultShutdownTimeout = 5 * time.Second

// Config selects which exporters Bootstrap wires up.
type Config struct {
	ServiceName    string
	OTLPEndpoint   string // empty disables OTLP trace export
	StdoutFallback bool   // emit spans/metrics to stdout when OTLP is not configured
}

// Provider holds the constructed SDK providers and their combined
// shutdown.
type Provider struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *metric.MeterProvider
	Registry       *prometheus.Registry
	shutdownFuncs  []func(context.Context) error
}

// Shutdown flushes and closes every exporter Bootstrap created.
func (p *Provider) Shutdown(ctx context.Context) error {
	var firstErr error
	for _, fn := range p.shutdownFuncs {
		if err := fn(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Bootstrap builds the tracer and meter providers and installs them as
// the global otel providers, the production equivalent of the teacher's
// test-only setupTestTracer helper.
func Bootstrap(ctx context.Context, cfg Config) (*Provider, error) {
	res, err := resource.Merge(resource.Default(),
		resource.NewSchemaless(attribute.String("service.name", cfg.ServiceName)))
	if err != nil {
		return nil, fmt.Errorf("observability: building resource: %w", err)
	}

	p := &Provider{}

	traceOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	switch {
	case cfg.OTLPEndpoint != "":
		exp, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint), otlptracegrpc.WithInsecure())
		if err != nil {
			return nil, fmt.Errorf("observability: building otlp trace exporter: %w", err)
		}
		traceOpts = append(traceOpts, sdktrace.WithBatcher(exp))
		p.shutdownFuncs = append(p.shutdownFuncs, exp.Shutdown)
	case cfg.StdoutFallback:
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("observability: building stdout trace exporter: %w", err)
		}
		traceOpts = append(traceOpts, sdktrace.WithBatcher(exp))
		p.shutdownFuncs = append(p.shutdownFuncs, exp.Shutdown)
	}

	tp := sdktrace.NewTracerProvider(traceOpts...)
	otel.SetTracerProvider(tp)
	p.TracerProvider = tp
	p.shutdownFuncs = append(p.shutdownFuncs, tp.Shutdown)

	registry := prometheus.NewRegistry()
	promExporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("observability: building prometheus exporter: %w", err)
	}
	meterOpts := []metric.Option{metric.WithResource(res), metric.WithReader(promExporter)}

	if cfg.StdoutFallback {
		stdoutExp, err := stdoutmetric.New()
		if err != nil {
			return nil, fmt.Errorf("observability: building stdout metric exporter: %w", err)
		}
		meterOpts = append(meterOpts, metric.WithReader(metric.NewPeriodicReader(stdoutExp)))
	}

	mp := metric.NewMeterProvider(meterOpts...)
	otel.SetMeterProvider(mp)
	p.MeterProvider = mp
	p.Registry = registry
	p.shutdownFuncs = append(p.shutdownFuncs, mp.Shutdown)

	return p, nil
}

// StartSpan starts a span on the shared Tracer and returns it alongside
// the derived context, a thin wrapper kept for call-site brevity across
// the orchestrator.
func StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return Tracer.Start(ctx, name)
}

// Metrics holds the investigator's Prometheus instruments, grouped the
// way the teacher's routing package groups its escalation counters: one
// var block, promauto-registered at package init.
var Metrics = struct {
	StepOutcome     *prometheus.CounterVec
	BudgetExhausted *prometheus.CounterVec
	PlannerCalls    *prometheus.CounterVec
	PlannerLatency  prometheus.Histogram
	ImagesProcessed *prometheus.CounterVec
	RunOutcome      *prometheus.CounterVec
}{
	StepOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "investigator",
		Subsystem: "orchestrator",
		Name:      "step_outcome_total",
		Help:      "Orchestrator step outcomes by step name and result.",
	}, []string{"step", "outcome"}),

	BudgetExhausted: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "investigator",
		Subsystem: "orchestrator",
		Name:      "budget_exhausted_total",
		Help:      "Runs terminated by budget exhaustion, by which ceiling was hit.",
	}, []string{"reason"}),

	PlannerCalls: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "investigator",
		Subsystem: "planner",
		Name:      "calls_total",
		Help:      "Planner invocations by outcome: ok, fallback, error.",
	}, []string{"outcome"}),

	PlannerLatency: promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "investigator",
		Subsystem: "planner",
		Name:      "call_latency_seconds",
		Help:      "Latency of planner.Plan calls.",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10},
	}),

	ImagesProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "investigator",
		Subsystem: "evidence",
		Name:      "images_processed_total",
		Help:      "Images processed by the verifier, by outcome.",
	}, []string{"outcome"}),

	RunOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "investigator",
		Subsystem: "orchestrator",
		Name:      "run_outcome_total",
		Help:      "Completed runs by terminal status: completed, failed.",
	}, []string{"status"}),
}
