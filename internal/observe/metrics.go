// Package observe provides application-wide observability primitives for
// Loquax: OpenTelemetry metrics and a Prometheus exporter bridge.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A package-level
// default [Metrics] instance ([Default]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Loquax metrics.
const meterName = "github.com/loquax-ai/loquax"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// LLMDuration tracks model backend call latency. Use with attribute:
	//   attribute.String("purpose", "route"|"dispatch"|"converse"|"followup")
	LLMDuration metric.Float64Histogram

	// ToolExecutionDuration tracks tool execution latency. Use with
	// attribute.String("tool", ...).
	ToolExecutionDuration metric.Float64Histogram

	// Turns counts completed agent turns. Use with
	// attribute.String("path", "conversation"|"tool"|"tool_not_found"|"raw_reply").
	Turns metric.Int64Counter

	// ToolCalls counts tool invocations. Use with attributes:
	//   attribute.String("tool", ...), attribute.String("status", "ok"|"error")
	ToolCalls metric.Int64Counter

	// RouterDecisions counts routing outcomes. Use with attributes:
	//   attribute.Bool("use_tool", ...), attribute.Bool("decoded", ...)
	RouterDecisions metric.Int64Counter

	// ParseOutcomes counts output-parser recovery outcomes. Use with
	// attribute.String("stage", "strict"|"salvaged"|"exhausted").
	ParseOutcomes metric.Int64Counter

	// ActiveSessions tracks the number of live chat sessions.
	ActiveSessions metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// model and tool calls, which dominate turn latency.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.LLMDuration, err = m.Float64Histogram("loquax.llm.duration",
		metric.WithDescription("Latency of model backend calls."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ToolExecutionDuration, err = m.Float64Histogram("loquax.tool.duration",
		metric.WithDescription("Latency of tool executions."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Turns, err = m.Int64Counter("loquax.turns",
		metric.WithDescription("Completed agent turns."),
	); err != nil {
		return nil, err
	}
	if met.ToolCalls, err = m.Int64Counter("loquax.tool.calls",
		metric.WithDescription("Tool invocations."),
	); err != nil {
		return nil, err
	}
	if met.RouterDecisions, err = m.Int64Counter("loquax.router.decisions",
		metric.WithDescription("Routing outcomes."),
	); err != nil {
		return nil, err
	}
	if met.ParseOutcomes, err = m.Int64Counter("loquax.parser.outcomes",
		metric.WithDescription("Output-parser recovery outcomes."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("loquax.sessions.active",
		metric.WithDescription("Live chat sessions."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// Default returns the process-wide [Metrics] built from the global OTel meter
// provider, initialised on first use. Call [InitProvider] before the first
// Default call so the instruments bind to the real provider rather than the
// no-op default.
func Default() *Metrics {
	defaultOnce.Do(func() {
		m, err := NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: default metrics init: " + err.Error())
		}
		defaultMetrics = m
	})
	return defaultMetrics
}

// RecordToolCall increments ToolCalls with the standard attribute set.
func (m *Metrics) RecordToolCall(ctx context.Context, tool, status string) {
	m.ToolCalls.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("tool", tool),
			attribute.String("status", status),
		),
	)
}

// RecordRouterDecision increments RouterDecisions with the standard
// attribute set.
func (m *Metrics) RecordRouterDecision(ctx context.Context, useTool, decoded bool) {
	m.RouterDecisions.Add(ctx, 1,
		metric.WithAttributes(
			attribute.Bool("use_tool", useTool),
			attribute.Bool("decoded", decoded),
		),
	)
}
