// README: OpenTelemetry metric instruments for the planning pipeline, exported via Prometheus.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "tripplanner"

// Metrics holds the instruments recorded by the resolver, tool adapter and planner.
// The zero value is not usable; obtain one with NewMetrics.
type Metrics struct {
	generations metric.Int64Counter
	toolCalls   metric.Int64Counter
	anomalies   metric.Int64Counter
	lookups     metric.Int64Counter
}

var (
	defaultMetrics *Metrics
	defaultOnce    sync.Once
)

// DefaultMetrics returns instruments bound to the global MeterProvider.
// Until InitPrometheus runs the global provider is a no-op.
func DefaultMetrics() *Metrics {
	defaultOnce.Do(func() {
		m, err := NewMetrics(otel.GetMeterProvider().Meter(meterName))
		if err != nil {
			panic(err)
		}
		defaultMetrics = m
	})
	return defaultMetrics
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)
	m.generations, err = meter.Int64Counter("itinerary_generations_total",
		metric.WithDescription("Itinerary generation calls by outcome"),
		metric.WithUnit("{call}"))
	if err != nil {
		return nil, fmt.Errorf("itinerary_generations_total: %w", err)
	}
	m.toolCalls, err = meter.Int64Counter("itinerary_tool_calls_total",
		metric.WithDescription("Tool invocations issued by the model"),
		metric.WithUnit("{call}"))
	if err != nil {
		return nil, fmt.Errorf("itinerary_tool_calls_total: %w", err)
	}
	m.anomalies, err = meter.Int64Counter("itinerary_output_anomalies_total",
		metric.WithDescription("Model output contract violations recovered by normalisation"),
		metric.WithUnit("{anomaly}"))
	if err != nil {
		return nil, fmt.Errorf("itinerary_output_anomalies_total: %w", err)
	}
	m.lookups, err = meter.Int64Counter("place_lookups_total",
		metric.WithDescription("Place lookups by source and outcome"),
		metric.WithUnit("{lookup}"))
	if err != nil {
		return nil, fmt.Errorf("place_lookups_total: %w", err)
	}
	return &m, nil
}

func (m *Metrics) Generation(ctx context.Context, outcome string) {
	m.generations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) ToolCall(ctx context.Context, tool, outcome string) {
	m.toolCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("outcome", outcome)))
}

func (m *Metrics) Anomaly(ctx context.Context, kind string) {
	m.anomalies.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (m *Metrics) Lookup(ctx context.Context, source, outcome string) {
	m.lookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("outcome", outcome)))
}

// InitPrometheus installs a global MeterProvider backed by the Prometheus exporter and
// returns the scrape handler plus a shutdown func.
func InitPrometheus() (http.Handler, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(mp)
	return promhttp.Handler(), mp.Shutdown, nil
}
