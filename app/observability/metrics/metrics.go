package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	SearchRequestsTotal   metric.Int64Counter
	ProviderFetchesTotal  metric.Int64Counter
	ProviderFailuresTotal metric.Int64Counter
	CacheHitsTotal        metric.Int64Counter
	CacheMissesTotal      metric.Int64Counter
	PlanRequestsTotal     metric.Int64Counter
	PlanDurationSeconds   metric.Float64Histogram
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// Get returns the process-wide metric instruments, creating them on first
// use from the global MeterProvider. With no provider configured (as in
// tests) the instruments are no-ops.
func Get() *AppMetrics {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("DateAI")
		var err error
		m := &AppMetrics{}

		m.SearchRequestsTotal, err = meter.Int64Counter(
			"event_search_requests_total",
			metric.WithDescription("Total number of aggregated event searches"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create event_search_requests_total: %v", err)
		}

		m.ProviderFetchesTotal, err = meter.Int64Counter(
			"provider_fetches_total",
			metric.WithDescription("Upstream provider fetches issued"),
			metric.WithUnit("{fetch}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create provider_fetches_total: %v", err)
		}

		m.ProviderFailuresTotal, err = meter.Int64Counter(
			"provider_failures_total",
			metric.WithDescription("Upstream provider fetches that failed and were absorbed"),
			metric.WithUnit("{fetch}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create provider_failures_total: %v", err)
		}

		m.CacheHitsTotal, err = meter.Int64Counter(
			"event_cache_hits_total",
			metric.WithDescription("Aggregated event searches served from the snapshot cache"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create event_cache_hits_total: %v", err)
		}

		m.CacheMissesTotal, err = meter.Int64Counter(
			"event_cache_misses_total",
			metric.WithDescription("Aggregated event searches that refreshed the snapshot cache"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create event_cache_misses_total: %v", err)
		}

		m.PlanRequestsTotal, err = meter.Int64Counter(
			"date_plan_requests_total",
			metric.WithDescription("Date plan generations requested"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create date_plan_requests_total: %v", err)
		}

		m.PlanDurationSeconds, err = meter.Float64Histogram(
			"date_plan_duration_seconds",
			metric.WithDescription("Duration of date plan generation in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create date_plan_duration_seconds: %v", err)
		}

		appMetrics = m
	})
	return appMetrics
}

// WithProvider labels a counter increment with the upstream provider name.
func WithProvider(name string) metric.AddOption {
	return metric.WithAttributes(attribute.String("provider", name))
}
