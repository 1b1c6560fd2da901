package mturk

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector provides Prometheus metrics for signed Requester API calls.
// It is safe for concurrent use.
type MetricsCollector struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec

	failuresTotal  *prometheus.CounterVec
	apiErrorsTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

var (
	defaultCollectorOnce sync.Once
	defaultCollector     *MetricsCollector
)

// NewMetricsCollector returns the collector registered on the default
// registerer. It is created on first call and shared by every later caller,
// since the default registerer accepts each metric name only once.
func NewMetricsCollector() *MetricsCollector {
	defaultCollectorOnce.Do(func() {
		defaultCollector = NewMetricsCollectorWithRegistry(prometheus.DefaultRegisterer)
	})
	return defaultCollector
}

// NewMetricsCollectorWithRegistry creates a collector using supplied registerer.
func NewMetricsCollectorWithRegistry(registry prometheus.Registerer) *MetricsCollector {
	factory := promauto.With(registry)
	mc := &MetricsCollector{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mturk_requests_total",
				Help: "Total number of Requester API calls made",
			},
			[]string{"operation", "status_code", "mode"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mturk_request_duration_seconds",
				Help:    "Duration of Requester API calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "status_code", "mode"},
		),
		requestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mturk_requests_in_flight",
				Help: "Number of Requester API calls currently in flight",
			},
			[]string{"operation"},
		),
		failuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mturk_failures_total",
				Help: "Total number of failed calls by failure type",
			},
			[]string{"type", "operation"},
		),
		apiErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mturk_api_errors_total",
				Help: "Total number of Error elements returned by the service",
			},
			[]string{"operation", "code"},
		),
	}
	if reg, ok := registry.(*prometheus.Registry); ok {
		mc.registry = reg
	}

	return mc
}

// RecordRequest records request count and duration.
func (mc *MetricsCollector) RecordRequest(operation, mode string, statusCode int, duration time.Duration) {
	if mc == nil {
		return
	}

	statusCodeStr := strconv.Itoa(statusCode)
	mc.requestsTotal.WithLabelValues(operation, statusCodeStr, mode).Inc()
	mc.requestDuration.WithLabelValues(operation, statusCodeStr, mode).Observe(duration.Seconds())
}

// RecordRequestStart increments in-flight gauge.
func (mc *MetricsCollector) RecordRequestStart(operation string) {
	if mc == nil {
		return
	}

	mc.requestsInFlight.WithLabelValues(operation).Inc()
}

// RecordRequestEnd decrements in-flight gauge.
func (mc *MetricsCollector) RecordRequestEnd(operation string) {
	if mc == nil {
		return
	}

	mc.requestsInFlight.WithLabelValues(operation).Dec()
}

// RecordFailure increments failure counter by type.
func (mc *MetricsCollector) RecordFailure(errorType, operation string) {
	if mc == nil {
		return
	}

	mc.failuresTotal.WithLabelValues(errorType, operation).Inc()
}

// RecordAPIErrors counts every Error element of resp.
func (mc *MetricsCollector) RecordAPIErrors(operation string, resp *Response) {
	if mc == nil || resp == nil {
		return
	}

	for _, apiErr := range resp.Errors {
		code := apiErr.Code
		if code == "" {
			code = "unknown"
		}
		mc.apiErrorsTotal.WithLabelValues(operation, code).Inc()
	}
}

// GetRegistry exposes the underlying prometheus registry, nil when the
// collector was built on a plain Registerer.
func (mc *MetricsCollector) GetRegistry() *prometheus.Registry {
	if mc == nil {
		return nil
	}
	return mc.registry
}
