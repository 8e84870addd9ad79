// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pharmapos"

// Metrics is the process-wide collector set. A nil *Metrics is valid and
// records nothing, which keeps services usable in tests without a registry.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	SalesCreated     prometheus.Counter
	SaleFailures     *prometheus.CounterVec
	SaleAmount       prometheus.Counter
	SchemaFallbacks  *prometheus.CounterVec
	JobsProcessed    *prometheus.CounterVec
	ProductCacheHits *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{registry: registry}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)
	m.HTTPRequestsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "http_requests_in_flight",
		Help:      "Number of HTTP requests currently being processed",
	})

	m.SalesCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sales_created_total",
		Help:      "Committed sales",
	})
	m.SaleFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sale_failures_total",
			Help:      "Rejected or rolled back sales by error kind",
		},
		[]string{"kind"},
	)
	m.SaleAmount = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sales_amount_total",
		Help:      "Sum of committed sale totals",
	})
	m.SchemaFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schema_fallbacks_total",
			Help:      "Sales written through a degraded sales schema, by reason",
		},
		[]string{"reason"},
	)
	m.JobsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_processed_total",
			Help:      "Background jobs by type and outcome",
		},
		[]string{"type", "outcome"},
	)
	m.ProductCacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "product_cache_lookups_total",
			Help:      "Product list cache lookups by result",
		},
		[]string{"result"},
	)

	registry.MustRegister(
		m.HTTPRequestsTotal, m.HTTPRequestDuration, m.HTTPRequestsInFlight,
		m.SalesCreated, m.SaleFailures, m.SaleAmount, m.SchemaFallbacks,
		m.JobsProcessed, m.ProductCacheHits,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (m *Metrics) InFlight(delta float64) {
	if m == nil {
		return
	}
	m.HTTPRequestsInFlight.Add(delta)
}

func (m *Metrics) RecordSale(amount float64) {
	if m == nil {
		return
	}
	m.SalesCreated.Inc()
	m.SaleAmount.Add(amount)
}

func (m *Metrics) RecordSaleFailure(kind string) {
	if m == nil {
		return
	}
	m.SaleFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordSchemaFallback(reason string) {
	if m == nil {
		return
	}
	m.SchemaFallbacks.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordJob(jobType, outcome string) {
	if m == nil {
		return
	}
	m.JobsProcessed.WithLabelValues(jobType, outcome).Inc()
}

func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.ProductCacheHits.WithLabelValues(result).Inc()
}
