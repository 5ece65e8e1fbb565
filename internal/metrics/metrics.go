package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the query service.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec   // labels: route, status
	RequestDuration  *prometheus.HistogramVec // labels: route
	ProviderFetchDur *prometheus.HistogramVec // labels: provider, op
	ProviderErrors   *prometheus.CounterVec   // labels: provider, op, reason
	ProviderUp       *prometheus.GaugeVec     // labels: provider
	ProbesTotal      *prometheus.CounterVec   // labels: provider, result
}

// New creates the metrics and registers them on a private registry together
// with the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quantdash_http_requests_total",
			Help: "Total HTTP requests by route and status code",
		}, []string{"route", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "quantdash_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		ProviderFetchDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "quantdash_provider_fetch_duration_seconds",
			Help:    "Market data provider call latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		}, []string{"provider", "op"}),
		ProviderErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quantdash_provider_errors_total",
			Help: "Failed market data provider calls",
		}, []string{"provider", "op", "reason"}),
		ProviderUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "quantdash_provider_up",
			Help: "Result of the last provider health probe (1=up, 0=down)",
		}, []string{"provider"}),
		ProbesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quantdash_provider_probes_total",
			Help: "Provider health probes by result",
		}, []string{"provider", "result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RequestsTotal,
		m.RequestDuration,
		m.ProviderFetchDur,
		m.ProviderErrors,
		m.ProviderUp,
		m.ProbesTotal,
	)
	return m
}

// ObserveFetch records one provider call.
func (m *Metrics) ObserveFetch(provider, op string, elapsed time.Duration, err error) {
	m.ProviderFetchDur.WithLabelValues(provider, op).Observe(elapsed.Seconds())
	if err != nil {
		reason := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "timeout"
		} else if errors.Is(err, context.Canceled) {
			reason = "canceled"
		}
		m.ProviderErrors.WithLabelValues(provider, op, reason).Inc()
	}
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(route string, status int, elapsed time.Duration) {
	m.RequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// SetProviderUp records the outcome of a health probe.
func (m *Metrics) SetProviderUp(provider string, up bool) {
	v, result := 0.0, "down"
	if up {
		v, result = 1, "up"
	}
	m.ProviderUp.WithLabelValues(provider).Set(v)
	m.ProbesTotal.WithLabelValues(provider, result).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
