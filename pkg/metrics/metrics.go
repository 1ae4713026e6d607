// Package metrics provides Prometheus instrumentation for the gateway.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the gateway.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ActiveRequests  prometheus.Gauge

	AIRequestsTotal *prometheus.CounterVec
	AITokensTotal   *prometheus.CounterVec
	AICostTotal     *prometheus.CounterVec
	CacheLookups    *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all gateway metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector())
	reg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kru_requests_total",
				Help: "Total HTTP requests by route and status code.",
			},
			[]string{"route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kru_request_duration_seconds",
				Help:    "HTTP request latency distribution.",
				Buckets: []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"route"},
		),
		ActiveRequests: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "kru_active_requests",
				Help: "Number of requests currently being processed.",
			},
		),
		AIRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kru_ai_requests_total",
				Help: "AI dispatches by task type and outcome.",
			},
			[]string{"type", "outcome"},
		),
		AITokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kru_ai_tokens_total",
				Help: "Completion-service tokens consumed by task type.",
			},
			[]string{"type"},
		),
		AICostTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kru_ai_cost_usd_total",
				Help: "Estimated completion cost in USD by task type.",
			},
			[]string{"type"},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kru_ai_cache_lookups_total",
				Help: "Response cache lookups by result (hit/miss).",
			},
			[]string{"result"},
		),
		registry: reg,
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.ActiveRequests,
		m.AIRequestsTotal,
		m.AITokensTotal,
		m.AICostTotal,
		m.CacheLookups,
	)

	return m
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(route string, status int, elapsed time.Duration) {
	m.RequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// ObserveDispatch records one AI dispatch.
func (m *Metrics) ObserveDispatch(taskType string, success, cacheHit bool, tokens int, cost float64) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.AIRequestsTotal.WithLabelValues(taskType, outcome).Inc()
	if cacheHit {
		m.CacheLookups.WithLabelValues("hit").Inc()
	} else {
		m.CacheLookups.WithLabelValues("miss").Inc()
	}
	m.AITokensTotal.WithLabelValues(taskType).Add(float64(tokens))
	m.AICostTotal.WithLabelValues(taskType).Add(cost)
}
