package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder on its own registry
type PrometheusRecorder struct {
	registry *prometheus.Registry

	refreshes       *prometheus.CounterVec
	refreshLatency  *prometheus.HistogramVec
	upserts         *prometheus.CounterVec
	resolutions     *prometheus.CounterVec
	conversions     *prometheus.CounterVec
	breakerState    *prometheus.GaugeVec
	httpRequests    *prometheus.CounterVec
	httpDurationSec *prometheus.HistogramVec
}

// NewPrometheusRecorder creates a recorder with metrics under namespace
func NewPrometheusRecorder(namespace string) *PrometheusRecorder {
	r := &PrometheusRecorder{
		registry: prometheus.NewRegistry(),
		refreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_refreshes_total",
				Help:      "Rate table refreshes by base currency and outcome",
			},
			[]string{"base", "outcome"},
		),
		refreshLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rate_refresh_duration_seconds",
				Help:      "Duration of rate table refreshes",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"base"},
		),
		upserts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_upserts_total",
				Help:      "Per-pair rate upserts by result",
			},
			[]string{"result"},
		),
		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_resolutions_total",
				Help:      "Rate resolutions by lookup path",
			},
			[]string{"path"},
		),
		conversions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "conversions_total",
				Help:      "Amount conversions, converted or passed through unconverted",
			},
			[]string{"converted"},
		),
		breakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "upstream_breaker_state",
				Help:      "Upstream circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
			[]string{"name"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route, method and status",
			},
			[]string{"route", "method", "status"},
		),
		httpDurationSec: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by route",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}

	r.registry.MustRegister(
		r.refreshes,
		r.refreshLatency,
		r.upserts,
		r.resolutions,
		r.conversions,
		r.breakerState,
		r.httpRequests,
		r.httpDurationSec,
	)

	return r
}

// Registry returns the registry the metrics live in
func (r *PrometheusRecorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus text format
func (r *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *PrometheusRecorder) RecordRefresh(base, outcome string, duration time.Duration) {
	r.refreshes.WithLabelValues(base, outcome).Inc()
	r.refreshLatency.WithLabelValues(base).Observe(duration.Seconds())
}

func (r *PrometheusRecorder) RecordUpsert(success bool) {
	if success {
		r.upserts.WithLabelValues("ok").Inc()
		return
	}
	r.upserts.WithLabelValues("failed").Inc()
}

func (r *PrometheusRecorder) RecordResolution(path string) {
	r.resolutions.WithLabelValues(path).Inc()
}

func (r *PrometheusRecorder) RecordConversion(converted bool) {
	r.conversions.WithLabelValues(strconv.FormatBool(converted)).Inc()
}

func (r *PrometheusRecorder) RecordBreakerState(name, state string) {
	var v float64
	switch state {
	case "open":
		v = 1
	case "half-open":
		v = 2
	}
	r.breakerState.WithLabelValues(name).Set(v)
}

func (r *PrometheusRecorder) RecordHTTPRequest(route, method string, status int, duration time.Duration) {
	r.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	r.httpDurationSec.WithLabelValues(route).Observe(duration.Seconds())
}
