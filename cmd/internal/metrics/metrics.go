// Package metrics defines Quill's Prometheus instruments.
//
// Every recording method is safe on a nil *Metrics so callers can run
// without instrumentation in tests.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains custom Prometheus metrics for Quill.
type Metrics struct {
	AuthAttempts  *prometheus.CounterVec
	HashSeconds   *prometheus.HistogramVec
	HTTPRequests  *prometheus.CounterVec
	PostMutations *prometheus.CounterVec
}

// New creates and registers Quill metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AuthAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quill_auth_attempts_total",
				Help: "Registration and login attempts by operation and result",
			},
			[]string{"op", "result"},
		),
		HashSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quill_password_hash_seconds",
				Help:    "Time spent hashing or comparing passwords",
				Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"op"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quill_http_requests_total",
				Help: "HTTP requests by method and status class",
			},
			[]string{"method", "class"},
		),
		PostMutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quill_post_mutations_total",
				Help: "Post create/update attempts by operation and result",
			},
			[]string{"op", "result"},
		),
	}

	reg.MustRegister(m.AuthAttempts, m.HashSeconds, m.HTTPRequests, m.PostMutations)
	return m
}

// NewRegistry returns a registry with the Go and process collectors and Quill metrics.
func NewRegistry() (*prometheus.Registry, *Metrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg, New(reg)
}

// Handler exposes reg in the Prometheus text format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

func (m *Metrics) AuthAttempt(op, result string) {
	if m == nil {
		return
	}
	m.AuthAttempts.WithLabelValues(op, result).Inc()
}

func (m *Metrics) ObserveHash(op string, d time.Duration) {
	if m == nil {
		return
	}
	m.HashSeconds.WithLabelValues(op).Observe(d.Seconds())
}

func (m *Metrics) HTTPRequest(method, class string) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, class).Inc()
}

func (m *Metrics) PostMutation(op, result string) {
	if m == nil {
		return
	}
	m.PostMutations.WithLabelValues(op, result).Inc()
}
