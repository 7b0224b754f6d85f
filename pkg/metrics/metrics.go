// Package metrics exposes Prometheus collectors for the gateway.
// Each Metrics value owns its registry so several can coexist in tests.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Download outcome labels
const (
	OutcomeSuccess   = "success"
	OutcomeNoContent = "no_content"
	OutcomeFailure   = "failure"
	OutcomeRejected  = "rejected"
	OutcomeInternal  = "internal_error"
)

// Metrics holds the gateway collectors
type Metrics struct {
	registry *prometheus.Registry

	downloadsTotal   *prometheus.CounterVec
	downloadDuration prometheus.Histogram
	inProgress       prometheus.Gauge
	authRejections   *prometheus.CounterVec
}

// New creates and registers the collectors under the given namespace
func New(namespace string) *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.downloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "Download requests by outcome.",
		},
		[]string{"outcome"},
	)
	m.downloadDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "download_duration_seconds",
		Help:      "Time spent in one extraction session.",
		Buckets:   prometheus.ExponentialBuckets(0.25, 2, 12),
	})
	m.inProgress = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "downloads_in_progress",
		Help:      "Extraction sessions currently open.",
	})
	m.authRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_rejections_total",
			Help:      "Requests rejected by the auth gate, by reason.",
		},
		[]string{"reason"},
	)

	m.registry.MustRegister(
		m.downloadsTotal,
		m.downloadDuration,
		m.inProgress,
		m.authRejections,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// ObserveDownload records one finished download
func (m *Metrics) ObserveDownload(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.downloadsTotal.WithLabelValues(outcome).Inc()
	if d > 0 {
		m.downloadDuration.Observe(d.Seconds())
	}
}

// SessionOpened increments the in-progress gauge
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.inProgress.Inc()
}

// SessionClosed decrements the in-progress gauge
func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.inProgress.Dec()
}

// AuthRejected records a request stopped by the auth gate
func (m *Metrics) AuthRejected(reason string) {
	if m == nil {
		return
	}
	m.authRejections.WithLabelValues(reason).Inc()
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
