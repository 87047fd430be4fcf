// Package metrics holds the Prometheus collectors of the server and the push
// worker. Metrics implements the recorder interfaces of the guard, upload
// and push packages.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gophadmin"

type Metrics struct {
	GuardDecisions *prometheus.CounterVec
	UploadsTotal   *prometheus.CounterVec
	UploadBytes    prometheus.Counter
	PushEvents     *prometheus.CounterVec
	PushCommands   *prometheus.CounterVec
	HTTPRequests   *prometheus.CounterVec
	HTTPDuration   *prometheus.HistogramVec
	registry       *prometheus.Registry
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		GuardDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "guard",
			Name:      "decisions_total",
			Help:      "Route guard decisions by reason.",
		}, []string{"reason"}), // reason: allowed, unauthenticated, role, permission
		UploadsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upload",
			Name:      "files_total",
			Help:      "Uploaded files by status.",
		}, []string{"status"}), // status: stored, failed
		UploadBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upload",
			Name:      "bytes_total",
			Help:      "Total number of bytes stored.",
		}),
		PushEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "push",
			Name:      "events_total",
			Help:      "Inbound push worker events by type.",
		}, []string{"type"}),
		PushCommands: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "push",
			Name:      "commands_total",
			Help:      "Applied push worker commands by type.",
		}, []string{"type"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

func (m *Metrics) GuardDecision(reason string) {
	m.GuardDecisions.WithLabelValues(reason).Inc()
}

func (m *Metrics) UploadStored(bytes int64) {
	m.UploadsTotal.WithLabelValues("stored").Inc()
	m.UploadBytes.Add(float64(bytes))
}

func (m *Metrics) UploadFailed() {
	m.UploadsTotal.WithLabelValues("failed").Inc()
}

func (m *Metrics) PushEvent(kind string) {
	m.PushEvents.WithLabelValues(kind).Inc()
}

func (m *Metrics) PushCommand(kind string) {
	m.PushCommands.WithLabelValues(kind).Inc()
}

// ObserveHTTP records one finished request.
func (m *Metrics) ObserveHTTP(method string, code int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
	m.HTTPDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
