package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles prometheus collectors used by the health checker.
// All recording methods are safe on a nil receiver.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	RequestDurationSec *prometheus.HistogramVec
	RateLimitDropped   prometheus.Counter

	EventsProcessed  *prometheus.CounterVec
	MalformedEvents  prometheus.Counter
	OfflineAnomalies prometheus.Counter
	NodesTracked     prometheus.Gauge
	ServicesTracked  prometheus.Gauge
	BusDepth         prometheus.Gauge

	Notifications   *prometheus.CounterVec
	ProbesTotal     *prometheus.CounterVec
	ProbeLatencySec *prometheus.HistogramVec
}

func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "health_http_requests_total",
			Help: "Total number of ingestion HTTP requests.",
		}, []string{"route", "method", "status"}),
		RequestDurationSec: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "health_http_request_duration_seconds",
			Help:    "Ingestion request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		RateLimitDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "health_http_ratelimit_dropped_total",
			Help: "Total number of requests dropped by rate limiter.",
		}),
		EventsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "health_events_processed_total",
			Help: "Total number of bus events processed by the aggregator.",
		}, []string{"kind"}),
		MalformedEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "health_events_malformed_total",
			Help: "Heartbeats received without an attached snapshot.",
		}),
		OfflineAnomalies: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "health_offline_anomalies_total",
			Help: "Offline events for targets the aggregator did not track.",
		}),
		NodesTracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "health_nodes_tracked",
			Help: "Nodes currently held by the aggregator.",
		}),
		ServicesTracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "health_services_tracked",
			Help: "Services currently held by the aggregator.",
		}),
		BusDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "health_bus_depth",
			Help: "Events buffered on the bus when the aggregator last received.",
		}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "health_notifications_total",
			Help: "Notification deliveries by channel and result.",
		}, []string{"channel", "result"}),
		ProbesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "health_service_probes_total",
			Help: "Service probes by service and severity.",
		}, []string{"service", "severity"}),
		ProbeLatencySec: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "health_service_probe_latency_seconds",
			Help:    "Service probe round-trip latency in seconds.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"service"}),
	}

	registry.MustRegister(
		m.RequestsTotal,
		m.RequestDurationSec,
		m.RateLimitDropped,
		m.EventsProcessed,
		m.MalformedEvents,
		m.OfflineAnomalies,
		m.NodesTracked,
		m.ServicesTracked,
		m.BusDepth,
		m.Notifications,
		m.ProbesTotal,
		m.ProbeLatencySec,
	)

	return m
}

func (m *Metrics) EventProcessed(kind string) {
	if m == nil {
		return
	}
	m.EventsProcessed.WithLabelValues(kind).Inc()
}

func (m *Metrics) Malformed() {
	if m == nil {
		return
	}
	m.MalformedEvents.Inc()
}

func (m *Metrics) OfflineAnomaly() {
	if m == nil {
		return
	}
	m.OfflineAnomalies.Inc()
}

func (m *Metrics) Tracked(nodes, services int) {
	if m == nil {
		return
	}
	m.NodesTracked.Set(float64(nodes))
	m.ServicesTracked.Set(float64(services))
}

func (m *Metrics) ObserveBusDepth(depth int) {
	if m == nil {
		return
	}
	m.BusDepth.Set(float64(depth))
}

func (m *Metrics) Notification(channel string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Notifications.WithLabelValues(channel, result).Inc()
}

func (m *Metrics) Probe(service, severity string, latency time.Duration) {
	if m == nil {
		return
	}
	m.ProbesTotal.WithLabelValues(service, severity).Inc()
	m.ProbeLatencySec.WithLabelValues(service).Observe(latency.Seconds())
}

func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.RateLimitDropped.Inc()
}

func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startedAt := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		status := strconv.Itoa(wrapped.statusCode)
		route := normalizeRoute(r.URL.Path)
		m.RequestsTotal.WithLabelValues(route, r.Method, status).Inc()
		m.RequestDurationSec.WithLabelValues(route, r.Method, status).Observe(time.Since(startedAt).Seconds())
	})
}

// node ids must not become label values
func normalizeRoute(path string) string {
	switch {
	case path == "/nodes":
		return "/nodes"
	case strings.HasPrefix(path, "/nodes/"):
		return "/nodes/{id}"
	case path == "/ws", path == "/metrics", path == "/healthz", path == "/readyz":
		return path
	default:
		return "other"
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

// Hijack passes websocket upgrades through wrapped ResponseWriter.
func (rw *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}
