// Package metrics provides Prometheus metrics for the behavior perception service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Analysis result labels.
const (
	ResultSuccess = "success"
	ResultEmpty   = "empty"
	ResultFailure = "failure"
)

// Manager owns every Prometheus collector used by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Perception loop
	framesTotal            prometheus.Counter
	analysesTotal          *prometheus.CounterVec
	analysisLatency        prometheus.Histogram
	recognitionsAccepted   prometheus.Counter
	recognitionsSuppressed prometheus.Counter
	alertsTotal            *prometheus.CounterVec
	facesCurrent           prometheus.Gauge
	historySize            prometheus.Gauge
	sessionRunning         prometheus.Gauge
	sessionsTotal          *prometheus.CounterVec
	identitiesTracked      prometheus.Gauge

	// Export
	exportsTotal prometheus.Counter
	exportErrors prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// MQTT
	mqttPublished *prometheus.CounterVec
	mqttErrors    prometheus.Counter

	// Websocket
	wsClients prometheus.Gauge

	// System
	systemMemoryUsage   prometheus.Gauge
	systemGoroutines    prometheus.Gauge
	systemGCPauseMillis prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "behavior",
		subsystem:        "perception",
		histogramBuckets: []float64{10, 50, 100, 250, 500, 1000, 2000, 4000, 8000},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.framesTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "frames_total",
		Help: "Frames read from the frame source",
	})
	m.analysesTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "analyses_total",
		Help: "Analyzer invocations by result (success, empty, failure)",
	}, []string{"result"})
	m.analysisLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "analysis_latency_milliseconds",
		Help:    "Analyzer call latency in milliseconds",
		Buckets: m.histogramBuckets,
	})
	m.recognitionsAccepted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "recognitions_accepted_total",
		Help: "Identity matches that passed the confidence gate and cooldown",
	})
	m.recognitionsSuppressed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "recognitions_suppressed_total",
		Help: "Identity matches dropped by the confidence gate or cooldown",
	})
	m.alertsTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "alerts_total",
		Help: "Alerts fired by kind",
	}, []string{"kind"})
	m.facesCurrent = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "faces_current",
		Help: "Faces in the most recent analysis result",
	})
	m.historySize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "history_entries",
		Help: "Entries retained in the emotion history",
	})
	m.sessionRunning = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "session_running",
		Help: "1 while a perception session is running",
	})
	m.sessionsTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "sessions_total",
		Help: "Finished sessions by exit reason",
	}, []string{"reason"})
	m.identitiesTracked = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "recognitions",
		Name: "identities",
		Help: "Distinct identities in the recognition store",
	})

	m.exportsTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "export",
		Name: "files_total",
		Help: "History exports written",
	})
	m.exportErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "export",
		Name: "errors_total",
		Help: "History exports that failed",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "http",
		Name: "requests_total",
		Help: "HTTP requests by endpoint, method and status code",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "http",
		Name:    "request_duration_milliseconds",
		Help:    "HTTP request duration in milliseconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.mqttPublished = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "mqtt",
		Name: "published_total",
		Help: "Events published to the MQTT broker by topic",
	}, []string{"topic"})
	m.mqttErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "mqtt",
		Name: "errors_total",
		Help: "MQTT publish failures",
	})

	m.wsClients = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "http",
		Name: "websocket_clients",
		Help: "Connected snapshot stream clients",
	})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "system",
		Name: "memory_bytes",
		Help: "Heap bytes allocated",
	})
	m.systemGoroutines = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "system",
		Name: "goroutines",
		Help: "Number of goroutines",
	})
	m.systemGCPauseMillis = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "system",
		Name: "gc_pause_milliseconds",
		Help: "Average GC pause in milliseconds",
	})
}

// RecordFrame increments the frames counter.
func RecordFrame() { globalManager.framesTotal.Inc() }

// RecordAnalysis records one analyzer call with its result label and latency.
func RecordAnalysis(result string, latencyMs float64) {
	globalManager.analysesTotal.WithLabelValues(result).Inc()
	globalManager.analysisLatency.Observe(latencyMs)
}

// RecordRecognition records an accepted or suppressed identity match.
func RecordRecognition(accepted bool) {
	if accepted {
		globalManager.recognitionsAccepted.Inc()
		return
	}
	globalManager.recognitionsSuppressed.Inc()
}

// RecordAlert increments the alert counter for kind.
func RecordAlert(kind string) { globalManager.alertsTotal.WithLabelValues(kind).Inc() }

// UpdateFacesCurrent sets the current face count.
func UpdateFacesCurrent(n int) { globalManager.facesCurrent.Set(float64(n)) }

// UpdateHistorySize sets the history length.
func UpdateHistorySize(n int) { globalManager.historySize.Set(float64(n)) }

// UpdateSessionRunning flips the running gauge.
func UpdateSessionRunning(running bool) {
	if running {
		globalManager.sessionRunning.Set(1)
		return
	}
	globalManager.sessionRunning.Set(0)
}

// RecordSessionEnd counts a finished session by exit reason.
func RecordSessionEnd(reason string) { globalManager.sessionsTotal.WithLabelValues(reason).Inc() }

// UpdateIdentitiesTracked sets the number of identities in the recognition store.
func UpdateIdentitiesTracked(n int) { globalManager.identitiesTracked.Set(float64(n)) }

// RecordExport counts an export attempt.
func RecordExport(ok bool) {
	if ok {
		globalManager.exportsTotal.Inc()
		return
	}
	globalManager.exportErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordMQTTPublish records a publish attempt on topic.
func RecordMQTTPublish(topic string, ok bool) {
	if ok {
		globalManager.mqttPublished.WithLabelValues(topic).Inc()
		return
	}
	globalManager.mqttErrors.Inc()
}

// UpdateWebsocketClients sets the number of connected stream clients.
func UpdateWebsocketClients(n int) { globalManager.wsClients.Set(float64(n)) }

// UpdateSystemMemoryUsage sets the allocated heap size.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(n int) { globalManager.systemGoroutines.Set(float64(n)) }

// RecordSystemGCPauseTime sets the average GC pause.
func RecordSystemGCPauseTime(ms float64) { globalManager.systemGCPauseMillis.Set(ms) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
