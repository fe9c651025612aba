// Package metrics provides Prometheus metrics for the visage recognition service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// confidenceBuckets spans the useful range of the distance-derived confidence.
var confidenceBuckets = []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0}

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Recognition
	framesProcessed      prometheus.Counter
	framesDuplicate      prometheus.Counter
	framesEmpty          prometheus.Counter
	recognitions         *prometheus.CounterVec
	recognitionConf      prometheus.Histogram
	recognitionLatency   prometheus.Histogram
	resourceUnavailable  prometheus.Gauge
	supersededWithoutFbk prometheus.Counter

	// Learning
	feedbackTotal      *prometheus.CounterVec
	learningAccuracy   prometheus.Gauge
	adaptiveThresholds *prometheus.GaugeVec
	enrolledPeople     prometheus.Gauge
	enrollments        *prometheus.CounterVec

	// Storage
	storageLatency *prometheus.HistogramVec
	storageErrors  *prometheus.CounterVec
	storageCorrupt *prometheus.CounterVec

	// Frame queue / worker
	queueSize         prometheus.Gauge
	queueCapacity     prometheus.Gauge
	queueEnqueue      prometheus.Counter
	queueDequeue      prometheus.Counter
	queueRejected     *prometheus.CounterVec
	workerLatency     prometheus.Histogram
	workerErrors      prometheus.Counter
	workerLastFrameTS prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "visage",
		subsystem:        "recognition",
		histogramBuckets: prometheus.DefBuckets,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.customLabels}
}

func (m *Manager) gauge(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.customLabels}
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets, ConstLabels: m.customLabels}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of metric definitions
	auto := promauto.With(m.registry)

	m.framesProcessed = auto.NewCounter(m.counter("frames_processed_total", "Frames ticked through the recognition controller"))
	m.framesDuplicate = auto.NewCounter(m.counter("frames_duplicate_total", "Frames rejected because their id was already seen"))
	m.framesEmpty = auto.NewCounter(m.counter("frames_empty_total", "Frames that carried no detection"))
	m.recognitions = auto.NewCounterVec(m.counter("recognitions_total", "Recognition decisions by outcome"), []string{"outcome"})
	m.recognitionConf = auto.NewHistogram(m.histogram("confidence", "Distance-derived confidence of the best match", confidenceBuckets))
	m.recognitionLatency = auto.NewHistogram(m.histogram("tick_latency_milliseconds", "Time spent in one controller tick", m.histogramBuckets))
	m.resourceUnavailable = auto.NewGauge(m.gauge("resource_unavailable", "1 while the inference capability or frame source is unavailable"))
	m.supersededWithoutFbk = auto.NewCounter(m.counter("results_superseded_total", "Open results replaced by a new detection before feedback"))

	m.feedbackTotal = auto.NewCounterVec(m.counter("feedback_total", "Feedback records by type"), []string{"type"})
	m.learningAccuracy = auto.NewGauge(m.gauge("learning_accuracy", "Confirmed / total feedback, -1 when no feedback"))
	m.adaptiveThresholds = auto.NewGaugeVec(m.gauge("adaptive_threshold", "Per-person adaptive acceptance threshold"), []string{"person"})
	m.enrolledPeople = auto.NewGauge(m.gauge("enrolled_people", "People in the descriptor store"))
	m.enrollments = auto.NewCounterVec(m.counter("enrollments_total", "Enrollments by origin"), []string{"origin"})

	m.storageLatency = auto.NewHistogramVec(m.histogram("storage_latency_milliseconds", "Persistence latency by operation", m.histogramBuckets), []string{"op"})
	m.storageErrors = auto.NewCounterVec(m.counter("storage_errors_total", "Persistence failures by operation"), []string{"op"})
	m.storageCorrupt = auto.NewCounterVec(m.counter("storage_corrupt_total", "Persisted records that failed to decode and were reset"), []string{"key"})

	m.queueSize = auto.NewGauge(m.gauge("frame_queue_size", "Frames waiting in the intake queue"))
	m.queueCapacity = auto.NewGauge(m.gauge("frame_queue_capacity", "Capacity of the intake queue"))
	m.queueEnqueue = auto.NewCounter(m.counter("frame_queue_enqueued_total", "Frames accepted by the intake queue"))
	m.queueDequeue = auto.NewCounter(m.counter("frame_queue_dequeued_total", "Frames handed to the worker"))
	m.queueRejected = auto.NewCounterVec(m.counter("frame_queue_rejected_total", "Frames rejected by the intake queue"), []string{"reason"})
	m.workerLatency = auto.NewHistogram(m.histogram("worker_latency_milliseconds", "Frame processing latency in the worker", m.histogramBuckets))
	m.workerErrors = auto.NewCounter(m.counter("worker_errors_total", "Frames the worker failed to process"))
	m.workerLastFrameTS = auto.NewGauge(m.gauge("worker_last_frame_unix", "Unix time of the last processed frame"))

	m.httpRequests = auto.NewCounterVec(m.counter("http_requests_total", "HTTP requests by endpoint, method and status"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogram("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets), []string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = auto.NewCounterVec(m.counter("errors_by_component_total", "Errors by component and type"), []string{"component", "error_type"})
	m.errorRateByEndpoint = auto.NewCounterVec(m.counter("errors_by_endpoint_total", "Errors by endpoint, method and type"), []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gauge("system_memory_usage_bytes", "Heap allocation in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gauge("system_goroutine_count", "Number of goroutines"))
}

// RecordFrameProcessed increments the processed frame counter.
func RecordFrameProcessed() { globalManager.framesProcessed.Inc() }

// RecordFrameDuplicate increments the duplicate frame counter.
func RecordFrameDuplicate() { globalManager.framesDuplicate.Inc() }

// RecordFrameEmpty counts a frame without detections.
func RecordFrameEmpty() { globalManager.framesEmpty.Inc() }

// RecordRecognition records one decision ("known" or "unknown") and its confidence.
func RecordRecognition(outcome string, confidence float64) {
	globalManager.recognitions.WithLabelValues(outcome).Inc()
	globalManager.recognitionConf.Observe(confidence)
}

// RecordTickLatency records controller tick latency in milliseconds.
func RecordTickLatency(ms float64) { globalManager.recognitionLatency.Observe(ms) }

// SetResourceUnavailable flips the unavailable gauge.
func SetResourceUnavailable(down bool) {
	if down {
		globalManager.resourceUnavailable.Set(1)
		return
	}
	globalManager.resourceUnavailable.Set(0)
}

// RecordResultSuperseded counts an open result dropped without feedback.
func RecordResultSuperseded() { globalManager.supersededWithoutFbk.Inc() }

// RecordFeedback counts a feedback record by type.
func RecordFeedback(kind string) { globalManager.feedbackTotal.WithLabelValues(kind).Inc() }

// UpdateLearningAccuracy sets the accuracy gauge.
func UpdateLearningAccuracy(accuracy float64) { globalManager.learningAccuracy.Set(accuracy) }

// UpdateAdaptiveThreshold sets the threshold gauge for one person.
func UpdateAdaptiveThreshold(person string, value float64) {
	globalManager.adaptiveThresholds.WithLabelValues(person).Set(value)
}

// ResetAdaptiveThresholds drops every per-person threshold series.
func ResetAdaptiveThresholds() { globalManager.adaptiveThresholds.Reset() }

// UpdateEnrolledPeople sets the descriptor store size.
func UpdateEnrolledPeople(count int) { globalManager.enrolledPeople.Set(float64(count)) }

// RecordEnrollment counts an enrollment ("manual", "correction", "descriptor").
func RecordEnrollment(origin string) { globalManager.enrollments.WithLabelValues(origin).Inc() }

// RecordStorageLatency records persistence latency for op ("load", "save", "delete").
func RecordStorageLatency(op string, ms float64) {
	globalManager.storageLatency.WithLabelValues(op).Observe(ms)
}

// RecordStorageError counts a persistence failure.
func RecordStorageError(op string) { globalManager.storageErrors.WithLabelValues(op).Inc() }

// RecordStorageCorrupt counts a persisted record that was discarded on load.
func RecordStorageCorrupt(key string) { globalManager.storageCorrupt.WithLabelValues(key).Inc() }

// UpdateQueueSize sets the current intake queue length.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the intake queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// RecordQueueEnqueue counts an accepted frame.
func RecordQueueEnqueue() { globalManager.queueEnqueue.Inc() }

// RecordQueueDequeue counts a frame handed to the worker.
func RecordQueueDequeue() { globalManager.queueDequeue.Inc() }

// RecordQueueRejected counts a frame refused by the queue.
func RecordQueueRejected(reason string) { globalManager.queueRejected.WithLabelValues(reason).Inc() }

// RecordWorkerLatency records worker processing latency in milliseconds.
func RecordWorkerLatency(ms float64) { globalManager.workerLatency.Observe(ms) }

// RecordWorkerError counts a frame the worker failed on.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// UpdateWorkerLastFrame stamps the last processed frame time.
func UpdateWorkerLastFrame(unix float64) { globalManager.workerLastFrameTS.Set(unix) }

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap allocation in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
