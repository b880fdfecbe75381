// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "scam_guard"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Session metrics
	SessionsTotal    prometheus.Counter
	SessionsActive   prometheus.Gauge
	SessionsRejected prometheus.Counter
	SessionsReaped   prometheus.Counter
	SessionDuration  prometheus.Histogram

	// Chunk metrics
	ChunksReceived *prometheus.CounterVec
	ChunksDropped  *prometheus.CounterVec
	ChunkBytes     *prometheus.CounterVec
	DecodeErrors   *prometheus.CounterVec

	// Verdict metrics
	VerdictsEmitted *prometheus.CounterVec
	VerdictLatency  *prometheus.HistogramVec
	InFlight        prometheus.Gauge
	FlightOverlaps  prometheus.Counter

	// Port metrics
	STTLatency        *prometheus.HistogramVec
	STTErrors         *prometheus.CounterVec
	ClassifierLatency *prometheus.HistogramVec
	ClassifierErrors  *prometheus.CounterVec

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec

	// gRPC metrics
	GRPCCalls *prometheus.CounterVec

	// Debug archive metrics
	ArchiveWrites *prometheus.CounterVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
// It registers against the default registerer and must only be called once per process.
func NewMetrics() *Metrics {
	return &Metrics{
		// Session metrics
		SessionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of sessions opened",
		}),
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of currently live sessions",
		}),
		SessionsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_rejected_total",
			Help:      "Total number of sessions rejected because the registry was full",
		}),
		SessionsReaped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_reaped_total",
			Help:      "Total number of sessions closed for inactivity",
		}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Duration of sessions in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		}),

		// Chunk metrics
		ChunksReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_received_total",
			Help:      "Total number of decoded chunks accepted for processing",
		}, []string{"kind"}),
		ChunksDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_dropped_total",
			Help:      "Total number of pending chunks superseded by a newer chunk of the same kind",
		}, []string{"kind"}),
		ChunkBytes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunk_bytes_total",
			Help:      "Total payload bytes received",
		}, []string{"kind"}),
		DecodeErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Total number of inbound frames that failed to decode",
		}, []string{"reason"}),

		// Verdict metrics
		VerdictsEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verdicts_emitted_total",
			Help:      "Total number of verdicts sent to clients",
		}, []string{"status"}),
		VerdictLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "verdict_latency_seconds",
			Help:      "Time from chunk acceptance to verdict emission",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"kind"}),
		InFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "classifications_in_flight",
			Help:      "Number of sessions with a chunk currently being processed",
		}),
		FlightOverlaps: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flight_overlaps_total",
			Help:      "Chunks started while the session already had one in flight",
		}),

		// Port metrics
		STTLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stt_latency_seconds",
			Help:      "Speech-to-text call latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"provider"}),
		STTErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stt_errors_total",
			Help:      "Total number of speech-to-text failures",
		}, []string{"provider", "reason"}),
		ClassifierLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "classifier_latency_seconds",
			Help:      "Classifier call latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"provider"}),
		ClassifierErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifier_errors_total",
			Help:      "Total number of classifier failures",
		}, []string{"provider", "reason"}),

		// Kafka publish metrics
		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),

		GRPCCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_calls_total",
			Help:      "Total number of gRPC calls handled",
		}, []string{"method", "code"}),

		ArchiveWrites: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_writes_total",
			Help:      "Total number of debug audio archive uploads",
		}, []string{"result"}),
	}
}

// RecordSessionStart records a new session opening.
func (m *Metrics) RecordSessionStart() {
	m.SessionsTotal.Inc()
	m.SessionsActive.Inc()
}

// RecordSessionEnd records a session being released.
func (m *Metrics) RecordSessionEnd(durationSeconds float64) {
	m.SessionsActive.Dec()
	m.SessionDuration.Observe(durationSeconds)
}

// RecordSessionRejected records a session refused at capacity.
func (m *Metrics) RecordSessionRejected() {
	m.SessionsRejected.Inc()
}

// RecordSessionReaped records a session closed for inactivity.
func (m *Metrics) RecordSessionReaped() {
	m.SessionsReaped.Inc()
}

// RecordChunk records an accepted chunk.
func (m *Metrics) RecordChunk(kind string, bytes int) {
	m.ChunksReceived.WithLabelValues(kind).Inc()
	m.ChunkBytes.WithLabelValues(kind).Add(float64(bytes))
}

// RecordChunkDropped records a pending chunk overwritten before processing.
func (m *Metrics) RecordChunkDropped(kind string) {
	m.ChunksDropped.WithLabelValues(kind).Inc()
}

// RecordDecodeError records a frame that could not be decoded.
func (m *Metrics) RecordDecodeError(reason string) {
	m.DecodeErrors.WithLabelValues(reason).Inc()
}

// RecordVerdict records an emitted verdict.
func (m *Metrics) RecordVerdict(status, kind string, latencySeconds float64) {
	m.VerdictsEmitted.WithLabelValues(status).Inc()
	m.VerdictLatency.WithLabelValues(kind).Observe(latencySeconds)
}

// RecordFlightStart records a session starting work on a chunk.
func (m *Metrics) RecordFlightStart() {
	m.InFlight.Inc()
}

// RecordFlightOverlap records a chunk started while another was still in flight.
func (m *Metrics) RecordFlightOverlap() {
	m.FlightOverlaps.Inc()
}

// RecordFlightEnd records a session finishing work on a chunk.
func (m *Metrics) RecordFlightEnd() {
	m.InFlight.Dec()
}

// RecordSTT records a speech-to-text call.
func (m *Metrics) RecordSTT(provider string, latencySeconds float64, reason string) {
	m.STTLatency.WithLabelValues(provider).Observe(latencySeconds)
	if reason != "" {
		m.STTErrors.WithLabelValues(provider, reason).Inc()
	}
}

// RecordClassification records a classifier call.
func (m *Metrics) RecordClassification(provider string, latencySeconds float64, reason string) {
	m.ClassifierLatency.WithLabelValues(provider).Observe(latencySeconds)
	if reason != "" {
		m.ClassifierErrors.WithLabelValues(provider, reason).Inc()
	}
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}

// RecordGRPCCall records a handled gRPC call.
func (m *Metrics) RecordGRPCCall(method, code string) {
	m.GRPCCalls.WithLabelValues(method, code).Inc()
}

// RecordArchiveWrite records a debug archive upload.
func (m *Metrics) RecordArchiveWrite(err error) {
	if err != nil {
		m.ArchiveWrites.WithLabelValues("error").Inc()
		return
	}
	m.ArchiveWrites.WithLabelValues("ok").Inc()
}
