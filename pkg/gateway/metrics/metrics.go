// Package metrics exposes the gateway's Prometheus instrumentation on a
// private registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SmithaBalakrishna/AI-Doctor-Voicebot/pkg/core"
)

// Consultation outcomes recorded on the counters.
const (
	OutcomeOK       = "ok"
	OutcomeDegraded = "degraded"
	OutcomeNoAudio  = "no_audio"
	OutcomeError    = "error"
)

// Pipeline stage labels for error counters.
const (
	StageTranscription = "transcription"
	StageReply         = "reply"
	StageSynthesis     = "synthesis"
)

// Transfer directions for audio byte counters.
const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

// Metrics holds all Prometheus metrics for the gateway.
type Metrics struct {
	registry *prometheus.Registry

	ConsultationsTotal   *prometheus.CounterVec
	ConsultationDuration *prometheus.HistogramVec
	StageErrorsTotal     *prometheus.CounterVec
	AudioBytesTotal      *prometheus.CounterVec
}

// New creates a Metrics instance with all collectors registered.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "voicebot"
	}

	registry := prometheus.NewRegistry()

	consultationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consultations_total",
			Help:      "Total number of consultations by outcome",
		},
		[]string{"outcome"},
	)

	consultationDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "consultation_duration_seconds",
			Help:      "End-to-end consultation duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"outcome"},
	)

	stageErrorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_errors_total",
			Help:      "Total number of pipeline stage errors",
		},
		[]string{"stage", "error_type"},
	)

	audioBytesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_total",
			Help:      "Total audio bytes moved through the gateway",
		},
		[]string{"direction"},
	)

	registry.MustRegister(
		consultationsTotal,
		consultationDuration,
		stageErrorsTotal,
		audioBytesTotal,
	)

	return &Metrics{
		registry:             registry,
		ConsultationsTotal:   consultationsTotal,
		ConsultationDuration: consultationDuration,
		StageErrorsTotal:     stageErrorsTotal,
		AudioBytesTotal:      audioBytesTotal,
	}
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordConsultation records a completed consultation.
func (m *Metrics) RecordConsultation(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ConsultationsTotal.WithLabelValues(outcome).Inc()
	m.ConsultationDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordStageError records a pipeline stage failure, labeled with the
// taxonomy type when the error carries one.
func (m *Metrics) RecordStageError(stage string, err error) {
	if m == nil {
		return
	}
	errorType := string(core.TypeOf(err))
	if errorType == "" {
		errorType = "unknown"
	}
	m.StageErrorsTotal.WithLabelValues(stage, errorType).Inc()
}

// RecordAudioBytes records audio payload volume, direction "in" or "out".
func (m *Metrics) RecordAudioBytes(direction string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.AudioBytesTotal.WithLabelValues(direction).Add(float64(n))
}
