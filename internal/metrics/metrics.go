// Package metrics exposes Prometheus collectors for interview sessions.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "interview"

// Recorder owns a private registry so tests can build as many as they need.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	sessionsStarted  prometheus.Counter
	sessionsFinished *prometheus.CounterVec
	sessionsActive   prometheus.Gauge
	sessionDuration  *prometheus.HistogramVec
	utterances       *prometheus.CounterVec
	answers          prometheus.Counter
	unclaimed        *prometheus.CounterVec
}

// New builds a Recorder with all collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Total number of interview sessions started",
		}),
		sessionsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_finished_total",
			Help:      "Total number of interview sessions that ended, by terminal state",
		}, []string{"state"}), // state: completed, aborted
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of interview sessions currently running",
		}),
		sessionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Wall-clock duration of interview sessions in seconds",
			Buckets:   []float64{30, 60, 120, 300, 600, 900, 1200, 1800, 3600},
		}, []string{"state"}),
		utterances: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "utterances_total",
			Help:      "Total number of utterances spoken by the interviewer",
		}, []string{"kind"}), // kind: say, ask, reply
		answers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_captured_total",
			Help:      "Total number of participant answers captured by the script",
		}),
		unclaimed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unclaimed_transcripts_total",
			Help:      "Transcripts that arrived while the script was not listening",
		}, []string{"outcome"}), // outcome: replied, dropped
	}

	r.registry.MustRegister(
		r.sessionsStarted,
		r.sessionsFinished,
		r.sessionsActive,
		r.sessionDuration,
		r.utterances,
		r.answers,
		r.unclaimed,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) SessionStarted() {
	if r == nil {
		return
	}
	r.sessionsStarted.Inc()
	r.sessionsActive.Inc()
}

func (r *Recorder) SessionFinished(state string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.sessionsActive.Dec()
	r.sessionsFinished.WithLabelValues(state).Inc()
	r.sessionDuration.WithLabelValues(state).Observe(elapsed.Seconds())
}

func (r *Recorder) Utterance(kind string) {
	if r == nil {
		return
	}
	r.utterances.WithLabelValues(kind).Inc()
}

func (r *Recorder) AnswerCaptured() {
	if r == nil {
		return
	}
	r.answers.Inc()
}

func (r *Recorder) Unclaimed(outcome string) {
	if r == nil {
		return
	}
	r.unclaimed.WithLabelValues(outcome).Inc()
}
