package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Downstream component labels.
const (
	ComponentScorer    = "scorer"
	ComponentRetriever = "retriever"
	ComponentGenerator = "generator"
	ComponentSummary   = "summary"
)

// Metrics exposes Prometheus collectors for interview activity.
// All methods are safe on a nil receiver.
type Metrics struct {
	sessionsStarted    *prometheus.CounterVec
	sessionsCompleted  *prometheus.CounterVec
	answers            *prometheus.CounterVec
	fallbacks          *prometheus.CounterVec
	downstreamDuration *prometheus.HistogramVec
}

// MustNewMetrics constructs and registers the collectors on reg. Tests should
// pass a fresh prometheus.NewRegistry() to avoid duplicate registration panics.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		sessionsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "interview",
			Name:      "sessions_started_total",
			Help:      "Interview sessions started, by role profile.",
		}, []string{"profile"}),
		sessionsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "interview",
			Name:      "sessions_completed_total",
			Help:      "Interview sessions that reached COMPLETED, by reason.",
		}, []string{"reason"}),
		answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "interview",
			Name:      "answers_total",
			Help:      "SubmitAnswer calls, by outcome code.",
		}, []string{"outcome"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "interview",
			Name:      "fallbacks_total",
			Help:      "Downstream calls resolved through a deterministic fallback.",
		}, []string{"component"}),
		downstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "interview",
			Name:      "downstream_duration_seconds",
			Help:      "Latency of generative model and retrieval calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"component", "status"}),
	}

	reg.MustRegister(m.sessionsStarted, m.sessionsCompleted, m.answers, m.fallbacks, m.downstreamDuration)
	return m
}

// SessionStarted counts a new session for the given profile id.
func (m *Metrics) SessionStarted(profile string) {
	if m == nil {
		return
	}
	m.sessionsStarted.WithLabelValues(profile).Inc()
}

// SessionCompleted counts a session reaching COMPLETED.
func (m *Metrics) SessionCompleted(reason string) {
	if m == nil {
		return
	}
	m.sessionsCompleted.WithLabelValues(reason).Inc()
}

// Answer counts one SubmitAnswer call by outcome code.
func (m *Metrics) Answer(outcome string) {
	if m == nil {
		return
	}
	m.answers.WithLabelValues(outcome).Inc()
}

// Fallback counts a downstream call resolved by its fallback.
func (m *Metrics) Fallback(component string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(component).Inc()
}

// ObserveDownstream records the duration of one remote call since start.
func (m *Metrics) ObserveDownstream(component string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.downstreamDuration.WithLabelValues(component, status).Observe(time.Since(start).Seconds())
}
