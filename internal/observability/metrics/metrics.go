package metrics

import "github.com/prometheus/client_golang/prometheus"

// ProviderLatencyMetricName is referenced by the clinic dashboard when it
// summarizes latency from the gatherer.
const ProviderLatencyMetricName = "sokrates_intake_provider_latency_seconds"

// IntakeMetrics exposes counters/histograms for the session lifecycle.
type IntakeMetrics struct {
	providerRequests *prometheus.CounterVec
	providerLatency  *prometheus.HistogramVec
	sessionsStarted  prometheus.Counter
	sessionsDone     prometheus.Counter
	ratingsSubmitted *prometheus.CounterVec
}

// NewIntakeMetrics registers the intake metric set.
func NewIntakeMetrics(reg prometheus.Registerer) *IntakeMetrics {
	m := &IntakeMetrics{
		providerRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sokrates",
			Subsystem: "intake",
			Name:      "provider_requests_total",
			Help:      "Total conversation provider calls",
		}, []string{"operation", "status"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sokrates",
			Subsystem: "intake",
			Name:      "provider_latency_seconds",
			Help:      "Latency of conversation provider calls",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		}, []string{"operation"}),
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sokrates",
			Subsystem: "intake",
			Name:      "sessions_started_total",
			Help:      "Total sessions created",
		}),
		sessionsDone: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sokrates",
			Subsystem: "intake",
			Name:      "sessions_completed_total",
			Help:      "Total sessions completed with an anamnesis",
		}),
		ratingsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sokrates",
			Subsystem: "intake",
			Name:      "ratings_submitted_total",
			Help:      "Total patient ratings by score",
		}, []string{"score"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.providerRequests, m.providerLatency, m.sessionsStarted, m.sessionsDone, m.ratingsSubmitted)
	return m
}

func (m *IntakeMetrics) ObserveProviderCall(operation, status string, seconds float64) {
	if m == nil {
		return
	}
	m.providerRequests.WithLabelValues(operation, status).Inc()
	m.providerLatency.WithLabelValues(operation).Observe(seconds)
}

func (m *IntakeMetrics) SessionStarted() {
	if m == nil {
		return
	}
	m.sessionsStarted.Inc()
}

func (m *IntakeMetrics) SessionCompleted() {
	if m == nil {
		return
	}
	m.sessionsDone.Inc()
}

func (m *IntakeMetrics) RatingSubmitted(score string) {
	if m == nil {
		return
	}
	m.ratingsSubmitted.WithLabelValues(score).Inc()
}
