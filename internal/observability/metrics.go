package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AgentMetrics are the prometheus counters/histograms the agent loop and
// its collaborators record against.
type AgentMetrics struct {
	RequestsTotal      *prometheus.CounterVec
	RequestDuration     *prometheus.HistogramVec
	StepOutcomesTotal   *prometheus.CounterVec
	AdaptAttemptsTotal  *prometheus.CounterVec
	ReuseHitsTotal      prometheus.Counter
	BreakerStateGauge   *prometheus.GaugeVec
}

// NewAgentMetrics registers the agent's metrics against reg (pass
// prometheus.DefaultRegisterer in production, a fresh registry in tests).
func NewAgentMetrics(reg prometheus.Registerer) *AgentMetrics {
	m := &AgentMetrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agent_requests_total",
			Help: "Total agent requests handled, by terminal status.",
		}, []string{"status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agent_request_duration_seconds",
			Help:    "End-to-end agent request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"status"}),
		StepOutcomesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agent_step_outcomes_total",
			Help: "Step execution outcomes, by outcome kind.",
		}, []string{"outcome"}),
		AdaptAttemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agent_adapt_attempts_total",
			Help: "Adaptation attempts made after a TOOL_ERROR, by result.",
		}, []string{"result"}),
		ReuseHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agent_procedure_reuse_hits_total",
			Help: "Plans substituted with a hydrated procedure above REUSE_THRESHOLD.",
		}),
		BreakerStateGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "agent_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open), by collaborator.",
		}, []string{"collaborator"}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.StepOutcomesTotal,
		m.AdaptAttemptsTotal,
		m.ReuseHitsTotal,
		m.BreakerStateGauge,
	)

	return m
}

// RecordRequest records a completed request's terminal status and latency.
func (m *AgentMetrics) RecordRequest(status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(status).Inc()
	m.RequestDuration.WithLabelValues(status).Observe(duration.Seconds())
}
