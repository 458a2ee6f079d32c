package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the centralized Prometheus metrics surface for the agent.
// It tracks request throughput per skill, conversation session pressure,
// backend query latency, intent-resolution behavior, field formatting
// outcomes, and usage-log durability.
//
// Usage:
//
//	metrics := observability.NewMetrics()
//	defer metrics.RequestDuration("query.search_records").ObserveDuration()()
//	metrics.RecordRequest("query.search_records", "ok")
type Metrics struct {
	// RequestCounter counts orchestrator requests by skill and outcome.
	// Labels: skill, status (ok|error|denied)
	RequestCounter *prometheus.CounterVec

	// RequestDurationSeconds measures end-to-end request latency.
	// Labels: skill
	RequestDurationHist *prometheus.HistogramVec

	// ActiveSessions is a gauge of conversation sessions currently held
	// in the session store.
	ActiveSessions prometheus.Gauge

	// BitableQueryDuration measures backend query latency.
	// Labels: operation (list_records|search_records|create_record|...)
	BitableQueryDuration *prometheus.HistogramVec

	// IntentParseDuration measures how long intent resolution took.
	// Labels: method (rule|planner|keyword)
	IntentParseDuration *prometheus.HistogramVec

	// QuerySemanticConfidence records the confidence score assigned to
	// semantic slot extraction attempts.
	QuerySemanticConfidence prometheus.Histogram

	// QueryResolutionCounter counts which pipeline stage resolved a
	// query and whether it succeeded.
	// Labels: source (planner|rule|semantic|keyword|date_range|exact|bare|scan), status (ok|error)
	QueryResolutionCounter *prometheus.CounterVec

	// QuerySemanticFallbackCounter counts falls back from semantic slot
	// extraction to a lower-confidence stage, by reason.
	// Labels: reason (low_confidence|no_match|llm_error)
	QuerySemanticFallbackCounter *prometheus.CounterVec

	// FieldFormatCounter counts field coercions by field type and
	// outcome.
	// Labels: type, status (ok|error)
	FieldFormatCounter *prometheus.CounterVec

	// UsageLogWrites counts usage log append attempts by result.
	// Labels: result (ok|error)
	UsageLogWrites *prometheus.CounterVec

	// ErrorCounter tracks errors by component and error code.
	// Labels: component, error_code
	ErrorCounter *prometheus.CounterVec

	// CostGuardDecisions counts cost-guard admission decisions.
	// Labels: skill, decision (allow|deny|circuit_open)
	CostGuardDecisions *prometheus.CounterVec

	// PendingActionOutcomes counts how pending actions are resolved.
	// Labels: outcome (confirmed|cancelled|expired|mismatched)
	PendingActionOutcomes *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics against the
// default registry. Call once at startup.
func NewMetrics() *Metrics {
	return &Metrics{
		RequestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentd_requests_total",
				Help: "Total number of orchestrator requests by skill and status",
			},
			[]string{"skill", "status"},
		),

		RequestDurationHist: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agentd_request_duration_seconds",
				Help:    "End-to-end request latency by skill",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"skill"},
		),

		ActiveSessions: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "agentd_active_sessions",
				Help: "Current number of conversation sessions held in the session store",
			},
		),

		BitableQueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agentd_bitable_query_latency_seconds",
				Help:    "Backend query latency by operation",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"operation"},
		),

		IntentParseDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agentd_intent_parse_duration_seconds",
				Help:    "Duration of intent resolution by method",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method"},
		),

		QuerySemanticConfidence: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "agentd_query_semantic_confidence",
				Help:    "Confidence score assigned to semantic slot extraction",
				Buckets: prometheus.LinearBuckets(0, 0.1, 11),
			},
		),

		QueryResolutionCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentd_query_resolution_total",
				Help: "Query pipeline resolutions by source stage and status",
			},
			[]string{"source", "status"},
		),

		QuerySemanticFallbackCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentd_query_semantic_fallback_total",
				Help: "Fallbacks away from semantic slot extraction by reason",
			},
			[]string{"reason"},
		),

		FieldFormatCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentd_field_format_total",
				Help: "Field value formatting attempts by field type and status",
			},
			[]string{"type", "status"},
		),

		UsageLogWrites: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentd_usage_log_writes_total",
				Help: "Usage log append attempts by result",
			},
			[]string{"result"},
		),

		ErrorCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentd_errors_total",
				Help: "Total number of errors by component and error code",
			},
			[]string{"component", "error_code"},
		),

		CostGuardDecisions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentd_cost_guard_decisions_total",
				Help: "Cost guard admission decisions by skill and decision",
			},
			[]string{"skill", "decision"},
		),

		PendingActionOutcomes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentd_pending_action_outcomes_total",
				Help: "Pending action resolutions by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// RecordRequest increments the request counter for a skill and outcome.
func (m *Metrics) RecordRequest(skill, status string) {
	m.RequestCounter.WithLabelValues(skill, status).Inc()
}

// ObserveRequestDuration records end-to-end request latency for a skill.
func (m *Metrics) ObserveRequestDuration(skill string, seconds float64) {
	m.RequestDurationHist.WithLabelValues(skill).Observe(seconds)
}

// SessionStarted increments the active sessions gauge.
func (m *Metrics) SessionStarted() {
	m.ActiveSessions.Inc()
}

// SessionEnded decrements the active sessions gauge.
func (m *Metrics) SessionEnded() {
	m.ActiveSessions.Dec()
}

// SetActiveSessions sets the active sessions gauge directly, used after a
// sweep recomputes the live session count.
func (m *Metrics) SetActiveSessions(n int) {
	m.ActiveSessions.Set(float64(n))
}

// RecordBitableQuery records backend query latency for an operation.
func (m *Metrics) RecordBitableQuery(operation string, seconds float64) {
	m.BitableQueryDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordIntentParse records how long a resolution method took.
func (m *Metrics) RecordIntentParse(method string, seconds float64) {
	m.IntentParseDuration.WithLabelValues(method).Observe(seconds)
}

// RecordQuerySemanticConfidence records a semantic slot extraction
// confidence score in [0,1].
func (m *Metrics) RecordQuerySemanticConfidence(confidence float64) {
	m.QuerySemanticConfidence.Observe(confidence)
}

// RecordQueryResolution records which pipeline stage resolved a query.
func (m *Metrics) RecordQueryResolution(source, status string) {
	m.QueryResolutionCounter.WithLabelValues(source, status).Inc()
}

// RecordQuerySemanticFallback records a fallback away from semantic slot
// extraction, with the reason it was abandoned.
func (m *Metrics) RecordQuerySemanticFallback(reason string) {
	m.QuerySemanticFallbackCounter.WithLabelValues(reason).Inc()
}

// RecordFieldFormat records a field coercion attempt.
func (m *Metrics) RecordFieldFormat(fieldType, status string) {
	m.FieldFormatCounter.WithLabelValues(fieldType, status).Inc()
}

// RecordUsageLogWrite records a usage log append attempt.
func (m *Metrics) RecordUsageLogWrite(result string) {
	m.UsageLogWrites.WithLabelValues(result).Inc()
}

// RecordError increments the error counter for a component and code.
func (m *Metrics) RecordError(component, errorCode string) {
	m.ErrorCounter.WithLabelValues(component, errorCode).Inc()
}

// RecordCostGuardDecision records a cost guard admission decision.
func (m *Metrics) RecordCostGuardDecision(skill, decision string) {
	m.CostGuardDecisions.WithLabelValues(skill, decision).Inc()
}

// RecordPendingActionOutcome records how a pending action was resolved.
func (m *Metrics) RecordPendingActionOutcome(outcome string) {
	m.PendingActionOutcomes.WithLabelValues(outcome).Inc()
}
