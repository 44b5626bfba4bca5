package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the intake router and session store.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Inbound messages by modality and outcome
	MessagesRouted *prometheus.CounterVec

	// Rejected inputs by field
	ValidationFailures *prometheus.CounterVec

	// Flows reaching their last step
	FlowCompletions *prometheus.CounterVec

	// Collaborator failures by collaborator name
	CollaboratorErrors *prometheus.CounterVec

	RouteLatency     prometheus.Histogram
	SessionsEvicted  prometheus.Counter
	DuplicateDropped prometheus.Counter
	RemindersSent    prometheus.Counter
}

// New registers every intake metric with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		MessagesRouted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_messages_routed_total",
			Help: "Inbound messages routed by modality and outcome",
		}, []string{"modality", "outcome"}), // outcome: "ok", "rejected", "error"

		ValidationFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_validation_failures_total",
			Help: "Inputs rejected by a step validator, by field",
		}, []string{"field"}),

		FlowCompletions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_flow_completions_total",
			Help: "Flows completed, by flow",
		}, []string{"flow"}),

		CollaboratorErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_collaborator_errors_total",
			Help: "Failing external collaborator calls",
		}, []string{"collaborator"}),

		RouteLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "intake_route_duration_seconds",
			Help:    "Duration of one routed message including collaborator calls",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),

		SessionsEvicted: f.NewCounter(prometheus.CounterOpts{
			Name: "intake_sessions_evicted_total",
			Help: "Sessions removed by the idle sweep",
		}),

		DuplicateDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "intake_duplicate_messages_total",
			Help: "Redelivered messages dropped by message ID",
		}),

		RemindersSent: f.NewCounter(prometheus.CounterOpts{
			Name: "intake_idle_reminders_total",
			Help: "Prompts re-sent to users who left a step unanswered",
		}),
	}
}

// ObserveRoute records one routed message.
func (m *Metrics) ObserveRoute(modality, outcome string, d time.Duration) {
	if m != nil {
		m.MessagesRouted.WithLabelValues(modality, outcome).Inc()
		m.RouteLatency.Observe(d.Seconds())
	}
}

// IncrementValidationFailure records a rejected input.
func (m *Metrics) IncrementValidationFailure(field string) {
	if m != nil {
		m.ValidationFailures.WithLabelValues(field).Inc()
	}
}

// IncrementCompletion records a completed flow.
func (m *Metrics) IncrementCompletion(flow string) {
	if m != nil {
		m.FlowCompletions.WithLabelValues(flow).Inc()
	}
}

// IncrementCollaboratorError records a failing collaborator call.
func (m *Metrics) IncrementCollaboratorError(name string) {
	if m != nil {
		m.CollaboratorErrors.WithLabelValues(name).Inc()
	}
}

// AddEvicted records sessions removed by one sweep.
func (m *Metrics) AddEvicted(n int) {
	if m != nil && n > 0 {
		m.SessionsEvicted.Add(float64(n))
	}
}

// IncrementDuplicate records a dropped redelivery.
func (m *Metrics) IncrementDuplicate() {
	if m != nil {
		m.DuplicateDropped.Inc()
	}
}

// IncrementReminder records a sent idle reminder.
func (m *Metrics) IncrementReminder() {
	if m != nil {
		m.RemindersSent.Inc()
	}
}
