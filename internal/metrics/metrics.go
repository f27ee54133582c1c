// Package metrics provides Prometheus observability for the donation
// workflow.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the application's Prometheus collectors.  All methods
// are nil-safe so handlers can run without observability in tests.
type Metrics struct {
	// Registered accounts
	UsersRegistered prometheus.Counter

	// Blood requests created, labeled by blood type
	RequestsCreated *prometheus.CounterVec

	// Donor workflow outcomes by action: volunteered, approved,
	// rejected, completed
	DonorOutcome *prometheus.CounterVec

	// Requests that reached COMPLETED
	RequestsCompleted prometheus.Counter

	// Direct messages sent
	MessagesSent prometheus.Counter

	// Latency of the transactional donor workflow operations
	WorkflowLatency *prometheus.HistogramVec
}

// New creates a Metrics instance and registers every collector with the
// default registry.
func New() *Metrics {
	return &Metrics{
		UsersRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bloodshare_users_registered_total",
			Help: "Total number of registered accounts",
		}),
		RequestsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bloodshare_requests_created_total",
			Help: "Total blood requests created, by blood type",
		}, []string{"blood_type"}),
		DonorOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bloodshare_donor_outcomes_total",
			Help: "Donor workflow outcomes by action",
		}, []string{"action"}),
		RequestsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bloodshare_requests_completed_total",
			Help: "Blood requests that reached their needed unit count",
		}),
		MessagesSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bloodshare_messages_sent_total",
			Help: "Direct messages sent between users",
		}),
		WorkflowLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bloodshare_workflow_duration_seconds",
			Help:    "Duration of transactional donor workflow operations",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"operation"}), // operation: "volunteer", "approve", "reject", "complete"
	}
}

// IncrementUsersRegistered records a successful registration.
func (m *Metrics) IncrementUsersRegistered() {
	if m != nil {
		m.UsersRegistered.Inc()
	}
}

// IncrementRequestsCreated records a new blood request.
func (m *Metrics) IncrementRequestsCreated(bloodType string) {
	if m != nil {
		m.RequestsCreated.WithLabelValues(bloodType).Inc()
	}
}

// IncrementDonorOutcome records a donor workflow outcome.
func (m *Metrics) IncrementDonorOutcome(action string) {
	if m != nil {
		m.DonorOutcome.WithLabelValues(action).Inc()
	}
}

// IncrementRequestsCompleted records a request reaching COMPLETED.
func (m *Metrics) IncrementRequestsCompleted() {
	if m != nil {
		m.RequestsCompleted.Inc()
	}
}

// IncrementMessagesSent records a direct message.
func (m *Metrics) IncrementMessagesSent() {
	if m != nil {
		m.MessagesSent.Inc()
	}
}

// ObserveWorkflowLatency records the duration of a workflow operation.
func (m *Metrics) ObserveWorkflowLatency(operation string, d time.Duration) {
	if m != nil {
		m.WorkflowLatency.WithLabelValues(operation).Observe(d.Seconds())
	}
}
