// Package metrics counts handshakes, logins and operations with Prometheus.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Metrics holds Prometheus collectors for the CRM client.
type Metrics struct {
	logins     prometheus.Counter
	challenges *prometheus.CounterVec
	operations *prometheus.CounterVec
	logouts    *prometheus.CounterVec
}

// New creates a Metrics instance and registers it with registerer.
// If registerer is nil, prometheus.DefaultRegisterer is used.
func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		logins: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "vtiger",
				Name:      "logins_total",
				Help:      "Total number of successful logins",
			},
		),
		challenges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "vtiger",
				Name:      "challenges_total",
				Help:      "Total number of challenge token requests",
			},
			[]string{"status"},
		),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "vtiger",
				Name:      "operations_total",
				Help:      "Total number of dispatched CRM operations",
			},
			[]string{"operation", "status"},
		),
		logouts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "vtiger",
				Name:      "logouts_total",
				Help:      "Total number of logout requests",
			},
			[]string{"status"},
		),
	}

	registerer.MustRegister(
		m.logins,
		m.challenges,
		m.operations,
		m.logouts,
	)

	return m
}

// RecordLogin counts a successful login. Failed attempts are not counted.
func (m *Metrics) RecordLogin() {
	if m == nil {
		return
	}
	m.logins.Inc()
}

// RecordChallenge counts a challenge request attempt.
func (m *Metrics) RecordChallenge(success bool) {
	if m == nil {
		return
	}
	m.challenges.WithLabelValues(status(success)).Inc()
}

// RecordOperation counts a dispatched operation. success is the envelope's success flag.
func (m *Metrics) RecordOperation(operation string, success bool) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, status(success)).Inc()
}

// RecordLogout counts a logout request.
func (m *Metrics) RecordLogout(success bool) {
	if m == nil {
		return
	}
	m.logouts.WithLabelValues(status(success)).Inc()
}

func status(success bool) string {
	if success {
		return StatusSuccess
	}
	return StatusFailure
}
