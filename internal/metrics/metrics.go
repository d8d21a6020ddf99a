// Package metrics holds the Prometheus collectors for the auth service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels shared by the auth operation counters.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeError   = "error"
)

// AuthOperations counts register, login, reset and whoami calls by outcome.
var AuthOperations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "auth_operations_total",
		Help: "Total number of auth operations by outcome",
	},
	[]string{"operation", "outcome"},
)

// TokenVerifications counts token checks by result kind (ok, malformed, invalid, expired, reused).
var TokenVerifications = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "auth_token_verifications_total",
		Help: "Total number of token verifications by result",
	},
	[]string{"type", "result"},
)

// HashDuration observes time spent in bcrypt, including the wait for a worker slot.
var HashDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "auth_password_hash_duration_seconds",
		Help:    "Password hash and verify duration in seconds",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	},
	[]string{"op"},
)

// MailDeliveries counts reset notification attempts by outcome.
var MailDeliveries = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "auth_mail_deliveries_total",
		Help: "Total number of reset notification deliveries by outcome",
	},
	[]string{"outcome"},
)

// RegisterMetrics registers every collector with reg. Panics on duplicate registration.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(AuthOperations)
	reg.MustRegister(TokenVerifications)
	reg.MustRegister(HashDuration)
	reg.MustRegister(MailDeliveries)
}

func RecordOperation(operation, outcome string) {
	AuthOperations.WithLabelValues(operation, outcome).Inc()
}

func RecordTokenVerification(tokenType, result string) {
	TokenVerifications.WithLabelValues(tokenType, result).Inc()
}

func RecordHashDuration(op string, d time.Duration) {
	HashDuration.WithLabelValues(op).Observe(d.Seconds())
}

func RecordMailDelivery(outcome string) {
	MailDeliveries.WithLabelValues(outcome).Inc()
}
