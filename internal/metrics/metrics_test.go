package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NotPanics(t, func() { RegisterMetrics(reg) })
	assert.Panics(t, func() { RegisterMetrics(reg) })
}

func TestRecordOperation(t *testing.T) {
	before := testutil.ToFloat64(AuthOperations.WithLabelValues("login", OutcomeFailure))
	RecordOperation("login", OutcomeFailure)
	after := testutil.ToFloat64(AuthOperations.WithLabelValues("login", OutcomeFailure))
	assert.InDelta(t, 1, after-before, 0.0001)
}

func TestRecordTokenVerification(t *testing.T) {
	before := testutil.ToFloat64(TokenVerifications.WithLabelValues("reset", "expired"))
	RecordTokenVerification("reset", "expired")
	after := testutil.ToFloat64(TokenVerifications.WithLabelValues("reset", "expired"))
	assert.InDelta(t, 1, after-before, 0.0001)
}

func TestRecordHashDuration(t *testing.T) {
	RecordHashDuration("verify", 120*time.Millisecond)
	assert.GreaterOrEqual(t, testutil.CollectAndCount(HashDuration, "auth_password_hash_duration_seconds"), 1)
}
