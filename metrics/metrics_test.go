package metrics_test

import (
	"testing"

	"github.com/jrsteele09/go-vtiger/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.RecordLogin()
	m.RecordLogin()
	m.RecordChallenge(true)
	m.RecordChallenge(false)
	m.RecordOperation("query", true)
	m.RecordLogout(false)

	count, err := testutil.GatherAndCount(reg,
		"vtiger_logins_total",
		"vtiger_challenges_total",
		"vtiger_operations_total",
		"vtiger_logouts_total",
	)
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == "vtiger_logins_total" {
			assert.Equal(t, float64(2), mf.GetMetric()[0].GetCounter().GetValue())
		}
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.RecordLogin()
		m.RecordChallenge(true)
		m.RecordOperation("query", false)
		m.RecordLogout(true)
	})
}
