package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager_RegistersInstruments(t *testing.T) {
	m, reg := NewTestManagerAndRegistry()

	m.CounterCommits.WithLabelValues(CommitSuccess).Inc()
	m.CounterSetsDropped.Add(3)
	m.GaugeSessionsActive.Set(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterCommits.WithLabelValues(CommitSuccess)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.CounterSetsDropped))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.GaugeSessionsActive))

	n, err := testutil.GatherAndCount(reg, "liftlog_test_commits_total", "liftlog_test_sets_dropped_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestNewTestManager_Independent(t *testing.T) {
	a := NewTestManager()
	b := NewTestManager()
	a.CounterSetsLogged.Inc()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.CounterSetsLogged))
}
