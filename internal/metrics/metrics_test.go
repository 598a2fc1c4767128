package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ScriptsLoaded.WithLabelValues("ok").Inc()
	m.Actions.WithLabelValues("keep").Add(2)
	m.CachedScripts.Set(3)
	m.EvaluationDuration.Observe(0.001)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScriptsLoaded.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Actions.WithLabelValues("keep")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.CachedScripts))

	err := testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP sieve_actions_total Total number of actions produced by evaluations
# TYPE sieve_actions_total counter
sieve_actions_total{action="keep"} 2
`), "sieve_actions_total")
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(reg, "sieve_evaluation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNewTwice(t *testing.T) {
	// Separate registries do not conflict.
	New(prometheus.NewRegistry())
	New(prometheus.NewRegistry())

	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
