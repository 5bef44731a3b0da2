package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tristereo/molecule"
	"tristereo/stereo"
)

func TestNewLogger(t *testing.T) {
	l, err := NewLogger("warn", "console", false)
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(-1)) // debug off

	l, err = NewLogger("warn", "json", true)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(-1))

	_, err = NewLogger("shout", "json", false)
	assert.Error(t, err)
}

func TestCollectorObserveAnalysis(t *testing.T) {
	c := NewCollector("tristereo_test")
	mol, err := molecule.ParseSMILES("OC(=O)C(O)C(O)C(=O)O")
	require.NoError(t, err)
	a, err := stereo.Analyze(context.Background(), mol, stereo.WithWorkers(1))
	require.NoError(t, err)

	c.ObserveAnalysis(a, nil, 3*time.Millisecond)
	c.ObserveAnalysis(nil, &stereo.CapError{Features: 20, Candidates: 1 << 20, Cap: 4096}, time.Millisecond)
	c.ObserveAnalysis(nil, errors.New("boom"), time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.Analyses.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Analyses.WithLabelValues("capped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Analyses.WithLabelValues("error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.Candidates.WithLabelValues("kept")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Candidates.WithLabelValues("duplicate")))

	n, err := testutil.GatherAndCount(c.Registry(), "tristereo_test_analyses_total")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
