package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomoris/NPBEE/bayesee"
)

func TestCollectorObserveSweep(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveSweep(bayesee.SweepStats{Phase: bayesee.PhaseBurnIn, ActiveClusters: 3, Duration: time.Millisecond})
	c.ObserveSweep(bayesee.SweepStats{Phase: bayesee.PhaseBurnIn, ActiveClusters: 2, Duration: time.Millisecond})
	c.ObserveSweep(bayesee.SweepStats{Phase: bayesee.PhaseRetained, ActiveClusters: 4, Duration: time.Millisecond})

	assert.Equal(t, 2.0, testutil.ToFloat64(c.sweeps.WithLabelValues("burn-in")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.sweeps.WithLabelValues("retained")))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.clusters))

	n, err := testutil.GatherAndCount(reg, "npbee_sweep_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCollectorCountsEverySweepOfARun(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	domains := []bayesee.DomainData{{
		Name:    "tiny",
		Outputs: [][]bool{{true, true}, {false, true}, {false, false}},
	}}
	cfg := bayesee.DefaultConfig()
	cfg.BurnInIterations = 4
	cfg.ThinningIterations = 1
	cfg.NumberOfSamples = 3

	_, err := bayesee.Estimate(context.Background(), domains, cfg, bayesee.WithObserver(c))
	require.NoError(t, err)

	assert.Equal(t, 4.0, testutil.ToFloat64(c.sweeps.WithLabelValues("burn-in")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.sweeps.WithLabelValues("thinning")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.sweeps.WithLabelValues("retained")))
}
