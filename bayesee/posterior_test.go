package bayesee

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoDomainSamples() []Sample {
	return []Sample{
		{
			LabelPriors:    []float64{0.3, 0.6},
			ItemErrorRates: []float64{0.8, 0.7, 0.1, 0.1, 0.2, 0.9},
			Assignments:    []int{0, 0, 1, 1, 2, 3},
			ClusterRates:   []ClusterRate{{0, 0.8, 2}, {1, 0.1, 2}, {2, 0.2, 1}, {3, 0.9, 1}},
			Labels:         [][]bool{{true, false}, {true, true}},
		},
		{
			LabelPriors:    []float64{0.5, 0.4},
			ItemErrorRates: []float64{0.6, 0.9, 0.3, 0.3, 0.2, 0.9},
			Assignments:    []int{0, 1, 2, 2, 3, 4},
			ClusterRates:   []ClusterRate{{0, 0.6, 1}, {1, 0.9, 1}, {2, 0.3, 2}, {3, 0.2, 1}, {4, 0.9, 1}},
			Labels:         [][]bool{{false, false}, {true, false}},
		},
	}
}

func TestFlipDomains(t *testing.T) {
	s := twoDomainSamples()[0]
	s.flipDomains(3)
	assert.InDelta(t, 0.7, s.LabelPriors[0], 1e-12)
	assert.InDeltaSlice(t, []float64{0.2, 0.3, 0.9}, s.ItemErrorRates[:3], 1e-12)
	assert.Equal(t, []bool{false, true}, s.Labels[0])

	assert.Equal(t, 0.6, s.LabelPriors[1], "two of three rates below 0.5")
	assert.Equal(t, []float64{0.1, 0.2, 0.9}, s.ItemErrorRates[3:])
	assert.Equal(t, []bool{true, true}, s.Labels[1])
}

func TestSampleClone(t *testing.T) {
	s := twoDomainSamples()[0]
	c := s.Clone()
	c.Labels[0][0] = false
	c.ItemErrorRates[0] = 0
	c.Assignments[0] = 9
	assert.True(t, s.Labels[0][0])
	assert.Equal(t, 0.8, s.ItemErrorRates[0])
	assert.Equal(t, 0, s.Assignments[0])
}

func TestAggregate(t *testing.T) {
	trace := twoDomainSamples()
	post := aggregate(trace, []string{"x", "y"}, 3, false)

	assert.Equal(t, 2, post.NumberOfSamples)
	assert.InDelta(t, 0.4, post.LabelPriors[0].Mean, 1e-12)
	assert.InDelta(t, 0.02, post.LabelPriors[0].Variance, 1e-12)
	assert.InDelta(t, 0.7, post.ErrorRates[0][0].Mean, 1e-12)
	assert.InDelta(t, 0.02, post.ErrorRates[0][0].Variance, 1e-12)
	assert.InDelta(t, 0.5, post.Labels[0][0].Mean, 1e-12)
	assert.Equal(t, 0.0, post.Labels[0][1].Mean)

	assert.Equal(t, 5, post.NumberOfClusters)
	assert.InDelta(t, 4.5, post.MeanNumberOfClusters, 1e-12)
	assert.Equal(t, 0.5, post.CoClusterRate(0, 0, 0, 1))
	assert.Equal(t, 0.5, post.CoClusterRate(0, 1, 0, 0))
	assert.Equal(t, 1.0, post.CoClusterRate(0, 2, 1, 0))
	assert.Equal(t, 0.0, post.CoClusterRate(0, 0, 1, 2))
	assert.Equal(t, [][]float64{{0.7, 0.8, 0.2}, {0.2, 0.2, 0.9}}, roundAll(post.ErrorRateMeans()))
}

func TestAggregateWithFlipKeepsTrace(t *testing.T) {
	trace := twoDomainSamples()
	post := aggregate(trace, []string{"x", "y"}, 3, true)
	// domain 0 has one rate below 0.5 in both samples, domain 1 has two
	assert.InDelta(t, 0.6, post.LabelPriors[0].Mean, 1e-12)
	assert.InDelta(t, 0.3, post.ErrorRates[0][0].Mean, 1e-12)
	assert.InDelta(t, 1.0, post.Labels[0][1].Mean, 1e-12)
	assert.InDelta(t, 0.5, post.LabelPriors[1].Mean, 1e-12)
	assert.Equal(t, 0.3, trace[0].LabelPriors[0], "trace is not modified")
}

func TestAggregateSingleSample(t *testing.T) {
	post := aggregate(twoDomainSamples()[:1], []string{"x", "y"}, 3, false)
	require.Equal(t, 1, post.NumberOfSamples)
	assert.Equal(t, Summary{Mean: 0.8}, post.ErrorRates[0][0])
	assert.Equal(t, Summary{Mean: 1}, post.Labels[0][0])
}

func roundAll(x [][]float64) [][]float64 {
	out := make([][]float64, len(x))
	for i, row := range x {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			out[i][j] = float64(int(v*1e9+0.5)) / 1e9
		}
	}
	return out
}
