package bayesee

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
)

func meanConcentration(t *testing.T, prior GammaPrior, counts []restaurantCounts) float64 {
	t.Helper()
	src := rand.NewPCG(31, 32)
	theta := 1.0
	var sum float64
	const draws = 20000
	for n := 0; n < draws; n++ {
		theta = resampleConcentration(src, theta, prior, counts)
		require.Positive(t, theta)
		sum += theta
	}
	return sum / draws
}

// exactMeanConcentration integrates the posterior
// theta^(shape-1) exp(-rate*theta) prod_r theta^tables Gamma(theta)/Gamma(theta+customers)
// on a grid.
func exactMeanConcentration(prior GammaPrior, counts []restaurantCounts) float64 {
	const n, step = 60000, 1e-3
	xs := make([]float64, n)
	logp := make([]float64, n)
	for i := range xs {
		x := 1e-4 + float64(i)*step
		xs[i] = x
		lp := (prior.Shape-1)*math.Log(x) - prior.Rate*x
		for _, r := range counts {
			lgx, _ := math.Lgamma(x)
			lgxc, _ := math.Lgamma(x + float64(r.customers))
			lp += float64(r.tables)*math.Log(x) + lgx - lgxc
		}
		logp[i] = lp
	}
	top := floats.Max(logp)
	dens := make([]float64, n)
	moment := make([]float64, n)
	for i, lp := range logp {
		dens[i] = math.Exp(lp - top)
		moment[i] = xs[i] * dens[i]
	}
	return integrate.Trapezoidal(xs, moment) / integrate.Trapezoidal(xs, dens)
}

func TestResampleConcentrationMatchesExactPosterior(t *testing.T) {
	prior := GammaPrior{Shape: 1, Rate: 1}
	for _, counts := range [][]restaurantCounts{
		{{customers: 20, tables: 5}},
		{{customers: 50, tables: 12}},
		{{customers: 6, tables: 3}, {customers: 6, tables: 2}, {customers: 1, tables: 1}},
		{{customers: 500, tables: 1}},
		{{customers: 500, tables: 100}},
	} {
		want := exactMeanConcentration(prior, counts)
		got := meanConcentration(t, prior, counts)
		assert.InEpsilon(t, want, got, 0.03, "%+v", counts)
	}
}

func TestResampleConcentrationWithoutInformationKeepsPrior(t *testing.T) {
	// nothing to learn from: the draws follow the Gamma(2, 1) prior
	mean := 0.0
	src := rand.NewPCG(1, 2)
	for n := 0; n < 20000; n++ {
		mean += resampleConcentration(src, 1, GammaPrior{Shape: 2, Rate: 1}, []restaurantCounts{{customers: 1, tables: 1}})
	}
	assert.InDelta(t, 2.0, mean/20000, 0.05)
}

func TestEngineResamplesConcentrations(t *testing.T) {
	domains := synthDomains(t, 12, 40, []float64{0.1, 0.3, 0.2}, []float64{0.1, 0.3, 0.2})
	for _, prior := range []PriorKind{PriorDP, PriorHDP} {
		cfg := testConfig(prior, true)
		cfg.AlphaPrior = &GammaPrior{Shape: 2, Rate: 2}
		cfg.GammaPrior = &GammaPrior{Shape: 2, Rate: 2}
		cfg.CheckInvariants = true
		post, err := Estimate(context.Background(), domains, cfg, WithLogger(quietLogger))
		require.NoError(t, err)
		assert.Positive(t, post.ConcentrationAlpha.Mean)
		assert.Positive(t, post.ConcentrationAlpha.Variance, "alpha moves between samples")
		if prior == PriorHDP {
			assert.Positive(t, post.HDPGamma.Variance)
		} else {
			assert.Equal(t, Summary{}, post.HDPGamma)
		}
	}

	cfg := testConfig(PriorDP, true)
	post, err := Estimate(context.Background(), domains, cfg, WithLogger(quietLogger))
	require.NoError(t, err)
	assert.Equal(t, Summary{Mean: 1}, post.ConcentrationAlpha, "fixed without a prior")
}

func TestConfigRejectsBadGammaPrior(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AlphaPrior = &GammaPrior{Shape: 0, Rate: 1}
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}
