package bayesee

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogMarginalChainRule(t *testing.T) {
	p := BetaPrior{Alpha: 1.5, Beta: 0.7}
	assert.InDelta(t, 0, p.LogMarginal(0, 0), 1e-12)

	// adding outcomes one at a time sums to the joint marginal
	var sum float64
	var c Cell
	for _, dis := range []bool{true, false, false, true, true} {
		if dis {
			sum += p.LogIncrement(c, 1, 0)
			c.Disagreements++
		} else {
			sum += p.LogIncrement(c, 0, 1)
			c.Agreements++
		}
	}
	assert.InDelta(t, p.LogMarginal(3, 2), sum, 1e-10)
	assert.InDelta(t, p.LogMarginal(3, 2), p.LogIncrement(Cell{}, 3, 2), 1e-12)
}

func TestPredictiveMatchesIncrement(t *testing.T) {
	p := BetaPrior{Alpha: 2, Beta: 3}
	assert.InDelta(t, 2.0/5.0, p.PredictiveOne(0, 0), 1e-12)
	c := Cell{Disagreements: 2, Agreements: 5}
	assert.InDelta(t, p.PredictiveOne(2, 5), math.Exp(p.LogIncrement(c, 1, 0)), 1e-12)
	assert.InDelta(t, 1-p.PredictiveOne(2, 5), math.Exp(p.LogIncrement(c, 0, 1)), 1e-12)
}

func TestDrawMatchesPosteriorMean(t *testing.T) {
	p := BetaPrior{Alpha: 2, Beta: 3}
	src := rand.NewPCG(11, 12)
	const draws = 20000
	var sum float64
	for n := 0; n < draws; n++ {
		r := p.Draw(src, 3, 1)
		assert.True(t, r > 0 && r < 1)
		sum += r
	}
	assert.InDelta(t, p.PosteriorMean(3, 1), sum/draws, 0.01)
}

func TestBernoulliLogLik(t *testing.T) {
	assert.Equal(t, 0.0, bernoulliLogLik(0.3, 0, 0))
	assert.InDelta(t, 2*math.Log(0.3)+3*math.Log(0.7), bernoulliLogLik(0.3, 2, 3), 1e-12)
	assert.Equal(t, rateEpsilon, clampRate(0))
	assert.Equal(t, 1-rateEpsilon, clampRate(1))
}
