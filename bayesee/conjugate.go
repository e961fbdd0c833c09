package bayesee

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mathext"
	"gonum.org/v1/gonum/stat/distuv"
)

// rates drawn from a Beta are kept away from 0 and 1 so their logs stay finite.
const rateEpsilon = 1e-12

// LogMarginal is the log marginal likelihood of a Bernoulli sequence with
// `ones` positive and `zeros` negative outcomes under the Beta prior.
func (p BetaPrior) LogMarginal(ones, zeros int) float64 {
	return mathext.Lbeta(p.Alpha+float64(ones), p.Beta+float64(zeros)) - mathext.Lbeta(p.Alpha, p.Beta)
}

// LogIncrement is the log predictive probability of adding `ones` positive and
// `zeros` negative outcomes to a cell that already holds c.
func (p BetaPrior) LogIncrement(c Cell, ones, zeros int) float64 {
	a := p.Alpha + float64(c.Disagreements)
	b := p.Beta + float64(c.Agreements)
	return mathext.Lbeta(a+float64(ones), b+float64(zeros)) - mathext.Lbeta(a, b)
}

// PredictiveOne is P(next outcome positive | ones, zeros).
func (p BetaPrior) PredictiveOne(ones, zeros int) float64 {
	return (p.Alpha + float64(ones)) / (p.Alpha + p.Beta + float64(ones+zeros))
}

// PosteriorMean is the mean of Beta(alpha+ones, beta+zeros).
func (p BetaPrior) PosteriorMean(ones, zeros int) float64 {
	return p.PredictiveOne(ones, zeros)
}

// Draw samples from the conditional Beta(alpha+ones, beta+zeros).
func (p BetaPrior) Draw(src rand.Source, ones, zeros int) float64 {
	beta := distuv.Beta{
		Alpha: p.Alpha + float64(ones),
		Beta:  p.Beta + float64(zeros),
		Src:   src,
	}
	return clampRate(beta.Rand())
}

func clampRate(r float64) float64 {
	if r < rateEpsilon || math.IsNaN(r) {
		return rateEpsilon
	}
	if r > 1-rateEpsilon {
		return 1 - rateEpsilon
	}
	return r
}

// bernoulliLogLik is the log likelihood of `ones` positive and `zeros`
// negative outcomes under a fixed rate.
func bernoulliLogLik(rate float64, ones, zeros int) float64 {
	var ll float64
	if ones > 0 {
		ll += float64(ones) * math.Log(rate)
	}
	if zeros > 0 {
		ll += float64(zeros) * math.Log1p(-rate)
	}
	return ll
}
