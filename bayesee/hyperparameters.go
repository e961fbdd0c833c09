package bayesee

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// GammaPrior is a Gamma(shape, rate) prior on a concentration parameter.
type GammaPrior struct {
	Shape float64 `yaml:"shape" json:"shape"`
	Rate  float64 `yaml:"rate" json:"rate"`
}

func (p *GammaPrior) valid() bool {
	return p == nil || (p.Shape > 0 && p.Rate > 0 && !math.IsInf(p.Shape, 0) && !math.IsInf(p.Rate, 0))
}

// restaurantCounts is the number of customers and occupied tables of one
// Chinese restaurant sharing a concentration parameter.
type restaurantCounts struct {
	customers int
	tables    int
}

// resampleConcentration draws a new concentration theta given the seating
// of every restaurant, using one auxiliary variable per restaurant
//
//	x     ~ Beta(theta+1, customers-1)
//	theta ~ Gamma(shape + sum (tables-1), rate - sum log x)
//
// This is the Pitman-Yor update with a zero discount, where every
// Bernoulli(theta / (theta + d*t)) auxiliary is 1.
// Restaurants with fewer than two customers carry no information and are skipped.
func resampleConcentration(src rand.Source, theta float64, prior GammaPrior, restaurants []restaurantCounts) float64 {
	shape := prior.Shape
	rate := prior.Rate
	for _, r := range restaurants {
		if r.customers < 2 {
			continue
		}
		betaDist := distuv.Beta{Alpha: theta + 1.0, Beta: float64(r.customers) - 1.0, Src: src}
		x := betaDist.Rand()
		if x > 0 {
			rate -= math.Log(x)
		}
		shape += float64(r.tables - 1)
	}
	gammaDist := distuv.Gamma{Alpha: shape, Beta: rate, Src: src}
	next := gammaDist.Rand()
	if !(next > 0) || math.IsInf(next, 0) {
		return theta
	}
	return next
}

func (dp *DPPrior) resampleAlpha(src rand.Source, prior GammaPrior) {
	dp.alpha = resampleConcentration(src, dp.alpha, prior, []restaurantCounts{{customers: dp.total, tables: dp.clusters.len()}})
}

func (hdp *HDPPrior) resampleAlpha(src rand.Source, prior GammaPrior) {
	hdp.alpha = resampleConcentration(src, hdp.alpha, prior, []restaurantCounts{{customers: hdp.totalTables, tables: hdp.clusters.len()}})
}

func (hdp *HDPPrior) resampleGamma(src rand.Source, prior GammaPrior) {
	restaurants := make([]restaurantCounts, len(hdp.seated))
	for d := range hdp.seated {
		customers := 0
		for _, t := range hdp.seated[d] {
			if t >= 0 {
				customers++
			}
		}
		restaurants[d] = restaurantCounts{customers: customers, tables: hdp.tables[d].len()}
	}
	hdp.gamma = resampleConcentration(src, hdp.gamma, prior, restaurants)
}

// resampleConcentrations updates the concentrations that have a Gamma prior.
func (e *Engine) resampleConcentrations() {
	switch p := e.prior.(type) {
	case *DPPrior:
		if e.cfg.AlphaPrior != nil {
			p.resampleAlpha(e.src, *e.cfg.AlphaPrior)
		}
	case *HDPPrior:
		if e.cfg.AlphaPrior != nil {
			p.resampleAlpha(e.src, *e.cfg.AlphaPrior)
		}
		if e.cfg.GammaPrior != nil {
			p.resampleGamma(e.src, *e.cfg.GammaPrior)
		}
	}
}

// concentrations returns the current alpha and gamma (0 without a table level).
func (e *Engine) concentrations() (alpha, gamma float64) {
	switch p := e.prior.(type) {
	case *DPPrior:
		return p.alpha, 0
	case *HDPPrior:
		return p.alpha, p.gamma
	}
	return e.cfg.ConcentrationAlpha, e.cfg.HDPGamma
}
