package bayesee

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// ChainsResult holds independent chains run on the same data.
type ChainsResult struct {
	Posteriors []*Posterior
	// Pooled aggregates the retained samples of every chain together.
	Pooled *Posterior
	// RHat is the Gelman-Rubin statistic of every (domain, predictor) error rate.
	RHat [][]float64
}

// RunChains runs n chains concurrently; chain c uses seed cfg.Seed+c.
// The first failing chain cancels the others.
func RunChains(ctx context.Context, domains []DomainData, cfg Config, n int, opts ...Option) (*ChainsResult, error) {
	if n < 1 {
		return nil, errors.Wrapf(ErrInvalidConfig, "chains = %d", n)
	}
	engines := make([]*Engine, n)
	for c := 0; c < n; c++ {
		chainCfg := cfg
		chainCfg.Seed = cfg.Seed + uint64(c)
		if c > 0 {
			chainCfg.ShowProgress = false
		}
		e, err := NewEngine(domains, chainCfg, opts...)
		if err != nil {
			return nil, err
		}
		e.logger = e.logger.With("chain", c)
		engines[c] = e
	}

	posteriors := make([]*Posterior, n)
	g, ctx := errgroup.WithContext(ctx)
	for c, e := range engines {
		g.Go(func() error {
			post, err := e.Run(ctx)
			if err != nil {
				return errors.WithMessagef(err, "chain %d", c)
			}
			posteriors[c] = post
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	trace := make([]Sample, 0, n*cfg.NumberOfSamples)
	for _, e := range engines {
		trace = append(trace, e.trace...)
	}
	pooled := aggregate(trace, engines[0].names, engines[0].numPredictors, cfg.FlipSymmetry)
	return &ChainsResult{Posteriors: posteriors, Pooled: pooled, RHat: GelmanRubin(posteriors)}, nil
}

// GelmanRubin computes the potential scale reduction factor of every error
// rate from per-chain means and variances. It is NaN with fewer than two
// chains or two samples, and 1 when every chain is constant and equal.
func GelmanRubin(posteriors []*Posterior) [][]float64 {
	if len(posteriors) == 0 {
		return nil
	}
	first := posteriors[0]
	rhat := make([][]float64, len(first.ErrorRates))
	means := make([]float64, len(posteriors))
	variances := make([]float64, len(posteriors))
	samples := float64(first.NumberOfSamples)
	for d := range first.ErrorRates {
		rhat[d] = make([]float64, len(first.ErrorRates[d]))
		for j := range first.ErrorRates[d] {
			if len(posteriors) < 2 || samples < 2 {
				rhat[d][j] = math.NaN()
				continue
			}
			for c, p := range posteriors {
				means[c] = p.ErrorRates[d][j].Mean
				variances[c] = p.ErrorRates[d][j].Variance
			}
			within := stat.Mean(variances, nil)
			between := stat.Variance(means, nil) // B/n
			if within == 0 {
				if between == 0 {
					rhat[d][j] = 1
				} else {
					rhat[d][j] = math.Inf(1)
				}
				continue
			}
			pooled := (samples-1)/samples*within + between
			rhat[d][j] = math.Sqrt(pooled / within)
		}
	}
	return rhat
}
